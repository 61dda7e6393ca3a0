package discord

import (
	"bytes"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/soundcheck/pkg/audio"
)

// Compile-time interface assertions.
var (
	_ audio.Connection = (*Connection)(nil)
	_ audio.Capture    = (*capture)(nil)
	_ audio.Playback   = (*playback)(nil)
)

// Connection wraps a discordgo.VoiceConnection and adapts it to the
// [audio.Connection] interface. Incoming Opus packets are demuxed by SSRC,
// mapped to a user via speaking updates, decoded to PCM, and buffered into
// the active [capture]. Outgoing PCM is encoded to Opus and sent paced at
// one frame per 20 ms.
//
// Connection is safe for concurrent use.
type Connection struct {
	vc        *discordgo.VoiceConnection
	guildID   string
	channelID string

	mu       sync.Mutex
	ssrcUser map[uint32]string // SSRC -> user ID, learned from speaking updates
	active   *capture          // at most one capture at a time

	done      chan struct{} // closed by Disconnect
	lost      chan struct{} // closed when the transport receive stream ends
	closeOnce sync.Once
	lostOnce  sync.Once

	// disconnectVC tears down the underlying voice connection.
	// Defaults to vc.Disconnect; overridden in tests.
	disconnectVC func() error
}

// newConnection initialises a Connection for an already-joined voice channel
// and starts the receive loop.
func newConnection(vc *discordgo.VoiceConnection, guildID, channelID string) *Connection {
	c := &Connection{
		vc:           vc,
		guildID:      guildID,
		channelID:    channelID,
		ssrcUser:     make(map[uint32]string),
		done:         make(chan struct{}),
		lost:         make(chan struct{}),
		disconnectVC: vc.Disconnect,
	}

	// Speaking updates carry the SSRC -> user ID association, which is what
	// lets a capture select audio by user identity rather than by stream.
	vc.AddHandler(c.handleSpeakingUpdate)

	go c.recvLoop()

	return c
}

// ChannelID returns the voice channel this connection was joined to.
func (c *Connection) ChannelID() string {
	return c.channelID
}

// Alive reports whether the transport is still usable.
func (c *Connection) Alive() bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case <-c.lost:
		return false
	default:
	}
	return true
}

// Capture implements [audio.Connection]. Only one capture may be active on
// the connection at a time.
func (c *Connection) Capture(userID string) (audio.Capture, error) {
	if !c.Alive() {
		return nil, errors.New("discord: connection is not alive")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != nil {
		return nil, errors.New("discord: a capture is already active on this connection")
	}
	cp := &capture{
		conn:   c,
		userID: userID,
		done:   make(chan struct{}),
	}
	c.active = cp
	return cp, nil
}

// Play implements [audio.Connection]. It starts a goroutine that encodes and
// sends pcm one Opus frame per 20 ms; the returned [audio.Playback] resolves
// when the buffer has been sent or the connection dies.
func (c *Connection) Play(pcm []byte) (audio.Playback, error) {
	if !c.Alive() {
		return nil, errors.New("discord: connection is not alive")
	}
	enc, err := newOpusEncoder()
	if err != nil {
		return nil, err
	}
	pb := &playback{done: make(chan struct{})}
	go c.playLoop(enc, pcm, pb)
	return pb, nil
}

// Disconnect tears down the voice connection. Any active capture is stopped
// first so its Done channel resolves. Safe to call more than once.
func (c *Connection) Disconnect() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		cp := c.active
		c.mu.Unlock()
		if cp != nil {
			cp.Stop()
		}

		close(c.done)
		err = c.disconnectVC()
	})
	return err
}

// recvLoop reads Opus packets from the voice connection, decodes packets
// belonging to the active capture's user, and appends the PCM to the capture
// buffer. Packets from other users are discarded undecoded.
func (c *Connection) recvLoop() {
	decoders := make(map[uint32]*opusDecoder)

	for {
		select {
		case <-c.done:
			return
		case pkt, ok := <-c.vc.OpusRecv:
			if !ok {
				c.lostOnce.Do(func() { close(c.lost) })
				return
			}
			if pkt == nil {
				continue
			}

			c.mu.Lock()
			cp := c.active
			userID := c.ssrcUser[pkt.SSRC]
			c.mu.Unlock()

			if cp == nil || cp.stopped() || userID == "" || userID != cp.userID {
				continue
			}

			dec, exists := decoders[pkt.SSRC]
			if !exists {
				var err error
				dec, err = newOpusDecoder()
				if err != nil {
					slog.Error("discord: create opus decoder", "ssrc", pkt.SSRC, "err", err)
					continue
				}
				decoders[pkt.SSRC] = dec
			}

			pcm, err := dec.decode(pkt.Opus)
			if err != nil {
				slog.Warn("discord: opus decode error", "ssrc", pkt.SSRC, "err", err)
				continue
			}
			cp.append(pcm)
		}
	}
}

// playLoop encodes pcm frame by frame and sends it on the voice connection,
// paced at the transport frame rate. The final partial frame is zero-padded.
func (c *Connection) playLoop(enc *opusEncoder, pcm []byte, pb *playback) {
	c.setSpeaking(true)
	defer c.setSpeaking(false)

	ticker := time.NewTicker(audio.FrameDurationMs * time.Millisecond)
	defer ticker.Stop()

	for off := 0; off < len(pcm); off += audio.FrameBytes {
		end := off + audio.FrameBytes
		frame := make([]byte, audio.FrameBytes)
		if end > len(pcm) {
			copy(frame, pcm[off:])
		} else {
			copy(frame, pcm[off:end])
		}

		packet, err := enc.encode(frame)
		if err != nil {
			pb.finish(err)
			return
		}

		select {
		case <-c.done:
			pb.finish(errors.New("discord: connection closed during playback"))
			return
		case <-ticker.C:
		}

		select {
		case c.vc.OpusSend <- packet:
		case <-c.done:
			pb.finish(errors.New("discord: connection closed during playback"))
			return
		}
	}

	pb.finish(nil)
}

// handleSpeakingUpdate records the SSRC -> user ID association announced by
// the voice gateway whenever a participant starts or stops speaking.
func (c *Connection) handleSpeakingUpdate(_ *discordgo.VoiceConnection, vs *discordgo.VoiceSpeakingUpdate) {
	if vs == nil || vs.UserID == "" {
		return
	}
	c.mu.Lock()
	c.ssrcUser[uint32(vs.SSRC)] = vs.UserID
	c.mu.Unlock()
}

// setSpeaking sends a speaking notification, logging failures.
func (c *Connection) setSpeaking(b bool) {
	if err := c.vc.Speaking(b); err != nil {
		slog.Warn("discord: speaking notification error", "speaking", b, "err", err)
	}
}

// ─── capture ──────────────────────────────────────────────────────────────────

// capture buffers decoded PCM for one user. Stop detaches it from the
// connection and resolves Done; with a synchronous receive loop there is
// nothing left to flush once the capture is detached.
type capture struct {
	conn   *Connection
	userID string

	mu  sync.Mutex
	buf bytes.Buffer

	done     chan struct{}
	stopOnce sync.Once
}

func (cp *capture) Stop() {
	cp.stopOnce.Do(func() {
		cp.conn.mu.Lock()
		if cp.conn.active == cp {
			cp.conn.active = nil
		}
		cp.conn.mu.Unlock()
		close(cp.done)
	})
}

func (cp *capture) Done() <-chan struct{} {
	return cp.done
}

func (cp *capture) Bytes() []byte {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	out := make([]byte, cp.buf.Len())
	copy(out, cp.buf.Bytes())
	return out
}

func (cp *capture) append(pcm []byte) {
	cp.mu.Lock()
	cp.buf.Write(pcm)
	cp.mu.Unlock()
}

func (cp *capture) stopped() bool {
	select {
	case <-cp.done:
		return true
	default:
		return false
	}
}

// ─── playback ─────────────────────────────────────────────────────────────────

type playback struct {
	done chan struct{}
	err  error
}

func (pb *playback) Done() <-chan struct{} {
	return pb.done
}

// Err returns the terminal playback error. Only meaningful after Done has
// resolved; the error is written before the done channel closes.
func (pb *playback) Err() error {
	return pb.err
}

func (pb *playback) finish(err error) {
	pb.err = err
	close(pb.done)
}

// GuildID returns the guild this connection belongs to.
func (c *Connection) GuildID() string {
	return c.guildID
}
