// Package mock provides in-memory mock implementations of the
// [audio.Platform], [audio.Connection], [audio.Capture], [audio.Playback],
// and [audio.Transcoder] interfaces for use in unit tests.
//
// All mocks are safe for concurrent use. They record every method call so
// that tests can assert on call counts and arguments, and they expose
// exported fields that the test can set to control return values.
//
// Typical usage:
//
//	cap := &mock.Capture{BytesResult: []byte("pcm")}
//	conn := &mock.Connection{CaptureResult: cap}
//	platform := &mock.Platform{ConnectResult: conn}
//	got, err := platform.Connect(ctx, "guild-1", "channel-42")
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/soundcheck/pkg/audio"
)

// ─── Capture ──────────────────────────────────────────────────────────────────

// Capture is a mock implementation of [audio.Capture].
//
// By default Done resolves as soon as Stop is called. Set HoldFlush to keep
// Done unresolved even after Stop — this simulates a transport whose
// capture-flush never completes, for exercising flush-timeout paths.
type Capture struct {
	mu sync.Mutex

	// BytesResult is returned by [Capture.Bytes].
	BytesResult []byte

	// HoldFlush, when true, prevents Stop from resolving Done.
	HoldFlush bool

	// CallCountStop records how many times Stop was called.
	CallCountStop int

	// CallCountBytes records how many times Bytes was called.
	CallCountBytes int

	done     chan struct{}
	doneOnce sync.Once
}

// Stop implements [audio.Capture]. Resolves Done unless HoldFlush is set.
func (c *Capture) Stop() {
	c.mu.Lock()
	c.CallCountStop++
	hold := c.HoldFlush
	c.mu.Unlock()
	if !hold {
		c.ResolveFlush()
	}
}

// Done implements [audio.Capture].
func (c *Capture) Done() <-chan struct{} {
	return c.doneCh()
}

// Bytes implements [audio.Capture]. Returns BytesResult.
func (c *Capture) Bytes() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CallCountBytes++
	return c.BytesResult
}

// ResolveFlush closes the Done channel. Use this in tests together with
// HoldFlush to control exactly when the flush completes.
func (c *Capture) ResolveFlush() {
	ch := c.doneCh()
	c.doneOnce.Do(func() { close(ch) })
}

func (c *Capture) doneCh() chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done == nil {
		c.done = make(chan struct{})
	}
	return c.done
}

// ─── Playback ─────────────────────────────────────────────────────────────────

// Playback is a mock implementation of [audio.Playback]. Done resolves
// immediately unless a test constructs it with an open Hold channel.
type Playback struct {
	// ErrResult is returned by [Playback.Err].
	ErrResult error

	// Hold, when non-nil, is used as the Done channel — the test controls
	// when it closes. When nil, Done returns an already-closed channel.
	Hold chan struct{}
}

// Done implements [audio.Playback].
func (p *Playback) Done() <-chan struct{} {
	if p.Hold != nil {
		return p.Hold
	}
	ch := make(chan struct{})
	close(ch)
	return ch
}

// Err implements [audio.Playback]. Returns ErrResult.
func (p *Playback) Err() error {
	return p.ErrResult
}

// ─── Connection ───────────────────────────────────────────────────────────────

// PlayCall records the arguments of a single [Connection.Play] invocation.
type PlayCall struct {
	// PCM is the buffer passed to Play.
	PCM []byte
}

// CaptureCall records the arguments of a single [Connection.Capture] invocation.
type CaptureCall struct {
	// UserID is the user the capture was started for.
	UserID string
}

// Connection is a mock implementation of [audio.Connection].
// Set the exported Result fields before use; inspect the Call* fields after.
type Connection struct {
	mu sync.Mutex

	// ChannelIDResult is returned by [Connection.ChannelID].
	ChannelIDResult string

	// Dead, when true, makes [Connection.Alive] report false.
	Dead bool

	// CaptureResult is returned by [Connection.Capture].
	CaptureResult audio.Capture

	// CaptureError is returned by [Connection.Capture].
	CaptureError error

	// PlayResults are returned by successive [Connection.Play] calls in
	// order; once exhausted, an immediately-done [Playback] is returned.
	PlayResults []audio.Playback

	// PlayError is returned by every [Connection.Play] call when set.
	PlayError error

	// DisconnectError is returned by [Connection.Disconnect].
	DisconnectError error

	// CaptureCalls records all Capture invocations.
	CaptureCalls []CaptureCall

	// PlayCalls records all Play invocations.
	PlayCalls []PlayCall

	// CallCountDisconnect records how many times Disconnect was called.
	CallCountDisconnect int
}

// ChannelID implements [audio.Connection].
func (c *Connection) ChannelID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ChannelIDResult
}

// Alive implements [audio.Connection]. Reports !Dead.
func (c *Connection) Alive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.Dead
}

// Kill marks the connection dead. Use this in tests to simulate the
// transport dropping mid-session.
func (c *Connection) Kill() {
	c.mu.Lock()
	c.Dead = true
	c.mu.Unlock()
}

// Capture implements [audio.Connection]. Records the call and returns
// CaptureResult / CaptureError.
func (c *Connection) Capture(userID string) (audio.Capture, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CaptureCalls = append(c.CaptureCalls, CaptureCall{UserID: userID})
	if c.CaptureError != nil {
		return nil, c.CaptureError
	}
	return c.CaptureResult, nil
}

// Play implements [audio.Connection]. Records the call and returns the next
// configured playback.
func (c *Connection) Play(pcm []byte) (audio.Playback, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	buf := make([]byte, len(pcm))
	copy(buf, pcm)
	c.PlayCalls = append(c.PlayCalls, PlayCall{PCM: buf})
	if c.PlayError != nil {
		return nil, c.PlayError
	}
	if len(c.PlayResults) > 0 {
		pb := c.PlayResults[0]
		c.PlayResults = c.PlayResults[1:]
		return pb, nil
	}
	return &Playback{}, nil
}

// CaptureCallCount returns the number of Capture invocations so far. Unlike
// reading CaptureCalls directly, it is safe to call while the connection is
// in use by another goroutine.
func (c *Connection) CaptureCallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.CaptureCalls)
}

// Disconnect implements [audio.Connection]. Returns DisconnectError.
func (c *Connection) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CallCountDisconnect++
	return c.DisconnectError
}

// ─── Platform ─────────────────────────────────────────────────────────────────

// ConnectCall records the arguments of a single [Platform.Connect] invocation.
type ConnectCall struct {
	// GuildID is the guildID argument passed to Connect.
	GuildID string

	// ChannelID is the channelID argument passed to Connect.
	ChannelID string
}

// Platform is a mock implementation of [audio.Platform].
type Platform struct {
	mu sync.Mutex

	// ConnectResult is the [audio.Connection] returned by Connect.
	ConnectResult audio.Connection

	// ConnectError is the error returned by Connect.
	ConnectError error

	// ConnectCalls records all Connect invocations.
	ConnectCalls []ConnectCall
}

// Connect implements [audio.Platform]. Records the call and returns
// ConnectResult / ConnectError.
func (p *Platform) Connect(_ context.Context, guildID, channelID string) (audio.Connection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ConnectCalls = append(p.ConnectCalls, ConnectCall{GuildID: guildID, ChannelID: channelID})
	if p.ConnectError != nil {
		return nil, p.ConnectError
	}
	return p.ConnectResult, nil
}

// ─── Transcoder ───────────────────────────────────────────────────────────────

// Transcoder is a mock implementation of [audio.Transcoder]. By default it
// echoes its input, which keeps byte-flow assertions simple in tests.
type Transcoder struct {
	mu sync.Mutex

	// Result, when non-nil, is returned by every ToPCM call.
	Result []byte

	// Err is returned by every ToPCM call when set.
	Err error

	// Calls records the encoded input of every ToPCM invocation.
	Calls [][]byte
}

// ToPCM implements [audio.Transcoder].
func (t *Transcoder) ToPCM(_ context.Context, encoded []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	buf := make([]byte, len(encoded))
	copy(buf, encoded)
	t.Calls = append(t.Calls, buf)
	if t.Err != nil {
		return nil, t.Err
	}
	if t.Result != nil {
		return t.Result, nil
	}
	return buf, nil
}
