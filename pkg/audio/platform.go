// Package audio defines the interfaces and types for voice-channel
// connectivity within soundcheck.
//
// The primary abstractions are:
//
//   - [Platform] — joins a voice channel and returns a [Connection].
//   - [Connection] — an active voice session giving callers per-user audio
//     capture and PCM playback.
//   - [Capture] — one bounded recording of a single user's audio.
//   - [Playback] — one in-flight playback of a PCM buffer.
//
// Implementations are provided by platform-specific adapter packages
// (e.g., audio/discord). The interfaces are intentionally narrow so the
// session controller stays decoupled from transport details and can be
// exercised against the mocks in audio/mock.
//
// This package lives under pkg/ because external adapters are expected to
// implement [Platform] and [Connection].
package audio

import "context"

// Capture represents one in-flight recording of a single user's audio.
//
// A Capture buffers decoded PCM for exactly the user it was started for.
// Call [Capture.Stop] to request the end of the recording, then wait on
// [Capture.Done] for the transport to finish flushing buffered audio before
// reading [Capture.Bytes]. Reading Bytes before Done resolves returns
// whatever has been buffered so far — callers that tolerate partial data
// (e.g., after a flush timeout) may do exactly that.
//
// Implementations must be safe for concurrent use.
type Capture interface {
	// Stop requests that the capture end. It is safe to call more than once;
	// subsequent calls are no-ops.
	Stop()

	// Done returns a channel that is closed once the transport has flushed
	// all buffered audio for this capture. It resolves at most once.
	Done() <-chan struct{}

	// Bytes returns the captured PCM accumulated so far. The returned slice
	// is owned by the caller; the capture keeps no reference to it.
	Bytes() []byte
}

// Playback represents one in-flight playback of a PCM buffer.
//
// Playback is asynchronous: [Connection.Play] returns immediately and the
// caller polls [Playback.Done] for completion. [Playback.Err] reports the
// terminal error, if any, once Done has resolved.
type Playback interface {
	// Done returns a channel that is closed when playback has finished,
	// whether it ran to completion or failed.
	Done() <-chan struct{}

	// Err returns the playback error, or nil if playback completed cleanly.
	// Only meaningful after Done has resolved.
	Err() error
}

// Connection represents an active session on a voice channel.
//
// A Connection is obtained from [Platform.Connect] and remains valid until
// [Connection.Disconnect] is called or the underlying transport drops.
// At most one [Capture] may be active on a Connection at a time.
//
// Implementations must be safe for concurrent use.
type Connection interface {
	// ChannelID returns the voice channel this connection is joined to.
	ChannelID() string

	// Alive reports whether the underlying transport is still usable.
	// A dead connection never becomes alive again.
	Alive() bool

	// Capture begins buffering decoded audio for exactly the given user,
	// identified by platform user ID rather than by transport stream.
	// Returns an error if another capture is already active or the
	// transport refuses to begin receiving.
	Capture(userID string) (Capture, error)

	// Play starts asynchronous playback of the given PCM buffer
	// (48 kHz stereo s16le, see the package constants). The returned
	// [Playback] reports completion; frames that cannot be delivered
	// after the connection dies are dropped and surfaced via Err.
	Play(pcm []byte) (Playback, error)

	// Disconnect tears down the connection. It is safe to call more than
	// once; subsequent calls are no-ops and return nil.
	Disconnect() error
}

// Platform is the entry point for a voice-channel provider.
//
// Implementations wrap provider-specific SDKs and expose a uniform
// [Connection] abstraction. Connecting to a channel the platform is already
// joined to in that guild reuses the existing connection.
//
// Implementations must be safe for concurrent use.
type Platform interface {
	// Connect joins the voice channel identified by channelID in the given
	// guild and returns an active [Connection]. The supplied ctx governs the
	// connection attempt only; once connected, the Connection lives until
	// [Connection.Disconnect] is called.
	Connect(ctx context.Context, guildID, channelID string) (Connection, error)
}

// Transcoder converts externally encoded audio (whatever container and codec
// a synthesizer emits) into transport PCM. Implementations typically shell
// out to a media transcoder; see audio/ffmpeg.
type Transcoder interface {
	// ToPCM decodes encoded into 48 kHz stereo s16le PCM.
	ToPCM(ctx context.Context, encoded []byte) ([]byte, error)
}
