// Package synth defines the Provider interface for speech synthesis
// backends.
//
// A synth provider turns a short piece of text into encoded audio bytes.
// The session controller uses it for the audible recording announcement,
// which doubles as the consent signal: synthesis that fails or produces no
// audio withholds recording entirely. Providers therefore must report
// "no audio" faithfully rather than papering over it.
//
// Implementations must be safe for concurrent use.
package synth

import "context"

// Provider is the abstraction over any speech synthesis backend.
type Provider interface {
	// Synthesize renders text as encoded audio and returns the raw encoded
	// bytes (container format is provider-specific; callers run the result
	// through an [audio.Transcoder] before playback). A nil error with zero
	// bytes means the backend ran but produced no audio — callers must treat
	// that the same as an error.
	Synthesize(ctx context.Context, text string) ([]byte, error)

	// Probe checks whether the backend is currently able to produce audio.
	// Used for readiness reporting; a failing probe is never fatal.
	Probe(ctx context.Context) error
}
