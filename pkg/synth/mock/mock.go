// Package mock provides an in-memory mock implementation of the
// [synth.Provider] interface for use in unit tests.
//
// The mock records every synthesis request and returns the configured
// result, making consent-gate behavior easy to script: set Result to nil to
// simulate a synthesizer that runs but produces no audio.
package mock

import (
	"context"
	"sync"
)

// Provider is a mock implementation of [synth.Provider].
// Set the exported Result fields before use; inspect Calls after.
type Provider struct {
	mu sync.Mutex

	// Result is returned by [Provider.Synthesize]. A nil Result simulates a
	// synthesizer that produced zero bytes.
	Result []byte

	// Err is returned by [Provider.Synthesize] when set.
	Err error

	// ProbeErr is returned by [Provider.Probe].
	ProbeErr error

	// Calls records the text of every Synthesize invocation.
	Calls []string
}

// Synthesize implements [synth.Provider]. Records text and returns
// Result / Err.
func (p *Provider) Synthesize(_ context.Context, text string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, text)
	if p.Err != nil {
		return nil, p.Err
	}
	return p.Result, nil
}

// Probe implements [synth.Provider]. Returns ProbeErr.
func (p *Provider) Probe(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ProbeErr
}
