// Package espeak provides a subprocess-backed [synth.Provider]. It invokes
// an external speech synthesizer with the text appended as the final
// argument and reads encoded audio from the subprocess's stdout. Nothing is
// written to disk.
//
// The default command is espeak-ng in --stdout mode (WAV on stdout), but any
// executable with the same text-in/audio-out contract can be configured.
// A missing or failing executable surfaces as a per-call error; it is a
// runtime condition, not a startup-fatal one.
package espeak

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/MrWong99/soundcheck/pkg/synth"
)

// Compile-time interface assertion.
var _ synth.Provider = (*Provider)(nil)

// DefaultCommand is the argv used when none is configured.
var DefaultCommand = []string{"espeak-ng", "--stdout"}

const (
	defaultTimeout = 10 * time.Second

	// probeText is the short utterance synthesized by Probe.
	probeText = "ok"
)

// Option configures a [Provider].
type Option func(*Provider)

// WithTimeout overrides the per-call subprocess timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.timeout = d }
}

// Provider synthesizes speech by running an external executable per call.
//
// Provider is safe for concurrent use; each call runs its own subprocess.
type Provider struct {
	argv    []string
	timeout time.Duration
}

// New creates a Provider running the given argv. An empty argv selects
// [DefaultCommand].
func New(argv []string, opts ...Option) *Provider {
	if len(argv) == 0 {
		argv = DefaultCommand
	}
	p := &Provider{
		argv:    argv,
		timeout: defaultTimeout,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Synthesize implements [synth.Provider].
func (p *Provider) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if text == "" {
		return nil, errors.New("espeak: empty text")
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	args := append(append([]string(nil), p.argv[1:]...), text)
	cmd := exec.CommandContext(ctx, p.argv[0], args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := bytes.TrimSpace(stderr.Bytes())
		if len(msg) > 0 {
			return nil, fmt.Errorf("espeak: run %s: %w: %s", p.argv[0], err, msg)
		}
		return nil, fmt.Errorf("espeak: run %s: %w", p.argv[0], err)
	}
	return stdout.Bytes(), nil
}

// Probe implements [synth.Provider] by synthesizing a short utterance and
// checking that it produced audio.
func (p *Provider) Probe(ctx context.Context) error {
	data, err := p.Synthesize(ctx, probeText)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return fmt.Errorf("espeak: %s produced no audio", p.argv[0])
	}
	return nil
}
