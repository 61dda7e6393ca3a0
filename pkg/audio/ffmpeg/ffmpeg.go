// Package ffmpeg provides an [audio.Transcoder] that shells out to an
// external media transcoder. Encoded audio is written to the subprocess on
// stdin and 48 kHz stereo s16le PCM is read back from stdout — nothing
// touches the filesystem.
//
// The transcoder's absence or failure is a runtime condition reported per
// call, never a startup-fatal one.
package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/MrWong99/soundcheck/pkg/audio"
)

// Compile-time interface assertion.
var _ audio.Transcoder = (*Transcoder)(nil)

// DefaultCommand is the argv used when none is configured. It reads any
// encoded input from stdin and emits transport-format PCM on stdout.
var DefaultCommand = []string{
	"ffmpeg",
	"-hide_banner", "-loglevel", "error",
	"-i", "pipe:0",
	"-f", "s16le",
	"-ar", fmt.Sprint(audio.SampleRate),
	"-ac", fmt.Sprint(audio.Channels),
	"pipe:1",
}

// stderrTailLen bounds how much subprocess stderr is included in errors.
const stderrTailLen = 512

// Transcoder converts encoded audio to transport PCM via a subprocess.
//
// Transcoder is safe for concurrent use; each call runs its own subprocess.
type Transcoder struct {
	argv []string
}

// New creates a Transcoder running the given argv. An empty argv selects
// [DefaultCommand].
func New(argv []string) *Transcoder {
	if len(argv) == 0 {
		argv = DefaultCommand
	}
	return &Transcoder{argv: argv}
}

// ToPCM implements [audio.Transcoder].
func (t *Transcoder) ToPCM(ctx context.Context, encoded []byte) ([]byte, error) {
	if len(encoded) == 0 {
		return nil, errors.New("ffmpeg: no input audio")
	}

	cmd := exec.CommandContext(ctx, t.argv[0], t.argv[1:]...)
	cmd.Stdin = bytes.NewReader(encoded)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg: run %s: %w%s", t.argv[0], err, stderrTail(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg: %s produced no output%s", t.argv[0], stderrTail(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// stderrTail formats the trailing portion of subprocess stderr for inclusion
// in an error message. Returns "" when stderr was empty.
func stderrTail(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if len(s) > stderrTailLen {
		s = s[len(s)-stderrTailLen:]
	}
	return ": " + s
}
