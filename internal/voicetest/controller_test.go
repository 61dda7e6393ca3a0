package voicetest_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrWong99/soundcheck/internal/voicetest"
	audiomock "github.com/MrWong99/soundcheck/pkg/audio/mock"
	synthmock "github.com/MrWong99/soundcheck/pkg/synth/mock"
)

// fakeContext is a scriptable [voicetest.Context].
type fakeContext struct {
	mu        sync.Mutex
	guildID   string
	userID    string
	name      string
	channelID string

	responses   []string
	channelMsgs []string
}

func newFakeContext() *fakeContext {
	return &fakeContext{
		guildID:   "guild-1",
		userID:    "user-1",
		name:      "Tester",
		channelID: "voice-42",
	}
}

func (f *fakeContext) GuildID() string          { return f.guildID }
func (f *fakeContext) UserID() string           { return f.userID }
func (f *fakeContext) UserDisplayName() string  { return f.name }
func (f *fakeContext) UserVoiceChannel() string { return f.channelID }

func (f *fakeContext) Respond(msg string) {
	f.mu.Lock()
	f.responses = append(f.responses, msg)
	f.mu.Unlock()
}

func (f *fakeContext) SendToChannel(msg string) {
	f.mu.Lock()
	f.channelMsgs = append(f.channelMsgs, msg)
	f.mu.Unlock()
}

// testDeps bundles a full set of mocks plus a controller wired to them.
type testDeps struct {
	platform *audiomock.Platform
	conn     *audiomock.Connection
	capture  *audiomock.Capture
	synth    *synthmock.Provider
	trans    *audiomock.Transcoder
	registry *voicetest.Registry
}

func newTestDeps() *testDeps {
	capture := &audiomock.Capture{BytesResult: []byte("captured-pcm")}
	conn := &audiomock.Connection{ChannelIDResult: "voice-42", CaptureResult: capture}
	return &testDeps{
		platform: &audiomock.Platform{ConnectResult: conn},
		conn:     conn,
		capture:  capture,
		synth:    &synthmock.Provider{Result: []byte("synth-wav")},
		trans:    &audiomock.Transcoder{},
		registry: voicetest.NewRegistry(),
	}
}

func (d *testDeps) controller(overrides func(*voicetest.ControllerConfig)) *voicetest.Controller {
	cfg := voicetest.ControllerConfig{
		Platform:        d.platform,
		Synth:           d.synth,
		Transcoder:      d.trans,
		Registry:        d.registry,
		Limiter:         voicetest.NewConnectLimiter(time.Millisecond),
		DefaultDuration: time.Second,
		MaxDuration:     2 * time.Second,
		PollInterval:    5 * time.Millisecond,
		FlushTimeout:    50 * time.Millisecond,
	}
	if overrides != nil {
		overrides(&cfg)
	}
	return voicetest.NewController(cfg)
}

func TestRunUserNotInVoiceChannel(t *testing.T) {
	t.Parallel()
	d := newTestDeps()
	tc := newFakeContext()
	tc.channelID = ""

	err := d.controller(nil).Run(context.Background(), tc, time.Second)

	if !errors.Is(err, voicetest.ErrUserNotInVoiceChannel) {
		t.Fatalf("Run() error = %v, want ErrUserNotInVoiceChannel", err)
	}
	if len(d.platform.ConnectCalls) != 0 {
		t.Errorf("Connect called %d times, want 0", len(d.platform.ConnectCalls))
	}
	if d.registry.Len() != 0 {
		t.Errorf("registry holds %d sessions, want 0", d.registry.Len())
	}
}

func TestRunAlreadyRecording(t *testing.T) {
	t.Parallel()
	d := newTestDeps()
	held, _ := d.registry.TryAcquire("guild-1", "someone-else")

	err := d.controller(nil).Run(context.Background(), newFakeContext(), time.Second)

	if !errors.Is(err, voicetest.ErrAlreadyRecording) {
		t.Fatalf("Run() error = %v, want ErrAlreadyRecording", err)
	}
	if len(d.platform.ConnectCalls) != 0 {
		t.Errorf("Connect called %d times, want 0", len(d.platform.ConnectCalls))
	}
	// The running session must be untouched.
	got, ok := d.registry.Holder("guild-1")
	if !ok || got.ID != held.ID {
		t.Errorf("Holder() = %+v, %v, want the original session %+v", got, ok, held)
	}
}

func TestRunConnectFailed(t *testing.T) {
	t.Parallel()
	d := newTestDeps()
	d.platform.ConnectError = errors.New("gateway timeout")

	err := d.controller(nil).Run(context.Background(), newFakeContext(), time.Second)

	if !errors.Is(err, voicetest.ErrConnectionFailed) {
		t.Fatalf("Run() error = %v, want ErrConnectionFailed", err)
	}
	if d.registry.Len() != 0 {
		t.Errorf("registry holds %d sessions after failed connect, want 0", d.registry.Len())
	}
}

// TestRunConsentGate verifies the one hard rule of the session: if the start
// announcement cannot be produced and played, no capture ever starts.
func TestRunConsentGate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		setup func(d *testDeps)
	}{
		{
			name:  "synthesizer produces zero bytes",
			setup: func(d *testDeps) { d.synth.Result = nil },
		},
		{
			name:  "synthesizer fails",
			setup: func(d *testDeps) { d.synth.Err = errors.New("espeak-ng not found") },
		},
		{
			name:  "transcode fails",
			setup: func(d *testDeps) { d.trans.Err = errors.New("ffmpeg exited 1") },
		},
		{
			name:  "announcement playback rejected",
			setup: func(d *testDeps) { d.conn.PlayError = errors.New("not speaking-ready") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := newTestDeps()
			tt.setup(d)

			err := d.controller(nil).Run(context.Background(), newFakeContext(), time.Second)

			if !errors.Is(err, voicetest.ErrAnnouncementUnavailable) {
				t.Fatalf("Run() error = %v, want ErrAnnouncementUnavailable", err)
			}
			if got := len(d.conn.CaptureCalls); got != 0 {
				t.Errorf("Capture called %d times, want 0: recording must never start without an announcement", got)
			}
			if d.registry.Len() != 0 {
				t.Errorf("registry holds %d sessions after abort, want 0", d.registry.Len())
			}
		})
	}
}

func TestRunCaptureStartFailed(t *testing.T) {
	t.Parallel()
	d := newTestDeps()
	d.conn.CaptureError = errors.New("udp socket closed")

	err := d.controller(nil).Run(context.Background(), newFakeContext(), time.Second)

	if !errors.Is(err, voicetest.ErrCaptureStartFailed) {
		t.Fatalf("Run() error = %v, want ErrCaptureStartFailed", err)
	}
	if d.registry.Len() != 0 {
		t.Errorf("registry holds %d sessions, want 0", d.registry.Len())
	}
}

func TestRunHappyPath(t *testing.T) {
	t.Parallel()
	d := newTestDeps()
	tc := newFakeContext()

	err := d.controller(nil).Run(context.Background(), tc, time.Second)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// Start announcement, stop announcement, and the captured audio.
	if got := len(d.conn.PlayCalls); got != 3 {
		t.Fatalf("Play called %d times, want 3", got)
	}
	if !bytes.Equal(d.conn.PlayCalls[0].PCM, []byte("synth-wav")) {
		t.Errorf("announcement playback got %q, want the transcoded synth output", d.conn.PlayCalls[0].PCM)
	}
	if !bytes.Equal(d.conn.PlayCalls[2].PCM, []byte("captured-pcm")) {
		t.Errorf("playback got %q, want the captured audio verbatim", d.conn.PlayCalls[2].PCM)
	}
	if got := len(d.conn.CaptureCalls); got != 1 {
		t.Fatalf("Capture called %d times, want 1", got)
	}
	if got := d.conn.CaptureCalls[0].UserID; got != "user-1" {
		t.Errorf("captured user = %q, want %q", got, "user-1")
	}
	if d.capture.CallCountStop == 0 {
		t.Error("capture was never stopped")
	}
	if got := len(d.synth.Calls); got != 2 {
		t.Errorf("Synthesize called %d times, want 2", got)
	}
	if d.registry.Len() != 0 {
		t.Errorf("registry holds %d sessions after completion, want 0", d.registry.Len())
	}
}

func TestRunConnectionDropKeepsPartialAudio(t *testing.T) {
	t.Parallel()
	d := newTestDeps()
	d.conn.Dead = true // drops before the recording window elapses

	start := time.Now()
	err := d.controller(nil).Run(context.Background(), newFakeContext(), 2*time.Second)
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Run() error = %v, want nil: partial audio is accepted", err)
	}
	if elapsed > time.Second {
		t.Errorf("Run() took %v, want early exit well under the 2s window", elapsed)
	}
	// Partial audio still gets played back.
	if got := len(d.conn.PlayCalls); got != 3 {
		t.Errorf("Play called %d times, want 3", got)
	}
}

func TestRunNoAudioCaptured(t *testing.T) {
	t.Parallel()
	d := newTestDeps()
	d.conn.Dead = true // cut the recording window short
	d.capture.BytesResult = nil

	tc := newFakeContext()
	err := d.controller(nil).Run(context.Background(), tc, time.Second)

	if !errors.Is(err, voicetest.ErrNoAudioCaptured) {
		t.Fatalf("Run() error = %v, want ErrNoAudioCaptured", err)
	}
	// Only the start announcement was played; nothing to play back.
	if got := len(d.conn.PlayCalls); got != 1 {
		t.Errorf("Play called %d times, want 1", got)
	}
	if d.registry.Len() != 0 {
		t.Errorf("registry holds %d sessions, want 0", d.registry.Len())
	}
}

func TestRunFlushTimeoutNonFatal(t *testing.T) {
	t.Parallel()
	d := newTestDeps()
	d.conn.Dead = true
	d.capture.HoldFlush = true // flush never completes

	start := time.Now()
	err := d.controller(nil).Run(context.Background(), newFakeContext(), time.Second)
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Run() error = %v, want nil: a stuck flush is non-fatal", err)
	}
	if elapsed < 50*time.Millisecond {
		t.Errorf("Run() took %v, want at least the 50ms flush timeout", elapsed)
	}
	// Whatever audio was available still gets played back.
	if got := len(d.conn.PlayCalls); got != 3 {
		t.Errorf("Play called %d times, want 3", got)
	}
}

func TestRunStoppedByOwner(t *testing.T) {
	t.Parallel()
	d := newTestDeps()
	tc := newFakeContext()

	done := make(chan error, 1)
	go func() {
		done <- d.controller(nil).Run(context.Background(), tc, 2*time.Second)
	}()

	// Wait for the recording phase, then stop as the session owner.
	deadline := time.Now().Add(2 * time.Second)
	for d.conn.CaptureCallCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("recording never started")
		}
		time.Sleep(2 * time.Millisecond)
	}
	if !d.registry.StopByUser("guild-1", "user-1") {
		t.Fatal("StopByUser() = false, want true")
	}

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run() did not return after stop")
	}
	if d.registry.Len() != 0 {
		t.Errorf("registry holds %d sessions after stop, want 0", d.registry.Len())
	}
}

func TestClampDuration(t *testing.T) {
	t.Parallel()

	const (
		def = 5 * time.Second
		max = 10 * time.Second
	)
	tests := []struct {
		name      string
		requested time.Duration
		want      time.Duration
	}{
		{"zero falls back to default", 0, def},
		{"negative falls back to default", -3 * time.Second, def},
		{"in range unchanged", 7 * time.Second, 7 * time.Second},
		{"above max capped", time.Minute, max},
		{"below one second floored", 200 * time.Millisecond, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := voicetest.ClampDuration(tt.requested, def, max); got != tt.want {
				t.Errorf("ClampDuration(%v) = %v, want %v", tt.requested, got, tt.want)
			}
		})
	}
}
