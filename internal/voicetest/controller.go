// Package voicetest implements the voice-test session: a bounded
// record-then-playback cycle for one user in one guild, gated by an audible
// announcement and tracked in a per-guild registry.
//
// The package owns the session state machine (Controller), the per-guild
// mutual-exclusion tracker (Registry), and the global connect rate limiter
// (ConnectLimiter). All audio transport is behind the [audio.Platform]
// abstraction and all speech synthesis behind [synth.Provider], so the whole
// cycle can be tested without a live platform connection.
package voicetest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/MrWong99/soundcheck/internal/observe"
	"github.com/MrWong99/soundcheck/pkg/audio"
	"github.com/MrWong99/soundcheck/pkg/synth"
)

// Defaults applied by [NewController] when the corresponding config field is
// zero.
const (
	DefaultDuration      = 5 * time.Second
	DefaultMaxDuration   = 10 * time.Second
	DefaultPlaybackDelay = 1 * time.Second

	// defaultPollInterval is how often the controller re-checks connection
	// liveness and playback progress during waits.
	defaultPollInterval = 100 * time.Millisecond

	// defaultFlushTimeout bounds the wait for the transport to flush
	// buffered capture audio after recording stops. A timeout here is
	// non-fatal; the session proceeds with whatever audio is available.
	defaultFlushTimeout = 2 * time.Second
)

// Default announcement templates. "{user}" and "{seconds}" are substituted.
const (
	DefaultAnnounceStart = "Recording {user} for {seconds} seconds. The audio will be played back and then discarded."
	DefaultAnnounceStop  = "Recording complete. Playing it back now."
)

// ControllerConfig holds all dependencies and tuning for a [Controller].
type ControllerConfig struct {
	Platform   audio.Platform
	Synth      synth.Provider
	Transcoder audio.Transcoder
	Registry   *Registry
	Limiter    *ConnectLimiter

	// Metrics is optional; [observe.Default] is used when nil.
	Metrics *observe.Metrics

	// DefaultDuration is used when the requested duration is zero or
	// negative. MaxDuration caps any requested duration.
	DefaultDuration time.Duration
	MaxDuration     time.Duration

	// PlaybackDelay is the pause between recording stop and playback start.
	PlaybackDelay time.Duration

	// AnnounceStart and AnnounceStop are the announcement templates;
	// "{user}" and "{seconds}" are substituted.
	AnnounceStart string
	AnnounceStop  string

	// PollInterval and FlushTimeout override the liveness poll interval and
	// the capture-flush wait bound. Zero selects the defaults. Tests use
	// small values here.
	PollInterval time.Duration
	FlushTimeout time.Duration
}

// Controller drives one voice-test cycle to completion:
//
//	connect → announce → record → announce → play back → cleanup
//
// with an abort path reachable from every step. Its one hard correctness
// rule is the consent gate: if the start announcement cannot be synthesized
// and played, recording never begins. The registry entry is released on
// every exit path.
//
// Controller is safe for concurrent use; sessions in different guilds run
// independently, sessions in the same guild are serialized by the registry.
type Controller struct {
	cfg ControllerConfig
}

// NewController creates a Controller, filling zero config fields with the
// package defaults.
func NewController(cfg ControllerConfig) *Controller {
	if cfg.Metrics == nil {
		cfg.Metrics = observe.Default()
	}
	if cfg.DefaultDuration <= 0 {
		cfg.DefaultDuration = DefaultDuration
	}
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = DefaultMaxDuration
	}
	if cfg.PlaybackDelay < 0 {
		cfg.PlaybackDelay = DefaultPlaybackDelay
	}
	if cfg.AnnounceStart == "" {
		cfg.AnnounceStart = DefaultAnnounceStart
	}
	if cfg.AnnounceStop == "" {
		cfg.AnnounceStop = DefaultAnnounceStop
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.FlushTimeout <= 0 {
		cfg.FlushTimeout = defaultFlushTimeout
	}
	return &Controller{cfg: cfg}
}

// ClampDuration resolves a requested test duration: zero or negative falls
// back to def, the result is capped at max and floored at one second.
func ClampDuration(requested, def, max time.Duration) time.Duration {
	if requested <= 0 {
		requested = def
	}
	if requested > max {
		requested = max
	}
	if requested < time.Second {
		requested = time.Second
	}
	return requested
}

// Run executes one voice test for the user behind tc. It blocks until the
// session reaches a terminal state and returns nil on a completed cycle or
// one of the package's sentinel errors on abort. Status messages are posted
// through tc at each major transition; they are advisory only.
func (c *Controller) Run(ctx context.Context, tc Context, requested time.Duration) error {
	err := c.run(ctx, tc, requested)
	c.cfg.Metrics.Sessions.Add(context.WithoutCancel(ctx), 1,
		metric.WithAttributes(attribute.String("outcome", outcome(err))))
	return err
}

func (c *Controller) run(ctx context.Context, tc Context, requested time.Duration) error {
	guildID := tc.GuildID()
	userID := tc.UserID()

	channelID := tc.UserVoiceChannel()
	if channelID == "" {
		tc.Respond("You must be in a voice channel to run a voice test.")
		return ErrUserNotInVoiceChannel
	}

	sess, ok := c.cfg.Registry.TryAcquire(guildID, userID)
	if !ok {
		tc.Respond("A voice test is already in progress in this guild. Try again later.")
		return ErrAlreadyRecording
	}
	// The registry entry must be gone on every exit path.
	defer c.cfg.Registry.Release(guildID)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.cfg.Registry.Bind(guildID, cancel)

	c.cfg.Metrics.ActiveSessions.Add(ctx, 1)
	defer c.cfg.Metrics.ActiveSessions.Add(context.WithoutCancel(ctx), -1)

	dur := ClampDuration(requested, c.cfg.DefaultDuration, c.cfg.MaxDuration)
	seconds := int(dur / time.Second)
	name := tc.UserDisplayName()

	log := slog.With("session_id", sess.ID, "guild_id", guildID, "user_id", userID, "duration", dur)
	log.Info("voice test starting")

	// CONNECTING — join attempts pass through the global rate limiter.
	if err := c.cfg.Limiter.Wait(ctx); err != nil {
		return err
	}
	conn, err := c.cfg.Platform.Connect(ctx, guildID, channelID)
	if err != nil {
		c.cfg.Metrics.ConnectAttempts.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "failed")))
		tc.Respond("Could not join your voice channel.")
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	c.cfg.Metrics.ConnectAttempts.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "ok")))

	// ANNOUNCING_START / CONSENT_CHECK — an audible notice of recording is a
	// hard precondition for capture. Zero synthesized bytes or a failed
	// announcement playback aborts before any capture starts.
	tc.Respond(fmt.Sprintf("Starting a %d second voice test. You will be recorded and then played back.", seconds))
	if err := c.announce(ctx, conn, renderAnnouncement(c.cfg.AnnounceStart, name, seconds)); err != nil {
		tc.SendToChannel("Voice test aborted: the recording announcement could not be played, so no recording was made.")
		return fmt.Errorf("%w: %v", ErrAnnouncementUnavailable, err)
	}

	// RECORDING
	rec, err := conn.Capture(userID)
	if err != nil {
		tc.SendToChannel("Voice test aborted: recording could not be started.")
		return fmt.Errorf("%w: %v", ErrCaptureStartFailed, err)
	}
	tc.SendToChannel(fmt.Sprintf("%s is being recorded for %d seconds.", name, seconds))

	recStart := time.Now()
	c.waitRecording(ctx, conn, dur, log)
	rec.Stop()
	select {
	case <-rec.Done():
	case <-time.After(c.cfg.FlushTimeout):
		log.Warn("capture flush timed out, proceeding with available audio")
	}
	c.cfg.Metrics.CaptureDuration.Record(context.WithoutCancel(ctx), time.Since(recStart).Seconds())

	if ctx.Err() != nil {
		tc.SendToChannel("Voice test stopped. Captured audio discarded.")
		return ctx.Err()
	}

	data := rec.Bytes()
	if len(data) == 0 {
		tc.SendToChannel(fmt.Sprintf("No audio was captured for %s — nothing to play back.", name))
		return ErrNoAudioCaptured
	}
	tc.SendToChannel("Recording complete.")

	// ANNOUNCING_STOP — best-effort: consent was already honoured, so a
	// failed stop announcement does not abort the session.
	if err := c.announce(ctx, conn, renderAnnouncement(c.cfg.AnnounceStop, name, seconds)); err != nil {
		log.Warn("stop announcement failed", "err", err)
	}

	select {
	case <-ctx.Done():
		tc.SendToChannel("Voice test stopped. Captured audio discarded.")
		return ctx.Err()
	case <-time.After(c.cfg.PlaybackDelay):
	}

	// PLAYING_BACK — errors are logged and reported but never abort cleanup.
	playStart := time.Now()
	if err := c.play(ctx, conn, data); err != nil {
		log.Warn("playback error", "err", err)
		tc.SendToChannel("Playback failed — captured audio discarded.")
	} else {
		tc.SendToChannel("Playback complete. Captured audio discarded.")
	}
	c.cfg.Metrics.PlaybackDuration.Record(context.WithoutCancel(ctx), time.Since(playStart).Seconds())

	log.Info("voice test complete")
	return nil
}

// waitRecording sleeps out the recording window in poll-interval steps,
// ending early when the connection drops (partial audio is accepted) or ctx
// is cancelled (stop command or shutdown).
func (c *Controller) waitRecording(ctx context.Context, conn audio.Connection, dur time.Duration, log *slog.Logger) {
	deadline := time.Now().Add(dur)
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !conn.Alive() {
				log.Warn("connection dropped mid-recording, keeping partial audio")
				return
			}
			if !time.Now().Before(deadline) {
				return
			}
		}
	}
}

// announce synthesizes text, transcodes it to transport PCM, and plays it to
// completion. Any failure — including a synthesizer that runs but produces
// zero bytes — is returned as an error.
func (c *Controller) announce(ctx context.Context, conn audio.Connection, text string) error {
	start := time.Now()
	data, err := c.cfg.Synth.Synthesize(ctx, text)
	c.cfg.Metrics.SynthDuration.Record(context.WithoutCancel(ctx), time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}
	if len(data) == 0 {
		return errors.New("synthesizer produced no audio")
	}

	pcm, err := c.cfg.Transcoder.ToPCM(ctx, data)
	if err != nil {
		return fmt.Errorf("transcode: %w", err)
	}
	return c.play(ctx, conn, pcm)
}

// play starts playback of pcm and polls until it finishes, the connection
// dies, or ctx is cancelled.
func (c *Controller) play(ctx context.Context, conn audio.Connection, pcm []byte) error {
	pb, err := conn.Play(pcm)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-pb.Done():
			return pb.Err()
		case <-ticker.C:
			if !conn.Alive() {
				return errors.New("connection lost during playback")
			}
		}
	}
}

// renderAnnouncement substitutes "{user}" and "{seconds}" in an
// announcement template.
func renderAnnouncement(tmpl, user string, seconds int) string {
	s := strings.ReplaceAll(tmpl, "{user}", user)
	return strings.ReplaceAll(s, "{seconds}", strconv.Itoa(seconds))
}

// outcome maps a session result to the metrics outcome attribute.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUserNotInVoiceChannel):
		return "not_in_voice"
	case errors.Is(err, ErrAlreadyRecording):
		return "already_recording"
	case errors.Is(err, ErrConnectionFailed):
		return "connect_failed"
	case errors.Is(err, ErrAnnouncementUnavailable):
		return "announcement_unavailable"
	case errors.Is(err, ErrCaptureStartFailed):
		return "capture_start_failed"
	case errors.Is(err, ErrNoAudioCaptured):
		return "no_audio"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "stopped"
	default:
		return "error"
	}
}
