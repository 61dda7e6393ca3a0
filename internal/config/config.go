// Package config defines the soundcheck configuration schema, its JSON
// loader, and validation.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Defaults for optional settings, in seconds where applicable.
const (
	DefaultTestSeconds  = 5
	DefaultMaxSeconds   = 10
	DefaultDelaySeconds = 1
	DefaultLogLevel     = "info"
)

// ErrMissingToken is reported by [Config.Validate] when no bot token is
// configured. Callers treat it as a distinct startup failure class.
var ErrMissingToken = errors.New("config: token is required")

// Config is the application configuration, loaded from a JSON file.
//
// Durations are plain seconds in the file; use the accessor methods to get
// [time.Duration] values with defaults applied. Pointer fields distinguish
// "absent" from an explicit zero or false.
type Config struct {
	// Token is the Discord bot token. Required.
	Token string `json:"token"`

	// DefaultDuration is the test length in seconds when the user requests
	// none. Default 5.
	DefaultDuration int `json:"default_duration,omitempty"`

	// MaxDuration caps any user-requested test length, in seconds.
	// Default 10.
	MaxDuration int `json:"max_duration,omitempty"`

	// PlaybackDelay is the pause in seconds between recording stop and
	// playback start. Default 1; an explicit 0 disables the pause.
	PlaybackDelay *int `json:"playback_delay,omitempty"`

	// RateLimits is accepted for forward compatibility but currently unused.
	RateLimits json.RawMessage `json:"rate_limits,omitempty"`

	// AutoLeaveWhenAlone makes the bot leave a voice channel once it is the
	// only one left in it. Default true.
	AutoLeaveWhenAlone *bool `json:"auto_leave_when_alone,omitempty"`

	// LogLevel is one of "debug", "info", "warn", "error". Default "info".
	LogLevel string `json:"log_level,omitempty"`

	// ListenAddr, when set, enables the HTTP listener serving /healthz,
	// /readyz and /metrics, e.g. ":8080".
	ListenAddr string `json:"listen_addr,omitempty"`

	// TTSCommand overrides the speech synthesizer argv. The announcement
	// text is appended as the final argument and encoded audio is read from
	// the subprocess's stdout.
	TTSCommand []string `json:"tts_command,omitempty"`

	// TranscoderCommand overrides the media transcoder argv. Encoded audio
	// is written to stdin and PCM read from stdout.
	TranscoderCommand []string `json:"transcoder_command,omitempty"`

	// AnnounceStart and AnnounceStop override the announcement templates.
	// "{user}" and "{seconds}" are substituted.
	AnnounceStart string `json:"announce_start,omitempty"`
	AnnounceStop  string `json:"announce_stop,omitempty"`
}

// TestDuration returns the default test duration with the fallback applied.
func (c *Config) TestDuration() time.Duration {
	if c.DefaultDuration <= 0 {
		return DefaultTestSeconds * time.Second
	}
	return time.Duration(c.DefaultDuration) * time.Second
}

// MaxTestDuration returns the test duration cap with the fallback applied.
func (c *Config) MaxTestDuration() time.Duration {
	if c.MaxDuration <= 0 {
		return DefaultMaxSeconds * time.Second
	}
	return time.Duration(c.MaxDuration) * time.Second
}

// PlaybackPause returns the recording-to-playback pause. Absent means the
// default; an explicit 0 means no pause.
func (c *Config) PlaybackPause() time.Duration {
	if c.PlaybackDelay == nil {
		return DefaultDelaySeconds * time.Second
	}
	return time.Duration(*c.PlaybackDelay) * time.Second
}

// AutoLeave reports whether the bot should leave voice channels it is alone
// in. Defaults to true when unset.
func (c *Config) AutoLeave() bool {
	return c.AutoLeaveWhenAlone == nil || *c.AutoLeaveWhenAlone
}

// Level parses LogLevel into a [slog.Level]. An empty LogLevel yields the
// default level.
func (c *Config) Level() (slog.Level, error) {
	s := c.LogLevel
	if s == "" {
		s = DefaultLogLevel
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("config: invalid log_level %q: %w", c.LogLevel, err)
	}
	return l, nil
}

// Validate checks the configuration for consistency. All problems are
// reported at once via [errors.Join].
func (c *Config) Validate() error {
	var errs []error

	if c.Token == "" {
		errs = append(errs, ErrMissingToken)
	}
	if c.DefaultDuration < 0 {
		errs = append(errs, fmt.Errorf("config: default_duration must not be negative, got %d", c.DefaultDuration))
	}
	if c.MaxDuration < 0 {
		errs = append(errs, fmt.Errorf("config: max_duration must not be negative, got %d", c.MaxDuration))
	}
	if c.TestDuration() > c.MaxTestDuration() {
		errs = append(errs, fmt.Errorf("config: default_duration %v exceeds max_duration %v",
			c.TestDuration(), c.MaxTestDuration()))
	}
	if c.PlaybackDelay != nil && *c.PlaybackDelay < 0 {
		errs = append(errs, fmt.Errorf("config: playback_delay must not be negative, got %d", *c.PlaybackDelay))
	}
	if c.TTSCommand != nil && len(c.TTSCommand) == 0 {
		errs = append(errs, errors.New("config: tts_command must name an executable"))
	}
	if c.TranscoderCommand != nil && len(c.TranscoderCommand) == 0 {
		errs = append(errs, errors.New("config: transcoder_command must name an executable"))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
