package config_test

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MrWong99/soundcheck/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func TestLoadMinimal(t *testing.T) {
	t.Parallel()
	cfg, err := config.Load(writeConfig(t, `{"token": "abc"}`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got := cfg.TestDuration(); got != 5*time.Second {
		t.Errorf("TestDuration() = %v, want 5s", got)
	}
	if got := cfg.MaxTestDuration(); got != 10*time.Second {
		t.Errorf("MaxTestDuration() = %v, want 10s", got)
	}
	if got := cfg.PlaybackPause(); got != time.Second {
		t.Errorf("PlaybackPause() = %v, want 1s", got)
	}
	if !cfg.AutoLeave() {
		t.Error("AutoLeave() = false, want true by default")
	}
	lvl, err := cfg.Level()
	if err != nil {
		t.Fatalf("Level() error = %v", err)
	}
	if lvl != slog.LevelInfo {
		t.Errorf("Level() = %v, want info", lvl)
	}
}

func TestLoadFull(t *testing.T) {
	t.Parallel()
	cfg, err := config.Load(writeConfig(t, `{
		"token": "abc",
		"default_duration": 3,
		"max_duration": 8,
		"playback_delay": 0,
		"rate_limits": {"connect": "2s"},
		"auto_leave_when_alone": false,
		"log_level": "debug",
		"listen_addr": ":8080",
		"tts_command": ["espeak-ng", "--stdout"],
		"transcoder_command": ["ffmpeg", "-i", "pipe:0"],
		"announce_start": "recording {user} for {seconds}s",
		"announce_stop": "done"
	}`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got := cfg.TestDuration(); got != 3*time.Second {
		t.Errorf("TestDuration() = %v, want 3s", got)
	}
	if got := cfg.MaxTestDuration(); got != 8*time.Second {
		t.Errorf("MaxTestDuration() = %v, want 8s", got)
	}
	// An explicit 0 disables the pause; it must not fall back to the default.
	if got := cfg.PlaybackPause(); got != 0 {
		t.Errorf("PlaybackPause() = %v, want 0", got)
	}
	if cfg.AutoLeave() {
		t.Error("AutoLeave() = true, want false")
	}
	if lvl, _ := cfg.Level(); lvl != slog.LevelDebug {
		t.Errorf("Level() = %v, want debug", lvl)
	}
	if len(cfg.TTSCommand) != 2 || cfg.TTSCommand[0] != "espeak-ng" {
		t.Errorf("TTSCommand = %v", cfg.TTSCommand)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.json"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load() error = %v, want os.ErrNotExist", err)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Parallel()
	_, err := config.Load(writeConfig(t, `{"token": "abc", "defualt_duration": 5}`))
	if err == nil {
		t.Error("Load() with unknown key = nil error, want rejection")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	neg := -1
	tests := []struct {
		name    string
		cfg     config.Config
		wantErr bool
	}{
		{"valid minimal", config.Config{Token: "abc"}, false},
		{"missing token", config.Config{}, true},
		{"negative default_duration", config.Config{Token: "abc", DefaultDuration: -5}, true},
		{"negative max_duration", config.Config{Token: "abc", MaxDuration: -1}, true},
		{"default exceeds max", config.Config{Token: "abc", DefaultDuration: 20, MaxDuration: 10}, true},
		{"negative playback_delay", config.Config{Token: "abc", PlaybackDelay: &neg}, true},
		{"empty tts_command", config.Config{Token: "abc", TTSCommand: []string{}}, true},
		{"bad log_level", config.Config{Token: "abc", LogLevel: "loud"}, true},
		{"good log_level", config.Config{Token: "abc", LogLevel: "warn"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateReportsAllProblems(t *testing.T) {
	t.Parallel()
	cfg := config.Config{DefaultDuration: -1, LogLevel: "loud"}

	err := cfg.Validate()
	if !errors.Is(err, config.ErrMissingToken) {
		t.Errorf("Validate() error = %v, want it to include ErrMissingToken", err)
	}
	// Joined error keeps the other findings too.
	if err == nil || len(err.Error()) < len(config.ErrMissingToken.Error())+2 {
		t.Errorf("Validate() error = %v, want multiple joined problems", err)
	}
}
