// Command soundcheck is a Discord bot that runs short record-and-playback
// voice tests: it joins the caller's voice channel, announces the recording,
// records the caller for a bounded duration, plays the audio back, and
// discards it.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/soundcheck/internal/config"
	discordbot "github.com/MrWong99/soundcheck/internal/discord"
	"github.com/MrWong99/soundcheck/internal/health"
	"github.com/MrWong99/soundcheck/internal/observe"
	"github.com/MrWong99/soundcheck/internal/voicetest"
	"github.com/MrWong99/soundcheck/pkg/audio/ffmpeg"
	"github.com/MrWong99/soundcheck/pkg/synth/espeak"
)

const version = "0.1.0"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.json", "path to the JSON configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "soundcheck: %v\n", err)
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, config.ErrMissingToken) {
			return 2
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	level, _ := cfg.Level() // validated during Load
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("soundcheck starting",
		"config", *configPath,
		"listen_addr", cfg.ListenAddr,
		"log_level", level.String(),
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		slog.Error("failed to initialise metrics", "err", err)
		return 1
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownMetrics(flushCtx); err != nil {
			slog.Warn("metrics shutdown error", "err", err)
		}
	}()

	// ── Audio toolchain ───────────────────────────────────────────────────────
	tts := espeak.New(cfg.TTSCommand)
	transcoder := ffmpeg.New(cfg.TranscoderCommand)

	// Advisory only: a missing synthesizer degrades at session time (tests
	// abort before recording), it does not prevent startup.
	probeCtx, probeCancel := context.WithTimeout(ctx, 10*time.Second)
	if err := tts.Probe(probeCtx); err != nil {
		slog.Warn("speech synthesizer probe failed, voice tests will abort before recording", "err", err)
	}
	probeCancel()

	registry := voicetest.NewRegistry()
	limiter := voicetest.NewConnectLimiter(voicetest.DefaultConnectFloor)

	// ── Discord bot ───────────────────────────────────────────────────────────
	bot, err := discordbot.New(discordbot.Config{Token: cfg.Token})
	if err != nil {
		slog.Error("failed to connect to Discord", "err", err)
		return 1
	}

	controller := voicetest.NewController(voicetest.ControllerConfig{
		Platform:        bot.Platform(),
		Synth:           tts,
		Transcoder:      transcoder,
		Registry:        registry,
		Limiter:         limiter,
		DefaultDuration: cfg.TestDuration(),
		MaxDuration:     cfg.MaxTestDuration(),
		PlaybackDelay:   cfg.PlaybackPause(),
		AnnounceStart:   cfg.AnnounceStart,
		AnnounceStop:    cfg.AnnounceStop,
	})

	discordbot.NewVoiceCommands(bot, controller, registry, limiter, cfg.TestDuration(), cfg.MaxTestDuration())
	discordbot.NewAutoLeaveWatcher(cfg.AutoLeave(), bot.Platform(), registry).Attach(bot.Session())

	// ── HTTP listener: health + metrics (optional) ────────────────────────────
	var httpSrv *http.Server
	if cfg.ListenAddr != "" {
		mux := http.NewServeMux()
		health.New(
			health.SynthChecker(tts),
			health.GatewayChecker(func() bool { return bot.Session().DataReady }),
		).Register(mux)
		mux.Handle("GET /metrics", promhttp.Handler())

		httpSrv = &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("http listener failed", "addr", cfg.ListenAddr, "err", err)
			}
		}()
		slog.Info("http listener started", "addr", cfg.ListenAddr)
	}

	slog.Info("soundcheck ready — press Ctrl+C to shut down")

	exitCode := 0
	if err := bot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("discord bot error", "err", err)
		exitCode = 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	slog.Info("shutting down")

	if httpSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("http listener shutdown error", "err", err)
		}
		cancel()
	}

	// Best-effort sweep: stop captures and disconnect every guild
	// independently, then clear the session registry outright.
	if err := bot.Platform().Sweep(); err != nil {
		slog.Warn("voice cleanup sweep finished with errors", "err", err)
	}
	registry.Clear()

	if err := bot.Close(); err != nil {
		slog.Warn("discord bot close error", "err", err)
	}

	slog.Info("goodbye")
	return exitCode
}
