package discord

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/soundcheck/internal/voicetest"
	discordaudio "github.com/MrWong99/soundcheck/pkg/audio/discord"
)

// AutoLeaveWatcher disconnects the bot from a voice channel once every other
// participant has left. It never disconnects while the registry holds an
// active voice test for the guild.
type AutoLeaveWatcher struct {
	enabled  bool
	platform *discordaudio.Platform
	registry *voicetest.Registry
}

// NewAutoLeaveWatcher creates a watcher. A disabled watcher ignores all
// voice state updates.
func NewAutoLeaveWatcher(enabled bool, platform *discordaudio.Platform, registry *voicetest.Registry) *AutoLeaveWatcher {
	return &AutoLeaveWatcher{enabled: enabled, platform: platform, registry: registry}
}

// Attach registers the watcher's voice state handler on the session.
func (w *AutoLeaveWatcher) Attach(session *discordgo.Session) {
	session.AddHandler(w.handleVoiceStateUpdate)
}

func (w *AutoLeaveWatcher) handleVoiceStateUpdate(s *discordgo.Session, e *discordgo.VoiceStateUpdate) {
	if !w.enabled || e.GuildID == "" {
		return
	}
	conn, ok := w.platform.Get(e.GuildID)
	if !ok {
		return
	}

	var botID string
	if s.State != nil && s.State.User != nil {
		botID = s.State.User.ID
	}
	guild, err := s.State.Guild(e.GuildID)
	if err != nil {
		return
	}

	others := occupants(guild, conn.ChannelID(), botID)
	_, sessionActive := w.registry.Holder(e.GuildID)
	if !shouldAutoLeave(w.enabled, others, sessionActive) {
		return
	}

	slog.Info("auto-leave: voice channel empty, disconnecting", "guild_id", e.GuildID)
	if err := w.platform.Disconnect(e.GuildID); err != nil {
		slog.Warn("auto-leave: disconnect failed", "guild_id", e.GuildID, "err", err)
	}
}

// occupants counts the voice states in channelID other than the bot itself.
func occupants(guild *discordgo.Guild, channelID, botID string) int {
	n := 0
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID == channelID && vs.UserID != botID {
			n++
		}
	}
	return n
}

// shouldAutoLeave is the leave decision: enabled, nobody else in the
// channel, and no voice test holding the guild.
func shouldAutoLeave(enabled bool, others int, sessionActive bool) bool {
	return enabled && others == 0 && !sessionActive
}
