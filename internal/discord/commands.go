package discord

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/soundcheck/internal/voicetest"
)

// Custom IDs of the persistent control buttons posted by
// /postvoicetestcommands.
const (
	componentJoin  = "soundcheck_join"
	componentLeave = "soundcheck_leave"
	componentTest  = "soundcheck_test"
)

// connectTimeout bounds a user-initiated join, including the rate limiter
// wait.
const connectTimeout = 30 * time.Second

// VoiceCommands holds the dependencies for the soundcheck command surface:
// /join, /leave, /voicetest, /postvoicetestcommands and /stop, plus the
// matching control buttons.
type VoiceCommands struct {
	bot        *Bot
	controller *voicetest.Controller
	registry   *voicetest.Registry
	limiter    *voicetest.ConnectLimiter

	defaultDuration time.Duration
	maxDuration     time.Duration
}

// NewVoiceCommands creates a VoiceCommands and registers its handlers with
// the bot's router.
func NewVoiceCommands(bot *Bot, controller *voicetest.Controller, registry *voicetest.Registry, limiter *voicetest.ConnectLimiter, defaultDuration, maxDuration time.Duration) *VoiceCommands {
	vc := &VoiceCommands{
		bot:             bot,
		controller:      controller,
		registry:        registry,
		limiter:         limiter,
		defaultDuration: defaultDuration,
		maxDuration:     maxDuration,
	}
	vc.Register(bot.Router())
	return vc
}

// Register registers the command and component handlers with the router.
func (vc *VoiceCommands) Register(router *CommandRouter) {
	defSeconds := int(vc.defaultDuration / time.Second)
	maxSeconds := int(vc.maxDuration / time.Second)
	minDuration := float64(1)

	router.RegisterCommand(&discordgo.ApplicationCommand{
		Name:        "join",
		Description: "Join your current voice channel",
	}, vc.handleJoin)

	router.RegisterCommand(&discordgo.ApplicationCommand{
		Name:        "leave",
		Description: "Leave the voice channel",
	}, vc.handleLeave)

	router.RegisterCommand(&discordgo.ApplicationCommand{
		Name:        "voicetest",
		Description: "Record yourself briefly and hear it played back",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "duration",
				Description: fmt.Sprintf("Recording length in seconds (default %d, max %d)", defSeconds, maxSeconds),
				MinValue:    &minDuration,
				MaxValue:    float64(maxSeconds),
			},
		},
	}, vc.handleVoicetest)

	router.RegisterCommand(&discordgo.ApplicationCommand{
		Name:        "postvoicetestcommands",
		Description: "Post the persistent voice test control buttons in this channel",
	}, vc.handlePostControls)

	router.RegisterCommand(&discordgo.ApplicationCommand{
		Name:        "stop",
		Description: "Stop your running voice test",
	}, vc.handleStop)

	router.RegisterComponent(componentJoin, vc.handleJoin)
	router.RegisterComponent(componentLeave, vc.handleLeave)
	router.RegisterComponent(componentTest, vc.handleVoicetest)
}

// handleJoin handles /join and the Join button.
func (vc *VoiceCommands) handleJoin(s *discordgo.Session, i *discordgo.InteractionCreate) {
	tc := newInteractionContext(s, i, false)
	channelID := tc.UserVoiceChannel()
	if channelID == "" {
		RespondEphemeral(s, i, "You must be in a voice channel first.")
		return
	}

	// Joining may wait on the connect rate limiter, so defer the reply.
	DeferReply(s, i)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := vc.limiter.Wait(ctx); err != nil {
		FollowUp(s, i, "Join timed out, try again.")
		return
	}
	if _, err := vc.bot.Platform().Connect(ctx, i.GuildID, channelID); err != nil {
		slog.Warn("discord: join failed", "guild_id", i.GuildID, "channel_id", channelID, "err", err)
		FollowUp(s, i, "Could not join your voice channel.")
		return
	}
	FollowUp(s, i, "Joined your voice channel.")
}

// handleLeave handles /leave and the Leave button. Refuses to leave while a
// voice test holds the guild.
func (vc *VoiceCommands) handleLeave(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if holder, ok := vc.registry.Holder(i.GuildID); ok {
		RespondEphemeral(s, i, fmt.Sprintf("A voice test started by <@%s> is running. Stop it first.", holder.UserID))
		return
	}
	if err := vc.bot.Platform().Disconnect(i.GuildID); err != nil {
		slog.Warn("discord: leave failed", "guild_id", i.GuildID, "err", err)
		RespondEphemeral(s, i, "Could not leave the voice channel cleanly.")
		return
	}
	RespondEphemeral(s, i, "Left the voice channel.")
}

// handleVoicetest handles /voicetest and the Voice Test button. The session
// itself runs in the background; progress is reported through the
// interaction follow-ups and channel messages.
func (vc *VoiceCommands) handleVoicetest(s *discordgo.Session, i *discordgo.InteractionCreate) {
	requested := requestedDuration(i)

	DeferReply(s, i)
	tc := newInteractionContext(s, i, true)

	go func() {
		// Generous upper bound: the session itself clamps the recording
		// window, this only reaps a wedged transport.
		ctx, cancel := context.WithTimeout(context.Background(), vc.maxDuration+time.Minute)
		defer cancel()

		if err := vc.controller.Run(ctx, tc, requested); err != nil {
			slog.Info("voice test ended", "guild_id", i.GuildID, "err", err)
		}
	}()
}

// handlePostControls handles /postvoicetestcommands: posts a message with
// the persistent Join / Voice Test / Leave buttons to the current channel.
func (vc *VoiceCommands) handlePostControls(s *discordgo.Session, i *discordgo.InteractionCreate) {
	buttons := discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.Button{Label: "Join", Style: discordgo.PrimaryButton, CustomID: componentJoin},
			discordgo.Button{Label: "Voice Test", Style: discordgo.SuccessButton, CustomID: componentTest},
			discordgo.Button{Label: "Leave", Style: discordgo.DangerButton, CustomID: componentLeave},
		},
	}
	_, err := s.ChannelMessageSendComplex(i.ChannelID, &discordgo.MessageSend{
		Content:    "Voice test controls:",
		Components: []discordgo.MessageComponent{buttons},
	})
	if err != nil {
		slog.Warn("discord: post controls failed", "channel_id", i.ChannelID, "err", err)
		RespondError(s, i, err)
		return
	}
	RespondEphemeral(s, i, "Posted the voice test controls.")
}

// handleStop handles /stop. Only the user who started the running voice
// test may stop it.
func (vc *VoiceCommands) handleStop(s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID := interactionUserID(i)
	if vc.registry.StopByUser(i.GuildID, userID) {
		RespondEphemeral(s, i, "Stopping your voice test.")
		return
	}
	if _, ok := vc.registry.Holder(i.GuildID); ok {
		RespondEphemeral(s, i, "Only the user who started the voice test can stop it.")
		return
	}
	RespondEphemeral(s, i, "No voice test is running in this guild.")
}

// requestedDuration extracts the optional duration option in seconds.
// Button interactions carry no options and yield 0, which selects the
// configured default.
func requestedDuration(i *discordgo.InteractionCreate) time.Duration {
	if i.Type != discordgo.InteractionApplicationCommand {
		return 0
	}
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "duration" {
			return time.Duration(opt.IntValue()) * time.Second
		}
	}
	return 0
}
