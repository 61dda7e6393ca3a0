package discord

import (
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/soundcheck/internal/voicetest"
)

// Compile-time interface assertion.
var _ voicetest.Context = (*interactionContext)(nil)

// interactionContext adapts a Discord interaction to [voicetest.Context].
// The same adapter serves slash commands and the control buttons, since both
// arrive as interactions.
//
// The first Respond uses the interaction's initial response slot (or a
// follow-up when the slot was already used by a deferral); subsequent
// Responds always use follow-ups.
type interactionContext struct {
	s *discordgo.Session
	i *discordgo.InteractionCreate

	mu        sync.Mutex
	responded bool
}

// newInteractionContext wraps an interaction. Set responded when the initial
// response slot has already been used, e.g. by [DeferReply].
func newInteractionContext(s *discordgo.Session, i *discordgo.InteractionCreate, responded bool) *interactionContext {
	return &interactionContext{s: s, i: i, responded: responded}
}

// GuildID implements [voicetest.Context].
func (c *interactionContext) GuildID() string {
	return c.i.GuildID
}

// UserID implements [voicetest.Context].
func (c *interactionContext) UserID() string {
	return interactionUserID(c.i)
}

// UserDisplayName implements [voicetest.Context]. Prefers the guild nick,
// then the global display name, then the username.
func (c *interactionContext) UserDisplayName() string {
	if c.i.Member != nil && c.i.Member.Nick != "" {
		return c.i.Member.Nick
	}
	u := interactionUser(c.i)
	if u == nil {
		return "unknown user"
	}
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

// UserVoiceChannel implements [voicetest.Context]. Returns "" when the user
// is not in a voice channel in this guild.
func (c *interactionContext) UserVoiceChannel() string {
	vs, err := c.s.State.VoiceState(c.i.GuildID, c.UserID())
	if err != nil || vs == nil {
		return ""
	}
	return vs.ChannelID
}

// Respond implements [voicetest.Context].
func (c *interactionContext) Respond(msg string) {
	c.mu.Lock()
	first := !c.responded
	c.responded = true
	c.mu.Unlock()

	if first {
		RespondEphemeral(c.s, c.i, msg)
		return
	}
	FollowUp(c.s, c.i, msg)
}

// SendToChannel implements [voicetest.Context]. Posts to the channel the
// interaction came from; delivery is best-effort.
func (c *interactionContext) SendToChannel(msg string) {
	if c.i.ChannelID == "" {
		return
	}
	if _, err := c.s.ChannelMessageSend(c.i.ChannelID, msg); err != nil {
		slog.Warn("discord: send status message", "channel_id", c.i.ChannelID, "err", err)
	}
}

// interactionUser returns the invoking user of an interaction, regardless of
// whether it arrived from a guild (Member set) or a DM (User set).
func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

// interactionUserID returns the invoking user's ID, or "".
func interactionUserID(i *discordgo.InteractionCreate) string {
	if u := interactionUser(i); u != nil {
		return u.ID
	}
	return ""
}
