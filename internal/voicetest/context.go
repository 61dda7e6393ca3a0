package voicetest

// Context is the surface a session needs from the chat platform: who asked,
// where they are, and two message sinks. The bot layer provides adapters for
// the platform's interaction shapes (slash commands and message-component
// buttons); tests provide a fake.
//
// Respond addresses the invoking user privately; SendToChannel posts
// advisory status messages to the channel the test was started from. Both
// are best-effort — message delivery failures never affect session
// correctness.
type Context interface {
	// GuildID returns the guild the request came from.
	GuildID() string

	// UserID returns the requesting user.
	UserID() string

	// UserDisplayName returns the requesting user's display name, for use
	// in announcements and status messages.
	UserDisplayName() string

	// UserVoiceChannel returns the voice channel the requesting user is
	// currently in, or "" when they are not in one.
	UserVoiceChannel() string

	// Respond sends a private reply to the invoking user.
	Respond(msg string)

	// SendToChannel posts a status message to the originating text channel.
	SendToChannel(msg string)
}
