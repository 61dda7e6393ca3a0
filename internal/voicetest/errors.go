package voicetest

import "errors"

// Session failure reasons. Each maps to a user-visible status message posted
// by the [Controller]; callers can test against them with [errors.Is].
var (
	// ErrUserNotInVoiceChannel means the requesting user is not in a voice
	// channel. Precondition failure; no state is mutated.
	ErrUserNotInVoiceChannel = errors.New("voicetest: user is not in a voice channel")

	// ErrAlreadyRecording means another session is active in the guild.
	// The running session's state is untouched.
	ErrAlreadyRecording = errors.New("voicetest: a session is already active in this guild")

	// ErrConnectionFailed means the voice channel could not be joined.
	// No recording was attempted.
	ErrConnectionFailed = errors.New("voicetest: voice channel join failed")

	// ErrAnnouncementUnavailable means speech synthesis produced no audio or
	// the announcement could not be played. Recording is withheld: an
	// audible notice is a hard precondition for capture.
	ErrAnnouncementUnavailable = errors.New("voicetest: announcement unavailable, recording withheld")

	// ErrCaptureStartFailed means the transport refused to begin capture.
	ErrCaptureStartFailed = errors.New("voicetest: capture start failed")

	// ErrNoAudioCaptured means capture ran but yielded no audio for the
	// requesting user. Reported without playback.
	ErrNoAudioCaptured = errors.New("voicetest: no audio captured for user")
)
