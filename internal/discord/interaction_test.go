package discord

import (
	"testing"

	"github.com/bwmarrin/discordgo"
)

func TestInteractionUserID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		inter *discordgo.InteractionCreate
		want  string
	}{
		{
			name: "guild interaction uses member user",
			inter: &discordgo.InteractionCreate{
				Interaction: &discordgo.Interaction{
					Member: &discordgo.Member{User: &discordgo.User{ID: "user-1"}},
				},
			},
			want: "user-1",
		},
		{
			name: "DM interaction uses user",
			inter: &discordgo.InteractionCreate{
				Interaction: &discordgo.Interaction{
					User: &discordgo.User{ID: "user-2"},
				},
			},
			want: "user-2",
		},
		{
			name:  "neither set",
			inter: &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{}},
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := interactionUserID(tt.inter); got != tt.want {
				t.Errorf("interactionUserID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInteractionContext_UserDisplayName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		inter *discordgo.InteractionCreate
		want  string
	}{
		{
			name: "guild nick wins",
			inter: &discordgo.InteractionCreate{
				Interaction: &discordgo.Interaction{
					Member: &discordgo.Member{
						Nick: "Nicky",
						User: &discordgo.User{Username: "base", GlobalName: "Global"},
					},
				},
			},
			want: "Nicky",
		},
		{
			name: "global name beats username",
			inter: &discordgo.InteractionCreate{
				Interaction: &discordgo.Interaction{
					Member: &discordgo.Member{
						User: &discordgo.User{Username: "base", GlobalName: "Global"},
					},
				},
			},
			want: "Global",
		},
		{
			name: "username fallback",
			inter: &discordgo.InteractionCreate{
				Interaction: &discordgo.Interaction{
					User: &discordgo.User{Username: "base"},
				},
			},
			want: "base",
		},
		{
			name:  "no user at all",
			inter: &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{}},
			want:  "unknown user",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := newInteractionContext(nil, tt.inter, false)
			if got := c.UserDisplayName(); got != tt.want {
				t.Errorf("UserDisplayName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInteractionContext_UserVoiceChannel(t *testing.T) {
	t.Parallel()

	state := discordgo.NewState()
	if err := state.GuildAdd(&discordgo.Guild{
		ID: "guild-1",
		VoiceStates: []*discordgo.VoiceState{
			{GuildID: "guild-1", UserID: "user-1", ChannelID: "voice-42"},
		},
	}); err != nil {
		t.Fatalf("GuildAdd() error = %v", err)
	}
	session := &discordgo.Session{State: state}

	inVoice := newInteractionContext(session, &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			GuildID: "guild-1",
			Member:  &discordgo.Member{User: &discordgo.User{ID: "user-1"}},
		},
	}, false)
	if got := inVoice.UserVoiceChannel(); got != "voice-42" {
		t.Errorf("UserVoiceChannel() = %q, want %q", got, "voice-42")
	}

	notInVoice := newInteractionContext(session, &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			GuildID: "guild-1",
			Member:  &discordgo.Member{User: &discordgo.User{ID: "user-2"}},
		},
	}, false)
	if got := notInVoice.UserVoiceChannel(); got != "" {
		t.Errorf("UserVoiceChannel() = %q, want empty", got)
	}
}
