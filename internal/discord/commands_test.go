package discord

import (
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
)

func TestRequestedDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		inter *discordgo.InteractionCreate
		want  time.Duration
	}{
		{
			name: "slash command with duration option",
			inter: &discordgo.InteractionCreate{
				Interaction: &discordgo.Interaction{
					Type: discordgo.InteractionApplicationCommand,
					Data: discordgo.ApplicationCommandInteractionData{
						Name: "voicetest",
						Options: []*discordgo.ApplicationCommandInteractionDataOption{
							{
								Name:  "duration",
								Type:  discordgo.ApplicationCommandOptionInteger,
								Value: float64(7),
							},
						},
					},
				},
			},
			want: 7 * time.Second,
		},
		{
			name: "slash command without options",
			inter: &discordgo.InteractionCreate{
				Interaction: &discordgo.Interaction{
					Type: discordgo.InteractionApplicationCommand,
					Data: discordgo.ApplicationCommandInteractionData{Name: "voicetest"},
				},
			},
			want: 0,
		},
		{
			name: "button interaction carries no options",
			inter: &discordgo.InteractionCreate{
				Interaction: &discordgo.Interaction{
					Type: discordgo.InteractionMessageComponent,
					Data: discordgo.MessageComponentInteractionData{CustomID: componentTest},
				},
			},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := requestedDuration(tt.inter); got != tt.want {
				t.Errorf("requestedDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}
