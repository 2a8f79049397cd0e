package commands

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"potato-guard/internal/database"
	"potato-guard/internal/notifier"
)

func onOff(v bool) string {
	if v {
		return "✅ enabled"
	}
	return "❌ disabled"
}

// handleStatus shows the guild's protection toggles and engine health.
func (h *Handler) handleStatus(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	p := h.store.Policy(i.GuildID)

	dbHealth := "❌ disconnected"
	if database.IsConnected() {
		dbHealth = "✅ connected"
	}

	logChannel := "not set"
	if p.LogChannelID != "" {
		logChannel = fmt.Sprintf("<#%s>", p.LogChannelID)
	}

	lockState := "unlocked"
	if p.Lockdown {
		lockState = "🔒 LOCKED DOWN"
	}

	embed := &discordgo.MessageEmbed{
		Title: "Protection Status",
		Color: notifier.ColorWarning,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name: "Protections",
				Value: fmt.Sprintf(
					"Mass Ban: %s\nMass Kick: %s\nMass Delete: %s\nMass Ping: %s\nWebhook Spam: %s\nDanger Perms: %s\nUnauthorized Bots: %s",
					onOff(p.Flags.AntiMassBan),
					onOff(p.Flags.AntiMassKick),
					onOff(p.Flags.AntiMassDelete),
					onOff(p.Flags.AntiMassPing),
					onOff(p.Flags.AntiWebhookSpam),
					onOff(p.Flags.AntiDangerPerms),
					onOff(p.Flags.AntiUnauthorizedBot),
				),
				Inline: false,
			},
			{
				Name: "Guild",
				Value: fmt.Sprintf("Log Channel: %s\nLockdown: %s\nAuthorized Bots: %d",
					logChannel, lockState, len(p.AuthorizedBots)),
				Inline: true,
			},
			{
				Name: "Engine",
				Value: fmt.Sprintf("Database: %s\nTracked Actors: %d\nUptime: %s",
					dbHealth, h.counters.Size(), formatDuration(time.Since(botStartTime))),
				Inline: true,
			},
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}

	return respondEmbed(s, i, embed, true)
}
