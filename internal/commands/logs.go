package commands

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"potato-guard/internal/notifier"
)

// handleLogs points the guild's security notifications at a channel.
func (h *Handler) handleLogs(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if !h.isOwnerOrTrusted(s, i) {
		respondError(s, i, "Only the guild owner or trusted users can set the log channel.")
		return nil
	}

	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		return fmt.Errorf("missing channel option")
	}
	channel := data.Options[0].ChannelValue(s)
	if channel == nil {
		return fmt.Errorf("could not resolve channel")
	}
	if channel.Type != discordgo.ChannelTypeGuildText {
		respondError(s, i, "The log channel must be a text channel.")
		return nil
	}

	if err := h.store.SetLogChannel(i.GuildID, channel.ID); err != nil {
		return err
	}

	return respondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "Log Channel Set",
		Description: fmt.Sprintf("Security notifications will be sent to <#%s>.", channel.ID),
		Color:       notifier.ColorSuccess,
	}, false)
}
