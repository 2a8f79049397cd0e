package commands

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"potato-guard/internal/notifier"
)

const (
	lockdownConfirmPrefix = "lockdown_confirm_"
	lockdownCancelPrefix  = "lockdown_cancel_"
)

// handleLockdown asks for confirmation before locking. The buttons
// embed the invoker's ID so nobody else can press them.
func (h *Handler) handleLockdown(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if !h.isOwnerOrTrusted(s, i) {
		respondError(s, i, "Only the guild owner or trusted users can lock the server down.")
		return nil
	}
	if h.locks.IsLocked(i.GuildID) {
		respondError(s, i, "The server is already locked down.")
		return nil
	}

	invoker := i.Member.User.ID
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{
				{
					Title:       "Server Lockdown",
					Description: "This will remove send-messages from every text channel. Are you sure?",
					Color:       notifier.ColorWarning,
				},
			},
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.Button{
							Label:    "Lock it down",
							Style:    discordgo.DangerButton,
							CustomID: lockdownConfirmPrefix + invoker,
						},
						discordgo.Button{
							Label:    "Cancel",
							Style:    discordgo.SecondaryButton,
							CustomID: lockdownCancelPrefix + invoker,
						},
					},
				},
			},
		},
	})
}

// boundUser extracts the invoker ID a lockdown button was issued for.
func boundUser(customID, prefix string) string {
	return strings.TrimPrefix(customID, prefix)
}

func (h *Handler) handleLockdownConfirm(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	data := i.MessageComponentData()
	if i.Member.User.ID != boundUser(data.CustomID, lockdownConfirmPrefix) {
		respondError(s, i, "These buttons are not for you.")
		return nil
	}

	if err := h.locks.Lock(i.GuildID); err != nil {
		return h.updateLockdownPrompt(s, i, &discordgo.MessageEmbed{
			Title:       "Lockdown Failed",
			Description: err.Error(),
			Color:       notifier.ColorAlert,
		})
	}

	return h.updateLockdownPrompt(s, i, &discordgo.MessageEmbed{
		Title:       "Server Locked Down",
		Description: fmt.Sprintf("Lockdown engaged by %s. Use /unlockdown to lift it.", notifier.Mention(i.Member.User.ID)),
		Color:       notifier.ColorAlert,
	})
}

func (h *Handler) handleLockdownCancel(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	data := i.MessageComponentData()
	if i.Member.User.ID != boundUser(data.CustomID, lockdownCancelPrefix) {
		respondError(s, i, "These buttons are not for you.")
		return nil
	}

	return h.updateLockdownPrompt(s, i, &discordgo.MessageEmbed{
		Title:       "Lockdown Cancelled",
		Description: "No channels were touched.",
		Color:       notifier.ColorSuccess,
	})
}

// updateLockdownPrompt replaces the confirmation message and strips the
// buttons so they cannot be pressed twice.
func (h *Handler) updateLockdownPrompt(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{embed},
			Components: []discordgo.MessageComponent{},
		},
	})
}

// handleUnlockdown lifts the lockdown immediately, no confirmation.
func (h *Handler) handleUnlockdown(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if !h.isOwnerOrTrusted(s, i) {
		respondError(s, i, "Only the guild owner or trusted users can lift a lockdown.")
		return nil
	}

	if err := h.locks.Unlock(i.GuildID); err != nil {
		respondError(s, i, err.Error())
		return nil
	}

	return respondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "Lockdown Lifted",
		Description: "Channel permissions have been restored.",
		Color:       notifier.ColorSuccess,
	}, false)
}
