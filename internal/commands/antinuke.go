package commands

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"potato-guard/internal/database"
	"potato-guard/internal/notifier"
	"potato-guard/pkg/util"
)

// flagSetters maps /antinuke subcommand names to the policy flag each
// one flips.
var flagSetters = map[string]func(f *database.AntinukeFlags, v bool){
	"massban":         func(f *database.AntinukeFlags, v bool) { f.AntiMassBan = v },
	"masskick":        func(f *database.AntinukeFlags, v bool) { f.AntiMassKick = v },
	"massdelete":      func(f *database.AntinukeFlags, v bool) { f.AntiMassDelete = v },
	"massping":        func(f *database.AntinukeFlags, v bool) { f.AntiMassPing = v },
	"webhookspam":     func(f *database.AntinukeFlags, v bool) { f.AntiWebhookSpam = v },
	"dangerperms":     func(f *database.AntinukeFlags, v bool) { f.AntiDangerPerms = v },
	"unauthorizedbot": func(f *database.AntinukeFlags, v bool) { f.AntiUnauthorizedBot = v },
}

// handleAntinuke serves the policy toggle subcommands plus
// bot-authorize. All of them need owner or trusted standing.
func (h *Handler) handleAntinuke(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if !h.isOwnerOrTrusted(s, i) {
		respondError(s, i, "Only the guild owner or trusted users can change protections.")
		return nil
	}

	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		return fmt.Errorf("missing subcommand")
	}
	sub := data.Options[0]

	if sub.Name == "bot-authorize" {
		return h.handleBotAuthorize(s, i, sub)
	}

	set, ok := flagSetters[sub.Name]
	if !ok {
		return fmt.Errorf("unknown subcommand: %s", sub.Name)
	}
	if len(sub.Options) == 0 {
		return fmt.Errorf("missing enabled option")
	}
	enabled := sub.Options[0].BoolValue()

	if err := h.store.SetFlag(i.GuildID, func(f *database.AntinukeFlags) {
		set(f, enabled)
	}); err != nil {
		return err
	}

	word := "disabled"
	color := notifier.ColorAlert
	if enabled {
		word = "enabled"
		color = notifier.ColorSuccess
	}
	return respondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "Protection Updated",
		Description: fmt.Sprintf("**%s** protection is now %s.", sub.Name, word),
		Color:       color,
	}, false)
}

func (h *Handler) handleBotAuthorize(s *discordgo.Session, i *discordgo.InteractionCreate, sub *discordgo.ApplicationCommandInteractionDataOption) error {
	if len(sub.Options) == 0 {
		return fmt.Errorf("missing id option")
	}
	botID := sub.Options[0].StringValue()

	if _, err := util.ParseSnowflake(botID); err != nil {
		respondError(s, i, "That does not look like a bot ID.")
		return nil
	}

	added, err := h.store.AuthorizeBot(i.GuildID, botID)
	if err != nil {
		return err
	}
	if !added {
		return respondEmbed(s, i, &discordgo.MessageEmbed{
			Title:       "Already Authorized",
			Description: fmt.Sprintf("%s is already on the authorized bot list.", notifier.Mention(botID)),
			Color:       notifier.ColorWarning,
		}, true)
	}

	return respondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "Bot Authorized",
		Description: fmt.Sprintf("%s may now join this guild.", notifier.Mention(botID)),
		Color:       notifier.ColorSuccess,
	}, false)
}
