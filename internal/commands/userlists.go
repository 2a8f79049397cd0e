package commands

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"potato-guard/internal/notifier"
)

// userListKind selects between the two per-user security lists, which
// share their entire command shape.
type userListKind int

const (
	listWhitelist userListKind = iota
	listTrusted
)

func (k userListKind) label() string {
	if k == listWhitelist {
		return "whitelist"
	}
	return "trusted list"
}

// handleUserList serves /whitelist and /trusted. Both lists are guild
// owner only: trusted users configure toggles, they do not grant
// exemptions.
func (h *Handler) handleUserList(s *discordgo.Session, i *discordgo.InteractionCreate, kind userListKind) error {
	if !h.isOwner(s, i) {
		respondError(s, i, "Only the guild owner can manage the "+kind.label()+".")
		return nil
	}

	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		return fmt.Errorf("missing subcommand")
	}
	sub := data.Options[0]

	switch sub.Name {
	case "add":
		return h.setListMembership(s, i, kind, sub, true)
	case "remove":
		return h.setListMembership(s, i, kind, sub, false)
	case "list":
		return h.showList(s, i, kind)
	default:
		return fmt.Errorf("unknown subcommand: %s", sub.Name)
	}
}

func (h *Handler) setListMembership(s *discordgo.Session, i *discordgo.InteractionCreate, kind userListKind, sub *discordgo.ApplicationCommandInteractionDataOption, member bool) error {
	if len(sub.Options) == 0 {
		return fmt.Errorf("missing user option")
	}
	user := sub.Options[0].UserValue(s)
	if user == nil {
		return fmt.Errorf("could not resolve user")
	}

	var err error
	if kind == listWhitelist {
		err = h.store.SetWhitelisted(i.GuildID, user.ID, member)
	} else {
		err = h.store.SetTrusted(i.GuildID, user.ID, member)
	}
	if err != nil {
		return err
	}

	verb := "removed from"
	if member {
		verb = "added to"
	}
	return respondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "List Updated",
		Description: fmt.Sprintf("%s has been %s the %s.", notifier.Mention(user.ID), verb, kind.label()),
		Color:       notifier.ColorSuccess,
	}, false)
}

func (h *Handler) showList(s *discordgo.Session, i *discordgo.InteractionCreate, kind userListKind) error {
	var ids []string
	var err error
	if kind == listWhitelist {
		ids, err = h.store.ListWhitelisted(i.GuildID)
	} else {
		ids, err = h.store.ListTrusted(i.GuildID)
	}
	if err != nil {
		return err
	}

	description := "Nobody is on the " + kind.label() + " yet."
	if len(ids) > 0 {
		mentions := make([]string, len(ids))
		for n, id := range ids {
			mentions[n] = notifier.Mention(id)
		}
		description = strings.Join(mentions, "\n")
	}

	title := "Whitelisted Users"
	if kind == listTrusted {
		title = "Trusted Users"
	}
	return respondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       notifier.ColorWarning,
	}, true)
}
