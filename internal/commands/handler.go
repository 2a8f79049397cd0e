package commands

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"potato-guard/internal/bot"
	"potato-guard/internal/lockdown"
	"potato-guard/internal/logging"
	"potato-guard/internal/policy"
	"potato-guard/internal/state"
)

// Handler manages all command interactions
type Handler struct {
	session  *bot.Session
	store    *policy.Store
	locks    *lockdown.Manager
	counters *state.Counters
}

var globalHandler *Handler

// Initialize creates the command handler, registers the interaction
// router and pushes the command set to Discord.
func Initialize(session *bot.Session, store *policy.Store, locks *lockdown.Manager, counters *state.Counters) error {
	globalHandler = &Handler{
		session:  session,
		store:    store,
		locks:    locks,
		counters: counters,
	}

	session.AddHandler(globalHandler.handleInteraction)

	commands := GetAllCommands()
	if err := session.RegisterCommands(commands); err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	logging.Info("Command handler initialized with %d commands", len(commands))
	return nil
}

// GetHandler returns the global command handler
func GetHandler() *Handler {
	return globalHandler
}

// handleInteraction routes all interactions (commands and buttons)
func (h *Handler) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		h.handleCommand(s, i)
	case discordgo.InteractionMessageComponent:
		h.handleComponent(s, i)
	}
}

func (h *Handler) handleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" || i.Member == nil || i.Member.User == nil {
		respondError(s, i, "This command only works inside a guild.")
		return
	}

	data := i.ApplicationCommandData()

	var err error
	switch data.Name {
	case "whitelist":
		err = h.handleUserList(s, i, listWhitelist)
	case "trusted":
		err = h.handleUserList(s, i, listTrusted)
	case "antinuke":
		err = h.handleAntinuke(s, i)
	case "lockdown":
		err = h.handleLockdown(s, i)
	case "unlockdown":
		err = h.handleUnlockdown(s, i)
	case "logs":
		err = h.handleLogs(s, i)
	case "status":
		err = h.handleStatus(s, i)
	case "stats":
		err = h.handleStats(s, i)
	default:
		err = fmt.Errorf("unknown command: %s", data.Name)
	}

	if err != nil {
		logging.Error("Command error [%s]: %v", data.Name, err)
		respondError(s, i, err.Error())
	}
}

// handleComponent routes button presses. Lockdown buttons carry the
// invoker's ID in the CustomID so only the requester can press them.
func (h *Handler) handleComponent(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.MessageComponentData()

	var err error
	switch {
	case strings.HasPrefix(data.CustomID, lockdownConfirmPrefix):
		err = h.handleLockdownConfirm(s, i)
	case strings.HasPrefix(data.CustomID, lockdownCancelPrefix):
		err = h.handleLockdownCancel(s, i)
	default:
		err = fmt.Errorf("unknown component: %s", data.CustomID)
	}

	if err != nil {
		logging.Error("Component error [%s]: %v", data.CustomID, err)
		respondError(s, i, err.Error())
	}
}

// guildOwnerID resolves the owner from the session state, falling back
// to the API when the guild is not cached.
func guildOwnerID(s *discordgo.Session, guildID string) string {
	if g, err := s.State.Guild(guildID); err == nil && g.OwnerID != "" {
		return g.OwnerID
	}
	g, err := s.Guild(guildID)
	if err != nil {
		return ""
	}
	return g.OwnerID
}

func (h *Handler) isOwner(s *discordgo.Session, i *discordgo.InteractionCreate) bool {
	return i.Member.User.ID == guildOwnerID(s, i.GuildID)
}

func (h *Handler) isOwnerOrTrusted(s *discordgo.Session, i *discordgo.InteractionCreate) bool {
	if h.isOwner(s, i) {
		return true
	}
	return h.store.IsTrusted(i.GuildID, i.Member.User.ID)
}

// respondError sends an ephemeral error message
func respondError(s *discordgo.Session, i *discordgo.InteractionCreate, message string) {
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: fmt.Sprintf("❌ Error: %s", message),
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

// respondEmbed sends a single-embed response.
func respondEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) error {
	data := &discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{embed},
	}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
}
