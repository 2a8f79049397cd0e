package lockdown

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"

	"potato-guard/internal/database"
	"potato-guard/internal/logging"
	"potato-guard/internal/notifier"
	"potato-guard/internal/policy"
)

// API is the channel-permission surface lockdown needs, satisfied by
// *discordgo.Session.
type API interface {
	GuildChannels(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error)
	ChannelPermissionSet(channelID, targetID string, targetType discordgo.PermissionOverwriteType, allow, deny int64, options ...discordgo.RequestOption) error
	ChannelPermissionDelete(channelID, targetID string, options ...discordgo.RequestOption) error
	GuildMemberDeleteWithReason(guildID, userID, reason string, options ...discordgo.RequestOption) error
}

// Manager drives guild-wide lockdown: denying send-messages on the
// default role across every text channel, remembering each channel's
// prior overwrite so unlock restores the exact bits. One transition per
// guild runs at a time.
type Manager struct {
	api   API
	store *policy.Store
	notif *notifier.Notifier

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewManager(api API, store *policy.Store, notif *notifier.Notifier) *Manager {
	return &Manager{
		api:      api,
		store:    store,
		notif:    notif,
		inFlight: make(map[string]struct{}),
	}
}

func (m *Manager) begin(guildID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.inFlight[guildID]; busy {
		return false
	}
	m.inFlight[guildID] = struct{}{}
	return true
}

func (m *Manager) end(guildID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.inFlight, guildID)
}

// IsLocked reports the guild's persisted lockdown state.
func (m *Manager) IsLocked(guildID string) bool {
	return m.store.Policy(guildID).Lockdown
}

// Lock snapshots the default role's overwrite in every text channel,
// persists the snapshots together with the locked state, and only then
// denies send-messages everywhere. Channels the bot cannot edit are
// skipped; the rest still lock.
func (m *Manager) Lock(guildID string) error {
	if !m.begin(guildID) {
		return fmt.Errorf("lockdown transition already in progress")
	}
	defer m.end(guildID)

	p := m.store.Policy(guildID)
	if p.Lockdown {
		return fmt.Errorf("guild is already locked down")
	}

	channels, err := m.api.GuildChannels(guildID)
	if err != nil {
		return fmt.Errorf("list channels: %w", err)
	}

	saved := make(map[string]database.OverwriteSnapshot)
	var targets []*discordgo.Channel

	for _, ch := range channels {
		if ch.Type != discordgo.ChannelTypeGuildText {
			continue
		}

		snap := database.OverwriteSnapshot{}
		for _, ow := range ch.PermissionOverwrites {
			if ow.ID == guildID && ow.Type == discordgo.PermissionOverwriteTypeRole {
				snap = database.OverwriteSnapshot{Allow: ow.Allow, Deny: ow.Deny, Existed: true}
				break
			}
		}

		saved[ch.ID] = snap
		targets = append(targets, ch)
	}

	// Persist before touching any channel. If the process dies mid-apply
	// the locked state and snapshots are already durable, and unlock can
	// finish the repair.
	if err := m.store.SetLockdown(guildID, true, saved); err != nil {
		return fmt.Errorf("persist lockdown: %w", err)
	}

	locked := 0
	for _, ch := range targets {
		snap := saved[ch.ID]
		allow := snap.Allow &^ discordgo.PermissionSendMessages
		deny := snap.Deny | discordgo.PermissionSendMessages
		if err := m.api.ChannelPermissionSet(ch.ID, guildID, discordgo.PermissionOverwriteTypeRole, allow, deny); err != nil {
			logging.Warn("[LOCKDOWN] Failed to lock channel %s in guild %s: %v", ch.ID, guildID, err)
			continue
		}
		locked++
	}

	m.notif.Alert(p.LogChannelID, "Server Lockdown",
		fmt.Sprintf("The server has been locked down, %d channels affected.", locked))
	logging.Info("[LOCKDOWN] Guild %s locked | channels=%d", guildID, locked)
	return nil
}

// Unlock restores each saved overwrite bit-for-bit. Channels whose
// overwrite did not exist before lockdown get theirs deleted rather
// than zeroed.
func (m *Manager) Unlock(guildID string) error {
	if !m.begin(guildID) {
		return fmt.Errorf("lockdown transition already in progress")
	}
	defer m.end(guildID)

	p := m.store.Policy(guildID)
	if !p.Lockdown {
		return fmt.Errorf("guild is not locked down")
	}

	restored := 0
	for channelID, snap := range p.SavedOverwrites {
		var err error
		if snap.Existed {
			err = m.api.ChannelPermissionSet(channelID, guildID, discordgo.PermissionOverwriteTypeRole, snap.Allow, snap.Deny)
		} else {
			err = m.api.ChannelPermissionDelete(channelID, guildID)
		}
		if err != nil {
			logging.Warn("[LOCKDOWN] Failed to restore channel %s in guild %s: %v", channelID, guildID, err)
			continue
		}
		restored++
	}

	if err := m.store.SetLockdown(guildID, false, nil); err != nil {
		return fmt.Errorf("persist unlock: %w", err)
	}

	m.notif.Success(p.LogChannelID, "Lockdown Lifted",
		fmt.Sprintf("The server lockdown has been lifted, %d channels restored.", restored))
	logging.Info("[LOCKDOWN] Guild %s unlocked | channels=%d", guildID, restored)
	return nil
}

// AdmitJoin enforces the door policy: anyone joining a locked guild is
// kicked on arrival. Returns true when the member was turned away.
func (m *Manager) AdmitJoin(guildID, userID string) bool {
	p := m.store.Policy(guildID)
	if !p.Lockdown {
		return false
	}

	m.notif.DirectMessage(userID, "Server Lockdown",
		"The server you tried to join is currently in lockdown, try again later.",
		notifier.ColorAlert)

	if err := m.api.GuildMemberDeleteWithReason(guildID, userID, "Server lockdown"); err != nil {
		logging.Warn("[LOCKDOWN] Failed to kick joiner %s from locked guild %s: %v", userID, guildID, err)
		return false
	}

	m.notif.Warn(p.LogChannelID, "Lockdown Kick",
		fmt.Sprintf("%s tried to join during lockdown and was kicked.", notifier.Mention(userID)))
	return true
}
