package state

import (
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

// ChannelSnapshot captures enough of a deleted channel to recreate it with
// the same settings and position.
type ChannelSnapshot struct {
	ID                   string
	GuildID              string
	Name                 string
	Topic                string
	Type                 discordgo.ChannelType
	Position             int
	NSFW                 bool
	RateLimitPerUser     int
	Bitrate              int
	UserLimit            int
	ParentID             string
	PermissionOverwrites []*discordgo.PermissionOverwrite
}

// SnapshotChannel builds a snapshot from the channel payload carried by a
// delete event.
func SnapshotChannel(ch *discordgo.Channel) ChannelSnapshot {
	return ChannelSnapshot{
		ID:                   ch.ID,
		GuildID:              ch.GuildID,
		Name:                 ch.Name,
		Topic:                ch.Topic,
		Type:                 ch.Type,
		Position:             ch.Position,
		NSFW:                 ch.NSFW,
		RateLimitPerUser:     ch.RateLimitPerUser,
		Bitrate:              ch.Bitrate,
		UserLimit:            ch.UserLimit,
		ParentID:             ch.ParentID,
		PermissionOverwrites: ch.PermissionOverwrites,
	}
}

// Ledger holds per-guild snapshots of recently deleted channels awaiting
// possible restoration. Entries persist until a scheduled clear after a
// mass-delete correction, or until the global window clear.
type Ledger struct {
	mu      sync.Mutex
	entries map[string][]ChannelSnapshot
}

func NewLedger() *Ledger {
	return &Ledger{
		entries: make(map[string][]ChannelSnapshot),
	}
}

func (l *Ledger) Append(guildID string, snap ChannelSnapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[guildID] = append(l.entries[guildID], snap)
}

// Snapshot returns a copy of the guild's ledgered channels so callers can
// iterate without holding the lock or racing a clear.
func (l *Ledger) Snapshot(guildID string) []ChannelSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	src := l.entries[guildID]
	out := make([]ChannelSnapshot, len(src))
	copy(out, src)
	return out
}

// Take removes and returns the guild's ledgered channels in one step,
// so each snapshot can be restored at most once even if a second
// correction fires inside the window.
func (l *Ledger) Take(guildID string) []ChannelSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := l.entries[guildID]
	delete(l.entries, guildID)
	return out
}

func (l *Ledger) Clear(guildID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, guildID)
}

// ScheduleClear clears a guild's ledger after the grace delay. The
// restore path drains its entries up front via Take; this sweeps up
// anything ledgered while the restore was still running.
func (l *Ledger) ScheduleClear(guildID string, delay time.Duration) {
	time.AfterFunc(delay, func() { l.Clear(guildID) })
}

func (l *Ledger) ClearAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make(map[string][]ChannelSnapshot)
}

func (l *Ledger) Len(guildID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries[guildID])
}

// Unmoderatable tracks actors the bot failed to penalize for lack of
// permission, so it does not hammer the API retrying them.
type Unmoderatable struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func NewUnmoderatable() *Unmoderatable {
	return &Unmoderatable{ids: make(map[string]struct{})}
}

func (u *Unmoderatable) Mark(userID string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.ids[userID] = struct{}{}
}

func (u *Unmoderatable) Contains(userID string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	_, ok := u.ids[userID]
	return ok
}
