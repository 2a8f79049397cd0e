package policy

import (
	"fmt"
	"sync"

	"potato-guard/internal/database"
	"potato-guard/internal/logging"
)

// Backend is the slice of the document store the policy cache needs.
type Backend interface {
	GetGuildPolicy(guildID string) (*database.GuildPolicy, error)
	UpsertGuildPolicy(p *database.GuildPolicy) error
	GetUserRecord(guildID, userID string) (*database.UserRecord, error)
	UpsertUserRecord(r *database.UserRecord) error
	ListWhitelisted(guildID string) ([]string, error)
	ListTrusted(guildID string) ([]string, error)
}

// Store is the read-through cache over guild policies and user security
// records. Reads on a missing document yield all-false defaults without
// writing; the full document shape is persisted only on the first
// explicit mutation.
type Store struct {
	mu       sync.RWMutex
	db       Backend
	policies map[string]*database.GuildPolicy
	users    map[string]*database.UserRecord
}

func NewStore(db Backend) *Store {
	return &Store{
		db:       db,
		policies: make(map[string]*database.GuildPolicy),
		users:    make(map[string]*database.UserRecord),
	}
}

// Policy returns a copy of the guild's policy document, lazily defaulted
// if the guild has none. Callers never see cache internals.
func (s *Store) Policy(guildID string) database.GuildPolicy {
	s.mu.RLock()
	if p, ok := s.policies[guildID]; ok {
		out := *p
		s.mu.RUnlock()
		return out
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.policies[guildID]; ok {
		return *p
	}

	p, err := s.db.GetGuildPolicy(guildID)
	if err != nil {
		logging.Warn("[POLICY] Failed to load policy for guild %s: %v", guildID, err)
		return *database.NewGuildPolicy(guildID)
	}
	if p == nil {
		p = database.NewGuildPolicy(guildID)
	}

	s.policies[guildID] = p
	return *p
}

// Mutate applies fn to the guild's policy document and persists the
// result. The document is created with defaults first if absent.
func (s *Store) Mutate(guildID string, fn func(p *database.GuildPolicy)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.policies[guildID]
	if !ok {
		loaded, err := s.db.GetGuildPolicy(guildID)
		if err != nil {
			return fmt.Errorf("load policy: %w", err)
		}
		if loaded == nil {
			loaded = database.NewGuildPolicy(guildID)
		}
		p = loaded
		s.policies[guildID] = p
	}

	fn(p)

	if err := s.db.UpsertGuildPolicy(p); err != nil {
		return fmt.Errorf("persist policy: %w", err)
	}
	return nil
}

// SetFlag flips one antinuke toggle.
func (s *Store) SetFlag(guildID string, set func(f *database.AntinukeFlags)) error {
	return s.Mutate(guildID, func(p *database.GuildPolicy) {
		set(&p.Flags)
	})
}

// SetLogChannel points the guild's notification channel.
func (s *Store) SetLogChannel(guildID, channelID string) error {
	return s.Mutate(guildID, func(p *database.GuildPolicy) {
		p.LogChannelID = channelID
	})
}

// AuthorizeBot adds a bot ID to the guild's authorized list. Returns
// false without writing if it was already present.
func (s *Store) AuthorizeBot(guildID, botID string) (bool, error) {
	added := false
	err := s.Mutate(guildID, func(p *database.GuildPolicy) {
		if p.IsBotAuthorized(botID) {
			return
		}
		p.AuthorizedBots = append(p.AuthorizedBots, botID)
		added = true
	})
	return added, err
}

// SetLockdown persists the lockdown bit together with the permission
// snapshot. Passing locked=false discards the snapshot.
func (s *Store) SetLockdown(guildID string, locked bool, overwrites map[string]database.OverwriteSnapshot) error {
	return s.Mutate(guildID, func(p *database.GuildPolicy) {
		p.Lockdown = locked
		if locked {
			p.SavedOverwrites = overwrites
		} else {
			p.SavedOverwrites = nil
		}
	})
}

func (s *Store) userRecord(guildID, userID string) *database.UserRecord {
	key := guildID + ":" + userID

	s.mu.RLock()
	if r, ok := s.users[key]; ok {
		s.mu.RUnlock()
		return r
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.users[key]; ok {
		return r
	}

	r, err := s.db.GetUserRecord(guildID, userID)
	if err != nil {
		logging.Warn("[POLICY] Failed to load user record %s/%s: %v", guildID, userID, err)
		return &database.UserRecord{GuildID: guildID, UserID: userID}
	}
	if r == nil {
		r = &database.UserRecord{GuildID: guildID, UserID: userID}
	}

	s.users[key] = r
	return r
}

// IsWhitelisted reports whether a user is exempt from automated
// corrective actions in a guild.
func (s *Store) IsWhitelisted(guildID, userID string) bool {
	return s.userRecord(guildID, userID).Whitelisted
}

// IsTrusted reports whether a user may change security settings in a
// guild.
func (s *Store) IsTrusted(guildID, userID string) bool {
	return s.userRecord(guildID, userID).Trusted
}

// SetWhitelisted persists a user's whitelist flag.
func (s *Store) SetWhitelisted(guildID, userID string, v bool) error {
	return s.mutateUser(guildID, userID, func(r *database.UserRecord) {
		r.Whitelisted = v
	})
}

// SetTrusted persists a user's trusted flag.
func (s *Store) SetTrusted(guildID, userID string, v bool) error {
	return s.mutateUser(guildID, userID, func(r *database.UserRecord) {
		r.Trusted = v
	})
}

func (s *Store) mutateUser(guildID, userID string, fn func(r *database.UserRecord)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := guildID + ":" + userID
	r, ok := s.users[key]
	if !ok {
		loaded, err := s.db.GetUserRecord(guildID, userID)
		if err != nil {
			return fmt.Errorf("load user record: %w", err)
		}
		if loaded == nil {
			loaded = &database.UserRecord{GuildID: guildID, UserID: userID}
		}
		r = loaded
		s.users[key] = r
	}

	fn(r)

	if err := s.db.UpsertUserRecord(r); err != nil {
		return fmt.Errorf("persist user record: %w", err)
	}
	return nil
}

// ListWhitelisted returns the whitelisted user IDs for a guild.
func (s *Store) ListWhitelisted(guildID string) ([]string, error) {
	return s.db.ListWhitelisted(guildID)
}

// ListTrusted returns the trusted user IDs for a guild.
func (s *Store) ListTrusted(guildID string) ([]string, error) {
	return s.db.ListTrusted(guildID)
}
