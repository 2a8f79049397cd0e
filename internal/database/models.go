package database

import "encoding/json"

// AntinukeFlags are the per-guild policy toggles. Everything defaults to
// false; a guild opts in flag by flag.
type AntinukeFlags struct {
	AntiDangerPerms     bool `json:"anti_danger_perms"`
	AntiMassBan         bool `json:"anti_massban"`
	AntiMassKick        bool `json:"anti_masskick"`
	AntiMassDelete      bool `json:"anti_massdelete"`
	AntiMassPing        bool `json:"anti_massping"`
	AntiWebhookSpam     bool `json:"anti_webhook_spam"`
	AntiUnauthorizedBot bool `json:"anti_unauthorized_bot"`
}

// OverwriteSnapshot is one channel's default-role permission overwrite as
// it existed immediately before lockdown. Existed distinguishes "no
// overwrite at all" from an all-zero one so unlock can delete rather than
// write zeros.
type OverwriteSnapshot struct {
	Allow   int64 `json:"allow"`
	Deny    int64 `json:"deny"`
	Existed bool  `json:"existed"`
}

// GuildPolicy is the durable per-guild security document. Upsert-only,
// never deleted.
type GuildPolicy struct {
	GuildID         string
	Flags           AntinukeFlags
	LogChannelID    string
	AuthorizedBots  []string
	Lockdown        bool
	SavedOverwrites map[string]OverwriteSnapshot
	CreatedAt       int64
	UpdatedAt       int64
}

// NewGuildPolicy returns the lazily-created default document: all flags
// off, no log channel, unlocked.
func NewGuildPolicy(guildID string) *GuildPolicy {
	return &GuildPolicy{
		GuildID:        guildID,
		AuthorizedBots: []string{},
	}
}

// IsBotAuthorized reports whether a bot ID is on the guild's authorized
// list.
func (p *GuildPolicy) IsBotAuthorized(botID string) bool {
	for _, id := range p.AuthorizedBots {
		if id == botID {
			return true
		}
	}
	return false
}

// UserRecord is the durable (user, guild) security document.
type UserRecord struct {
	GuildID     string
	UserID      string
	Whitelisted bool
	Trusted     bool
}

// decodeBots tolerates a malformed or empty column: a document that lost
// its shape means "no bots authorized", never a hard failure.
func decodeBots(raw string) []string {
	if raw == "" {
		return []string{}
	}
	var bots []string
	if err := json.Unmarshal([]byte(raw), &bots); err != nil {
		return []string{}
	}
	return bots
}

func encodeBots(bots []string) string {
	if bots == nil {
		bots = []string{}
	}
	data, _ := json.Marshal(bots)
	return string(data)
}

// decodeOverwrites treats a malformed snapshot column as absent. The
// snapshot only exists while locked, so losing it degrades unlock to a
// no-op per channel rather than an error.
func decodeOverwrites(raw string) map[string]OverwriteSnapshot {
	if raw == "" {
		return nil
	}
	var m map[string]OverwriteSnapshot
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil
	}
	return m
}

func encodeOverwrites(m map[string]OverwriteSnapshot) string {
	if len(m) == 0 {
		return ""
	}
	data, _ := json.Marshal(m)
	return string(data)
}
