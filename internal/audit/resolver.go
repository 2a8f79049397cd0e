package audit

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"

	"potato-guard/internal/logging"
)

// Discord audit log action types consulted for attribution.
const (
	ActionKick          = 20
	ActionBan           = 22
	ActionRoleCreate    = 30
	ActionRoleUpdate    = 31
	ActionChannelDelete = 12
)

// lookbackLimit bounds how far back attribution looks: only the two most
// recent entries of an action kind are ever considered.
const lookbackLimit = 2

// Source is the audit-trail query surface, satisfied by
// *discordgo.Session.
type Source interface {
	GuildAuditLog(guildID, userID, beforeID string, actionType, limit int, options ...discordgo.RequestOption) (*discordgo.GuildAuditLog, error)
}

// Resolver attributes destructive events to the responsible actor via the
// guild audit trail. Attribution can legitimately fail: an empty actor ID
// means the event is a no-op for the detection engine, not an error.
type Resolver struct {
	source   Source
	backoff  time.Duration
	deadline time.Duration
}

func NewResolver(source Source, backoff, deadline time.Duration) *Resolver {
	return &Resolver{
		source:   source,
		backoff:  backoff,
		deadline: deadline,
	}
}

// Resolve queries the trail once and returns the actor responsible for
// the action against targetID, or "" when no entry matches, the match is
// ambiguous, or the only match is the guild owner (owner actions are
// never attributed as abuse).
func (r *Resolver) Resolve(guildID string, actionType int, targetID, ownerID string) string {
	trail, err := r.source.GuildAuditLog(guildID, "", "", actionType, lookbackLimit)
	if err != nil {
		logging.Warn("[AUDIT] Trail query failed for guild %s action %d: %v", guildID, actionType, err)
		return ""
	}

	actor := ""
	ownerMatched := false

	// Entries arrive newest-first; the first exact non-owner target
	// match wins.
	for _, entry := range trail.AuditLogEntries {
		if targetID != "" && entry.TargetID != targetID {
			continue
		}
		if entry.UserID == ownerID {
			ownerMatched = true
			continue
		}
		if actor == "" {
			actor = entry.UserID
		}
	}

	if actor == "" && ownerMatched {
		// Sole match was owner-initiated: ignore the event entirely.
		return ""
	}
	return actor
}

// ResolveWithRetry polls the trail with exponential backoff until an
// actor is found or the hard deadline passes. Ban entries in particular
// replicate with noticeable lag; polling trades detection latency for
// attribution accuracy while still guaranteeing a definitive outcome.
func (r *Resolver) ResolveWithRetry(ctx context.Context, guildID string, actionType int, targetID, ownerID string) string {
	deadline := time.Now().Add(r.deadline)
	wait := r.backoff

	for {
		if actor := r.Resolve(guildID, actionType, targetID, ownerID); actor != "" {
			return actor
		}

		if time.Now().Add(wait).After(deadline) {
			logging.Debug("[AUDIT] Attribution deadline hit for guild %s action %d target %s", guildID, actionType, targetID)
			return ""
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ""
		case <-timer.C:
		}
		wait *= 2
	}
}
