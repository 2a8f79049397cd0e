package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"

	"potato-guard/internal/audit"
	"potato-guard/internal/database"
	"potato-guard/internal/detect"
	"potato-guard/internal/executor"
	"potato-guard/internal/lockdown"
	"potato-guard/internal/logging"
	"potato-guard/internal/notifier"
	"potato-guard/internal/policy"
	"potato-guard/internal/state"
)

// GuildSource is the guild metadata surface the engine needs, satisfied
// by *discordgo.Session.
type GuildSource interface {
	Guild(guildID string, options ...discordgo.RequestOption) (*discordgo.Guild, error)
	UserChannelPermissions(userID, channelID string, fetchOptions ...discordgo.RequestOption) (int64, error)
}

// Engine is the detection pipeline: each gateway event is attributed to
// an actor, weighed against the per-guild policy, and, past a
// threshold, handed to the corrective executor. All mutable risk state
// is injected, nothing lives in package scope.
type Engine struct {
	guilds   GuildSource
	store    *policy.Store
	counters *state.Counters
	ledger   *state.Ledger
	unmod    *state.Unmoderatable
	resolver *audit.Resolver
	exec     *executor.Executor
	notif    *notifier.Notifier
	locks    *lockdown.Manager

	selfMu sync.RWMutex
	selfID string

	roleMu    sync.Mutex
	rolePerms map[string]int64
}

type Deps struct {
	Guilds   GuildSource
	Store    *policy.Store
	Counters *state.Counters
	Ledger   *state.Ledger
	Unmod    *state.Unmoderatable
	Resolver *audit.Resolver
	Executor *executor.Executor
	Notifier *notifier.Notifier
	Lockdown *lockdown.Manager
	SelfID   string
}

func New(d Deps) *Engine {
	return &Engine{
		guilds:    d.Guilds,
		store:     d.Store,
		counters:  d.Counters,
		ledger:    d.Ledger,
		unmod:     d.Unmod,
		resolver:  d.Resolver,
		exec:      d.Executor,
		notif:     d.Notifier,
		locks:     d.Lockdown,
		selfID:    d.SelfID,
		rolePerms: make(map[string]int64),
	}
}

// SetSelfID records the bot's own user ID once the gateway handshake
// completes. Events attributed to the bot itself are never acted on.
func (e *Engine) SetSelfID(id string) {
	e.selfMu.Lock()
	e.selfID = id
	e.selfMu.Unlock()
}

func (e *Engine) self() string {
	e.selfMu.RLock()
	defer e.selfMu.RUnlock()
	return e.selfID
}

func (e *Engine) guildMeta(guildID string) (ownerID, name string) {
	g, err := e.guilds.Guild(guildID)
	if err != nil {
		logging.Warn("[ENGINE] Guild lookup failed for %s: %v", guildID, err)
		return "", ""
	}
	return g.OwnerID, g.Name
}

// skipActor filters out the actors the engine never moves against: the
// bot itself, the guild owner, and unattributed events.
func (e *Engine) skipActor(actorID, ownerID string) bool {
	return actorID == "" || actorID == e.self() || actorID == ownerID
}

func (e *Engine) warnWhitelisted(p database.GuildPolicy, actorID, offense string) {
	e.notif.Warn(p.LogChannelID, "AntiNuke Warning",
		fmt.Sprintf("%s is whitelisted and tried %s", notifier.Mention(actorID), offense))
}

// OnMemberBan handles a guild ban event. Ban audit entries replicate
// with noticeable lag, so attribution polls with backoff up to the
// configured deadline.
func (e *Engine) OnMemberBan(ctx context.Context, guildID, victimID string) {
	p := e.store.Policy(guildID)
	if !p.Flags.AntiMassBan {
		return
	}

	ownerID, _ := e.guildMeta(guildID)
	actorID := e.resolver.ResolveWithRetry(ctx, guildID, audit.ActionBan, victimID, ownerID)
	if e.skipActor(actorID, ownerID) {
		return
	}

	count := e.counters.Increment(detect.KindMassBan, actorID)
	logging.Debug("[ENGINE] mass_ban | guild=%s actor=%s count=%d", guildID, actorID, count)

	switch detect.Evaluate(detect.KindMassBan, count, true, e.store.IsWhitelisted(guildID, actorID)) {
	case detect.VerdictWarn:
		e.warnWhitelisted(p, actorID, "to mass ban members")
	case detect.VerdictCorrect:
		e.exec.MassBan(p, actorID, victimID)
	}
}

// OnMemberRemove handles a member leaving. Voluntary leaves carry no
// kick audit entry and fall through silently.
func (e *Engine) OnMemberRemove(guildID, userID string) {
	p := e.store.Policy(guildID)
	if !p.Flags.AntiMassKick {
		return
	}

	ownerID, _ := e.guildMeta(guildID)
	actorID := e.resolver.Resolve(guildID, audit.ActionKick, userID, ownerID)
	if e.skipActor(actorID, ownerID) {
		return
	}

	count := e.counters.Increment(detect.KindMassKick, actorID)
	logging.Debug("[ENGINE] mass_kick | guild=%s actor=%s count=%d", guildID, actorID, count)

	switch detect.Evaluate(detect.KindMassKick, count, true, e.store.IsWhitelisted(guildID, actorID)) {
	case detect.VerdictWarn:
		e.warnWhitelisted(p, actorID, "to mass kick members")
	case detect.VerdictCorrect:
		e.exec.MassKick(p, actorID, userID)
	}
}

// OnChannelDelete ledgers the deleted channel for possible restoration
// and counts the delete against its actor.
func (e *Engine) OnChannelDelete(ch *discordgo.Channel) {
	p := e.store.Policy(ch.GuildID)
	if !p.Flags.AntiMassDelete {
		return
	}

	e.ledger.Append(ch.GuildID, state.SnapshotChannel(ch))

	ownerID, _ := e.guildMeta(ch.GuildID)
	actorID := e.resolver.Resolve(ch.GuildID, audit.ActionChannelDelete, ch.ID, ownerID)
	if e.skipActor(actorID, ownerID) {
		return
	}

	count := e.counters.Increment(detect.KindMassDelete, actorID)
	logging.Debug("[ENGINE] mass_delete | guild=%s actor=%s count=%d", ch.GuildID, actorID, count)

	switch detect.Evaluate(detect.KindMassDelete, count, true, e.store.IsWhitelisted(ch.GuildID, actorID)) {
	case detect.VerdictWarn:
		e.warnWhitelisted(p, actorID, "to mass delete channels")
	case detect.VerdictCorrect:
		e.exec.MassDelete(p, actorID, ch.Name)
	}
}

// OnRoleCreate checks a freshly created role for the administrator bit.
// Dangerous role events are binary: a single occurrence trips.
func (e *Engine) OnRoleCreate(guildID string, role *discordgo.Role) {
	e.rememberRole(role)

	// Managed roles come from integrations, not people.
	if role.Managed {
		return
	}

	p := e.store.Policy(guildID)
	if !p.Flags.AntiDangerPerms {
		return
	}
	if role.Permissions&discordgo.PermissionAdministrator == 0 {
		return
	}

	ownerID, _ := e.guildMeta(guildID)
	actorID := e.resolver.Resolve(guildID, audit.ActionRoleCreate, role.ID, ownerID)
	if e.skipActor(actorID, ownerID) {
		return
	}

	switch detect.Evaluate(detect.KindDangerPerms, 1, true, e.store.IsWhitelisted(guildID, actorID)) {
	case detect.VerdictWarn:
		e.warnWhitelisted(p, actorID, "to create a dangerous role")
	case detect.VerdictCorrect:
		e.exec.DangerousRoleCreate(p, actorID, role.ID)
	}
}

// OnRoleUpdate compares the role's permissions against the last seen
// value and reverts an administrator escalation.
func (e *Engine) OnRoleUpdate(guildID string, role *discordgo.Role) {
	previous, seen := e.swapRole(role)

	p := e.store.Policy(guildID)
	if !p.Flags.AntiDangerPerms {
		return
	}
	if role.Permissions&discordgo.PermissionAdministrator == 0 {
		return
	}
	// Only a fresh escalation counts. A role already holding the bit,
	// or one never seen before, is left alone.
	if !seen || previous&discordgo.PermissionAdministrator != 0 {
		return
	}

	ownerID, _ := e.guildMeta(guildID)
	actorID := e.resolver.Resolve(guildID, audit.ActionRoleUpdate, role.ID, ownerID)
	if e.skipActor(actorID, ownerID) {
		return
	}

	switch detect.Evaluate(detect.KindDangerPerms, 1, true, e.store.IsWhitelisted(guildID, actorID)) {
	case detect.VerdictWarn:
		e.warnWhitelisted(p, actorID, "to give a role dangerous permissions")
	case detect.VerdictCorrect:
		e.exec.DangerousRoleUpdate(p, actorID, role.ID, previous)
	}
}

// OnMessageCreate weighs a message against the webhook-spam and
// mass-ping heuristics.
func (e *Engine) OnMessageCreate(m *discordgo.MessageCreate) {
	if m.GuildID == "" {
		return
	}

	if m.WebhookID != "" {
		e.onWebhookMessage(m)
		return
	}
	if m.Author == nil || m.Author.Bot || m.Author.ID == e.self() {
		return
	}
	e.onUserMessage(m)
}

func (e *Engine) onWebhookMessage(m *discordgo.MessageCreate) {
	p := e.store.Policy(m.GuildID)
	if !p.Flags.AntiWebhookSpam {
		return
	}

	weight := detect.WebhookMessageWeight(m.Content)
	count := e.counters.Add(detect.KindWebhookSpam, m.WebhookID, weight)
	logging.Debug("[ENGINE] webhook_spam | guild=%s webhook=%s count=%d", m.GuildID, m.WebhookID, count)

	if detect.Evaluate(detect.KindWebhookSpam, count, true, false) == detect.VerdictCorrect {
		e.exec.WebhookSpam(p, m.WebhookID, m.ChannelID, m.ID, m.Content)
	}
}

func (e *Engine) onUserMessage(m *discordgo.MessageCreate) {
	p := e.store.Policy(m.GuildID)
	if !p.Flags.AntiMassPing {
		return
	}

	ownerID, guildName := e.guildMeta(m.GuildID)
	if e.skipActor(m.Author.ID, ownerID) {
		return
	}

	perms, err := e.guilds.UserChannelPermissions(m.Author.ID, m.ChannelID)
	if err != nil {
		logging.Warn("[ENGINE] Permission lookup failed for %s in %s: %v", m.Author.ID, m.ChannelID, err)
		return
	}
	canMention := perms&(discordgo.PermissionMentionEveryone|discordgo.PermissionAdministrator) != 0

	weight := detect.PingMessageWeight(len(m.MentionRoles), m.Content, canMention)
	if weight == 0 {
		return
	}

	count := e.counters.Add(detect.KindMassPing, m.Author.ID, weight)
	logging.Debug("[ENGINE] mass_ping | guild=%s actor=%s count=%d", m.GuildID, m.Author.ID, count)

	switch detect.Evaluate(detect.KindMassPing, count, true, e.store.IsWhitelisted(m.GuildID, m.Author.ID)) {
	case detect.VerdictWarn:
		e.warnWhitelisted(p, m.Author.ID, "to mass ping members")
	case detect.VerdictCorrect:
		e.exec.MassPing(p, m.Author.ID, guildName, m.ChannelID, m.ID, m.Content)
	}
}

// OnMemberJoin enforces the lockdown door policy, then screens joining
// bots against the verified flag and the guild's authorized list.
func (e *Engine) OnMemberJoin(guildID string, member *discordgo.Member) {
	if member == nil || member.User == nil {
		return
	}

	if e.locks.AdmitJoin(guildID, member.User.ID) {
		return
	}

	if !member.User.Bot {
		return
	}

	p := e.store.Policy(guildID)
	if !p.Flags.AntiUnauthorizedBot {
		return
	}
	if member.User.PublicFlags&discordgo.UserFlagVerifiedBot != 0 {
		return
	}
	if p.IsBotAuthorized(member.User.ID) {
		e.notif.Success(p.LogChannelID, "Authorized bot joined",
			fmt.Sprintf("%s is on the authorized list, no action taken", notifier.Mention(member.User.ID)))
		return
	}

	logging.Info("[ENGINE] unauthorized_bot | guild=%s bot=%s", guildID, member.User.ID)
	e.exec.UnauthorizedBot(p, member.User.ID)
}

// SeedRoles primes the role permission cache from a full guild payload,
// so the first update after startup still has a previous value.
func (e *Engine) SeedRoles(roles []*discordgo.Role) {
	e.roleMu.Lock()
	defer e.roleMu.Unlock()
	for _, r := range roles {
		e.rolePerms[r.ID] = r.Permissions
	}
}

func (e *Engine) rememberRole(role *discordgo.Role) {
	e.roleMu.Lock()
	defer e.roleMu.Unlock()
	e.rolePerms[role.ID] = role.Permissions
}

// swapRole records the role's new permissions and returns the previous
// value, with seen=false when the role was never observed.
func (e *Engine) swapRole(role *discordgo.Role) (previous int64, seen bool) {
	e.roleMu.Lock()
	defer e.roleMu.Unlock()
	previous, seen = e.rolePerms[role.ID]
	e.rolePerms[role.ID] = role.Permissions
	return previous, seen
}
