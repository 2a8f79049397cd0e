package executor

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"potato-guard/internal/database"
	"potato-guard/internal/dispatcher"
	"potato-guard/internal/logging"
	"potato-guard/internal/notifier"
	"potato-guard/internal/state"
)

// pingTimeout is the fixed communication timeout applied for mass
// pinging instead of a ban.
const pingTimeout = time.Hour

// API is the platform mutation surface the executor needs, satisfied by
// *discordgo.Session.
type API interface {
	GuildBanDelete(guildID, userID string, options ...discordgo.RequestOption) error
	GuildMemberDeleteWithReason(guildID, userID, reason string, options ...discordgo.RequestOption) error
	GuildMemberTimeout(guildID, userID string, until *time.Time, options ...discordgo.RequestOption) error
	GuildRoleDelete(guildID, roleID string, options ...discordgo.RequestOption) error
	GuildRoleEdit(guildID, roleID string, data *discordgo.RoleParams, options ...discordgo.RequestOption) (*discordgo.Role, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	WebhookDelete(webhookID string, options ...discordgo.RequestOption) error
	GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelEditComplex(channelID string, data *discordgo.ChannelEdit, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

// Executor performs platform-side remediation for tripped detections:
// revert the triggering change, penalize the actor, notify the log
// channel. Every mutation is best-effort and single-shot.
type Executor struct {
	api       API
	penalizer dispatcher.Penalizer
	notif     *notifier.Notifier
	ledger    *state.Ledger
	unmod     *state.Unmoderatable
	grace     time.Duration
}

func New(api API, penalizer dispatcher.Penalizer, notif *notifier.Notifier, ledger *state.Ledger, unmod *state.Unmoderatable, grace time.Duration) *Executor {
	return &Executor{
		api:       api,
		penalizer: penalizer,
		notif:     notif,
		ledger:    ledger,
		unmod:     unmod,
		grace:     grace,
	}
}

// banActor applies the standard penalty and posts the outcome to the log
// channel.
func (e *Executor) banActor(p database.GuildPolicy, actorID, reason, offense string) ActionResult {
	err := e.penalizer.Ban(p.GuildID, actorID, reason)
	res := result("ban_actor", actorID, err)

	if res.OK() {
		e.notif.Alert(p.LogChannelID, "User Banned",
			fmt.Sprintf("%s has been banned for %s!", notifier.Mention(actorID), offense))
	} else {
		e.notif.Alert(p.LogChannelID, "Unable to ban user",
			fmt.Sprintf("%s could not be banned (%s)", notifier.Mention(actorID), res.Outcome))
	}
	return res
}

// MassBan reverts the latest ban and bans the offending actor.
func (e *Executor) MassBan(p database.GuildPolicy, actorID, victimID string) []ActionResult {
	results := make([]ActionResult, 0, 2)

	unban := result("unban_victim", victimID, e.api.GuildBanDelete(p.GuildID, victimID))
	results = append(results, unban)

	e.notif.Warn(p.LogChannelID, "AntiNuke Warning",
		fmt.Sprintf("%s has triggered the antinuke system, last banned user: %s",
			notifier.Mention(actorID), notifier.Mention(victimID)))

	results = append(results, e.banActor(p, actorID, "AntiNuke Alert - Mass ban detected", "trying to mass ban members"))

	logging.Info("[EXEC] mass_ban correction | guild=%s actor=%s victim=%s", p.GuildID, actorID, victimID)
	return results
}

// MassKick bans the actor; kicked members cannot be force-rejoined, so
// there is nothing to revert.
func (e *Executor) MassKick(p database.GuildPolicy, actorID, victimID string) []ActionResult {
	e.notif.Warn(p.LogChannelID, "AntiNuke Warning",
		fmt.Sprintf("%s has triggered the antinuke system, last kicked user: %s",
			notifier.Mention(actorID), notifier.Mention(victimID)))

	res := e.banActor(p, actorID, "AntiNuke Alert - Mass kick detected", "trying to mass kick members")

	logging.Info("[EXEC] mass_kick correction | guild=%s actor=%s victim=%s", p.GuildID, actorID, victimID)
	return []ActionResult{res}
}

// MassDelete bans the actor and restores every ledgered channel once,
// then schedules the ledger clear after the grace delay.
func (e *Executor) MassDelete(p database.GuildPolicy, actorID, lastChannelName string) []ActionResult {
	results := make([]ActionResult, 0, 4)

	results = append(results, e.banActor(p, actorID, "AntiNuke Alert - Mass delete detected", "trying to mass delete channels"))

	e.notif.Warn(p.LogChannelID, "AntiNuke Warning",
		fmt.Sprintf("%s has triggered the antinuke system, last deleted channel: **%s**",
			notifier.Mention(actorID), lastChannelName))

	results = append(results, e.restoreChannels(p, actorID)...)

	e.ledger.ScheduleClear(p.GuildID, e.grace)

	logging.Info("[EXEC] mass_delete correction | guild=%s actor=%s", p.GuildID, actorID)
	return results
}

// MassPing deletes the offending message and applies a one-hour timeout
// after a best-effort DM. A permission failure marks the author as
// unmoderatable so the engine stops retrying them.
func (e *Executor) MassPing(p database.GuildPolicy, actorID, guildName, channelID, messageID, content string) []ActionResult {
	results := make([]ActionResult, 0, 2)

	del := result("delete_message", messageID, e.api.ChannelMessageDelete(channelID, messageID))
	results = append(results, del)

	e.notif.Warn(p.LogChannelID, "AntiSpam Warning",
		fmt.Sprintf("%s has triggered the antispam system, last message: `%s`",
			notifier.Mention(actorID), content))

	if e.unmod.Contains(actorID) {
		return results
	}

	e.notif.DirectMessage(actorID, "You have been muted",
		fmt.Sprintf("You have been muted for an hour in **%s** for mass pinging", guildName),
		notifier.ColorAlert)

	until := time.Now().Add(pingTimeout)
	mute := result("timeout_actor", actorID, e.api.GuildMemberTimeout(p.GuildID, actorID, &until))
	results = append(results, mute)

	switch mute.Outcome {
	case OutcomeSuccess:
		e.notif.Alert(p.LogChannelID, "User Muted",
			fmt.Sprintf("%s has been muted for mass pinging", notifier.Mention(actorID)))
	case OutcomePermissionDenied:
		e.unmod.Mark(actorID)
		e.notif.Alert(p.LogChannelID, "Unable to mute user",
			fmt.Sprintf("%s could not be muted for mass pinging", notifier.Mention(actorID)))
	default:
		e.notif.Alert(p.LogChannelID, "Unable to mute user",
			fmt.Sprintf("%s could not be muted (%s)", notifier.Mention(actorID), mute.Outcome))
	}

	logging.Info("[EXEC] mass_ping correction | guild=%s actor=%s", p.GuildID, actorID)
	return results
}

// WebhookSpam deletes the spamming message and the webhook behind it.
func (e *Executor) WebhookSpam(p database.GuildPolicy, webhookID, channelID, messageID, content string) []ActionResult {
	results := make([]ActionResult, 0, 2)

	del := result("delete_message", messageID, e.api.ChannelMessageDelete(channelID, messageID))
	results = append(results, del)

	hook := result("delete_webhook", webhookID, e.api.WebhookDelete(webhookID))
	results = append(results, hook)

	if hook.OK() {
		e.notif.Success(p.LogChannelID, "AntiSpam Warning",
			fmt.Sprintf("Webhook **%s** has been deleted for spamming", webhookID))
	} else {
		e.notif.Alert(p.LogChannelID, "AntiSpam Warning",
			fmt.Sprintf("Unable to delete webhook **%s** for spamming, please delete it manually", webhookID))
	}

	e.notif.Warn(p.LogChannelID, "AntiSpam Warning",
		fmt.Sprintf("Webhook **%s** has triggered the antispam system, last message: `%s`", webhookID, content))

	logging.Info("[EXEC] webhook_spam correction | guild=%s webhook=%s", p.GuildID, webhookID)
	return results
}

// DangerousRoleCreate deletes a freshly created administrator role.
func (e *Executor) DangerousRoleCreate(p database.GuildPolicy, actorID, roleID string) []ActionResult {
	res := result("delete_role", roleID, e.api.GuildRoleDelete(p.GuildID, roleID))

	if res.OK() {
		e.notif.Alert(p.LogChannelID, "AntiNuke Alert",
			fmt.Sprintf("%s tried to create a dangerous role!", notifier.Mention(actorID)))
	} else {
		e.notif.Alert(p.LogChannelID, "Unable to delete role",
			fmt.Sprintf("%s created a dangerous role, but I was unable to delete it", notifier.Mention(actorID)))
	}

	logging.Info("[EXEC] danger_perms correction (role create) | guild=%s actor=%s role=%s", p.GuildID, actorID, roleID)
	return []ActionResult{res}
}

// DangerousRoleUpdate reverts a role's permission bits to their value
// before the escalation.
func (e *Executor) DangerousRoleUpdate(p database.GuildPolicy, actorID, roleID string, previousPerms int64) []ActionResult {
	_, err := e.api.GuildRoleEdit(p.GuildID, roleID, &discordgo.RoleParams{
		Permissions: &previousPerms,
	})
	res := result("revert_role", roleID, err)

	e.notif.Alert(p.LogChannelID, "AntiNuke Alert",
		fmt.Sprintf("%s tried to give <@&%s> dangerous permissions!", notifier.Mention(actorID), roleID))

	if res.OK() {
		e.notif.Success(p.LogChannelID, "Role Changes Reverted",
			fmt.Sprintf("<@&%s> has been reverted to its previous permissions!", roleID))
	} else {
		e.notif.Alert(p.LogChannelID, "Unable to revert role",
			fmt.Sprintf("<@&%s> could not be reverted (%s)", roleID, res.Outcome))
	}

	logging.Info("[EXEC] danger_perms correction (role update) | guild=%s actor=%s role=%s", p.GuildID, actorID, roleID)
	return []ActionResult{res}
}

// UnauthorizedBot kicks an unverified, unauthorized bot that joined.
func (e *Executor) UnauthorizedBot(p database.GuildPolicy, botID string) []ActionResult {
	e.notif.Alert(p.LogChannelID, "Unauthorized bot tried to join",
		fmt.Sprintf("%s tried to join the guild, but it's not verified or authorized", notifier.Mention(botID)))

	res := result("kick_bot", botID, e.api.GuildMemberDeleteWithReason(p.GuildID, botID, "Unauthorized bot"))
	if !res.OK() {
		e.notif.Alert(p.LogChannelID, "Unable to kick bot",
			fmt.Sprintf("%s could not be kicked (%s)", notifier.Mention(botID), res.Outcome))
	}

	logging.Info("[EXEC] unauthorized_bot correction | guild=%s bot=%s", p.GuildID, botID)
	return []ActionResult{res}
}
