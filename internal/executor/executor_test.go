package executor

import (
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"potato-guard/internal/database"
	"potato-guard/internal/notifier"
	"potato-guard/internal/state"
)

func restErr(status int) error {
	return &discordgo.RESTError{Response: &http.Response{StatusCode: status}}
}

type fakeAPI struct {
	unbans       []string
	kicks        []string
	timeouts     []string
	deletedMsgs  []string
	deletedHooks []string
	deletedRoles []string
	editedRoles  map[string]int64
	created      []discordgo.GuildChannelCreateData
	repositioned map[string]int

	timeoutErr error
	createErr  error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		editedRoles:  make(map[string]int64),
		repositioned: make(map[string]int),
	}
}

func (f *fakeAPI) GuildBanDelete(guildID, userID string, options ...discordgo.RequestOption) error {
	f.unbans = append(f.unbans, userID)
	return nil
}

func (f *fakeAPI) GuildMemberDeleteWithReason(guildID, userID, reason string, options ...discordgo.RequestOption) error {
	f.kicks = append(f.kicks, userID)
	return nil
}

func (f *fakeAPI) GuildMemberTimeout(guildID, userID string, until *time.Time, options ...discordgo.RequestOption) error {
	if f.timeoutErr != nil {
		return f.timeoutErr
	}
	f.timeouts = append(f.timeouts, userID)
	return nil
}

func (f *fakeAPI) GuildRoleDelete(guildID, roleID string, options ...discordgo.RequestOption) error {
	f.deletedRoles = append(f.deletedRoles, roleID)
	return nil
}

func (f *fakeAPI) GuildRoleEdit(guildID, roleID string, data *discordgo.RoleParams, options ...discordgo.RequestOption) (*discordgo.Role, error) {
	if data.Permissions != nil {
		f.editedRoles[roleID] = *data.Permissions
	}
	return &discordgo.Role{ID: roleID}, nil
}

func (f *fakeAPI) ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error {
	f.deletedMsgs = append(f.deletedMsgs, messageID)
	return nil
}

func (f *fakeAPI) WebhookDelete(webhookID string, options ...discordgo.RequestOption) error {
	f.deletedHooks = append(f.deletedHooks, webhookID)
	return nil
}

func (f *fakeAPI) GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, data)
	return &discordgo.Channel{ID: "new-" + data.Name, GuildID: guildID}, nil
}

func (f *fakeAPI) ChannelEditComplex(channelID string, data *discordgo.ChannelEdit, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	if data.Position != nil {
		f.repositioned[channelID] = *data.Position
	}
	return &discordgo.Channel{ID: channelID}, nil
}

type fakePenalizer struct {
	banned []string
	kicked []string
	banErr error
}

func (f *fakePenalizer) Ban(guildID, userID, reason string) error {
	if f.banErr != nil {
		return f.banErr
	}
	f.banned = append(f.banned, userID)
	return nil
}

func (f *fakePenalizer) Kick(guildID, userID, reason string) error {
	f.kicked = append(f.kicked, userID)
	return nil
}

type fakeSender struct {
	embeds []*discordgo.MessageEmbed
	dms    int
}

func (f *fakeSender) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.embeds = append(f.embeds, embed)
	return &discordgo.Message{}, nil
}

func (f *fakeSender) UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.dms++
	return &discordgo.Channel{ID: "dm-" + recipientID}, nil
}

func (f *fakeSender) titles() []string {
	out := make([]string, len(f.embeds))
	for n, e := range f.embeds {
		out[n] = e.Title
	}
	return out
}

func testPolicy() database.GuildPolicy {
	p := database.NewGuildPolicy("g1")
	p.LogChannelID = "log-channel"
	return *p
}

func newTestExecutor(api *fakeAPI, pen *fakePenalizer, sender *fakeSender) (*Executor, *state.Ledger, *state.Unmoderatable) {
	ledger := state.NewLedger()
	unmod := state.NewUnmoderatable()
	exec := New(api, pen, notifier.New(sender), ledger, unmod, 10*time.Millisecond)
	return exec, ledger, unmod
}

func TestMassBanRevertsVictimAndBansActor(t *testing.T) {
	api, pen, sender := newFakeAPI(), &fakePenalizer{}, &fakeSender{}
	exec, _, _ := newTestExecutor(api, pen, sender)

	results := exec.MassBan(testPolicy(), "attacker", "victim")

	require.Len(t, results, 2)
	assert.True(t, results[0].OK())
	assert.True(t, results[1].OK())
	assert.Equal(t, []string{"victim"}, api.unbans)
	assert.Equal(t, []string{"attacker"}, pen.banned)
	assert.Contains(t, sender.titles(), "AntiNuke Warning")
	assert.Contains(t, sender.titles(), "User Banned")
}

func TestMassBanReportsPenaltyFailure(t *testing.T) {
	api, sender := newFakeAPI(), &fakeSender{}
	pen := &fakePenalizer{banErr: restErr(http.StatusForbidden)}
	exec, _, _ := newTestExecutor(api, pen, sender)

	results := exec.MassBan(testPolicy(), "attacker", "victim")

	require.Len(t, results, 2)
	assert.Equal(t, OutcomePermissionDenied, results[1].Outcome)
	assert.Contains(t, sender.titles(), "Unable to ban user")
}

func TestMassKickBansActor(t *testing.T) {
	api, pen, sender := newFakeAPI(), &fakePenalizer{}, &fakeSender{}
	exec, _, _ := newTestExecutor(api, pen, sender)

	results := exec.MassKick(testPolicy(), "attacker", "victim")

	require.Len(t, results, 1)
	assert.True(t, results[0].OK())
	assert.Equal(t, []string{"attacker"}, pen.banned)
	// Nothing to revert for a kick.
	assert.Empty(t, api.unbans)
}

func TestMassDeleteRestoresLedgeredChannels(t *testing.T) {
	api, pen, sender := newFakeAPI(), &fakePenalizer{}, &fakeSender{}
	exec, ledger, _ := newTestExecutor(api, pen, sender)

	ledger.Append("g1", state.ChannelSnapshot{
		ID: "c1", GuildID: "g1", Name: "general", Position: 2,
		Type: discordgo.ChannelTypeGuildText, Topic: "chat",
	})
	ledger.Append("g1", state.ChannelSnapshot{
		ID: "c2", GuildID: "g1", Name: "rules", Position: 0,
		Type: discordgo.ChannelTypeGuildText,
	})

	results := exec.MassDelete(testPolicy(), "attacker", "rules")

	require.Len(t, results, 3)
	assert.Equal(t, []string{"attacker"}, pen.banned)
	require.Len(t, api.created, 2)
	assert.Equal(t, "general", api.created[0].Name)
	assert.Equal(t, "chat", api.created[0].Topic)
	assert.Equal(t, 2, api.repositioned["new-general"])
	assert.Contains(t, sender.titles(), "Channel Restored")
	assert.Contains(t, sender.titles(), "This channel was nuked")

	// Restoration drains the ledger so the snapshots cannot be replayed.
	assert.Zero(t, ledger.Len("g1"))

	// Entries ledgered while the restore was running are swept by the
	// grace-delay clear.
	ledger.Append("g1", state.ChannelSnapshot{ID: "c3", GuildID: "g1", Name: "late"})
	assert.Eventually(t, func() bool {
		return ledger.Len("g1") == 0
	}, time.Second, 5*time.Millisecond)
}

func TestMassDeleteDoesNotRestoreTwice(t *testing.T) {
	api, pen, sender := newFakeAPI(), &fakePenalizer{}, &fakeSender{}
	exec, ledger, _ := newTestExecutor(api, pen, sender)

	ledger.Append("g1", state.ChannelSnapshot{ID: "c1", GuildID: "g1", Name: "general"})
	exec.MassDelete(testPolicy(), "attacker", "general")
	require.Len(t, api.created, 1)

	// A second trip inside the window restores only channels deleted
	// since the first one, never the already restored set.
	ledger.Append("g1", state.ChannelSnapshot{ID: "c2", GuildID: "g1", Name: "rules"})
	exec.MassDelete(testPolicy(), "attacker", "rules")

	require.Len(t, api.created, 2)
	assert.Equal(t, "rules", api.created[1].Name)
}

func TestRestoreContinuesPastFailures(t *testing.T) {
	api, pen, sender := newFakeAPI(), &fakePenalizer{}, &fakeSender{}
	exec, ledger, _ := newTestExecutor(api, pen, sender)
	api.createErr = restErr(http.StatusForbidden)

	ledger.Append("g1", state.ChannelSnapshot{ID: "c1", GuildID: "g1", Name: "a"})
	ledger.Append("g1", state.ChannelSnapshot{ID: "c2", GuildID: "g1", Name: "b"})

	results := exec.MassDelete(testPolicy(), "attacker", "b")

	require.Len(t, results, 3)
	assert.Equal(t, OutcomePermissionDenied, results[1].Outcome)
	assert.Equal(t, OutcomePermissionDenied, results[2].Outcome)
}

func TestMassPingMutesActor(t *testing.T) {
	api, pen, sender := newFakeAPI(), &fakePenalizer{}, &fakeSender{}
	exec, _, _ := newTestExecutor(api, pen, sender)

	results := exec.MassPing(testPolicy(), "spammer", "My Guild", "chan", "msg", "@everyone hi")

	require.Len(t, results, 2)
	assert.Equal(t, []string{"msg"}, api.deletedMsgs)
	assert.Equal(t, []string{"spammer"}, api.timeouts)
	assert.Equal(t, 1, sender.dms)
	assert.Contains(t, sender.titles(), "User Muted")
}

func TestMassPingPermissionFailureMarksUnmoderatable(t *testing.T) {
	api, pen, sender := newFakeAPI(), &fakePenalizer{}, &fakeSender{}
	exec, _, unmod := newTestExecutor(api, pen, sender)
	api.timeoutErr = restErr(http.StatusForbidden)

	exec.MassPing(testPolicy(), "spammer", "My Guild", "chan", "msg1", "@everyone")

	assert.True(t, unmod.Contains("spammer"))
	assert.Contains(t, sender.titles(), "Unable to mute user")

	// Marked actors still get their message deleted but no further
	// DM or mute attempts.
	dmsBefore := sender.dms
	results := exec.MassPing(testPolicy(), "spammer", "My Guild", "chan", "msg2", "@everyone")
	require.Len(t, results, 1)
	assert.Equal(t, []string{"msg1", "msg2"}, api.deletedMsgs)
	assert.Equal(t, dmsBefore, sender.dms)
}

func TestWebhookSpamDeletesMessageAndWebhook(t *testing.T) {
	api, pen, sender := newFakeAPI(), &fakePenalizer{}, &fakeSender{}
	exec, _, _ := newTestExecutor(api, pen, sender)

	results := exec.WebhookSpam(testPolicy(), "hook1", "chan", "msg", "@everyone nitro")

	require.Len(t, results, 2)
	assert.Equal(t, []string{"msg"}, api.deletedMsgs)
	assert.Equal(t, []string{"hook1"}, api.deletedHooks)
}

func TestDangerousRoleCreateDeletesRole(t *testing.T) {
	api, pen, sender := newFakeAPI(), &fakePenalizer{}, &fakeSender{}
	exec, _, _ := newTestExecutor(api, pen, sender)

	results := exec.DangerousRoleCreate(testPolicy(), "attacker", "role1")

	require.Len(t, results, 1)
	assert.Equal(t, []string{"role1"}, api.deletedRoles)
}

func TestDangerousRoleUpdateRevertsPermissions(t *testing.T) {
	api, pen, sender := newFakeAPI(), &fakePenalizer{}, &fakeSender{}
	exec, _, _ := newTestExecutor(api, pen, sender)

	results := exec.DangerousRoleUpdate(testPolicy(), "attacker", "role1", 1024)

	require.Len(t, results, 1)
	assert.True(t, results[0].OK())
	assert.Equal(t, int64(1024), api.editedRoles["role1"])
	assert.Contains(t, sender.titles(), "Role Changes Reverted")
}

func TestUnauthorizedBotKicks(t *testing.T) {
	api, pen, sender := newFakeAPI(), &fakePenalizer{}, &fakeSender{}
	exec, _, _ := newTestExecutor(api, pen, sender)

	results := exec.UnauthorizedBot(testPolicy(), "bot1")

	require.Len(t, results, 1)
	assert.Equal(t, []string{"bot1"}, api.kicks)
}

func TestClassifyOutcomes(t *testing.T) {
	assert.Equal(t, OutcomeSuccess, classify(nil))
	assert.Equal(t, OutcomePermissionDenied, classify(restErr(http.StatusForbidden)))
	assert.Equal(t, OutcomeNotFound, classify(restErr(http.StatusNotFound)))
	assert.Equal(t, OutcomeFailed, classify(restErr(http.StatusInternalServerError)))
	assert.Equal(t, OutcomeFailed, classify(assert.AnError))
}
