package lockdown

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"potato-guard/internal/database"
	"potato-guard/internal/notifier"
	"potato-guard/internal/policy"
)

type overwriteCall struct {
	allow int64
	deny  int64
}

type fakeLockAPI struct {
	channels []*discordgo.Channel
	sets     map[string]overwriteCall
	deletes  []string
	kicks    []string
	kickErr  error
	setErr   error
}

func newFakeLockAPI(channels ...*discordgo.Channel) *fakeLockAPI {
	return &fakeLockAPI{
		channels: channels,
		sets:     make(map[string]overwriteCall),
	}
}

func (f *fakeLockAPI) GuildChannels(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error) {
	return f.channels, nil
}

func (f *fakeLockAPI) ChannelPermissionSet(channelID, targetID string, targetType discordgo.PermissionOverwriteType, allow, deny int64, options ...discordgo.RequestOption) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.sets[channelID] = overwriteCall{allow: allow, deny: deny}
	return nil
}

func (f *fakeLockAPI) ChannelPermissionDelete(channelID, targetID string, options ...discordgo.RequestOption) error {
	f.deletes = append(f.deletes, channelID)
	return nil
}

func (f *fakeLockAPI) GuildMemberDeleteWithReason(guildID, userID, reason string, options ...discordgo.RequestOption) error {
	if f.kickErr != nil {
		return f.kickErr
	}
	f.kicks = append(f.kicks, userID)
	return nil
}

type lockBackend struct {
	policies map[string]*database.GuildPolicy
}

func (b *lockBackend) GetGuildPolicy(guildID string) (*database.GuildPolicy, error) {
	return b.policies[guildID], nil
}

func (b *lockBackend) UpsertGuildPolicy(p *database.GuildPolicy) error {
	cp := *p
	b.policies[p.GuildID] = &cp
	return nil
}

func (b *lockBackend) GetUserRecord(guildID, userID string) (*database.UserRecord, error) {
	return nil, nil
}
func (b *lockBackend) UpsertUserRecord(r *database.UserRecord) error    { return nil }
func (b *lockBackend) ListWhitelisted(guildID string) ([]string, error) { return nil, nil }
func (b *lockBackend) ListTrusted(guildID string) ([]string, error)     { return nil, nil }

type nullSender struct{}

func (nullSender) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return &discordgo.Message{}, nil
}

func (nullSender) UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	return &discordgo.Channel{ID: "dm"}, nil
}

func textChannel(id string, overwrites ...*discordgo.PermissionOverwrite) *discordgo.Channel {
	return &discordgo.Channel{
		ID:                   id,
		Type:                 discordgo.ChannelTypeGuildText,
		PermissionOverwrites: overwrites,
	}
}

func newTestManager(api *fakeLockAPI) (*Manager, *policy.Store) {
	store := policy.NewStore(&lockBackend{policies: make(map[string]*database.GuildPolicy)})
	return NewManager(api, store, notifier.New(nullSender{})), store
}

func TestLockDeniesSendMessagesEverywhere(t *testing.T) {
	const guildID = "g1"
	existing := &discordgo.PermissionOverwrite{
		ID:    guildID,
		Type:  discordgo.PermissionOverwriteTypeRole,
		Allow: discordgo.PermissionSendMessages | discordgo.PermissionViewChannel,
		Deny:  discordgo.PermissionAddReactions,
	}
	api := newFakeLockAPI(
		textChannel("c1", existing),
		textChannel("c2"),
		&discordgo.Channel{ID: "v1", Type: discordgo.ChannelTypeGuildVoice},
	)
	m, store := newTestManager(api)

	require.NoError(t, m.Lock(guildID))

	// Voice channels are untouched, both text channels are denied.
	require.Len(t, api.sets, 2)
	assert.NotZero(t, api.sets["c1"].deny&discordgo.PermissionSendMessages)
	assert.Zero(t, api.sets["c1"].allow&discordgo.PermissionSendMessages)
	assert.NotZero(t, api.sets["c2"].deny&discordgo.PermissionSendMessages)

	p := store.Policy(guildID)
	assert.True(t, p.Lockdown)
	assert.Equal(t, database.OverwriteSnapshot{
		Allow:   existing.Allow,
		Deny:    existing.Deny,
		Existed: true,
	}, p.SavedOverwrites["c1"])
	assert.Equal(t, database.OverwriteSnapshot{}, p.SavedOverwrites["c2"])
}

func TestUnlockRestoresExactBits(t *testing.T) {
	const guildID = "g1"
	existing := &discordgo.PermissionOverwrite{
		ID:    guildID,
		Type:  discordgo.PermissionOverwriteTypeRole,
		Allow: discordgo.PermissionSendMessages,
		Deny:  discordgo.PermissionAddReactions,
	}
	api := newFakeLockAPI(textChannel("c1", existing), textChannel("c2"))
	m, store := newTestManager(api)

	require.NoError(t, m.Lock(guildID))
	require.NoError(t, m.Unlock(guildID))

	// c1 gets its original overwrite back bit-for-bit; c2 had none, so
	// the lockdown overwrite is deleted rather than zeroed.
	assert.Equal(t, overwriteCall{allow: existing.Allow, deny: existing.Deny}, api.sets["c1"])
	assert.Equal(t, []string{"c2"}, api.deletes)

	p := store.Policy(guildID)
	assert.False(t, p.Lockdown)
	assert.Nil(t, p.SavedOverwrites)
}

func TestLockPersistsSnapshotBeforeApplying(t *testing.T) {
	api := newFakeLockAPI(textChannel("c1"), textChannel("c2"))
	api.setErr = assert.AnError
	m, store := newTestManager(api)

	require.NoError(t, m.Lock("g1"))

	// Even with every overwrite apply failing, the locked state and the
	// snapshots are already durable, so unlock can run the repair.
	p := store.Policy("g1")
	assert.True(t, p.Lockdown)
	require.Len(t, p.SavedOverwrites, 2)
	assert.Empty(t, api.sets)

	api.setErr = nil
	require.NoError(t, m.Unlock("g1"))
	assert.False(t, store.Policy("g1").Lockdown)
}

func TestLockTwiceFails(t *testing.T) {
	api := newFakeLockAPI(textChannel("c1"))
	m, _ := newTestManager(api)

	require.NoError(t, m.Lock("g1"))
	assert.Error(t, m.Lock("g1"))
}

func TestUnlockWithoutLockFails(t *testing.T) {
	api := newFakeLockAPI()
	m, _ := newTestManager(api)

	assert.Error(t, m.Unlock("g1"))
}

func TestAdmitJoinKicksWhileLocked(t *testing.T) {
	api := newFakeLockAPI(textChannel("c1"))
	m, _ := newTestManager(api)

	// Unlocked guilds admit everyone.
	assert.False(t, m.AdmitJoin("g1", "visitor"))
	assert.Empty(t, api.kicks)

	require.NoError(t, m.Lock("g1"))

	assert.True(t, m.AdmitJoin("g1", "visitor"))
	assert.Equal(t, []string{"visitor"}, api.kicks)
}

func TestAdmitJoinReportsKickFailure(t *testing.T) {
	api := newFakeLockAPI(textChannel("c1"))
	m, _ := newTestManager(api)
	require.NoError(t, m.Lock("g1"))

	api.kickErr = assert.AnError
	assert.False(t, m.AdmitJoin("g1", "visitor"))
}
