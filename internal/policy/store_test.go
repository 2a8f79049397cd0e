package policy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"potato-guard/internal/database"
)

type fakeBackend struct {
	policies map[string]*database.GuildPolicy
	users    map[string]*database.UserRecord
	getErr   error
	upserts  int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		policies: make(map[string]*database.GuildPolicy),
		users:    make(map[string]*database.UserRecord),
	}
}

func (f *fakeBackend) GetGuildPolicy(guildID string) (*database.GuildPolicy, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.policies[guildID], nil
}

func (f *fakeBackend) UpsertGuildPolicy(p *database.GuildPolicy) error {
	f.upserts++
	cp := *p
	f.policies[p.GuildID] = &cp
	return nil
}

func (f *fakeBackend) GetUserRecord(guildID, userID string) (*database.UserRecord, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.users[guildID+":"+userID], nil
}

func (f *fakeBackend) UpsertUserRecord(r *database.UserRecord) error {
	cp := *r
	f.users[r.GuildID+":"+r.UserID] = &cp
	return nil
}

func (f *fakeBackend) ListWhitelisted(guildID string) ([]string, error) {
	var ids []string
	for _, r := range f.users {
		if r.GuildID == guildID && r.Whitelisted {
			ids = append(ids, r.UserID)
		}
	}
	return ids, nil
}

func (f *fakeBackend) ListTrusted(guildID string) ([]string, error) {
	var ids []string
	for _, r := range f.users {
		if r.GuildID == guildID && r.Trusted {
			ids = append(ids, r.UserID)
		}
	}
	return ids, nil
}

func TestPolicyLazyDefaultsWithoutPersisting(t *testing.T) {
	db := newFakeBackend()
	s := NewStore(db)

	p := s.Policy("g1")

	assert.Equal(t, "g1", p.GuildID)
	assert.False(t, p.Flags.AntiMassBan)
	assert.False(t, p.Lockdown)
	// A read never writes the document.
	assert.Equal(t, 0, db.upserts)
}

func TestMutatePersistsFullDocument(t *testing.T) {
	db := newFakeBackend()
	s := NewStore(db)

	err := s.SetFlag("g1", func(f *database.AntinukeFlags) { f.AntiMassBan = true })
	require.NoError(t, err)

	assert.Equal(t, 1, db.upserts)
	assert.True(t, s.Policy("g1").Flags.AntiMassBan)
	assert.True(t, db.policies["g1"].Flags.AntiMassBan)
}

func TestPolicyReturnsCopy(t *testing.T) {
	db := newFakeBackend()
	s := NewStore(db)
	require.NoError(t, s.SetLogChannel("g1", "log-channel"))

	p := s.Policy("g1")
	p.LogChannelID = "tampered"

	assert.Equal(t, "log-channel", s.Policy("g1").LogChannelID)
}

func TestPolicyBackendFailureDefaultsDisabled(t *testing.T) {
	db := newFakeBackend()
	db.getErr = errors.New("disk gone")
	s := NewStore(db)

	p := s.Policy("g1")

	// A document that cannot be read behaves as all-disabled.
	assert.False(t, p.Flags.AntiMassBan)
	assert.False(t, p.Flags.AntiDangerPerms)
}

func TestAuthorizeBot(t *testing.T) {
	db := newFakeBackend()
	s := NewStore(db)

	added, err := s.AuthorizeBot("g1", "bot1")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.AuthorizeBot("g1", "bot1")
	require.NoError(t, err)
	assert.False(t, added)

	p := s.Policy("g1")
	assert.True(t, p.IsBotAuthorized("bot1"))
	assert.False(t, p.IsBotAuthorized("bot2"))
}

func TestSetLockdownRoundTrip(t *testing.T) {
	db := newFakeBackend()
	s := NewStore(db)

	saved := map[string]database.OverwriteSnapshot{
		"c1": {Allow: 1024, Deny: 2048, Existed: true},
		"c2": {Existed: false},
	}
	require.NoError(t, s.SetLockdown("g1", true, saved))

	p := s.Policy("g1")
	assert.True(t, p.Lockdown)
	assert.Equal(t, saved, p.SavedOverwrites)

	require.NoError(t, s.SetLockdown("g1", false, nil))
	p = s.Policy("g1")
	assert.False(t, p.Lockdown)
	assert.Nil(t, p.SavedOverwrites)
}

func TestWhitelistAndTrustedFlags(t *testing.T) {
	db := newFakeBackend()
	s := NewStore(db)

	assert.False(t, s.IsWhitelisted("g1", "u1"))
	require.NoError(t, s.SetWhitelisted("g1", "u1", true))
	assert.True(t, s.IsWhitelisted("g1", "u1"))
	// Whitelist does not imply trusted.
	assert.False(t, s.IsTrusted("g1", "u1"))

	require.NoError(t, s.SetTrusted("g1", "u2", true))
	assert.True(t, s.IsTrusted("g1", "u2"))

	wl, err := s.ListWhitelisted("g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, wl)
}
