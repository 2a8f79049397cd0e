package bot

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"potato-guard/internal/engine"
	"potato-guard/internal/logging"
	"potato-guard/internal/state"
)

// SetupEventHandlers wires gateway events into the detection engine.
// Handlers run off the read loop; anything that touches the REST API is
// pushed onto its own goroutine so a slow audit query never stalls
// event delivery.
func (s *Session) SetupEventHandlers(eng *engine.Engine, counters *state.Counters) {
	logging.Info("Setting up Discord event handlers...")

	s.discord.AddHandler(func(sess *discordgo.Session, r *discordgo.Ready) {
		logging.Info("Bot ready! Connected as %s across %d guilds", r.User.Username, len(r.Guilds))
		// A reconnect may have missed events; stale counts from before
		// the gap would misattribute risk.
		counters.ClearAll()
	})

	s.discord.AddHandler(func(sess *discordgo.Session, g *discordgo.GuildCreate) {
		logging.Info("Guild loaded: %s (ID: %s)", g.Name, g.ID)
		eng.SeedRoles(g.Roles)
	})

	s.discord.AddHandler(func(sess *discordgo.Session, b *discordgo.GuildBanAdd) {
		if b.GuildID == "" || b.User == nil {
			return
		}
		go eng.OnMemberBan(context.Background(), b.GuildID, b.User.ID)
	})

	s.discord.AddHandler(func(sess *discordgo.Session, m *discordgo.GuildMemberRemove) {
		if m.GuildID == "" || m.User == nil {
			return
		}
		go eng.OnMemberRemove(m.GuildID, m.User.ID)
	})

	s.discord.AddHandler(func(sess *discordgo.Session, c *discordgo.ChannelDelete) {
		if c.GuildID == "" {
			return
		}
		go eng.OnChannelDelete(c.Channel)
	})

	s.discord.AddHandler(func(sess *discordgo.Session, r *discordgo.GuildRoleCreate) {
		if r.GuildID == "" || r.Role == nil {
			return
		}
		go eng.OnRoleCreate(r.GuildID, r.Role)
	})

	s.discord.AddHandler(func(sess *discordgo.Session, r *discordgo.GuildRoleUpdate) {
		if r.GuildID == "" || r.Role == nil {
			return
		}
		go eng.OnRoleUpdate(r.GuildID, r.Role)
	})

	s.discord.AddHandler(func(sess *discordgo.Session, m *discordgo.MessageCreate) {
		go eng.OnMessageCreate(m)
	})

	s.discord.AddHandler(func(sess *discordgo.Session, m *discordgo.GuildMemberAdd) {
		if m.GuildID == "" {
			return
		}
		go eng.OnMemberJoin(m.GuildID, m.Member)
	})

	logging.Info("Discord event handlers configured successfully")
}
