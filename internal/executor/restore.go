package executor

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"potato-guard/internal/database"
	"potato-guard/internal/logging"
	"potato-guard/internal/notifier"
	"potato-guard/internal/state"
)

// restoreChannels recreates every ledgered deleted channel with its
// original settings and position, posting a notice in each restored
// channel. The entries are drained from the ledger under its lock, so
// a second trip inside the window cannot replay them; per-channel
// failures are reported and the loop continues.
func (e *Executor) restoreChannels(p database.GuildPolicy, actorID string) []ActionResult {
	snaps := e.ledger.Take(p.GuildID)
	results := make([]ActionResult, 0, len(snaps))

	for _, snap := range snaps {
		res := e.restoreOne(p, actorID, snap)
		results = append(results, res)

		if !res.OK() {
			e.notif.Alert(p.LogChannelID, "Error",
				fmt.Sprintf("An error occurred while trying to restore channel **%s** (%s)", snap.Name, res.Outcome))
		}
	}

	return results
}

func (e *Executor) restoreOne(p database.GuildPolicy, actorID string, snap state.ChannelSnapshot) ActionResult {
	created, err := e.api.GuildChannelCreateComplex(p.GuildID, discordgo.GuildChannelCreateData{
		Name:                 snap.Name,
		Type:                 snap.Type,
		Topic:                snap.Topic,
		Bitrate:              snap.Bitrate,
		UserLimit:            snap.UserLimit,
		RateLimitPerUser:     snap.RateLimitPerUser,
		PermissionOverwrites: snap.PermissionOverwrites,
		ParentID:             snap.ParentID,
		NSFW:                 snap.NSFW,
	})
	if err != nil {
		return result("restore_channel", snap.Name, err)
	}

	e.notif.Success(p.LogChannelID, "Channel Restored",
		fmt.Sprintf("<#%s> has been restored!", created.ID))

	e.notif.Alert(created.ID, "This channel was nuked",
		fmt.Sprintf("<#%s> was nuked by %s, channel is restored but message log is gone",
			created.ID, notifier.Mention(actorID)))

	// Creation appends at the bottom; move it back where it was.
	position := snap.Position
	if _, err := e.api.ChannelEditComplex(created.ID, &discordgo.ChannelEdit{
		Position: &position,
	}); err != nil {
		logging.Warn("[EXEC] Failed to reposition restored channel %s: %v", created.ID, err)
	}

	return result("restore_channel", snap.Name, nil)
}
