package notifier

import (
	"time"

	"github.com/bwmarrin/discordgo"

	"potato-guard/internal/logging"
)

// Embed colors for the three notification grades.
const (
	ColorWarning = 0xFDFD96
	ColorAlert   = 0xFF6961
	ColorSuccess = 0x77DD77
)

// Sender is the message surface the notifier needs, satisfied by
// *discordgo.Session.
type Sender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

// Notifier posts structured notifications to a guild's configured log
// channel and best-effort direct messages to penalized actors. Every send
// is fire-and-forget: a guild with no log channel, or a user with closed
// DMs, silently gets nothing.
type Notifier struct {
	session Sender
}

func New(session Sender) *Notifier {
	return &Notifier{session: session}
}

func (n *Notifier) send(channelID, title, description string, color int) {
	if n.session == nil || channelID == "" {
		return
	}

	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
	}

	if _, err := n.session.ChannelMessageSendEmbed(channelID, embed); err != nil {
		logging.Warn("[NOTIFY] Failed to send %q to channel %s: %v", title, channelID, err)
	}
}

// Warn posts a yellow notice (exemption short-circuits, spam trips).
func (n *Notifier) Warn(channelID, title, description string) {
	n.send(channelID, title, description, ColorWarning)
}

// Alert posts a red notice (corrective actions and failures to act).
func (n *Notifier) Alert(channelID, title, description string) {
	n.send(channelID, title, description, ColorAlert)
}

// Success posts a green notice (reverts and restorations).
func (n *Notifier) Success(channelID, title, description string) {
	n.send(channelID, title, description, ColorSuccess)
}

// DirectMessage DMs a user. Undeliverable DMs are swallowed; the caller
// never learns or cares.
func (n *Notifier) DirectMessage(userID, title, description string, color int) {
	if n.session == nil {
		return
	}

	channel, err := n.session.UserChannelCreate(userID)
	if err != nil {
		return
	}

	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
	}
	n.session.ChannelMessageSendEmbed(channel.ID, embed)
}

// Mention renders a user mention with its raw ID alongside.
func Mention(userID string) string {
	return "<@" + userID + "> (`" + userID + "`)"
}
