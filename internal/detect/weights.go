package detect

import "strings"

// HasBroadcastMention reports whether a message body carries an
// @everyone/@here style mention. Matching is case-insensitive on the raw
// content, same as the upstream platform renders it.
func HasBroadcastMention(content string) bool {
	lower := strings.ToLower(content)
	return strings.Contains(lower, "@everyone") || strings.Contains(lower, "@here")
}

// WebhookMessageWeight returns how much a single webhook message adds to
// that webhook's spam counter: 1 normally, 1+BroadcastMentionWeight when
// the message notifies the whole channel.
func WebhookMessageWeight(content string) uint32 {
	if HasBroadcastMention(content) {
		return 1 + BroadcastMentionWeight
	}
	return 1
}

// PingMessageWeight returns how much a message adds to its author's
// mass-ping counter. Only authors who actually hold the mention-everyone
// permission can move the counter; role mentions weigh double.
func PingMessageWeight(roleMentions int, content string, canMentionEveryone bool) uint32 {
	if !canMentionEveryone {
		return 0
	}

	weight := uint32(roleMentions) * 2
	if HasBroadcastMention(content) {
		weight++
	}
	return weight
}
