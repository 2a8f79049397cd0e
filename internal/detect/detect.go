package detect

// Kind identifies an abuse category tracked by the engine.
type Kind uint8

const (
	KindMassBan Kind = iota
	KindMassKick
	KindMassDelete
	KindMassPing
	KindWebhookSpam
	KindDangerPerms
	KindUnauthorizedBot
)

func (k Kind) String() string {
	switch k {
	case KindMassBan:
		return "mass_ban"
	case KindMassKick:
		return "mass_kick"
	case KindMassDelete:
		return "mass_delete"
	case KindMassPing:
		return "mass_ping"
	case KindWebhookSpam:
		return "webhook_spam"
	case KindDangerPerms:
		return "danger_perms"
	case KindUnauthorizedBot:
		return "unauthorized_bot"
	default:
		return "unknown"
	}
}

// Thresholds are strict: a count equal to the threshold does not trip,
// count > threshold does. Binary kinds (danger_perms, unauthorized_bot)
// have threshold 0 and trip on every occurrence.
const (
	BanThreshold     = 3
	KickThreshold    = 5
	DeleteThreshold  = 2
	PingThreshold    = 2
	WebhookThreshold = 40
)

// BroadcastMentionWeight is the extra weight a webhook message carrying an
// @everyone/@here mention adds on top of the normal +1.
const BroadcastMentionWeight = 11

// Verdict is the outcome of evaluating one event against the policy.
type Verdict uint8

const (
	// VerdictAllow means no action and no notification.
	VerdictAllow Verdict = iota
	// VerdictWarn means a log-channel warning only (whitelisted actor).
	VerdictWarn
	// VerdictCorrect means the corrective action executor runs.
	VerdictCorrect
)

func (v Verdict) String() string {
	switch v {
	case VerdictAllow:
		return "allow"
	case VerdictWarn:
		return "warn"
	case VerdictCorrect:
		return "correct"
	default:
		return "unknown"
	}
}

// Threshold returns the trip threshold for a kind. Binary kinds return 0.
func Threshold(kind Kind) uint32 {
	switch kind {
	case KindMassBan:
		return BanThreshold
	case KindMassKick:
		return KickThreshold
	case KindMassDelete:
		return DeleteThreshold
	case KindMassPing:
		return PingThreshold
	case KindWebhookSpam:
		return WebhookThreshold
	default:
		return 0
	}
}

// Evaluate is the pure decision function: (kind, actor count, policy
// toggle, exemption) -> verdict.
//
// A disabled toggle suppresses everything, including the warning. A
// whitelisted actor past the threshold is downgraded to a warning. Binary
// kinds trip on count >= 1.
func Evaluate(kind Kind, count uint32, enabled, whitelisted bool) Verdict {
	if !enabled {
		return VerdictAllow
	}

	if count <= Threshold(kind) {
		return VerdictAllow
	}

	if whitelisted {
		return VerdictWarn
	}

	return VerdictCorrect
}
