package executor

import (
	"errors"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"potato-guard/internal/dispatcher"
)

// Outcome classifies a single platform-side mutation. Remediation never
// retries; the outcome of the one attempt is reported and processing
// moves on.
type Outcome uint8

const (
	OutcomeSuccess Outcome = iota
	OutcomePermissionDenied
	OutcomeNotFound
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomePermissionDenied:
		return "permission_denied"
	case OutcomeNotFound:
		return "not_found"
	default:
		return "failed"
	}
}

// ActionResult records one corrective step against one target.
type ActionResult struct {
	Action  string
	Target  string
	Outcome Outcome
	Err     error
}

func (r ActionResult) OK() bool {
	return r.Outcome == OutcomeSuccess
}

func result(action, target string, err error) ActionResult {
	return ActionResult{
		Action:  action,
		Target:  target,
		Outcome: classify(err),
		Err:     err,
	}
}

// classify maps a platform error onto the outcome taxonomy.
func classify(err error) Outcome {
	if err == nil {
		return OutcomeSuccess
	}
	if errors.Is(err, dispatcher.ErrForbidden) {
		return OutcomePermissionDenied
	}

	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		switch restErr.Response.StatusCode {
		case http.StatusForbidden:
			return OutcomePermissionDenied
		case http.StatusNotFound:
			return OutcomeNotFound
		}
	}
	return OutcomeFailed
}
