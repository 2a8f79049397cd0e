package dispatcher

import (
	"fmt"
	"time"

	"github.com/valyala/fasthttp"

	"potato-guard/internal/logging"
)

// Penalizer applies actor penalties over the REST fast path. The engine
// makes exactly one attempt per penalty; failures are reported, never
// retried.
type Penalizer interface {
	Ban(guildID, userID, reason string) error
	Kick(guildID, userID, reason string) error
}

// ErrForbidden marks a penalty the bot lacked permission to apply.
var ErrForbidden = fmt.Errorf("missing permissions")

// RESTPenalizer issues ban/kick calls directly through pooled fasthttp
// clients rather than the gateway session's HTTP client. Penalties are
// the latency-critical half of a correction: the faster the offending
// actor loses access, the less damage the window holds.
type RESTPenalizer struct {
	pool    *HTTPPool
	token   string
	baseURL string
}

func NewRESTPenalizer(pool *HTTPPool, token, baseURL string) *RESTPenalizer {
	return &RESTPenalizer{
		pool:    pool,
		token:   token,
		baseURL: baseURL,
	}
}

// Ban bans a user, attaching the reason as the audit-log header.
func (p *RESTPenalizer) Ban(guildID, userID, reason string) error {
	url := fmt.Sprintf("%s/guilds/%s/bans/%s", p.baseURL, guildID, userID)
	return p.execute("PUT", url, `{"delete_message_seconds":0}`, reason, "ban", userID, guildID)
}

// Kick removes a member from the guild.
func (p *RESTPenalizer) Kick(guildID, userID, reason string) error {
	url := fmt.Sprintf("%s/guilds/%s/members/%s", p.baseURL, guildID, userID)
	return p.execute("DELETE", url, "", reason, "kick", userID, guildID)
}

func (p *RESTPenalizer) execute(method, url, body, reason, action, userID, guildID string) error {
	start := time.Now()

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(method)
	req.Header.Set("Authorization", "Bot "+p.token)
	req.Header.Set("X-Audit-Log-Reason", reason)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
		req.SetBodyString(body)
	}

	client := p.pool.GetClient()
	if err := client.DoTimeout(req, resp, 2*time.Second); err != nil {
		return fmt.Errorf("%s request failed: %w", action, err)
	}

	status := resp.StatusCode()
	elapsed := time.Since(start).Milliseconds()

	switch {
	case status >= 200 && status < 300:
		logging.Info("[DISPATCH] %s executed | user=%s guild=%s | %d ms | status=%d",
			action, userID, guildID, elapsed, status)
		return nil
	case status == fasthttp.StatusForbidden:
		logging.Warn("[DISPATCH] %s forbidden | user=%s guild=%s | status=%d",
			action, userID, guildID, status)
		return ErrForbidden
	default:
		logging.Error("[DISPATCH] %s failed | user=%s guild=%s | %d ms | status=%d",
			action, userID, guildID, elapsed, status)
		return fmt.Errorf("%s failed with status %d", action, status)
	}
}
