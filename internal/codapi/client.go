// Package codapi is a minimal Call of Duty (papi-client) match history client
// implementing source.MatchSource.
package codapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/pable/squadstats/internal/logging"
	"github.com/pable/squadstats/internal/model"
	"github.com/pable/squadstats/internal/source"
)

// ssoCookie is set by the profile service on a successful login.
const ssoCookie = "ACT_SSO_COOKIE"

// Options configures a Client.
type Options struct {
	BaseURL           string // e.g. https://my.callofduty.com/api/papi-client
	ProfileURL        string // e.g. https://profile.callofduty.com
	Title             string // game title path segment, e.g. "mw"
	Timeout           time.Duration
	RequestsPerSecond float64
}

// Client talks to the papi-client API with a logged-in cookie session.
type Client struct {
	opts    Options
	http    *http.Client
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[[]byte]
}

var _ source.MatchSource = (*Client)(nil)

// NewClient returns a client with an empty session. Call Login before use.
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 2
	}
	jar, _ := cookiejar.New(nil)

	c := &Client{
		opts:    opts,
		http:    &http.Client{Timeout: opts.Timeout, Jar: jar},
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
	}
	c.cb = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "cod-api",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		// Five unavailable responses in a row means the provider is down;
		// later calls fail fast instead of each waiting for a timeout.
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Authentication and not-found responses say nothing about provider health.
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, source.ErrUnavailable)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	})
	return c
}

// Login establishes a session with the given credentials. Any failure is
// reported as source.ErrAuthentication.
func (c *Client) Login(ctx context.Context, user, password string) error {
	loginPage := strings.TrimRight(c.opts.ProfileURL, "/") + "/cod/login"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, loginPage, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: fetch login page: %v", source.ErrAuthentication, err)
	}
	io.Copy(io.Discard, resp.Body) //nolint:errcheck
	resp.Body.Close()

	csrf := c.cookie(loginPage, "XSRF-TOKEN")
	if csrf == "" {
		return fmt.Errorf("%w: no XSRF-TOKEN cookie from %s", source.ErrAuthentication, loginPage)
	}

	form := url.Values{
		"username":    {user},
		"password":    {password},
		"remember_me": {"true"},
		"_csrf":       {csrf},
	}
	doLogin := strings.TrimRight(c.opts.ProfileURL, "/") + "/do_login?new_SiteId=cod"
	req, err = http.NewRequestWithContext(ctx, http.MethodPost, doLogin, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err = c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: submit login: %v", source.ErrAuthentication, err)
	}
	io.Copy(io.Discard, resp.Body) //nolint:errcheck
	resp.Body.Close()

	if c.cookie(doLogin, ssoCookie) == "" {
		return fmt.Errorf("%w: login rejected for %s (HTTP %d)", source.ErrAuthentication, user, resp.StatusCode)
	}
	logging.Debug().Str("user", user).Msg("logged in")
	return nil
}

// ListRecentMatches returns up to limit of the player's most recent matches.
func (c *Client) ListRecentMatches(ctx context.Context, p model.Player, mode string, limit int) ([]source.MatchSummary, error) {
	var data matchesData
	if err := c.get(ctx, c.matchesPath(p, mode, 0, 0)+fmt.Sprintf("?limit=%d", limit), &data); err != nil {
		return nil, err
	}

	matches := data.Matches
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]source.MatchSummary, 0, len(matches))
	for i := range matches {
		m := matches[i]
		out = append(out, source.MatchSummary{Player: p, MatchID: m.MatchID, Detail: m})
	}
	return out, nil
}

// MatchDetails converts the match entry already carried by the summary.
func (c *Client) MatchDetails(_ context.Context, s source.MatchSummary) (model.MatchMetadata, error) {
	m, ok := s.Detail.(Match)
	if !ok {
		return model.MatchMetadata{}, fmt.Errorf("%w: no detail for match %s", source.ErrUnavailable, s.MatchID)
	}
	return model.MatchMetadata{
		MatchID: model.ParseMatchID(string(m.MatchID)),
		Start:   m.UTCStartSeconds,
		End:     m.UTCEndSeconds,
		Map:     m.Map,
		Mode:    m.Mode,
	}, nil
}

// StatsSummary returns the player's aggregated statistics over [start, end)
// keyed by mode bucket.
func (c *Client) StatsSummary(ctx context.Context, p model.Player, mode string, start, end int64) (map[string]source.ModeStats, error) {
	var data matchesData
	if err := c.get(ctx, c.matchesPath(p, mode, start, end), &data); err != nil {
		return nil, err
	}
	out := make(map[string]source.ModeStats, len(data.Summary))
	for bucket, stats := range numericBuckets(data.Summary) {
		out[bucket] = source.ModeStats(stats)
	}
	return out, nil
}

// matchesPath builds the match history path. start/end of 0 means "latest".
func (c *Client) matchesPath(p model.Player, mode string, start, end int64) string {
	return fmt.Sprintf("/crm/cod/v2/title/%s/platform/%s/gamer/%s/matches/%s/start/%d/end/%d/details",
		c.opts.Title, string(p.Platform), url.PathEscape(p.ID), mode, start, end)
}

// get performs a rate-limited, breaker-guarded GET and decodes the envelope's
// data into out.
func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	body, err := c.cb.Execute(func() ([]byte, error) {
		return c.fetch(ctx, path)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: GET %s: %v", source.ErrUnavailable, path, err)
	}
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("%w: GET %s: decode: %v", source.ErrUnavailable, path, err)
	}
	if env.Status != "success" {
		var e errorData
		_ = json.Unmarshal(env.Data, &e)
		if strings.Contains(strings.ToLower(e.Message), "not authenticated") {
			return fmt.Errorf("%w: GET %s: %s", source.ErrAuthentication, path, e.Message)
		}
		return fmt.Errorf("%w: GET %s: status=%s %s", source.ErrUnavailable, path, env.Status, e.Message)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: GET %s: decode data: %v", source.ErrUnavailable, path, err)
	}
	return nil
}

// fetch returns the raw response body, classifying failures.
func (c *Client) fetch(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(c.opts.BaseURL, "/")+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: GET %s: %v", source.ErrUnavailable, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: read body: %v", source.ErrUnavailable, path, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: GET %s: HTTP %d", source.ErrAuthentication, path, resp.StatusCode)
	default:
		snippet := string(body)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return nil, fmt.Errorf("%w: GET %s: HTTP %d: %s", source.ErrUnavailable, path, resp.StatusCode, snippet)
	}
}

func (c *Client) cookie(rawURL, name string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	for _, ck := range c.http.Jar.Cookies(u) {
		if ck.Name == name {
			return ck.Value
		}
	}
	return ""
}
