package codapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pable/squadstats/internal/model"
	"github.com/pable/squadstats/internal/source"
)

var banana = model.Player{ID: "bouncybanana#6363912", Platform: model.PlatformActivision}

// fakeAPI serves the login flow and the match history endpoint.
type fakeAPI struct {
	password   string
	lastPath   atomic.Value
	failStatus int
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/cod/login":
		http.SetCookie(w, &http.Cookie{Name: "XSRF-TOKEN", Value: "tok", Path: "/"})
		return
	case r.URL.Path == "/do_login":
		r.ParseForm()
		if r.Form.Get("_csrf") == "tok" && r.Form.Get("password") == f.password {
			http.SetCookie(w, &http.Cookie{Name: ssoCookie, Value: "sso", Path: "/"})
		}
		return
	}

	f.lastPath.Store(r.URL.Path)
	if f.failStatus != 0 {
		w.WriteHeader(f.failStatus)
		return
	}
	if c, err := r.Cookie(ssoCookie); err != nil || c.Value != "sso" {
		fmt.Fprint(w, `{"status":"error","data":{"type":"com.activision.mt.common.stdtools.exceptions.NoStackTraceException","message":"Not permitted: not authenticated"}}`)
		return
	}
	if strings.Contains(r.URL.Path, "/start/0/end/0/") {
		fmt.Fprint(w, `{"status":"success","data":{"matches":[
			{"matchID":"8120344117469105812","utcStartSeconds":1000,"utcEndSeconds":2000,"map":"mp_hackney_yard","mode":"sd"},
			{"matchID":7,"utcStartSeconds":3000,"utcEndSeconds":4000,"map":"mp_petrograd","mode":"war"}
		]}}`)
		return
	}
	fmt.Fprint(w, `{"status":"success","data":{"matches":[],"summary":{
		"all":{"kills":20,"deaths":10},
		"sd":{"kills":8,"deaths":4,"kdRatio":2.0,"label":"text"}
	}}}`)
}

func newTestClient(t *testing.T, api *fakeAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return NewClient(Options{
		BaseURL:           srv.URL,
		ProfileURL:        srv.URL,
		Title:             "mw",
		Timeout:           5 * time.Second,
		RequestsPerSecond: 1000,
	})
}

func TestLoginAndListRecentMatches(t *testing.T) {
	api := &fakeAPI{password: "pw"}
	c := newTestClient(t, api)
	ctx := context.Background()

	if err := c.Login(ctx, "me", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	matches, err := c.ListRecentMatches(ctx, banana, "mp", 1)
	if err != nil {
		t.Fatalf("ListRecentMatches: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected limit to cap to 1 match, got %d", len(matches))
	}
	wantPath := "/crm/cod/v2/title/mw/platform/uno/gamer/bouncybanana#6363912/matches/mp/start/0/end/0/details"
	if got := api.lastPath.Load().(string); got != wantPath {
		t.Errorf("path:\n got %s\nwant %s", got, wantPath)
	}

	md, err := c.MatchDetails(ctx, matches[0])
	if err != nil {
		t.Fatalf("MatchDetails: %v", err)
	}
	want := model.MatchMetadata{MatchID: "8120344117469105812", Start: 1000, End: 2000, Map: "mp_hackney_yard", Mode: "sd"}
	if md != want {
		t.Errorf("MatchDetails = %+v, want %+v", md, want)
	}
}

func TestNumericMatchIDDecodes(t *testing.T) {
	api := &fakeAPI{password: "pw"}
	c := newTestClient(t, api)
	ctx := context.Background()
	if err := c.Login(ctx, "me", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	matches, err := c.ListRecentMatches(ctx, banana, "mp", 10)
	if err != nil {
		t.Fatalf("ListRecentMatches: %v", err)
	}
	if len(matches) != 2 || matches[1].MatchID != "7" {
		t.Errorf("expected numeric id 7 decoded as \"7\", got %+v", matches)
	}
}

func TestStatsSummary(t *testing.T) {
	api := &fakeAPI{password: "pw"}
	c := newTestClient(t, api)
	ctx := context.Background()
	if err := c.Login(ctx, "me", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	summary, err := c.StatsSummary(ctx, banana, "mp", 1000, 2001)
	if err != nil {
		t.Fatalf("StatsSummary: %v", err)
	}
	if !strings.HasSuffix(api.lastPath.Load().(string), "/start/1000/end/2001/details") {
		t.Errorf("unexpected path %s", api.lastPath.Load())
	}
	sd, ok := summary["sd"]
	if !ok {
		t.Fatal("expected sd bucket")
	}
	if sd["kills"] != 8 || sd["deaths"] != 4 {
		t.Errorf("unexpected sd stats %v", sd)
	}
	if _, ok := sd["label"]; ok {
		t.Error("non-numeric stat should be dropped")
	}
}

func TestPathUsesPlatformTag(t *testing.T) {
	api := &fakeAPI{password: "pw"}
	c := newTestClient(t, api)
	ctx := context.Background()
	if err := c.Login(ctx, "me", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	for _, tc := range []struct {
		player model.Player
		want   string
	}{
		{model.Player{ID: "alice", Platform: model.PlatformPlayStation}, "/platform/psn/gamer/alice/"},
		{model.Player{ID: "bob", Platform: model.PlatformActivision}, "/platform/uno/gamer/bob/"},
		{model.Player{ID: "carl", Platform: model.PlatformBattleNet}, "/platform/battle/gamer/carl/"},
	} {
		if _, err := c.StatsSummary(ctx, tc.player, "mp", 1000, 2001); err != nil {
			t.Fatalf("StatsSummary(%s): %v", tc.player, err)
		}
		if got := api.lastPath.Load().(string); !strings.Contains(got, tc.want) {
			t.Errorf("path for %s = %s, want it to contain %s", tc.player, got, tc.want)
		}
	}
}

func TestLoginRejected(t *testing.T) {
	c := newTestClient(t, &fakeAPI{password: "pw"})
	err := c.Login(context.Background(), "me", "wrong")
	if !errors.Is(err, source.ErrAuthentication) {
		t.Errorf("expected ErrAuthentication, got %v", err)
	}
}

func TestNotAuthenticatedEnvelope(t *testing.T) {
	c := newTestClient(t, &fakeAPI{password: "pw"})
	_, err := c.ListRecentMatches(context.Background(), banana, "mp", 10)
	if !errors.Is(err, source.ErrAuthentication) {
		t.Errorf("expected ErrAuthentication without a session, got %v", err)
	}
}

func TestServerErrorIsUnavailable(t *testing.T) {
	c := newTestClient(t, &fakeAPI{password: "pw", failStatus: http.StatusBadGateway})
	_, err := c.StatsSummary(context.Background(), banana, "mp", 1, 2)
	if !errors.Is(err, source.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	c := newTestClient(t, &fakeAPI{password: "pw", failStatus: http.StatusServiceUnavailable})
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		c.StatsSummary(ctx, banana, "mp", 1, 2)
	}
	_, err := c.StatsSummary(ctx, banana, "mp", 1, 2)
	if !errors.Is(err, source.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable from open breaker, got %v", err)
	}
	if !strings.Contains(err.Error(), "circuit breaker is open") {
		t.Errorf("expected breaker rejection, got %v", err)
	}
}
