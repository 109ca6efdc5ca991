package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/awbwtools/turn-sentinel/internal/checker"
)

const (
	sessionCookie = "awbw_session"
	validToken    = "valid-token"
	loginMarker   = "You must be logged in"
)

// fakeSite simulates the target: a turn page behind a session cookie and a
// login form that issues one.
type fakeSite struct {
	mu          sync.Mutex
	loginPosts  int
	issueToken  string // token handed out on login; empty means login never sticks
	lastForm    map[string]string
	pageCode    int
	turnPageIDs []string
}

func (s *fakeSite) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/yourgames.php", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		code := s.pageCode
		ids := s.turnPageIDs
		s.mu.Unlock()
		if code != 0 {
			http.Error(w, "boom", code)
			return
		}
		c, err := r.Cookie(sessionCookie)
		if err != nil || c.Value != validToken {
			fmt.Fprintf(w, "<body><p>%s</p></body>", loginMarker)
			return
		}
		fmt.Fprint(w, "<body><h1>Your Turn Games (")
		fmt.Fprintf(w, "%d)</h1>", len(ids))
		for _, id := range ids {
			fmt.Fprintf(w, `<a href="game.php?games_id=%s">Game</a>`, id)
		}
		fmt.Fprint(w, "</body>")
	})
	mux.HandleFunc("/login.php", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			fmt.Fprint(w, `<body><form method="post">
				<input type="hidden" name="csrf" value="tok-123">
				<input type="text" name="username">
				<input type="password" name="password">
			</form></body>`)
			return
		}
		_ = r.ParseForm()
		s.mu.Lock()
		s.loginPosts++
		s.lastForm = map[string]string{}
		for k := range r.PostForm {
			s.lastForm[k] = r.PostForm.Get(k)
		}
		token := s.issueToken
		s.mu.Unlock()
		if token != "" {
			http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: token, Path: "/"})
		}
		fmt.Fprint(w, "<body>Welcome</body>")
	})
	return mux
}

func newTestFetcher(t *testing.T, serverURL string) *CollyFetcher {
	t.Helper()
	f, err := NewCollyFetcher(Config{
		PageURL:     serverURL + "/yourgames.php?yourTurn=1",
		LoginURL:    serverURL + "/login.php",
		Username:    "commander",
		Password:    "hunter2",
		UserAgent:   "turn-sentinel-test/1.0",
		LoginMarker: loginMarker,
		Timeout:     5 * time.Second,
	}, zap.NewNop())
	require.NoError(t, err)
	return f
}

func TestCollyFetcher_Fetch_ValidSessionSkipsLogin(t *testing.T) {
	t.Parallel()

	site := &fakeSite{issueToken: validToken, turnPageIDs: []string{"5", "9"}}
	server := httptest.NewServer(site.handler())
	defer server.Close()

	f := newTestFetcher(t, server.URL)
	res, err := f.Fetch(context.Background(), checker.Session{sessionCookie: validToken})
	require.NoError(t, err)

	require.False(t, res.Reauthenticated)
	require.Contains(t, string(res.Body), "Your Turn Games")
	require.Equal(t, validToken, res.Session[sessionCookie])

	site.mu.Lock()
	defer site.mu.Unlock()
	require.Zero(t, site.loginPosts)
}

func TestCollyFetcher_Fetch_ExpiredSessionLogsInOnce(t *testing.T) {
	t.Parallel()

	site := &fakeSite{issueToken: validToken, turnPageIDs: []string{"5"}}
	server := httptest.NewServer(site.handler())
	defer server.Close()

	f := newTestFetcher(t, server.URL)
	res, err := f.Fetch(context.Background(), nil)
	require.NoError(t, err)

	require.True(t, res.Reauthenticated)
	require.Contains(t, string(res.Body), "Your Turn Games")
	require.Equal(t, validToken, res.Session[sessionCookie])

	site.mu.Lock()
	defer site.mu.Unlock()
	require.Equal(t, 1, site.loginPosts)
	require.Equal(t, "commander", site.lastForm["username"])
	require.Equal(t, "hunter2", site.lastForm["password"])
	require.Equal(t, "tok-123", site.lastForm["csrf"], "hidden inputs must be carried over")
}

func TestCollyFetcher_Fetch_RejectedLoginFailsAfterOneAttempt(t *testing.T) {
	t.Parallel()

	site := &fakeSite{issueToken: ""} // login never issues a session
	server := httptest.NewServer(site.handler())
	defer server.Close()

	f := newTestFetcher(t, server.URL)
	_, err := f.Fetch(context.Background(), checker.Session{sessionCookie: "stale"})
	require.ErrorIs(t, err, checker.ErrAuthenticationFailed)

	site.mu.Lock()
	defer site.mu.Unlock()
	require.Equal(t, 1, site.loginPosts, "a second expired response must not trigger a second login")
}

func TestCollyFetcher_Fetch_TransportFailure(t *testing.T) {
	t.Parallel()

	site := &fakeSite{pageCode: http.StatusInternalServerError}
	server := httptest.NewServer(site.handler())
	defer server.Close()

	f := newTestFetcher(t, server.URL)
	_, err := f.Fetch(context.Background(), nil)
	require.ErrorIs(t, err, checker.ErrFetchFailed)
}

func TestNewCollyFetcher_RequiresCredentials(t *testing.T) {
	t.Parallel()

	_, err := NewCollyFetcher(Config{
		PageURL:  "https://example.com/page",
		LoginURL: "https://example.com/login",
	}, zap.NewNop())
	require.Error(t, err)
}
