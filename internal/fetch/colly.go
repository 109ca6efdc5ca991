// Package fetch retrieves the authenticated turn-status page, recovering
// transparently (once) when the stored session has expired.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/awbwtools/turn-sentinel/internal/checker"
	"github.com/awbwtools/turn-sentinel/internal/metrics"
)

// Config controls the fetcher's targets and credentials.
type Config struct {
	PageURL     string
	LoginURL    string
	Username    string
	Password    string
	UserAgent   string
	LoginMarker string
	Timeout     time.Duration
}

// CollyFetcher implements checker.Fetcher using the Colly collector.
type CollyFetcher struct {
	cfg    Config
	logger *zap.Logger
}

// NewCollyFetcher constructs a configured Colly-based fetcher.
func NewCollyFetcher(cfg Config, logger *zap.Logger) (*CollyFetcher, error) {
	if cfg.PageURL == "" || cfg.LoginURL == "" {
		return nil, fmt.Errorf("page and login URLs are required")
	}
	if cfg.Username == "" || cfg.Password == "" {
		return nil, fmt.Errorf("login credentials are required")
	}
	if cfg.LoginMarker == "" {
		return nil, fmt.Errorf("login marker is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	metrics.Init()
	return &CollyFetcher{cfg: cfg, logger: logger}, nil
}

// Fetch retrieves the turn page with the stored session, re-authenticating
// exactly once when the response carries the login marker. The returned
// session is the one that actually produced the page, so callers can
// persist it and keep the session warm.
func (f *CollyFetcher) Fetch(ctx context.Context, session checker.Session) (checker.FetchResult, error) {
	base, err := f.newCollector()
	if err != nil {
		return checker.FetchResult{}, fmt.Errorf("%w: init collector: %v", checker.ErrFetchFailed, err)
	}
	if err := f.injectSession(base, session); err != nil {
		return checker.FetchResult{}, fmt.Errorf("%w: restore session: %v", checker.ErrFetchFailed, err)
	}

	start := time.Now()
	body, err := f.get(ctx, base, f.cfg.PageURL)
	metrics.ObserveFetch(time.Since(start))
	if err != nil {
		return checker.FetchResult{}, fmt.Errorf("%w: %v", checker.ErrFetchFailed, err)
	}
	if f.authenticated(body) {
		return f.result(base, body, false)
	}

	f.logger.Info("Session expired, re-authenticating")
	if err := f.login(ctx, base); err != nil {
		metrics.ObserveLogin("failed")
		return checker.FetchResult{}, err
	}

	body, err = f.get(ctx, base, f.cfg.PageURL)
	if err != nil {
		metrics.ObserveLogin("failed")
		return checker.FetchResult{}, fmt.Errorf("%w: retry after login: %v", checker.ErrFetchFailed, err)
	}
	if !f.authenticated(body) {
		metrics.ObserveLogin("rejected")
		return checker.FetchResult{}, fmt.Errorf("%w: still unauthenticated after login", checker.ErrAuthenticationFailed)
	}
	metrics.ObserveLogin("succeeded")
	return f.result(base, body, true)
}

func (f *CollyFetcher) newCollector() (*colly.Collector, error) {
	base := colly.NewCollector(
		colly.UserAgent(f.cfg.UserAgent),
	)
	base.AllowURLRevisit = true
	base.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          8,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: f.cfg.Timeout,
		ForceAttemptHTTP2:     true,
	})
	base.SetRequestTimeout(f.cfg.Timeout)
	return base, nil
}

// get issues one GET on a callback-free clone; the clone shares the base
// collector's cookie jar, so session cookies accumulate on base.
func (f *CollyFetcher) get(ctx context.Context, base *colly.Collector, rawURL string) ([]byte, error) {
	c := base.Clone()
	var body []byte
	var fetchErr error
	c.OnResponse(func(r *colly.Response) {
		body = append([]byte(nil), r.Body...)
	})
	c.OnError(func(_ *colly.Response, err error) {
		if err == nil {
			err = errors.New("unknown colly error")
		}
		fetchErr = err
	})

	if err := c.Visit(rawURL); err != nil {
		return nil, err
	}
	c.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fetchErr != nil {
		return nil, fetchErr
	}
	if body == nil {
		return nil, errors.New("fetch produced no response")
	}
	return body, nil
}

// login performs the credential exchange: GET the login page, carry over
// its hidden form inputs, POST the filled form. Cookies issued along the
// way land in the shared jar.
func (f *CollyFetcher) login(ctx context.Context, base *colly.Collector) error {
	page, err := f.get(ctx, base, f.cfg.LoginURL)
	if err != nil {
		return fmt.Errorf("%w: fetch login page: %v", checker.ErrAuthenticationFailed, err)
	}
	form, err := loginForm(page, f.cfg.Username, f.cfg.Password)
	if err != nil {
		return fmt.Errorf("%w: %v", checker.ErrAuthenticationFailed, err)
	}

	c := base.Clone()
	var postErr error
	c.OnError(func(_ *colly.Response, err error) {
		postErr = err
	})
	if err := c.Post(f.cfg.LoginURL, form); err != nil {
		return fmt.Errorf("%w: submit login form: %v", checker.ErrAuthenticationFailed, err)
	}
	c.Wait()
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", checker.ErrAuthenticationFailed, err)
	}
	if postErr != nil {
		return fmt.Errorf("%w: submit login form: %v", checker.ErrAuthenticationFailed, postErr)
	}
	return nil
}

func (f *CollyFetcher) authenticated(body []byte) bool {
	return !bytes.Contains(body, []byte(f.cfg.LoginMarker))
}

// injectSession replays the opaque cookie map into the collector's jar.
func (f *CollyFetcher) injectSession(base *colly.Collector, session checker.Session) error {
	if len(session) == 0 {
		return nil
	}
	cookies := make([]*http.Cookie, 0, len(session))
	for name, value := range session {
		cookies = append(cookies, &http.Cookie{Name: name, Value: value})
	}
	return base.SetCookies(f.cfg.PageURL, cookies)
}

// result exports the jar back into an opaque cookie map alongside the body.
func (f *CollyFetcher) result(base *colly.Collector, body []byte, reauthed bool) (checker.FetchResult, error) {
	session := checker.Session{}
	for _, cookie := range base.Cookies(f.cfg.PageURL) {
		session[cookie.Name] = cookie.Value
	}
	return checker.FetchResult{
		Body:            body,
		Session:         session,
		Reauthenticated: reauthed,
	}, nil
}

// loginForm harvests the login page's hidden inputs and fills in the
// credentials, mirroring what a browser submits.
func loginForm(page []byte, username, password string) (map[string]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse login page: %w", err)
	}
	form := map[string]string{}
	doc.Find(`form input[type="hidden"]`).Each(func(_ int, sel *goquery.Selection) {
		name, ok := sel.Attr("name")
		if !ok || name == "" {
			return
		}
		form[name] = sel.AttrOr("value", "")
	})
	form["username"] = username
	form["password"] = password
	return form, nil
}
