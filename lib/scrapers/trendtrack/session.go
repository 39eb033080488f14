package trendtrack

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"shopmetrics-backend/lib/browse"
	"shopmetrics-backend/lib/restyutil"
	"shopmetrics-backend/lib/stealth"
	"shopmetrics-backend/lib/telemetry"
	"shopmetrics-backend/lib/textutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/codes"
)

var ErrLoginFailed = fmt.Errorf("failed to log into the dashboard")

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SessionOptions struct {
	// dashboard app origin, e.g. https://app.trendtrack.io
	DashboardUrl string `json:"dashboard_url"`
	// SEM console origin, e.g. https://console.semtrack.io
	ConsoleUrl  string      `json:"console_url"`
	Credentials Credentials `json:"credentials"`

	Throttle *stealth.Throttle `json:"-"`

	// how long a verified login is trusted before it is re-checked
	HealthTTL time.Duration `json:"-"`

	// when set, full request/response transcripts of the api client go
	// here. debugging aid, leave nil in production
	Transcript restyutil.InstrumentOutput `json:"-"`
}

var (
	cookieBannerLocator = browse.Locator{
		Role: "cookie consent accept",
		Selectors: []string{
			`button[data-testid="cookie-accept"]`,
			`#onetrust-accept-btn-handler`,
			`button.cookie-consent__accept`,
		},
	}
	loginEmailLocator = browse.Locator{
		Role: "login email field",
		Selectors: []string{
			`input[name="email"]`,
			`input[type="email"]`,
			`form input[autocomplete="username"]`,
		},
	}
	loginPasswordLocator = browse.Locator{
		Role: "login password field",
		Selectors: []string{
			`input[name="password"]`,
			`input[type="password"]`,
		},
	}
	loginSubmitLocator = browse.Locator{
		Role: "login submit button",
		Selectors: []string{
			`button[type="submit"]`,
			`form button`,
		},
	}
	// only present on pages rendered for an authenticated member
	loginMarkerLocator = browse.Locator{
		Role: "account menu",
		Selectors: []string{
			`[data-testid="account-menu"]`,
			`nav .avatar`,
			`a[href*="/account"]`,
			`button[aria-label="Account"]`,
		},
	}
)

// cookie name fragments worth forwarding to the api client
var sessionCookieFragments = []string{"auth", "sess", "member", "token"}

// Session owns the authenticated browser context plus the api client
// that piggybacks on its cookies. Safe for use from one goroutine at a
// time per method, with Ensure guarding re-login behind a mutex so
// concurrent extractors never trigger a double login.
type Session struct {
	opts    SessionOptions
	browser *browse.Browser
	page    *browse.Page
	api     *Api

	mu         sync.Mutex
	lastAlive  time.Time
	loginCount int
}

func NewSession(opts SessionOptions) (*Session, error) {
	if opts.DashboardUrl == "" || opts.ConsoleUrl == "" {
		return nil, fmt.Errorf("dashboard and console urls are required")
	}
	if opts.Throttle == nil {
		opts.Throttle = stealth.New(stealth.DefaultOptions())
	}
	if opts.HealthTTL <= 0 {
		opts.HealthTTL = 5 * time.Minute
	}

	identity := opts.Throttle.Identity()

	browser := browse.NewBrowser(browse.Options{
		UserAgent: identity.UserAgent,
	})
	page := browser.NewPage()

	client := resty.New()
	client.SetBaseURL(opts.ConsoleUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		browser.Close()
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetHeader("user-agent", identity.UserAgent)
	client.SetHeader("accept-language", identity.AcceptLanguage)
	client.SetTimeout(time.Second * 30)
	telemetry.InstrumentResty(client, "scrapers/trendtrack/http")
	if opts.Transcript != nil {
		restyutil.InstrumentClient(client, opts.Transcript)
	}

	return &Session{
		opts:    opts,
		browser: browser,
		page:    page,
		api:     newApi(client),
	}, nil
}

func (s *Session) Close() {
	s.page.Close()
	s.browser.Close()
}

func (s *Session) Page() *browse.Page {
	return s.page
}

func (s *Session) Api() *Api {
	return s.api
}

// DashboardUrl resolves a path against the dashboard origin.
func (s *Session) DashboardUrl(path string) string {
	return strings.TrimSuffix(s.opts.DashboardUrl, "/") + path
}

// ConsoleUrl resolves a path against the console origin.
func (s *Session) ConsoleUrl(path string) string {
	return strings.TrimSuffix(s.opts.ConsoleUrl, "/") + path
}

// Ensure makes sure the session is logged in. A login verified less
// than HealthTTL ago is trusted without a page round trip.
func (s *Session) Ensure(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if time.Since(s.lastAlive) < s.opts.HealthTTL {
		return nil
	}

	ctx, span := tracer.Start(ctx, "session:Ensure")
	defer span.End()

	alive, err := s.alive(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "health check failed")
		return err
	}
	if alive {
		s.lastAlive = time.Now()
		return nil
	}

	if err := s.login(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "login failed")
		return err
	}
	s.lastAlive = time.Now()
	return nil
}

func (s *Session) alive(ctx context.Context) (bool, error) {
	if err := s.opts.Throttle.Throttle(ctx, "page"); err != nil {
		return false, err
	}
	if err := s.page.Navigate(s.DashboardUrl("/dashboard")); err != nil {
		return false, err
	}
	doc, err := s.page.Document()
	if err != nil {
		return false, err
	}
	_, ok := loginMarkerLocator.Resolve(doc)
	return ok, nil
}

func (s *Session) login(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "session:login")
	defer span.End()

	if err := s.opts.Throttle.Throttle(ctx, "page"); err != nil {
		return err
	}
	if err := s.page.Navigate(s.DashboardUrl("/login")); err != nil {
		return err
	}

	doc, err := s.page.Document()
	if err != nil {
		return err
	}

	// a consent banner steals clicks when present
	if selector, ok := cookieBannerLocator.Resolve(doc); ok {
		if _, err := s.page.Click(selector); err != nil {
			return err
		}
		s.opts.Throttle.HumanPause(ctx, stealth.PauseScroll)
	}

	emailSel, ok := loginEmailLocator.Resolve(doc)
	if !ok {
		return fmt.Errorf("%w: email field not found", ErrLoginFailed)
	}
	passwordSel, ok := loginPasswordLocator.Resolve(doc)
	if !ok {
		return fmt.Errorf("%w: password field not found", ErrLoginFailed)
	}
	submitSel, ok := loginSubmitLocator.Resolve(doc)
	if !ok {
		return fmt.Errorf("%w: submit button not found", ErrLoginFailed)
	}

	if err := s.page.Fill(emailSel, s.opts.Credentials.Email); err != nil {
		return err
	}
	s.opts.Throttle.HumanPause(ctx, stealth.PauseTyping)
	if err := s.page.Fill(passwordSel, s.opts.Credentials.Password); err != nil {
		return err
	}
	s.opts.Throttle.HumanPause(ctx, stealth.PauseTyping)
	if _, err := s.page.Click(submitSel); err != nil {
		return err
	}
	s.opts.Throttle.HumanPause(ctx, stealth.PauseSession)

	doc, err = s.page.Document()
	if err != nil {
		return err
	}
	if _, ok := loginMarkerLocator.Resolve(doc); !ok {
		return ErrLoginFailed
	}

	s.loginCount++
	if err := s.propagateCookies(); err != nil {
		return err
	}
	if err := s.captureApiCredentials(); err != nil {
		return err
	}
	return nil
}

// propagateCookies forwards the browser's session cookies to the api
// client. Cookie domains are widened to the parent domain so the
// console host, a sibling subdomain, receives them too.
func (s *Session) propagateCookies() error {
	cookies, err := s.page.Cookies()
	if err != nil {
		return err
	}

	consoleUrl, err := url.Parse(s.opts.ConsoleUrl)
	if err != nil {
		return err
	}

	var forward []*http.Cookie
	for _, c := range cookies {
		if !isSessionCookie(c.Name) {
			continue
		}
		forward = append(forward, &http.Cookie{
			Name:   c.Name,
			Value:  c.Value,
			Domain: parentDomain(c.Domain),
			Path:   "/",
			Secure: c.Secure,
		})
	}
	if len(forward) == 0 {
		return fmt.Errorf("%w: no session cookies after login", ErrLoginFailed)
	}

	s.api.http.GetClient().Jar.SetCookies(&url.URL{
		Scheme: consoleUrl.Scheme,
		Host:   consoleUrl.Host,
	}, forward)
	return nil
}

func isSessionCookie(name string) bool {
	return textutil.MatchName(name, sessionCookieFragments)
}

// parentDomain drops the first label so app.trendtrack.io becomes
// .trendtrack.io. Domains with fewer than three labels pass through.
func parentDomain(domain string) string {
	trimmed := strings.TrimPrefix(domain, ".")
	parts := strings.Split(trimmed, ".")
	if len(parts) < 3 {
		return trimmed
	}
	return "." + strings.Join(parts[1:], ".")
}

// captureApiCredentials pulls the member id and api key the dashboard
// stashes in client storage and installs them as headers on the api
// client. The console rpc endpoint rejects calls without them even
// when the cookies are valid.
func (s *Session) captureApiCredentials() error {
	var creds struct {
		UserId string `json:"userId"`
		ApiKey string `json:"apiKey"`
	}
	err := s.page.Evaluate(`(() => {
		const raw = window.localStorage.getItem("tt.session")
			|| window.localStorage.getItem("session");
		if (!raw) return {};
		try {
			const parsed = JSON.parse(raw);
			return {
				userId: String(parsed.userId ?? parsed.user_id ?? ""),
				apiKey: String(parsed.apiKey ?? parsed.api_key ?? ""),
			};
		} catch {
			return {};
		}
	})()`, &creds)
	if err != nil {
		return err
	}
	if creds.UserId == "" || creds.ApiKey == "" {
		return fmt.Errorf("%w: api credentials missing from client storage", ErrLoginFailed)
	}

	s.api.http.SetHeader("x-user-id", creds.UserId)
	s.api.http.SetHeader("x-api-key", creds.ApiKey)
	return nil
}
