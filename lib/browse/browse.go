// Package browse wraps chromedp behind the small surface the scrapers
// need: navigate, read the rendered document, evaluate page-context
// javascript and read session cookies. Extractor logic stays
// independent of the automation engine behind this package.
package browse

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

type Options struct {
	UserAgent       string
	WindowWidth     int
	WindowHeight    int
	PageLoadWait    time.Duration
	NavigateTimeout time.Duration
}

// Browser owns a chrome exec allocator; pages share it.
type Browser struct {
	opts        Options
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
}

func NewBrowser(opts Options) *Browser {
	if opts.WindowWidth == 0 {
		// init with a desktop view (sometimes pages look different on
		// mobile, eg buttons are missing)
		opts.WindowWidth = 1920
		opts.WindowHeight = 1080
	}
	if opts.PageLoadWait == 0 {
		opts.PageLoadWait = 2 * time.Second
	}
	if opts.NavigateTimeout == 0 {
		opts.NavigateTimeout = 30 * time.Second
	}

	chromeOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight),
	)
	if opts.UserAgent != "" {
		chromeOpts = append(chromeOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), chromeOpts...)
	return &Browser{
		opts:        opts,
		allocCtx:    allocCtx,
		cancelAlloc: cancelAlloc,
	}
}

func (b *Browser) Close() {
	b.cancelAlloc()
}

// Page is one browser tab. Pages are not safe for concurrent use.
type Page struct {
	opts   Options
	ctx    context.Context
	cancel context.CancelFunc
}

func (b *Browser) NewPage() *Page {
	ctx, cancel := chromedp.NewContext(b.allocCtx)
	return &Page{
		opts:   b.opts,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (p *Page) Close() {
	p.cancel()
}

func (p *Page) run(timeout time.Duration, actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

// Navigate loads a url and waits the configured settle time so
// client-side rendering can finish.
func (p *Page) Navigate(url string) error {
	slog.Debug("navigate", "url", url)
	return p.run(
		p.opts.NavigateTimeout,
		chromedp.Navigate(url),
		chromedp.Sleep(p.opts.PageLoadWait),
	)
}

// HTML captures the rendered outer html of the document.
func (p *Page) HTML() (string, error) {
	var body string
	err := p.run(p.opts.NavigateTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		node, err := dom.GetDocument().Do(ctx)
		if err != nil {
			return err
		}
		body, err = dom.GetOuterHTML().WithNodeID(node.NodeID).Do(ctx)
		return err
	}))
	return body, err
}

// Document captures the rendered page as a goquery document.
func (p *Page) Document() (*goquery.Document, error) {
	body, err := p.HTML()
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(strings.NewReader(body))
}

// Location returns the page's current url.
func (p *Page) Location() (string, error) {
	var loc string
	err := p.run(10*time.Second, chromedp.Location(&loc))
	return loc, err
}

// Evaluate runs an expression in page context and unmarshals the json
// result into out. Pass nil to discard the result.
func (p *Page) Evaluate(expression string, out any) error {
	if out == nil {
		var discard any
		out = &discard
	}
	return p.run(10*time.Second, chromedp.Evaluate(expression, out))
}

// WaitVisible blocks until the selector matches a visible element.
func (p *Page) WaitVisible(selector string, timeout time.Duration) error {
	return p.run(timeout, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

// Click clicks the first element matching the selector, if any exists.
// The boolean reports whether an element was found.
func (p *Page) Click(selector string) (bool, error) {
	found := false
	err := p.run(p.opts.NavigateTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		var nodes []*cdp.Node
		if err := chromedp.Nodes(selector, &nodes, chromedp.AtLeast(0)).Do(ctx); err != nil {
			return err
		}
		if len(nodes) == 0 {
			return nil
		}
		found = true
		return chromedp.MouseClickNode(nodes[0]).Do(ctx)
	}))
	return found, err
}

// Fill focuses the selector and types a value into it.
func (p *Page) Fill(selector, value string) error {
	return p.run(
		p.opts.NavigateTimeout,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	)
}

// ScrollBottom scrolls to the bottom of the page.
func (p *Page) ScrollBottom() error {
	return p.run(10*time.Second, chromedp.KeyEvent(kb.End))
}

// Cookies returns the browser's cookies across all domains.
func (p *Page) Cookies() ([]*http.Cookie, error) {
	var out []*http.Cookie
	err := p.run(10*time.Second, chromedp.ActionFunc(func(ctx context.Context) error {
		cookies, err := storage.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		for _, c := range cookies {
			out = append(out, &http.Cookie{
				Name:   c.Name,
				Value:  c.Value,
				Domain: c.Domain,
				Path:   c.Path,
				Secure: c.Secure,
			})
		}
		return nil
	}))
	return out, err
}

// SetCookie installs a cookie into the browser context.
func (p *Page) SetCookie(c *http.Cookie) error {
	return p.run(10*time.Second, chromedp.ActionFunc(func(ctx context.Context) error {
		return storage.SetCookies([]*network.CookieParam{{
			Name:   c.Name,
			Value:  c.Value,
			Domain: c.Domain,
			Path:   c.Path,
			Secure: c.Secure,
		}}).Do(ctx)
	}))
}

// ErrNotFound is returned by helpers that require an element to exist.
var ErrNotFound = fmt.Errorf("element not found")
