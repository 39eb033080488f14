package trendtrack

import (
	"context"
	"net/url"
	"strings"

	"shopmetrics-backend/lib/browse"
	"shopmetrics-backend/lib/metricval"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	liveAdsLocator = browse.Locator{
		Role: "live ads count",
		Selectors: []string{
			`[data-testid="live-ads"] .count`,
			`[data-testid="live-ads"]`,
			`.ads-panel .live-count`,
		},
	}
	adsTrendLocator = browse.Locator{
		Role: "live ads trend",
		Selectors: []string{
			`[data-testid="live-ads-trend"]`,
			`.ads-panel .trend`,
		},
	}
)

// AdsExtractor reads the live ad counter and its movement indicator
// from the dashboard's shop page.
type AdsExtractor struct {
	session *Session
}

func NewAdsExtractor(session *Session) *AdsExtractor {
	return &AdsExtractor{session: session}
}

func (e *AdsExtractor) Name() string {
	return "ads"
}

func (e *AdsExtractor) Metrics() []string {
	return []string{"live_ads", "live_ads_trend"}
}

func (e *AdsExtractor) Extract(ctx context.Context, shopUrl string, missing map[string]bool) (Observation, error) {
	ctx, span := tracer.Start(ctx, "ads:Extract")
	defer span.End()

	span.SetAttributes(attribute.String("shop_url", shopUrl))

	if err := e.session.Ensure(ctx); err != nil {
		return Observation{}, err
	}
	if err := e.session.opts.Throttle.Throttle(ctx, "page"); err != nil {
		return Observation{}, err
	}

	page := e.session.Page()
	target := e.session.DashboardUrl("/shops/" + url.QueryEscape(shopUrl))
	if err := page.Navigate(target); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "navigation failed")
		return Observation{}, err
	}
	doc, err := page.Document()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read document")
		return Observation{}, err
	}

	return Observation{Shop: parseAds(doc)}, nil
}

func parseAds(doc *goquery.Document) ShopInfo {
	var out ShopInfo

	if raw, ok := liveAdsLocator.Text(doc); ok {
		// counts show up both plain with thousands separators and in
		// compact notation, ToCount handles either
		if count, ok := metricval.ToCount(raw); ok {
			out.LiveAds = ptr(count)
		}
	}

	trend := adsTrendLocator.First(doc)
	if trend == nil {
		return out
	}
	raw := strings.TrimSpace(trend.Text())
	magnitude, ok := metricval.ToCount(strings.TrimLeft(raw, "+-"))
	if !ok {
		return out
	}
	out.LiveAdsTrend = ptr(magnitude * trendSign(trend, raw))
	return out
}

// trendSign reads direction from the indicator's class first and falls
// back to the sign character in the text.
func trendSign(trend *goquery.Selection, raw string) int64 {
	class := trend.AttrOr("class", "")
	switch {
	case strings.Contains(class, "down"), strings.Contains(class, "negative"):
		return -1
	case strings.Contains(class, "up"), strings.Contains(class, "positive"):
		return 1
	case strings.HasPrefix(raw, "-"):
		return -1
	}
	return 1
}
