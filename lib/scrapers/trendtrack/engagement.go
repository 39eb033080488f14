package trendtrack

import (
	"context"

	"shopmetrics-backend/lib/browse"
	"shopmetrics-backend/lib/metricval"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	bounceRateLocator = browse.Locator{
		Role: "bounce rate",
		Selectors: []string{
			`[data-testid="bounce-rate"] .value`,
			`[data-testid="bounce-rate"]`,
			`.engagement .bounce-rate`,
		},
	}
	visitDurationLocator = browse.Locator{
		Role: "average visit duration",
		Selectors: []string{
			`[data-testid="avg-visit-duration"] .value`,
			`[data-testid="avg-visit-duration"]`,
			`.engagement .visit-duration`,
		},
	}
	conversionRateLocator = browse.Locator{
		Role: "conversion rate",
		Selectors: []string{
			`[data-testid="conversion-rate"] .value`,
			`[data-testid="conversion-rate"]`,
			`.engagement .conversion-rate`,
		},
	}
)

// EngagementExtractor reads the visit-quality cards on the console
// overview page. These never come over the rpc surface, only rendered.
type EngagementExtractor struct {
	session *Session
}

func NewEngagementExtractor(session *Session) *EngagementExtractor {
	return &EngagementExtractor{session: session}
}

func (e *EngagementExtractor) Name() string {
	return "engagement"
}

func (e *EngagementExtractor) Metrics() []string {
	return []string{"bounce_rate", "avg_visit_duration", "conversion_rate"}
}

func (e *EngagementExtractor) Extract(ctx context.Context, shopUrl string, missing map[string]bool) (Observation, error) {
	ctx, span := tracer.Start(ctx, "engagement:Extract")
	defer span.End()

	span.SetAttributes(attribute.String("shop_url", shopUrl))

	if err := e.session.Ensure(ctx); err != nil {
		return Observation{}, err
	}
	if err := e.session.opts.Throttle.Throttle(ctx, "page"); err != nil {
		return Observation{}, err
	}

	page := e.session.Page()
	if err := page.Navigate(e.session.ConsoleUrl("/overview?domain=" + shopUrl)); err != nil {
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

	return Observation{Analytics: parseEngagement(doc)}, nil
}

func parseEngagement(doc *goquery.Document) Analytics {
	var out Analytics

	if raw, ok := bounceRateLocator.Text(doc); ok {
		if v, ok := metricval.ToNumeric(raw); ok {
			out.BounceRate = ptr(metricval.NormalizeFraction(v))
		}
	}
	if raw, ok := visitDurationLocator.Text(doc); ok {
		if v, ok := metricval.ToDurationSeconds(raw); ok {
			out.AvgVisitDuration = ptr(v)
		}
	}
	if raw, ok := conversionRateLocator.Text(doc); ok {
		if v, ok := metricval.ToNumeric(raw); ok {
			out.ConversionRate = ptr(metricval.NormalizeFraction(v))
		}
	}

	return out
}
