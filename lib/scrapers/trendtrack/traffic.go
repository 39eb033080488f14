package trendtrack

import (
	"context"
	"encoding/json"
	"fmt"

	"shopmetrics-backend/lib/metricval"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// TrafficExtractor pulls the traffic metric group over the console rpc
// endpoint. The console reports values as loosely-typed json, numbers
// and formatted strings both appear in the wild.
type TrafficExtractor struct {
	session *Session
}

func NewTrafficExtractor(session *Session) *TrafficExtractor {
	return &TrafficExtractor{session: session}
}

func (e *TrafficExtractor) Name() string {
	return "traffic"
}

func (e *TrafficExtractor) Metrics() []string {
	return []string{
		"organic_traffic",
		"paid_search_traffic",
		"branded_traffic",
		"percent_branded_traffic",
		"visits",
		"traffic",
		"cpc",
	}
}

type trafficOverview struct {
	OrganicTraffic        json.RawMessage `json:"organicTraffic"`
	PaidSearchTraffic     json.RawMessage `json:"paidSearchTraffic"`
	BrandedTraffic        json.RawMessage `json:"brandedTraffic"`
	PercentBrandedTraffic json.RawMessage `json:"percentBrandedTraffic"`
	Visits                json.RawMessage `json:"visits"`
	Traffic               json.RawMessage `json:"traffic"`
	Cpc                   json.RawMessage `json:"cpc"`
}

func (e *TrafficExtractor) Extract(ctx context.Context, shopUrl string, missing map[string]bool) (Observation, error) {
	ctx, span := tracer.Start(ctx, "traffic:Extract")
	defer span.End()

	span.SetAttributes(attribute.String("shop_url", shopUrl))

	if err := e.session.Ensure(ctx); err != nil {
		return Observation{}, err
	}
	if err := e.session.opts.Throttle.Throttle(ctx, "api"); err != nil {
		return Observation{}, err
	}

	var overview trafficOverview
	err := e.session.Api().Call(ctx, "metrics.trafficOverview", map[string]any{
		"domain": shopUrl,
	}, &overview)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rpc call failed")
		return Observation{}, err
	}

	return Observation{Analytics: parseTrafficOverview(overview)}, nil
}

// rawScalar flattens a loosely-typed json value into a string so the
// metric conversions can take over. Objects and arrays yield "".
func rawScalar(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%v", v)
	case bool:
		return fmt.Sprintf("%v", v)
	default:
		return ""
	}
}

func parseTrafficOverview(overview trafficOverview) Analytics {
	var out Analytics

	if v, ok := metricval.ToCount(rawScalar(overview.OrganicTraffic)); ok {
		out.OrganicTraffic = ptr(v)
	}
	if v, ok := metricval.ToCount(rawScalar(overview.PaidSearchTraffic)); ok {
		out.PaidSearchTraffic = ptr(v)
	}
	if v, ok := metricval.ToCount(rawScalar(overview.BrandedTraffic)); ok {
		out.BrandedTraffic = ptr(v)
	}
	if v, ok := metricval.ToNumeric(rawScalar(overview.PercentBrandedTraffic)); ok {
		out.PercentBrandedTraffic = ptr(metricval.NormalizeFraction(v))
	}
	if v, ok := metricval.ToCount(rawScalar(overview.Visits)); ok {
		out.Visits = ptr(v)
	}
	if v, ok := metricval.ToCount(rawScalar(overview.Traffic)); ok {
		out.Traffic = ptr(v)
	}
	if v, ok := metricval.ToNumeric(rawScalar(overview.Cpc)); ok {
		out.Cpc = ptr(v)
	}

	return out
}
