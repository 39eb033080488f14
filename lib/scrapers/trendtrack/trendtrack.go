// Package trendtrack scrapes shop metrics out of the TrendTrack
// dashboard and its companion SEM console. The dashboard is a
// client-rendered app behind a login wall, so page reads go through a
// real browser session; the console additionally exposes a json-rpc
// endpoint that the traffic extractor talks to directly once the
// session's cookies have been captured.
package trendtrack

import (
	"context"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("scrapers/trendtrack")

// Analytics holds traffic-related values from one extraction pass. Nil
// means the value was not observed.
type Analytics struct {
	OrganicTraffic        *int64
	PaidSearchTraffic     *int64
	BrandedTraffic        *int64
	PercentBrandedTraffic *float64
	BounceRate            *float64
	AvgVisitDuration      *float64
	ConversionRate        *float64
	Visits                *int64
	Traffic               *int64
	Cpc                   *float64
}

// ShopInfo holds shop-level values from one extraction pass. Markets
// is nil when the market section was not observed at all; when it was,
// every target country has an entry (zero for countries the section
// did not list). Shares keep the console's 0-100 percent form, unlike
// the per-shop rates on Analytics which are 0-1 fractions.
type ShopInfo struct {
	Name          *string
	CreationDate  *string
	FoundingYear  *int64
	TotalProducts *int64
	PixelGoogle   *bool
	PixelFacebook *bool
	Aov           *float64
	LiveAds       *int64
	LiveAdsTrend  *int64
	Markets       map[string]float64
}

// Observation is the combined result of one extractor run.
type Observation struct {
	Analytics Analytics
	Shop      ShopInfo
}

// Extractor fetches one group of metrics for a shop. missing names the
// metrics still absent from storage; extractors may use it to skip
// work but must tolerate being called with metrics they do not serve.
type Extractor interface {
	Name() string
	Metrics() []string
	Extract(ctx context.Context, shopUrl string, missing map[string]bool) (Observation, error)
}

func ptr[T any](v T) *T {
	return &v
}
