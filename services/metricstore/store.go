// Package metricstore persists shops and their scraped metrics. All
// writes merge: a value already present in the database is never
// replaced by an absent one, so repeated partial scrapes only ever
// converge toward a complete row.
package metricstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"shopmetrics-backend/lib/datenorm"
	"shopmetrics-backend/services/metricstore/db"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/metricstore")

// Scraping status lifecycle for shops and analytics rows.
const (
	StatusEmpty     = "empty"
	StatusPartial   = "partial"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusNA        = "na"
)

// Metric names. These are the units of completion tracking: a shop is
// completed once every metric below is non-null (or marked na).
const (
	MetricOrganicTraffic        = "organic_traffic"
	MetricPaidSearchTraffic     = "paid_search_traffic"
	MetricBrandedTraffic        = "branded_traffic"
	MetricPercentBrandedTraffic = "percent_branded_traffic"
	MetricBounceRate            = "bounce_rate"
	MetricAvgVisitDuration      = "avg_visit_duration"
	MetricConversionRate        = "conversion_rate"
	MetricVisits                = "visits"
	MetricTraffic               = "traffic"
	MetricCpc                   = "cpc"

	MetricMarketUs = "market_us"
	MetricMarketUk = "market_uk"
	MetricMarketDe = "market_de"
	MetricMarketCa = "market_ca"
	MetricMarketAu = "market_au"
	MetricMarketFr = "market_fr"

	MetricLiveAds      = "live_ads"
	MetricLiveAdsTrend = "live_ads_trend"

	MetricFoundingYear  = "founding_year"
	MetricTotalProducts = "total_products"
	MetricPixelGoogle   = "pixel_google"
	MetricPixelFacebook = "pixel_facebook"
	MetricAov           = "aov"
)

// AnalyticsMetrics carries one scrape's worth of analytics values. Nil
// fields mean "not observed this pass" and never overwrite stored
// values.
type AnalyticsMetrics struct {
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

// ShopFacts carries scraped shop-level values, same nil semantics as
// AnalyticsMetrics.
type ShopFacts struct {
	ShopName      *string
	CreationDate  *string
	FoundingYear  *int64
	TotalProducts *int64
	PixelGoogle   *bool
	PixelFacebook *bool
	Aov           *float64
	LiveAds       *int64
	LiveAdsTrend  *int64
	MarketUs      *float64
	MarketUk      *float64
	MarketDe      *float64
	MarketCa      *float64
	MarketAu      *float64
	MarketFr      *float64
}

type Store struct {
	db  *sql.DB
	qry *db.Queries
}

func NewStore(database *sql.DB) Store {
	return Store{
		db:  database,
		qry: db.New(database),
	}
}

func now() sql.NullString {
	return sql.NullString{String: datenorm.NormalizeTime(time.Now()), Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullFloat64(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullBool(v *bool) sql.NullBool {
	if v == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *v, Valid: true}
}

// EnsureShop registers a shop url, returning the existing row when one
// is already present.
func (s Store) EnsureShop(ctx context.Context, url string, name, source *string) (db.Shop, error) {
	ctx, span := tracer.Start(ctx, "EnsureShop")
	defer span.End()

	span.SetAttributes(attribute.String("shop_url", url))

	shop, err := s.qry.CreateShop(ctx, db.CreateShopParams{
		ShopUrl:   url,
		ShopName:  nullString(name),
		Source:    nullString(source),
		UpdatedAt: now(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return db.Shop{}, err
	}
	return shop, nil
}

func (s Store) GetShop(ctx context.Context, id int64) (db.Shop, error) {
	return s.qry.GetShop(ctx, id)
}

func (s Store) GetShopByUrl(ctx context.Context, url string) (db.Shop, error) {
	return s.qry.GetShopByUrl(ctx, url)
}

// ListShopsInRange returns the shops whose ids fall in [startID,
// endID], in id order. An empty result is not an error.
func (s Store) ListShopsInRange(ctx context.Context, startID, endID int64) ([]db.Shop, error) {
	return s.qry.ListShopsInRange(ctx, db.ListShopsInRangeParams{
		ID:   startID,
		ID_2: endID,
	})
}

func (s Store) ListShopsByStatus(ctx context.Context, status string) ([]db.Shop, error) {
	return s.qry.ListShopsByStatus(ctx, status)
}

// MaxShopID returns the highest shop id, zero when the table is empty.
func (s Store) MaxShopID(ctx context.Context) (int64, error) {
	return s.qry.GetMaxShopId(ctx)
}

// StatusCounts reports how many shops sit in each scraping status.
func (s Store) StatusCounts(ctx context.Context) (map[string]int64, error) {
	rows, err := s.qry.CountShopsByStatus(ctx)
	if err != nil {
		return nil, err
	}
	counts := map[string]int64{}
	for _, r := range rows {
		counts[r.ScrapingStatus] = r.Count
	}
	return counts, nil
}

// MissingMetrics reports which metrics are still null for a shop,
// reading shop-level columns and the shop's analytics row. Metrics of
// a shop whose status is na are not reported.
func (s Store) MissingMetrics(ctx context.Context, shopID int64) ([]string, error) {
	ctx, span := tracer.Start(ctx, "MissingMetrics")
	defer span.End()

	shop, err := s.qry.GetShop(ctx, shopID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if shop.ScrapingStatus == StatusNA {
		return nil, nil
	}

	analytics, err := s.qry.GetAnalytics(ctx, shopID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var missing []string
	add := func(name string, present bool) {
		if !present {
			missing = append(missing, name)
		}
	}

	add(MetricOrganicTraffic, analytics.OrganicTraffic.Valid)
	add(MetricPaidSearchTraffic, analytics.PaidSearchTraffic.Valid)
	add(MetricBrandedTraffic, analytics.BrandedTraffic.Valid)
	add(MetricPercentBrandedTraffic, analytics.PercentBrandedTraffic.Valid)
	add(MetricBounceRate, analytics.BounceRate.Valid)
	add(MetricAvgVisitDuration, analytics.AvgVisitDuration.Valid)
	add(MetricConversionRate, analytics.ConversionRate.Valid)
	add(MetricVisits, analytics.Visits.Valid)
	add(MetricTraffic, analytics.Traffic.Valid)
	add(MetricCpc, analytics.Cpc.Valid)

	add(MetricMarketUs, shop.MarketUs.Valid)
	add(MetricMarketUk, shop.MarketUk.Valid)
	add(MetricMarketDe, shop.MarketDe.Valid)
	add(MetricMarketCa, shop.MarketCa.Valid)
	add(MetricMarketAu, shop.MarketAu.Valid)
	add(MetricMarketFr, shop.MarketFr.Valid)

	add(MetricLiveAds, shop.LiveAds.Valid)
	add(MetricLiveAdsTrend, shop.LiveAdsTrend.Valid)

	add(MetricFoundingYear, shop.FoundingYear.Valid)
	add(MetricTotalProducts, shop.TotalProducts.Valid)
	add(MetricPixelGoogle, shop.PixelGoogle.Valid)
	add(MetricPixelFacebook, shop.PixelFacebook.Valid)
	add(MetricAov, shop.Aov.Valid)

	return missing, nil
}

// MergeAnalytics folds one scrape's analytics values into the shop's
// row. Values already stored survive nil fields in m.
func (s Store) MergeAnalytics(ctx context.Context, shopID int64, m AnalyticsMetrics, status string) (db.Analytic, error) {
	ctx, span := tracer.Start(ctx, "MergeAnalytics")
	defer span.End()

	span.SetAttributes(attribute.Int64("shop_id", shopID))

	row, err := s.qry.MergeAnalytics(ctx, db.MergeAnalyticsParams{
		ShopID:                shopID,
		OrganicTraffic:        nullInt64(m.OrganicTraffic),
		PaidSearchTraffic:     nullInt64(m.PaidSearchTraffic),
		BrandedTraffic:        nullInt64(m.BrandedTraffic),
		PercentBrandedTraffic: nullFloat64(m.PercentBrandedTraffic),
		BounceRate:            nullFloat64(m.BounceRate),
		AvgVisitDuration:      nullFloat64(m.AvgVisitDuration),
		ConversionRate:        nullFloat64(m.ConversionRate),
		Visits:                nullInt64(m.Visits),
		Traffic:               nullInt64(m.Traffic),
		Cpc:                   nullFloat64(m.Cpc),
		ScrapingStatus:        status,
		UpdatedAt:             now(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return db.Analytic{}, err
	}
	return row, nil
}

// MergeShopFacts folds shop-level scraped values into the shops row,
// same merge semantics as MergeAnalytics.
func (s Store) MergeShopFacts(ctx context.Context, shopID int64, f ShopFacts) (db.Shop, error) {
	ctx, span := tracer.Start(ctx, "MergeShopFacts")
	defer span.End()

	span.SetAttributes(attribute.Int64("shop_id", shopID))

	shop, err := s.qry.MergeShopFacts(ctx, db.MergeShopFactsParams{
		ShopName:      nullString(f.ShopName),
		CreationDate:  nullString(f.CreationDate),
		FoundingYear:  nullInt64(f.FoundingYear),
		TotalProducts: nullInt64(f.TotalProducts),
		PixelGoogle:   nullBool(f.PixelGoogle),
		PixelFacebook: nullBool(f.PixelFacebook),
		Aov:           nullFloat64(f.Aov),
		LiveAds:       nullInt64(f.LiveAds),
		LiveAdsTrend:  nullInt64(f.LiveAdsTrend),
		MarketUs:      nullFloat64(f.MarketUs),
		MarketUk:      nullFloat64(f.MarketUk),
		MarketDe:      nullFloat64(f.MarketDe),
		MarketCa:      nullFloat64(f.MarketCa),
		MarketAu:      nullFloat64(f.MarketAu),
		MarketFr:      nullFloat64(f.MarketFr),
		UpdatedAt:     now(),
		ID:            shopID,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return db.Shop{}, err
	}
	return shop, nil
}

// SetShopStatus records the shop's scraping status and stamps
// scraping_last_update.
func (s Store) SetShopStatus(ctx context.Context, shopID int64, status string) error {
	ctx, span := tracer.Start(ctx, "SetShopStatus")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("shop_id", shopID),
		attribute.String("status", status),
	)

	ts := now()
	err := s.qry.SetShopStatus(ctx, db.SetShopStatusParams{
		ScrapingStatus:     status,
		ScrapingLastUpdate: ts,
		UpdatedAt:          ts,
		ID:                 shopID,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
