package worker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"shopmetrics-backend/lib/scrapers/trendtrack"
	"shopmetrics-backend/lib/stealth"
	"shopmetrics-backend/lib/testutil"
	"shopmetrics-backend/services/metricstore"
	"shopmetrics-backend/services/metricstore/db"

	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func ptr[T any](v T) *T {
	return &v
}

// fakeExtractor fails its first failures calls, then returns obs.
type fakeExtractor struct {
	name     string
	metrics  []string
	obs      trendtrack.Observation
	failures int
	err      error
	calls    int
}

func (f *fakeExtractor) Name() string {
	return f.name
}

func (f *fakeExtractor) Metrics() []string {
	return f.metrics
}

func (f *fakeExtractor) Extract(ctx context.Context, shopUrl string, missing map[string]bool) (trendtrack.Observation, error) {
	f.calls++
	if f.calls <= f.failures {
		err := f.err
		if err == nil {
			err = fmt.Errorf("transient failure %d", f.calls)
		}
		return trendtrack.Observation{}, err
	}
	return f.obs, nil
}

var analyticsMetricNames = []string{
	"organic_traffic", "paid_search_traffic", "branded_traffic",
	"percent_branded_traffic", "bounce_rate", "avg_visit_duration",
	"conversion_rate", "visits", "traffic", "cpc",
}

var factsMetricNames = []string{
	"market_us", "market_uk", "market_de", "market_ca", "market_au", "market_fr",
	"live_ads", "live_ads_trend",
	"founding_year", "total_products", "pixel_google", "pixel_facebook", "aov",
}

func fullAnalytics() trendtrack.Observation {
	return trendtrack.Observation{
		Analytics: trendtrack.Analytics{
			OrganicTraffic:        ptr(int64(800)),
			PaidSearchTraffic:     ptr(int64(150)),
			BrandedTraffic:        ptr(int64(60)),
			PercentBrandedTraffic: ptr(0.075),
			BounceRate:            ptr(0.38),
			AvgVisitDuration:      ptr(165.0),
			ConversionRate:        ptr(0.018),
			Visits:                ptr(int64(1000)),
			Traffic:               ptr(int64(1200)),
			Cpc:                   ptr(0.35),
		},
	}
}

func fullFacts() trendtrack.Observation {
	return trendtrack.Observation{
		Shop: trendtrack.ShopInfo{
			FoundingYear:  ptr(int64(2015)),
			TotalProducts: ptr(int64(120)),
			PixelGoogle:   ptr(true),
			PixelFacebook: ptr(false),
			Aov:           ptr(42.5),
			LiveAds:       ptr(int64(12)),
			LiveAdsTrend:  ptr(int64(-3)),
			Markets: map[string]float64{
				"us": 82.5, "uk": 0, "de": 0, "ca": 0, "au": 0, "fr": 0,
			},
		},
	}
}

func fastThrottle() *stealth.Throttle {
	return stealth.New(stealth.Options{
		BucketCapacity:    1000,
		RefillPerSec:      100000,
		JitterMinMS:       1,
		JitterMaxMS:       2,
		BackoffBase:       time.Millisecond,
		BackoffMultiplier: 2,
		BackoffMax:        5 * time.Millisecond,
		MaxAttempts:       2,
		DailyCeiling:      1000000,
	})
}

func setupRunner(t *testing.T, extractors ...trendtrack.Extractor) (metricstore.Store, *Runner, db.Shop) {
	t.Helper()
	setup, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/worker",
		DbSchema: db.Schema,
	})
	t.Cleanup(cleanup)
	store := metricstore.NewStore(setup.DB)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	shop, err := store.EnsureShop(ctx, "https://acme-widgets.com", nil, nil)
	require.NoError(t, err)

	runner := NewRunner(RunnerOptions{
		WorkerId:   1,
		Store:      store,
		Extractors: extractors,
		Throttle:   fastThrottle(),
	})
	return store, runner, shop
}

func TestRunnerConvergence(t *testing.T) {
	analytics := &fakeExtractor{
		name:    "traffic",
		metrics: analyticsMetricNames,
		obs:     fullAnalytics(),
	}
	// the facts group fails the whole first pass (2 retry attempts)
	facts := &fakeExtractor{
		name:     "facts",
		metrics:  factsMetricNames,
		obs:      fullFacts(),
		failures: 3,
	}
	store, runner, shop := setupRunner(t, analytics, facts)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	summary, err := runner.Run(ctx, Range{Start: shop.ID, End: shop.ID})
	require.NoError(t, err)
	require.Equal(t, 1, summary.Processed)
	require.Equal(t, 1, summary.Partial)

	got, err := store.GetShop(ctx, shop.ID)
	require.NoError(t, err)
	require.Equal(t, metricstore.StatusPartial, got.ScrapingStatus)
	require.True(t, got.ScrapingLastUpdate.Valid)

	// the second pass only re-runs the still-missing facts group
	summary, err = runner.Run(ctx, Range{Start: shop.ID, End: shop.ID})
	require.NoError(t, err)
	require.Equal(t, 1, summary.Completed)

	got, err = store.GetShop(ctx, shop.ID)
	require.NoError(t, err)
	require.Equal(t, metricstore.StatusCompleted, got.ScrapingStatus)

	missing, err := store.MissingMetrics(ctx, shop.ID)
	require.NoError(t, err)
	require.Empty(t, missing)

	// the analytics group converged on pass one and was not re-run
	require.Equal(t, 1, analytics.calls)
}

func TestRunnerAllGroupsFail(t *testing.T) {
	broken := &fakeExtractor{
		name:     "traffic",
		metrics:  analyticsMetricNames,
		failures: 1 << 30,
	}
	store, runner, shop := setupRunner(t, broken)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	summary, err := runner.Run(ctx, Range{Start: shop.ID, End: shop.ID})
	require.NoError(t, err)
	require.Equal(t, 1, summary.Failed)

	got, err := store.GetShop(ctx, shop.ID)
	require.NoError(t, err)
	require.Equal(t, metricstore.StatusFailed, got.ScrapingStatus)
}

func TestRunnerAuthFailureLeavesShopUntouched(t *testing.T) {
	locked := &fakeExtractor{
		name:     "traffic",
		metrics:  analyticsMetricNames,
		failures: 1 << 30,
		err:      trendtrack.ErrLoginFailed,
	}
	store, runner, shop := setupRunner(t, locked)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	_, err := runner.Run(ctx, Range{Start: shop.ID, End: shop.ID})
	require.ErrorIs(t, err, trendtrack.ErrLoginFailed)

	got, err := store.GetShop(ctx, shop.ID)
	require.NoError(t, err)
	require.Equal(t, metricstore.StatusEmpty, got.ScrapingStatus)
	require.False(t, got.ScrapingLastUpdate.Valid)
}

func TestRunnerSkipsNaShops(t *testing.T) {
	extractor := &fakeExtractor{
		name:    "traffic",
		metrics: analyticsMetricNames,
		obs:     fullAnalytics(),
	}
	store, runner, shop := setupRunner(t, extractor)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	require.NoError(t, store.SetShopStatus(ctx, shop.ID, metricstore.StatusNA))

	summary, err := runner.Run(ctx, Range{Start: shop.ID, End: shop.ID})
	require.NoError(t, err)
	require.Equal(t, 1, summary.Processed)
	require.Equal(t, 1, summary.Skipped)
	require.Equal(t, 0, extractor.calls)
}
