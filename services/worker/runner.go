// Package worker drives the scraping loop for one partition of the
// shop table. Each worker process owns exactly one Runner; workers
// never share state, coordination happens entirely through the
// database and the id partition.
package worker

import (
	"context"
	"errors"
	"log/slog"

	"shopmetrics-backend/lib/scrapers/trendtrack"
	"shopmetrics-backend/lib/stealth"
	"shopmetrics-backend/services/metricstore"
	"shopmetrics-backend/services/metricstore/db"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/worker")

type RunnerOptions struct {
	WorkerId   int
	Store      metricstore.Store
	Extractors []trendtrack.Extractor
	Throttle   *stealth.Throttle
}

type Runner struct {
	opts RunnerOptions
}

func NewRunner(opts RunnerOptions) *Runner {
	if opts.Throttle == nil {
		opts.Throttle = stealth.New(stealth.DefaultOptions())
	}
	return &Runner{opts: opts}
}

// Summary counts per-shop outcomes of one pass over a range.
type Summary struct {
	Processed int
	Completed int
	Partial   int
	Failed    int
	Skipped   int
}

// Run makes one pass over every shop in the range. It stops early on
// context cancellation or when the scraping session cannot
// authenticate, since every later shop would hit the same wall.
func (r *Runner) Run(ctx context.Context, rng Range) (Summary, error) {
	ctx, span := tracer.Start(ctx, "runner:Run")
	defer span.End()

	span.SetAttributes(
		attribute.Int("worker_id", r.opts.WorkerId),
		attribute.Int64("range_start", rng.Start),
		attribute.Int64("range_end", rng.End),
	)

	var summary Summary
	if rng.Empty() {
		slog.InfoContext(ctx, "empty shop range, nothing to do", "worker_id", r.opts.WorkerId)
		return summary, nil
	}

	shops, err := r.opts.Store.ListShopsInRange(ctx, rng.Start, rng.End)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list shops")
		return summary, err
	}

	for _, shop := range shops {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		status, err := r.runShop(ctx, shop)
		if err != nil {
			if errors.Is(err, trendtrack.ErrLoginFailed) {
				// auth is broken for the whole session; shops keep
				// whatever status they had
				span.RecordError(err)
				span.SetStatus(codes.Error, "authentication failed")
				return summary, err
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return summary, err
			}
			slog.ErrorContext(
				ctx, "shop pass errored",
				"worker_id", r.opts.WorkerId,
				"shop_id", shop.ID,
				"shop_url", shop.ShopUrl,
				"err", err,
			)
			summary.Failed++
			continue
		}

		summary.Processed++
		switch status {
		case metricstore.StatusCompleted:
			summary.Completed++
		case metricstore.StatusPartial:
			summary.Partial++
		case metricstore.StatusFailed:
			summary.Failed++
		default:
			summary.Skipped++
		}
	}

	slog.InfoContext(
		ctx, "range pass finished",
		"worker_id", r.opts.WorkerId,
		"processed", summary.Processed,
		"completed", summary.Completed,
		"partial", summary.Partial,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
	)
	return summary, nil
}

// runShop scrapes every metric group a shop still misses and merges
// the results. The returned status is what the shop was left with.
func (r *Runner) runShop(ctx context.Context, shop db.Shop) (string, error) {
	ctx, span := tracer.Start(ctx, "runner:runShop")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("shop_id", shop.ID),
		attribute.String("shop_url", shop.ShopUrl),
	)

	missing, err := r.opts.Store.MissingMetrics(ctx, shop.ID)
	if err != nil {
		return "", err
	}
	if shop.ScrapingStatus == metricstore.StatusNA {
		return shop.ScrapingStatus, nil
	}
	if len(missing) == 0 {
		if shop.ScrapingStatus != metricstore.StatusCompleted {
			if err := r.opts.Store.SetShopStatus(ctx, shop.ID, metricstore.StatusCompleted); err != nil {
				return "", err
			}
		}
		return metricstore.StatusCompleted, nil
	}

	missingSet := map[string]bool{}
	for _, m := range missing {
		missingSet[m] = true
	}

	attempted := 0
	succeeded := 0
	for _, extractor := range r.opts.Extractors {
		if !servesAnyOf(extractor, missingSet) {
			continue
		}
		attempted++

		obs, err := r.extractWithRetry(ctx, extractor, shop.ShopUrl, missingSet)
		if err != nil {
			if errors.Is(err, trendtrack.ErrLoginFailed) || ctx.Err() != nil {
				return "", err
			}
			slog.WarnContext(
				ctx, "metric group failed",
				"group", extractor.Name(),
				"shop_url", shop.ShopUrl,
				"err", err,
			)
			continue
		}
		succeeded++

		if hasAnalytics(obs.Analytics) {
			_, err := r.opts.Store.MergeAnalytics(ctx, shop.ID, toAnalytics(obs.Analytics), metricstore.StatusPartial)
			if err != nil {
				return "", err
			}
		}
		if hasShopFacts(obs.Shop) {
			_, err := r.opts.Store.MergeShopFacts(ctx, shop.ID, toShopFacts(obs.Shop))
			if err != nil {
				return "", err
			}
		}
	}

	status := metricstore.StatusPartial
	switch {
	case attempted == 0:
		// nothing can serve the remaining metrics
	case succeeded == 0:
		status = metricstore.StatusFailed
	default:
		remaining, err := r.opts.Store.MissingMetrics(ctx, shop.ID)
		if err != nil {
			return "", err
		}
		if len(remaining) == 0 {
			status = metricstore.StatusCompleted
		}
	}

	if err := r.opts.Store.SetShopStatus(ctx, shop.ID, status); err != nil {
		return "", err
	}
	if succeeded > 0 {
		_, err := r.opts.Store.MergeAnalytics(ctx, shop.ID, metricstore.AnalyticsMetrics{}, status)
		if err != nil {
			return "", err
		}
	}
	return status, nil
}

func (r *Runner) extractWithRetry(
	ctx context.Context,
	extractor trendtrack.Extractor,
	shopUrl string,
	missing map[string]bool,
) (trendtrack.Observation, error) {
	var lastErr error
	for attempt := 1; ; attempt++ {
		obs, err := extractor.Extract(ctx, shopUrl, missing)
		if err == nil {
			return obs, nil
		}
		lastErr = err
		if errors.Is(err, trendtrack.ErrLoginFailed) {
			return trendtrack.Observation{}, err
		}
		if !r.opts.Throttle.Backoff(ctx, extractor.Name(), attempt) {
			return trendtrack.Observation{}, lastErr
		}
	}
}

func servesAnyOf(extractor trendtrack.Extractor, missing map[string]bool) bool {
	for _, m := range extractor.Metrics() {
		if missing[m] {
			return true
		}
	}
	return false
}
