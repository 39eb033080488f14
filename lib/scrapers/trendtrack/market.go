package trendtrack

import (
	"context"
	"strings"

	"shopmetrics-backend/lib/browse"
	"shopmetrics-backend/lib/metricval"

	"github.com/PuerkitoBio/goquery"
	"github.com/antzucaro/matchr"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// target countries, in storage column order
var marketCountries = []string{"us", "uk", "de", "ca", "au", "fr"}

// labels the console uses for each country. Matching is fuzzy since
// the console alternates between codes, full names and flag captions.
var countryLabels = map[string][]string{
	"us": {"us", "usa", "united states", "united states of america"},
	"uk": {"uk", "gb", "gbr", "united kingdom", "great britain"},
	"de": {"de", "deu", "germany", "deutschland"},
	"ca": {"ca", "can", "canada"},
	"au": {"au", "aus", "australia"},
	"fr": {"fr", "fra", "france"},
}

const countryMatchThreshold = 0.92

var (
	marketSectionLocator = browse.Locator{
		Role: "market breakdown section",
		Selectors: []string{
			`[data-testid="market-breakdown"]`,
			`section.market-breakdown`,
			`#top-countries`,
		},
	}
	marketRowLocator = browse.Locator{
		Role: "market breakdown row",
		Selectors: []string{
			`[data-testid="market-row"]`,
			`.market-breakdown__row`,
			`li.country-row`,
		},
	}
)

// MarketExtractor reads the per-country traffic share section of the
// console overview page.
type MarketExtractor struct {
	session *Session
}

func NewMarketExtractor(session *Session) *MarketExtractor {
	return &MarketExtractor{session: session}
}

func (e *MarketExtractor) Name() string {
	return "market"
}

func (e *MarketExtractor) Metrics() []string {
	out := make([]string, len(marketCountries))
	for i, c := range marketCountries {
		out[i] = "market_" + c
	}
	return out
}

func (e *MarketExtractor) Extract(ctx context.Context, shopUrl string, missing map[string]bool) (Observation, error) {
	ctx, span := tracer.Start(ctx, "market:Extract")
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

	markets, observed := parseMarkets(doc)
	if !observed {
		span.SetAttributes(attribute.Bool("observed", false))
		return Observation{}, nil
	}
	return Observation{Shop: ShopInfo{Markets: markets}}, nil
}

// matchCountry maps a scraped label onto one of the target countries,
// first by exact alias, then by closest fuzzy match over the alias
// lists.
func matchCountry(label string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(label))
	if normalized == "" {
		return "", false
	}

	for country, aliases := range countryLabels {
		for _, alias := range aliases {
			if normalized == alias {
				return country, true
			}
		}
	}

	best := ""
	var bestSimilarity float64
	for country, aliases := range countryLabels {
		for _, alias := range aliases {
			similarity := matchr.JaroWinkler(normalized, alias, false)
			if similarity > bestSimilarity {
				bestSimilarity = similarity
				best = country
			}
		}
	}
	if bestSimilarity < countryMatchThreshold {
		return "", false
	}
	return best, true
}

// parseMarkets reads the market section. observed=false means the
// section is absent from the page entirely; when it is present, every
// target country gets a value, zero for countries the section does not
// list.
func parseMarkets(doc *goquery.Document) (map[string]float64, bool) {
	section := marketSectionLocator.First(doc)
	if section == nil {
		return nil, false
	}

	markets := map[string]float64{}
	for _, c := range marketCountries {
		markets[c] = 0
	}

	rows := marketRowLocator.All(doc)
	if rows == nil {
		return markets, true
	}
	rows.Each(func(_ int, row *goquery.Selection) {
		label := strings.TrimSpace(row.Find(".country, .label, [data-testid=\"country-label\"]").First().Text())
		if label == "" {
			// fall back to the first text cell
			label = strings.TrimSpace(row.Children().First().Text())
		}
		country, ok := matchCountry(label)
		if !ok {
			return
		}

		raw := strings.TrimSpace(row.Find(".share, .value, [data-testid=\"country-share\"]").First().Text())
		if raw == "" {
			raw = strings.TrimSpace(row.Children().Last().Text())
		}
		if share, ok := metricval.ToNumeric(raw); ok {
			markets[country] = share
		}
	})

	return markets, true
}
