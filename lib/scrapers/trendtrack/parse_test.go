package trendtrack

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func doc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return d
}

func TestParseTrafficOverview(t *testing.T) {
	var overview trafficOverview
	err := json.Unmarshal([]byte(`{
		"organicTraffic": "1,234",
		"paidSearchTraffic": 250,
		"brandedTraffic": "n/a",
		"percentBrandedTraffic": "42%",
		"visits": 9000,
		"traffic": "12.5K",
		"cpc": "0.35"
	}`), &overview)
	require.NoError(t, err)

	out := parseTrafficOverview(overview)
	require.NotNil(t, out.OrganicTraffic)
	require.Equal(t, int64(1234), *out.OrganicTraffic)
	require.NotNil(t, out.PaidSearchTraffic)
	require.Equal(t, int64(250), *out.PaidSearchTraffic)
	require.Nil(t, out.BrandedTraffic)
	require.NotNil(t, out.PercentBrandedTraffic)
	require.InDelta(t, 0.42, *out.PercentBrandedTraffic, 1e-9)
	require.NotNil(t, out.Visits)
	require.Equal(t, int64(9000), *out.Visits)
	require.NotNil(t, out.Traffic)
	require.Equal(t, int64(12500), *out.Traffic)
	require.NotNil(t, out.Cpc)
	require.InDelta(t, 0.35, *out.Cpc, 1e-9)
}

func TestParseMarketsOneCountry(t *testing.T) {
	d := doc(t, `
		<section data-testid="market-breakdown">
			<div data-testid="market-row">
				<span class="country">United States</span>
				<span class="share">82.5%</span>
			</div>
		</section>`)

	markets, observed := parseMarkets(d)
	require.True(t, observed)
	require.InDelta(t, 82.5, markets["us"], 1e-9)
	for _, c := range []string{"uk", "de", "ca", "au", "fr"} {
		require.Equal(t, 0.0, markets[c], c)
	}
}

func TestParseMarketsAbsent(t *testing.T) {
	d := doc(t, `<main><h1>Overview</h1></main>`)
	markets, observed := parseMarkets(d)
	require.False(t, observed)
	require.Nil(t, markets)
}

func TestMatchCountry(t *testing.T) {
	for label, expected := range map[string]string{
		"US":             "us",
		"GB":             "uk",
		"United Kingdom": "uk",
		"Deutschland":    "de",
		"Untied States":  "us",
		"france":         "fr",
	} {
		country, ok := matchCountry(label)
		require.True(t, ok, label)
		require.Equal(t, expected, country, label)
	}

	_, ok := matchCountry("Japan")
	require.False(t, ok)
	_, ok = matchCountry("")
	require.False(t, ok)
}

func TestParseEngagement(t *testing.T) {
	d := doc(t, `
		<div class="engagement">
			<div data-testid="bounce-rate"><span class="value">38%</span></div>
			<div data-testid="avg-visit-duration"><span class="value">2:45</span></div>
			<div data-testid="conversion-rate"><span class="value">1.8%</span></div>
		</div>`)

	out := parseEngagement(d)
	require.NotNil(t, out.BounceRate)
	require.InDelta(t, 0.38, *out.BounceRate, 1e-9)
	require.NotNil(t, out.AvgVisitDuration)
	require.Equal(t, 165.0, *out.AvgVisitDuration)
	require.NotNil(t, out.ConversionRate)
	require.InDelta(t, 0.018, *out.ConversionRate, 1e-9)
}

func TestParseEngagementSentinels(t *testing.T) {
	d := doc(t, `
		<div class="engagement">
			<div data-testid="bounce-rate"><span class="value">n/a</span></div>
		</div>`)

	out := parseEngagement(d)
	require.Nil(t, out.BounceRate)
	require.Nil(t, out.AvgVisitDuration)
	require.Nil(t, out.ConversionRate)
}

func TestParseAds(t *testing.T) {
	d := doc(t, `
		<div class="ads-panel">
			<div data-testid="live-ads"><span class="count">1.2K</span></div>
			<div data-testid="live-ads-trend" class="trend trend--down">34</div>
		</div>`)

	out := parseAds(d)
	require.NotNil(t, out.LiveAds)
	require.Equal(t, int64(1200), *out.LiveAds)
	require.NotNil(t, out.LiveAdsTrend)
	require.Equal(t, int64(-34), *out.LiveAdsTrend)
}

func TestParseAdsThousandsSeparator(t *testing.T) {
	d := doc(t, `
		<div class="ads-panel">
			<div data-testid="live-ads"><span class="count">1,234</span></div>
			<div data-testid="live-ads-trend" class="trend trend--down">1,020</div>
		</div>`)

	out := parseAds(d)
	require.NotNil(t, out.LiveAds)
	require.Equal(t, int64(1234), *out.LiveAds)
	require.NotNil(t, out.LiveAdsTrend)
	require.Equal(t, int64(-1020), *out.LiveAdsTrend)
}

func TestParseAdsTextSign(t *testing.T) {
	d := doc(t, `
		<div class="ads-panel">
			<div data-testid="live-ads-trend" class="trend">+12</div>
		</div>`)

	out := parseAds(d)
	require.Nil(t, out.LiveAds)
	require.NotNil(t, out.LiveAdsTrend)
	require.Equal(t, int64(12), *out.LiveAdsTrend)
}

func TestParseFoundingYear(t *testing.T) {
	year := parseFoundingYear([]byte(`<footer>© 2015-2024 Acme Widgets</footer>`))
	require.NotNil(t, year)
	require.Equal(t, int64(2015), *year)

	require.Nil(t, parseFoundingYear([]byte(`<footer>no copyright here</footer>`)))
	// implausible years are ignored
	require.Nil(t, parseFoundingYear([]byte(`© 1776 Acme`)))
}

func TestParseFoundingYearStructuredData(t *testing.T) {
	html := `<html><head><script type="application/ld+json">
		{"@type": "Organization", "foundingDate": "2018-03-01"}
	</script></head><body><footer>© 2021 Acme</footer></body></html>`
	year := parseFoundingYearDoc(doc(t, html), []byte(html))
	require.NotNil(t, year)
	require.Equal(t, int64(2018), *year)
}

func TestParseProductsFeed(t *testing.T) {
	total, aov := parseProductsFeed([]byte(`{
		"products": [
			{"variants": [{"price": "10.00"}, {"price": "20.00"}]},
			{"variants": [{"price": "30.00"}]}
		]
	}`))
	require.NotNil(t, total)
	require.Equal(t, int64(2), *total)
	require.NotNil(t, aov)
	require.InDelta(t, 20.0, *aov, 1e-9)

	total, aov = parseProductsFeed([]byte(`not json`))
	require.Nil(t, total)
	require.Nil(t, aov)
}

func TestParentDomain(t *testing.T) {
	require.Equal(t, ".trendtrack.io", parentDomain("app.trendtrack.io"))
	require.Equal(t, ".trendtrack.io", parentDomain(".app.trendtrack.io"))
	require.Equal(t, "trendtrack.io", parentDomain("trendtrack.io"))
}

func TestIsSessionCookie(t *testing.T) {
	require.True(t, isSessionCookie("tt_session"))
	require.True(t, isSessionCookie("AuthToken"))
	require.True(t, isSessionCookie("member_id"))
	require.False(t, isSessionCookie("locale"))
	require.False(t, isSessionCookie("_ga"))
}
