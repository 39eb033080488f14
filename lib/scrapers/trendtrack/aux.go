package trendtrack

import (
	"bytes"
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	"shopmetrics-backend/lib/htmlutil"
	"shopmetrics-backend/lib/metricval"
	"shopmetrics-backend/lib/stealth"
	"shopmetrics-backend/lib/telemetry"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	googlePixelRegex   = regexp.MustCompile(`(?i)googletagmanager\.com/gtag|gtag\(|google-analytics\.com/analytics`)
	facebookPixelRegex = regexp.MustCompile(`(?i)connect\.facebook\.net/[^"']+/fbevents|fbq\(`)
	copyrightYearRegex = regexp.MustCompile(`(?:©|&copy;|\(c\)|copyright)\s*(\d{4})`)
	foundingDateRegex  = regexp.MustCompile(`"foundingDate"\s*:\s*"(\d{4})`)
)

// AuxiliaryExtractor sniffs the storefront itself rather than either
// metrics product: tracking pixels and the founding year from the
// homepage, catalog size and an order-value estimate from the standard
// products feed.
type AuxiliaryExtractor struct {
	http     *resty.Client
	throttle *stealth.Throttle
}

func NewAuxiliaryExtractor(throttle *stealth.Throttle) *AuxiliaryExtractor {
	if throttle == nil {
		throttle = stealth.New(stealth.DefaultOptions())
	}
	identity := throttle.Identity()

	client := resty.New()
	client.SetHeader("user-agent", identity.UserAgent)
	client.SetHeader("accept-language", identity.AcceptLanguage)
	client.SetTimeout(time.Second * 30)
	telemetry.InstrumentResty(client, "scrapers/trendtrack/storefront")

	return &AuxiliaryExtractor{
		http:     client,
		throttle: throttle,
	}
}

func (e *AuxiliaryExtractor) Name() string {
	return "auxiliary"
}

func (e *AuxiliaryExtractor) Metrics() []string {
	return []string{
		"pixel_google",
		"pixel_facebook",
		"founding_year",
		"total_products",
		"aov",
	}
}

func (e *AuxiliaryExtractor) Extract(ctx context.Context, shopUrl string, missing map[string]bool) (Observation, error) {
	ctx, span := tracer.Start(ctx, "auxiliary:Extract")
	defer span.End()

	span.SetAttributes(attribute.String("shop_url", shopUrl))

	base := shopUrl
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}
	base = strings.TrimSuffix(base, "/")

	var out ShopInfo

	if err := e.throttle.Throttle(ctx, "storefront"); err != nil {
		return Observation{}, err
	}
	res, err := e.http.R().SetContext(ctx).Get(base)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch homepage")
		return Observation{}, err
	}
	if res.StatusCode() < 400 {
		body := res.Body()
		google := googlePixelRegex.Match(body)
		facebook := facebookPixelRegex.Match(body)
		out.PixelGoogle = &google
		out.PixelFacebook = &facebook

		if doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body)); err == nil {
			out.Name = parseStoreName(doc)
			out.FoundingYear = parseFoundingYearDoc(doc, body)
		}
	}

	if err := e.throttle.Throttle(ctx, "storefront"); err != nil {
		return Observation{}, err
	}
	res, err = e.http.R().SetContext(ctx).Get(base + "/products.json?limit=250")
	if err == nil && res.StatusCode() < 400 {
		total, aov := parseProductsFeed(res.Body())
		out.TotalProducts = total
		out.Aov = aov
	}

	return Observation{Shop: out}, nil
}

func parseStoreName(doc *goquery.Document) *string {
	name, _ := doc.Find(`meta[property="og:site_name"]`).Attr("content")
	name = strings.TrimSpace(name)
	if name == "" {
		name = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if name == "" {
		return nil
	}
	return &name
}

// parseFoundingYearDoc prefers an explicit foundingDate in the page's
// structured data and falls back to copyright notices.
func parseFoundingYearDoc(doc *goquery.Document, body []byte) *int64 {
	if script := htmlutil.FindScript(doc, foundingDateRegex); script != "" {
		m := foundingDateRegex.FindStringSubmatch(script)
		year, err := strconv.ParseInt(m[1], 10, 64)
		if err == nil && year >= 1990 && year <= int64(time.Now().Year()) {
			return &year
		}
	}
	return parseFoundingYear(body)
}

// parseFoundingYear takes the earliest plausible year out of copyright
// notices in the page.
func parseFoundingYear(body []byte) *int64 {
	matches := copyrightYearRegex.FindAllSubmatch(bytes.ToLower(body), -1)
	currentYear := int64(time.Now().Year())

	var earliest int64
	for _, m := range matches {
		year, err := strconv.ParseInt(string(m[1]), 10, 64)
		if err != nil || year < 1990 || year > currentYear {
			continue
		}
		if earliest == 0 || year < earliest {
			earliest = year
		}
	}
	if earliest == 0 {
		return nil
	}
	return &earliest
}

// parseProductsFeed reads the shopify-style products feed, returning
// the product count and the mean variant price as an order value
// estimate.
func parseProductsFeed(body []byte) (*int64, *float64) {
	var feed struct {
		Products []struct {
			Variants []struct {
				Price json.RawMessage `json:"price"`
			} `json:"variants"`
		} `json:"products"`
	}
	if err := json.Unmarshal(body, &feed); err != nil {
		return nil, nil
	}
	if len(feed.Products) == 0 {
		return nil, nil
	}

	total := int64(len(feed.Products))

	var sum float64
	var priced int
	for _, p := range feed.Products {
		for _, v := range p.Variants {
			if price, ok := metricval.ToNumeric(rawScalar(v.Price)); ok {
				sum += price
				priced++
			}
		}
	}
	if priced == 0 {
		return &total, nil
	}
	aov := sum / float64(priced)
	return &total, &aov
}
