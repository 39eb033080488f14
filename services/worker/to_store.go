package worker

import (
	"shopmetrics-backend/lib/scrapers/trendtrack"
	"shopmetrics-backend/services/metricstore"
)

func toAnalytics(a trendtrack.Analytics) metricstore.AnalyticsMetrics {
	return metricstore.AnalyticsMetrics{
		OrganicTraffic:        a.OrganicTraffic,
		PaidSearchTraffic:     a.PaidSearchTraffic,
		BrandedTraffic:        a.BrandedTraffic,
		PercentBrandedTraffic: a.PercentBrandedTraffic,
		BounceRate:            a.BounceRate,
		AvgVisitDuration:      a.AvgVisitDuration,
		ConversionRate:        a.ConversionRate,
		Visits:                a.Visits,
		Traffic:               a.Traffic,
		Cpc:                   a.Cpc,
	}
}

func toShopFacts(s trendtrack.ShopInfo) metricstore.ShopFacts {
	facts := metricstore.ShopFacts{
		ShopName:      s.Name,
		CreationDate:  s.CreationDate,
		FoundingYear:  s.FoundingYear,
		TotalProducts: s.TotalProducts,
		PixelGoogle:   s.PixelGoogle,
		PixelFacebook: s.PixelFacebook,
		Aov:           s.Aov,
		LiveAds:       s.LiveAds,
		LiveAdsTrend:  s.LiveAdsTrend,
	}
	if s.Markets != nil {
		market := func(code string) *float64 {
			v, ok := s.Markets[code]
			if !ok {
				return nil
			}
			return &v
		}
		facts.MarketUs = market("us")
		facts.MarketUk = market("uk")
		facts.MarketDe = market("de")
		facts.MarketCa = market("ca")
		facts.MarketAu = market("au")
		facts.MarketFr = market("fr")
	}
	return facts
}

func hasAnalytics(a trendtrack.Analytics) bool {
	return a.OrganicTraffic != nil ||
		a.PaidSearchTraffic != nil ||
		a.BrandedTraffic != nil ||
		a.PercentBrandedTraffic != nil ||
		a.BounceRate != nil ||
		a.AvgVisitDuration != nil ||
		a.ConversionRate != nil ||
		a.Visits != nil ||
		a.Traffic != nil ||
		a.Cpc != nil
}

func hasShopFacts(s trendtrack.ShopInfo) bool {
	return s.Name != nil ||
		s.CreationDate != nil ||
		s.FoundingYear != nil ||
		s.TotalProducts != nil ||
		s.PixelGoogle != nil ||
		s.PixelFacebook != nil ||
		s.Aov != nil ||
		s.LiveAds != nil ||
		s.LiveAdsTrend != nil ||
		s.Markets != nil
}
