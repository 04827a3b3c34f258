package availability

import (
	"strings"

	"mubi1000/internal/streamcache"
)

// DisplayOffer is one service shown for a movie.
type DisplayOffer struct {
	Name             string `json:"name"`
	TechnicalName    string `json:"technical_name"`
	MonetizationType string `json:"monetization_type"`
}

// Project derives the display offers for a cached record. It never fails:
// an absent record (zero value) projects to an empty list. A nil my set
// disables the my-services filter. Output order follows the first occurrence
// of each canonical service in the cached offers.
func (p Policy) Project(rec streamcache.Record, my ServiceSet) []DisplayOffer {
	out := make([]DisplayOffer, 0, len(rec.Offers))
	seen := make(map[string]struct{}, len(rec.Offers))
	for _, offer := range rec.Offers {
		if !p.Includes(offer.MonetizationType) {
			continue
		}
		technical := strings.TrimSpace(offer.TechnicalName)
		if technical == "" || p.Excluded(technical) || p.IsReseller(technical) {
			continue
		}

		display := DisplayOffer{
			Name:             offer.ServiceName,
			TechnicalName:    technical,
			MonetizationType: offer.MonetizationType,
		}
		if alias, ok := p.Canonical(technical); ok {
			display.TechnicalName = alias.TechnicalName
			display.Name = alias.Name
		}

		if _, dup := seen[display.TechnicalName]; dup {
			continue
		}
		seen[display.TechnicalName] = struct{}{}

		if my != nil && !my.Has(display.TechnicalName) {
			continue
		}
		out = append(out, display)
	}
	return out
}

// TechnicalNames returns the technical names of offers, in order.
func TechnicalNames(offers []DisplayOffer) []string {
	names := make([]string, 0, len(offers))
	for _, offer := range offers {
		names = append(names, offer.TechnicalName)
	}
	return names
}
