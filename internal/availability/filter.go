package availability

import (
	"sort"
	"strings"
)

// MyServicesToken selects the user's configured services.
const MyServicesToken = "__my__"

// ServiceFilter narrows entries by streaming service.
type ServiceFilter struct {
	mine     bool
	services ServiceSet
}

// ParseServiceFilter parses a comma-separated list of technical names, or
// MyServicesToken. An empty value matches everything.
func ParseServiceFilter(value string) ServiceFilter {
	value = strings.TrimSpace(value)
	if value == "" {
		return ServiceFilter{}
	}
	if value == MyServicesToken {
		return ServiceFilter{mine: true}
	}
	return ServiceFilter{services: NewServiceSet(strings.Split(value, ",")...)}
}

// Active reports whether the filter restricts anything.
func (f ServiceFilter) Active() bool {
	return f.mine || len(f.services) > 0
}

// Apply keeps entries offered on a requested service. For MyServicesToken,
// my is used; when my is nil, any entry with at least one service matches.
func (f ServiceFilter) Apply(entries []Entry, my ServiceSet) []Entry {
	if !f.Active() {
		return entries
	}
	wanted := f.services
	if f.mine {
		wanted = my
	}
	out := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		if len(entry.Services) == 0 {
			continue
		}
		if wanted == nil {
			out = append(out, entry)
			continue
		}
		for _, offer := range entry.Services {
			if wanted.Has(offer.TechnicalName) {
				out = append(out, entry)
				break
			}
		}
	}
	return out
}

// ServiceCount is how many movies a service carries.
type ServiceCount struct {
	Name             string `json:"name"`
	TechnicalName    string `json:"technical_name"`
	MonetizationType string `json:"monetization_type"`
	Count            int    `json:"count"`
}

// CountServices tallies services across entries, most common first.
func CountServices(entries []Entry) []ServiceCount {
	index := make(map[string]int)
	var counts []ServiceCount
	for _, entry := range entries {
		for _, offer := range entry.Services {
			i, ok := index[offer.TechnicalName]
			if !ok {
				i = len(counts)
				index[offer.TechnicalName] = i
				counts = append(counts, ServiceCount{
					Name:             offer.Name,
					TechnicalName:    offer.TechnicalName,
					MonetizationType: offer.MonetizationType,
				})
			}
			counts[i].Count++
		}
	}
	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	return counts
}
