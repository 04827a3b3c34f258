package availability

import (
	"fmt"
	"sort"
	"strings"

	"mubi1000/internal/config"
)

// Alias maps a duplicate technical name onto its canonical service.
type Alias struct {
	TechnicalName string
	Name          string
}

// Policy controls which cached offers are displayed.
type Policy struct {
	includedMonetization map[string]struct{}
	excluded             map[string]struct{}
	resellerPrefixes     []string
	firstParty           map[string]struct{}
	aliases              map[string]Alias
}

// Built-in policy values.
var (
	DefaultIncludedMonetization = []string{"FLATRATE", "FREE"}
	DefaultResellerPrefixes     = []string{"amazon", "rokuchannel", "appletv"}
	DefaultFirstParty           = []string{"amazon", "amazonprime", "rokuchannel", "appletvplus"}
	DefaultExcludedServices     = []string{"amazonprimevideowithads", "netflixbasicwithads"}
	DefaultAliases              = map[string]Alias{
		"plexplayer":           {TechnicalName: "plex", Name: "Plex"},
		"justwatchplexchannel": {TechnicalName: "plex", Name: "Plex"},
	}
)

// DefaultPolicy returns the built-in projection policy.
func DefaultPolicy() Policy {
	return NewPolicy(DefaultIncludedMonetization, DefaultResellerPrefixes, DefaultFirstParty, DefaultExcludedServices, DefaultAliases)
}

// NewPolicy builds a policy from explicit lists.
func NewPolicy(included, resellerPrefixes, firstParty, excluded []string, aliases map[string]Alias) Policy {
	p := Policy{
		includedMonetization: toSet(included, strings.ToUpper),
		excluded:             toSet(excluded, strings.ToLower),
		firstParty:           toSet(firstParty, strings.ToLower),
		aliases:              make(map[string]Alias, len(aliases)),
	}
	for _, prefix := range resellerPrefixes {
		if prefix = strings.ToLower(strings.TrimSpace(prefix)); prefix != "" {
			p.resellerPrefixes = append(p.resellerPrefixes, prefix)
		}
	}
	for from, to := range aliases {
		p.aliases[strings.ToLower(strings.TrimSpace(from))] = to
	}
	return p
}

// PolicyFromConfig overlays configured values on the built-in policy. Empty
// lists keep the defaults.
func PolicyFromConfig(cfg config.Availability) (Policy, error) {
	included := pick(cfg.IncludedMonetization, DefaultIncludedMonetization)
	prefixes := pick(cfg.ResellerPrefixes, DefaultResellerPrefixes)
	firstParty := pick(cfg.FirstParty, DefaultFirstParty)
	excluded := pick(cfg.ExcludedServices, DefaultExcludedServices)

	aliases := DefaultAliases
	if len(cfg.Aliases) > 0 {
		aliases = make(map[string]Alias, len(cfg.Aliases))
		for from, target := range cfg.Aliases {
			technical, name, ok := strings.Cut(target, "|")
			technical, name = strings.TrimSpace(technical), strings.TrimSpace(name)
			if !ok || technical == "" || name == "" {
				return Policy{}, fmt.Errorf("alias %q: expected \"canonical|Display Name\", got %q", from, target)
			}
			aliases[from] = Alias{TechnicalName: technical, Name: name}
		}
	}
	return NewPolicy(included, prefixes, firstParty, excluded, aliases), nil
}

// IsReseller reports whether technicalName is a channel resold through another
// platform rather than a first-party service.
func (p Policy) IsReseller(technicalName string) bool {
	name := strings.ToLower(technicalName)
	if _, ok := p.firstParty[name]; ok {
		return false
	}
	for _, prefix := range p.resellerPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// Includes reports whether a monetization type is shown at all.
func (p Policy) Includes(monetizationType string) bool {
	_, ok := p.includedMonetization[strings.ToUpper(monetizationType)]
	return ok
}

// Excluded reports whether a service is always hidden.
func (p Policy) Excluded(technicalName string) bool {
	_, ok := p.excluded[strings.ToLower(technicalName)]
	return ok
}

// Canonical returns the alias target for technicalName, if any.
func (p Policy) Canonical(technicalName string) (Alias, bool) {
	alias, ok := p.aliases[strings.ToLower(technicalName)]
	return alias, ok
}

// Describe lists the effective policy for display.
func (p Policy) Describe() map[string][]string {
	aliases := make([]string, 0, len(p.aliases))
	for from, to := range p.aliases {
		aliases = append(aliases, from+" -> "+to.TechnicalName)
	}
	sort.Strings(aliases)
	return map[string][]string{
		"included_monetization": sortedKeys(p.includedMonetization),
		"excluded_services":     sortedKeys(p.excluded),
		"reseller_prefixes":     append([]string(nil), p.resellerPrefixes...),
		"first_party":           sortedKeys(p.firstParty),
		"aliases":               aliases,
	}
}

func pick(configured, fallback []string) []string {
	if len(configured) > 0 {
		return configured
	}
	return fallback
}

func toSet(values []string, fold func(string) string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v = fold(strings.TrimSpace(v)); v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
