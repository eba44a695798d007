package core

import (
	"fmt"
	"strings"
)

// Platform identifies a storefront.
type Platform string

const (
	PlatformSteam       Platform = "steam"
	PlatformXbox        Platform = "xbox"
	PlatformPlayStation Platform = "playstation"
	PlatformBattleNet   Platform = "battlenet"
)

// Platforms lists every supported storefront in watchlist order.
var Platforms = []Platform{PlatformSteam, PlatformBattleNet, PlatformXbox, PlatformPlayStation}

// Label returns the human readable platform name used in notifications.
func (p Platform) Label() string {
	switch p {
	case PlatformSteam:
		return "Steam"
	case PlatformXbox:
		return "Xbox"
	case PlatformPlayStation:
		return "PlayStation"
	case PlatformBattleNet:
		return "Battle.net"
	default:
		return string(p)
	}
}

// IDPrefix returns the prefix used when deriving record ids.
// The short forms match ids already persisted by earlier deployments.
func (p Platform) IDPrefix() string {
	switch p {
	case PlatformPlayStation:
		return "ps"
	case PlatformBattleNet:
		return "bnet"
	default:
		return string(p)
	}
}

func (p Platform) Valid() bool {
	switch p {
	case PlatformSteam, PlatformXbox, PlatformPlayStation, PlatformBattleNet:
		return true
	default:
		return false
	}
}

// ParsePlatform accepts the canonical names plus a few common spellings.
func ParsePlatform(raw string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "steam":
		return PlatformSteam, nil
	case "xbox":
		return PlatformXbox, nil
	case "playstation", "ps", "psn":
		return PlatformPlayStation, nil
	case "battlenet", "battle.net", "bnet":
		return PlatformBattleNet, nil
	default:
		return "", fmt.Errorf("unknown platform %q", raw)
	}
}

// Target is one watched title on one storefront.
type Target struct {
	Platform Platform `json:"platform" yaml:"platform"`
	Title    string   `json:"title" yaml:"title"`
	URL      string   `json:"url" yaml:"url"`
}

// ID returns the stable identifier for discounts on this target.
func (t Target) ID() string {
	return RecordID(t.Platform, t.Title)
}

func RecordID(platform Platform, title string) string {
	return platform.IDPrefix() + "_" + title
}

// DiscountRecord is a single source's report that a title is currently reduced in price.
// Only ID outlives the poll cycle that produced it.
type DiscountRecord struct {
	ID              string   `json:"id" yaml:"id"`
	Title           string   `json:"title" yaml:"title"`
	Platform        Platform `json:"platform" yaml:"platform"`
	URL             string   `json:"url" yaml:"url"`
	OriginalPrice   string   `json:"original_price,omitempty" yaml:"original_price,omitempty"`
	CurrentPrice    string   `json:"current_price,omitempty" yaml:"current_price,omitempty"`
	DiscountLabel   string   `json:"discount_label,omitempty" yaml:"discount_label,omitempty"`
	DiscountPercent int      `json:"discount_percent,omitempty" yaml:"discount_percent,omitempty"`
	ImageURL        string   `json:"image_url,omitempty" yaml:"image_url,omitempty"`
}

// NewRecord builds a record for target with its derived id.
func NewRecord(target Target) *DiscountRecord {
	return &DiscountRecord{
		ID:       target.ID(),
		Title:    target.Title,
		Platform: target.Platform,
		URL:      target.URL,
	}
}

// HasPrices reports whether both was and now prices were parsed.
func (r DiscountRecord) HasPrices() bool {
	return r.OriginalPrice != "" && r.CurrentPrice != ""
}

// SourceResult is the outcome of fetching one target.
// A nil Record with a nil Err means no discount was detected.
type SourceResult struct {
	Target Target          `json:"target"`
	Record *DiscountRecord `json:"record,omitempty"`
	Err    error           `json:"-"`
	Error  string          `json:"error,omitempty"`
}

// Failed reports whether the target's state is unknown for this cycle.
func (r SourceResult) Failed() bool {
	return r.Err != nil || r.Error != ""
}

// Sweep holds one result per target in watchlist order.
type Sweep struct {
	Results []SourceResult `json:"results"`
}

// Records returns the detected discounts in watchlist order.
func (s Sweep) Records() []DiscountRecord {
	out := make([]DiscountRecord, 0, len(s.Results))
	for _, result := range s.Results {
		if result.Failed() || result.Record == nil {
			continue
		}
		out = append(out, *result.Record)
	}
	return out
}

// UnknownIDs returns the ids of targets whose fetch failed this cycle.
func (s Sweep) UnknownIDs() []string {
	var out []string
	for _, result := range s.Results {
		if result.Failed() {
			out = append(out, result.Target.ID())
		}
	}
	return out
}

// Failures counts failed targets.
func (s Sweep) Failures() int {
	return len(s.UnknownIDs())
}

// Filter returns a copy of the sweep in which only records whose id is in keep
// remain. Dropped records read as "no discount detected"; failures are untouched.
func (s Sweep) Filter(keep []DiscountRecord) Sweep {
	ids := make(map[string]struct{}, len(keep))
	for _, r := range keep {
		ids[r.ID] = struct{}{}
	}
	out := Sweep{Results: make([]SourceResult, len(s.Results))}
	for i, result := range s.Results {
		out.Results[i] = result
		if result.Record == nil {
			continue
		}
		if _, ok := ids[result.Record.ID]; !ok {
			out.Results[i].Record = nil
		}
	}
	return out
}
