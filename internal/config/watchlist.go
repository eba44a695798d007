package config

import (
	"bytes"
	"errors"
	"io"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"

	"github.com/expr-lang/expr"
	"gopkg.in/yaml.v3"

	"github.com/bakkerme/salewatch/internal/core"
)

// WatchDocument is the root of a watchlist YAML file.
type WatchDocument struct {
	Watchlist Watchlist `yaml:"watchlist"`
}

// Watchlist groups the watched titles by storefront. Each group keeps its
// file order and groups are visited in core.Platforms order.
type Watchlist struct {
	Name        string       `yaml:"name"`
	Rule        string       `yaml:"rule"`
	Steam       []WatchEntry `yaml:"steam"`
	BattleNet   []WatchEntry `yaml:"battlenet"`
	Xbox        []WatchEntry `yaml:"xbox"`
	PlayStation []WatchEntry `yaml:"playstation"`
}

type WatchEntry struct {
	Title string `yaml:"title"`
	URL   string `yaml:"url"`
}

func (w Watchlist) entries(p core.Platform) []WatchEntry {
	switch p {
	case core.PlatformSteam:
		return w.Steam
	case core.PlatformBattleNet:
		return w.BattleNet
	case core.PlatformXbox:
		return w.Xbox
	case core.PlatformPlayStation:
		return w.PlayStation
	default:
		return nil
	}
}

// Targets flattens the watchlist into fetch order.
func (w Watchlist) Targets() []core.Target {
	var out []core.Target
	for _, p := range core.Platforms {
		for _, e := range w.entries(p) {
			out = append(out, core.Target{
				Platform: p,
				Title:    strings.TrimSpace(e.Title),
				URL:      strings.TrimSpace(e.URL),
			})
		}
	}
	return out
}

// Validate checks the document and returns a *ConfigError listing every problem.
func (d WatchDocument) Validate() error {
	problems := &ConfigError{}
	targets := d.Watchlist.Targets()
	if len(targets) == 0 {
		problems.add("watchlist: at least one target is required")
	}

	ids := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		where := fmt.Sprintf("watchlist.%s[%q]", t.Platform, t.Title)
		if t.Title == "" {
			problems.add("watchlist.%s: entry with url %q has no title", t.Platform, t.URL)
			continue
		}
		if strings.ContainsAny(t.Title, "\r\n") {
			problems.add("%s: title must be a single line", where)
		}
		if err := validateTargetURL(t.URL); err != nil {
			problems.add("%s: %v", where, err)
		}
		id := t.ID()
		if _, dup := ids[id]; dup {
			problems.add("%s: duplicate id %q", where, id)
		}
		ids[id] = struct{}{}
	}

	if rule := strings.TrimSpace(d.Watchlist.Rule); rule != "" {
		if _, err := expr.Compile(rule, expr.Env(RuleEnv{}), expr.AsBool()); err != nil {
			problems.add("watchlist.rule: %v", err)
		}
	}
	return problems.orNil()
}

// RuleEnv is the variable set visible to watchlist rules.
type RuleEnv struct {
	Title           string `expr:"title"`
	Platform        string `expr:"platform"`
	DiscountPercent int    `expr:"discount_percent"`
	OriginalPrice   string `expr:"original_price"`
	CurrentPrice    string `expr:"current_price"`
	Label           string `expr:"label"`
	URL             string `expr:"url"`
}

func validateTargetURL(raw string) error {
	if raw == "" {
		return errors.New("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url %q must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("url %q has no host", raw)
	}
	return nil
}

// ParseWatchlist decodes and validates a watchlist document.
func ParseWatchlist(data []byte) (*WatchDocument, error) {
	var doc WatchDocument
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse watchlist: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// LoadWatchlist reads path. A missing file yields the built-in watchlist.
func LoadWatchlist(path string) (*WatchDocument, bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		doc := DefaultWatchlist()
		return &doc, true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read watchlist %s: %w", path, err)
	}
	doc, err := ParseWatchlist(data)
	if err != nil {
		return nil, false, err
	}
	return doc, false, nil
}

// DefaultWatchlist is the Black Ops watchlist the bot has always shipped with.
func DefaultWatchlist() WatchDocument {
	return WatchDocument{Watchlist: Watchlist{
		Name: "Black Ops sales",
		Steam: []WatchEntry{
			{Title: "Black Ops 1", URL: "https://store.steampowered.com/app/42700/"},
			{Title: "Black Ops 2", URL: "https://store.steampowered.com/app/202970/"},
			{Title: "Black Ops 3", URL: "https://store.steampowered.com/app/311210/"},
		},
		BattleNet: []WatchEntry{
			{Title: "Black Ops 4", URL: "https://us.shop.battle.net/en-us/product/call-of-duty-black-ops-4"},
			{Title: "Cold War", URL: "https://us.shop.battle.net/en-us/product/call-of-duty-black-ops-cold-war"},
		},
		Xbox: []WatchEntry{
			{Title: "Black Ops 3", URL: "https://www.xbox.com/en-US/games/store/call-of-duty-black-ops-iii/C3Q2WWJJ2T1H"},
			{Title: "Black Ops 4", URL: "https://www.xbox.com/en-US/games/store/call-of-duty-black-ops-4/C19N0723PHFL"},
		},
		PlayStation: []WatchEntry{
			{Title: "Black Ops 3", URL: "https://store.playstation.com/en-us/product/UP0002-CUSA02290_00-CODBO3ZOMBIESEDN"},
		},
	}}
}
