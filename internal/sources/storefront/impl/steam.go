package impl

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"

	"github.com/bakkerme/salewatch/internal/core"
)

const defaultSteamAPIBase = "https://store.steampowered.com"

var steamAppID = regexp.MustCompile(`/app/(\d+)`)

// Steam reads discounts from the appdetails API, falling back to the store page.
type Steam struct {
	client  *http.Client
	country string
	// APIBase is overridden in tests.
	APIBase string
}

func NewSteam(client *http.Client, country string) *Steam {
	if country == "" {
		country = "us"
	}
	return &Steam{client: client, country: country, APIBase: defaultSteamAPIBase}
}

func (s *Steam) Fetch(ctx context.Context, target core.Target) (*core.DiscountRecord, error) {
	if m := steamAppID.FindStringSubmatch(target.URL); m != nil {
		record, ok, err := s.fetchAPI(ctx, target, m[1])
		if err == nil && ok {
			return record, nil
		}
		if err != nil && ctx.Err() != nil {
			return nil, err
		}
	}
	return s.fetchPage(ctx, target)
}

// fetchAPI reports ok=false when the API has no usable entry for appID.
func (s *Steam) fetchAPI(ctx context.Context, target core.Target, appID string) (*core.DiscountRecord, bool, error) {
	q := url.Values{}
	q.Set("appids", appID)
	q.Set("cc", s.country)
	q.Set("filters", "price_overview,basic")
	endpoint := strings.TrimRight(s.APIBase, "/") + "/api/appdetails?" + q.Encode()

	header := http.Header{}
	header.Set("Accept", "application/json")
	body, err := getPage(ctx, s.client, target, endpoint, header)
	if err != nil {
		return nil, false, err
	}
	if !gjson.ValidBytes(body) {
		return nil, false, fmt.Errorf("steam appdetails: invalid json")
	}

	entry := gjson.GetBytes(body, appID)
	if !entry.Get("success").Bool() || !entry.Get("data").IsObject() {
		return nil, false, nil
	}
	data := entry.Get("data")
	price := data.Get("price_overview")
	if !price.Exists() {
		// Free or unpriced in this region.
		return nil, true, nil
	}
	pct := int(price.Get("discount_percent").Int())
	if pct <= 0 {
		return nil, true, nil
	}

	record := core.NewRecord(target)
	record.DiscountPercent = pct
	record.DiscountLabel = fmt.Sprintf("-%d%%", pct)
	record.OriginalPrice = price.Get("initial_formatted").String()
	record.CurrentPrice = price.Get("final_formatted").String()
	record.ImageURL = data.Get("header_image").String()
	return record, true, nil
}

func (s *Steam) fetchPage(ctx context.Context, target core.Target) (*core.DiscountRecord, error) {
	header := http.Header{}
	// Mature titles redirect to an age check without these.
	header.Set("Cookie", "birthtime=0; lastagecheckage=1-0-1990; wants_mature_content=1; mature_content=1")
	body, err := getPage(ctx, s.client, target, target.URL, header)
	if err != nil {
		return nil, err
	}
	doc, err := parseDocument(target, body)
	if err != nil {
		return nil, err
	}
	return parseSteamPage(target, doc), nil
}

func parseSteamPage(target core.Target, doc *goquery.Document) *core.DiscountRecord {
	scope := doc.Find("#game_area_purchase .game_area_purchase_game_wrapper").First()
	if scope.Find(".discount_pct").Length() == 0 {
		scope = doc.Selection
	}
	pct := strings.TrimSpace(scope.Find(".discount_pct").First().Text())
	if pct == "" {
		return nil
	}

	block := scope.Find(".discount_pct").First().Closest(".discount_block")
	if block.Length() == 0 {
		block = scope
	}
	record := core.NewRecord(target)
	record.DiscountLabel = pct
	record.DiscountPercent = parsePercent(pct)
	record.OriginalPrice = strings.TrimSpace(block.Find(".discount_original_price").First().Text())
	record.CurrentPrice = strings.TrimSpace(block.Find(".discount_final_price").First().Text())
	record.ImageURL = ogImage(doc)
	return record
}
