package impl

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/bakkerme/salewatch/internal/core"
)

var (
	xboxListPrice = regexp.MustCompile(`"ListPrice"\s*:\s*"?(\$?[0-9][0-9,]*(?:\.[0-9]+)?)"?`)
	xboxPrice     = regexp.MustCompile(`"Price"\s*:\s*"?(\$?[0-9][0-9,]*(?:\.[0-9]+)?)"?`)
	xboxKeywords  = []string{"% off", "save", "discount"}
)

// xboxWindow bounds how far after ListPrice the matching Price may appear.
const xboxWindow = 300

// Xbox reads the product page's embedded ListPrice/Price pair.
type Xbox struct {
	client *http.Client
}

func NewXbox(client *http.Client) *Xbox {
	return &Xbox{client: client}
}

func (x *Xbox) Fetch(ctx context.Context, target core.Target) (*core.DiscountRecord, error) {
	body, err := getPage(ctx, x.client, target, target.URL, nil)
	if err != nil {
		return nil, err
	}
	doc, err := parseDocument(target, body)
	if err != nil {
		return nil, err
	}

	html := string(body)
	if was, now, ok := xboxPrices(html); ok {
		wasValue, _ := parsePrice(was)
		nowValue, _ := parsePrice(now)
		pct := discountPercent(wasValue, nowValue)
		if pct <= 0 {
			return nil, nil
		}
		record := core.NewRecord(target)
		record.DiscountPercent = pct
		record.DiscountLabel = fmt.Sprintf("-%d%%", pct)
		record.OriginalPrice = formatDollars(was)
		record.CurrentPrice = formatDollars(now)
		record.ImageURL = ogImage(doc)
		return record, nil
	}
	return keywordRecord(target, doc, xboxKeywords), nil
}

// xboxPrices finds the first ListPrice and the Price that follows it.
func xboxPrices(html string) (was, now string, ok bool) {
	loc := xboxListPrice.FindStringSubmatchIndex(html)
	if loc == nil {
		return "", "", false
	}
	was = html[loc[2]:loc[3]]
	end := loc[1] + xboxWindow
	if end > len(html) {
		end = len(html)
	}
	m := xboxPrice.FindStringSubmatch(html[loc[1]:end])
	if m == nil {
		return "", "", false
	}
	return was, m[1], true
}

func formatDollars(raw string) string {
	if strings.HasPrefix(raw, "$") {
		return raw
	}
	v, ok := parsePrice(raw)
	if !ok {
		return raw
	}
	return fmt.Sprintf("$%.2f", v)
}
