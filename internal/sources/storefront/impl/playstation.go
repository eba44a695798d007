package impl

import (
	"context"
	"net/http"
	"regexp"
	"strconv"

	"github.com/bakkerme/salewatch/internal/core"
)

var (
	psBasePrice       = regexp.MustCompile(`"basePrice"\s*:\s*("(?:[^"\\]|\\.)*")`)
	psDiscountedPrice = regexp.MustCompile(`"discountedPrice"\s*:\s*("(?:[^"\\]|\\.)*")`)
	psDiscountText    = regexp.MustCompile(`"discountText"\s*:\s*("(?:[^"\\]|\\.)*")`)
	psKeywords        = []string{"% off", "save", "discount"}
)

// PlayStation reads the price fields embedded in the store's page state.
type PlayStation struct {
	client *http.Client
}

func NewPlayStation(client *http.Client) *PlayStation {
	return &PlayStation{client: client}
}

func (p *PlayStation) Fetch(ctx context.Context, target core.Target) (*core.DiscountRecord, error) {
	body, err := getPage(ctx, p.client, target, target.URL, nil)
	if err != nil {
		return nil, err
	}
	doc, err := parseDocument(target, body)
	if err != nil {
		return nil, err
	}

	html := string(body)
	base, hasBase := firstQuoted(psBasePrice, html)
	discounted, hasDiscounted := firstQuoted(psDiscountedPrice, html)
	label, _ := firstQuoted(psDiscountText, html)

	if hasBase && hasDiscounted {
		record := core.NewRecord(target)
		record.OriginalPrice = base
		record.CurrentPrice = discounted
		record.DiscountLabel = label
		record.DiscountPercent = parsePercent(label)
		if record.DiscountPercent == 0 {
			wasValue, _ := parsePrice(base)
			nowValue, _ := parsePrice(discounted)
			record.DiscountPercent = discountPercent(wasValue, nowValue)
		}
		if record.DiscountPercent == 0 && label == "" {
			return nil, nil
		}
		if record.DiscountLabel == "" {
			record.DiscountLabel = "-" + strconv.Itoa(record.DiscountPercent) + "%"
		}
		record.ImageURL = ogImage(doc)
		return record, nil
	}
	return keywordRecord(target, doc, psKeywords), nil
}

func firstQuoted(re *regexp.Regexp, html string) (string, bool) {
	m := re.FindStringSubmatch(html)
	if m == nil {
		return "", false
	}
	v, err := strconv.Unquote(m[1])
	if err != nil {
		return "", false
	}
	return v, true
}
