package impl

import (
	"context"
	"net/http"

	"github.com/bakkerme/salewatch/internal/core"
)

var battleNetKeywords = []string{"sale", "% off", "discount"}

// BattleNet has no structured price data; it searches the visible page text.
type BattleNet struct {
	client *http.Client
}

func NewBattleNet(client *http.Client) *BattleNet {
	return &BattleNet{client: client}
}

func (b *BattleNet) Fetch(ctx context.Context, target core.Target) (*core.DiscountRecord, error) {
	body, err := getPage(ctx, b.client, target, target.URL, nil)
	if err != nil {
		return nil, err
	}
	doc, err := parseDocument(target, body)
	if err != nil {
		return nil, err
	}
	return keywordRecord(target, doc, battleNetKeywords), nil
}
