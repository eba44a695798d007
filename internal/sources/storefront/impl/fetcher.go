package impl

import (
	"net/http"

	"github.com/bakkerme/salewatch/internal/core"
	"github.com/bakkerme/salewatch/internal/sources/storefront"
)

// NewFetcher returns a router with every storefront registered on client.
func NewFetcher(client *http.Client, steamCountry string) *storefront.Router {
	return storefront.NewRouter(map[core.Platform]storefront.Fetcher{
		core.PlatformSteam:       NewSteam(client, steamCountry),
		core.PlatformXbox:        NewXbox(client),
		core.PlatformPlayStation: NewPlayStation(client),
		core.PlatformBattleNet:   NewBattleNet(client),
	})
}
