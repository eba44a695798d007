package impl

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bakkerme/salewatch/internal/core"
	"github.com/bakkerme/salewatch/internal/sources/storefront"
)

const steamAPIDiscount = `{"311210":{"success":true,"data":{"name":"Call of Duty: Black Ops III","header_image":"https://cdn.example.com/311210/header.jpg","price_overview":{"currency":"USD","initial":5999,"final":1979,"discount_percent":67,"initial_formatted":"$59.99","final_formatted":"$19.79"}}}}`

const steamPageDiscount = `<html><head><meta property="og:image" content="https://cdn.example.com/42700/capsule.jpg"></head>
<body><div id="game_area_purchase"><div class="game_area_purchase_game_wrapper">
<div class="discount_block"><div class="discount_pct">-75%</div>
<div class="discount_prices"><div class="discount_original_price">$19.99</div><div class="discount_final_price">$4.99</div></div></div>
</div></div></body></html>`

func serve(t *testing.T, routes map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h, ok := routes[r.URL.Path]; ok {
			h(w, r)
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func text(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) { io.WriteString(w, body) }
}

func status(code int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(code) }
}

func TestSteamUsesAppDetailsAPI(t *testing.T) {
	var query string
	srv := serve(t, map[string]http.HandlerFunc{
		"/api/appdetails": func(w http.ResponseWriter, r *http.Request) {
			query = r.URL.RawQuery
			io.WriteString(w, steamAPIDiscount)
		},
	})
	steam := NewSteam(srv.Client(), "gb")
	steam.APIBase = srv.URL

	target := core.Target{Platform: core.PlatformSteam, Title: "Black Ops 3", URL: "https://store.steampowered.com/app/311210/"}
	record, err := steam.Fetch(context.Background(), target)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := &core.DiscountRecord{
		ID:              "steam_Black Ops 3",
		Title:           "Black Ops 3",
		Platform:        core.PlatformSteam,
		URL:             target.URL,
		OriginalPrice:   "$59.99",
		CurrentPrice:    "$19.79",
		DiscountLabel:   "-67%",
		DiscountPercent: 67,
		ImageURL:        "https://cdn.example.com/311210/header.jpg",
	}
	if diff := cmp.Diff(want, record); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(query, "appids=311210") || !strings.Contains(query, "cc=gb") {
		t.Fatalf("unexpected query %q", query)
	}
}

func TestSteamNoDiscountFromAPI(t *testing.T) {
	srv := serve(t, map[string]http.HandlerFunc{
		"/api/appdetails": text(`{"202970":{"success":true,"data":{"price_overview":{"discount_percent":0,"initial_formatted":"","final_formatted":"$19.99"}}}}`),
	})
	steam := NewSteam(srv.Client(), "us")
	steam.APIBase = srv.URL

	record, err := steam.Fetch(context.Background(), core.Target{Platform: core.PlatformSteam, Title: "Black Ops 2", URL: srv.URL + "/app/202970/"})
	if err != nil || record != nil {
		t.Fatalf("expected no discount, got %+v, %v", record, err)
	}
}

func TestSteamFallsBackToStorePage(t *testing.T) {
	for name, api := range map[string]http.HandlerFunc{
		"unsuccessful": text(`{"42700":{"success":false}}`),
		"server error": status(http.StatusInternalServerError),
	} {
		t.Run(name, func(t *testing.T) {
			var cookie string
			srv := serve(t, map[string]http.HandlerFunc{
				"/api/appdetails": api,
				"/app/42700/": func(w http.ResponseWriter, r *http.Request) {
					cookie = r.Header.Get("Cookie")
					io.WriteString(w, steamPageDiscount)
				},
			})
			steam := NewSteam(srv.Client(), "us")
			steam.APIBase = srv.URL

			record, err := steam.Fetch(context.Background(), core.Target{Platform: core.PlatformSteam, Title: "Black Ops 1", URL: srv.URL + "/app/42700/"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if record == nil {
				t.Fatalf("expected a discount")
			}
			if record.DiscountLabel != "-75%" || record.DiscountPercent != 75 {
				t.Fatalf("unexpected label %q / %d", record.DiscountLabel, record.DiscountPercent)
			}
			if record.OriginalPrice != "$19.99" || record.CurrentPrice != "$4.99" {
				t.Fatalf("unexpected prices %q → %q", record.OriginalPrice, record.CurrentPrice)
			}
			if record.ImageURL != "https://cdn.example.com/42700/capsule.jpg" {
				t.Fatalf("unexpected image %q", record.ImageURL)
			}
			if !strings.Contains(cookie, "birthtime=0") {
				t.Fatalf("age gate cookies not sent: %q", cookie)
			}
		})
	}
}

func TestSteamPageWithoutDiscount(t *testing.T) {
	srv := serve(t, map[string]http.HandlerFunc{
		"/store/black-ops": text(`<html><body><div class="game_purchase_price price">$59.99</div></body></html>`),
	})
	record, err := NewSteam(srv.Client(), "us").Fetch(context.Background(), core.Target{Platform: core.PlatformSteam, Title: "X", URL: srv.URL + "/store/black-ops"})
	if err != nil || record != nil {
		t.Fatalf("expected no discount, got %+v, %v", record, err)
	}
}

func TestNonSuccessStatusIsFetchError(t *testing.T) {
	srv := serve(t, map[string]http.HandlerFunc{
		"/page": status(http.StatusServiceUnavailable),
	})
	fetchers := map[string]storefront.Fetcher{
		"battlenet":   NewBattleNet(srv.Client()),
		"xbox":        NewXbox(srv.Client()),
		"playstation": NewPlayStation(srv.Client()),
	}
	for name, f := range fetchers {
		_, err := f.Fetch(context.Background(), core.Target{Platform: core.Platform(name), Title: "T", URL: srv.URL + "/page"})
		var fe *storefront.FetchError
		if !errors.As(err, &fe) {
			t.Fatalf("%s: expected *FetchError, got %v", name, err)
		}
		if fe.StatusCode != http.StatusServiceUnavailable {
			t.Fatalf("%s: expected status 503, got %d", name, fe.StatusCode)
		}
	}
}

func TestTransportErrorIsFetchError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewBattleNet(http.DefaultClient).Fetch(context.Background(), core.Target{Platform: core.PlatformBattleNet, Title: "T", URL: url})
	var fe *storefront.FetchError
	if !errors.As(err, &fe) || fe.StatusCode != 0 {
		t.Fatalf("expected transport *FetchError, got %v", err)
	}
}

func TestXboxPriceSnippet(t *testing.T) {
	cases := map[string]struct {
		html      string
		wantLabel string
		wantWas   string
		wantNow   string
	}{
		"numeric": {
			html:      `<html><body><script>{"ListPrice":59.99,"MSRP":59.99,"Price":19.79}</script></body></html>`,
			wantLabel: "-67%", wantWas: "$59.99", wantNow: "$19.79",
		},
		"formatted": {
			html:      `<html><body><script>{"ListPrice":"$39.99","Currency":"USD","Price":"$9.99"}</script></body></html>`,
			wantLabel: "-75%", wantWas: "$39.99", wantNow: "$9.99",
		},
		"full price": {
			html: `<html><body><p>Save on bundles</p><script>{"ListPrice":59.99,"Price":59.99}</script></body></html>`,
		},
		"keyword fallback": {
			html:      `<html><body><p>Save 40% with Game Pass</p></body></html>`,
			wantLabel: "On Sale",
		},
		"keyword only in script": {
			html: `<html><body><script>var discount = 0;</script><p>Buy now</p></body></html>`,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			srv := serve(t, map[string]http.HandlerFunc{"/games/store/bo3": text(tc.html)})
			record, err := NewXbox(srv.Client()).Fetch(context.Background(), core.Target{Platform: core.PlatformXbox, Title: "Black Ops 3", URL: srv.URL + "/games/store/bo3"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.wantLabel == "" {
				if record != nil {
					t.Fatalf("expected no discount, got %+v", record)
				}
				return
			}
			if record == nil {
				t.Fatalf("expected a discount")
			}
			if record.ID != "xbox_Black Ops 3" {
				t.Fatalf("unexpected id %q", record.ID)
			}
			if record.DiscountLabel != tc.wantLabel || record.OriginalPrice != tc.wantWas || record.CurrentPrice != tc.wantNow {
				t.Fatalf("got label=%q was=%q now=%q", record.DiscountLabel, record.OriginalPrice, record.CurrentPrice)
			}
		})
	}
}

func TestPlayStationEmbeddedPrices(t *testing.T) {
	cases := map[string]struct {
		html    string
		want    *core.DiscountRecord
		nothing bool
	}{
		"discounted": {
			html: `<html><head><meta property="og:image" content="https://image.example.com/bo3.png"></head><body>
<script id="__NEXT_DATA__">{"price":{"basePrice":"$59.99","discountedPrice":"$19.79","discountText":"-67%","isFree":false}}</script></body></html>`,
			want: &core.DiscountRecord{
				OriginalPrice: "$59.99", CurrentPrice: "$19.79", DiscountLabel: "-67%", DiscountPercent: 67,
				ImageURL: "https://image.example.com/bo3.png",
			},
		},
		"no label": {
			html: `<html><body><script>{"basePrice":"$40.00","discountedPrice":"$30.00","discountText":null}</script></body></html>`,
			want: &core.DiscountRecord{OriginalPrice: "$40.00", CurrentPrice: "$30.00", DiscountLabel: "-25%", DiscountPercent: 25},
		},
		"full price": {
			html:    `<html><body><p>Save to wishlist</p><script>{"basePrice":"$59.99","discountedPrice":"$59.99","discountText":""}</script></body></html>`,
			nothing: true,
		},
		"keyword fallback": {
			html: `<html><body><span>30% off until Sunday</span></body></html>`,
			want: &core.DiscountRecord{DiscountLabel: "On Sale"},
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			srv := serve(t, map[string]http.HandlerFunc{"/en-us/product/bo3": text(tc.html)})
			target := core.Target{Platform: core.PlatformPlayStation, Title: "Black Ops 3", URL: srv.URL + "/en-us/product/bo3"}
			record, err := NewPlayStation(srv.Client()).Fetch(context.Background(), target)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.nothing {
				if record != nil {
					t.Fatalf("expected no discount, got %+v", record)
				}
				return
			}
			want := *tc.want
			want.ID, want.Title, want.Platform, want.URL = "ps_Black Ops 3", target.Title, target.Platform, target.URL
			if diff := cmp.Diff(&want, record); diff != "" {
				t.Fatalf("record mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBattleNetKeywordSearch(t *testing.T) {
	srv := serve(t, map[string]http.HandlerFunc{
		"/product/bo4": text(`<html><head><meta property="og:image" content="https://blz.example.com/bo4.jpg"></head><body><h1>Black Ops 4</h1><div>SALE! Ends soon</div></body></html>`),
		"/product/cw":  text(`<html><body><h1>Cold War</h1><div>Buy now</div></body></html>`),
	})
	bnet := NewBattleNet(srv.Client())

	record, err := bnet.Fetch(context.Background(), core.Target{Platform: core.PlatformBattleNet, Title: "Black Ops 4", URL: srv.URL + "/product/bo4"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record == nil || record.ID != "bnet_Black Ops 4" || record.DiscountLabel != "On Sale" || record.ImageURL != "https://blz.example.com/bo4.jpg" {
		t.Fatalf("unexpected record %+v", record)
	}
	if record.HasPrices() {
		t.Fatalf("keyword records carry no prices")
	}

	record, err = bnet.Fetch(context.Background(), core.Target{Platform: core.PlatformBattleNet, Title: "Cold War", URL: srv.URL + "/product/cw"})
	if err != nil || record != nil {
		t.Fatalf("expected no discount, got %+v, %v", record, err)
	}
}

func TestRouterRejectsUnknownPlatform(t *testing.T) {
	router := NewFetcher(http.DefaultClient, "us")
	_, err := router.Fetch(context.Background(), core.Target{Platform: "gog", Title: "X", URL: "https://gog.example.com"})
	var fe *storefront.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %v", err)
	}
}

func TestParsePrice(t *testing.T) {
	cases := map[string]float64{
		"$59.99":    59.99,
		"59.99":     59.99,
		"$1,299.99": 1299.99,
		"59,99 €":   59.99,
		"1,299":     1299,
	}
	for in, want := range cases {
		got, ok := parsePrice(in)
		if !ok || got != want {
			t.Fatalf("parsePrice(%q) = %v, %v; want %v", in, got, ok, want)
		}
	}
	if _, ok := parsePrice("Free"); ok {
		t.Fatalf("expected Free to be unparseable")
	}
}

func TestParsePercent(t *testing.T) {
	for in, want := range map[string]int{"-67%": 67, "Save 40%": 40, "On Sale": 0, "-5 %": 5} {
		if got := parsePercent(in); got != want {
			t.Fatalf("parsePercent(%q) = %d, want %d", in, got, want)
		}
	}
}
