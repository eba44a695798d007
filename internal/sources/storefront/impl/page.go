package impl

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/bakkerme/salewatch/internal/core"
	"github.com/bakkerme/salewatch/internal/httputil"
	"github.com/bakkerme/salewatch/internal/sources/storefront"
)

// getPage fetches rawURL on behalf of target. Every failure is a *storefront.FetchError.
func getPage(ctx context.Context, client *http.Client, target core.Target, rawURL string, header http.Header) ([]byte, error) {
	fail := func(status int, err error) error {
		return &storefront.FetchError{Platform: target.Platform, URL: rawURL, StatusCode: status, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fail(0, err)
	}
	for key, vals := range header {
		req.Header[key] = vals
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fail(0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, fail(resp.StatusCode, fmt.Errorf("unexpected status %s", resp.Status))
	}

	body, err := httputil.ReadBody(resp)
	if err != nil {
		return nil, fail(0, fmt.Errorf("read body: %w", err))
	}
	return body, nil
}

func parseDocument(target core.Target, body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &storefront.FetchError{Platform: target.Platform, URL: target.URL, Err: fmt.Errorf("parse html: %w", err)}
	}
	return doc, nil
}

// ogImage returns the page's og:image, if any.
func ogImage(doc *goquery.Document) string {
	if doc == nil {
		return ""
	}
	for _, sel := range []string{`meta[property="og:image"]`, `meta[name="og:image"]`, `meta[name="twitter:image"]`} {
		if content, ok := doc.Find(sel).First().Attr("content"); ok {
			if content = strings.TrimSpace(content); content != "" {
				return content
			}
		}
	}
	return ""
}

// visibleText returns the lowercased page text without scripts or styles.
func visibleText(doc *goquery.Document) string {
	body := doc.Find("body").Clone()
	if body.Length() == 0 {
		body = doc.Selection.Clone()
	}
	body.Find("script, style, noscript, template").Remove()
	return strings.ToLower(strings.Join(strings.Fields(body.Text()), " "))
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

const onSaleLabel = "On Sale"

// keywordRecord is the fallback used when no structured price data is found.
func keywordRecord(target core.Target, doc *goquery.Document, keywords []string) *core.DiscountRecord {
	if !containsAny(visibleText(doc), keywords) {
		return nil
	}
	record := core.NewRecord(target)
	record.DiscountLabel = onSaleLabel
	record.ImageURL = ogImage(doc)
	return record
}

var percentPattern = regexp.MustCompile(`(\d{1,3})\s*%`)

// parsePercent extracts N from labels such as "-67%" or "Save 40%".
func parsePercent(label string) int {
	m := percentPattern.FindStringSubmatch(label)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n > 100 {
		return 0
	}
	return n
}

// parsePrice reads "$1,299.99", "59.99" or "59,99 €" as a number.
func parsePrice(text string) (float64, bool) {
	text = strings.TrimSpace(text)
	if !strings.Contains(text, ".") {
		if idx := strings.LastIndex(text, ","); idx >= 0 && leadingDigits(text[idx+1:]) == 2 {
			text = text[:idx] + "." + text[idx+1:]
		}
	}
	var b strings.Builder
	for _, r := range text {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func leadingDigits(s string) int {
	n := 0
	for n < len(s) && s[n] >= '0' && s[n] <= '9' {
		n++
	}
	return n
}

func discountPercent(was, now float64) int {
	if was <= 0 || now >= was {
		return 0
	}
	return int((was - now) / was * 100)
}
