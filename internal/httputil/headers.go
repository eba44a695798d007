package httputil

import "net/http"

// BrowserHeaders returns common browser-like headers.
func BrowserHeaders(acceptLanguage string) http.Header {
	if acceptLanguage == "" {
		acceptLanguage = "en-US,en;q=0.9"
	}
	h := http.Header{}
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	h.Set("Accept-Language", acceptLanguage)
	h.Set("Accept-Encoding", "gzip, br")
	h.Set("Upgrade-Insecure-Requests", "1")
	h.Set("Sec-Fetch-Dest", "document")
	h.Set("Sec-Fetch-Mode", "navigate")
	h.Set("Sec-Fetch-Site", "none")
	return h
}
