package httputil

import (
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/time/rate"
)

// Transport is an http.RoundTripper for storefront requests:
// headers → robots check → rate limiter → send.
type Transport struct {
	Base           http.RoundTripper
	UserAgent      string
	AcceptLanguage string
	Robots         *RobotsChecker
	RateLimiter    *rate.Limiter
}

// ErrDisallowed is wrapped when robots.txt forbids a request.
var ErrDisallowed = errors.New("blocked by robots.txt")

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if t.UserAgent != "" {
		req.Header.Set("User-Agent", t.UserAgent)
	}
	for key, vals := range BrowserHeaders(t.AcceptLanguage) {
		if req.Header.Get(key) == "" {
			req.Header[key] = vals
		}
	}

	if t.Robots != nil {
		allowed, err := t.Robots.IsAllowed(req.Context(), req.Header.Get("User-Agent"), req.URL.String())
		if err == nil && !allowed {
			return nil, fmt.Errorf("%w: %s", ErrDisallowed, req.URL.Path)
		}
	}

	if t.RateLimiter != nil {
		if err := t.RateLimiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

// NewTransport wires the limiter and the optional robots checker around base.
func NewTransport(base http.RoundTripper, userAgent, acceptLanguage string, perSecond float64, burst int, respectRobots bool) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	t := &Transport{
		Base:           base,
		UserAgent:      userAgent,
		AcceptLanguage: acceptLanguage,
	}
	if perSecond > 0 {
		if burst < 1 {
			burst = 1
		}
		t.RateLimiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
	if respectRobots {
		t.Robots = NewRobotsChecker(&http.Client{Transport: base})
	}
	return t
}
