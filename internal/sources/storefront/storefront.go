package storefront

import (
	"context"
	"errors"
	"fmt"

	"github.com/bakkerme/salewatch/internal/core"
)

// Fetcher reports whether one target is currently discounted.
//
// A nil record with a nil error means the page was read but no discount was
// detected. Any failure to obtain or decode the page is a *FetchError, and the
// target's state is unknown for the cycle.
type Fetcher interface {
	Fetch(ctx context.Context, target core.Target) (*core.DiscountRecord, error)
}

// FetchError is a transport, HTTP status or decode failure for one target.
type FetchError struct {
	Platform   core.Platform
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s fetch %s: status %d", e.Platform, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s fetch %s: %v", e.Platform, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// AsFetchError wraps err as a *FetchError for target unless it already is one.
func AsFetchError(target core.Target, err error) error {
	if err == nil {
		return nil
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return err
	}
	return &FetchError{Platform: target.Platform, URL: target.URL, Err: err}
}

// Router dispatches each target to the fetcher registered for its platform.
type Router struct {
	fetchers map[core.Platform]Fetcher
}

func NewRouter(fetchers map[core.Platform]Fetcher) *Router {
	copied := make(map[core.Platform]Fetcher, len(fetchers))
	for p, f := range fetchers {
		copied[p] = f
	}
	return &Router{fetchers: copied}
}

func (r *Router) Fetch(ctx context.Context, target core.Target) (*core.DiscountRecord, error) {
	f, ok := r.fetchers[target.Platform]
	if !ok {
		return nil, &FetchError{Platform: target.Platform, URL: target.URL, Err: fmt.Errorf("no fetcher for platform %q", target.Platform)}
	}
	record, err := f.Fetch(ctx, target)
	return record, AsFetchError(target, err)
}
