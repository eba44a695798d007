// Package seen persists the set of discount ids that have already been announced.
package seen

import (
	"context"
	"fmt"
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// Store loads and replaces the durable seen set. Save always replaces the full
// contents; a failed Save must leave the previously committed contents intact.
type Store interface {
	Load(ctx context.Context) (mapset.Set[string], error)
	Save(ctx context.Context, ids mapset.Set[string]) error
	Close() error
}

// Kind names a Store implementation.
type Kind string

const (
	KindFile   Kind = "file"
	KindSQLite Kind = "sqlite"
	KindBadger Kind = "badger"
)

// Options selects and configures a Store.
type Options struct {
	Kind      Kind
	FilePath  string
	SQLiteDSN string
	BadgerDir string
}

// Open returns the store selected by opts.Kind.
func Open(opts Options) (Store, error) {
	switch opts.Kind {
	case "", KindFile:
		return NewFileStore(opts.FilePath)
	case KindSQLite:
		return NewSQLiteStore(opts.SQLiteDSN, "")
	case KindBadger:
		return NewBadgerStore(opts.BadgerDir)
	default:
		return nil, fmt.Errorf("unsupported seen store %q", opts.Kind)
	}
}

// sortedIDs returns the non-empty ids of set in lexical order.
func sortedIDs(set mapset.Set[string]) []string {
	if set == nil {
		return nil
	}
	ids := make([]string, 0, set.Cardinality())
	for _, id := range set.ToSlice() {
		if strings.TrimSpace(id) == "" {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
