// Package reconcile decides which discounts to announce and keeps the durable
// seen set in step with what the storefronts currently report.
package reconcile

import (
	"fmt"
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/bakkerme/salewatch/internal/core"
)

// Policy controls how the seen set shrinks.
type Policy string

const (
	// PolicyStrict replaces the seen set every poll with the ids currently on
	// sale, keeping ids whose source could not be fetched.
	PolicyStrict Policy = "strict"
	// PolicyIncremental only adds during polls; a separate cleanup pass prunes.
	PolicyIncremental Policy = "incremental"
)

func ParsePolicy(raw string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", PolicyStrict:
		return PolicyStrict, nil
	case PolicyIncremental:
		return PolicyIncremental, nil
	default:
		return "", fmt.Errorf("unknown seen policy %q (expected strict or incremental)", raw)
	}
}

// Result is the outcome of reconciling one sweep against the seen set.
type Result struct {
	// ToNotify holds records not previously seen, in sweep order.
	ToNotify []core.DiscountRecord
	// Seen is the updated seen set.
	Seen    mapset.Set[string]
	Added   []string
	Removed []string
}

// Changed reports whether membership differs from the input set.
func (r Result) Changed() bool {
	return len(r.Added) > 0 || len(r.Removed) > 0
}

// Plan computes the notifications and the updated seen set for a poll cycle.
// It never mutates seen.
func Plan(policy Policy, seen mapset.Set[string], sweep core.Sweep) Result {
	prev := cloneSet(seen)
	current := mapset.NewThreadUnsafeSet[string]()

	var toNotify []core.DiscountRecord
	for _, record := range sweep.Records() {
		if record.ID == "" || current.Contains(record.ID) {
			continue
		}
		current.Add(record.ID)
		if !prev.Contains(record.ID) {
			toNotify = append(toNotify, record)
		}
	}

	var next mapset.Set[string]
	switch policy {
	case PolicyIncremental:
		next = prev.Union(current)
	default:
		unknown := mapset.NewThreadUnsafeSet[string](sweep.UnknownIDs()...)
		next = current.Union(prev.Intersect(unknown))
	}

	return Result{
		ToNotify: toNotify,
		Seen:     next,
		Added:    sortedSlice(next.Difference(prev)),
		Removed:  sortedSlice(prev.Difference(next)),
	}
}

// Prune drops seen ids that are neither on sale nor unknown in sweep. It is
// the cleanup pass of the incremental policy and never produces notifications.
func Prune(seen mapset.Set[string], sweep core.Sweep) Result {
	prev := cloneSet(seen)
	keep := mapset.NewThreadUnsafeSet[string](sweep.UnknownIDs()...)
	for _, record := range sweep.Records() {
		keep.Add(record.ID)
	}
	next := prev.Intersect(keep)
	return Result{
		Seen:    next,
		Removed: sortedSlice(prev.Difference(next)),
	}
}

func cloneSet(set mapset.Set[string]) mapset.Set[string] {
	out := mapset.NewThreadUnsafeSet[string]()
	if set == nil {
		return out
	}
	set.Each(func(id string) bool {
		out.Add(id)
		return false
	})
	return out
}

func sortedSlice(set mapset.Set[string]) []string {
	if set.Cardinality() == 0 {
		return nil
	}
	out := set.ToSlice()
	sort.Strings(out)
	return out
}
