// Package snapshot implements the Snapshot Policy Engine (C8): when to
// snapshot, what to keep, and policy resolution order.
package snapshot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	elfaeserr "github.com/elfaes-go/elfaes/errors"
)

// Policy governs snapshot creation and retention for one stream type.
type Policy struct {
	Every                   int // 0 disables the count trigger
	OnEvents                map[string]struct{}
	KeepSnapshots           int
	MaxAge                  *time.Duration
	MinEventsBeforeSnapshot int
	Enabled                 bool
}

// Default returns the policy spec §4.7 describes as its baseline:
// disabled count trigger, no forcing event types, keep the last
// snapshot only, no age limit, 10 minimum events, enabled.
func Default() Policy {
	return Policy{
		Every:                   0,
		OnEvents:                map[string]struct{}{},
		KeepSnapshots:           1,
		MinEventsBeforeSnapshot: 10,
		Enabled:                 true,
	}
}

// None is a policy that never triggers a snapshot.
func None() Policy { return Policy{Enabled: false} }

// ShouldSnapshot decides whether a snapshot should be created given
// the aggregate's current state, per spec §4.7:
//   - false if disabled or totalEvents < MinEventsBeforeSnapshot
//   - true if lastAppendedType is in OnEvents
//   - true if Every > 0 and eventsSinceLast >= Every
//   - otherwise false
func (p Policy) ShouldSnapshot(totalEvents, eventsSinceLast int64, lastAppendedType string) bool {
	if !p.Enabled {
		return false
	}
	min := int64(p.MinEventsBeforeSnapshot)
	if min <= 0 {
		min = 10
	}
	if totalEvents < min {
		return false
	}
	if lastAppendedType != "" {
		if _, ok := p.OnEvents[lastAppendedType]; ok {
			return true
		}
	}
	if p.Every > 0 && eventsSinceLast >= int64(p.Every) {
		return true
	}
	return false
}

// ParseDuration parses strings of the form "{n}h|d|w|m|y", case
// insensitive. m is approximated as 30 days, y as 365 days — these
// approximations are lossy; callers needing calendar-accurate
// durations must compute them separately (spec §9 Open Question).
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, invalidDuration(s)
	}
	unit := s[len(s)-1]
	numPart := s[:len(s)-1]
	n, err := strconv.Atoi(numPart)
	if err != nil || n < 0 {
		return 0, invalidDuration(s)
	}
	switch unit {
	case 'h', 'H':
		return time.Duration(n) * time.Hour, nil
	case 'd', 'D':
		return time.Duration(n) * 24 * time.Hour, nil
	case 'w', 'W':
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	case 'm', 'M':
		return time.Duration(n) * 30 * 24 * time.Hour, nil
	case 'y', 'Y':
		return time.Duration(n) * 365 * 24 * time.Hour, nil
	default:
		return 0, invalidDuration(s)
	}
}

func invalidDuration(s string) error {
	return elfaeserr.New(elfaeserr.CodeInvalidDuration, elfaeserr.KindInvalidInput,
		fmt.Sprintf("invalid duration string %q: expected {n}h|d|w|m|y", s))
}

// Listed is the subset of elfaes.Snapshot a Cleanup decision needs.
type Listed struct {
	Version int64
	At      time.Time
}

// Cleanup decides which snapshots to delete given a DESC-by-version
// list (most recent first): index 0 is always retained; anything
// beyond KeepSnapshots, or older than MaxAge, is marked for deletion.
// Deletion itself is the caller's responsibility, in one batch call
// (spec §4.7).
func (p Policy) Cleanup(snapshotsDesc []Listed) []Listed {
	if len(snapshotsDesc) <= 1 {
		return nil
	}
	var toDelete []Listed
	now := time.Now()
	for i, snap := range snapshotsDesc {
		if i == 0 {
			continue
		}
		if p.KeepSnapshots > 0 && i >= p.KeepSnapshots {
			toDelete = append(toDelete, snap)
			continue
		}
		if p.MaxAge != nil && now.Sub(snap.At) > *p.MaxAge {
			toDelete = append(toDelete, snap)
		}
	}
	return toDelete
}

// TypeAttribute is implemented by aggregate types that declare their
// own snapshot policy, the step-3 fallback in the resolution order.
type TypeAttribute interface {
	SnapshotPolicy() Policy
}

// Resolver implements the 5-step resolution order from spec §4.7:
// explicitly registered runtime policy, then configuration override by
// full type name then short name, then an attribute on the aggregate
// type, then a default, then None.
type Resolver struct {
	Registered map[string]Policy // objectName -> policy, step 1
	Overrides  map[string]Policy // full or short type name -> policy, step 2
	Default    *Policy           // step 4; nil falls through to None
}

// Resolve returns the policy for objectName, consulting aggregate (if
// non-nil) for a TypeAttribute at step 3.
func (r Resolver) Resolve(objectName, shortName string, aggregate any) Policy {
	if r.Registered != nil {
		if p, ok := r.Registered[objectName]; ok {
			return p
		}
	}
	if r.Overrides != nil {
		if p, ok := r.Overrides[objectName]; ok {
			return p
		}
		if shortName != "" {
			if p, ok := r.Overrides[shortName]; ok {
				return p
			}
		}
	}
	if aggregate != nil {
		if attr, ok := aggregate.(TypeAttribute); ok {
			return attr.SnapshotPolicy()
		}
	}
	if r.Default != nil {
		return *r.Default
	}
	return None()
}
