// Package retention implements the Retention Policy Engine (C9):
// violation detection and dispatch, without itself rewriting events.
package retention

import (
	"context"
	"time"
)

// Action is the disposition chosen for a policy violation.
type Action int

const (
	Migrate Action = iota
	Delete
	FlagForReview
	Archive
)

// Policy governs retention for one stream type.
type Policy struct {
	MaxAge                   *time.Duration
	MaxEvents                int // 0 disables
	Action                   Action
	KeepRecentEvents         int // default 100
	CreateSummaryOnMigration bool
	Enabled                  bool
}

// Default returns a retention policy with the baseline from spec §4.8:
// no age limit, no event-count limit, FlagForReview, keep the most
// recent 100 events, summarize on migration, enabled.
func Default() Policy {
	return Policy{
		Action:                   FlagForReview,
		KeepRecentEvents:         100,
		CreateSummaryOnMigration: true,
		Enabled:                  true,
	}
}

// Violation describes how a policy was exceeded.
type Violation int

const (
	NoViolation Violation = iota
	ExceedsMaxAge
	ExceedsMaxEvents
	ExceedsBoth
)

// CheckViolation evaluates eventCount/oldestEventDate against p.
func (p Policy) CheckViolation(eventCount int, oldestEventDate time.Time) Violation {
	if !p.Enabled {
		return NoViolation
	}
	age := p.MaxAge != nil && !oldestEventDate.IsZero() && time.Since(oldestEventDate) > *p.MaxAge
	count := p.MaxEvents > 0 && eventCount > p.MaxEvents
	switch {
	case age && count:
		return ExceedsBoth
	case age:
		return ExceedsMaxAge
	case count:
		return ExceedsMaxEvents
	default:
		return NoViolation
	}
}

// RetentionViolation is one item in the discovery sequence.
type RetentionViolation struct {
	StreamID          string
	ObjectName        string
	Policy            Policy
	CurrentEventCount int
	OldestEventDate   time.Time
	Type              Violation
}

// StreamMetadataSource reports the event count and oldest event
// timestamp for streams of a given object type, one page at a time.
// Implementations are backend-specific (the data store or a
// projection over it).
type StreamMetadataSource interface {
	// ListStreams returns up to limit stream metadata rows starting
	// after cursor (empty cursor means "from the start"), and the
	// cursor to pass for the next page (empty means no more pages).
	ListStreams(ctx context.Context, objectName, cursor string, limit int) (rows []StreamMetadata, nextCursor string, err error)
}

// StreamMetadata is one row from a StreamMetadataSource page.
type StreamMetadata struct {
	StreamID        string
	EventCount      int
	OldestEventDate time.Time
}

// Discoverer enumerates configured object types and pages through
// their streams, evaluating each against its policy.
type Discoverer struct {
	Source   StreamMetadataSource
	Policies map[string]Policy // objectName -> policy
	PageSize int
}

// DiscoverViolations returns up to maxResults violations found across
// the configured object types, stopping early if ctx is canceled.
// maxResults <= 0 means unbounded. The scan is sequential and
// cancelable at page boundaries, mirroring the cooperative-cancellation
// contract the rest of the core follows.
func (d Discoverer) DiscoverViolations(ctx context.Context, maxResults int) ([]RetentionViolation, error) {
	pageSize := d.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}

	var out []RetentionViolation
	for objectName, policy := range d.Policies {
		if !policy.Enabled {
			continue
		}
		cursor := ""
		for {
			if err := ctx.Err(); err != nil {
				return out, err
			}
			rows, next, err := d.Source.ListStreams(ctx, objectName, cursor, pageSize)
			if err != nil {
				return out, err
			}
			for _, row := range rows {
				v := policy.CheckViolation(row.EventCount, row.OldestEventDate)
				if v == NoViolation {
					continue
				}
				out = append(out, RetentionViolation{
					StreamID:          row.StreamID,
					ObjectName:        objectName,
					Policy:            policy,
					CurrentEventCount: row.EventCount,
					OldestEventDate:   row.OldestEventDate,
					Type:              v,
				})
				if maxResults > 0 && len(out) >= maxResults {
					return out, nil
				}
			}
			if next == "" {
				break
			}
			cursor = next
		}
	}
	return out, nil
}

// Migrator moves a stream's events to cold storage, optionally
// summarizing the migrated range.
type Migrator interface {
	Migrate(ctx context.Context, v RetentionViolation, createSummary bool) error
}

// Deleter permanently removes events from a stream, keeping the most
// recent keepRecentEvents.
type Deleter interface {
	Delete(ctx context.Context, v RetentionViolation, keepRecentEvents int) error
}

// ViolationResult is the outcome recorded by ProcessViolation.
type ViolationResult struct {
	Violation RetentionViolation
	Action    Action
	Succeeded bool
	Err       error
}

// ProcessViolation dispatches v.Type's action to the configured
// collaborator and records the outcome. It does not itself rewrite
// events — Migrate and Delete are executed by platform-specific
// collaborators, keeping the engine deterministic and testable (spec
// §4.8).
func ProcessViolation(ctx context.Context, v RetentionViolation, migrator Migrator, deleter Deleter) ViolationResult {
	result := ViolationResult{Violation: v, Action: v.Policy.Action}
	switch v.Policy.Action {
	case Migrate:
		if migrator == nil {
			result.Err = errNoCollaborator("migrator")
			return result
		}
		result.Err = migrator.Migrate(ctx, v, v.Policy.CreateSummaryOnMigration)
	case Delete:
		if deleter == nil {
			result.Err = errNoCollaborator("deleter")
			return result
		}
		result.Err = deleter.Delete(ctx, v, v.Policy.KeepRecentEvents)
	case FlagForReview, Archive:
		// no collaborator to invoke: recording the violation is the action.
	}
	result.Succeeded = result.Err == nil
	return result
}
