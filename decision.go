package elfaes

import (
	"context"

	elfaeserr "github.com/elfaes-go/elfaes/errors"
)

// DecisionContext is a caller-supplied checkpoint used to reject stale
// commands: a recorded expectation of each referenced stream's current
// version, validated against the live document before a command is
// allowed to proceed. This is the "decision-validation contract" named
// in spec's glossary and consumed by the core independent of any
// concrete projection implementation.
type DecisionContext struct {
	Expectations map[string]int64 // streamIdentifier -> expected currentStreamVersion
}

// NewDecisionContext returns an empty DecisionContext.
func NewDecisionContext() DecisionContext {
	return DecisionContext{Expectations: make(map[string]int64)}
}

// Expect records that streamIdentifier was observed at version when
// the caller formed its decision.
func (d DecisionContext) Expect(streamIdentifier string, version int64) {
	d.Expectations[streamIdentifier] = version
}

// VersionResolver returns the current version of a stream, typically
// backed by a DocumentStore.
type VersionResolver interface {
	CurrentVersion(ctx context.Context, streamIdentifier string) (int64, error)
}

// Validate compares every expectation in d against the live version
// reported by resolver, failing with a stale-decision error on the
// first mismatch.
func (d DecisionContext) Validate(ctx context.Context, resolver VersionResolver) error {
	for streamIdentifier, expected := range d.Expectations {
		actual, err := resolver.CurrentVersion(ctx, streamIdentifier)
		if err != nil {
			return err
		}
		if actual != expected {
			return &elfaeserr.VersionConflictError{
				Code:            elfaeserr.CodeStaleDecision,
				StreamID:        streamIdentifier,
				ExpectedVersion: expected,
				ActualVersion:   actual,
			}
		}
	}
	return nil
}
