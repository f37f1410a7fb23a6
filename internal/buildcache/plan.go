package buildcache

import (
	"bytes"
)

// BasePlan is the decision for the base order artifact.
type BasePlan int

const (
	RegenerateBase BasePlan = iota
	ReuseBase
)

func (p BasePlan) String() string {
	if p == ReuseBase {
		return "reuse-base"
	}
	return "regenerate-base"
}

// EnrichedPlan is the decision for the enriched artifact.
type EnrichedPlan int

const (
	RegenerateEnriched EnrichedPlan = iota
	IncrementalPatchEnriched
	ReuseEnriched
)

func (p EnrichedPlan) String() string {
	switch p {
	case IncrementalPatchEnriched:
		return "patch-enriched"
	case ReuseEnriched:
		return "reuse-enriched"
	}
	return "regenerate-enriched"
}

// DecideBase compares the current digests against prior state. The base
// artifact is reused only when the source digest, the filter fingerprint and
// the on-disk base digest all match what was persisted.
func DecideBase(prior, now State) BasePlan {
	switch {
	case prior.Source == "" || prior.Filters == nil || prior.BaseOrder == "":
		return RegenerateBase
	case now.Source == "" || now.Source != prior.Source:
		return RegenerateBase
	case !bytes.Equal(bytes.TrimSpace(now.Filters), prior.Filters):
		return RegenerateBase
	case now.BaseOrder == "" || now.BaseOrder != prior.BaseOrder:
		return RegenerateBase
	}
	return ReuseBase
}

// DecideEnriched decides how to produce the enriched artifact. A changed or
// unrecorded base digest forces regeneration; with an unchanged base, a
// matching enriched digest allows reuse and anything else is patched.
func DecideEnriched(prior, now State) EnrichedPlan {
	switch {
	case prior.BaseOrder == "" || now.BaseOrder != prior.BaseOrder:
		return RegenerateEnriched
	case now.Enriched == "":
		return RegenerateEnriched
	case now.Enriched == prior.Enriched:
		return ReuseEnriched
	}
	return IncrementalPatchEnriched
}

// Decide loads the persisted state and decides the base plan for now.
func (s *Store) Decide(now State) BasePlan {
	plan := DecideBase(s.Load(), now)
	decisions.WithLabelValues("base", plan.String()).Inc()
	return plan
}

// DecideEnriched loads the persisted state and decides the enriched plan.
func (s *Store) DecideEnriched(now State) EnrichedPlan {
	plan := DecideEnriched(s.Load(), now)
	decisions.WithLabelValues("enriched", plan.String()).Inc()
	return plan
}
