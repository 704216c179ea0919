package orders

import (
	"encoding/json"
	"fmt"
)

// DedupMode selects which references of existing entries block a candidate.
type DedupMode int

const (
	// DedupBothRefs rejects a candidate when either its contract reference or its
	// source reference matches either reference of any existing entry.
	DedupBothRefs DedupMode = iota
	// DedupContractRef only compares contract references (webhook path).
	DedupContractRef
)

func (m DedupMode) String() string {
	switch m {
	case DedupContractRef:
		return "contract_ref"
	default:
		return "both_refs"
	}
}

// SkipReason explains why a candidate was not imported.
type SkipReason string

const (
	SkipEmptyRef        SkipReason = "empty_ref"
	SkipMissingCustomer SkipReason = "missing_customer"
	SkipDuplicate       SkipReason = "duplicate"
)

// Result is the outcome of one reconciliation over a payload snapshot.
type Result struct {
	// Imported lists accepted candidates in the order they appear in Payload.
	Imported []ImportedOrder
	Skipped  map[SkipReason]int
	// Payload is the next document payload; nil when nothing was imported.
	Payload []json.RawMessage
	// Evicted counts entries dropped from the tail to honour the cap.
	Evicted int
}

// Reconciler computes the delta between candidates and the current payload.
type Reconciler struct {
	MaxEntries int
	Mode       DedupMode
}

// entryRefs is the part of a stored payload entry the reconciler reads.
// Other fields are kept verbatim.
type entryRefs struct {
	RefContrat any `json:"refContrat"`
	DoliRef    any `json:"doliRef"`
}

// Reconcile filters candidates against current and builds the next payload.
// It does not mutate current.
func (r Reconciler) Reconcile(candidates []Candidate, current []json.RawMessage) (Result, error) {
	res := Result{Skipped: make(map[SkipReason]int)}
	existing := r.existingRefs(current)

	var accepted []ImportedOrder
	for _, c := range candidates {
		contractRef := CleanRef(c.ContractRef())
		sourceRef := CleanRef(c.SourceRef())

		switch {
		case contractRef == "":
			res.Skipped[SkipEmptyRef]++
			continue
		case c.MissingCustomer:
			res.Skipped[SkipMissingCustomer]++
			continue
		case existing[contractRef]:
			res.Skipped[SkipDuplicate]++
			continue
		case r.Mode == DedupBothRefs && sourceRef != "" && existing[sourceRef]:
			res.Skipped[SkipDuplicate]++
			continue
		}

		order := c.Order
		order.RefContrat = contractRef
		order.DoliRef = sourceRef
		accepted = append(accepted, order)

		existing[contractRef] = true
		if r.Mode == DedupBothRefs && sourceRef != "" {
			existing[sourceRef] = true
		}
	}

	if len(accepted) == 0 {
		return res, nil
	}

	// The last accepted candidate is the most recent one and goes first.
	res.Imported = make([]ImportedOrder, 0, len(accepted))
	for i := len(accepted) - 1; i >= 0; i-- {
		res.Imported = append(res.Imported, accepted[i])
	}

	next := make([]json.RawMessage, 0, len(res.Imported)+len(current))
	for _, o := range res.Imported {
		raw, err := json.Marshal(o)
		if err != nil {
			return Result{}, fmt.Errorf("encode order %s: %w", o.ID, err)
		}
		next = append(next, raw)
	}
	next = append(next, current...)

	limit := r.MaxEntries
	if limit <= 0 {
		limit = DefaultMaxEntries
	}
	if len(next) > limit {
		res.Evicted = len(next) - limit
		next = next[:limit]
	}

	// Imported orders that did not survive the cap are not reported as imported.
	if len(res.Imported) > limit {
		res.Imported = res.Imported[:limit]
	}

	res.Payload = next
	return res, nil
}

func (r Reconciler) existingRefs(current []json.RawMessage) map[string]bool {
	refs := make(map[string]bool, len(current)*2)
	for _, raw := range current {
		var e entryRefs
		if err := json.Unmarshal(raw, &e); err != nil {
			continue
		}
		if s, ok := e.RefContrat.(string); ok {
			if c := CleanRef(s); c != "" {
				refs[c] = true
			}
		}
		if r.Mode != DedupBothRefs {
			continue
		}
		if s, ok := e.DoliRef.(string); ok {
			if c := CleanRef(s); c != "" {
				refs[c] = true
			}
		}
	}
	return refs
}
