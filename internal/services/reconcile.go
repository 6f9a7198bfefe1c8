// Package services – reconciliation
//
// This file classifies merged records against the current store contents.
// Existing rows are indexed once by case-folded name, so each incoming record
// is classified with a single map lookup regardless of store size.
package services

import (
	"github.com/tbourn/go-country-cache/internal/domain"
)

// ReconcilePlan partitions incoming records into rows to insert and rows to
// update. The two slices are disjoint: every incoming record lands in exactly
// one of them, decided solely by case-folded name presence in the existing
// set. Order follows the incoming payload.
type ReconcilePlan struct {
	Inserts []domain.Country
	Updates []domain.Country
}

// Reconcile matches incoming records against existing ones. An incoming
// record whose folded name is already stored becomes an update carrying the
// stored row's identity (ID, CreatedAt); everything else becomes an insert.
//
// When the incoming payload itself repeats a name (differing only in case),
// the last occurrence wins, mirroring sequential upsert semantics.
func Reconcile(existing, incoming []domain.Country) ReconcilePlan {
	index := make(map[string]*domain.Country, len(existing))
	for i := range existing {
		index[existing[i].NameKey] = &existing[i]
	}

	plan := ReconcilePlan{}
	seen := make(map[string]int, len(incoming)) // folded name -> slot in plan

	for i := range incoming {
		rec := incoming[i]
		key := rec.NameKey

		if slot, dup := seen[key]; dup {
			// Duplicate within one payload: overwrite the earlier slot.
			if slot >= 0 {
				rec.ID = plan.Inserts[slot].ID
				plan.Inserts[slot] = rec
			} else {
				prev := plan.Updates[-slot-1]
				rec.ID, rec.CreatedAt = prev.ID, prev.CreatedAt
				plan.Updates[-slot-1] = rec
			}
			continue
		}

		if cur, ok := index[key]; ok {
			rec.ID = cur.ID
			rec.CreatedAt = cur.CreatedAt
			plan.Updates = append(plan.Updates, rec)
			seen[key] = -len(plan.Updates) // negative marks an update slot
		} else {
			plan.Inserts = append(plan.Inserts, rec)
			seen[key] = len(plan.Inserts) - 1
		}
	}
	return plan
}
