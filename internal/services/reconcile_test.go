package services

import (
	"testing"
	"time"

	"github.com/tbourn/go-country-cache/internal/domain"
)

func rec(name string) domain.Country {
	return domain.Country{Name: name, NameKey: domain.FoldName(name)}
}

func stored(id, name string, created time.Time) domain.Country {
	c := rec(name)
	c.ID = id
	c.CreatedAt = created
	return c
}

func TestReconcile_PartitionsDisjointAndComplete(t *testing.T) {
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	existing := []domain.Country{
		stored("id-ghana", "Ghana", created),
		stored("id-togo", "Togo", created),
	}
	incoming := []domain.Country{rec("Ghana"), rec("Benin"), rec("Togo"), rec("Mali")}

	plan := Reconcile(existing, incoming)

	if len(plan.Inserts)+len(plan.Updates) != len(incoming) {
		t.Fatalf("partition lost records: %d inserts + %d updates != %d incoming",
			len(plan.Inserts), len(plan.Updates), len(incoming))
	}
	if len(plan.Inserts) != 2 || plan.Inserts[0].Name != "Benin" || plan.Inserts[1].Name != "Mali" {
		t.Fatalf("unexpected inserts: %+v", plan.Inserts)
	}
	if len(plan.Updates) != 2 || plan.Updates[0].Name != "Ghana" || plan.Updates[1].Name != "Togo" {
		t.Fatalf("unexpected updates: %+v", plan.Updates)
	}
}

func TestReconcile_CaseOnlyDifferenceIsUpdate(t *testing.T) {
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	existing := []domain.Country{stored("id-ghana", "ghana", created)}
	incoming := []domain.Country{rec("GHANA")}

	plan := Reconcile(existing, incoming)

	if len(plan.Inserts) != 0 || len(plan.Updates) != 1 {
		t.Fatalf("case variant should match existing row: %+v", plan)
	}
	u := plan.Updates[0]
	if u.ID != "id-ghana" || !u.CreatedAt.Equal(created) {
		t.Fatalf("update must carry stored identity: %+v", u)
	}
	if u.Name != "GHANA" {
		t.Fatalf("display name should follow incoming payload: %+v", u)
	}
}

func TestReconcile_EmptyStoreAllInserts(t *testing.T) {
	incoming := []domain.Country{rec("Ghana"), rec("Togo")}
	plan := Reconcile(nil, incoming)
	if len(plan.Inserts) != 2 || len(plan.Updates) != 0 {
		t.Fatalf("everything should insert into an empty store: %+v", plan)
	}
}

func TestReconcile_EmptyIncoming(t *testing.T) {
	existing := []domain.Country{stored("id-1", "Ghana", time.Now())}
	plan := Reconcile(existing, nil)
	if len(plan.Inserts) != 0 || len(plan.Updates) != 0 {
		t.Fatalf("empty payload should plan nothing: %+v", plan)
	}
}

func TestReconcile_DuplicateInPayloadLastWins(t *testing.T) {
	// Two case-variants of a new name in the same payload collapse to one
	// insert, keeping the later occurrence's fields.
	first := rec("benin")
	first.Population = 1
	second := rec("BENIN")
	second.Population = 2

	plan := Reconcile(nil, []domain.Country{first, second})
	if len(plan.Inserts) != 1 {
		t.Fatalf("duplicates should collapse: %+v", plan.Inserts)
	}
	if got := plan.Inserts[0]; got.Name != "BENIN" || got.Population != 2 {
		t.Fatalf("last occurrence should win: %+v", got)
	}

	// Same collapse for a name that already exists in the store.
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	existing := []domain.Country{stored("id-ghana", "Ghana", created)}
	a := rec("Ghana")
	a.Population = 10
	b := rec("GHANA")
	b.Population = 20

	plan = Reconcile(existing, []domain.Country{a, b})
	if len(plan.Updates) != 1 || len(plan.Inserts) != 0 {
		t.Fatalf("duplicates should collapse into one update: %+v", plan)
	}
	u := plan.Updates[0]
	if u.ID != "id-ghana" || !u.CreatedAt.Equal(created) || u.Population != 20 {
		t.Fatalf("last occurrence should win while keeping identity: %+v", u)
	}
}
