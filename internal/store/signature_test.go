package store

import (
	"context"
	"testing"
	"time"
)

func TestSignatureCreateAndList(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	f := setupFixture(t, db)
	sigs := NewSignatureStore(db)

	old := epochStart.Add(-24 * time.Hour).Add(3 * time.Hour)
	if _, err := sigs.Create(ctx, f.checklist.ID, "Dean", "old", old); err != nil {
		t.Fatalf("create: %v", err)
	}
	first, err := sigs.Create(ctx, f.checklist.ID, "Nora", "first", at(9, 0))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !first.Timestamp.Equal(at(9, 0)) {
		t.Errorf("timestamp = %v, want %v", first.Timestamp, at(9, 0))
	}
	if _, err := sigs.Create(ctx, f.checklist.ID, "Josh", "second", at(10, 0)); err != nil {
		t.Fatalf("create: %v", err)
	}

	list, err := sigs.ListSince(ctx, f.checklist.ID, epochStart)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("got %d signatures, want 2", len(list))
	}
	if list[0].StaffName != "Josh" || list[1].StaffName != "Nora" {
		t.Errorf("order = %s, %s; want newest first", list[0].StaffName, list[1].StaffName)
	}

	n, err := sigs.CountByChecklist(ctx, f.checklist.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Errorf("count = %d, want 3", n)
	}
}

func TestTimestampRoundTripPreservesOrder(t *testing.T) {
	a := time.Date(2026, 3, 3, 9, 0, 0, 5, time.UTC)
	b := time.Date(2026, 3, 3, 9, 0, 0, 40, time.UTC)
	if formatTS(a) >= formatTS(b) {
		t.Errorf("formatted %q >= %q", formatTS(a), formatTS(b))
	}

	loc := time.FixedZone("BST", 3600)
	local := time.Date(2026, 6, 1, 10, 0, 0, 0, loc)
	got, err := parseTS(formatTS(local))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !got.Equal(local) {
		t.Errorf("round trip = %v, want %v", got, local)
	}
}
