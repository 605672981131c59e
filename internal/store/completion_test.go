package store

import (
	"context"
	"testing"
	"time"

	"github.com/dukerupert/castle/internal/model"
)

var epochStart = time.Date(2026, 3, 3, 6, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return time.Date(2026, 3, 3, h, m, 0, 0, time.UTC)
}

func strp(s string) *string { return &s }

func TestEffectiveStateNoRecords(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	f := setupFixture(t, db)
	cs := NewCompletionStore(db)

	st, err := cs.EffectiveState(ctx, f.ice.ID, epochStart)
	if err != nil {
		t.Fatalf("effective state: %v", err)
	}
	if st.Completed || st.By != nil || st.At != nil || st.Comment != nil {
		t.Errorf("expected empty state, got %+v", st)
	}
}

func TestUncompleteIsNewRecord(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	f := setupFixture(t, db)
	cs := NewCompletionStore(db)

	if _, err := cs.Append(ctx, model.NewCompletion{ChoreID: f.ice.ID, StaffName: "Nora", Completed: true, Timestamp: at(9, 0)}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := cs.Append(ctx, model.NewCompletion{ChoreID: f.ice.ID, StaffName: "Josh", Completed: false, Timestamp: at(9, 5)}); err != nil {
		t.Fatalf("append: %v", err)
	}

	st, err := cs.EffectiveState(ctx, f.ice.ID, epochStart)
	if err != nil {
		t.Fatalf("effective state: %v", err)
	}
	if st.Completed {
		t.Error("expected incomplete after uncomplete record")
	}
	if st.By == nil || *st.By != "Josh" {
		t.Errorf("by = %v, want Josh", st.By)
	}

	records, err := cs.ListSince(ctx, f.checklist.ID, epochStart)
	if err != nil {
		t.Fatalf("list since: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("expected both records retained, got %d", len(records))
	}
}

func TestLatestByTimestampNotInsertion(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	f := setupFixture(t, db)
	cs := NewCompletionStore(db)

	// Inserted later but stamped earlier, as with a skewed device clock.
	if _, err := cs.Append(ctx, model.NewCompletion{ChoreID: f.ice.ID, StaffName: "Nora", Completed: true, Timestamp: at(10, 0)}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := cs.Append(ctx, model.NewCompletion{ChoreID: f.ice.ID, StaffName: "Josh", Completed: false, Timestamp: at(9, 0)}); err != nil {
		t.Fatalf("append: %v", err)
	}

	st, err := cs.EffectiveState(ctx, f.ice.ID, epochStart)
	if err != nil {
		t.Fatalf("effective state: %v", err)
	}
	if !st.Completed || *st.By != "Nora" {
		t.Errorf("state = %+v, want completed by Nora", st)
	}
}

func TestTieBrokenByHigherID(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	f := setupFixture(t, db)
	cs := NewCompletionStore(db)

	first, err := cs.Append(ctx, model.NewCompletion{ChoreID: f.ice.ID, StaffName: "Nora", Completed: true, Timestamp: at(9, 0)})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	second, err := cs.Append(ctx, model.NewCompletion{ChoreID: f.ice.ID, StaffName: "Josh", Completed: false, Timestamp: at(9, 0)})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if second.ID <= first.ID {
		t.Fatalf("ids not increasing: %d, %d", first.ID, second.ID)
	}

	latest, err := cs.Latest(ctx, f.ice.ID, epochStart)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.ID != second.ID {
		t.Errorf("latest id = %d, want %d", latest.ID, second.ID)
	}

	states, err := cs.EffectiveStates(ctx, f.bar.ID, epochStart)
	if err != nil {
		t.Fatalf("effective states: %v", err)
	}
	if states[f.ice.ID].Completed {
		t.Error("bulk read disagrees with single read on tie")
	}
}

func TestRecordsBeforeEpochIgnored(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	f := setupFixture(t, db)
	cs := NewCompletionStore(db)

	yesterday := epochStart.Add(-2 * time.Hour)
	if _, err := cs.Append(ctx, model.NewCompletion{ChoreID: f.ice.ID, StaffName: "Nora", Completed: true, Timestamp: yesterday}); err != nil {
		t.Fatalf("append: %v", err)
	}
	// Exactly at the epoch start counts.
	if _, err := cs.Append(ctx, model.NewCompletion{ChoreID: f.glasses.ID, StaffName: "Nora", Completed: true, Timestamp: epochStart}); err != nil {
		t.Fatalf("append: %v", err)
	}

	states, err := cs.EffectiveStates(ctx, f.bar.ID, epochStart)
	if err != nil {
		t.Fatalf("effective states: %v", err)
	}
	if states[f.ice.ID].Completed {
		t.Error("record before epoch start should not count")
	}
	if !states[f.glasses.ID].Completed {
		t.Error("record at epoch start should count")
	}
}

func TestEffectiveStatesCoversEveryChore(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	f := setupFixture(t, db)
	cs := NewCompletionStore(db)

	if _, err := cs.Append(ctx, model.NewCompletion{ChoreID: f.ovens.ID, StaffName: "Pero", Completed: true, Timestamp: at(9, 0), Comment: strp("left oven slow")}); err != nil {
		t.Fatalf("append: %v", err)
	}

	states, err := cs.ChecklistStates(ctx, f.checklist.ID, epochStart)
	if err != nil {
		t.Fatalf("checklist states: %v", err)
	}
	if len(states) != 3 {
		t.Fatalf("got %d states, want 3", len(states))
	}
	ov := states[f.ovens.ID]
	if !ov.Completed || ov.Comment == nil || *ov.Comment != "left oven slow" {
		t.Errorf("ovens state = %+v", ov)
	}
	if states[f.ice.ID].Completed {
		t.Error("ice should be incomplete")
	}

	section, err := cs.EffectiveStates(ctx, f.kitchen.ID, epochStart)
	if err != nil {
		t.Fatalf("effective states: %v", err)
	}
	if len(section) != 1 {
		t.Errorf("kitchen states = %d, want 1", len(section))
	}
}

func TestAppendBatchAtomic(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	f := setupFixture(t, db)
	cs := NewCompletionStore(db)

	batch := []model.NewCompletion{
		{ChoreID: f.ice.ID, StaffName: "Nora", Completed: true, Timestamp: at(9, 0)},
		{ChoreID: 9999, StaffName: "Nora", Completed: true, Timestamp: at(9, 0)},
	}
	if err := cs.AppendBatch(ctx, batch); err == nil {
		t.Fatal("expected foreign key failure")
	}

	records, err := cs.ListSince(ctx, f.checklist.ID, epochStart)
	if err != nil {
		t.Fatalf("list since: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected rollback, found %d records", len(records))
	}

	batch[1].ChoreID = f.glasses.ID
	if err := cs.AppendBatch(ctx, batch); err != nil {
		t.Fatalf("append batch: %v", err)
	}
	states, err := cs.EffectiveStates(ctx, f.bar.ID, epochStart)
	if err != nil {
		t.Fatalf("effective states: %v", err)
	}
	for id, st := range states {
		if !st.Completed {
			t.Errorf("chore %d incomplete after batch", id)
		}
	}
}

func TestHasHistory(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	f := setupFixture(t, db)
	cs := NewCompletionStore(db)
	sigs := NewSignatureStore(db)

	has, err := cs.HasHistory(ctx, f.checklist.ID, at(7, 0))
	if err != nil {
		t.Fatalf("has history: %v", err)
	}
	if has {
		t.Error("fresh checklist should have no history")
	}

	if _, err := sigs.Create(ctx, f.checklist.ID, "Nora", "data:image/png;base64,AAAA", at(6, 30)); err != nil {
		t.Fatalf("create signature: %v", err)
	}
	has, err = cs.HasHistory(ctx, f.checklist.ID, at(7, 0))
	if err != nil {
		t.Fatalf("has history: %v", err)
	}
	if !has {
		t.Error("signature before instant should count as history")
	}

	has, err = cs.HasHistory(ctx, f.checklist.ID, at(6, 30))
	if err != nil {
		t.Fatalf("has history: %v", err)
	}
	if has {
		t.Error("history must be strictly before the instant")
	}
}

func TestPurgeChecklist(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	f := setupFixture(t, db)
	cs := NewCompletionStore(db)
	sigs := NewSignatureStore(db)

	for _, id := range []int64{f.ice.ID, f.glasses.ID, f.ovens.ID} {
		if _, err := cs.Append(ctx, model.NewCompletion{ChoreID: id, StaffName: "Nora", Completed: true, Timestamp: at(9, 0)}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if _, err := sigs.Create(ctx, f.checklist.ID, "Nora", "sig", at(9, 30)); err != nil {
		t.Fatalf("create signature: %v", err)
	}

	records, signatures, err := cs.PurgeChecklist(ctx, f.checklist.ID)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if records != 3 || signatures != 1 {
		t.Errorf("purged %d records, %d signatures; want 3, 1", records, signatures)
	}

	n, err := sigs.CountByChecklist(ctx, f.checklist.ID)
	if err != nil {
		t.Fatalf("count signatures: %v", err)
	}
	if n != 0 {
		t.Errorf("signatures left = %d", n)
	}
}
