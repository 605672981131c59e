package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/castle/internal/model"
)

// CompletionStore is an append-only log of completion records. Rows are never
// updated; effective state is derived at read time from the latest record in
// an epoch, ties broken by the higher id.
type CompletionStore struct {
	db *sql.DB
}

func NewCompletionStore(db *sql.DB) *CompletionStore {
	return &CompletionStore{db: db}
}

const recordCols = `id, chore_id, staff_name, completed, recorded_at, comment`

func scanRecord(s scanner) (*model.CompletionRecord, error) {
	var r model.CompletionRecord
	var completed int
	var recordedAt string
	var comment sql.NullString
	if err := s.Scan(&r.ID, &r.ChoreID, &r.StaffName, &completed, &recordedAt, &comment); err != nil {
		return nil, err
	}
	ts, err := parseTS(recordedAt)
	if err != nil {
		return nil, err
	}
	r.Completed = completed != 0
	r.Timestamp = ts
	r.Comment = stringPtr(comment)
	return &r, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertRecord(ctx context.Context, ex execer, nc model.NewCompletion) (int64, error) {
	var completed int
	if nc.Completed {
		completed = 1
	}
	result, err := ex.ExecContext(ctx,
		`INSERT INTO completion_records (chore_id, staff_name, completed, recorded_at, comment) VALUES (?, ?, ?, ?, ?)`,
		nc.ChoreID, nc.StaffName, completed, formatTS(nc.Timestamp), nullString(nc.Comment),
	)
	if err != nil {
		return 0, fmt.Errorf("insert completion record: %w", err)
	}
	return result.LastInsertId()
}

// Append inserts one record and returns it.
func (s *CompletionStore) Append(ctx context.Context, nc model.NewCompletion) (*model.CompletionRecord, error) {
	id, err := insertRecord(ctx, s.db, nc)
	if err != nil {
		return nil, err
	}
	return s.getByID(ctx, id)
}

// AppendBatch inserts all records in one transaction: either every record is
// written or none is.
func (s *CompletionStore) AppendBatch(ctx context.Context, batch []model.NewCompletion) error {
	if len(batch) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, nc := range batch {
		if _, err := insertRecord(ctx, tx, nc); err != nil {
			return fmt.Errorf("append chore %d: %w", nc.ChoreID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

func (s *CompletionStore) getByID(ctx context.Context, id int64) (*model.CompletionRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordCols+` FROM completion_records WHERE id = ?`, id)
	r, err := scanRecord(row)
	if err != nil {
		return nil, fmt.Errorf("get completion record: %w", err)
	}
	return r, nil
}

// Latest returns the most recent record for a chore at or after since, or nil
// when there is none.
func (s *CompletionStore) Latest(ctx context.Context, choreID int64, since time.Time) (*model.CompletionRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordCols+` FROM completion_records
		 WHERE chore_id = ? AND recorded_at >= ?
		 ORDER BY recorded_at DESC, id DESC LIMIT 1`,
		choreID, formatTS(since),
	)
	r, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest completion: %w", err)
	}
	return r, nil
}

// EffectiveState resolves a single chore within the epoch starting at since.
func (s *CompletionStore) EffectiveState(ctx context.Context, choreID int64, since time.Time) (model.EffectiveState, error) {
	r, err := s.Latest(ctx, choreID, since)
	if err != nil {
		return model.EffectiveState{}, err
	}
	return model.StateFromRecord(choreID, r), nil
}

// latestPerChore selects the winning record per chore with a window function
// so a whole section or checklist resolves in one query.
const latestPerChore = `
	SELECT ` + recordCols + ` FROM (
		SELECT r.*, ROW_NUMBER() OVER (
			PARTITION BY r.chore_id ORDER BY r.recorded_at DESC, r.id DESC
		) AS rn
		FROM completion_records r
		JOIN chores c ON c.id = r.chore_id
		JOIN sections s ON s.id = c.section_id
		WHERE %s AND r.recorded_at >= ?
	) WHERE rn = 1`

// EffectiveStates resolves every chore of a section. Chores without a record
// in the epoch are present and incomplete.
func (s *CompletionStore) EffectiveStates(ctx context.Context, sectionID int64, since time.Time) (map[int64]model.EffectiveState, error) {
	choreIDs, err := s.choreIDs(ctx, `SELECT id FROM chores WHERE section_id = ?`, sectionID)
	if err != nil {
		return nil, err
	}
	latest, err := s.latestWhere(ctx, "c.section_id = ?", sectionID, since)
	if err != nil {
		return nil, err
	}
	return mergeStates(choreIDs, latest), nil
}

// ChecklistStates resolves every chore of a checklist.
func (s *CompletionStore) ChecklistStates(ctx context.Context, checklistID int64, since time.Time) (map[int64]model.EffectiveState, error) {
	choreIDs, err := s.choreIDs(ctx,
		`SELECT c.id FROM chores c JOIN sections s ON s.id = c.section_id WHERE s.checklist_id = ?`,
		checklistID,
	)
	if err != nil {
		return nil, err
	}
	latest, err := s.latestWhere(ctx, "s.checklist_id = ?", checklistID, since)
	if err != nil {
		return nil, err
	}
	return mergeStates(choreIDs, latest), nil
}

func (s *CompletionStore) choreIDs(ctx context.Context, query string, arg int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list chore ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan chore id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *CompletionStore) latestWhere(ctx context.Context, cond string, arg int64, since time.Time) (map[int64]*model.CompletionRecord, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(latestPerChore, cond), arg, formatTS(since))
	if err != nil {
		return nil, fmt.Errorf("query latest completions: %w", err)
	}
	defer rows.Close()

	latest := make(map[int64]*model.CompletionRecord)
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan completion record: %w", err)
		}
		latest[r.ChoreID] = r
	}
	return latest, rows.Err()
}

func mergeStates(choreIDs []int64, latest map[int64]*model.CompletionRecord) map[int64]model.EffectiveState {
	states := make(map[int64]model.EffectiveState, len(choreIDs))
	for _, id := range choreIDs {
		states[id] = model.StateFromRecord(id, latest[id])
	}
	return states
}

// ListSince returns every record under a checklist at or after since, oldest
// first.
func (s *CompletionStore) ListSince(ctx context.Context, checklistID int64, since time.Time) ([]model.CompletionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.chore_id, r.staff_name, r.completed, r.recorded_at, r.comment
		 FROM completion_records r
		 JOIN chores c ON c.id = r.chore_id
		 JOIN sections s ON s.id = c.section_id
		 WHERE s.checklist_id = ? AND r.recorded_at >= ?
		 ORDER BY r.recorded_at ASC, r.id ASC`,
		checklistID, formatTS(since),
	)
	if err != nil {
		return nil, fmt.Errorf("list completions since: %w", err)
	}
	defer rows.Close()

	var records []model.CompletionRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan completion record: %w", err)
		}
		records = append(records, *r)
	}
	return records, rows.Err()
}

// HasHistory reports whether a checklist has any completion record or
// signature strictly before the given instant.
func (s *CompletionStore) HasHistory(ctx context.Context, checklistID int64, before time.Time) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM completion_records r
			JOIN chores c ON c.id = r.chore_id
			JOIN sections s ON s.id = c.section_id
			WHERE s.checklist_id = ? AND r.recorded_at < ?
		 ) OR EXISTS (
			SELECT 1 FROM signatures WHERE checklist_id = ? AND signed_at < ?
		 )`,
		checklistID, formatTS(before), checklistID, formatTS(before),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check checklist history: %w", err)
	}
	return exists != 0, nil
}

// PurgeChecklist deletes every completion record and signature under a
// checklist. It is an operator recovery tool, not part of the normal reset
// cadence.
func (s *CompletionStore) PurgeChecklist(ctx context.Context, checklistID int64) (records, signatures int64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM completion_records WHERE chore_id IN (
			SELECT c.id FROM chores c JOIN sections s ON s.id = c.section_id WHERE s.checklist_id = ?
		 )`,
		checklistID,
	)
	if err != nil {
		return 0, 0, fmt.Errorf("purge completion records: %w", err)
	}
	records, _ = res.RowsAffected()

	res, err = tx.ExecContext(ctx, `DELETE FROM signatures WHERE checklist_id = ?`, checklistID)
	if err != nil {
		return 0, 0, fmt.Errorf("purge signatures: %w", err)
	}
	signatures, _ = res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("commit purge: %w", err)
	}
	return records, signatures, nil
}
