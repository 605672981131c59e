// Package checklist applies chore and checklist transitions against the
// append-only completion log. Every mutation resolves the active epoch,
// enforces the blackout window, commits, and only then hands an intent to the
// notifier.
package checklist

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukerupert/castle/internal/clock"
	"github.com/dukerupert/castle/internal/epoch"
	"github.com/dukerupert/castle/internal/metrics"
	"github.com/dukerupert/castle/internal/model"
	"github.com/dukerupert/castle/internal/store"
)

// Notifier accepts intents for best-effort delivery. Dispatch must not block
// and must not report delivery failures back to the engine.
type Notifier interface {
	Dispatch(intent model.Intent)
}

// Stores groups the persistence the engine reads and writes.
type Stores struct {
	Catalog     *store.CatalogStore
	Staff       *store.StaffStore
	Completions *store.CompletionStore
	Signatures  *store.SignatureStore
}

type Engine struct {
	clock        clock.Clock
	catalog      *store.CatalogStore
	staff        *store.StaffStore
	completions  *store.CompletionStore
	signatures   *store.SignatureStore
	notifier     Notifier
	logger       *slog.Logger
	storeTimeout time.Duration
}

func New(clk clock.Clock, stores Stores, notifier Notifier, logger *slog.Logger, storeTimeout time.Duration) *Engine {
	return &Engine{
		clock:        clk,
		catalog:      stores.Catalog,
		staff:        stores.Staff,
		completions:  stores.Completions,
		signatures:   stores.Signatures,
		notifier:     notifier,
		logger:       logger,
		storeTimeout: storeTimeout,
	}
}

// SectionResult is returned by CompleteSection.
type SectionResult struct {
	ChoresCompleted int `json:"chores_completed"`
}

// SubmitResult is returned by SubmitChecklist.
type SubmitResult struct {
	SignatureID int64     `json:"signature_id"`
	SignedAt    time.Time `json:"signed_at"`
}

// State is a checklist rendered against its active epoch.
type State struct {
	Checklist  model.Checklist    `json:"checklist"`
	EpochStart time.Time          `json:"epoch_start"`
	InBlackout bool               `json:"in_blackout"`
	Chores     []model.ChoreState `json:"chores"`
}

// ToggleChore records a chore as completed or not completed by staffName and
// returns the chore's effective state afterwards.
func (e *Engine) ToggleChore(ctx context.Context, choreID int64, staffName string, completed bool, comment *string) (state model.EffectiveState, err error) {
	defer func() { metrics.ObserveTransition("toggle", resultLabel(err)) }()

	ctx, cancel := context.WithTimeout(ctx, e.storeTimeout)
	defer cancel()

	if err := e.requireStaff(ctx, staffName); err != nil {
		return model.EffectiveState{}, err
	}
	loc, err := e.catalog.LocateChore(ctx, choreID)
	if err != nil {
		return model.EffectiveState{}, unavailable("locate chore", err)
	}
	if loc == nil {
		return model.EffectiveState{}, &NotFoundError{Kind: "chore", Key: choreID}
	}

	now := e.clock.Now()
	w, err := e.admit(ctx, loc.Checklist, now)
	if err != nil {
		return model.EffectiveState{}, err
	}

	comment = trimComment(comment)
	if _, err := e.completions.Append(ctx, model.NewCompletion{
		ChoreID:   choreID,
		StaffName: staffName,
		Completed: completed,
		Timestamp: now,
		Comment:   comment,
	}); err != nil {
		return model.EffectiveState{}, unavailable("append completion", err)
	}
	metrics.AddRecords(1)

	e.logger.Info("chore toggled",
		"chore_id", choreID,
		"checklist", loc.Checklist.Name,
		"staff", staffName,
		"completed", completed,
	)

	kind, verb := model.IntentChoreCompleted, "done"
	if !completed {
		kind, verb = model.IntentChoreUncompleted, "not done"
	}
	e.dispatch(model.Intent{
		Kind:      kind,
		StaffName: staffName,
		Summary:   fmt.Sprintf("%s marked '%s' as %s", staffName, loc.Chore.Description, verb),
		Timestamp: now,
		Details: model.IntentDetails{
			Checklist: loc.Checklist.Name,
			SectionID: loc.Section.ID,
			Section:   loc.Section.Name,
			ChoreID:   choreID,
			Chore:     loc.Chore.Description,
			Comment:   comment,
		},
	})

	// Re-read so a concurrent writer with a later timestamp is reflected.
	state, err = e.completions.EffectiveState(ctx, choreID, w.Start)
	if err != nil {
		return model.EffectiveState{}, unavailable("read effective state", err)
	}
	return state.In(now.Location()), nil
}

// AddComment annotates a chore without changing whether it is complete. The
// annotation is appended as a new record carrying the current completed value.
func (e *Engine) AddComment(ctx context.Context, choreID int64, staffName, comment string) (state model.EffectiveState, err error) {
	defer func() { metrics.ObserveTransition("comment", resultLabel(err)) }()

	text := strings.TrimSpace(comment)
	if text == "" {
		return model.EffectiveState{}, &ValidationError{Field: "comment", Message: "must not be empty"}
	}

	ctx, cancel := context.WithTimeout(ctx, e.storeTimeout)
	defer cancel()

	if err := e.requireStaff(ctx, staffName); err != nil {
		return model.EffectiveState{}, err
	}
	loc, err := e.catalog.LocateChore(ctx, choreID)
	if err != nil {
		return model.EffectiveState{}, unavailable("locate chore", err)
	}
	if loc == nil {
		return model.EffectiveState{}, &NotFoundError{Kind: "chore", Key: choreID}
	}

	now := e.clock.Now()
	w, err := e.admit(ctx, loc.Checklist, now)
	if err != nil {
		return model.EffectiveState{}, err
	}

	current, err := e.completions.EffectiveState(ctx, choreID, w.Start)
	if err != nil {
		return model.EffectiveState{}, unavailable("read effective state", err)
	}
	rec, err := e.completions.Append(ctx, model.NewCompletion{
		ChoreID:   choreID,
		StaffName: staffName,
		Completed: current.Completed,
		Timestamp: now,
		Comment:   &text,
	})
	if err != nil {
		return model.EffectiveState{}, unavailable("append completion", err)
	}
	metrics.AddRecords(1)

	e.logger.Info("chore commented", "chore_id", choreID, "checklist", loc.Checklist.Name, "staff", staffName)

	e.dispatch(model.Intent{
		Kind:      model.IntentChoreCommented,
		StaffName: staffName,
		Summary:   fmt.Sprintf("%s commented on '%s': %s", staffName, loc.Chore.Description, text),
		Timestamp: now,
		Details: model.IntentDetails{
			Checklist: loc.Checklist.Name,
			SectionID: loc.Section.ID,
			Section:   loc.Section.Name,
			ChoreID:   choreID,
			Chore:     loc.Chore.Description,
			Comment:   &text,
		},
	})

	return model.StateFromRecord(choreID, rec).In(now.Location()), nil
}

// CompleteSection marks every chore of a section complete that is not
// already complete in the active epoch. The new records are written as one
// batch and announced with a single intent.
func (e *Engine) CompleteSection(ctx context.Context, sectionID int64, staffName string, comment *string) (result SectionResult, err error) {
	defer func() { metrics.ObserveTransition("complete_section", resultLabel(err)) }()

	ctx, cancel := context.WithTimeout(ctx, e.storeTimeout)
	defer cancel()

	if err := e.requireStaff(ctx, staffName); err != nil {
		return SectionResult{}, err
	}
	section, err := e.catalog.GetSection(ctx, sectionID)
	if err != nil {
		return SectionResult{}, unavailable("get section", err)
	}
	if section == nil {
		return SectionResult{}, &NotFoundError{Kind: "section", Key: sectionID}
	}
	cl, err := e.catalog.GetChecklistByID(ctx, section.ChecklistID)
	if err != nil {
		return SectionResult{}, unavailable("get checklist", err)
	}
	if cl == nil {
		return SectionResult{}, &NotFoundError{Kind: "checklist", Key: section.ChecklistID}
	}

	now := e.clock.Now()
	w, err := e.admit(ctx, *cl, now)
	if err != nil {
		return SectionResult{}, err
	}

	chores, err := e.catalog.ListChores(ctx, sectionID)
	if err != nil {
		return SectionResult{}, unavailable("list chores", err)
	}
	states, err := e.completions.EffectiveStates(ctx, sectionID, w.Start)
	if err != nil {
		return SectionResult{}, unavailable("read effective states", err)
	}

	comment = trimComment(comment)
	var (
		batch    []model.NewCompletion
		comments []model.ChoreComment
	)
	for _, c := range chores {
		st := states[c.ID]
		if st.Completed {
			continue
		}
		batch = append(batch, model.NewCompletion{
			ChoreID:   c.ID,
			StaffName: staffName,
			Completed: true,
			Timestamp: now,
			Comment:   comment,
		})
		// Comments left earlier in the epoch travel with the summary.
		if st.Comment != nil {
			comments = append(comments, model.ChoreComment{ChoreID: c.ID, Chore: c.Description, Comment: *st.Comment})
		}
	}

	if len(batch) == 0 {
		return SectionResult{}, nil
	}
	if err := e.completions.AppendBatch(ctx, batch); err != nil {
		return SectionResult{}, unavailable("append section batch", err)
	}
	metrics.AddRecords(len(batch))

	e.logger.Info("section completed",
		"section_id", sectionID,
		"section", section.Name,
		"checklist", cl.Name,
		"staff", staffName,
		"chores", len(batch),
	)

	e.dispatch(model.Intent{
		Kind:      model.IntentSectionCompleted,
		StaffName: staffName,
		Summary:   fmt.Sprintf("%s completed %d %s in %s", staffName, len(batch), model.Plural(len(batch), "chore", "chores"), section.Name),
		Timestamp: now,
		Details: model.IntentDetails{
			Checklist: cl.Name,
			SectionID: sectionID,
			Section:   section.Name,
			Comment:   comment,
			Count:     len(batch),
			Comments:  comments,
		},
	})

	return SectionResult{ChoresCompleted: len(batch)}, nil
}

// SubmitChecklist signs off a checklist once every chore is complete in the
// active epoch. Completion records are left untouched.
func (e *Engine) SubmitChecklist(ctx context.Context, checklistID int64, staffName, signature string) (result SubmitResult, err error) {
	defer func() { metrics.ObserveTransition("submit", resultLabel(err)) }()

	if strings.TrimSpace(signature) == "" {
		return SubmitResult{}, &ValidationError{Field: "signature", Message: "must not be empty"}
	}

	ctx, cancel := context.WithTimeout(ctx, e.storeTimeout)
	defer cancel()

	if err := e.requireStaff(ctx, staffName); err != nil {
		return SubmitResult{}, err
	}
	cl, err := e.catalog.GetChecklistByID(ctx, checklistID)
	if err != nil {
		return SubmitResult{}, unavailable("get checklist", err)
	}
	if cl == nil {
		return SubmitResult{}, &NotFoundError{Kind: "checklist", Key: checklistID}
	}

	now := e.clock.Now()
	w, err := epoch.Resolve(cl.Cadence, now)
	if err != nil {
		return SubmitResult{}, err
	}

	placed, err := e.catalog.ListChoresByChecklist(ctx, cl.ID)
	if err != nil {
		return SubmitResult{}, unavailable("list chores", err)
	}
	states, err := e.completions.ChecklistStates(ctx, cl.ID, w.Start)
	if err != nil {
		return SubmitResult{}, unavailable("read effective states", err)
	}

	var incomplete []int64
	names := make(map[int64]string, len(placed))
	for _, p := range placed {
		names[p.ID] = p.Description
		if !states[p.ID].Completed {
			incomplete = append(incomplete, p.ID)
		}
	}
	if len(incomplete) > 0 {
		return SubmitResult{}, &IncompleteChecklistError{Checklist: cl.Name, ChoreIDs: incomplete}
	}

	sig, err := e.signatures.Create(ctx, cl.ID, staffName, signature, now)
	if err != nil {
		return SubmitResult{}, unavailable("create signature", err)
	}

	records, err := e.completions.ListSince(ctx, cl.ID, w.Start)
	if err != nil {
		// The signature is committed; an incomplete summary is not worth failing for.
		e.logger.Warn("read submission summary", "checklist", cl.Name, "error", err)
	}
	lines := make([]model.CompletionLine, 0, len(records))
	for _, r := range records {
		lines = append(lines, model.CompletionLine{
			ChoreID:   r.ChoreID,
			Chore:     names[r.ChoreID],
			StaffName: r.StaffName,
			Completed: r.Completed,
			At:        r.Timestamp.In(now.Location()),
		})
	}

	e.logger.Info("checklist submitted", "checklist", cl.Name, "staff", staffName, "signature_id", sig.ID)

	e.dispatch(model.Intent{
		Kind:      model.IntentChecklistSubmitted,
		StaffName: staffName,
		Summary:   fmt.Sprintf("%s completed the full %s checklist", staffName, cl.Name),
		Timestamp: now,
		Details: model.IntentDetails{
			Checklist:   cl.Name,
			Count:       len(placed),
			Completions: lines,
		},
	})

	return SubmitResult{SignatureID: sig.ID, SignedAt: sig.Timestamp.In(now.Location())}, nil
}

// GetChecklistState renders every chore of the named checklist against the
// active epoch, in section then chore order.
func (e *Engine) GetChecklistState(ctx context.Context, name string) (*State, error) {
	ctx, cancel := context.WithTimeout(ctx, e.storeTimeout)
	defer cancel()

	cl, err := e.checklistByName(ctx, name)
	if err != nil {
		return nil, err
	}

	now := e.clock.Now()
	w, err := epoch.Resolve(cl.Cadence, now)
	if err != nil {
		return nil, err
	}

	placed, err := e.catalog.ListChoresByChecklist(ctx, cl.ID)
	if err != nil {
		return nil, unavailable("list chores", err)
	}
	states, err := e.completions.ChecklistStates(ctx, cl.ID, w.Start)
	if err != nil {
		return nil, unavailable("read effective states", err)
	}

	chores := make([]model.ChoreState, 0, len(placed))
	for _, p := range placed {
		st := states[p.ID].In(now.Location())
		chores = append(chores, model.ChoreState{
			ChoreID:     p.ID,
			Description: p.Description,
			Section:     p.Section.Name,
			SectionID:   p.Section.ID,
			Order:       p.Chore.SortOrder,
			Completed:   st.Completed,
			CompletedBy: st.By,
			CompletedAt: st.At,
			Comment:     st.Comment,
		})
	}

	return &State{
		Checklist:  *cl,
		EpochStart: w.Start,
		InBlackout: w.InBlackout,
		Chores:     chores,
	}, nil
}

// Checklist looks a checklist up by name.
func (e *Engine) Checklist(ctx context.Context, name string) (*model.Checklist, error) {
	ctx, cancel := context.WithTimeout(ctx, e.storeTimeout)
	defer cancel()
	return e.checklistByName(ctx, name)
}

func (e *Engine) ListChecklists(ctx context.Context) ([]model.Checklist, error) {
	ctx, cancel := context.WithTimeout(ctx, e.storeTimeout)
	defer cancel()

	checklists, err := e.catalog.ListChecklists(ctx)
	if err != nil {
		return nil, unavailable("list checklists", err)
	}
	return checklists, nil
}

// ListStaff returns the active roster.
func (e *Engine) ListStaff(ctx context.Context) ([]model.Staff, error) {
	ctx, cancel := context.WithTimeout(ctx, e.storeTimeout)
	defer cancel()

	staff, err := e.staff.List(ctx, true)
	if err != nil {
		return nil, unavailable("list staff", err)
	}
	return staff, nil
}

// Signatures lists sign-offs of a checklist at or after since, newest first.
// A zero since means the start of the active epoch.
func (e *Engine) Signatures(ctx context.Context, name string, since time.Time) ([]model.Signature, error) {
	ctx, cancel := context.WithTimeout(ctx, e.storeTimeout)
	defer cancel()

	cl, err := e.checklistByName(ctx, name)
	if err != nil {
		return nil, err
	}
	now := e.clock.Now()
	if since.IsZero() {
		w, err := epoch.Resolve(cl.Cadence, now)
		if err != nil {
			return nil, err
		}
		since = w.Start
	}

	sigs, err := e.signatures.ListSince(ctx, cl.ID, since)
	if err != nil {
		return nil, unavailable("list signatures", err)
	}
	for i := range sigs {
		sigs[i].Timestamp = sigs[i].Timestamp.In(now.Location())
	}
	return sigs, nil
}

// ResetResult reports what a reset removed.
type ResetResult struct {
	Checklist  string `json:"checklist"`
	Records    int64  `json:"records_deleted"`
	Signatures int64  `json:"signatures_deleted"`
}

// ResetChecklist purges every completion record and signature of a
// checklist. It is an operator recovery tool and ignores the blackout window.
func (e *Engine) ResetChecklist(ctx context.Context, name, actor string) (result ResetResult, err error) {
	defer func() { metrics.ObserveTransition("reset", resultLabel(err)) }()

	ctx, cancel := context.WithTimeout(ctx, e.storeTimeout)
	defer cancel()

	cl, err := e.checklistByName(ctx, name)
	if err != nil {
		return ResetResult{}, err
	}

	records, sigs, err := e.completions.PurgeChecklist(ctx, cl.ID)
	if err != nil {
		return ResetResult{}, unavailable("purge checklist", err)
	}

	e.logger.Warn("checklist reset", "checklist", cl.Name, "actor", actor, "records", records, "signatures", sigs)

	e.dispatch(model.Intent{
		Kind:      model.IntentChecklistReset,
		StaffName: actor,
		Summary:   fmt.Sprintf("%s checklist was reset by %s", cl.Name, actor),
		Timestamp: e.clock.Now(),
		Details:   model.IntentDetails{Checklist: cl.Name, Count: int(records)},
	})

	return ResetResult{Checklist: cl.Name, Records: records, Signatures: sigs}, nil
}

// admit resolves the epoch for a mutation and rejects it inside the blackout
// window once the checklist has history from before the window opened. A
// checklist first used during the window stays open until the window ends.
func (e *Engine) admit(ctx context.Context, cl model.Checklist, now time.Time) (epoch.Window, error) {
	w, err := epoch.Resolve(cl.Cadence, now)
	if err != nil {
		return epoch.Window{}, err
	}
	if !w.InBlackout {
		return w, nil
	}

	start, end := epoch.BlackoutBounds(now)
	has, err := e.completions.HasHistory(ctx, cl.ID, start)
	if err != nil {
		return epoch.Window{}, unavailable("check history", err)
	}
	if !has {
		return w, nil
	}

	e.logger.Info("mutation rejected in blackout window", "checklist", cl.Name, "now", now.Format(time.RFC3339))
	return epoch.Window{}, &BlackoutWindowError{Start: start, End: end}
}

func (e *Engine) requireStaff(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: "staff_name", Message: "required"}
	}
	active, err := e.staff.IsActive(ctx, name)
	if err != nil {
		return unavailable("check staff", err)
	}
	if !active {
		return &NotFoundError{Kind: "staff", Key: name}
	}
	return nil
}

func (e *Engine) checklistByName(ctx context.Context, name string) (*model.Checklist, error) {
	cl, err := e.catalog.GetChecklistByName(ctx, name)
	if err != nil {
		return nil, unavailable("get checklist", err)
	}
	if cl == nil {
		return nil, &NotFoundError{Kind: "checklist", Key: name}
	}
	return cl, nil
}

// dispatch hands an intent to the notifier after the transition committed.
// A panicking notifier is contained here so the caller still sees success.
func (e *Engine) dispatch(intent model.Intent) {
	if e.notifier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("notifier panicked", "kind", intent.Kind, "panic", r)
		}
	}()
	e.notifier.Dispatch(intent)
}

func unavailable(op string, err error) error {
	return &StorageUnavailableError{Op: op, Err: err}
}

func trimComment(c *string) *string {
	if c == nil {
		return nil
	}
	s := strings.TrimSpace(*c)
	if s == "" {
		return nil
	}
	return &s
}
