package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/castle/internal/checklist"
	"github.com/dukerupert/castle/internal/model"
)

// ChecklistHandler serves the staff-facing checklist API.
type ChecklistHandler struct {
	engine *checklist.Engine
	logger *slog.Logger
}

func NewChecklistHandler(engine *checklist.Engine, logger *slog.Logger) *ChecklistHandler {
	return &ChecklistHandler{engine: engine, logger: logger}
}

type toggleRequest struct {
	StaffName string  `json:"staff_name" validate:"required,max=100"`
	Completed *bool   `json:"completed" validate:"required"`
	Comment   *string `json:"comment" validate:"omitempty,max=500"`
}

type commentRequest struct {
	StaffName string `json:"staff_name" validate:"required,max=100"`
	Comment   string `json:"comment" validate:"required,max=500"`
}

type sectionRequest struct {
	StaffName string  `json:"staff_name" validate:"required,max=100"`
	Comment   *string `json:"comment" validate:"omitempty,max=500"`
}

type submitRequest struct {
	StaffName string `json:"staff_name" validate:"required,max=100"`
	Signature string `json:"signature" validate:"required"`
}

// ListChecklists handles GET /api/checklists
func (h *ChecklistHandler) ListChecklists(w http.ResponseWriter, r *http.Request) {
	lists, err := h.engine.ListChecklists(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if lists == nil {
		lists = []model.Checklist{}
	}
	writeJSON(w, http.StatusOK, lists)
}

// State handles GET /api/checklists/{name}/chores
func (h *ChecklistHandler) State(w http.ResponseWriter, r *http.Request) {
	state, err := h.engine.GetChecklistState(r.Context(), r.PathValue("name"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if state.Chores == nil {
		state.Chores = []model.ChoreState{}
	}
	writeJSON(w, http.StatusOK, state)
}

// Signatures handles GET /api/checklists/{name}/signatures?since=RFC3339.
// Without since, the current epoch's signatures are returned.
func (h *ChecklistHandler) Signatures(w http.ResponseWriter, r *http.Request) {
	var since time.Time
	if s := r.URL.Query().Get("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "since must be an RFC 3339 timestamp"})
			return
		}
		since = t
	}

	sigs, err := h.engine.Signatures(r.Context(), r.PathValue("name"), since)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if sigs == nil {
		sigs = []model.Signature{}
	}
	writeJSON(w, http.StatusOK, sigs)
}

// Toggle handles POST /api/chores/{id}/toggle
func (h *ChecklistHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	var req toggleRequest
	if !decode(w, r, &req) {
		return
	}

	state, err := h.engine.ToggleChore(r.Context(), id, req.StaffName, *req.Completed, req.Comment)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// Comment handles POST /api/chores/{id}/comment
func (h *ChecklistHandler) Comment(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	var req commentRequest
	if !decode(w, r, &req) {
		return
	}

	state, err := h.engine.AddComment(r.Context(), id, req.StaffName, req.Comment)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// CompleteSection handles POST /api/sections/{id}/complete
func (h *ChecklistHandler) CompleteSection(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	var req sectionRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.engine.CompleteSection(r.Context(), id, req.StaffName, req.Comment)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Submit handles POST /api/checklists/{name}/submit
func (h *ChecklistHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if !decode(w, r, &req) {
		return
	}

	cl, err := h.engine.Checklist(r.Context(), r.PathValue("name"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	res, err := h.engine.SubmitChecklist(r.Context(), cl.ID, req.StaffName, req.Signature)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// ListStaff handles GET /api/staff
func (h *ChecklistHandler) ListStaff(w http.ResponseWriter, r *http.Request) {
	staff, err := h.engine.ListStaff(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if staff == nil {
		staff = []model.Staff{}
	}
	writeJSON(w, http.StatusOK, staff)
}
