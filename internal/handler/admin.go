package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/castle/internal/auth"
	"github.com/dukerupert/castle/internal/checklist"
	"github.com/dukerupert/castle/internal/model"
)

// AdminHandler serves catalog and roster administration and checklist
// resets. Routes are mounted behind admin basic auth.
type AdminHandler struct {
	engine *checklist.Engine
	logger *slog.Logger
}

func NewAdminHandler(engine *checklist.Engine, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{engine: engine, logger: logger}
}

type createChecklistRequest struct {
	Name        string `json:"name" validate:"required,max=64"`
	Description string `json:"description" validate:"max=200"`
	Cadence     string `json:"cadence" validate:"required,oneof=daily weekly"`
}

type updateChecklistRequest struct {
	Description string `json:"description" validate:"max=200"`
}

type sectionDefRequest struct {
	Name  string `json:"name" validate:"required,max=100"`
	Order int    `json:"order" validate:"gte=0"`
}

type choreDefRequest struct {
	Description string `json:"description" validate:"required,max=200"`
	Order       int    `json:"order" validate:"gte=0"`
}

type staffRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// Reset handles POST /admin/checklists/{name}/reset
func (h *AdminHandler) Reset(w http.ResponseWriter, r *http.Request) {
	res, err := h.engine.ResetChecklist(r.Context(), r.PathValue("name"), auth.Actor(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// CreateChecklist handles POST /admin/checklists
func (h *AdminHandler) CreateChecklist(w http.ResponseWriter, r *http.Request) {
	var req createChecklistRequest
	if !decode(w, r, &req) {
		return
	}
	cl, err := h.engine.CreateChecklist(r.Context(), req.Name, req.Description, model.Cadence(req.Cadence))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, cl)
}

// UpdateChecklist handles PATCH /admin/checklists/{name}
func (h *AdminHandler) UpdateChecklist(w http.ResponseWriter, r *http.Request) {
	var req updateChecklistRequest
	if !decode(w, r, &req) {
		return
	}
	cl, err := h.engine.UpdateChecklistDescription(r.Context(), r.PathValue("name"), req.Description)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, cl)
}

// DeleteChecklist handles DELETE /admin/checklists/{name}
func (h *AdminHandler) DeleteChecklist(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeleteChecklist(r.Context(), r.PathValue("name")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListSections handles GET /admin/checklists/{name}/sections
func (h *AdminHandler) ListSections(w http.ResponseWriter, r *http.Request) {
	sections, err := h.engine.Sections(r.Context(), r.PathValue("name"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if sections == nil {
		sections = []model.Section{}
	}
	writeJSON(w, http.StatusOK, sections)
}

// CreateSection handles POST /admin/checklists/{name}/sections
func (h *AdminHandler) CreateSection(w http.ResponseWriter, r *http.Request) {
	var req sectionDefRequest
	if !decode(w, r, &req) {
		return
	}
	sec, err := h.engine.CreateSection(r.Context(), r.PathValue("name"), req.Name, req.Order)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, sec)
}

// UpdateSection handles PUT /admin/sections/{id}
func (h *AdminHandler) UpdateSection(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	var req sectionDefRequest
	if !decode(w, r, &req) {
		return
	}
	sec, err := h.engine.UpdateSection(r.Context(), id, req.Name, req.Order)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sec)
}

// DeleteSection handles DELETE /admin/sections/{id}
func (h *AdminHandler) DeleteSection(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	if err := h.engine.DeleteSection(r.Context(), id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateChore handles POST /admin/sections/{id}/chores
func (h *AdminHandler) CreateChore(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	var req choreDefRequest
	if !decode(w, r, &req) {
		return
	}
	chore, err := h.engine.CreateChore(r.Context(), id, req.Description, req.Order)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, chore)
}

// UpdateChore handles PUT /admin/chores/{id}
func (h *AdminHandler) UpdateChore(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	var req choreDefRequest
	if !decode(w, r, &req) {
		return
	}
	chore, err := h.engine.UpdateChore(r.Context(), id, req.Description, req.Order)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, chore)
}

// DeleteChore handles DELETE /admin/chores/{id}
func (h *AdminHandler) DeleteChore(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	if err := h.engine.DeleteChore(r.Context(), id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddStaff handles POST /admin/staff
func (h *AdminHandler) AddStaff(w http.ResponseWriter, r *http.Request) {
	var req staffRequest
	if !decode(w, r, &req) {
		return
	}
	m, err := h.engine.AddStaff(r.Context(), req.Name)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// DeactivateStaff handles DELETE /admin/staff/{name}
func (h *AdminHandler) DeactivateStaff(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeactivateStaff(r.Context(), r.PathValue("name")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
