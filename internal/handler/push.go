package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/castle/internal/checklist"
	"github.com/dukerupert/castle/internal/push"
	"github.com/dukerupert/castle/internal/store"
)

type PushHandler struct {
	pushStore  *store.PushStore
	staffStore *store.StaffStore
	service    *push.Service
	timeout    time.Duration
	logger     *slog.Logger
}

func NewPushHandler(ps *store.PushStore, ss *store.StaffStore, svc *push.Service, timeout time.Duration, logger *slog.Logger) *PushHandler {
	return &PushHandler{pushStore: ps, staffStore: ss, service: svc, timeout: timeout, logger: logger}
}

type subscribeRequest struct {
	StaffName  string `json:"staff_name" validate:"required"`
	Endpoint   string `json:"endpoint" validate:"required,url"`
	P256dh     string `json:"p256dh" validate:"required"`
	Auth       string `json:"auth" validate:"required"`
	DeviceName string `json:"device_name" validate:"max=100"`
}

type unsubscribeRequest struct {
	StaffName string `json:"staff_name" validate:"required"`
	Endpoint  string `json:"endpoint" validate:"required"`
}

// Subscribe handles POST /api/push/subscribe
func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if !decode(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	active, err := h.staffStore.IsActive(ctx, req.StaffName)
	if err != nil {
		writeError(w, h.logger, &checklist.StorageUnavailableError{Op: "check staff", Err: err})
		return
	}
	if !active {
		writeError(w, h.logger, &checklist.NotFoundError{Kind: "staff", Key: req.StaffName})
		return
	}

	sub, err := h.pushStore.CreateSubscription(ctx, req.StaffName, req.Endpoint, req.P256dh, req.Auth, req.DeviceName)
	if err != nil {
		writeError(w, h.logger, &checklist.StorageUnavailableError{Op: "create push subscription", Err: err})
		return
	}

	writeJSON(w, http.StatusCreated, sub)
}

// Unsubscribe handles DELETE /api/push/subscriptions/{id}. The caller must
// name the owning staff member and the device endpoint.
func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	var req unsubscribeRequest
	if !decode(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	deleted, err := h.pushStore.DeleteOwned(ctx, id, req.StaffName, req.Endpoint)
	if err != nil {
		writeError(w, h.logger, &checklist.StorageUnavailableError{Op: "delete push subscription", Err: err})
		return
	}
	// Someone else's device and a missing one look the same.
	if !deleted {
		writeError(w, h.logger, &checklist.NotFoundError{Kind: "subscription", Key: id})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetVAPIDKey handles GET /api/push/vapid-key
func (h *PushHandler) GetVAPIDKey(w http.ResponseWriter, r *http.Request) {
	if !h.service.Configured() {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "push notifications are not configured"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"public_key": h.service.VAPIDPublicKey()})
}
