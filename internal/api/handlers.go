// v3
// internal/api/handlers.go
// Package api exposes the plain CRUD/controller surface around the ingestion
// core: lot and slot management, operator overrides, the gateway relay and
// admin accounts.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mtmab2408/smart-parking-backend/internal/ingest"
	"github.com/mtmab2408/smart-parking-backend/internal/models"
	"github.com/mtmab2408/smart-parking-backend/internal/storage"
)

// Handler carries the collaborators the HTTP surface needs.
type Handler struct {
	store storage.Store
	coord *ingest.Coordinator
	log   *slog.Logger
}

// NewHandler builds the HTTP handler set.
func NewHandler(store storage.Store, coord *ingest.Coordinator, logger *slog.Logger) *Handler {
	return &Handler{
		store: store,
		coord: coord,
		log:   logger.With(slog.String("component", "api")),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)[name], 10, 64)
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (h *Handler) listSlots(w http.ResponseWriter, r *http.Request) {
	slots, err := h.store.ListSlots(r.Context())
	if err != nil {
		h.log.Error("list slots failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}
	if slots == nil {
		slots = []models.Slot{}
	}
	writeJSON(w, http.StatusOK, slots)
}

func (h *Handler) listLots(w http.ResponseWriter, r *http.Request) {
	lots, err := h.store.ListLots(r.Context())
	if err != nil {
		h.log.Error("list lots failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}
	if lots == nil {
		lots = []models.Lot{}
	}
	writeJSON(w, http.StatusOK, lots)
}

func (h *Handler) createLot(w http.ResponseWriter, r *http.Request) {
	var lot models.Lot
	if err := json.NewDecoder(r.Body).Decode(&lot); err != nil {
		writeError(w, http.StatusBadRequest, "invalid lot body")
		return
	}
	// Aggregates are derived; a fresh lot starts empty no matter what the
	// client sent.
	lot.ID = 0
	lot.TotalSlots = 0
	lot.FreeSlots = 0
	saved, err := h.store.CreateLot(r.Context(), lot)
	if err != nil {
		h.log.Error("create lot failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (h *Handler) addSlotToLot(w http.ResponseWriter, r *http.Request) {
	lotID, err := pathID(r, "lotId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid lot id")
		return
	}
	if _, err := h.store.FindLotByID(r.Context(), lotID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "lot not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}
	var slot models.Slot
	if err := json.NewDecoder(r.Body).Decode(&slot); err != nil {
		writeError(w, http.StatusBadRequest, "invalid slot body")
		return
	}
	slot.ID = 0
	slot.LotID = lotID
	saved, err := h.store.CreateSlot(r.Context(), slot)
	if err != nil {
		h.log.Error("create slot failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}
	if err := h.coord.RefreshLot(r.Context(), lotID); err != nil {
		h.log.Error("lot refresh failed", slog.Int64("lotId", lotID), slog.Any("error", err))
	}
	writeJSON(w, http.StatusOK, saved)
}

func (h *Handler) listLotSlots(w http.ResponseWriter, r *http.Request) {
	lotID, err := pathID(r, "lotId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid lot id")
		return
	}
	slots, err := h.store.FindSlotsByLotID(r.Context(), lotID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}
	if slots == nil {
		slots = []models.Slot{}
	}
	writeJSON(w, http.StatusOK, slots)
}

func (h *Handler) updateSlotStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid slot id")
		return
	}
	occupied, err := strconv.ParseBool(r.URL.Query().Get("occupied"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "occupied query parameter must be a boolean")
		return
	}
	if _, err := h.coord.ApplySlot(r.Context(), id, occupied); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "slot not found")
			return
		}
		h.log.Error("slot status update failed", slog.Int64("slotId", id), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "update failed")
		return
	}
	slot, err := h.store.FindSlotByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}
	writeJSON(w, http.StatusOK, slot)
}

// slotDetails is the partial-update body for slot metadata. Pointer fields
// distinguish "absent" from zero values.
type slotDetails struct {
	SlotNumber *int    `json:"slotNumber"`
	SensorID   *string `json:"sensorId"`
}

func (h *Handler) updateSlotDetails(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid slot id")
		return
	}
	var details slotDetails
	if err := json.NewDecoder(r.Body).Decode(&details); err != nil {
		writeError(w, http.StatusBadRequest, "invalid slot body")
		return
	}
	slot, err := h.store.FindSlotByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "slot not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}
	if details.SlotNumber != nil {
		slot.SlotNumber = *details.SlotNumber
	}
	if details.SensorID != nil {
		slot.SensorID = *details.SensorID
	}
	if err := h.store.SaveSlot(r.Context(), slot); err != nil {
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}
	if err := h.coord.RefreshLot(r.Context(), slot.LotID); err != nil {
		h.log.Error("lot refresh failed", slog.Int64("lotId", slot.LotID), slog.Any("error", err))
	}
	writeJSON(w, http.StatusOK, slot)
}

func (h *Handler) deleteSlot(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid slot id")
		return
	}
	slot, err := h.store.FindSlotByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "slot not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}
	if err := h.store.DeleteSlot(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}
	if err := h.coord.RefreshLot(r.Context(), slot.LotID); err != nil {
		h.log.Error("lot refresh failed", slog.Int64("lotId", slot.LotID), slog.Any("error", err))
	}
	w.WriteHeader(http.StatusOK)
}

// manualUpdateRequest is the operator override body.
type manualUpdateRequest struct {
	Status   string `json:"status"`
	Operator string `json:"operator"`
	Note     string `json:"note"`
}

func (h *Handler) manualOverride(w http.ResponseWriter, r *http.Request) {
	slotID, err := pathID(r, "slotId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid slot id")
		return
	}
	var req manualUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	status, err := models.ParseSlotStatus(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}
	slot, err := h.coord.ManualOverride(r.Context(), slotID, status, req.Operator, req.Note)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "slot not found")
			return
		}
		h.log.Error("manual override failed", slog.Int64("slotId", slotID), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "update failed")
		return
	}
	writeJSON(w, http.StatusOK, slot)
}

func (h *Handler) gatewayEvent(w http.ResponseWriter, r *http.Request) {
	var ev models.GatewayEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid event body")
		return
	}
	if ev.SensorID == "" {
		writeError(w, http.StatusBadRequest, "sensorId is required")
		return
	}
	n, err := h.coord.HandleGatewayEvent(r.Context(), ev)
	if err != nil {
		h.log.Error("gateway event failed", slog.String("sensorId", ev.SensorID), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "update failed")
		return
	}
	if n == 0 {
		writeError(w, http.StatusNotFound, "sensor not mapped")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "event processed", "updated": n})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) adminLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	admins, err := h.store.ListAdmins(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}
	for _, admin := range admins {
		if admin.Username == req.Username && admin.Password == req.Password {
			writeJSON(w, http.StatusOK, map[string]string{"message": "login successful", "status": "success"})
			return
		}
	}
	writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "login unsuccessful", "status": "error"})
}

func (h *Handler) adminRegister(w http.ResponseWriter, r *http.Request) {
	var admin models.Admin
	if err := json.NewDecoder(r.Body).Decode(&admin); err != nil {
		writeError(w, http.StatusBadRequest, "invalid admin body")
		return
	}
	if admin.Username == "" || admin.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}
	admin.ID = 0
	saved, err := h.store.CreateAdmin(r.Context(), admin)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}
	saved.Password = ""
	writeJSON(w, http.StatusOK, saved)
}

func (h *Handler) adminList(w http.ResponseWriter, r *http.Request) {
	admins, err := h.store.ListAdmins(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}
	out := make([]models.Admin, 0, len(admins))
	for _, admin := range admins {
		admin.Password = ""
		out = append(out, admin)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) adminUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid admin id")
		return
	}
	var update models.Admin
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeError(w, http.StatusBadRequest, "invalid admin body")
		return
	}
	admin, err := h.store.FindAdminByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "admin not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}
	if update.Username != "" {
		admin.Username = update.Username
	}
	if update.Password != "" {
		admin.Password = update.Password
	}
	if err := h.store.SaveAdmin(r.Context(), admin); err != nil {
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}
	admin.Password = ""
	writeJSON(w, http.StatusOK, admin)
}

func (h *Handler) adminDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid admin id")
		return
	}
	if err := h.store.DeleteAdmin(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "admin not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "admin deleted"})
}
