// v2
// internal/api/handlers_test.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mtmab2408/smart-parking-backend/internal/ingest"
	"github.com/mtmab2408/smart-parking-backend/internal/models"
	"github.com/mtmab2408/smart-parking-backend/internal/reconcile"
	"github.com/mtmab2408/smart-parking-backend/internal/storage"
)

type nullHub struct{}

func (nullHub) Broadcast([]models.Slot) {}

func newTestRouter(t *testing.T) (http.Handler, *storage.MemoryStore) {
	t.Helper()
	st := storage.NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rec := reconcile.New(st, logger)
	coord := ingest.NewCoordinator(st, rec, nullHub{}, logger)
	router := NewRouter(NewHandler(st, coord, logger), http.NotFoundHandler())
	return router, st
}

func seedStore(t *testing.T, st *storage.MemoryStore) models.Lot {
	t.Helper()
	ctx := context.Background()
	lot, err := st.CreateLot(ctx, models.Lot{Name: "Main Street Car Park"})
	if err != nil {
		t.Fatalf("create lot: %v", err)
	}
	for _, slot := range []models.Slot{
		{LotID: lot.ID, SlotNumber: 1, SensorID: "sensor-01"},
		{LotID: lot.ID, SlotNumber: 2, SensorID: "sensor-01"},
		{LotID: lot.ID, SlotNumber: 3},
	} {
		if _, err := st.CreateSlot(ctx, slot); err != nil {
			t.Fatalf("create slot: %v", err)
		}
	}
	return lot
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t)
	rr := doJSON(t, router, "GET", "/health", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"ok"`) {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
}

func TestListSlotsEmptyIsArray(t *testing.T) {
	router, _ := newTestRouter(t)
	rr := doJSON(t, router, "GET", "/api/parking/slots", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Fatalf("empty list must encode as [], got %s", rr.Body.String())
	}
}

func TestUpdateSlotStatus(t *testing.T) {
	router, st := newTestRouter(t)
	lot := seedStore(t, st)

	rr := doJSON(t, router, "PUT", "/api/parking/slots/3/status?occupied=true", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200: %s", rr.Code, rr.Body.String())
	}
	slot := decodeBody[models.Slot](t, rr)
	if !slot.Occupied || slot.Status != models.StatusOccupied {
		t.Fatalf("unexpected slot: %+v", slot)
	}

	got, _ := st.FindLotByID(context.Background(), lot.ID)
	if got.FreeSlots != 2 || got.TotalSlots != 3 {
		t.Fatalf("aggregates wrong: %+v", got)
	}
}

func TestUpdateSlotStatusBadQuery(t *testing.T) {
	router, st := newTestRouter(t)
	seedStore(t, st)

	rr := doJSON(t, router, "PUT", "/api/parking/slots/1/status?occupied=maybe", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d want 400", rr.Code)
	}
}

func TestUpdateSlotStatusNotFound(t *testing.T) {
	router, _ := newTestRouter(t)
	rr := doJSON(t, router, "PUT", "/api/parking/slots/99/status?occupied=true", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d want 404", rr.Code)
	}
}

func TestManualOverrideEndpoint(t *testing.T) {
	router, st := newTestRouter(t)
	seedStore(t, st)

	rr := doJSON(t, router, "PUT", "/api/lots/slots/1/manual", manualUpdateRequest{
		Status: "UNKNOWN", Operator: "kara", Note: "sensor offline",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200: %s", rr.Code, rr.Body.String())
	}
	slot := decodeBody[models.Slot](t, rr)
	if slot.Status != models.StatusUnknown {
		t.Fatalf("status=%s want UNKNOWN", slot.Status)
	}

	// Slot 2 shares sensor-01 and must not change.
	sibling, _ := st.FindSlotByID(context.Background(), 2)
	if sibling.Status == models.StatusUnknown {
		t.Fatalf("override leaked to sibling slot")
	}
}

func TestManualOverrideRejectsBadStatus(t *testing.T) {
	router, st := newTestRouter(t)
	seedStore(t, st)

	rr := doJSON(t, router, "PUT", "/api/lots/slots/1/manual", manualUpdateRequest{Status: "taken"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d want 400", rr.Code)
	}
}

func TestManualOverrideSlotNotFound(t *testing.T) {
	router, _ := newTestRouter(t)
	rr := doJSON(t, router, "PUT", "/api/lots/slots/42/manual", manualUpdateRequest{Status: "FREE"})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d want 404", rr.Code)
	}
}

func TestGatewayEventEndpoint(t *testing.T) {
	router, st := newTestRouter(t)
	seedStore(t, st)

	rr := doJSON(t, router, "POST", "/api/gateway/events", models.GatewayEvent{
		GatewayID: "gw-1", SensorID: "sensor-01", Status: "occupied",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200: %s", rr.Code, rr.Body.String())
	}
	for _, id := range []int64{1, 2} {
		slot, _ := st.FindSlotByID(context.Background(), id)
		if !slot.Occupied {
			t.Fatalf("slot %d should be occupied", id)
		}
	}
}

func TestGatewayEventUnmappedSensor(t *testing.T) {
	router, st := newTestRouter(t)
	seedStore(t, st)

	rr := doJSON(t, router, "POST", "/api/gateway/events", models.GatewayEvent{SensorID: "ghost", Status: "free"})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d want 404", rr.Code)
	}
}

func TestGatewayEventRequiresSensorID(t *testing.T) {
	router, _ := newTestRouter(t)
	rr := doJSON(t, router, "POST", "/api/gateway/events", models.GatewayEvent{Status: "free"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d want 400", rr.Code)
	}
}

func TestCreateLotResetsAggregates(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := doJSON(t, router, "POST", "/api/lots", models.Lot{Name: "North Deck", TotalSlots: 99, FreeSlots: 50})
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	lot := decodeBody[models.Lot](t, rr)
	if lot.ID == 0 || lot.TotalSlots != 0 || lot.FreeSlots != 0 {
		t.Fatalf("aggregates must start at zero: %+v", lot)
	}
}

func TestAddSlotRefreshesLotAggregates(t *testing.T) {
	router, st := newTestRouter(t)
	lot := seedStore(t, st)

	rr := doJSON(t, router, "POST", "/api/lots/1/slots", models.Slot{SlotNumber: 4})
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200: %s", rr.Code, rr.Body.String())
	}
	got, _ := st.FindLotByID(context.Background(), lot.ID)
	if got.TotalSlots != 4 || got.FreeSlots != 4 {
		t.Fatalf("aggregates wrong after add: %+v", got)
	}
}

func TestAddSlotToMissingLot(t *testing.T) {
	router, _ := newTestRouter(t)
	rr := doJSON(t, router, "POST", "/api/lots/9/slots", models.Slot{SlotNumber: 1})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d want 404", rr.Code)
	}
}

func TestDeleteSlotRefreshesLotAggregates(t *testing.T) {
	router, st := newTestRouter(t)
	lot := seedStore(t, st)

	rr := doJSON(t, router, "DELETE", "/api/parking/slots/3", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	got, _ := st.FindLotByID(context.Background(), lot.ID)
	if got.TotalSlots != 2 || got.FreeSlots != 2 {
		t.Fatalf("aggregates wrong after delete: %+v", got)
	}
}

func TestUpdateSlotDetailsPartial(t *testing.T) {
	router, st := newTestRouter(t)
	seedStore(t, st)

	rr := doJSON(t, router, "PUT", "/api/parking/slots/3", map[string]any{"sensorId": "sensor-09"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200: %s", rr.Code, rr.Body.String())
	}
	slot, _ := st.FindSlotByID(context.Background(), 3)
	if slot.SensorID != "sensor-09" {
		t.Fatalf("sensorId=%q want sensor-09", slot.SensorID)
	}
	if slot.SlotNumber != 3 {
		t.Fatalf("absent fields must stay untouched: %+v", slot)
	}
}

func TestAdminRegisterLoginFlow(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := doJSON(t, router, "POST", "/api/admin/register", models.Admin{Username: "kara", Password: "hunter2"})
	if rr.Code != http.StatusOK {
		t.Fatalf("register status=%d want 200", rr.Code)
	}
	created := decodeBody[models.Admin](t, rr)
	if created.Password != "" {
		t.Fatalf("password must not be echoed back")
	}

	rr = doJSON(t, router, "POST", "/api/admin/login", loginRequest{Username: "kara", Password: "hunter2"})
	if rr.Code != http.StatusOK {
		t.Fatalf("login status=%d want 200", rr.Code)
	}
	rr = doJSON(t, router, "POST", "/api/admin/login", loginRequest{Username: "kara", Password: "wrong"})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("bad login status=%d want 401", rr.Code)
	}
}

func TestAdminListStripsPasswords(t *testing.T) {
	router, st := newTestRouter(t)
	if _, err := st.CreateAdmin(context.Background(), models.Admin{Username: "kara", Password: "hunter2"}); err != nil {
		t.Fatalf("create admin: %v", err)
	}

	rr := doJSON(t, router, "GET", "/api/admin/all", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	admins := decodeBody[[]models.Admin](t, rr)
	if len(admins) != 1 || admins[0].Password != "" {
		t.Fatalf("unexpected admins: %+v", admins)
	}
}

func TestAdminDeleteNotFound(t *testing.T) {
	router, _ := newTestRouter(t)
	rr := doJSON(t, router, "DELETE", "/api/admin/5", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d want 404", rr.Code)
	}
}
