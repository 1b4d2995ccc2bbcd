// v2
// internal/api/router.go
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds the HTTP surface: health and metrics, the parking and lot
// CRUD endpoints, the operator override, the gateway relay and the live
// WebSocket view.
func NewRouter(h *Handler, wsHandler http.Handler) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", h.health).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	r.HandleFunc("/api/parking/slots", h.listSlots).Methods("GET")
	r.HandleFunc("/api/parking/lots", h.listLots).Methods("GET")
	r.HandleFunc("/api/parking/slots/{id:[0-9]+}/status", h.updateSlotStatus).Methods("PUT")
	r.HandleFunc("/api/parking/slots/{id:[0-9]+}", h.updateSlotDetails).Methods("PUT")
	r.HandleFunc("/api/parking/slots/{id:[0-9]+}", h.deleteSlot).Methods("DELETE")

	r.HandleFunc("/api/lots", h.createLot).Methods("POST")
	r.HandleFunc("/api/lots", h.listLots).Methods("GET")
	r.HandleFunc("/api/lots/{lotId:[0-9]+}/slots", h.addSlotToLot).Methods("POST")
	r.HandleFunc("/api/lots/{lotId:[0-9]+}/slots", h.listLotSlots).Methods("GET")
	r.HandleFunc("/api/lots/slots/{slotId:[0-9]+}/manual", h.manualOverride).Methods("PUT")

	r.HandleFunc("/api/gateway/events", h.gatewayEvent).Methods("POST")

	r.HandleFunc("/api/admin/login", h.adminLogin).Methods("POST")
	r.HandleFunc("/api/admin/register", h.adminRegister).Methods("POST")
	r.HandleFunc("/api/admin/all", h.adminList).Methods("GET")
	r.HandleFunc("/api/admin/{id:[0-9]+}", h.adminUpdate).Methods("PUT")
	r.HandleFunc("/api/admin/{id:[0-9]+}", h.adminDelete).Methods("DELETE")

	r.Handle("/ws/slots", wsHandler).Methods("GET")

	return r
}
