package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

func NewRouter(h *Handler) *mux.Router {
	router := mux.NewRouter()
	router.Use(auditRequests)
	router.NotFoundHandler = http.HandlerFunc(notFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	router.HandleFunc("/api/etapa/i", h.EtapaI).Methods("POST")
	router.HandleFunc("/api/etapa/ii", h.EtapaII).Methods("POST")
	router.HandleFunc("/api/etapa/iii", h.EtapaIII).Methods("POST")
	router.HandleFunc("/api/etapa/iv", h.EtapaIV).Methods("POST")
	router.HandleFunc("/api/etapa/{etapa}/snapshot", h.Snapshot).Methods("GET")
	router.HandleFunc("/api/dashboard", h.Dashboard).Methods("GET")
	router.HandleFunc("/api/dashboard/export", h.DashboardExport).Methods("GET")
	router.HandleFunc("/api/eventos", h.Events).Methods("GET")
	router.HandleFunc("/api/health", h.Health).Methods("GET")

	return router
}
