package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RouterConfig holds what NewRouter wires. Verify and Live are optional.
type RouterConfig struct {
	Donations   *DonationHandler
	Auth        *AuthHandler
	Live        http.Handler
	CORSOrigins []string
	Verify      bool
}

// NewRouter registers every route and wraps the router in the request
// id, logging and CORS middleware.
func NewRouter(cfg RouterConfig) http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET", "HEAD")

	router.HandleFunc("/donate/paystack", cfg.Donations.CreateIntent).Methods("POST")
	router.HandleFunc("/donations/webhook", cfg.Donations.Webhook).Methods("POST")
	router.HandleFunc("/donations/total", cfg.Donations.Total).Methods("GET")
	router.HandleFunc("/admin/login", cfg.Auth.Login).Methods("POST")
	if cfg.Live != nil {
		router.Handle("/ws/donations", cfg.Live).Methods("GET")
	}

	admin := router.NewRoute().Subrouter()
	admin.Use(cfg.Auth.RequireAdmin)
	admin.HandleFunc("/dashboard", cfg.Donations.Dashboard).Methods("GET")
	if cfg.Verify {
		admin.HandleFunc("/donations/{reference}/verify", cfg.Donations.Verify).Methods("POST")
	}

	return RequestID(Logging(CORS(cfg.CORSOrigins)(router)))
}
