package api

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/talentdesk/backoffice/internal/config"
	"github.com/talentdesk/backoffice/internal/registry"
	"github.com/talentdesk/backoffice/internal/summary"
	"github.com/talentdesk/backoffice/pkg/repository"
)

func SetupRoutes(
	cfg *config.Config,
	version, buildTime string,
	staffRepo repository.StaffRepo,
	svc *registry.Service,
	summarizer summary.Summarizer,
	queue Enqueuer,
	gatherer prometheus.Gatherer,
) (*mux.Router, error) {
	r := mux.NewRouter()

	r.Use(LoggingMiddleware)
	r.Use(CORSMiddleware)
	r.Use(RecoveryMiddleware)

	systemHandler := &SystemHandler{}
	authHandler := NewAuthHandler(staffRepo, cfg.JWTSecret, cfg.TokenDuration)
	registrationsHandler := NewRegistrationsHandler(svc, queue)
	clientsHandler, err := NewClientsHandler(svc, summarizer)
	if err != nil {
		return nil, err
	}

	// Open endpoints
	r.HandleFunc("/version", systemHandler.VersionHandler(version, buildTime)).Methods("GET")
	r.HandleFunc("/health", systemHandler.HealthHandler).Methods("GET")
	r.HandleFunc("/v1/auth/signup", authHandler.Signup).Methods("POST")
	r.HandleFunc("/v1/auth/signin", authHandler.Signin).Methods("POST")
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}

	// Protected routes
	apiV1 := r.PathPrefix("/v1").Subrouter()
	apiV1.Use(JWTAuthMiddlewareWithSecret(cfg.JWTSecret))

	authV1 := apiV1.PathPrefix("/auth").Subrouter()
	authV1.HandleFunc("/signout", authHandler.Signout).Methods("POST")

	// Registrations
	apiV1.HandleFunc("/registrations", registrationsHandler.List).Methods("GET")
	apiV1.HandleFunc("/registrations/counts", registrationsHandler.Counts).Methods("GET")

	reg := apiV1.PathPrefix("/clients/{clientID}/registrations/{registrationID}").Subrouter()
	reg.HandleFunc("", registrationsHandler.Get).Methods("GET")
	reg.HandleFunc("", registrationsHandler.Delete).Methods("DELETE")
	reg.HandleFunc("/accept", registrationsHandler.Accept).Methods("POST")
	reg.HandleFunc("/unaccept", registrationsHandler.Unaccept).Methods("POST")
	reg.HandleFunc("/decline", registrationsHandler.Decline).Methods("POST")
	reg.HandleFunc("/restore", registrationsHandler.Restore).Methods("POST")
	reg.HandleFunc("/toggle", registrationsHandler.Toggle).Methods("POST")
	reg.HandleFunc("/manager", registrationsHandler.AssignManager).Methods("PUT")
	reg.HandleFunc("/employee", registrationsHandler.AssignEmployee).Methods("PUT")

	// Dashboards
	apiV1.HandleFunc("/managers/{managerID}/dashboard", registrationsHandler.ManagerDashboard).Methods("GET")
	apiV1.HandleFunc("/employees/{employeeID}/dashboard", registrationsHandler.EmployeeDashboard).Methods("GET")

	// Clients
	apiV1.HandleFunc("/clients", clientsHandler.List).Methods("GET")
	apiV1.HandleFunc("/clients/{clientID}", clientsHandler.Get).Methods("GET")
	apiV1.HandleFunc("/clients/{clientID}/profile", clientsHandler.UpdateProfile).Methods("PUT")
	apiV1.HandleFunc("/clients/{clientID}/summary", clientsHandler.Summarize).Methods("POST")

	return r, nil
}
