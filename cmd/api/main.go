package main

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/hgarces/verificasat/internal/api"
	"github.com/hgarces/verificasat/internal/config"
	"github.com/hgarces/verificasat/internal/ledger"
	"github.com/hgarces/verificasat/internal/reconcile"
	"github.com/hgarces/verificasat/internal/satclient"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if cfg.Env == "development" {
		log.SetLevel(logrus.DebugLevel)
	}

	store, err := ledger.NewStore(cfg.DBSource)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer store.Close()

	authority := satclient.New(cfg.ScraperURL, cfg.SATTimeout, cfg.SATConnectTimeout, cfg.TempDir, log)
	service := reconcile.NewService(authority, store, store, log)
	handler := api.NewHandler(service, log)

	r := mux.NewRouter()
	r.Use(api.CORSMiddleware)
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", handler.HealthCheckHandler).Methods("GET")

	apiV1 := r.PathPrefix("/api/v1").Subrouter()
	apiV1.HandleFunc("/verificaciones", handler.VerifyHandler).Methods("POST", "OPTIONS")
	apiV1.HandleFunc("/consultas", handler.QueryHandler).Methods("POST", "OPTIONS")

	log.Infof("Server starting on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal(err)
	}
}
