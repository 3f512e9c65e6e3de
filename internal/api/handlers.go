package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"github.com/hgarces/verificasat/internal/domain"
	"github.com/hgarces/verificasat/internal/reconcile"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "verificasat_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	// SAT round trips dominate latency, so the buckets run into minutes.
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "verificasat_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
	}, []string{"method", "endpoint"})
)

type Handler struct {
	service *reconcile.Service
	log     *logrus.Logger
}

func NewHandler(svc *reconcile.Service, log *logrus.Logger) *Handler {
	return &Handler{service: svc, log: log}
}

// failureResponse is the legacy error body shared by both endpoints.
type failureResponse struct {
	Exito   bool     `json:"exito"`
	Mensaje string   `json:"mensaje"`
	Errores []string `json:"errores"`
	Tipo    string   `json:"tipo,omitempty"`
}

func (h *Handler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) VerifyHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/v1/verificaciones"
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", endpoint))
	defer timer.ObserveDuration()

	var req domain.VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondFailure(w, http.StatusBadRequest, endpoint, &reconcile.Error{
			Mensaje: "Cuerpo de la solicitud inválido",
			Errores: []string{err.Error()},
		})
		return
	}
	if !req.Tipo.IsValid() {
		h.respondFailure(w, http.StatusUnprocessableEntity, endpoint, &reconcile.Error{
			Mensaje: "Tipo de consulta inválido",
			Errores: []string{"El tipo debe ser 'emitidos' o 'recibidos'."},
		})
		return
	}

	resp, svcErr := h.service.Verify(r.Context(), req)
	if svcErr != nil {
		h.respondFailure(w, statusForKind(svcErr.Kind), endpoint, svcErr)
		return
	}

	httpRequestsTotal.WithLabelValues("POST", endpoint, "200").Inc()
	respondWithJSON(w, http.StatusOK, resp)
}

func (h *Handler) QueryHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/v1/consultas"
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", endpoint))
	defer timer.ObserveDuration()

	var req domain.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondFailure(w, http.StatusBadRequest, endpoint, &reconcile.Error{
			Mensaje: "Cuerpo de la solicitud inválido",
			Errores: []string{err.Error()},
		})
		return
	}
	if !req.Tipo.IsValid() {
		h.respondFailure(w, http.StatusUnprocessableEntity, endpoint, &reconcile.Error{
			Mensaje: "Tipo de consulta inválido",
			Errores: []string{"El tipo debe ser 'emitidos' o 'recibidos'."},
		})
		return
	}

	resp, svcErr := h.service.Query(r.Context(), req)
	if svcErr != nil {
		h.respondFailure(w, statusForKind(svcErr.Kind), endpoint, svcErr)
		return
	}

	httpRequestsTotal.WithLabelValues("POST", endpoint, "200").Inc()
	respondWithJSON(w, http.StatusOK, resp)
}

func (h *Handler) respondFailure(w http.ResponseWriter, code int, endpoint string, e *reconcile.Error) {
	httpRequestsTotal.WithLabelValues("POST", endpoint, strconv.Itoa(code)).Inc()

	errores := e.Errores
	if errores == nil {
		errores = []string{}
	}
	respondWithJSON(w, code, failureResponse{
		Exito:   false,
		Mensaje: e.Mensaje,
		Errores: errores,
		Tipo:    e.Tipo,
	})
}

func statusForKind(kind reconcile.Kind) int {
	switch kind {
	case reconcile.KindConfigMissing,
		reconcile.KindCredentialFileMissing,
		reconcile.KindCredentialInvalid,
		reconcile.KindInvalidDateRange:
		return http.StatusUnprocessableEntity
	case reconcile.KindUpstreamBusiness:
		return http.StatusBadRequest
	case reconcile.KindUpstreamConnection:
		return http.StatusBadGateway
	case reconcile.KindEmptyResult:
		// Zero vouchers is a successful outcome; the body still reports
		// exito=false with tipo=sin_resultados for the legacy consumers.
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// CORSMiddleware mirrors the permissive headers the legacy frontend relied
// on.
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "*")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
