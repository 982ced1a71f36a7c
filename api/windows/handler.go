package windows

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kilianp07/cew/core/engine"
	"github.com/kilianp07/cew/core/logger"
	"github.com/kilianp07/cew/core/model"
	"github.com/kilianp07/cew/pkg/export"
)

// Snapshot is the latest evaluated result of a day.
type Snapshot struct {
	RunID       string                `json:"run_id"`
	Day         model.Day             `json:"day"`
	EvaluatedAt time.Time             `json:"evaluated_at"`
	Result      engine.Result         `json:"result"`
	Prices      []model.PriceInterval `json:"prices,omitempty"`
}

// ResultSource provides the latest snapshot per day.
type ResultSource interface {
	Latest(day model.Day) (Snapshot, bool)
}

// NewRouter returns the HTTP API:
//
//	GET /healthz
//	GET /metrics
//	GET /api/windows
//	GET /api/windows/{day}
//	GET /api/windows/{day}/csv
//	GET /api/windows/{day}/chart
func NewRouter(src ResultSource, log logger.Logger) http.Handler {
	log = logger.OrNop(log)
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(requestLogger(log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/windows", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			out := map[model.Day]Snapshot{}
			for _, d := range []model.Day{model.DayToday, model.DayTomorrow} {
				if s, ok := src.Latest(d); ok {
					out[d] = s
				}
			}
			respondJSON(w, http.StatusOK, out)
		})
		r.Get("/{day}", func(w http.ResponseWriter, r *http.Request) {
			snap, ok := lookup(w, r, src)
			if !ok {
				return
			}
			respondJSON(w, http.StatusOK, snap)
		})
		r.Get("/{day}/csv", func(w http.ResponseWriter, r *http.Request) {
			snap, ok := lookup(w, r, src)
			if !ok {
				return
			}
			w.Header().Set("Content-Type", "text/csv")
			w.Header().Set("Content-Disposition", "attachment; filename=\"windows-"+string(snap.Day)+".csv\"")
			if err := export.WriteCSV(w, snap.Result.Selection); err != nil {
				log.Errorf("write csv: %v", err)
			}
		})
		r.Get("/{day}/chart", func(w http.ResponseWriter, r *http.Request) {
			snap, ok := lookup(w, r, src)
			if !ok {
				return
			}
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			if err := export.WriteChart(w, "Windows "+string(snap.Day), snap.Prices, snap.Result.Selection); err != nil {
				log.Errorf("write chart: %v", err)
			}
		})
	})
	return r
}

func lookup(w http.ResponseWriter, r *http.Request, src ResultSource) (Snapshot, bool) {
	day := model.Day(chi.URLParam(r, "day"))
	if day != model.DayToday && day != model.DayTomorrow {
		respondError(w, http.StatusBadRequest, "day must be today or tomorrow")
		return Snapshot{}, false
	}
	snap, ok := src.Latest(day)
	if !ok {
		respondError(w, http.StatusNotFound, "no calculation for "+string(day))
		return Snapshot{}, false
	}
	return snap, true
}

func requestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debugw("http request", map[string]any{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"duration":   time.Since(start).String(),
				"request_id": middleware.GetReqID(r.Context()),
			})
		})
	}
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
