package controller

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pi-garden/irrigationd/internal/model"
	"github.com/pi-garden/irrigationd/internal/services/actuator"
)

// NewHTTPMux exposes the engine's operations to the web front end.
func NewHTTPMux(o *Orchestrator) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "ok",
			"mode":   o.driver.Mode(),
		})
	})

	mux.Handle("GET /metrics", promhttp.Handler())

	// POST /hydration/score
	mux.HandleFunc("POST /hydration/score", func(w http.ResponseWriter, r *http.Request) {
		var in model.SensorFusionInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "bad-input", err)
			return
		}
		writeJSON(w, http.StatusOK, o.ScoreHydration(r.Context(), in))
	})

	// GET /schedule
	mux.HandleFunc("GET /schedule", func(w http.ResponseWriter, _ *http.Request) {
		st, err := o.Schedule()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "schedule-load", err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	})

	// POST /zones/{id} — merge minutes/enabled into the zone config.
	mux.HandleFunc("POST /zones/{id}", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Minutes *int  `json:"minutes"`
			Enabled *bool `json:"enabled"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "bad-input", err)
			return
		}
		cfg, err := o.UpdateZone(r.PathValue("id"), body.Minutes, body.Enabled)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "zone-update", err)
			return
		}
		writeJSON(w, http.StatusOK, cfg)
	})

	// DELETE /zones/{id}
	mux.HandleFunc("DELETE /zones/{id}", func(w http.ResponseWriter, r *http.Request) {
		if err := o.RemoveZone(r.PathValue("id")); err != nil {
			writeError(w, http.StatusInternalServerError, "zone-remove", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	// POST /zones/{id}/run — plan and, if warranted, actuate. Blocks
	// until the cycle ends; the body may carry explicit signals.
	mux.HandleFunc("POST /zones/{id}/run", func(w http.ResponseWriter, r *http.Request) {
		var in model.SensorFusionInput
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
				writeError(w, http.StatusBadRequest, "bad-input", err)
				return
			}
		}
		res, err := o.PlanAndRun(r.Context(), r.PathValue("id"), in)
		switch {
		case errors.Is(err, actuator.ErrZoneBusy):
			writeError(w, http.StatusConflict, "zone-busy", err)
		case errors.Is(err, actuator.ErrRunAborted):
			// The aborted record still gets reported for audit continuity.
			writeJSON(w, http.StatusOK, res)
		case err != nil:
			writeError(w, http.StatusInternalServerError, "plan-and-run", err)
		default:
			writeJSON(w, http.StatusOK, res)
		}
	})

	// POST /zones/{id}/abort — cancel an in-flight cycle.
	mux.HandleFunc("POST /zones/{id}/abort", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if !o.AbortRun(id) {
			writeError(w, http.StatusNotFound, "no-active-run", errors.New("zone "+id+" has no active cycle"))
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"zone_id": id, "status": "aborting"})
	})

	return mux
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, kind string, err error) {
	writeJSON(w, code, map[string]string{"error": kind, "detail": err.Error()})
}
