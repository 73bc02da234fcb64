package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/san-kum/convsim/internal/circuit"
	"github.com/san-kum/convsim/internal/config"
	"github.com/san-kum/convsim/internal/dynamo"
	"github.com/san-kum/convsim/internal/export"
	"github.com/san-kum/convsim/internal/topology"
)

var fileName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)

type simulateRequest struct {
	Circuit   *circuit.Circuit `json:"circuit"`
	CircuitID string           `json:"circuit_id"`
	EndTime   *float64         `json:"end_time"`
	StepSize  *float64         `json:"step_size"`
}

type presetInfo struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	EndTime     float64 `json:"end_time"`
	StepSize    float64 `json:"step_size"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		} else {
			writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		}
		return false
	}
	return true
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) components(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, circuit.Library())
}

func (s *Server) presets(w http.ResponseWriter, _ *http.Request) {
	out := make([]presetInfo, 0, len(config.Presets))
	for _, name := range config.ListPresets() {
		p := config.GetPreset(name)
		out = append(out, presetInfo{Name: name, Description: p.Description, EndTime: p.EndTime, StepSize: p.StepSize})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listSessions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"circuits": s.sessions.ids()})
}

func (s *Server) putCircuit(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var c circuit.Circuit
	if !s.decode(w, r, &c) {
		return
	}
	if err := c.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.sessions.put(id, &c)
	s.log.Debug("circuit_stored", slog.String("session", id), slog.Int("components", len(c.Components)))
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "success",
		"id":         id,
		"components": len(c.Components),
		"topology":   topology.Classify(&c).String(),
	})
}

func (s *Server) getCircuit(w http.ResponseWriter, r *http.Request) {
	c, ok := s.sessions.get(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "no such circuit")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) deleteCircuit(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.delete(mux.Vars(r)["id"]) {
		writeError(w, http.StatusNotFound, "no such circuit")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) simulate(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if !s.decode(w, r, &req) {
		return
	}

	c := req.Circuit
	if c == nil {
		if req.CircuitID == "" {
			writeError(w, http.StatusBadRequest, "no circuit to simulate")
			return
		}
		stored, ok := s.sessions.get(req.CircuitID)
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Sprintf("no circuit stored as %q", req.CircuitID))
			return
		}
		c = stored
	}

	p := s.opts.Defaults
	if req.EndTime != nil {
		p.EndTime = *req.EndTime
	}
	if req.StepSize != nil {
		p.StepSize = *req.StepSize
	}
	if s.opts.MaxEndTime > 0 && p.EndTime > s.opts.MaxEndTime {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("end_time %g exceeds the limit of %g", p.EndTime, s.opts.MaxEndTime))
		return
	}

	kind := topology.Classify(c).String()
	start := time.Now()
	res, err := s.opts.Engine.Simulate(r.Context(), c, p)
	if err != nil {
		status := statusFor(err)
		outcome := outcomeFailed
		if status == http.StatusBadRequest {
			outcome = outcomeInvalid
		}
		s.opts.Metrics.ObserveSimulation(kind, outcome, time.Since(start))
		writeError(w, status, err.Error())
		return
	}
	s.opts.Metrics.ObserveSimulation(kind, outcomeOK, time.Since(start))

	// A slow broker must not hold up the response.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.opts.Sink.Publish(ctx, res); err != nil {
			s.log.Warn("publish_failed", slog.String("circuit", res.CircuitID), slog.Any("err", err))
		}
	}()

	doc, err := export.NewDocument(res, r.URL.Query().Get("plots") == "1")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, dynamo.ErrConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, dynamo.ErrCanceled):
		return http.StatusServiceUnavailable
	case errors.Is(err, dynamo.ErrInvalidState),
		errors.Is(err, dynamo.ErrStepTooSmall),
		errors.Is(err, dynamo.ErrMaxSteps):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// circuitPath maps a user supplied name to a .json file in the data dir.
func (s *Server) circuitPath(name string) (string, error) {
	if s.opts.DataDir == "" {
		return "", errors.New("circuit storage is disabled")
	}
	name = strings.TrimSuffix(name, ".json")
	if !fileName.MatchString(name) {
		return "", fmt.Errorf("invalid circuit name %q", name)
	}
	return filepath.Join(s.opts.DataDir, name+".json"), nil
}

// saveFile stores the request body, or the session circuit named by the
// "from" query parameter.
func (s *Server) saveFile(w http.ResponseWriter, r *http.Request) {
	path, err := s.circuitPath(mux.Vars(r)["name"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var c *circuit.Circuit
	if from := r.URL.Query().Get("from"); from != "" {
		stored, ok := s.sessions.get(from)
		if !ok {
			writeError(w, http.StatusNotFound, "no circuit to save")
			return
		}
		c = stored
	} else {
		c = &circuit.Circuit{}
		if !s.decode(w, r, c) {
			return
		}
	}

	if err := os.MkdirAll(s.opts.DataDir, 0755); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := circuit.Save(path, c); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Saved as " + filepath.Base(path),
	})
}

func (s *Server) loadFile(w http.ResponseWriter, r *http.Request) {
	path, err := s.circuitPath(mux.Vars(r)["name"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := circuit.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		writeError(w, http.StatusNotFound, "no such circuit file")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if session := r.URL.Query().Get("session"); session != "" {
		s.sessions.put(session, c)
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "circuit": c})
}

func (s *Server) listFiles(w http.ResponseWriter, _ *http.Request) {
	names := []string{}
	if s.opts.DataDir != "" {
		entries, err := os.ReadDir(s.opts.DataDir)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		for _, e := range entries {
			if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
				names = append(names, strings.TrimSuffix(e.Name(), ".json"))
			}
		}
	}
	sort.Strings(names)
	writeJSON(w, http.StatusOK, map[string][]string{"circuits": names})
}
