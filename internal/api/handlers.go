package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/larsks/usblrb/internal/switchcollection"
)

type switchRequest struct {
	State string `json:"state"`
}

type statusRequest struct {
	Status *uint16 `json:"status"`
}

type jsonResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type statusResponse struct {
	Status   string `json:"status"`
	Relays   uint8  `json:"relays"`
	Count    uint   `json:"count"`
	Switches []bool `json:"switches"`
}

type switchStateResponse struct {
	Status string `json:"status"`
	Switch string `json:"switch"`
	State  bool   `json:"state"`
}

func sendJSON(w http.ResponseWriter, httpCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpCode)
	json.NewEncoder(w).Encode(body) //nolint:errcheck
}

func sendError(w http.ResponseWriter, message string, httpCode int) {
	sendJSON(w, httpCode, jsonResponse{Status: "error", Message: message})
}

// statusHandler reports the state of every switch plus the packed status
// byte (bit i = switch i).
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	states, err := s.switches.GetDetailedState()
	if err != nil {
		log.Printf("failed to get switch state: %v", err)
		sendError(w, "Failed to get switch state", http.StatusInternalServerError)
		return
	}

	var relays uint8
	for i, state := range states {
		if i >= 8 {
			break
		}
		if state {
			relays |= 1 << i
		}
	}

	sendJSON(w, http.StatusOK, statusResponse{
		Status:   "ok",
		Relays:   relays,
		Count:    s.switches.CountSwitches(),
		Switches: states,
	})
}

// setStatusHandler drives all switches from a packed status byte.
func (s *Server) setStatusHandler(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == nil {
		sendError(w, "Failed to decode request body", http.StatusBadRequest)
		return
	}

	if *req.Status > 255 {
		sendError(w, "Status must be 0-255", http.StatusBadRequest)
		return
	}
	status := uint8(*req.Status)

	for i, sw := range s.switches.ListSwitches() {
		if i >= 8 {
			break
		}

		var err error
		if status&(1<<i) != 0 {
			err = sw.TurnOn()
		} else {
			err = sw.TurnOff()
		}
		if err != nil {
			log.Printf("failed to set switch %d: %v", i, err)
			sendError(w, "Failed to set switch state", http.StatusInternalServerError)
			return
		}
	}

	sendJSON(w, http.StatusOK, jsonResponse{Status: "ok"})
}

func (s *Server) switchStateHandler(w http.ResponseWriter, r *http.Request) {
	sw, ok := s.switchFromRequest(w, r)
	if !ok {
		return
	}

	state, err := sw.GetState()
	if err != nil {
		log.Printf("failed to get state of %s: %v", sw, err)
		sendError(w, "Failed to get switch state", http.StatusInternalServerError)
		return
	}

	sendJSON(w, http.StatusOK, switchStateResponse{
		Status: "ok",
		Switch: sw.String(),
		State:  state,
	})
}

func (s *Server) switchHandler(w http.ResponseWriter, r *http.Request) {
	var req switchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, "Failed to decode request body", http.StatusBadRequest)
		return
	}

	sw, ok := s.switchFromRequest(w, r)
	if !ok {
		return
	}

	var err error
	switch req.State {
	case "on":
		err = sw.TurnOn()
	case "off":
		err = sw.TurnOff()
	default:
		sendError(w, "State must be \"on\" or \"off\"", http.StatusBadRequest)
		return
	}

	if err != nil {
		log.Printf("failed to turn %s %s: %v", req.State, sw, err)
		sendError(w, "Failed to set switch state", http.StatusInternalServerError)
		return
	}

	sendJSON(w, http.StatusOK, jsonResponse{Status: "ok"})
}

// SelfTester is implemented by collections that can probe their hardware
// without disturbing it.
type SelfTester interface {
	SelfTest() error
}

func (s *Server) selfTestHandler(w http.ResponseWriter, r *http.Request) {
	st, ok := s.switches.(SelfTester)
	if !ok {
		sendError(w, "Driver does not support self test", http.StatusNotImplemented)
		return
	}

	if err := st.SelfTest(); err != nil {
		log.Printf("self test failed: %v", err)
		sendError(w, "Self test failed", http.StatusServiceUnavailable)
		return
	}

	sendJSON(w, http.StatusOK, jsonResponse{Status: "ok"})
}

// switchFromRequest resolves the {id} URL parameter; "all" addresses the
// whole collection.
func (s *Server) switchFromRequest(w http.ResponseWriter, r *http.Request) (switchcollection.Switch, bool) {
	idStr := chi.URLParam(r, "id")
	if idStr == "all" {
		return s.switches, true
	}

	id, err := strconv.Atoi(idStr)
	if err != nil || id < 0 {
		sendError(w, "Invalid switch id", http.StatusBadRequest)
		return nil, false
	}

	got, err := s.switches.GetSwitch(uint(id))
	if err != nil {
		sendError(w, "No such switch", http.StatusNotFound)
		return nil, false
	}

	return got, true
}
