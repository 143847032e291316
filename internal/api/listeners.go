package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/cotbridge/internal/control"
	"github.com/nerrad567/cotbridge/internal/listener"
)

// addListenerRequest is the body of POST /listeners.
type addListenerRequest struct {
	Port        int    `json:"port"`
	Protocol    string `json:"protocol"`
	BindAddress string `json:"bind_address,omitempty"`
	PacketSize  int    `json:"packet_size,omitempty"`
	Debug       bool   `json:"debug,omitempty"`
	Start       bool   `json:"start,omitempty"`
}

// handleListListeners returns every registered listener ordered by port.
func (s *Server) handleListListeners(w http.ResponseWriter, _ *http.Request) {
	listeners := s.registry.Snapshot()
	respond(w, http.StatusOK, map[string]any{
		"listeners": listeners,
		"count":     len(listeners),
	})
}

// handleAddListener registers a listener and optionally starts it.
func (s *Server) handleAddListener(w http.ResponseWriter, r *http.Request) {
	var req addListenerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	cmd := control.Command{
		Action:      control.ActionAdd,
		Port:        req.Port,
		Protocol:    req.Protocol,
		BindAddress: req.BindAddress,
		PacketSize:  req.PacketSize,
		Debug:       req.Debug,
	}
	if err := cmd.Validate(); err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}

	if s.registry.State(cmd.Port) != listener.StateNotFound {
		fail(w, http.StatusConflict, "a listener is already registered on port "+strconv.Itoa(cmd.Port))
		return
	}

	cmd.Apply(s.registry)
	if req.Start {
		cmd.Action = control.ActionStart
		cmd.Apply(s.registry)
	}

	info, ok := s.registry.Info(cmd.Port)
	if !ok {
		// The registry discards listeners whose socket cannot be bound.
		fail(w, http.StatusConflict, "listener on port "+strconv.Itoa(cmd.Port)+" could not be started")
		return
	}
	respond(w, http.StatusCreated, info)
}

// handleGetListener returns the status of a single listener.
func (s *Server) handleGetListener(w http.ResponseWriter, r *http.Request) {
	port, ok := portParam(w, r)
	if !ok {
		return
	}

	info, found := s.registry.Info(port)
	if !found {
		fail(w, http.StatusNotFound, "no listener on port "+strconv.Itoa(port))
		return
	}
	respond(w, http.StatusOK, info)
}

// handleStartListener starts a NEW listener.
func (s *Server) handleStartListener(w http.ResponseWriter, r *http.Request) {
	s.applyPortCommand(w, r, control.ActionStart)
}

// handleStopListener stops and removes a listener.
func (s *Server) handleStopListener(w http.ResponseWriter, r *http.Request) {
	s.applyPortCommand(w, r, control.ActionStop)
}

// applyPortCommand runs start or stop against an already registered port.
func (s *Server) applyPortCommand(w http.ResponseWriter, r *http.Request, action string) {
	port, ok := portParam(w, r)
	if !ok {
		return
	}
	if s.registry.State(port) == listener.StateNotFound {
		fail(w, http.StatusNotFound, "no listener on port "+strconv.Itoa(port))
		return
	}

	cmd := control.Command{Action: action, Port: port}
	if err := cmd.Validate(); err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}

	res := cmd.Apply(s.registry)
	if action == control.ActionStart && res.State != listener.StateRunning {
		fail(w, http.StatusConflict, "listener on port "+strconv.Itoa(port)+" did not start")
		return
	}
	respond(w, http.StatusOK, res)
}

var errInvalidPort = errors.New("port must be an integer between 1 and 65535")

// portParam parses the {port} URL parameter, writing a 400 on failure.
func portParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	port, err := strconv.Atoi(chi.URLParam(r, "port"))
	if err != nil || port < 1 || port > 65535 {
		fail(w, http.StatusBadRequest, errInvalidPort.Error())
		return 0, false
	}
	return port, true
}
