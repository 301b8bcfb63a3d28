// Package remote exposes a player over HTTP and a websocket so other devices
// can watch its state and send commands.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait    = 5 * time.Second
	maxBodyBytes = 4 << 10
)

type Server struct {
	player   Player
	log      *logrus.Entry
	validate *commandValidator
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*client
}

func New(p Player, log *logrus.Entry) *Server {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Server{
		player:   p,
		log:      log.WithField("component", "remote"),
		validate: newCommandValidator(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients: make(map[string]*client),
	}
}

func (s *Server) Mux() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/state", s.getState)
	r.Post("/commands", s.postCommand)
	r.Get("/commands", s.listCommands)
	r.Get("/commands/schema", s.commandSchema)
	r.HandleFunc("/ws", s.serveWS)

	return r
}

// ListenAndServe serves Mux on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("remote control listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.closeClients()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type envelope map[string]any

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) getState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{"data": stateOf(s.player.Snapshot())})
}

func (s *Server) listCommands(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{"data": CommandNames()})
}

func (s *Server) commandSchema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, CommandSchema())
}

func (s *Server) postCommand(w http.ResponseWriter, r *http.Request) {
	var cmd Command
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cmd); err != nil {
		s.log.WithError(err).Debug("read command")
		writeJSON(w, http.StatusUnprocessableEntity, envelope{"error": err.Error()})
		return
	}

	if errs := s.run(cmd); errs != nil {
		writeJSON(w, http.StatusBadRequest, envelope{"errors": errs})
		return
	}
	writeJSON(w, http.StatusOK, envelope{"data": stateOf(s.player.Snapshot())})
}

// run validates and executes cmd.
func (s *Server) run(cmd Command) []FieldError {
	c, errs := s.validate.check(cmd)
	if errs != nil {
		s.log.WithField("name", cmd.Name).WithField("errors", errs).Debug("command rejected")
		return errs
	}
	var v float64
	if cmd.Value != nil {
		v = *cmd.Value
	}
	s.log.WithField("name", cmd.Name).Debug("command")
	c.run(s.player, v)
	return nil
}

func (s *Server) closeClients() {
	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()
	for _, c := range clients {
		c.close()
	}
}

// Clients reports the number of connected websocket clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}
