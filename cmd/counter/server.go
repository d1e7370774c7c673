package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/codewandler/actq-go/core/perkey"
	"github.com/codewandler/actq-go/ports/kv"
)

type (
	// Increment increases the counter by the specified amount (default 1).
	Increment struct {
		Amount int `json:"amount,omitempty"`
	}

	// CounterResponse is the response for counter operations.
	CounterResponse struct {
		CounterID string `json:"counter_id"`
		Value     int    `json:"value"`
	}
)

type server struct {
	log      *slog.Logger
	counters *perkey.Scheduler[string]
	store    kv.Store
}

func newServer(log *slog.Logger, counters *perkey.Scheduler[string], store kv.Store) http.Handler {
	s := &server{log: log, counters: counters, store: store}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /counter/{id}/increment", s.handleIncrement)
	mux.HandleFunc("GET /counter/{id}", s.handleGetValue)
	mux.HandleFunc("DELETE /counter/{id}", s.handleReset)
	return mux
}

func (s *server) handleIncrement(w http.ResponseWriter, r *http.Request) {
	counterID := r.PathValue("id")

	var inc Increment
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&inc); err != nil {
			http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	if inc.Amount == 0 {
		inc.Amount = 1
	}

	// read-modify-write runs on the counter's actor, so concurrent increments
	// of one counter never lose updates
	var value int
	err := s.counters.Do(r.Context(), counterID, func() error {
		v, err := s.load(r, counterID)
		if err != nil {
			return err
		}
		value = v + inc.Amount
		return kv.Put(r.Context(), s.store, counterID, value, kv.PutOptions{})
	})
	if err != nil {
		s.fail(w, err)
		return
	}

	s.log.Debug("incremented", slog.String("counter", counterID), slog.Int("amount", inc.Amount), slog.Int("value", value))
	writeJSON(w, CounterResponse{CounterID: counterID, Value: value})
}

func (s *server) handleGetValue(w http.ResponseWriter, r *http.Request) {
	counterID := r.PathValue("id")

	value, err := s.load(r, counterID)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, CounterResponse{CounterID: counterID, Value: value})
}

func (s *server) handleReset(w http.ResponseWriter, r *http.Request) {
	counterID := r.PathValue("id")

	err := s.counters.Do(r.Context(), counterID, func() error {
		return s.store.Delete(r.Context(), counterID)
	})
	if err == nil {
		err = s.counters.Evict(counterID)
	}
	if err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) load(r *http.Request, counterID string) (int, error) {
	v, err := kv.Get[int](r.Context(), s.store, counterID)
	if errors.Is(err, kv.ErrNotFound) {
		return 0, nil
	}
	return v, err
}

func (s *server) fail(w http.ResponseWriter, err error) {
	s.log.Error("request failed", slog.Any("error", err))
	status := http.StatusInternalServerError
	if errors.Is(err, perkey.ErrSchedulerClosed) {
		status = http.StatusServiceUnavailable
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
