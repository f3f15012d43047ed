// Package server exposes the HTTP API and the inbound webhook.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"wedding-rsvp/internal/groups"
	"wedding-rsvp/internal/models"
	"wedding-rsvp/internal/phone"
)

// Store is the storage surface the HTTP handlers need. Every request
// re-reads through it; handlers keep no guest state of their own.
type Store interface {
	Guests(ctx context.Context, ownerID string) ([]models.Guest, error)
	AddGuests(ctx context.Context, ownerID string, guests []models.Guest) ([]models.Guest, error)
	UpdateRSVP(ctx context.Context, ownerID, name, phoneNumber string, rsvp *int) error
	SetMessageGroups(ctx context.Context, ownerID string, guests []models.Guest) error
	DeleteGuest(ctx context.Context, ownerID, name, phoneNumber string) error
	DeleteAllGuests(ctx context.Context, ownerID string) error
	WeddingDetails(ctx context.Context, ownerID string) (*models.WeddingDetails, error)
	SaveWeddingDetails(ctx context.Context, w models.WeddingDetails) error
	Logs(ctx context.Context, ownerID string) ([]models.ClientLog, error)
}

// Dispatcher sends a message kind to a guest batch.
type Dispatcher interface {
	Send(ctx context.Context, ownerID string, guests []models.Guest, kind models.MessageKind, wedding models.WeddingDetails, customText string) (models.MessageBatchResult, error)
}

// ReplyHandler processes an inbound guest message.
type ReplyHandler interface {
	Handle(ctx context.Context, fromPhone, body string) error
}

type Server struct {
	store      Store
	dispatcher Dispatcher
	replies    ReplyHandler
	maxPerDay  int
	log        zerolog.Logger
}

func New(store Store, dispatcher Dispatcher, replies ReplyHandler, maxPerDay int, log zerolog.Logger) *Server {
	return &Server{
		store:      store,
		dispatcher: dispatcher,
		replies:    replies,
		maxPerDay:  maxPerDay,
		log:        log.With().Str("component", "server").Logger(),
	}
}

// Router builds the chi router with all API and webhook routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.requireOwner)
		r.Get("/guests", s.handleListGuests)
		r.Post("/guests", s.handleImportGuests)
		r.Delete("/guests", s.handleDeleteAllGuests)
		r.Post("/guests/delete", s.handleDeleteGuest)
		r.Post("/guests/rsvp", s.handleUpdateRSVP)
		r.Post("/guests/groups", s.handleAssignGroups)
		r.Get("/wedding", s.handleGetWedding)
		r.Put("/wedding", s.handleSaveWedding)
		r.Post("/messages", s.handleDispatch)
		r.Get("/logs", s.handleLogs)
	})

	r.Post("/hooks/whatsapp", s.handleInboundWebhook)

	return r
}

type ctxKey int

const ownerKey ctxKey = 0

// requireOwner pulls the owner identity set by the external auth layer.
func (s *Server) requireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner := r.Header.Get("X-Owner-ID")
		if owner == "" {
			respondError(w, http.StatusUnauthorized, "missing owner identity")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ownerKey, owner)))
	})
}

func ownerID(r *http.Request) string {
	owner, _ := r.Context().Value(ownerKey).(string)
	return owner
}

func (s *Server) handleListGuests(w http.ResponseWriter, r *http.Request) {
	guests, err := s.store.Guests(r.Context(), ownerID(r))
	if err != nil {
		s.storageError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, guests)
}

type guestImport struct {
	Name           string `json:"name"`
	InvitationName string `json:"invitation_name"`
	Phone          string `json:"phone"`
	Whose          string `json:"whose"`
	Circle         string `json:"circle"`
	NumberOfGuests int    `json:"number_of_guests"`
}

type skippedGuest struct {
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Reason string `json:"reason"`
}

type importResult struct {
	Added   []models.Guest `json:"added"`
	Skipped []skippedGuest `json:"skipped"`
}

// handleImportGuests bulk-adds guests. Invalid entries are collected and
// reported, not fatal: partial success is the default for imports.
func (s *Server) handleImportGuests(w http.ResponseWriter, r *http.Request) {
	var payload []guestImport
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	owner := ownerID(r)
	existing, err := s.store.Guests(r.Context(), owner)
	if err != nil {
		s.storageError(w, err)
		return
	}

	seen := make(map[string]bool, len(existing))
	for _, g := range existing {
		seen[g.Phone] = true
	}

	result := importResult{Skipped: []skippedGuest{}}
	var toAdd []models.Guest
	for _, in := range payload {
		skip := func(reason string) {
			result.Skipped = append(result.Skipped, skippedGuest{Name: in.Name, Phone: in.Phone, Reason: reason})
		}

		if in.Name == "" || in.Phone == "" {
			skip(models.ErrMissingGuestField.Error())
			continue
		}
		canonical, err := phone.Normalize(in.Phone)
		if err != nil {
			skip(models.ErrInvalidPhone.Error())
			continue
		}
		if seen[canonical] {
			skip(models.ErrDuplicatePhone.Error())
			continue
		}
		seen[canonical] = true

		count := in.NumberOfGuests
		if count <= 0 {
			count = 1
		}
		toAdd = append(toAdd, models.Guest{
			OwnerID:        owner,
			Name:           in.Name,
			InvitationName: in.InvitationName,
			Phone:          canonical,
			Whose:          in.Whose,
			Circle:         in.Circle,
			NumberOfGuests: count,
		})
	}

	if len(toAdd) > 0 {
		if _, err := s.store.AddGuests(r.Context(), owner, toAdd); err != nil {
			s.storageError(w, err)
			return
		}
	}
	result.Added = toAdd
	if result.Added == nil {
		result.Added = []models.Guest{}
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleDeleteAllGuests(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteAllGuests(r.Context(), ownerID(r)); err != nil {
		s.storageError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type guestRef struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

func (s *Server) handleDeleteGuest(w http.ResponseWriter, r *http.Request) {
	var ref guestRef
	if err := json.NewDecoder(r.Body).Decode(&ref); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	err := s.store.DeleteGuest(r.Context(), ownerID(r), ref.Name, ref.Phone)
	if errors.Is(err, models.ErrGuestNotFound) {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.storageError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdateRSVP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		guestRef
		RSVP *int `json:"rsvp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	err := s.store.UpdateRSVP(r.Context(), ownerID(r), req.Name, req.Phone, req.RSVP)
	if errors.Is(err, models.ErrGuestNotFound) {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.storageError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAssignGroups recomputes message groups for the whole list on demand
// and persists the assignment. Guests added later are not pulled into
// existing groups automatically; the operator re-runs this.
func (s *Server) handleAssignGroups(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MaxPerDay int `json:"max_per_day"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	maxPerDay := req.MaxPerDay
	if maxPerDay <= 0 {
		maxPerDay = s.maxPerDay
	}

	owner := ownerID(r)
	guests, err := s.store.Guests(r.Context(), owner)
	if err != nil {
		s.storageError(w, err)
		return
	}

	assigned := groups.Assign(guests, maxPerDay)
	if err := s.store.SetMessageGroups(r.Context(), owner, assigned); err != nil {
		s.storageError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, assigned)
}

func (s *Server) handleGetWedding(w http.ResponseWriter, r *http.Request) {
	details, err := s.store.WeddingDetails(r.Context(), ownerID(r))
	if errors.Is(err, models.ErrDetailsNotFound) {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.storageError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, details)
}

func (s *Server) handleSaveWedding(w http.ResponseWriter, r *http.Request) {
	var details models.WeddingDetails
	if err := json.NewDecoder(r.Body).Decode(&details); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if details.ReminderDay != models.ReminderDayBefore && details.ReminderDay != models.ReminderWeddingDay {
		respondError(w, http.StatusBadRequest, "reminder_day must be day_before or wedding_day")
		return
	}
	details.OwnerID = ownerID(r)
	if err := s.store.SaveWeddingDetails(r.Context(), details); err != nil {
		s.storageError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, details)
}

type dispatchRequest struct {
	MessageGroup int    `json:"messageGroup"`
	MessageKind  string `json:"messageKind"`
	CustomText   string `json:"customText"`
}

// handleDispatch is the operator-triggered send entrypoint: it targets one
// message group with one message kind and returns the aggregated result.
func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	var req dispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	kind, err := models.ParseMessageKind(req.MessageKind)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	owner := ownerID(r)
	wedding, err := s.store.WeddingDetails(r.Context(), owner)
	if errors.Is(err, models.ErrDetailsNotFound) {
		respondError(w, http.StatusUnprocessableEntity, models.ErrIncompleteDetails.Error())
		return
	}
	if err != nil {
		s.storageError(w, err)
		return
	}

	guests, err := s.store.Guests(r.Context(), owner)
	if err != nil {
		s.storageError(w, err)
		return
	}

	var batch []models.Guest
	for _, g := range guests {
		if g.MessageGroup != nil && *g.MessageGroup == req.MessageGroup {
			batch = append(batch, g)
		}
	}

	result, err := s.dispatcher.Send(r.Context(), owner, batch, kind, *wedding, req.CustomText)
	switch {
	case errors.Is(err, models.ErrIncompleteDetails):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case errors.Is(err, models.ErrQuotaExceeded):
		respondError(w, http.StatusTooManyRequests, err.Error())
		return
	case err != nil:
		s.log.Error().Err(err).Msg("Dispatch failed")
		respondError(w, http.StatusInternalServerError, "dispatch failed")
		return
	}

	if result.Failures == nil {
		result.Failures = []models.SendFailure{}
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := s.store.Logs(r.Context(), ownerID(r))
	if err != nil {
		s.storageError(w, err)
		return
	}
	if logs == nil {
		logs = []models.ClientLog{}
	}
	respondJSON(w, http.StatusOK, logs)
}

type webhookPayload struct {
	From string `json:"from"`
	Body string `json:"body"`
}

// handleInboundWebhook receives guest replies. Per the transport's webhook
// contract it always acknowledges with an empty 200, whatever happened
// inside; failures are logged, never surfaced to the sender.
func (s *Server) handleInboundWebhook(w http.ResponseWriter, r *http.Request) {
	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.log.Warn().Err(err).Msg("Unparseable webhook payload")
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := s.replies.Handle(r.Context(), payload.From, payload.Body); err != nil {
		s.log.Error().Err(err).Str("from", payload.From).Msg("Inbound reply handling failed")
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) storageError(w http.ResponseWriter, err error) {
	s.log.Error().Err(err).Msg("Storage failure")
	respondError(w, http.StatusInternalServerError, "storage failure")
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
