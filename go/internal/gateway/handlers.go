package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/mcdev12/boxoffice/go/clients"
	"github.com/mcdev12/boxoffice/go/internal/reservation"
	"github.com/mcdev12/boxoffice/go/internal/routes"
	"github.com/rs/zerolog/log"
)

// ReservationView is the JSON form of a hosted reservation
type ReservationView struct {
	CartID       string    `json:"cart_id"`
	EventID      string    `json:"event_id"`
	State        string    `json:"state"`
	Deadline     time.Time `json:"deadline"`
	DeadlineMs   int64     `json:"deadline_ms"`
	RemainingSec int       `json:"remaining_sec"`
	Display      string    `json:"display"`
	Source       string    `json:"source"`
}

func reservationView(s reservation.Snapshot) ReservationView {
	return ReservationView{
		CartID:       s.CartID,
		EventID:      s.EventID,
		State:        s.State.String(),
		Deadline:     s.Deadline,
		DeadlineMs:   s.Deadline.UnixMilli(),
		RemainingSec: reservation.RemainingSeconds(s.Remaining),
		Display:      s.Display,
		Source:       string(s.Source),
	}
}

// OfferView is the JSON form of a pending resume offer
type OfferView struct {
	EventID      string `json:"event_id"`
	CartID       string `json:"cart_id"`
	DeadlineMs   int64  `json:"deadline_ms"`
	RemainingSec int    `json:"remaining_sec"`
	Display      string `json:"display"`
	Items        int    `json:"items"`
}

func offerView(o *reservation.ResumeOffer) OfferView {
	remaining := o.Remaining()
	view := OfferView{
		EventID:      o.EventID,
		CartID:       o.CartID,
		DeadlineMs:   o.Deadline.UnixMilli(),
		RemainingSec: reservation.RemainingSeconds(remaining),
		Display:      reservation.FormatRemaining(remaining),
	}
	if o.Cart != nil {
		view.Items = o.Cart.TotalQuantity()
	}
	return view
}

type startReservationRequest struct {
	EventID string `json:"event_id"`
	// DeadlineMs is a deadline carried over from a previous step
	DeadlineMs *int64 `json:"carried_deadline_ms,omitempty"`
}

type completeReservationRequest struct {
	OrderID string `json:"order_id"`
}

// ReservationHandler serves the reservation REST API
type ReservationHandler struct {
	auth     *Authenticator
	registry *Registry
}

func NewReservationHandler(auth *Authenticator, registry *Registry) *ReservationHandler {
	return &ReservationHandler{auth: auth, registry: registry}
}

func (h *ReservationHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/reservations", h.HandleStart)
	mux.HandleFunc("GET /api/reservations/{cartID}", h.HandleGet)
	mux.HandleFunc("POST /api/reservations/{cartID}/resume", h.HandleResume)
	mux.HandleFunc("POST /api/reservations/{cartID}/leave", h.HandleLeave)
	mux.HandleFunc("POST /api/reservations/{cartID}/leave/confirm", h.HandleConfirmLeave)
	mux.HandleFunc("POST /api/reservations/{cartID}/leave/decline", h.HandleDeclineLeave)
	mux.HandleFunc("POST /api/reservations/{cartID}/complete", h.HandleComplete)
	mux.HandleFunc("GET /api/events/{eventID}/resume-offer", h.HandleResumeOffer)
	mux.HandleFunc("POST /api/events/{eventID}/resume-offer/accept", h.HandleAcceptOffer)
	mux.HandleFunc("POST /api/events/{eventID}/resume-offer/discard", h.HandleDiscardOffer)
}

func (h *ReservationHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	p, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	var req startReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.EventID == "" {
		http.Error(w, "event_id is required", http.StatusBadRequest)
		return
	}

	var carried *time.Time
	if req.DeadlineMs != nil && *req.DeadlineMs > 0 {
		t := time.UnixMilli(*req.DeadlineMs)
		carried = &t
	}

	res, created, err := h.registry.Start(r.Context(), p, req.EventID, carried)
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, reservationView(res.Coordinator.Snapshot()))
}

func (h *ReservationHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	res, ok := h.owned(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, reservationView(res.Coordinator.Snapshot()))
}

// HandleResume re-evaluates the countdown, e.g. when a tab regains focus
func (h *ReservationHandler) HandleResume(w http.ResponseWriter, r *http.Request) {
	res, ok := h.owned(w, r)
	if !ok {
		return
	}
	res.Coordinator.Resume(r.Context())
	writeJSON(w, http.StatusOK, reservationView(res.Coordinator.Snapshot()))
}

func (h *ReservationHandler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	res, ok := h.owned(w, r)
	if !ok {
		return
	}
	if err := res.Coordinator.RequestLeave(); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *ReservationHandler) HandleConfirmLeave(w http.ResponseWriter, r *http.Request) {
	res, ok := h.owned(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, res.Coordinator.ConfirmLeave(r.Context()))
}

func (h *ReservationHandler) HandleDeclineLeave(w http.ResponseWriter, r *http.Request) {
	res, ok := h.owned(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, res.Coordinator.DeclineLeave())
}

func (h *ReservationHandler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	res, ok := h.owned(w, r)
	if !ok {
		return
	}

	var req completeReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := res.Coordinator.Complete(r.Context(), req.OrderID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reservationView(res.Coordinator.Snapshot()))
}

func (h *ReservationHandler) HandleResumeOffer(w http.ResponseWriter, r *http.Request) {
	p, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	offer, err := h.registry.ResumeOffer(r.Context(), p, r.PathValue("eventID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if offer == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, offerView(offer))
}

func (h *ReservationHandler) HandleAcceptOffer(w http.ResponseWriter, r *http.Request) {
	offer, ok := h.pendingOffer(w, r)
	if !ok {
		return
	}
	nav, err := offer.Accept()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nav)
}

func (h *ReservationHandler) HandleDiscardOffer(w http.ResponseWriter, r *http.Request) {
	offer, ok := h.pendingOffer(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, offer.Discard(r.Context()))
}

func (h *ReservationHandler) pendingOffer(w http.ResponseWriter, r *http.Request) (*reservation.ResumeOffer, bool) {
	p, ok := h.authenticate(w, r)
	if !ok {
		return nil, false
	}
	offer, err := h.registry.PendingOffer(p, r.PathValue("eventID"))
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return offer, true
}

func (h *ReservationHandler) authenticate(w http.ResponseWriter, r *http.Request) (*Principal, bool) {
	p, err := h.auth.Authenticate(r)
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return p, true
}

func (h *ReservationHandler) owned(w http.ResponseWriter, r *http.Request) (*Reservation, bool) {
	p, ok := h.authenticate(w, r)
	if !ok {
		return nil, false
	}
	res, err := h.registry.Owned(r.PathValue("cartID"), p)
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return res, true
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, reservation.ErrReservationNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrEmptyCart),
		errors.Is(err, reservation.ErrNotRunning),
		errors.Is(err, reservation.ErrAlreadyStarted),
		errors.Is(err, reservation.ErrOfferResolved):
		return http.StatusConflict
	}
	if apiErr, ok := clients.AsAPIError(err); ok {
		if apiErr.Unauthorized() {
			return http.StatusUnauthorized
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// navigation wraps a routes.Navigation for a command reply
func navigation(nav routes.Navigation) *routes.Navigation {
	return &nav
}
