package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/robertarktes/reservation-finalizer/internal/commands"
	"github.com/robertarktes/reservation-finalizer/internal/domain"
	"github.com/robertarktes/reservation-finalizer/internal/observability"
)

type OfflinePayments interface {
	ConfirmOfflinePayment(ctx context.Context, pc domain.PurchaseContext, reservationID, username string) error
}

// Check reports whether a dependency is usable.
type Check func(ctx context.Context) error

type Handlers struct {
	payments OfflinePayments
	uow      domain.UnitOfWork
	catalog  domain.PurchaseContextCatalog
	checks   map[string]Check
	logger   observability.Logger
}

func NewHandlers(payments OfflinePayments, uow domain.UnitOfWork, catalog domain.PurchaseContextCatalog, checks map[string]Check, logger observability.Logger) *Handlers {
	return &Handlers{
		payments: payments,
		uow:      uow,
		catalog:  catalog,
		checks:   checks,
		logger:   logger,
	}
}

func (h *Handlers) purchaseContext(r *http.Request) (domain.PurchaseContext, error) {
	t := domain.PurchaseContextType(chi.URLParam(r, "type"))
	return h.catalog.PurchaseContext(r.Context(), t, chi.URLParam(r, "id"))
}

// ConfirmOfflinePayment settles a reservation paid by bank transfer.
func (h *Handlers) ConfirmOfflinePayment(w http.ResponseWriter, r *http.Request) {
	reservationID := chi.URLParam(r, "reservationID")
	pc, err := h.purchaseContext(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.payments.ConfirmOfflinePayment(r.Context(), pc, reservationID, UsernameFrom(r.Context())); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reservation_id": reservationID,
		"status":         domain.ReservationComplete,
	})
}

// RequestFinalization queues a FinalizeReservation command for a reservation
// whose payment was settled outside the payment workflow.
func (h *Handlers) RequestFinalization(w http.ResponseWriter, r *http.Request) {
	var msg commands.FinalizeMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	pc, err := h.purchaseContext(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	msg.ReservationID = chi.URLParam(r, "reservationID")
	msg.PurchaseContextType = pc.Type()
	msg.PurchaseContextID = pc.ID()
	if msg.Username == "" {
		msg.Username = UsernameFrom(r.Context())
	}
	if !msg.PaymentProxy.Valid() {
		writeJSONError(w, http.StatusBadRequest, "unknown payment method")
		return
	}

	err = h.uow.RunIndependent(r.Context(), func(ctx context.Context, s domain.Stores) error {
		if _, err := s.Reservations.FindByID(ctx, msg.ReservationID); err != nil {
			return err
		}
		return commands.EnqueueFinalize(ctx, s.Outbox, msg.Command(pc))
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]interface{}{"reservation_id": msg.ReservationID})
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	failed := map[string]string{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, failed)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrPreconditionFailed):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrSerializationFailure), errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrUnsupportedPurchaseContext), errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	}
	log := LoggerFrom(r.Context(), h.logger)
	if status == http.StatusInternalServerError {
		log.Error("request failed: ", err)
		writeJSONError(w, status, "internal error")
		return
	}
	log.Info("request rejected: ", err)
	writeJSONError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, _ := json.Marshal(v)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
