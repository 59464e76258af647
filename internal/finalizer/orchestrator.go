// Package finalizer turns an authorized reservation into a completed purchase.
//
// Each run executes in its own unit of work. Item acquisition, audit records,
// ledger registration and notification outbox rows either all commit together
// or not at all.
package finalizer

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robertarktes/reservation-finalizer/internal/audit"
	"github.com/robertarktes/reservation-finalizer/internal/clock"
	"github.com/robertarktes/reservation-finalizer/internal/domain"
	"github.com/robertarktes/reservation-finalizer/internal/extension"
	"github.com/robertarktes/reservation-finalizer/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	pathwayAutomatic = "automatic"
	pathwayOffline   = "offline"
)

type Orchestrator struct {
	uow         domain.UnitOfWork
	config      domain.ConfigurationResolver
	hooks       extension.Hooks
	billing     domain.BillingDocumentStore
	clock       clock.Clock
	log         observability.Logger
	tracer      trace.Tracer
	acquisition *Acquisition
	ledger      *Ledger
	notifier    *Notifier
}

type Dependencies struct {
	UnitOfWork    domain.UnitOfWork
	Configuration domain.ConfigurationResolver
	Fees          FeeCalculator
	Hooks         extension.Hooks
	Billing       domain.BillingDocumentStore
	Clock         clock.Clock
	Logger        observability.Logger
}

func New(d Dependencies) *Orchestrator {
	hooks := d.Hooks
	if hooks == nil {
		hooks = extension.NewRegistry()
	}
	clk := d.Clock
	if clk == nil {
		clk = clock.System{}
	}
	notifier := NewNotifier(d.Configuration, d.Logger)
	return &Orchestrator{
		uow:         d.UnitOfWork,
		config:      d.Configuration,
		hooks:       hooks,
		billing:     d.Billing,
		clock:       clk,
		log:         d.Logger,
		tracer:      otel.Tracer("finalizer"),
		acquisition: NewAcquisition(d.Configuration, hooks, notifier, clk, d.Logger),
		ledger:      NewLedger(d.Fees, clk, d.Logger),
		notifier:    notifier,
	}
}

// Finalize completes a reservation whose payment has been authorized and committed
// elsewhere. A reservation that is already COMPLETE is left untouched.
func (o *Orchestrator) Finalize(ctx context.Context, cmd domain.FinalizeReservation) error {
	spec := cmd.PaymentSpecification
	if spec.PurchaseContext == nil {
		return errors.Mark(errors.Newf("reservation %s: missing purchase context", spec.ReservationID), domain.ErrInvalidInput)
	}
	ctx, span := o.tracer.Start(ctx, "finalizer.Finalize", trace.WithAttributes(
		attribute.String("reservation.id", spec.ReservationID),
		attribute.String("payment.method", string(cmd.PaymentProxy)),
		attribute.String("purchase_context.type", string(spec.PurchaseContext.Type())),
	))
	defer span.End()
	timer := prometheus.NewTimer(observability.FinalizationDuration.WithLabelValues(pathwayAutomatic))
	defer timer.ObserveDuration()

	var duplicate bool
	err := o.uow.RunIndependent(ctx, func(ctx context.Context, s domain.Stores) error {
		var err error
		duplicate, err = o.finalize(ctx, s, cmd)
		return err
	})
	o.observe(span, pathwayAutomatic, spec.ReservationID, duplicate, err)
	return err
}

func (o *Orchestrator) finalize(ctx context.Context, s domain.Stores, cmd domain.FinalizeReservation) (bool, error) {
	spec := cmd.PaymentSpecification
	pc := spec.PurchaseContext
	id := spec.ReservationID
	log := o.log.WithField("reservation_id", id)

	if err := s.Reservations.LockForUpdate(ctx, id); err != nil {
		return false, errors.Wrap(err, "lock reservation")
	}
	reservation, err := s.Reservations.FindByID(ctx, id)
	if err != nil {
		return false, errors.Wrap(err, "load reservation")
	}
	if reservation.Status == domain.ReservationComplete {
		log.Info("reservation already complete, nothing to finalize")
		return true, nil
	}

	userID, err := o.actingUser(ctx, s, id, cmd.Username)
	if err != nil {
		return false, err
	}
	locale := LocaleTag(reservation.UserLanguage)

	var tickets []domain.Ticket
	if cmd.PaymentProxy != domain.PaymentOffline {
		tickets, err = o.acquisition.Acquire(ctx, s, cmd.PaymentProxy, id, Buyer{
			Email:             spec.Email,
			Name:              spec.CustomerName,
			UserLanguage:      languageOf(spec.Locale),
			BillingAddress:    spec.BillingAddress,
			CustomerReference: spec.CustomerReference,
		}, pc, cmd.SendTickets)
		if err != nil {
			return false, err
		}
		if err := o.confirmed(ctx, s, pc, id); err != nil {
			return false, err
		}
	}

	rec := audit.NewRecorder(s.Audit, o.clock)
	entry := audit.Entry{
		ReservationID: id,
		UserID:        userID,
		Context:       pc,
		EventType:     domain.AuditReservationComplete,
		EntityType:    domain.EntityReservation,
		EntityID:      id,
	}
	if err := rec.Record(ctx, entry); err != nil {
		return false, err
	}
	if err := s.Reservations.UpdateRegistrationTimestamp(ctx, id, o.clock.Now(pc.Location())); err != nil {
		return false, errors.Wrap(err, "update registration timestamp")
	}
	if spec.TermsAccepted {
		entry.EventType = domain.AuditTermsConditionAccepted
		entry.Modifications = []map[string]interface{}{{"termsAndConditionsUrl": pc.TermsAndConditionsURL()}}
		if err := rec.Record(ctx, entry); err != nil {
			return false, err
		}
	}
	if domain.HasPrivacyPolicy(pc) && spec.PrivacyAccepted {
		entry.EventType = domain.AuditPrivacyPolicyAccepted
		entry.Modifications = []map[string]interface{}{{"privacyPolicyUrl": pc.PrivacyPolicyURL()}}
		if err := rec.Record(ctx, entry); err != nil {
			return false, err
		}
	}

	if cmd.SendReservationConfirmationEmail {
		updated, err := s.Reservations.FindByID(ctx, id)
		if err != nil {
			return false, errors.Wrap(err, "reload reservation")
		}
		if err := o.notifier.MaybeSendConfirmation(ctx, s, pc, updated, tickets, locale, cmd.Username); err != nil {
			return false, err
		}
		if err := o.notifier.SendOrganizerCompletion(ctx, s, pc, updated, locale, cmd.Username); err != nil {
			return false, err
		}
	}
	log.Info("reservation finalized")
	return false, nil
}

// ConfirmOfflinePayment completes a reservation paid by bank transfer or at the desk.
// It fails with domain.ErrPreconditionFailed, without writing anything, unless the
// reservation uses OFFLINE payment and is still awaiting it.
func (o *Orchestrator) ConfirmOfflinePayment(ctx context.Context, pc domain.PurchaseContext, reservationID, username string) error {
	if pc == nil {
		return errors.Mark(errors.Newf("reservation %s: missing purchase context", reservationID), domain.ErrInvalidInput)
	}
	ctx, span := o.tracer.Start(ctx, "finalizer.ConfirmOfflinePayment", trace.WithAttributes(
		attribute.String("reservation.id", reservationID),
		attribute.String("purchase_context.type", string(pc.Type())),
	))
	defer span.End()
	timer := prometheus.NewTimer(observability.FinalizationDuration.WithLabelValues(pathwayOffline))
	defer timer.ObserveDuration()

	err := o.uow.RunIndependent(ctx, func(ctx context.Context, s domain.Stores) error {
		return o.confirmOfflinePayment(ctx, s, pc, reservationID, username)
	})
	o.observe(span, pathwayOffline, reservationID, false, err)
	return err
}

func (o *Orchestrator) confirmOfflinePayment(ctx context.Context, s domain.Stores, pc domain.PurchaseContext, id, username string) error {
	if err := s.Reservations.LockForUpdate(ctx, id); err != nil {
		return errors.Wrap(err, "lock reservation")
	}
	reservation, err := s.Reservations.FindByID(ctx, id)
	if err != nil {
		return errors.Wrap(err, "load reservation")
	}
	if reservation.PaymentMethod != domain.PaymentOffline {
		return domain.PreconditionFailed("invalid payment method %s for reservation %s", reservation.PaymentMethod, id)
	}
	if !reservation.PendingOfflinePayment() {
		return domain.PreconditionFailed("invalid status %s for reservation %s", reservation.Status, id)
	}

	updated, err := s.Reservations.ConfirmOfflinePayment(ctx, id, domain.ReservationComplete, o.clock.Now(pc.Location()))
	if err != nil {
		return errors.Wrap(err, "confirm offline payment")
	}
	if err := domain.ExpectRows("reservation", 1, updated); err != nil {
		return err
	}
	if err := o.ledger.RegisterTransaction(ctx, s, pc, id, domain.PaymentOffline); err != nil {
		return err
	}

	userID, err := s.Users.FindIDByUsername(ctx, username)
	if err != nil {
		return errors.Wrap(err, "resolve acting user")
	}
	err = audit.NewRecorder(s.Audit, o.clock).Record(ctx, audit.Entry{
		ReservationID: id,
		UserID:        userID,
		Context:       pc,
		EventType:     domain.AuditReservationOfflinePaymentConfirmed,
		EntityType:    domain.EntityReservation,
		EntityID:      id,
	})
	if err != nil {
		return err
	}

	_, err = o.acquisition.Acquire(ctx, s, domain.PaymentOffline, id, Buyer{
		Email:             reservation.Email,
		Name:              reservation.CustomerName(),
		UserLanguage:      reservation.UserLanguage,
		BillingAddress:    reservation.BillingAddress,
		CustomerReference: reservation.CustomerReference,
	}, pc, true)
	if err != nil {
		return err
	}

	final, err := s.Reservations.FindByID(ctx, id)
	if err != nil {
		return errors.Wrap(err, "reload reservation")
	}
	if err := o.saveBillingDocument(ctx, s, pc, final, username); err != nil {
		return err
	}

	cfg, err := o.config.GetFor(ctx, []domain.ConfigurationKey{
		domain.DeferredBankTransferEnabled,
		domain.DeferredBankTransferSendConfirmationEmail,
	}, pc.ConfigurationLevel())
	if err != nil {
		return errors.Wrap(err, "load deferred transfer configuration")
	}
	if !cfg.Get(domain.DeferredBankTransferEnabled).AsBoolOrDefault() ||
		cfg.Get(domain.DeferredBankTransferSendConfirmationEmail).AsBoolOrDefault() {
		if err := o.notifier.SendConfirmation(ctx, s, pc, final, LocaleTag(final.UserLanguage), username); err != nil {
			return err
		}
	}
	if err := o.confirmed(ctx, s, pc, id); err != nil {
		return err
	}
	o.log.WithField("reservation_id", id).WithField("username", username).Info("offline payment confirmed")
	return nil
}

func (o *Orchestrator) confirmed(ctx context.Context, s domain.Stores, pc domain.PurchaseContext, id string) error {
	reservation, err := s.Reservations.FindByID(ctx, id)
	if err != nil {
		return errors.Wrap(err, "reload reservation")
	}
	billing, err := s.Reservations.BillingDetails(ctx, id)
	if err != nil {
		return errors.Wrap(err, "load billing details")
	}
	return o.hooks.OnReservationConfirmed(ctx, reservation, billing, pc)
}

func (o *Orchestrator) actingUser(ctx context.Context, s domain.Stores, reservationID, username string) (*int64, error) {
	if username != "" {
		id, err := s.Users.FindIDByUsername(ctx, username)
		return id, errors.Wrap(err, "resolve acting user")
	}
	id, err := s.Reservations.FindOwner(ctx, reservationID)
	return id, errors.Wrap(err, "resolve reservation owner")
}

func (o *Orchestrator) saveBillingDocument(ctx context.Context, s domain.Stores, pc domain.PurchaseContext, r domain.Reservation, username string) error {
	if o.billing == nil {
		return nil
	}
	billing, err := s.Reservations.BillingDetails(ctx, r.ID)
	if err != nil {
		return errors.Wrap(err, "load billing details")
	}
	count, err := s.Tickets.CountInReservation(ctx, r.ID)
	if err != nil {
		return errors.Wrap(err, "count tickets")
	}
	total := r.TotalPrice()
	currency := total.Currency
	if currency == "" {
		currency = pc.Currency()
	}
	doc := domain.BillingDocument{
		ReservationID:       r.ID,
		PurchaseContextType: pc.Type(),
		PurchaseContextID:   pc.ID(),
		OrganizationID:      pc.OrganizationID(),
		CustomerName:        customerDisplayName(r.CustomerName()),
		Email:               r.Email,
		BillingAddress:      r.BillingAddress,
		CustomerReference:   r.CustomerReference,
		Billing:             billing,
		PriceWithVATCts:     total.PriceWithVATCts,
		VatCts:              total.VatCts,
		Currency:            currency,
		TicketCount:         count,
		PaymentMethod:       r.PaymentMethod,
		CreatedBy:           username,
		GeneratedAt:         o.clock.Now(pc.Location()),
	}
	if err := o.billing.Save(ctx, doc); err != nil {
		return errors.Wrap(err, "save billing document")
	}
	return nil
}

func (o *Orchestrator) observe(span trace.Span, pathway, reservationID string, duplicate bool, err error) {
	log := o.log.WithField("reservation_id", reservationID).WithField("pathway", pathway)
	outcome := "completed"
	switch {
	case err == nil && duplicate:
		outcome = "duplicate"
	case err == nil:
	case errors.Is(err, domain.ErrPreconditionFailed):
		outcome = "rejected"
		log.Warn(err.Error())
	case errors.Is(err, domain.ErrConsistencyViolation):
		outcome = "inconsistent"
		log.Error(err.Error())
	default:
		outcome = "failed"
		log.Error(err.Error())
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	span.SetAttributes(attribute.String("finalization.outcome", outcome))
	observability.Finalizations.WithLabelValues(pathway, outcome).Inc()
}

func customerDisplayName(n domain.CustomerName) string {
	if n.FullName != "" {
		return n.FullName
	}
	return strings.TrimSpace(n.FirstName + " " + n.LastName)
}
