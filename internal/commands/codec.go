// Package commands carries FinalizeReservation between the payment workflow
// and the finalizer process.
package commands

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/reservation-finalizer/internal/domain"
)

// RoutingKey is the topic the finalizer queue is bound to.
const RoutingKey = "reservation.finalize"

// FinalizeMessage is the wire form of domain.FinalizeReservation. The
// purchase context travels by reference and is resolved by the consumer.
type FinalizeMessage struct {
	ReservationID                    string                     `json:"reservation_id"`
	PurchaseContextType              domain.PurchaseContextType `json:"purchase_context_type"`
	PurchaseContextID                string                     `json:"purchase_context_id"`
	Email                            string                     `json:"email"`
	FullName                         string                     `json:"full_name,omitempty"`
	FirstName                        string                     `json:"first_name,omitempty"`
	LastName                         string                     `json:"last_name,omitempty"`
	BillingAddress                   string                     `json:"billing_address,omitempty"`
	CustomerReference                string                     `json:"customer_reference,omitempty"`
	Locale                           string                     `json:"locale,omitempty"`
	TermsAccepted                    bool                       `json:"terms_accepted"`
	PrivacyAccepted                  bool                       `json:"privacy_accepted"`
	PaymentProxy                     domain.PaymentProxy        `json:"payment_proxy"`
	SendReservationConfirmationEmail bool                       `json:"send_reservation_confirmation_email"`
	SendTickets                      bool                       `json:"send_tickets"`
	Username                         string                     `json:"username,omitempty"`
}

func Encode(cmd domain.FinalizeReservation) ([]byte, error) {
	spec := cmd.PaymentSpecification
	if spec.PurchaseContext == nil {
		return nil, errors.Mark(errors.Newf("reservation %s: missing purchase context", spec.ReservationID), domain.ErrInvalidInput)
	}
	data, err := json.Marshal(FinalizeMessage{
		ReservationID:                    spec.ReservationID,
		PurchaseContextType:              spec.PurchaseContext.Type(),
		PurchaseContextID:                spec.PurchaseContext.ID(),
		Email:                            spec.Email,
		FullName:                         spec.CustomerName.FullName,
		FirstName:                        spec.CustomerName.FirstName,
		LastName:                         spec.CustomerName.LastName,
		BillingAddress:                   spec.BillingAddress,
		CustomerReference:                spec.CustomerReference,
		Locale:                           spec.Locale,
		TermsAccepted:                    spec.TermsAccepted,
		PrivacyAccepted:                  spec.PrivacyAccepted,
		PaymentProxy:                     cmd.PaymentProxy,
		SendReservationConfirmationEmail: cmd.SendReservationConfirmationEmail,
		SendTickets:                      cmd.SendTickets,
		Username:                         cmd.Username,
	})
	return data, errors.Wrap(err, "encode finalize command")
}

func Decode(body []byte) (FinalizeMessage, error) {
	var m FinalizeMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return m, errors.Mark(errors.Wrap(err, "decode finalize command"), domain.ErrInvalidInput)
	}
	switch {
	case m.ReservationID == "":
		return m, errors.Mark(errors.New("finalize command without reservation id"), domain.ErrInvalidInput)
	case m.PurchaseContextType == "" || m.PurchaseContextID == "":
		return m, errors.Mark(errors.Newf("reservation %s: missing purchase context reference", m.ReservationID), domain.ErrInvalidInput)
	case !m.PaymentProxy.Valid():
		return m, errors.Mark(errors.Newf("reservation %s: unknown payment method %q", m.ReservationID, m.PaymentProxy), domain.ErrInvalidInput)
	}
	return m, nil
}

// Command rebuilds the domain command around a resolved purchase context.
func (m FinalizeMessage) Command(pc domain.PurchaseContext) domain.FinalizeReservation {
	return domain.FinalizeReservation{
		PaymentSpecification: domain.PaymentSpecification{
			ReservationID:     m.ReservationID,
			PurchaseContext:   pc,
			Email:             m.Email,
			CustomerName:      domain.CustomerName{FullName: m.FullName, FirstName: m.FirstName, LastName: m.LastName},
			BillingAddress:    m.BillingAddress,
			CustomerReference: m.CustomerReference,
			Locale:            m.Locale,
			TermsAccepted:     m.TermsAccepted,
			PrivacyAccepted:   m.PrivacyAccepted,
		},
		PaymentProxy:                     m.PaymentProxy,
		SendReservationConfirmationEmail: m.SendReservationConfirmationEmail,
		SendTickets:                      m.SendTickets,
		Username:                         m.Username,
	}
}

// EnqueueFinalize writes cmd to the outbox of the caller's transaction, so it
// is published only after the payment has committed. Every call is a distinct
// command; repeated finalization is absorbed by the finalizer itself.
func EnqueueFinalize(ctx context.Context, out domain.Outbox, cmd domain.FinalizeReservation) error {
	payload, err := Encode(cmd)
	if err != nil {
		return err
	}
	id := cmd.PaymentSpecification.ReservationID
	return out.Enqueue(ctx, domain.OutboxMessage{
		AggregateType: "reservation",
		AggregateID:   id,
		EventType:     RoutingKey,
		Payload:       payload,
		DedupeKey:     "finalize:" + id + ":" + uuid.NewString(),
	})
}
