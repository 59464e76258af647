package memory

import (
	"sort"

	"github.com/robertarktes/reservation-finalizer/internal/domain"
)

// Seeding and inspection helpers. They bypass units of work.

func (s *Store) PutReservation(r domain.Reservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.reservations[r.ID] = r
}

func (s *Store) PutBillingDetails(reservationID string, b domain.BillingDetails) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.billing[reservationID] = b
}

func (s *Store) PutTicket(t domain.Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.Metadata = t.Metadata.Copy()
	s.state.tickets[t.ID] = t
}

func (s *Store) PutCategory(c domain.TicketCategory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.categories[c.ID] = c
}

func (s *Store) PutAdditionalItem(i domain.AdditionalServiceItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.items[i.ID] = i
}

func (s *Store) PutSubscription(sub domain.Subscription, md domain.SubscriptionMetadata) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.subscriptions[sub.ID] = sub
	s.state.subMetadata[sub.ID] = domain.SubscriptionMetadata{Properties: copyStrings(md.Properties)}
}

func (s *Store) PutSpecialPrice(code, reservationID, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.specialPrices[code] = specialPrice{reservationID: reservationID, status: status}
}

func (s *Store) PutUser(username string, id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.users[username] = id
}

func (s *Store) PutTransaction(t domain.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.nextTxID++
	t.ID = s.state.nextTxID
	s.state.transactions[t.ReservationID] = t
}

func (s *Store) Reservation(id string) (domain.Reservation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.state.reservations[id]
	return r, ok
}

func (s *Store) Tickets(reservationID string) []domain.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return tickets{&tx{state: s.state}}.inReservation(reservationID)
}

func (s *Store) AdditionalItems(reservationID string) []domain.AdditionalServiceItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.AdditionalServiceItem
	for _, i := range s.state.items {
		if i.ReservationID == reservationID {
			out = append(out, i)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out
}

func (s *Store) Subscription(id string) (domain.Subscription, domain.SubscriptionMetadata) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.subscriptions[id], s.state.subMetadata[id]
}

func (s *Store) SpecialPriceStatus(code string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.specialPrices[code].status
}

func (s *Store) Transactions(reservationID string) []domain.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.state.transactions[reservationID]; ok {
		return []domain.Transaction{t}
	}
	return nil
}

func (s *Store) AuditEvents(reservationID string) []domain.AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.AuditEvent
	for _, e := range s.state.audit {
		if e.ReservationID == reservationID {
			out = append(out, e)
		}
	}
	return out
}

func (s *Store) Outbox() []domain.OutboxMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.OutboxMessage(nil), s.state.outbox...)
}
