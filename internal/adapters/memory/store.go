// Package memory is an in-process implementation of every persistence port.
// Units of work are serialized and commit by swapping in a mutated copy of the
// state, so a failing unit of work leaves nothing behind.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/reservation-finalizer/internal/domain"
)

type specialPrice struct {
	reservationID string
	status        string
}

type state struct {
	reservations  map[string]domain.Reservation
	billing       map[string]domain.BillingDetails
	tickets       map[int64]domain.Ticket
	categories    map[int64]domain.TicketCategory
	items         map[int64]domain.AdditionalServiceItem
	subscriptions map[string]domain.Subscription
	subMetadata   map[string]domain.SubscriptionMetadata
	transactions  map[string]domain.Transaction
	nextTxID      int64
	audit         []domain.AuditEvent
	specialPrices map[string]specialPrice
	users         map[string]int64
	outbox        []domain.OutboxMessage
}

func newState() *state {
	return &state{
		reservations:  map[string]domain.Reservation{},
		billing:       map[string]domain.BillingDetails{},
		tickets:       map[int64]domain.Ticket{},
		categories:    map[int64]domain.TicketCategory{},
		items:         map[int64]domain.AdditionalServiceItem{},
		subscriptions: map[string]domain.Subscription{},
		subMetadata:   map[string]domain.SubscriptionMetadata{},
		transactions:  map[string]domain.Transaction{},
		specialPrices: map[string]specialPrice{},
		users:         map[string]int64{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.reservations {
		c.reservations[k] = v
	}
	for k, v := range s.billing {
		c.billing[k] = v
	}
	for k, v := range s.tickets {
		v.Metadata = v.Metadata.Copy()
		c.tickets[k] = v
	}
	for k, v := range s.categories {
		c.categories[k] = v
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	for k, v := range s.subscriptions {
		c.subscriptions[k] = v
	}
	for k, v := range s.subMetadata {
		c.subMetadata[k] = domain.SubscriptionMetadata{Properties: copyStrings(v.Properties)}
	}
	for k, v := range s.transactions {
		v.Metadata = copyStrings(v.Metadata)
		c.transactions[k] = v
	}
	c.nextTxID = s.nextTxID
	c.audit = append([]domain.AuditEvent(nil), s.audit...)
	for k, v := range s.specialPrices {
		c.specialPrices[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	c.outbox = append([]domain.OutboxMessage(nil), s.outbox...)
	return c
}

func copyStrings(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Store implements domain.UnitOfWork.
type Store struct {
	mu      sync.Mutex
	state   *state
	faults  map[string]error
	commits int
}

func NewStore() *Store {
	return &Store{state: newState(), faults: map[string]error{}}
}

// FailOn makes every later call of op (for example "audit.insert") fail with err.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = err
}

func (s *Store) ClearFaults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = map[string]error{}
}

func (s *Store) Commits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commits
}

func (s *Store) RunIndependent(ctx context.Context, fn func(ctx context.Context, st domain.Stores) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := &tx{state: s.state.clone(), faults: s.faults}
	if err := fn(ctx, work.stores()); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = work.state
	s.commits++
	return nil
}

type tx struct {
	state  *state
	faults map[string]error
}

func (t *tx) fault(op string) error {
	if err, ok := t.faults[op]; ok {
		return errors.Wrap(err, op)
	}
	return nil
}

func (t *tx) stores() domain.Stores {
	return domain.Stores{
		Reservations:    reservations{t},
		Tickets:         tickets{t},
		AdditionalItems: additionalItems{t},
		Subscriptions:   subscriptions{t},
		Transactions:    transactions{t},
		Audit:           audit{t},
		SpecialPrices:   specialPrices{t},
		Users:           users{t},
		Outbox:          outbox{t},
	}
}

type reservations struct{ *tx }

func (r reservations) FindByID(ctx context.Context, id string) (domain.Reservation, error) {
	if err := r.fault("reservations.find"); err != nil {
		return domain.Reservation{}, err
	}
	res, ok := r.state.reservations[id]
	if !ok {
		return domain.Reservation{}, errors.Wrapf(domain.ErrNotFound, "reservation %s", id)
	}
	return res, nil
}

func (r reservations) LockForUpdate(ctx context.Context, id string) error {
	if err := r.fault("reservations.lock"); err != nil {
		return err
	}
	if _, ok := r.state.reservations[id]; !ok {
		return errors.Wrapf(domain.ErrNotFound, "reservation %s", id)
	}
	return nil
}

func (r reservations) FindOwner(ctx context.Context, id string) (*int64, error) {
	res, ok := r.state.reservations[id]
	if !ok {
		return nil, errors.Wrapf(domain.ErrNotFound, "reservation %s", id)
	}
	return res.OwnerID, nil
}

func (r reservations) BillingDetails(ctx context.Context, id string) (domain.BillingDetails, error) {
	return r.state.billing[id], nil
}

func (r reservations) Complete(ctx context.Context, id string, c domain.ReservationCompletion) (int64, error) {
	if err := r.fault("reservations.complete"); err != nil {
		return 0, err
	}
	res, ok := r.state.reservations[id]
	if !ok {
		return 0, nil
	}
	res.Status = domain.ReservationComplete
	res.Email = c.Email
	res.FullName = c.Name.FullName
	res.FirstName = c.Name.FirstName
	res.LastName = c.Name.LastName
	res.UserLanguage = c.UserLanguage
	res.BillingAddress = c.BillingAddress
	res.CustomerReference = c.CustomerReference
	res.PaymentMethod = c.PaymentMethod
	at := c.Timestamp
	res.ConfirmationTimestamp = &at
	r.state.reservations[id] = res
	return 1, nil
}

func (r reservations) ConfirmOfflinePayment(ctx context.Context, id string, status domain.ReservationStatus, at time.Time) (int64, error) {
	res, ok := r.state.reservations[id]
	if !ok {
		return 0, nil
	}
	res.Status = status
	res.ConfirmationTimestamp = &at
	r.state.reservations[id] = res
	return 1, nil
}

func (r reservations) UpdateRegistrationTimestamp(ctx context.Context, id string, at time.Time) error {
	res, ok := r.state.reservations[id]
	if !ok {
		return errors.Wrapf(domain.ErrNotFound, "reservation %s", id)
	}
	res.RegistrationTimestamp = &at
	r.state.reservations[id] = res
	return nil
}

type tickets struct{ *tx }

func (t tickets) inReservation(reservationID string) []domain.Ticket {
	var out []domain.Ticket
	for _, tk := range t.state.tickets {
		if tk.ReservationID == reservationID {
			tk.Metadata = tk.Metadata.Copy()
			out = append(out, tk)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (t tickets) FindInReservation(ctx context.Context, reservationID string) ([]domain.Ticket, error) {
	return t.inReservation(reservationID), nil
}

func (t tickets) CountInReservation(ctx context.Context, reservationID string) (int, error) {
	return len(t.inReservation(reservationID)), nil
}

func (t tickets) UpdateStatusForReservation(ctx context.Context, reservationID string, status domain.TicketStatus) (int64, error) {
	if err := t.fault("tickets.update_status"); err != nil {
		return 0, err
	}
	var n int64
	for id, tk := range t.state.tickets {
		if tk.ReservationID == reservationID {
			tk.Status = status
			t.state.tickets[id] = tk
			n++
		}
	}
	return n, nil
}

func (t tickets) ForbidReassignment(ctx context.Context, ids []int64) (int64, error) {
	if err := t.fault("tickets.forbid_reassignment"); err != nil {
		return 0, err
	}
	var n int64
	for _, id := range ids {
		tk, ok := t.state.tickets[id]
		if !ok {
			continue
		}
		tk.LockedAssignment = true
		t.state.tickets[id] = tk
		n++
	}
	return n, nil
}

func (t tickets) UpdateMetadata(ctx context.Context, id int64, c domain.MetadataContainer) error {
	tk, ok := t.state.tickets[id]
	if !ok {
		return errors.Wrapf(domain.ErrNotFound, "ticket %d", id)
	}
	tk.Metadata = c.Copy()
	t.state.tickets[id] = tk
	return nil
}

func (t tickets) FindCategory(ctx context.Context, id int64) (domain.TicketCategory, error) {
	c, ok := t.state.categories[id]
	if !ok {
		return domain.TicketCategory{}, errors.Wrapf(domain.ErrNotFound, "ticket category %d", id)
	}
	return c, nil
}

type additionalItems struct{ *tx }

func (a additionalItems) UpdateStatusForReservation(ctx context.Context, reservationID string, status domain.AdditionalServiceItemStatus) (int64, error) {
	var n int64
	for id, item := range a.state.items {
		if item.ReservationID == reservationID {
			item.Status = status
			a.state.items[id] = item
			n++
		}
	}
	return n, nil
}

type subscriptions struct{ *tx }

func (s subscriptions) FindByReservationID(ctx context.Context, reservationID string) ([]domain.Subscription, error) {
	var out []domain.Subscription
	for _, sub := range s.state.subscriptions {
		if sub.ReservationID == reservationID {
			out = append(out, sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s subscriptions) Confirm(ctx context.Context, reservationID string, c domain.SubscriptionConfirmation) (int64, error) {
	if err := s.fault("subscriptions.confirm"); err != nil {
		return 0, err
	}
	var n int64
	for id, sub := range s.state.subscriptions {
		if sub.ReservationID != reservationID {
			continue
		}
		sub.Status = c.Status
		sub.FirstName = c.FirstName
		sub.LastName = c.LastName
		sub.Email = c.Email
		sub.MaxEntries = c.MaxEntries
		sub.ValidityFrom = c.ValidityFrom
		sub.ValidityTo = c.ValidityTo
		ts := c.ConfirmationTS
		sub.ConfirmationTS = &ts
		sub.TimeZone = c.TimeZone
		s.state.subscriptions[id] = sub
		n++
	}
	return n, nil
}

func (s subscriptions) Metadata(ctx context.Context, id string) (domain.SubscriptionMetadata, error) {
	md := s.state.subMetadata[id]
	return domain.SubscriptionMetadata{Properties: copyStrings(md.Properties)}, nil
}

func (s subscriptions) SetMetadata(ctx context.Context, id string, md domain.SubscriptionMetadata) error {
	if _, ok := s.state.subscriptions[id]; !ok {
		return errors.Wrapf(domain.ErrNotFound, "subscription %s", id)
	}
	s.state.subMetadata[id] = domain.SubscriptionMetadata{Properties: copyStrings(md.Properties)}
	return nil
}

type transactions struct{ *tx }

func (t transactions) FindByReservationID(ctx context.Context, reservationID string) (*domain.Transaction, error) {
	tr, ok := t.state.transactions[reservationID]
	if !ok {
		return nil, nil
	}
	tr.Metadata = copyStrings(tr.Metadata)
	return &tr, nil
}

func (t transactions) Insert(ctx context.Context, tr domain.Transaction) error {
	if err := t.fault("transactions.insert"); err != nil {
		return err
	}
	if _, ok := t.state.transactions[tr.ReservationID]; ok {
		return errors.Wrapf(domain.ErrConflict, "transaction for reservation %s", tr.ReservationID)
	}
	t.state.nextTxID++
	tr.ID = t.state.nextTxID
	tr.Metadata = copyStrings(tr.Metadata)
	t.state.transactions[tr.ReservationID] = tr
	return nil
}

func (t transactions) Update(ctx context.Context, id int64, u domain.TransactionUpdate) (int64, error) {
	for k, tr := range t.state.transactions {
		if tr.ID != id {
			continue
		}
		tr.TransactionID = u.TransactionID
		tr.PaymentID = u.PaymentID
		tr.Timestamp = u.Timestamp
		tr.PlatformFee = u.PlatformFee
		tr.GatewayFee = u.GatewayFee
		tr.Status = u.Status
		tr.Metadata = copyStrings(u.Metadata)
		t.state.transactions[k] = tr
		return 1, nil
	}
	return 0, nil
}

type audit struct{ *tx }

func (a audit) Insert(ctx context.Context, e domain.AuditEvent) error {
	if err := a.fault("audit.insert"); err != nil {
		return err
	}
	a.state.audit = append(a.state.audit, e)
	return nil
}

type specialPrices struct{ *tx }

func (s specialPrices) MarkTakenForReservations(ctx context.Context, reservationIDs []string) (int64, error) {
	wanted := make(map[string]struct{}, len(reservationIDs))
	for _, id := range reservationIDs {
		wanted[id] = struct{}{}
	}
	var n int64
	for code, sp := range s.state.specialPrices {
		if _, ok := wanted[sp.reservationID]; ok {
			sp.status = "TAKEN"
			s.state.specialPrices[code] = sp
			n++
		}
	}
	return n, nil
}

type users struct{ *tx }

func (u users) FindIDByUsername(ctx context.Context, username string) (*int64, error) {
	id, ok := u.state.users[username]
	if !ok {
		return nil, nil
	}
	return &id, nil
}

type outbox struct{ *tx }

func (o outbox) Enqueue(ctx context.Context, msg domain.OutboxMessage) error {
	if err := o.fault("outbox.enqueue"); err != nil {
		return err
	}
	for _, existing := range o.state.outbox {
		if msg.DedupeKey != "" && existing.DedupeKey == msg.DedupeKey {
			return nil
		}
	}
	o.state.outbox = append(o.state.outbox, msg)
	return nil
}
