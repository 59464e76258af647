package memory

import (
	"context"
	"sync"

	"github.com/robertarktes/reservation-finalizer/internal/domain"
)

type BillingDocuments struct {
	mu   sync.Mutex
	docs map[string]domain.BillingDocument
}

func NewBillingDocuments() *BillingDocuments {
	return &BillingDocuments{docs: map[string]domain.BillingDocument{}}
}

func (b *BillingDocuments) Save(ctx context.Context, doc domain.BillingDocument) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.docs[doc.ReservationID] = doc
	return nil
}

func (b *BillingDocuments) Get(reservationID string) (domain.BillingDocument, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, ok := b.docs[reservationID]
	return d, ok
}
