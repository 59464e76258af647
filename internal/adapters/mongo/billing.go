package mongo

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/reservation-finalizer/internal/domain"
	"github.com/robertarktes/reservation-finalizer/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type BillingDocuments struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewBillingDocuments(db *mongo.Database, logger observability.Logger) *BillingDocuments {
	return &BillingDocuments{
		coll:   db.Collection("billing_documents"),
		logger: logger,
	}
}

// Save replaces the document of the same reservation, if any.
func (b *BillingDocuments) Save(ctx context.Context, doc domain.BillingDocument) error {
	_, err := b.coll.ReplaceOne(ctx, bson.M{"_id": doc.ReservationID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		b.logger.Error("failed to save billing document", err)
		return errors.Wrapf(err, "save billing document %s", doc.ReservationID)
	}
	return nil
}

func (b *BillingDocuments) Get(ctx context.Context, reservationID string) (domain.BillingDocument, error) {
	var doc domain.BillingDocument
	if err := find(ctx, b.coll, reservationID, &doc); err != nil {
		return domain.BillingDocument{}, err
	}
	return doc, nil
}
