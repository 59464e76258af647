package mongo

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/reservation-finalizer/internal/domain"
	"github.com/robertarktes/reservation-finalizer/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// CatalogRepository resolves purchase contexts by type and id.
type CatalogRepository struct {
	events        *mongo.Collection
	subscriptions *mongo.Collection
	logger        observability.Logger
}

func NewCatalogRepository(db *mongo.Database, logger observability.Logger) *CatalogRepository {
	return &CatalogRepository{
		events:        db.Collection("events"),
		subscriptions: db.Collection("subscription_descriptors"),
		logger:        logger,
	}
}

type EventDoc struct {
	ID          string    `bson:"_id"`
	ShortName   string    `bson:"short_name"`
	DisplayName string    `bson:"display_name"`
	OrgID       int64     `bson:"organization_id"`
	Currency    string    `bson:"currency"`
	TimeZone    string    `bson:"time_zone"`
	TermsURL    string    `bson:"terms_url,omitempty"`
	PrivacyURL  string    `bson:"privacy_url,omitempty"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

type SubscriptionDescriptorDoc struct {
	ID               string     `bson:"_id"`
	Title            string     `bson:"title"`
	OrgID            int64      `bson:"organization_id"`
	Currency         string     `bson:"currency"`
	TimeZone         string     `bson:"time_zone"`
	TermsURL         string     `bson:"terms_url,omitempty"`
	PrivacyURL       string     `bson:"privacy_url,omitempty"`
	MaxEntries       int        `bson:"max_entries"`
	ValidityFrom     *time.Time `bson:"validity_from,omitempty"`
	ValidityTo       *time.Time `bson:"validity_to,omitempty"`
	ValidityUnits    *int       `bson:"validity_units,omitempty"`
	ValidityTimeUnit string     `bson:"validity_time_unit,omitempty"`
	CreatedAt        time.Time  `bson:"created_at"`
	UpdatedAt        time.Time  `bson:"updated_at"`
}

func (d EventDoc) toDomain() domain.Event {
	return domain.Event{
		EventID:      d.ID,
		ShortName:    d.ShortName,
		DisplayName:  d.DisplayName,
		OrgID:        d.OrgID,
		CurrencyCode: d.Currency,
		TimeZone:     d.TimeZone,
		TermsURL:     d.TermsURL,
		PrivacyURL:   d.PrivacyURL,
	}
}

func (d SubscriptionDescriptorDoc) toDomain() domain.SubscriptionDescriptor {
	return domain.SubscriptionDescriptor{
		DescriptorID:     d.ID,
		Title:            d.Title,
		OrgID:            d.OrgID,
		CurrencyCode:     d.Currency,
		TimeZone:         d.TimeZone,
		TermsURL:         d.TermsURL,
		PrivacyURL:       d.PrivacyURL,
		MaxEntries:       d.MaxEntries,
		ValidityFrom:     d.ValidityFrom,
		ValidityTo:       d.ValidityTo,
		ValidityUnits:    d.ValidityUnits,
		ValidityTimeUnit: domain.SubscriptionTimeUnit(d.ValidityTimeUnit),
	}
}

func (c *CatalogRepository) PurchaseContext(ctx context.Context, t domain.PurchaseContextType, id string) (domain.PurchaseContext, error) {
	switch t {
	case domain.PurchaseContextEvent:
		var doc EventDoc
		if err := find(ctx, c.events, id, &doc); err != nil {
			c.logger.Error("failed to get event", err)
			return nil, err
		}
		return doc.toDomain(), nil
	case domain.PurchaseContextSubscription:
		var doc SubscriptionDescriptorDoc
		if err := find(ctx, c.subscriptions, id, &doc); err != nil {
			c.logger.Error("failed to get subscription descriptor", err)
			return nil, err
		}
		return doc.toDomain(), nil
	default:
		return nil, errors.Mark(errors.Newf("purchase context type %q", t), domain.ErrUnsupportedPurchaseContext)
	}
}

func find(ctx context.Context, coll *mongo.Collection, id string, out interface{}) error {
	err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return errors.Mark(errors.Newf("%s %s", coll.Name(), id), domain.ErrNotFound)
	}
	return errors.Wrapf(err, "find %s %s", coll.Name(), id)
}

func (c *CatalogRepository) CreateEvent(ctx context.Context, event EventDoc) error {
	event.CreatedAt = time.Now()
	event.UpdatedAt = event.CreatedAt
	if _, err := c.events.InsertOne(ctx, event); err != nil {
		c.logger.Error("failed to create event", err)
		return errors.Wrap(err, "insert event")
	}
	return nil
}

func (c *CatalogRepository) CreateSubscriptionDescriptor(ctx context.Context, d SubscriptionDescriptorDoc) error {
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt
	if _, err := c.subscriptions.InsertOne(ctx, d); err != nil {
		c.logger.Error("failed to create subscription descriptor", err)
		return errors.Wrap(err, "insert subscription descriptor")
	}
	return nil
}
