package crdb

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robertarktes/reservation-finalizer/internal/domain"
)

// Configuration resolves configuration keys from the configuration table.
// For each key the most specific scope applicable to the requested level wins.
type Configuration struct {
	pool *pgxpool.Pool
}

func NewConfiguration(pool *pgxpool.Pool) *Configuration {
	return &Configuration{pool: pool}
}

func (c *Configuration) GetFor(ctx context.Context, keys []domain.ConfigurationKey, level domain.ConfigurationLevel) (domain.ConfigurationValues, error) {
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = string(k)
	}
	rows, err := c.pool.Query(ctx, `
		SELECT c_key, c_value, scope, organization_id, purchase_context_id
		FROM configuration
		WHERE c_key = ANY($1)
		  AND (scope = 'SYSTEM'
		       OR (scope = 'ORGANIZATION' AND organization_id = $2)
		       OR (scope = 'PURCHASE_CONTEXT' AND organization_id = $2 AND purchase_context_id = $3))
	`, names, level.OrganizationID, level.PurchaseContextID)
	if err != nil {
		return nil, errors.Wrap(err, "query configuration")
	}
	defer rows.Close()

	out := make(domain.ConfigurationValues, len(keys))
	best := make(map[domain.ConfigurationKey]int, len(keys))
	for _, k := range keys {
		out[k] = domain.ConfigurationValue{Key: k}
		best[k] = -1
	}
	for rows.Next() {
		var key, value, scope, pcID string
		var orgID int64
		if err := rows.Scan(&key, &value, &scope, &orgID, &pcID); err != nil {
			return nil, errors.Wrap(err, "scan configuration")
		}
		stored := domain.ConfigurationLevel{Scope: domain.ConfigurationScope(scope), OrganizationID: orgID, PurchaseContextID: pcID}
		if !stored.Covers(level) {
			continue
		}
		k := domain.ConfigurationKey(key)
		if p := stored.Scope.Priority(); p > best[k] {
			best[k] = p
			out[k] = domain.ConfigurationValue{Key: k, Value: value, Present: true}
		}
	}
	return out, rows.Err()
}

// Set upserts a configuration value at level.
func (c *Configuration) Set(ctx context.Context, level domain.ConfigurationLevel, key domain.ConfigurationKey, value string) error {
	_, err := c.pool.Exec(ctx, `
		INSERT INTO configuration (c_key, c_value, scope, organization_id, purchase_context_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (c_key, scope, organization_id, purchase_context_id) DO UPDATE SET c_value = excluded.c_value
	`, string(key), value, string(level.Scope), level.OrganizationID, level.PurchaseContextID)
	return errors.Wrapf(err, "set configuration %s", key)
}
