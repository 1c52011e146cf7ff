package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/oakmart/orderd/internal/domain/auth"
)

const getAPIKeyByHashSQL = `SELECT key_hash, user_id FROM api_keys WHERE key_hash = $1`

var _ auth.Repository = (*APIKeyRepository)(nil)

// APIKeyRepository provides API key lookups backed by PostgreSQL.
type APIKeyRepository struct {
	q Querier
}

// NewAPIKeyRepository returns an APIKeyRepository that uses the given querier.
func NewAPIKeyRepository(q Querier) *APIKeyRepository {
	return &APIKeyRepository{q: q}
}

// FindByHash looks up an API key by its HMAC-SHA256 hash.
func (r *APIKeyRepository) FindByHash(ctx context.Context, hash string) (*auth.KeyInfo, error) {
	var info auth.KeyInfo
	err := r.q.QueryRow(ctx, getAPIKeyByHashSQL, hash).Scan(&info.KeyHash, &info.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrKeyNotFound
		}
		return nil, fmt.Errorf("finding api key by hash: %w", err)
	}
	return &info, nil
}
