package authctx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"github.com/pulsegrid/pulsegrid/pkg/apikey"
)

// cacheTTL bounds how stale a disabled key's cached validity can be; the
// spec allows eventual invalidation within a few seconds of disable.
const cacheTTL = 5 * time.Second

var errInvalidKey = errors.New("invalid or disabled api key")

// Authenticator validates raw API keys against the database, with a
// short-lived Redis cache on the hot path.
type Authenticator struct {
	store *apikey.Store
	rdb   *redis.Client
}

// NewAuthenticator creates an Authenticator. rdb may be nil, in which case
// every lookup goes straight to the database.
func NewAuthenticator(store *apikey.Store, rdb *redis.Client) *Authenticator {
	return &Authenticator{store: store, rdb: rdb}
}

type cachedIdentity struct {
	ClientID  uuid.UUID  `json:"client_id"`
	APIKeyID  uuid.UUID  `json:"api_key_id"`
	MachineID *uuid.UUID `json:"machine_id,omitempty"`
}

// Authenticate hashes rawKey, resolves it to an Identity, and verifies the
// key is active. It touches last_used_at asynchronously on cache misses.
func (a *Authenticator) Authenticate(ctx context.Context, rawKey string) (*Identity, error) {
	if rawKey == "" {
		return nil, errors.New("empty API key")
	}

	hash := apikey.HashAPIKey(rawKey)
	cacheKey := "apikey:" + hash

	if a.rdb != nil {
		if raw, err := a.rdb.Get(ctx, cacheKey).Result(); err == nil {
			var cached cachedIdentity
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				if cached.ClientID == uuid.Nil {
					return nil, errInvalidKey
				}
				return &Identity{
					ClientID:  cached.ClientID,
					APIKeyID:  cached.APIKeyID,
					MachineID: cached.MachineID,
					Method:    MethodAPIKey,
				}, nil
			}
		}
	}

	row, err := a.store.GetByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			a.cacheNegative(ctx, cacheKey)
			return nil, errInvalidKey
		}
		return nil, fmt.Errorf("looking up api key: %w", err)
	}

	if !row.IsActive {
		a.cacheNegative(ctx, cacheKey)
		return nil, errInvalidKey
	}

	go func() {
		_ = a.store.TouchLastUsed(context.Background(), row.ID)
	}()

	a.cachePositive(ctx, cacheKey, row)

	return &Identity{
		ClientID:  row.ClientID,
		APIKeyID:  row.ID,
		MachineID: row.MachineID,
		Method:    MethodAPIKey,
	}, nil
}

func (a *Authenticator) cachePositive(ctx context.Context, cacheKey string, row apikey.Row) {
	if a.rdb == nil {
		return
	}
	payload, err := json.Marshal(cachedIdentity{
		ClientID:  row.ClientID,
		APIKeyID:  row.ID,
		MachineID: row.MachineID,
	})
	if err != nil {
		return
	}
	a.rdb.Set(ctx, cacheKey, payload, cacheTTL)
}

func (a *Authenticator) cacheNegative(ctx context.Context, cacheKey string) {
	if a.rdb == nil {
		return
	}
	payload, _ := json.Marshal(cachedIdentity{})
	a.rdb.Set(ctx, cacheKey, payload, cacheTTL)
}
