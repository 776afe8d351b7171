package txstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"sellergate/pkg/platform/sentinel"
)

// RedisStore keeps transaction state in Redis so every gateway replica
// sees the same view. WATCH/MULTI gives the compare-and-swap: a write
// that raced another replica fails the transaction and surfaces as
// sentinel.ErrConflict for the Advance loop to retry.
type RedisStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func stateKey(transactionID string) string {
	return "txstate:" + transactionID
}

func (s *RedisStore) Get(ctx context.Context, transactionID string) (*State, error) {
	raw, err := s.client.Get(ctx, stateKey(transactionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get transaction state: %w", err)
	}
	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("unmarshal transaction state: %w", err)
	}
	return &state, nil
}

func (s *RedisStore) Put(ctx context.Context, state *State) error {
	key := stateKey(state.TransactionID)
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal transaction state: %w", err)
	}

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		var storedVersion int64
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			storedVersion = 0
		case err != nil:
			return fmt.Errorf("read transaction state: %w", err)
		default:
			var current State
			if err := json.Unmarshal(raw, &current); err != nil {
				return fmt.Errorf("unmarshal transaction state: %w", err)
			}
			storedVersion = current.Version
		}

		if storedVersion != state.Version-1 {
			return sentinel.ErrConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		// Key changed between WATCH and EXEC.
		return sentinel.ErrConflict
	}
	return err
}
