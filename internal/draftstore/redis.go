package draftstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/johnrirwin/gemlisting/internal/models"
)

const defaultRedisTimeout = 2 * time.Second

// RedisStore keeps the descriptor under a fixed Redis key. The key expires
// with the descriptor so stale drafts do not linger.
type RedisStore struct {
	client *redis.Client
	key    string
	now    func() time.Time
}

// NewRedisStore creates a Redis-backed store using the default key
func NewRedisStore(client *redis.Client) *RedisStore {
	return NewRedisStoreWithKey(client, Key)
}

// NewRedisStoreWithKey creates a Redis-backed store with an explicit key, e.g. per user
func NewRedisStoreWithKey(client *redis.Client, key string) *RedisStore {
	key = strings.TrimSpace(key)
	if key == "" {
		key = Key
	}
	return &RedisStore{client: client, key: key, now: time.Now}
}

func (s *RedisStore) Save(ctx context.Context, d models.StoredCertificateDescriptor) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to encode lab report draft: %w", err)
	}

	ttl := d.UploadedAt.Add(models.CertificateDraftTTL).Sub(s.now())
	if ttl < time.Second {
		ttl = time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, defaultRedisTimeout)
	defer cancel()

	if err := s.client.Set(ctx, s.key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store lab report draft: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context) (*models.StoredCertificateDescriptor, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultRedisTimeout)
	defer cancel()

	payload, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load lab report draft: %w", err)
	}

	var d models.StoredCertificateDescriptor
	if err := json.Unmarshal(payload, &d); err != nil {
		s.client.Del(ctx, s.key)
		return nil, nil
	}
	return &d, nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultRedisTimeout)
	defer cancel()

	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to clear lab report draft: %w", err)
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
