package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/forgeff/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/forgeff/pkg/errors"
)

const labelKeyPrefix = "forgeff:labels:"

// commands is the slice of the go-redis client the cache needs, kept small
// so tests can fake it.
type commands interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// LabelCache caches parameter labelings keyed by force field and molecule.
// Values are JSON; entries expire so fitted force fields are re-labelled.
type LabelCache struct {
	client commands
	ttl    time.Duration
	log    logging.Logger
}

func NewLabelCache(client *redis.Client, ttl time.Duration, log logging.Logger) *LabelCache {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &LabelCache{client: client, ttl: ttl, log: log.Named("label_cache")}
}

// cacheKey hashes the caller key so arbitrary SMILES stay within redis key
// length conventions.
func cacheKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return labelKeyPrefix + hex.EncodeToString(sum[:16])
}

func (c *LabelCache) GetLabels(ctx context.Context, key string) (map[string]map[string]string, bool, error) {
	data, err := c.client.Get(ctx, cacheKey(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, errors.CodeCacheError, "get labels")
	}
	var labels map[string]map[string]string
	if err := json.Unmarshal(data, &labels); err != nil {
		return nil, false, errors.Wrap(err, errors.CodeSerialization, "decode cached labels")
	}
	return labels, true, nil
}

func (c *LabelCache) SetLabels(ctx context.Context, key string, labels map[string]map[string]string) error {
	data, err := json.Marshal(labels)
	if err != nil {
		return errors.Wrap(err, errors.CodeSerialization, "encode labels")
	}
	if err := c.client.Set(ctx, cacheKey(key), data, c.ttl).Err(); err != nil {
		return errors.Wrap(err, errors.CodeCacheError, "set labels")
	}
	return nil
}
