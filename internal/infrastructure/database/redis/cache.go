package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/turtacn/liposome-ivr/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/liposome-ivr/pkg/errors"
)

var ErrSerializationFailed = errors.New(errors.ErrCodeSerialization, "descriptor cache entry is corrupt")

// DescriptorCache stores fully computed descriptor vectors keyed by the
// canonical input SMILES and the ordered descriptor set.  Vectors with any
// failed descriptor are never stored, so a hit always carries every name.
type DescriptorCache struct {
	client *Client
	logger logging.Logger
	ttl    time.Duration
	group  singleflight.Group
}

// NewDescriptorCache returns a cache whose entries expire after ttl.  A zero
// ttl keeps entries until evicted.
func NewDescriptorCache(client *Client, ttl time.Duration, log logging.Logger) *DescriptorCache {
	return &DescriptorCache{client: client, ttl: ttl, logger: log}
}

func (c *DescriptorCache) key(smiles string, names []string) string {
	sum := sha256.Sum256([]byte(strings.Join(names, ",") + "|" + smiles))
	return c.client.Key("desc", hex.EncodeToString(sum[:]))
}

// Get returns the cached values for smiles.  A miss, or an entry that lacks
// one of names, reports ok=false with a nil error.
func (c *DescriptorCache) Get(ctx context.Context, smiles string, names []string) (map[string]float64, bool, error) {
	key := c.key(smiles, names)
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		data, err := c.client.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return nil, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeCacheError, "failed to read descriptor cache")
		}
		var values map[string]float64
		if err := json.Unmarshal(data, &values); err != nil {
			return nil, ErrSerializationFailed.WithCause(err).WithDetail(key)
		}
		return values, nil
	})
	if err != nil || v == nil {
		return nil, false, err
	}

	values := v.(map[string]float64)
	for _, n := range names {
		if _, ok := values[n]; !ok {
			c.logger.Debug("Descriptor cache entry is incomplete", logging.String("descriptor", n))
			return nil, false, nil
		}
	}
	return values, true, nil
}

// Put stores values for smiles.
func (c *DescriptorCache) Put(ctx context.Context, smiles string, names []string, values map[string]float64) error {
	data, err := json.Marshal(values)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode descriptor values")
	}
	if err := c.client.Set(ctx, c.key(smiles, names), string(data), c.ttl).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to write descriptor cache")
	}
	return nil
}

// Invalidate removes the entry for smiles, if any.
func (c *DescriptorCache) Invalidate(ctx context.Context, smiles string, names []string) error {
	if err := c.client.Del(ctx, c.key(smiles, names)).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to invalidate descriptor cache")
	}
	return nil
}
