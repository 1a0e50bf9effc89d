package capability

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/aryan0dhankhar/droplog/pkg/cache"
)

// CachedCodec remembers successful validations. Tokens are never revoked,
// so a positive answer stays true; failures are always recomputed.
type CachedCodec struct {
	Codec
	hits *cache.Cache[bool]
	ttl  time.Duration
}

// NewCachedCodec wraps inner with a cache of at most maxEntries positive results
func NewCachedCodec(inner Codec, maxEntries int, ttl time.Duration) *CachedCodec {
	return &CachedCodec{
		Codec: inner,
		hits:  cache.New[bool](maxEntries),
		ttl:   ttl,
	}
}

func (c *CachedCodec) Validate(token, namespace string) bool {
	key := validationKey(token, namespace)
	if _, ok := c.hits.Get(key); ok {
		return true
	}
	if !c.Codec.Validate(token, namespace) {
		return false
	}
	c.hits.Set(key, true, c.ttl)
	return true
}

func validationKey(token, namespace string) string {
	h := sha256.New()
	h.Write([]byte(namespace))
	h.Write([]byte{0})
	h.Write([]byte(token))
	return hex.EncodeToString(h.Sum(nil))
}
