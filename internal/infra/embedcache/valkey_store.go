package embedcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/faq-matcher/internal/domain/faq"
)

// ValkeyStore persists vectors in a Valkey-compatible database as JSON arrays.
type ValkeyStore struct {
	client valkey.Client
	prefix string
	ttl    time.Duration
}

// NewValkeyStore constructs a store. A zero ttl keeps entries forever.
func NewValkeyStore(client valkey.Client, prefix string, ttl time.Duration) *ValkeyStore {
	if prefix == "" {
		prefix = "faq:emb"
	}
	return &ValkeyStore{client: client, prefix: prefix, ttl: ttl}
}

// GetMany implements faq.EmbeddingCache. Keys are fetched with pipelined GETs
// rather than MGET so they may live in different cluster slots.
func (s *ValkeyStore) GetMany(ctx context.Context, keys []string) (map[string][]float32, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	cmds := make(valkey.Commands, len(keys))
	for i, key := range keys {
		cmds[i] = s.client.B().Get().Key(s.entryKey(key)).Build()
	}
	out := make(map[string][]float32, len(keys))
	for i, resp := range s.client.DoMulti(ctx, cmds...) {
		payload, err := resp.ToString()
		if err != nil {
			if valkey.IsValkeyNil(err) {
				continue
			}
			return nil, err
		}
		var vec []float32
		if err := json.Unmarshal([]byte(payload), &vec); err != nil {
			return nil, fmt.Errorf("decode cached vector %s: %w", keys[i], err)
		}
		out[keys[i]] = vec
	}
	return out, nil
}

// PutMany implements faq.EmbeddingCache.
func (s *ValkeyStore) PutMany(ctx context.Context, vectors map[string][]float32) error {
	if len(vectors) == 0 {
		return nil
	}
	cmds := make(valkey.Commands, 0, len(vectors))
	for key, vec := range vectors {
		payload, err := json.Marshal(vec)
		if err != nil {
			return err
		}
		builder := s.client.B().Set().Key(s.entryKey(key)).Value(string(payload))
		if s.ttl > 0 {
			ttl := s.ttl
			if ttl < time.Second {
				ttl = time.Second
			}
			cmds = append(cmds, builder.Ex(ttl).Build())
		} else {
			cmds = append(cmds, builder.Build())
		}
	}
	for _, resp := range s.client.DoMulti(ctx, cmds...) {
		if err := resp.Error(); err != nil {
			return err
		}
	}
	return nil
}

func (s *ValkeyStore) entryKey(key string) string {
	return fmt.Sprintf("%s:%s", s.prefix, key)
}

var _ faq.EmbeddingCache = (*ValkeyStore)(nil)
