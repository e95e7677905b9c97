package ingest

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"rulesmith/internal/normalizer"
)

// PriorityStore keeps priority words in a Redis set so several runs and
// machines share one list.
type PriorityStore struct {
	client *redis.Client
	key    string
}

// NewPriorityStore wraps client. An empty key uses "rulesmith:priority".
func NewPriorityStore(client *redis.Client, key string) *PriorityStore {
	if key == "" {
		key = "rulesmith:priority"
	}
	return &PriorityStore{client: client, key: key}
}

// DialPriorityStore connects to the Redis server at addr.
func DialPriorityStore(addr string, db int, key string) *PriorityStore {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	return NewPriorityStore(client, key)
}

// Key returns the Redis set name.
func (ps *PriorityStore) Key() string {
	return ps.key
}

// Add normalizes and inserts words.
func (ps *PriorityStore) Add(ctx context.Context, words ...string) error {
	members := normalizedMembers(words)
	if len(members) == 0 {
		return nil
	}
	if err := ps.client.SAdd(ctx, ps.key, members...).Err(); err != nil {
		return fmt.Errorf("add priority words: %w", err)
	}
	return nil
}

// Remove deletes words.
func (ps *PriorityStore) Remove(ctx context.Context, words ...string) error {
	members := normalizedMembers(words)
	if len(members) == 0 {
		return nil
	}
	if err := ps.client.SRem(ctx, ps.key, members...).Err(); err != nil {
		return fmt.Errorf("remove priority words: %w", err)
	}
	return nil
}

// Words returns every stored word, sorted.
func (ps *PriorityStore) Words(ctx context.Context) ([]string, error) {
	words, err := ps.client.SMembers(ctx, ps.key).Result()
	if err != nil {
		return nil, fmt.Errorf("read priority words from %s: %w", ps.key, err)
	}
	return normalizer.NormalizeAll(sortStrings(words)), nil
}

// Close releases the client.
func (ps *PriorityStore) Close() error {
	return ps.client.Close()
}

// LoadPriorityFile reads a plain word list of priority words.
func LoadPriorityFile(filePath string) ([]string, error) {
	list, err := IngestWordList(filePath, IngestConfig{Category: "priority", MinLength: 1})
	if err != nil {
		return nil, err
	}
	return list.Words, nil
}

// PrioritySet builds the lookup the solver uses from any number of sources.
func PrioritySet(sources ...[]string) map[string]bool {
	out := make(map[string]bool)
	for _, src := range sources {
		for _, w := range normalizer.NormalizeAll(src) {
			out[w] = true
		}
	}
	return out
}

func normalizedMembers(words []string) []interface{} {
	norm := normalizer.NormalizeAll(words)
	members := make([]interface{}, len(norm))
	for i, w := range norm {
		members[i] = w
	}
	return members
}

func sortStrings(s []string) []string {
	m := make(map[string]bool, len(s))
	for _, w := range s {
		m[w] = true
	}
	return sortedKeys(m)
}
