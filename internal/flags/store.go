package flags

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// All flags live as fields of one hash so listing is a single HGETALL.
const (
	hashKey    = "drift:flags"
	maxNoteLen = 256
)

var keyRe = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,128}$`)

// Store persists flags in Redis.
type Store struct {
	client redis.Cmdable
}

func NewStore(client redis.Cmdable) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	return &Store{client: client}, nil
}

func ValidateKey(key string) error {
	if !keyRe.MatchString(key) {
		return fmt.Errorf("invalid flag key %q", key)
	}
	return nil
}

func (s *Store) Upsert(ctx context.Context, key string, value bool, note string) (*Flag, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	if len(note) > maxNoteLen {
		return nil, fmt.Errorf("%w: max %d characters", ErrNoteTooLong, maxNoteLen)
	}

	f := &Flag{Key: key, Value: value, Note: note, UpdatedAt: time.Now().UTC()}
	raw, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encode flag %s: %w", key, err)
	}
	if err := s.client.HSet(ctx, hashKey, key, raw).Err(); err != nil {
		return nil, fmt.Errorf("store flag %s: %w", key, err)
	}
	f.Description = Describe(key)
	return f, nil
}

func (s *Store) Get(ctx context.Context, key string) (*Flag, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	raw, err := s.client.HGet(ctx, hashKey, key).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("read flag %s: %w", key, err)
	}
	return decodeFlag(key, raw)
}

// Enabled reports the flag value; an unset flag is false.
func (s *Store) Enabled(ctx context.Context, key string) (bool, error) {
	f, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return f.Value, nil
}

// List returns every stored flag ordered by key. Undecodable entries are skipped.
func (s *Store) List(ctx context.Context) ([]*Flag, error) {
	all, err := s.client.HGetAll(ctx, hashKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list flags: %w", err)
	}
	out := make([]*Flag, 0, len(all))
	for key, raw := range all {
		f, err := decodeFlag(key, raw)
		if err != nil {
			continue
		}
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Delete removes key. Deleting an unset flag is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := s.client.HDel(ctx, hashKey, key).Err(); err != nil {
		return fmt.Errorf("delete flag %s: %w", key, err)
	}
	return nil
}

func decodeFlag(key, raw string) (*Flag, error) {
	var f Flag
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		return nil, fmt.Errorf("decode flag %s: %w", key, err)
	}
	f.Key = key
	f.Description = Describe(key)
	return &f, nil
}
