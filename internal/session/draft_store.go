// Package session keeps unsaved editor drafts in Redis so an edit session
// can be resumed after a disconnect or a server restart.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNoDraft is returned when no draft is stored for a document and author.
var ErrNoDraft = errors.New("no draft")

// Draft is the latest unsaved HTML of one author's edit session.
type Draft struct {
	DocumentID  string    `json:"document_id"`
	Author      string    `json:"author"`
	HTML        string    `json:"html"`
	BaseVersion int       `json:"base_version"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RedisStore implements draft storage using Redis
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisStore creates a new Redis-backed draft store. Drafts expire ttl
// after their last change.
func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client, ttl), nil
}

// NewRedisStoreWithClient creates a store from an existing Redis client
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &RedisStore{
		client: client,
		prefix: "draft:",
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *RedisStore) key(documentID, author string) string {
	return s.prefix + documentID + ":" + author
}

// SaveDraft stores draft, replacing the author's previous draft of the
// document and resetting its expiry.
func (s *RedisStore) SaveDraft(ctx context.Context, draft Draft) error {
	if draft.UpdatedAt.IsZero() {
		draft.UpdatedAt = s.now().UTC()
	}
	jsonData, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	if err := s.client.Set(ctx, s.key(draft.DocumentID, draft.Author), jsonData, s.ttl).Err(); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

// LoadDraft returns the author's draft of the document or ErrNoDraft.
func (s *RedisStore) LoadDraft(ctx context.Context, documentID, author string) (Draft, error) {
	jsonData, err := s.client.Get(ctx, s.key(documentID, author)).Result()
	if errors.Is(err, redis.Nil) {
		return Draft{}, ErrNoDraft
	}
	if err != nil {
		return Draft{}, fmt.Errorf("load draft: %w", err)
	}

	var draft Draft
	if err := json.Unmarshal([]byte(jsonData), &draft); err != nil {
		return Draft{}, fmt.Errorf("unmarshal draft: %w", err)
	}
	return draft, nil
}

// ListDrafts returns every stored draft of the document, newest first.
func (s *RedisStore) ListDrafts(ctx context.Context, documentID string) ([]Draft, error) {
	var drafts []Draft
	iter := s.client.Scan(ctx, 0, s.prefix+documentID+":*", 100).Iterator()
	for iter.Next(ctx) {
		jsonData, err := s.client.Get(ctx, iter.Val()).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load draft %s: %w", iter.Val(), err)
		}
		var draft Draft
		if err := json.Unmarshal([]byte(jsonData), &draft); err != nil {
			return nil, fmt.Errorf("unmarshal draft %s: %w", iter.Val(), err)
		}
		drafts = append(drafts, draft)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan drafts: %w", err)
	}
	sort.Slice(drafts, func(i, j int) bool {
		return drafts[i].UpdatedAt.After(drafts[j].UpdatedAt)
	})
	return drafts, nil
}

// DeleteDraft removes the author's draft. Deleting a missing draft is not
// an error.
func (s *RedisStore) DeleteDraft(ctx context.Context, documentID, author string) error {
	if err := s.client.Del(ctx, s.key(documentID, author)).Err(); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks if Redis is reachable
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
