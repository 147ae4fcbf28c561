package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/formflow/formflow-go/form"
)

// RedisStore implements SubmissionStore on Redis, for short-lived anonymous
// fill sessions. In-progress records expire after SessionTTL of inactivity;
// completed records are kept without expiry so downstream export can pick
// them up.
type RedisStore struct {
	client *redis.Client
	config RedisConfig
}

// RedisConfig configures the Redis storage backend.
type RedisConfig struct {
	Addr       string        `yaml:"addr"`
	DB         int           `yaml:"db"`
	Password   string        `yaml:"password"`
	SessionTTL time.Duration `yaml:"session_ttl"`
	KeyPrefix  string        `yaml:"key_prefix"`
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, config RedisConfig) (*RedisStore, error) {
	if config.Addr == "" {
		config.Addr = "localhost:6379"
	}
	if config.SessionTTL == 0 {
		config.SessionTTL = 24 * time.Hour
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = "formflow"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		DB:       config.DB,
		Password: config.Password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return &RedisStore{client: client, config: config}, nil
}

// Close releases the client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) submissionKey(id string) string {
	return fmt.Sprintf("%s:submission:%s", r.config.KeyPrefix, id)
}

func (r *RedisStore) formIndexKey(formSlug string) string {
	return fmt.Sprintf("%s:form:%s:submissions", r.config.KeyPrefix, formSlug)
}

func (r *RedisStore) CreateSubmission(ctx context.Context, formSlug string) (*Submission, error) {
	now := time.Now().UTC()
	sub := &Submission{
		ID:        uuid.NewString(),
		Form:      formSlug,
		Status:    StatusInProgress,
		Data:      form.AnswerMap{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.write(ctx, sub); err != nil {
		return nil, err
	}
	if err := r.client.SAdd(ctx, r.formIndexKey(formSlug), sub.ID).Err(); err != nil {
		return nil, fmt.Errorf("failed to index submission: %w", err)
	}
	return sub, nil
}

func (r *RedisStore) GetSubmission(ctx context.Context, id string) (*Submission, error) {
	data, err := r.client.Get(ctx, r.submissionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("submission %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read submission: %w", err)
	}
	sub := &Submission{}
	if err := json.Unmarshal(data, sub); err != nil {
		return nil, fmt.Errorf("failed to decode submission: %w", err)
	}
	return sub, nil
}

func (r *RedisStore) UpdateSubmission(ctx context.Context, id string, partial form.AnswerMap) (*Submission, error) {
	sub, err := r.GetSubmission(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.Status == StatusComplete {
		return nil, ErrCompleted
	}
	sub.Data = mergeAnswers(sub.Data, partial)
	sub.UpdatedAt = time.Now().UTC()
	if err := r.write(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (r *RedisStore) SubmitForm(ctx context.Context, id string, full form.AnswerMap) (*Submission, error) {
	sub, err := r.GetSubmission(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.Status == StatusComplete {
		return nil, ErrCompleted
	}
	sub.Data = full.Clone()
	sub.Status = StatusComplete
	sub.UpdatedAt = time.Now().UTC()
	if err := r.write(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// ListSubmissions reads the form's index set. This backend has no global
// index, so an empty form slug lists nothing.
func (r *RedisStore) ListSubmissions(ctx context.Context, formSlug string) ([]*Submission, error) {
	ids, err := r.client.SMembers(ctx, r.formIndexKey(formSlug)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	var out []*Submission
	for _, id := range ids {
		sub, err := r.GetSubmission(ctx, id)
		if errors.Is(err, ErrNotFound) {
			// Expired session; drop it from the index.
			r.client.SRem(ctx, r.formIndexKey(formSlug), id)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, nil
}

func (r *RedisStore) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// write stores the record, refreshing the inactivity TTL for in-progress
// sessions and clearing it once complete.
func (r *RedisStore) write(ctx context.Context, sub *Submission) error {
	data, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("failed to encode submission: %w", err)
	}
	ttl := r.config.SessionTTL
	if sub.Status == StatusComplete {
		ttl = 0
	}
	if err := r.client.Set(ctx, r.submissionKey(sub.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write submission: %w", err)
	}
	return nil
}
