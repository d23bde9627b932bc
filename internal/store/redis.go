package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/podushkina/notifyqueue/internal/job"
	"github.com/redis/go-redis/v9"
)

const jobPrefix = "notifyqueue:job:"

// Redis persists records as JSON strings so they survive a process restart.
// Only one dispatcher may consume a given database.
type Redis struct {
	client *redis.Client
}

func NewRedis(addr, password string, db int) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &Redis{client: client}, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) Add(ctx context.Context, j *job.Job) error {
	if err := r.set(ctx, j); err != nil {
		return fmt.Errorf("add job: %w", err)
	}
	return nil
}

func (r *Redis) Get(ctx context.Context, id string) (*job.Job, error) {
	data, err := r.client.Get(ctx, jobPrefix+id).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("get job: %w", err)
	}

	var j job.Job
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("unmarshal job: %w", err)
	}

	return &j, nil
}

// All returns records in no particular order.
func (r *Redis) All(ctx context.Context) ([]*job.Job, error) {
	var keys []string
	iter := r.client.Scan(ctx, 0, jobPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	if len(keys) == 0 {
		return []*job.Job{}, nil
	}

	pipe := r.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.Get(ctx, key)
	}

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("fetch jobs: %w", err)
	}

	jobs := make([]*job.Job, 0, len(keys))
	for _, cmd := range cmds {
		data, err := cmd.Bytes()
		if err != nil {
			continue
		}

		var j job.Job
		if err := json.Unmarshal(data, &j); err != nil {
			continue
		}
		jobs = append(jobs, &j)
	}

	return jobs, nil
}

func (r *Redis) Update(ctx context.Context, j *job.Job) error {
	if err := r.set(ctx, j); err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, jobPrefix+id).Err(); err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	return nil
}

func (r *Redis) set(ctx context.Context, j *job.Job) error {
	data, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	return r.client.Set(ctx, jobPrefix+j.ID, data, 0).Err()
}
