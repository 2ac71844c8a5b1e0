package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"task-tracker/backend/internal/models"

	"github.com/gofrs/uuid"
	"github.com/redis/go-redis/v9"
)

// Key layout, all under a configurable prefix:
//
//	<prefix>:user:<id>              user record (JSON)
//	<prefix>:username:<username>    user id, claimed with SETNX
//	<prefix>:task:<id>              task record (JSON)
//	<prefix>:owner:<id>:tasks       sorted set of task ids scored by creation time

type redisKeys struct {
	prefix string
}

func (k redisKeys) user(id uuid.UUID) string {
	return fmt.Sprintf("%s:user:%s", k.prefix, id)
}

func (k redisKeys) username(name string) string {
	return fmt.Sprintf("%s:username:%s", k.prefix, name)
}

func (k redisKeys) task(id uuid.UUID) string {
	return fmt.Sprintf("%s:task:%s", k.prefix, id)
}

func (k redisKeys) ownerTasks(owner uuid.UUID) string {
	return fmt.Sprintf("%s:owner:%s:tasks", k.prefix, owner)
}

// NewRedisStore keeps users and tasks as JSON documents in redis.
func NewRedisStore(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = "tasktracker"
	}
	keys := redisKeys{prefix: prefix}
	return &Store{
		Users: &RedisUserRepository{client: client, keys: keys, now: time.Now},
		Tasks: &RedisTaskRepository{client: client, keys: keys, now: time.Now},
		Ping: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
		Close: client.Close,
	}
}

// userRecord differs from models.User in that it persists the password hash.
type userRecord struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

type RedisUserRepository struct {
	client *redis.Client
	keys   redisKeys
	now    func() time.Time
}

func (r *RedisUserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	rawID, err := r.client.Get(ctx, r.keys.username(username)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user by username: %w", err)
	}
	id, err := uuid.FromString(rawID)
	if err != nil {
		return nil, fmt.Errorf("corrupt username index for %q: %w", username, err)
	}

	data, err := r.client.Get(ctx, r.keys.user(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	var rec userRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &models.User{
		ID:           rec.ID,
		Username:     rec.Username,
		PasswordHash: rec.PasswordHash,
		CreatedAt:    rec.CreatedAt,
	}, nil
}

func (r *RedisUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("generate user id: %w", err)
		}
		user.ID = id
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = r.now().UTC()
	}

	data, err := json.Marshal(userRecord{
		ID:           user.ID,
		Username:     user.Username,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}

	claimed, err := r.client.SetNX(ctx, r.keys.username(user.Username), user.ID.String(), 0).Result()
	if err != nil {
		return fmt.Errorf("claim username: %w", err)
	}
	if !claimed {
		return ErrDuplicate
	}

	if err := r.client.Set(ctx, r.keys.user(user.ID), data, 0).Err(); err != nil {
		r.client.Del(ctx, r.keys.username(user.Username))
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

type RedisTaskRepository struct {
	client *redis.Client
	keys   redisKeys
	now    func() time.Time
}

func (r *RedisTaskRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	data, err := r.client.Get(ctx, r.keys.task(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find task: %w", err)
	}

	var task models.Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("decode task: %w", err)
	}
	return &task, nil
}

func (r *RedisTaskRepository) FindManyByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Task, error) {
	tasks := []models.Task{}

	ids, err := r.client.ZRevRange(ctx, r.keys.ownerTasks(ownerID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	if len(ids) == 0 {
		return tasks, nil
	}

	keys := make([]string, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.FromString(raw)
		if err != nil {
			continue
		}
		keys = append(keys, r.keys.task(id))
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var task models.Task
		if err := json.Unmarshal([]byte(s), &task); err != nil {
			return nil, fmt.Errorf("decode task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func (r *RedisTaskRepository) Create(ctx context.Context, task *models.Task) error {
	if task.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("generate task id: %w", err)
		}
		task.ID = id
	}
	now := r.now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now

	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encode task: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.keys.task(task.ID), data, 0)
		pipe.ZAdd(ctx, r.keys.ownerTasks(task.OwnerID), redis.Z{
			Score:  float64(task.CreatedAt.UnixMicro()),
			Member: task.ID.String(),
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *RedisTaskRepository) Update(ctx context.Context, task *models.Task) error {
	task.UpdatedAt = r.now().UTC()

	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encode task: %w", err)
	}

	// XX only overwrites an existing key, so a concurrently deleted task stays deleted.
	updated, err := r.client.SetXX(ctx, r.keys.task(task.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if !updated {
		return ErrNotFound
	}
	return nil
}

func (r *RedisTaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	task, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}

	var deleted *redis.IntCmd
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		deleted = pipe.Del(ctx, r.keys.task(id))
		pipe.ZRem(ctx, r.keys.ownerTasks(task.OwnerID), id.String())
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if deleted.Val() == 0 {
		return ErrNotFound
	}
	return nil
}
