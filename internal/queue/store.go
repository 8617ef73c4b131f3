// Package queue layers the exam platform's queue-store contract over the
// Redis client: pending/failure work hashes, dedup sets, the course
// snapshot cache and the course ranking set.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/iamOgunyinka/sproot/internal/model"
	"github.com/iamOgunyinka/sproot/internal/repository"
	"github.com/iamOgunyinka/sproot/pkg/common"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound reports a missing hash field or set member.
var ErrNotFound = errors.New("not found")

type Store struct {
	rdb *repository.RedisClient
}

func NewStore(rdb *repository.RedisClient) *Store {
	return &Store{rdb: rdb}
}

// Snapshot returns the keys currently in a pending hash. The enumeration
// order is store-defined and carries no priority semantics.
func (s *Store) Snapshot(ctx context.Context, hash string) ([]string, error) {
	entries, err := s.rdb.HGetAll(ctx, hash)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	return keys, nil
}

// Fetch reads one pending payload. ErrNotFound means the item vanished
// between snapshot and fetch.
func (s *Store) Fetch(ctx context.Context, hash, key string) (string, error) {
	val, err := s.rdb.HGet(ctx, hash, key)
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

// Enqueue writes a work item; an existing entry under the same key is
// replaced.
func (s *Store) Enqueue(ctx context.Context, hash, key, payload string) error {
	return s.rdb.HSet(ctx, hash, key, payload)
}

// DeadLetter records a failed item in a failure hash.
func (s *Store) DeadLetter(ctx context.Context, hash, key, value string) error {
	return s.rdb.HSet(ctx, hash, key, value)
}

// Remove deletes a pending entry after its single processing attempt.
func (s *Store) Remove(ctx context.Context, hash, key string) error {
	return s.rdb.HDel(ctx, hash, key)
}

// Dedup sets. Membership is an optimization mirroring the relational
// store's uniqueness constraints, never the source of truth.

func (s *Store) AddDedup(ctx context.Context, set, member string) error {
	return s.rdb.SAdd(ctx, set, member)
}

func (s *Store) IsDedupMember(ctx context.Context, set, member string) (bool, error) {
	return s.rdb.SIsMember(ctx, set, member)
}

// Course snapshot cache. Refreshed whenever a course row's displayed
// fields change; eventually consistent.

func (s *Store) RefreshCourseSnapshot(ctx context.Context, snap model.CourseSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.rdb.HSet(ctx, common.KnownCoursesKey, strconv.FormatInt(snap.ID, 10), string(data))
}

func (s *Store) CourseSnapshot(ctx context.Context, courseID int64) (*model.CourseSnapshot, error) {
	raw, err := s.rdb.HGet(ctx, common.KnownCoursesKey, strconv.FormatInt(courseID, 10))
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var snap model.CourseSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *Store) DropCourseSnapshot(ctx context.Context, courseID int64) error {
	return s.rdb.HDel(ctx, common.KnownCoursesKey, strconv.FormatInt(courseID, 10))
}

// Course ranking. Purely derived; rebuildable from the relational store.

func (s *Store) BumpCourseRank(ctx context.Context, courseID int64) error {
	return s.rdb.ZIncrBy(ctx, common.CourseRankKey, 1, strconv.FormatInt(courseID, 10))
}

// TopRankedCourses returns the ids of the most-ranked courses, highest
// score first.
func (s *Store) TopRankedCourses(ctx context.Context, limit int64) ([]int64, error) {
	members, err := s.rdb.ZRevRangeByScore(ctx, common.CourseRankKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   "+inf",
		Count: limit,
	})
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
