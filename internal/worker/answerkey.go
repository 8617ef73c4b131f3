package worker

import (
	"container/list"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/iamOgunyinka/sproot/pkg/observability"
)

// objectGetter is what AnswerKeyManager needs from the blob store.
type objectGetter interface {
	GetObject(ctx context.Context, object string) (io.ReadCloser, error)
}

type cachedKey struct {
	object   string
	answers  []int
	fetched  time.Time
	lruEntry *list.Element
}

// AnswerKeyManager loads course answer keys from the blob store with an
// in-process LRU cache. Concurrent loads of the same object collapse to
// one fetch.
type AnswerKeyManager struct {
	store objectGetter

	maxEntries int
	ttl        time.Duration
	now        func() time.Time

	mu    sync.Mutex
	cache map[string]*cachedKey
	lru   *list.List

	group singleflight.Group
	log   *slog.Logger
}

func NewAnswerKeyManager(store objectGetter, maxEntries int, ttl time.Duration) *AnswerKeyManager {
	return &AnswerKeyManager{
		store:      store,
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
		cache:      make(map[string]*cachedKey),
		lru:        list.New(),
		log:        observability.Logger().With("component", "answer_keys"),
	}
}

// Load returns the ordered answer key stored in object.
func (m *AnswerKeyManager) Load(ctx context.Context, object string) ([]int, error) {
	if answers, ok := m.cached(object); ok {
		return answers, nil
	}

	v, err, _ := m.group.Do(object, func() (interface{}, error) {
		// Another waiter may have populated the cache first.
		if answers, ok := m.cached(object); ok {
			return answers, nil
		}
		answers, err := m.fetch(ctx, object)
		if err != nil {
			return nil, err
		}
		m.put(object, answers)
		return answers, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]int), nil
}

func (m *AnswerKeyManager) fetch(ctx context.Context, object string) ([]int, error) {
	rc, err := m.store.GetObject(ctx, object)
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", object, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", object, err)
	}

	var answers []int
	if err := json.Unmarshal(data, &answers); err != nil {
		return nil, fmt.Errorf("object %s is not an answer-key array: %w", object, err)
	}
	m.log.Debug("answer key loaded", "object", object, "questions", len(answers))
	return answers, nil
}

func (m *AnswerKeyManager) cached(object string) ([]int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.cache[object]
	if !ok {
		return nil, false
	}
	if m.ttl > 0 && m.now().Sub(entry.fetched) > m.ttl {
		m.lru.Remove(entry.lruEntry)
		delete(m.cache, object)
		return nil, false
	}
	m.lru.MoveToFront(entry.lruEntry)
	return entry.answers, true
}

func (m *AnswerKeyManager) put(object string, answers []int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, ok := m.cache[object]; ok {
		entry.answers = answers
		entry.fetched = m.now()
		m.lru.MoveToFront(entry.lruEntry)
		return
	}

	entry := &cachedKey{object: object, answers: answers, fetched: m.now()}
	entry.lruEntry = m.lru.PushFront(entry)
	m.cache[object] = entry

	for m.maxEntries > 0 && m.lru.Len() > m.maxEntries {
		oldest := m.lru.Back()
		if oldest == nil {
			break
		}
		evicted := oldest.Value.(*cachedKey)
		m.lru.Remove(oldest)
		delete(m.cache, evicted.object)
	}
}
