package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/postforge-backend/internal/data/repos/content"
	"github.com/yungbote/postforge-backend/internal/data/repos/profile"
	"github.com/yungbote/postforge-backend/internal/domain"
)

// In-memory repo doubles. They honor the same contracts as the real
// repos (version-checked writes, nil-on-absent reads) so the services
// can be exercised concurrently without a database.

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[uuid.UUID]*domain.User{}}
}

func (f *fakeUserRepo) Create(ctx context.Context, tx *gorm.DB, users []*domain.User) ([]*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range users {
		if u.ID == uuid.Nil {
			u.ID = uuid.New()
		}
		f.users[u.ID] = u
	}
	return users, nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[userID], nil
}

type fakeProfileRepo struct {
	mu      sync.Mutex
	records map[uuid.UUID]*domain.StyleProfileRecord
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{records: map[uuid.UUID]*domain.StyleProfileRecord{}}
}

func (f *fakeProfileRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*domain.StyleProfileRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[userID]
	if !ok {
		return nil, nil
	}
	cp := *rec
	cp.Doc = append([]byte{}, rec.Doc...)
	return &cp, nil
}

func (f *fakeProfileRepo) Create(ctx context.Context, tx *gorm.DB, userID uuid.UUID, doc *domain.StyleProfile) (*domain.StyleProfileRecord, error) {
	raw, err := domain.EncodeStyleProfile(doc)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UTC()
	rec := &domain.StyleProfileRecord{
		ID:          uuid.New(),
		UserID:      userID,
		Doc:         raw,
		Version:     1,
		LastUpdated: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.records[userID] = rec
	return rec, nil
}

func (f *fakeProfileRepo) ConditionalUpdate(ctx context.Context, tx *gorm.DB, userID uuid.UUID, expectedVersion int64, doc *domain.StyleProfile, now time.Time) (bool, error) {
	raw, err := domain.EncodeStyleProfile(doc)
	if err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[userID]
	if !ok || rec.Version != expectedVersion {
		return false, nil
	}
	rec.Doc = raw
	rec.Version++
	rec.LastUpdated = now
	rec.UpdatedAt = now
	return true, nil
}

func (f *fakeProfileRepo) IncrementIterations(ctx context.Context, tx *gorm.DB, userID uuid.UUID, delta int, now time.Time) (bool, error) {
	return false, profile.ErrAtomicIncrementUnsupported
}

func (f *fakeProfileRepo) version(userID uuid.UUID) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[userID]
	if !ok {
		return 0
	}
	return rec.Version
}

func (f *fakeProfileRepo) doc(userID uuid.UUID) *domain.StyleProfile {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[userID]
	if !ok {
		return nil
	}
	doc, err := rec.DecodeDoc()
	if err != nil {
		return nil
	}
	return doc
}

type fakeOverrideRepo struct {
	mu        sync.Mutex
	overrides map[uuid.UUID]*domain.ManualOverrides
}

func newFakeOverrideRepo() *fakeOverrideRepo {
	return &fakeOverrideRepo{overrides: map[uuid.UUID]*domain.ManualOverrides{}}
}

func (f *fakeOverrideRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*domain.ManualOverrides, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ov, ok := f.overrides[userID]; ok {
		cp := *ov
		return &cp, nil
	}
	return &domain.ManualOverrides{}, nil
}

func (f *fakeOverrideRepo) Upsert(ctx context.Context, tx *gorm.DB, userID uuid.UUID, ov *domain.ManualOverrides) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *ov
	f.overrides[userID] = &cp
	return nil
}

type fakePostRepo struct {
	mu    sync.Mutex
	posts map[uuid.UUID]*domain.GeneratedPost
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{posts: map[uuid.UUID]*domain.GeneratedPost{}}
}

func (f *fakePostRepo) Create(ctx context.Context, tx *gorm.DB, posts []*domain.GeneratedPost) ([]*domain.GeneratedPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range posts {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		f.posts[p.ID] = p
	}
	return posts, nil
}

func (f *fakePostRepo) GetByIDs(ctx context.Context, tx *gorm.DB, postIDs []uuid.UUID) ([]*domain.GeneratedPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*domain.GeneratedPost{}
	for _, id := range postIDs {
		if p, ok := f.posts[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePostRepo) RecordEdit(ctx context.Context, tx *gorm.DB, postID uuid.UUID, meta *domain.EditMetadata) error {
	raw, err := domain.EncodeEditMetadata(meta)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[postID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	ts := meta.EditTimestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	p.EditMetadata = raw
	p.EditTimestamp = &ts
	p.LearningProcessed = false
	return nil
}

func (f *fakePostRepo) editsForUser(userID uuid.UUID) []*domain.GeneratedPost {
	out := []*domain.GeneratedPost{}
	for _, p := range f.posts {
		if p.UserID == userID && len(p.EditMetadata) > 0 {
			out = append(out, p)
		}
	}
	return out
}

func (f *fakePostRepo) GetRecentEdits(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*domain.GeneratedPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.editsForUser(userID)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakePostRepo) GetUnprocessedEdits(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*domain.GeneratedPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*domain.GeneratedPost{}
	for _, p := range f.editsForUser(userID) {
		if !p.LearningProcessed {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePostRepo) MarkEditsAsProcessed(ctx context.Context, tx *gorm.DB, postIDs []uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, id := range postIDs {
		p, ok := f.posts[id]
		if !ok || len(p.EditMetadata) == 0 || p.LearningProcessed {
			continue
		}
		p.LearningProcessed = true
		n++
	}
	return n, nil
}

func (f *fakePostRepo) GetEditCount(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.editsForUser(userID))), nil
}

func (f *fakePostRepo) GetProcessedEditCount(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, p := range f.posts {
		if p.UserID == userID && p.LearningProcessed {
			n++
		}
	}
	return n, nil
}

func (f *fakePostRepo) GetFirstEditTime(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var first *time.Time
	for _, p := range f.posts {
		if p.UserID != userID || p.EditTimestamp == nil {
			continue
		}
		if first == nil || p.EditTimestamp.Before(*first) {
			first = p.EditTimestamp
		}
	}
	return first, nil
}

func (f *fakePostRepo) PruneOldEditMetadata(ctx context.Context, tx *gorm.DB, userID uuid.UUID, cap int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	edits := f.editsForUser(userID)
	excess := len(edits) - cap
	if excess <= 0 {
		return 0, nil
	}
	// oldest first
	for i := 0; i < len(edits); i++ {
		for j := i + 1; j < len(edits); j++ {
			if edits[j].EditTimestamp != nil && edits[i].EditTimestamp != nil &&
				edits[j].EditTimestamp.Before(*edits[i].EditTimestamp) {
				edits[i], edits[j] = edits[j], edits[i]
			}
		}
	}
	for i := 0; i < excess; i++ {
		edits[i].EditMetadata = nil
		edits[i].EditTimestamp = nil
	}
	return int64(excess), nil
}

func (f *fakePostRepo) AggregateEditPatterns(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) (*content.PatternSummary, error) {
	return &content.PatternSummary{}, nil
}

// fakeLock is an in-process Lock with the same acquire/release
// semantics as the redis one: bounded wait, token-checked release.
type fakeLock struct {
	mu   sync.Mutex
	held map[string]string
}

func newFakeLock() *fakeLock {
	return &fakeLock{held: map[string]string{}}
}

func (l *fakeLock) Acquire(ctx context.Context, key string, ttl, wait time.Duration) (string, bool, error) {
	deadline := time.Now().Add(wait)
	for {
		l.mu.Lock()
		if _, taken := l.held[key]; !taken {
			token := uuid.NewString()
			l.held[key] = token
			l.mu.Unlock()
			return token, true, nil
		}
		l.mu.Unlock()

		if time.Now().After(deadline) {
			return "", false, nil
		}
		select {
		case <-ctx.Done():
			return "", false, ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
}

func (l *fakeLock) Release(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
	}
	return nil
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	sets    int
	deletes int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string][]byte{}}
}

func (c *fakeCache) Get(ctx context.Context, key string, out interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = raw
	c.sets++
	return nil
}

func (c *fakeCache) Invalidate(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	c.deletes++
	return nil
}

func (c *fakeCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}
