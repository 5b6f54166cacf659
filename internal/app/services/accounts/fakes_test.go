package accounts

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/dalemusser/playtweet/internal/app/store/audit"
	userstore "github.com/dalemusser/playtweet/internal/app/store/users"
	"github.com/dalemusser/playtweet/internal/app/system/media"
	"github.com/dalemusser/playtweet/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memUsers is an in-memory UserStore with the same uniqueness and
// compare-and-swap behavior as the MongoDB store.
type memUsers struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]models.User
	fail  error
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[primitive.ObjectID]models.User{}}
}

func (m *memUsers) Create(_ context.Context, u models.User) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return models.User{}, m.fail
	}
	u.Username = strings.ToLower(strings.TrimSpace(u.Username))
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range m.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return models.User{}, userstore.ErrDuplicate
		}
	}
	u.ID = primitive.NewObjectID()
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	m.users[u.ID] = u
	return u, nil
}

func (m *memUsers) get(id primitive.ObjectID) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, userstore.ErrNotFound
	}
	return &u, nil
}

func (m *memUsers) GetByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(id)
}

func (m *memUsers) find(username, email string) *models.User {
	username = strings.ToLower(strings.TrimSpace(username))
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range m.users {
		if (username != "" && u.Username == username) || (email != "" && u.Email == email) {
			return &u
		}
	}
	return nil
}

func (m *memUsers) GetByLogin(_ context.Context, username, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u := m.find(username, email); u != nil {
		return u, nil
	}
	return nil, userstore.ErrNotFound
}

func (m *memUsers) ExistsByUsernameOrEmail(_ context.Context, username, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.find(username, email) != nil, nil
}

func (m *memUsers) EmailExistsForOther(_ context.Context, email string, excludeID primitive.ObjectID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.find("", email)
	return u != nil && u.ID != excludeID, nil
}

func (m *memUsers) update(id primitive.ObjectID, fn func(u *models.User) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return userstore.ErrNotFound
	}
	if err := fn(&u); err != nil {
		return err
	}
	u.UpdatedAt = time.Now().UTC()
	m.users[id] = u
	return nil
}

func (m *memUsers) SetRefreshToken(_ context.Context, id primitive.ObjectID, token string) error {
	return m.update(id, func(u *models.User) error { u.RefreshToken = token; return nil })
}

func (m *memUsers) RotateRefreshToken(_ context.Context, id primitive.ObjectID, presented, next string) error {
	err := m.update(id, func(u *models.User) error {
		if presented == "" || u.RefreshToken != presented {
			return userstore.ErrTokenMismatch
		}
		u.RefreshToken = next
		return nil
	})
	if errors.Is(err, userstore.ErrNotFound) {
		return userstore.ErrTokenMismatch
	}
	return err
}

func (m *memUsers) ClearRefreshToken(_ context.Context, id primitive.ObjectID) error {
	err := m.update(id, func(u *models.User) error { u.RefreshToken = ""; return nil })
	if errors.Is(err, userstore.ErrNotFound) {
		return nil
	}
	return err
}

func (m *memUsers) UpdatePassword(_ context.Context, id primitive.ObjectID, hash string) error {
	return m.update(id, func(u *models.User) error { u.PasswordHash = hash; return nil })
}

func (m *memUsers) sanitizedAfter(id primitive.ObjectID, fn func(u *models.User) error) (*models.User, error) {
	if err := m.update(id, fn); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, _ := m.get(id)
	return sanitize(u), nil
}

func (m *memUsers) UpdateAccount(_ context.Context, id primitive.ObjectID, fullName, email string) (*models.User, error) {
	return m.sanitizedAfter(id, func(u *models.User) error {
		u.FullName = strings.TrimSpace(fullName)
		u.Email = strings.ToLower(strings.TrimSpace(email))
		return nil
	})
}

func (m *memUsers) SetAvatar(_ context.Context, id primitive.ObjectID, a models.Asset) (*models.User, error) {
	return m.sanitizedAfter(id, func(u *models.User) error { u.Avatar = a; return nil })
}

func (m *memUsers) SetCoverImage(_ context.Context, id primitive.ObjectID, a models.Asset) (*models.User, error) {
	return m.sanitizedAfter(id, func(u *models.User) error { u.CoverImage = &a; return nil })
}

func (m *memUsers) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

// fakeUploads records uploads, removals and discards.
type fakeUploads struct {
	mu        sync.Mutex
	failKinds map[string]bool
	uploaded  []string
	removed   []string
	discarded map[*media.Staged]int
}

func newFakeUploads() *fakeUploads {
	return &fakeUploads{failKinds: map[string]bool{}, discarded: map[*media.Staged]int{}}
}

func (f *fakeUploads) Upload(_ context.Context, s *media.Staged, kind string) media.UploadResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.discarded[s]++
	if f.failKinds[kind] {
		return media.UploadFailed{Reason: "storage write failed", Err: errors.New("bucket unavailable")}
	}
	id := "PlayTweet/" + kind + "/" + primitive.NewObjectID().Hex() + ".png"
	f.uploaded = append(f.uploaded, id)
	return media.UploadedAsset{URL: "https://cdn.example.com/" + id, ID: id}
}

func (f *fakeUploads) Remove(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, id)
	return nil
}

func (f *fakeUploads) Discard(s *media.Staged) {
	if s == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.discarded[s]++
}

func (f *fakeUploads) released(s *media.Staged) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.discarded[s] > 0
}

// fakeLimiter locks after max failures.
type fakeLimiter struct {
	mu       sync.Mutex
	max      int
	failures map[string]int
	cleared  []string
}

func newFakeLimiter(max int) *fakeLimiter {
	return &fakeLimiter{max: max, failures: map[string]int{}}
}

func (l *fakeLimiter) CheckAllowed(_ context.Context, id string) (bool, int, *time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failures[id] >= l.max {
		until := time.Now().Add(30 * time.Minute)
		return false, 0, &until
	}
	return true, l.max - l.failures[id], nil
}

func (l *fakeLimiter) RecordFailure(_ context.Context, id string) (bool, *time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures[id]++
	if l.failures[id] >= l.max {
		until := time.Now().Add(30 * time.Minute)
		return true, &until
	}
	return false, nil
}

func (l *fakeLimiter) ClearOnSuccess(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.failures, id)
	l.cleared = append(l.cleared, id)
	return nil
}

// memAudit collects audit events.
type memAudit struct {
	mu     sync.Mutex
	events []audit.Event
}

func (m *memAudit) Log(_ context.Context, e audit.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *memAudit) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	for i, e := range m.events {
		out[i] = e.EventType
	}
	return out
}
