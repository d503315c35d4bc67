package services

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/groups"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/users"
	"github.com/google/uuid"
)

// memStore backs the fake repositories. Setting fail makes the operation
// with that name return the error.
type memStore struct {
	mu       sync.Mutex
	users    map[string]*models.User
	sessions []*models.Session
	groups   map[string][]models.Group
	fail     map[string]error
	createFn func(*models.User) error
}

func newMemStore() *memStore {
	return &memStore{
		users:  map[string]*models.User{},
		groups: map[string][]models.Group{},
		fail:   map[string]error{},
	}
}

func (m *memStore) err(op string) error {
	return m.fail[op]
}

func (m *memStore) addUser(u models.User) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	m.users[u.ID] = &u
	return &u
}

func (m *memStore) user(id string) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.users[id]
}

func (m *memStore) userSessions(userID string) []models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Session
	for _, s := range m.sessions {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out
}

func (m *memStore) activeSessions(userID string) []models.Session {
	var out []models.Session
	for _, s := range m.userSessions(userID) {
		if !s.Deleted {
			out = append(out, s)
		}
	}
	return out
}

type memUsers struct{ m *memStore }

func (r memUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.err("users.Create"); err != nil {
		return nil, err
	}
	if r.m.createFn != nil {
		if err := r.m.createFn(u); err != nil {
			return nil, err
		}
	}
	for _, existing := range r.m.users {
		if existing.Email == u.Email {
			return nil, users.ErrEmailExists
		}
		if existing.Login == u.Login {
			return nil, users.ErrLoginExists
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	c := *u
	r.m.users[u.ID] = &c
	return u, nil
}

func (r memUsers) find(op string, match func(*models.User) bool) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.err(op); err != nil {
		return nil, err
	}
	for _, u := range r.m.users {
		if match(u) {
			c := *u
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	return r.find("users.GetByID", func(u *models.User) bool { return u.ID == id })
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return r.find("users.GetByEmail", func(u *models.User) bool { return u.Email == email })
}

func (r memUsers) GetByLogin(_ context.Context, login string) (*models.User, error) {
	return r.find("users.GetByLogin", func(u *models.User) bool { return u.Login == login })
}

func (r memUsers) GetByLoginOrEmail(_ context.Context, v string) (*models.User, error) {
	return r.find("users.GetByLoginOrEmail", func(u *models.User) bool { return u.Login == v || u.Email == v })
}

func (r memUsers) LockByID(ctx context.Context, id string) error {
	_, err := r.find("users.LockByID", func(u *models.User) bool { return u.ID == id })
	return err
}

func (r memUsers) Update(_ context.Context, u *models.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.err("users.Update"); err != nil {
		return err
	}
	if _, ok := r.m.users[u.ID]; !ok {
		return common.ErrorNotFound
	}
	c := *u
	r.m.users[u.ID] = &c
	return nil
}

type memSessions struct{ m *memStore }

func (r memSessions) Create(_ context.Context, s *models.Session) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.err("sessions.Create"); err != nil {
		return err
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	c := *s
	r.m.sessions = append(r.m.sessions, &c)
	return nil
}

func (r memSessions) FindActiveByToken(_ context.Context, token string) (*models.Session, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.err("sessions.FindActiveByToken"); err != nil {
		return nil, err
	}
	for i := len(r.m.sessions) - 1; i >= 0; i-- {
		if s := r.m.sessions[i]; s.Token == token && !s.Deleted {
			c := *s
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memSessions) ListActiveByUserID(_ context.Context, userID string) ([]models.Session, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.err("sessions.ListActiveByUserID"); err != nil {
		return nil, err
	}
	var out []models.Session
	for _, s := range r.m.sessions {
		if s.UserID == userID && !s.Deleted {
			out = append(out, *s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r memSessions) MarkDeleted(_ context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.err("sessions.MarkDeleted"); err != nil {
		return err
	}
	for _, s := range r.m.sessions {
		if s.ID == id {
			s.Deleted = true
		}
	}
	return nil
}

type memGroups struct{ m *memStore }

func (r memGroups) ListByUserID(_ context.Context, userID string) ([]models.Group, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.err("groups.ListByUserID"); err != nil {
		return nil, err
	}
	return r.m.groups[userID], nil
}

type fakeRepoManager struct{ m *memStore }

func (f fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (f fakeRepoManager) Users(dbx.DBTX) users.Repository            { return memUsers{f.m} }
func (f fakeRepoManager) Sessions(dbx.DBTX) sessions.Repository      { return memSessions{f.m} }
func (f fakeRepoManager) Groups(dbx.DBTX) groups.Repository          { return memGroups{f.m} }

func permissions(names ...string) []models.Permission {
	out := make([]models.Permission, 0, len(names))
	for _, n := range names {
		out = append(out, models.Permission{ID: uuid.NewString(), Name: n})
	}
	return out
}

func bearer(token string) string {
	return "Bearer " + strings.TrimSpace(token)
}
