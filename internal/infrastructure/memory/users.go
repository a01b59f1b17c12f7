package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Bhumit267/CodeXi/internal/core/domain"
	"github.com/Bhumit267/CodeXi/internal/core/ports"
)

// UserRepository keeps identities in process memory. Uniqueness checks and
// writes happen under one lock, so concurrent creates of the same username
// or email yield exactly one winner.
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User
}

var _ ports.UserRepository = (*UserRepository)(nil)

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]*domain.User)}
}

func (r *UserRepository) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.taken(user.Username, user.Email, "") {
		return nil, domain.ErrUserExists
	}

	stored := cloneUser(user)
	stored.ID = uuid.NewString()
	if stored.SolvedProblems == nil {
		stored.SolvedProblems = []string{}
	}
	r.users[stored.ID] = stored
	return cloneUser(stored), nil
}

func (r *UserRepository) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *UserRepository) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	return r.findBy(func(u *domain.User) bool { return u.Username == username })
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.findBy(func(u *domain.User) bool { return u.Email == email })
}

func (r *UserRepository) Update(_ context.Context, id string, patch domain.UserPatch) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}

	next := cloneUser(u)
	patch.Apply(next)
	if r.taken(next.Username, next.Email, id) {
		return nil, domain.ErrUserExists
	}
	next.UpdatedAt = time.Now().UTC()
	r.users[id] = next
	return cloneUser(next), nil
}

func (r *UserRepository) SetPasswordHash(_ context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordHash = hash
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *UserRepository) ToggleSolved(_ context.Context, id, slug string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if i := slices.Index(u.SolvedProblems, slug); i >= 0 {
		u.SolvedProblems = slices.Delete(u.SolvedProblems, i, i+1)
	} else {
		u.SolvedProblems = append(u.SolvedProblems, slug)
	}
	u.UpdatedAt = time.Now().UTC()
	return slices.Clone(u.SolvedProblems), nil
}

func (r *UserRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *UserRepository) findBy(match func(*domain.User) bool) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

// taken reports whether username or email belongs to an identity other than
// exceptID. Callers hold the lock.
func (r *UserRepository) taken(username, email, exceptID string) bool {
	for id, u := range r.users {
		if id == exceptID {
			continue
		}
		if u.Username == username || u.Email == email {
			return true
		}
	}
	return false
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	c.SolvedProblems = slices.Clone(u.SolvedProblems)
	return &c
}
