// Package memstore keeps users and tasks in process memory. It backs
// STORE_DRIVER=memory and the HTTP tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"taskhub/internal/models"
	"taskhub/internal/repository"
)

type Store struct {
	mu    sync.RWMutex
	users map[string]models.User
	tasks map[string]storedTask
	seq   uint64
	now   func() time.Time
}

type storedTask struct {
	models.Task
	seq uint64
}

func New() *Store {
	return &Store{
		users: make(map[string]models.User),
		tasks: make(map[string]storedTask),
		now:   time.Now,
	}
}

// Users and Tasks expose the two gateways over the same store.
func (s *Store) Users() repository.UserRepository { return userRepo{s} }
func (s *Store) Tasks() repository.TaskRepository { return taskRepo{s} }

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Email == user.Email {
			return &repository.DuplicateKeyError{Field: "email"}
		}
		if u.Username == user.Username {
			return &repository.DuplicateKeyError{Field: "username"}
		}
	}
	user.ID = uuid.NewString()
	user.CreatedAt = r.s.now().UTC()
	r.s.users[user.ID] = *user
	return nil
}

func (r userRepo) FindByEmailOrUsername(_ context.Context, email, username string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if u.Email == email || u.Username == username {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r userRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r userRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u.Password = ""
	return &u, nil
}

type taskRepo struct{ s *Store }

func (r taskRepo) Create(_ context.Context, task *models.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now().UTC()
	task.ID = uuid.NewString()
	task.CreatedAt = now
	task.UpdatedAt = now
	r.s.seq++
	r.s.tasks[task.ID] = storedTask{Task: *task, seq: r.s.seq}
	return nil
}

func (r taskRepo) ListByOwner(_ context.Context, owner string) ([]models.Task, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	owned := make([]storedTask, 0)
	for _, t := range r.s.tasks {
		if t.CreatedBy == owner {
			owned = append(owned, t)
		}
	}
	sort.Slice(owned, func(i, j int) bool {
		if !owned[i].CreatedAt.Equal(owned[j].CreatedAt) {
			return owned[i].CreatedAt.After(owned[j].CreatedAt)
		}
		return owned[i].seq > owned[j].seq
	})

	out := make([]models.Task, len(owned))
	for i, t := range owned {
		out[i] = t.Task
	}
	return out, nil
}

func (r taskRepo) FindOwned(_ context.Context, id, owner string) (*models.Task, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.tasks[id]
	if !ok || t.CreatedBy != owner {
		return nil, repository.ErrNotFound
	}
	return &t.Task, nil
}

func (r taskRepo) UpdateOwned(_ context.Context, id, owner string, upd models.TaskUpdate) (*models.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tasks[id]
	if !ok || t.CreatedBy != owner {
		return nil, repository.ErrNotFound
	}
	upd.Apply(&t.Task)
	t.UpdatedAt = r.s.now().UTC()
	r.s.tasks[id] = t
	return &t.Task, nil
}

func (r taskRepo) DeleteOwned(_ context.Context, id, owner string) (*models.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tasks[id]
	if !ok || t.CreatedBy != owner {
		return nil, repository.ErrNotFound
	}
	delete(r.s.tasks, id)
	return &t.Task, nil
}
