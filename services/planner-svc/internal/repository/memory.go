package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryUserRepository in-memory реализация UserRepository
type MemoryUserRepository struct {
	mu         sync.RWMutex
	nextID     int64
	users      map[int64]*User
	byUsername map[string]int64
}

// NewMemoryUserRepository создаёт новый in-memory репозиторий
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users:      make(map[int64]*User),
		byUsername: make(map[string]int64),
	}
}

func (r *MemoryUserRepository) Create(_ context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byUsername[user.Username]; exists {
		return ErrUserAlreadyExists
	}

	r.nextID++
	user.ID = r.nextID
	user.CreatedAt = time.Now().UTC()

	stored := *user
	r.users[user.ID] = &stored
	r.byUsername[user.Username] = user.ID

	return nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id int64) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	out := *user
	return &out, nil
}

func (r *MemoryUserRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	r.mu.RLock()
	id, ok := r.byUsername[username]
	r.mu.RUnlock()

	if !ok {
		return nil, ErrUserNotFound
	}
	return r.GetByID(ctx, id)
}

// MemoryTripRepository in-memory реализация TripRepository
type MemoryTripRepository struct {
	mu    sync.RWMutex
	trips map[string]*Trip
	now   func() time.Time
}

// NewMemoryTripRepository создаёт новый in-memory репозиторий поездок
func NewMemoryTripRepository() *MemoryTripRepository {
	return &MemoryTripRepository{
		trips: make(map[string]*Trip),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryTripRepository) Save(_ context.Context, trip *Trip) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if trip.ID == "" {
		trip.ID = uuid.NewString()
	}
	trip.CreatedAt = r.now()

	r.trips[trip.ID] = copyTrip(trip)
	return nil
}

func (r *MemoryTripRepository) ListByUser(_ context.Context, userID int64, limit int) ([]*Trip, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Trip
	for _, t := range r.trips {
		if t.UserID != userID {
			continue
		}
		c := copyTrip(t)
		c.Legs = nil
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryTripRepository) Get(_ context.Context, userID int64, id string) (*Trip, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.trips[id]
	if !ok || t.UserID != userID {
		return nil, ErrTripNotFound
	}
	return copyTrip(t), nil
}

func copyTrip(t *Trip) *Trip {
	c := *t
	c.FlightIDs = append([]string(nil), t.FlightIDs...)
	c.Legs = append([]TripLeg(nil), t.Legs...)
	return &c
}
