package repository

import (
	"context"
	"time"

	"skypath/pkg/apperror"
)

// Стандартные ошибки репозитория
var (
	ErrUserNotFound      = apperror.New(apperror.CodeNotFound, "user not found")
	ErrUserAlreadyExists = apperror.New(apperror.CodeAlreadyExists, "user already exists")
	ErrTripNotFound      = apperror.New(apperror.CodeNotFound, "trip not found")
)

// User модель пользователя
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Trip - сохранённый маршрут пользователя
type Trip struct {
	ID           string
	UserID       int64
	Source       string
	Destination  string
	StartTime    float64
	Itinerary    string // "A → B → D"
	FlightIDs    []string
	ArrivalTime  float64
	DelayMinutes int
	Legs         []TripLeg // заполняется только в Get
	CreatedAt    time.Time
}

// TripLeg - рейс в составе сохранённого маршрута
type TripLeg struct {
	Seq          int
	FlightID     string
	Origin       string
	Destination  string
	Departure    float64
	Arrival      float64
	DelayMinutes int
}

// UserRepository интерфейс репозитория пользователей
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
}

// TripRepository интерфейс репозитория поездок
type TripRepository interface {
	// Save сохраняет поездку вместе с рейсами. Пустой ID генерируется.
	Save(ctx context.Context, trip *Trip) error
	// ListByUser возвращает поездки пользователя, новые первыми
	ListByUser(ctx context.Context, userID int64, limit int) ([]*Trip, error)
	// Get возвращает поездку пользователя с рейсами
	Get(ctx context.Context, userID int64, id string) (*Trip, error)
}
