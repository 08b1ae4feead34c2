package store

import (
	"context"
	"errors"

	"meritboard/internal/model"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateKey is returned when a unique field is already taken.
	ErrDuplicateKey = errors.New("duplicate key")
)

// Store persists admins and students. Students are saved whole: activities and
// totals are always written together.
type Store interface {
	FindAdminByUsername(ctx context.Context, username string) (*model.Admin, error)
	CreateAdmin(ctx context.Context, admin model.Admin) (model.Admin, error)

	FindStudent(ctx context.Context, id string) (*model.Student, error)
	FindStudentByRoll(ctx context.Context, rollNumber string) (*model.Student, error)
	FindStudentByRollOrID(ctx context.Context, key string) (*model.Student, error)
	CreateStudent(ctx context.Context, student model.Student) (model.Student, error)
	SaveStudent(ctx context.Context, student *model.Student) error
	DeleteStudent(ctx context.Context, id string) (bool, error)
	ListStudents(ctx context.Context) ([]model.Student, error)

	Ping(ctx context.Context) error
	Close() error
}

var (
	_ Store = (*Postgres)(nil)
	_ Store = (*Memory)(nil)
)
