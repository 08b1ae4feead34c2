package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"meritboard/internal/model"
)

const uniqueViolation = "23505"

// Postgres is the Store backed by database/sql over pgx.
type Postgres struct {
	db *sql.DB
}

// OpenPostgres connects to Postgres with sane pool defaults and verifies the
// connection.
func OpenPostgres(ctx context.Context, connString string) (*Postgres, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Postgres{db: db}, nil
}

// NewPostgres wraps an existing handle.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// DB exposes the underlying handle for migrations.
func (p *Postgres) DB() *sql.DB { return p.db }

// Ping checks connectivity.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (p *Postgres) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

// FindAdminByUsername looks up an admin account.
func (p *Postgres) FindAdminByUsername(ctx context.Context, username string) (*model.Admin, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, created_at, updated_at
		FROM admins WHERE username = $1
	`, username)
	var a model.Admin
	if err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// CreateAdmin inserts a new admin.
func (p *Postgres) CreateAdmin(ctx context.Context, admin model.Admin) (model.Admin, error) {
	if admin.ID == "" {
		admin.ID = uuid.NewString()
	}
	row := p.db.QueryRowContext(ctx, `
		INSERT INTO admins (id, username, password_hash)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at
	`, admin.ID, admin.Username, admin.PasswordHash)
	if err := row.Scan(&admin.CreatedAt, &admin.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return model.Admin{}, fmt.Errorf("%w: username %q already exists", ErrDuplicateKey, admin.Username)
		}
		return model.Admin{}, err
	}
	return admin, nil
}

const studentColumns = `id, name, roll_number, department, batch, password_hash,
	total_merit, total_demerit, activities, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStudent(row rowScanner) (model.Student, error) {
	var (
		s   model.Student
		raw []byte
	)
	if err := row.Scan(&s.ID, &s.Name, &s.RollNumber, &s.Department, &s.Batch, &s.PasswordHash,
		&s.TotalMerit, &s.TotalDemerit, &raw, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return model.Student{}, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &s.Activities); err != nil {
			return model.Student{}, fmt.Errorf("decode activities of %s: %w", s.ID, err)
		}
	}
	if s.Activities == nil {
		s.Activities = []model.Activity{}
	}
	return s, nil
}

func (p *Postgres) findStudentWhere(ctx context.Context, where string, arg any) (*model.Student, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+studentColumns+` FROM students WHERE `+where, arg)
	s, err := scanStudent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// FindStudent looks up a student by id.
func (p *Postgres) FindStudent(ctx context.Context, id string) (*model.Student, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	return p.findStudentWhere(ctx, "id = $1", id)
}

// FindStudentByRoll looks up a student by roll number.
func (p *Postgres) FindStudentByRoll(ctx context.Context, rollNumber string) (*model.Student, error) {
	return p.findStudentWhere(ctx, "roll_number = $1", rollNumber)
}

// FindStudentByRollOrID tries key as an id first, then as a roll number.
func (p *Postgres) FindStudentByRollOrID(ctx context.Context, key string) (*model.Student, error) {
	s, err := p.FindStudent(ctx, key)
	if err == nil || !errors.Is(err, ErrNotFound) {
		return s, err
	}
	return p.FindStudentByRoll(ctx, key)
}

// CreateStudent inserts a student. Nothing is written when the roll number is taken.
func (p *Postgres) CreateStudent(ctx context.Context, s model.Student) (model.Student, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Activities == nil {
		s.Activities = []model.Activity{}
	}
	activities, err := json.Marshal(s.Activities)
	if err != nil {
		return model.Student{}, err
	}
	row := p.db.QueryRowContext(ctx, `
		INSERT INTO students (id, name, roll_number, department, batch, password_hash, total_merit, total_demerit, activities)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at, updated_at
	`, s.ID, s.Name, s.RollNumber, s.Department, s.Batch, s.PasswordHash, s.TotalMerit, s.TotalDemerit, activities)
	if err := row.Scan(&s.CreatedAt, &s.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return model.Student{}, fmt.Errorf("%w: rollNumber %q already exists", ErrDuplicateKey, s.RollNumber)
		}
		return model.Student{}, err
	}
	return s, nil
}

// SaveStudent rewrites the student's activities and totals in a single statement.
func (p *Postgres) SaveStudent(ctx context.Context, s *model.Student) error {
	activities := s.Activities
	if activities == nil {
		activities = []model.Activity{}
	}
	raw, err := json.Marshal(activities)
	if err != nil {
		return err
	}
	row := p.db.QueryRowContext(ctx, `
		UPDATE students
		SET name = $2, department = $3, batch = $4, password_hash = $5,
			total_merit = $6, total_demerit = $7, activities = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, s.ID, s.Name, s.Department, s.Batch, s.PasswordHash, s.TotalMerit, s.TotalDemerit, raw)
	if err := row.Scan(&s.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// DeleteStudent removes a student and, with it, all of its activities.
func (p *Postgres) DeleteStudent(ctx context.Context, id string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}
	res, err := p.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListStudents returns every student in creation order.
func (p *Postgres) ListStudents(ctx context.Context) ([]model.Student, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT `+studentColumns+` FROM students ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []model.Student{}
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
