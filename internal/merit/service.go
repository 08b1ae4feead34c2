// Package merit coordinates the credential store, the ledger and token issuance
// for each API operation.
package merit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"meritboard/internal/auth"
	"meritboard/internal/ledger"
	"meritboard/internal/model"
	"meritboard/internal/store"
)

var (
	// ErrInvalidCredentials is returned for every login failure, whichever part was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrValidation is returned for malformed input outside the ledger rules.
	ErrValidation = errors.New("validation failed")
)

// Service implements the merit/demerit operations on top of a Store.
type Service struct {
	store   store.Store
	hasher  auth.Hasher
	issuer  auth.Issuer
	metrics *Metrics
	now     func() time.Time
}

// NewService creates a service backed by a store. metrics may be nil.
func NewService(st store.Store, hasher auth.Hasher, issuer auth.Issuer, metrics *Metrics) *Service {
	return &Service{
		store:   st,
		hasher:  hasher,
		issuer:  issuer,
		metrics: metrics,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// LoginRequest carries credentials for either role.
type LoginRequest struct {
	Username  string
	StudentID string
	Password  string
	Role      string
}

// LoginResult is the issued token and who it belongs to.
type LoginResult struct {
	Token     string
	Role      auth.Role
	StudentID string
}

// Login verifies credentials and issues a bearer token. An unknown account and a
// wrong password produce the same ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	if req.Role == string(auth.RoleAdmin) {
		res, err := s.loginAdmin(ctx, req)
		s.metrics.observeLogin(auth.RoleAdmin, err)
		return res, err
	}
	res, err := s.loginStudent(ctx, req)
	s.metrics.observeLogin(auth.RoleStudent, err)
	return res, err
}

func (s *Service) loginAdmin(ctx context.Context, req LoginRequest) (LoginResult, error) {
	admin, err := s.store.FindAdminByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	if err := s.checkPassword(admin.PasswordHash, req.Password); err != nil {
		return LoginResult{}, err
	}
	tok, err := s.issuer.Issue(auth.Identity{ID: admin.ID, Role: auth.RoleAdmin})
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}
	return LoginResult{Token: tok.AccessToken, Role: auth.RoleAdmin}, nil
}

func (s *Service) loginStudent(ctx context.Context, req LoginRequest) (LoginResult, error) {
	var (
		student *model.Student
		err     error
	)
	if req.StudentID != "" {
		student, err = s.store.FindStudent(ctx, req.StudentID)
	} else {
		student, err = s.store.FindStudentByRoll(ctx, req.Username)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	if err := s.checkPassword(student.PasswordHash, req.Password); err != nil {
		return LoginResult{}, err
	}
	tok, err := s.issuer.Issue(auth.Identity{ID: student.ID, Role: auth.RoleStudent})
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}
	return LoginResult{Token: tok.AccessToken, Role: auth.RoleStudent, StudentID: student.ID}, nil
}

func (s *Service) checkPassword(hash, password string) error {
	if err := s.hasher.Verify(hash, password); err != nil {
		// Malformed hashes are treated like a mismatch so the response never differs.
		return ErrInvalidCredentials
	}
	return nil
}

// NewStudent holds the fields for creating a student account.
type NewStudent struct {
	Name       string
	RollNumber string
	Department string
	Batch      string
	Password   string
}

func (n NewStudent) validate() error {
	var missing []string
	if strings.TrimSpace(n.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(n.RollNumber) == "" {
		missing = append(missing, "rollNumber")
	}
	if strings.TrimSpace(n.Department) == "" {
		missing = append(missing, "department")
	}
	if n.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s required", ErrValidation, strings.Join(missing, ", "))
	}
	return nil
}

// CreateStudent hashes the password and stores a new student with zero totals.
func (s *Service) CreateStudent(ctx context.Context, n NewStudent) (model.Student, error) {
	if err := n.validate(); err != nil {
		return model.Student{}, err
	}
	hash, err := s.hasher.Hash(n.Password)
	if err != nil {
		return model.Student{}, fmt.Errorf("hash password: %w", err)
	}
	return s.store.CreateStudent(ctx, model.Student{
		Name:         n.Name,
		RollNumber:   n.RollNumber,
		Department:   n.Department,
		Batch:        n.Batch,
		PasswordHash: hash,
		Activities:   []model.Activity{},
	})
}

// AssignRequest identifies a student by id or roll number and describes the activity.
type AssignRequest struct {
	StudentID  string
	RollNumber string
	Type       model.ActivityType
	Points     float64
	Reason     string
}

// AssignPoints records an activity and returns the saved student.
func (s *Service) AssignPoints(ctx context.Context, req AssignRequest) (model.Student, error) {
	if err := ledger.ValidatePoints(req.Points); err != nil {
		return model.Student{}, err
	}
	student, err := s.lookupForAssign(ctx, req)
	if err != nil {
		return model.Student{}, err
	}
	if _, err := ledger.AssignPoints(student, req.Type, req.Points, req.Reason, s.now()); err != nil {
		return model.Student{}, err
	}
	if err := s.store.SaveStudent(ctx, student); err != nil {
		return model.Student{}, fmt.Errorf("save student %s: %w", student.ID, err)
	}
	s.metrics.observeAssign(req.Type, req.Points)
	return *student, nil
}

func (s *Service) lookupForAssign(ctx context.Context, req AssignRequest) (*model.Student, error) {
	if id := strings.TrimSpace(req.StudentID); id != "" {
		student, err := s.store.FindStudent(ctx, id)
		if err == nil || !errors.Is(err, store.ErrNotFound) {
			return student, err
		}
	}
	if roll := strings.TrimSpace(req.RollNumber); roll != "" {
		return s.store.FindStudentByRoll(ctx, roll)
	}
	return nil, store.ErrNotFound
}

// GetStudent returns a student if caller may see it.
func (s *Service) GetStudent(ctx context.Context, caller auth.Identity, id string) (model.Student, error) {
	if err := auth.Authorize(caller, auth.ActionViewStudent, id); err != nil {
		return model.Student{}, err
	}
	student, err := s.store.FindStudent(ctx, id)
	if err != nil {
		return model.Student{}, err
	}
	return *student, nil
}

// DeleteStudent removes a student and all of its activities.
func (s *Service) DeleteStudent(ctx context.Context, id string) error {
	ok, err := s.store.DeleteStudent(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return store.ErrNotFound
	}
	return nil
}

// RemoveActivity deletes one activity, resolved by id or legacy index, and
// returns the saved student.
func (s *Service) RemoveActivity(ctx context.Context, studentID, activityID string, index *int) (model.Student, error) {
	student, err := s.store.FindStudent(ctx, studentID)
	if err != nil {
		return model.Student{}, err
	}
	removed, err := ledger.RemoveActivity(student, activityID, index)
	if err != nil {
		return model.Student{}, err
	}
	if err := s.store.SaveStudent(ctx, student); err != nil {
		return model.Student{}, fmt.Errorf("save student %s: %w", student.ID, err)
	}
	s.metrics.observeRemove(removed.Type)
	return *student, nil
}

// Leaderboard ranks all students matching the filter.
func (s *Service) Leaderboard(ctx context.Context, f ledger.LeaderboardFilter) ([]model.ScoredStudent, error) {
	students, err := s.store.ListStudents(ctx)
	if err != nil {
		return nil, err
	}
	return ledger.Rank(students, f), nil
}
