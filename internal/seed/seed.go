// Package seed creates the default admin and a few sample students.
// Running it twice leaves the data unchanged.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"meritboard/internal/auth"
	"meritboard/internal/ledger"
	"meritboard/internal/model"
	"meritboard/internal/store"
)

// Options controls what gets seeded.
type Options struct {
	AdminUsername string
	AdminPassword string
	// SampleStudents adds the demo students and their first activities.
	SampleStudents bool
}

type sampleStudent struct {
	model.Student
	password string
	first    *model.Activity
}

var samples = []sampleStudent{
	{
		Student:  model.Student{Name: "Alice Thomas", RollNumber: "CS23-001", Department: "CSE", Batch: "2023"},
		password: "alice@123",
		first:    &model.Activity{Type: model.Merit, Points: 10, Reason: "Helped organize event"},
	},
	{
		Student:  model.Student{Name: "Bob Mathew", RollNumber: "CS23-002", Department: "CSE", Batch: "2023"},
		password: "bob@123",
		first:    &model.Activity{Type: model.Demerit, Points: 3, Reason: "Late to class"},
	},
	{
		Student:  model.Student{Name: "Catherine Roy", RollNumber: "EE23-010", Department: "EEE", Batch: "2023"},
		password: "cathy@123",
	},
}

// Run seeds st. Existing admins and students are left as they are.
func Run(ctx context.Context, st store.Store, hasher auth.Hasher, opts Options, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	if err := seedAdmin(ctx, st, hasher, opts, log); err != nil {
		return err
	}
	if !opts.SampleStudents {
		return nil
	}
	for _, s := range samples {
		if err := seedStudent(ctx, st, hasher, s, log); err != nil {
			return err
		}
	}
	return nil
}

func seedAdmin(ctx context.Context, st store.Store, hasher auth.Hasher, opts Options, log *slog.Logger) error {
	if opts.AdminUsername == "" || opts.AdminPassword == "" {
		log.Info("admin seed skipped, no credentials configured")
		return nil
	}
	_, err := st.FindAdminByUsername(ctx, opts.AdminUsername)
	if err == nil {
		log.Info("admin already exists", "username", opts.AdminUsername)
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("find admin: %w", err)
	}
	hash, err := hasher.Hash(opts.AdminPassword)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	if _, err := st.CreateAdmin(ctx, model.Admin{Username: opts.AdminUsername, PasswordHash: hash}); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	log.Info("created default admin", "username", opts.AdminUsername)
	return nil
}

func seedStudent(ctx context.Context, st store.Store, hasher auth.Hasher, s sampleStudent, log *slog.Logger) error {
	existing, err := st.FindStudentByRoll(ctx, s.RollNumber)
	switch {
	case errors.Is(err, store.ErrNotFound):
		hash, herr := hasher.Hash(s.password)
		if herr != nil {
			return fmt.Errorf("hash password for %s: %w", s.RollNumber, herr)
		}
		student := s.Student.Clone()
		student.PasswordHash = hash
		created, cerr := st.CreateStudent(ctx, student)
		if cerr != nil {
			return fmt.Errorf("create student %s: %w", s.RollNumber, cerr)
		}
		existing = &created
		log.Info("created student", "rollNumber", s.RollNumber)
	case err != nil:
		return fmt.Errorf("find student %s: %w", s.RollNumber, err)
	}

	if s.first == nil || len(existing.Activities) > 0 {
		return nil
	}
	if _, err := ledger.AssignPoints(existing, s.first.Type, s.first.Points, s.first.Reason, time.Now().UTC()); err != nil {
		return err
	}
	if err := st.SaveStudent(ctx, existing); err != nil {
		return fmt.Errorf("save sample activity for %s: %w", s.RollNumber, err)
	}
	return nil
}
