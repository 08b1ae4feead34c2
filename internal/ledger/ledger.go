// Package ledger keeps a student's activity list and running totals consistent.
//
// Functions here only mutate the in-memory aggregate. Callers persist the whole
// student afterwards so the activity list and totals are written as one unit.
package ledger

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"meritboard/internal/model"
)

var (
	// ErrInvalidPoints is returned when points is not a finite number above zero.
	ErrInvalidPoints = errors.New("points must be a positive number")
	// ErrInvalidInput covers malformed activity fields other than points.
	ErrInvalidInput = errors.New("invalid activity")
	// ErrActivityNotFound is returned when neither the id nor the fallback index resolves.
	ErrActivityNotFound = errors.New("activity not found")
)

// ValidatePoints checks that points is finite and strictly positive.
func ValidatePoints(points float64) error {
	if math.IsNaN(points) || math.IsInf(points, 0) || points <= 0 {
		return ErrInvalidPoints
	}
	return nil
}

// AssignPoints appends a new activity to s and bumps the matching total.
func AssignPoints(s *model.Student, typ model.ActivityType, points float64, reason string, now time.Time) (model.Activity, error) {
	if err := ValidatePoints(points); err != nil {
		return model.Activity{}, err
	}
	if !typ.Valid() {
		return model.Activity{}, errors.Join(ErrInvalidInput, errors.New("type must be merit or demerit"))
	}
	if strings.TrimSpace(reason) == "" {
		return model.Activity{}, errors.Join(ErrInvalidInput, errors.New("reason is required"))
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	act := model.Activity{
		ActivityID: uuid.NewString(),
		Type:       typ,
		Points:     points,
		Reason:     reason,
		Date:       now,
	}
	s.Activities = append(s.Activities, act)
	switch typ {
	case model.Merit:
		s.TotalMerit += points
	case model.Demerit:
		s.TotalDemerit += points
	}
	return act, nil
}

// ResolveActivityIndex finds the position of an activity in s.
//
// An exact activityId match always wins. Only when no activity carries that id
// and a fallback index was supplied is the index used; this serves legacy
// activities stored without an id.
func ResolveActivityIndex(s *model.Student, activityID string, fallback *int) (int, error) {
	idx := -1
	for i, act := range s.Activities {
		if act.ActivityID != "" && act.ActivityID == activityID {
			idx = i
			break
		}
	}
	if idx == -1 && fallback != nil {
		idx = *fallback
	}
	if idx < 0 || idx >= len(s.Activities) {
		return -1, ErrActivityNotFound
	}
	return idx, nil
}

// RemoveActivity splices the resolved activity out of s and decrements its total.
// Totals never go below zero, even when historical data is inconsistent.
// Positions of later activities shift down by one.
func RemoveActivity(s *model.Student, activityID string, fallback *int) (model.Activity, error) {
	idx, err := ResolveActivityIndex(s, activityID, fallback)
	if err != nil {
		return model.Activity{}, err
	}

	removed := s.Activities[idx]
	s.Activities = append(s.Activities[:idx:idx], s.Activities[idx+1:]...)

	switch removed.Type {
	case model.Merit:
		s.TotalMerit -= removed.Points
	case model.Demerit:
		s.TotalDemerit -= removed.Points
	}
	s.TotalMerit = clampZero(s.TotalMerit)
	s.TotalDemerit = clampZero(s.TotalDemerit)
	return removed, nil
}

func clampZero(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
