package model

import "time"

// ActivityType distinguishes point-awarding from point-deducting activities.
type ActivityType string

const (
	Merit   ActivityType = "merit"
	Demerit ActivityType = "demerit"
)

// Valid reports whether t is one of the known activity types.
func (t ActivityType) Valid() bool {
	return t == Merit || t == Demerit
}

// Admin is an operator account allowed to manage students.
type Admin struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Activity is a single merit or demerit entry owned by a student.
// Legacy records may carry an empty ActivityID.
type Activity struct {
	ActivityID string       `json:"activityId"`
	Type       ActivityType `json:"type"`
	Points     float64      `json:"points"`
	Reason     string       `json:"reason"`
	Date       time.Time    `json:"date"`
}

// Student is the aggregate root for a student's points ledger.
type Student struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	RollNumber   string     `json:"rollNumber"`
	Department   string     `json:"department"`
	Batch        string     `json:"batch,omitempty"`
	PasswordHash string     `json:"-"`
	TotalMerit   float64    `json:"totalMerit"`
	TotalDemerit float64    `json:"totalDemerit"`
	Activities   []Activity `json:"activities"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// FinalScore is merit minus demerit. It is never persisted.
func (s Student) FinalScore() float64 {
	return s.TotalMerit - s.TotalDemerit
}

// Clone returns a copy that shares no activity storage with s.
func (s Student) Clone() Student {
	out := s
	out.Activities = make([]Activity, len(s.Activities))
	copy(out.Activities, s.Activities)
	return out
}

// ScoredStudent is a leaderboard row.
type ScoredStudent struct {
	Student
	FinalScore float64 `json:"finalScore"`
}
