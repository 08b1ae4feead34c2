package ledger

import (
	"sort"
	"strings"

	"meritboard/internal/model"
)

// LeaderboardFilter narrows the ranked set. Empty fields match everything.
type LeaderboardFilter struct {
	Department string
	Batch      string
	Query      string
}

// Match reports whether s passes every non-empty criterion of f.
func (f LeaderboardFilter) Match(s model.Student) bool {
	if f.Department != "" && s.Department != f.Department {
		return false
	}
	if f.Batch != "" && s.Batch != f.Batch {
		return false
	}
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		if !strings.Contains(strings.ToLower(s.Name), q) && !strings.Contains(strings.ToLower(s.RollNumber), q) {
			return false
		}
	}
	return true
}

// Rank filters students and orders them by final score, highest first.
// Students with equal scores keep their input order.
func Rank(students []model.Student, f LeaderboardFilter) []model.ScoredStudent {
	out := make([]model.ScoredStudent, 0, len(students))
	for _, s := range students {
		if !f.Match(s) {
			continue
		}
		out = append(out, model.ScoredStudent{Student: s, FinalScore: s.FinalScore()})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FinalScore > out[j].FinalScore
	})
	return out
}
