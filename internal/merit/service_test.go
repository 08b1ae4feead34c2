package merit

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"meritboard/internal/auth"
	"meritboard/internal/ledger"
	"meritboard/internal/model"
	"meritboard/internal/store"
)

type fixture struct {
	svc     *Service
	store   *store.Memory
	issuer  auth.Issuer
	metrics *Metrics
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	st := store.NewMemory()
	iss := auth.Issuer{Name: "test", Key: "k", TTL: time.Hour}
	m := NewMetrics(prometheus.NewRegistry())
	svc := NewService(st, auth.Hasher{Cost: bcrypt.MinCost}, iss, m)
	svc.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }
	return fixture{svc: svc, store: st, issuer: iss, metrics: m}
}

func (f fixture) student(t *testing.T, roll string) model.Student {
	t.Helper()
	s, err := f.svc.CreateStudent(context.Background(), NewStudent{
		Name: "Student " + roll, RollNumber: roll, Department: "CSE", Batch: "2023", Password: "pw-" + roll,
	})
	require.NoError(t, err)
	return s
}

func TestLogin_Admin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hash, err := auth.Hasher{Cost: bcrypt.MinCost}.Hash("admin123")
	require.NoError(t, err)
	admin, err := f.store.CreateAdmin(ctx, model.Admin{Username: "admin", PasswordHash: hash})
	require.NoError(t, err)

	res, err := f.svc.Login(ctx, LoginRequest{Username: "admin", Password: "admin123", Role: "admin"})
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, res.Role)
	assert.Empty(t, res.StudentID)

	id, err := f.issuer.Parse(res.Token)
	require.NoError(t, err)
	assert.Equal(t, auth.Identity{ID: admin.ID, Role: auth.RoleAdmin}, id)

	_, err = f.svc.Login(ctx, LoginRequest{Username: "admin", Password: "nope", Role: "admin"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, LoginRequest{Username: "ghost", Password: "admin123", Role: "admin"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	assert.Equal(t, 1.0, counterValue(t, f.metrics.logins.WithLabelValues("admin", "success")))
	assert.Equal(t, 2.0, counterValue(t, f.metrics.logins.WithLabelValues("admin", "failure")))
}

func TestLogin_Student(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.student(t, "CS23-001")

	byRoll, err := f.svc.Login(ctx, LoginRequest{Username: "CS23-001", Password: "pw-CS23-001"})
	require.NoError(t, err)
	assert.Equal(t, auth.RoleStudent, byRoll.Role)
	assert.Equal(t, s.ID, byRoll.StudentID)

	byID, err := f.svc.Login(ctx, LoginRequest{StudentID: s.ID, Password: "pw-CS23-001", Role: "student"})
	require.NoError(t, err)
	assert.Equal(t, s.ID, byID.StudentID)

	_, err = f.svc.Login(ctx, LoginRequest{Username: "CS23-001", Password: "bad"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Student credentials never authenticate as admin.
	_, err = f.svc.Login(ctx, LoginRequest{Username: "CS23-001", Password: "pw-CS23-001", Role: "admin"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestCreateStudent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s := f.student(t, "CS23-001")
	assert.Zero(t, s.TotalMerit)
	assert.Zero(t, s.TotalDemerit)
	assert.Empty(t, s.Activities)
	assert.NotEqual(t, "pw-CS23-001", s.PasswordHash)

	_, err := f.svc.CreateStudent(ctx, NewStudent{Name: "Dup", RollNumber: "CS23-001", Department: "EEE", Password: "x"})
	assert.ErrorIs(t, err, store.ErrDuplicateKey)

	_, err = f.svc.CreateStudent(ctx, NewStudent{Name: "No Dept", RollNumber: "X-1", Password: "x"})
	assert.ErrorIs(t, err, ErrValidation)

	all, err := f.store.ListStudents(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestAssignPoints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.student(t, "CS23-001")

	updated, err := f.svc.AssignPoints(ctx, AssignRequest{StudentID: " " + s.ID + " ", Type: model.Merit, Points: 10, Reason: "Helped organize event"})
	require.NoError(t, err)
	assert.Equal(t, 10.0, updated.TotalMerit)
	require.Len(t, updated.Activities, 1)
	assert.Equal(t, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), updated.Activities[0].Date)

	updated, err = f.svc.AssignPoints(ctx, AssignRequest{RollNumber: "CS23-001", Type: model.Demerit, Points: 3, Reason: "Late"})
	require.NoError(t, err)
	assert.Equal(t, 3.0, updated.TotalDemerit)
	assert.Len(t, updated.Activities, 2)

	persisted, err := f.store.FindStudent(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.Activities, persisted.Activities)
	assert.Equal(t, 7.0, persisted.FinalScore())

	assert.Equal(t, 10.0, counterValue(t, f.metrics.points.WithLabelValues("merit")))
}

func TestAssignPoints_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.student(t, "CS23-001")

	_, err := f.svc.AssignPoints(ctx, AssignRequest{StudentID: s.ID, Type: model.Merit, Points: 0, Reason: "r"})
	assert.ErrorIs(t, err, ledger.ErrInvalidPoints)

	_, err = f.svc.AssignPoints(ctx, AssignRequest{StudentID: "missing", RollNumber: "missing", Type: model.Merit, Points: 1, Reason: "r"})
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = f.svc.AssignPoints(ctx, AssignRequest{Type: model.Merit, Points: 1, Reason: "r"})
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = f.svc.AssignPoints(ctx, AssignRequest{StudentID: s.ID, Type: "bonus", Points: 1, Reason: "r"})
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)

	persisted, err := f.store.FindStudent(ctx, s.ID)
	require.NoError(t, err)
	assert.Empty(t, persisted.Activities)
}

func TestRemoveActivity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.student(t, "CS23-001")

	updated, err := f.svc.AssignPoints(ctx, AssignRequest{StudentID: s.ID, Type: model.Merit, Points: 10, Reason: "event"})
	require.NoError(t, err)
	actID := updated.Activities[0].ActivityID

	updated, err = f.svc.RemoveActivity(ctx, s.ID, actID, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, updated.TotalMerit)
	assert.Empty(t, updated.Activities)

	_, err = f.svc.RemoveActivity(ctx, s.ID, actID, nil)
	assert.ErrorIs(t, err, ledger.ErrActivityNotFound)

	_, err = f.svc.RemoveActivity(ctx, "missing", actID, nil)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGetStudent_Access(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.student(t, "A")
	bob := f.student(t, "B")

	got, err := f.svc.GetStudent(ctx, auth.Identity{ID: alice.ID, Role: auth.RoleStudent}, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	_, err = f.svc.GetStudent(ctx, auth.Identity{ID: alice.ID, Role: auth.RoleStudent}, bob.ID)
	assert.ErrorIs(t, err, auth.ErrForbidden)

	_, err = f.svc.GetStudent(ctx, auth.Identity{ID: "adm", Role: auth.RoleAdmin}, bob.ID)
	require.NoError(t, err)

	_, err = f.svc.GetStudent(ctx, auth.Identity{ID: "adm", Role: auth.RoleAdmin}, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteStudent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.student(t, "A")

	require.NoError(t, f.svc.DeleteStudent(ctx, s.ID))
	assert.ErrorIs(t, f.svc.DeleteStudent(ctx, s.ID), store.ErrNotFound)
}

func TestLeaderboardAndReport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.student(t, "A")
	b := f.student(t, "B")
	_, err := f.svc.AssignPoints(ctx, AssignRequest{StudentID: b.ID, Type: model.Merit, Points: 5, Reason: "r"})
	require.NoError(t, err)
	_, err = f.svc.AssignPoints(ctx, AssignRequest{StudentID: a.ID, Type: model.Demerit, Points: 1.5, Reason: "r"})
	require.NoError(t, err)

	rows, err := f.svc.Leaderboard(ctx, ledger.LeaderboardFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, b.ID, rows[0].ID)
	assert.Equal(t, 5.0, rows[0].FinalScore)
	assert.Equal(t, -1.5, rows[1].FinalScore)

	first, err := f.svc.ExportReport(ctx)
	require.NoError(t, err)
	second, err := f.svc.ExportReport(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	want := ReportHeader + "\n" +
		"Student A,A,CSE,2023,0,1.5,-1.5\n" +
		"Student B,B,CSE,2023,5,0,5\n"
	assert.Equal(t, want, string(first))
}

func TestWriteReport_DoesNotQuote(t *testing.T) {
	var buf bytes.Buffer
	err := WriteReport(&buf, []model.Student{{Name: "Roy, Catherine", RollNumber: "EE23-010", Department: "EEE", TotalMerit: 2}})
	require.NoError(t, err)
	assert.Equal(t, ReportHeader+"\nRoy, Catherine,EE23-010,EEE,,2,0,2\n", buf.String())
}
