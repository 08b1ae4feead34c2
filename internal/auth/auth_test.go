package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testIssuer() Issuer {
	return Issuer{Name: "meritboard-test", Key: "test-signing-key", TTL: time.Hour}
}

func TestIssueAndParse(t *testing.T) {
	iss := testIssuer()
	tok, err := iss.Issue(Identity{ID: "stu-1", Role: RoleStudent})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.ExpiresAt, 5*time.Second)

	id, err := iss.Parse(tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, Identity{ID: "stu-1", Role: RoleStudent}, id)
}

func TestParse_Rejects(t *testing.T) {
	iss := testIssuer()
	tok, err := iss.Issue(Identity{ID: "adm-1", Role: RoleAdmin})
	require.NoError(t, err)

	other := iss
	other.Key = "another-key"
	_, err = other.Parse(tok.AccessToken)
	assert.Error(t, err, "wrong key")

	wrongIssuer := iss
	wrongIssuer.Name = "someone-else"
	_, err = wrongIssuer.Parse(tok.AccessToken)
	assert.Error(t, err, "issuer mismatch")

	expired := iss
	expired.TTL = -time.Minute
	old, err := expired.Issue(Identity{ID: "adm-1", Role: RoleAdmin})
	require.NoError(t, err)
	_, err = iss.Parse(old.AccessToken)
	assert.Error(t, err, "expired")

	_, err = iss.Parse("not-a-token")
	assert.Error(t, err)
}

func TestParse_RejectsUnknownRole(t *testing.T) {
	iss := testIssuer()
	claims := Claims{
		Subject: "x",
		Role:    Role("superuser"),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    iss.Name,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(iss.Key))
	require.NoError(t, err)

	_, err = iss.Parse(signed)
	assert.Error(t, err)
}

func TestIssue_RequiresIdentity(t *testing.T) {
	_, err := testIssuer().Issue(Identity{Role: RoleAdmin})
	assert.Error(t, err)
	_, err = testIssuer().Issue(Identity{ID: "x"})
	assert.Error(t, err)
}

func TestAuthorize(t *testing.T) {
	admin := Identity{ID: "a1", Role: RoleAdmin}
	student := Identity{ID: "s1", Role: RoleStudent}

	for _, action := range []Action{ActionManageStudents, ActionViewLeaderboard, ActionExportReport, ActionViewStudent} {
		assert.NoError(t, Authorize(admin, action, "s2"), action.String())
	}
	for _, action := range []Action{ActionManageStudents, ActionViewLeaderboard, ActionExportReport} {
		assert.ErrorIs(t, Authorize(student, action, "s1"), ErrForbidden, action.String())
	}

	assert.NoError(t, Authorize(student, ActionViewStudent, "s1"))
	assert.ErrorIs(t, Authorize(student, ActionViewStudent, "s2"), ErrForbidden)
	assert.ErrorIs(t, Authorize(student, ActionViewStudent, ""), ErrForbidden)
	assert.ErrorIs(t, Authorize(Identity{ID: "s2"}, ActionViewStudent, "s2"), ErrForbidden)
}

func TestHasher(t *testing.T) {
	h := Hasher{Cost: bcrypt.MinCost}
	hashed, err := h.Hash("alice@123")
	require.NoError(t, err)
	assert.NotEqual(t, "alice@123", hashed)

	assert.NoError(t, h.Verify(hashed, "alice@123"))
	assert.ErrorIs(t, h.Verify(hashed, "wrong"), ErrPasswordMismatch)

	_, err = h.Hash("")
	assert.ErrorIs(t, err, ErrPasswordEmpty)
}

func TestRequireIdentityAndAction(t *testing.T) {
	gin.SetMode(gin.TestMode)
	iss := testIssuer()

	r := gin.New()
	r.GET("/admin", RequireIdentity(iss), RequireAction(ActionViewLeaderboard), func(c *gin.Context) {
		id, _ := IdentityFrom(c)
		c.JSON(http.StatusOK, gin.H{"id": id.ID})
	})

	do := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusUnauthorized, do("").Code)
	assert.Equal(t, http.StatusUnauthorized, do("Basic abc").Code)
	assert.Equal(t, http.StatusUnauthorized, do("Bearer garbage").Code)

	stu, err := iss.Issue(Identity{ID: "s1", Role: RoleStudent})
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, do("Bearer "+stu.AccessToken).Code)

	adm, err := iss.Issue(Identity{ID: "a1", Role: RoleAdmin})
	require.NoError(t, err)
	w := do("Bearer " + adm.AccessToken)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"a1"}`, w.Body.String())
}
