package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFrom(r.Context())
	w.Header().Set("X-Role", claims.Role)
	w.WriteHeader(http.StatusOK)
}

func TestRequireAuth(t *testing.T) {
	auth := NewAuth("test-secret")
	admin, err := auth.IssueToken("ops@example.com", RoleAdmin, 0, time.Hour)
	require.NoError(t, err)
	counselor, err := auth.IssueToken("c@example.com", RoleCounselor, 3, time.Hour)
	require.NoError(t, err)
	expired, err := auth.IssueToken("old@example.com", RoleAdmin, 0, -time.Minute)
	require.NoError(t, err)
	forged, err := NewAuth("other").IssueToken("x", RoleAdmin, 0, time.Hour)
	require.NoError(t, err)

	h := auth.RequireAuth(okHandler, RoleAdmin)
	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"admin", "Bearer " + admin, http.StatusOK},
		{"wrong role", "Bearer " + counselor, http.StatusForbidden},
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"wrong key", "Bearer " + forged, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestParse_CarriesCounselorID(t *testing.T) {
	auth := NewAuth("s")
	token, err := auth.IssueToken("c", RoleCounselor, 42, time.Hour)
	require.NoError(t, err)

	claims, err := auth.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.CounselorID)
	assert.Equal(t, "c", claims.Subject)
}

func TestParse_RejectsNoneAndUnknownRole(t *testing.T) {
	auth := NewAuth("s")

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Role: RoleAdmin}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = auth.Parse(none)
	assert.Error(t, err)

	odd, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Role: "root"}).SignedString([]byte("s"))
	require.NoError(t, err)
	_, err = auth.Parse(odd)
	assert.ErrorContains(t, err, "unknown role")
}

func TestRequireAuth_NoSecret(t *testing.T) {
	rec := httptest.NewRecorder()
	NewAuth("").RequireAuth(okHandler)(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestEnableCORS_Preflight(t *testing.T) {
	called := false
	h := EnableCORS(func(w http.ResponseWriter, r *http.Request) { called = true })

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodOptions, "/leads", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, called)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
