package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onboardhr/onboarding/internal/onboarding/model"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Hour, "test")

	token, err := issuer.Issue(AuthContext{UserID: 3, Email: "ada@example.com", Role: model.RoleCandidate, CandidateID: 7})
	require.NoError(t, err)

	authCtx, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, uint(3), authCtx.UserID)
	assert.Equal(t, uint(7), authCtx.CandidateID)
	assert.Equal(t, model.RoleCandidate, authCtx.Role)
	assert.True(t, authCtx.CanAccessCandidate(7))
	assert.False(t, authCtx.CanAccessCandidate(8))
}

func TestTokenIssuer_Rejects(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Hour, "test")
	token, err := issuer.Issue(AuthContext{UserID: 1, Role: model.RoleHR})
	require.NoError(t, err)

	other := NewTokenIssuer("another-secret-value-0123456789", time.Hour, "test")
	_, err = other.Parse(token)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	wrongIssuer := NewTokenIssuer(testSecret, time.Hour, "someone-else")
	_, err = wrongIssuer.Parse(token)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	expired := NewTokenIssuer(testSecret, time.Hour, "test")
	expired.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = expired.Parse(token)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestExtractBearer(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr error
	}{
		{"Bearer abc", "abc", nil},
		{"bearer  abc ", "abc", nil},
		{"", "", ErrMissingToken},
		{"Basic abc", "", ErrInvalidToken},
		{"Bearer", "", ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got, err := ExtractBearer(tt.header)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func newTestRouter(issuer *TokenIssuer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware(issuer))
	r.GET("/public", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"authenticated": FromGin(c) != nil})
	})
	r.GET("/private", RequireAuth(), func(c *gin.Context) {
		authCtx := GetAuthContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"email": authCtx.Email})
	})
	r.GET("/hr", RequireAuth(), RequireHR(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func TestMiddleware(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Hour, "test")
	r := newTestRouter(issuer)

	candidateToken, err := issuer.Issue(AuthContext{UserID: 2, Email: "ada@example.com", Role: model.RoleCandidate, CandidateID: 7})
	require.NoError(t, err)
	hrToken, err := issuer.Issue(AuthContext{UserID: 1, Email: "hr@example.com", Role: model.RoleHR})
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		header string
		status int
	}{
		{"public without token", "/public", "", http.StatusOK},
		{"public with garbage token", "/public", "Bearer garbage", http.StatusOK},
		{"private without token", "/private", "", http.StatusUnauthorized},
		{"private with token", "/private", "Bearer " + candidateToken, http.StatusOK},
		{"hr route as candidate", "/hr", "Bearer " + candidateToken, http.StatusForbidden},
		{"hr route as hr", "/hr", "Bearer " + hrToken, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}
