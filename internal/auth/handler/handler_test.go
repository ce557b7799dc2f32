package handler

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"scubaai/internal/audit"
	"scubaai/internal/auth/models"
	"scubaai/internal/auth/service"
	"scubaai/internal/auth/store/revocation"
	sessions "scubaai/internal/auth/store/session"
	users "scubaai/internal/auth/store/user"
	"scubaai/internal/platform/config"
	"scubaai/internal/platform/metrics"
	"scubaai/internal/token"
	"scubaai/pkg/testutil"
)

var testMetrics = metrics.New()

// AuthHandlerSuite drives the full route stack: chi router, auth middleware,
// real service over in-memory stores and real JWTs.
type AuthHandlerSuite struct {
	suite.Suite
	router      *chi.Mux
	svc         *service.Service
	revocations *revocation.InMemoryList
	seq         int
}

func TestAuthHandlerSuite(t *testing.T) {
	suite.Run(t, new(AuthHandlerSuite))
}

func (s *AuthHandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := token.NewService(config.JWT{
		SigningKey: "test-signing-key",
		Issuer:     "scubaai-test",
		Audience:   "scubaai",
		AccessTTL:  time.Hour,
		RefreshTTL: 720 * time.Hour,
	})
	s.revocations = revocation.NewInMemoryList()

	s.svc = service.New(
		users.NewInMemoryStore(),
		sessions.NewInMemoryStore(),
		s.revocations,
		tokens,
		audit.NewPublisher(64, logger),
		testMetrics,
		logger,
	)

	s.router = chi.NewRouter()
	New(s.svc, tokens, s.revocations, logger).Register(s.router)
}

func (s *AuthHandlerSuite) registerAndLogin() models.TokenPair {
	s.seq++
	username := fmt.Sprintf("diver%d", s.seq)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/register", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "secret1",
	}))
	s.Require().Equal(http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/login", map[string]string{
		"username": username,
		"password": "secret1",
	}))
	s.Require().Equal(http.StatusOK, w.Code)

	return *testutil.UnmarshalResponse[models.TokenPair](s.T(), w)
}

func (s *AuthHandlerSuite) authedRequest(method, path, token string, body any) *httptest.ResponseRecorder {
	req := testutil.NewJSONRequest(s.T(), method, path, body)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *AuthHandlerSuite) TestRegisterValidation() {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/register", map[string]string{
		"username": "ab",
		"email":    "a@example.com",
		"password": "secret1",
	}))
	s.Equal(http.StatusBadRequest, w.Code)
	testutil.AssertErrorCode(s.T(), w, "bad_request")
}

func (s *AuthHandlerSuite) TestLoginAndProfileRoundTrip() {
	pair := s.registerAndLogin()

	w := s.authedRequest(http.MethodGet, "/auth/profile", pair.AccessToken, nil)
	s.Require().Equal(http.StatusOK, w.Code)

	profile := *testutil.UnmarshalResponse[models.Profile](s.T(), w)
	s.Equal(pair.User.Username, profile.Username)
}

func (s *AuthHandlerSuite) TestProfileRequiresToken() {
	req := httptest.NewRequest(http.MethodGet, "/auth/profile", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *AuthHandlerSuite) TestLogoutRevokesToken() {
	pair := s.registerAndLogin()

	w := s.authedRequest(http.MethodPost, "/auth/logout", pair.AccessToken, nil)
	s.Require().Equal(http.StatusNoContent, w.Code)

	// The same token must now be rejected by the middleware.
	w = s.authedRequest(http.MethodGet, "/auth/profile", pair.AccessToken, nil)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *AuthHandlerSuite) TestRefreshFlow() {
	pair := s.registerAndLogin()

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/refresh", map[string]string{
		"refresh_token": pair.RefreshToken,
	}))
	s.Require().Equal(http.StatusOK, w.Code)

	refreshed := *testutil.UnmarshalResponse[models.TokenPair](s.T(), w)
	s.NotEmpty(refreshed.AccessToken)
	s.Empty(refreshed.RefreshToken)

	// An access token is not accepted as a refresh token.
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/refresh", map[string]string{
		"refresh_token": pair.AccessToken,
	}))
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *AuthHandlerSuite) TestChangePassword() {
	pair := s.registerAndLogin()

	w := s.authedRequest(http.MethodPost, "/auth/change-password", pair.AccessToken, map[string]string{
		"current_password": "secret1",
		"new_password":     "freshsecret",
	})
	s.Require().Equal(http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/login", map[string]string{
		"username": pair.User.Username,
		"password": "freshsecret",
	}))
	s.Equal(http.StatusOK, w.Code)
}

func (s *AuthHandlerSuite) TestSessionsListing() {
	pair := s.registerAndLogin()

	w := s.authedRequest(http.MethodGet, "/auth/sessions", pair.AccessToken, nil)
	s.Require().Equal(http.StatusOK, w.Code)

	body := *testutil.UnmarshalResponse[map[string][]models.SessionSummary](s.T(), w)
	s.Len(body["sessions"], 1)
}

func (s *AuthHandlerSuite) TestAdminRoutesRejectNonAdmins() {
	pair := s.registerAndLogin()

	w := s.authedRequest(http.MethodGet, "/auth/users", pair.AccessToken, nil)
	s.Equal(http.StatusForbidden, w.Code)
	testutil.AssertErrorCode(s.T(), w, "forbidden")
}

func (s *AuthHandlerSuite) TestAdminUserManagement() {
	admin := s.registerAndLoginAdmin()
	target := s.registerAndLogin()

	w := s.authedRequest(http.MethodGet, "/auth/users", admin.AccessToken, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	listing := *testutil.UnmarshalResponse[map[string][]models.Profile](s.T(), w)
	s.GreaterOrEqual(len(listing["users"]), 2)

	w = s.authedRequest(http.MethodPost, "/auth/users/"+target.User.ID+"/toggle-active", admin.AccessToken, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	toggled := *testutil.UnmarshalResponse[models.Profile](s.T(), w)
	s.False(toggled.IsActive)

	w = s.authedRequest(http.MethodPost, "/auth/users/"+target.User.ID+"/promote", admin.AccessToken, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	promoted := *testutil.UnmarshalResponse[models.Profile](s.T(), w)
	s.True(promoted.IsAdmin)

	w = s.authedRequest(http.MethodGet, "/auth/users/"+target.User.ID+"/stats", admin.AccessToken, nil)
	s.Require().Equal(http.StatusOK, w.Code)

	w = s.authedRequest(http.MethodDelete, "/auth/users/"+target.User.ID, admin.AccessToken, nil)
	s.Equal(http.StatusNoContent, w.Code)

	w = s.authedRequest(http.MethodDelete, "/auth/users/not-a-uuid", admin.AccessToken, nil)
	s.Equal(http.StatusBadRequest, w.Code)
}

// registerAndLoginAdmin seeds the bootstrap admin account and logs into it.
func (s *AuthHandlerSuite) registerAndLoginAdmin() models.TokenPair {
	s.Require().NoError(s.svc.EnsureAdmin(s.T().Context(), "scubaadmin"))

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/login", map[string]string{
		"username": "admin",
		"password": "scubaadmin",
	}))
	s.Require().Equal(http.StatusOK, w.Code)
	return *testutil.UnmarshalResponse[models.TokenPair](s.T(), w)
}
