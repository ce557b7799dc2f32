package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"scubaai/internal/audit"
	authmodels "scubaai/internal/auth/models"
	"scubaai/internal/auth/store/revocation"
	chatmodels "scubaai/internal/chat/models"
	instrservice "scubaai/internal/instruction/service"
	instructions "scubaai/internal/instruction/store/instruction"
	"scubaai/internal/platform/config"
	"scubaai/internal/settings/models"
	"scubaai/internal/settings/service"
	settings "scubaai/internal/settings/store/setting"
	"scubaai/internal/token"
	id "scubaai/pkg/domain"
	"scubaai/pkg/testutil"
)

type stubProfiles struct {
	profiles map[id.UserID]authmodels.Profile
}

func (s *stubProfiles) Profile(_ context.Context, userID id.UserID) (authmodels.Profile, error) {
	return s.profiles[userID], nil
}

type stubConversations struct{}

func (stubConversations) ListConversations(_ context.Context, _ id.UserID) ([]chatmodels.Conversation, error) {
	return nil, nil
}

func (stubConversations) GetConversation(_ context.Context, _ id.UserID, _ id.ConversationID) (chatmodels.ConversationDetail, error) {
	return chatmodels.ConversationDetail{}, nil
}

type SettingsHandlerSuite struct {
	suite.Suite
	router     *chi.Mux
	tokens     *token.Service
	userID     id.UserID
	userToken  string
	adminToken string
}

func TestSettingsHandlerSuite(t *testing.T) {
	suite.Run(t, new(SettingsHandlerSuite))
}

func (s *SettingsHandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	publisher := audit.NewPublisher(64, logger)
	s.tokens = token.NewService(config.JWT{
		SigningKey: "test-signing-key",
		Issuer:     "scubaai-test",
		Audience:   "scubaai",
		AccessTTL:  time.Hour,
		RefreshTTL: 720 * time.Hour,
	})

	s.userID = id.NewUserID()
	profiles := &stubProfiles{profiles: map[id.UserID]authmodels.Profile{
		s.userID: {ID: s.userID.String(), Username: "diver", Email: "diver@example.com", IsActive: true},
	}}
	instrSvc := instrservice.New(instructions.NewInMemoryStore(), publisher, logger)

	svc := service.New(
		settings.NewInMemoryStore(),
		profiles,
		instrSvc,
		stubConversations{},
		publisher,
		logger,
	)

	var err error
	s.userToken, err = s.tokens.GenerateAccessToken(s.userID, false)
	s.Require().NoError(err)
	s.adminToken, err = s.tokens.GenerateAccessToken(id.NewUserID(), true)
	s.Require().NoError(err)

	s.router = chi.NewRouter()
	New(svc, s.tokens, revocation.NewInMemoryList(), logger).Register(s.router)
}

func (s *SettingsHandlerSuite) request(token, method, path string, body any) *httptest.ResponseRecorder {
	req := testutil.NewJSONRequest(s.T(), method, path, body)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *SettingsHandlerSuite) TestRequiresAuthentication() {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, testutil.NewJSONRequest(s.T(), http.MethodGet, "/system", nil))
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *SettingsHandlerSuite) TestMutationsRequireAdmin() {
	w := s.request(s.userToken, http.MethodPost, "/system", map[string]any{
		"key": "default_model", "value": "llama-3.3-70b",
	})
	s.Equal(http.StatusForbidden, w.Code)

	w = s.request(s.userToken, http.MethodDelete, "/system/"+id.NewSettingID().String(), nil)
	s.Equal(http.StatusForbidden, w.Code)
}

func (s *SettingsHandlerSuite) TestSettingLifecycle() {
	w := s.request(s.adminToken, http.MethodPost, "/system", map[string]any{
		"key": "default_model", "value": "llama-3.3-70b", "description": "fallback model",
	})
	s.Require().Equal(http.StatusCreated, w.Code)
	created := *testutil.UnmarshalResponse[models.Setting](s.T(), w)
	s.Equal("default_model", created.Key)

	// Reads stay open to any authenticated user.
	w = s.request(s.userToken, http.MethodGet, "/system", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	listed := *testutil.UnmarshalResponse[[]models.Setting](s.T(), w)
	s.Require().Len(listed, 1)

	w = s.request(s.userToken, http.MethodGet, "/system/key/default_model", nil)
	s.Equal(http.StatusOK, w.Code)

	w = s.request(s.adminToken, http.MethodPut, "/system/"+created.ID.String(), map[string]any{
		"value": "llama-3.1-8b",
	})
	s.Require().Equal(http.StatusOK, w.Code)
	updated := *testutil.UnmarshalResponse[models.Setting](s.T(), w)
	s.Equal("llama-3.1-8b", updated.Value)
	s.Equal("default_model", updated.Key)
	s.Equal("fallback model", updated.Description)

	w = s.request(s.adminToken, http.MethodDelete, "/system/"+created.ID.String(), nil)
	s.Equal(http.StatusNoContent, w.Code)

	w = s.request(s.userToken, http.MethodGet, "/system/key/default_model", nil)
	s.Equal(http.StatusNotFound, w.Code)
	testutil.AssertErrorCode(s.T(), w, "not_found")
}

func (s *SettingsHandlerSuite) TestDuplicateKeyConflicts() {
	w := s.request(s.adminToken, http.MethodPost, "/system", map[string]any{
		"key": "max_tokens", "value": "4096",
	})
	s.Require().Equal(http.StatusCreated, w.Code)

	w = s.request(s.adminToken, http.MethodPost, "/system", map[string]any{
		"key": "max_tokens", "value": "8192",
	})
	s.Equal(http.StatusConflict, w.Code)
	testutil.AssertErrorCode(s.T(), w, "conflict")
}

func (s *SettingsHandlerSuite) TestValidation() {
	w := s.request(s.adminToken, http.MethodPost, "/system", map[string]any{
		"key": "", "value": "x",
	})
	s.Equal(http.StatusBadRequest, w.Code)
	testutil.AssertErrorCode(s.T(), w, "bad_request")

	w = s.request(s.adminToken, http.MethodPut, "/system/not-a-uuid", map[string]any{
		"value": "x",
	})
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *SettingsHandlerSuite) TestPreferences() {
	w := s.request(s.userToken, http.MethodGet, "/preferences", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	prefs := *testutil.UnmarshalResponse[models.Preferences](s.T(), w)
	s.Equal("diver", prefs.Profile.Username)
	s.Nil(prefs.DefaultInstruction)
}

func (s *SettingsHandlerSuite) TestExport() {
	w := s.request(s.userToken, http.MethodGet, "/export", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(w.Header().Get("Content-Disposition"), "scubaai-export.json")
	export := *testutil.UnmarshalResponse[models.Export](s.T(), w)
	s.Equal("diver", export.Profile.Username)
	s.False(export.ExportedAt.IsZero())
}
