package httpapi

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"scubaai/internal/ai"
	"scubaai/internal/ai/mocks"
	"scubaai/internal/audit"
	authhandler "scubaai/internal/auth/handler"
	authservice "scubaai/internal/auth/service"
	"scubaai/internal/auth/store/revocation"
	"scubaai/internal/auth/store/session"
	"scubaai/internal/auth/store/user"
	chathandler "scubaai/internal/chat/handler"
	chatservice "scubaai/internal/chat/service"
	"scubaai/internal/chat/store/conversation"
	"scubaai/internal/chat/store/message"
	instrhandler "scubaai/internal/instruction/handler"
	instrservice "scubaai/internal/instruction/service"
	instructions "scubaai/internal/instruction/store/instruction"
	"scubaai/internal/platform/config"
	"scubaai/internal/platform/metrics"
	settingshandler "scubaai/internal/settings/handler"
	settingsservice "scubaai/internal/settings/service"
	settings "scubaai/internal/settings/store/setting"
	"scubaai/internal/token"
	"scubaai/pkg/platform/middleware/ratelimit"
	"scubaai/pkg/testutil"
)

var testMetrics = metrics.New()

type RouterSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	completer *mocks.MockCompleter
	router    http.Handler
	token     string
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	publisher := audit.NewPublisher(64, logger)
	s.ctrl = gomock.NewController(s.T())
	s.completer = mocks.NewMockCompleter(s.ctrl)

	tokens := token.NewService(config.JWT{
		SigningKey: "test-signing-key",
		Issuer:     "scubaai-test",
		Audience:   "scubaai",
		AccessTTL:  time.Hour,
		RefreshTTL: 720 * time.Hour,
	})
	revocations := revocation.NewInMemoryList()

	authSvc := authservice.New(
		user.NewInMemoryStore(), session.NewInMemoryStore(), revocations,
		tokens, publisher, testMetrics, logger,
	)
	instrSvc := instrservice.New(instructions.NewInMemoryStore(), publisher, logger)
	chatSvc := chatservice.New(
		conversation.NewInMemoryStore(), message.NewInMemoryStore(),
		s.completer, instrSvc, publisher, testMetrics, logger,
	)
	settingsSvc := settingsservice.New(
		settings.NewInMemoryStore(), authSvc, instrSvc, chatSvc, publisher, logger,
	)

	limiter := ratelimit.NewLimiter(2, time.Minute)
	s.router = New(Deps{
		Logger:     logger,
		Metrics:    testMetrics,
		CORSOrigin: "*",
		Auth:       authhandler.New(authSvc, tokens, revocations, logger),
		Chat: chathandler.New(chatSvc, tokens, revocations, logger,
			chathandler.WithCompletionLimit(ratelimit.Middleware(limiter, logger))),
		Instructions: instrhandler.New(instrSvc, tokens, revocations, logger),
		Settings:     settingshandler.New(settingsSvc, tokens, revocations, logger),
		Models:       s.completer,
		JWTValidator: tokens,
		Revocations:  revocations,
	})

	w := s.request("", http.MethodPost, "/api/auth/register", map[string]any{
		"username": "diver", "email": "diver@example.com", "password": "correct-horse-battery",
	})
	s.Require().Equal(http.StatusCreated, w.Code)

	w = s.request("", http.MethodPost, "/api/auth/login", map[string]any{
		"username": "diver", "password": "correct-horse-battery",
	})
	s.Require().Equal(http.StatusOK, w.Code)
	login := *testutil.UnmarshalResponse[map[string]any](s.T(), w)
	s.token, _ = login["access_token"].(string)
	s.Require().NotEmpty(s.token)
}

func (s *RouterSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *RouterSuite) request(token, method, path string, body any) *httptest.ResponseRecorder {
	req := testutil.NewJSONRequest(s.T(), method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *RouterSuite) TestHealthz() {
	w := s.request("", http.MethodGet, "/healthz", nil)
	s.Equal(http.StatusOK, w.Code)
	health := *testutil.UnmarshalResponse[map[string]string](s.T(), w)
	s.Equal("ok", health["status"])
}

func (s *RouterSuite) TestMetricsEndpoint() {
	w := s.request("", http.MethodGet, "/metrics", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "scubaai_")
}

func (s *RouterSuite) TestSettingsPathsCompose() {
	w := s.request(s.token, http.MethodGet, "/api/settings/instructions", nil)
	s.Equal(http.StatusOK, w.Code)

	w = s.request(s.token, http.MethodGet, "/api/settings/system", nil)
	s.Equal(http.StatusOK, w.Code)

	w = s.request(s.token, http.MethodGet, "/api/settings/preferences", nil)
	s.Equal(http.StatusOK, w.Code)
}

func (s *RouterSuite) TestListModels() {
	s.completer.EXPECT().ListModels(gomock.Any()).Return([]ai.Model{
		{ID: "llama3-8b-8192", Name: "LLaMA 3 8B"},
	}, nil)

	w := s.request(s.token, http.MethodGet, "/api/models", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	models := *testutil.UnmarshalResponse[[]ai.Model](s.T(), w)
	s.Require().Len(models, 1)
	s.Equal("llama3-8b-8192", models[0].ID)

	w = s.request("", http.MethodGet, "/api/models", nil)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *RouterSuite) TestCompletionRateLimit() {
	s.completer.EXPECT().Complete(gomock.Any(), gomock.Any()).Return("ok", nil).Times(2)
	s.completer.EXPECT().GenerateTitle(gomock.Any(), gomock.Any()).Return("Gear advice", nil).AnyTimes()

	w := s.request(s.token, http.MethodPost, "/api/conversations", map[string]any{})
	s.Require().Equal(http.StatusCreated, w.Code)
	created := *testutil.UnmarshalResponse[map[string]any](s.T(), w)
	convID, _ := created["id"].(string)
	s.Require().NotEmpty(convID)

	for i := 0; i < 2; i++ {
		w = s.request(s.token, http.MethodPost, "/api/conversations/"+convID+"/messages", map[string]any{
			"content": "what regulator should I buy?",
		})
		s.Require().Equal(http.StatusCreated, w.Code)
	}

	w = s.request(s.token, http.MethodPost, "/api/conversations/"+convID+"/messages", map[string]any{
		"content": "one more",
	})
	s.Equal(http.StatusTooManyRequests, w.Code)
	s.NotEmpty(w.Header().Get("Retry-After"))

	// Non-completion routes stay unthrottled.
	w = s.request(s.token, http.MethodGet, "/api/conversations", nil)
	s.Equal(http.StatusOK, w.Code)
}

func (s *RouterSuite) TestUnknownRouteIs404() {
	w := s.request("", http.MethodGet, "/api/nope", nil)
	s.Equal(http.StatusNotFound, w.Code)
}
