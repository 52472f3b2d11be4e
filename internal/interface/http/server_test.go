package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dailydraw/streak-bot/internal/application/query"
	"github.com/dailydraw/streak-bot/internal/domain/notification/notificationtest"
	"github.com/dailydraw/streak-bot/internal/domain/shared"
	"github.com/dailydraw/streak-bot/internal/domain/streak"
	"github.com/dailydraw/streak-bot/internal/domain/streak/streaktest"
	"github.com/dailydraw/streak-bot/internal/interface/http/handlers"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	repo   *streaktest.Repository
	health *handlers.HealthChecker
	router *gin.Engine
}

func newFixture(t *testing.T, config Config) *fixture {
	t.Helper()

	repo := streaktest.NewRepository(
		&streak.Record{UserID: 1001, GuildID: 42, Streak: 3, MaxStreak: 6, XP: 90, HasPostedToday: true, Timezone: 1},
		&streak.Record{UserID: 1002, GuildID: 42, Streak: 1, MaxStreak: 2, XP: 20, Timezone: 1},
	)
	dir := &notificationtest.Directory{Members: []notificationtest.Member{{GuildID: 42, UserID: 1001, Name: "ana"}}}

	health := handlers.NewHealthChecker("test", 0)
	health.AddCheck("store", handlers.PingCheck(repo))

	return &fixture{
		repo:   repo,
		health: health,
		router: NewRouter(config, Dependencies{
			GetScore:      query.NewGetScoreHandler(repo),
			GetScoreboard: query.NewGetScoreboardHandler(repo, nil, dir, 10),
			Health:        health,
			Logger:        nil,
		}),
	}
}

func (f *fixture) get(t *testing.T, path string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestGetScore(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	w := f.get(t, "/api/v1/guilds/42/users/1001/score")
	require.Equal(t, http.StatusOK, w.Code)

	got := decode[query.ScoreDTO](t, w)
	assert.Equal(t, query.ScoreDTO{
		UserID: 1001, GuildID: 42, XP: 90, Streak: 3, MaxStreak: 6, HasPostedToday: true, Exists: true,
	}, got)
	assert.NotEmpty(t, w.Header().Get(handlers.RequestIDHeader))
}

func TestGetScore_UnknownUserIsZero(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	w := f.get(t, "/api/v1/guilds/42/users/5/score")
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[query.ScoreDTO](t, w).Exists)
}

func TestGetScore_BadIDs(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	assert.Equal(t, http.StatusBadRequest, f.get(t, "/api/v1/guilds/abc/users/1/score").Code)
	assert.Equal(t, http.StatusBadRequest, f.get(t, "/api/v1/guilds/42/users/-3/score").Code)
}

func TestGetScore_StoreDown(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.repo.Err = shared.StoreUnavailable("Find", errors.New("connection refused"))

	w := f.get(t, "/api/v1/guilds/42/users/1001/score")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "store unavailable", decode[handlers.ErrorResponse](t, w).Error)
}

func TestGetScoreboard(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	w := f.get(t, "/api/v1/guilds/42/scoreboard?limit=1")
	require.Equal(t, http.StatusOK, w.Code)

	got := decode[query.ScoreboardDTO](t, w)
	assert.Equal(t, 1, got.Limit)
	require.Len(t, got.Standings, 1)
	assert.Equal(t, streak.Standing{Rank: 1, UserID: 1001, DisplayName: "ana", Streak: 3, MaxStreak: 6, XP: 90}, got.Standings[0])

	w = f.get(t, "/api/v1/guilds/42/scoreboard")
	require.Equal(t, http.StatusOK, w.Code)
	got = decode[query.ScoreboardDTO](t, w)
	assert.Equal(t, 10, got.Limit)
	require.Len(t, got.Standings, 2)
	assert.Equal(t, "1002", got.Standings[1].DisplayName)
}

func TestGetScoreboard_BadLimit(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	assert.Equal(t, http.StatusBadRequest, f.get(t, "/api/v1/guilds/42/scoreboard?limit=0").Code)
	assert.Equal(t, http.StatusBadRequest, f.get(t, "/api/v1/guilds/42/scoreboard?limit=ten").Code)
}

func TestAPIKeys(t *testing.T) {
	config := DefaultConfig()
	config.APIKeys = []string{"s3cret"}
	f := newFixture(t, config)

	assert.Equal(t, http.StatusUnauthorized, f.get(t, "/api/v1/guilds/42/scoreboard").Code)
	assert.Equal(t, http.StatusUnauthorized, f.get(t, "/api/v1/guilds/42/scoreboard", "X-API-Key", "nope").Code)
	assert.Equal(t, http.StatusOK, f.get(t, "/api/v1/guilds/42/scoreboard", "X-API-Key", "s3cret").Code)
	assert.Equal(t, http.StatusOK, f.get(t, "/api/v1/guilds/42/scoreboard", "Authorization", "Bearer s3cret").Code)
	assert.Equal(t, http.StatusOK, f.get(t, "/healthz").Code, "health stays open")
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	w := f.get(t, "/healthz")
	require.Equal(t, http.StatusOK, w.Code)
	status := decode[handlers.HealthStatus](t, w)
	assert.True(t, status.Healthy)
	assert.Equal(t, "test", status.Version)
	assert.True(t, status.Checks["store"].Healthy)

	f.health.AddCheck("redis", func(context.Context) error { return errors.New("dial tcp: refused") })
	f.repo.Err = errors.New("eof")

	w = f.get(t, "/healthz")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	status = decode[handlers.HealthStatus](t, w)
	assert.False(t, status.Healthy)
	assert.Equal(t, "failing: redis, store", status.Message)
	assert.Equal(t, "dial tcp: refused", status.Checks["redis"].Message)
}

func TestRecoveryAndRequestID(t *testing.T) {
	r := gin.New()
	r.Use(handlers.RequestContext(nil), handlers.Recovery(), handlers.RequestLogger())
	r.GET("/boom", func(*gin.Context) { panic("nil map") })

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(handlers.RequestIDHeader, "req-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "req-1", w.Header().Get(handlers.RequestIDHeader))
}
