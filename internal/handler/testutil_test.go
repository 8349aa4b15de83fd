package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"github.com/user/movienest/internal/config"
	"github.com/user/movienest/internal/handler"
	"github.com/user/movienest/internal/middleware"
	"github.com/user/movienest/internal/model"
	"github.com/user/movienest/internal/repository"
	"github.com/user/movienest/internal/router"
	"github.com/user/movienest/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeCatalog struct {
	page    *model.MoviePage
	details *model.MovieDetails
	err     error
	query   string
}

func (f *fakeCatalog) Search(_ context.Context, query string, _ int) (*model.MoviePage, error) {
	f.query = query
	return f.page, f.err
}

func (f *fakeCatalog) Trending(context.Context) (*model.MoviePage, error) {
	return f.page, f.err
}

func (f *fakeCatalog) Details(context.Context, int) (*model.MovieDetails, error) {
	return f.details, f.err
}

type fakeJobs struct {
	versions *model.MovieVersions
	job      *model.VersionJob
	err      error
}

func (f *fakeJobs) FetchMovieVersions(context.Context, string) (*model.MovieVersions, error) {
	return f.versions, f.err
}

func (f *fakeJobs) FetchVersionJob(context.Context, string) (*model.VersionJob, error) {
	return f.job, f.err
}

type fakeDownloads struct {
	state      model.QueueState
	checkErr   error
	submitErr  error
	submitted  []string
	view       *model.DownloadStatusView
	overview   []model.VersionOverview
	overviewID string
}

func (f *fakeDownloads) CheckQueue(context.Context, string) (model.QueueState, error) {
	return f.state, f.checkErr
}

func (f *fakeDownloads) Submit(_ context.Context, hash, tmdbID string) (model.DownloadStatus, error) {
	f.submitted = append(f.submitted, hash+"|"+tmdbID)
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return model.StatusDownloading, nil
}

func (f *fakeDownloads) PersistedStatus(_ context.Context, hash string) (*model.DownloadStatusView, error) {
	if f.view != nil {
		return f.view, nil
	}
	return (*model.DownloadStatusRecord)(nil).View(hash), nil
}

func (f *fakeDownloads) VersionOverview(_ context.Context, tmdbID string) ([]model.VersionOverview, error) {
	f.overviewID = tmdbID
	return f.overview, nil
}

type fakeStorage struct {
	exists bool
	url    string
	err    error
}

func (f *fakeStorage) Exists(context.Context, string) (bool, error) {
	return f.exists, f.err
}

func (f *fakeStorage) PresignDownload(context.Context, string, string, string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if !f.exists {
		return "", service.ErrNotFound
	}
	return f.url, nil
}

type testApp struct {
	engine    *gin.Engine
	repos     *repository.Repositories
	movies    *fakeCatalog
	jobs      *fakeJobs
	downloads *fakeDownloads
	storage   *fakeStorage
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	db, err := gorm.Open(sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: ":memory:"}),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, repository.AutoMigrate(db))

	app := &testApp{
		repos:     repository.NewRepositories(db, nil),
		movies:    &fakeCatalog{page: model.EmptyMoviePage()},
		jobs:      &fakeJobs{},
		downloads: &fakeDownloads{},
		storage:   &fakeStorage{},
	}
	h := &handler.Handler{
		Repos:     app.repos,
		Config:    &config.Config{},
		Movies:    app.movies,
		Versions:  app.jobs,
		Downloads: app.downloads,
		Storage:   app.storage,
	}

	r := gin.New()
	r.Use(sessions.Sessions(middleware.SessionName, cookie.NewStore([]byte("test-secret"))))
	router.RegisterRoutes(r, h)
	app.engine = r
	return app
}

// do 发送 JSON 请求，cookies 为 nil 时不带 session
func (a *testApp) do(t *testing.T, method, path string, body interface{}, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func (a *testApp) createUser(t *testing.T, username, role string, approved bool) *model.User {
	t.Helper()
	u, err := a.repos.User.Create(username, "password", role, approved)
	require.NoError(t, err)
	return u
}

// login 创建已审核用户并返回 session cookie
func (a *testApp) login(t *testing.T, username, role string) (*model.User, []*http.Cookie) {
	t.Helper()
	u := a.createUser(t, username, role, true)
	w := a.do(t, http.MethodPost, "/api/login", gin.H{"username": username, "password": "password"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	return u, cookies
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}
