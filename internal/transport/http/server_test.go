package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"story-endings/internal/bootstrap"
	"story-endings/internal/config"
	"story-endings/internal/logging"
	"story-endings/internal/model"
	"story-endings/internal/platform/database"
	"story-endings/internal/repository"
)

func newTestApp(t *testing.T) *bootstrap.App {
	t.Helper()
	cfg := config.Default()
	cfg.App.GinMode = gin.TestMode
	cfg.Session.BcryptCost = bcrypt.MinCost

	db, err := database.New(context.Background(), config.DriverSQLite, filepath.Join(t.TempDir(), "http.db"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	require.NoError(t, repository.NewTaxonomyRepository(db).Seed(context.Background(), cfg.Catalog.Genres, cfg.Catalog.Types))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return &bootstrap.App{
		Config:    cfg,
		Logger:    logging.Discard(),
		DB:        db,
		StartedAt: time.Now(),
	}
}

func newTestRouter(t *testing.T, app *bootstrap.App) *gin.Engine {
	t.Helper()
	router, err := NewRouter(app)
	require.NoError(t, err)
	return router
}

// browser keeps cookies between requests and sends a same-origin Origin on POST.
type browser struct {
	t       *testing.T
	router  *gin.Engine
	cookies map[string]*http.Cookie
}

func newBrowser(t *testing.T, router *gin.Engine) *browser {
	return &browser{t: t, router: router, cookies: make(map[string]*http.Cookie)}
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.do(http.MethodGet, path, nil)
}

func (b *browser) post(path string, form url.Values) *httptest.ResponseRecorder {
	return b.do(http.MethodPost, path, form)
}

func (b *browser) do(method, path string, form url.Values) *httptest.ResponseRecorder {
	b.t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if method == http.MethodPost {
		req.Header.Set("Origin", "http://example.com")
	}
	for _, c := range b.cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	b.router.ServeHTTP(w, req)

	for _, c := range w.Result().Cookies() {
		if c.MaxAge < 0 || c.Value == "" {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return w
}

// follow asserts a 303 to location and loads it.
func (b *browser) follow(w *httptest.ResponseRecorder, location string) *httptest.ResponseRecorder {
	b.t.Helper()
	require.Equal(b.t, http.StatusSeeOther, w.Code)
	require.Equal(b.t, location, w.Header().Get("Location"))
	return b.get(location)
}

func (b *browser) register(username, password string) *httptest.ResponseRecorder {
	return b.post("/register", url.Values{"username": {username}, "password": {password}})
}

func (b *browser) login(username, password string) *httptest.ResponseRecorder {
	return b.post("/login", url.Values{"username": {username}, "password": {password}})
}

func endingForm(name string) url.Values {
	return url.Values{
		"genre_name":         {"Drama"},
		"type_name":          {"Twist"},
		"ending_name":        {name},
		"ending_description": {"the butler did it"},
	}
}

func onlyEndingOf(t *testing.T, app *bootstrap.App, username string) model.Ending {
	t.Helper()
	endings, err := repository.NewEndingRepository(app.DB).ListByCreator(context.Background(), username)
	require.NoError(t, err)
	require.Len(t, endings, 1)
	return endings[0]
}

func TestBobRegistersLogsOutAndLogsBackIn(t *testing.T) {
	router := newTestRouter(t, newTestApp(t))
	bob := newBrowser(t, router)

	page := bob.follow(bob.register("Bob", "pw1"), "/profile/bob")
	assert.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "Registration Successful!")
	assert.Contains(t, page.Body.String(), "bob&#39;s profile")

	page = bob.follow(bob.get("/logout"), "/login")
	assert.Contains(t, page.Body.String(), "You have been logged out")
	assert.NotContains(t, bob.cookies, "session")

	page = bob.follow(bob.login("BOB", "pw1"), "/profile/bob")
	assert.Contains(t, page.Body.String(), "Welcome, bob")
}

func TestLoginFailuresShareOneMessage(t *testing.T) {
	router := newTestRouter(t, newTestApp(t))
	bob := newBrowser(t, router)
	bob.register("bob", "pw1")

	wrongPassword := newBrowser(t, router)
	page := wrongPassword.follow(wrongPassword.login("bob", "wrong"), "/login")
	assert.Contains(t, page.Body.String(), "Incorrect Username and/or Password")
	assert.NotContains(t, wrongPassword.cookies, "session")

	unknownUser := newBrowser(t, router)
	page = unknownUser.follow(unknownUser.login("nouser", "wrong"), "/login")
	assert.Contains(t, page.Body.String(), "Incorrect Username and/or Password")
}

func TestDuplicateRegistrationIsRejected(t *testing.T) {
	router := newTestRouter(t, newTestApp(t))

	first := newBrowser(t, router)
	first.register("bob", "pw1")

	second := newBrowser(t, router)
	page := second.follow(second.register("BOB", "pw2"), "/register")
	assert.Contains(t, page.Body.String(), "Username already exists")
	assert.NotContains(t, second.cookies, "session")

	again := newBrowser(t, router)
	again.follow(again.login("bob", "pw1"), "/profile/bob")
}

func TestUnauthenticatedAddRedirectsWithoutTouchingStore(t *testing.T) {
	app := newTestApp(t)
	router := newTestRouter(t, app)

	sqlDB, err := app.DB.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	anon := newBrowser(t, router)
	w := anon.get("/add_ending")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	w = anon.post("/add_ending", endingForm("sneaky"))
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestStoreOutageKeepsSessionAndShowsErrorPage(t *testing.T) {
	app := newTestApp(t)
	router := newTestRouter(t, app)
	bob := newBrowser(t, router)
	bob.follow(bob.register("bob", "pw1"), "/profile/bob")
	require.Contains(t, bob.cookies, "session")

	sqlDB, err := app.DB.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	w := bob.get("/add_ending")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Something went wrong")
	assert.Contains(t, bob.cookies, "session")
}

func TestEndingLifecycleWithOwnership(t *testing.T) {
	app := newTestApp(t)
	router := newTestRouter(t, app)

	bob := newBrowser(t, router)
	bob.register("bob", "pw1")
	alice := newBrowser(t, router)
	alice.register("alice", "pw2")

	form := bob.get("/add_ending")
	require.Equal(t, http.StatusOK, form.Code)
	assert.Contains(t, form.Body.String(), `<option value="Drama"`)

	page := bob.follow(bob.post("/add_ending", endingForm("The Reveal")), "/")
	assert.Contains(t, page.Body.String(), "Ending Successfully Added")
	assert.Contains(t, page.Body.String(), "The Reveal")

	ending := onlyEndingOf(t, app, "bob")
	detailPath := "/ending/" + ending.ID

	page = alice.get(detailPath)
	require.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "the butler did it")
	assert.NotContains(t, page.Body.String(), "/edit_ending/")

	page = alice.follow(alice.post("/edit_ending/"+ending.ID, endingForm("Stolen")), detailPath)
	assert.Contains(t, page.Body.String(), "You can only change your own endings")
	alice.follow(alice.get("/edit_ending/"+ending.ID), detailPath)
	alice.follow(alice.post("/delete_ending/"+ending.ID, url.Values{}), detailPath)

	page = bob.follow(bob.post("/edit_ending/"+ending.ID, endingForm("The Real Reveal")), detailPath)
	assert.Contains(t, page.Body.String(), "Ending Successfully Updated")
	assert.Contains(t, page.Body.String(), "The Real Reveal")

	page = bob.follow(bob.get("/delete_ending/"+ending.ID), "/")
	assert.Contains(t, page.Body.String(), "Ending Successfully Deleted")

	assert.Equal(t, http.StatusNotFound, bob.get(detailPath).Code)
}

func TestAddRejectsUnknownGenre(t *testing.T) {
	router := newTestRouter(t, newTestApp(t))
	bob := newBrowser(t, router)
	bob.register("bob", "pw1")

	form := endingForm("Odd")
	form.Set("genre_name", "Western")
	page := bob.follow(bob.post("/add_ending", form), "/add_ending")
	assert.Contains(t, page.Body.String(), "Unknown genre")
}

func TestEditUnknownEndingIsNotFound(t *testing.T) {
	router := newTestRouter(t, newTestApp(t))
	bob := newBrowser(t, router)
	bob.register("bob", "pw1")

	w := bob.post("/edit_ending/7f1c1bd2-6a43-4c57-9a4b-8c8f3f2a9d10", endingForm("Ghost"))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteUnknownEndingSucceedsSilently(t *testing.T) {
	router := newTestRouter(t, newTestApp(t))
	bob := newBrowser(t, router)
	bob.register("bob", "pw1")

	bob.follow(bob.post("/delete_ending/not-a-real-id", url.Values{}), "/")
}

func TestDetailOfMalformedIDIsNotFound(t *testing.T) {
	router := newTestRouter(t, newTestApp(t))
	w := newBrowser(t, router).get("/ending/definitely-not-a-uuid")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "That ending does not exist.")
}

func TestLogoutWithoutSession(t *testing.T) {
	router := newTestRouter(t, newTestApp(t))
	anon := newBrowser(t, router)

	page := anon.follow(anon.get("/logout"), "/login")
	assert.Contains(t, page.Body.String(), "You have been logged out")
}

func TestRatingUpdatesAverage(t *testing.T) {
	app := newTestApp(t)
	router := newTestRouter(t, app)

	bob := newBrowser(t, router)
	bob.register("bob", "pw1")
	bob.post("/add_ending", endingForm("Rated"))
	ending := onlyEndingOf(t, app, "bob")
	detailPath := "/ending/" + ending.ID

	alice := newBrowser(t, router)
	alice.register("alice", "pw2")
	page := alice.follow(alice.post("/rate_ending/"+ending.ID, url.Values{"score": {"4"}}), detailPath)
	assert.Contains(t, page.Body.String(), "Thanks for rating")
	assert.Contains(t, page.Body.String(), "4.0 / 5")

	page = alice.follow(alice.post("/rate_ending/"+ending.ID, url.Values{"score": {"9"}}), detailPath)
	assert.Contains(t, page.Body.String(), "Pick a score from 1 to 5")
}

func TestProfileOfAnotherUserRedirectsToOwn(t *testing.T) {
	router := newTestRouter(t, newTestApp(t))
	bob := newBrowser(t, router)
	bob.register("bob", "pw1")

	w := bob.get("/profile/alice")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/profile/bob", w.Header().Get("Location"))
}

func TestCrossOriginPostIsForbidden(t *testing.T) {
	router := newTestRouter(t, newTestApp(t))

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("username=bob&password=pw1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Origin", "https://evil.example")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestForgedSessionCookieIsIgnored(t *testing.T) {
	router := newTestRouter(t, newTestApp(t))
	anon := newBrowser(t, router)
	anon.cookies["session"] = &http.Cookie{Name: "session", Value: "forged.token.value"}

	w := anon.get("/add_ending")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
	assert.NotContains(t, anon.cookies, "session")
}

func TestOperationalEndpoints(t *testing.T) {
	router := newTestRouter(t, newTestApp(t))
	anon := newBrowser(t, router)

	health := anon.get("/healthz")
	assert.Equal(t, http.StatusOK, health.Code)
	assert.Contains(t, health.Body.String(), `"database":{"ok":true}`)
	assert.Contains(t, health.Body.String(), `"redis":{"ok":true,"disabled":true}`)

	anon.get("/")
	metrics := anon.get("/metrics")
	assert.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), "http_requests_total")

	css := anon.get("/static/style.css")
	assert.Equal(t, http.StatusOK, css.Code)

	assert.Equal(t, http.StatusNotFound, anon.get("/no/such/page").Code)
}
