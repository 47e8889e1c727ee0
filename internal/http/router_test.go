package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/shelfmark/shelfmark/internal/config"
	"github.com/shelfmark/shelfmark/internal/covers"
	"github.com/shelfmark/shelfmark/internal/database"
	"github.com/shelfmark/shelfmark/internal/entities"
	"github.com/shelfmark/shelfmark/internal/session"
)

// testServer bundles the pieces handler tests exercise together.
type testServer struct {
	db      *database.Database
	covers  *covers.Store
	handler http.Handler
}

func newTestStores(t *testing.T) (*database.Database, *covers.Store, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dbPath := "./test_http_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"
	db, err := database.NewDatabase(dbPath)
	require.NoError(t, err)

	coverStore, err := covers.NewStore(t.TempDir(), "/covers", []string{"image/jpeg", "image/png", "image/gif"}, 10)
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}
	return db, coverStore, cleanup
}

func newTestSessions(t *testing.T, db *database.Database) *session.Manager {
	t.Helper()

	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	sessions, err := session.NewManager(sqlDB, config.Session{Lifetime: time.Hour})
	require.NoError(t, err)
	return sessions
}

func setupTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()

	db, coverStore, cleanup := newTestStores(t)
	router := NewRouter(RouterConfig{
		Authors:       db,
		Books:         db,
		Home:          db,
		Covers:        coverStore,
		TemplatesPath: "../../templates",
		StaticPath:    "../../static",
	})
	return &testServer{db: db, covers: coverStore, handler: MethodOverride(router)}, cleanup
}

// setupProtectedTestServer wires CSRF protection and sessions the way the
// entrypoint does, for tests exercising the form-token and flash round trips.
func setupProtectedTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()

	db, coverStore, cleanup := newTestStores(t)
	router := NewRouter(RouterConfig{
		Authors:       db,
		Books:         db,
		Home:          db,
		Covers:        coverStore,
		Sessions:      newTestSessions(t, db),
		CSRFSecret:    []byte("0123456789abcdef0123456789abcdef"),
		TemplatesPath: "../../templates",
		StaticPath:    "../../static",
	})
	return &testServer{db: db, covers: coverStore, handler: MethodOverride(router)}, cleanup
}

func (s *testServer) get(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func (s *testServer) submitForm(method, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func (s *testServer) createAuthor(t *testing.T, name string) *entities.Author {
	t.Helper()
	author, err := s.db.CreateAuthor(name)
	require.NoError(t, err)
	return author
}

func (s *testServer) createBook(t *testing.T, title string, authorID uint, published string) *entities.Book {
	t.Helper()
	publishDate, err := time.Parse(dateLayout, published)
	require.NoError(t, err)
	book := &entities.Book{
		Title:       title,
		PublishDate: publishDate,
		PageCount:   200,
		AuthorID:    authorID,
	}
	require.NoError(t, s.db.CreateBook(book))
	return book
}
