package http

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shelfmark/shelfmark/internal/database"
)

// submitMultipart posts a multipart form, optionally attaching a cover file.
func (s *testServer) submitMultipart(t *testing.T, path string, fields map[string]string, coverData []byte) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for name, value := range fields {
		require.NoError(t, writer.WriteField(name, value))
	}
	if coverData != nil {
		part, err := writer.CreateFormFile("cover", "upload.bin")
		require.NoError(t, err)
		_, err = part.Write(coverData)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 40, 60))))
	return buf.Bytes()
}

func TestBooksController_List(t *testing.T) {
	t.Run("filters by title substring", func(t *testing.T) {
		server, cleanup := setupTestServer(t)
		defer cleanup()

		tolkien := server.createAuthor(t, "J.R.R. Tolkien")
		herbert := server.createAuthor(t, "Frank Herbert")
		server.createBook(t, "The Hobbit", tolkien.ID, "1937-09-21")
		server.createBook(t, "Dune", herbert.ID, "1965-08-01")

		w := server.get("/books?title=hobbit")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "The Hobbit")
		assert.NotContains(t, w.Body.String(), "Dune")
	})

	t.Run("filters by publish date range", func(t *testing.T) {
		server, cleanup := setupTestServer(t)
		defer cleanup()

		author := server.createAuthor(t, "J.R.R. Tolkien")
		server.createBook(t, "The Hobbit", author.ID, "1937-09-21")
		server.createBook(t, "The Silmarillion", author.ID, "1977-09-15")

		w := server.get("/books?publishedBefore=1950-01-01")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "The Hobbit")
		assert.NotContains(t, w.Body.String(), "The Silmarillion")
	})

	t.Run("ignores a malformed date value", func(t *testing.T) {
		server, cleanup := setupTestServer(t)
		defer cleanup()

		author := server.createAuthor(t, "J.R.R. Tolkien")
		server.createBook(t, "The Hobbit", author.ID, "1937-09-21")

		w := server.get("/books?publishedAfter=banana")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "The Hobbit")
	})
}

func TestBooksController_Create(t *testing.T) {
	validFields := func(authorID uint) map[string]string {
		return map[string]string{
			"title":       "The Hobbit",
			"description": "There and back again.",
			"publishDate": "1937-09-21",
			"pageCount":   "310",
			"author":      fmt.Sprint(authorID),
		}
	}

	t.Run("creates a book with a cover and redirects to its page", func(t *testing.T) {
		server, cleanup := setupTestServer(t)
		defer cleanup()

		author := server.createAuthor(t, "J.R.R. Tolkien")

		w := server.submitMultipart(t, "/books", validFields(author.ID), testPNG(t))

		assert.Equal(t, http.StatusSeeOther, w.Code)

		books, err := server.db.GetBooks(database.BookFilter{})
		require.NoError(t, err)
		require.Len(t, books, 1)
		book := books[0]
		assert.Equal(t, "The Hobbit", book.Title)
		assert.Equal(t, 310, book.PageCount)
		assert.Equal(t, fmt.Sprintf("/books/%d", book.ID), w.Header().Get("Location"))

		require.True(t, book.HasCover())
		assert.FileExists(t, filepath.Join(server.covers.Dir(), book.CoverFilename))
	})

	t.Run("saves the book without a cover when the upload is not an image", func(t *testing.T) {
		server, cleanup := setupTestServer(t)
		defer cleanup()

		author := server.createAuthor(t, "J.R.R. Tolkien")

		w := server.submitMultipart(t, "/books", validFields(author.ID), []byte("plain text payload"))

		assert.Equal(t, http.StatusSeeOther, w.Code)

		books, err := server.db.GetBooks(database.BookFilter{})
		require.NoError(t, err)
		require.Len(t, books, 1)
		assert.False(t, books[0].HasCover())
	})

	t.Run("requires a title", func(t *testing.T) {
		server, cleanup := setupTestServer(t)
		defer cleanup()

		author := server.createAuthor(t, "J.R.R. Tolkien")
		fields := validFields(author.ID)
		fields["title"] = "  "

		w := server.submitMultipart(t, "/books", fields, nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Title is required")

		books, err := server.db.GetBooks(database.BookFilter{})
		require.NoError(t, err)
		assert.Empty(t, books)
	})

	t.Run("requires a positive page count", func(t *testing.T) {
		server, cleanup := setupTestServer(t)
		defer cleanup()

		author := server.createAuthor(t, "J.R.R. Tolkien")
		fields := validFields(author.ID)
		fields["pageCount"] = "0"

		w := server.submitMultipart(t, "/books", fields, nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Page count must be a positive number")
	})

	t.Run("rejects a reference to a missing author", func(t *testing.T) {
		server, cleanup := setupTestServer(t)
		defer cleanup()

		server.createAuthor(t, "J.R.R. Tolkien")
		fields := validFields(999)

		w := server.submitMultipart(t, "/books", fields, nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Unknown author")

		books, err := server.db.GetBooks(database.BookFilter{})
		require.NoError(t, err)
		assert.Empty(t, books)
	})
}

func TestBooksController_Show(t *testing.T) {
	t.Run("renders the book with its author resolved", func(t *testing.T) {
		server, cleanup := setupTestServer(t)
		defer cleanup()

		author := server.createAuthor(t, "Frank Herbert")
		book := server.createBook(t, "Dune", author.ID, "1965-08-01")

		w := server.get(fmt.Sprintf("/books/%d", book.ID))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Dune")
		assert.Contains(t, w.Body.String(), "Frank Herbert")
	})

	t.Run("redirects to the listing for a missing book", func(t *testing.T) {
		server, cleanup := setupTestServer(t)
		defer cleanup()

		w := server.get("/books/999")

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/books", w.Header().Get("Location"))
	})
}

func TestBooksController_Update(t *testing.T) {
	t.Run("applies the submitted fields", func(t *testing.T) {
		server, cleanup := setupTestServer(t)
		defer cleanup()

		author := server.createAuthor(t, "Frank Herbert")
		book := server.createBook(t, "Dune Messiah", author.ID, "1969-01-01")

		w := server.submitForm(http.MethodPost, fmt.Sprintf("/books/%d", book.ID), url.Values{
			"_method":     {"PUT"},
			"title":       {"Children of Dune"},
			"publishDate": {"1976-04-01"},
			"pageCount":   {"444"},
			"author":      {fmt.Sprint(author.ID)},
		})

		assert.Equal(t, http.StatusSeeOther, w.Code)

		got, err := server.db.GetBookByID(book.ID)
		require.NoError(t, err)
		assert.Equal(t, "Children of Dune", got.Title)
		assert.Equal(t, 444, got.PageCount)
	})

	t.Run("replaces the cover and removes the old file", func(t *testing.T) {
		server, cleanup := setupTestServer(t)
		defer cleanup()

		author := server.createAuthor(t, "Frank Herbert")
		book := server.createBook(t, "Dune", author.ID, "1965-08-01")

		oldCover, err := server.covers.SaveUpload(bytes.NewReader(testPNG(t)))
		require.NoError(t, err)
		book.CoverFilename = oldCover
		require.NoError(t, server.db.UpdateBook(book))

		fields := map[string]string{
			"_method":     "PUT",
			"title":       "Dune",
			"publishDate": "1965-08-01",
			"pageCount":   "412",
			"author":      fmt.Sprint(author.ID),
		}
		w := server.submitMultipart(t, fmt.Sprintf("/books/%d", book.ID), fields, testPNG(t))

		assert.Equal(t, http.StatusSeeOther, w.Code)

		got, err := server.db.GetBookByID(book.ID)
		require.NoError(t, err)
		require.True(t, got.HasCover())
		assert.NotEqual(t, oldCover, got.CoverFilename)
		assert.FileExists(t, filepath.Join(server.covers.Dir(), got.CoverFilename))
		assert.NoFileExists(t, filepath.Join(server.covers.Dir(), oldCover))
	})
}

// failingDeleteStore serves reads from the real store but fails every delete.
type failingDeleteStore struct {
	*database.Database
}

func (s *failingDeleteStore) DeleteBook(id uint) error {
	return errors.New("disk unavailable")
}

func TestBooksController_DeleteFailureShowsFlash(t *testing.T) {
	db, coverStore, cleanup := newTestStores(t)
	defer cleanup()

	router := NewRouter(RouterConfig{
		Authors:       db,
		Books:         &failingDeleteStore{Database: db},
		Home:          db,
		Covers:        coverStore,
		Sessions:      newTestSessions(t, db),
		TemplatesPath: "../../templates",
		StaticPath:    "../../static",
	})
	server := &testServer{db: db, covers: coverStore, handler: MethodOverride(router)}

	author := server.createAuthor(t, "Frank Herbert")
	book := server.createBook(t, "Dune", author.ID, "1965-08-01")
	detailPath := fmt.Sprintf("/books/%d", book.ID)

	w := server.submitForm(http.MethodPost, detailPath, url.Values{"_method": {"DELETE"}})

	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Equal(t, detailPath, w.Header().Get("Location"))
	sessionCookies := w.Result().Cookies()
	require.NotEmpty(t, sessionCookies)

	// The message survives the redirect through the session
	req := httptest.NewRequest(http.MethodGet, detailPath, nil)
	for _, cookie := range sessionCookies {
		req.AddCookie(cookie)
	}
	shown := httptest.NewRecorder()
	server.handler.ServeHTTP(shown, req)

	assert.Equal(t, http.StatusOK, shown.Code)
	assert.Contains(t, shown.Body.String(), "Could not remove book")

	// Flash messages are one-shot
	req = httptest.NewRequest(http.MethodGet, detailPath, nil)
	for _, cookie := range sessionCookies {
		req.AddCookie(cookie)
	}
	again := httptest.NewRecorder()
	server.handler.ServeHTTP(again, req)

	assert.NotContains(t, again.Body.String(), "Could not remove book")
}

func TestBooksController_Delete(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	author := server.createAuthor(t, "Frank Herbert")
	book := server.createBook(t, "Dune", author.ID, "1965-08-01")

	cover, err := server.covers.SaveUpload(bytes.NewReader(testPNG(t)))
	require.NoError(t, err)
	book.CoverFilename = cover
	require.NoError(t, server.db.UpdateBook(book))

	w := server.submitForm(http.MethodPost, fmt.Sprintf("/books/%d", book.ID), url.Values{
		"_method": {"DELETE"},
	})

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/books", w.Header().Get("Location"))

	_, err = server.db.GetBookByID(book.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.NoFileExists(t, filepath.Join(server.covers.Dir(), cover))
}
