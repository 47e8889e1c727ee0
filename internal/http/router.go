package http

import (
	"html/template"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shelfmark/shelfmark/internal/covers"
	"github.com/shelfmark/shelfmark/internal/session"
)

// RouterConfig carries all router dependencies, improving testability and
// reducing parameter count.
type RouterConfig struct {
	Authors AuthorStore
	Books   BookStore
	Home    RecentBookReader

	Covers   *covers.Store
	Sessions *session.Manager

	CSRFSecret    []byte
	SecureCookies bool

	TemplatesPath string
	StaticPath    string
}

// NewRouter creates and configures the HTTP router with all endpoints.
// Wrap the result in MethodOverride before serving so HTML forms can issue
// PUT and DELETE.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(SecurityHeadersMiddleware())

	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies))
	}
	if cfg.Sessions != nil {
		router.Use(cfg.Sessions.LoadSave())
	}

	funcMap := template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("January 2, 2006")
		},
		"dateValue": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("2006-01-02")
		},
		"coverURL": cfg.Covers.PublicURL,
	}

	tmpl := template.Must(template.New("").Funcs(funcMap).ParseGlob(cfg.TemplatesPath + "/*.html"))
	router.SetHTMLTemplate(tmpl)

	// Static assets and uploaded cover files
	router.Static("/static", cfg.StaticPath)
	router.Static(cfg.Covers.PublicPath(), cfg.Covers.Dir())

	home := NewHomeController(cfg.Home)
	authors := NewAuthorsController(cfg.Authors, cfg.Sessions)
	books := NewBooksController(cfg.Books, cfg.Covers, cfg.Sessions)

	router.GET("/", home.Index)

	router.GET("/authors", authors.List)
	router.GET("/authors/new", authors.New)
	router.POST("/authors", authors.Create)
	router.GET("/authors/:id", authors.Show)
	router.GET("/authors/:id/edit", authors.Edit)
	router.PUT("/authors/:id", authors.Update)
	router.DELETE("/authors/:id", authors.Delete)

	router.GET("/books", books.List)
	router.GET("/books/new", books.New)
	router.POST("/books", books.Create)
	router.GET("/books/:id", books.Show)
	router.GET("/books/:id/edit", books.Edit)
	router.PUT("/books/:id", books.Update)
	router.DELETE("/books/:id", books.Delete)

	return router
}
