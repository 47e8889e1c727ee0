package http

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/shelfmark/shelfmark/internal/database"
	"github.com/shelfmark/shelfmark/internal/entities"
	"github.com/shelfmark/shelfmark/internal/session"
)

// AuthorStore defines database operations for author management.
type AuthorStore interface {
	GetAuthors(filter database.AuthorFilter) ([]entities.Author, error)
	GetAuthorByID(id uint) (*entities.Author, error)
	CreateAuthor(name string) (*entities.Author, error)
	UpdateAuthor(author *entities.Author) error
	DeleteAuthor(id uint) error
}

type AuthorsController struct {
	store    AuthorStore
	sessions *session.Manager
}

func NewAuthorsController(store AuthorStore, sessions *session.Manager) *AuthorsController {
	return &AuthorsController{store: store, sessions: sessions}
}

// List renders all authors matching the optional name search.
// GET /authors?name=
func (ac *AuthorsController) List(c *gin.Context) {
	filter := database.AuthorFilter{Name: c.Query("name")}

	authors, err := ac.store.GetAuthors(filter)
	if err != nil {
		log.Printf("Error listing authors: %v", err)
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	render(c, http.StatusOK, "authors/index", gin.H{
		"Authors": authors,
		"Search":  filter,
		"Flash":   popFlash(ac.sessions, c),
	})
}

// New renders the author creation form.
// GET /authors/new
func (ac *AuthorsController) New(c *gin.Context) {
	render(c, http.StatusOK, "authors/new", gin.H{
		"Author": &entities.Author{},
	})
}

// Create validates and inserts a new author, then redirects to its detail
// page. Validation failures re-render the form with the submitted values.
// POST /authors
func (ac *AuthorsController) Create(c *gin.Context) {
	name := strings.TrimSpace(c.PostForm("name"))
	author := &entities.Author{Name: name}

	if name == "" {
		render(c, http.StatusOK, "authors/new", gin.H{
			"Author":       author,
			"ErrorMessage": "Name is required",
		})
		return
	}

	created, err := ac.store.CreateAuthor(name)
	if err != nil {
		message := "Error creating Author"
		if errors.Is(err, database.ErrDuplicateName) {
			message = "Author already exists"
		} else {
			log.Printf("Error creating author: %v", err)
		}
		render(c, http.StatusOK, "authors/new", gin.H{
			"Author":       author,
			"ErrorMessage": message,
		})
		return
	}

	c.Redirect(http.StatusSeeOther, fmt.Sprintf("/authors/%d", created.ID))
}

// Show renders an author with their books.
// GET /authors/:id
func (ac *AuthorsController) Show(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	author, err := ac.store.GetAuthorByID(id)
	if err != nil {
		c.Redirect(http.StatusSeeOther, "/authors")
		return
	}

	render(c, http.StatusOK, "authors/show", gin.H{
		"Author": author,
		"Books":  author.Books,
	})
}

// Edit renders the author edit form.
// GET /authors/:id/edit
func (ac *AuthorsController) Edit(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	author, err := ac.store.GetAuthorByID(id)
	if err != nil {
		c.Redirect(http.StatusSeeOther, "/authors")
		return
	}

	render(c, http.StatusOK, "authors/edit", gin.H{
		"Author": author,
	})
}

// Update applies the submitted name to an existing author. On failure the
// form is re-rendered with the unsaved edits preserved.
// PUT /authors/:id
func (ac *AuthorsController) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	author, err := ac.store.GetAuthorByID(id)
	if err != nil {
		c.Redirect(http.StatusSeeOther, "/authors")
		return
	}

	author.Name = strings.TrimSpace(c.PostForm("name"))

	if author.Name == "" {
		render(c, http.StatusOK, "authors/edit", gin.H{
			"Author":       author,
			"ErrorMessage": "Name is required",
		})
		return
	}

	if err := ac.store.UpdateAuthor(author); err != nil {
		log.Printf("Error updating author %d: %v", id, err)
		render(c, http.StatusOK, "authors/edit", gin.H{
			"Author":       author,
			"ErrorMessage": "Error updating Author",
		})
		return
	}

	c.Redirect(http.StatusSeeOther, fmt.Sprintf("/authors/%d", author.ID))
}

// Delete removes an author unless books still reference them. A guard
// rejection leaves the listing unchanged; the detail is only logged.
// DELETE /authors/:id
func (ac *AuthorsController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	err := ac.store.DeleteAuthor(id)
	switch {
	case errors.Is(err, database.ErrAuthorHasBooks):
		log.Printf("Refusing to delete author %d: %v", id, err)
	case errors.Is(err, gorm.ErrRecordNotFound):
		log.Printf("Author %d not found for deletion", id)
	case err != nil:
		log.Printf("Error deleting author %d: %v", id, err)
	}

	c.Redirect(http.StatusSeeOther, "/authors")
}
