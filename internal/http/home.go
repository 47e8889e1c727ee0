package http

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shelfmark/shelfmark/internal/entities"
)

// recentBookCount is how many books the landing page shows.
const recentBookCount = 10

// RecentBookReader provides the landing page's view of the store.
type RecentBookReader interface {
	GetRecentBooks(limit int) ([]entities.Book, error)
}

type HomeController struct {
	books RecentBookReader
}

func NewHomeController(books RecentBookReader) *HomeController {
	return &HomeController{books: books}
}

// Index renders the landing page with the most recently added books.
// GET /
func (hc *HomeController) Index(c *gin.Context) {
	books, err := hc.books.GetRecentBooks(recentBookCount)
	if err != nil {
		log.Printf("Error loading recent books: %v", err)
		books = nil
	}
	render(c, http.StatusOK, "index", gin.H{"Books": books})
}
