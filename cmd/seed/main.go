// Command seed populates a catalog database with sample authors and books
// for local development.
// Usage: go run cmd/seed/main.go [-db path/to/shelfmark.db]
package main

import (
	"errors"
	"flag"
	"log"
	"time"

	"github.com/shelfmark/shelfmark/internal/database"
	"github.com/shelfmark/shelfmark/internal/entities"
)

const defaultDatabasePath = "./shelfmark.db"

type seedBook struct {
	title       string
	description string
	published   string
	pages       int
}

var seedData = map[string][]seedBook{
	"J.R.R. Tolkien": {
		{"The Hobbit", "Bilbo Baggins is swept into a quest to reclaim the lonely mountain.", "1937-09-21", 310},
		{"The Fellowship of the Ring", "The first part of The Lord of the Rings.", "1954-07-29", 423},
	},
	"Ursula K. Le Guin": {
		{"A Wizard of Earthsea", "Ged's rise from goatherd to archmage.", "1968-11-01", 183},
		{"The Dispossessed", "An ambiguous utopia.", "1974-05-01", 341},
	},
	"Frank Herbert": {
		{"Dune", "Politics, religion and ecology on the desert planet Arrakis.", "1965-08-01", 412},
	},
}

func main() {
	dbPath := flag.String("db", defaultDatabasePath, "path to the catalog database file")
	flag.Parse()

	log.Printf("Seeding catalog database at %s...", *dbPath)

	db, err := database.NewDatabase(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	for name, books := range seedData {
		author, err := db.CreateAuthor(name)
		if errors.Is(err, database.ErrDuplicateName) {
			log.Printf("Skipping %s: already present", name)
			continue
		}
		if err != nil {
			log.Fatalf("Failed to create author %s: %v", name, err)
		}

		for _, b := range books {
			publishDate, err := time.Parse("2006-01-02", b.published)
			if err != nil {
				log.Fatalf("Bad publish date for %s: %v", b.title, err)
			}
			book := &entities.Book{
				Title:       b.title,
				Description: b.description,
				PublishDate: publishDate,
				PageCount:   b.pages,
				AuthorID:    author.ID,
			}
			if err := db.CreateBook(book); err != nil {
				log.Fatalf("Failed to create book %s: %v", b.title, err)
			}
			log.Printf("Saved: %s by %s", b.title, name)
		}
	}

	log.Printf("Done")
}
