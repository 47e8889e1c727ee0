// Package maintenance holds periodic housekeeping jobs.
package maintenance

import (
	"log"
)

// CoverLister reports the cover file names still referenced by books.
type CoverLister interface {
	CoverFilenames() ([]string, error)
}

// CoverRemover deletes unreferenced files from the covers directory.
type CoverRemover interface {
	RemoveOrphans(referenced map[string]struct{}) (int, error)
}

// CoverSweeper removes cover files on disk that no book references.
// Replaced and deleted covers are cleaned up inline by the handlers; the
// sweep catches files leaked by crashes between a file write and the
// matching record write.
type CoverSweeper struct {
	store  CoverLister
	covers CoverRemover
}

func NewCoverSweeper(store CoverLister, covers CoverRemover) *CoverSweeper {
	return &CoverSweeper{store: store, covers: covers}
}

// Sweep removes orphaned cover files and returns how many were deleted.
func (s *CoverSweeper) Sweep() (int, error) {
	names, err := s.store.CoverFilenames()
	if err != nil {
		return 0, err
	}

	referenced := make(map[string]struct{}, len(names))
	for _, name := range names {
		referenced[name] = struct{}{}
	}

	return s.covers.RemoveOrphans(referenced)
}

// Run executes a sweep and logs the outcome. Used as a cron callback.
func (s *CoverSweeper) Run() {
	removed, err := s.Sweep()
	if err != nil {
		log.Printf("Cover sweep failed: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("Cover sweep removed %d orphaned file(s)", removed)
	}
}
