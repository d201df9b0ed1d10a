package quota

import "photocache/downloader/internal/domain"

// Admission is the outcome of a quota check for one catalog entry.
type Admission int

const (
	// Rejected means the album already reached its per-album limit.
	Rejected Admission = iota
	// AdmittedFirst is the first admission for an album in this pass.
	AdmittedFirst
	// Admitted is any later admission for an album.
	Admitted
)

func (a Admission) String() string {
	switch a {
	case Rejected:
		return "rejected"
	case AdmittedFirst:
		return "admitted-first"
	case Admitted:
		return "admitted"
	default:
		return "unknown"
	}
}

// Tracker counts admitted entries per album for a single pass.
//
// A Tracker is owned by the dispatch loop and is not safe for concurrent use;
// worker goroutines never see it. A new pass starts with a new Tracker.
type Tracker struct {
	limit  int
	counts map[domain.AlbumID]int
}

func NewTracker(limit int) *Tracker {
	return &Tracker{
		limit:  limit,
		counts: make(map[domain.AlbumID]int),
	}
}

// Admit records one admission for albumID if its limit has not been reached.
func (t *Tracker) Admit(albumID domain.AlbumID) Admission {
	count, seen := t.counts[albumID]
	if !seen {
		if t.limit <= 0 {
			t.counts[albumID] = 0
			return Rejected
		}
		t.counts[albumID] = 1
		return AdmittedFirst
	}

	if count >= t.limit {
		return Rejected
	}

	t.counts[albumID] = count + 1
	return Admitted
}

// Count returns how many entries of albumID were admitted so far.
func (t *Tracker) Count(albumID domain.AlbumID) int {
	return t.counts[albumID]
}

// Albums returns the number of albums seen in this pass.
func (t *Tracker) Albums() int {
	return len(t.counts)
}
