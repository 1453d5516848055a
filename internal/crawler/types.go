package crawler

import (
	"time"

	"github.com/JakeFAU/iata-code-fetcher/internal/codes"
)

// Page is the raw result of a GET.
type Page struct {
	URL        string
	StatusCode int
	Body       []byte
	Duration   time.Duration
}

// Summary describes one finished pass over a code space.
type Summary struct {
	Kind         codes.Kind
	Total        int
	Processed    int
	Records      int
	Skipped      int
	Malformed    int
	Failed       int
	ResumedAfter string
	Duration     time.Duration
}
