package metrics

import (
	"context"
	"time"

	"github.com/JakeFAU/iata-code-fetcher/internal/crawler"
)

// Getter wraps a crawler.Getter and records every request it makes.
type Getter struct {
	next crawler.Getter
}

// InstrumentGetter returns next wrapped with request metrics. Init must have
// been called.
func InstrumentGetter(next crawler.Getter) *Getter {
	return &Getter{next: next}
}

// Get implements crawler.Getter.
func (g *Getter) Get(ctx context.Context, url string) (crawler.Page, error) {
	start := time.Now()
	page, err := g.next.Get(ctx, url)
	if err != nil {
		ObserveFetch(url, 0, 0, time.Since(start))
		return page, err
	}
	ObserveFetch(url, page.StatusCode, len(page.Body), time.Since(start))
	return page, nil
}
