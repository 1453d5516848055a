package crawler

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/JakeFAU/iata-code-fetcher/internal/codes"
)

// Catalog defaults.
const (
	DefaultBaseURL      = "https://www.iata.org/PublicationDetails/Search/"
	DefaultPage         = 12572
	DefaultCarrierBlock = 314383
	DefaultAirportBlock = 314384
)

// Catalog resolves codes to search URLs on the publication catalog.
type Catalog struct {
	BaseURL      string
	Page         int
	CarrierBlock int
	AirportBlock int
}

// DefaultCatalog returns the production catalog layout.
func DefaultCatalog() Catalog {
	return Catalog{
		BaseURL:      DefaultBaseURL,
		Page:         DefaultPage,
		CarrierBlock: DefaultCarrierBlock,
		AirportBlock: DefaultAirportBlock,
	}
}

// URL builds the search URL for code.
func (c Catalog) URL(code string, kind codes.Kind) (string, error) {
	var block int
	var param string
	switch kind {
	case codes.KindCarrier:
		block, param = c.CarrierBlock, "airline"
	case codes.KindAirport:
		block, param = c.AirportBlock, "airport"
	default:
		return "", fmt.Errorf("unknown code kind %d", int(kind))
	}
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse catalog base url: %w", err)
	}
	// Query parameters are written in a fixed order so URLs are stable in logs.
	query := "currentBlock=" + strconv.Itoa(block) +
		"&currentPage=" + strconv.Itoa(c.Page) +
		"&" + param + ".search=" + url.QueryEscape(code)
	base.RawQuery = query
	return base.String(), nil
}
