package normalize

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/JakeFAU/iata-code-fetcher/internal/codes"
	"github.com/JakeFAU/iata-code-fetcher/internal/record"
)

// Canonical field names.
const (
	FieldIATA               = "iata"
	FieldCityName           = "city_name"
	FieldAirportName        = "airport_name"
	FieldCountryOrTerritory = "country_or_territory"
	FieldCompanyName        = "company_name"
)

// KindSchema maps catalog columns of one kind to canonical names and fixes the
// sort order of the canonical dataset.
type KindSchema struct {
	Kind    codes.Kind
	Renames map[string]string
	SortBy  []string
}

// Schema returns the canonical layout for kind.
func Schema(kind codes.Kind) (KindSchema, error) {
	switch kind {
	case codes.KindAirport:
		return KindSchema{
			Kind: kind,
			Renames: map[string]string{
				"3-letter location code": FieldIATA,
				"City Name":              FieldCityName,
				"Airport Name":           FieldAirportName,
			},
			SortBy: []string{FieldIATA, FieldCityName, FieldAirportName},
		}, nil
	case codes.KindCarrier:
		return KindSchema{
			Kind: kind,
			Renames: map[string]string{
				"2-letter code":       FieldIATA,
				"Country / Territory": FieldCountryOrTerritory,
				"Company name":        FieldCompanyName,
			},
			SortBy: []string{FieldIATA, FieldCountryOrTerritory, FieldCompanyName},
		}, nil
	default:
		return KindSchema{}, fmt.Errorf("unknown code kind %d", int(kind))
	}
}

// Canonicalize dedupes records by content, renames their fields, and sorts
// them by the kind's sort keys. Missing sort keys compare as empty strings;
// ties fall back to the full record content so the order is total.
func Canonicalize(records []record.Record, kind codes.Kind) ([]record.Record, error) {
	schema, err := Schema(kind)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(records))
	out := make([]record.Record, 0, len(records))
	for _, rec := range records {
		key := rec.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, rec.Rename(schema.Renames))
	}

	slices.SortFunc(out, func(a, b record.Record) int {
		for _, field := range schema.SortBy {
			if c := cmp.Compare(a.Value(field), b.Value(field)); c != 0 {
				return c
			}
		}
		return cmp.Compare(a.Key(), b.Key())
	})
	return out, nil
}
