package crawler

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/iata-code-fetcher/internal/record"
)

// ResultTableSelector locates the catalog's result table.
const ResultTableSelector = "table.datatable"

// ParseTable extracts one record per body row of the result table. Header
// names come from the first header row; body cells are matched to them by
// position, so short rows yield records without their trailing columns.
func ParseTable(body []byte) ([]record.Record, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &ParseError{Reason: fmt.Sprintf("read html: %v", err)}
	}
	table := doc.Find(ResultTableSelector).First()
	if table.Length() == 0 {
		return nil, ErrNoData
	}

	headers := cellTexts(table.ChildrenFiltered("thead").Find("tr").First())
	if len(headers) == 0 {
		return nil, &ParseError{Reason: "missing header row"}
	}
	tbody := table.ChildrenFiltered("tbody")
	if tbody.Length() == 0 {
		return nil, &ParseError{Reason: "missing body"}
	}

	bodyRows := tbody.ChildrenFiltered("tr")
	rows := make([]record.Record, 0, bodyRows.Length())
	bodyRows.Each(func(_ int, row *goquery.Selection) {
		cells := cellTexts(row)
		var rec record.Record
		for i, value := range cells {
			if i >= len(headers) {
				break
			}
			rec.Set(headers[i], value)
		}
		rows = append(rows, rec)
	})
	return rows, nil
}

func cellTexts(row *goquery.Selection) []string {
	var out []string
	row.ChildrenFiltered("th, td").Each(func(_ int, cell *goquery.Selection) {
		out = append(out, strings.TrimSpace(cell.Text()))
	})
	return out
}
