package crawler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/iata-code-fetcher/internal/record"
)

func TestParseTable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		html    string
		want    []record.Record
		wantErr error
		parse   bool
	}{
		{
			name: "th headers and trimmed cells",
			html: `<table class="datatable"><thead><tr><th> Name </th><th>Code</th></tr></thead>
				<tbody><tr><td>
					Alpha Air
				</td><td>A1</td></tr></tbody></table>`,
			want: []record.Record{record.New("Name", "Alpha Air", "Code", "A1")},
		},
		{
			name: "short row drops trailing keys",
			html: `<table class="datatable"><thead><tr><td>A</td><td>B</td><td>C</td></tr></thead>
				<tbody><tr><td>1</td></tr></tbody></table>`,
			want: []record.Record{record.New("A", "1")},
		},
		{
			name: "surplus cells are ignored",
			html: `<table class="datatable"><thead><tr><td>A</td></tr></thead>
				<tbody><tr><td>1</td><td>2</td></tr></tbody></table>`,
			want: []record.Record{record.New("A", "1")},
		},
		{
			name: "header without rows",
			html: `<table class="datatable"><thead><tr><td>A</td></tr></thead><tbody></tbody></table>`,
			want: []record.Record{},
		},
		{
			name: "first matching table wins",
			html: `<table class="other"><thead><tr><td>X</td></tr></thead><tbody><tr><td>x</td></tr></tbody></table>
				<table class="datatable"><thead><tr><td>A</td></tr></thead><tbody><tr><td>1</td></tr></tbody></table>
				<table class="datatable"><thead><tr><td>B</td></tr></thead><tbody><tr><td>2</td></tr></tbody></table>`,
			want: []record.Record{record.New("A", "1")},
		},
		{
			name: "rows of a table nested in a cell are not records",
			html: `<table class="datatable"><thead><tr><td>A</td><td>B</td></tr></thead>
				<tbody><tr><td>x<table><tbody><tr><td>inner</td></tr></tbody></table></td><td>y</td></tr></tbody></table>`,
			want: []record.Record{record.New("A", "xinner", "B", "y")},
		},
		{
			name:    "no result table",
			html:    `<div class="datatable">nothing</div>`,
			wantErr: ErrNoData,
		},
		{
			name:  "missing body",
			html:  `<table class="datatable"><thead><tr><td>A</td></tr></thead></table>`,
			parse: true,
		},
		{
			name:  "missing header",
			html:  `<table class="datatable"><tbody><tr><td>1</td></tr></tbody></table>`,
			parse: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseTable([]byte(tt.html))
			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
			case tt.parse:
				var parseErr *ParseError
				require.ErrorAs(t, err, &parseErr)
			default:
				require.NoError(t, err)
				require.Equal(t, tt.want, got)
			}
		})
	}
}
