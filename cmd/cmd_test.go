package cmd

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/iata-code-fetcher/internal/codes"
	"github.com/JakeFAU/iata-code-fetcher/internal/normalize"
)

func writeConfig(t *testing.T, dir, extra string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	body := fmt.Sprintf(`
output:
  dir: %s
  fsync: false
logging:
  development: false
  level: error
%s`, dir, extra)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestNormalizeCommand(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logPath := filepath.Join(dir, "airport_data_full.jsonl")
	lines := strings.Join([]string{
		`{"City Name":"Zurich","Airport Name":"Zurich Airport","3-letter location code":"ZRH"}`,
		`{"City Name":"Anaa","Airport Name":"Anaa Airport","3-letter location code":"AAA"}`,
		`{"City Name":"Zurich","Airport Name":"Zurich Airport","3-letter location code":"ZRH"}`,
	}, "\n") + "\n"
	require.NoError(t, os.WriteFile(logPath, []byte(lines), 0o600))

	err := run(context.Background(), []string{"--config", writeConfig(t, dir, ""), "normalize", "airport", logPath})
	require.NoError(t, err)

	out, err := os.ReadFile(filepath.Join(dir, "airport_data_full_processed.jsonl"))
	require.NoError(t, err)
	assert.Equal(t,
		`{"city_name":"Anaa","airport_name":"Anaa Airport","iata":"AAA"}`+"\n"+
			`{"city_name":"Zurich","airport_name":"Zurich Airport","iata":"ZRH"}`+"\n",
		string(out))
}

func TestNormalizeCommandErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "")

	err := run(context.Background(), []string{"--config", cfgPath, "normalize", "airport", filepath.Join(dir, "absent.jsonl")})
	require.ErrorIs(t, err, normalize.ErrInputNotFound)

	err = run(context.Background(), []string{"--config", cfgPath, "normalize", "ship", filepath.Join(dir, "absent.jsonl")})
	require.ErrorContains(t, err, "unknown code kind")

	err = run(context.Background(), []string{"--config", cfgPath, "normalize", "airport"})
	require.Error(t, err)
}

func TestRootRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "crawl:\n  concurrency: 0\n")
	err := run(context.Background(), []string{"--config", cfgPath, "crawl"})
	require.ErrorContains(t, err, "crawl.concurrency")
}

func TestCrawlCommandWithNormalize(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("airline.search") != "BA" {
			_, _ = w.Write([]byte("<html><body>no match</body></html>"))
			return
		}
		_, _ = w.Write([]byte(`<table class="datatable">
			<thead><tr><td>Company name</td><td>Country / Territory</td><td>2-letter code</td></tr></thead>
			<tbody><tr><td>British Airways</td><td>United Kingdom</td><td>BA</td></tr></tbody>
		</table>`))
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, fmt.Sprintf(`
catalog:
  base_url: %s/PublicationDetails/Search/
crawl:
  alphabet: AB
retry:
  max_attempts: 1
`, srv.URL))

	err := run(context.Background(), []string{"--config", cfgPath, "crawl", "carrier", "--normalize"})
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(dir, "carrier_data_full.jsonl"))
	require.NoError(t, err)
	assert.Equal(t,
		`{"Company name":"British Airways","Country / Territory":"United Kingdom","2-letter code":"BA"}`+"\n",
		string(raw))

	processed, err := os.ReadFile(filepath.Join(dir, "carrier_data_full_processed.jsonl"))
	require.NoError(t, err)
	assert.Equal(t,
		`{"company_name":"British Airways","country_or_territory":"United Kingdom","iata":"BA"}`+"\n",
		string(processed))

	_, err = os.Stat(filepath.Join(dir, "airport_data_full.jsonl"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseKinds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		want    []codes.Kind
		wantErr bool
	}{
		{name: "default order", want: []codes.Kind{codes.KindCarrier, codes.KindAirport}},
		{name: "single", args: []string{"airport"}, want: []codes.Kind{codes.KindAirport}},
		{name: "explicit order", args: []string{"airport", "carrier"}, want: []codes.Kind{codes.KindAirport, codes.KindCarrier}},
		{name: "unknown", args: []string{"seaport"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := parseKinds(tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
