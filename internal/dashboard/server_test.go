package dashboard

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eddiefleurent/nse_strangler/internal/models"
)

type fakeSource struct {
	results []*models.BacktestResult
	snaps   map[string]*models.MarketSnapshot // "SYMBOL 2006-01-02"
}

func (f *fakeSource) Results() []*models.BacktestResult { return f.results }

func (f *fakeSource) ResultsFor(symbol string) []*models.BacktestResult {
	var out []*models.BacktestResult
	for _, r := range f.results {
		if r.Symbol == symbol {
			out = append(out, r)
		}
	}
	return out
}

func (f *fakeSource) GetSnapshot(symbol string, date time.Time) (*models.MarketSnapshot, bool) {
	s, ok := f.snaps[symbol+" "+date.Format("2006-01-02")]
	return s, ok
}

func newTestServer() (*Server, *fakeSource) {
	src := &fakeSource{
		results: []*models.BacktestResult{
			{Symbol: "HDFCBANK", Year: 2024, Month: 4, PnLPoints: models.Float(13.5)},
			{Symbol: "HDFCBANK", Year: 2024, Month: 5, SkippedReason: "Missing Entry Data"},
		},
		snaps: map[string]*models.MarketSnapshot{
			"HDFCBANK 2024-04-01": {Symbol: "HDFCBANK", UnderlyingPrice: 1500},
		},
	}
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewServer(Config{Addr: ":0"}, src, logger), src
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestServer_Health(t *testing.T) {
	s, _ := newTestServer()
	rec := get(t, s, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestServer_Results(t *testing.T) {
	s, _ := newTestServer()
	rec := get(t, s, "/api/results")
	require.Equal(t, http.StatusOK, rec.Code)

	var rows []*models.BacktestResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "HDFCBANK", rows[0].Symbol)
}

func TestServer_SymbolResults(t *testing.T) {
	s, _ := newTestServer()

	rec := get(t, s, "/api/results/HDFCBANK")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, s, "/api/results/INFY")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Snapshot(t *testing.T) {
	s, _ := newTestServer()

	rec := get(t, s, "/api/snapshots/HDFCBANK/2024-04-01")
	require.Equal(t, http.StatusOK, rec.Code)
	var snap models.MarketSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, 1500.0, snap.UnderlyingPrice)

	rec = get(t, s, "/api/snapshots/HDFCBANK/2024-04-02")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = get(t, s, "/api/snapshots/HDFCBANK/yesterday")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_SummaryPage(t *testing.T) {
	s, _ := newTestServer()
	rec := get(t, s, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "HDFCBANK")
	assert.Contains(t, body, "13.50")
}
