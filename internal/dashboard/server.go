// Package dashboard serves a read-only view over stored backtest results.
package dashboard

import (
	"context"
	"encoding/json"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/eddiefleurent/nse_strangler/internal/models"
	"github.com/eddiefleurent/nse_strangler/internal/report"
	"github.com/eddiefleurent/nse_strangler/internal/util"
)

// ResultsSource is the read surface the dashboard needs from the store.
type ResultsSource interface {
	Results() []*models.BacktestResult
	ResultsFor(symbol string) []*models.BacktestResult
	GetSnapshot(symbol string, date time.Time) (*models.MarketSnapshot, bool)
}

// Server is the dashboard HTTP server. All endpoints are read-only.
type Server struct {
	router *chi.Mux
	server *http.Server
	store  ResultsSource
	logger *logrus.Logger
	addr   string
}

// Config holds the dashboard server settings.
type Config struct {
	Addr string
}

// NewServer creates a dashboard server over the given store.
func NewServer(cfg Config, store ResultsSource, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.New()
	}
	s := &Server{
		router: chi.NewRouter(),
		store:  store,
		logger: logger,
		addr:   cfg.Addr,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Get("/", s.handleSummary)
	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/api/results", s.handleResults)
	s.router.Get("/api/results/{symbol}", s.handleSymbolResults)
	s.router.Get("/api/snapshots/{symbol}/{date}", s.handleSnapshot)
}

// Start runs the server until Shutdown or a listener error.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.logger.Infof("Starting dashboard server on %s", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	})
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.store.Results())
}

func (s *Server) handleSymbolResults(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	results := s.store.ResultsFor(symbol)
	if len(results) == 0 {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, results)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	date, err := time.Parse(util.DayLayout, chi.URLParam(r, "date"))
	if err != nil {
		http.Error(w, "Bad Request: date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	snap, ok := s.store.GetSnapshot(symbol, date)
	if !ok {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, snap)
}

var summaryTemplate = template.Must(template.New("summary").Parse(`<!DOCTYPE html>
<html>
<head><title>Strangle Backtest Results</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: 4px 10px; text-align: right; }
th, td:first-child { text-align: left; }
.loss { color: #b00; }
</style>
</head>
<body>
<h1>Strangle Backtest Results</h1>
<table>
<tr><th>Symbol</th><th>Tested</th><th>Traded</th><th>Skipped</th><th>Win %</th><th>Total PnL</th><th>Avg PnL</th></tr>
{{range .}}<tr>
<td>{{.Symbol}}</td><td>{{.Tested}}</td><td>{{.Traded}}</td><td>{{.Skipped}}</td>
<td>{{printf "%.1f" .WinRate}}</td>
<td{{if lt .TotalPnL 0.0}} class="loss"{{end}}>{{printf "%.2f" .TotalPnL}}</td>
<td>{{printf "%.2f" .AvgPnL}}</td>
</tr>{{end}}
</table>
</body>
</html>`))

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	stats := report.Summarize(s.store.Results())
	if err := summaryTemplate.Execute(w, stats); err != nil {
		s.logger.WithError(err).Error("Failed to execute summary template")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
