// Package webui exposes a minimal HTTP read path over the loaded warehouse:
// an HTML dashboard page plus JSON endpoints for region statistics and the
// municipal boundary GeoJSON from the landing zone.
//
// Routes:
//
//	GET /                    → dashboard page
//	GET /api/stats           → region aggregates as JSON (?year=&crime=)
//	GET /api/regions/geojson → boundary features saved by the last live run
//	GET /healthz             → liveness probe
package webui

import (
	"context"
	_ "embed"
	"encoding/json"
	"html/template"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"cbsetl/internal/datasource/file"
	"cbsetl/internal/storage"
)

// Config controls server startup.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// DataDir is the landing zone holding municipalities.geojson.
	DataDir string
}

// Server wraps http.Server for convenience.
type Server struct {
	cfg    Config
	mux    *http.ServeMux
	tmpl   *template.Template
	reader storage.StatsReader
}

// NewServer constructs a Server with routes and the embedded template.
func NewServer(cfg Config, reader storage.StatsReader) *Server {
	s := &Server{
		cfg:    cfg,
		mux:    http.NewServeMux(),
		tmpl:   template.Must(template.New("index").Parse(indexHTML)),
		reader: reader,
	}
	s.routes()
	return s
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	log.Printf("webui: listening on %s", s.cfg.Addr)
	return http.ListenAndServe(s.cfg.Addr, s.mux)
}

// Handler returns the route multiplexer, mainly for tests.
func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) routes() {
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/api/stats", s.handleStats)
	s.mux.HandleFunc("/api/regions/geojson", s.handleGeoJSON)
	s.mux.HandleFunc("/healthz", s.handleHealthz)
}

// handleIndex renders the dashboard page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if err := s.tmpl.Execute(w, nil); err != nil {
		log.Println("webui: template error:", err)
	}
}

// handleStats serves aggregated crime statistics per region. year=0 (or
// absent) and an absent crime filter mean "all".
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	year := 0
	if v := strings.TrimSpace(q.Get("year")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "year must be an integer", http.StatusBadRequest)
			return
		}
		year = n
	}
	crime := strings.TrimSpace(q.Get("crime"))

	stats, err := s.reader.RegionStats(r.Context(), year, crime)
	if err != nil {
		log.Println("webui: stats query:", err)
		http.Error(w, "stats query failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		log.Println("webui: encode stats:", err)
	}
}

// handleGeoJSON streams the boundary snapshot written by the last live run.
func (s *Server) handleGeoJSON(w http.ResponseWriter, r *http.Request) {
	src := file.InLandingZone(s.cfg.DataDir, file.GeoSnapshotName)
	rc, err := src.Open(r.Context())
	if err != nil {
		http.Error(w, "no boundary snapshot; run the pipeline with a live source first", http.StatusNotFound)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/geo+json")
	if _, err := io.Copy(w, rc); err != nil {
		log.Println("webui: stream geojson:", err)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}

// Serve runs the server until the context is canceled.
func Serve(ctx context.Context, cfg Config, reader storage.StatsReader) error {
	s := NewServer(cfg, reader)
	srv := &http.Server{Addr: cfg.Addr, Handler: s.mux}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	log.Printf("webui: listening on %s", cfg.Addr)

	select {
	case <-ctx.Done():
		return srv.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}

// indexHTML is an embedded, minimal dashboard with vanilla styling.
//
//go:embed index.tmpl.html
var indexHTML string
