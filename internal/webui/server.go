// Package webui exposes a small HTTP server with an HTML form around the
// column probe, so a schema author can point it at a URL and see how a
// pipeline run would classify every column before committing to a config.
//
// Routes:
//
//	GET  /          → form
//	POST /probe     → runs the probe with form inputs; renders the report inline
//	GET  /api/probe → machine-friendly API: text report, starter config, or raw JSON
package webui

import (
	_ "embed"
	"encoding/json"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"wideform/internal/probe"
)

// probeFn is swapped in tests so handlers can be exercised without a live
// source.
var probeFn = probe.Probe

// Config controls server startup.
type Config struct {
	Addr string
}

// Server wraps an http.ServeMux with the probe routes and the embedded
// template.
type Server struct {
	cfg  Config
	mux  *http.ServeMux
	tmpl *template.Template
}

// NewServer constructs a Server with routes and the parsed template.
func NewServer(cfg Config) *Server {
	s := &Server{
		cfg:  cfg,
		mux:  http.NewServeMux(),
		tmpl: template.Must(template.New("index").Parse(indexHTML)),
	}
	s.routes()
	return s
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return http.ListenAndServe(s.cfg.Addr, s)
}

// ServeHTTP delegates to the internal mux so the server can be driven by
// httptest without a listener.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/probe", s.handleProbe)
	s.mux.HandleFunc("/api/probe", s.handleAPIProbe)
}

// pageData feeds the embedded template. Result is nil on the bare form.
type pageData struct {
	URL       string
	Name      string
	Schema    string
	Bytes     int
	Delimiter string
	Mode      string
	DatePref  string

	Result     *probe.Result
	SampleSize string
	ConfigText string
}

// handleIndex renders the input form with defaults.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, pageData{Bytes: 20000, Delimiter: ",", DatePref: "auto"})
}

// handleProbe processes the form and renders the report inline.
func (s *Server) handleProbe(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form: "+err.Error(), http.StatusBadRequest)
		return
	}
	mode := r.FormValue("mode")
	opt := optionsFromValues(r.FormValue, mode == "config")

	res, err := probeFn(opt)
	if err != nil {
		http.Error(w, "probe failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	data := pageData{
		URL:        opt.URL,
		Name:       opt.Name,
		Schema:     opt.SchemaPath,
		Bytes:      opt.MaxBytes,
		Delimiter:  r.FormValue("delimiter"),
		Mode:       mode,
		DatePref:   opt.DatePreference,
		Result:     &res,
		SampleSize: humanize.IBytes(uint64(res.SampleBytes)),
	}
	if mode == "config" {
		data.ConfigText = string(res.Body)
	}
	s.render(w, data)
}

// handleAPIProbe serves scripts and curl. mode selects the payload:
// "" or "text" is the text report, "config" the starter pipeline JSON,
// "json" the raw classification result.
func (s *Server) handleAPIProbe(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("mode")
	opt := optionsFromValues(q.Get, mode == "config")

	res, err := probeFn(opt)
	if err != nil {
		http.Error(w, "probe failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	switch mode {
	case "json":
		w.Header().Set("Content-Type", "application/json")
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			log.Println("encode result:", err)
		}
	case "config":
		w.Header().Set("Content-Type", "application/json")
		w.Write(res.Body)
	default:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write(res.Body)
		if res.SuggestedSchema != "" {
			w.Write([]byte("\nsuggested schema:\n" + res.SuggestedSchema))
		}
	}
}

// optionsFromValues maps the shared form/query fields onto probe options.
// get is r.FormValue or url.Values.Get depending on the route.
func optionsFromValues(get func(string) string, outputJSON bool) probe.Options {
	nbytes, _ := strconv.Atoi(strings.TrimSpace(get("bytes")))
	return probe.Options{
		URL:            strings.TrimSpace(get("url")),
		MaxBytes:       nbytes,
		Delimiter:      probe.DecodeDelimiter(get("delimiter")),
		SchemaPath:     strings.TrimSpace(get("schema")),
		Name:           strings.TrimSpace(get("name")),
		OutputJSON:     outputJSON,
		DatePreference: get("date_pref"),
	}
}

func (s *Server) render(w http.ResponseWriter, data pageData) {
	if err := s.tmpl.Execute(w, data); err != nil {
		log.Println("template error:", err)
	}
}

// indexHTML is the embedded single-page form plus report.
//
//go:embed index.tmpl.html
var indexHTML string
