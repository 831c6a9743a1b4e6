// Package server exposes the booklet compositor over HTTP: GET
// /process-pdf serves an upload form, POST accepts a multipart PDF
// upload and responds with the converted booklet as a download.
//
// Uploaded and converted files land in two scratch directories that are
// created on startup and never cleaned up. Requests are processed
// end-to-end sequentially per connection; two concurrent uploads with
// the same filename race on the scratch files, last write wins.
package server

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"notes-booklet/internal/booklet"
	"notes-booklet/internal/history"
)

const uploadForm = `<html>
    <body>
        <h1>Upload PDF</h1>
        <form method="POST" enctype="multipart/form-data">
            <input type="file" name="file">
            <input type="submit" value="Upload">
        </form>
    </body>
</html>`

// maxUploadMemory bounds the in-memory part of multipart parsing;
// larger uploads spill to temp files.
const maxUploadMemory = 32 << 20

// Config carries the server settings.
type Config struct {
	Addr         string
	UploadsDir   string
	ProcessedDir string
	Options      booklet.Options
	History      *history.Store // optional, nil disables job recording
}

// Server handles booklet conversion requests.
type Server struct {
	cfg Config
	mux *http.ServeMux
}

// New creates a Server and its scratch directories.
func New(cfg Config) (*Server, error) {
	if cfg.UploadsDir == "" {
		cfg.UploadsDir = "uploads"
	}
	if cfg.ProcessedDir == "" {
		cfg.ProcessedDir = "processed"
	}
	for _, dir := range []string{cfg.UploadsDir, cfg.ProcessedDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	s := &Server{cfg: cfg, mux: http.NewServeMux()}
	s.mux.HandleFunc("/process-pdf", s.handleProcessPDF)
	return s, nil
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return logMiddleware(s.mux)
}

// ListenAndServe runs the server until it fails.
func (s *Server) ListenAndServe() error {
	log.Printf("listening on %s", s.cfg.Addr)
	return http.ListenAndServe(s.cfg.Addr, s.Handler())
}

func (s *Server) handleProcessPDF(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, uploadForm)
	case http.MethodPost:
		s.process(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) process(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		http.Error(w, "No file part", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "No file part", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if strings.TrimSpace(header.Filename) == "" {
		http.Error(w, "No selected file", http.StatusBadRequest)
		return
	}

	name := sanitizeFilename(header.Filename)
	inPath := filepath.Join(s.cfg.UploadsDir, name)
	if err := saveUpload(inPath, file); err != nil {
		log.Printf("saving upload %s: %v", name, err)
		http.Error(w, "failed to store upload", http.StatusInternalServerError)
		return
	}

	outName := "Notes - " + name
	outPath := filepath.Join(s.cfg.ProcessedDir, outName)

	res, err := booklet.ComposeFile(inPath, outPath, s.cfg.Options)
	if err != nil {
		log.Printf("compose %s: %v", name, err)
		http.Error(w, fmt.Sprintf("processing failed: %v", err), http.StatusUnprocessableEntity)
		return
	}

	if s.cfg.History != nil {
		job := history.Job{Source: name, Output: outName, Pages: res.SourcePages, Sheets: res.Sheets}
		if _, err := s.cfg.History.Record(job); err != nil {
			log.Printf("recording job %s: %v", name, err)
		}
	}

	log.Printf("processed %s: %d pages -> %d sheets", name, res.SourcePages, res.Sheets)

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", outName))
	http.ServeFile(w, r, outPath)
}

func saveUpload(path string, src io.Reader) error {
	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

var invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1F]`)

// sanitizeFilename strips any path components and characters that are
// unsafe in a stored filename.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	name = invalidFilenameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, ". ")
	if name == "" {
		name = "upload.pdf"
	}
	return name
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s (%s)", r.Method, r.URL.Path, time.Since(start).Round(time.Millisecond))
	})
}
