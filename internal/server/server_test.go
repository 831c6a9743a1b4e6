package server

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notes-booklet/internal/booklet"
	"notes-booklet/internal/history"
)

// fixturePDF builds a minimal readable PDF with the given number of
// US-letter pages.
func fixturePDF(t *testing.T, pages int) []byte {
	t.Helper()

	var buf bytes.Buffer
	var offsets []int
	writeObj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	kids := make([]string, pages)
	for i := range kids {
		kids[i] = fmt.Sprintf("%d 0 R", 3+2*i)
	}
	writeObj("<</Type/Catalog/Pages 2 0 R>>")
	writeObj(fmt.Sprintf("<</Type/Pages/Kids[%s]/Count %d>>", strings.Join(kids, " "), pages))

	const content = "0 0 m 10 10 l S"
	for i := 0; i < pages; i++ {
		writeObj(fmt.Sprintf("<</Type/Page/Parent 2 0 R/MediaBox[0 0 612 792]/Resources<<>>/Contents %d 0 R>>", 4+2*i))
		writeObj(fmt.Sprintf("<</Length %d>>\nstream\n%s\nendstream", len(content), content))
	}

	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \r\n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \r\n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<</Size %d/Root 1 0 R>>\nstartxref\n%d\n%%%%EOF", len(offsets)+1, xrefOffset)
	return buf.Bytes()
}

func newTestServer(t *testing.T, hist *history.Store) *Server {
	t.Helper()
	dir := t.TempDir()
	s, err := New(Config{
		Addr:         ":0",
		UploadsDir:   filepath.Join(dir, "uploads"),
		ProcessedDir: filepath.Join(dir, "processed"),
		Options:      booklet.DefaultOptions(),
		History:      hist,
	})
	require.NoError(t, err)
	return s
}

// multipartBody builds a multipart form with a single file field.
func multipartBody(t *testing.T, filename string, data []byte) (io.Reader, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func TestGetReturnsUploadForm(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/process-pdf", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<form")
	assert.Contains(t, rec.Body.String(), `name="file"`)
}

func TestPostWithoutFilePart(t *testing.T) {
	s := newTestServer(t, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("other", "value"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/process-pdf", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "No file part")
}

func TestPostWithEmptyFilename(t *testing.T) {
	s := newTestServer(t, nil)

	// A blank (whitespace) filename still arrives as a file part but
	// trims to nothing.
	body, contentType := multipartBody(t, " ", []byte("data"))
	req := httptest.NewRequest(http.MethodPost, "/process-pdf", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "No selected file")
}

func TestPostConvertsUpload(t *testing.T) {
	hist, err := history.Open(filepath.Join(t.TempDir(), "booklet.db"))
	require.NoError(t, err)
	defer hist.Close()

	s := newTestServer(t, hist)

	body, contentType := multipartBody(t, "lecture.pdf", fixturePDF(t, 5))
	req := httptest.NewRequest(http.MethodPost, "/process-pdf", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `attachment`)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "Notes - lecture.pdf")

	// The download is a readable PDF with ceil(5/4) sheets.
	ctx, err := pdfapi.ReadValidateAndOptimize(bytes.NewReader(rec.Body.Bytes()), model.NewDefaultConfiguration())
	require.NoError(t, err)
	require.NoError(t, ctx.EnsurePageCount())
	assert.Equal(t, 2, ctx.PageCount)

	// Scratch copies stay on disk.
	_, err = os.Stat(filepath.Join(s.cfg.UploadsDir, "lecture.pdf"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(s.cfg.ProcessedDir, "Notes - lecture.pdf"))
	assert.NoError(t, err)

	// Job recorded.
	jobs, err := hist.Recent(10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "lecture.pdf", jobs[0].Source)
	assert.Equal(t, 5, jobs[0].Pages)
	assert.Equal(t, 2, jobs[0].Sheets)
}

func TestPostRejectsMalformedPDF(t *testing.T) {
	s := newTestServer(t, nil)

	body, contentType := multipartBody(t, "broken.pdf", []byte("not a pdf"))
	req := httptest.NewRequest(http.MethodPost, "/process-pdf", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "processing failed")
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodDelete, "/process-pdf", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "GET, POST", rec.Header().Get("Allow"))
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"lecture.pdf", "lecture.pdf"},
		{"  spaced.pdf  ", "spaced.pdf"},
		{"../../etc/passwd", "passwd"},
		{`a<b>c:d.pdf`, "a_b_c_d.pdf"},
		{"...", "upload.pdf"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeFilename(tt.in), "input %q", tt.in)
	}
}
