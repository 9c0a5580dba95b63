package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/JonMunkholm/apcclean/internal/core"
	"github.com/JonMunkholm/apcclean/internal/logging"
	"github.com/JonMunkholm/apcclean/internal/tableio"
	"github.com/JonMunkholm/apcclean/internal/web/templates"
)

// upload is a parsed multipart request.
type upload struct {
	fileName string
	table    *core.Table
}

// limitedBody records whether the wrapped MaxBytesReader hit its limit.
type limitedBody struct {
	io.ReadCloser
	exceeded bool
}

func (b *limitedBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		b.exceeded = true
	}
	return n, err
}

// readUpload parses the multipart form and loads the "file" part. The
// optional "encoding" field overrides the configured encoding.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*upload, error) {
	maxSize := s.cfg.Clean.MaxFileSize
	if r.ContentLength > maxSize {
		return nil, fmt.Errorf("%w: limit is %d bytes", core.ErrFileTooLarge, maxSize)
	}

	body := &limitedBody{ReadCloser: http.MaxBytesReader(w, r.Body, maxSize)}
	r.Body = body

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		// The multipart parser does not always pass the limit error through,
		// e.g. when the cut lands inside a part header.
		var tooLarge *http.MaxBytesError
		if body.exceeded || errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: limit is %d bytes", core.ErrFileTooLarge, maxSize)
		}
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			return nil, core.ErrNoFile
		}
		return nil, fmt.Errorf("parse form: %w", err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, core.ErrNoFile
	}
	defer file.Close()

	encoding := r.FormValue("encoding")
	if encoding == "" {
		encoding = s.cfg.Clean.Encoding
	}

	t, err := tableio.Read(file, tableio.Options{
		Encoding:   encoding,
		NullTokens: s.cfg.Clean.NullTokenList(),
		MaxBytes:   maxSize,
	})
	if err != nil {
		return nil, err
	}

	logging.FromContext(r.Context()).Debug("file loaded",
		"file", header.Filename,
		"bytes", header.Size,
		"rows", t.NumRows(),
		"columns", t.NumColumns(),
	)
	return &upload{fileName: header.Filename, table: t}, nil
}

// planFromRequest starts from the configured plan and applies the optional
// "threshold" and "on_cost_error" form fields.
func (s *Server) planFromRequest(r *http.Request) (core.Plan, error) {
	c := s.cfg.Clean
	plan := core.Plan{
		IDColumn:      c.IDColumn,
		NameColumns:   c.NameColumns,
		CostColumn:    c.CostColumn,
		CostThreshold: c.CostThreshold,
	}

	if v := r.FormValue("threshold"); v != "" {
		t, err := core.ParseThreshold(v)
		if err != nil {
			return core.Plan{}, err
		}
		plan.CostThreshold = t
	}

	policy := r.FormValue("on_cost_error")
	if policy == "" {
		policy = c.OnCostError
	}
	p, err := core.ParseCostErrorPolicy(policy)
	if err != nil {
		return core.Plan{}, err
	}
	plan.OnCostError = p

	return plan, nil
}

// cleanOutcome is a finished cleaning run plus export details.
type cleanOutcome struct {
	fileName   string
	result     *core.Result
	exported   int64
	exportedTo string
}

// runClean loads the upload, cleans it and exports it when asked. It holds
// a job slot for the whole run.
func (s *Server) runClean(w http.ResponseWriter, r *http.Request) (*cleanOutcome, error) {
	ctx := r.Context()
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	up, err := s.readUpload(w, r)
	if err != nil {
		return nil, err
	}

	plan, err := s.planFromRequest(r)
	if err != nil {
		return nil, err
	}

	res, err := s.cleaner.Clean(ctx, up.table, plan)
	if err != nil {
		return nil, err
	}

	out := &cleanOutcome{fileName: up.fileName, result: res}
	if export, _ := strconv.ParseBool(r.FormValue("export")); export {
		if err := s.export(ctx, r.FormValue("table"), out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Server) export(ctx context.Context, table string, out *cleanOutcome) error {
	if s.exporter == nil {
		return core.ErrExportDisabled
	}
	if table == "" {
		table = s.cfg.Database.ExportTable
	}

	n, err := s.exporter.Export(ctx, table, out.result.RunID, out.result.Table)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	out.exported = n
	out.exportedTo = table
	return nil
}

// handleIndex renders the upload form.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	templates.UploadPage(templates.UploadDefaults{
		Encoding:      s.cfg.Clean.Encoding,
		CostThreshold: s.cfg.Clean.CostThreshold,
		OnCostError:   s.cfg.Clean.OnCostError,
		ExportEnabled: s.exporter != nil,
	}).Render(r.Context(), w)
}

type synonymsResponse struct {
	Count    int            `json:"count"`
	Synonyms []core.Synonym `json:"synonyms"`
}

// handleSynonyms lists the synonym table in use.
func (s *Server) handleSynonyms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, synonymsResponse{
		Count:    s.names.Len(),
		Synonyms: s.names.Synonyms(),
	})
}

type inspectResponse struct {
	File   string     `json:"file"`
	Stats  core.Stats `json:"stats"`
	Report []string   `json:"report"`
}

// handleInspect returns the shape and null counts of an uploaded file.
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	if err := s.limiter.Acquire(r.Context()); err != nil {
		s.respondError(w, r, err)
		return
	}
	defer s.limiter.Release()

	up, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	stats := core.Inspect(up.table)
	stats.Log(logging.WithFields(r.Context(), "file", up.fileName))

	writeJSON(w, r, inspectResponse{
		File:   up.fileName,
		Stats:  stats,
		Report: stats.Lines(),
	})
}

type cleanResponse struct {
	RunID      string           `json:"run_id"`
	File       string           `json:"file"`
	Before     core.Stats       `json:"before"`
	After      core.Stats       `json:"after"`
	FailedRows []core.FailedRow `json:"failed_rows"`
	Capped     int              `json:"capped"`
	CapValue   *float64         `json:"cap_value,omitempty"`
	DurationMS int64            `json:"duration_ms"`
	Exported   int64            `json:"exported,omitempty"`
	ExportedTo string           `json:"exported_to,omitempty"`
}

// handleClean returns the cleaned file as CSV, or a JSON summary when the
// "format" field is "json".
func (s *Server) handleClean(w http.ResponseWriter, r *http.Request) {
	out, err := s.runClean(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	res := out.result

	w.Header().Set("X-Run-ID", res.RunID.String())
	w.Header().Set("X-Failed-Rows", strconv.Itoa(len(res.FailedRows)))
	w.Header().Set("X-Capped-Rows", strconv.Itoa(res.Capped))

	if r.FormValue("format") == "json" {
		resp := cleanResponse{
			RunID:      res.RunID.String(),
			File:       out.fileName,
			Before:     res.Before,
			After:      res.After,
			FailedRows: res.FailedRows,
			Capped:     res.Capped,
			DurationMS: res.Duration.Milliseconds(),
			Exported:   out.exported,
			ExportedTo: out.exportedTo,
		}
		if resp.FailedRows == nil {
			resp.FailedRows = []core.FailedRow{}
		}
		if capValue := res.CapValue; !math.IsNaN(capValue) {
			resp.CapValue = &capValue
		}
		writeJSON(w, r, resp)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, cleanFileName(out.fileName)))
	if err := tableio.Write(w, res.Table); err != nil {
		// Headers are gone; the client sees a truncated body.
		logging.FromContext(r.Context()).Error("write cleaned csv", "run_id", res.RunID.String(), "error", err)
	}
}

// handleReport cleans the uploaded file and renders the report page.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	out, err := s.runClean(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	res := out.result

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	templates.Report(templates.ReportData{
		FileName:   out.fileName,
		RunID:      res.RunID.String(),
		Before:     res.Before,
		After:      res.After,
		FailedRows: res.FailedRows,
		Capped:     res.Capped,
		CapValue:   res.CapValue,
		Duration:   res.Duration,
		Exported:   out.exported,
		ExportedTo: out.exportedTo,
	}).Render(r.Context(), w)
}

// cleanFileName derives the download name: "apc.csv" -> "apc_clean.csv".
func cleanFileName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	if base == "." || base == "/" || base == "" {
		base = "upload.csv"
	}
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + "_clean.csv"
}
