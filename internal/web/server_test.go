package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/apcclean/internal/config"
	"github.com/JonMunkholm/apcclean/internal/core"
	"github.com/JonMunkholm/apcclean/internal/core/tables"
)

const sampleCSV = `PMID/PMCID,Publisher,Journal title,Cost
PMID: 23456789,bmj publishing group ltd,plos 1,£1200.00
PMC3378987,ELSEVIER,neuroimage,£9000.00
,Oup,,£300.00
`

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Port: 8080, ShutdownTimeout: time.Second},
		Database: config.DatabaseConfig{ExportTable: "apc_clean"},
		Clean: config.CleanConfig{
			Encoding:      "utf-8",
			IDColumn:      "PMID/PMCID",
			NameColumns:   []string{"Publisher", "Journal title"},
			CostColumn:    "Cost",
			OnCostError:   "abort",
			MaxConcurrent: 2,
			MaxWaitTime:   50 * time.Millisecond,
			MaxFileSize:   1 << 20,
		},
		Logging: config.LoggingConfig{Level: "info", Format: "text"},
	}
}

type fakeExporter struct {
	table string
	runID uuid.UUID
	rows  int
}

func (f *fakeExporter) Export(_ context.Context, name string, runID uuid.UUID, t *core.Table) (int64, error) {
	f.table = name
	f.runID = runID
	f.rows = t.NumRows()
	return int64(t.NumRows()), nil
}

func newTestServer(t *testing.T, cfg *config.Config, deps Deps) *Server {
	t.Helper()
	if deps.Names == nil {
		deps.Names = tables.NewPublisherNormalizer(nil)
	}
	return NewServer(cfg, deps)
}

// uploadRequest builds a multipart POST. An empty fileName omits the file.
func uploadRequest(t *testing.T, path, fileName, content string, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileName != "" {
		fw, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, testConfig(), Deps{})

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Jobs.MaxConcurrent)
	assert.False(t, resp.Export)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestInspect(t *testing.T) {
	s := newTestServer(t, testConfig(), Deps{})

	rec := serve(s, uploadRequest(t, "/api/inspect", "apc.csv", sampleCSV, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp inspectResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "apc.csv", resp.File)
	assert.Equal(t, 3, resp.Stats.Rows)
	assert.Equal(t, []string{
		"Data frame contains 4 columns and 3 rows",
		"column PMID/PMCID has 1 empty rows",
		"column Publisher has 0 empty rows",
		"column Journal title has 1 empty rows",
		"column Cost has 0 empty rows",
	}, resp.Report)
}

func TestClean_CSV(t *testing.T) {
	s := newTestServer(t, testConfig(), Deps{})

	rec := serve(s, uploadRequest(t, "/api/clean", "apc.csv", sampleCSV, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="apc_clean.csv"`)
	assert.Equal(t, "0", rec.Header().Get("X-Failed-Rows"))
	assert.Equal(t, "0", rec.Header().Get("X-Capped-Rows"))
	_, err := uuid.Parse(rec.Header().Get("X-Run-ID"))
	assert.NoError(t, err)

	assert.Equal(t, `PMID/PMCID,Publisher,Journal title,Cost
PMID23456789,British Medical Journal,Plos One,1200
PMC3378987,Elsevier,NeuroImage,9000
NA,Oxford University Press,Nan,300
`, rec.Body.String())
}

func TestClean_JSONWithThreshold(t *testing.T) {
	s := newTestServer(t, testConfig(), Deps{})

	rec := serve(s, uploadRequest(t, "/api/clean", "apc.csv", sampleCSV, map[string]string{
		"threshold": "5000",
		"format":    "json",
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp cleanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Capped)
	require.NotNil(t, resp.CapValue)
	// 90th percentile of 300, 1200, 9000
	assert.InDelta(t, 7440.0, *resp.CapValue, 1e-6)
	assert.Empty(t, resp.FailedRows)
	// Missing identifiers are written as "NA" text after cleaning.
	assert.Equal(t, 1, resp.Before.Nulls[0].Nulls)
	assert.Equal(t, 0, resp.After.Nulls[0].Nulls)
}

func TestClean_MalformedCost(t *testing.T) {
	input := sampleCSV + "PMC1,Acs,Plos,£n/a-ish\n"

	t.Run("abort", func(t *testing.T) {
		s := newTestServer(t, testConfig(), Deps{})
		rec := serve(s, uploadRequest(t, "/api/clean", "apc.csv", input, nil))

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "VAL002", decodeError(t, rec).Code)
	})

	t.Run("skip", func(t *testing.T) {
		s := newTestServer(t, testConfig(), Deps{})
		rec := serve(s, uploadRequest(t, "/api/clean", "apc.csv", input, map[string]string{
			"on_cost_error": "skip",
			"format":        "json",
		}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp cleanResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.FailedRows, 1)
		assert.Equal(t, 5, resp.FailedRows[0].Line)
		assert.Equal(t, "£n/a-ish", resp.FailedRows[0].Value)
		assert.Equal(t, 4, resp.Before.Rows)
		assert.Equal(t, 3, resp.After.Rows)
	})
}

func TestClean_Errors(t *testing.T) {
	tests := []struct {
		name     string
		req      func(t *testing.T) *http.Request
		cfg      func(c *config.Config)
		status   int
		wantCode string
	}{
		{
			name:     "no file",
			req:      func(t *testing.T) *http.Request { return uploadRequest(t, "/api/clean", "", "", nil) },
			status:   http.StatusBadRequest,
			wantCode: "FILE004",
		},
		{
			name: "not multipart",
			req: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/api/clean", strings.NewReader(sampleCSV))
			},
			status:   http.StatusBadRequest,
			wantCode: "FILE004",
		},
		{
			name:     "empty file",
			req:      func(t *testing.T) *http.Request { return uploadRequest(t, "/api/clean", "apc.csv", "", nil) },
			status:   http.StatusBadRequest,
			wantCode: "FILE005",
		},
		{
			name: "unknown encoding",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "/api/clean", "apc.csv", sampleCSV, map[string]string{"encoding": "klingon"})
			},
			status:   http.StatusBadRequest,
			wantCode: "FILE003",
		},
		{
			name: "bad policy",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "/api/clean", "apc.csv", sampleCSV, map[string]string{"on_cost_error": "ignore"})
			},
			status:   http.StatusBadRequest,
			wantCode: "CLN001",
		},
		{
			name: "bad threshold",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "/api/clean", "apc.csv", sampleCSV, map[string]string{"threshold": "-3"})
			},
			status:   http.StatusBadRequest,
			wantCode: "CLN002",
		},
		{
			name:     "missing column",
			req:      func(t *testing.T) *http.Request { return uploadRequest(t, "/api/clean", "apc.csv", "a,b\n1,2\n", nil) },
			status:   http.StatusUnprocessableEntity,
			wantCode: "VAL005",
		},
		{
			name: "export without database",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "/api/clean", "apc.csv", sampleCSV, map[string]string{"export": "true"})
			},
			status:   http.StatusBadRequest,
			wantCode: "EXP002",
		},
		{
			name: "too large",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "/api/clean", "apc.csv", strings.Repeat(sampleCSV, 10), nil)
			},
			cfg:      func(c *config.Config) { c.Clean.MaxFileSize = 128 },
			status:   http.StatusRequestEntityTooLarge,
			wantCode: "FILE001",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			if tt.cfg != nil {
				tt.cfg(cfg)
			}
			s := newTestServer(t, cfg, Deps{})

			rec := serve(s, tt.req(t))
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantCode, decodeError(t, rec).Code)
		})
	}
}

func TestClean_Export(t *testing.T) {
	exp := &fakeExporter{}
	s := newTestServer(t, testConfig(), Deps{Exporter: exp})

	rec := serve(s, uploadRequest(t, "/api/clean", "apc.csv", sampleCSV, map[string]string{
		"export": "true",
		"format": "json",
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp cleanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "apc_clean", exp.table)
	assert.Equal(t, resp.RunID, exp.runID.String())
	assert.Equal(t, 3, exp.rows)
	assert.EqualValues(t, 3, resp.Exported)
	assert.Equal(t, "apc_clean", resp.ExportedTo)
}

func TestClean_TooManyJobs(t *testing.T) {
	limiter := core.NewJobLimiter(1, 10*time.Millisecond)
	require.True(t, limiter.TryAcquire())
	defer limiter.Release()

	s := newTestServer(t, testConfig(), Deps{Limiter: limiter})
	rec := serve(s, uploadRequest(t, "/api/clean", "apc.csv", sampleCSV, nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))
	assert.Equal(t, "JOB001", decodeError(t, rec).Code)
}

func TestSynonyms(t *testing.T) {
	s := newTestServer(t, testConfig(), Deps{})

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/synonyms", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp synonymsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, len(tables.PublisherSynonyms()), resp.Count)
	assert.Len(t, resp.Synonyms, resp.Count)
	assert.Contains(t, resp.Synonyms, core.Synonym{Variant: "Bmj", Canonical: "British Medical Journal"})
}

func TestIndex(t *testing.T) {
	exp := &fakeExporter{}
	s := newTestServer(t, testConfig(), Deps{Exporter: exp})

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `action="/report"`)
	assert.Contains(t, body, `value="utf-8"`)
	assert.Contains(t, body, `<option value="abort" selected>`)
	assert.Contains(t, body, `name="export"`)
}

func TestReport(t *testing.T) {
	s := newTestServer(t, testConfig(), Deps{})

	input := sampleCSV + "PMC1,Acs,Plos,<b>bad</b>\n"
	rec := serve(s, uploadRequest(t, "/report", "<apc>.csv", input, map[string]string{
		"on_cost_error": "keep",
		"threshold":     "5000",
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := rec.Body.String()
	assert.Contains(t, body, "<h1>Cleaning report</h1>")
	assert.Contains(t, body, "&lt;apc&gt;.csv")
	assert.Contains(t, body, "Data frame contains 4 columns and 4 rows")
	assert.Contains(t, body, "Failed rows (1)")
	assert.NotContains(t, body, "<b>bad</b>")
}

func TestReport_ErrorPage(t *testing.T) {
	s := newTestServer(t, testConfig(), Deps{})

	rec := serve(s, uploadRequest(t, "/report", "", "", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "No file was selected")
	assert.Contains(t, rec.Body.String(), "FILE004")
}

func TestCleanFileName(t *testing.T) {
	tests := map[string]string{
		"apc.csv":             "apc_clean.csv",
		"APC 2013-14.CSV":     "APC 2013-14_clean.csv",
		`C:\Users\me\apc.csv`: "apc_clean.csv",
		"../../etc/passwd":    "passwd_clean.csv",
		"":                    "upload_clean.csv",
		"noext":               "noext_clean.csv",
	}
	for in, want := range tests {
		assert.Equal(t, want, cleanFileName(in), in)
	}
}

func TestShutdown_WaitsForJobs(t *testing.T) {
	limiter := core.NewJobLimiter(1, time.Second)
	require.True(t, limiter.TryAcquire())
	s := newTestServer(t, testConfig(), Deps{Limiter: limiter})

	go func() {
		time.Sleep(20 * time.Millisecond)
		limiter.Release()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	assert.Zero(t, limiter.Active())
}

func TestClean_TooLargeWithoutContentLength(t *testing.T) {
	cfg := testConfig()
	cfg.Clean.MaxFileSize = 128
	s := newTestServer(t, cfg, Deps{})

	// A chunked upload has no Content-Length, so only the body limit can
	// catch it, wherever in the multipart stream the cut lands.
	req := uploadRequest(t, "/api/clean", "apc.csv", strings.Repeat(sampleCSV, 10), nil)
	req.ContentLength = -1
	req.Body = io.NopCloser(req.Body)

	rec := serve(s, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())
	assert.Equal(t, "FILE001", decodeError(t, rec).Code)
}

func TestLimitedBody_RecordsLimit(t *testing.T) {
	rec := httptest.NewRecorder()
	body := &limitedBody{ReadCloser: http.MaxBytesReader(rec, io.NopCloser(strings.NewReader("0123456789")), 4)}

	_, err := io.ReadAll(body)
	require.Error(t, err)
	assert.True(t, body.exceeded)

	small := &limitedBody{ReadCloser: http.MaxBytesReader(rec, io.NopCloser(strings.NewReader("01")), 4)}
	_, err = io.ReadAll(small)
	require.NoError(t, err)
	assert.False(t, small.exceeded)
}
