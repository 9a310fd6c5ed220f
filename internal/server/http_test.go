package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docjobs/constants"
	"github.com/joseph-ayodele/docjobs/internal/common"
	"github.com/joseph-ayodele/docjobs/internal/entity"
	"github.com/joseph-ayodele/docjobs/internal/export"
)

type recordingService struct {
	submitted []entity.Request
	records   map[string]entity.Record
}

func (s *recordingService) Submit(_ context.Context, req entity.Request) (string, error) {
	if err := entity.Validate(req); err != nil {
		return "", err
	}
	s.submitted = append(s.submitted, req)
	return "job-1", nil
}

func (s *recordingService) Status(_ context.Context, id string) (entity.Record, error) {
	rec, ok := s.records[id]
	if !ok {
		return entity.Record{}, common.NewJobError(common.KindNotFound, "job "+id+" not found", nil)
	}
	return rec, nil
}

type stubExporter struct{ filter export.Filter }

func (e *stubExporter) StatusXLSX(_ context.Context, f export.Filter) ([]byte, error) {
	e.filter = f
	return []byte("PK-xlsx"), nil
}

func newTestHandler() (*recordingService, *stubExporter, http.Handler) {
	svc := &recordingService{records: map[string]entity.Record{}}
	exp := &stubExporter{}
	return svc, exp, NewJobsHandler(svc, exp, 1, nil).Routes()
}

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type part struct {
	field, filename, value string
}

func postMultipart(t *testing.T, h http.Handler, path string, parts ...part) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range parts {
		if p.filename == "" {
			require.NoError(t, mw.WriteField(p.field, p.value))
			continue
		}
		fw, err := mw.CreateFormFile(p.field, p.filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(p.value))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeAccepted(t *testing.T, rec *httptest.ResponseRecorder) acceptedResponse {
	t.Helper()
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var out acceptedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestSubmitOCR_Multipart(t *testing.T) {
	svc, _, h := newTestHandler()

	out := decodeAccepted(t, postMultipart(t, h, "/v1/jobs/ocr", part{field: "file", filename: "scan.pdf", value: "%PDF-1.7"}))
	assert.Equal(t, "job-1", out.TaskID)
	assert.NotEmpty(t, out.Message)

	require.Len(t, svc.submitted, 1)
	req := svc.submitted[0].(entity.OCRExtractRequest)
	assert.Equal(t, "scan.pdf", req.Document.Filename)
	assert.Equal(t, []byte("%PDF-1.7"), req.Document.Data)
}

func TestSubmitOCR_MissingFile(t *testing.T) {
	svc, _, h := newTestHandler()

	rec := postMultipart(t, h, "/v1/jobs/ocr", part{field: "note", value: "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "ValidationError")
	assert.Empty(t, svc.submitted)
}

func TestSubmitSummarize(t *testing.T) {
	svc, _, h := newTestHandler()

	decodeAccepted(t, postJSON(t, h, "/v1/jobs/summarize", `{"text":"a long lecture"}`))
	decodeAccepted(t, postMultipart(t, h, "/v1/jobs/summarize", part{field: "file", filename: "notes.docx", value: "PK"}))

	require.Len(t, svc.submitted, 2)
	assert.Equal(t, "a long lecture", svc.submitted[0].(entity.SummarizeRequest).Source.Text)
	assert.True(t, svc.submitted[1].(entity.SummarizeRequest).Source.IsDocument())
}

func TestSubmitSummarize_BlankText(t *testing.T) {
	_, _, h := newTestHandler()

	rec := postJSON(t, h, "/v1/jobs/summarize", `{"text":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmit_MalformedJSON(t *testing.T) {
	_, _, h := newTestHandler()

	rec := postJSON(t, h, "/v1/jobs/compare-text", `{"old_content":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, h, "/v1/jobs/compare-structured", ``)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitCompareText(t *testing.T) {
	svc, _, h := newTestHandler()

	decodeAccepted(t, postJSON(t, h, "/v1/jobs/compare-text", `{"old_content":"v1","new_content":"v2"}`))
	decodeAccepted(t, postMultipart(t, h, "/v1/jobs/compare-text",
		part{field: "old_file", filename: "old.pdf", value: "%PDF"},
		part{field: "new_content", value: "inline new"},
	))

	require.Len(t, svc.submitted, 2)
	first := svc.submitted[0].(entity.CompareTextRequest)
	assert.Equal(t, "v1", first.Old.Text)
	assert.Equal(t, "v2", first.New.Text)

	second := svc.submitted[1].(entity.CompareTextRequest)
	assert.Equal(t, "old.pdf", second.Old.Document.Filename)
	assert.Equal(t, "inline new", second.New.Text)
}

func TestSubmitCheckAlignment(t *testing.T) {
	svc, _, h := newTestHandler()

	decodeAccepted(t, postJSON(t, h, "/v1/jobs/check-alignment", `{"clo_text":"CLO1","plo_text":"PLO1"}`))
	decodeAccepted(t, postMultipart(t, h, "/v1/jobs/check-alignment",
		part{field: "file_clo", filename: "clo.docx", value: "PK"},
		part{field: "file_plo", filename: "plo.docx", value: "PK"},
	))

	require.Len(t, svc.submitted, 2)
	assert.Equal(t, "CLO1", svc.submitted[0].(entity.CheckAlignmentRequest).CLO.Text)
	assert.True(t, svc.submitted[1].(entity.CheckAlignmentRequest).PLO.IsDocument())

	rec := postJSON(t, h, "/v1/jobs/check-alignment", `{"clo_text":"CLO1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitExtractStructured(t *testing.T) {
	svc, _, h := newTestHandler()

	decodeAccepted(t, postJSON(t, h, "/v1/jobs/extract-structured", `{"syllabus":{"courseName":"Networks"}}`))
	decodeAccepted(t, postMultipart(t, h, "/v1/jobs/extract-structured", part{field: "file", filename: "s.pdf", value: "%PDF"}))

	require.Len(t, svc.submitted, 2)
	assert.JSONEq(t, `{"courseName":"Networks"}`, string(svc.submitted[0].(entity.ExtractStructuredRequest).Record))
	assert.Equal(t, "s.pdf", svc.submitted[1].(entity.ExtractStructuredRequest).Document.Filename)

	rec := postJSON(t, h, "/v1/jobs/extract-structured", `{"syllabus":[1,2]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitCompareStructured(t *testing.T) {
	svc, _, h := newTestHandler()

	decodeAccepted(t, postJSON(t, h, "/v1/jobs/compare-structured", `{"old_syllabus":{"a":1},"new_syllabus":{"a":2}}`))
	require.Len(t, svc.submitted, 1)
	req := svc.submitted[0].(entity.CompareStructuredRequest)
	assert.JSONEq(t, `{"a":1}`, string(req.Old))
	assert.JSONEq(t, `{"a":2}`, string(req.New))

	rec := postJSON(t, h, "/v1/jobs/compare-structured", `{"old_syllabus":{"a":1}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadTooLarge(t *testing.T) {
	_, _, h := newTestHandler()

	big := strings.Repeat("x", 2<<20)
	rec := postMultipart(t, h, "/v1/jobs/ocr", part{field: "file", filename: "big.pdf", value: big})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestJSONBodyTooLarge(t *testing.T) {
	svc, _, h := newTestHandler()
	big := strings.Repeat("x", 2<<20)

	for path, body := range map[string]string{
		"/v1/jobs/summarize":          `{"text":"` + big + `"}`,
		"/v1/jobs/compare-text":       `{"old_content":"` + big + `","new_content":"v2"}`,
		"/v1/jobs/check-alignment":    `{"clo_text":"` + big + `","plo_text":"PLO1"}`,
		"/v1/jobs/extract-structured": `{"syllabus":{"courseName":"` + big + `"}}`,
		"/v1/jobs/compare-structured": `{"old_syllabus":{"a":"` + big + `"},"new_syllabus":{}}`,
	} {
		rec := postJSON(t, h, path, body)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, path)
	}
	assert.Empty(t, svc.submitted)
}

func TestGetStatus(t *testing.T) {
	svc, _, h := newTestHandler()
	now := time.Now().UTC()
	svc.records["done"] = entity.Record{
		ID: "done", Type: constants.JobTypeSummarize, State: constants.JobStateSuccess,
		Result: json.RawMessage(`{"summary":"s"}`), CreatedAt: now, UpdatedAt: now,
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/jobs/done", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got entity.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, constants.JobStateSuccess, got.State)
	assert.JSONEq(t, `{"summary":"s"}`, string(got.Result))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/jobs/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NotFound")
}

func TestTaskStatus_FlatShape(t *testing.T) {
	svc, _, h := newTestHandler()
	svc.records["run"] = entity.Record{ID: "run", State: constants.JobStateProgress, StageMessage: "Summarizing"}
	svc.records["bad"] = entity.Record{ID: "bad", State: constants.JobStateFailure,
		Error: &entity.ErrorDetail{Kind: common.KindBackend, Message: "model offline"}}

	cases := map[string]string{
		"run": `{"task_id":"run","status":"PROGRESS","result":"Summarizing"}`,
		"bad": `{"task_id":"bad","status":"FAILURE","result":"model offline"}`,
	}
	for id, want := range cases {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/task-status/"+id, nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, want, rec.Body.String())
	}
}

func TestExportJobs(t *testing.T) {
	_, exp, h := newTestHandler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/exports/jobs.xlsx?from=2026-03-01&type=SUMMARIZE&state=success", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Equal(t, "PK-xlsx", rec.Body.String())

	require.NotNil(t, exp.filter.From)
	assert.NotNil(t, exp.filter.To)
	assert.Equal(t, constants.JobTypeSummarize, exp.filter.Type)
	assert.Equal(t, constants.JobStateSuccess, exp.filter.State)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/exports/jobs.xlsx?from=03/01/2026", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	_, _, h := newTestHandler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
