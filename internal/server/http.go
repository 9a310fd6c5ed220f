package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/joseph-ayodele/docjobs/internal/common"
	"github.com/joseph-ayodele/docjobs/internal/entity"
)

// JobService is the submission gateway behind the HTTP surface.
type JobService interface {
	Submit(ctx context.Context, req entity.Request) (string, error)
	Status(ctx context.Context, id string) (entity.Record, error)
}

type JobsHandler struct {
	svc            JobService
	exporter       Exporter
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewJobsHandler wires the HTTP surface. exporter may be nil, in which case
// the export route is not mounted.
func NewJobsHandler(svc JobService, exporter Exporter, maxUploadMB int64, logger *slog.Logger) *JobsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if maxUploadMB <= 0 {
		maxUploadMB = 32
	}
	return &JobsHandler{svc: svc, exporter: exporter, maxUploadBytes: maxUploadMB << 20, logger: logger}
}

// Routes mounts every job endpoint on a chi router.
func (h *JobsHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1/jobs", func(r chi.Router) {
		r.Post("/ocr", h.submitOCR)
		r.Post("/summarize", h.submitSummarize)
		r.Post("/compare-text", h.submitCompareText)
		r.Post("/check-alignment", h.submitCheckAlignment)
		r.Post("/extract-structured", h.submitExtractStructured)
		r.Post("/compare-structured", h.submitCompareStructured)
		r.Get("/{id}", h.getStatus)
	})
	r.Get("/task-status/{id}", h.getTaskStatus)
	if h.exporter != nil {
		r.Get("/v1/exports/jobs.xlsx", h.exportJobs)
	}
	return r
}

func (h *JobsHandler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := middleware.GetReqID(r.Context())
		r = r.WithContext(common.WithRequestID(r.Context(), reqID))
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Info("http.request",
			"request_id", reqID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	})
}

type acceptedResponse struct {
	TaskID  string `json:"task_id"`
	Message string `json:"message"`
}

func (h *JobsHandler) submit(w http.ResponseWriter, r *http.Request, req entity.Request, message string) {
	id, err := h.svc.Submit(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, acceptedResponse{TaskID: id, Message: message})
}

func (h *JobsHandler) submitOCR(w http.ResponseWriter, r *http.Request) {
	if err := h.parseMultipart(w, r); err != nil {
		h.writeError(w, r, err)
		return
	}
	doc, err := formDocument(r, "file")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req entity.OCRExtractRequest
	if doc != nil {
		req.Document = *doc
	}
	h.submit(w, r, req, "File received, OCR is running in the background.")
}

func (h *JobsHandler) submitSummarize(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	src, err := h.source(w, r, "file", "text", func() (string, error) {
		if err := h.decodeJSON(w, r, &body); err != nil {
			return "", err
		}
		return body.Text, nil
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.submit(w, r, entity.SummarizeRequest{Source: src}, "Text received, summarizing in the background.")
}

func (h *JobsHandler) submitCompareText(w http.ResponseWriter, r *http.Request) {
	var req entity.CompareTextRequest
	if isMultipart(r) {
		if err := h.parseMultipart(w, r); err != nil {
			h.writeError(w, r, err)
			return
		}
		var err error
		if req.Old, err = formSource(r, "old_file", "old_content"); err != nil {
			h.writeError(w, r, err)
			return
		}
		if req.New, err = formSource(r, "new_file", "new_content"); err != nil {
			h.writeError(w, r, err)
			return
		}
	} else {
		var body struct {
			OldContent string `json:"old_content"`
			NewContent string `json:"new_content"`
		}
		if err := h.decodeJSON(w, r, &body); err != nil {
			h.writeError(w, r, err)
			return
		}
		req.Old, req.New = entity.TextSource(body.OldContent), entity.TextSource(body.NewContent)
	}
	h.submit(w, r, req, "Comparing documents.")
}

func (h *JobsHandler) submitCheckAlignment(w http.ResponseWriter, r *http.Request) {
	var req entity.CheckAlignmentRequest
	if isMultipart(r) {
		if err := h.parseMultipart(w, r); err != nil {
			h.writeError(w, r, err)
			return
		}
		var err error
		if req.CLO, err = formSource(r, "file_clo", "clo_text"); err != nil {
			h.writeError(w, r, err)
			return
		}
		if req.PLO, err = formSource(r, "file_plo", "plo_text"); err != nil {
			h.writeError(w, r, err)
			return
		}
	} else {
		var body struct {
			CLOText string `json:"clo_text"`
			PLOText string `json:"plo_text"`
		}
		if err := h.decodeJSON(w, r, &body); err != nil {
			h.writeError(w, r, err)
			return
		}
		req.CLO, req.PLO = entity.TextSource(body.CLOText), entity.TextSource(body.PLOText)
	}
	h.submit(w, r, req, "Checking CLO/PLO alignment.")
}

func (h *JobsHandler) submitExtractStructured(w http.ResponseWriter, r *http.Request) {
	var req entity.ExtractStructuredRequest
	if isMultipart(r) {
		if err := h.parseMultipart(w, r); err != nil {
			h.writeError(w, r, err)
			return
		}
		doc, err := formDocument(r, "file")
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		req.Document = doc
	} else {
		var body struct {
			Syllabus json.RawMessage `json:"syllabus"`
		}
		if err := h.decodeJSON(w, r, &body); err != nil {
			h.writeError(w, r, err)
			return
		}
		req.Record = body.Syllabus
	}
	h.submit(w, r, req, "Extracting structured syllabus.")
}

func (h *JobsHandler) submitCompareStructured(w http.ResponseWriter, r *http.Request) {
	var body struct {
		OldSyllabus json.RawMessage `json:"old_syllabus"`
		NewSyllabus json.RawMessage `json:"new_syllabus"`
	}
	if err := h.decodeJSON(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.submit(w, r, entity.CompareStructuredRequest{Old: body.OldSyllabus, New: body.NewSyllabus}, "Comparing syllabus records.")
}

func (h *JobsHandler) getStatus(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// taskStatus is the flat polling shape older clients read: result holds the
// stage label, the result payload or the error message depending on status.
type taskStatus struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
	Result any    `json:"result"`
}

func (h *JobsHandler) getTaskStatus(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := taskStatus{TaskID: rec.ID, Status: rec.State.String()}
	switch {
	case rec.StageMessage != "":
		out.Result = rec.StageMessage
	case len(rec.Result) > 0:
		out.Result = rec.Result
	case rec.Error != nil:
		out.Result = rec.Error.Message
	}
	writeJSON(w, http.StatusOK, out)
}

// source reads one Source from either a multipart upload or a JSON body.
func (h *JobsHandler) source(w http.ResponseWriter, r *http.Request, fileField, textField string, fromJSON func() (string, error)) (entity.Source, error) {
	if isMultipart(r) {
		if err := h.parseMultipart(w, r); err != nil {
			return entity.Source{}, err
		}
		return formSource(r, fileField, textField)
	}
	text, err := fromJSON()
	if err != nil {
		return entity.Source{}, err
	}
	return entity.TextSource(text), nil
}

func (h *JobsHandler) parseMultipart(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			return errTooLarge
		}
		return common.Validationf("invalid multipart body: %v", err)
	}
	return nil
}

var errTooLarge = errors.New("request body too large")

func isMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "multipart/form-data"
}

// formDocument returns nil when field carries no file.
func formDocument(r *http.Request, field string) (*entity.Document, error) {
	f, fh, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, common.Validationf("read %s: %v", field, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, common.Validationf("read %s: %v", field, err)
	}
	return &entity.Document{Filename: fh.Filename, Data: data}, nil
}

// formSource prefers the uploaded file and falls back to the text field.
func formSource(r *http.Request, fileField, textField string) (entity.Source, error) {
	doc, err := formDocument(r, fileField)
	if err != nil {
		return entity.Source{}, err
	}
	if doc != nil {
		return entity.Source{Document: doc}, nil
	}
	return entity.TextSource(r.FormValue(textField)), nil
}

// decodeJSON reads a JSON body bounded by the same limit as uploads.
func (h *JobsHandler) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errTooLarge
		}
		if errors.Is(err, io.EOF) {
			return common.Validationf("request body is required")
		}
		return common.Validationf("invalid JSON body: %v", err)
	}
	return nil
}

type errorBody struct {
	Error entity.ErrorDetail `json:"error"`
}

func (h *JobsHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errTooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: entity.ErrorDetail{
			Kind:    common.KindValidation,
			Message: fmt.Sprintf("request body exceeds %d MB", h.maxUploadBytes>>20),
		}})
		return
	case errors.Is(err, common.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, common.ErrNotFound):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("http.request.failed", "path", r.URL.Path, "error", err, "request_id", common.RequestIDFromContext(r.Context()))
	}
	writeJSON(w, status, errorBody{Error: entity.ErrorDetail{Kind: common.KindOf(err), Message: common.MessageOf(err)}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
