package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/joseph-ayodele/docjobs/constants"
	"github.com/joseph-ayodele/docjobs/internal/common"
)

// Document is an uploaded file carried inside a job payload.
type Document struct {
	Filename string `json:"filename" validate:"notblank"`
	Data     []byte `json:"data" validate:"notblank"`
}

// Source is either inline text or a document to extract text from, never both.
type Source struct {
	Text     string    `json:"text,omitempty"`
	Document *Document `json:"document,omitempty"`
}

func TextSource(text string) Source { return Source{Text: text} }

func DocumentSource(filename string, data []byte) Source {
	return Source{Document: &Document{Filename: filename, Data: data}}
}

func (s Source) IsDocument() bool { return s.Document != nil }

// Request is one typed payload variant; JobType selects the pipeline.
type Request interface {
	JobType() constants.JobType
}

type OCRExtractRequest struct {
	Document Document `json:"document" validate:"required"`
}

type SummarizeRequest struct {
	Source Source `json:"source"`
}

type CompareTextRequest struct {
	Old Source `json:"old"`
	New Source `json:"new"`
}

type CheckAlignmentRequest struct {
	CLO Source `json:"clo"`
	PLO Source `json:"plo"`
}

// ExtractStructuredRequest takes either a document to read or a record that
// is already structured but may need repair.
type ExtractStructuredRequest struct {
	Document *Document      `json:"document,omitempty"`
	Record   json.RawMessage `json:"record,omitempty"`
}

type CompareStructuredRequest struct {
	Old json.RawMessage `json:"old" validate:"notblank"`
	New json.RawMessage `json:"new" validate:"notblank"`
}

func (OCRExtractRequest) JobType() constants.JobType        { return constants.JobTypeOCRExtract }
func (SummarizeRequest) JobType() constants.JobType         { return constants.JobTypeSummarize }
func (CompareTextRequest) JobType() constants.JobType       { return constants.JobTypeCompareText }
func (CheckAlignmentRequest) JobType() constants.JobType    { return constants.JobTypeCheckAlignment }
func (ExtractStructuredRequest) JobType() constants.JobType { return constants.JobTypeExtractStructured }
func (CompareStructuredRequest) JobType() constants.JobType { return constants.JobTypeCompareStructured }

// NewRequest returns an empty payload of the variant selected by t.
func NewRequest(t constants.JobType) (Request, error) {
	switch t {
	case constants.JobTypeOCRExtract:
		return &OCRExtractRequest{}, nil
	case constants.JobTypeSummarize:
		return &SummarizeRequest{}, nil
	case constants.JobTypeCompareText:
		return &CompareTextRequest{}, nil
	case constants.JobTypeCheckAlignment:
		return &CheckAlignmentRequest{}, nil
	case constants.JobTypeExtractStructured:
		return &ExtractStructuredRequest{}, nil
	case constants.JobTypeCompareStructured:
		return &CompareStructuredRequest{}, nil
	default:
		return nil, common.Validationf("unknown job type %q", t)
	}
}

// Descriptor is the immutable unit handed to the queue.
type Descriptor struct {
	ID          string
	Type        constants.JobType
	Payload     Request
	SubmittedAt time.Time
}

type descriptorJSON struct {
	ID          string            `json:"id"`
	Type        constants.JobType `json:"type"`
	Payload     json.RawMessage   `json:"payload"`
	SubmittedAt time.Time         `json:"submitted_at"`
}

func (d Descriptor) MarshalJSON() ([]byte, error) {
	payload, err := json.Marshal(d.Payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return json.Marshal(descriptorJSON{ID: d.ID, Type: d.Type, Payload: payload, SubmittedAt: d.SubmittedAt})
}

func (d *Descriptor) UnmarshalJSON(b []byte) error {
	var raw descriptorJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	req, err := NewRequest(raw.Type)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw.Payload, req); err != nil {
		return fmt.Errorf("decode %s payload: %w", raw.Type, err)
	}
	d.ID = raw.ID
	d.Type = raw.Type
	d.Payload = deref(req)
	d.SubmittedAt = raw.SubmittedAt
	return nil
}

// deref turns the pointer returned by NewRequest back into the value form
// used everywhere else.
func deref(r Request) Request {
	switch v := r.(type) {
	case *OCRExtractRequest:
		return *v
	case *SummarizeRequest:
		return *v
	case *CompareTextRequest:
		return *v
	case *CheckAlignmentRequest:
		return *v
	case *ExtractStructuredRequest:
		return *v
	case *CompareStructuredRequest:
		return *v
	}
	return r
}

// Validate checks a payload before any job is created.
func Validate(req Request) error {
	if req == nil {
		return common.Validationf("payload is required")
	}
	return common.ValidateStruct(req)
}

func init() {
	v := common.Validator()
	v.RegisterStructValidation(sourceLevel, Source{})
	v.RegisterStructValidation(extractStructuredLevel, ExtractStructuredRequest{})
	v.RegisterStructValidation(compareStructuredLevel, CompareStructuredRequest{})
}

func sourceLevel(sl validator.StructLevel) {
	s := sl.Current().Interface().(Source)
	hasText := strings.TrimSpace(s.Text) != ""
	if hasText == s.IsDocument() {
		sl.ReportError(s.Text, "text", "Text", "exactlyone", "")
	}
}

func extractStructuredLevel(sl validator.StructLevel) {
	r := sl.Current().Interface().(ExtractStructuredRequest)
	hasRecord := len(bytes.TrimSpace(r.Record)) > 0
	if hasRecord == (r.Document != nil) {
		sl.ReportError(r.Record, "record", "Record", "exactlyone", "")
		return
	}
	if hasRecord && !IsJSONObject(r.Record) {
		sl.ReportError(r.Record, "record", "Record", "jsonobject", "")
	}
}

func compareStructuredLevel(sl validator.StructLevel) {
	r := sl.Current().Interface().(CompareStructuredRequest)
	if len(bytes.TrimSpace(r.Old)) > 0 && !IsJSONObject(r.Old) {
		sl.ReportError(r.Old, "old", "Old", "jsonobject", "")
	}
	if len(bytes.TrimSpace(r.New)) > 0 && !IsJSONObject(r.New) {
		sl.ReportError(r.New, "new", "New", "jsonobject", "")
	}
}

// IsJSONObject reports whether b is a syntactically valid JSON object.
func IsJSONObject(b []byte) bool {
	b = bytes.TrimSpace(b)
	return len(b) > 0 && b[0] == '{' && json.Valid(b)
}
