package entity

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docjobs/constants"
	"github.com/joseph-ayodele/docjobs/internal/common"
)

func TestValidate_OCRExtractRejectsEmptyDocument(t *testing.T) {
	err := Validate(OCRExtractRequest{Document: Document{Filename: "scan.png"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.Contains(t, err.Error(), "data")

	err = Validate(OCRExtractRequest{})
	require.Error(t, err)
	assert.Equal(t, common.KindValidation, common.KindOf(err))
}

func TestValidate_SourceNeedsExactlyOne(t *testing.T) {
	assert.NoError(t, Validate(SummarizeRequest{Source: TextSource("some text")}))
	assert.NoError(t, Validate(SummarizeRequest{Source: DocumentSource("a.pdf", []byte("%PDF"))}))

	err := Validate(SummarizeRequest{Source: Source{Text: "   "}})
	assert.ErrorIs(t, err, common.ErrValidation)

	both := Source{Text: "x", Document: &Document{Filename: "a.pdf", Data: []byte("1")}}
	assert.ErrorIs(t, Validate(SummarizeRequest{Source: both}), common.ErrValidation)

	err = Validate(CompareTextRequest{Old: TextSource("a"), New: Source{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "new")
}

func TestValidate_DocumentSourceChecksBytes(t *testing.T) {
	err := Validate(CheckAlignmentRequest{
		CLO: DocumentSource("clo.docx", nil),
		PLO: TextSource("plo"),
	})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestValidate_StructuredPayloads(t *testing.T) {
	assert.NoError(t, Validate(ExtractStructuredRequest{Record: json.RawMessage(`{"courseName":"X"}`)}))
	assert.ErrorIs(t, Validate(ExtractStructuredRequest{}), common.ErrValidation)
	assert.ErrorIs(t, Validate(ExtractStructuredRequest{Record: json.RawMessage(`[1,2]`)}), common.ErrValidation)

	assert.NoError(t, Validate(CompareStructuredRequest{Old: json.RawMessage(`{}`), New: json.RawMessage(`{"a":1}`)}))
	assert.ErrorIs(t, Validate(CompareStructuredRequest{Old: json.RawMessage(`{}`)}), common.ErrValidation)
	assert.ErrorIs(t, Validate(CompareStructuredRequest{Old: json.RawMessage(`{}`), New: json.RawMessage(`"x"`)}), common.ErrValidation)
}

func TestValidate_NilPayload(t *testing.T) {
	assert.ErrorIs(t, Validate(nil), common.ErrValidation)
}

func TestDescriptor_JSONKeepsTypedPayload(t *testing.T) {
	in := Descriptor{
		ID:          "7f9c",
		Type:        constants.JobTypeCompareText,
		Payload:     CompareTextRequest{Old: TextSource("a"), New: DocumentSource("b.pdf", []byte{0x25, 0x50})},
		SubmittedAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	b, err := json.Marshal(in)
	require.NoError(t, err)

	var out Descriptor
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, in.ID, out.ID)
	assert.True(t, in.SubmittedAt.Equal(out.SubmittedAt))
	req, ok := out.Payload.(CompareTextRequest)
	require.True(t, ok, "payload type %T", out.Payload)
	assert.Equal(t, "a", req.Old.Text)
	assert.Equal(t, []byte{0x25, 0x50}, req.New.Document.Data)
}

func TestDescriptor_UnknownTypeRejected(t *testing.T) {
	var d Descriptor
	err := json.Unmarshal([]byte(`{"id":"1","type":"TRANSLATE","payload":{}}`), &d)
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(constants.JobStatePending, constants.JobStateProgress))
	assert.True(t, CanTransition(constants.JobStateProgress, constants.JobStateProgress))
	assert.True(t, CanTransition(constants.JobStateProgress, constants.JobStateFailure))
	assert.False(t, CanTransition(constants.JobStateSuccess, constants.JobStateProgress))
	assert.False(t, CanTransition(constants.JobStateFailure, constants.JobStateSuccess))
	assert.False(t, CanTransition(constants.JobStateProgress, constants.JobStatePending))
}
