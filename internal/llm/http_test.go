package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docjobs/internal/common"
)

func TestPostJSON_ForwardsRequestID(t *testing.T) {
	var gotID, gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = r.Header.Get(RequestIDHeader)
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	ctx := common.WithJobID(common.WithRequestID(context.Background(), "req-42"), "job-7")
	raw, err := PostJSON(ctx, srv.Client(), srv.URL, map[string]string{"q": "hi"}, map[string]string{"Authorization": "Bearer k"}, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(raw))
	assert.Equal(t, "req-42", gotID)
	assert.Equal(t, "Bearer k", gotAuth)
	assert.Equal(t, "hi", gotBody["q"])
}

func TestPostJSON_MintsRequestID(t *testing.T) {
	var gotID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = r.Header.Get(RequestIDHeader)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := PostJSON(context.Background(), srv.Client(), srv.URL, struct{}{}, nil, nil)
	require.NoError(t, err)
	assert.Len(t, gotID, 36)
}

func TestPostJSON_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	raw, err := PostJSON(context.Background(), srv.Client(), srv.URL, struct{}{}, nil, nil)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusServiceUnavailable, se.Status)
	assert.Contains(t, string(se.Body), "overloaded")
	assert.Equal(t, se.Body, raw)
}

func TestPostJSON_EncodeError(t *testing.T) {
	_, err := PostJSON(context.Background(), nil, "http://127.0.0.1:1", map[string]any{"c": make(chan int)}, nil, nil)
	assert.ErrorContains(t, err, "encode backend request")
}
