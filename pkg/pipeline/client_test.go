package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscribe_Sync(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transcribe", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		assert.Equal(t, "job_1", r.Header.Get("X-Job-Token"))

		var req TranscribeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "iv-1", req.InterviewID)

		_, _ = w.Write([]byte(`{"success":true,"result":{"transcription":"hello","qualityScores":{"clarity":0.9}}}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "key", time.Second)
	res, err := c.Transcribe(context.Background(), TranscribeRequest{InterviewID: "iv-1", JobToken: "job_1"})
	require.NoError(t, err)
	assert.Equal(t, "hello", res.Transcription)
	assert.Equal(t, 0.9, res.QualityScores["clarity"])
}

func TestStructureDraft_Async(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req DraftRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "http://app/api/webhooks/draft-complete", req.CallbackURL)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "", time.Second)
	res, err := c.StructureDraft(context.Background(), DraftRequest{
		InterviewID: "iv-1", JobToken: "job_2", CallbackURL: "http://app/api/webhooks/draft-complete",
	})
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestCall_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		transport bool
	}{
		{"server error is transport", http.StatusBadGateway, "upstream down", true},
		{"client error is final", http.StatusUnprocessableEntity, "bad transcript", false},
		{"declared failure is final", http.StatusOK, `{"success":false,"error":"model_unavailable"}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewHTTPClient(srv.URL, "", time.Second).SynthesizeStory(context.Background(), StoryRequest{SessionID: "s"})
			require.Error(t, err)
			assert.Equal(t, tt.transport, IsTransport(err))
		})
	}
}

func TestCall_DeclaredFailureCarriesReason(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"error":"model_unavailable"}`))
	}))
	defer srv.Close()

	_, err := NewHTTPClient(srv.URL, "", time.Second).StructureDraft(context.Background(), DraftRequest{})
	var pErr *Error
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, "model_unavailable", pErr.Reason)
}

func TestCall_UnreachableIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewHTTPClient(url, "", time.Second).Transcribe(context.Background(), TranscribeRequest{})
	assert.True(t, IsTransport(err))
}
