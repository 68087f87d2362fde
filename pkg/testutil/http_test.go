package testutil

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBodyHelpersDoNotDrainTheRecorder(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok","postgres":"ok"}`))
	})

	rr := DoRequest(handler, NewRequest(t, http.MethodGet, "/healthz"))

	// Several assertions against the same recorder must all see the body.
	AssertJSONContains(t, rr, "status", "ok")
	AssertJSONContains(t, rr, "postgres", "ok")
	assert.Equal(t, ReadBody(t, rr), ReadBody(t, rr))
}

func TestUnmarshalResponse(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"credential":"abc"}`))
	})

	rr := DoRequest(handler, NewRequest(t, http.MethodGet, "/"))
	AssertStatus(t, rr, http.StatusCreated)

	type resp struct {
		Credential string `json:"credential"`
	}
	decoded := UnmarshalResponse[resp](t, rr)
	assert.Equal(t, "abc", decoded.Credential)
}

func TestNewJSONRequestSetsContentType(t *testing.T) {
	req := NewJSONRequest(t, http.MethodPost, "/review/decisions", map[string]string{"action": "approve"})
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.NotNil(t, req.Body)
}
