package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"facility-inspect/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifierNilIsNoop(t *testing.T) {
	n := NewNotifier("")
	assert.Nil(t, n)
	msg, err := n.Send(context.Background(), map[string]string{"a": "b"})
	assert.NoError(t, err)
	assert.Empty(t, msg)
}

func TestNotifierSend(t *testing.T) {
	var got model.FileRecord
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	msg, err := NewNotifier(srv.URL).Send(context.Background(), fileRecord("Swanson Hall", "Custodial", "Level 2"))
	require.NoError(t, err)
	assert.Equal(t, MsgNotifySent, msg)
	assert.Equal(t, "Swanson Hall", got.Building)
}

func TestNotifierFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "flow disabled", http.StatusBadRequest)
	}))
	defer srv.Close()

	msg, err := NewNotifier(srv.URL).Send(context.Background(), struct{}{})
	assert.Equal(t, "Submission failed: 400 - flow disabled\n", msg)
	var ext *ExternalServiceError
	require.ErrorAs(t, err, &ext)
	assert.Equal(t, http.StatusBadRequest, ext.Status)
}
