package apiclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newBackend(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL})
}

func TestList(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/conversations", func(w http.ResponseWriter, r *http.Request) {
		require.NotEmpty(t, r.Header.Get(RequestIDHeader))
		_, _ = io.WriteString(w, `{"conversations":[{"conversation_id":"abc","status":"done","call_duration_secs":42,"start_time_unix_secs":1700000000},{"conversation_id":"def"}]}`)
	})
	c := newBackend(t, mux)

	items, err := c.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "abc", items[0].ConversationID)
	require.Equal(t, "done", *items[0].Status)
	require.Nil(t, items[1].Status)
}

func TestList_MissingFieldIsEmpty(t *testing.T) {
	for name, body := range map[string]string{
		"missing field": `{}`,
		"null field":    `{"conversations":null}`,
		"null body":     `null`,
		"empty body":    ``,
	} {
		t.Run(name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("GET /api/conversations", func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, body)
			})
			items, err := newBackend(t, mux).List(context.Background())
			require.NoError(t, err)
			require.NotNil(t, items)
			require.Empty(t, items)
		})
	}
}

func TestList_Failures(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/conversations", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":"upstream exploded"}`)
	})
	_, err := newBackend(t, mux).List(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	require.Equal(t, "upstream exploded", apiErr.Message)
	require.Contains(t, err.Error(), "list conversations")

	malformed := http.NewServeMux()
	malformed.HandleFunc("GET /api/conversations", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"conversations":[{`)
	})
	_, err = newBackend(t, malformed).List(context.Background())
	require.ErrorContains(t, err, "decode conversation list")
}

func TestList_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(Config{BaseURL: url}).List(context.Background())
	require.Error(t, err)
}

func TestGet(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/conversations/{id}", func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("id") {
		case "abc":
			_, _ = io.WriteString(w, `{"conversation_id":"abc","agent_id":"ag","status":"done","metadata":{"call_duration_secs":7},"transcript":[{"role":"user","message":"hi"}]}`)
		case "gone":
			_, _ = io.WriteString(w, `null`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	c := newBackend(t, mux)

	d, err := c.Get(context.Background(), "abc")
	require.NoError(t, err)
	require.Equal(t, "ag", d.AgentID)
	require.EqualValues(t, 7, *d.Duration())
	require.Len(t, d.Transcript, 1)

	d, err = c.Get(context.Background(), "gone")
	require.NoError(t, err)
	require.Nil(t, d)

	_, err = c.Get(context.Background(), "missing")
	require.True(t, IsNotFound(err))
}

func TestDeleteAndSave(t *testing.T) {
	var deleted, savedID, savedName string
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /api/conversations/{id}", func(w http.ResponseWriter, r *http.Request) {
		deleted = r.PathValue("id")
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /api/conversations/{id}/save", func(w http.ResponseWriter, r *http.Request) {
		savedID = r.PathValue("id")
		var body struct {
			Filename string `json:"filename"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		savedName = body.Filename
		_, _ = io.WriteString(w, `{"success":true}`)
	})
	c := newBackend(t, mux)

	require.NoError(t, c.Delete(context.Background(), "abc"))
	require.Equal(t, "abc", deleted)

	require.NoError(t, c.Save(context.Background(), "abc", "conversation_abc.txt"))
	require.Equal(t, "abc", savedID)
	require.Equal(t, "conversation_abc.txt", savedName)
}

func TestDelete_Failure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /api/conversations/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	err := newBackend(t, mux).Delete(context.Background(), "abc")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	require.Empty(t, apiErr.Message)
}

func TestContextCancellation(t *testing.T) {
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/conversations", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	c := newBackend(t, mux)
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.List(ctx)
	require.Error(t, err)
}
