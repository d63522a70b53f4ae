package remotesync

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *Client {
	return NewClient(
		baseURL,
		"testowner", "testrepo", "main", "test-token",
		&http.Client{Timeout: 5 * time.Second},
	)
}

func TestClient_FetchMeta(t *testing.T) {
	var receivedAuth, receivedAccept string
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedAuth = r.Header.Get("Authorization")
		receivedAccept = r.Header.Get("Accept")
		assert.Equal(t, "/repos/testowner/testrepo/contents/data%2Fworkout_records.csv", r.URL.EscapedPath())
		assert.Equal(t, "main", r.URL.Query().Get("ref"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"path": "data/workout_records.csv",
			"sha": "abc123",
			"size": 512,
			"download_url": "https://remote.example.com/raw/data/workout_records.csv"
		}`)
	}))
	defer testServer.Close()

	client := newTestClient(testServer.URL)
	meta, err := client.FetchMeta(context.Background(), "data/workout_records.csv")
	require.NoError(t, err)
	require.NotNil(t, meta)

	assert.Equal(t, "Bearer test-token", receivedAuth)
	assert.Equal(t, "application/vnd.github+json", receivedAccept)
	assert.Equal(t, "data/workout_records.csv", meta.Path)
	assert.Equal(t, "abc123", meta.SHA)
	assert.Equal(t, 512, meta.Size)
	assert.Equal(t, "https://remote.example.com/raw/data/workout_records.csv", meta.DownloadURL)
}

func TestClient_FetchMeta_notFound(t *testing.T) {
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer testServer.Close()

	client := newTestClient(testServer.URL)
	meta, err := client.FetchMeta(context.Background(), "data/workout_records.csv")
	assert.Nil(t, meta)
	assert.ErrorIs(t, err, ErrRemoteFileNotFound)
}

func TestClient_FetchMeta_unreachable(t *testing.T) {
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	testServer.Close() // kill the server right away

	client := newTestClient(testServer.URL)
	meta, err := client.FetchMeta(context.Background(), "data/workout_records.csv")
	assert.Nil(t, meta)
	assert.ErrorIs(t, err, ErrRemoteUnreachable)
}

func TestClient_Push_existingFile(t *testing.T) {
	csvContent := []byte("Date,Exercise,Weight\n2025-03-01 10:00:00,Squats,80\n")

	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodGet:
			fmt.Fprint(w, `{"path": "records.csv", "sha": "oldsha", "size": 10}`)
		case http.MethodPut:
			var pushReq struct {
				Message string `json:"message"`
				Branch  string `json:"branch"`
				Content string `json:"content"`
				SHA     string `json:"sha"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&pushReq))
			assert.Equal(t, "update records", pushReq.Message)
			assert.Equal(t, "main", pushReq.Branch)
			assert.Equal(t, "oldsha", pushReq.SHA)
			assert.Equal(t, base64.StdEncoding.EncodeToString(csvContent), pushReq.Content)

			fmt.Fprint(w, `{"content": {"sha": "newsha"}}`)
		default:
			t.Errorf("unexpected method: %s", r.Method)
		}
	}))
	defer testServer.Close()

	client := newTestClient(testServer.URL)
	result, err := client.Push(context.Background(), "records.csv", csvContent, "update records")
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "newsha", result.SHA)
	assert.False(t, result.Created)
}

func TestClient_Push_createsNewFile(t *testing.T) {
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPut:
			var pushReq struct {
				SHA *string `json:"sha"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&pushReq))
			// no previous sha when the remote file does not exist
			assert.Nil(t, pushReq.SHA)

			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{"content": {"sha": "freshsha"}}`)
		}
	}))
	defer testServer.Close()

	client := newTestClient(testServer.URL)
	result, err := client.Push(context.Background(), "records.csv", []byte("Date,Exercise,Weight\n"), "initial push")
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "freshsha", result.SHA)
	assert.True(t, result.Created)
}

func TestClient_Push_rejectedOnStaleSha(t *testing.T) {
	for _, statusCode := range []int{http.StatusConflict, http.StatusUnprocessableEntity} {
		testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			switch r.Method {
			case http.MethodGet:
				fmt.Fprint(w, `{"path": "records.csv", "sha": "stalesha", "size": 10}`)
			case http.MethodPut:
				w.WriteHeader(statusCode)
			}
		}))

		client := newTestClient(testServer.URL)
		result, err := client.Push(context.Background(), "records.csv", []byte("content"), "update records")
		assert.Nil(t, result)
		assert.ErrorIs(t, err, ErrRemoteRejected)

		testServer.Close()
	}
}
