package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onboardhr/onboarding/internal/onboarding/model"
)

func TestClient_FetchSteps(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/onboarding/by-id/7", r.URL.Path)
		assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[
			{"stepId":"login","status":"COMPLETED","data":null},
			{"stepId":"forms","status":"In Progress","data":"{firstName=james, lastName=wames}"},
			{"stepId":"documents","status":"weird","data":"not an object"}
		]`)
	}))
	defer server.Close()

	client := NewClient(server.URL + "/")
	client.SetToken("token-123")

	records, err := client.FetchSteps(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, model.StepStatusCompleted, records[0].Status)
	assert.Nil(t, records[0].Data)

	assert.Equal(t, model.StepStatusInProgress, records[1].Status)
	assert.Equal(t, map[string]any{"firstName": "james", "lastName": "wames"}, records[1].Data)
	assert.Nil(t, records[1].Warning)

	assert.Equal(t, model.StepStatusPending, records[2].Status)
	assert.Equal(t, "not an object", records[2].Data)
	require.NotNil(t, records[2].Warning)
}

func TestClient_UpdateStep(t *testing.T) {
	var got UpdateStepRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/onboarding/7/step", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"success":true}`)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	err := client.UpdateStep(context.Background(), 7, model.StepForms, model.StepStatusCompleted, map[string]any{"firstName": "A"})
	require.NoError(t, err)
	assert.Equal(t, "forms", got.StepID)
	assert.Equal(t, "completed", got.Status)
	assert.Equal(t, map[string]any{"firstName": "A"}, got.Data)
}

func TestClient_UpdateStepRejectsInvalidStatus(t *testing.T) {
	client := NewClient("http://127.0.0.1:0")
	err := client.UpdateStep(context.Background(), 7, model.StepForms, model.StepStatus("done"), nil)
	require.Error(t, err)

	var syncErr *model.RemoteSyncError
	assert.False(t, errors.As(err, &syncErr), "validation must fail before any request")
}

func TestClient_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"candidate not found"}`)
	}))
	defer server.Close()

	_, err := NewClient(server.URL).FetchSteps(context.Background(), 404)

	var syncErr *model.RemoteSyncError
	require.True(t, errors.As(err, &syncErr))
	assert.Equal(t, model.SyncErrorHTTP, syncErr.Kind)
	assert.Equal(t, http.StatusNotFound, syncErr.StatusCode)
	assert.Equal(t, "candidate not found", syncErr.Message)
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(server.URL, WithTimeouts(Timeouts{Mutate: 50 * time.Millisecond, Read: 50 * time.Millisecond, Health: 50 * time.Millisecond}))
	err := client.HealthCheck(context.Background())

	var syncErr *model.RemoteSyncError
	require.True(t, errors.As(err, &syncErr))
	assert.True(t, syncErr.Timeout())
	assert.Contains(t, err.Error(), "backend server may not be running")
}

func TestClient_FetchCandidatesPagesThroughList(t *testing.T) {
	const total = 230
	var offsets []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/candidates", r.URL.Path)
		offset, err := strconv.Atoi(r.URL.Query().Get("offset"))
		assert.NoError(t, err)
		limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
		assert.NoError(t, err)
		offsets = append(offsets, r.URL.Query().Get("offset"))

		page := []CandidateSummary{}
		for i := offset; i < total && i < offset+limit; i++ {
			page = append(page, CandidateSummary{ID: int64(total - i)})
		}
		w.Header().Set("X-Total-Count", strconv.Itoa(total))
		assert.NoError(t, json.NewEncoder(w).Encode(page))
	}))
	defer server.Close()

	candidates, err := NewClient(server.URL).FetchCandidates(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, total)
	assert.Equal(t, int64(total), candidates[0].ID)
	assert.Equal(t, int64(1), candidates[total-1].ID, "oldest candidate is on the last page")
	assert.Equal(t, []string{"0", "100", "200"}, offsets)
}

func TestClient_FetchCandidatesWithoutTotalHeader(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = io.WriteString(w, `[{"id":1},{"id":2}]`)
	}))
	defer server.Close()

	candidates, err := NewClient(server.URL).FetchCandidates(context.Background())
	require.NoError(t, err)
	assert.Len(t, candidates, 2)
	assert.Equal(t, 1, calls)
}

func TestClient_FetchCandidate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/candidates/3":
			_, _ = io.WriteString(w, `{"id":3,"firstName":"Ada","lastName":"Lovelace","position":"Engineer"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":"candidate not found"}`)
		}
	}))
	defer server.Close()
	client := NewClient(server.URL)

	candidate, err := client.FetchCandidate(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "Ada", candidate.FirstName)
	assert.Equal(t, "Engineer", candidate.Position)

	_, err = client.FetchCandidate(context.Background(), 9)
	var syncErr *model.RemoteSyncError
	require.True(t, errors.As(err, &syncErr))
	assert.Equal(t, http.StatusNotFound, syncErr.StatusCode)
	assert.Equal(t, "candidate not found", syncErr.Message)
}

func TestClient_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewClient(url).FetchCandidates(context.Background())

	var syncErr *model.RemoteSyncError
	require.True(t, errors.As(err, &syncErr))
	assert.Equal(t, model.SyncErrorUnreachable, syncErr.Kind)
	assert.False(t, syncErr.Timeout())
}

func TestClient_UploadDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/documents/upload", r.URL.Path)
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "7", r.FormValue("candidateId"))
		file, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer file.Close()
		content, _ := io.ReadAll(file)
		assert.Equal(t, "passport scan", string(content))
		assert.Equal(t, "passport.pdf", header.Filename)
		_, _ = io.WriteString(w, `{"id":"d-1","storageRef":"ab/cd/key.pdf","fileName":"passport.pdf","fileType":"application/pdf","fileSize":13}`)
	}))
	defer server.Close()

	upload, err := NewClient(server.URL).UploadDocument(context.Background(), 7, "/tmp/passport.pdf", strings.NewReader("passport scan"))
	require.NoError(t, err)
	assert.Equal(t, "d-1", upload.ID)
	assert.Equal(t, int64(13), upload.FileSize)
}

func TestClient_LoginFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":false,"message":"Invalid credentials"}`)
	}))
	defer server.Close()

	_, err := NewClient(server.URL).Login(context.Background(), "a@example.com", "wrong")
	var syncErr *model.RemoteSyncError
	require.True(t, errors.As(err, &syncErr))
	assert.Equal(t, "Invalid credentials", syncErr.Message)
}

func TestClient_NotifyStepCompletedSendsCandidateID(t *testing.T) {
	var got StepCompletedNotice
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/onboarding/step-completed", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	require.NoError(t, NewClient(server.URL).NotifyStepCompleted(context.Background(), 7, model.StepForms))
	assert.Equal(t, StepCompletedNotice{Email: "7", Step: "forms"}, got)
}
