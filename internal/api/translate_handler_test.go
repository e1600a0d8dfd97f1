package api

import (
	"mime"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/babelpdf/babelpdf-api/internal/domain"
)

func TestUploadAcceptsValidPDF(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	token := env.createUser(t, "alice", "password123", false)

	rec := env.uploadFile(t, token, "report.pdf", fixturePDF(t, 2))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp UploadResponse
	decodeBody(t, rec, &resp)
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.FileID)
	assert.Equal(t, "report.pdf", resp.Filename)

	path, filename, err := env.userData.FindUpload("alice", resp.FileID)
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", filename)
	assert.NotEmpty(t, path)
}

func TestUploadRejectsBadFiles(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	token := env.createUser(t, "alice", "password123", false)

	tests := []struct {
		name     string
		filename string
		content  []byte
	}{
		{"wrong extension", "notes.txt", []byte("plain text")},
		{"not a pdf inside", "fake.pdf", []byte("plain text pretending")},
		{"empty file", "empty.pdf", nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.uploadFile(t, token, tc.filename, tc.content)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}

	// Rejected uploads leave nothing on disk.
	entries, err := os.ReadDir(filepath.Join(env.dataDir, "users", "alice", "uploads"))
	if err == nil {
		assert.Empty(t, entries)
	} else {
		assert.True(t, os.IsNotExist(err))
	}
}

func TestUploadRequiresAuthentication(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rec := env.uploadFile(t, "", "report.pdf", fixturePDF(t, 1))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTranslateUnknownFile(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	token := env.createUser(t, "alice", "password123", false)

	rec := env.request(t, http.MethodPost, "/api/translate", token, TranslateRequest{
		FileID: "no-such-file",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTranslateRejectsBadSettings(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	token := env.createUser(t, "alice", "password123", false)

	rec := env.uploadFile(t, token, "report.pdf", fixturePDF(t, 1))
	require.Equal(t, http.StatusOK, rec.Code)
	var upload UploadResponse
	decodeBody(t, rec, &upload)

	rec = env.request(t, http.MethodPost, "/api/translate", token, TranslateRequest{
		FileID:   upload.FileID,
		Settings: `[1,2,3]`,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTranslateFlow(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	token := env.createUser(t, "alice", "password123", false)

	rec := env.uploadFile(t, token, "report.pdf", fixturePDF(t, 2))
	require.Equal(t, http.StatusOK, rec.Code)
	var upload UploadResponse
	decodeBody(t, rec, &upload)

	rec = env.request(t, http.MethodPost, "/api/translate", token, TranslateRequest{
		FileID:   upload.FileID,
		Settings: `{"lang_to":"German"}`,
	})
	require.Equal(t, http.StatusAccepted, rec.Code)
	var started TranslateResponse
	decodeBody(t, rec, &started)
	require.NotEmpty(t, started.TaskID)

	env.runner.Wait()

	rec = env.request(t, http.MethodGet, "/api/translate/status/"+started.TaskID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status TaskResponse
	decodeBody(t, rec, &status)
	require.NotNil(t, status.Task)
	assert.Equal(t, domain.TaskStatusCompleted, status.Task.Status)
	assert.Equal(t, 100, status.Task.Progress)
	require.NotNil(t, status.Task.OutputFiles)

	// Both output variants download as PDF attachments.
	for _, fileType := range []string{"mono", "dual"} {
		rec = env.request(t, http.MethodGet,
			"/api/translate/download/"+started.TaskID+"?file_type="+fileType, token, nil)
		require.Equal(t, http.StatusOK, rec.Code, "file_type %s", fileType)
		assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "report-"+fileType+".pdf")
		assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"), "body must be a PDF")
	}

	// The completed task shows up in history.
	rec = env.request(t, http.MethodGet, "/api/translate/history", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var history HistoryResponse
	decodeBody(t, rec, &history)
	require.Len(t, history.History, 1)
	assert.Equal(t, started.TaskID, history.History[0].TaskID)
	assert.Equal(t, "report.pdf", history.History[0].Filename)
	assert.Equal(t, domain.TaskStatusCompleted, history.History[0].Status)
}

func TestFailedTaskLeavesNoHistory(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	token := env.createUser(t, "alice", "password123", false)

	// A corrupt upload cannot happen through the API; plant one directly so
	// the engine fails after the task is queued.
	_, err := env.userData.SaveUpload("alice", "corrupt-id", "broken.pdf",
		strings.NewReader("not a pdf"))
	require.NoError(t, err)

	rec := env.request(t, http.MethodPost, "/api/translate", token, TranslateRequest{
		FileID: "corrupt-id",
	})
	require.Equal(t, http.StatusAccepted, rec.Code)
	var started TranslateResponse
	decodeBody(t, rec, &started)

	env.runner.Wait()

	rec = env.request(t, http.MethodGet, "/api/translate/status/"+started.TaskID, token, nil)
	var status TaskResponse
	decodeBody(t, rec, &status)
	assert.Equal(t, domain.TaskStatusFailed, status.Task.Status)
	assert.Contains(t, status.Task.Message, "Translation failed")

	rec = env.request(t, http.MethodGet, "/api/translate/history", token, nil)
	var history HistoryResponse
	decodeBody(t, rec, &history)
	assert.Empty(t, history.History, "failed tasks are not recorded in history")

	// Failed tasks have no downloadable output.
	rec = env.request(t, http.MethodGet, "/api/translate/download/"+started.TaskID, token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestTaskAccessControl(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	aliceToken := env.createUser(t, "alice", "password123", false)
	bobToken := env.createUser(t, "bob", "password123", false)

	rec := env.uploadFile(t, aliceToken, "report.pdf", fixturePDF(t, 1))
	require.Equal(t, http.StatusOK, rec.Code)
	var upload UploadResponse
	decodeBody(t, rec, &upload)

	rec = env.request(t, http.MethodPost, "/api/translate", aliceToken, TranslateRequest{
		FileID: upload.FileID,
	})
	require.Equal(t, http.StatusAccepted, rec.Code)
	var started TranslateResponse
	decodeBody(t, rec, &started)
	env.runner.Wait()

	// Another user cannot see or download the task.
	rec = env.request(t, http.MethodGet, "/api/translate/status/"+started.TaskID, bobToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = env.request(t, http.MethodGet, "/api/translate/download/"+started.TaskID, bobToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Bob cannot translate alice's upload either.
	rec = env.request(t, http.MethodPost, "/api/translate", bobToken, TranslateRequest{
		FileID: upload.FileID,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTaskStatusInvalidIDs(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	token := env.createUser(t, "alice", "password123", false)

	rec := env.request(t, http.MethodGet, "/api/translate/status/not-a-uuid", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// A well-formed but unknown ID is indistinguishable from someone else's
	// task, so IDs cannot be probed.
	rec = env.request(t, http.MethodGet,
		"/api/translate/status/00000000-0000-0000-0000-000000000000", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDownloadBeforeCompletion(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	token := env.createUser(t, "alice", "password123", false)

	// Register a queued task that no runner is driving.
	queued := domain.NewTask("alice", "some-file")
	require.NoError(t, env.registry.Create(queued))

	rec := env.request(t, http.MethodGet, "/api/translate/download/"+queued.ID, token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDownloadRejectsUnknownFileType(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	token := env.createUser(t, "alice", "password123", false)

	rec := env.uploadFile(t, token, "report.pdf", fixturePDF(t, 1))
	require.Equal(t, http.StatusOK, rec.Code)
	var upload UploadResponse
	decodeBody(t, rec, &upload)

	rec = env.request(t, http.MethodPost, "/api/translate", token, TranslateRequest{FileID: upload.FileID})
	require.Equal(t, http.StatusAccepted, rec.Code)
	var started TranslateResponse
	decodeBody(t, rec, &started)
	env.runner.Wait()

	rec = env.request(t, http.MethodGet,
		"/api/translate/download/"+started.TaskID+"?file_type=triple", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// Quotes and other specials in an upload filename must not break the
// Content-Disposition header of the download.
func TestDownloadEscapesFilename(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	token := env.createUser(t, "alice", "password123", false)

	rec := env.uploadFile(t, token, `quar"terly.pdf`, fixturePDF(t, 1))
	require.Equal(t, http.StatusOK, rec.Code)
	var upload UploadResponse
	decodeBody(t, rec, &upload)

	rec = env.request(t, http.MethodPost, "/api/translate", token, TranslateRequest{FileID: upload.FileID})
	require.Equal(t, http.StatusAccepted, rec.Code)
	var started TranslateResponse
	decodeBody(t, rec, &started)
	env.runner.Wait()

	rec = env.request(t, http.MethodGet, "/api/translate/download/"+started.TaskID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	disposition, params, err := mime.ParseMediaType(rec.Header().Get("Content-Disposition"))
	require.NoError(t, err)
	assert.Equal(t, "attachment", disposition)
	assert.Equal(t, `quar"terly-mono.pdf`, params["filename"])
}

func TestProgressWebSocketDeliversTerminalSnapshot(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	token := env.createUser(t, "alice", "password123", false)

	rec := env.uploadFile(t, token, "report.pdf", fixturePDF(t, 2))
	require.Equal(t, http.StatusOK, rec.Code)
	var upload UploadResponse
	decodeBody(t, rec, &upload)

	rec = env.request(t, http.MethodPost, "/api/translate", token, TranslateRequest{FileID: upload.FileID})
	require.Equal(t, http.StatusAccepted, rec.Code)
	var started TranslateResponse
	decodeBody(t, rec, &started)

	server := httptest.NewServer(env.router)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/translate/ws/" + started.TaskID
	header := http.Header{"Authorization": []string{"Bearer " + token}}
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	if resp != nil {
		defer resp.Body.Close()
	}
	defer conn.Close()

	// Snapshots arrive until the terminal one; progress never regresses.
	lastProgress := -1
	for {
		var snapshot domain.Task
		err := conn.ReadJSON(&snapshot)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, snapshot.Progress, lastProgress)
		lastProgress = snapshot.Progress

		if snapshot.Status.Terminal() {
			assert.Equal(t, domain.TaskStatusCompleted, snapshot.Status)
			assert.Equal(t, 100, snapshot.Progress)
			break
		}
	}
}
