package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ledongthuc/pdf"

	"github.com/babelpdf/babelpdf-api/internal/api/shared"
	"github.com/babelpdf/babelpdf-api/internal/domain"
	"github.com/babelpdf/babelpdf-api/internal/platform/logger"
	"github.com/babelpdf/babelpdf-api/internal/security"
	"github.com/babelpdf/babelpdf-api/internal/task"
	"github.com/babelpdf/babelpdf-api/internal/userdata"
)

const (
	// maxUploadBytes caps uploaded document size.
	maxUploadBytes = 100 << 20

	// wsPollInterval is how often the progress socket samples task state.
	wsPollInterval = 500 * time.Millisecond

	// wsWriteTimeout bounds each websocket write.
	wsWriteTimeout = 10 * time.Second
)

// TranslateHandler handles document upload, translation tasks and output
// retrieval.
type TranslateHandler struct {
	registry *task.Registry
	runner   *task.Runner
	userData *userdata.Manager
	scanner  *security.Scanner
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewTranslateHandler creates a new TranslateHandler.
func NewTranslateHandler(registry *task.Registry, runner *task.Runner, userData *userdata.Manager, scanner *security.Scanner, log *slog.Logger) *TranslateHandler {
	return &TranslateHandler{
		registry: registry,
		runner:   runner,
		userData: userData,
		scanner:  scanner,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The API is token-authenticated; origin checks add nothing here.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: log.With("component", "translate_handler"),
	}
}

// Upload accepts a PDF document and stores it for later translation. The file
// must parse as a PDF with at least one page before it is accepted.
func (h *TranslateHandler) Upload(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	claims, ok := shared.GetUserClaims(r.Context())
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "A file upload is required")
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Only PDF files are supported")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		log.Error("failed to read upload", "error", err)
		shared.RespondWithError(w, r, http.StatusBadRequest, "Failed to read uploaded file")
		return
	}

	if err := h.scanner.Scan(data); err != nil {
		log.Warn("upload rejected by scanner", "filename", filename, "error", err)
		RespondWithMappedError(w, r, err)
		return
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil || reader.NumPage() < 1 {
		shared.RespondWithError(w, r, http.StatusBadRequest, "File is not a valid PDF document")
		return
	}

	fileID := uuid.NewString()
	if _, err := h.userData.SaveUpload(claims.Username, fileID, filename, bytes.NewReader(data)); err != nil {
		log.Error("failed to store upload", "error", err)
		RespondWithMappedError(w, r, err)
		return
	}

	log.Info("file uploaded",
		"username", claims.Username,
		"file_id", fileID,
		"filename", filename,
		"pages", reader.NumPage(),
		"size_bytes", len(data))

	shared.RespondWithJSON(w, r, http.StatusOK, UploadResponse{
		Success:  true,
		FileID:   fileID,
		Filename: filename,
	})
}

// Start queues a translation task for a previously uploaded file and launches
// it in the background.
func (h *TranslateHandler) Start(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	claims, ok := shared.GetUserClaims(r.Context())
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req TranslateRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if req.FileID == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "A file_id is required")
		return
	}

	settings := map[string]any{}
	if req.Settings != "" {
		if err := json.Unmarshal([]byte(req.Settings), &settings); err != nil || settings == nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Settings must be a JSON object")
			return
		}
	}

	sourcePath, filename, err := h.userData.FindUpload(claims.Username, req.FileID)
	if err != nil {
		RespondWithMappedError(w, r, err)
		return
	}

	t := domain.NewTask(claims.Username, req.FileID)
	outputDir, err := h.userData.OutputDir(claims.Username, t.ID)
	if err != nil {
		log.Error("failed to create output directory", "error", err)
		RespondWithMappedError(w, r, err)
		return
	}
	if err := h.registry.Create(t); err != nil {
		log.Error("failed to register task", "error", err)
		RespondWithMappedError(w, r, err)
		return
	}

	h.runner.Launch(task.Spec{
		TaskID:     t.ID,
		Owner:      claims.Username,
		SourcePath: sourcePath,
		Filename:   filename,
		OutputDir:  outputDir,
		Settings:   settings,
	})

	log.Info("translation queued",
		"username", claims.Username,
		"task_id", t.ID,
		"file_id", req.FileID)

	shared.RespondWithJSON(w, r, http.StatusAccepted, TranslateResponse{
		Success: true,
		TaskID:  t.ID,
	})
}

// Status returns a snapshot of one of the caller's tasks.
func (h *TranslateHandler) Status(w http.ResponseWriter, r *http.Request) {
	t, err := h.ownedTask(r)
	if err != nil {
		RespondWithMappedError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, TaskResponse{Success: true, Task: t})
}

// Download streams a completed task's output. The file_type query parameter
// selects the mono (translated only, default) or dual (interleaved) variant.
func (h *TranslateHandler) Download(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	t, err := h.ownedTask(r)
	if err != nil {
		RespondWithMappedError(w, r, err)
		return
	}
	if t.Status != domain.TaskStatusCompleted || t.OutputFiles == nil {
		RespondWithMappedError(w, r, domain.ErrTaskNotCompleted)
		return
	}

	fileType := r.URL.Query().Get("file_type")
	if fileType == "" {
		fileType = "mono"
	}
	var path string
	switch fileType {
	case "mono":
		path = t.OutputFiles.Mono
	case "dual":
		path = t.OutputFiles.Dual
	default:
		shared.RespondWithError(w, r, http.StatusBadRequest, "file_type must be mono or dual")
		return
	}

	if path == "" {
		shared.RespondWithError(w, r, http.StatusNotFound, "Output file not found")
		return
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			shared.RespondWithError(w, r, http.StatusNotFound, "Output file not found")
			return
		}
		log.Error("failed to open output file", "task_id", t.ID, "path", path, "error", err)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Output file unavailable")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment",
		map[string]string{"filename": h.downloadName(t, fileType)}))
	if _, err := io.Copy(w, f); err != nil {
		// The response is already streaming; all we can do is log.
		log.Warn("output download interrupted", "task_id", t.ID, "error", err)
	}
}

// downloadName derives the attachment filename from the original upload,
// falling back to the output file's own name.
func (h *TranslateHandler) downloadName(t *domain.Task, fileType string) string {
	_, original, err := h.userData.FindUpload(t.Owner, t.FileID)
	if err != nil {
		if fileType == "dual" {
			return "dual.pdf"
		}
		return "translated.pdf"
	}
	base := strings.TrimSuffix(original, filepath.Ext(original))
	return base + "-" + fileType + ".pdf"
}

// History lists the caller's completed translations.
func (h *TranslateHandler) History(w http.ResponseWriter, r *http.Request) {
	claims, ok := shared.GetUserClaims(r.Context())
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	entries, err := h.userData.History(claims.Username)
	if err != nil {
		logger.FromContextOrDefault(r.Context(), h.logger).Error("failed to read history", "error", err)
		RespondWithMappedError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, HistoryResponse{Success: true, History: entries})
}

// Progress upgrades to a websocket and pushes task snapshots until the task
// reaches a terminal state. A final snapshot is always sent before the socket
// closes, so clients never miss the terminal status.
func (h *TranslateHandler) Progress(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	t, err := h.ownedTask(r)
	if err != nil {
		RespondWithMappedError(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// Drain client frames so close messages are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	taskID := t.ID
	ticker := time.NewTicker(wsPollInterval)
	defer ticker.Stop()

	for {
		snapshot, err := h.registry.Get(taskID)
		if err != nil {
			// Evicted mid-stream; nothing more to report.
			return
		}

		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(snapshot); err != nil {
			return
		}
		if snapshot.Status.Terminal() {
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

// ownedTask resolves the task_id URL parameter and verifies the caller owns
// the task.
func (h *TranslateHandler) ownedTask(r *http.Request) (*domain.Task, error) {
	claims, ok := shared.GetUserClaims(r.Context())
	if !ok {
		return nil, domain.ErrUnauthorized
	}

	taskID := chi.URLParam(r, "task_id")
	if _, err := uuid.Parse(taskID); err != nil {
		return nil, domain.ErrInvalidID
	}

	t, err := h.registry.Get(taskID)
	if err != nil {
		// Missing tasks read as foreign so task IDs cannot be probed.
		return nil, domain.ErrNotOwner
	}
	if t.Owner != claims.Username {
		return nil, domain.ErrNotOwner
	}
	return t, nil
}
