package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jung-kurt/gofpdf"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	apiMiddleware "github.com/babelpdf/babelpdf-api/internal/api/middleware"
	"github.com/babelpdf/babelpdf-api/internal/config"
	"github.com/babelpdf/babelpdf-api/internal/domain"
	"github.com/babelpdf/babelpdf-api/internal/security"
	"github.com/babelpdf/babelpdf-api/internal/service/auth"
	"github.com/babelpdf/babelpdf-api/internal/store/file"
	"github.com/babelpdf/babelpdf-api/internal/task"
	"github.com/babelpdf/babelpdf-api/internal/translator"
	"github.com/babelpdf/babelpdf-api/internal/userdata"
)

const testJWTSecret = "0123456789abcdef0123456789abcdef"

// testEnv wires real components against a temp directory, mirroring the
// production router so handler tests exercise the same routes and middleware.
type testEnv struct {
	router    http.Handler
	dataDir   string
	userStore *file.UserStore
	userData  *userdata.Manager
	registry  *task.Registry
	runner    *task.Runner
	tokens    auth.TokenService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	log := slog.Default()

	userStore, err := file.NewUserStore(dir, auth.NewBcryptHasher(bcrypt.MinCost), auth.NewBcryptVerifier())
	require.NoError(t, err)

	userData, err := userdata.NewManager(dir)
	require.NoError(t, err)

	tokens, err := auth.NewTokenService(config.AuthConfig{
		JWTSecret:            testJWTSecret,
		TokenLifetimeMinutes: 60,
	})
	require.NoError(t, err)

	registry := task.NewRegistry(time.Hour, log)
	runner := task.NewRunner(registry, translator.NewDraftEngine(), userData, log)
	scanner := security.NewScanner(config.ScannerConfig{}, log)

	authHandler := NewAuthHandler(userStore, tokens, userData, log)
	settingsHandler := NewSettingsHandler(userStore, userData, log)
	translateHandler := NewTranslateHandler(registry, runner, userData, scanner, log)
	authMw := apiMiddleware.NewAuthMiddleware(tokens)

	r := chi.NewRouter()
	r.Use(apiMiddleware.NewTraceMiddleware(log))
	r.Route("/api", func(r chi.Router) {
		r.Get("/auth/status", authHandler.Status)
		r.Post("/auth/setup", authHandler.Setup)
		r.Post("/auth/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(authMw.Authenticate)

			r.Post("/auth/logout", authHandler.Logout)

			r.Get("/settings", settingsHandler.Get)
			r.Post("/settings", settingsHandler.Put)
			r.Post("/settings/reset", settingsHandler.Reset)
			r.Post("/settings/password", settingsHandler.ChangePassword)

			r.Post("/upload", translateHandler.Upload)
			r.Post("/translate", translateHandler.Start)
			r.Get("/translate/status/{task_id}", translateHandler.Status)
			r.Get("/translate/download/{task_id}", translateHandler.Download)
			r.Get("/translate/ws/{task_id}", translateHandler.Progress)
			r.Get("/translate/history", translateHandler.History)

			r.Group(func(r chi.Router) {
				r.Use(apiMiddleware.RequireAdmin)

				r.Post("/auth/register", authHandler.Register)
				r.Get("/auth/users", authHandler.ListUsers)
				r.Delete("/auth/users/{username}", authHandler.DeleteUser)
			})
		})
	})

	return &testEnv{
		router:    r,
		dataDir:   dir,
		userStore: userStore,
		userData:  userData,
		registry:  registry,
		runner:    runner,
		tokens:    tokens,
	}
}

// createUser registers an account directly in the store and returns a valid
// session token for it.
func (env *testEnv) createUser(t *testing.T, username, password string, admin bool) string {
	t.Helper()

	user, err := domain.NewUser(username, password, admin)
	require.NoError(t, err)
	require.NoError(t, env.userStore.Create(context.Background(), user, password))

	token, err := env.tokens.Generate(context.Background(), user)
	require.NoError(t, err)
	return token
}

// request performs one request against the test router. A non-nil body is
// JSON-encoded; a non-empty token is sent as a bearer token.
func (env *testEnv) request(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

// requestRaw performs one request with a verbatim body, for payloads that
// are deliberately not valid JSON.
func (env *testEnv) requestRaw(t *testing.T, method, path, token string, body []byte) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

// uploadFile performs a multipart upload of raw content.
func (env *testEnv) uploadFile(t *testing.T, token, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

// fixturePDF renders a small real PDF in memory.
func fixturePDF(t *testing.T, pages int) []byte {
	t.Helper()

	doc := gofpdf.New("P", "mm", "A4", "")
	for i := 1; i <= pages; i++ {
		doc.AddPage()
		doc.SetFont("Arial", "", 12)
		doc.Cell(0, 10, fmt.Sprintf("Fixture page %d", i))
	}
	var buf bytes.Buffer
	require.NoError(t, doc.Output(&buf))
	return buf.Bytes()
}

// decodeBody unmarshals a recorded JSON response body.
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out),
		"body: %s", strings.TrimSpace(rec.Body.String()))
}
