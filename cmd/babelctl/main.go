// Package main implements babelctl, a small command-line client for the
// BabelPDF API. It logs in (running first-time setup when the server is
// fresh), uploads a PDF, starts a translation, renders progress while the
// task runs, and downloads the results.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
)

const pollInterval = 500 * time.Millisecond

type client struct {
	baseURL string
	token   string
	http    *http.Client
}

type statusResponse struct {
	SetupRequired bool   `json:"setup_required"`
	Version       string `json:"version"`
}

type authResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
}

type uploadResponse struct {
	FileID   string `json:"file_id"`
	Filename string `json:"filename"`
}

type translateResponse struct {
	TaskID string `json:"task_id"`
}

type taskSnapshot struct {
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	Message  string `json:"message"`
}

type taskResponse struct {
	Task taskSnapshot `json:"task"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func main() {
	server := flag.String("server", "http://localhost:8080", "API server base URL")
	username := flag.String("username", "", "account username")
	password := flag.String("password", "", "account password")
	settings := flag.String("settings", "", "translation settings as a JSON object")
	output := flag.String("output", ".", "directory for downloaded files")
	flag.Parse()

	if flag.NArg() != 1 || *username == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "usage: babelctl -username USER -password PASS [flags] FILE.pdf")
		flag.PrintDefaults()
		os.Exit(2)
	}
	source := flag.Arg(0)

	c := &client{
		baseURL: *server,
		http:    &http.Client{Timeout: 60 * time.Second},
	}

	if err := run(c, source, *settings, *output, *username, *password); err != nil {
		fmt.Fprintln(os.Stderr, "babelctl:", err)
		os.Exit(1)
	}
}

func run(c *client, source, settings, output, username, password string) error {
	if err := c.authenticate(username, password); err != nil {
		return err
	}

	fileID, err := c.upload(source)
	if err != nil {
		return err
	}
	fmt.Println("uploaded:", filepath.Base(source))

	taskID, err := c.translate(fileID, settings)
	if err != nil {
		return err
	}

	if err := c.waitForCompletion(taskID); err != nil {
		return err
	}

	for _, fileType := range []string{"mono", "dual"} {
		path, err := c.download(taskID, fileType, output)
		if err != nil {
			return err
		}
		fmt.Println("downloaded:", path)
	}
	return nil
}

// authenticate logs in, falling back to first-run setup when the server
// reports no accounts exist yet.
func (c *client) authenticate(username, password string) error {
	var status statusResponse
	if err := c.getJSON("/api/auth/status", &status); err != nil {
		return fmt.Errorf("server unreachable: %w", err)
	}

	endpoint := "/api/auth/login"
	if status.SetupRequired {
		endpoint = "/api/auth/setup"
		fmt.Println("fresh server, creating admin account:", username)
	}

	var resp authResponse
	if err := c.postJSON(endpoint, map[string]string{
		"username": username,
		"password": password,
	}, &resp); err != nil {
		return err
	}
	c.token = resp.Token
	return nil
}

func (c *client) upload(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/api/upload", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp uploadResponse
	if err := c.do(req, &resp); err != nil {
		return "", err
	}
	return resp.FileID, nil
}

func (c *client) translate(fileID, settings string) (string, error) {
	var resp translateResponse
	if err := c.postJSON("/api/translate", map[string]string{
		"file_id":  fileID,
		"settings": settings,
	}, &resp); err != nil {
		return "", err
	}
	return resp.TaskID, nil
}

// waitForCompletion polls the task and renders its progress until it reaches
// a terminal state.
func (c *client) waitForCompletion(taskID string) error {
	bar := progressbar.NewOptions(100,
		progressbar.OptionSetDescription("translating"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	for {
		var resp taskResponse
		if err := c.getJSON("/api/translate/status/"+taskID, &resp); err != nil {
			return err
		}

		_ = bar.Set(resp.Task.Progress)
		switch resp.Task.Status {
		case "completed":
			_ = bar.Finish()
			fmt.Println(resp.Task.Message)
			return nil
		case "failed":
			_ = bar.Close()
			return fmt.Errorf("translation failed: %s", resp.Task.Message)
		}

		time.Sleep(pollInterval)
	}
}

func (c *client) download(taskID, fileType, outputDir string) (string, error) {
	req, err := http.NewRequest(http.MethodGet,
		c.baseURL+"/api/translate/download/"+taskID+"?file_type="+fileType, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", apiError(resp)
	}

	path := filepath.Join(outputDir, taskID+"-"+fileType+".pdf")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	return path, f.Close()
}

func (c *client) getJSON(path string, out any) error {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *client) postJSON(path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *client) do(req *http.Request, out any) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return apiError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// apiError extracts the server's error message from a failed response.
func apiError(resp *http.Response) error {
	var apiErr errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
		return fmt.Errorf("%s (HTTP %d)", apiErr.Error, resp.StatusCode)
	}
	return fmt.Errorf("request failed with HTTP %d", resp.StatusCode)
}
