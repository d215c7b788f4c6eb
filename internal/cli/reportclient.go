package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/upiguard/upiguard/internal/evidence"
	"github.com/upiguard/upiguard/internal/models"
)

// ErrNotLoggedIn is returned by report calls made without a session token
var ErrNotLoggedIn = errors.New("not logged in: run `upiguard login` first")

// apiError is a non-2xx answer from the report or auth API
type apiError struct {
	StatusCode int
	Message    string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// reportClient talks to the session and report endpoints
type reportClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newReportClient(baseURL, token string, httpClient *http.Client) *reportClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &reportClient{baseURL: strings.TrimRight(baseURL, "/"), token: token, http: httpClient}
}

func (c *reportClient) Login(ctx context.Context, email, password string) (*models.Session, error) {
	var session models.Session
	err := c.doJSON(ctx, http.MethodPost, "/auth/login", models.LoginRequest{Email: email, Password: password}, &session, false)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *reportClient) SignUp(ctx context.Context, req models.SignUpRequest) (*models.Session, error) {
	var session models.Session
	if err := c.doJSON(ctx, http.MethodPost, "/auth/signup", req, &session, false); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *reportClient) Create(ctx context.Context, in models.ReportInput) (*models.Report, error) {
	var report models.Report
	if err := c.doJSON(ctx, http.MethodPost, "/reports", in, &report, true); err != nil {
		return nil, err
	}
	return &report, nil
}

func (c *reportClient) Submit(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	var report models.Report
	if err := c.doJSON(ctx, http.MethodPost, "/reports/"+id.String()+"/submit", nil, &report, true); err != nil {
		return nil, err
	}
	return &report, nil
}

func (c *reportClient) List(ctx context.Context) ([]models.Report, error) {
	var reports []models.Report
	if err := c.doJSON(ctx, http.MethodGet, "/reports", nil, &reports, true); err != nil {
		return nil, err
	}
	return reports, nil
}

func (c *reportClient) Get(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	var report models.Report
	if err := c.doJSON(ctx, http.MethodGet, "/reports/"+id.String(), nil, &report, true); err != nil {
		return nil, err
	}
	return &report, nil
}

func (c *reportClient) Delete(ctx context.Context, id uuid.UUID) error {
	return c.doJSON(ctx, http.MethodDelete, "/reports/"+id.String(), nil, nil, true)
}

func (c *reportClient) Evidence(ctx context.Context, id uuid.UUID) ([]models.EvidenceFile, error) {
	var files []models.EvidenceFile
	if err := c.doJSON(ctx, http.MethodGet, "/reports/"+id.String()+"/evidence", nil, &files, true); err != nil {
		return nil, err
	}
	return files, nil
}

func (c *reportClient) Activity(ctx context.Context, id uuid.UUID) ([]models.ReportActivity, error) {
	var logs []models.ReportActivity
	if err := c.doJSON(ctx, http.MethodGet, "/reports/"+id.String()+"/activity", nil, &logs, true); err != nil {
		return nil, err
	}
	return logs, nil
}

func (c *reportClient) Summary(ctx context.Context) (*models.ReportSummary, error) {
	var summary models.ReportSummary
	if err := c.doJSON(ctx, http.MethodGet, "/reports/summary", nil, &summary, true); err != nil {
		return nil, err
	}
	return &summary, nil
}

// Upload sends one local file as multipart field "file"
func (c *reportClient) Upload(ctx context.Context, id uuid.UUID, f localFile) (*models.EvidenceFile, error) {
	if c.token == "" {
		return nil, ErrNotLoggedIn
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Path, err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, f.Name))
	h.Set("Content-Type", f.ContentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/reports/"+id.String()+"/evidence", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.token)

	var saved models.EvidenceFile
	if err := c.send(req, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

func (c *reportClient) doJSON(ctx context.Context, method, path string, in, out interface{}, authed bool) error {
	if authed && c.token == "" {
		return ErrNotLoggedIn
	}

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return c.send(req, out)
}

func (c *reportClient) send(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &apiError{StatusCode: resp.StatusCode, Message: e.Error}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", req.URL.Path, err)
	}
	return nil
}

// localFile is an attachment picked from disk
type localFile struct {
	Path        string
	Name        string
	ContentType string
	Size        int64
}

// inspectFiles stats each path and guesses its MIME type: by extension
// first, falling back to content sniffing
func inspectFiles(paths []string) ([]localFile, error) {
	files := make([]localFile, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("evidence file: %w", err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("evidence file %s is a directory", p)
		}

		ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(p)))
		if ct == "" {
			ct, err = sniff(p)
			if err != nil {
				return nil, err
			}
		}
		files = append(files, localFile{Path: p, Name: filepath.Base(p), ContentType: ct, Size: info.Size()})
	}
	return files, nil
}

func sniff(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("evidence file: %w", err)
	}
	defer f.Close()
	head := make([]byte, 512)
	n, _ := io.ReadFull(f, head)
	return http.DetectContentType(head[:n]), nil
}

// partitionFiles keeps the files the server will accept
func partitionFiles(files []localFile) (valid, rejected []localFile) {
	return evidence.Partition(files, func(f localFile) evidence.File {
		return evidence.File{Name: f.Name, ContentType: f.ContentType, Size: f.Size}
	})
}
