package main

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/upiguard/upiguard/internal/auth"
	"github.com/upiguard/upiguard/internal/config"
	"github.com/upiguard/upiguard/internal/handlers"
	"github.com/upiguard/upiguard/internal/models"
	"github.com/upiguard/upiguard/internal/records"
	"github.com/upiguard/upiguard/internal/repository"
	"github.com/upiguard/upiguard/internal/services"
	"github.com/upiguard/upiguard/internal/storage"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := zap.NewNop()
	sugar := logger.Sugar()

	cfg := &config.Config{
		AllowedOrigins: []string{"http://localhost:5173"},
		RateLimitRPM:   1000,
	}
	issuer := auth.NewIssuer("test-secret", time.Hour)

	recordSvc := services.NewRecordService(repository.NewMemoryRecords(), nil, sugar)
	if _, err := recordSvc.SeedIfEmpty(context.Background(), records.FallbackDataset()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	activitySvc := services.NewActivityLogService(repository.NewMemoryActivity(), sugar)
	bucket := storage.NewMemoryBucket("evidence-files", "http://files.test")
	reportSvc := services.NewReportService(repository.NewMemoryReports(), bucket, activitySvc, services.NewLogNotifier(sugar), sugar)
	authSvc := services.NewAuthService(repository.NewMemoryUsers(), issuer, sugar)

	srv := httptest.NewServer(newRouter(routeDeps{
		cfg:       cfg,
		logger:    logger,
		issuer:    issuer,
		health:    handlers.NewHealthHandler(nil, nil, sugar),
		records:   handlers.NewRecordHandler(recordSvc, sugar),
		reports:   handlers.NewReportHandler(reportSvc, sugar),
		activity:  handlers.NewActivityHandler(reportSvc, sugar),
		integrity: handlers.NewIntegrityHandler(reportSvc, sugar),
		auth:      handlers.NewAuthHandler(authSvc, sugar),
	}))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/v1/health/ready", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	status := decodeBody[models.HealthStatus](t, resp)
	if status.Database != "in-memory" || status.Cache != "disabled" {
		t.Errorf("ready = %+v", status)
	}
}

// signUp creates an account and returns its session token
func signUp(t *testing.T, srv *httptest.Server, email string) string {
	t.Helper()
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/signup", "", models.SignUpRequest{
		FullName: "Operator", Email: email, Password: "password123", ConfirmPassword: "password123",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup status = %d", resp.StatusCode)
	}
	return decodeBody[models.Session](t, resp).Token
}

func TestRecordWritesRequireSession(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL + "/api/v1/upi-records"

	resp := doJSON(t, http.MethodPost, base, "", models.UPIRecord{Name: "Anon", UPIID: "anon@ybl", Score: 50, Status: models.StatusSafe})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("anonymous create: got %d", resp.StatusCode)
	}
	resp = doJSON(t, http.MethodPut, base+"/1", "", map[string]any{"score": 10})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("anonymous update: got %d", resp.StatusCode)
	}
	resp = doJSON(t, http.MethodDelete, base+"/1", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("anonymous delete: got %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, base, "", nil)
	list := decodeBody[models.APIResponse[[]models.UPIRecord]](t, resp)
	if len(list.Data) != 20 {
		t.Errorf("list after rejected writes = %d records, want 20", len(list.Data))
	}
}

func TestRecordEndpoints(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL + "/api/v1/upi-records"
	token := signUp(t, srv, "ops@example.com")

	resp := doJSON(t, http.MethodGet, base, "", nil)
	list := decodeBody[models.APIResponse[[]models.UPIRecord]](t, resp)
	if !list.Success || len(list.Data) != 20 {
		t.Fatalf("list: success=%v len=%d", list.Success, len(list.Data))
	}

	resp = doJSON(t, http.MethodGet, base+"?status=risk&search=kapoor", "", nil)
	filtered := decodeBody[models.APIResponse[[]models.UPIRecord]](t, resp)
	if len(filtered.Data) != 1 {
		t.Errorf("filtered len = %d, want 1", len(filtered.Data))
	}

	// the API and the console filter agree, whitespace included
	resp = doJSON(t, http.MethodGet, base+"?search=%20", "", nil)
	spaced := decodeBody[models.APIResponse[[]models.UPIRecord]](t, resp)
	if want := records.Filter(list.Data, " ", records.FilterAll); len(spaced.Data) != len(want) {
		t.Errorf("search for a space = %d records, console filter = %d", len(spaced.Data), len(want))
	}

	resp = doJSON(t, http.MethodGet, base+"?status=unknown", "", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad status filter: got %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPost, base, token, models.UPIRecord{Name: "New Merchant", UPIID: "new@ybl", Score: 70, Status: models.StatusSafe})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	created := decodeBody[models.APIResponse[models.UPIRecord]](t, resp)
	if created.Data.ID == "" {
		t.Fatal("created record has no id")
	}

	resp = doJSON(t, http.MethodPost, base, token, map[string]any{"name": "x", "upiId": "x@ybl", "score": 120, "status": "Safe"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid score: got %d", resp.StatusCode)
	}
	invalid := decodeBody[models.APIResponse[[]handlers.ValidationError]](t, resp)
	if invalid.Success || len(invalid.Data) == 0 || invalid.Data[0].Field != "score" {
		t.Errorf("validation envelope = %+v", invalid)
	}

	resp = doJSON(t, http.MethodPut, base+"/"+created.Data.ID, token, map[string]any{"status": "Risk"})
	updated := decodeBody[models.APIResponse[models.UPIRecord]](t, resp)
	if updated.Data.Status != models.StatusRisk || updated.Data.Name != "New Merchant" {
		t.Errorf("update = %+v", updated.Data)
	}

	resp = doJSON(t, http.MethodDelete, base+"/"+created.Data.ID, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("delete status = %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, base+"/"+created.Data.ID, "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get deleted: got %d", resp.StatusCode)
	}
	missing := decodeBody[models.APIResponse[*models.UPIRecord]](t, resp)
	if missing.Success || missing.Message != "UPI record not found" {
		t.Errorf("not found envelope = %+v", missing)
	}

	// the remote client used by the console speaks this API
	client := records.NewClient(srv.URL+"/api/v1", nil)
	recs, err := client.List(context.Background())
	if err != nil || len(recs) != 20 {
		t.Errorf("client list: len=%d err=%v", len(recs), err)
	}
}

func TestReportsRequireSession(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/v1/reports", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no token: got %d", resp.StatusCode)
	}
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/reports", "not-a-token", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad token: got %d", resp.StatusCode)
	}
}

func TestSignUpMismatch(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/signup", "", models.SignUpRequest{
		FullName: "Asha", Email: "asha@example.com", Password: "password123", ConfirmPassword: "password124",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decodeBody[map[string]any](t, resp)
	if body["error"] != "Passwords do not match." {
		t.Errorf("error = %v", body["error"])
	}
}

func TestReportFlow(t *testing.T) {
	srv := newTestServer(t)
	api := srv.URL + "/api/v1"

	resp := doJSON(t, http.MethodPost, api+"/auth/signup", "", models.SignUpRequest{
		FullName: "Asha Rao", Email: "asha@example.com", Password: "password123", ConfirmPassword: "password123",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup status = %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPost, api+"/auth/login", "", models.LoginRequest{Email: "ASHA@example.com", Password: "password123"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}
	session := decodeBody[models.Session](t, resp)

	resp = doJSON(t, http.MethodPost, api+"/reports", session.Token, map[string]any{
		"reported_upi_id":      "scam@ybl",
		"reported_full_name":   "Unknown Caller",
		"amount_involved":      "2500.50",
		"transaction_date":     "2026-10-01",
		"report_category":      "scam",
		"detailed_description": "Asked for a collect request refund",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create report status = %d", resp.StatusCode)
	}
	report := decodeBody[models.Report](t, resp)
	if report.Status != models.ReportDraft || report.Urgency != models.UrgencyMedium {
		t.Errorf("defaults = %s/%s", report.Status, report.Urgency)
	}
	reportURL := api + "/reports/" + report.ID.String()

	// upload one png
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="receipt.png"`)
	h.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	part.Write([]byte("\x89PNG fake image bytes"))
	mw.Close()

	req, _ := http.NewRequest(http.MethodPost, reportURL+"/evidence", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+session.Token)
	upResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	defer upResp.Body.Close()
	if upResp.StatusCode != http.StatusCreated {
		t.Fatalf("upload status = %d", upResp.StatusCode)
	}
	file := decodeBody[models.EvidenceFile](t, upResp)
	if file.Checksum == "" || file.FileType != "image/png" {
		t.Errorf("evidence = %+v", file)
	}

	resp = doJSON(t, http.MethodPost, reportURL+"/submit", session.Token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submit status = %d", resp.StatusCode)
	}
	submitted := decodeBody[models.Report](t, resp)
	if submitted.Status != models.ReportSubmitted || !submitted.PoliceNotified {
		t.Errorf("submitted = %s police=%v", submitted.Status, submitted.PoliceNotified)
	}

	resp = doJSON(t, http.MethodPost, reportURL+"/submit", session.Token, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("resubmit status = %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, reportURL+"/evidence/manifest", session.Token, nil)
	manifest := decodeBody[models.EvidenceManifest](t, resp)
	if manifest.LeafCount != 1 || manifest.Root != file.Checksum {
		t.Fatalf("manifest = %+v", manifest)
	}

	resp = doJSON(t, http.MethodPost, api+"/integrity/verify", "", models.VerifyProofRequest{
		LeafHash: manifest.Files[0].Checksum,
		Root:     manifest.Root,
		Proof:    manifest.Files[0].Proof,
	})
	verified := decodeBody[map[string]bool](t, resp)
	if !verified["verified"] {
		t.Error("manifest proof did not verify")
	}

	resp = doJSON(t, http.MethodGet, reportURL+"/activity", session.Token, nil)
	activity := decodeBody[[]models.ReportActivity](t, resp)
	if len(activity) < 3 {
		t.Errorf("activity entries = %d, want created, evidence and submitted", len(activity))
	}

	// another user cannot see the report
	resp = doJSON(t, http.MethodPost, api+"/auth/signup", "", models.SignUpRequest{
		FullName: "Other", Email: "other@example.com", Password: "password123", ConfirmPassword: "password123",
	})
	other := decodeBody[models.Session](t, resp)
	resp = doJSON(t, http.MethodGet, reportURL, other.Token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("foreign report status = %d", resp.StatusCode)
	}
}
