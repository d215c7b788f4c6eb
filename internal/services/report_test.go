package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/upiguard/upiguard/internal/evidence"
	"github.com/upiguard/upiguard/internal/models"
	"github.com/upiguard/upiguard/internal/repository"
	"github.com/upiguard/upiguard/internal/storage"
	"go.uber.org/zap"
)

type notifyCall struct {
	phone, contact string
}

// countingNotifier records every Notify call
type countingNotifier struct {
	calls []notifyCall
	err   error
}

func (n *countingNotifier) Notify(_ context.Context, phone, contact string) (*models.NotificationResult, error) {
	n.calls = append(n.calls, notifyCall{phone: phone, contact: contact})
	if n.err != nil {
		return nil, n.err
	}
	return &models.NotificationResult{Success: true, Message: "sent to " + phone}, nil
}

type reportFixture struct {
	svc      *ReportService
	repo     *repository.MemoryReports
	bucket   *storage.MemoryBucket
	activity *repository.MemoryActivity
	notifier *countingNotifier
	user     uuid.UUID
}

func newReportFixture() *reportFixture {
	logger := zap.NewNop().Sugar()
	f := &reportFixture{
		repo:     repository.NewMemoryReports(),
		bucket:   storage.NewMemoryBucket("evidence-files", "https://files.test"),
		activity: repository.NewMemoryActivity(),
		notifier: &countingNotifier{},
		user:     uuid.New(),
	}
	f.svc = NewReportService(f.repo, f.bucket, NewActivityLogService(f.activity, logger), f.notifier, logger)
	return f
}

func completeInput(category models.ReportCategory, phone string) models.ReportInput {
	return models.ReportInput{
		ReportedUPIID:       "crook@upi",
		ReportedFullName:    "A Crook",
		ReportedPhoneNumber: phone,
		AmountInvolved:      decimal.RequireFromString("2500.50"),
		TransactionDate:     "2024-03-01",
		Category:            category,
		Urgency:             models.UrgencyHigh,
		Description:         "Asked for a refund code and drained the account",
	}
}

func TestCreateReportRequiresSession(t *testing.T) {
	f := newReportFixture()
	if _, err := f.svc.CreateReport(context.Background(), uuid.Nil, completeInput(models.CategoryFraud, "")); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("err = %v, want ErrUnauthenticated", err)
	}
}

func TestCreateReportDefaultsToDraft(t *testing.T) {
	f := newReportFixture()
	report, err := f.svc.CreateReport(context.Background(), f.user, models.ReportInput{ReportedUPIID: "x@upi"})
	if err != nil {
		t.Fatalf("CreateReport: %v", err)
	}
	if report.Status != models.ReportDraft || report.ID == uuid.Nil || report.UserID != f.user || report.CreatedAt.IsZero() {
		t.Fatalf("report = %+v", report)
	}
	if report.SubmittedAt != nil || len(f.notifier.calls) != 0 {
		t.Fatal("draft must not be submitted or notified")
	}
}

func TestSubmitNotification(t *testing.T) {
	tests := []struct {
		name          string
		category      models.ReportCategory
		phone         string
		expectedCalls int
		expectedPhone string
	}{
		{name: "fraud with phone", category: models.CategoryFraud, phone: "+91-9876543210", expectedCalls: 1, expectedPhone: "+91-9876543210"},
		{name: "fraud without phone", category: models.CategoryFraud, expectedCalls: 1, expectedPhone: UnknownPhone},
		{name: "scam", category: models.CategoryScam, phone: "555", expectedCalls: 1, expectedPhone: "555"},
		{name: "unauthorized transaction", category: models.CategoryUnauthorizedTransaction, expectedCalls: 1, expectedPhone: UnknownPhone},
		{name: "fake merchant", category: models.CategoryFakeMerchant, phone: "555"},
		{name: "other", category: models.CategoryOther},
	}

	for _, tt := range tests {
		for _, viaSubmit := range []bool{false, true} {
			name := tt.name + " created submitted"
			if viaSubmit {
				name = tt.name + " submitted later"
			}
			t.Run(name, func(t *testing.T) {
				f := newReportFixture()
				ctx := context.Background()
				in := completeInput(tt.category, tt.phone)

				var report *models.Report
				var err error
				if viaSubmit {
					draft, cerr := f.svc.CreateReport(ctx, f.user, in)
					if cerr != nil {
						t.Fatalf("CreateReport: %v", cerr)
					}
					report, err = f.svc.SubmitReport(ctx, f.user, draft.ID)
				} else {
					in.Status = models.ReportSubmitted
					report, err = f.svc.CreateReport(ctx, f.user, in)
				}
				if err != nil {
					t.Fatalf("submit: %v", err)
				}

				if report.Status != models.ReportSubmitted || report.SubmittedAt == nil {
					t.Fatalf("report = %+v", report)
				}
				if len(f.notifier.calls) != tt.expectedCalls {
					t.Fatalf("notify calls = %d, want %d", len(f.notifier.calls), tt.expectedCalls)
				}
				if tt.expectedCalls == 0 {
					if report.PoliceNotified {
						t.Fatal("police_notified set without a notification")
					}
					return
				}
				call := f.notifier.calls[0]
				if call.phone != tt.expectedPhone || call.contact != PoliceContact {
					t.Fatalf("call = %+v", call)
				}

				stored, _ := f.repo.GetReport(ctx, f.user, report.ID)
				if !stored.PoliceNotified || stored.NotificationSentAt == nil {
					t.Fatalf("stored report not flagged: %+v", stored)
				}
			})
		}
	}
}

func TestSubmitNotifierFailureKeepsSubmission(t *testing.T) {
	f := newReportFixture()
	f.notifier.err = errors.New("sms gateway down")
	in := completeInput(models.CategoryFraud, "1")
	in.Status = models.ReportSubmitted

	report, err := f.svc.CreateReport(context.Background(), f.user, in)
	if err != nil {
		t.Fatalf("CreateReport: %v", err)
	}
	if report.Status != models.ReportSubmitted || report.PoliceNotified {
		t.Fatalf("report = %+v", report)
	}
}

func TestSubmitRequiresFields(t *testing.T) {
	f := newReportFixture()
	in := completeInput(models.CategoryFraud, "")
	in.AmountInvolved = decimal.Zero
	in.Status = models.ReportSubmitted

	if _, err := f.svc.CreateReport(context.Background(), f.user, in); !errors.Is(err, ErrMissingFields) {
		t.Fatalf("err = %v, want ErrMissingFields", err)
	}
	if len(f.notifier.calls) != 0 {
		t.Fatal("notified for a rejected report")
	}
}

func TestSubmitOnlyFromDraft(t *testing.T) {
	f := newReportFixture()
	ctx := context.Background()
	draft, _ := f.svc.CreateReport(ctx, f.user, completeInput(models.CategoryFraud, ""))

	if _, err := f.svc.SubmitReport(ctx, f.user, draft.ID); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if _, err := f.svc.SubmitReport(ctx, f.user, draft.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("second submit err = %v, want ErrInvalidTransition", err)
	}
	if len(f.notifier.calls) != 1 {
		t.Fatalf("notify calls = %d, want 1", len(f.notifier.calls))
	}
}

func TestReportsScopedToUser(t *testing.T) {
	f := newReportFixture()
	ctx := context.Background()
	report, _ := f.svc.CreateReport(ctx, f.user, completeInput(models.CategoryOther, ""))
	stranger := uuid.New()

	if _, err := f.svc.GetReport(ctx, stranger, report.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetReport err = %v", err)
	}
	if _, err := f.svc.SubmitReport(ctx, stranger, report.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("SubmitReport err = %v", err)
	}
	if err := f.svc.DeleteReport(ctx, stranger, report.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("DeleteReport err = %v", err)
	}
	list, _ := f.svc.GetUserReports(ctx, stranger)
	if len(list) != 0 {
		t.Fatalf("stranger sees %d reports", len(list))
	}
}

func TestUpdateReport(t *testing.T) {
	f := newReportFixture()
	ctx := context.Background()
	report, _ := f.svc.CreateReport(ctx, f.user, models.ReportInput{ReportedUPIID: "a@upi"})

	desc := "more detail"
	urgency := models.UrgencyCritical
	updated, err := f.svc.UpdateReport(ctx, f.user, report.ID, models.ReportPatch{Description: &desc, Urgency: &urgency})
	if err != nil {
		t.Fatalf("UpdateReport: %v", err)
	}
	if updated.Description != desc || updated.Urgency != urgency || updated.ReportedUPIID != "a@upi" {
		t.Fatalf("updated = %+v", updated)
	}

	timeline, _ := f.svc.GetActivity(ctx, f.user, report.ID, 0)
	if len(timeline) != 2 || timeline[0].Type != models.ActivityUpdated || timeline[1].Type != models.ActivityCreated {
		t.Fatalf("timeline = %+v", timeline)
	}
}

func TestUploadEvidence(t *testing.T) {
	f := newReportFixture()
	ctx := context.Background()
	report, _ := f.svc.CreateReport(ctx, f.user, models.ReportInput{})
	content := []byte("%PDF-1.4 statement")

	file, err := f.svc.UploadEvidence(ctx, f.user, report.ID, EvidenceUpload{
		FileName:    "Statement.PDF",
		ContentType: "application/pdf",
		Size:        int64(len(content)),
		Body:        bytes.NewReader(content),
	})
	if err != nil {
		t.Fatalf("UploadEvidence: %v", err)
	}

	paths := f.bucket.Paths()
	if len(paths) != 1 {
		t.Fatalf("objects = %v, want exactly one", paths)
	}
	wantPrefix := "evidence/" + report.ID.String() + "_"
	if !strings.HasPrefix(paths[0], wantPrefix) || !strings.HasSuffix(paths[0], ".pdf") {
		t.Fatalf("path = %q", paths[0])
	}
	token := strings.TrimSuffix(strings.TrimPrefix(paths[0], wantPrefix), ".pdf")
	if _, err := uuid.Parse(token); err != nil {
		t.Fatalf("path token %q is not a uuid", token)
	}

	rows, _ := f.svc.GetEvidenceFiles(ctx, f.user, report.ID)
	if len(rows) != 1 {
		t.Fatalf("evidence rows = %d, want 1", len(rows))
	}
	sum := sha256.Sum256(content)
	if file.Checksum != hex.EncodeToString(sum[:]) || file.StoragePath != paths[0] || file.FileURL != f.bucket.PublicURL(paths[0]) {
		t.Fatalf("file = %+v", file)
	}
}

func TestUploadEvidenceRejectsBeforeStorage(t *testing.T) {
	tests := []struct {
		name   string
		upload EvidenceUpload
	}{
		{
			name:   "unsupported type",
			upload: EvidenceUpload{FileName: "notes.txt", ContentType: "text/plain", Size: 4, Body: strings.NewReader("nope")},
		},
		{
			name:   "declared too large",
			upload: EvidenceUpload{FileName: "big.png", ContentType: "image/png", Size: evidence.MaxFileSize + 1, Body: strings.NewReader("x")},
		},
		{
			name:   "understated size",
			upload: EvidenceUpload{FileName: "big.png", ContentType: "image/png", Size: 10, Body: bytes.NewReader(make([]byte, evidence.MaxFileSize+1))},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newReportFixture()
			report, _ := f.svc.CreateReport(context.Background(), f.user, models.ReportInput{})

			_, err := f.svc.UploadEvidence(context.Background(), f.user, report.ID, tt.upload)
			if !errors.Is(err, evidence.ErrInvalid) {
				t.Fatalf("err = %v, want evidence.ErrInvalid", err)
			}
			if f.bucket.UploadCalls() != 0 {
				t.Fatalf("storage called %d times", f.bucket.UploadCalls())
			}
		})
	}
}

func TestUploadEvidenceCompensatesFailedInsert(t *testing.T) {
	f := newReportFixture()
	ctx := context.Background()
	report, _ := f.svc.CreateReport(ctx, f.user, models.ReportInput{})
	f.repo.WithEvidenceError(errors.New("insert failed"))

	_, err := f.svc.UploadEvidence(ctx, f.user, report.ID, EvidenceUpload{
		FileName: "proof.png", ContentType: "image/png", Size: 3, Body: strings.NewReader("png"),
	})
	if err == nil {
		t.Fatal("expected the insert failure to surface")
	}
	if f.bucket.UploadCalls() != 1 || f.bucket.RemoveCalls() != 1 {
		t.Fatalf("uploads = %d removes = %d", f.bucket.UploadCalls(), f.bucket.RemoveCalls())
	}
	if len(f.bucket.Paths()) != 0 {
		t.Fatalf("orphaned objects: %v", f.bucket.Paths())
	}
}

func TestDeleteReportRemovesObjects(t *testing.T) {
	f := newReportFixture()
	ctx := context.Background()
	report, _ := f.svc.CreateReport(ctx, f.user, models.ReportInput{})
	for _, name := range []string{"a.png", "b.jpg"} {
		ct := "image/png"
		if strings.HasSuffix(name, ".jpg") {
			ct = "image/jpeg"
		}
		if _, err := f.svc.UploadEvidence(ctx, f.user, report.ID, EvidenceUpload{FileName: name, ContentType: ct, Size: 1, Body: strings.NewReader("x")}); err != nil {
			t.Fatalf("upload %s: %v", name, err)
		}
	}

	if err := f.svc.DeleteReport(ctx, f.user, report.ID); err != nil {
		t.Fatalf("DeleteReport: %v", err)
	}
	if len(f.bucket.Paths()) != 0 {
		t.Fatalf("objects left: %v", f.bucket.Paths())
	}
	if _, err := f.svc.GetReport(ctx, f.user, report.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("report still readable: %v", err)
	}
}

func TestSummary(t *testing.T) {
	f := newReportFixture()
	ctx := context.Background()
	f.svc.CreateReport(ctx, f.user, models.ReportInput{Category: models.CategoryFraud})
	f.svc.CreateReport(ctx, f.user, models.ReportInput{Category: models.CategoryFraud})
	f.svc.CreateReport(ctx, f.user, models.ReportInput{Category: models.CategoryScam})

	summary, err := f.svc.Summary(ctx, f.user)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary.Total != 3 || summary.ByCategory[0].Category != models.CategoryFraud || summary.ByCategory[0].Count != 2 {
		t.Fatalf("summary = %+v", summary)
	}
	if len(summary.ByStatus) != 1 || summary.ByStatus[0].Status != models.ReportDraft {
		t.Fatalf("by status = %+v", summary.ByStatus)
	}
}
