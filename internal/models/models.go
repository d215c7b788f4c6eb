// Package models defines the data structures used across the application.
// Report, evidence and user types map to the PostgreSQL schema; UPIRecord
// keeps the camelCase wire format the console already speaks.
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecordStatus is the operator-assigned risk verdict for a payment identity
type RecordStatus string

const (
	StatusSafe RecordStatus = "Safe"
	StatusRisk RecordStatus = "Risk"
)

// UPIRecord is a scored payment identity.
// Score and Status are independent; neither is derived from the other.
type UPIRecord struct {
	ID        string       `json:"id" yaml:"id"`
	Name      string       `json:"name" yaml:"name" validate:"required"`
	UPIID     string       `json:"upiId" yaml:"upiId" validate:"required"`
	Score     int          `json:"score" yaml:"score" validate:"gte=0,lte=100"`
	Status    RecordStatus `json:"status" yaml:"status" validate:"required,oneof=Safe Risk"`
	CreatedAt *time.Time   `json:"createdAt,omitempty" yaml:"-"`
	UpdatedAt *time.Time   `json:"updatedAt,omitempty" yaml:"-"`
}

// UPIRecordPatch is a partial update; nil fields are left untouched
type UPIRecordPatch struct {
	Name   *string       `json:"name,omitempty"`
	UPIID  *string       `json:"upiId,omitempty"`
	Score  *int          `json:"score,omitempty" validate:"omitempty,gte=0,lte=100"`
	Status *RecordStatus `json:"status,omitempty" validate:"omitempty,oneof=Safe Risk"`
}

// Apply merges the patch into a copy of r
func (p UPIRecordPatch) Apply(r UPIRecord) UPIRecord {
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.UPIID != nil {
		r.UPIID = *p.UPIID
	}
	if p.Score != nil {
		r.Score = *p.Score
	}
	if p.Status != nil {
		r.Status = *p.Status
	}
	return r
}

// IsEmpty reports whether the patch changes nothing
func (p UPIRecordPatch) IsEmpty() bool {
	return p.Name == nil && p.UPIID == nil && p.Score == nil && p.Status == nil
}

// RecordStats mirrors the dashboard summary cards
type RecordStats struct {
	Total        int `json:"total"`
	Safe         int `json:"safe"`
	Risk         int `json:"risk"`
	AverageScore int `json:"averageScore"`
}

// APIResponse is the envelope every record endpoint answers with
type APIResponse[T any] struct {
	Data    T      `json:"data"`
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ReportCategory classifies what happened to the reporter
type ReportCategory string

const (
	CategoryFraud                   ReportCategory = "fraud"
	CategoryScam                    ReportCategory = "scam"
	CategoryUnauthorizedTransaction ReportCategory = "unauthorized_transaction"
	CategoryFakeMerchant            ReportCategory = "fake_merchant"
	CategoryIdentityTheft           ReportCategory = "identity_theft"
	CategoryOther                   ReportCategory = "other"
)

// NotifiesPolice reports whether a submitted report in this category
// triggers a police contact notification
func (c ReportCategory) NotifiesPolice() bool {
	switch c {
	case CategoryFraud, CategoryScam, CategoryUnauthorizedTransaction:
		return true
	}
	return false
}

// UrgencyLevel is the reporter's own priority estimate
type UrgencyLevel string

const (
	UrgencyLow      UrgencyLevel = "low"
	UrgencyMedium   UrgencyLevel = "medium"
	UrgencyHigh     UrgencyLevel = "high"
	UrgencyCritical UrgencyLevel = "critical"
)

// ReportStatus is the lifecycle state of a report.
// This system only moves draft -> submitted; later states are set out-of-band.
type ReportStatus string

const (
	ReportDraft       ReportStatus = "draft"
	ReportSubmitted   ReportStatus = "submitted"
	ReportUnderReview ReportStatus = "under_review"
	ReportResolved    ReportStatus = "resolved"
	ReportClosed      ReportStatus = "closed"
)

// Report is a user-filed fraud report
type Report struct {
	ID                  uuid.UUID       `json:"id" db:"id"`
	UserID              uuid.UUID       `json:"user_id" db:"user_id"`
	ReportedUPIID       string          `json:"reported_upi_id" db:"reported_upi_id"`
	ReportedFullName    string          `json:"reported_full_name" db:"reported_full_name"`
	ReportedPhoneNumber string          `json:"reported_phone_number" db:"reported_phone_number"`
	ReportedAddress     string          `json:"reported_address" db:"reported_address"`
	AmountInvolved      decimal.Decimal `json:"amount_involved" db:"amount_involved"`
	TransactionID       string          `json:"transaction_id" db:"transaction_id"`
	TransactionDate     string          `json:"transaction_date" db:"transaction_date"`
	Category            ReportCategory  `json:"report_category" db:"report_category"`
	Urgency             UrgencyLevel    `json:"urgency_level" db:"urgency_level"`
	Description         string          `json:"detailed_description" db:"detailed_description"`
	Status              ReportStatus    `json:"report_status" db:"report_status"`
	PoliceNotified      bool            `json:"police_notified" db:"police_notified"`
	NotificationSentAt  *time.Time      `json:"notification_sent_at,omitempty" db:"notification_sent_at"`
	CreatedAt           time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at" db:"updated_at"`
	SubmittedAt         *time.Time      `json:"submitted_at,omitempty" db:"submitted_at"`
}

// ReportInput is the request body for filing a report
type ReportInput struct {
	ReportedUPIID       string          `json:"reported_upi_id" validate:"max=255"`
	ReportedFullName    string          `json:"reported_full_name" validate:"max=255"`
	ReportedPhoneNumber string          `json:"reported_phone_number" validate:"max=32"`
	ReportedAddress     string          `json:"reported_address"`
	AmountInvolved      decimal.Decimal `json:"amount_involved"`
	TransactionID       string          `json:"transaction_id" validate:"max=255"`
	TransactionDate     string          `json:"transaction_date" validate:"omitempty,datetime=2006-01-02"`
	Category            ReportCategory  `json:"report_category" validate:"omitempty,oneof=fraud scam unauthorized_transaction fake_merchant identity_theft other"`
	Urgency             UrgencyLevel    `json:"urgency_level" validate:"omitempty,oneof=low medium high critical"`
	Description         string          `json:"detailed_description"`
	Status              ReportStatus    `json:"report_status" validate:"omitempty,oneof=draft submitted"`
}

// ReportPatch is a partial report update. Status is changed only via submit.
type ReportPatch struct {
	ReportedUPIID       *string          `json:"reported_upi_id,omitempty" validate:"omitempty,max=255"`
	ReportedFullName    *string          `json:"reported_full_name,omitempty" validate:"omitempty,max=255"`
	ReportedPhoneNumber *string          `json:"reported_phone_number,omitempty" validate:"omitempty,max=32"`
	ReportedAddress     *string          `json:"reported_address,omitempty"`
	AmountInvolved      *decimal.Decimal `json:"amount_involved,omitempty"`
	TransactionID       *string          `json:"transaction_id,omitempty" validate:"omitempty,max=255"`
	TransactionDate     *string          `json:"transaction_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Category            *ReportCategory  `json:"report_category,omitempty" validate:"omitempty,oneof=fraud scam unauthorized_transaction fake_merchant identity_theft other"`
	Urgency             *UrgencyLevel    `json:"urgency_level,omitempty" validate:"omitempty,oneof=low medium high critical"`
	Description         *string          `json:"detailed_description,omitempty"`
}

// Apply merges the patch into a copy of r
func (p ReportPatch) Apply(r Report) Report {
	if p.ReportedUPIID != nil {
		r.ReportedUPIID = *p.ReportedUPIID
	}
	if p.ReportedFullName != nil {
		r.ReportedFullName = *p.ReportedFullName
	}
	if p.ReportedPhoneNumber != nil {
		r.ReportedPhoneNumber = *p.ReportedPhoneNumber
	}
	if p.ReportedAddress != nil {
		r.ReportedAddress = *p.ReportedAddress
	}
	if p.AmountInvolved != nil {
		r.AmountInvolved = *p.AmountInvolved
	}
	if p.TransactionID != nil {
		r.TransactionID = *p.TransactionID
	}
	if p.TransactionDate != nil {
		r.TransactionDate = *p.TransactionDate
	}
	if p.Category != nil {
		r.Category = *p.Category
	}
	if p.Urgency != nil {
		r.Urgency = *p.Urgency
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	return r
}

// EvidenceFile is the metadata row for one uploaded attachment
type EvidenceFile struct {
	ID          uuid.UUID `json:"id" db:"id"`
	ReportID    uuid.UUID `json:"report_id" db:"report_id"`
	FileName    string    `json:"file_name" db:"file_name"`
	FileSize    int64     `json:"file_size" db:"file_size"`
	FileType    string    `json:"file_type" db:"file_type"`
	FileURL     string    `json:"file_url" db:"file_url"`
	StoragePath string    `json:"storage_path" db:"storage_path"`
	Checksum    string    `json:"checksum" db:"checksum"`
	UploadedAt  time.Time `json:"uploaded_at" db:"uploaded_at"`
}

// ReportActivity is one entry in a report's timeline
type ReportActivity struct {
	ID          uuid.UUID `json:"id" db:"id"`
	ReportID    uuid.UUID `json:"report_id" db:"report_id"`
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	Type        string    `json:"activity_type" db:"activity_type"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Activity types written to the report timeline
const (
	ActivityCreated          = "created"
	ActivityUpdated          = "updated"
	ActivitySubmitted        = "submitted"
	ActivityEvidenceUploaded = "evidence_uploaded"
	ActivityNotified         = "police_notified"
)

// ReportSummary counts a user's reports for the dashboard
type ReportSummary struct {
	Total      int                    `json:"total"`
	ByCategory []CategoryDistribution `json:"by_category"`
	ByStatus   []StatusDistribution   `json:"by_status"`
}

// CategoryDistribution for pie/bar charts
type CategoryDistribution struct {
	Category ReportCategory `json:"category"`
	Count    int            `json:"count"`
}

// StatusDistribution counts reports per lifecycle state
type StatusDistribution struct {
	Status ReportStatus `json:"status"`
	Count  int          `json:"count"`
}

// NotificationResult is what the police notifier reports back
type NotificationResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// User is an operator account
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	FullName     string    `json:"full_name" db:"full_name"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// SignUpRequest is the request body for creating an account
type SignUpRequest struct {
	FullName        string `json:"full_name" validate:"required,max=255"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

// LoginRequest is the request body for starting a session
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Session is returned on successful sign-up or login
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

// HealthStatus represents the server health check response
type HealthStatus struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Uptime   string `json:"uptime,omitempty"`
	Database string `json:"database,omitempty"`
	Cache    string `json:"cache,omitempty"`
}

// ProofStep is one sibling hash on the path from a leaf to the root
type ProofStep struct {
	Hash     string `json:"hash" validate:"required,hexadecimal,len=64"`
	Position string `json:"position" validate:"oneof=left right"`
}

// MerkleProof proves one leaf is included under Root
type MerkleProof struct {
	LeafHash string      `json:"leaf_hash"`
	Root     string      `json:"root"`
	Index    int         `json:"index"`
	Proof    []ProofStep `json:"proof"`
	Verified bool        `json:"verified"`
}

// EvidenceManifest is a Merkle digest over a report's evidence checksums
type EvidenceManifest struct {
	ReportID  uuid.UUID       `json:"report_id"`
	Root      string          `json:"root"`
	LeafCount int             `json:"leaf_count"`
	Files     []ManifestEntry `json:"files"`
}

// ManifestEntry ties one evidence file to its inclusion proof
type ManifestEntry struct {
	FileID   uuid.UUID   `json:"file_id"`
	FileName string      `json:"file_name"`
	Checksum string      `json:"checksum"`
	Proof    []ProofStep `json:"proof"`
}

// VerifyProofRequest is the request body for checking an inclusion proof
type VerifyProofRequest struct {
	LeafHash string      `json:"leaf_hash" validate:"required,hexadecimal,len=64"`
	Root     string      `json:"root" validate:"required,hexadecimal,len=64"`
	Proof    []ProofStep `json:"proof" validate:"dive"`
}
