package services

import (
	"context"
	"fmt"

	"github.com/upiguard/upiguard/internal/models"
	"go.uber.org/zap"
)

const (
	// PoliceContact is the emergency number passed along with every notification
	PoliceContact = "+91-100"
	// UnknownPhone stands in when the report has no phone number
	UnknownPhone = "N/A"
)

// PoliceNotifier tells the reporter how to reach the police about a
// submitted fraud report
type PoliceNotifier interface {
	Notify(ctx context.Context, phoneNumber, policeContact string) (*models.NotificationResult, error)
}

// LogNotifier only logs the message it would send. No SMS is dispatched.
type LogNotifier struct {
	logger *zap.SugaredLogger
}

// NewLogNotifier creates the logging notifier stub
func NewLogNotifier(logger *zap.SugaredLogger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, phoneNumber, policeContact string) (*models.NotificationResult, error) {
	n.logger.Infow("SMS notification would be sent",
		"phone", phoneNumber,
		"police_contact", policeContact,
		"body", "Your fraud report has been processed. Please contact the police station within 24 hours for further assistance.",
	)
	return &models.NotificationResult{
		Success: true,
		Message: fmt.Sprintf("Police contact information will be sent to %s within 24 hours.", phoneNumber),
	}, nil
}
