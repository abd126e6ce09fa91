package worker

// Sends closure reports by email. Transient SMTP failures are retried with
// exponential backoff; a job that still fails goes to the DLQ.

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
)

// EmailJobPayload is the job envelope sent to QueueEmail.
type EmailJobPayload struct {
	ToEmail        string `json:"to_email"`
	Subject        string `json:"subject"`
	Body           string `json:"body"`
	AttachmentPath string `json:"attachment_path"`
}

// Sender is implemented by *infra.Mailer.
type Sender interface {
	SendWithAttachment(to, subject, body, attachmentPath string) error
}

// EmailWorker processes email jobs from QueueEmail.
type EmailWorker struct {
	sender      Sender
	maxAttempts int
}

// NewEmailWorker creates an EmailWorker using sender.
func NewEmailWorker(sender Sender) *EmailWorker {
	return &EmailWorker{sender: sender, maxAttempts: 3}
}

func (w *EmailWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload EmailJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("email_worker: invalid payload: %w", err)
	}
	if payload.ToEmail == "" {
		log.Warn().Msg("email_worker: empty to_email, skipping")
		return nil
	}

	err := withRetry(ctx, w.maxAttempts, func(attempt int) error {
		err := w.sender.SendWithAttachment(payload.ToEmail, payload.Subject, payload.Body, payload.AttachmentPath)
		if err != nil {
			log.Warn().Err(err).Int("attempt", attempt+1).Str("to", payload.ToEmail).Msg("email_worker: send failed")
		}
		return err
	})
	if err != nil {
		return err
	}
	log.Info().Str("to", payload.ToEmail).Msg("email_worker: report sent")
	return nil
}
