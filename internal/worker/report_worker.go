package worker

// Builds the Z-report PDF of a closed session and, when a recipient is
// configured, queues it for email.

import (
	"context"
	"encoding/json"
	"fmt"

	"mypostelma/internal/dto"
	"mypostelma/internal/infra"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ClosureReportPayload is the job envelope sent to QueueClosureReport.
type ClosureReportPayload struct {
	SessionID string `json:"session_id"`
}

// ReportSource is implemented by service.SessionService.
type ReportSource interface {
	Report(ctx context.Context, sessionID uuid.UUID) (*dto.SessionReportResponse, error)
}

// EmailQueue is implemented by *Dispatcher.
type EmailQueue interface {
	EnqueueEmail(ctx context.Context, payload EmailJobPayload) error
}

type ReportWorker struct {
	source      ReportSource
	emails      EmailQueue
	storagePath string
	emailTo     string
	maxAttempts int
}

// NewReportWorker creates a ReportWorker. emails may be nil and emailTo
// empty; the PDF is then only written to storagePath.
func NewReportWorker(source ReportSource, emails EmailQueue, storagePath, emailTo string) *ReportWorker {
	return &ReportWorker{
		source:      source,
		emails:      emails,
		storagePath: storagePath,
		emailTo:     emailTo,
		maxAttempts: 3,
	}
}

func (w *ReportWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload ClosureReportPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("report_worker: invalid payload: %w", err)
	}
	sessionID, err := uuid.Parse(payload.SessionID)
	if err != nil {
		return fmt.Errorf("report_worker: invalid session_id %q: %w", payload.SessionID, err)
	}

	var report *dto.SessionReportResponse
	err = withRetry(ctx, w.maxAttempts, func(int) error {
		var err error
		report, err = w.source.Report(ctx, sessionID)
		return err
	})
	if err != nil {
		return fmt.Errorf("report_worker: load report: %w", err)
	}
	if report.Session.Status != "closed" {
		return fmt.Errorf("report_worker: session %s is not closed", sessionID)
	}

	path, err := infra.GenerateClosureReportPDF(report, w.storagePath)
	if err != nil {
		return err
	}
	log.Info().Str("session_id", sessionID.String()).Str("path", path).Msg("report_worker: Z-report generated")

	if w.emails == nil || w.emailTo == "" {
		return nil
	}
	flag := "none"
	if report.Session.VarianceFlag != nil {
		flag = *report.Session.VarianceFlag
	}
	label := report.Session.LocationName
	if label == "" {
		label = report.Session.LocationID
	}
	return w.emails.EnqueueEmail(ctx, EmailJobPayload{
		ToEmail: w.emailTo,
		Subject: fmt.Sprintf("Rapport Z %s (%s)", label, report.Session.OpenedAt.Format("02/01/2006")),
		Body: fmt.Sprintf("Session %s clôturée.\nSolde théorique : %s %s\nÉcart : %s (%s)\n",
			report.Session.ID,
			report.Statistics.TheoreticalBalance, report.Statistics.Currency,
			varianceString(report), flag),
		AttachmentPath: path,
	})
}

func varianceString(r *dto.SessionReportResponse) string {
	if r.Session.Variance == nil {
		return "-"
	}
	return r.Session.Variance.String()
}
