package worker

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"mypostelma/internal/dto"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	backoffBase = time.Millisecond
	os.Exit(m.Run())
}

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

// ── withRetry ────────────────────────────────────────────────────────────────

func TestWithRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), 3, func(int) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_ExhaustedReturnsRetryError(t *testing.T) {
	boom := errors.New("smtp 421")
	err := withRetry(context.Background(), 2, func(int) error { return boom })

	var re *RetryError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 2, re.Attempts)
	assert.ErrorIs(t, err, boom)
}

func TestWithRetry_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := withRetry(ctx, 3, func(int) error { return errors.New("x") })
	assert.ErrorIs(t, err, context.Canceled)
}

// ── EmailWorker ──────────────────────────────────────────────────────────────

type fakeSender struct {
	failures int
	sent     []string
}

func (s *fakeSender) SendWithAttachment(to, _, _, _ string) error {
	if s.failures > 0 {
		s.failures--
		return errors.New("connection reset")
	}
	s.sent = append(s.sent, to)
	return nil
}

func TestEmailWorker_RetriesThenSends(t *testing.T) {
	sender := &fakeSender{failures: 2}
	w := NewEmailWorker(sender)

	err := w.Process(context.Background(), mustJSON(EmailJobPayload{ToEmail: "gerant@example.com"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"gerant@example.com"}, sender.sent)
}

func TestEmailWorker_PersistentFailure(t *testing.T) {
	w := NewEmailWorker(&fakeSender{failures: 10})
	err := w.Process(context.Background(), mustJSON(EmailJobPayload{ToEmail: "gerant@example.com"}))
	var re *RetryError
	assert.ErrorAs(t, err, &re)
}

func TestEmailWorker_EmptyRecipientSkipped(t *testing.T) {
	sender := &fakeSender{}
	w := NewEmailWorker(sender)
	assert.NoError(t, w.Process(context.Background(), mustJSON(EmailJobPayload{})))
	assert.Empty(t, sender.sent)
}

func TestEmailWorker_InvalidPayload(t *testing.T) {
	w := NewEmailWorker(&fakeSender{})
	assert.Error(t, w.Process(context.Background(), json.RawMessage(`{"to_email":`)))
}

// ── ReportWorker ─────────────────────────────────────────────────────────────

type fakeSource struct {
	report *dto.SessionReportResponse
	err    error
}

func (s fakeSource) Report(context.Context, uuid.UUID) (*dto.SessionReportResponse, error) {
	return s.report, s.err
}

type fakeEmailQueue struct{ jobs []EmailJobPayload }

func (q *fakeEmailQueue) EnqueueEmail(_ context.Context, p EmailJobPayload) error {
	q.jobs = append(q.jobs, p)
	return nil
}

func closedReport(id uuid.UUID) *dto.SessionReportResponse {
	variance := decimal.NewFromInt(-500)
	flag := "warning"
	return &dto.SessionReportResponse{
		Session: dto.SessionResponse{
			ID: id.String(), Status: "closed", LocationName: "Thiès",
			OpenedAt: time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC),
			Variance: &variance, VarianceFlag: &flag,
		},
		Statistics: dto.StatisticsResponse{Currency: "XOF", TheoreticalBalance: decimal.NewFromInt(83000)},
	}
}

func TestReportWorker_GeneratesPDFAndQueuesEmail(t *testing.T) {
	id := uuid.New()
	queue := &fakeEmailQueue{}
	w := NewReportWorker(fakeSource{report: closedReport(id)}, queue, t.TempDir(), "gerant@example.com")

	err := w.Process(context.Background(), mustJSON(ClosureReportPayload{SessionID: id.String()}))
	require.NoError(t, err)

	require.Len(t, queue.jobs, 1)
	job := queue.jobs[0]
	assert.Equal(t, "gerant@example.com", job.ToEmail)
	assert.Contains(t, job.Subject, "Thiès")
	assert.Contains(t, job.Body, "-500 (warning)")
	_, statErr := os.Stat(job.AttachmentPath)
	assert.NoError(t, statErr)
}

func TestReportWorker_NoRecipient_NoEmail(t *testing.T) {
	id := uuid.New()
	queue := &fakeEmailQueue{}
	w := NewReportWorker(fakeSource{report: closedReport(id)}, queue, t.TempDir(), "")

	require.NoError(t, w.Process(context.Background(), mustJSON(ClosureReportPayload{SessionID: id.String()})))
	assert.Empty(t, queue.jobs)
}

func TestReportWorker_InvalidSessionID(t *testing.T) {
	w := NewReportWorker(fakeSource{}, nil, t.TempDir(), "")
	assert.NotPanics(t, func() {
		err := w.Process(context.Background(), mustJSON(ClosureReportPayload{SessionID: "not-a-uuid"}))
		assert.Error(t, err)
	})
}

func TestReportWorker_OpenSessionRejected(t *testing.T) {
	id := uuid.New()
	report := closedReport(id)
	report.Session.Status = "open"
	w := NewReportWorker(fakeSource{report: report}, nil, t.TempDir(), "")

	assert.Error(t, w.Process(context.Background(), mustJSON(ClosureReportPayload{SessionID: id.String()})))
}

func TestReportWorker_SourceFailure(t *testing.T) {
	w := NewReportWorker(fakeSource{err: errors.New("db down")}, nil, t.TempDir(), "")
	err := w.Process(context.Background(), mustJSON(ClosureReportPayload{SessionID: uuid.NewString()}))
	assert.ErrorContains(t, err, "db down")
}

func TestDispatcher_NilClient(t *testing.T) {
	var d *Dispatcher
	assert.Error(t, d.EnqueueClosureReport(context.Background(), uuid.New()))
}
