package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/dairyfeed/internal/config"
	"github.com/mamadbah2/dairyfeed/internal/domain/models"
	"github.com/mamadbah2/dairyfeed/internal/service/monitor"
)

type stubSweeper struct {
	calls int
	err   error
}

func (s *stubSweeper) Sweep(context.Context) (*monitor.SweepResult, error) {
	s.calls++
	return &monitor.SweepResult{Checked: 2}, s.err
}

type stubReporter struct {
	weeklyAt  time.Time
	archiveAt time.Time
}

func (r *stubReporter) WeeklySummary(_ context.Context, now time.Time) (string, error) {
	r.weeklyAt = now
	return "Laporan pakan mingguan", nil
}

func (r *stubReporter) ArchiveDailyReport(_ context.Context, day time.Time) (*models.FeedReport, error) {
	r.archiveAt = day
	return &models.FeedReport{}, nil
}

type stubMessaging struct {
	sent []models.OutboundMessageRequest
}

func (m *stubMessaging) VerifyWebhookToken(string, string, string) (string, error) { return "", nil }

func (m *stubMessaging) HandleWebhook(context.Context, models.WebhookPayload) error { return nil }

func (m *stubMessaging) SendOutbound(_ context.Context, req models.OutboundMessageRequest) error {
	m.sent = append(m.sent, req)
	return nil
}

type observation struct {
	job string
	err error
}

type recordingObserver struct {
	seen []observation
}

func (o *recordingObserver) Observe(job string, _ time.Duration, err error) {
	o.seen = append(o.seen, observation{job: job, err: err})
}

func testConfig() config.Config {
	return config.Config{
		Scheduler: config.SchedulerConfig{
			StockCheckCron: "0 * * * *",
			ReportCron:     "0 20 * * 5",
			ArchiveCron:    "55 23 * * *",
			Timezone:       "Asia/Jakarta",
		},
		WhatsApp: config.WhatsAppConfig{AlertRecipient: "628999"},
	}
}

func TestJobs(t *testing.T) {
	sweeper := &stubSweeper{}
	reporter := &stubReporter{}
	messaging := &stubMessaging{}
	observer := &recordingObserver{}

	s, err := NewScheduler(testConfig(), sweeper, reporter, messaging, observer, nil)
	require.NoError(t, err)
	now := time.Date(2026, 6, 5, 13, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	s.checkStock()
	s.sendWeeklyReport()
	s.archiveDailyReport()

	assert.Equal(t, 1, sweeper.calls)
	require.Len(t, messaging.sent, 1)
	assert.Equal(t, "628999", messaging.sent[0].To)
	assert.Equal(t, "Laporan pakan mingguan", messaging.sent[0].Message)
	assert.Equal(t, "Asia/Jakarta", reporter.archiveAt.Location().String())
	assert.Equal(t, 20, reporter.archiveAt.Hour())

	require.Len(t, observer.seen, 3)
	assert.Equal(t, jobStockCheck, observer.seen[0].job)
	assert.Equal(t, jobWeeklyReport, observer.seen[1].job)
	assert.Equal(t, jobDailyArchive, observer.seen[2].job)
}

func TestFailedJobIsObserved(t *testing.T) {
	observer := &recordingObserver{}
	s, err := NewScheduler(testConfig(), &stubSweeper{err: errors.New("db down")}, &stubReporter{}, nil, observer, nil)
	require.NoError(t, err)

	s.checkStock()
	s.sendWeeklyReport()

	require.Len(t, observer.seen, 2)
	assert.Error(t, observer.seen[0].err)
	assert.NoError(t, observer.seen[1].err)
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	cfg := testConfig()
	cfg.Scheduler.StockCheckCron = "every hour"

	s, err := NewScheduler(cfg, &stubSweeper{}, &stubReporter{}, nil, nil, nil)
	require.NoError(t, err)
	assert.Error(t, s.Start())

	cfg.Scheduler.Timezone = "Mars/Olympus"
	_, err = NewScheduler(cfg, &stubSweeper{}, &stubReporter{}, nil, nil, nil)
	assert.Error(t, err)
}
