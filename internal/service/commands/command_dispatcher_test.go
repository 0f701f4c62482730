package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/dairyfeed/internal/domain/models"
	"github.com/mamadbah2/dairyfeed/internal/service/monitor"
)

type stubReporting struct {
	weeklyAt time.Time
}

func (r *stubReporting) StockSummary(context.Context) (string, error) {
	return "Stok pakan saat ini:\n- Rumput: 15.00kg (min 20.00kg) ⚠️", nil
}

func (r *stubReporting) WeeklySummary(_ context.Context, now time.Time) (string, error) {
	r.weeklyAt = now
	return "Laporan pakan mingguan", nil
}

type stubSweeper struct {
	result *monitor.SweepResult
	err    error
}

func (s stubSweeper) Sweep(context.Context) (*monitor.SweepResult, error) {
	return s.result, s.err
}

func TestHandleCommand(t *testing.T) {
	now := time.Date(2026, 6, 7, 20, 0, 0, 0, time.UTC)
	reporting := &stubReporting{}
	svc := NewService(reporting, stubSweeper{result: &monitor.SweepResult{
		Checked:        3,
		BelowThreshold: 1,
		Created:        1,
		Notifications:  []models.Notification{{Message: "Stok Rumput tinggal 15kg, silahkan tambah stok"}},
	}}, nil)
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	reply, err := svc.HandleCommand(ctx, models.ParseCommand("/stok"), "628123")
	require.NoError(t, err)
	assert.Contains(t, reply, "Rumput: 15.00kg")

	reply, err = svc.HandleCommand(ctx, models.ParseCommand("/laporan"), "628123")
	require.NoError(t, err)
	assert.Equal(t, "Laporan pakan mingguan", reply)
	assert.Equal(t, now, reporting.weeklyAt)

	reply, err = svc.HandleCommand(ctx, models.ParseCommand("/cek"), "628123")
	require.NoError(t, err)
	assert.Contains(t, reply, "3 pakan diperiksa, 1 di bawah batas minimum")
	assert.Contains(t, reply, "- Stok Rumput tinggal 15kg, silahkan tambah stok")

	reply, err = svc.HandleCommand(ctx, models.ParseCommand("halo"), "628123")
	require.NoError(t, err)
	assert.Contains(t, reply, "Perintah tidak dikenal")
	assert.Contains(t, reply, "/bantuan")
}

func TestCheckReplies(t *testing.T) {
	ctx := context.Background()

	skipped := NewService(&stubReporting{}, stubSweeper{result: &monitor.SweepResult{Skipped: true}}, nil)
	reply, err := skipped.HandleCommand(ctx, models.ParseCommand("/cek"), "")
	require.NoError(t, err)
	assert.Contains(t, reply, "sedang berjalan")

	deduped := NewService(&stubReporting{}, stubSweeper{result: &monitor.SweepResult{Checked: 2, BelowThreshold: 1}}, nil)
	reply, err = deduped.HandleCommand(ctx, models.ParseCommand("/check"), "")
	require.NoError(t, err)
	assert.Contains(t, reply, "sudah dikirim sebelumnya")

	failing := NewService(&stubReporting{}, stubSweeper{err: errors.New("db down")}, nil)
	_, err = failing.HandleCommand(ctx, models.ParseCommand("/cek"), "")
	assert.Error(t, err)
}
