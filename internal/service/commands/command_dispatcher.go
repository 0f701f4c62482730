package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/dairyfeed/internal/domain/models"
	"github.com/mamadbah2/dairyfeed/internal/service/monitor"
)

const helpText = `Perintah yang tersedia:
/stok - stok pakan saat ini
/cek - periksa stok dan kirim peringatan
/laporan - ringkasan pakan 7 hari terakhir
/bantuan - daftar perintah`

// ReportingAdapter defines the reporting functions required by the dispatcher.
type ReportingAdapter interface {
	StockSummary(ctx context.Context) (string, error)
	WeeklySummary(ctx context.Context, now time.Time) (string, error)
}

// Sweeper runs a stock threshold sweep on demand.
type Sweeper interface {
	Sweep(ctx context.Context) (*monitor.SweepResult, error)
}

// SweeperFunc adapts a function to Sweeper.
type SweeperFunc func(ctx context.Context) (*monitor.SweepResult, error)

func (f SweeperFunc) Sweep(ctx context.Context) (*monitor.SweepResult, error) { return f(ctx) }

// Dispatcher executes parsed chat commands.
type Dispatcher interface {
	HandleCommand(ctx context.Context, cmd models.Command, sender string) (string, error)
}

// Service implements the Dispatcher interface.
type Service struct {
	reporting ReportingAdapter
	sweeper   Sweeper
	logger    *zap.Logger
	now       func() time.Time
}

// NewService constructs a command dispatcher.
func NewService(reporting ReportingAdapter, sweeper Sweeper, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		reporting: reporting,
		sweeper:   sweeper,
		logger:    logger,
		now:       time.Now,
	}
}

// HandleCommand runs cmd and returns the text reply for sender.
func (s *Service) HandleCommand(ctx context.Context, cmd models.Command, sender string) (string, error) {
	s.logger.Debug("dispatching command", zap.String("command", string(cmd.Type)), zap.String("sender", sender), zap.Strings("args", cmd.Args))

	switch cmd.Type {
	case models.CommandStock:
		return s.reporting.StockSummary(ctx)
	case models.CommandReport:
		return s.reporting.WeeklySummary(ctx, s.now())
	case models.CommandCheck:
		result, err := s.sweeper.Sweep(ctx)
		if err != nil {
			return "", err
		}
		return sweepReply(result), nil
	case models.CommandHelp:
		return helpText, nil
	default:
		return "Perintah tidak dikenal.\n" + helpText, nil
	}
}

func sweepReply(result *monitor.SweepResult) string {
	if result.Skipped {
		return "Pemeriksaan stok sedang berjalan, coba lagi sebentar."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Pemeriksaan stok selesai: %d pakan diperiksa, %d di bawah batas minimum.", result.Checked, result.BelowThreshold)
	if result.Created == 0 {
		if result.BelowThreshold > 0 {
			b.WriteString("\nPeringatan untuk pakan tersebut sudah dikirim sebelumnya.")
		}
		return b.String()
	}

	fmt.Fprintf(&b, "\n%d peringatan baru:", result.Created)
	for _, notification := range result.Notifications {
		b.WriteString("\n- " + notification.Message)
	}
	return b.String()
}
