package reporting

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairyfeed/internal/domain/models"
	"github.com/mamadbah2/dairyfeed/internal/repository/gormstore"
	"github.com/mamadbah2/dairyfeed/internal/repository/mongodb"
	"github.com/mamadbah2/dairyfeed/internal/repository/sheets"
)

const dateLayout = models.DateLayout

// Service builds feed consumption summaries for chat replies and archives.
type Service struct {
	repo    gormstore.Reader
	archive mongodb.Repository
	sheet   sheets.Repository
	logger  *zap.Logger
	now     func() time.Time
}

// NewService wires a reporting service. archive and sheet are optional.
func NewService(repository gormstore.Reader, archive mongodb.Repository, sheet sheets.Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:    repository,
		archive: archive,
		sheet:   sheet,
		logger:  logger,
		now:     time.Now,
	}
}

// StockSummary lists the stock of every feed, flagging those under threshold.
func (s *Service) StockSummary(ctx context.Context) (string, error) {
	stocks, err := s.repo.ListFeedStocks(ctx)
	if err != nil {
		return "", fmt.Errorf("load stocks: %w", err)
	}
	if len(stocks) == 0 {
		return "Belum ada data stok pakan.", nil
	}

	var b strings.Builder
	b.WriteString("Stok pakan saat ini:\n")
	for _, stock := range stocks {
		marker := ""
		if stock.BelowThreshold(stock.Feed.MinStock) {
			marker = " ⚠️"
		}
		fmt.Fprintf(&b, "- %s: %skg (min %skg)%s\n",
			stock.Feed.Name, stock.Stock.StringFixed(2), stock.Feed.MinStock.StringFixed(2), marker)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// WeeklySummary reports the last seven days of consumption ending at now.
func (s *Service) WeeklySummary(ctx context.Context, now time.Time) (string, error) {
	end := now.Format(dateLayout)
	start := now.AddDate(0, 0, -6).Format(dateLayout)

	usage, err := s.repo.FeedUsage(ctx, start, end)
	if err != nil {
		return "", fmt.Errorf("load feed usage: %w", err)
	}
	sessions, err := s.repo.ListDailyFeeds(ctx, gormstore.DailyFeedFilter{StartDate: start, EndDate: end})
	if err != nil {
		return "", fmt.Errorf("load sessions: %w", err)
	}
	lowStock, err := s.lowStock(ctx)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Laporan pakan mingguan (%s s/d %s)\n", start, end)

	if len(usage) == 0 {
		b.WriteString("Belum ada pemberian pakan tercatat.\n")
	} else {
		lines := perFeed(usage)
		total := decimal.Zero
		for _, line := range lines {
			total = total.Add(line.quantity)
		}
		fmt.Fprintf(&b, "Total pakan: %skg dalam %d sesi\n", total.StringFixed(2), len(sessions))
		for _, line := range lines {
			fmt.Fprintf(&b, "- %s: %skg\n", line.name, line.quantity.StringFixed(2))
		}

		protein, energy, fiber := nutrientTotals(sessions)
		fmt.Fprintf(&b, "Nutrisi: protein %s, energi %s, serat %s\n",
			protein.StringFixed(2), energy.StringFixed(2), fiber.StringFixed(2))
	}

	if len(lowStock) > 0 {
		b.WriteString("Stok menipis:\n")
		for _, snap := range lowStock {
			fmt.Fprintf(&b, "- %s: %skg (min %skg)\n", snap.FeedName, snap.Stock.StringFixed(2), snap.MinStock.StringFixed(2))
		}
	}

	return strings.TrimRight(b.String(), "\n"), nil
}

// BuildDailyReport aggregates one calendar day of sessions.
func (s *Service) BuildDailyReport(ctx context.Context, day time.Time) (*models.FeedReport, error) {
	date := day.Format(dateLayout)
	reportDate, _ := time.Parse(dateLayout, date)

	sessions, err := s.repo.ListDailyFeeds(ctx, gormstore.DailyFeedFilter{Date: date})
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}
	usage, err := s.repo.FeedUsage(ctx, date, date)
	if err != nil {
		return nil, fmt.Errorf("load feed usage: %w", err)
	}
	lowStock, err := s.lowStock(ctx)
	if err != nil {
		return nil, err
	}

	report := &models.FeedReport{
		Date:      reportDate,
		Sessions:  len(sessions),
		PerFeed:   []models.FeedReportLine{},
		LowStock:  lowStock,
		CreatedAt: s.now().UTC(),
	}

	consumed := decimal.Zero
	for _, row := range usage {
		consumed = consumed.Add(row.Quantity)
		report.PerFeed = append(report.PerFeed, models.FeedReportLine{
			FeedID:   row.FeedID,
			FeedName: row.FeedName,
			Quantity: row.Quantity.InexactFloat64(),
		})
	}
	report.TotalConsumed = consumed.InexactFloat64()

	protein, energy, fiber := nutrientTotals(sessions)
	report.TotalProtein = protein.InexactFloat64()
	report.TotalEnergy = energy.InexactFloat64()
	report.TotalFiber = fiber.InexactFloat64()

	return report, nil
}

// ArchiveDailyReport builds the report of day and stores it in the configured archives.
// Sheets rows are written once per date.
func (s *Service) ArchiveDailyReport(ctx context.Context, day time.Time) (*models.FeedReport, error) {
	report, err := s.BuildDailyReport(ctx, day)
	if err != nil {
		return nil, err
	}

	if s.archive != nil {
		if err := s.archive.SaveFeedReport(ctx, *report); err != nil {
			return nil, fmt.Errorf("archive report: %w", err)
		}
	}

	if s.sheet != nil {
		date := report.Date.Format(dateLayout)
		exists, err := s.sheet.HasFeedReport(ctx, date)
		if err != nil {
			return nil, fmt.Errorf("check sheet: %w", err)
		}
		if exists {
			s.logger.Info("feed report already exported", zap.String("date", date))
		} else if err := s.sheet.AppendFeedReport(ctx, *report); err != nil {
			return nil, fmt.Errorf("export report: %w", err)
		}
	}

	s.logger.Info("daily feed report archived",
		zap.String("date", report.Date.Format(dateLayout)),
		zap.Int("sessions", report.Sessions),
		zap.Float64("consumed_kg", report.TotalConsumed),
	)
	return report, nil
}

func (s *Service) lowStock(ctx context.Context) ([]models.LowStockSnapshot, error) {
	stocks, err := s.repo.ListFeedStocks(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stocks: %w", err)
	}

	snapshots := []models.LowStockSnapshot{}
	for _, stock := range stocks {
		if !stock.BelowThreshold(stock.Feed.MinStock) {
			continue
		}
		snapshots = append(snapshots, models.LowStockSnapshot{
			FeedStockID: stock.ID,
			FeedName:    stock.Feed.Name,
			Stock:       stock.Stock,
			MinStock:    stock.Feed.MinStock,
			StockKg:     stock.Stock.InexactFloat64(),
		})
	}
	return snapshots, nil
}

type feedLine struct {
	name     string
	quantity decimal.Decimal
}

// perFeed folds per-day usage rows into one line per feed, largest first.
func perFeed(usage []models.FeedUsage) []feedLine {
	byFeed := make(map[uint]*feedLine)
	for _, row := range usage {
		line, ok := byFeed[row.FeedID]
		if !ok {
			line = &feedLine{name: row.FeedName, quantity: decimal.Zero}
			byFeed[row.FeedID] = line
		}
		line.quantity = line.quantity.Add(row.Quantity)
	}

	lines := make([]feedLine, 0, len(byFeed))
	for _, line := range byFeed {
		lines = append(lines, *line)
	}
	sort.Slice(lines, func(i, j int) bool {
		if c := lines[i].quantity.Cmp(lines[j].quantity); c != 0 {
			return c > 0
		}
		return lines[i].name < lines[j].name
	})
	return lines
}

func nutrientTotals(sessions []models.DailyFeed) (protein, energy, fiber decimal.Decimal) {
	protein, energy, fiber = decimal.Zero, decimal.Zero, decimal.Zero
	for _, session := range sessions {
		if session.Nutrients == nil {
			continue
		}
		protein = protein.Add(session.Nutrients.TotalProtein)
		energy = energy.Add(session.Nutrients.TotalEnergy)
		fiber = fiber.Add(session.Nutrients.TotalFiber)
	}
	return protein, energy, fiber
}
