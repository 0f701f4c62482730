package sheets

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/mamadbah2/dairyfeed/internal/config"
	"github.com/mamadbah2/dairyfeed/internal/domain/models"
)

const (
	feedReportRange = "FeedReports!A:H"
	reportDateRange = "FeedReports!A:A"
	dateLayout      = "2006-01-02"
)

// Repository exports daily feed reports to a spreadsheet.
type Repository interface {
	AppendFeedReport(ctx context.Context, report models.FeedReport) error
	HasFeedReport(ctx context.Context, date string) (bool, error)
}

// GoogleSheetRepository implements Repository with the Google Sheets API.
type GoogleSheetRepository struct {
	service       *sheetsapi.Service
	spreadsheetID string
	logger        *zap.Logger
}

// NewGoogleSheetRepository builds a Google Sheets backed repository instance.
func NewGoogleSheetRepository(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*GoogleSheetRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	service, err := sheetsapi.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath), option.WithScopes(sheetsapi.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	return &GoogleSheetRepository{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		logger:        logger,
	}, nil
}

// AppendFeedReport writes one summary row per report.
func (r *GoogleSheetRepository) AppendFeedReport(ctx context.Context, report models.FeedReport) error {
	payload := &sheetsapi.ValueRange{Values: [][]interface{}{FeedReportRow(report)}}

	call := r.service.Spreadsheets.Values.Append(r.spreadsheetID, feedReportRange, payload).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx)

	if _, err := call.Do(); err != nil {
		return fmt.Errorf("append feed report row: %w", err)
	}

	r.logger.Debug("feed report appended to sheet", zap.String("date", report.Date.Format(dateLayout)))
	return nil
}

// HasFeedReport reports whether a row for date already exists.
func (r *GoogleSheetRepository) HasFeedReport(ctx context.Context, date string) (bool, error) {
	resp, err := r.service.Spreadsheets.Values.Get(r.spreadsheetID, reportDateRange).Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("read range %s: %w", reportDateRange, err)
	}

	for _, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if fmt.Sprint(row[0]) == date {
			return true, nil
		}
	}
	return false, nil
}

// FeedReportRow flattens a report into spreadsheet cells:
// date, sessions, consumed kg, protein, energy, fiber, per-feed breakdown, low stock feeds.
func FeedReportRow(report models.FeedReport) []interface{} {
	perFeed := make([]string, 0, len(report.PerFeed))
	for _, line := range report.PerFeed {
		perFeed = append(perFeed, fmt.Sprintf("%s: %.2fkg", line.FeedName, line.Quantity))
	}

	lowStock := make([]string, 0, len(report.LowStock))
	for _, snap := range report.LowStock {
		lowStock = append(lowStock, fmt.Sprintf("%s (%.2fkg)", snap.FeedName, snap.StockKg))
	}

	return []interface{}{
		report.Date.Format(dateLayout),
		report.Sessions,
		report.TotalConsumed,
		report.TotalProtein,
		report.TotalEnergy,
		report.TotalFiber,
		strings.Join(perFeed, "; "),
		strings.Join(lowStock, "; "),
	}
}
