package sheets

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/otabekdev/restockbot/internal/config"
)

// Repository defines the allow-list operations supported by the Google
// Sheets adapter. The sheet is the source of truth so an admin can also
// edit it by hand.
type Repository interface {
	List(ctx context.Context) ([]string, error)
	Contains(ctx context.Context, phone string) (bool, error)
	Add(ctx context.Context, phone string) error
	Remove(ctx context.Context, phone string) error
}

// GoogleSheetRepository implements the Repository interface using the
// official Google Sheets API.
type GoogleSheetRepository struct {
	service       *sheetsapi.Service
	spreadsheetID string
	listRange     string
	logger        *zap.Logger
}

// NewGoogleSheetRepository builds a Google Sheets backed repository instance.
func NewGoogleSheetRepository(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (Repository, error) {
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
		listRange:     cfg.AllowListRange,
		logger:        logger,
	}, nil
}

// List fetches all authorized phone numbers in normalized form.
func (r *GoogleSheetRepository) List(ctx context.Context) ([]string, error) {
	resp, err := r.service.Spreadsheets.Values.Get(r.spreadsheetID, r.listRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read allow-list range %s: %w", r.listRange, err)
	}

	var phones []string
	for _, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		phone := NormalizePhone(fmt.Sprint(row[0]))
		if phone == "+" {
			continue
		}
		phones = append(phones, phone)
	}
	return phones, nil
}

// Contains reports whether the phone number is on the allow-list.
func (r *GoogleSheetRepository) Contains(ctx context.Context, phone string) (bool, error) {
	phones, err := r.List(ctx)
	if err != nil {
		return false, err
	}

	normalized := NormalizePhone(phone)
	for _, candidate := range phones {
		if candidate == normalized {
			return true, nil
		}
	}
	return false, nil
}

// Add appends a phone number to the allow-list.
func (r *GoogleSheetRepository) Add(ctx context.Context, phone string) error {
	normalized := NormalizePhone(phone)
	if exists, err := r.Contains(ctx, normalized); err != nil {
		return err
	} else if exists {
		return nil
	}

	payload := &sheetsapi.ValueRange{Values: [][]interface{}{{normalized}}}
	call := r.service.Spreadsheets.Values.Append(r.spreadsheetID, r.listRange, payload).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx)

	if _, err := call.Do(); err != nil {
		return fmt.Errorf("append phone into range %s: %w", r.listRange, err)
	}

	r.logger.Debug("phone added to allow-list", zap.String("phone", normalized))
	return nil
}

// Remove rewrites the allow-list without the given phone number.
func (r *GoogleSheetRepository) Remove(ctx context.Context, phone string) error {
	phones, err := r.List(ctx)
	if err != nil {
		return err
	}

	normalized := NormalizePhone(phone)
	values := make([][]interface{}, 0, len(phones))
	for _, candidate := range phones {
		if candidate == normalized {
			continue
		}
		values = append(values, []interface{}{candidate})
	}

	if _, err := r.service.Spreadsheets.Values.Clear(r.spreadsheetID, r.listRange, &sheetsapi.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear allow-list range %s: %w", r.listRange, err)
	}

	if len(values) == 0 {
		return nil
	}

	payload := &sheetsapi.ValueRange{Values: values}
	call := r.service.Spreadsheets.Values.Update(r.spreadsheetID, r.listRange, payload).
		ValueInputOption("USER_ENTERED").
		Context(ctx)

	if _, err := call.Do(); err != nil {
		return fmt.Errorf("rewrite allow-list range %s: %w", r.listRange, err)
	}

	r.logger.Debug("phone removed from allow-list", zap.String("phone", normalized))
	return nil
}

// NormalizePhone reduces a phone number to international form: digits only,
// always prefixed with '+'.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return "+" + b.String()
}
