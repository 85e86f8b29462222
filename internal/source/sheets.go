package source

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Sheets reads worksheets of one Google spreadsheet through the Sheets v4 API.
type Sheets struct {
	creds         GoogleCredentials
	spreadsheetID string

	mu  sync.RWMutex
	srv *sheets.Service
}

func NewSheets(creds GoogleCredentials, spreadsheetID string) *Sheets {
	return &Sheets{creds: creds, spreadsheetID: spreadsheetID}
}

func (s *Sheets) Name() string { return "sheets" }

// Connect authorises the service account and checks the spreadsheet is readable.
func (s *Sheets) Connect(ctx context.Context) error {
	if s.spreadsheetID == "" {
		return fmt.Errorf("sheets source: spreadsheet id not configured")
	}

	client, err := s.creds.httpClient(ctx, sheets.SpreadsheetsReadonlyScope)
	if err != nil {
		return err
	}
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return fmt.Errorf("unable to create Sheets client: %w", err)
	}

	if _, err := srv.Spreadsheets.Get(s.spreadsheetID).
		Fields("spreadsheetId").
		Context(ctx).
		Do(); err != nil {
		return fmt.Errorf("unable to open spreadsheet %s: %w", s.spreadsheetID, err)
	}

	s.mu.Lock()
	s.srv = srv
	s.mu.Unlock()
	return nil
}

func (s *Sheets) service() (*sheets.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.srv == nil {
		return nil, fmt.Errorf("sheets source: not connected")
	}
	return s.srv, nil
}

func (s *Sheets) ListTables(ctx context.Context) ([]string, error) {
	srv, err := s.service()
	if err != nil {
		return nil, err
	}
	resp, err := srv.Spreadsheets.Get(s.spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to list worksheets: %w", err)
	}
	names := make([]string, 0, len(resp.Sheets))
	for _, sh := range resp.Sheets {
		if sh.Properties != nil {
			names = append(names, sh.Properties.Title)
		}
	}
	return names, nil
}

func (s *Sheets) FetchTable(ctx context.Context, name string) (Table, error) {
	srv, err := s.service()
	if err != nil {
		return Table{}, err
	}

	resp, err := srv.Spreadsheets.Values.Get(s.spreadsheetID, quoteSheetName(name)).
		MajorDimension("ROWS").
		Context(ctx).
		Do()
	if err != nil {
		if isNotFound(err) {
			return Table{}, fmt.Errorf("%w: %s", ErrTableNotFound, name)
		}
		return Table{}, fmt.Errorf("unable to read worksheet %s: %w", name, err)
	}

	records := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		record := make([]string, len(row))
		for j, v := range row {
			record[j] = cellString(v)
		}
		records[i] = record
	}
	return NewTable(name, records), nil
}

// quoteSheetName renders a worksheet title as an A1 range covering the whole sheet.
func quoteSheetName(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func cellString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}
