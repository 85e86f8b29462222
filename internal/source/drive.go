package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const (
	mimeGoogleSheet = "application/vnd.google-apps.spreadsheet"
	mimeXLSX        = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Drive downloads a workbook from Google Drive on Connect and serves its sheets.
// Native Google Sheets files are exported as xlsx; uploaded xlsx files are downloaded as-is.
type Drive struct {
	creds  GoogleCredentials
	fileID string

	mu       sync.RWMutex
	wb       *workbook
	fileName string
}

func NewDrive(creds GoogleCredentials, fileID string) *Drive {
	return &Drive{creds: creds, fileID: fileID}
}

func (d *Drive) Name() string { return "drive" }

func (d *Drive) Connect(ctx context.Context) error {
	if d.fileID == "" {
		return fmt.Errorf("drive source: file id not configured")
	}

	client, err := d.creds.httpClient(ctx, drive.DriveReadonlyScope)
	if err != nil {
		return err
	}
	srv, err := drive.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return fmt.Errorf("unable to retrieve Drive client: %w", err)
	}

	meta, err := srv.Files.Get(d.fileID).Fields("id, name, mimeType").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to read file metadata %s: %w", d.fileID, err)
	}

	var resp *http.Response
	if meta.MimeType == mimeGoogleSheet {
		resp, err = srv.Files.Export(d.fileID, mimeXLSX).Context(ctx).Download()
	} else {
		resp, err = srv.Files.Get(d.fileID).Context(ctx).Download()
	}
	if err != nil {
		return fmt.Errorf("unable to download file %s: %w", meta.Name, err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return fmt.Errorf("unable to read file %s: %w", meta.Name, err)
	}

	wb, err := openWorkbook(&buf)
	if err != nil {
		return fmt.Errorf("drive file %s: %w", meta.Name, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.wb != nil {
		_ = d.wb.close()
	}
	d.wb = wb
	d.fileName = meta.Name
	return nil
}

func (d *Drive) current() (*workbook, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.wb == nil {
		return nil, fmt.Errorf("drive source: not connected")
	}
	return d.wb, nil
}

func (d *Drive) ListTables(ctx context.Context) ([]string, error) {
	wb, err := d.current()
	if err != nil {
		return nil, err
	}
	return wb.sheets(), nil
}

func (d *Drive) FetchTable(ctx context.Context, name string) (Table, error) {
	wb, err := d.current()
	if err != nil {
		return Table{}, err
	}
	return wb.table(name)
}
