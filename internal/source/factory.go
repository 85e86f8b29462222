package source

import (
	"fmt"

	"github.com/andresuchdata/invintel/internal/config"
	"github.com/andresuchdata/invintel/internal/storage"
)

// New builds the Source selected by cfg.Kind. store is only required for the
// object kind.
func New(cfg config.SourceConfig, store storage.ObjectStorage) (Source, error) {
	creds := GoogleCredentials{JSON: cfg.CredentialsJSON, File: cfg.CredentialsFile}

	switch cfg.Kind {
	case "sheets", "":
		return NewSheets(creds, cfg.SpreadsheetID), nil
	case "drive":
		return NewDrive(creds, cfg.DriveFileID), nil
	case "xlsx":
		return NewXLSX(cfg.WorkbookPath), nil
	case "csv":
		return NewCSVDir(cfg.CSVDir), nil
	case "object":
		if store == nil {
			return nil, fmt.Errorf("object source requires storage configuration")
		}
		return NewObject(store, cfg.ObjectKey), nil
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Kind)
	}
}

// PolicyFromConfig builds the connection retry policy.
func PolicyFromConfig(cfg config.SourceConfig) RetryPolicy {
	p := DefaultRetryPolicy()
	if cfg.RetryAttempts > 0 {
		p.Attempts = cfg.RetryAttempts
	}
	if cfg.RetryInitialDelay > 0 {
		p.InitialDelay = cfg.RetryInitialDelay
	}
	if cfg.RetryMaxDelay > 0 {
		p.MaxDelay = cfg.RetryMaxDelay
	}
	return p
}
