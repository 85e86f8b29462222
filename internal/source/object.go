package source

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/andresuchdata/invintel/internal/storage"
)

// Object reads a workbook stored in an S3-compatible bucket.
type Object struct {
	store storage.ObjectStorage
	key   string

	mu sync.RWMutex
	wb *workbook
}

func NewObject(store storage.ObjectStorage, key string) *Object {
	return &Object{store: store, key: key}
}

func (o *Object) Name() string { return "object" }

func (o *Object) Connect(ctx context.Context) error {
	data, err := o.store.GetObject(ctx, o.key)
	if err != nil {
		return err
	}
	wb, err := openWorkbook(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("object %s: %w", o.key, err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.wb != nil {
		_ = o.wb.close()
	}
	o.wb = wb
	return nil
}

func (o *Object) current() (*workbook, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.wb == nil {
		return nil, fmt.Errorf("object source %s: not connected", o.key)
	}
	return o.wb, nil
}

func (o *Object) ListTables(ctx context.Context) ([]string, error) {
	wb, err := o.current()
	if err != nil {
		return nil, err
	}
	return wb.sheets(), nil
}

func (o *Object) FetchTable(ctx context.Context, name string) (Table, error) {
	wb, err := o.current()
	if err != nil {
		return Table{}, err
	}
	return wb.table(name)
}
