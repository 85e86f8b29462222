package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/invintel/internal/domain"
	"github.com/andresuchdata/invintel/internal/source"
)

// Channel names used for the auxiliary forecast tables.
const (
	ChannelEcommerce = "ecommerce"
	ChannelReseller  = "reseller"
)

// Dataset is the ingested, typed content of one source fetch. Fact tables are
// not yet enriched or filtered.
type Dataset struct {
	Source     string
	FetchedAt  time.Time
	Catalog    *domain.ProductCatalog
	Duplicates []string

	Sales       []domain.TimeSeriesRow
	Rofo        []domain.TimeSeriesRow
	PO          []domain.TimeSeriesRow
	Stock       []domain.StockRecord
	Channels    map[string][]domain.TimeSeriesRow
	Fulfillment []domain.FulfillmentCostRow

	Tables []domain.TableQuality
}

// Orchestrator coordinates one refresh cycle: connect, fetch every table,
// ingest, and derive the snapshot.
type Orchestrator struct {
	src source.Source
	cfg PipelineConfig
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(src source.Source, cfg PipelineConfig) *Orchestrator {
	if cfg.FetchConcurrency <= 0 {
		cfg.FetchConcurrency = 1
	}
	return &Orchestrator{src: src, cfg: cfg}
}

// Source returns the name of the configured source.
func (o *Orchestrator) Source() string {
	return o.src.Name()
}

// Run loads the dataset and derives every metric table for th.
func (o *Orchestrator) Run(ctx context.Context, th domain.Thresholds) (*domain.Snapshot, error) {
	if err := th.Validate(); err != nil {
		return nil, err
	}
	ds, err := o.Load(ctx)
	if err != nil {
		return nil, err
	}
	snap := Compute(ds, th, o.cfg)
	snap.RunID = uuid.NewString()
	return snap, nil
}

type fetched struct {
	name  string
	table source.Table
	err   error
}

// Load connects to the source (with retry) and fetches every configured
// table concurrently. Only a connection failure is returned as an error; a
// table that cannot be fetched or read is left empty and recorded in
// Dataset.Tables.
func (o *Orchestrator) Load(ctx context.Context) (*Dataset, error) {
	start := time.Now()
	if err := source.ConnectWithRetry(ctx, o.src, o.cfg.Retry); err != nil {
		return nil, err
	}

	names := o.tableNames()
	results := make([]fetched, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.FetchConcurrency)
	for i, name := range names {
		g.Go(func() error {
			t, err := o.src.FetchTable(gctx, name)
			results[i] = fetched{name: name, table: t, err: err}
			if err != nil && ctx.Err() != nil {
				return ctx.Err()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch tables: %w", err)
	}

	byName := make(map[string]fetched, len(results))
	for _, r := range results {
		byName[r.name] = r
	}

	ds := o.ingest(byName)
	log.Info().
		Str("source", ds.Source).
		Int("tables", len(ds.Tables)).
		Int("products", ds.Catalog.Len()).
		Dur("took", time.Since(start)).
		Msg("pipeline: dataset loaded")
	return ds, nil
}

func (o *Orchestrator) tableNames() []string {
	t := o.cfg.Tables
	return []string{
		t.ProductMaster, t.Sales, t.Rofo, t.PO,
		t.StockOnhand, t.ForecastEcommerce, t.ForecastReseller, t.FulfillmentCost,
	}
}

func (o *Orchestrator) ingest(byName map[string]fetched) *Dataset {
	t := o.cfg.Tables
	ds := &Dataset{
		Source:    o.src.Name(),
		FetchedAt: o.cfg.now(),
		Channels:  make(map[string][]domain.TimeSeriesRow, 2),
	}

	// product master first so the catalog is never nil downstream
	ds.Catalog, ds.Duplicates = o.ingestCatalog(ds, byName[t.ProductMaster])

	ds.Sales = o.ingestSeries(ds, byName[t.Sales])
	ds.Rofo = o.ingestSeries(ds, byName[t.Rofo])
	ds.PO = o.ingestSeries(ds, byName[t.PO])
	ds.Channels[ChannelEcommerce] = o.ingestSeries(ds, byName[t.ForecastEcommerce])
	ds.Channels[ChannelReseller] = o.ingestSeries(ds, byName[t.ForecastReseller])

	stockRes := byName[t.StockOnhand]
	o.ingestTable(ds, stockRes, func(tbl source.Table, c *Coercer) (int, error) {
		rows, err := IngestStock(tbl, c)
		if err == nil {
			ds.Stock = rows
		}
		return len(rows), err
	})

	costRes := byName[t.FulfillmentCost]
	o.ingestTable(ds, costRes, func(tbl source.Table, c *Coercer) (int, error) {
		rows, err := IngestFulfillmentCost(tbl, c)
		if err == nil {
			ds.Fulfillment = rows
		}
		return len(rows), err
	})

	return ds
}

func (o *Orchestrator) ingestCatalog(ds *Dataset, res fetched) (*domain.ProductCatalog, []string) {
	var catalog *domain.ProductCatalog
	var dups []string
	o.ingestTable(ds, res, func(tbl source.Table, c *Coercer) (int, error) {
		cat, d, err := IngestProductMaster(tbl, c)
		if err != nil {
			return 0, err
		}
		catalog, dups = cat, d
		return cat.Len(), nil
	})
	if catalog == nil {
		catalog, _ = domain.NewProductCatalog(nil, false)
	}
	return catalog, dups
}

func (o *Orchestrator) ingestSeries(ds *Dataset, res fetched) []domain.TimeSeriesRow {
	var out []domain.TimeSeriesRow
	o.ingestTable(ds, res, func(tbl source.Table, c *Coercer) (int, error) {
		rows, err := Reshaper{Coercer: c}.TimeSeries(tbl)
		if err != nil {
			return 0, err
		}
		out = rows
		return len(rows), nil
	})
	if out == nil {
		out = []domain.TimeSeriesRow{}
	}
	return out
}

// ingestTable runs read against one fetched table with its own coercer and
// records the outcome. Any error leaves the table empty.
func (o *Orchestrator) ingestTable(ds *Dataset, res fetched, read func(source.Table, *Coercer) (int, error)) {
	q := domain.TableQuality{Table: res.name}
	defer func() { ds.Tables = append(ds.Tables, q) }()

	if res.err != nil {
		q.Error = res.err.Error()
		if errors.Is(res.err, source.ErrTableNotFound) {
			log.Warn().Str("table", res.name).Msg("pipeline: table not found, using empty result")
		} else {
			log.Error().Err(res.err).Str("table", res.name).Msg("pipeline: table unavailable, using empty result")
		}
		return
	}
	c := NewCoercer(o.cfg.Policy, o.cfg.MaxCoercionExamples, ds.FetchedAt)
	n, err := read(res.table, c)
	q.Coercion = c.Stats()
	if err != nil {
		q.Error = err.Error()
		log.Warn().Err(err).Str("table", res.name).Msg("pipeline: table could not be read, using empty result")
		return
	}
	q.Loaded = true
	q.Rows = n
}
