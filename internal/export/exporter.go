package export

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"brand-catalog-service/internal/auth"
	"brand-catalog-service/internal/metrics"
	"brand-catalog-service/internal/ownership"
	"brand-catalog-service/internal/store"
)

// Archiver keeps a copy of each generated export.
type Archiver interface {
	Archive(ctx context.Context, key, contentType string, body []byte) (string, error)
}

// Result is one rendered export.
type Result struct {
	Filename string
	Body     []byte
	Rows     int
	Location string
}

// Exporter loads a catalog's product graph and renders it as Shopify CSV.
type Exporter struct {
	store    store.Store
	owners   *ownership.Resolver
	archiver Archiver
	logger   *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewExporter creates an Exporter. archiver and m may be nil.
func NewExporter(st store.Store, archiver Archiver, logger *zap.Logger, m *metrics.Metrics) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{
		store:    st,
		owners:   ownership.NewResolver(st),
		archiver: archiver,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
	}
}

// ExportCatalog renders the catalog identified by its external key for user.
func (e *Exporter) ExportCatalog(ctx context.Context, user auth.User, catalogKey string) (*Result, error) {
	chain, err := e.owners.CatalogByKey(ctx, user, catalogKey)
	if err != nil {
		return nil, err
	}
	res, err := e.export(ctx, chain)
	e.metrics.ObserveExport(err, rowsOf(res))
	if err != nil {
		e.logger.Error("csv export failed", zap.String("catalog_key", catalogKey), zap.Error(err))
		return nil, err
	}
	e.logger.Info("csv export generated",
		zap.String("catalog_key", catalogKey),
		zap.String("filename", res.Filename),
		zap.Int("rows", res.Rows),
	)
	return res, nil
}

func rowsOf(r *Result) int {
	if r == nil {
		return 0
	}
	return r.Rows
}

func (e *Exporter) export(ctx context.Context, chain ownership.Chain) (*Result, error) {
	g, err := e.load(ctx, chain)
	if err != nil {
		return nil, err
	}
	rows := Rows(*g)
	res := &Result{
		Filename: Filename(g.Catalog.Name, e.now()),
		Body:     []byte(Render(rows)),
		Rows:     len(rows),
	}

	if e.archiver != nil {
		key := fmt.Sprintf("%s/%s", g.Catalog.CatalogKey, res.Filename)
		loc, err := e.archiver.Archive(ctx, key, "text/csv", res.Body)
		if err != nil {
			e.logger.Warn("csv export archive failed", zap.String("key", key), zap.Error(err))
		} else {
			res.Location = loc
		}
	}
	return res, nil
}

// load reads the catalog and brand, then every list the export needs concurrently.
func (e *Exporter) load(ctx context.Context, chain ownership.Chain) (*Graph, error) {
	catalog, err := e.store.GetCatalogByID(ctx, chain.CatalogID)
	if err != nil {
		return nil, err
	}
	brand, err := e.store.GetBrandByID(ctx, chain.BrandID)
	if err != nil {
		return nil, err
	}

	g := &Graph{Catalog: *catalog, Vendor: brand.Name}
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		g.Products, err = e.store.ListProducts(egCtx, catalog.ID)
		return err
	})
	eg.Go(func() error {
		var err error
		g.Categories, err = e.store.ListCategories(egCtx, catalog.ID)
		return err
	})
	eg.Go(func() error {
		var err error
		g.Attributes, err = e.store.ListAttributesByCatalog(egCtx, catalog.ID)
		return err
	})
	eg.Go(func() error {
		var err error
		g.Variants, err = e.store.ListVariantsByCatalog(egCtx, catalog.ID)
		return err
	})
	eg.Go(func() error {
		var err error
		g.Images, err = e.store.ListImagesByCatalog(egCtx, catalog.ID)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("export: load catalog %d: %w", catalog.ID, err)
	}
	return g, nil
}
