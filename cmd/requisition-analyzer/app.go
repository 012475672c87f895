package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/iwvelando/requisition-analyzer/internal/config"
	"github.com/iwvelando/requisition-analyzer/internal/database"
	"github.com/iwvelando/requisition-analyzer/internal/evaluator"
	"github.com/iwvelando/requisition-analyzer/internal/lifecycle"
	"github.com/iwvelando/requisition-analyzer/internal/quotes"
	"github.com/iwvelando/requisition-analyzer/internal/store"
	"github.com/iwvelando/requisition-analyzer/internal/strategy"
	"github.com/iwvelando/requisition-analyzer/pkg/constants"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// databases opens each SQLite DSN once so quotes and requisitions can share
// a file.
type databases struct {
	open map[string]*sqlx.DB
}

func (d *databases) get(dsn string) (*sqlx.DB, error) {
	dsn = strings.TrimSpace(dsn)
	if db, ok := d.open[dsn]; ok {
		return db, nil
	}
	db, err := database.Open(dsn)
	if err != nil {
		return nil, err
	}
	if d.open == nil {
		d.open = make(map[string]*sqlx.DB)
	}
	d.open[dsn] = db
	return db, nil
}

func (d *databases) Close() error {
	var firstErr error
	for dsn, db := range d.open {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close %s: %w", dsn, err)
		}
	}
	d.open = nil
	return firstErr
}

// buildSource returns the configured quote source. catalogImport, when set,
// is loaded into the SQLite price tables first.
func buildSource(ctx context.Context, logger *zap.Logger, conf *config.Configuration, dbs *databases, catalogImport string) (quotes.Source, error) {
	var source quotes.Source
	switch conf.Quotes.Source {
	case constants.QuoteSourceCatalog:
		if catalogImport != "" {
			logger.Warn("ignoring catalog import for the catalog quote source",
				zap.String("op", "main.buildSource"),
				zap.String("file", catalogImport),
			)
		}
		catalog, err := quotes.LoadCatalog(conf.Quotes.CatalogFile)
		if err != nil {
			return nil, err
		}
		logger.Debug("loaded quote catalog",
			zap.String("op", "main.buildSource"),
			zap.String("file", conf.Quotes.CatalogFile),
			zap.Strings("depots", catalog.Depots()),
		)
		source = catalog
	case constants.QuoteSourceSQLite:
		db, err := dbs.get(conf.Quotes.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open quote database: %w", err)
		}
		if err := quotes.Migrate(ctx, db); err != nil {
			return nil, err
		}
		if catalogImport != "" {
			file, err := quotes.LoadCatalogFile(catalogImport)
			if err != nil {
				return nil, err
			}
			if err := quotes.ImportCatalog(ctx, db, file); err != nil {
				return nil, fmt.Errorf("failed to import %s: %w", catalogImport, err)
			}
			logger.Info("imported quote catalog",
				zap.String("op", "main.buildSource"),
				zap.String("file", catalogImport),
				zap.Int("depots", len(file.Depots)),
			)
		}
		source = quotes.NewSQLSource(db)
	default:
		return nil, fmt.Errorf("unknown quote source %q", conf.Quotes.Source)
	}
	return quotes.WithRetry(source, conf.Quotes.Retry.Attempts, conf.Quotes.Retry.Delay, logger), nil
}

func buildStore(ctx context.Context, conf *config.Configuration, dbs *databases) (store.Repository, error) {
	switch conf.Store.Backend {
	case constants.StoreMemory:
		return store.NewMemory(), nil
	case constants.StoreSQLite:
		db, err := dbs.get(conf.Store.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open requisition database: %w", err)
		}
		repo, err := store.NewSQLite(ctx, db)
		if err != nil {
			return nil, err
		}
		return repo, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", conf.Store.Backend)
}

// buildManager wires the configured quote source, store and analysis policy
// into a lifecycle manager. The caller closes dbs.
func buildManager(ctx context.Context, logger *zap.Logger, conf *config.Configuration, dbs *databases, catalogImport string) (*lifecycle.Manager, error) {
	policy, err := conf.EvaluatorPolicy()
	if err != nil {
		return nil, err
	}
	weighting, err := conf.Weighting()
	if err != nil {
		return nil, err
	}

	source, err := buildSource(ctx, logger, conf, dbs, catalogImport)
	if err != nil {
		return nil, err
	}
	repo, err := buildStore(ctx, conf, dbs)
	if err != nil {
		return nil, err
	}

	return lifecycle.NewManager(repo, source, logger,
		lifecycle.WithEvaluator(evaluator.New(policy)),
		lifecycle.WithAggregator(strategy.NewAggregator(weighting)),
	), nil
}
