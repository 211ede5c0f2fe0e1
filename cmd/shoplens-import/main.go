package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/yow-cloud/shoplens/internal/config"
	dbRedis "github.com/yow-cloud/shoplens/internal/db/redis"
	"github.com/yow-cloud/shoplens/internal/domain/product"
	logpkg "github.com/yow-cloud/shoplens/internal/logger"
	"github.com/yow-cloud/shoplens/internal/metrics"
	indexrepo "github.com/yow-cloud/shoplens/internal/repository/indexstate"
	"github.com/yow-cloud/shoplens/internal/source"
	"github.com/yow-cloud/shoplens/internal/transport/gcs"
	"github.com/yow-cloud/shoplens/internal/transport/vision"
	cataloguc "github.com/yow-cloud/shoplens/internal/usecase/catalog"
	importeruc "github.com/yow-cloud/shoplens/internal/usecase/importer"
	indexuc "github.com/yow-cloud/shoplens/internal/usecase/index"
)

// shoplens-import bulk-loads a catalog from a CSV file, a JSON file or a
// Postgres query, then prints the per-batch report as JSON.
func main() {
	var (
		csvPath  = flag.String("csv", "", "path to a CSV catalog file")
		jsonPath = flag.String("json", "", "path to a JSON catalog file (array of flat objects)")
		pgDSN    = flag.String("pg-dsn", "", "Postgres connection string")
		pgQuery  = flag.String("pg-query", "", "catalog query to run against Postgres")
	)
	flag.Parse()

	_ = godotenv.Load()
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		fatalf("load config: %v", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		fatalf("create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	records, err := readRecords(ctx, *csvPath, *jsonPath, *pgDSN, *pgQuery)
	if err != nil {
		fatalf("read records: %v", err)
	}
	if len(records) == 0 {
		fatalf("no catalog records found")
	}
	logger.Info("Catalog records loaded", zap.Int("count", len(records)))

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		fatalf("create database store: %v", err)
	}
	defer store.Close()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		fatalf("database not ready: %v", err)
	}

	metrics.RegisterRemoteMetrics()

	visionClient, err := vision.NewClient(ctx, vision.Config{
		ProjectID:    cfg.GCP.ProjectID,
		Location:     cfg.GCP.Location,
		ProductSetID: cfg.GCP.ProductSetID,
	})
	if err != nil {
		fatalf("create vision client: %v", err)
	}
	defer func() { _ = visionClient.Close() }()

	var mirror importeruc.ImageMirror
	if cfg.Storage.Bucket != "" {
		gcsMirror, err := gcs.NewMirror(ctx, cfg.Storage.Bucket, cfg.Storage.ObjectPrefix)
		if err != nil {
			fatalf("create image mirror: %v", err)
		}
		defer func() { _ = gcsMirror.Close() }()
		mirror = gcsMirror
	}

	vocab := product.DefaultVocabulary()
	if len(cfg.Catalog.AttributeKeys) > 0 {
		vocab, err = product.NewVocabulary(cfg.Catalog.AttributeKeys)
		if err != nil {
			fatalf("invalid attribute vocabulary: %v", err)
		}
	}

	lifecycle := indexuc.New(visionClient, indexrepo.New(store, cfg.Database.KeyPrefix), indexuc.Config{
		ProductSetID:     cfg.GCP.ProductSetID,
		PollTimeout:      time.Duration(cfg.Search.PollTimeoutSec) * time.Second,
		FailureThreshold: cfg.Search.PollThreshold,
	}, logger)
	if err := lifecycle.Restore(ctx); err != nil {
		fatalf("restore index state: %v", err)
	}

	importerSvc := importeruc.New(
		cataloguc.NewNormalizer(vocab, logger),
		visionClient,
		mirror,
		lifecycle,
		importeruc.Config{
			BatchSize:    cfg.Catalog.BatchSize,
			MaxTries:     cfg.Catalog.RetryMaxTries,
			RetryBase:    time.Duration(cfg.Catalog.RetryBaseMS) * time.Millisecond,
			RetryCap:     time.Duration(cfg.Catalog.RetryCapMS) * time.Millisecond,
			ChunkTimeout: time.Duration(cfg.Catalog.ChunkTimeoutSec) * time.Second,
		},
		logger,
	)

	report, err := importerSvc.Import(ctx, records)
	if err != nil {
		fatalf("import: %v", err)
	}

	out := map[string]any{
		"batch_id":  report.BatchID(),
		"submitted": report.Submitted(),
		"succeeded": report.Succeeded(),
		"failed":    report.Failed(),
	}
	if ids := report.FailedIDs(); len(ids) > 0 {
		out["failed_ids"] = ids
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)

	if report.Failed() > 0 {
		os.Exit(1)
	}
}

func readRecords(ctx context.Context, csvPath, jsonPath, pgDSN, pgQuery string) ([]source.Record, error) {
	set := 0
	for _, v := range []string{csvPath, jsonPath, pgDSN} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return nil, fmt.Errorf("exactly one of -csv, -json or -pg-dsn is required")
	}

	switch {
	case csvPath != "":
		f, err := os.Open(csvPath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return source.ReadCSV(f)
	case jsonPath != "":
		f, err := os.Open(jsonPath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return source.ReadJSON(f)
	default:
		if pgQuery == "" {
			return nil, fmt.Errorf("-pg-query is required with -pg-dsn")
		}
		pg, err := source.NewPostgresSource(ctx, pgDSN)
		if err != nil {
			return nil, err
		}
		defer pg.Close()
		return pg.Fetch(ctx, pgQuery)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "shoplens-import: "+format+"\n", args...)
	os.Exit(1)
}
