// Command flowclust clusters the trajectories of a whitespace-separated
// coordinate matrix file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hupe1980/flowclust"
	"github.com/hupe1980/flowclust/blobstore"
	miniostore "github.com/hupe1980/flowclust/blobstore/minio"
	s3store "github.com/hupe1980/flowclust/blobstore/s3"
	"github.com/hupe1980/flowclust/distance"
	"github.com/hupe1980/flowclust/distcache"
	"github.com/hupe1980/flowclust/distcache/dynamo"
	"github.com/hupe1980/flowclust/internal/kmeans"
	"github.com/hupe1980/flowclust/internal/resource"
	"github.com/hupe1980/flowclust/observability"
	"github.com/hupe1980/flowclust/report"
	"github.com/hupe1980/flowclust/report/sqlite"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "flowclust: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("flowclust", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: flowclust [flags] <matrix-file|->\n\nFlags:\n")
		fs.PrintDefaults()
	}

	var (
		configPath = fs.String("config", "", "YAML configuration file")
		outPath    = fs.String("out", "", "write per-row assignments to this file")
		flags      = defaultConfig()
	)
	fs.StringVar(&flags.Mode, "mode", flags.Mode, "pipeline: pca or direct")
	fs.IntVar(&flags.Clusters, "k", flags.Clusters, "number of clusters (0 = default)")
	fs.StringVar(&flags.PostProcessing, "post", flags.PostProcessing, "clustering on reduced data: kmeans or ahc")
	fs.StringVar(&flags.Init, "init", flags.Init, "initialization: random-position, from-samples or far-samples")
	fs.StringVar(&flags.Metric, "metric", flags.Metric, "metric of direct runs (name or number)")
	fs.Int64Var(&flags.Seed, "seed", flags.Seed, "random seed")
	fs.IntVar(&flags.Workers, "workers", flags.Workers, "worker pool size (0 = default)")
	fs.BoolVar(&flags.Special, "special", flags.Special, "dataset is special (PBF); never use the distance cache")
	fs.StringVar(&flags.LogLevel, "log-level", flags.LogLevel, "debug, info, warn or error")
	fs.StringVar(&flags.LogFormat, "log-format", flags.LogFormat, "text or json")
	fs.StringVar(&flags.MetricsAddr, "metrics-addr", flags.MetricsAddr, "serve Prometheus metrics on this address")
	fs.StringVar(&flags.Cache.Backend, "cache", flags.Cache.Backend, "distance cache backend: local, minio or s3")
	fs.StringVar(&flags.Cache.Path, "cache-path", flags.Cache.Path, "local cache directory")
	fs.StringVar(&flags.Report.Readme, "readme", flags.Report.Readme, "append run summaries to this file")
	fs.StringVar(&flags.Report.SQLite, "sqlite", flags.Report.SQLite, "record runs in this SQLite database")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errors.New("expected one matrix file")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	cfg = overrideSet(fs, cfg, flags)
	if err := cfg.validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	data, err := readMatrixFile(fs.Arg(0))
	if err != nil {
		return err
	}

	opts, cleanup, err := buildOptions(ctx, cfg)
	defer cleanup()
	if err != nil {
		return err
	}

	c, err := flowclust.New(opts...)
	if err != nil {
		return err
	}

	var res *flowclust.Result
	switch cfg.Mode {
	case "pca":
		res, err = c.PCAClusterK(ctx, data, clustersOrDefault(cfg.Clusters))
	case "direct":
		metric, perr := distance.ParseMetric(cfg.Metric)
		if perr != nil {
			return perr
		}
		res, err = c.DirectKMeansK(ctx, data, metric, clustersOrDefault(cfg.Clusters))
	}
	if err != nil {
		return err
	}

	writeResult(stdout, res)
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			return err
		}
		if err := writeAssignments(f, res); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}
	return nil
}

// overrideSet copies every explicitly set flag from flags into cfg.
func overrideSet(fs *flag.FlagSet, cfg, flags Config) Config {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "mode":
			cfg.Mode = flags.Mode
		case "k":
			cfg.Clusters = flags.Clusters
		case "post":
			cfg.PostProcessing = flags.PostProcessing
		case "init":
			cfg.Init = flags.Init
		case "metric":
			cfg.Metric = flags.Metric
		case "seed":
			cfg.Seed = flags.Seed
		case "workers":
			cfg.Workers = flags.Workers
		case "special":
			cfg.Special = flags.Special
		case "log-level":
			cfg.LogLevel = flags.LogLevel
		case "log-format":
			cfg.LogFormat = flags.LogFormat
		case "metrics-addr":
			cfg.MetricsAddr = flags.MetricsAddr
		case "cache":
			cfg.Cache.Backend = flags.Cache.Backend
		case "cache-path":
			cfg.Cache.Path = flags.Cache.Path
		case "readme":
			cfg.Report.Readme = flags.Report.Readme
		case "sqlite":
			cfg.Report.SQLite = flags.Report.SQLite
		}
	})
	return cfg
}

func clustersOrDefault(k int) int {
	if k == 0 {
		return flowclust.DefaultClusters
	}
	return k
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	err := l.UnmarshalText([]byte(s))
	return l, err
}

// buildOptions turns cfg into clusterer options. The returned cleanup must
// be called even when err is non-nil.
func buildOptions(ctx context.Context, cfg Config) ([]flowclust.Option, func(), error) {
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
	}

	post, err := flowclust.ParsePostProcessing(cfg.PostProcessing)
	if err != nil {
		return nil, cleanup, err
	}
	strategy, err := kmeans.ParseInit(cfg.Init)
	if err != nil {
		return nil, cleanup, err
	}
	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return nil, cleanup, err
	}

	logger := flowclust.NewTextLogger(level)
	if strings.EqualFold(cfg.LogFormat, "json") {
		logger = flowclust.NewJSONLogger(level)
	}

	opts := []flowclust.Option{
		flowclust.WithPostProcessing(post),
		flowclust.WithInit(strategy),
		flowclust.WithSeed(cfg.Seed),
		flowclust.WithWorkers(cfg.Workers),
		flowclust.WithSpecialDataset(cfg.Special),
		flowclust.WithMemoryLimit(cfg.MemoryLimit),
		flowclust.WithLogger(logger),
	}

	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		collector, err := observability.NewPrometheusCollector(reg)
		if err != nil {
			return nil, cleanup, err
		}
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		closers = append(closers, srv.Close)
		opts = append(opts, flowclust.WithMetricsCollector(collector))
	}

	if cfg.Cache.Backend != "" {
		cache, err := buildCache(ctx, cfg.Cache, logger)
		if err != nil {
			return nil, cleanup, err
		}
		closers = append(closers, func() error {
			hits, misses := cache.Stats()
			logger.Debug("distance cache memory tier", "hits", hits, "misses", misses)
			return cache.Close()
		})
		opts = append(opts, flowclust.WithDistanceCache(cache))
	}

	var sinks []report.Sink
	if cfg.Report.Readme != "" {
		f, err := os.OpenFile(cfg.Report.Readme, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, cleanup, err
		}
		closers = append(closers, f.Close)
		sinks = append(sinks, report.NewTextSink(f))
	}
	if cfg.Report.SQLite != "" {
		store, err := sqlite.Open(ctx, cfg.Report.SQLite)
		if err != nil {
			return nil, cleanup, err
		}
		closers = append(closers, store.Close)
		sinks = append(sinks, store)
	}
	if len(sinks) > 0 {
		opts = append(opts, flowclust.WithReportSink(report.Multi(sinks...)))
	}
	return opts, cleanup, nil
}

func buildCache(ctx context.Context, cfg CacheConfig, logger *flowclust.Logger) (*distcache.Cache, error) {
	comp, err := distcache.ParseCompression(cfg.Compression)
	if err != nil {
		return nil, err
	}

	var store blobstore.Store
	switch cfg.Backend {
	case "local":
		path := cfg.Path
		if path == "" {
			path = "."
		}
		store = blobstore.NewLocalStore(path)
	case "minio":
		client, err := minio.New(cfg.Endpoint, &minio.Options{
			Creds:  credentials.NewEnvMinio(),
			Secure: cfg.Secure,
			Region: cfg.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("minio client: %w", err)
		}
		store = miniostore.NewStore(client, cfg.Bucket, cfg.Prefix)
	case "s3":
		s3opts := []s3store.Option{s3store.WithPrefix(cfg.Prefix)}
		if cfg.Region != "" {
			s3opts = append(s3opts, s3store.WithRegion(cfg.Region))
		}
		if cfg.Endpoint != "" {
			s3opts = append(s3opts, s3store.WithEndpoint(cfg.Endpoint))
		}
		if store, err = s3store.New(ctx, cfg.Bucket, s3opts...); err != nil {
			return nil, err
		}
	}

	cacheOpts := []distcache.Option{
		distcache.WithCompression(comp),
		distcache.WithLogger(logger.Logger),
	}
	if cfg.IOLimit > 0 {
		cacheOpts = append(cacheOpts, distcache.WithResourceController(
			resource.NewController(resource.Config{IOLimitBytesPerSec: cfg.IOLimit}),
		))
	}
	if cfg.DynamoDBTable != "" {
		var loadOpts []func(*config.LoadOptions) error
		if cfg.Region != "" {
			loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
		}
		awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("load AWS config: %w", err)
		}
		cacheOpts = append(cacheOpts, distcache.WithIndex(dynamo.New(dynamodb.NewFromConfig(awsCfg), cfg.DynamoDBTable)))
	}
	return distcache.New(store, cacheOpts...), nil
}
