package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hupe1980/meshfeat"
	"github.com/hupe1980/meshfeat/blobstore"
	minioblob "github.com/hupe1980/meshfeat/blobstore/minio"
	s3blob "github.com/hupe1980/meshfeat/blobstore/s3"
	"github.com/hupe1980/meshfeat/codec"
	"github.com/hupe1980/meshfeat/internal/cache"
	"github.com/hupe1980/meshfeat/internal/compress"
	"github.com/hupe1980/meshfeat/internal/resource"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/urfave/cli/v3"
)

// env is the per-invocation state shared by all commands.
type env struct {
	cfg     Config
	store   blobstore.BlobStore
	reader  *meshfeat.Reader
	logger  *meshfeat.Logger
	metrics *promCollector
	codec   codec.Codec
	out     io.Writer

	closers []io.Closer
}

func setup(ctx context.Context, cmd *cli.Command) (*env, error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg, cmd.Root().ErrWriter)
	if err != nil {
		return nil, err
	}

	jc, err := codec.ByName(cfg.JSONCodec)
	if err != nil {
		return nil, err
	}

	e := &env{
		cfg:     cfg,
		logger:  logger,
		metrics: newPromCollector(),
		codec:   jc,
		out:     cmd.Root().Writer,
	}
	if e.out == nil {
		e.out = os.Stdout
	}

	e.store, err = e.openStore(ctx)
	if err != nil {
		return nil, err
	}

	opts := []meshfeat.Option{
		meshfeat.WithLogger(logger),
		meshfeat.WithMetricsCollector(e.metrics),
		meshfeat.WithParallelism(cfg.Parallelism),
		meshfeat.WithBlockCache(cfg.Cache.MemoryBytes),
	}
	if cfg.Strict {
		opts = append(opts, meshfeat.WithStrictValidation())
	}

	if cfg.Parts > 0 {
		e.reader, err = meshfeat.NewReader(e.store, cfg.Parts, opts...)
	} else {
		e.reader, err = meshfeat.Open(ctx, e.store, opts...)
	}
	if err != nil {
		_ = e.Close()
		return nil, err
	}
	e.closers = append(e.closers, e.reader)
	return e, nil
}

func newLogger(cfg Config, w io.Writer) (*meshfeat.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	if w == nil {
		w = os.Stderr
	}

	hopts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(cfg.Log.Format) {
	case "json":
		return meshfeat.NewLogger(slog.NewJSONHandler(w, hopts)), nil
	case "text", "":
		return meshfeat.NewLogger(slog.NewTextHandler(w, hopts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Log.Format)
	}
}

func (e *env) openStore(ctx context.Context) (blobstore.BlobStore, error) {
	var rc *resource.Controller
	if e.cfg.IOLimit > 0 {
		rc = resource.NewController(resource.Config{IOLimitBytesPerSec: e.cfg.IOLimit})
	}

	var store blobstore.BlobStore
	switch {
	case e.cfg.S3.Bucket != "":
		awsCfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, err
		}
		store = s3blob.NewStore(awss3.NewFromConfig(awsCfg), e.cfg.S3.Bucket, e.cfg.S3.Prefix, s3blob.WithResourceController(rc))
		e.logger.InfoContext(ctx, "using s3 store", "bucket", e.cfg.S3.Bucket, "prefix", e.cfg.S3.Prefix)

	case e.cfg.MinIO.Endpoint != "":
		if e.cfg.MinIO.Bucket == "" {
			return nil, errors.New("--minio-bucket is required with --minio-endpoint")
		}
		client, err := minio.New(e.cfg.MinIO.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(e.cfg.MinIO.AccessKey, e.cfg.MinIO.SecretKey, ""),
			Secure: e.cfg.MinIO.Secure,
		})
		if err != nil {
			return nil, err
		}
		store = minioblob.NewStore(client, e.cfg.MinIO.Bucket, e.cfg.MinIO.Prefix, minioblob.WithResourceController(rc))
		e.logger.InfoContext(ctx, "using minio store", "endpoint", e.cfg.MinIO.Endpoint, "bucket", e.cfg.MinIO.Bucket)

	default:
		return blobstore.NewLocalStore(e.cfg.DataDir), nil
	}

	if e.cfg.Cache.Dir == "" {
		return store, nil
	}

	ct, err := compress.ParseType(e.cfg.Cache.Compression)
	if err != nil {
		return nil, err
	}
	disk, err := cache.NewDiskBlockCache(cache.DiskCacheConfig{
		RootDir:      e.cfg.Cache.Dir,
		MaxSizeBytes: e.cfg.Cache.DiskBytes,
		Compression:  ct,
	})
	if err != nil {
		return nil, err
	}
	e.closers = append(e.closers, disk)
	e.logger.DebugContext(ctx, "disk block cache enabled", "dir", e.cfg.Cache.Dir, "compression", ct.String())

	return blobstore.NewCachingStore(store, disk, 0), nil
}

// Close releases caches and writes the metrics textfile, if configured.
func (e *env) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		errs = append(errs, e.closers[i].Close())
	}
	if e.cfg.MetricsTextfile != "" {
		errs = append(errs, e.metrics.writeTextfile(e.cfg.MetricsTextfile))
	}
	return errors.Join(errs...)
}

// emit writes v as JSON, or calls text for the text format.
func (e *env) emit(v any, text func(w io.Writer) error) error {
	if e.cfg.Format == "json" {
		return codec.Encode(e.out, e.codec, v)
	}
	return text(e.out)
}
