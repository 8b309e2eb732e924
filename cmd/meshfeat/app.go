package main

import (
	"github.com/urfave/cli/v3"
)

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "meshfeat",
		Usage: "query partitioned simulation-mesh feature data",
		Flags: globalFlags(),
		Commands: []*cli.Command{
			infoCommand(),
			zoneCommand(),
			partitionCommand(),
			cycleCommand(),
			seriesCommand(),
			failuresCommand(),
			summaryCommand(),
			datasetCommand(),
		},
		EnableShellCompletion: true,
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "YAML configuration file",
			Sources: cli.EnvVars("MESHFEAT_CONFIG"),
		},
		&cli.StringFlag{
			Name:    "data-dir",
			Aliases: []string{"d"},
			Usage:   "local dataset directory",
			Sources: cli.EnvVars("MESHFEAT_DATA_DIR"),
		},
		&cli.IntFlag{
			Name:    "parts",
			Usage:   "partition count (0 discovers it from the index files)",
			Sources: cli.EnvVars("MESHFEAT_PARTS"),
		},
		&cli.StringFlag{
			Name:    "s3-bucket",
			Usage:   "read the dataset from this S3 bucket",
			Sources: cli.EnvVars("MESHFEAT_S3_BUCKET"),
		},
		&cli.StringFlag{
			Name:    "s3-prefix",
			Usage:   "key prefix of the dataset within the S3 bucket",
			Sources: cli.EnvVars("MESHFEAT_S3_PREFIX"),
		},
		&cli.StringFlag{
			Name:    "minio-endpoint",
			Usage:   "read the dataset from this MinIO endpoint (host:port)",
			Sources: cli.EnvVars("MESHFEAT_MINIO_ENDPOINT"),
		},
		&cli.StringFlag{
			Name:    "minio-access-key",
			Usage:   "MinIO access key",
			Sources: cli.EnvVars("MESHFEAT_MINIO_ACCESS_KEY"),
		},
		&cli.StringFlag{
			Name:    "minio-secret-key",
			Usage:   "MinIO secret key",
			Sources: cli.EnvVars("MESHFEAT_MINIO_SECRET_KEY"),
		},
		&cli.StringFlag{
			Name:    "minio-bucket",
			Usage:   "MinIO bucket",
			Sources: cli.EnvVars("MESHFEAT_MINIO_BUCKET"),
		},
		&cli.StringFlag{
			Name:    "minio-prefix",
			Usage:   "key prefix of the dataset within the MinIO bucket",
			Sources: cli.EnvVars("MESHFEAT_MINIO_PREFIX"),
		},
		&cli.BoolFlag{
			Name:    "minio-secure",
			Usage:   "use TLS for MinIO",
			Sources: cli.EnvVars("MESHFEAT_MINIO_SECURE"),
		},
		&cli.StringFlag{
			Name:    "cache-dir",
			Usage:   "on-disk block cache for remote stores",
			Sources: cli.EnvVars("MESHFEAT_CACHE_DIR"),
		},
		&cli.Int64Flag{
			Name:    "cache-disk-bytes",
			Usage:   "size limit of the on-disk block cache",
			Sources: cli.EnvVars("MESHFEAT_CACHE_DISK_BYTES"),
		},
		&cli.StringFlag{
			Name:    "cache-compression",
			Usage:   "compression of on-disk cache blocks (none, lz4, zstd)",
			Sources: cli.EnvVars("MESHFEAT_CACHE_COMPRESSION"),
		},
		&cli.Int64Flag{
			Name:    "cache-bytes",
			Usage:   "in-memory block cache size (0 disables)",
			Sources: cli.EnvVars("MESHFEAT_CACHE_BYTES"),
		},
		&cli.Int64Flag{
			Name:    "io-limit",
			Usage:   "remote read limit in bytes per second (0 is unlimited)",
			Sources: cli.EnvVars("MESHFEAT_IO_LIMIT"),
		},
		&cli.IntFlag{
			Name:    "parallelism",
			Usage:   "partitions read concurrently by whole-mesh queries",
			Sources: cli.EnvVars("MESHFEAT_PARALLELISM"),
		},
		&cli.BoolFlag{
			Name:    "strict",
			Usage:   "fail on zones defined by more than one partition",
			Sources: cli.EnvVars("MESHFEAT_STRICT"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "debug, info, warn or error",
			Sources: cli.EnvVars("MESHFEAT_LOG_LEVEL"),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "text or json",
			Sources: cli.EnvVars("MESHFEAT_LOG_FORMAT"),
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"o"},
			Usage:   "output format: text or json",
			Sources: cli.EnvVars("MESHFEAT_FORMAT"),
		},
		&cli.StringFlag{
			Name:    "json-codec",
			Usage:   "JSON encoder: go-json or json",
			Sources: cli.EnvVars("MESHFEAT_JSON_CODEC"),
		},
		&cli.StringFlag{
			Name:    "metrics-textfile",
			Usage:   "write Prometheus metrics to this file on exit",
			Sources: cli.EnvVars("MESHFEAT_METRICS_TEXTFILE"),
		},
	}
}

func runFlag() cli.Flag {
	return &cli.IntFlag{Name: "run", Aliases: []string{"r"}, Usage: "run id"}
}

func cycleFlag() cli.Flag {
	return &cli.Int64Flag{Name: "cycle", Usage: "cycle id", Required: true}
}

func zoneFlag() cli.Flag {
	return &cli.Int64Flag{Name: "zone", Aliases: []string{"z"}, Usage: "global zone id", Required: true}
}
