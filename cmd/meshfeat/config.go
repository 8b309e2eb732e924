package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/hupe1980/meshfeat/codec"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config is the CLI configuration. Flags and environment variables override
// values read from the YAML file.
type Config struct {
	DataDir string `yaml:"data_dir"`
	Parts   int    `yaml:"parts"`

	S3 struct {
		Bucket string `yaml:"bucket"`
		Prefix string `yaml:"prefix"`
	} `yaml:"s3"`

	MinIO struct {
		Endpoint  string `yaml:"endpoint"`
		AccessKey string `yaml:"access_key"`
		SecretKey string `yaml:"secret_key"`
		Bucket    string `yaml:"bucket"`
		Prefix    string `yaml:"prefix"`
		Secure    bool   `yaml:"secure"`
	} `yaml:"minio"`

	Cache struct {
		Dir         string `yaml:"dir"`
		DiskBytes   int64  `yaml:"disk_bytes"`
		MemoryBytes int64  `yaml:"memory_bytes"`
		Compression string `yaml:"compression"`
	} `yaml:"cache"`

	IOLimit     int64 `yaml:"io_limit"`
	Parallelism int   `yaml:"parallelism"`
	Strict      bool  `yaml:"strict"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	Format          string `yaml:"format"`
	JSONCodec       string `yaml:"json_codec"`
	MetricsTextfile string `yaml:"metrics_textfile"`
}

func defaultConfig() Config {
	var c Config
	c.Cache.DiskBytes = 1 << 30
	c.Cache.Compression = "lz4"
	c.Parallelism = 1
	c.Log.Level = "warn"
	c.Log.Format = "text"
	c.Format = "text"
	c.JSONCodec = "go-json"
	return c
}

// loadConfigFile merges the YAML file at path into c. Unknown keys are an error.
func loadConfigFile(path string, c *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	return nil
}

// resolveConfig builds the effective configuration for cmd.
func resolveConfig(cmd *cli.Command) (Config, error) {
	root := cmd.Root()
	c := defaultConfig()

	if path := root.String("config"); path != "" {
		if err := loadConfigFile(path, &c); err != nil {
			return Config{}, err
		}
	}

	setString := func(name string, dst *string) {
		if root.IsSet(name) {
			*dst = root.String(name)
		}
	}
	setInt64 := func(name string, dst *int64) {
		if root.IsSet(name) {
			*dst = root.Int64(name)
		}
	}

	setString("data-dir", &c.DataDir)
	if root.IsSet("parts") {
		c.Parts = root.Int("parts")
	}
	setString("s3-bucket", &c.S3.Bucket)
	setString("s3-prefix", &c.S3.Prefix)
	setString("minio-endpoint", &c.MinIO.Endpoint)
	setString("minio-access-key", &c.MinIO.AccessKey)
	setString("minio-secret-key", &c.MinIO.SecretKey)
	setString("minio-bucket", &c.MinIO.Bucket)
	setString("minio-prefix", &c.MinIO.Prefix)
	if root.IsSet("minio-secure") {
		c.MinIO.Secure = root.Bool("minio-secure")
	}
	setString("cache-dir", &c.Cache.Dir)
	setInt64("cache-disk-bytes", &c.Cache.DiskBytes)
	setInt64("cache-bytes", &c.Cache.MemoryBytes)
	setString("cache-compression", &c.Cache.Compression)
	setInt64("io-limit", &c.IOLimit)
	if root.IsSet("parallelism") {
		c.Parallelism = root.Int("parallelism")
	}
	if root.IsSet("strict") {
		c.Strict = root.Bool("strict")
	}
	setString("log-level", &c.Log.Level)
	setString("log-format", &c.Log.Format)
	setString("format", &c.Format)
	setString("json-codec", &c.JSONCodec)
	setString("metrics-textfile", &c.MetricsTextfile)

	if c.DataDir == "" && c.S3.Bucket == "" && c.MinIO.Endpoint == "" {
		return Config{}, fmt.Errorf("one of --data-dir, --s3-bucket or --minio-endpoint is required")
	}
	if c.S3.Bucket != "" && c.MinIO.Endpoint != "" {
		return Config{}, fmt.Errorf("--s3-bucket and --minio-endpoint are mutually exclusive")
	}
	switch c.Format {
	case "text", "json":
	default:
		return Config{}, fmt.Errorf("unknown output format %q", c.Format)
	}
	if _, err := codec.ByName(c.JSONCodec); err != nil {
		return Config{}, err
	}
	return c, nil
}
