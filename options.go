package meshfeat

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	strict           bool
	parallelism      int
	blockCacheBytes  int64
}

func defaultOptions() options {
	return options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		parallelism:      1,
	}
}

// Option configures a Reader.
type Option func(*options)

// WithLogger sets the logger. Pass nil to disable logging.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &meshfeat.BasicMetricsCollector{}
//	r, _ := meshfeat.Open(ctx, store, meshfeat.WithMetricsCollector(metrics))
//	// ... run queries ...
//	stats := metrics.GetStats()
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithStrictValidation makes the zone table build fail on a zone id that
// appears in more than one partition, or on partitions whose metric names
// differ from partition 0. By default the later partition wins and a
// warning is logged.
func WithStrictValidation() Option {
	return func(o *options) {
		o.strict = true
	}
}

// WithParallelism bounds how many partitions ReadAllZonesInCycle reads at
// once. Values below 1 mean sequential.
func WithParallelism(n int) Option {
	return func(o *options) {
		o.parallelism = max(n, 1)
	}
}

// WithBlockCache caches feature file blocks in memory, up to bytes.
func WithBlockCache(bytes int64) Option {
	return func(o *options) {
		o.blockCacheBytes = bytes
	}
}
