// Package s3 provides a read-only BlobStore backed by Amazon S3.
//
// Objects are opened with HeadObject and read with ranged GetObject calls,
// so only the bytes of the requested zone rows travel over the wire.
//
//	cfg, err := config.LoadDefaultConfig(ctx)
//	if err != nil {
//	    return err
//	}
//
//	store := s3.NewStore(awss3.NewFromConfig(cfg), "sim-runs", "run-042/")
//	r := meshfeat.NewReader(store)
package s3
