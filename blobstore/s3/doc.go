// Package s3 stores cache blobs in Amazon S3.
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("distcache/"),
//	    s3.WithRegion("eu-central-1"),
//	)
//
// Reads issue ranged GETs; writes stream through the multipart uploader.
package s3
