// Package minio stores cache blobs in MinIO or any S3-compatible server
// through the MinIO client.
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := minioblob.NewStore(client, "trajectories", "distcache/")
//	cache := distcache.New(store)
package minio
