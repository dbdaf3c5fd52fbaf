// Package flowclust clusters trajectories.
//
// Each trajectory is one row of an N x M coordinate matrix holding its
// flattened per-step coordinates. flowclust groups similar trajectories and
// reports, per group, its size, the trajectories closest to and furthest from
// the group center, and the center itself in the original coordinates.
//
// # Entry Points
//
// PCA-then-cluster reduces the rows to the principal components that carry
// more than 99.9% of the variance, then runs k-means or average-linkage
// agglomerative clustering on the reduced coordinates:
//
//	c, _ := flowclust.New(flowclust.WithPostProcessing(flowclust.AHCReduced))
//	res, _ := c.PCAClusterK(ctx, data, 4)
//
// Direct k-means clusters the raw rows under a selectable metric:
//
//	res, _ := c.DirectKMeans(ctx, data, distance.MetricDTW)
//
// # Output
//
// Cluster ids are dense and ordered by population, smallest first. The
// balanced entropy of the cluster sizes is reported with EntropyDefined set
// when two or more clusters are non-empty. Runs with two or more clusters are
// scored by the configured validity evaluators and summarized to the report
// sink.
//
// # Distance Cache
//
// Direct runs score their clustering against the full N x N distance matrix.
// With WithDistanceCache the matrix is looked up by dataset fingerprint and
// metric and persisted on a miss:
//
//	store, _ := s3.New(ctx, "my-bucket", s3.WithPrefix("flowclust/"))
//	cache := distcache.New(store, distcache.WithCompression(distcache.CompressionZSTD))
//	c, _ := flowclust.New(flowclust.WithDistanceCache(cache))
package flowclust
