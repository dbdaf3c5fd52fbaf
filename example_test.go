package flowclust_test

import (
	"context"
	"fmt"
	"log"

	"github.com/hupe1980/flowclust"
	"github.com/hupe1980/flowclust/blobstore"
	"github.com/hupe1980/flowclust/distance"
	"github.com/hupe1980/flowclust/distcache"
	"github.com/hupe1980/flowclust/matrix"
)

func sixPoints() *matrix.Dense {
	m, err := matrix.FromRows([][]float32{
		{0, 0}, {0, 1}, {1, 0},
		{10, 1}, {11, 1}, {11, 0},
	})
	if err != nil {
		log.Fatal(err)
	}
	return m
}

// Example_pcaKMeans clusters the principal components with k-means.
func Example_pcaKMeans() {
	c, err := flowclust.New(flowclust.WithInit(flowclust.InitFarSamples))
	if err != nil {
		log.Fatal(err)
	}

	res, err := c.PCAClusterK(context.Background(), sixPoints(), 2)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("groups:", res.Groups)
	fmt.Printf("entropy: %.2f\n", res.Entropy)
	// Output:
	// groups: 2
	// entropy: 1.00
}

// Example_pcaAHC clusters the principal components with average-linkage AHC.
func Example_pcaAHC() {
	c, err := flowclust.New(flowclust.WithPostProcessing(flowclust.AHCReduced))
	if err != nil {
		log.Fatal(err)
	}

	res, err := c.PCAClusterK(context.Background(), sixPoints(), 2)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("merges:", len(res.Merges))
	fmt.Println("sizes:", res.Sizes)
	// Output:
	// merges: 4
	// sizes: [3 3 3 3 3 3]
}

// Example_directKMeans clusters raw rows under the Manhattan metric with a
// distance-matrix cache.
func Example_directKMeans() {
	cache := distcache.New(blobstore.NewMemoryStore())
	c, err := flowclust.New(flowclust.WithDistanceCache(cache))
	if err != nil {
		log.Fatal(err)
	}

	res, err := c.DirectKMeansK(context.Background(), sixPoints(), distance.MetricManhattan, 2)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(res.Label)
	fmt.Println("cache hit:", res.CacheHit)
	// Output:
	// For norm 1
	// cache hit: false
}
