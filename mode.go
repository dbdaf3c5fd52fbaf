package flowclust

import (
	"fmt"
	"strconv"
	"strings"
)

// PostProcessing selects the clustering applied to the reduced coordinates.
type PostProcessing int

const (
	// KMeansReduced runs k-means on the principal components.
	KMeansReduced PostProcessing = 1
	// AHCReduced runs average-linkage agglomerative clustering on the
	// principal components.
	AHCReduced PostProcessing = 2
)

func (p PostProcessing) String() string {
	switch p {
	case KMeansReduced:
		return "kmeans"
	case AHCReduced:
		return "ahc"
	default:
		return fmt.Sprintf("PostProcessing(%d)", int(p))
	}
}

// Valid reports whether p is a known mode.
func (p PostProcessing) Valid() bool {
	return p == KMeansReduced || p == AHCReduced
}

// ParsePostProcessing accepts a mode name or its numeric selector.
func ParsePostProcessing(s string) (PostProcessing, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		if p := PostProcessing(n); p.Valid() {
			return p, nil
		}
		return 0, fmt.Errorf("%w: %q", ErrUnknownPostProcessing, s)
	}
	for _, p := range []PostProcessing{KMeansReduced, AHCReduced} {
		if p.String() == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPostProcessing, s)
}
