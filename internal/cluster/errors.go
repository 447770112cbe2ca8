package cluster

import (
	"errors"
	"fmt"
)

// ErrEmptyIndex is returned when a CentroidIndex is built from zero centroids.
var ErrEmptyIndex = errors.New("centroid index: no centroids provided")

// ErrEmptyStore is returned when a Store is built from zero cluster records.
var ErrEmptyStore = errors.New("cluster store: no records provided")

// MalformedClusterError reports a construction-time validation failure for a
// single cluster record. Construction of the whole store fails on the first
// malformed record rather than silently dropping it: a partial corpus would
// produce confidently wrong "no results" with no signal.
type MalformedClusterError struct {
	ClusterID string
	Reason    string
}

func (e *MalformedClusterError) Error() string {
	return fmt.Sprintf("malformed cluster %q: %s", e.ClusterID, e.Reason)
}
