// Package cluster groups items by a pairwise distance threshold.
package cluster

// Greedy partitions items into clusters in scan order.
//
// Each item joins the first existing cluster whose current members are all
// within maxDist of it, and otherwise starts a new cluster. Membership is only
// checked against the members present when the item is added, so the result
// depends on input order and is not a true single-linkage clustering. Callers
// rely on that order: the first item seen anchors its cluster.
func Greedy[T any](items []T, dist func(a, b T) float64, maxDist float64) [][]T {
	var clusters [][]T
	for _, item := range items {
		added := false
		for ci, c := range clusters {
			if withinAll(c, item, dist, maxDist) {
				clusters[ci] = append(c, item)
				added = true
				break
			}
		}
		if !added {
			clusters = append(clusters, []T{item})
		}
	}
	return clusters
}

func withinAll[T any](members []T, item T, dist func(a, b T) float64, maxDist float64) bool {
	for _, m := range members {
		if dist(m, item) > maxDist {
			return false
		}
	}
	return true
}

// Middle returns the element at the middle index of each cluster, len/2.
func Middle[T any](clusters [][]T) []T {
	out := make([]T, 0, len(clusters))
	for _, c := range clusters {
		if len(c) == 0 {
			continue
		}
		out = append(out, c[len(c)/2])
	}
	return out
}
