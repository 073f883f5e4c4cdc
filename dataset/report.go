package dataset

import (
	"errors"

	"github.com/iamkelllly/fidesops/graph"
)

// TraversalDetails reports whether a set of datasets can be fully visited
// from the given identity kinds, and which collections fall outside the
// plan when it cannot.
type TraversalDetails struct {
	IsTraversable bool
	// Unreachable lists collection addresses no identity-rooted path
	// reaches, in (dataset, collection) order.
	Unreachable []string
	// Err holds any structural failure (duplicate collections, dangling
	// references) that prevented building the graph at all.
	Err error
}

// CheckTraversability builds the graph and plans a traversal purely for
// validation. Unreachable collections are reported, not fatal.
func CheckTraversability(datasets []*graph.Dataset, identityKinds []string) TraversalDetails {
	g, err := graph.New(datasets, identityKinds)
	if err != nil {
		return TraversalDetails{Err: err}
	}
	_, err = graph.NewTraversal(g)
	if err != nil {
		var incomplete *graph.IncompleteTraversalError
		if errors.As(err, &incomplete) {
			unreachable := make([]string, len(incomplete.Unreachable))
			for i, addr := range incomplete.Unreachable {
				unreachable[i] = addr.String()
			}
			return TraversalDetails{Unreachable: unreachable}
		}
		return TraversalDetails{Err: err}
	}
	return TraversalDetails{IsTraversable: true}
}
