package graph

import (
	"fmt"
	"strings"
)

// IncompleteTraversalError reports the collections that no chain of edges
// connects back to the identity root. The traversal over the reachable
// subset is still produced alongside it; callers decide whether to proceed.
type IncompleteTraversalError struct {
	Unreachable []CollectionAddress
}

func (e *IncompleteTraversalError) Error() string {
	names := make([]string, 0, len(e.Unreachable))
	for _, a := range e.Unreachable {
		names = append(names, a.String())
	}
	return fmt.Sprintf("the following collections are not reachable by the traversal: [%s]",
		strings.Join(names, ", "))
}

// TraversalNode is a collection scheduled for execution, together with the
// incoming edges that feed it.
type TraversalNode struct {
	Node     *Node
	Incoming []Edge
	// Order is the node's position in the traversal, starting at 0.
	Order int
}

// Address is shorthand for the underlying collection address.
func (n *TraversalNode) Address() CollectionAddress {
	return n.Node.Address
}

// QueryFieldPaths is the set of dotted paths that are targets of incoming
// edges; only these may be filtered on during retrieval.
func (n *TraversalNode) QueryFieldPaths() map[string]bool {
	out := make(map[string]bool, len(n.Incoming))
	for _, e := range n.Incoming {
		out[e.To.Field] = true
	}
	return out
}

// Traversal is a topological execution plan over the reachable subset of a
// graph. Every node's incoming edges originate from strictly earlier nodes
// or from the root.
type Traversal struct {
	Graph *Graph
	Nodes []*TraversalNode
}

// Node looks up a traversal node by address, or nil.
func (t *Traversal) Node(addr CollectionAddress) *TraversalNode {
	for _, n := range t.Nodes {
		if n.Address() == addr {
			return n
		}
	}
	return nil
}

// NewTraversal plans a Kahn-style topological ordering rooted at the
// identity. Ties break ascending by (dataset, collection) so plans are
// deterministic. Nodes without a transitive path from the root, including
// nodes trapped in cycles, are reported through a non-nil
// *IncompleteTraversalError while the reachable plan is still returned.
func NewTraversal(g *Graph) (*Traversal, error) {
	reachable := reachableFromRoot(g)

	// Indegree counts only edges between reachable non-root collections;
	// identity edges are satisfied before the plan starts.
	indeg := make(map[CollectionAddress]int, len(reachable))
	for addr := range reachable {
		indeg[addr] = 0
	}
	for e := range g.Edges {
		from, to := e.From.CollectionAddress(), e.To.CollectionAddress()
		if from == RootAddress || from == to {
			continue
		}
		if reachable[from] && reachable[to] {
			indeg[to]++
		}
	}

	var ready []CollectionAddress
	for addr, n := range indeg {
		if n == 0 {
			ready = append(ready, addr)
		}
	}

	t := &Traversal{Graph: g}
	done := make(map[CollectionAddress]bool, len(reachable))
	for len(ready) > 0 {
		SortAddresses(ready)
		addr := ready[0]
		ready = ready[1:]
		done[addr] = true

		node := &TraversalNode{Node: g.Nodes[addr], Order: len(t.Nodes)}
		for _, e := range g.IncomingEdges(addr) {
			from := e.From.CollectionAddress()
			if from == addr {
				continue
			}
			if from == RootAddress || done[from] {
				node.Incoming = append(node.Incoming, e)
			}
		}
		t.Nodes = append(t.Nodes, node)

		for e := range g.Edges {
			if e.From.CollectionAddress() != addr {
				continue
			}
			to := e.To.CollectionAddress()
			if to == addr || !reachable[to] || done[to] {
				continue
			}
			indeg[to]--
			if indeg[to] == 0 {
				ready = append(ready, to)
			}
		}
	}

	var unreachable []CollectionAddress
	for addr := range g.Nodes {
		if !done[addr] {
			unreachable = append(unreachable, addr)
		}
	}
	if len(unreachable) > 0 {
		SortAddresses(unreachable)
		return t, &IncompleteTraversalError{Unreachable: unreachable}
	}
	return t, nil
}

// reachableFromRoot walks collection-level adjacency from the identity root.
func reachableFromRoot(g *Graph) map[CollectionAddress]bool {
	adj := make(map[CollectionAddress][]CollectionAddress)
	for e := range g.Edges {
		from, to := e.From.CollectionAddress(), e.To.CollectionAddress()
		adj[from] = append(adj[from], to)
	}
	seen := make(map[CollectionAddress]bool)
	queue := []CollectionAddress{RootAddress}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range adj[cur] {
			if next == RootAddress || seen[next] {
				continue
			}
			seen[next] = true
			queue = append(queue, next)
		}
	}
	return seen
}
