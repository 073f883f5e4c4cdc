package graph

import (
	"fmt"
	"sort"
)

// Row is a single retrieved record, keyed by dotted string path.
type Row map[string]interface{}

// UnresolvedReferenceError reports a reference whose (dataset, collection,
// field) target triple does not exist in the graph.
type UnresolvedReferenceError struct {
	From   FieldAddress
	Target Reference
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("referenced field %s does not exist (referenced from %s)", e.Target, e.From)
}

// Node is one collection placed in the dataset graph.
type Node struct {
	Address    CollectionAddress
	Dataset    *Dataset
	Collection *Collection
}

// Graph is the directed multi-graph of annotated collections, rooted at a
// synthetic identity collection.
type Graph struct {
	Nodes map[CollectionAddress]*Node
	Edges map[Edge]struct{}

	// IdentityKinds are the root fields, one per identity kind supplied
	// with the request.
	IdentityKinds []string
}

// New resolves the datasets' identity tags and references into a graph.
// Identity edges are only attached for the kinds the request actually
// supplies; references must resolve or construction fails with an
// UnresolvedReferenceError.
func New(datasets []*Dataset, identityKinds []string) (*Graph, error) {
	g := &Graph{
		Nodes: make(map[CollectionAddress]*Node),
		Edges: make(map[Edge]struct{}),
	}
	g.IdentityKinds = append(g.IdentityKinds, identityKinds...)
	sort.Strings(g.IdentityKinds)

	seeded := make(map[string]bool, len(identityKinds))
	for _, k := range identityKinds {
		seeded[k] = true
	}

	for _, ds := range datasets {
		for _, col := range ds.Collections {
			addr := CollectionAddress{Dataset: ds.FidesKey, Collection: col.Name}
			if _, dup := g.Nodes[addr]; dup {
				return nil, fmt.Errorf("duplicate collection address %s", addr)
			}
			g.Nodes[addr] = &Node{Address: addr, Dataset: ds, Collection: col}
		}
	}

	for addr, node := range g.Nodes {
		for _, f := range node.Collection.Fields {
			here := NewFieldAddress(addr, f.Path())
			if f.Identity != "" && seeded[f.Identity] {
				root := FieldAddress{
					Dataset:    RootAddress.Dataset,
					Collection: RootAddress.Collection,
					Field:      f.Identity,
				}
				g.Edges[Edge{From: root, To: here}] = struct{}{}
			}
			for _, ref := range f.References {
				remote, err := g.resolve(here, ref)
				if err != nil {
					return nil, err
				}
				switch ref.Direction {
				case DirectionIn:
					g.Edges[Edge{From: remote, To: here}] = struct{}{}
				case DirectionOut:
					g.Edges[Edge{From: here, To: remote}] = struct{}{}
				default:
					g.Edges[Edge{From: remote, To: here}] = struct{}{}
					g.Edges[Edge{From: here, To: remote}] = struct{}{}
				}
			}
		}
	}
	return g, nil
}

func (g *Graph) resolve(from FieldAddress, ref Reference) (FieldAddress, error) {
	addr := CollectionAddress{Dataset: ref.Dataset, Collection: ref.Collection}
	node, ok := g.Nodes[addr]
	if ok {
		if node.Collection.Field(ref.Field) != nil {
			return NewFieldAddress(addr, ref.Field), nil
		}
	}
	return FieldAddress{}, &UnresolvedReferenceError{From: from, Target: ref}
}

// IncomingEdges returns all edges pointing into the given collection.
func (g *Graph) IncomingEdges(addr CollectionAddress) []Edge {
	var edges []Edge
	for e := range g.Edges {
		if e.To.CollectionAddress() == addr {
			edges = append(edges, e)
		}
	}
	sortEdges(edges)
	return edges
}

// OutgoingEdges returns all edges originating at the given collection,
// including edges from the synthetic root.
func (g *Graph) OutgoingEdges(addr CollectionAddress) []Edge {
	var edges []Edge
	for e := range g.Edges {
		if e.From.CollectionAddress() == addr {
			edges = append(edges, e)
		}
	}
	sortEdges(edges)
	return edges
}

func sortEdges(edges []Edge) {
	sort.Slice(edges, func(i, j int) bool {
		return edges[i].String() < edges[j].String()
	})
}
