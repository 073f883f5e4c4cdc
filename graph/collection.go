package graph

import (
	"fmt"
	"sort"
)

// CollectionAddress names a collection as a (dataset key, collection name)
// pair. It is comparable and usable as a map key.
type CollectionAddress struct {
	Dataset    string
	Collection string
}

func (a CollectionAddress) String() string {
	return a.Dataset + ":" + a.Collection
}

// RootAddress is the synthetic identity source every traversal starts from.
var RootAddress = CollectionAddress{Dataset: "__ROOT__", Collection: "__ROOT__"}

// Collection is an ordered set of annotated fields. Field names are unique
// and at most one field may carry a given identity tag.
type Collection struct {
	Name   string
	Fields []*Field

	fieldDict map[string]*Field
	byCat     map[string][]FieldPath
}

// NewCollection builds a collection and its derived indexes.
func NewCollection(name string, fields ...*Field) (*Collection, error) {
	c := &Collection{
		Name:      name,
		Fields:    fields,
		fieldDict: make(map[string]*Field, len(fields)),
		byCat:     make(map[string][]FieldPath),
	}
	identities := make(map[string]string)
	for _, f := range fields {
		path := f.Path().String()
		if _, dup := c.fieldDict[path]; dup {
			return nil, fmt.Errorf("duplicate field %q in collection %q", path, name)
		}
		c.fieldDict[path] = f
		if f.Identity != "" {
			if prev, dup := identities[f.Identity]; dup {
				return nil, fmt.Errorf("collection %q: identity %q tagged on both %q and %q",
					name, f.Identity, prev, path)
			}
			identities[f.Identity] = path
		}
		for _, cat := range f.DataCategories {
			c.byCat[cat] = append(c.byCat[cat], f.Path())
		}
	}
	return c, nil
}

// MustNewCollection is NewCollection for statically known-good inputs.
func MustNewCollection(name string, fields ...*Field) *Collection {
	c, err := NewCollection(name, fields...)
	if err != nil {
		panic(err)
	}
	return c
}

// Field resolves a path to its field, or nil.
func (c *Collection) Field(path FieldPath) *Field {
	return c.fieldDict[path.String()]
}

// FieldDict maps dotted string paths to fields.
func (c *Collection) FieldDict() map[string]*Field {
	return c.fieldDict
}

// FieldPathsByCategory maps each data category annotated on this collection
// to the field paths carrying it.
func (c *Collection) FieldPathsByCategory() map[string][]FieldPath {
	return c.byCat
}

// FieldPaths returns all paths in field declaration order.
func (c *Collection) FieldPaths() []FieldPath {
	paths := make([]FieldPath, 0, len(c.Fields))
	for _, f := range c.Fields {
		paths = append(paths, f.Path())
	}
	return paths
}

// PrimaryKeyFieldPaths maps dotted paths to fields marked as primary keys.
func (c *Collection) PrimaryKeyFieldPaths() map[string]*Field {
	out := make(map[string]*Field)
	for path, f := range c.fieldDict {
		if f.PrimaryKey {
			out[path] = f
		}
	}
	return out
}

// Dataset owns a set of collections reachable over a single connection.
type Dataset struct {
	FidesKey      string
	Name          string
	Description   string
	ConnectionKey string
	Collections   []*Collection
}

// Collection resolves a collection by name, or nil.
func (d *Dataset) Collection(name string) *Collection {
	for _, c := range d.Collections {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// SortAddresses orders collection addresses ascending by (dataset,
// collection), the tie-break every deterministic plan uses.
func SortAddresses(addrs []CollectionAddress) {
	sort.Slice(addrs, func(i, j int) bool {
		if addrs[i].Dataset != addrs[j].Dataset {
			return addrs[i].Dataset < addrs[j].Dataset
		}
		return addrs[i].Collection < addrs[j].Collection
	})
}
