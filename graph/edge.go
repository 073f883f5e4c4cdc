package graph

// FieldAddress names a single field inside a collection. The Field component
// is the dotted string path so the whole address stays comparable.
type FieldAddress struct {
	Dataset    string
	Collection string
	Field      string
}

func NewFieldAddress(addr CollectionAddress, path FieldPath) FieldAddress {
	return FieldAddress{Dataset: addr.Dataset, Collection: addr.Collection, Field: path.String()}
}

func (f FieldAddress) CollectionAddress() CollectionAddress {
	return CollectionAddress{Dataset: f.Dataset, Collection: f.Collection}
}

func (f FieldAddress) FieldPath() FieldPath {
	return ParseFieldPath(f.Field)
}

func (f FieldAddress) String() string {
	return f.Dataset + ":" + f.Collection + ":" + f.Field
}

// Edge states that values observed at From can be used to filter To.
type Edge struct {
	From FieldAddress
	To   FieldAddress
}

func (e Edge) String() string {
	return e.From.String() + " -> " + e.To.String()
}
