package graph

import (
	"fmt"
	"strings"
)

// FieldPath identifies a (possibly nested) leaf inside a collection as an
// ordered sequence of name levels. Collections themselves stay flat; nesting
// only exists as dotted paths.
type FieldPath struct {
	Levels []string
}

// NewFieldPath builds a path from explicit levels.
func NewFieldPath(levels ...string) FieldPath {
	return FieldPath{Levels: levels}
}

// ParseFieldPath splits a dotted string path into its levels.
func ParseFieldPath(s string) FieldPath {
	if s == "" {
		return FieldPath{}
	}
	return FieldPath{Levels: strings.Split(s, ".")}
}

// String joins the levels with dots.
func (p FieldPath) String() string {
	return strings.Join(p.Levels, ".")
}

// Last returns the final level, the only one SQL generation uses.
func (p FieldPath) Last() string {
	if len(p.Levels) == 0 {
		return ""
	}
	return p.Levels[len(p.Levels)-1]
}

// Equal reports whether two paths have the same level sequence.
func (p FieldPath) Equal(o FieldPath) bool {
	if len(p.Levels) != len(o.Levels) {
		return false
	}
	for i, l := range p.Levels {
		if o.Levels[i] != l {
			return false
		}
	}
	return true
}

// ReferenceDirection declares which side of a cross-dataset reference is the
// source of values. The zero value means bidirectional.
type ReferenceDirection string

const (
	DirectionBoth ReferenceDirection = ""
	DirectionIn   ReferenceDirection = "in"
	DirectionOut  ReferenceDirection = "out"
)

// Reference points a field at a (dataset, collection, field) triple in
// another collection.
type Reference struct {
	Dataset    string
	Collection string
	Field      FieldPath
	Direction  ReferenceDirection
}

func (r Reference) String() string {
	return fmt.Sprintf("%s:%s:%s", r.Dataset, r.Collection, r.Field)
}

// Field is a single annotated leaf of a collection.
type Field struct {
	Name           string
	DataType       *DataTypeConverter
	Length         int
	PrimaryKey     bool
	DataCategories []string
	Identity       string // identity kind this field is seeded from, if any
	References     []Reference
}

// Path returns the field's name parsed as a FieldPath.
func (f *Field) Path() FieldPath {
	return ParseFieldPath(f.Name)
}

// Cast coerces v into the field's declared data type. Fields without a
// declared type pass values through unchanged. A failed cast returns nil.
func (f *Field) Cast(v interface{}) interface{} {
	if v == nil || f.DataType == nil {
		return v
	}
	return f.DataType.Cast(v)
}
