// Package dataset loads annotated dataset declarations from YAML and turns
// them into the graph model the traversal planner consumes.
package dataset

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/iamkelllly/fidesops/graph"
)

// Document is the root of a dataset YAML file.
type Document struct {
	Datasets []*Declaration `yaml:"dataset"`
}

// Declaration is one dataset as written in YAML.
type Declaration struct {
	FidesKey    string        `yaml:"fides_key"`
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Collections []*Collection `yaml:"collections"`
}

type Collection struct {
	Name   string   `yaml:"name"`
	Fields []*Field `yaml:"fields"`
}

type Field struct {
	Name           string   `yaml:"name"`
	DataCategories []string `yaml:"data_categories"`
	Meta           *Meta    `yaml:"fidesops_meta"`
	// Fields is parsed only so a nested declaration can be rejected with
	// a validation error; collections are flat.
	Fields []*Field `yaml:"fields"`
}

// Meta carries the execution annotations on a field.
type Meta struct {
	DataType   string      `yaml:"data_type"`
	Length     int         `yaml:"length"`
	PrimaryKey bool        `yaml:"primary_key"`
	Identity   string      `yaml:"identity"`
	References []Reference `yaml:"references"`
}

// Reference points at a field in another dataset as "collection.field".
type Reference struct {
	Dataset   string `yaml:"dataset"`
	Field     string `yaml:"field"`
	Direction string `yaml:"direction"`
}

// Load parses one YAML document of dataset declarations.
func Load(r io.Reader) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parsing dataset yaml: %w", err)
	}
	return &doc, nil
}

// LoadFile reads and parses a dataset YAML file.
func LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Convert validates a declaration and builds its graph dataset. The
// connection key binds every collection in the dataset to one configured
// connection.
func Convert(d *Declaration, connectionKey string) (*graph.Dataset, error) {
	out := &graph.Dataset{
		FidesKey:      d.FidesKey,
		Name:          d.Name,
		Description:   d.Description,
		ConnectionKey: connectionKey,
	}
	if d.FidesKey == "" {
		return nil, fmt.Errorf("dataset declaration is missing fides_key")
	}
	for _, c := range d.Collections {
		fields, err := convertFields(d.FidesKey, c.Name, c.Fields)
		if err != nil {
			return nil, err
		}
		col, err := graph.NewCollection(c.Name, fields...)
		if err != nil {
			return nil, fmt.Errorf("dataset %s: %w", d.FidesKey, err)
		}
		out.Collections = append(out.Collections, col)
	}
	return out, nil
}

// convertFields validates a collection's field annotations. Collections
// are flat: nesting is expressed with dotted field names, and a field
// carrying its own sub-fields is a validation error.
func convertFields(datasetKey, collection string, fields []*Field) ([]*graph.Field, error) {
	var out []*graph.Field
	for _, f := range fields {
		if len(f.Fields) > 0 {
			return nil, fmt.Errorf("dataset %s: field %s.%s declares nested fields; collections are flat, use dotted field names",
				datasetKey, collection, f.Name)
		}
		gf := &graph.Field{Name: f.Name, DataCategories: f.DataCategories}
		if f.Meta != nil {
			if err := applyMeta(datasetKey, gf, f.Meta); err != nil {
				return nil, err
			}
		}
		out = append(out, gf)
	}
	return out, nil
}

func applyMeta(datasetKey string, gf *graph.Field, m *Meta) error {
	if m.DataType != "" {
		dt, ok := graph.DataTypeByName(m.DataType)
		if !ok {
			return fmt.Errorf("The data type %s is not supported.", m.DataType)
		}
		gf.DataType = dt
	}
	if m.Length != 0 {
		if m.Length < 0 {
			return fmt.Errorf("Illegal length (%d). Only positive non-zero values are allowed.", m.Length)
		}
		gf.Length = m.Length
	}
	gf.PrimaryKey = m.PrimaryKey
	gf.Identity = m.Identity
	for _, r := range m.References {
		ref, err := parseReference(datasetKey, gf.Name, r)
		if err != nil {
			return err
		}
		gf.References = append(gf.References, ref)
	}
	return nil
}

// parseReference splits the "collection.field" form and maps the declared
// direction onto the graph model.
func parseReference(datasetKey, fieldPath string, r Reference) (graph.Reference, error) {
	parts := strings.SplitN(r.Field, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return graph.Reference{}, fmt.Errorf("dataset %s: field %s has a malformed reference %q; expected collection.field",
			datasetKey, fieldPath, r.Field)
	}
	var dir graph.ReferenceDirection
	switch r.Direction {
	case "":
		dir = graph.DirectionBoth
	case "from":
		dir = graph.DirectionIn
	case "to":
		dir = graph.DirectionOut
	default:
		return graph.Reference{}, fmt.Errorf("dataset %s: field %s has an unknown reference direction %q",
			datasetKey, fieldPath, r.Direction)
	}
	return graph.Reference{
		Dataset:    r.Dataset,
		Collection: parts[0],
		Field:      graph.ParseFieldPath(parts[1]),
		Direction:  dir,
	}, nil
}

// ConvertAll converts every declaration, resolving each dataset's
// connection key through connectionKeys (keyed by fides_key; a missing
// entry leaves the key empty).
func ConvertAll(doc *Document, connectionKeys map[string]string) ([]*graph.Dataset, error) {
	out := make([]*graph.Dataset, 0, len(doc.Datasets))
	for _, d := range doc.Datasets {
		ds, err := Convert(d, connectionKeys[d.FidesKey])
		if err != nil {
			return nil, err
		}
		out = append(out, ds)
	}
	return out, nil
}
