package graph

import (
	"regexp"
	"sort"

	"github.com/spf13/cast"
)

// DataTypeConverter casts raw backend values into a declared data type and
// truncates masked replacements to a declared length. Converters are looked
// up by name from dataset annotations.
type DataTypeConverter struct {
	Name     string
	cast     func(v interface{}) (interface{}, bool)
	truncate func(maxLen int, v interface{}) interface{}
}

// Cast coerces v into the converter's type, returning nil when the value
// cannot represent the type.
func (c *DataTypeConverter) Cast(v interface{}) interface{} {
	if v == nil {
		return nil
	}
	out, ok := c.cast(v)
	if !ok {
		return nil
	}
	return out
}

// Truncate shortens v to maxLen where the type supports it; other types are
// returned unchanged.
func (c *DataTypeConverter) Truncate(maxLen int, v interface{}) interface{} {
	if c.truncate == nil || v == nil {
		return v
	}
	return c.truncate(maxLen, v)
}

var objectIDRE = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

var converters = map[string]*DataTypeConverter{
	"string": {
		Name: "string",
		cast: func(v interface{}) (interface{}, bool) {
			s, err := cast.ToStringE(v)
			return s, err == nil
		},
		truncate: func(maxLen int, v interface{}) interface{} {
			s, err := cast.ToStringE(v)
			if err != nil {
				return v
			}
			if len(s) > maxLen {
				return s[:maxLen]
			}
			return s
		},
	},
	"integer": {
		Name: "integer",
		cast: func(v interface{}) (interface{}, bool) {
			i, err := cast.ToInt64E(v)
			return i, err == nil
		},
	},
	"float": {
		Name: "float",
		cast: func(v interface{}) (interface{}, bool) {
			f, err := cast.ToFloat64E(v)
			return f, err == nil
		},
	},
	"boolean": {
		Name: "boolean",
		cast: func(v interface{}) (interface{}, bool) {
			b, err := cast.ToBoolE(v)
			return b, err == nil
		},
	},
	"object_id": {
		Name: "object_id",
		cast: func(v interface{}) (interface{}, bool) {
			s, err := cast.ToStringE(v)
			if err != nil || !objectIDRE.MatchString(s) {
				return nil, false
			}
			return s, true
		},
	},
}

// DataTypeByName looks up a registered converter.
func DataTypeByName(name string) (*DataTypeConverter, bool) {
	c, ok := converters[name]
	return c, ok
}

// DataTypes lists the registered converter names.
func DataTypes() []string {
	names := make([]string, 0, len(converters))
	for n := range converters {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
