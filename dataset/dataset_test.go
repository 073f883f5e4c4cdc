package dataset

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamkelllly/fidesops/graph"
)

const exampleYAML = `
dataset:
  - fides_key: postgres_example_test_dataset
    name: Postgres Example Test Dataset
    description: Example of a Postgres dataset
    collections:
      - name: customer
        fields:
          - name: id
            fidesops_meta:
              primary_key: true
              data_type: integer
          - name: email
            data_categories: [user.provided.identifiable.contact.email]
            fidesops_meta:
              identity: email
              data_type: string
              length: 40
          - name: name
            data_categories: [user.provided.identifiable.name]
            fidesops_meta:
              data_type: string
      - name: orders
        fields:
          - name: id
            fidesops_meta:
              primary_key: true
              data_type: integer
          - name: customer_id
            fidesops_meta:
              data_type: integer
              references:
                - dataset: postgres_example_test_dataset
                  field: customer.id
                  direction: from
`

func TestLoadAndConvert(t *testing.T) {
	doc, err := Load(strings.NewReader(exampleYAML))
	require.NoError(t, err)
	require.Len(t, doc.Datasets, 1)

	ds, err := Convert(doc.Datasets[0], "postgres_db")
	require.NoError(t, err)
	assert.Equal(t, "postgres_example_test_dataset", ds.FidesKey)
	assert.Equal(t, "postgres_db", ds.ConnectionKey)
	require.Len(t, ds.Collections, 2)

	customer := ds.Collection("customer")
	require.NotNil(t, customer)
	email := customer.Field(graph.ParseFieldPath("email"))
	require.NotNil(t, email)
	assert.Equal(t, "email", email.Identity)
	assert.Equal(t, 40, email.Length)
	assert.Equal(t, "string", email.DataType.Name)

	orders := ds.Collection("orders")
	require.NotNil(t, orders)
	ref := orders.Field(graph.ParseFieldPath("customer_id")).References
	require.Len(t, ref, 1)
	assert.Equal(t, "postgres_example_test_dataset", ref[0].Dataset)
	assert.Equal(t, "customer", ref[0].Collection)
	assert.Equal(t, "id", ref[0].Field.String())
	assert.Equal(t, graph.DirectionIn, ref[0].Direction)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	_, err := Load(strings.NewReader(`
dataset:
  - fides_key: ds
    collections:
      - name: c
        fields:
          - name: f
            fidesops_meta:
              no_such_key: true
`))
	require.Error(t, err)
}

func TestConvertRejectsUnsupportedDataType(t *testing.T) {
	doc, err := Load(strings.NewReader(`
dataset:
  - fides_key: ds
    collections:
      - name: c
        fields:
          - name: f
            fidesops_meta:
              data_type: stringsssssss
`))
	require.NoError(t, err)

	_, err = Convert(doc.Datasets[0], "")
	require.Error(t, err)
	assert.Equal(t, "The data type stringsssssss is not supported.", err.Error())
}

func TestConvertRejectsIllegalLength(t *testing.T) {
	doc, err := Load(strings.NewReader(`
dataset:
  - fides_key: ds
    collections:
      - name: c
        fields:
          - name: f
            fidesops_meta:
              data_type: string
              length: -5
`))
	require.NoError(t, err)

	_, err = Convert(doc.Datasets[0], "")
	require.Error(t, err)
	assert.Equal(t, "Illegal length (-5). Only positive non-zero values are allowed.", err.Error())
}

func TestConvertRejectsNestedFields(t *testing.T) {
	doc, err := Load(strings.NewReader(`
dataset:
  - fides_key: mongo_test
    collections:
      - name: customer_details
        fields:
          - name: workplace_info
            fields:
              - name: employer
                data_categories: [user.provided.identifiable.workplace]
                fidesops_meta:
                  data_type: string
`))
	require.NoError(t, err)

	_, err = Convert(doc.Datasets[0], "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field customer_details.workplace_info declares nested fields")
}

func TestConvertAcceptsDottedFieldNames(t *testing.T) {
	doc, err := Load(strings.NewReader(`
dataset:
  - fides_key: mongo_test
    collections:
      - name: customer_details
        fields:
          - name: workplace_info.employer
            data_categories: [user.provided.identifiable.workplace]
            fidesops_meta:
              data_type: string
          - name: workplace_info.position
            fidesops_meta:
              data_type: string
`))
	require.NoError(t, err)

	ds, err := Convert(doc.Datasets[0], "")
	require.NoError(t, err)
	col := ds.Collection("customer_details")
	require.NotNil(t, col)
	assert.NotNil(t, col.Field(graph.ParseFieldPath("workplace_info.employer")))
	assert.NotNil(t, col.Field(graph.ParseFieldPath("workplace_info.position")))
}

func TestConvertRejectsUnknownDirection(t *testing.T) {
	doc, err := Load(strings.NewReader(`
dataset:
  - fides_key: ds
    collections:
      - name: c
        fields:
          - name: f
            fidesops_meta:
              references:
                - dataset: ds
                  field: other.id
                  direction: sideways
`))
	require.NoError(t, err)

	_, err = Convert(doc.Datasets[0], "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown reference direction "sideways"`)
}

func TestCheckTraversability(t *testing.T) {
	doc, err := Load(strings.NewReader(exampleYAML))
	require.NoError(t, err)
	ds, err := Convert(doc.Datasets[0], "postgres_db")
	require.NoError(t, err)

	details := CheckTraversability([]*graph.Dataset{ds}, []string{"email"})
	require.NoError(t, details.Err)
	assert.True(t, details.IsTraversable)
	assert.Empty(t, details.Unreachable)
}

func TestCheckTraversabilityUnreachable(t *testing.T) {
	doc, err := Load(strings.NewReader(exampleYAML + `
      - name: address
        fields:
          - name: id
            fidesops_meta:
              primary_key: true
              data_type: integer
`))
	require.NoError(t, err)
	ds, err := Convert(doc.Datasets[0], "postgres_db")
	require.NoError(t, err)

	details := CheckTraversability([]*graph.Dataset{ds}, []string{"email"})
	require.NoError(t, details.Err)
	assert.False(t, details.IsTraversable)
	assert.Equal(t, []string{"postgres_example_test_dataset:address"}, details.Unreachable)
}
