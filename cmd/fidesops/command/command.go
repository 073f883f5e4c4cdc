// Package command implements the fidesops CLI subcommands.
package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iamkelllly/fidesops/config"
	"github.com/iamkelllly/fidesops/connector"
	"github.com/iamkelllly/fidesops/dataset"
	"github.com/iamkelllly/fidesops/graph"
)

const (
	flagDatasets    = "datasets"
	flagConnections = "connections"
	flagPolicy      = "policy"
	flagEmail       = "email"
	flagPhoneNumber = "phone-number"
)

func registerGraphFlags(cmd *cobra.Command) {
	cmd.Flags().String(flagDatasets, "", "dataset declarations to load (yaml)")
	cmd.Flags().String(flagConnections, "", "connection configurations to load (yaml)")
	cmd.MarkFlagRequired(flagDatasets)
	cmd.MarkFlagRequired(flagConnections)
}

// loadGraphInputs reads the dataset and connection files named by flags and
// resolves each dataset's connection key. Every dataset must map onto a
// configured connection.
func loadGraphInputs(cmd *cobra.Command) ([]*graph.Dataset, map[string]*connector.Config, error) {
	datasetsPath, _ := cmd.Flags().GetString(flagDatasets)
	connectionsPath, _ := cmd.Flags().GetString(flagConnections)

	connections, err := config.LoadConnectionsFile(connectionsPath)
	if err != nil {
		return nil, nil, err
	}
	doc, err := dataset.LoadFile(datasetsPath)
	if err != nil {
		return nil, nil, err
	}

	// Datasets bind to connections by sharing the connection's key as their
	// fides_key. A dataset without a matching connection cannot execute.
	keys := make(map[string]string, len(doc.Datasets))
	for _, d := range doc.Datasets {
		if _, ok := connections[d.FidesKey]; !ok {
			return nil, nil, fmt.Errorf("dataset %s has no connection configured under the same key", d.FidesKey)
		}
		keys[d.FidesKey] = d.FidesKey
	}
	datasets, err := dataset.ConvertAll(doc, keys)
	if err != nil {
		return nil, nil, err
	}
	return datasets, connections, nil
}
