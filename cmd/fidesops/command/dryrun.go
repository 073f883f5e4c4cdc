package command

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iamkelllly/fidesops/connector"
	"github.com/iamkelllly/fidesops/connector/mongo"
	"github.com/iamkelllly/fidesops/connector/sql"
	"github.com/iamkelllly/fidesops/graph"
)

func NewDryRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dryrun",
		Short: "Render the retrieval queries a traversal would execute, without connecting",
		RunE: func(cmd *cobra.Command, args []string) error {
			datasets, connections, err := loadGraphInputs(cmd)
			if err != nil {
				return err
			}
			kinds, _ := cmd.Flags().GetStringSlice("identity")

			g, err := graph.New(datasets, kinds)
			if err != nil {
				return err
			}
			plan, err := graph.NewTraversal(g)
			if err != nil {
				var incomplete *graph.IncompleteTraversalError
				if !errors.As(err, &incomplete) {
					return err
				}
				fmt.Printf("warning: %v\n", err)
			}

			for _, node := range plan.Nodes {
				cfg := connections[node.Node.Dataset.ConnectionKey]
				fmt.Printf("%s:\n  %s\n", node.Address(), renderQuery(node, cfg))
			}
			return nil
		},
	}
	registerGraphFlags(cmd)
	cmd.Flags().StringSlice("identity", []string{"email"}, "identity kinds seeding the traversal")
	return cmd
}

func renderQuery(node *graph.TraversalNode, cfg *connector.Config) string {
	if cfg == nil {
		return "(no connection configured)"
	}
	if cfg.Type == connector.TypeMongoDB {
		return mongo.NewQueryConfig(node, nil).DryRunQuery()
	}
	if reg, ok := sql.DialectFor(cfg.Type); ok {
		return sql.NewQueryConfig(node, nil, reg.QueryDialect).DryRunQuery()
	}
	return fmt.Sprintf("(dry run not supported for connection type %s)", cfg.Type)
}
