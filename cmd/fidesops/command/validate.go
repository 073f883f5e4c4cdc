package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iamkelllly/fidesops/dataset"
)

func NewValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate dataset declarations and report traversability",
		RunE: func(cmd *cobra.Command, args []string) error {
			datasets, _, err := loadGraphInputs(cmd)
			if err != nil {
				return err
			}
			kinds, _ := cmd.Flags().GetStringSlice("identity")

			details := dataset.CheckTraversability(datasets, kinds)
			if details.Err != nil {
				return details.Err
			}
			if details.IsTraversable {
				fmt.Println("traversable: true")
				return nil
			}
			fmt.Println("traversable: false")
			for _, addr := range details.Unreachable {
				fmt.Printf("unreachable: %s\n", addr)
			}
			return nil
		},
	}
	registerGraphFlags(cmd)
	cmd.Flags().StringSlice("identity", []string{"email"}, "identity kinds seeding the traversal")
	return cmd
}
