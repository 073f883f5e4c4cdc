// The fidesops command validates dataset declarations and executes privacy
// requests against configured datastores.
package main

import (
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/iamkelllly/fidesops/cmd/fidesops/command"
	"github.com/iamkelllly/fidesops/config"
	"github.com/iamkelllly/fidesops/flog"
	_ "github.com/iamkelllly/fidesops/flog/glog"

	// Load all supported connector backends.
	_ "github.com/iamkelllly/fidesops/connector/https"
	_ "github.com/iamkelllly/fidesops/connector/mongo"
	_ "github.com/iamkelllly/fidesops/connector/sql/mssql"
	_ "github.com/iamkelllly/fidesops/connector/sql/mysql"
	_ "github.com/iamkelllly/fidesops/connector/sql/postgres"
	_ "github.com/iamkelllly/fidesops/connector/sql/redshift"
	_ "github.com/iamkelllly/fidesops/connector/sql/snowflake"
	_ "github.com/iamkelllly/fidesops/connector/sql/sqlite"
)

const (
	flagConfig  = "config"
	flagVerbose = "verbose"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fidesops",
		Short: "fidesops is a privacy request execution engine",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v, _ := cmd.Flags().GetInt(flagVerbose)
			flog.SetV(v)
			if path, _ := cmd.Flags().GetString(flagConfig); path != "" {
				viper.SetConfigFile(path)
				if err := viper.ReadInConfig(); err != nil {
					return err
				}
				flog.Infof("using config file: %s", viper.ConfigFileUsed())
			}
			if addr := viper.GetString(config.KeyMetricsAddress); addr != "" {
				go serveMetrics(addr)
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().String(flagConfig, "", "path to an explicit configuration file")
	rootCmd.PersistentFlags().IntP(flagVerbose, "v", 0, "verbosity level")

	rootCmd.AddCommand(
		command.NewValidateCmd(),
		command.NewDryRunCmd(),
		command.NewRunCmd(),
		command.NewVersionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		flog.Warningf("metrics endpoint: %v", err)
	}
}
