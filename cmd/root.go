package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dmdump/dmdump/cmd/data"
	"github.com/dmdump/dmdump/cmd/ddl"
	"github.com/dmdump/dmdump/cmd/tables"
	"github.com/dmdump/dmdump/internal/logger"
	"github.com/dmdump/dmdump/internal/version"
)

var Debug bool

var RootCmd = &cobra.Command{
	Use:   "dmdump",
	Short: "DM8 schema and data export tool",
	Long: fmt.Sprintf(`dmdump exports DM8 (Dameng) schema DDL and table data as SQL scripts.

Version: %s %s

Commands:
  ddl     Export schema DDL (tables, constraints, indexes, sequences, triggers)
  data    Export table data as batched INSERT scripts
  tables  List the tables of a schema

Use "dmdump [command] --help" for more information about a command.`,
		version.App(), version.Platform()),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogger()
	},
}

func init() {
	RootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "Enable debug logging")
	RootCmd.AddCommand(ddl.DDLCmd)
	RootCmd.AddCommand(data.DataCmd)
	RootCmd.AddCommand(tables.TablesCmd)
	RootCmd.AddCommand(versionCmd)
}

func setupLogger() {
	level := slog.LevelInfo
	if Debug {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger.SetGlobal(slog.New(handler), Debug)
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
