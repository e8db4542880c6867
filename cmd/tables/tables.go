package tables

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dmdump/dmdump/cmd/util"
	"github.com/dmdump/dmdump/internal/ir"
)

var (
	host     string
	port     int
	user     string
	password string
	schema   string
)

var TablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List the tables of a schema",
	Long:  "List the tables of a schema with their comments and estimated row counts.",
	RunE:  runTables,
}

func init() {
	TablesCmd.Flags().StringVar(&host, "host", "localhost", "Database server host")
	TablesCmd.Flags().IntVar(&port, "port", 5236, "Database server port")
	TablesCmd.Flags().StringVar(&user, "user", "", "Database user name (required, or DMUSER)")
	TablesCmd.Flags().StringVar(&password, "password", "", "Database password (required, or DMPASSWORD)")
	TablesCmd.Flags().StringVar(&schema, "schema", "", "Schema to list (required, or DMSCHEMA)")
	TablesCmd.PreRunE = util.PreRunEWithEnvVars(&host, &port, &user, &password, &schema)
}

func runTables(cmd *cobra.Command, args []string) error {
	conn, err := util.Connect(&util.ConnectionConfig{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
	})
	if err != nil {
		return err
	}
	defer conn.Close()

	inspector := ir.NewInspector(conn)
	infos, err := inspector.ListTables(context.Background(), strings.ToUpper(strings.TrimSpace(schema)))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TABLE\tROWS\tCOMMENT")
	for _, info := range infos {
		rows := "unknown"
		if info.RowCount >= 0 {
			rows = fmt.Sprintf("%d", info.RowCount)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", info.Name, rows, info.Comment)
	}
	return w.Flush()
}
