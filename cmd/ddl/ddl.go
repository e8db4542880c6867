package ddl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmdump/dmdump/cmd/util"
	"github.com/dmdump/dmdump/internal/compat"
	"github.com/dmdump/dmdump/internal/dump"
	"github.com/dmdump/dmdump/internal/exportcfg"
	"github.com/dmdump/dmdump/internal/ir"
	"github.com/dmdump/dmdump/internal/logger"
)

var (
	host         string
	port         int
	user         string
	password     string
	schema       string
	targetSchema string
	tableList    []string
	configPath   string
	client       string
	dropExisting bool
	outputDir    string
)

var DDLCmd = &cobra.Command{
	Use:   "ddl",
	Short: "Export schema DDL",
	Long:  "Export table DDL (columns, constraints, indexes, comments), sequences, and triggers for a schema as a SQL script.",
	RunE:  runDDL,
}

func init() {
	DDLCmd.Flags().StringVar(&host, "host", "localhost", "Database server host")
	DDLCmd.Flags().IntVar(&port, "port", 5236, "Database server port")
	DDLCmd.Flags().StringVar(&user, "user", "", "Database user name (required, or DMUSER)")
	DDLCmd.Flags().StringVar(&password, "password", "", "Database password (required, or DMPASSWORD)")
	DDLCmd.Flags().StringVar(&schema, "schema", "", "Source schema to export (required, or DMSCHEMA)")
	DDLCmd.Flags().StringVar(&targetSchema, "target-schema", "", "Schema name to render in the script (default: source schema)")
	DDLCmd.Flags().StringSliceVar(&tableList, "tables", nil, "Tables to export (default: all tables in the schema)")
	DDLCmd.Flags().StringVar(&configPath, "config", "", "Path to an export config file")
	DDLCmd.Flags().StringVar(&client, "client", "", "Target client: datagrip, script, or datagrip-script (default: datagrip)")
	DDLCmd.Flags().BoolVar(&dropExisting, "drop-existing", false, "Emit DROP TABLE IF EXISTS before each CREATE TABLE")
	DDLCmd.Flags().StringVar(&outputDir, "output", "exports", "Output directory")
	DDLCmd.PreRunE = util.PreRunEWithEnvVars(&host, &port, &user, &password, &schema)
}

// ResolveTargetSchema trims the requested target and falls back to the
// source schema when it is empty.
func ResolveTargetSchema(source, target string) string {
	if t := strings.TrimSpace(target); t != "" {
		return strings.ToUpper(t)
	}
	return strings.ToUpper(source)
}

func runDDL(cmd *cobra.Command, args []string) error {
	log := logger.Get()

	cfg, err := exportcfg.Load(configPath)
	if err != nil {
		return err
	}

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

	ctx := context.Background()
	inspector := ir.NewInspector(conn)

	source := strings.ToUpper(strings.TrimSpace(schema))
	target := ResolveTargetSchema(source, targetSchema)
	mode := compat.Resolve(client)

	tables, err := resolveTables(ctx, inspector, source, cfg.Resolve(tableList))
	if err != nil {
		return err
	}

	var models []*ir.Table
	for _, name := range tables {
		raw, err := inspector.Inspect(ctx, source, name)
		if err != nil {
			return fmt.Errorf("fetching table metadata for %s: %w", name, err)
		}
		model, err := ir.BuildTable(raw)
		if err != nil {
			var mErr *ir.MetadataInconsistencyError
			if errors.As(err, &mErr) {
				log.Error("Skipping table with inconsistent metadata", "table", name, "error", err)
				continue
			}
			return err
		}
		models = append(models, model)
	}
	if len(models) == 0 {
		return fmt.Errorf("no exportable tables in schema %s", source)
	}

	sequences, err := inspector.Sequences(ctx, source)
	if err != nil {
		log.Warn("Failed to list sequences; continuing without them", "error", err)
		sequences = nil
	}

	now := time.Now()
	filename := dump.FormatFilename(source, target, "ddl", now.Format(dump.FilenameTimestampLayout))
	outPath := filepath.Join(outputDir, filename)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating DDL export file: %w", err)
	}
	defer out.Close()

	script := &dump.DDLScript{
		SourceSchema: source,
		TargetSchema: target,
		Mode:         mode,
		DropExisting: dropExisting,
		Tables:       models,
		Sequences:    sequences,
		GeneratedAt:  now,
	}

	var triggerOut *os.File
	if mode == compat.ModeDataGripScript {
		triggerPath := filepath.Join(outputDir, dump.TriggerFilename(filename))
		script.TriggerFile = filepath.Base(triggerPath)
		triggerOut, err = os.Create(triggerPath)
		if err != nil {
			return fmt.Errorf("creating trigger export file: %w", err)
		}
		defer triggerOut.Close()
	}

	if err := script.Write(out, triggerOut); err != nil {
		return fmt.Errorf("writing DDL export: %w", err)
	}

	log.Info("DDL export complete",
		"schema", source,
		"target", target,
		"tables", len(models),
		"mode", mode.String(),
		"file", outPath,
	)
	fmt.Println(outPath)
	return nil
}

func resolveTables(ctx context.Context, inspector *ir.Inspector, schema string, requested []string) ([]string, error) {
	if len(requested) > 0 {
		return requested, nil
	}
	infos, err := inspector.ListTables(ctx, schema)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name
	}
	return names, nil
}
