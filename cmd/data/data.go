package data

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmdump/dmdump/cmd/ddl"
	"github.com/dmdump/dmdump/cmd/util"
	"github.com/dmdump/dmdump/internal/compat"
	"github.com/dmdump/dmdump/internal/dump"
	"github.com/dmdump/dmdump/internal/exportcfg"
	"github.com/dmdump/dmdump/internal/ir"
	"github.com/dmdump/dmdump/internal/logger"
)

var (
	host           string
	port           int
	user           string
	password       string
	schema         string
	targetSchema   string
	tableList      []string
	configPath     string
	batchSize      int
	clearTables    bool
	deleteFallback bool
	rowCounts      bool
	outputDir      string
)

var DataCmd = &cobra.Command{
	Use:   "data",
	Short: "Export table data",
	Long:  "Export table data as batched INSERT statements, with sequence resets and optional table clearing.",
	RunE:  runData,
}

func init() {
	DataCmd.Flags().StringVar(&host, "host", "localhost", "Database server host")
	DataCmd.Flags().IntVar(&port, "port", 5236, "Database server port")
	DataCmd.Flags().StringVar(&user, "user", "", "Database user name (required, or DMUSER)")
	DataCmd.Flags().StringVar(&password, "password", "", "Database password (required, or DMPASSWORD)")
	DataCmd.Flags().StringVar(&schema, "schema", "", "Source schema to export (required, or DMSCHEMA)")
	DataCmd.Flags().StringVar(&targetSchema, "target-schema", "", "Schema name to render in the script (default: source schema)")
	DataCmd.Flags().StringSliceVar(&tableList, "tables", nil, "Tables to export (default: all tables in the schema)")
	DataCmd.Flags().StringVar(&configPath, "config", "", "Path to an export config file")
	DataCmd.Flags().IntVar(&batchSize, "batch-size", dump.DefaultBatchSize, "Rows per INSERT statement (bounded to 100..10000)")
	DataCmd.Flags().BoolVar(&clearTables, "clear", true, "Clear each table before inserting")
	DataCmd.Flags().BoolVar(&deleteFallback, "delete-fallback", false, "Use DELETE FROM instead of TRUNCATE when clearing")
	DataCmd.Flags().BoolVar(&rowCounts, "row-counts", true, "Count rows up front for the script header")
	DataCmd.Flags().StringVar(&outputDir, "output", "exports", "Output directory")
	DataCmd.PreRunE = util.PreRunEWithEnvVars(&host, &port, &user, &password, &schema)
}

func runData(cmd *cobra.Command, args []string) error {
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
	target := ddl.ResolveTargetSchema(source, targetSchema)

	size := batchSize
	if cfg.BatchSize > 0 && !cmd.Flags().Changed("batch-size") {
		size = cfg.BatchSize
	}
	opts := dump.DataOptions{
		BatchSize:  dump.ClampBatchSize(size),
		ClearTable: clearTables,
		UseDelete:  deleteFallback,
	}

	tables, err := resolveTables(ctx, inspector, source, cfg.Resolve(tableList))
	if err != nil {
		return err
	}

	sequences, err := inspector.Sequences(ctx, source)
	if err != nil {
		log.Warn("Failed to list sequences; continuing without them", "error", err)
		sequences = nil
	}

	var counts map[string]int64
	if rowCounts {
		counts = make(map[string]int64, len(tables))
		for _, name := range tables {
			n, err := inspector.RowCount(ctx, source, name)
			if err != nil {
				log.Warn("Failed to count rows", "table", name, "error", err)
				continue
			}
			counts[name] = n
		}
	}

	now := time.Now()
	filename := dump.FormatFilename(source, target, "data", now.Format(dump.FilenameTimestampLayout))
	outPath := filepath.Join(outputDir, filename)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating data export file: %w", err)
	}
	defer out.Close()

	script := &dump.DataScript{
		SourceSchema: source,
		TargetSchema: target,
		Sequences:    sequences,
		GeneratedAt:  now,
		Options:      opts,
		RowCounts:    counts,
	}
	if err := script.WriteHeader(out, tables); err != nil {
		return fmt.Errorf("writing data export header: %w", err)
	}

	gen := dump.NewGenerator(target, compat.ModeDataGrip)
	results := make([]dump.TableResult, 0, len(tables))
	var total int64

	for i, name := range tables {
		if i > 0 {
			fmt.Fprintln(out)
		}
		result := exportOne(ctx, inspector, gen, out, source, name, opts)
		if result.Err != nil {
			log.Error("Table data export failed", "table", name, "error", result.Err)
		} else {
			total += result.Rows
			log.Debug("Exported table data", "table", name, "rows", result.Rows)
		}
		results = append(results, result)
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	log.Info("Data export complete",
		"schema", source,
		"target", target,
		"tables", len(results),
		"failed", failed,
		"rows", total,
		"file", outPath,
	)
	fmt.Println(outPath)
	if failed > 0 {
		return fmt.Errorf("%d of %d tables failed to export", failed, len(results))
	}
	return nil
}

// exportOne exports a single table's data. Failures abort only this
// table; the value-encoding failure mode in particular must not take
// down the rest of the run.
func exportOne(ctx context.Context, inspector *ir.Inspector, gen *dump.Generator, out *os.File, source, name string, opts dump.DataOptions) dump.TableResult {
	raw, err := inspector.Inspect(ctx, source, name)
	if err != nil {
		return dump.TableResult{Table: name, Err: err}
	}
	model, err := ir.BuildTable(raw)
	if err != nil {
		return dump.TableResult{Table: name, Err: err}
	}

	columns := make([]string, len(model.Columns))
	for i, col := range model.Columns {
		columns[i] = col.Name
	}
	rows, err := inspector.QueryRows(ctx, source, name, columns)
	if err != nil {
		return dump.TableResult{Table: name, Err: err}
	}
	defer rows.Close()

	count, err := gen.ExportTableData(out, model, dump.NewSQLRowSource(rows, len(columns)), opts)
	if err != nil {
		var encErr *dump.UnsupportedValueEncodingError
		if errors.As(err, &encErr) {
			return dump.TableResult{Table: name, Rows: count, Err: encErr}
		}
		return dump.TableResult{Table: name, Rows: count, Err: err}
	}
	return dump.TableResult{Table: name, Rows: count}
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
