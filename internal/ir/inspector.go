package ir

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Inspector reads DM8 catalog views and assembles raw table snapshots.
// It never decodes field encodings; that is BuildTable's job.
type Inspector struct {
	db *sql.DB
}

func NewInspector(db *sql.DB) *Inspector {
	return &Inspector{db: db}
}

// ListTables returns the tables of a schema with comments and the
// catalog's row estimate (-1 when the statistics are absent).
func (i *Inspector) ListTables(ctx context.Context, schema string) ([]*TableInfo, error) {
	query := `
		SELECT T.TABLE_NAME, NVL(C.COMMENTS, ''), NVL(T.NUM_ROWS, -1)
		FROM ALL_TABLES T
		LEFT JOIN ALL_TAB_COMMENTS C
		  ON C.OWNER = T.OWNER AND C.TABLE_NAME = T.TABLE_NAME
		WHERE T.OWNER = ?
		ORDER BY T.TABLE_NAME`

	rows, err := i.db.QueryContext(ctx, query, schema)
	if err != nil {
		return nil, fmt.Errorf("listing tables for schema %s: %w", schema, err)
	}
	defer rows.Close()

	var tables []*TableInfo
	for rows.Next() {
		info := &TableInfo{}
		if err := rows.Scan(&info.Name, &info.Comment, &info.RowCount); err != nil {
			return nil, err
		}
		tables = append(tables, info)
	}
	return tables, rows.Err()
}

// Inspect collects the full raw snapshot of one table. The independent
// catalog views are queried concurrently.
func (i *Inspector) Inspect(ctx context.Context, schema, table string) (*RawTable, error) {
	raw := &RawTable{Schema: schema, Name: table, RowCount: -1}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		comment, rowCount, err := i.tableMeta(ctx, schema, table)
		if err != nil {
			return err
		}
		raw.Comment = comment
		raw.RowCount = rowCount
		return nil
	})
	g.Go(func() error {
		cols, err := i.columns(ctx, schema, table)
		if err != nil {
			return err
		}
		raw.Columns = cols
		return nil
	})
	g.Go(func() error {
		pk, uniques, checks, fks, err := i.constraints(ctx, schema, table)
		if err != nil {
			return err
		}
		raw.PrimaryKey = pk
		raw.UniqueConstraints = uniques
		raw.CheckConstraints = checks
		raw.ForeignKeys = fks
		return nil
	})
	g.Go(func() error {
		idx, err := i.indexes(ctx, schema, table)
		if err != nil {
			return err
		}
		raw.Indexes = idx
		return nil
	})
	g.Go(func() error {
		trgs, err := i.triggers(ctx, schema, table)
		if err != nil {
			return err
		}
		raw.Triggers = trgs
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("inspecting %s.%s: %w", schema, table, err)
	}
	return raw, nil
}

func (i *Inspector) tableMeta(ctx context.Context, schema, table string) (string, int64, error) {
	query := `
		SELECT NVL(C.COMMENTS, ''), NVL(T.NUM_ROWS, -1)
		FROM ALL_TABLES T
		LEFT JOIN ALL_TAB_COMMENTS C
		  ON C.OWNER = T.OWNER AND C.TABLE_NAME = T.TABLE_NAME
		WHERE T.OWNER = ? AND T.TABLE_NAME = ?`

	var comment string
	var rowCount int64
	err := i.db.QueryRowContext(ctx, query, schema, table).Scan(&comment, &rowCount)
	if err == sql.ErrNoRows {
		return "", -1, fmt.Errorf("table %s.%s not found", schema, table)
	}
	return comment, rowCount, err
}

func (i *Inspector) columns(ctx context.Context, schema, table string) ([]RawColumn, error) {
	query := `
		SELECT
			C.COLUMN_NAME,
			C.DATA_TYPE,
			C.DATA_LENGTH,
			C.DATA_PRECISION,
			C.DATA_SCALE,
			NVL(C.CHAR_USED, ''),
			C.NULLABLE,
			NVL(M.COMMENTS, ''),
			C.DATA_DEFAULT,
			NVL(SC.INFO2, 0)
		FROM ALL_TAB_COLUMNS C
		LEFT JOIN ALL_COL_COMMENTS M
		  ON M.OWNER = C.OWNER AND M.TABLE_NAME = C.TABLE_NAME AND M.COLUMN_NAME = C.COLUMN_NAME
		LEFT JOIN (
			SELECT COL.NAME AS COLUMN_NAME, COL.INFO2
			FROM SYSCOLUMNS COL
			JOIN SYSOBJECTS TAB ON TAB.ID = COL.ID AND TAB.SUBTYPE$ = 'UTAB'
			JOIN SYSOBJECTS SCH ON SCH.ID = TAB.SCHID AND SCH.TYPE$ = 'SCH'
			WHERE SCH.NAME = ? AND TAB.NAME = ?
		) SC ON SC.COLUMN_NAME = C.COLUMN_NAME
		WHERE C.OWNER = ? AND C.TABLE_NAME = ?
		ORDER BY C.COLUMN_ID`

	rows, err := i.db.QueryContext(ctx, query, schema, table, schema, table)
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}
	defer rows.Close()

	var cols []RawColumn
	hasIdentity := false
	for rows.Next() {
		var (
			col           RawColumn
			length        sql.NullInt64
			precision     sql.NullInt64
			scale         sql.NullInt64
			defaultClause sql.NullString
		)
		if err := rows.Scan(&col.Name, &col.DataType, &length, &precision, &scale,
			&col.CharUsed, &col.Nullable, &col.Comment, &defaultClause, &col.Flags); err != nil {
			return nil, err
		}
		col.Length = nullableInt(length)
		col.Precision = nullableInt(precision)
		col.Scale = nullableInt(scale)
		col.DefaultValue = defaultClause.String
		if col.Flags&identityFlag != 0 {
			hasIdentity = true
		}
		cols = append(cols, col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if hasIdentity {
		if err := i.fillIdentity(ctx, schema, table, cols); err != nil {
			return nil, err
		}
	}
	return cols, nil
}

// fillIdentity reads the identity seed and increment. DM8 stores them
// per table, not per column; every flagged column receives the pair and
// BuildTable keeps only the first.
func (i *Inspector) fillIdentity(ctx context.Context, schema, table string, cols []RawColumn) error {
	query := `SELECT NVL(INFO5, 1), NVL(INFO6, 1) FROM SYSOBJECTS TAB
		JOIN SYSOBJECTS SCH ON SCH.ID = TAB.SCHID AND SCH.TYPE$ = 'SCH'
		WHERE SCH.NAME = ? AND TAB.NAME = ? AND TAB.SUBTYPE$ = 'UTAB'`

	var seed, increment int64
	err := i.db.QueryRowContext(ctx, query, schema, table).Scan(&seed, &increment)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading identity seed: %w", err)
	}
	for idx := range cols {
		if cols[idx].Flags&identityFlag != 0 {
			s, inc := seed, increment
			cols[idx].IdentitySeed = &s
			cols[idx].IdentityIncrement = &inc
		}
	}
	return nil
}

func (i *Inspector) constraints(ctx context.Context, schema, table string) (pk []string, uniques []*UniqueConstraint, checks []*CheckConstraint, fks []*ForeignKey, err error) {
	query := `
		SELECT
			C.CONSTRAINT_NAME,
			C.CONSTRAINT_TYPE,
			NVL(CC.COLUMN_NAME, ''),
			NVL(C.SEARCH_CONDITION, ''),
			NVL(RC.OWNER, ''),
			NVL(RC.TABLE_NAME, ''),
			NVL(RCC.COLUMN_NAME, ''),
			NVL(C.DELETE_RULE, ''),
			NVL(C.UPDATE_RULE, '')
		FROM ALL_CONSTRAINTS C
		LEFT JOIN ALL_CONS_COLUMNS CC
		  ON CC.OWNER = C.OWNER AND CC.CONSTRAINT_NAME = C.CONSTRAINT_NAME AND CC.TABLE_NAME = C.TABLE_NAME
		LEFT JOIN ALL_CONSTRAINTS RC
		  ON RC.OWNER = C.R_OWNER AND RC.CONSTRAINT_NAME = C.R_CONSTRAINT_NAME
		LEFT JOIN ALL_CONS_COLUMNS RCC
		  ON RCC.OWNER = RC.OWNER AND RCC.CONSTRAINT_NAME = RC.CONSTRAINT_NAME
		 AND RCC.POSITION = CC.POSITION
		WHERE C.OWNER = ? AND C.TABLE_NAME = ?
		  AND C.CONSTRAINT_TYPE IN ('P', 'U', 'C', 'R')
		ORDER BY C.CONSTRAINT_NAME, CC.POSITION`

	rows, qerr := i.db.QueryContext(ctx, query, schema, table)
	if qerr != nil {
		return nil, nil, nil, nil, fmt.Errorf("reading constraints: %w", qerr)
	}
	defer rows.Close()

	uniqueByName := make(map[string]*UniqueConstraint)
	fkByName := make(map[string]*ForeignKey)
	seenCheck := make(map[string]bool)

	for rows.Next() {
		var (
			name, ctype, column, condition string
			refSchema, refTable, refColumn string
			deleteRule, updateRule         string
		)
		if err := rows.Scan(&name, &ctype, &column, &condition,
			&refSchema, &refTable, &refColumn, &deleteRule, &updateRule); err != nil {
			return nil, nil, nil, nil, err
		}

		switch ctype {
		case "P":
			if column != "" {
				pk = append(pk, column)
			}
		case "U":
			uc := uniqueByName[name]
			if uc == nil {
				uc = &UniqueConstraint{Name: name}
				uniqueByName[name] = uc
				uniques = append(uniques, uc)
			}
			if column != "" {
				uc.Columns = append(uc.Columns, column)
			}
		case "C":
			// DM8 materializes NOT NULL as a check constraint; those are
			// already covered by the NULLABLE column flag.
			if seenCheck[name] || isNotNullCondition(condition) {
				seenCheck[name] = true
				continue
			}
			seenCheck[name] = true
			checks = append(checks, &CheckConstraint{Name: name, Condition: condition})
		case "R":
			fk := fkByName[name]
			if fk == nil {
				ref := refTable
				if refSchema != "" && refSchema != schema {
					ref = refSchema + "." + refTable
				}
				fk = &ForeignKey{
					Name:            name,
					ReferencedTable: ref,
					DeleteRule:      deleteRule,
					UpdateRule:      updateRule,
				}
				fkByName[name] = fk
				fks = append(fks, fk)
			}
			if column != "" {
				fk.Columns = append(fk.Columns, column)
			}
			if refColumn != "" {
				fk.ReferencedColumns = append(fk.ReferencedColumns, refColumn)
			}
		}
	}
	return pk, uniques, checks, fks, rows.Err()
}

func isNotNullCondition(condition string) bool {
	c := strings.ToUpper(strings.TrimSpace(condition))
	return strings.HasSuffix(c, "IS NOT NULL") && !strings.ContainsAny(c, "()")
}

func (i *Inspector) indexes(ctx context.Context, schema, table string) ([]RawIndex, error) {
	query := `
		SELECT X.INDEX_NAME, NVL(X.UNIQUENESS, ''), XC.COLUMN_NAME
		FROM ALL_INDEXES X
		JOIN ALL_IND_COLUMNS XC
		  ON XC.INDEX_OWNER = X.OWNER AND XC.INDEX_NAME = X.INDEX_NAME
		WHERE X.TABLE_OWNER = ? AND X.TABLE_NAME = ?
		ORDER BY X.INDEX_NAME, XC.COLUMN_POSITION`

	rows, err := i.db.QueryContext(ctx, query, schema, table)
	if err != nil {
		return nil, fmt.Errorf("reading indexes: %w", err)
	}
	defer rows.Close()

	byName := make(map[string]int)
	var idxs []RawIndex
	for rows.Next() {
		var name, uniqueness, column string
		if err := rows.Scan(&name, &uniqueness, &column); err != nil {
			return nil, err
		}
		pos, ok := byName[name]
		if !ok {
			pos = len(idxs)
			byName[name] = pos
			idxs = append(idxs, RawIndex{Name: name, Uniqueness: uniqueness})
		}
		idxs[pos].Columns = append(idxs[pos].Columns, column)
	}
	return idxs, rows.Err()
}

func (i *Inspector) triggers(ctx context.Context, schema, table string) ([]RawTrigger, error) {
	query := `
		SELECT TRIGGER_NAME, NVL(TRIGGER_TYPE, ''), NVL(TRIGGERING_EVENT, ''), NVL(TRIGGER_BODY, '')
		FROM ALL_TRIGGERS
		WHERE TABLE_OWNER = ? AND TABLE_NAME = ?
		ORDER BY TRIGGER_NAME`

	rows, err := i.db.QueryContext(ctx, query, schema, table)
	if err != nil {
		return nil, fmt.Errorf("reading triggers: %w", err)
	}
	defer rows.Close()

	var trgs []RawTrigger
	for rows.Next() {
		var t RawTrigger
		if err := rows.Scan(&t.Name, &t.TriggerType, &t.TriggeringEvent, &t.Body); err != nil {
			return nil, err
		}
		trgs = append(trgs, t)
	}
	return trgs, rows.Err()
}

// Sequences returns the schema's sequences in name order.
func (i *Inspector) Sequences(ctx context.Context, schema string) ([]*Sequence, error) {
	query := `
		SELECT SEQUENCE_NAME, MIN_VALUE, MAX_VALUE, INCREMENT_BY,
		       NVL(CYCLE_FLAG, 'N'), NVL(ORDER_FLAG, 'N'), CACHE_SIZE, LAST_NUMBER
		FROM ALL_SEQUENCES
		WHERE SEQUENCE_OWNER = ?
		ORDER BY SEQUENCE_NAME`

	rows, err := i.db.QueryContext(ctx, query, schema)
	if err != nil {
		return nil, fmt.Errorf("listing sequences for schema %s: %w", schema, err)
	}
	defer rows.Close()

	var seqs []*Sequence
	for rows.Next() {
		var (
			seq                  Sequence
			minV, maxV           sql.NullInt64
			cycleFlag, orderFlag string
			cache                sql.NullInt64
			last                 sql.NullInt64
		)
		if err := rows.Scan(&seq.Name, &minV, &maxV, &seq.IncrementBy,
			&cycleFlag, &orderFlag, &cache, &last); err != nil {
			return nil, err
		}
		seq.MinValue = nullableInt64(minV)
		seq.MaxValue = nullableInt64(maxV)
		seq.CacheSize = nullableInt64(cache)
		seq.StartWith = nullableInt64(last)
		seq.Cycle = strings.EqualFold(cycleFlag, "Y")
		seq.Order = strings.EqualFold(orderFlag, "Y")
		seqs = append(seqs, &seq)
	}
	return seqs, rows.Err()
}

// RowCount counts the table's rows directly, bypassing the statistics
// estimate.
func (i *Inspector) RowCount(ctx context.Context, schema, table string) (int64, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", QualifyTable(schema, table))
	var n int64
	if err := i.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting rows of %s.%s: %w", schema, table, err)
	}
	return n, nil
}

// QueryRows streams the table's data with columns in model order.
// Values are selected as text so that one literal-rendering path covers
// every type. The caller owns the returned rows.
func (i *Inspector) QueryRows(ctx context.Context, schema, table string, columns []string) (*sql.Rows, error) {
	quoted := make([]string, len(columns))
	for idx, c := range columns {
		quoted[idx] = QuoteIdentifier(c)
	}
	query := fmt.Sprintf("SELECT %s FROM %s",
		strings.Join(quoted, ", "), QualifyTable(schema, table))
	rows, err := i.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("reading data from %s.%s: %w", schema, table, err)
	}
	return rows, nil
}

func nullableInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func nullableInt64(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}
