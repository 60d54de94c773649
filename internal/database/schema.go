package database

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

const sampleRowLimit = 3

// Notes carries human-authored context injected into the schema text:
// per-table purpose descriptions and join-relationship hints. The model
// cannot infer either from DDL alone.
type Notes struct {
	Purposes map[string]string   `yaml:"purposes"`
	Joins    map[string][]string `yaml:"joins"`
}

// DescribeSchema walks sqlite_master and renders a single text blob
// enumerating every user table: its purpose note, join hints, CREATE
// statement, row count and a few sample rows. The result is injected
// verbatim into every prompt that needs schema awareness.
func (d *DB) DescribeSchema(ctx context.Context, notes Notes) (string, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT name, sql FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return "", fmt.Errorf("reading sqlite_master: %w", err)
	}
	defer rows.Close()

	type table struct{ name, ddl string }
	var tables []table
	for rows.Next() {
		var t table
		if err := rows.Scan(&t.name, &t.ddl); err != nil {
			return "", err
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, t := range tables {
		if purpose, ok := notes.Purposes[t.name]; ok {
			fmt.Fprintf(&sb, "-- PURPOSE: %s\n", purpose)
		}
		if joins, ok := notes.Joins[t.name]; ok {
			sb.WriteString("-- JOIN RELATIONS:\n")
			for _, j := range joins {
				fmt.Fprintf(&sb, "--   %s\n", j)
			}
		}

		count, err := d.rowCount(ctx, t.name)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&sb, "\n-- TABLE: %s (%d records)\n%s;\n", t.name, count, t.ddl)

		if err := d.writeSamples(ctx, &sb, t.name); err != nil {
			return "", err
		}
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func (d *DB) rowCount(ctx context.Context, table string) (int, error) {
	var n int
	err := d.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %q", table)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting rows of %s: %w", table, err)
	}
	return n, nil
}

func (d *DB) writeSamples(ctx context.Context, sb *strings.Builder, table string) error {
	samples, err := d.Query(ctx, fmt.Sprintf("SELECT * FROM %q LIMIT %d", table, sampleRowLimit))
	if err != nil {
		return fmt.Errorf("sampling %s: %w", table, err)
	}
	if len(samples) == 0 {
		return nil
	}

	cols := make([]string, 0, len(samples[0]))
	for col := range samples[0] {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	sb.WriteString("-- SAMPLE DATA:\n")
	fmt.Fprintf(sb, "-- Columns: %s\n", strings.Join(cols, ", "))
	for i, row := range samples {
		vals := make([]string, len(cols))
		for j, col := range cols {
			if row[col] == nil {
				vals[j] = "NULL"
			} else {
				vals[j] = fmt.Sprintf("%v", row[col])
			}
		}
		fmt.Fprintf(sb, "-- Sample %d: %s\n", i+1, strings.Join(vals, ", "))
	}
	return nil
}
