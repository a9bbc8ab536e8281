// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"regexp"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/qsrceo/ceobot/pkg/errors"
)

// DefaultTable is the table read by LoadSQLite when none is given.
const DefaultTable = "sales"

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func checkTable(table string) (string, error) {
	if table == "" {
		table = DefaultTable
	}
	if !tableName.MatchString(table) {
		return "", errors.Newf(errors.CodeInvalidInput, "invalid table name %q", table)
	}
	return table, nil
}

// LoadSQLite reads the dataset from a SQLite table with the same columns as
// the CSV layout.
func LoadSQLite(ctx context.Context, dsn, table string, opts ...Option) (*Dataset, error) {
	table, err := checkTable(table)
	if err != nil {
		return nil, err
	}
	source := dsn + "#" + table

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.New(errors.CodeDatasetLoad, "cannot open "+dsn, err).WithContext("source", source)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %q", table))
	if err != nil {
		return nil, errors.New(errors.CodeDatasetLoad, "cannot read table "+source, err).WithContext("source", source)
	}
	defer rows.Close()

	header, err := rows.Columns()
	if err != nil {
		return nil, errors.New(errors.CodeDatasetLoad, "cannot read columns of "+source, err)
	}
	rr, err := newRowReader(header, source)
	if err != nil {
		return nil, err
	}

	values := make([]sql.NullString, len(header))
	dest := make([]any, len(header))
	for i := range values {
		dest[i] = &values[i]
	}
	rec := make([]string, len(header))

	var obs []Observation
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, errors.New(errors.CodeDatasetLoad, "cannot scan "+source, err)
		}
		for i, v := range values {
			rec[i] = v.String
		}
		if o, ok := rr.read(rec); ok {
			obs = append(obs, o)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.New(errors.CodeDatasetLoad, "cannot read "+source, err)
	}

	opts = append([]Option{WithSource(source), withReport(rr.report)}, opts...)
	return New(obs, opts...), nil
}

// ImportCSVToSQLite loads a CSV dataset and writes its normalized
// observations into table, replacing any previous contents. It returns the
// number of rows written.
func ImportCSVToSQLite(ctx context.Context, csvPath, dsn, table string) (int, error) {
	table, err := checkTable(table)
	if err != nil {
		return 0, err
	}
	ds, err := LoadCSV(csvPath)
	if err != nil {
		return 0, err
	}
	return WriteSQLite(ctx, ds, dsn, table)
}

// WriteSQLite writes the observations of ds into table, replacing it.
func WriteSQLite(ctx context.Context, ds *Dataset, dsn, table string) (int, error) {
	table, err := checkTable(table)
	if err != nil {
		return 0, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return 0, errors.New(errors.CodeDatasetLoad, "cannot open "+dsn, err)
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmts := []string{
		fmt.Sprintf(`DROP TABLE IF EXISTS %q`, table),
		fmt.Sprintf(`CREATE TABLE %q (
			Store TEXT NOT NULL,
			FY TEXT NOT NULL,
			Month TEXT NOT NULL,
			Metric TEXT NOT NULL,
			Amount REAL NOT NULL
		)`, table),
	}
	for _, s := range stmts {
		if _, err := tx.ExecContext(ctx, s); err != nil {
			return 0, err
		}
	}

	insert, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %q (Store, FY, Month, Metric, Amount) VALUES (?, ?, ?, ?, ?)`, table))
	if err != nil {
		return 0, err
	}
	defer insert.Close()

	obs := ds.Observations()
	for _, o := range obs {
		if _, err := insert.ExecContext(ctx, o.Store, o.FY.String(), o.Period.String(), o.Metric, o.Amount); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(obs), nil
}

// fileOf returns the path of a file-backed SQLite DSN, or "".
func fileOf(dsn string) string {
	path, _, _ := strings.Cut(strings.TrimPrefix(dsn, "file:"), "?")
	if path == "" || path == ":memory:" {
		return ""
	}
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
