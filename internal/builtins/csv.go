// Package builtins provides the one concrete driver pair that ships
// with the core itself rather than as an external connector: a
// deterministic CSV reader/writer. Real database and API connector
// bodies are external collaborators; CSV is file-format plumbing, not
// a database protocol, so it stays in-core the way the teacher keeps
// its filesystem-touching plugins (copy, symlink, template) alongside
// its engine rather than shipped separately.
package builtins

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/osiris-data/osiris/internal/driver"
	"github.com/osiris-data/osiris/internal/model"
	streamyerrors "github.com/osiris-data/osiris/pkg/errors"
)

// CSVExtractor reads config.path as a CSV file into a single "df"
// output table. The header row names columns; a field that parses as a
// base-10 integer becomes an int64, every other field stays a string.
type CSVExtractor struct{}

// Name identifies this driver in the component registry's x-runtime.driver binding.
func (CSVExtractor) Name() string { return "csv.extractor" }

// Run reads the configured CSV file and returns it as one output table.
func (CSVExtractor) Run(ctx context.Context, req driver.Request) (driver.Response, error) {
	pathVal, ok := req.Config.Get("path")
	if !ok || pathVal.Kind() != model.KindString {
		return driver.Response{}, streamyerrors.NewExecutionError(req.StepID, fmt.Errorf("csv.extractor requires a string 'path' field"))
	}

	f, err := os.Open(pathVal.Str())
	if err != nil {
		return driver.Response{}, streamyerrors.NewExecutionError(req.StepID, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return driver.Response{}, streamyerrors.NewExecutionError(req.StepID, err)
	}
	if len(records) == 0 {
		return driver.Response{Outputs: model.Outputs{"df": model.NewTable(nil)}}, nil
	}

	header := records[0]
	rows := make([]map[string]any, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(map[string]any, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = coerce(rec[i])
			}
		}
		rows = append(rows, row)
	}

	table := model.NewTable(rows)
	return driver.Response{Outputs: model.Outputs{"df": table}, RowsMoved: int64(len(rows))}, nil
}

func coerce(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return s
}

// CSVWriter writes the single upstream input table to config.path as
// CSV, sorting columns lexicographically and using a bare "\n" line
// ending so output is byte-reproducible across runs and across
// operating systems, per the Artifact determinism requirement.
type CSVWriter struct{}

// Name identifies this driver in the component registry's x-runtime.driver binding.
func (CSVWriter) Name() string { return "csv.writer" }

// Run writes the step's sole input table to the configured CSV path.
func (CSVWriter) Run(ctx context.Context, req driver.Request) (driver.Response, error) {
	pathVal, ok := req.Config.Get("path")
	if !ok || pathVal.Kind() != model.KindString {
		return driver.Response{}, streamyerrors.NewExecutionError(req.StepID, fmt.Errorf("csv.writer requires a string 'path' field"))
	}

	var table model.Table
	for _, t := range req.Inputs {
		table = t
		break
	}

	f, err := os.Create(pathVal.Str())
	if err != nil {
		return driver.Response{}, streamyerrors.NewExecutionError(req.StepID, err)
	}
	defer f.Close()

	cols := table.SortedColumns()
	lines := make([]string, 0, len(table.Rows)+1)
	lines = append(lines, joinCSVRow(cols))
	for _, row := range table.Rows {
		fields := make([]string, len(cols))
		for i, col := range cols {
			fields[i] = fmt.Sprint(row[col])
		}
		lines = append(lines, joinCSVRow(fields))
	}

	for _, line := range lines {
		if _, err := f.WriteString(line + "\n"); err != nil {
			return driver.Response{}, streamyerrors.NewExecutionError(req.StepID, err)
		}
	}

	return driver.Response{Outputs: model.Outputs{}, RowsMoved: int64(len(table.Rows))}, nil
}

func joinCSVRow(fields []string) string {
	out := ""
	for i, f := range fields {
		if i > 0 {
			out += ","
		}
		out += f
	}
	return out
}
