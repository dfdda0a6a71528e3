package excel

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/kasuganosora/fedsql/pkg/connector/domain"
	"github.com/kasuganosora/fedsql/pkg/types"
)

func writeWorkbook(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := "people"
	idx, err := f.NewSheet(sheet)
	if err != nil {
		t.Fatal(err)
	}
	f.SetActiveSheet(idx)

	cells := [][]interface{}{
		{"id", "name", "city"},
		{1, "ada", "london"},
		{2, "bob", "paris"},
		{3, "cyd"}, // short row: trailing cells are null
	}
	for i, row := range cells {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatal(err)
		}
	}

	path := filepath.Join(t.TempDir(), "people.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func startedConnector(t *testing.T) *Connector {
	t.Helper()
	c := NewConnector(Options{File: writeWorkbook(t)})
	if err := c.Start(&domain.Environment{BindingName: "xlsx"}); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(c.Stop)
	return c
}

func scanSheet(t *testing.T, c *Connector, sheet string, fetchSize int) ([]types.ColumnInfo, []types.Row) {
	t.Helper()
	ctx := context.Background()
	conn, err := c.GetConnection(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	exec, err := conn.CreateExecution(ctx, &domain.AtomicRequestMessage{
		Command:   sheet,
		FetchSize: fetchSize,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer exec.Close()
	if err := exec.Execute(ctx); err != nil {
		t.Fatal(err)
	}

	var cols []types.ColumnInfo
	var rows []types.Row
	for {
		batch, err := exec.NextBatch(ctx)
		if err != nil {
			t.Fatal(err)
		}
		cols = batch.Columns
		rows = append(rows, batch.Rows...)
		if batch.Final {
			return cols, rows
		}
	}
}

func TestSheetScan(t *testing.T) {
	c := startedConnector(t)
	cols, rows := scanSheet(t, c, "people", 2)

	if len(cols) != 3 || cols[0].Name != "id" || cols[2].Name != "city" {
		t.Fatalf("header row misread: %+v", cols)
	}
	if len(rows) != 3 {
		t.Fatalf("scanned %d rows, want 3", len(rows))
	}
	if rows[0][1] != "ada" || rows[1][2] != "paris" {
		t.Errorf("cell values misread: %v", rows)
	}
}

func TestShortRowsPadWithNulls(t *testing.T) {
	c := startedConnector(t)
	_, rows := scanSheet(t, c, "people", 10)

	last := rows[len(rows)-1]
	if len(last) != 3 {
		t.Fatalf("short row has %d cells, want 3", len(last))
	}
	if last[2] != nil {
		t.Errorf("missing trailing cell should be nil, got %v", last[2])
	}
}

func TestUnknownSheetFails(t *testing.T) {
	c := startedConnector(t)
	ctx := context.Background()
	conn, _ := c.GetConnection(ctx, nil)
	defer conn.Close()
	exec, _ := conn.CreateExecution(ctx, &domain.AtomicRequestMessage{Command: "nope"})
	if err := exec.Execute(ctx); err == nil {
		t.Fatal("unknown sheet should fail")
	}
}

func TestStartRequiresFile(t *testing.T) {
	c := NewConnector(Options{})
	if err := c.Start(&domain.Environment{}); err == nil {
		c.Stop()
		t.Fatal("start without a file should fail")
	}
}

func TestFactoryParsesOptions(t *testing.T) {
	f := NewFactory()
	if f.GetType() != "excel" {
		t.Errorf("type = %s", f.GetType())
	}
	conn, err := f.Create(map[string]interface{}{"file": "book.xlsx"})
	if err != nil {
		t.Fatal(err)
	}
	if conn.(*Connector).opts.File != "book.xlsx" {
		t.Error("file option should parse")
	}
}
