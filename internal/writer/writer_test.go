package writer

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/mwtools/docpipe/internal/document"
)

func sampleBundle() *document.OutputBundle {
	return &document.OutputBundle{Tables: []document.Table{
		{
			Name:    "erp_upload",
			Columns: []string{"Item Code", "Amount"},
			Rows:    [][]string{{"MSAZ-CNS", "367.25"}, {"MS-CNS", "100.00"}},
		},
		{
			Name:    "summary",
			Columns: []string{"Invoice", "Total"},
			Rows:    [][]string{{"INV-1", "467.25"}},
		},
	}}
}

func TestExcelWrite(t *testing.T) {
	var buf bytes.Buffer
	w := NewExcel(slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, w.Write(sampleBundle(), &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{"erp_upload", "summary"}, f.GetSheetList())

	rows, err := f.GetRows("erp_upload")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Item Code", "Amount"}, rows[0])
	assert.Equal(t, []string{"MSAZ-CNS", "367.25"}, rows[1])

	rows, err = f.GetRows("summary")
	require.NoError(t, err)
	assert.Equal(t, []string{"INV-1", "467.25"}, rows[1])
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	table := sampleBundle().Tables[0]
	require.NoError(t, WriteCSV(&table, &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Item Code,Amount", lines[0])
	assert.Equal(t, "MSAZ-CNS,367.25", lines[1])
}
