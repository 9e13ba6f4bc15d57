package refdata

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newLoader(cfg Config) *Loader {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), cfg)
}

func TestLoadCSV(t *testing.T) {
	cfg := Config{
		KeyColumn:   "Customer PO",
		PriceColumn: "Unit Price",
		AttrColumns: []string{"DC"},
	}
	csv := strings.Join([]string{
		"Customer PO,Unit Price,DC",
		"PO-1,10.00,JAFZA",
		"PO-2,\"1,250.50\",DXB",
		",99.00,ignored",
		"PO-3,not-a-price,DXB",
	}, "\n")

	rows, err := newLoader(cfg).LoadCSV(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "PO-1", rows[0].Key)
	assert.Equal(t, "10", rows[0].Price.String())
	assert.Equal(t, "JAFZA", rows[0].Attrs["DC"])
	assert.Equal(t, "1250.5", rows[1].Price.String())
}

func TestLoadCSVMissingKeyColumn(t *testing.T) {
	cfg := Config{KeyColumn: "Customer PO"}
	csv := "Part,Price\nA,1.00\n"

	_, err := newLoader(cfg).LoadCSV(strings.NewReader(csv))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Customer PO")
}

func TestLoadExcel(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	// Banner rows above the real header, the way master workbooks arrive.
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Pre-Alert Master"}))
	require.NoError(t, f.SetSheetRow(sheet, "A9", &[]any{"Item Code", "Unit Price", "Ship Mode"}))
	require.NoError(t, f.SetSheetRow(sheet, "A10", &[]any{"IC-1", "15.00", "AIR"}))
	require.NoError(t, f.SetSheetRow(sheet, "A11", &[]any{"IC-2", "20.00", "SEA"}))
	require.NoError(t, f.SetSheetRow(sheet, "A12", &[]any{"", "", ""}))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	cfg := Config{
		KeyColumn:   "Item Code",
		PriceColumn: "Unit Price",
		AttrColumns: []string{"Ship Mode"},
		HeaderRow:   8,
	}
	rows, err := newLoader(cfg).LoadExcel(buf)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "IC-1", rows[0].Key)
	assert.Equal(t, "15", rows[0].Price.String())
	assert.Equal(t, "SEA", rows[1].Attrs["Ship Mode"])
}

func TestLoadExcelHeaderBeyondSheet(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow(f.GetSheetName(0), "A1", &[]any{"only row"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	_, err = newLoader(Config{KeyColumn: "Item Code", HeaderRow: 8}).LoadExcel(buf)
	require.Error(t, err)
}

func TestLoadCSVHeaderNormalization(t *testing.T) {
	cfg := Config{KeyColumn: "item code"}
	csv := "ITEM   CODE\nX-1\n"

	rows, err := newLoader(cfg).LoadCSV(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "X-1", rows[0].Key)
}

func TestLoadCSVWithoutPriceColumn(t *testing.T) {
	cfg := Config{KeyColumn: "Code"}
	var sb strings.Builder
	sb.WriteString("Code\n")
	for i := 0; i < 3; i++ {
		fmt.Fprintf(&sb, "C-%d\n", i)
	}

	rows, err := newLoader(cfg).LoadCSV(strings.NewReader(sb.String()))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.True(t, rows[0].Price.IsZero())
}
