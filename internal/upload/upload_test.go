package upload

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"AcevalImport/internal/pipeline"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestReadTableCSV(t *testing.T) {
	comma := "DESCRIPCION,CANTIDAD DE KILOS\nbobina,\"1,000.5\"\n"
	rows, err := ReadTable(strings.NewReader(comma), ".csv")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"DESCRIPCION", "CANTIDAD DE KILOS"}, {"bobina", "1,000.5"}}, rows)

	semicolon := "\xef\xbb\xbfDESCRIPCION;CANTIDAD DE KILOS;CANTIDAD DE PIEZAS\nbobina;1.000,5\n"
	rows, err = ReadTable(strings.NewReader(semicolon), ".csv")
	require.NoError(t, err)
	assert.Equal(t, []string{"DESCRIPCION", "CANTIDAD DE KILOS", "CANTIDAD DE PIEZAS"}, rows[0])
	assert.Equal(t, []string{"bobina", "1.000,5"}, rows[1])
}

func TestReadTableXLSX(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Producto", "Kilos Recibidos", "Piezas Recibidas"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"tubo", 1234.5, 12}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	rows, err := ReadTable(bytes.NewReader(buf.Bytes()), Ext("Recibidos.XLSX"))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"tubo", "1234.5", "12"}, rows[1])
}

func TestReadTableUnsupported(t *testing.T) {
	_, err := ReadTable(strings.NewReader("x"), ".pdf")
	assert.True(t, errors.Is(err, ErrUnsupportedType))
	assert.Contains(t, err.Error(), ".pdf")
}

func TestIntakeRows(t *testing.T) {
	records := [][]string{
		{},
		{"Descripción", "cantidad_de_kilos", "CANTIDAD DE PIEZAS", "Calidad de Metal", "COSTO POR PIEZA", "Total Ton + Com", "Confirmar USD 0"},
		{" cabilla 1/2 ", "1.234,5", "120", "A42", "7,25", "", ""},
		{"", "", "", ""},
		{"muestra", "10", "2", "", "", "", "Sí"},
		{"bobina", "1,000.75", "n/a", "", "", "950"},
	}
	rows, err := IntakeRows(records)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	cabilla := rows[0]
	assert.Equal(t, "cabilla 1/2", cabilla.Description)
	assert.Equal(t, 120, cabilla.Pieces)
	assert.Equal(t, "A42", cabilla.MetalGrade)
	assert.True(t, decimal.RequireFromString("1.2345").Equal(cabilla.Kilograms), cabilla.Kilograms.String())
	require.True(t, cabilla.CostPerPiece.Valid)
	assert.True(t, decimal.RequireFromString("7.25").Equal(cabilla.CostPerPiece.Decimal))
	assert.False(t, cabilla.CostPerTon.Valid)
	assert.False(t, cabilla.ConfirmZeroUSD)

	assert.True(t, rows[1].ConfirmZeroUSD)

	bobina := rows[2]
	assert.Equal(t, 0, bobina.Pieces)
	assert.True(t, decimal.RequireFromString("1000.75").Equal(bobina.Kilograms))
	require.True(t, bobina.TotalTonCom.Valid)
	assert.True(t, decimal.NewFromInt(950).Equal(bobina.TotalTonCom.Decimal))
}

func TestIntakeRowsPortAndCommissionAliases(t *testing.T) {
	rows, err := IntakeRows([][]string{
		{"DESCRIPCION", "CANTIDAD DE KILOS", "CANTIDAD DE PIEZAS", "CALIDAD DE METAL", "Costo Ton Origen", "Tasa Puerto", "Porcentaje Com"},
		{"lamina", "2000", "0", "", "800", "20", "0.9"},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.True(t, rows[0].PortFee.Valid)
	assert.True(t, decimal.NewFromInt(20).Equal(rows[0].PortFee.Decimal))
	require.True(t, rows[0].Commission.Valid)
	assert.True(t, decimal.RequireFromString("0.9").Equal(rows[0].Commission.Decimal))

	rows, err = IntakeRows([][]string{
		{"DESCRIPCION", "CANTIDAD DE KILOS", "CANTIDAD DE PIEZAS", "CALIDAD DE METAL", "Costo Puerto", "Tasa Puerto"},
		{"lamina", "2000", "0", "", "15", "20"},
	})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(15).Equal(rows[0].PortFee.Decimal))
}

func TestIntakeRowsMissingColumns(t *testing.T) {
	_, err := IntakeRows([][]string{{"DESCRIPCION", "CANTIDAD DE KILOS"}, {"x", "1"}})
	var verr *pipeline.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "productos", verr.Param)
	assert.Contains(t, err.Error(), "CANTIDAD DE PIEZAS, CALIDAD DE METAL")

	_, err = IntakeRows(nil)
	require.True(t, errors.As(err, &verr))
	assert.True(t, errors.Is(err, pipeline.ErrInvalidInput))
}

func TestReceivedRows(t *testing.T) {
	rows, err := ReceivedRows([][]string{
		{"Producto", "Kilos Recibidos", "Piezas Recibidas"},
		{"tubo", "990", "10"},
		{"perfil", "12,5", ""},
		{"lamina", "", "x"},
	})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.NotNil(t, rows[0].Pieces)
	assert.Equal(t, 10, *rows[0].Pieces)
	assert.Nil(t, rows[1].Pieces)
	assert.True(t, decimal.RequireFromString("12.5").Equal(rows[1].Kilos))
	assert.True(t, rows[2].Kilos.IsZero())
	assert.Nil(t, rows[2].Pieces)

	rows, err = ReceivedRows([][]string{{"producto", "KILOS_RECIBIDOS"}, {"tubo", "1"}})
	require.NoError(t, err)
	assert.Nil(t, rows[0].Pieces)
}

func TestParseBool(t *testing.T) {
	for _, v := range []string{"TRUE", "true", "1", "si", "Sí", "x", "verdadero"} {
		assert.True(t, ParseBool(v), v)
	}
	for _, v := range []string{"", "0", "false", "no", "maybe"} {
		assert.False(t, ParseBool(v), v)
	}
}

func TestNormalizeDate(t *testing.T) {
	cases := map[string]string{
		"2025-01-15":           "2025-01-15",
		"15/01/2025":           "2025-01-15",
		"15-01-2025":           "2025-01-15",
		"2025/01/15":           "2025-01-15",
		"2025-01-15T10:30:00":  "2025-01-15",
		" 3 Feb 2025 ":         "2025-02-03",
		"mañana":               "mañana",
		"2025-01-15T10:30:00Z": "2025-01-15",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeDate(in), in)
	}
}
