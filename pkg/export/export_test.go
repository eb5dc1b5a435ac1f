package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"Student", "Balance"},
		Rows: []map[string]string{
			{"Student": "Ama Mensah", "Balance": "500.00"},
			{"Student": "Kofi Boateng", "Balance": "0.00"},
		},
	}
}

func TestCSVRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.Equal(t, "Student,Balance\nAma Mensah,500.00\nKofi Boateng,0.00\n", string(out))
}

func TestCSVRenderNeutralizesFormulas(t *testing.T) {
	out, err := NewCSVExporter().Render(Dataset{
		Headers: []string{"Student", "Balance"},
		Rows: []map[string]string{
			{"Student": "=HYPERLINK(\"x\")", "Balance": "-100.00"},
			{"Student": "-cmd", "Balance": "+1"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Student,Balance\n\"'=HYPERLINK(\"\"x\"\")\",-100.00\n'-cmd,'+1\n", string(out))
}

func TestRenderRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(Dataset{}, "x")
	assert.Error(t, err)
	_, err = NewXLSXExporter().Render(Dataset{}, "x")
	assert.Error(t, err)
}

func TestPDFRenderDocument(t *testing.T) {
	out, err := NewPDFExporter().RenderDocument(Document{
		Organisation: "Test School",
		Title:        "Statement",
		Subtitle:     []string{"Student: Ama Mensah"},
		Table:        sampleDataset(),
		Footer:       []string{"Net outstanding: 500.00"},
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestXLSXRender(t *testing.T) {
	out, err := NewXLSXExporter().Render(sampleDataset(), "Balances")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	v, err := f.GetCellValue("Balances", "A2")
	require.NoError(t, err)
	assert.Equal(t, "Ama Mensah", v)
	v, err = f.GetCellValue("Balances", "B3")
	require.NoError(t, err)
	assert.Equal(t, "0.00", v)
}
