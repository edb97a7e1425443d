package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reportDataset() Dataset {
	return Dataset{
		Headers: []string{"Item", "Category", "Status"},
		Rows: []map[string]string{
			{"Item": "Blue Backpack", "Category": "lost", "Status": "open"},
			{"Item": "Casio Calculator", "Category": "found"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(reportDataset())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Item,Category,Status", lines[0])
	assert.Equal(t, "Blue Backpack,lost,open", lines[1])
	// A row missing an optional column still lines up under the headers.
	assert.Equal(t, "Casio Calculator,found,", lines[2])
}

func TestCSVExporterRejectsEmptyHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(reportDataset(), "Campus Lost and Found")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "%PDF"))
}

func TestPDFExporterRejectsEmptyHeaders(t *testing.T) {
	_, err := NewPDFExporter().Render(Dataset{}, "")
	assert.Error(t, err)
}
