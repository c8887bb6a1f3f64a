package export

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"사용자", "점수"},
		Rows: []map[string]string{
			{"사용자": "7", "점수": "100"},
			{"사용자": "8", "점수": "67"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, utf8BOM))
	assert.Equal(t, "사용자,점수\n7,100\n8,67\n", string(out[len(utf8BOM):]))

	_, err = NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestXLSXExporterRender(t *testing.T) {
	out, err := NewXLSXExporter().Render(sampleDataset(), "결과")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"결과"}, f.GetSheetList())
	rows, err := f.GetRows("결과")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"사용자", "점수"}, {"7", "100"}, {"8", "67"}}, rows)

	_, err = NewXLSXExporter().Render(Dataset{}, "")
	assert.Error(t, err)
}

func TestPDFExporterRenderResult(t *testing.T) {
	report := ResultReport{
		TestTitle:       "Reading 1",
		Username:        "kim",
		CompletedAt:     "2024-03-01T10:15:30.000000",
		DurationMinutes: 12,
		Score:           67,
		CorrectCount:    2,
		TotalQuestions:  3,
		Rows: []ResultRow{
			{Number: 1, Question: "What is the main idea?", Chosen: "1", Correct: "1", Marked: true},
			{Number: 2, Question: "Which word fits?", Chosen: "-", Correct: "3"},
		},
	}
	out, err := NewPDFExporter("").RenderResult(report)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestPDFExporterMissingFont(t *testing.T) {
	_, err := NewPDFExporter(filepath.Join(t.TempDir(), "missing.ttf")).RenderResult(ResultReport{TestTitle: "x"})
	assert.Error(t, err)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "가나다", truncateRunes("가나다", 3))
	assert.Equal(t, "가…", truncateRunes("가나다", 2))
}
