package service

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Harinie05/HRM-sub002/internal/domain/model"
)

func TestExportPDF(t *testing.T) {
	res := mustResource(t, testCatalog(t), "departments")
	records := []model.Record{
		{"id": 1, "name": "HR", "code": "HR01"},
		{"id": 2, "name": "A very long department name that will not fit into a single table cell", "code": "X"},
	}

	var buf bytes.Buffer
	err := ExportPDF(&buf, res, records, "City General Hospital", time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC))

	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")), "результат должен быть PDF")
}
