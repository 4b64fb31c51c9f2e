package api

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCSV(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	err := writeCSV(c, "export.csv", []string{"id", "title"}, [][]string{
		{"1", "Webinar Funnel"},
		{"2", "Funnel, with comma"},
	})
	require.NoError(t, err)

	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="export.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "id,title\n1,Webinar Funnel\n2,\"Funnel, with comma\"\n", w.Body.String())
}

func TestWriteCSVEmpty(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	require.NoError(t, writeCSV(c, "empty.csv", []string{"id"}, nil))
	assert.Equal(t, "id\n", w.Body.String())
}
