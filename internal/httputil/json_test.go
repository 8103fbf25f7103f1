package httputil

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadJSONDecodes(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"name": "btc"}`))
	rec := httptest.NewRecorder()

	var v struct {
		Name string `json:"name"`
	}
	require.NoError(t, ReadJSON(rec, req, &v))
	assert.Equal(t, "btc", v.Name)
}

func TestReadJSONRejectsOversizedBody(t *testing.T) {
	body := `{"name": "` + strings.Repeat("a", maxBodyBytes+1) + `"}`
	req := httptest.NewRequest("POST", "/", strings.NewReader(body))
	rec := httptest.NewRecorder()

	var v struct {
		Name string `json:"name"`
	}
	assert.Error(t, ReadJSON(rec, req, &v))
}

func TestReadJSONRejectsMalformedBody(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{not json`))
	rec := httptest.NewRecorder()

	var v map[string]string
	err := ReadJSON(rec, req, &v)
	require.Error(t, err)
	assert.Equal(t, "invalid json body", err.Error())
}
