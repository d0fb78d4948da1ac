package iojson

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteWith(t *testing.T) {
	var out, errOut bytes.Buffer

	err := WriteWith(&out, &errOut, []map[string]any{{"id": 1, "text": "buy milk", "completed": false}})
	require.NoError(t, err)

	assert.Equal(t, "[\n  {\n    \"completed\": false,\n    \"id\": 1,\n    \"text\": \"buy milk\"\n  }\n]\n", out.String())
	assert.Empty(t, errOut.String())
}

func TestWriteWith_EmptySliceIsArray(t *testing.T) {
	var out, errOut bytes.Buffer

	require.NoError(t, WriteWith(&out, &errOut, []int{}))
	assert.Equal(t, "[]\n", out.String())
}

func TestWriteWith_MarshalFailure(t *testing.T) {
	var out, errOut bytes.Buffer

	err := WriteWith(&out, &errOut, map[string]any{"ch": make(chan int)})
	require.Error(t, err)
	assert.Empty(t, out.String())

	var got struct {
		Message string `json:"message"`
		Data    struct {
			JSONError string `json:"json_error"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(errOut.Bytes(), &got))
	assert.Equal(t, "failed to encode output", got.Message)
	assert.Contains(t, got.Data.JSONError, "chan int")
}
