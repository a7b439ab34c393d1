package sinew

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tissdb/tissdb/internal/document"
)

func TestEncodeDecodeRequestRoundTrip(t *testing.T) {
	params := []Param{
		{Type: ParamString, Str: "alice"},
		{Type: ParamFloat64, F64: 3.5},
		{Type: ParamBool, Bool: true},
		{Type: ParamInt64, I64: 42},
		{Type: ParamNull},
	}
	frame, err := EncodeParamRequest("SELECT * FROM users WHERE name = ?", params)
	require.NoError(t, err)

	req, err := DecodeRequest(bytes.NewReader(frame))
	require.NoError(t, err)

	assert.Equal(t, "SELECT * FROM users WHERE name = ?", req.Query)
	require.Len(t, req.Params, 5)
	assert.Equal(t, "alice", req.Params[0].Str)
	assert.Equal(t, 3.5, req.Params[1].Num)
	assert.Equal(t, true, req.Params[2].Bool)
	assert.Equal(t, int64(42), req.Params[3].TS)
	assert.Equal(t, document.KindNull, req.Params[4].Kind)
}

func TestEncodeSimpleRequestHasNoParams(t *testing.T) {
	frame, err := EncodeSimpleRequest("BEGIN")
	require.NoError(t, err)

	req, err := DecodeRequest(bytes.NewReader(frame))
	require.NoError(t, err)
	assert.Equal(t, "BEGIN", req.Query)
	assert.Empty(t, req.Params)
}

func TestEncodeParamRequestRejectsTooManyParams(t *testing.T) {
	params := make([]Param, MaxParams+1)
	_, err := EncodeParamRequest("SELECT 1", params)
	assert.Error(t, err)
}

func TestEncodeParamRequestCompressedRoundTrip(t *testing.T) {
	longQuery := "SELECT * FROM users WHERE name = ? OR bio LIKE ?"
	bigParam := Param{Type: ParamString, Str: strings.Repeat("x", 4096)}
	frame, err := EncodeParamRequestCompressed(longQuery, []Param{bigParam, {Type: ParamString, Str: "y"}})
	require.NoError(t, err)

	// the compressed flag bit should be set given how compressible the body is
	assert.NotZero(t, frame[0]&0x80)

	req, err := DecodeRequest(bytes.NewReader(frame))
	require.NoError(t, err)
	assert.Equal(t, longQuery, req.Query)
	require.Len(t, req.Params, 2)
	assert.Equal(t, bigParam.Str, req.Params[0].Str)
}

func TestEncodeParamRequestCompressedSkipsSmallBodies(t *testing.T) {
	frame, err := EncodeParamRequestCompressed("SELECT 1", nil)
	require.NoError(t, err)
	assert.Zero(t, frame[0]&0x80)
}

func TestDecodeRequestRejectsOversizedFrame(t *testing.T) {
	var buf bytes.Buffer
	var lenBuf [4]byte
	lenBuf[0] = 0xFF
	lenBuf[1] = 0xFF
	lenBuf[2] = 0xFF
	lenBuf[3] = 0xFF
	buf.Write(lenBuf[:])
	_, err := DecodeRequest(&buf)
	assert.Error(t, err)
}

func TestParamFromValue(t *testing.T) {
	p, err := ParamFromValue(document.NewString("x"))
	require.NoError(t, err)
	assert.Equal(t, ParamString, p.Type)

	p, err = ParamFromValue(document.NewTimestamp(99))
	require.NoError(t, err)
	assert.Equal(t, ParamInt64, p.Type)
	assert.Equal(t, int64(99), p.I64)

	_, err = ParamFromValue(document.NewBytes([]byte{1, 2}))
	assert.Error(t, err)

	_, err = ParamFromValue(document.NewObject(nil))
	assert.Error(t, err)
}

func TestEncodeDecodeResponseRoundTrip(t *testing.T) {
	frame := EncodeResponse("OK")
	body, err := DecodeResponse(bytes.NewReader(frame))
	require.NoError(t, err)
	assert.Equal(t, "OK", body)
}

func TestDecodeResponseRejectsOversized(t *testing.T) {
	var buf bytes.Buffer
	var lenBuf [4]byte
	lenBuf[0] = 0xFF
	lenBuf[1] = 0xFF
	lenBuf[2] = 0xFF
	lenBuf[3] = 0xFF
	buf.Write(lenBuf[:])
	_, err := DecodeResponse(&buf)
	assert.Error(t, err)
}
