package sessionconv

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"testing"
	"time"

	"github.com/celestix/gotgproto/storage"
	"github.com/gotd/td/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord() *Record {
	return &Record{
		DCID:      2,
		Addr:      "149.154.167.40",
		Port:      443,
		AuthKey:   testAuthKey(),
		OwnerID:   123456789,
		CreatedAt: time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC),
		Raw:       []byte("source-bytes"),
	}
}

func TestRenderJSON(t *testing.T) {
	outputs, err := Render(testRecord(), FormatJSON)
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	assert.Equal(t, "session.json", outputs[0].Filename)

	var d dump
	require.NoError(t, json.Unmarshal(outputs[0].Data, &d))
	assert.Equal(t, 2, d.DCID)
	assert.Equal(t, "149.154.167.40", d.Addr)
	assert.Equal(t, 443, d.Port)
	assert.Equal(t, hex.EncodeToString(testAuthKey()), d.AuthKeyHex)
	assert.Equal(t, int64(123456789), d.OwnerID)
}

func TestRenderBundle(t *testing.T) {
	outputs, err := Render(testRecord(), FormatBundle)
	require.NoError(t, err)
	require.Len(t, outputs, 2)
	assert.Equal(t, "bundle/session.json", outputs[0].Filename)
	assert.Equal(t, "bundle/metadata.json", outputs[1].Filename)

	var sess storage.Session
	require.NoError(t, json.Unmarshal(outputs[0].Data, &sess))
	assert.Equal(t, storage.LatestVersion, sess.Version)

	var data session.Data
	require.NoError(t, json.Unmarshal(sess.Data, &data))
	assert.Equal(t, 2, data.DC)
	assert.Equal(t, "149.154.167.40:443", data.Addr)
	assert.Equal(t, testAuthKey(), data.AuthKey)
	assert.Len(t, data.AuthKeyID, 8)
}

func TestRenderRawIsACopy(t *testing.T) {
	rec := testRecord()
	outputs, err := Render(rec, FormatRaw)
	require.NoError(t, err)
	require.Len(t, outputs, 1)

	assert.Equal(t, rec.Raw, outputs[0].Data)

	// mutating the output must not touch the record
	outputs[0].Data[0] = 'X'
	assert.Equal(t, byte('s'), rec.Raw[0])
}

func TestRenderStringRoundTrips(t *testing.T) {
	outputs, err := Render(testRecord(), FormatString)
	require.NoError(t, err)
	require.Len(t, outputs, 1)

	decoded, err := base64.StdEncoding.DecodeString(string(outputs[0].Data))
	require.NoError(t, err)

	var d dump
	require.NoError(t, json.Unmarshal(decoded, &d))
	assert.Equal(t, 2, d.DCID)
	assert.Equal(t, hex.EncodeToString(testAuthKey()), d.AuthKeyHex)
}

func TestRenderUnknownFormat(t *testing.T) {
	_, err := Render(testRecord(), Format("yaml"))
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestEveryFormatRendersIndependently(t *testing.T) {
	rec := testRecord()
	for _, f := range Formats() {
		outputs, err := Render(rec, f)
		require.NoError(t, err, "format %s", f)
		assert.NotEmpty(t, outputs, "format %s", f)
	}
}
