package sessionconv

import (
	"bytes"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func testAuthKey() []byte {
	key := make([]byte, 256)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

// encodeTelethonString builds a valid IPv4 string session.
func encodeTelethonString(t *testing.T, dc byte, ip [4]byte, port uint16, key []byte) string {
	t.Helper()
	require.Len(t, key, 256)

	payload := make([]byte, 0, 1+4+2+256)
	payload = append(payload, dc)
	payload = append(payload, ip[:]...)
	payload = append(payload, byte(port>>8), byte(port))
	payload = append(payload, key...)
	return "1" + base64.URLEncoding.EncodeToString(payload)
}

func writeTelethonDB(t *testing.T, dc int, addr string, port int, key []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "account.session")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.Exec(
		"CREATE TABLE sessions (dc_id integer, server_address text, port integer, auth_key blob)",
	).Error)
	require.NoError(t, db.Exec(
		"INSERT INTO sessions (dc_id, server_address, port, auth_key) VALUES (?, ?, ?, ?)",
		dc, addr, port, key,
	).Error)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
	return path
}

func TestParseFileSQLiteContainer(t *testing.T) {
	key := testAuthKey()
	path := writeTelethonDB(t, 2, "149.154.167.40", 443, key)

	rec, err := ParseFile(path)
	require.NoError(t, err)

	assert.Equal(t, 2, rec.DCID)
	assert.Equal(t, "149.154.167.40", rec.Addr)
	assert.Equal(t, 443, rec.Port)
	assert.Equal(t, key, rec.AuthKey)
	assert.True(t, bytes.HasPrefix(rec.Raw, sqliteMagic))
}

func TestParseFileEmptySessionTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.session")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Exec(
		"CREATE TABLE sessions (dc_id integer, server_address text, port integer, auth_key blob)",
	).Error)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = ParseFile(path)
	assert.ErrorIs(t, err, ErrEmptySessionTable)
}

func TestParseFileRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.bin")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a session"), 0o600))

	_, err := ParseFile(path)
	assert.ErrorIs(t, err, ErrUnrecognizedContainer)
}

func TestParseFileStringSessionContent(t *testing.T) {
	s := encodeTelethonString(t, 2, [4]byte{149, 154, 167, 40}, 443, testAuthKey())
	path := filepath.Join(t.TempDir(), "pasted.txt")
	require.NoError(t, os.WriteFile(path, []byte(s+"\n"), 0o600))

	rec, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, rec.DCID)
	assert.Equal(t, "149.154.167.40", rec.Addr)
	assert.Equal(t, 443, rec.Port)
}

func TestParseString(t *testing.T) {
	key := testAuthKey()
	s := encodeTelethonString(t, 4, [4]byte{149, 154, 167, 91}, 443, key)

	rec, err := ParseString(s)
	require.NoError(t, err)

	assert.Equal(t, 4, rec.DCID)
	assert.Equal(t, "149.154.167.91", rec.Addr)
	assert.Equal(t, 443, rec.Port)
	assert.Equal(t, key, rec.AuthKey)
	assert.Equal(t, []byte(s), rec.Raw)
}

func TestLooksLikeStringSession(t *testing.T) {
	valid := encodeTelethonString(t, 2, [4]byte{1, 2, 3, 4}, 443, testAuthKey())

	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"valid", valid, true},
		{"empty", "", false},
		{"too short", "1abc", false},
		{"wrong version", "2" + valid[1:], false},
		{"bad charset", valid[:len(valid)-1] + "!", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LooksLikeStringSession(tt.input))
		})
	}
}
