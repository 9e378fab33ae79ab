// Package sessionconv converts Telegram user-session containers between
// representations: Telethon SQLite files, Telethon string sessions, JSON
// dumps and desktop-loadable storage bundles.
package sessionconv

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gotd/td/session"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// sqliteMagic is the header every SQLite 3 database file starts with.
var sqliteMagic = []byte("SQLite format 3\x00")

// Parse errors.
var (
	ErrUnrecognizedContainer = errors.New("unrecognized session container")
	ErrBadStringSession      = errors.New("malformed string session")
	ErrEmptySessionTable     = errors.New("session file holds no session row")
)

// Record is the in-memory form every source parses into and every output
// format renders from.
type Record struct {
	DCID    int
	Addr    string
	Port    int
	AuthKey []byte
	OwnerID int64

	CreatedAt time.Time

	// Raw holds the source bytes for the raw-copy output.
	Raw []byte
}

// ParseFile reads a stored session source. SQLite containers are
// recognized by their magic header; anything else is tried as a pasted
// string session.
func ParseFile(path string) (*Record, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read session source: %w", err)
	}

	if bytes.HasPrefix(raw, sqliteMagic) {
		return parseSQLite(path, raw)
	}

	text := strings.TrimSpace(string(raw))
	if LooksLikeStringSession(text) {
		rec, err := ParseString(text)
		if err != nil {
			return nil, err
		}
		rec.Raw = raw
		return rec, nil
	}

	return nil, ErrUnrecognizedContainer
}

// telethonRow mirrors the single row of a Telethon sessions table.
type telethonRow struct {
	DCID          int    `gorm:"column:dc_id"`
	ServerAddress string `gorm:"column:server_address"`
	Port          int    `gorm:"column:port"`
	AuthKey       []byte `gorm:"column:auth_key"`
}

func parseSQLite(path string, raw []byte) (*Record, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open session database: %w", err)
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}()

	var row telethonRow
	res := db.Raw("SELECT dc_id, server_address, port, auth_key FROM sessions LIMIT 1").Scan(&row)
	if res.Error != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnrecognizedContainer, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrEmptySessionTable
	}
	if len(row.AuthKey) != 256 {
		return nil, fmt.Errorf("%w: auth key is %d bytes, want 256", ErrUnrecognizedContainer, len(row.AuthKey))
	}

	info, err := os.Stat(path)
	created := time.Now()
	if err == nil {
		created = info.ModTime()
	}

	return &Record{
		DCID:      row.DCID,
		Addr:      row.ServerAddress,
		Port:      row.Port,
		AuthKey:   row.AuthKey,
		CreatedAt: created,
		Raw:       raw,
	}, nil
}

// LooksLikeStringSession applies the length and charset heuristic used to
// decide whether pasted text is worth decoding.
func LooksLikeStringSession(s string) bool {
	if len(s) < 300 || len(s) > 400 {
		return false
	}
	if s[0] != '1' {
		return false
	}
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_' || c == '=':
		default:
			return false
		}
	}
	return true
}

// ParseString decodes a Telethon string session.
func ParseString(s string) (*Record, error) {
	s = strings.TrimSpace(s)
	if !LooksLikeStringSession(s) {
		return nil, ErrBadStringSession
	}

	data, err := session.TelethonSession(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadStringSession, err)
	}

	host, portStr, err := net.SplitHostPort(data.Addr)
	if err != nil {
		return nil, fmt.Errorf("%w: bad address %q", ErrBadStringSession, data.Addr)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("%w: bad port %q", ErrBadStringSession, portStr)
	}

	return &Record{
		DCID:      data.DC,
		Addr:      host,
		Port:      port,
		AuthKey:   data.AuthKey,
		CreatedAt: time.Now(),
		Raw:       []byte(s),
	}, nil
}
