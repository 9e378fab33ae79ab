package sessionconv

import (
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/celestix/gotgproto/storage"
	"github.com/gotd/td/session"
)

// Format identifies one of the output representations.
type Format string

// Output formats, each rendered independently from the same Record.
const (
	FormatJSON   Format = "json"
	FormatBundle Format = "bundle"
	FormatRaw    Format = "raw"
	FormatString Format = "string"
)

// ErrUnknownFormat is returned for a format outside the enumerated set.
var ErrUnknownFormat = errors.New("unknown output format")

// Formats lists every supported output format in render order.
func Formats() []Format {
	return []Format{FormatJSON, FormatBundle, FormatRaw, FormatString}
}

// Output is one rendered file.
type Output struct {
	Filename string
	Data     []byte
}

// dump is the wire shape of the JSON representation.
type dump struct {
	DCID       int       `json:"dc_id"`
	Addr       string    `json:"server_address"`
	Port       int       `json:"port"`
	AuthKeyHex string    `json:"auth_key"`
	OwnerID    int64     `json:"owner_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func (r *Record) dump() dump {
	return dump{
		DCID:       r.DCID,
		Addr:       r.Addr,
		Port:       r.Port,
		AuthKeyHex: hex.EncodeToString(r.AuthKey),
		OwnerID:    r.OwnerID,
		CreatedAt:  r.CreatedAt,
	}
}

// Render produces the files for one output format.
func Render(rec *Record, f Format) ([]Output, error) {
	if rec == nil {
		return nil, fmt.Errorf("record is nil")
	}

	switch f {
	case FormatJSON:
		return renderJSON(rec)
	case FormatBundle:
		return renderBundle(rec)
	case FormatRaw:
		return []Output{{Filename: "session.bin", Data: append([]byte(nil), rec.Raw...)}}, nil
	case FormatString:
		return renderString(rec)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}

func renderJSON(rec *Record) ([]Output, error) {
	data, err := json.MarshalIndent(rec.dump(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal dump: %w", err)
	}
	return []Output{{Filename: "session.json", Data: data}}, nil
}

// renderBundle produces a desktop-loadable storage bundle: the session
// record in the format the gotgproto storage layer reads back, plus a
// small metadata file.
func renderBundle(rec *Record) ([]Output, error) {
	data := &session.Data{
		DC:        rec.DCID,
		Addr:      net.JoinHostPort(rec.Addr, strconv.Itoa(rec.Port)),
		AuthKey:   rec.AuthKey,
		AuthKeyID: authKeyID(rec.AuthKey),
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal session data: %w", err)
	}
	sess := &storage.Session{
		Version: storage.LatestVersion,
		Data:    dataJSON,
	}
	sessJSON, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal storage session: %w", err)
	}

	meta, err := json.MarshalIndent(map[string]any{
		"dc_id":      rec.DCID,
		"created_at": rec.CreatedAt.Format(time.RFC3339),
		"owner_id":   rec.OwnerID,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}

	return []Output{
		{Filename: "bundle/session.json", Data: sessJSON},
		{Filename: "bundle/metadata.json", Data: meta},
	}, nil
}

// renderString emits the opaque single-line form: base64 over the
// canonical JSON dump.
func renderString(rec *Record) ([]Output, error) {
	data, err := json.Marshal(rec.dump())
	if err != nil {
		return nil, fmt.Errorf("marshal dump: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(data)
	return []Output{{Filename: "session.txt", Data: []byte(encoded)}}, nil
}

// authKeyID is the trailing 8 bytes of the key's SHA1, as the MTProto
// transport identifies keys.
func authKeyID(key []byte) []byte {
	h := sha1.Sum(key)
	return h[12:]
}
