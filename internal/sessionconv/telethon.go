package sessionconv

import (
	"encoding/base64"
	"fmt"
	"net"
)

// EncodeTelethonString packs a record back into the Telethon string
// session layout: version marker, then base64url over dc id, server ip,
// port and the 256-byte auth key.
func EncodeTelethonString(rec *Record) (string, error) {
	if len(rec.AuthKey) != 256 {
		return "", fmt.Errorf("auth key is %d bytes, want 256", len(rec.AuthKey))
	}
	ip := net.ParseIP(rec.Addr)
	if ip == nil {
		return "", fmt.Errorf("server address %q is not an ip", rec.Addr)
	}

	ipBytes := []byte(ip.To16())
	if v4 := ip.To4(); v4 != nil {
		ipBytes = []byte(v4)
	}

	payload := make([]byte, 0, 1+len(ipBytes)+2+256)
	payload = append(payload, byte(rec.DCID))
	payload = append(payload, ipBytes...)
	payload = append(payload, byte(rec.Port>>8), byte(rec.Port))
	payload = append(payload, rec.AuthKey...)

	return "1" + base64.URLEncoding.EncodeToString(payload), nil
}
