package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// UploadKind represents the source form of an uploaded session.
type UploadKind string

// UploadKind constants define the accepted session source forms.
const (
	UploadFile   UploadKind = "file"
	UploadString UploadKind = "string"
)

// uploadTokenLen is the length of the truncated hex callback token.
// callback payloads have a hard size limit, so the full path cannot ride
// along; the token is resolved back through the session_uploads table.
const uploadTokenLen = 10

// SessionUpload records a stored session source and the short token used
// to reference it from inline-keyboard callbacks.
type SessionUpload struct {
	ID         uuid.UUID `gorm:"primaryKey;type:uuid"`
	Token      string    `gorm:"index;size:16"`
	Path       string
	Kind       UploadKind
	UploadedBy int64 `gorm:"index"`

	CreatedAt time.Time
}

// UploadToken derives the short callback token for a stored path.
// Collisions are not handled beyond first-match-wins on lookup.
func UploadToken(path string) string {
	h := sha256.Sum256([]byte(path))
	return hex.EncodeToString(h[:])[:uploadTokenLen]
}
