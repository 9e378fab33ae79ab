package bot

import (
	"errors"
	"regexp"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// validation errors
var (
	ErrBadHandle          = errors.New("handle must look like @name, 5-32 word characters")
	ErrDescriptionTooLong = errors.New("description exceeds the maximum length")
	ErrDescriptionEmpty   = errors.New("description must not be empty")
	ErrBadContact         = errors.New("contact must be a @handle or a phone number")
	ErrNoProof            = errors.New("proof must be an image")
	ErrProofTooLarge      = errors.New("proof exceeds the maximum size")
	ErrProofBadType       = errors.New("proof must be a JPEG or PNG image")
)

var (
	handleRe = regexp.MustCompile(`^@\w{5,32}$`)
	phoneRe  = regexp.MustCompile(`^\+?\d{10,15}$`)
)

// ValidateHandle checks the accused handle against the fixed syntax.
func ValidateHandle(s string) error {
	if !handleRe.MatchString(strings.TrimSpace(s)) {
		return ErrBadHandle
	}
	return nil
}

// ValidateDescription checks the free-text description length bound.
// A description of exactly maxLen is accepted.
func ValidateDescription(s string, maxLen int) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return ErrDescriptionEmpty
	}
	if len([]rune(s)) > maxLen {
		return ErrDescriptionTooLong
	}
	return nil
}

// ValidateContact accepts either handle syntax or phone syntax.
func ValidateContact(s string) error {
	s = strings.TrimSpace(s)
	if handleRe.MatchString(s) || phoneRe.MatchString(s) {
		return nil
	}
	return ErrBadContact
}

// attachmentKind tags what kind of attachment a message carried.
type attachmentKind int

const (
	attachmentNone attachmentKind = iota
	attachmentPhoto
	attachmentDocument
)

// attachment is the single shape every inbound upload is reduced to
// before validation, so the proof handler never pokes at raw update
// fields.
type attachment struct {
	kind   attachmentKind
	fileID string
	size   int64
	mime   string
}

// extractAttachment reduces a message to its attachment, if any.
// For photos Telegram sends several sizes; the largest is the upload.
func extractAttachment(msg *tgbotapi.Message) attachment {
	if len(msg.Photo) > 0 {
		best := msg.Photo[len(msg.Photo)-1]
		return attachment{
			kind:   attachmentPhoto,
			fileID: best.FileID,
			size:   int64(best.FileSize),
		}
	}
	if msg.Document != nil {
		return attachment{
			kind:   attachmentDocument,
			fileID: msg.Document.FileID,
			size:   int64(msg.Document.FileSize),
			mime:   msg.Document.MimeType,
		}
	}
	return attachment{kind: attachmentNone}
}

// validateProof checks the attachment against the size ceiling and the
// allowed type set. Photos are always images; documents must declare a
// JPEG or PNG mime type.
func validateProof(att attachment, maxBytes int64) error {
	switch att.kind {
	case attachmentNone:
		return ErrNoProof
	case attachmentPhoto:
		if att.size > maxBytes {
			return ErrProofTooLarge
		}
		return nil
	case attachmentDocument:
		if att.mime != "image/jpeg" && att.mime != "image/png" {
			return ErrProofBadType
		}
		if att.size > maxBytes {
			return ErrProofTooLarge
		}
		return nil
	}
	return ErrNoProof
}
