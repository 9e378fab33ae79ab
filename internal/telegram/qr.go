package telegram

import (
	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/tg"
)

// QRBundle contains the components needed for a QR login flow.
type QRBundle struct {
	Client     *telegram.Client
	Dispatcher tg.UpdateDispatcher
	Storage    *session.StorageMemory
}

// NewQRBundle creates a raw td client suitable for QR authentication.
// Unlike gotgproto's NewClient, this does not attempt interactive CLI auth.
func NewQRBundle(apiID int, apiHash string) *QRBundle {
	memStorage := &session.StorageMemory{}
	dispatcher := tg.NewUpdateDispatcher()

	client := telegram.NewClient(apiID, apiHash, telegram.Options{
		SessionStorage: memStorage,
		UpdateHandler:  &dispatcher,
	})

	return &QRBundle{
		Client:     client,
		Dispatcher: dispatcher,
		Storage:    memStorage,
	}
}
