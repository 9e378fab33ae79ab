// Command tg-auth authenticates one Telegram account and writes its
// exported string session into the sessions directory, where the
// scheduler pool and the handle resolver pick it up.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/celestix/gotgproto"
	"github.com/celestix/gotgproto/sessionMaker"
	"github.com/glebarez/sqlite"
	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram/auth/qrlogin"
	"github.com/joho/godotenv"
	"github.com/mdp/qrterminal/v3"

	"github.com/scamwatch/reportbot/internal/sessionconv"
	"github.com/scamwatch/reportbot/internal/telegram"
)

func main() {
	_ = godotenv.Load()

	fmt.Println("=== telegram account auth tool ===")
	fmt.Println("authenticates one account and stores its session for the pool")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)
	apiID, apiHash := getAPICredentials(reader)

	fmt.Println("choose authentication method:")
	fmt.Println("  1. phone number (sms/code)")
	fmt.Println("  2. qr code (scan with the telegram app)")
	fmt.Print("\nenter choice [1]: ")
	choice, _ := reader.ReadString('\n')

	var sessionString string
	var err error
	if strings.TrimSpace(choice) == "2" {
		sessionString, err = authWithQR(apiID, apiHash)
	} else {
		sessionString, err = authWithPhone(apiID, apiHash, reader)
	}
	if err != nil {
		fmt.Printf("error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\n✓ authentication successful!")

	fmt.Print("account name for the session file [account1]: ")
	name, _ := reader.ReadString('\n')
	name = strings.TrimSpace(name)
	if name == "" {
		name = "account1"
	}

	dir := os.Getenv("SESSIONS_DIR")
	if dir == "" {
		dir = "./sessions"
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		fmt.Printf("error creating %s: %v\n", dir, err)
		os.Exit(1)
	}

	path := filepath.Join(dir, name+".session")
	if err := os.WriteFile(path, []byte(sessionString), 0o600); err != nil {
		fmt.Printf("error writing session file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nsession stored at %s\n", path)
	fmt.Println("⚠️  keep this file secret! it provides full access to the account")
}

// getAPICredentials reads API ID and Hash from env or prompts the user.
func getAPICredentials(reader *bufio.Reader) (int, string) {
	apiIDStr := os.Getenv("TG_API_ID")
	apiHash := os.Getenv("TG_API_HASH")

	if apiIDStr == "" || apiIDStr == "0" {
		fmt.Print("enter your api_id (from https://my.telegram.org): ")
		apiIDStr, _ = reader.ReadString('\n')
		apiIDStr = strings.TrimSpace(apiIDStr)
	}
	if apiHash == "" {
		fmt.Print("enter your api_hash: ")
		apiHash, _ = reader.ReadString('\n')
		apiHash = strings.TrimSpace(apiHash)
	}

	apiID, err := strconv.Atoi(apiIDStr)
	if err != nil {
		fmt.Printf("error: invalid api_id: %v\n", err)
		os.Exit(1)
	}
	return apiID, apiHash
}

// authWithPhone authenticates with a phone number and exports the session.
func authWithPhone(apiID int, apiHash string, reader *bufio.Reader) (string, error) {
	fmt.Print("enter your phone number (with country code, e.g. +1234567890): ")
	phone, _ := reader.ReadString('\n')
	phone = strings.TrimSpace(phone)

	fmt.Println("\nauthenticating... (check telegram for code)")

	client, err := gotgproto.NewClient(
		apiID,
		apiHash,
		gotgproto.ClientTypePhone(phone),
		&gotgproto.ClientOpts{
			Session:          sessionMaker.SqlSession(sqlite.Open("tg_session")),
			DisableCopyright: true,
		},
	)
	if err != nil {
		return "", err
	}
	defer client.Stop()

	fmt.Printf("logged in as: @%s\n", client.Self.Username)
	fmt.Println("note: tg_session.db held temporary storage, you can delete it now")
	return client.ExportStringSession()
}

// authWithQR runs the QR login flow, rendering each token in the terminal.
func authWithQR(apiID int, apiHash string) (string, error) {
	bundle := telegram.NewQRBundle(apiID, apiHash)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var data *session.Data
	err := bundle.Client.Run(ctx, func(ctx context.Context) error {
		qr := bundle.Client.QR()
		loggedIn := qrlogin.OnLoginToken(&bundle.Dispatcher)

		_, err := qr.Auth(ctx, loggedIn, func(_ context.Context, token qrlogin.Token) error {
			fmt.Println("\nscan this code with Telegram → Settings → Devices → Link Desktop Device:")
			qrterminal.GenerateWithConfig(token.URL(), qrterminal.Config{
				Level:     qrterminal.L,
				Writer:    os.Stdout,
				BlackChar: qrterminal.BLACK,
				WhiteChar: qrterminal.WHITE,
			})
			return nil
		})
		if err != nil {
			return err
		}

		loader := session.Loader{Storage: bundle.Storage}
		data, err = loader.Load(ctx)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("qr auth flow: %w", err)
	}
	if data == nil {
		return "", errors.New("no session captured after login")
	}

	// re-pack the captured session for a throwaway client, then let it
	// export the canonical string form the pool loader expects
	host, portStr, err := net.SplitHostPort(data.Addr)
	if err != nil {
		return "", fmt.Errorf("bad session address %q: %w", data.Addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", fmt.Errorf("bad session port %q: %w", portStr, err)
	}
	telethonStr, err := sessionconv.EncodeTelethonString(&sessionconv.Record{
		DCID:    data.DC,
		Addr:    host,
		Port:    port,
		AuthKey: data.AuthKey,
	})
	if err != nil {
		return "", fmt.Errorf("pack session: %w", err)
	}

	client, err := gotgproto.NewClient(
		apiID,
		apiHash,
		gotgproto.ClientTypePhone(""),
		&gotgproto.ClientOpts{
			Session:          sessionMaker.TelethonSession(telethonStr),
			DisableCopyright: true,
		},
	)
	if err != nil {
		return "", err
	}
	defer client.Stop()
	return client.ExportStringSession()
}
