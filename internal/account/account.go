// Package account implements account creation for the providers named in
// §6's AccountRef.Provider: offline (a deterministic local UUID, no
// network) and an OAuth device-code scaffold for skin-service providers
// that expose one (modeled on littleskin's device_code/token endpoints).
// Account-provider OAuth/Yggdrasil flows are a non-goal beyond opaque
// credentials, so this stops at storing whatever token the provider hands
// back; it never performs the Minecraft-specific profile/session exchange
// a full client would layer on top. Tokens never touch config.json; they're
// handed to internal/creds.Store keyed by username#provider, the same
// convention the upstream keyring integration uses.
package account

import (
	"context"
	"crypto/md5"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/term"

	"github.com/quantumlauncher/qlcore/internal/creds"
	"github.com/quantumlauncher/qlcore/internal/qerrors"
	"github.com/quantumlauncher/qlcore/internal/qlconfig"
)

// OfflineUUID reproduces vanilla's offline-mode UUID derivation so an
// offline account's UUID is stable across relogins and matches what a
// vanilla server would assign the same username: Java's
// UUID.nameUUIDFromBytes on "OfflinePlayer:<username>" (UTF-8), i.e. the MD5
// of those bytes alone, with the version-3 and IETF variant bits set.
func OfflineUUID(username string) uuid.UUID {
	sum := md5.Sum([]byte("OfflinePlayer:" + username))
	sum[6] = sum[6]&0x0f | 0x30
	sum[8] = sum[8]&0x3f | 0x80
	return uuid.UUID(sum)
}

// CreateOffline builds the non-secret account reference for a brand-new
// offline-mode account; there's no token to store since offline mode never
// authenticates with Mojang.
func CreateOffline(username string) qlconfig.AccountRef {
	return qlconfig.AccountRef{
		Username: username,
		UUID:     OfflineUUID(username).String(),
		Provider: "offline",
	}
}

// DeviceProvider names one OAuth device-code endpoint pair an account can
// log in through.
type DeviceProvider struct {
	Name     string
	ClientID string
	Endpoint oauth2.Endpoint
	Scopes   []string
}

// LittleSkin mirrors the device-code flow used for the "littleskin" account
// provider: request a device+user code pair, have the player visit
// verification_uri, then poll the token endpoint until it's approved.
var LittleSkin = DeviceProvider{
	Name:     "littleskin",
	ClientID: "quantumlauncher",
	Endpoint: oauth2.Endpoint{
		DeviceAuthURL: "https://open.littleskin.cn/oauth/device_code",
		TokenURL:      "https://open.littleskin.cn/oauth/token",
	},
	Scopes: []string{
		"Yggdrasil.PlayerProfiles.Read",
		"Yggdrasil.Server.Join",
		"Yggdrasil.MinecraftToken.Create",
		"User.Read",
	},
}

func (p DeviceProvider) config() *oauth2.Config {
	return &oauth2.Config{ClientID: p.ClientID, Endpoint: p.Endpoint, Scopes: p.Scopes}
}

// StartDeviceLogin requests a device/user code pair. The caller is
// responsible for showing da.VerificationURI and da.UserCode to the player
// before calling PollDeviceLogin.
func StartDeviceLogin(ctx context.Context, p DeviceProvider) (*oauth2.DeviceAuthResponse, error) {
	da, err := p.config().DeviceAuth(ctx)
	if err != nil {
		return nil, &qerrors.KeyringError{Inner: err, Guidance: fmt.Sprintf("requesting a %s device code", p.Name)}
	}
	return da, nil
}

// PollDeviceLogin blocks until the player approves the device code (or it
// expires), then persists the resulting token in store and returns the
// account reference to save into config.json.
func PollDeviceLogin(ctx context.Context, p DeviceProvider, da *oauth2.DeviceAuthResponse, username string, store creds.Store) (qlconfig.AccountRef, error) {
	tok, err := p.config().DeviceAccessToken(ctx, da)
	if err != nil {
		return qlconfig.AccountRef{}, &qerrors.KeyringError{Inner: err, Guidance: fmt.Sprintf("%s login did not complete", p.Name)}
	}

	ref := qlconfig.AccountRef{Username: username, Provider: p.Name}
	if err := store.Set(username, p.Name, tok.AccessToken); err != nil {
		return qlconfig.AccountRef{}, err
	}
	return ref, nil
}

// ReadPastedToken is the manual fallback for environments where opening a
// browser for the device-code flow isn't possible (e.g. an SSH session): it
// reads a token pasted into the terminal without echoing it, the same way a
// password prompt would.
func ReadPastedToken(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	data, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", &qerrors.Io{Path: "/dev/stdin", Cause: err}
	}
	return strings.TrimSpace(string(data)), nil
}
