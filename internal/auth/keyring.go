// Package auth stores Jellyfin access tokens in the system keyring.
package auth

import (
	"errors"
	"strings"

	"github.com/zalando/go-keyring"
)

const service = "reelplayer"

// ErrNotFound is returned when no token is stored for the account.
var ErrNotFound = keyring.ErrNotFound

// account names the keyring entry for a user on a server.
func account(serverURL, userID string) string {
	return userID + "@" + strings.TrimRight(serverURL, "/")
}

// SetToken stores the access token for userID on serverURL.
func SetToken(serverURL, userID, token string) error {
	return keyring.Set(service, account(serverURL, userID), token)
}

// GetToken returns the stored access token for userID on serverURL.
func GetToken(serverURL, userID string) (string, error) {
	return keyring.Get(service, account(serverURL, userID))
}

// DeleteToken removes the stored token. A missing entry is not an error.
func DeleteToken(serverURL, userID string) error {
	err := keyring.Delete(service, account(serverURL, userID))
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}
