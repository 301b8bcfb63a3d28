// Package jellyfin resolves Jellyfin library items into playable playlists.
package jellyfin

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	jellyfin "github.com/sj14/jellyfin-go/api"
)

const (
	clientName    = "Reelplayer"
	clientVersion = "0.1.0"
	deviceName    = "Reelplayer Desktop"
)

// Client wraps the generated Jellyfin API client.
type Client struct {
	api        *jellyfin.APIClient
	log        *logrus.Entry
	deviceID   string
	token      string
	userID     string
	serverURL  string
	directPlay bool
}

func normalizeURL(serverURL string) string {
	serverURL = strings.TrimSpace(serverURL)
	if !strings.HasPrefix(serverURL, "http://") && !strings.HasPrefix(serverURL, "https://") {
		serverURL = "https://" + serverURL
	}
	return strings.TrimRight(serverURL, "/")
}

// NewClient creates a client for serverURL. deviceID identifies this install
// to the server and its transcoding sessions.
func NewClient(serverURL, deviceID string, log *logrus.Entry) *Client {
	serverURL = normalizeURL(serverURL)
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	cfg := jellyfin.NewConfiguration()
	cfg.Servers = jellyfin.ServerConfigurations{
		{URL: serverURL},
	}
	cfg.AddDefaultHeader("X-Emby-Authorization",
		fmt.Sprintf(`MediaBrowser Client="%s", Device="%s", DeviceId="%s", Version="%s"`,
			clientName, deviceName, deviceID, clientVersion))

	return &Client{
		api:       jellyfin.NewAPIClient(cfg),
		log:       log.WithField("component", "jellyfin"),
		deviceID:  deviceID,
		serverURL: serverURL,
	}
}

func (c *Client) Authenticate(ctx context.Context, username, password string) error {
	body := *jellyfin.NewAuthenticateUserByName()
	body.SetUsername(username)
	body.SetPw(password)

	result, resp, err := c.api.UserAPI.AuthenticateUserByName(ctx).AuthenticateUserByName(body).Execute()
	if err != nil {
		return fmt.Errorf("auth failed: %w (status: %s)", err, respStatus(resp))
	}
	user := result.GetUser()
	c.SetToken(result.GetAccessToken(), user.GetId())
	c.log.WithField("user", username).Info("authenticated")
	return nil
}

// SetToken reuses a token from an earlier Authenticate.
func (c *Client) SetToken(token, userID string) {
	c.token = token
	c.userID = userID
	c.api.GetConfig().AddDefaultHeader("X-Emby-Token", c.token)
}

// SetDirectPlay makes Resolve hand out static streams instead of HLS
// transcodes.
func (c *Client) SetDirectPlay(v bool) { c.directPlay = v }

func (c *Client) Token() string     { return c.token }
func (c *Client) UserID() string    { return c.userID }
func (c *Client) ServerURL() string { return c.serverURL }

func respStatus(resp *http.Response) string {
	if resp == nil {
		return "no response"
	}
	return resp.Status
}
