package jellyfin

import (
	"fmt"
	"net/url"
)

// StreamURL returns a direct-play URL for an item.
func (c *Client) StreamURL(itemID string) string {
	params := url.Values{}
	params.Set("Static", "true")
	params.Set("api_key", c.token)
	return fmt.Sprintf("%s/Videos/%s/stream?%s",
		c.serverURL, url.PathEscape(itemID), params.Encode())
}

// HLSStreamURL returns the adaptive master playlist for an item. Each item
// gets its own play session so switching entries does not reuse a
// transcode.
func (c *Client) HLSStreamURL(itemID string) string {
	params := url.Values{}
	params.Set("api_key", c.token)
	params.Set("DeviceId", c.deviceID)
	params.Set("MediaSourceId", itemID)
	params.Set("PlaySessionId", c.deviceID+"-"+itemID)
	return fmt.Sprintf("%s/Videos/%s/master.m3u8?%s",
		c.serverURL, url.PathEscape(itemID), params.Encode())
}

func (c *Client) streamFor(itemID string) string {
	if c.directPlay {
		return c.StreamURL(itemID)
	}
	return c.HLSStreamURL(itemID)
}
