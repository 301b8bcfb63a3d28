package jellyfin

import (
	"fmt"
	"net/url"
	"strconv"
)

type ImageType string

const (
	ImagePrimary  ImageType = "Primary"
	ImageBackdrop ImageType = "Backdrop"
	ImageChapter  ImageType = "Chapter"
)

// ImageURL constructs a URL for an item's image. index selects among images
// of one type (chapters); pass -1 for the default image.
func (c *Client) ImageURL(itemID string, imgType ImageType, index int, tag string, maxWidth int) string {
	u := fmt.Sprintf("%s/Items/%s/Images/%s", c.serverURL, url.PathEscape(itemID), string(imgType))
	if index >= 0 {
		u += "/" + strconv.Itoa(index)
	}
	params := url.Values{}
	if tag != "" {
		params.Set("tag", tag)
	}
	if maxWidth > 0 {
		params.Set("maxWidth", strconv.Itoa(maxWidth))
	}
	params.Set("quality", "90")
	return u + "?" + params.Encode()
}

// PosterURL returns the primary image sized for the start screen.
func (c *Client) PosterURL(itemID string) string {
	return c.ImageURL(itemID, ImagePrimary, -1, "", 600)
}

// ChapterImageURL returns the thumbnail of chapter index.
func (c *Client) ChapterImageURL(itemID string, index int, tag string) string {
	return c.ImageURL(itemID, ImageChapter, index, tag, 320)
}
