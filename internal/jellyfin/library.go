package jellyfin

import (
	"context"
	"fmt"
	"sort"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	jellyfin "github.com/sj14/jellyfin-go/api"

	"github.com/depeter/reelplayer/internal/chapter"
	"github.com/depeter/reelplayer/internal/constants"
)

// MediaItem is the part of a Jellyfin item the player needs.
type MediaItem struct {
	ID                string
	Name              string
	Type              string // Movie, Episode, ...
	SeriesID          string
	SeriesName        string
	SeasonID          string
	IndexNumber       int
	ParentIndexNumber int
	RuntimeTicks      int64
	Chapters          []ItemChapter
}

type ItemChapter struct {
	StartTicks int64
	Name       string
	ImageTag   string
}

// Entry is one playable item of a Playback.
type Entry struct {
	ItemID   string
	Title    string
	URL      string
	Poster   string
	Chapters []chapter.Chapter
}

// Playback is what the player needs to start an item: the entries around it
// and where to begin.
type Playback struct {
	Entries []Entry
	Index   int
}

func (p Playback) URLs() []string {
	return lo.Map(p.Entries, func(e Entry, _ int) string { return e.URL })
}

// GetItem returns a single item by ID.
func (c *Client) GetItem(ctx context.Context, itemID string) (*MediaItem, error) {
	result, resp, err := c.api.UserLibraryAPI.GetItem(ctx, itemID).
		UserId(c.userID).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("get item %s: %w (status: %s)", itemID, err, respStatus(resp))
	}
	item := convertBaseItemDto(result)
	return &item, nil
}

// GetEpisodes returns the episodes of one season in order.
func (c *Client) GetEpisodes(ctx context.Context, seriesID, seasonID string) ([]MediaItem, error) {
	result, resp, err := c.api.TvShowsAPI.GetEpisodes(ctx, seriesID).
		UserId(c.userID).
		SeasonId(seasonID).
		Fields([]jellyfin.ItemFields{jellyfin.ITEMFIELDS_CHAPTERS}).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("get episodes: %w (status: %s)", err, respStatus(resp))
	}
	items := convertItems(result.Items)
	sort.SliceStable(items, func(i, j int) bool { return items[i].IndexNumber < items[j].IndexNumber })
	return items, nil
}

// Resolve turns an item into a playlist. An episode plays within its season;
// anything else plays on its own.
func (c *Client) Resolve(ctx context.Context, itemID string) (*Playback, error) {
	item, err := c.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	items := []MediaItem{*item}
	if item.Type == string(jellyfin.BASEITEMKIND_EPISODE) && item.SeriesID != "" && item.SeasonID != "" {
		episodes, err := c.GetEpisodes(ctx, item.SeriesID, item.SeasonID)
		if err != nil {
			c.log.WithError(err).WithField("item", itemID).Warn("season lookup failed, playing the episode alone")
		} else if lo.ContainsBy(episodes, func(e MediaItem) bool { return e.ID == item.ID }) {
			items = episodes
		}
	}

	pb := &Playback{Entries: lo.Map(items, func(it MediaItem, _ int) Entry { return c.entry(it) })}
	_, pb.Index, _ = lo.FindIndexOf(items, func(it MediaItem) bool { return it.ID == item.ID })
	c.log.WithFields(logrus.Fields{"item": itemID, "entries": len(pb.Entries), "index": pb.Index}).Debug("resolved")
	return pb, nil
}

func (c *Client) entry(it MediaItem) Entry {
	return Entry{
		ItemID:   it.ID,
		Title:    displayTitle(it),
		URL:      c.streamFor(it.ID),
		Poster:   c.PosterURL(it.ID),
		Chapters: c.chapters(it),
	}
}

func (c *Client) chapters(it MediaItem) []chapter.Chapter {
	return lo.Map(it.Chapters, func(ch ItemChapter, i int) chapter.Chapter {
		out := chapter.Chapter{
			Time:  float64(ch.StartTicks) / constants.TicksPerSecond,
			Label: ch.Name,
		}
		if out.Label == "" {
			out.Label = fmt.Sprintf("Chapter %d", i+1)
		}
		if ch.ImageTag != "" {
			out.Thumbnail = c.ChapterImageURL(it.ID, i, ch.ImageTag)
		}
		return out
	})
}

func displayTitle(it MediaItem) string {
	if it.Type != string(jellyfin.BASEITEMKIND_EPISODE) || it.SeriesName == "" {
		return it.Name
	}
	return fmt.Sprintf("%s S%02dE%02d %s", it.SeriesName, it.ParentIndexNumber, it.IndexNumber, it.Name)
}

func convertItems(items []jellyfin.BaseItemDto) []MediaItem {
	result := make([]MediaItem, 0, len(items))
	for _, item := range items {
		result = append(result, convertBaseItemDto(&item))
	}
	return result
}

func convertBaseItemDto(item *jellyfin.BaseItemDto) MediaItem {
	mi := MediaItem{}
	if item.Id != nil {
		mi.ID = *item.Id
	}
	mi.Name = item.GetName()
	if item.Type != nil {
		mi.Type = string(*item.Type)
	}
	mi.SeriesID = item.GetSeriesId()
	mi.SeriesName = item.GetSeriesName()
	mi.SeasonID = item.GetSeasonId()
	mi.IndexNumber = int(item.GetIndexNumber())
	mi.ParentIndexNumber = int(item.GetParentIndexNumber())
	mi.RuntimeTicks = item.GetRunTimeTicks()

	for _, ch := range item.GetChapters() {
		mi.Chapters = append(mi.Chapters, ItemChapter{
			StartTicks: ch.GetStartPositionTicks(),
			Name:       ch.GetName(),
			ImageTag:   ch.GetImageTag(),
		})
	}
	return mi
}
