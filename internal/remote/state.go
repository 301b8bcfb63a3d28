package remote

import (
	"github.com/depeter/reelplayer/internal/chapter"
	"github.com/depeter/reelplayer/internal/player"
)

// State is the JSON form of a player snapshot.
type State struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Source string `json:"source"`
	Phase  string `json:"phase"`

	IsPlaying   bool    `json:"is_playing"`
	HasStarted  bool    `json:"has_started"`
	IsBuffering bool    `json:"is_buffering"`
	CurrentTime float64 `json:"current_time"`
	Duration    float64 `json:"duration"`
	Progress    float64 `json:"progress"`
	Buffered    float64 `json:"buffered"`
	TimeLabel   string  `json:"time_label"`

	Volume        float64 `json:"volume"`
	IsMuted       bool    `json:"is_muted"`
	PlaybackSpeed float64 `json:"playback_speed"`
	Quality       int     `json:"quality"`
	QualityLabel  string  `json:"quality_label"`

	IsFullScreen        bool `json:"is_full_screen"`
	IsMiniPlayer        bool `json:"is_mini_player"`
	IsTheaterMode       bool `json:"is_theater_mode"`
	AreSubtitlesEnabled bool `json:"are_subtitles_enabled"`
	IsAutoplayEnabled   bool `json:"is_autoplay_enabled"`

	Error         *string           `json:"error"`
	Chapters      []chapter.Chapter `json:"chapters"`
	ActiveChapter *chapter.Chapter  `json:"active_chapter"`

	PlaylistIndex  int  `json:"playlist_index"`
	PlaylistLength int  `json:"playlist_length"`
	HasNext        bool `json:"has_next"`
	HasPrevious    bool `json:"has_previous"`
}

func stateOf(s player.Snapshot) State {
	return State{
		ID:                  s.ID,
		Title:               s.Title,
		Source:              s.Source,
		Phase:               s.Phase.String(),
		IsPlaying:           s.IsPlaying,
		HasStarted:          s.HasStarted,
		IsBuffering:         s.IsBuffering,
		CurrentTime:         s.CurrentTime,
		Duration:            s.Duration,
		Progress:            s.Progress,
		Buffered:            s.Buffered,
		TimeLabel:           s.TimeLabel,
		Volume:              s.Volume,
		IsMuted:             s.IsMuted(),
		PlaybackSpeed:       s.PlaybackSpeed,
		Quality:             s.CurrentQuality,
		QualityLabel:        s.QualityLabel,
		IsFullScreen:        s.IsFullScreen,
		IsMiniPlayer:        s.IsMiniPlayer,
		IsTheaterMode:       s.IsTheaterMode,
		AreSubtitlesEnabled: s.AreSubtitlesEnabled,
		IsAutoplayEnabled:   s.IsAutoplayEnabled,
		Error:               s.Error.ToPointer(),
		Chapters:            s.Chapters,
		ActiveChapter:       s.ActiveChapter.ToPointer(),
		PlaylistIndex:       s.PlaylistIndex,
		PlaylistLength:      s.PlaylistLength,
		HasNext:             s.HasNext,
		HasPrevious:         s.HasPrevious,
	}
}
