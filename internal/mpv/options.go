package mpv

import (
	"fmt"
	"math"
	"strconv"

	"github.com/depeter/reelplayer/internal/config"
)

type option struct {
	name, value string
}

// initOptions lists the mpv options set before initialization. wid embeds the
// video into an existing native window when non-zero.
func initOptions(cfg *config.Config, wid int64) []option {
	opts := []option{
		{"hwdec", cfg.Playback.HWAccel},
		{"vo", "gpu"},
		// Controls are drawn through osd-overlay.
		{"osc", "no"},
		{"input-default-bindings", "no"},
		{"input-vo-keyboard", "no"},
		{"keep-open", "yes"},
		{"idle", "yes"},
		{"pause", "yes"},
		{"volume", strconv.Itoa(int(math.Round(cfg.Playback.Volume * 100)))},
		{"speed", strconv.FormatFloat(cfg.Playback.Speed, 'f', -1, 64)},
		{"cache", "yes"},
		{"cache-secs", strconv.Itoa(cfg.Playback.CacheSeconds)},
		{"sid", "no"},
		{"ytdl", "yes"},
	}
	if cfg.Playback.AudioLanguage != "" {
		opts = append(opts, option{"alang", cfg.Playback.AudioLanguage})
	}
	if cfg.Playback.SubLanguage != "" {
		opts = append(opts, option{"slang", cfg.Playback.SubLanguage})
	}
	if wid != 0 {
		// Pointer input belongs to the host window.
		opts = append(opts,
			option{"wid", strconv.FormatInt(wid, 10)},
			option{"input-cursor-passthrough", "yes"},
		)
	} else {
		opts = append(opts, option{"force-window", "yes"})
		if cfg.UI.Fullscreen {
			opts = append(opts, option{"fullscreen", "yes"})
		}
		opts = append(opts, option{"geometry", fmt.Sprintf("%dx%d", cfg.UI.Width, cfg.UI.Height)})
	}
	return append(opts, subtitleOptions(&cfg.Subtitles)...)
}

func subtitleOptions(cfg *config.SubtitleConfig) []option {
	opts := []option{
		{"sub-font", cfg.Font},
		{"sub-font-size", strconv.Itoa(cfg.FontSize)},
		{"sub-color", cfg.Color},
		{"sub-border-color", cfg.BorderColor},
		{"sub-border-size", fmt.Sprintf("%.1f", cfg.BorderSize)},
		{"sub-shadow-offset", fmt.Sprintf("%.1f", cfg.ShadowOffset)},
		{"sub-pos", strconv.Itoa(cfg.Position)},
	}
	if cfg.ASSOverride != "" {
		opts = append(opts, option{"sub-ass-override", cfg.ASSOverride})
	}
	return opts
}
