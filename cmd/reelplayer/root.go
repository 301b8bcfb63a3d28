package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/hajimehoshi/ebiten/v2"
	cc "github.com/ivanpirog/coloredcobra"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/depeter/reelplayer/assets/icon"
	"github.com/depeter/reelplayer/internal/app"
	"github.com/depeter/reelplayer/internal/cache"
	"github.com/depeter/reelplayer/internal/chapter"
	"github.com/depeter/reelplayer/internal/config"
	"github.com/depeter/reelplayer/internal/jellyfin"
	"github.com/depeter/reelplayer/internal/logging"
)

type rootOptions struct {
	configPath string
	url        string
	title      string
	poster     string
	chapters   string
	item       string
	direct     bool
	volume     float64
	speed      float64
	autoplay   bool
	fullscreen bool
	remote     string
	logLevel   string
}

var opts rootOptions

func init() {
	f := rootCmd.Flags()
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "C", "", "Path to the config file")
	f.StringVarP(&opts.url, "url", "u", "", "Play a stream or manifest URL")
	f.StringVar(&opts.title, "title", "", "Title shown for --url")
	f.StringVar(&opts.poster, "poster", "", "Poster image URL shown for --url before playback starts")
	f.StringVar(&opts.chapters, "chapters", "", "TOML chapter file for --url")
	f.StringVarP(&opts.item, "item", "i", "", "Play a Jellyfin item by ID")
	f.BoolVar(&opts.direct, "direct", false, "Direct-play Jellyfin items instead of HLS")
	f.Float64Var(&opts.volume, "volume", 0, "Initial volume in [0,1]")
	f.Float64Var(&opts.speed, "speed", 0, "Initial playback speed")
	f.BoolVar(&opts.autoplay, "autoplay", false, "Advance to the next entry when one ends")
	f.BoolVarP(&opts.fullscreen, "fullscreen", "f", false, "Start fullscreen")
	f.StringVar(&opts.remote, "remote", "", "Serve the remote control on this address")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
}

var rootCmd = &cobra.Command{
	Use:           "reelplayer",
	Short:         "A video player for streams and Jellyfin libraries",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd)
	},
}

// Execute runs the command line.
func Execute() {
	cc.Init(&cc.Config{
		RootCmd:       rootCmd,
		Headings:      cc.HiCyan + cc.Bold + cc.Underline,
		Commands:      cc.HiYellow + cc.Bold,
		Example:       cc.Italic,
		ExecName:      cc.Bold,
		Flags:         cc.Bold,
		FlagsDataType: cc.Italic + cc.HiBlue,
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "reelplayer:", strings.TrimSpace(err.Error()))
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if opts.configPath != "" {
		return config.LoadFrom(opts.configPath)
	}
	return config.Load()
}

func saveConfig(cfg *config.Config) error {
	if opts.configPath != "" {
		return cfg.SaveTo(opts.configPath)
	}
	return cfg.Save()
}

// applyFlags lets explicitly set flags override the config file.
func applyFlags(cmd *cobra.Command, cfg *config.Config, o rootOptions) {
	changed := cmd.Flags().Changed
	if changed("volume") {
		cfg.Playback.Volume = o.volume
	}
	if changed("speed") {
		cfg.Playback.Speed = o.speed
	}
	if changed("autoplay") {
		cfg.Playback.Autoplay = o.autoplay
	}
	if changed("fullscreen") {
		cfg.UI.Fullscreen = o.fullscreen
	}
	if changed("direct") {
		cfg.Server.DirectPlay = o.direct
	}
	if changed("remote") {
		cfg.Remote.Enabled = o.remote != ""
		cfg.Remote.Listen = o.remote
	}
	if changed("log-level") {
		cfg.Log.Level = o.logLevel
	}
}

func newLogger(cfg *config.Config) (*logrus.Entry, func(), error) {
	logger, closer, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return logrus.NewEntry(logger), func() { _ = closer.Close() }, nil
}

func run(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg, opts)
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	playback, err := resolvePlayback(ctx, cfg, opts, log)
	if err != nil {
		return err
	}

	cacheDir := filepath.Join(os.TempDir(), "reelplayer", "images")
	if dir, err := config.ConfigDir(); err == nil {
		cacheDir = filepath.Join(dir, "cache", "images")
	}
	images, err := cache.NewImageCache(afero.NewOsFs(), cacheDir, nil, log)
	if err != nil {
		return fmt.Errorf("image cache: %w", err)
	}

	game := app.NewGame(cfg, playback, images, log)
	defer game.Close()

	ebiten.SetWindowSize(cfg.UI.Width, cfg.UI.Height)
	ebiten.SetWindowTitle("Reelplayer")
	ebiten.SetWindowIcon(icon.Generate())
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetFullscreen(cfg.UI.Fullscreen)
	ebiten.SetRunnableOnUnfocused(true)

	go func() {
		<-ctx.Done()
		game.Quit()
	}()

	if err := ebiten.RunGame(game); err != nil && !errors.Is(err, ebiten.Termination) {
		return err
	}
	return nil
}

// resolvePlayback decides what to play from the flags: a plain URL, or a
// Jellyfin item resolved through the configured server.
func resolvePlayback(ctx context.Context, cfg *config.Config, o rootOptions, log *logrus.Entry) (jellyfin.Playback, error) {
	switch {
	case o.url != "":
		var chapters []chapter.Chapter
		if o.chapters != "" {
			var err error
			if chapters, err = chapter.Load(o.chapters); err != nil {
				return jellyfin.Playback{}, err
			}
		}
		return urlPlayback(o.url, o.title, o.poster, chapters), nil
	case o.item != "":
		client, err := serverClient(cfg, log)
		if err != nil {
			return jellyfin.Playback{}, err
		}
		pb, err := client.Resolve(ctx, o.item)
		if err != nil {
			return jellyfin.Playback{}, fmt.Errorf("resolve item: %w", err)
		}
		return *pb, nil
	}
	return jellyfin.Playback{}, errors.New("nothing to play: pass --url or --item")
}

func urlPlayback(url, title, poster string, chapters []chapter.Chapter) jellyfin.Playback {
	if title == "" {
		title = path.Base(strings.SplitN(url, "?", 2)[0])
	}
	return jellyfin.Playback{Entries: []jellyfin.Entry{{Title: title, URL: url, Poster: poster, Chapters: chapters}}}
}

// serverClient builds an authenticated client from the [server] section.
func serverClient(cfg *config.Config, log *logrus.Entry) (*jellyfin.Client, error) {
	token := sessionToken(cfg)
	if cfg.Server.URL == "" || token == "" {
		return nil, errors.New("no Jellyfin session: run 'reelplayer login' first")
	}
	client := jellyfin.NewClient(cfg.Server.URL, deviceID(cfg), log)
	client.SetToken(token, cfg.Server.UserID)
	client.SetDirectPlay(cfg.Server.DirectPlay)
	return client, nil
}

// deviceID returns the install's device ID, creating one when missing.
func deviceID(cfg *config.Config) string {
	if cfg.Server.DeviceID == "" {
		cfg.Server.DeviceID = uuid.NewString()
	}
	return cfg.Server.DeviceID
}
