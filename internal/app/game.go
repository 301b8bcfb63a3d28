// Package app hosts the player in an ebiten window: it embeds mpv, turns
// window input into player commands and keeps the on-screen display current.
package app

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/sirupsen/logrus"

	"github.com/depeter/reelplayer/internal/cache"
	"github.com/depeter/reelplayer/internal/config"
	"github.com/depeter/reelplayer/internal/hls"
	"github.com/depeter/reelplayer/internal/jellyfin"
	"github.com/depeter/reelplayer/internal/media"
	"github.com/depeter/reelplayer/internal/mpv"
	"github.com/depeter/reelplayer/internal/osd"
	"github.com/depeter/reelplayer/internal/player"
	"github.com/depeter/reelplayer/internal/remote"
)

// startupFrames gives the window manager time to map the window before mpv
// is embedded into it.
const startupFrames = 3

// Game implements ebiten.Game.
type Game struct {
	cfg      *config.Config
	playback jellyfin.Playback
	images   *cache.ImageCache
	log      *logrus.Entry

	ctx    context.Context
	cancel context.CancelFunc

	el          *mpv.Element
	player      *player.Player
	fs          *windowFullscreen
	unsubscribe func()
	remoteDone  chan struct{}

	mu    sync.Mutex
	snap  player.Snapshot
	dirty bool

	lastOSD     string
	posters     chan posterResult
	posterURL   string
	posterShown bool

	clicks  *clickTracker
	pointer pointerTracker
	focused bool
	frames  int
	quit    atomic.Bool

	Width, Height int
}

type posterResult struct {
	url string
	img image.Image
}

// NewGame prepares a game for playback. Nothing is started until the first
// frames have run.
func NewGame(cfg *config.Config, playback jellyfin.Playback, images *cache.ImageCache, log *logrus.Entry) *Game {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Game{
		cfg:      cfg,
		playback: playback,
		images:   images,
		log:      log.WithField("component", "app"),
		ctx:      ctx,
		cancel:   cancel,
		fs:       newWindowFullscreen(cfg.UI.Fullscreen),
		posters:  make(chan posterResult, 1),
		clicks:   newClickTracker(),
		focused:  true,
		Width:    cfg.UI.Width,
		Height:   cfg.UI.Height,
	}
}

func millis(ms int) time.Duration { return time.Duration(ms) * time.Millisecond }

// start embeds mpv into the window and builds the player around it.
func (g *Game) start() error {
	wid, err := mpv.FocusedWindow()
	if err != nil {
		g.log.WithError(err).Warn("no window handle, mpv opens its own window")
		wid = 0
	}
	el, err := mpv.New(g.cfg, wid, g.log)
	if err != nil {
		return fmt.Errorf("start mpv: %w", err)
	}
	g.el = el

	var fs media.Fullscreen = el.Fullscreen()
	if wid != 0 {
		fs = g.fs
	}
	p := player.New(player.Options{
		Element:            el,
		Fullscreen:         fs,
		PiP:                el.PictureInPicture(),
		Decoders:           hls.Factory{Log: g.log.WithField("component", "hls")},
		TheaterModeEnabled: g.cfg.Playback.Theater,
		Autoplay:           g.cfg.Playback.Autoplay,
		IdleTimeout:        millis(g.cfg.Controls.IdleTimeout),
		SeekStep:           g.cfg.Controls.SeekStep,
		SeekQuiet:          millis(g.cfg.Controls.SeekQuiet),
		SeekLinger:         millis(g.cfg.Controls.SeekLinger),
		OnVideoChange:      g.changeVideo,
		Log:                g.log.Logger.WithField("component", "player"),
	})
	g.player = p
	g.unsubscribe = p.Subscribe(g.onSnapshot)

	p.Mount()
	g.applyEntry(g.playback.Index)
	p.SetPlaylist(g.playback.URLs(), g.playback.Index)
	p.SetVolume(g.cfg.Playback.Volume)
	p.SetPlaybackSpeed(g.cfg.Playback.Speed)

	if g.cfg.Remote.Enabled {
		srv := remote.New(p, g.log.Logger.WithField("component", "remote"))
		g.remoteDone = make(chan struct{})
		go func() {
			defer close(g.remoteDone)
			if err := srv.ListenAndServe(g.ctx, g.cfg.Remote.Listen); err != nil {
				g.log.WithError(err).Error("remote control stopped")
			}
		}()
	}
	return nil
}

// changeVideo answers a playlist move requested by the player.
func (g *Game) changeVideo(index int) {
	if index < 0 || index >= len(g.playback.Entries) {
		return
	}
	g.applyEntry(index)
	g.player.SetPlaylistIndex(index)
}

func (g *Game) applyEntry(index int) {
	if index < 0 || index >= len(g.playback.Entries) {
		return
	}
	e := g.playback.Entries[index]
	g.player.SetMetadata(e.Title, e.Poster, e.Chapters)
	ebiten.SetWindowTitle(e.Title)
}

func (g *Game) onSnapshot(s player.Snapshot) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.snap = s
	g.dirty = true
}

func (g *Game) Update() error {
	if g.quit.Load() {
		return ebiten.Termination
	}
	if g.player == nil {
		g.frames++
		if g.frames < startupFrames {
			return nil
		}
		if err := g.start(); err != nil {
			return err
		}
	}

	g.fs.sync(ebiten.SetFullscreen, ebiten.IsFullscreen)
	g.handleKeys()
	g.handlePointer(time.Now())
	g.refresh()
	return nil
}

func (g *Game) handleKeys() {
	for _, k := range pressedKeys() {
		switch k.Name {
		case "Escape":
			g.player.Escape()
			continue
		case "s", "S":
			g.player.ToggleSettingsMenu()
			continue
		}

		if a := menuKey(g.player.Snapshot().Settings, k.Name); a.kind != menuNone {
			g.applyMenu(a)
			continue
		}
		if handled, _ := g.player.HandleKey(k); handled {
			continue
		}
		if k.Name == "q" {
			g.Quit()
		}
	}
}

func (g *Game) applyMenu(a menuAction) {
	switch a.kind {
	case menuPage:
		g.player.ShowSettingsPage(a.page)
	case menuSpeed:
		g.player.SetPlaybackSpeed(a.speed)
	case menuQuality:
		g.player.SetCurrentQuality(a.quality)
	}
}

func (g *Game) handlePointer(now time.Time) {
	focused := ebiten.IsFocused()
	if g.focused && !focused {
		g.player.PointerDown(false)
	}
	g.focused = focused

	x, y := ebiten.CursorPosition()
	moved, left := g.pointer.update(x, y, g.Width, g.Height, focused)
	if moved {
		g.player.PointerMove()
	}
	if left {
		g.player.PointerLeave()
	}

	if _, dy := ebiten.Wheel(); dy > 0 {
		g.player.HandleKey(player.Key{Name: "ArrowUp"})
	} else if dy < 0 {
		g.player.HandleKey(player.Key{Name: "ArrowDown"})
	}

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonRight) {
		g.player.ToggleSettingsMenu()
	}
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) && g.pointer.inside {
		g.click(now, x, y)
	}
	g.applyClick(g.clicks.tick(now))
}

func (g *Game) click(now time.Time, x, y int) {
	s := g.player.Snapshot()
	g.player.PointerDown(true)
	if s.Settings.Open {
		return
	}
	if !s.HasStarted {
		g.player.TogglePlay()
		return
	}
	if s.AreControlsVisible {
		cx, cy := toCanvas(x, y, g.Width, g.Height, osd.Width, osd.Height)
		if f, ok := osd.SeekBarFraction(cx, cy); ok {
			g.player.SeekToPercentage(f * 100)
			return
		}
	}
	g.applyClick(g.clicks.press(now, x >= g.Width/2))
}

func (g *Game) applyClick(a clickAction) {
	switch a {
	case clickTogglePlay:
		g.player.TogglePlay()
	case clickSeekBackward:
		g.player.SeekBackward()
	case clickSeekForward:
		g.player.SeekForward()
	}
}

// refresh pushes the latest snapshot to the on-screen display.
func (g *Game) refresh() {
	g.showLoadedPoster()

	g.mu.Lock()
	s, dirty := g.snap, g.dirty
	g.dirty = false
	g.mu.Unlock()
	if !dirty {
		return
	}

	if ass := osd.Render(s); ass != g.lastOSD {
		if err := g.el.SetOSDOverlay(ass, osd.Width, osd.Height); err != nil {
			g.log.WithError(err).Debug("osd overlay")
		}
		g.lastOSD = ass
	}
	g.updatePoster(s)
}

// updatePoster shows the poster until playback starts.
func (g *Game) updatePoster(s player.Snapshot) {
	want := ""
	if !s.HasStarted && s.Error.IsAbsent() {
		want = s.Poster
	}
	if want == g.posterURL {
		return
	}
	g.posterURL = want
	if g.posterShown {
		if err := g.el.HidePoster(); err != nil {
			g.log.WithError(err).Debug("hide poster")
		}
		g.posterShown = false
	}
	if want == "" || g.images == nil {
		return
	}
	g.images.LoadAsync(g.ctx, want, func(img image.Image) {
		select {
		case g.posters <- posterResult{url: want, img: img}:
		default:
		}
	})
}

func (g *Game) showLoadedPoster() {
	select {
	case r := <-g.posters:
		if r.img == nil || r.url != g.posterURL || g.posterShown {
			return
		}
		if err := g.el.ShowPoster(r.img); err != nil {
			g.log.WithError(err).Warn("show poster")
			return
		}
		g.posterShown = true
	default:
	}
}

// Draw leaves the surface to mpv once it is embedded.
func (g *Game) Draw(screen *ebiten.Image) {
	if g.player == nil {
		screen.Fill(color.Black)
	}
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	g.Width, g.Height = outsideWidth, outsideHeight
	return outsideWidth, outsideHeight
}

// Quit ends the game loop on its next frame. Safe from any goroutine.
func (g *Game) Quit() { g.quit.Store(true) }

// Close releases the player, mpv and the remote server.
func (g *Game) Close() {
	g.cancel()
	if g.unsubscribe != nil {
		g.unsubscribe()
	}
	if g.player != nil {
		g.player.Close()
	}
	if g.el != nil {
		g.el.Close()
	}
	if g.remoteDone != nil {
		<-g.remoteDone
	}
}
