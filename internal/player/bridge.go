package player

import (
	"github.com/sirupsen/logrus"

	"github.com/depeter/reelplayer/internal/media"
)

// bridge copies media element events into the store. It only reads from the
// element; playback commands are issued elsewhere.
type bridge struct {
	el      media.Element
	store   *Store
	onEnded func()
	onError func(error)
	log     *logrus.Entry

	unsubscribe func()
}

// attach subscribes to el. Events are handed to exec in emission order.
func (b *bridge) attach(exec func(func())) {
	b.detach()
	b.unsubscribe = b.el.Subscribe(func(ev media.Event) {
		exec(func() { b.handle(ev) })
	})
}

func (b *bridge) detach() {
	if b.unsubscribe != nil {
		b.unsubscribe()
		b.unsubscribe = nil
	}
}

func (b *bridge) handle(ev media.Event) {
	switch ev.Type {
	case media.EventTimeUpdate:
		b.store.SetTimeUpdate(b.el.CurrentTime(), b.el.Duration())
	case media.EventProgress:
		ranges := b.el.Buffered()
		if len(ranges) > 0 {
			b.store.SetBuffered(ranges[len(ranges)-1].End, b.el.Duration())
		}
	case media.EventLoadedMetadata:
		b.store.SetDuration(b.el.Duration())
	case media.EventEnded:
		b.store.SetPlaying(false)
		if b.onEnded != nil {
			b.onEnded()
		}
	case media.EventPlay:
		b.store.SetPlaying(true)
	case media.EventPause:
		b.store.SetPlaying(false)
	case media.EventWaiting, media.EventStalled:
		b.store.SetBuffering(true)
	case media.EventPlaying:
		b.store.SetBuffering(false)
	case media.EventEnterPictureInPicture:
		b.store.SetMiniPlayer(true)
	case media.EventLeavePictureInPicture:
		b.store.SetMiniPlayer(false)
	case media.EventError:
		b.log.WithError(ev.Err).Debug("media element error")
		if b.onError != nil {
			b.onError(ev.Err)
		}
	}
}
