package remote

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"

	"github.com/depeter/reelplayer/internal/player"
)

// Player is the part of *player.Player the remote drives.
type Player interface {
	Snapshot() player.Snapshot
	Subscribe(fn func(player.Snapshot)) (unsubscribe func())

	TogglePlay()
	SetVolume(v float64)
	ToggleMute()
	SetPlaybackSpeed(speed float64)
	SetCurrentQuality(index int)
	ToggleAutoplay()
	ToggleSubtitles()
	ToggleTheaterMode()
	ToggleMiniPlayer()
	ToggleFullscreen()
	Seek(t float64)
	SeekRelative(delta float64)
	SeekToPercentage(pct float64)
	SeekToChapter(index int)
	SeekForward()
	SeekBackward()
	ToggleSettingsMenu()
	ToggleChaptersSidebar()
	Next()
	Previous()
}

// Command is one remote request, over HTTP or the websocket.
type Command struct {
	Name  string   `json:"name" validate:"required" jsonschema:"required,description=Command to run."`
	Value *float64 `json:"value" validate:"omitempty,gte=-86400,lte=86400" jsonschema:"minimum=-86400,maximum=86400,description=Argument for commands that take one. Seconds for seeks and 0 to 1 for volume."`
}

type command struct {
	needsValue bool
	run        func(p Player, v float64)
}

func action(f func(Player)) command {
	return command{run: func(p Player, _ float64) { f(p) }}
}

func valued(f func(Player, float64)) command {
	return command{needsValue: true, run: f}
}

var commands = map[string]command{
	"toggle_play":          action(Player.TogglePlay),
	"toggle_mute":          action(Player.ToggleMute),
	"toggle_autoplay":      action(Player.ToggleAutoplay),
	"toggle_subtitles":     action(Player.ToggleSubtitles),
	"toggle_theater_mode":  action(Player.ToggleTheaterMode),
	"toggle_mini_player":   action(Player.ToggleMiniPlayer),
	"toggle_fullscreen":    action(Player.ToggleFullscreen),
	"toggle_settings_menu": action(Player.ToggleSettingsMenu),
	"toggle_chapters":      action(Player.ToggleChaptersSidebar),
	"seek_forward":         action(Player.SeekForward),
	"seek_backward":        action(Player.SeekBackward),
	"next":                 action(Player.Next),
	"previous":             action(Player.Previous),
	"set_volume":           valued(Player.SetVolume),
	"set_playback_speed":   valued(Player.SetPlaybackSpeed),
	"seek":                 valued(Player.Seek),
	"seek_relative":        valued(Player.SeekRelative),
	"seek_to_percentage":   valued(Player.SeekToPercentage),
	"set_current_quality":  valued(func(p Player, v float64) { p.SetCurrentQuality(int(v)) }),
	"seek_to_chapter":      valued(func(p Player, v float64) { p.SeekToChapter(int(v)) }),
}

// CommandNames lists the accepted command names, sorted.
func CommandNames() []string {
	names := lo.Keys(commands)
	slices.Sort(names)
	return names
}

// CommandSchema describes Command as a JSON schema, with the accepted names
// as the enum of "name".
func CommandSchema() *jsonschema.Schema {
	reflector := &jsonschema.Reflector{
		ExpandedStruct:             true,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	schema := reflector.Reflect(&Command{})
	if name, ok := schema.Properties.Get("name"); ok {
		name.Enum = lo.ToAnySlice(CommandNames())
	}
	return schema
}

// maxSuggestDistance bounds how far a typo may be from a known name.
const maxSuggestDistance = 3

// suggest returns the known command closest to name, if any is close.
func suggest(name string) (string, bool) {
	best, bestDist := "", maxSuggestDistance+1
	for _, known := range CommandNames() {
		if d := fuzzy.LevenshteinDistance(strings.ToLower(name), known); d < bestDist {
			best, bestDist = known, d
		}
	}
	return best, best != ""
}

// FieldError describes one rejected field of a command.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type commandValidator struct {
	validate *validator.Validate
}

func newCommandValidator() *commandValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &commandValidator{validate: v}
}

// check validates cmd and resolves it against the command table.
func (v *commandValidator) check(cmd Command) (command, []FieldError) {
	if err := v.validate.Struct(cmd); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return command{}, []FieldError{{Code: "INVALID", Message: err.Error()}}
		}
		return command{}, lo.Map(verrs, func(fe validator.FieldError, _ int) FieldError {
			return FieldError{
				Field:   fe.Field(),
				Code:    strings.ToUpper(fe.Tag()),
				Message: fieldMessage(fe),
			}
		})
	}

	c, ok := commands[cmd.Name]
	if !ok {
		msg := fmt.Sprintf("unknown command %q", cmd.Name)
		if s, found := suggest(cmd.Name); found {
			msg += fmt.Sprintf(", did you mean %q?", s)
		}
		return command{}, []FieldError{{Field: "name", Code: "UNKNOWN", Message: msg}}
	}
	if c.needsValue && cmd.Value == nil {
		return command{}, []FieldError{{Field: "value", Code: "REQUIRED", Message: fmt.Sprintf("value is required for %s", cmd.Name)}}
	}
	return c, nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "gte", "lte":
		return fmt.Sprintf("%s is out of range", fe.Field())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}
