// Package projection renders channel snapshots into the status-bar output
// dialects. Renderers are pure functions of a snapshot plus configuration;
// they perform no I/O and cannot fail.
package projection

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/samber/lo"

	"mmtools/domain"
)

// Output dialect names, matching the status-bar host programs.
const (
	FormatI3blocks = "i3blocks"
	FormatPolybar  = "polybar"
	FormatWaybar   = "waybar"
)

// degradedColor marks the error-state rendering when the remote service is
// unreachable.
const degradedColor = "#FF0000"

// Config carries the rendering settings shared by all dialects.
type Config struct {
	// Prefix is prepended to every rendering, with no trailing space when
	// the message is empty.
	Prefix string
	// Ignore drops channels whose raw name matches; nil means keep all.
	Ignore *regexp.Regexp
	// ChannelColor highlights unread group channels.
	ChannelColor string
	// UserColor highlights unread direct messages.
	UserColor string
}

// Renderer turns a snapshot, or a failure reason, into one dialect's output.
type Renderer interface {
	Render(s domain.Snapshot) string
	RenderError(reason string) string
}

// New returns the renderer for a dialect name.
func New(format string, cfg Config) (Renderer, error) {
	switch format {
	case FormatI3blocks:
		return I3blocks{cfg: cfg}, nil
	case FormatPolybar:
		return Polybar{cfg: cfg}, nil
	case FormatWaybar:
		return Waybar{cfg: cfg}, nil
	default:
		return nil, fmt.Errorf("unknown status format %q", format)
	}
}

// entries filters and partitions a snapshot into rendered "<label>:<count>"
// strings: group channels first, direct messages second. Order within each
// category follows the snapshot.
func entries(s domain.Snapshot, cfg Config) (others, privates []string) {
	visible := lo.Filter(s.Channels, func(c domain.Channel, _ int) bool {
		if c.Unread() == 0 {
			return false
		}
		if cfg.Ignore != nil && cfg.Ignore.MatchString(c.Name) {
			return false
		}
		return true
	})

	entry := func(c domain.Channel, _ int) string {
		return fmt.Sprintf("%s:%d", c.Label(), c.Unread())
	}

	others = lo.Map(lo.Filter(visible, func(c domain.Channel, _ int) bool {
		return c.Type != domain.Direct
	}), entry)
	privates = lo.Map(lo.Filter(visible, func(c domain.Channel, _ int) bool {
		return c.Type == domain.Direct
	}), entry)
	return others, privates
}

// text joins all entries behind the prefix. No space is appended when there
// is nothing to show.
func text(cfg Config, others, privates []string) string {
	message := strings.Join(append(others, privates...), " | ")
	if message == "" {
		return cfg.Prefix
	}
	return cfg.Prefix + " " + message
}

// I3blocks is the line-oriented dialect: full text, full text repeated, then
// an optional bare hex color line.
type I3blocks struct {
	cfg Config
}

func (r I3blocks) Render(s domain.Snapshot) string {
	others, privates := entries(s, r.cfg)

	lines := []string{text(r.cfg, others, privates), text(r.cfg, others, privates)}
	switch {
	case len(privates) > 0:
		lines = append(lines, r.cfg.UserColor)
	case len(others) > 0:
		lines = append(lines, r.cfg.ChannelColor)
	}
	return strings.Join(lines, "\n")
}

func (r I3blocks) RenderError(reason string) string {
	line := r.cfg.Prefix + " " + reason
	return strings.Join([]string{line, line, degradedColor}, "\n")
}

// Polybar is the inline-markup dialect: each category is wrapped in its own
// %{F<color>} token, and the prefix takes the channel color when any group
// entries exist, the user color otherwise.
type Polybar struct {
	cfg Config
}

func (r Polybar) Render(s domain.Snapshot) string {
	others, privates := entries(s, r.cfg)
	if len(others) == 0 && len(privates) == 0 {
		return r.cfg.Prefix
	}

	var segments []string
	if len(others) > 0 {
		segments = append(segments, colorWrap(r.cfg.ChannelColor, strings.Join(others, " | ")))
	}
	if len(privates) > 0 {
		segments = append(segments, colorWrap(r.cfg.UserColor, strings.Join(privates, " | ")))
	}

	prefixColor := lo.Ternary(len(others) > 0, r.cfg.ChannelColor, r.cfg.UserColor)
	return colorWrap(prefixColor, r.cfg.Prefix) + " " + strings.Join(segments, " | ")
}

func (r Polybar) RenderError(reason string) string {
	return colorWrap(degradedColor, r.cfg.Prefix+" "+reason)
}

func colorWrap(color, s string) string {
	return "%{F" + color + "}" + s + "%{F-}"
}

// Waybar is the structured dialect: one JSON object with text and class.
type Waybar struct {
	cfg Config
}

type waybarRecord struct {
	Text  string `json:"text"`
	Class string `json:"class"`
}

func (r Waybar) Render(s domain.Snapshot) string {
	others, privates := entries(s, r.cfg)

	class := "other"
	if len(privates) > 0 {
		class = "private"
	}
	return marshalRecord(waybarRecord{Text: text(r.cfg, others, privates), Class: class})
}

func (r Waybar) RenderError(reason string) string {
	return marshalRecord(waybarRecord{Text: r.cfg.Prefix + " " + reason, Class: "error"})
}

func marshalRecord(rec waybarRecord) string {
	// Marshalling a flat string struct cannot fail.
	out, _ := json.Marshal(rec)
	return string(out)
}
