package projection

import (
	"encoding/json"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"

	"mmtools/domain"
)

func testConfig() Config {
	return Config{
		Prefix:       "chat",
		ChannelColor: "#00FF00",
		UserColor:    "#FF4488",
	}
}

// snapshot with one unread direct message, one unread group channel and one
// fully read channel.
func testSnapshot() domain.Snapshot {
	return domain.Snapshot{Channels: []domain.Channel{
		{ID: "c1", Type: domain.Direct, Name: "u1__u2", DisplayName: "bob", TotalMsgCount: 5, ReadMsgCount: 2},
		{ID: "c2", Type: domain.Other, Name: "general", TotalMsgCount: 10, ReadMsgCount: 10},
		{ID: "c3", Type: domain.Other, Name: "dev", DisplayName: "Dev", TotalMsgCount: 4, ReadMsgCount: 1},
	}}
}

func TestNew(t *testing.T) {
	req := require.New(t)

	for _, format := range []string{FormatI3blocks, FormatPolybar, FormatWaybar} {
		r, err := New(format, testConfig())
		req.NoError(err)
		req.NotNil(r)
	}

	_, err := New("lemonbar", testConfig())
	req.Error(err)
}

func TestI3blocks_Render(t *testing.T) {
	req := require.New(t)
	r := I3blocks{cfg: testConfig()}

	// Group entries render before direct entries; the color line is the
	// user color because a direct entry exists.
	req.Equal("chat Dev:3 | bob:3\nchat Dev:3 | bob:3\n#FF4488", r.Render(testSnapshot()))
}

func TestI3blocks_RenderChannelColorWithoutDirects(t *testing.T) {
	r := I3blocks{cfg: testConfig()}
	snap := domain.Snapshot{Channels: []domain.Channel{
		{ID: "c3", Type: domain.Other, Name: "dev", TotalMsgCount: 4, ReadMsgCount: 1},
	}}

	require.Equal(t, "chat dev:3\nchat dev:3\n#00FF00", r.Render(snap))
}

func TestI3blocks_RenderEmptySnapshot(t *testing.T) {
	r := I3blocks{cfg: testConfig()}

	// No color line and no trailing space when nothing is unread.
	require.Equal(t, "chat\nchat", r.Render(domain.Snapshot{}))
}

func TestI3blocks_RenderError(t *testing.T) {
	r := I3blocks{cfg: testConfig()}
	require.Equal(t, "chat down\nchat down\n#FF0000", r.RenderError("down"))
}

func TestPolybar_Render(t *testing.T) {
	req := require.New(t)
	r := Polybar{cfg: testConfig()}

	// Both categories present: the prefix takes the channel color.
	req.Equal(
		"%{F#00FF00}chat%{F-} %{F#00FF00}Dev:3%{F-} | %{F#FF4488}bob:3%{F-}",
		r.Render(testSnapshot()),
	)
}

func TestPolybar_RenderDirectsOnly(t *testing.T) {
	r := Polybar{cfg: testConfig()}
	snap := domain.Snapshot{Channels: []domain.Channel{
		{ID: "c1", Type: domain.Direct, Name: "u1__u2", DisplayName: "bob", TotalMsgCount: 5, ReadMsgCount: 2},
	}}

	require.Equal(t, "%{F#FF4488}chat%{F-} %{F#FF4488}bob:3%{F-}", r.Render(snap))
}

func TestPolybar_RenderEmptySnapshot(t *testing.T) {
	r := Polybar{cfg: testConfig()}
	require.Equal(t, "chat", r.Render(domain.Snapshot{}))
}

func TestPolybar_RenderError(t *testing.T) {
	r := Polybar{cfg: testConfig()}
	require.Equal(t, "%{F#FF0000}chat down%{F-}", r.RenderError("down"))
}

func TestWaybar_Render(t *testing.T) {
	req := require.New(t)
	r := Waybar{cfg: testConfig()}

	var rec waybarRecord
	req.NoError(json.Unmarshal([]byte(r.Render(testSnapshot())), &rec))
	req.Equal("chat Dev:3 | bob:3", rec.Text)
	req.Equal("private", rec.Class)
}

func TestWaybar_RenderClassWithoutDirects(t *testing.T) {
	req := require.New(t)
	r := Waybar{cfg: testConfig()}
	snap := domain.Snapshot{Channels: []domain.Channel{
		{ID: "c3", Type: domain.Other, Name: "dev", TotalMsgCount: 4, ReadMsgCount: 1},
	}}

	var rec waybarRecord
	req.NoError(json.Unmarshal([]byte(r.Render(snap)), &rec))
	req.Equal("other", rec.Class)
}

func TestWaybar_RenderError(t *testing.T) {
	req := require.New(t)
	r := Waybar{cfg: testConfig()}

	var rec waybarRecord
	req.NoError(json.Unmarshal([]byte(r.RenderError("down")), &rec))
	req.Equal("chat down", rec.Text)
	req.Equal("error", rec.Class)
}

func TestEntries_IgnorePatternMatchesRawName(t *testing.T) {
	req := require.New(t)

	cfg := testConfig()
	cfg.Ignore = regexp.MustCompile("^dev")

	others, privates := entries(testSnapshot(), cfg)
	req.Empty(others)
	req.Equal([]string{"bob:3"}, privates)
}

func TestEntries_OrderIsStable(t *testing.T) {
	req := require.New(t)

	snap := domain.Snapshot{Channels: []domain.Channel{
		{ID: "c1", Type: domain.Direct, Name: "u1__u2", DisplayName: "bob", TotalMsgCount: 2, ReadMsgCount: 0},
		{ID: "c2", Type: domain.Other, Name: "alpha", TotalMsgCount: 2, ReadMsgCount: 0},
		{ID: "c3", Type: domain.Other, Name: "beta", TotalMsgCount: 2, ReadMsgCount: 0},
		{ID: "c4", Type: domain.Direct, Name: "u1__u3", DisplayName: "eve", TotalMsgCount: 2, ReadMsgCount: 0},
	}}

	for range 10 {
		others, privates := entries(snap, testConfig())
		req.Equal([]string{"alpha:2", "beta:2"}, others)
		req.Equal([]string{"bob:2", "eve:2"}, privates)
	}
}
