package admin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/brinehollow/placewall/internal/canvas"
	"github.com/brinehollow/placewall/internal/hostreg"
	"github.com/brinehollow/placewall/internal/model"
	"github.com/brinehollow/placewall/internal/session"
	"github.com/brinehollow/placewall/internal/store"
	"github.com/brinehollow/placewall/internal/users"
)

type fakeNotifier struct {
	announcements []string
	tileUpdates   int
	shutdownCalls int
}

func (f *fakeNotifier) Announcement(text string)                      { f.announcements = append(f.announcements, text) }
func (f *fakeNotifier) TileUpdate(x, y int, tile model.Tile)          { f.tileUpdates++ }
func (f *fakeNotifier) Shutdown()                                     { f.shutdownCalls++ }

func testPalette() canvas.Palette {
	return canvas.Palette{{ID: 0}, {ID: 1}, {ID: 2}}
}

func newTestPlane(t *testing.T, admins []model.AdminCapabilities) (*Plane, *fakeNotifier, *users.Registry) {
	t.Helper()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.FillDefault(context.Background(), 8, 0))
	c, err := canvas.Load(context.Background(), s, 8, testPalette(), 0)
	require.NoError(t, err)

	n := &fakeNotifier{}
	u := users.New(s)
	sm := session.New(u, hostreg.New(s), noopSessionNotifier{}, 100, 100, session.RateLimits{
		CanvasMaxRate: 1000, CanvasPerSeconds: 1, TileMaxRate: 1000, TilePerSeconds: 1,
	})
	p := New(c, sm, n, admins)
	return p, n, u
}

type noopSessionNotifier struct{}

func (noopSessionNotifier) Kicked(session.Conn, string, string) {}
func (noopSessionNotifier) TileCountIncrement(session.Conn, int) {}
func (noopSessionNotifier) UserCountChanged(int) {}

func TestAnnounce_RequiresCapability(t *testing.T) {
	p, n, _ := newTestPlane(t, []model.AdminCapabilities{{UUID: "admin-1", Announce: true}})

	require.NoError(t, p.Announce("admin-1", "hello"))
	require.Equal(t, []string{"hello"}, n.announcements)

	require.Error(t, p.Announce("not-admin", "hello"))
	require.Error(t, p.Announce("admin-1-without-cap", "hello"))
}

func TestToggleShadowban_FlipsTwiceRestoresOriginal(t *testing.T) {
	p, _, u := newTestPlane(t, []model.AdminCapabilities{{UUID: "admin-1", ShadowBan: true}})
	ctx := context.Background()

	target := model.NewUser("target-1", time.Now())
	require.NoError(t, u.Persist(ctx, target))

	require.NoError(t, p.ToggleShadowban(ctx, "admin-1", "target-1", u))
	loaded, err := u.Load(ctx, "target-1")
	require.NoError(t, err)
	require.True(t, loaded.IsShadowBanned)

	require.NoError(t, p.ToggleShadowban(ctx, "admin-1", "target-1", u))
	loaded, err = u.Load(ctx, "target-1")
	require.NoError(t, err)
	require.False(t, loaded.IsShadowBanned)
}

func TestBanClick_RefusesAdministratorTarget(t *testing.T) {
	p, _, u := newTestPlane(t, []model.AdminCapabilities{
		{UUID: "admin-1", BanClick: true},
		{UUID: "admin-2"},
	})
	ctx := context.Background()

	admin2 := model.NewUser("admin-2", time.Now())
	require.NoError(t, u.Persist(ctx, admin2))

	_, err := p.canvas.Place(1, 1, 1, "admin-2", 10)
	require.NoError(t, err)

	err = p.BanClick(ctx, "admin-1", 1, 1, u)
	require.Error(t, err)
}

func TestBrush_ClipsToCanvasAndEmitsUpdates(t *testing.T) {
	p, n, _ := newTestPlane(t, []model.AdminCapabilities{{UUID: "admin-1", Cleanup: true}})

	require.NoError(t, p.Brush("admin-1", 0, 0, 2, 100))
	require.Equal(t, 16, n.tileUpdates) // 7x7 clipped to a 4x4 quadrant on an 8x8 canvas
}

func TestShutdown_RequiresCapability(t *testing.T) {
	p, n, _ := newTestPlane(t, []model.AdminCapabilities{{UUID: "admin-1", Shutdown: true}})

	require.Error(t, p.Shutdown("someone-else"))
	require.Equal(t, 0, n.shutdownCalls)

	require.NoError(t, p.Shutdown("admin-1"))
	require.Equal(t, 1, n.shutdownCalls)
}
