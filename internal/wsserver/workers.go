package wsserver

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/viper"

	"github.com/brinehollow/placewall/internal/config"
	"github.com/brinehollow/placewall/internal/logging"
	"github.com/brinehollow/placewall/internal/session"
)

// Run starts every background worker from SPEC_FULL.md §4.8 and blocks
// until ctx is canceled, an admin triggers shutdown, or a SIGTERM/SIGINT
// arrives. It always does a final flush and checkpoint before returning.
func (srv *Server) Run(ctx context.Context, v *viper.Viper) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP, syscall.SIGUSR1)
	defer signal.Stop(sig)

	ping := time.NewTicker(time.Duration(srv.cfg.WebsocketPingIntervalSec) * time.Second)
	canvasFlush := time.NewTicker(time.Duration(srv.cfg.CanvasSaveIntervalSec) * time.Second)
	userCheckpoint := time.NewTicker(time.Duration(srv.cfg.UsersSaveIntervalSec) * time.Second)
	snapshot := time.NewTicker(time.Duration(srv.cfg.CanvasSaveIntervalSec) * time.Second)
	reaper := time.NewTicker(30 * time.Second)
	defer ping.Stop()
	defer canvasFlush.Stop()
	defer userCheckpoint.Stop()
	defer snapshot.Stop()
	defer reaper.Stop()

	kickAfter := time.Duration(srv.cfg.KickInactiveAfterSec) * time.Second

	for {
		select {
		case <-ctx.Done():
			srv.finalFlush(context.Background())
			return ctx.Err()

		case <-srv.shutdown:
			srv.finalFlush(context.Background())
			return nil

		case s := <-sig:
			switch s {
			case syscall.SIGTERM, syscall.SIGINT:
				srv.finalFlush(context.Background())
				return nil
			case syscall.SIGHUP:
				srv.reloadConfig(v)
			case syscall.SIGUSR1:
				srv.runBackup(context.Background())
			}

		case <-ping.C:
			srv.pingAll()

		case <-canvasFlush.C:
			srv.flushCanvas(ctx)

		case <-userCheckpoint.C:
			srv.checkpointUsers(ctx)
			srv.sessions.SweepInactive(kickAfter)

		case <-snapshot.C:
			if err := srv.canvas.RefreshSnapshot(); err != nil {
				logging.Logger.Warnw("snapshot refresh failed", logging.FieldError, err)
			}

		case <-reaper.C:
			srv.sessions.SweepInactive(kickAfter)
		}
	}
}

func (srv *Server) pingAll() {
	srv.mu.Lock()
	targets := make([]*conn, 0, len(srv.conns))
	for c := range srv.conns {
		targets = append(targets, c)
	}
	srv.mu.Unlock()

	for _, c := range targets {
		if err := c.sendPing(); err != nil {
			_ = c.Close()
		}
	}
}

// flushCanvas drains the pending delta log and persists it in one batch,
// restoring the deltas on failure so the next tick retries
// (SPEC_FULL.md §3's Invariant that delta stays a superset of unpersisted
// changes).
func (srv *Server) flushCanvas(ctx context.Context) {
	if !srv.canvas.Dirty() {
		return
	}
	deltas := srv.canvas.DrainDelta()
	if err := srv.store.UpdateTilesBatch(ctx, deltas); err != nil {
		logging.Logger.Warnw("canvas flush failed, will retry", logging.FieldError, err, logging.FieldCount, len(deltas))
		srv.canvas.Restore(deltas)
	}
}

func (srv *Server) checkpointUsers(ctx context.Context) {
	if err := srv.users.CheckpointAll(ctx); err != nil {
		logging.Logger.Warnw("user checkpoint failed", logging.FieldError, err)
	}
}

func (srv *Server) finalFlush(ctx context.Context) {
	srv.flushCanvas(ctx)
	srv.checkpointUsers(ctx)
}

// reloadConfig re-reads the configuration file on SIGHUP and swaps in the
// pieces that are safe to change without a restart: the palette, the
// administrator table, and the rate limits of every live session.
// new_db_canvas_size and listen_url stay inert for the
// life of the process, per SPEC_FULL.md §4.8's config-reload worker
// contract.
func (srv *Server) reloadConfig(v *viper.Viper) {
	cfg, err := config.Reload(v)
	if err != nil {
		logging.Logger.Errorw("config reload failed, keeping previous configuration", logging.FieldError, err)
		return
	}
	srv.canvas.SetPalette(cfg.Palette())
	srv.admin.SetAdministrators(cfg.AdminCapabilities())
	srv.sessions.SetRateLimits(session.RateLimits{
		CanvasMaxRate:    cfg.GetCanvasMaxRate,
		CanvasPerSeconds: cfg.GetCanvasPerSeconds,
		TileMaxRate:      cfg.SetPixelMaxRate,
		TilePerSeconds:   cfg.SetPixelPerSeconds,
	})
	srv.cfg = cfg
	logging.Logger.Infow("configuration reloaded")
}

// runBackup is triggered by SIGUSR1 and writes a timestamped online backup
// via the store's VACUUM INTO path.
func (srv *Server) runBackup(ctx context.Context) {
	dst := fmt.Sprintf("%s.%d.bak", srv.cfg.DBaseFile, time.Now().Unix())
	if err := srv.store.BackupTo(ctx, dst); err != nil {
		logging.Logger.Errorw("backup failed", logging.FieldError, err)
		return
	}
	logging.Logger.Infow("backup written", "path", dst)
}
