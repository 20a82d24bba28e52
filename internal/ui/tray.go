// Package ui is the studio's system tray: library counts at a glance and a
// switch for automatic assembly.
package ui

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/getlantern/systray"

	"github.com/heimdex/heimdex-studio/internal/studio"
)

const refreshInterval = 5 * time.Second

// StatsSource reports library counts.
type StatsSource interface {
	Stats(ctx context.Context) (*studio.Stats, error)
}

// Pauser switches automatic assembly on and off.
type Pauser interface {
	Pause()
	Resume()
	IsPaused() bool
}

type Tray struct {
	stats  StatsSource
	pauser Pauser
	logger *slog.Logger

	statusItem  *systray.MenuItem
	scriptsItem *systray.MenuItem
	pauseItem   *systray.MenuItem

	mu sync.Mutex

	apiURL string
	onQuit func()
}

type TrayConfig struct {
	Stats     StatsSource
	Scheduler Pauser
	Logger    *slog.Logger
	APIURL    string
	OnQuit    func()
}

func NewTray(cfg TrayConfig) *Tray {
	return &Tray{
		stats:  cfg.Stats,
		pauser: cfg.Scheduler,
		logger: cfg.Logger,
		apiURL: cfg.APIURL,
		onQuit: cfg.OnQuit,
	}
}

func (t *Tray) Run(ctx context.Context) {
	systray.Run(func() { t.onReady(ctx) }, t.onExit)
}

func (t *Tray) onReady(ctx context.Context) {
	systray.SetIcon(iconBytes)
	systray.SetTitle("Studio")
	systray.SetTooltip("Heimdex Studio " + t.apiURL)

	t.statusItem = systray.AddMenuItem(statusTitle(t.paused()), "Automatic assembly")
	t.statusItem.Disable()

	t.scriptsItem = systray.AddMenuItem(countsTitle(nil), "Scripts and approved segments")
	t.scriptsItem.Disable()

	systray.AddSeparator()

	t.pauseItem = systray.AddMenuItem(pauseTitle(t.paused()), "Pause automatic assembly")
	if t.pauser == nil {
		t.pauseItem.Disable()
	}

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit Heimdex Studio")

	go func() {
		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()
		t.refresh(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.refresh(ctx)
			case <-t.pauseItem.ClickedCh:
				t.togglePause()
			case <-quitItem.ClickedCh:
				t.logger.Info("quit requested from tray")
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			}
		}
	}()

	t.logger.Info("system tray ready")
}

func (t *Tray) onExit() {
	t.logger.Info("system tray exiting")
}

func (t *Tray) paused() bool {
	return t.pauser != nil && t.pauser.IsPaused()
}

func (t *Tray) togglePause() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.pauser == nil {
		return
	}

	if t.pauser.IsPaused() {
		t.pauser.Resume()
	} else {
		t.pauser.Pause()
	}
	paused := t.pauser.IsPaused()
	t.pauseItem.SetTitle(pauseTitle(paused))
	t.statusItem.SetTitle(statusTitle(paused))
}

func (t *Tray) refresh(ctx context.Context) {
	if t.stats == nil {
		return
	}
	st, err := t.stats.Stats(ctx)
	if err != nil {
		t.logger.Debug("tray stats unavailable", "error", err)
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scriptsItem.SetTitle(countsTitle(st))
}

func (t *Tray) Quit() {
	systray.Quit()
}

func statusTitle(paused bool) string {
	if paused {
		return "Auto-assembly: Paused"
	}
	return "Auto-assembly: On"
}

func pauseTitle(paused bool) string {
	if paused {
		return "Resume Auto-assembly"
	}
	return "Pause Auto-assembly"
}

func countsTitle(st *studio.Stats) string {
	if st == nil {
		return "Scripts: 0"
	}
	return fmt.Sprintf("Scripts: %d  Approved: %d/%d", st.Scripts, st.ApprovedSegments, st.Segments)
}
