package ui

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/getlantern/systray"

	"github.com/cutroom/cutroom-agent/internal/export"
	"github.com/cutroom/cutroom-agent/internal/library"
)

type Tray struct {
	library library.Library
	runner  *export.Runner
	logger  *slog.Logger

	statusItem *systray.MenuItem
	mediaItem  *systray.MenuItem
	pauseItem  *systray.MenuItem

	mu sync.Mutex

	onAddWatchFolder func() error
	onQuit           func()
}

type TrayConfig struct {
	Library          library.Library
	Runner           *export.Runner
	Logger           *slog.Logger
	OnAddWatchFolder func() error
	OnQuit           func()
}

func NewTray(cfg TrayConfig) *Tray {
	return &Tray{
		library:          cfg.Library,
		runner:           cfg.Runner,
		logger:           cfg.Logger,
		onAddWatchFolder: cfg.OnAddWatchFolder,
		onQuit:           cfg.OnQuit,
	}
}

func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(iconBytes)
	systray.SetTitle("Cutroom")
	systray.SetTooltip("Cutroom Agent")

	t.statusItem = systray.AddMenuItem("Status: Idle", "Current agent status")
	t.statusItem.Disable()

	t.mediaItem = systray.AddMenuItem("Media: 0", "Imported media files")
	t.mediaItem.Disable()

	systray.AddSeparator()

	t.pauseItem = systray.AddMenuItem("Pause Exports", "Pause export rendering")

	addFolderItem := systray.AddMenuItem("Add Watch Folder...", "Watch a folder for new media")

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit Cutroom Agent")

	go func() {
		for {
			select {
			case <-t.pauseItem.ClickedCh:
				t.togglePause()
			case <-addFolderItem.ClickedCh:
				t.handleAddWatchFolder()
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

func (t *Tray) togglePause() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.runner == nil {
		return
	}

	if t.runner.IsPaused() {
		t.runner.Resume()
		t.pauseItem.SetTitle("Pause Exports")
		t.statusItem.SetTitle("Status: Idle")
	} else {
		t.runner.Pause()
		t.pauseItem.SetTitle("Resume Exports")
		t.statusItem.SetTitle("Status: Paused")
	}
}

func (t *Tray) handleAddWatchFolder() {
	if t.onAddWatchFolder != nil {
		if err := t.onAddWatchFolder(); err != nil {
			t.logger.Error("failed to add watch folder", "error", err)
		}
	}
}

func (t *Tray) UpdateStatus(status string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.runner != nil && t.runner.IsPaused() {
		return
	}
	t.statusItem.SetTitle("Status: " + status)
}

func (t *Tray) UpdateMediaCount(count int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mediaItem.SetTitle(fmt.Sprintf("Media: %d", count))
}

func (t *Tray) Quit() {
	systray.Quit()
}
