// Package view is the optional control surface: album art plus transport
// controls, rendered with Bubble Tea on the controlling terminal. Stdout
// stays reserved for the status line, so the program opens /dev/tty
// directly. Everything in here is best effort; a headless run simply never
// gets a surface.
package view

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // cover decode support
	_ "image/png"  // cover decode support
	"os"
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/undefdev/spotblock/internal/domain"
)

const artFetchTimeout = 10 * time.Second

// Manager owns at most one running surface and implements domain.ViewSink.
type Manager struct {
	logger  *zap.Logger
	fetcher domain.Fetcher

	mu     sync.Mutex
	prog   *tea.Program
	active atomic.Bool
}

// NewManager creates the surface manager.
func NewManager(logger *zap.Logger, fetcher domain.Fetcher) *Manager {
	return &Manager{logger: logger, fetcher: fetcher}
}

// Active reports whether a surface is currently open.
func (m *Manager) Active() bool {
	return m.active.Load()
}

// Open starts the surface for the given snapshot. Opening while one is
// already running is a no-op. The art is fetched in the background and
// pushed in when it arrives.
func (m *Manager) Open(snap domain.TrackSnapshot, transport domain.Transport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active.Load() {
		return nil
	}

	tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("open control tty: %w", err)
	}

	prog := tea.NewProgram(
		newModel(snap, transport),
		tea.WithInput(tty),
		tea.WithOutput(tty),
		tea.WithAltScreen(),
	)
	m.prog = prog
	m.active.Store(true)

	go m.loadArt(prog, snap.ArtURL)
	go func() {
		if _, err := prog.Run(); err != nil {
			m.logger.Warn("control surface exited", zap.Error(err))
		}
		m.active.Store(false)
		if err := tty.Close(); err != nil {
			m.logger.Debug("tty close", zap.Error(err))
		}
		m.logger.Debug("control surface closed")
	}()

	m.logger.Info("control surface opened",
		zap.String("artist", snap.Artist),
		zap.String("title", snap.Title))
	return nil
}

// Update pushes a fresh snapshot to the open surface. Safe to call after the
// user closed it; the send is dropped.
func (m *Manager) Update(snap domain.TrackSnapshot) {
	m.mu.Lock()
	prog := m.prog
	m.mu.Unlock()
	if prog == nil || !m.active.Load() {
		return
	}
	prog.Send(trackMsg{snap: snap})
	go m.loadArt(prog, snap.ArtURL)
}

// loadArt fetches and decodes the cover, then hands it to the model.
func (m *Manager) loadArt(prog *tea.Program, url string) {
	if url == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), artFetchTimeout)
	defer cancel()

	data, err := m.fetcher.Fetch(ctx, url)
	if err != nil {
		m.logger.Warn("album art fetch failed", zap.Error(err))
		return
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		m.logger.Warn("album art decode failed", zap.Error(err))
		return
	}
	prog.Send(artMsg{url: url, img: img})
}
