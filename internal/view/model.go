package view

import (
	"image"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/undefdev/spotblock/internal/domain"
)

// trackMsg carries a fresh snapshot into the model.
type trackMsg struct {
	snap domain.TrackSnapshot
}

// artMsg carries a decoded cover image into the model.
type artMsg struct {
	url string
	img image.Image
}

// transportErrMsg reports a failed transport command.
type transportErrMsg struct {
	err error
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	albumStyle = lipgloss.NewStyle().Faint(true)
	ctrlStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	helpStyle  = lipgloss.NewStyle().Faint(true)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

type model struct {
	snap      domain.TrackSnapshot
	art       image.Image
	transport domain.Transport
	keys      keyMap
	width     int
	height    int
	err       error
}

func newModel(snap domain.TrackSnapshot, transport domain.Transport) model {
	return model{
		snap:      snap,
		transport: transport,
		keys:      defaultKeyMap(),
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case trackMsg:
		m.snap = msg.snap
		m.err = nil

	case artMsg:
		// drop covers that arrive after the track already moved on
		if msg.url == m.snap.ArtURL {
			m.art = msg.img
		}

	case transportErrMsg:
		m.err = msg.err

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Previous):
			return m, m.invoke("Previous")
		case key.Matches(msg, m.keys.Toggle):
			return m, m.invoke("PlayPause")
		case key.Matches(msg, m.keys.Next):
			return m, m.invoke("Next")
		}
	}
	return m, nil
}

// invoke fires a transport command off the UI goroutine. The player answers
// with a PropertiesChanged signal, which flows back in through the status
// loop as a regular update.
func (m model) invoke(method string) tea.Cmd {
	transport := m.transport
	return func() tea.Msg {
		if err := transport.Invoke(method); err != nil {
			return transportErrMsg{err: err}
		}
		return nil
	}
}

func (m model) View() string {
	header := titleStyle.Render(m.snap.Artist + " – " + m.snap.Title)
	album := albumStyle.Render(m.snap.Album)

	// the opposite-state glyph: playing shows pause, anything else shows play
	toggle := ""
	if m.snap.Status == domain.StatusPlaying {
		toggle = ""
	}
	controls := lipgloss.JoinHorizontal(lipgloss.Center,
		ctrlStyle.Render("◀"),
		ctrlStyle.Render(toggle),
		ctrlStyle.Render("▶"),
	)

	help := helpStyle.Render(
		m.keys.Previous.Help().Key + " " + m.keys.Previous.Help().Desc + " · " +
			m.keys.Toggle.Help().Key + " " + m.keys.Toggle.Help().Desc + " · " +
			m.keys.Next.Help().Key + " " + m.keys.Next.Help().Desc + " · " +
			m.keys.Quit.Help().Key + " " + m.keys.Quit.Help().Desc)

	parts := []string{header}
	if m.snap.Album != "" {
		parts = append(parts, album)
	}
	if art := renderArt(m.art, m.artCols(), m.artRows()); art != "" {
		parts = append(parts, art)
	}
	parts = append(parts, controls, help)
	if m.err != nil {
		parts = append(parts, errStyle.Render(m.err.Error()))
	}

	body := lipgloss.JoinVertical(lipgloss.Center, parts...)
	if m.width == 0 || m.height == 0 {
		return body
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, body)
}

// artCols and artRows bound the cover to the terminal, leaving room for the
// text rows around it.
func (m model) artCols() int {
	if m.width == 0 {
		return 32
	}
	return min(m.width-2, 64)
}

func (m model) artRows() int {
	if m.height == 0 {
		return 16
	}
	return max(m.height-6, 4)
}
