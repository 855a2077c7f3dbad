package main

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/Carmen-Shannon/oxy-spring/common"
	"github.com/Carmen-Shannon/oxy-spring/engine"
	"github.com/Carmen-Shannon/oxy-spring/engine/animator"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	propertyLength = "length"
	propertyColor  = "color"

	defaultBarWidth = 60
	meterWidth      = 20
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#333333", Dark: "#FFFFFF"})
	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#BBBBBB"})
	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#999999", Dark: "#666666"})
)

// bar is one animated row. Its fields are written by spring setters on the program goroutine.
type bar struct {
	subject animator.SubjectID
	length  float32
	color   common.Color
}

// barsState is shared by every copy of barsModel.
type barsState struct {
	bars      []*bar
	completed int
	cancelled int
	width     int
	meter     loadMeter
	rng       *rand.Rand
}

// barsModel animates a column of horizontal bars toward random lengths and colors.
type barsModel struct {
	engine engine.Engine
	source *teaSource
	state  *barsState
}

func newBarsModel(e engine.Engine, source *teaSource, n int) barsModel {
	st := &barsState{
		width: defaultBarWidth,
		meter: newLoadMeter(source.deltaTime()),
		rng:   rand.New(rand.NewPCG(uint64(n), 0x5eed)),
	}
	for range n {
		st.bars = append(st.bars, &bar{
			subject: animator.NewSubjectID(),
			color:   common.Color{R: 0.5, G: 0.5, B: 0.5, A: 1},
		})
	}
	return barsModel{engine: e, source: source, state: st}
}

func (m barsModel) Init() tea.Cmd {
	m.retarget()
	return tea.Batch(m.source.tick(), tea.SetWindowTitle("springdemo"))
}

func (m barsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case frameMsg:
		m.source.frame(time.Time(msg))
		stats := m.engine.Stats()
		m.state.meter.step(occupancy(stats.Live, stats.Capacity))
		return m, m.source.tick()
	case tea.WindowSizeMsg:
		m.state.width = max(msg.Width-24, 10)
		m.retarget()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case " ", "enter":
			m.retarget()
		case "x":
			m.collapse()
		case "r":
			for _, b := range m.state.bars {
				m.engine.Remove(b.subject)
			}
		case "p":
			if m.engine.Profiler().Enabled() {
				m.engine.DisableProfiler()
			} else {
				m.engine.EnableProfiler()
			}
		}
	}
	return m, nil
}

func (m barsModel) View() string {
	var sb strings.Builder
	stats := m.engine.Stats()

	sb.WriteString(titleStyle.Render("springdemo"))
	sb.WriteString("  ")
	sb.WriteString(statusStyle.Render(fmt.Sprintf("backend %s | %s | live %d/%d | batches %d | skipped %d | done %d | cancelled %d",
		m.engine.Backend().Type(), m.engine.State(), stats.Live, stats.Capacity,
		stats.Batches, stats.SkippedTicks, m.state.completed, m.state.cancelled)))
	sb.WriteString("\n")
	sb.WriteString(statusStyle.Render("load " + m.state.meter.render(meterWidth)))
	sb.WriteString("\n\n")

	for i, b := range m.state.bars {
		n := max(int(b.length+0.5), 0)
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(hexColor(b.color)))
		fmt.Fprintf(&sb, "%3d %6.1f ", i, b.length)
		sb.WriteString(style.Render(strings.Repeat("█", n)))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(helpStyle.Render("space: retarget  x: collapse  r: remove all  p: profiler  q: quit"))
	return sb.String()
}

// retarget sends every bar toward a random length and color.
func (m barsModel) retarget() {
	st := m.state
	for _, b := range st.bars {
		length := st.rng.Float32() * float32(st.width)
		color := common.Color{R: st.rng.Float32(), G: st.rng.Float32(), B: st.rng.Float32(), A: 1}
		m.animate(b, length, color)
	}
}

// collapse sends every bar to zero length with a stiff, lightly damped spring.
func (m barsModel) collapse() {
	for _, b := range m.state.bars {
		m.engine.Animate(animator.Key{Subject: b.subject, Property: propertyLength},
			func() common.Vec4 { return common.ScalarVec4(b.length) },
			func(v common.Vec4) { b.length = common.ScalarFromVec4(v) },
			common.ScalarVec4(0),
			animator.SpringParams{Stiffness: 400, Damping: 8},
			m.completion,
		)
	}
}

func (m barsModel) animate(b *bar, length float32, color common.Color) {
	m.engine.AnimateTo(b.subject, propertyLength,
		func() common.Vec4 { return common.ScalarVec4(b.length) },
		func(v common.Vec4) { b.length = common.ScalarFromVec4(v) },
		common.ScalarVec4(length),
		m.completion,
	)
	m.engine.AnimateTo(b.subject, propertyColor,
		func() common.Vec4 { return b.color.Vec4() },
		func(v common.Vec4) { b.color = common.ColorFromVec4(v) },
		color.Vec4(),
		m.completion,
	)
}

func (m barsModel) completion(finished bool) {
	if finished {
		m.state.completed++
	} else {
		m.state.cancelled++
	}
}

func hexColor(c common.Color) string {
	return fmt.Sprintf("#%02x%02x%02x", channel(c.R), channel(c.G), channel(c.B))
}

func channel(f float32) uint8 {
	return uint8(min(max(f, 0), 1)*255 + 0.5)
}
