// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/Thermoquad/crsfscope/pkg/crsf"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Error log entry
type errorLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for warnings
}

// Telemetry data, the latest payload of each telemetry frame type
type telemetryData struct {
	link       *crsf.LinkStatistics
	battery    *crsf.BatterySensor
	flightMode *crsf.FlightMode
	gps        *crsf.GPS
	attitude   *crsf.Attitude
	updated    time.Time
}

// TUI model
type model struct {
	connInfo      string
	statsInterval int
	showAll       bool
	stats         *crsf.Statistics
	errorLog      []errorLogEntry
	maxLogEntries int
	synchronized  bool
	invalidBytes  int
	closed        bool
	width         int
	height        int
	quitting      bool
	telemetry     telemetryData
}

// Messages
type tickMsg time.Time
type frameMsg struct {
	report *frameReport
}
type syncMsg struct {
	invalidBytes int
}
type connectionClosedMsg struct{}

// formatAge formats the time since a telemetry update
func formatAge(d time.Duration) string {
	switch {
	case d < time.Second:
		return "now"
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	default:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	}
}

func initialModel(connInfo string, statsInterval int, showAll bool) model {
	return model{
		connInfo:      connInfo,
		statsInterval: statsInterval,
		showAll:       showAll,
		stats:         crsf.NewStatistics(),
		errorLog:      make([]errorLogEntry, 0),
		maxLogEntries: 100,
		synchronized:  false,
		invalidBytes:  0,
		width:         80,
		height:        24,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		tea.EnterAltScreen,
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			m.stats.Reset()
			m.addLogEntry("Statistics reset", false)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		// Update statistics rates
		m.stats.CalculateRates()
		return m, tickCmd()

	case syncMsg:
		m.synchronized = true
		m.invalidBytes = msg.invalidBytes
		if msg.invalidBytes > 0 {
			m.addLogEntry(fmt.Sprintf("Synchronized after skipping %d invalid bytes", msg.invalidBytes), false)
		} else {
			m.addLogEntry("Synchronized", false)
		}

	case connectionClosedMsg:
		m.closed = true
		m.addLogEntry("Connection closed", true)

	case frameMsg:
		r := msg.report
		r.apply(m.stats)

		switch {
		case r.err != nil:
			m.addLogEntry(fmt.Sprintf("DECODE ERROR: %s: %s", r.label(), r.err.Message), true)
		case !r.crc.Passed:
			m.addLogEntry(fmt.Sprintf("CRC ERROR: %s (received 0x%02X, computed 0x%02X)",
				r.label(), r.crc.Received, r.crc.Computed), true)
		default:
			m.parseTelemetry(r)
			for _, issue := range r.issues {
				m.addLogEntry(fmt.Sprintf("%s: %s", r.label(), issue.Message), true)
			}
			if len(r.issues) == 0 && m.showAll {
				m.addLogEntry(fmt.Sprintf("%s (valid)", r.label()), false)
			}
		}
	}

	return m, nil
}

func (m *model) addLogEntry(message string, isError bool) {
	entry := errorLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.errorLog = append(m.errorLog, entry)

	// Keep only last N entries
	if len(m.errorLog) > m.maxLogEntries {
		m.errorLog = m.errorLog[len(m.errorLog)-m.maxLogEntries:]
	}
}

// parseTelemetry keeps the latest decoded telemetry payloads
func (m *model) parseTelemetry(r *frameReport) {
	m.telemetry.update(r)
}

// update stores the frame's payload if it is telemetry. Returns false for
// other frames.
func (t *telemetryData) update(r *frameReport) bool {
	if r.payload == nil {
		return false
	}

	switch p := r.payload.Payload.(type) {
	case crsf.LinkStatistics:
		t.link = &p
	case crsf.BatterySensor:
		t.battery = &p
	case crsf.FlightMode:
		t.flightMode = &p
	case crsf.GPS:
		t.gps = &p
	case crsf.Attitude:
		t.attitude = &p
	default:
		return false
	}
	t.updated = time.Now()
	return true
}

func (m model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	statsLabelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	statsValueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	// Header
	var s strings.Builder
	s.WriteString(titleStyle.Render("CRSFSCOPE - ERROR DETECTION"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | Mode: %s | 'r' reset stats | 'q' quit",
		m.connInfo, func() string {
			if m.showAll {
				return "All frames"
			}
			return "Errors only"
		}())))
	s.WriteString("\n\n")

	// Sync status
	switch {
	case m.closed:
		s.WriteString(errorStyle.Render("✗ Connection closed"))
		s.WriteString("\n\n")
	case !m.synchronized:
		s.WriteString(warningStyle.Render("⏳ Waiting for synchronization..."))
		s.WriteString("\n\n")
	default:
		s.WriteString(statsValueStyle.Render("✓ Synchronized"))
		if m.invalidBytes > 0 {
			s.WriteString(headerStyle.Render(fmt.Sprintf(" (skipped %d invalid bytes)", m.invalidBytes)))
		}
		s.WriteString("\n\n")
	}

	// Statistics
	m.stats.CalculateRates()
	var validPercent, errorPercent float64
	if m.stats.TotalFrames > 0 {
		validPercent = float64(m.stats.ValidFrames) * 100.0 / float64(m.stats.TotalFrames)
		errorPercent = float64(m.stats.TotalErrors()) * 100.0 / float64(m.stats.TotalFrames)
	}

	statsContent := strings.Builder{}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		statsLabelStyle.Render("Total:"), statsValueStyle.Render(fmt.Sprintf("%d", m.stats.TotalFrames)),
		statsLabelStyle.Render("Valid:"), statsValueStyle.Render(fmt.Sprintf("%d (%.1f%%)", m.stats.ValidFrames, validPercent)),
		statsLabelStyle.Render("Errors:"), errorStyle.Render(fmt.Sprintf("%d (%.1f%%)", m.stats.TotalErrors(), errorPercent)),
	))

	if m.stats.CRCErrors > 0 || m.stats.DecodeErrors > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s   %s %s\n",
			statsLabelStyle.Render("CRC Errors:"), errorStyle.Render(fmt.Sprintf("%d", m.stats.CRCErrors)),
			statsLabelStyle.Render("Decode Errors:"), errorStyle.Render(fmt.Sprintf("%d", m.stats.DecodeErrors)),
		))
	}

	if m.stats.MalformedFrames > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s (%s: %d, %s: %d)\n",
			statsLabelStyle.Render("Malformed:"), errorStyle.Render(fmt.Sprintf("%d", m.stats.MalformedFrames)),
			headerStyle.Render("length mismatches"), m.stats.LengthMismatches,
			headerStyle.Render("unrecognised"), m.stats.UnrecognizedTypes,
		))
	}

	if m.stats.AnomalousValues > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s (%s: %d, %s: %d)\n",
			statsLabelStyle.Render("Anomalous:"), warningStyle.Render(fmt.Sprintf("%d", m.stats.AnomalousValues)),
			headerStyle.Render("channel range"), m.stats.ChannelRange,
			headerStyle.Render("link quality"), m.stats.LinkQuality,
		))
	}

	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s",
		statsLabelStyle.Render("Frame Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f frames/s", m.stats.FrameRate)),
		statsLabelStyle.Render("Error Rate:"), func() string {
			if m.stats.ErrorRate > 0 {
				return errorStyle.Render(fmt.Sprintf("%.1f err/s", m.stats.ErrorRate))
			}
			return statsValueStyle.Render(fmt.Sprintf("%.1f err/s", m.stats.ErrorRate))
		}(),
	))

	s.WriteString(boxStyle.Render(statsContent.String()))
	s.WriteString("\n\n")

	// Telemetry section (only shown if telemetry received)
	t := m.telemetry
	if !t.updated.IsZero() {
		s.WriteString(statsLabelStyle.Render("Latest Telemetry:"))
		s.WriteString(headerStyle.Render(" " + formatAge(time.Since(t.updated))))
		s.WriteString("\n")

		telemetryContent := strings.Builder{}
		if t.link != nil {
			telemetryContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
				statsLabelStyle.Render("Uplink:"), statsValueStyle.Render(fmt.Sprintf("-%ddBm LQ %d%%", t.link.UplinkRSSI1, t.link.UplinkLinkQuality)),
				statsLabelStyle.Render("Downlink:"), statsValueStyle.Render(fmt.Sprintf("-%ddBm LQ %d%%", t.link.DownlinkRSSI, t.link.DownlinkLinkQuality)),
				statsLabelStyle.Render("RF Mode:"), statsValueStyle.Render(fmt.Sprintf("%d", t.link.RFMode)),
			))
		}
		if t.battery != nil {
			telemetryContent.WriteString(fmt.Sprintf("%s %s\n",
				statsLabelStyle.Render("Battery:"), statsValueStyle.Render(t.battery.String())))
		}
		if t.flightMode != nil {
			telemetryContent.WriteString(fmt.Sprintf("%s %s\n",
				statsLabelStyle.Render("Mode:"), statsValueStyle.Render(t.flightMode.String())))
		}
		if t.gps != nil {
			telemetryContent.WriteString(fmt.Sprintf("%s %s\n",
				statsLabelStyle.Render("GPS:"), statsValueStyle.Render(t.gps.String())))
		}
		if t.attitude != nil {
			telemetryContent.WriteString(fmt.Sprintf("%s %s\n",
				statsLabelStyle.Render("Attitude:"), statsValueStyle.Render(t.attitude.String())))
		}

		s.WriteString(boxStyle.Render(strings.TrimSuffix(telemetryContent.String(), "\n")))
		s.WriteString("\n\n")
	}

	// Error log
	s.WriteString(statsLabelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	// Calculate how many log entries we can show
	logHeight := m.height - 15 // Reserve space for header and stats
	if logHeight < 5 {
		logHeight = 5
	}

	logContent := strings.Builder{}
	startIdx := len(m.errorLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	if len(m.errorLog) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.errorLog); i++ {
			entry := m.errorLog[i]
			timestamp := entry.timestamp.Format("01/02/06 15:04:05.000")
			if entry.isError {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					errorStyle.Render("✗ "+entry.message),
				))
			} else {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					warningStyle.Render("ℹ "+entry.message),
				))
			}
		}
	}

	s.WriteString(boxStyle.Width(m.width - 4).Render(logContent.String()))

	return s.String()
}
