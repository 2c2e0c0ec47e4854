// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Thermoquad/crsfscope/pkg/crsf"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

//////////////////////////////////////////////////////////////
// Constants
//////////////////////////////////////////////////////////////

const (
	pingIntervalSeconds = 5  // Re-ping the bus every N seconds
	channelStaleSeconds = 2  // Channels are marked stale after N seconds
	channelBarWidth     = 24 // Default width of a channel bar
)

// Focus states
const (
	focusDeviceList = iota
	focusPingInput
)

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// busDevice is a device that answered a Ping devices frame
type busDevice struct {
	info     crsf.DeviceInfo
	lastSeen time.Time
}

// Implement list.Item interface
func (d busDevice) Title() string       { return d.info.Name }
func (d busDevice) Description() string { return crsf.FormatAddress(uint64(d.info.Origin)) }
func (d busDevice) FilterValue() string { return d.info.Name }

// monitorModel is the Bubble Tea model for the monitor TUI
type monitorModel struct {
	// Connection manager (for pings and reconnection)
	connMgr  *connectionManager
	connInfo string

	// Device tracking
	devices    map[uint8]busDevice
	deviceList list.Model

	// Channels
	unit         crsf.ChannelUnit
	channels     *crsf.RCChannels
	channelsSeen time.Time
	bar          progress.Model

	// Monitoring (shared with the error detection TUI)
	stats         *crsf.Statistics
	errorLog      []errorLogEntry
	maxLogEntries int
	telemetry     telemetryData

	// Ping
	pingInput    textinput.Model
	focusedField int
	lastPingTime time.Time

	// UI state
	width          int
	height         int
	synchronized   bool
	quitting       bool
	connectionLost bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type monitorTickMsg time.Time

type monitorBatchMsg struct {
	reports []*frameReport
	syncMsg *syncMsg
}

type connectionLostMsg struct{}

type reconnectedMsg struct {
	connInfo string
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialMonitorModel(connMgr *connectionManager, connInfo string, unit crsf.ChannelUnit) monitorModel {
	// Initialize text input for the ping address
	ti := textinput.New()
	ti.Placeholder = fmt.Sprintf("%02X", crsf.AddressBroadcast)
	ti.CharLimit = 2
	ti.Width = 4

	// Initialize device list with empty items
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	delegate.SetHeight(2)
	deviceList := list.New([]list.Item{}, delegate, 30, 10)
	deviceList.Title = "Devices"
	deviceList.SetShowStatusBar(false)
	deviceList.SetShowHelp(false)
	deviceList.SetFilteringEnabled(false)

	bar := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(channelBarWidth),
		progress.WithoutPercentage(),
	)

	return monitorModel{
		connMgr:       connMgr,
		connInfo:      connInfo,
		devices:       make(map[uint8]busDevice),
		deviceList:    deviceList,
		unit:          unit,
		bar:           bar,
		stats:         crsf.NewStatistics(),
		errorLog:      make([]errorLogEntry, 0),
		maxLogEntries: 100,
		pingInput:     ti,
		focusedField:  focusDeviceList,
		lastPingTime:  time.Now(),
		width:         80,
		height:        24,
	}
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m monitorModel) Init() tea.Cmd {
	return monitorTickCmd()
}

func monitorTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return monitorTickMsg(t)
	})
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.MouseMsg:
		if msg.Action == tea.MouseActionRelease && msg.Button == tea.MouseButtonLeft {
			m.deviceList, _ = m.deviceList.Update(msg)
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()

	case monitorTickMsg:
		m.stats.CalculateRates()
		// Devices only answer pings, so keep asking
		if !m.connectionLost && time.Since(m.lastPingTime) >= pingIntervalSeconds*time.Second {
			m.lastPingTime = time.Now()
			m.ping(crsf.AddressBroadcast, false)
		}
		return m, monitorTickCmd()

	case monitorBatchMsg:
		if msg.syncMsg != nil {
			m.synchronized = true
			if msg.syncMsg.invalidBytes > 0 {
				m.addLogEntry(fmt.Sprintf("Synchronized after skipping %d invalid bytes", msg.syncMsg.invalidBytes), false)
			} else {
				m.addLogEntry("Synchronized", false)
			}
		}
		for _, r := range msg.reports {
			m.processReport(r)
		}

	case connectionLostMsg:
		m.connectionLost = true
		m.synchronized = false
		m.addLogEntry("Connection lost - reconnecting...", true)

	case reconnectedMsg:
		m.connectionLost = false
		m.connInfo = msg.connInfo
		m.lastPingTime = time.Now()
		m.addLogEntry("Reconnected - pinging devices", false)
	}

	return m, nil
}

func (m monitorModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "tab", "shift+tab":
		m.toggleFocus()
		return m, nil

	case "enter":
		if m.focusedField == focusPingInput {
			m.pingTypedAddress()
			return m, nil
		}
	}

	// Pass through to focused component
	if m.focusedField == focusPingInput {
		var cmd tea.Cmd
		m.pingInput, cmd = m.pingInput.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit

	case "p":
		m.lastPingTime = time.Now()
		m.ping(crsf.AddressBroadcast, true)

	case "u":
		m.unit = nextChannelUnit(m.unit)
		m.addLogEntry(fmt.Sprintf("Channel unit: %s", m.unit), false)

	case "r":
		m.stats.Reset()
		m.addLogEntry("Statistics reset", false)

	default:
		var cmd tea.Cmd
		m.deviceList, cmd = m.deviceList.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *monitorModel) toggleFocus() {
	if m.focusedField == focusDeviceList {
		m.focusedField = focusPingInput
		m.pingInput.Focus()
	} else {
		m.focusedField = focusDeviceList
		m.pingInput.Blur()
	}
}

func (m monitorModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder

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

	focusedBoxStyle := boxStyle.
		BorderForeground(lipgloss.Color("12"))

	// Header
	helpText := "q=quit Tab=switch p=ping u=unit r=reset"
	s.WriteString(titleStyle.Render("CRSFSCOPE MONITOR"))
	s.WriteString(" ")
	connStatus := m.connInfo
	switch {
	case m.connectionLost:
		connStatus = warningStyle.Render("RECONNECTING...")
	case !m.synchronized:
		connStatus += " " + warningStyle.Render("(waiting for sync)")
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("| %s | %s", connStatus, helpText)))
	s.WriteString("\n\n")

	// Layout: left panel (devices + ping) | right panel (channels)
	leftWidth := 30
	rightWidth := m.width - leftWidth - 6

	listStyle := boxStyle.Width(leftWidth)
	if m.focusedField == focusDeviceList {
		listStyle = focusedBoxStyle.Width(leftWidth)
	}
	pingStyle := boxStyle.Width(leftWidth)
	if m.focusedField == focusPingInput {
		pingStyle = focusedBoxStyle.Width(leftWidth)
	}
	leftPanel := lipgloss.JoinVertical(lipgloss.Left,
		listStyle.Render(m.renderDevices(headerStyle)),
		pingStyle.Render(m.renderPingInput(statsLabelStyle)),
	)

	channelPanel := boxStyle.Width(rightWidth).Render(m.renderChannels(statsLabelStyle, headerStyle, warningStyle))

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, leftPanel, " ", channelPanel))
	s.WriteString("\n")

	// Telemetry
	s.WriteString(m.renderTelemetry(statsLabelStyle, statsValueStyle, headerStyle, boxStyle))
	s.WriteString("\n")

	// Statistics bar
	s.WriteString(m.renderStatisticsBar(statsLabelStyle, statsValueStyle, errorStyle, boxStyle))
	s.WriteString("\n")

	// Event log
	s.WriteString(m.renderEventLog(statsLabelStyle, warningStyle, boxStyle))

	return s.String()
}

//////////////////////////////////////////////////////////////
// View Helpers
//////////////////////////////////////////////////////////////

func (m monitorModel) renderDevices(headerStyle lipgloss.Style) string {
	if len(m.devices) == 0 {
		return "Devices\n\n" + headerStyle.Render("(no answers yet)")
	}
	return m.deviceList.View()
}

func (m monitorModel) renderPingInput(statsLabelStyle lipgloss.Style) string {
	var s strings.Builder
	s.WriteString(statsLabelStyle.Render("Ping 0x"))
	if m.focusedField == focusPingInput {
		s.WriteString(m.pingInput.View())
	} else {
		val := m.pingInput.Value()
		if val == "" {
			val = m.pingInput.Placeholder
		}
		s.WriteString(fmt.Sprintf("[%s]", val))
	}
	return s.String()
}

func (m monitorModel) renderChannels(statsLabelStyle, headerStyle, warningStyle lipgloss.Style) string {
	var s strings.Builder
	s.WriteString(statsLabelStyle.Render("RC CHANNELS"))
	s.WriteString(headerStyle.Render(fmt.Sprintf(" (%s)", m.unit)))
	if m.channels == nil {
		s.WriteString("\n\n")
		s.WriteString(headerStyle.Render("No RC channels frame received"))
		return s.String()
	}
	if time.Since(m.channelsSeen) > channelStaleSeconds*time.Second {
		s.WriteString(" ")
		s.WriteString(warningStyle.Render("stale " + formatAge(time.Since(m.channelsSeen))))
	}
	s.WriteString("\n")

	for i, raw := range m.channels.Raw {
		s.WriteString(fmt.Sprintf("%s %s %s\n",
			statsLabelStyle.Render(fmt.Sprintf("CH%-2d", i+1)),
			m.bar.ViewAs(channelFraction(raw)),
			formatChannelValue(raw, m.unit)))
	}
	return strings.TrimSuffix(s.String(), "\n")
}

func (m monitorModel) renderTelemetry(statsLabelStyle, statsValueStyle, headerStyle, boxStyle lipgloss.Style) string {
	t := m.telemetry

	var content strings.Builder
	content.WriteString(statsLabelStyle.Render("TELEMETRY"))
	content.WriteString(" | ")

	if t.updated.IsZero() {
		content.WriteString(headerStyle.Render("No telemetry data"))
		return boxStyle.Width(m.width - 4).Render(content.String())
	}

	if t.link != nil {
		power := "?"
		if mw, ok := t.link.UplinkTXPower(); ok {
			power = fmt.Sprintf("%dmW", mw)
		}
		content.WriteString(fmt.Sprintf("%s %s  ",
			statsLabelStyle.Render("Link:"),
			statsValueStyle.Render(fmt.Sprintf("RSSI -%ddB LQ %d%% SNR %ddB %s",
				t.link.UplinkRSSI1, t.link.UplinkLinkQuality, t.link.UplinkSNR, power))))
	}
	if t.battery != nil {
		content.WriteString(fmt.Sprintf("%s %s  ",
			statsLabelStyle.Render("Battery:"),
			statsValueStyle.Render(fmt.Sprintf("%.1fV %.1fA %d%%",
				t.battery.Voltage, t.battery.Current, t.battery.Remaining))))
	}
	if t.flightMode != nil {
		content.WriteString(fmt.Sprintf("%s %s  ",
			statsLabelStyle.Render("Mode:"),
			statsValueStyle.Render(t.flightMode.String())))
	}
	if t.gps != nil {
		content.WriteString(fmt.Sprintf("%s %s  ",
			statsLabelStyle.Render("GPS:"),
			statsValueStyle.Render(fmt.Sprintf("%.5f,%.5f %dm %d sats",
				t.gps.Latitude, t.gps.Longitude, t.gps.Altitude, t.gps.Satellites))))
	}
	content.WriteString(headerStyle.Render(formatAge(time.Since(t.updated))))

	return boxStyle.Width(m.width - 4).Render(content.String())
}

func (m monitorModel) renderStatisticsBar(statsLabelStyle, statsValueStyle, errorStyle, boxStyle lipgloss.Style) string {
	m.stats.CalculateRates()
	var validPercent, errorPercent float64
	if m.stats.TotalFrames > 0 {
		validPercent = float64(m.stats.ValidFrames) * 100.0 / float64(m.stats.TotalFrames)
		errorPercent = float64(m.stats.TotalErrors()) * 100.0 / float64(m.stats.TotalFrames)
	}

	content := fmt.Sprintf("%s %s  %s %s  %s %s  %s %s",
		statsLabelStyle.Render("Total:"), statsValueStyle.Render(fmt.Sprintf("%d", m.stats.TotalFrames)),
		statsLabelStyle.Render("Valid:"), statsValueStyle.Render(fmt.Sprintf("%.1f%%", validPercent)),
		statsLabelStyle.Render("Errors:"), func() string {
			if errorPercent > 0 {
				return errorStyle.Render(fmt.Sprintf("%.1f%%", errorPercent))
			}
			return statsValueStyle.Render("0.0%")
		}(),
		statsLabelStyle.Render("Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f frames/s", m.stats.FrameRate)),
	)

	return boxStyle.Width(m.width - 4).Render(content)
}

func (m monitorModel) renderEventLog(statsLabelStyle, warningStyle, boxStyle lipgloss.Style) string {
	var s strings.Builder
	s.WriteString(statsLabelStyle.Render("EVENTS"))
	s.WriteString("\n")

	headerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyleLocal := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

	logHeight := 6
	if len(m.errorLog) < logHeight {
		logHeight = len(m.errorLog)
	}
	startIdx := len(m.errorLog) - logHeight

	if len(m.errorLog) == 0 {
		s.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.errorLog); i++ {
			entry := m.errorLog[i]
			icon := "i"
			style := warningStyle
			if entry.isError {
				icon = "x"
				style = errorStyleLocal
			}
			s.WriteString(fmt.Sprintf("%s %s %s\n",
				headerStyle.Render(entry.timestamp.Format("15:04:05.000")),
				style.Render(icon),
				entry.message))
		}
	}

	return boxStyle.Width(m.width - 4).Render(strings.TrimSuffix(s.String(), "\n"))
}

//////////////////////////////////////////////////////////////
// Data Processing
//////////////////////////////////////////////////////////////

func (m *monitorModel) processReport(r *frameReport) {
	r.apply(m.stats)

	switch {
	case r.err != nil:
		m.addLogEntry(fmt.Sprintf("DECODE ERROR: %s: %s", r.label(), r.err.Message), true)
		return
	case r.crc == nil || !r.crc.Passed:
		m.addLogEntry(fmt.Sprintf("CRC ERROR: %s", r.label()), true)
		return
	}

	for _, issue := range r.issues {
		m.addLogEntry(fmt.Sprintf("%s: %s", r.label(), issue.Message), true)
	}

	if r.payload == nil {
		return
	}
	switch p := r.payload.Payload.(type) {
	case crsf.RCChannels:
		m.channels = &p
		m.channelsSeen = time.Now()
	case crsf.DeviceInfo:
		m.handleDeviceInfo(p)
	default:
		m.telemetry.update(r)
	}
}

func (m *monitorModel) handleDeviceInfo(info crsf.DeviceInfo) {
	if _, exists := m.devices[info.Origin]; !exists {
		m.addLogEntry(fmt.Sprintf("Device found: %s at %s", info.Name, crsf.FormatAddress(uint64(info.Origin))), false)
	}
	m.devices[info.Origin] = busDevice{info: info, lastSeen: time.Now()}
	m.updateDeviceList()
}

//////////////////////////////////////////////////////////////
// Commands
//////////////////////////////////////////////////////////////

// ping sends a Ping devices frame. Periodic pings are not logged.
func (m *monitorModel) ping(destination uint8, logSent bool) {
	if m.connectionLost {
		m.addLogEntry("Cannot ping: connection lost", true)
		return
	}
	if err := sendDevicePing(m.connMgr, destination); err != nil {
		m.addLogEntry(fmt.Sprintf("Failed to send ping: %v", err), true)
		return
	}
	if logSent {
		m.addLogEntry(fmt.Sprintf("Sent Ping devices to %s", crsf.FormatAddress(uint64(destination))), false)
	}
}

func (m *monitorModel) pingTypedAddress() {
	value := strings.TrimPrefix(strings.ToLower(m.pingInput.Value()), "0x")
	if value == "" {
		value = m.pingInput.Placeholder
	}

	address, err := strconv.ParseUint(value, 16, 8)
	if err != nil {
		m.addLogEntry(fmt.Sprintf("Invalid address: %s", m.pingInput.Value()), true)
		return
	}
	m.ping(uint8(address), true)
}

//////////////////////////////////////////////////////////////
// Helpers
//////////////////////////////////////////////////////////////

// channelFraction maps a raw channel value onto the valid range for display
func channelFraction(raw uint16) float64 {
	f := float64(int(raw)-crsf.ChannelMinValid) / float64(crsf.ChannelMaxValid-crsf.ChannelMinValid)
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

func formatChannelValue(raw uint16, unit crsf.ChannelUnit) string {
	us := crsf.ChannelMicroseconds(raw)
	switch unit {
	case crsf.ChannelUnitMicroseconds:
		return fmt.Sprintf("%4d us", us)
	case crsf.ChannelUnitDigital:
		return fmt.Sprintf("%4d", raw)
	default:
		return fmt.Sprintf("%4d (%4d us)", raw, us)
	}
}

func nextChannelUnit(unit crsf.ChannelUnit) crsf.ChannelUnit {
	for i, u := range crsf.ChannelUnits {
		if u == unit {
			return crsf.ChannelUnits[(i+1)%len(crsf.ChannelUnits)]
		}
	}
	return crsf.DefaultChannelUnit
}

func (m *monitorModel) addLogEntry(message string, isError bool) {
	entry := errorLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.errorLog = append(m.errorLog, entry)

	if len(m.errorLog) > m.maxLogEntries {
		m.errorLog = m.errorLog[len(m.errorLog)-m.maxLogEntries:]
	}
}

func (m *monitorModel) updateDeviceList() {
	origins := make([]int, 0, len(m.devices))
	for origin := range m.devices {
		origins = append(origins, int(origin))
	}
	sort.Ints(origins)

	items := make([]list.Item, len(origins))
	for i, origin := range origins {
		items[i] = m.devices[uint8(origin)]
	}
	m.deviceList.SetItems(items)
}

func (m *monitorModel) updateLayout() {
	listHeight := m.height / 3
	if listHeight < 5 {
		listHeight = 5
	}
	m.deviceList.SetSize(28, listHeight)

	// Channel panel holds label, bar and value
	barWidth := m.width - 30 - 6 - 4 - 5 - 16
	if barWidth < 10 {
		barWidth = 10
	}
	if barWidth > 50 {
		barWidth = 50
	}
	m.bar.Width = barWidth
}
