// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"testing"

	"github.com/Thermoquad/crsfscope/pkg/crsf"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelFraction(t *testing.T) {
	assert.Equal(t, 0.0, channelFraction(0))
	assert.Equal(t, 0.0, channelFraction(crsf.ChannelMinValid))
	assert.Equal(t, 1.0, channelFraction(crsf.ChannelMaxValid))
	assert.Equal(t, 1.0, channelFraction(crsf.ChannelMaxRaw))
	assert.InDelta(t, 0.5, channelFraction(crsf.ChannelCenter), 0.001)
}

func TestFormatChannelValue(t *testing.T) {
	tests := []struct {
		unit crsf.ChannelUnit
		want string
	}{
		{crsf.ChannelUnitMicroseconds, "1500 us"},
		{crsf.ChannelUnitDigital, " 992"},
		{crsf.ChannelUnitBoth, " 992 (1500 us)"},
	}
	for _, tt := range tests {
		t.Run(string(tt.unit), func(t *testing.T) {
			assert.Equal(t, tt.want, formatChannelValue(crsf.ChannelCenter, tt.unit))
		})
	}
}

func TestNextChannelUnit(t *testing.T) {
	assert.Equal(t, crsf.ChannelUnitDigital, nextChannelUnit(crsf.ChannelUnitMicroseconds))
	assert.Equal(t, crsf.ChannelUnitBoth, nextChannelUnit(crsf.ChannelUnitDigital))
	assert.Equal(t, crsf.ChannelUnitMicroseconds, nextChannelUnit(crsf.ChannelUnitBoth))
	assert.Equal(t, crsf.DefaultChannelUnit, nextChannelUnit("furlongs"))
}

// batch decodes data into a monitor batch the way the reader loop does
func batch(data []byte) monitorBatchMsg {
	a := newFrameAssembler(crsf.NewDecoder())
	var msg monitorBatchMsg
	for _, fr := range feedAll(a, data) {
		if fr.synced {
			msg.syncMsg = &syncMsg{invalidBytes: a.skipped}
		}
		msg.reports = append(msg.reports, fr.report)
	}
	return msg
}

func TestMonitorModel_ProcessesBatch(t *testing.T) {
	channels := [crsf.NumChannels]uint16{}
	for i := range channels {
		channels[i] = crsf.ChannelCenter
	}
	info, err := crsf.EncodeDeviceInfo(crsf.DeviceInfo{
		Destination: crsf.AddressRadioTransmitter,
		Origin:      crsf.AddressCRSFReceiver,
		Name:        "RX",
	})
	require.NoError(t, err)

	m := initialMonitorModel(nil, "test", crsf.ChannelUnitBoth)
	updated, _ := m.Update(batch(concat(batteryFrame(), crsf.EncodeRCChannels(channels), info)))
	m = updated.(monitorModel)

	assert.True(t, m.synchronized)
	require.NotNil(t, m.channels)
	assert.Equal(t, channels, m.channels.Raw)
	require.NotNil(t, m.telemetry.battery)
	assert.InDelta(t, 12.6, m.telemetry.battery.Voltage, 0.001)

	require.Contains(t, m.devices, uint8(crsf.AddressCRSFReceiver))
	assert.Equal(t, "RX", m.devices[crsf.AddressCRSFReceiver].info.Name)
	require.Len(t, m.deviceList.Items(), 1)
	assert.Equal(t, "RX", m.deviceList.Items()[0].(busDevice).Title())

	assert.Equal(t, uint64(3), m.stats.ValidFrames)
	assert.Contains(t, m.View(), "CRSFSCOPE MONITOR")
}

func TestMonitorModel_LogsCRCErrors(t *testing.T) {
	m := initialMonitorModel(nil, "test", crsf.ChannelUnitBoth)
	updated, _ := m.Update(batch(concat(batteryFrame(), corrupted(batteryFrame()))))
	m = updated.(monitorModel)

	require.Len(t, m.errorLog, 2)
	assert.Equal(t, "Synchronized", m.errorLog[0].message)
	assert.True(t, m.errorLog[1].isError)
	assert.Contains(t, m.errorLog[1].message, "CRC ERROR")
	assert.Equal(t, uint64(1), m.stats.CRCErrors)
}

func TestMonitorModel_Keys(t *testing.T) {
	m := initialMonitorModel(nil, "test", crsf.ChannelUnitMicroseconds)

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'u'}})
	m = updated.(monitorModel)
	assert.Equal(t, crsf.ChannelUnitDigital, m.unit)

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = updated.(monitorModel)
	assert.Equal(t, focusPingInput, m.focusedField)

	// Typing goes to the ping input while it is focused
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'u'}})
	m = updated.(monitorModel)
	assert.Equal(t, crsf.ChannelUnitDigital, m.unit)
	assert.Equal(t, "u", m.pingInput.Value())

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	m = updated.(monitorModel)
	assert.False(t, m.quitting)

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = updated.(monitorModel)
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	assert.True(t, updated.(monitorModel).quitting)
}

func TestMonitorModel_InvalidPingAddress(t *testing.T) {
	m := initialMonitorModel(nil, "test", crsf.ChannelUnitBoth)
	m.pingInput.SetValue("zz")
	m.focusedField = focusPingInput

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(monitorModel)

	require.NotEmpty(t, m.errorLog)
	last := m.errorLog[len(m.errorLog)-1]
	assert.True(t, last.isError)
	assert.Equal(t, "Invalid address: zz", last.message)
}

func TestMonitorModel_ConnectionLost(t *testing.T) {
	m := initialMonitorModel(nil, "test", crsf.ChannelUnitBoth)

	updated, _ := m.Update(connectionLostMsg{})
	m = updated.(monitorModel)
	assert.True(t, m.connectionLost)

	// Pings are refused without touching the connection
	m.ping(crsf.AddressBroadcast, true)
	assert.Equal(t, "Cannot ping: connection lost", m.errorLog[len(m.errorLog)-1].message)

	updated, _ = m.Update(reconnectedMsg{connInfo: "Serial: /dev/ttyUSB1"})
	m = updated.(monitorModel)
	assert.False(t, m.connectionLost)
	assert.Equal(t, "Serial: /dev/ttyUSB1", m.connInfo)
}
