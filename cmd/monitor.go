// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Thermoquad/crsfscope/pkg/crsf"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var monitorCmd = &cobra.Command{
	Use:     "monitor",
	Aliases: []string{"channels"},
	Short:   "Interactive TUI for live RC channels and telemetry",
	Long: `Monitor a CRSF link via an interactive terminal UI.

This command shows the live state of a CRSF bus connected via serial or a
WebSocket bridge.

Features:
  - All 16 RC channels as bars, in the selected --channel-unit
  - Link statistics (RSSI, link quality, SNR, TX power)
  - Battery, flight mode, GPS and attitude telemetry
  - Device discovery (Ping devices / Device info)
  - Statistics tracking and event logging
  - Automatic reconnection on connection loss

Tab switches between the device list and the ping address input. Enter in the
input pings the typed address (hex, e.g. C8); 'p' pings every device.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

// connectionManager handles connection lifecycle and reconnection
type connectionManager struct {
	conn     Connection
	connInfo string
	mu       sync.RWMutex
	p        *tea.Program
	done     chan struct{}
	stopRead chan struct{}
}

func (cm *connectionManager) getConn() Connection {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.conn
}

func (cm *connectionManager) setConn(conn Connection, connInfo string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.conn = conn
	cm.connInfo = connInfo
}

// send writes a frame to the current connection
func (cm *connectionManager) send(frame []byte) error {
	conn := cm.getConn()
	if conn == nil {
		return errors.New("connection lost")
	}
	_, err := conn.Write(frame)
	return err
}

func runMonitor(cmd *cobra.Command, args []string) error {
	// Open initial connection (serial or WebSocket)
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}

	// Create connection manager
	cm := &connectionManager{
		conn:     conn,
		connInfo: connInfo,
		done:     make(chan struct{}),
		stopRead: make(chan struct{}),
	}

	// Create TUI model with connection manager
	m := initialMonitorModel(cm, connInfo, channelUnit)

	// Create TUI program with alt screen and mouse support
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	cm.p = p

	// Start reader goroutines
	go cm.readerLoop()

	// Ask the bus for its devices
	if err := sendDevicePing(cm, crsf.AddressBroadcast); err != nil {
		logrus.WithError(err).Warn("Failed to ping devices")
	}

	// Run TUI
	if _, err := p.Run(); err != nil {
		close(cm.done) // Signal goroutines to stop
		cm.getConn().Close()
		return fmt.Errorf("TUI error: %w", err)
	}

	close(cm.done) // Signal goroutines to stop
	cm.getConn().Close()
	return nil
}

// readerLoop handles reading from connection with automatic reconnection
func (cm *connectionManager) readerLoop() {
	for {
		select {
		case <-cm.done:
			return
		default:
		}

		// Start reading from current connection
		connLost := cm.readFromConnection()

		if connLost {
			// Notify TUI about connection loss
			cm.p.Send(connectionLostMsg{})

			// Attempt to reconnect
			if !cm.reconnect() {
				return // Shutdown requested during reconnect
			}
		}
	}
}

// readFromConnection reads frames from the connection until it fails
// Returns true if connection was lost, false if shutdown requested
func (cm *connectionManager) readFromConnection() bool {
	assembler := newFrameAssembler(newDecoder())
	stream := NewByteStream(cm.getConn())

	// Buffered channel for batching updates
	batchChan := make(chan *frameReport, 100)
	syncChan := make(chan syncMsg, 1)
	readerDone := make(chan struct{})

	// Reader goroutine - decodes frames and sends to batch channel
	go func() {
		defer close(readerDone)
		for {
			select {
			case <-cm.done:
				return
			case <-cm.stopRead:
				return
			default:
			}

			samples, err := stream.Next()
			if err != nil {
				// Check if we're shutting down
				select {
				case <-cm.done:
					return
				default:
					// For WebSocket connections, a read error usually means
					// the connection is permanently closed
					if errors.Is(err, ErrConnectionClosed) {
						return
					}
					logrus.WithError(err).Debug("Read error")
					// Brief pause before retry on transient errors (e.g., serial)
					time.Sleep(10 * time.Millisecond)
					continue
				}
			}

			for _, s := range samples {
				report, synced := assembler.Feed(s)
				if synced {
					select {
					case syncChan <- syncMsg{invalidBytes: assembler.skipped}:
					default:
					}
				}
				if report != nil {
					select {
					case batchChan <- report:
					default:
					}
				}
			}
		}
	}()

	// Batch sender goroutine - sends batched updates to TUI at fixed rate
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-cm.done:
				return
			case <-readerDone:
				return
			case <-ticker.C:
				var batch monitorBatchMsg

				// Check for sync message
				select {
				case msg := <-syncChan:
					batch.syncMsg = &msg
				default:
				}

				// Drain all available frames from batch channel
			drainLoop:
				for {
					select {
					case r := <-batchChan:
						batch.reports = append(batch.reports, r)
					default:
						break drainLoop
					}
				}

				// Send batch if we have anything
				if batch.syncMsg != nil || len(batch.reports) > 0 {
					cm.p.Send(batch)
				}
			}
		}
	}()

	// Wait for reader to finish (connection lost or shutdown)
	<-readerDone

	// Check if we're shutting down
	select {
	case <-cm.done:
		return false
	default:
		return true // Connection lost
	}
}

// reconnect attempts to reconnect with exponential backoff
// Returns false if shutdown was requested during reconnection
func (cm *connectionManager) reconnect() bool {
	// Close old connection
	if conn := cm.getConn(); conn != nil {
		conn.Close()
	}

	backoff := 1 * time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-cm.done:
			return false
		case <-time.After(backoff):
		}

		// Attempt to reconnect
		conn, connInfo, err := OpenConnection()
		if err == nil {
			cm.setConn(conn, connInfo)

			// Notify TUI about reconnection
			cm.p.Send(reconnectedMsg{connInfo: connInfo})

			if err := sendDevicePing(cm, crsf.AddressBroadcast); err != nil {
				logrus.WithError(err).Debug("Failed to ping devices after reconnect")
			}

			return true
		}
		logrus.WithError(err).WithField("backoff", backoff).Debug("Reconnect failed")

		// Exponential backoff
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// sendDevicePing asks devices at destination to answer with Device info
func sendDevicePing(cm *connectionManager, destination uint8) error {
	return cm.send(crsf.NewPingDevices(destination, crsf.AddressRadioTransmitter))
}
