package singleinstance

// This file defines the API for single-instance ownership and command
// delegation to the resident overlay.

import (
	"context"

	"screen-label-overlay/src/canvas"
	"screen-label-overlay/src/profile"
)

// Commands understood by the resident.
const (
	CmdStartCapture  = "start-capture"
	CmdCancelCapture = "cancel-capture"
	CmdToggle        = "toggle"
	CmdSwitch        = "switch"
	CmdAdd           = "add"
	CmdRename        = "rename"
	CmdRemove        = "remove"
	CmdStyle         = "style"
	CmdClear         = "clear"
	CmdStatus        = "status"
	CmdSnapshot      = "snapshot"
	CmdExportPDF     = "export-pdf"
)

// Server owns the TCP endpoint and hands command connections to the loop.
type Server interface {
	// Start begins listening on the first port of the configured range.
	Start(ctx context.Context) error
	// Port returns the bound TCP port, or 0 if not started.
	Port() int
	// Next returns the next accepted connection as a Conn, or ctx error.
	Next(ctx context.Context) (Conn, error)
	// Close releases ownership and stops accepting clients.
	Close() error
}

// Conn represents one client connection.
type Conn interface {
	// Request returns the parsed client request.
	Request() Request
	// Respond writes the reply line.
	Respond(reply Reply) error
	// Close closes the underlying connection.
	Close() error
}

// Request is one JSON line sent by a client.
type Request struct {
	Command string         `json:"command"`
	Name    string         `json:"name,omitempty"`
	NewName string         `json:"newName,omitempty"`
	Style   *profile.Style `json:"style,omitempty"`
	// Path is the output file for snapshot and export-pdf; empty picks a
	// timestamped name in the resident's export directory.
	Path string `json:"path,omitempty"`
}

// Status describes the resident's current state.
type Status struct {
	Active         string         `json:"active"`
	Profiles       []string       `json:"profiles"`
	Points         int            `json:"points"`
	Coordinates    []canvas.Point `json:"coordinates,omitempty"`
	Style          profile.Style  `json:"style"`
	Capturing      bool           `json:"capturing"`
	OverlayVisible bool           `json:"overlayVisible"`
	ShowOnStartup  bool           `json:"showOnStartup"`
}

// Reply is the single JSON line written back.
type Reply struct {
	OK     bool    `json:"ok"`
	Error  string  `json:"error,omitempty"`
	Status *Status `json:"status,omitempty"`
	Path   string  `json:"path,omitempty"`
}

// Client delegates commands to a resident server.
type Client interface {
	// Send scans the configured port range, performs the PING handshake and
	// forwards req. If no resident is found, returns delegated=false, err=nil.
	Send(ctx context.Context, req Request) (delegated bool, reply Reply, err error)
}

// NewServer returns TCP implementation.
func NewServer() Server { return newTcpServer() }

// NewClient returns TCP implementation.
func NewClient() Client { return newTcpClient() }
