package eventloop

import (
	"context"
	"errors"
	"fmt"
	"log"

	"screen-label-overlay/src/export"
	"screen-label-overlay/src/session"
	"screen-label-overlay/src/singleinstance"
)

var errUnknownCommand = errors.New("unknown command")

// handleConn applies one remote command and replies with the resulting
// status. Export commands reply once the file is written.
func (l *Loop) handleConn(ctx context.Context, conn singleinstance.Conn) {
	req := conn.Request()
	log.Printf("handleConn: command %q", req.Command)

	switch req.Command {
	case singleinstance.CmdSnapshot:
		l.startExport(ctx, export.KindSnapshot, req.Path, connTarget{conn: conn})
		return
	case singleinstance.CmdExportPDF:
		l.startExport(ctx, export.KindPDF, req.Path, connTarget{conn: conn})
		return
	}

	defer conn.Close()
	err := l.apply(req)
	reply := singleinstance.Reply{OK: err == nil, Status: l.status()}
	if err != nil {
		reply.Error = err.Error()
		log.Printf("handleConn: %q failed: %v", req.Command, err)
	}
	if rerr := conn.Respond(reply); rerr != nil {
		log.Printf("handleConn: reply failed: %v", rerr)
	}
}

func (l *Loop) apply(req singleinstance.Request) error {
	switch req.Command {
	case singleinstance.CmdStatus:
		return nil
	case singleinstance.CmdStartCapture:
		return l.ctrl.StartCapture()
	case singleinstance.CmdCancelCapture:
		return l.ctrl.CancelCapture()
	case singleinstance.CmdToggle:
		_, err := l.ctrl.ToggleOverlayVisibility()
		return err
	case singleinstance.CmdSwitch:
		_, err := l.ctrl.SwitchProfile(req.Name)
		return err
	case singleinstance.CmdAdd:
		return l.ctrl.AddProfile(req.Name)
	case singleinstance.CmdRename:
		return l.ctrl.RenameProfile(req.Name, req.NewName)
	case singleinstance.CmdRemove:
		return l.ctrl.RemoveProfile(req.Name)
	case singleinstance.CmdStyle:
		if req.Style == nil {
			return errors.New("style is required")
		}
		return l.ctrl.UpdateStyle(*req.Style)
	case singleinstance.CmdClear:
		return l.ctrl.ClearCoordinates()
	}
	return fmt.Errorf("%w: %q", errUnknownCommand, req.Command)
}

func (l *Loop) status() *singleinstance.Status {
	return StatusFromState(l.ctrl.State())
}

// StatusFromState converts controller state to its wire form.
func StatusFromState(s session.State) *singleinstance.Status {
	return &singleinstance.Status{
		Active:         s.Active,
		Profiles:       s.Profiles,
		Points:         s.Points,
		Coordinates:    s.Coordinates,
		Style:          s.Style,
		Capturing:      s.Capturing,
		OverlayVisible: s.OverlayVisible,
		ShowOnStartup:  s.ShowOnStartup,
	}
}
