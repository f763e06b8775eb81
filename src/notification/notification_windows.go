//go:build windows

package notification

import (
	"golang.org/x/sys/windows"
)

const (
	mbOK            = 0x00000000
	mbIconError     = 0x00000010
	mbIconInfo      = 0x00000040
	mbSystemModal   = 0x00001000
	mbSetForeground = 0x00010000
)

func showMessage(title, message string, isError bool) error {
	titlePtr, err := windows.UTF16PtrFromString(title)
	if err != nil {
		return err
	}
	msgPtr, err := windows.UTF16PtrFromString(message)
	if err != nil {
		return err
	}
	style := uint32(mbOK | mbIconInfo | mbSetForeground)
	if isError {
		style = mbOK | mbIconError | mbSystemModal
	}
	_, err = windows.MessageBox(0, msgPtr, titlePtr, style)
	return err
}
