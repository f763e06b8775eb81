//go:build !windows

package notification

import "log"

func showMessage(title, message string, isError bool) error {
	if isError {
		log.Printf("ERROR %s: %s", title, message)
		return nil
	}
	log.Printf("%s: %s", title, message)
	return nil
}
