package notification

import (
	"log"
	"unicode/utf8"
)

const maxMessageRunes = 200

// Notifier shows short, non-blocking messages to the user.
type Notifier struct{}

// Notify displays message under title without blocking the caller.
func (Notifier) Notify(title, message string) {
	message = truncate(message, maxMessageRunes)
	log.Printf("notify: %s: %s", title, message)
	go func() {
		if err := showMessage(title, message, false); err != nil {
			log.Printf("Failed to show notification: %v", err)
		}
	}()
}

// ShowBlockingError displays an error and returns once it is dismissed.
func ShowBlockingError(title, message string) {
	if err := showMessage(title, message, true); err != nil {
		log.Printf("Failed to show error dialog: %v", err)
	}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}
