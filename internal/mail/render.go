package mail

import (
	"fmt"
	"html"
)

// headerBlock renders the subject and sender shown above a message body.
func headerBlock(subject, from string) string {
	if from == "" {
		from = "unknown"
	}
	return fmt.Sprintf("<h3>Subject: %s</h3><p><b>From:</b> %s</p><hr>",
		html.EscapeString(subject), html.EscapeString(from))
}
