package mail

import (
	"context"

	"github.com/vdavid/mailcore/internal/smtp"
)

// Send composes an HTML message with the given files attached and submits
// it from the account address. to is a comma-separated address list. The
// outbound connection stays open for the next send.
func (e *Engine) Send(ctx context.Context, to, subject, htmlBody string, attachments []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	out, err := smtp.Compose(smtp.Draft{
		From:        e.creds.Address,
		To:          to,
		Subject:     subject,
		HTMLBody:    htmlBody,
		Attachments: attachments,
	})
	if err != nil {
		return err
	}

	if err := e.outbound.Send(out.From, out.Recipients, out.Data); err != nil {
		return err
	}

	e.log.Info().
		Strs("to", out.Recipients).
		Int("attachments", len(attachments)).
		Int("bytes", len(out.Data)).
		Msg("Message sent")
	return nil
}
