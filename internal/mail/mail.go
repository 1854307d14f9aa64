package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/kastent/kastentd/internal/tent"
)

// SMTPMailer sends trade invitations over plain SMTP. It implements
// tent.Mailer.
type SMTPMailer struct {
	addr string
	from string
	auth smtp.Auth
}

func NewSMTP(host string, port int, from, user, pass string) *SMTPMailer {
	var auth smtp.Auth
	if user != "" {
		auth = smtp.PlainAuth("", user, pass, host)
	}
	return &SMTPMailer{
		addr: fmt.Sprintf("%s:%d", host, port),
		from: from,
		auth: auth,
	}
}

func (m *SMTPMailer) SendInvite(_ context.Context, to string, t *tent.Tent) error {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: You have been invited to a Kaspa trade\r\n")
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "%s invited you to an escrow trade.\r\n\r\n", t.Initiator)
	if t.AssetRef != "" {
		fmt.Fprintf(&b, "Item: %s\r\n", t.AssetRef)
	}
	fmt.Fprintf(&b, "Price: %g KAS\r\n", t.Price)
	fmt.Fprintf(&b, "Tent: %s\r\n", t.ID)

	return smtp.SendMail(m.addr, m.auth, m.from, []string{to}, []byte(b.String()))
}
