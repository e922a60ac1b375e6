package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"mime/quotedprintable"
	"net/textproto"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	"github.com/jkorhonen/carrier/internal/carrier"
	"github.com/jkorhonen/carrier/internal/config"
)

// sendMailFunc matches smtp.SendMail; injectable for tests.
type sendMailFunc func(addr string, a sasl.Client, from string, to []string, r io.Reader) error

// SMTPRelay delivers email through a plain SMTP relay. Like Mailgun it
// batches recipients per resolved language, but each recipient gets its own
// relay submission so addresses are never exposed to each other.
type SMTPRelay struct {
	addr      string
	username  string
	password  string
	languages []string
	sendMail  sendMailFunc
}

// NewSMTPRelay creates an SMTP relay transport from the given configuration.
func NewSMTPRelay(cfg config.SMTPConfig, languages []string) *SMTPRelay {
	return &SMTPRelay{
		addr:      cfg.Addr,
		username:  cfg.Username,
		password:  cfg.Password,
		languages: languages,
		sendMail:  smtp.SendMail,
	}
}

func (t *SMTPRelay) Name() string                { return "smtp" }
func (t *SMTPRelay) Type() carrier.TransportType { return carrier.TransportTypeEmail }

// IsValid requires the relay address.
func (t *SMTPRelay) IsValid() bool {
	return t.addr != ""
}

// SuitableFor matches any recipient with a resolvable email address.
func (t *SMTPRelay) SuitableFor(r *carrier.Recipient) bool {
	return r.GetEmail() != ""
}

// Send delivers the message per language group. Within a group each
// recipient is submitted separately; one rejected address fails only that
// recipient's group submission, reported once per group.
func (t *SMTPRelay) Send(ctx context.Context, msg *carrier.Message, recipients []*carrier.Recipient) SendResult {
	var result SendResult

	order, groups := groupByLanguage(recipients, t.languages)
	for _, language := range order {
		group := groups[language]

		content, err := msg.ContentInLanguage(language, t.languages)
		if err != nil {
			result.Errors = append(result.Errors, batchError(msg.ID, language, len(group), err))
			continue
		}

		markSending(group)

		body := buildMIMEMessage(msg, content)
		if err := t.sendGroup(ctx, msg.FromEmail, group, body); err != nil {
			markFailed(group)
			result.Errors = append(result.Errors, batchError(msg.ID, content.Language, len(group), err))
			continue
		}

		for _, r := range group {
			r.Email = r.GetEmail()
		}
		markSent(group, carrier.TransportTypeEmail, language)
	}

	return result
}

func (t *SMTPRelay) sendGroup(ctx context.Context, from string, group []*carrier.Recipient, body []byte) error {
	var auth sasl.Client
	if t.username != "" {
		auth = sasl.NewPlainClient("", t.username, t.password)
	}

	emails := make([]string, 0, len(group))
	for _, r := range group {
		emails = append(emails, r.GetEmail())
	}

	// smtp.SendMail has no context support; honor cancellation between
	// submissions only.
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.sendMail(t.addr, auth, from, emails, bytes.NewReader(body)); err != nil {
		return fmt.Errorf("smtp relay %s: %w", t.addr, err)
	}
	return nil
}

// buildMIMEMessage renders the content as an RFC 5322 message, using
// multipart/alternative when an HTML rendering exists.
func buildMIMEMessage(msg *carrier.Message, content *carrier.Content) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "From: %s <%s>\r\n", msg.FromName, msg.FromEmail)
	fmt.Fprintf(&buf, "Subject: %s\r\n", content.Subject)
	buf.WriteString("MIME-Version: 1.0\r\n")

	if content.HTML == "" {
		buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
		buf.WriteString("Content-Transfer-Encoding: quoted-printable\r\n\r\n")
		qp := quotedprintable.NewWriter(&buf)
		io.WriteString(qp, content.Text)
		qp.Close()
		return buf.Bytes()
	}

	w := multipart.NewWriter(&buf)
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", w.Boundary())

	for _, part := range []struct {
		contentType string
		body        string
	}{
		{"text/plain; charset=utf-8", content.Text},
		{"text/html; charset=utf-8", content.HTML},
	} {
		pw, err := w.CreatePart(textHeader(part.contentType))
		if err != nil {
			continue
		}
		qp := quotedprintable.NewWriter(pw)
		io.WriteString(qp, part.body)
		qp.Close()
	}
	w.Close()

	return buf.Bytes()
}

func textHeader(contentType string) textproto.MIMEHeader {
	return textproto.MIMEHeader{
		"Content-Type":              {contentType},
		"Content-Transfer-Encoding": {"quoted-printable"},
	}
}
