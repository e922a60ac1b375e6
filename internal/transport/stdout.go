package transport

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jkorhonen/carrier/internal/carrier"
)

// Stdout is a development transport that prints deliveries to standard
// output. Always valid, suitable for any recipient with deliverable info;
// nothing is ever actually delivered.
type Stdout struct {
	writer    io.Writer
	languages []string
}

// NewStdout creates a Stdout transport that prints to os.Stdout.
func NewStdout(languages []string) *Stdout {
	return &Stdout{writer: os.Stdout, languages: languages}
}

func (s *Stdout) Name() string                { return "stdout" }
func (s *Stdout) Type() carrier.TransportType { return carrier.TransportTypeEmail }

func (s *Stdout) IsValid() bool { return true }

func (s *Stdout) SuitableFor(r *carrier.Recipient) bool {
	return r.HasDeliverableInfo()
}

// Send prints the batch and marks every recipient sent.
func (s *Stdout) Send(_ context.Context, msg *carrier.Message, recipients []*carrier.Recipient) SendResult {
	order, groups := groupByLanguage(recipients, s.languages)
	for _, language := range order {
		group := groups[language]

		var b strings.Builder
		b.WriteString("--- stdout transport ---\n")
		fmt.Fprintf(&b, "Message:  %s\n", msg.ID)
		fmt.Fprintf(&b, "From:     %s <%s>\n", msg.FromName, msg.FromEmail)
		fmt.Fprintf(&b, "Language: %s\n", language)
		if content, err := msg.ContentInLanguage(language, s.languages); err == nil {
			fmt.Fprintf(&b, "Subject:  %s\n", content.Subject)
		}
		for _, r := range group {
			fmt.Fprintf(&b, "To:       %s\n", r.ID)
		}
		b.WriteString("--- end ---\n")
		io.WriteString(s.writer, b.String())

		markSent(group, carrier.TransportTypeEmail, language)
	}

	return SendResult{}
}
