package transport

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jkorhonen/carrier/internal/carrier"
	"github.com/jkorhonen/carrier/internal/config"
)

// ErrNoValidTransports is returned when the configured transport list
// yields no usable transport. A deployment in this state cannot send
// anything, so it is a configuration error, not a skippable condition.
var ErrNoValidTransports = errors.New("no valid transports configured")

// Registry holds the validated transport instances in configured priority
// order and answers suitability queries.
type Registry struct {
	transports []Transport
}

// NewRegistry builds the registry from the configured transport name list.
// Unknown names fail immediately; configured-but-invalid transports are
// excluded with a warning. An empty result is ErrNoValidTransports.
func NewRegistry(cfg config.TransportsConfig, languages []string, client HTTPClient, log zerolog.Logger) (*Registry, error) {
	var transports []Transport

	for _, name := range cfg.Enabled {
		t, err := newTransport(name, cfg, languages, client)
		if err != nil {
			return nil, err
		}

		if !t.IsValid() {
			log.Warn().Str("transport", t.Name()).Msg("transport not configured, excluding from registry")
			continue
		}

		transports = append(transports, t)
		log.Info().Str("transport", t.Name()).Str("type", string(t.Type())).Msg("transport registered")
	}

	if len(transports) == 0 {
		return nil, ErrNoValidTransports
	}

	return &Registry{transports: transports}, nil
}

// newTransport instantiates a transport by its configured name. The name
// set is static: unknown names are a startup error, not a runtime lookup.
func newTransport(name string, cfg config.TransportsConfig, languages []string, client HTTPClient) (Transport, error) {
	switch name {
	case "mailgun":
		return NewMailgun(cfg.Mailgun, languages, client), nil
	case "smtp":
		return NewSMTPRelay(cfg.SMTP, languages), nil
	case "sms":
		return NewSMS(cfg.SMS, languages, client), nil
	case "pushbullet":
		return NewPushbullet(cfg.Pushbullet, languages, client), nil
	case "fcm":
		return NewFCM(cfg.FCM, languages, client), nil
	case "stdout":
		return NewStdout(languages), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", name)
	}
}

// Transports returns the registered transports in priority order.
func (r *Registry) Transports() []Transport {
	return r.transports
}

// FirstSuitable returns the first transport in priority order that can
// reach the given recipient.
func (r *Registry) FirstSuitable(rec *carrier.Recipient) (Transport, bool) {
	for _, t := range r.transports {
		if t.SuitableFor(rec) {
			return t, true
		}
	}
	return nil, false
}
