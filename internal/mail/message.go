// Package mail delivers outbound notifications. The API process enqueues
// messages on a Redis stream; the mailer process consumes the stream and
// sends over SMTP.
package mail

import (
	"errors"
	"fmt"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

var errMalformed = errors.New("malformed mail message")

func (m Message) values() map[string]any {
	return map[string]any{
		"to":      m.To,
		"subject": m.Subject,
		"body":    m.Body,
	}
}

func messageFromValues(values map[string]any) (Message, error) {
	var m Message
	for key, dst := range map[string]*string{"to": &m.To, "subject": &m.Subject, "body": &m.Body} {
		raw, ok := values[key]
		if !ok {
			return Message{}, fmt.Errorf("%w: missing %s", errMalformed, key)
		}
		s, ok := raw.(string)
		if !ok {
			return Message{}, fmt.Errorf("%w: %s is %T", errMalformed, key, raw)
		}
		*dst = s
	}
	if m.To == "" {
		return Message{}, fmt.Errorf("%w: empty recipient", errMalformed)
	}
	return m, nil
}
