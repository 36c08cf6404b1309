package mailservice

import (
	"time"

	"github.com/go-mail/mail/v2"
)

const dialTimeout = 5 * time.Second

func NewMailer(host string, port int, username, password, sender string, tp TemplateParser) *Mail {
	dialer := mail.NewDialer(host, port, username, password)
	dialer.Timeout = dialTimeout

	return &Mail{
		dialer: dialer,
		sender: sender,
		parser: tp,
	}
}

// send renders templateFile with data and delivers it to recipient. Sends are
// serialized over the shared dialer.
func (m *Mail) send(recipient string, data any, templateFile string) error {
	rendered, err := m.parser.Render(templateFile, data)
	if err != nil {
		return err
	}

	msg := mail.NewMessage()
	msg.SetHeaders(map[string][]string{
		"From":    {m.sender},
		"To":      {recipient},
		"Subject": {rendered.Subject},
	})
	msg.SetBody("text/plain", rendered.Plain)
	msg.AddAlternative("text/html", rendered.HTML)

	m.mu.Lock()
	defer m.mu.Unlock()

	return m.dialer.DialAndSend(msg)
}
