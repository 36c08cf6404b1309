package mailservice

import (
	"context"
	"html/template"
	"sync"
	"time"

	"github.com/go-mail/mail/v2"

	"github.com/sushihentaime/bloglist/internal/common"
)

type MailService struct {
	mb        common.MessageConsumer
	m         Mailer
	logger    MailLogger
	baseDelay time.Duration
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
}

type MailLogger interface {
	Error(msg string, args ...any)
	Info(msg string, args ...any)
}

type Mail struct {
	mu     sync.Mutex
	dialer Dialer
	parser TemplateParser
	sender string
}

type Mailer interface {
	send(recipient string, data any, templateFile string) error
}

// Template renders the embedded email templates, parsing each file once.
type Template struct {
	mu    sync.Mutex
	cache map[string]*template.Template
}

type Dialer interface {
	DialAndSend(m ...*mail.Message) error
}

type TemplateParser interface {
	Render(name string, data any) (*Message, error)
}
