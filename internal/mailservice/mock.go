package mailservice

import (
	"github.com/go-mail/mail/v2"
	"github.com/stretchr/testify/mock"
)

type MockTemplate struct {
	mock.Mock
}

func (m *MockTemplate) Render(name string, data any) (*Message, error) {
	args := m.Called(name, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Message), args.Error(1)
}

type MockDialer struct {
	mock.Mock
}

func (d *MockDialer) DialAndSend(m ...*mail.Message) error {
	args := d.Called(m)
	return args.Error(0)
}

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) send(recipient string, data any, templateFile string) error {
	args := m.Called(recipient, data, templateFile)
	return args.Error(0)
}

type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Error(msg string, args ...any) {
	m.Called(msg, args)
}

func (m *MockLogger) Info(msg string, args ...any) {
	m.Called(msg, args)
}
