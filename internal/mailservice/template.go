package mailservice

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*
var templateFS embed.FS

// Message is a rendered email: each template file defines the subject,
// plainBody and htmlBody blocks.
type Message struct {
	Subject string
	Plain   string
	HTML    string
}

func NewTemplate() *Template {
	return &Template{cache: make(map[string]*template.Template)}
}

func (tp *Template) lookup(name string) (*template.Template, error) {
	tp.mu.Lock()
	defer tp.mu.Unlock()

	if t, ok := tp.cache[name]; ok {
		return t, nil
	}

	t, err := template.New("email").ParseFS(templateFS, "templates/"+name)
	if err != nil {
		return nil, fmt.Errorf("could not parse template %s: %w", name, err)
	}

	if tp.cache == nil {
		tp.cache = make(map[string]*template.Template)
	}
	tp.cache[name] = t

	return t, nil
}

// Render executes the blocks of the named template with data.
func (tp *Template) Render(name string, data any) (*Message, error) {
	t, err := tp.lookup(name)
	if err != nil {
		return nil, err
	}

	blocks := []string{"subject", "plainBody", "htmlBody"}
	out := make([]string, len(blocks))

	for i, block := range blocks {
		buf := new(bytes.Buffer)
		if err := t.ExecuteTemplate(buf, block, data); err != nil {
			return nil, fmt.Errorf("could not render %s of %s: %w", block, name, err)
		}
		out[i] = buf.String()
	}

	return &Message{Subject: out[0], Plain: out[1], HTML: out[2]}, nil
}
