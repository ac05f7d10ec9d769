// Package notification delivers outbound email with optional attachments and
// renders the built-in message templates.
package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ---------------------------------------------------------------------------
// Email
// ---------------------------------------------------------------------------

// Attachment is an in-memory file attached to an email.
type Attachment struct {
	Name string
	Data []byte
}

// Email is a single outbound message.
type Email struct {
	To          []string
	Subject     string
	Body        string
	HTML        bool
	Attachments []Attachment
}

// Validate checks that the message has at least one recipient and a subject.
func (e Email) Validate() error {
	if len(e.To) == 0 {
		return errors.New("email has no recipients")
	}
	for _, to := range e.To {
		if !strings.Contains(to, "@") {
			return fmt.Errorf("invalid recipient %q", to)
		}
	}
	if strings.TrimSpace(e.Subject) == "" {
		return errors.New("email subject is required")
	}
	return nil
}

// EmailSender is the interface for sending email messages.
type EmailSender interface {
	SendEmail(ctx context.Context, msg Email) error
}

// ---------------------------------------------------------------------------
// Template Engine
// ---------------------------------------------------------------------------

const (
	TemplateDailyReport         = "daily-report"
	TemplateAppointmentReminder = "appointment-reminder"
)

// Template defines a reusable message template.
type Template struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// TemplateEngine manages templates and renders them with data.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewTemplateEngine creates a TemplateEngine with the built-in templates pre-registered.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{
		templates: make(map[string]*Template),
	}
	e.registerBuiltIn()
	return e
}

func (e *TemplateEngine) registerBuiltIn() {
	builtIn := []Template{
		{
			ID:      TemplateDailyReport,
			Subject: "Reporte diario {{date}}",
			Body: "Hola {{name}},\n\nAdjunto encontrará el reporte diario del {{date}}.\n\n" +
				"Citas: {{appointments}}\nPacientes atendidos: {{patients_seen}}\n" +
				"Ingresos: {{income}}\nEgresos: {{expenses}}\nBalance: {{balance}}\n",
		},
		{
			ID:      TemplateAppointmentReminder,
			Subject: "Recordatorio de cita {{date}}",
			Body:    "Recordatorio: {{patient_name}} tiene una cita de {{type}} el {{date}} a las {{time}}.",
		},
	}
	for i := range builtIn {
		t := builtIn[i]
		e.templates[t.ID] = &t
	}
}

// RegisterTemplate adds or replaces a template in the engine.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = &t
}

// Render looks up a template by ID and performs {{key}} replacement using the
// supplied data map. Keys present in the template but absent from data are left
// as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (subject, body string, err error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("template %q not found", templateID)
	}

	subject = t.Subject
	body = t.Body
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		subject = strings.ReplaceAll(subject, placeholder, v)
		body = strings.ReplaceAll(body, placeholder, v)
	}
	return subject, body, nil
}

// ---------------------------------------------------------------------------
// Senders
// ---------------------------------------------------------------------------

// NoopSender drops every message. Used when SMTP is not configured.
type NoopSender struct{}

func (NoopSender) SendEmail(_ context.Context, msg Email) error {
	return msg.Validate()
}

// EmailCall records a single call to SendEmail.
type EmailCall struct {
	To          []string
	Subject     string
	Body        string
	Attachments []string
}

// MockEmailSender is a test double for EmailSender.
type MockEmailSender struct {
	mu         sync.Mutex
	calls      []EmailCall
	ShouldFail bool
	FailError  string
}

// SendEmail records the call and optionally returns an error.
func (m *MockEmailSender) SendEmail(_ context.Context, msg Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		names = append(names, a.Name)
	}
	m.calls = append(m.calls, EmailCall{
		To:          append([]string(nil), msg.To...),
		Subject:     msg.Subject,
		Body:        msg.Body,
		Attachments: names,
	})
	if m.ShouldFail {
		return errors.New(m.FailError)
	}
	return nil
}

// Calls returns a copy of recorded email calls.
func (m *MockEmailSender) Calls() []EmailCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EmailCall, len(m.calls))
	copy(out, m.calls)
	return out
}
