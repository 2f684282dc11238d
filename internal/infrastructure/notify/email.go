package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net"
	"strconv"
	"strings"
	"time"

	"smarttest/internal/application/port/output"
	"smarttest/internal/domain/entity"

	"github.com/wneessen/go-mail"
)

var _ output.NotifierPort = (*Email)(nil)

const smtpTimeout = 30 * time.Second

type EmailConfig struct {
	Server     string
	Port       int
	UseTLS     bool
	Username   string
	Password   string
	From       string
	Recipients []string
}

// mailSender is the part of *mail.Client the notifier needs.
type mailSender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

type Email struct {
	cfg  EmailConfig
	dial func() (mailSender, error)
	now  func() time.Time
}

func NewEmail(cfg EmailConfig) *Email {
	e := &Email{cfg: cfg, now: time.Now}
	e.dial = e.newClient
	return e
}

func (e *Email) Name() string { return "email" }

func (e *Email) Notify(ctx context.Context, report *entity.RunReport, detailed bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := e.Message(report, detailed)
	if err != nil {
		return err
	}
	addr := net.JoinHostPort(e.cfg.Server, strconv.Itoa(e.cfg.Port))
	client, err := e.dial()
	if err != nil {
		return fmt.Errorf("smtp client for %s: %w", addr, err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send email via %s: %w", addr, err)
	}
	return nil
}

// newClient uses implicit TLS on port 465 and mandatory STARTTLS on other
// ports when use_tls is set.
func (e *Email) newClient() (mailSender, error) {
	opts := []mail.Option{
		mail.WithPort(e.cfg.Port),
		mail.WithTimeout(smtpTimeout),
	}
	switch {
	case e.cfg.UseTLS && e.cfg.Port == 465:
		opts = append(opts, mail.WithSSL())
	case e.cfg.UseTLS:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}
	if e.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(e.cfg.Username),
			mail.WithPassword(e.cfg.Password),
		)
	}
	c, err := mail.NewClient(e.cfg.Server, opts...)
	if err != nil {
		return nil, err
	}
	return c, nil
}

var emailHTML = template.Must(template.New("email").Parse(`<html><body>
<h1>{{.Title}}</h1>
<table width="100%" cellpadding="5" cellspacing="0">
<tr><td><strong>Total Tests:</strong></td><td>{{.S.Total}}</td><td><strong>Status:</strong></td><td>{{.Status}}</td></tr>
<tr><td><strong>Passed:</strong></td><td>{{.S.Passed}} ({{printf "%.1f" .S.PassRate}}%)</td><td><strong>Failed:</strong></td><td>{{.Failed}}</td></tr>
</table>
<p>Duration: {{printf "%.2f" .S.Duration.Seconds}} seconds</p>
{{if .Failures}}<h2>Failed Tests:</h2><ul>
{{range .Failures}}<li><strong>{{.Name}}</strong><br/>{{.Error}}</li>
{{end}}</ul>{{end}}
<hr><p><em>Generated by SmartTest</em></p>
</body></html>
`))

// Message builds a multipart/alternative email with plain text and HTML
// parts.
func (e *Email) Message(report *entity.RunReport, detailed bool) (*mail.Msg, error) {
	s := report.Summary
	var failures []entity.RunResult
	if detailed {
		failures = report.Failures()
	}

	var text strings.Builder
	fmt.Fprintf(&text, "%s\n\nTotal Tests: %d\nStatus: %s\nPassed: %d (%.1f%%)\nFailed: %d\n\nDuration: %.2f seconds\n",
		title(report), s.Total, strings.TrimLeft(statusText(s), "✅❌ "), s.Passed, s.PassRate(), s.Failed+s.Errors, s.Duration.Seconds())
	if len(failures) > 0 {
		text.WriteString("\nFailed Tests:\n")
		for _, f := range failures {
			fmt.Fprintf(&text, "- %s: %s\n", f.Name, orDefault(f.Error, "No error message"))
		}
	}
	text.WriteString("\nGenerated by SmartTest\n")

	var html bytes.Buffer
	if err := emailHTML.Execute(&html, map[string]any{
		"Title":    title(report),
		"S":        s,
		"Status":   statusText(s),
		"Failed":   s.Failed + s.Errors,
		"Failures": failures,
	}); err != nil {
		return nil, fmt.Errorf("render email: %w", err)
	}

	m := mail.NewMsg()
	if err := m.From(e.cfg.From); err != nil {
		return nil, fmt.Errorf("email from: %w", err)
	}
	if err := m.To(e.cfg.Recipients...); err != nil {
		return nil, fmt.Errorf("email recipients: %w", err)
	}
	m.Subject("SmartTest Results: " + title(report))
	m.SetDateWithValue(e.now())
	m.SetBodyString(mail.TypeTextPlain, text.String())
	m.AddAlternativeString(mail.TypeTextHTML, html.String())
	return m, nil
}
