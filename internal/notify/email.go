package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/wonny/carwatch/pkg/config"
)

// SendFunc matches smtp.SendMail
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailNotifier renders an HTML report and sends it over SMTP
type EmailNotifier struct {
	cfg  config.EmailConfig
	send SendFunc
	now  func() time.Time
}

// NewEmailNotifier creates an e-mail transport using net/smtp
func NewEmailNotifier(cfg config.EmailConfig) *EmailNotifier {
	return &EmailNotifier{cfg: cfg, send: smtp.SendMail, now: time.Now}
}

// WithSendFunc replaces the SMTP sender
func (e *EmailNotifier) WithSendFunc(fn SendFunc) *EmailNotifier {
	e.send = fn
	return e
}

// Name implements Notifier
func (e *EmailNotifier) Name() string { return "email" }

var emailTemplate = template.Must(template.New("summary").Parse(`<html>
<body>
<h2>{{.Title}}</h2>
{{range .Sections}}
<div class="section" data-vendor="{{.Vendor}}" data-market="{{.Market}}">
<h3>{{.Vendor}} {{.Market}}</h3>
<ul>
{{range .Counts}}<li class="count" data-reason="{{.Reason}}">{{.Label}}: {{.Count}}</li>
{{end}}</ul>
{{if .PriceChanges}}<table class="prices">
<tr>{{range $.Header}}<th>{{.}}</th>{{end}}</tr>
{{range .PriceChanges}}<tr><td>{{.ModelName}}</td><td>{{.OldPrice}}</td><td>{{.NewPrice}}</td><td>{{.PercentChange}}</td></tr>
{{end}}</table>{{end}}
</div>
{{end}}
</body>
</html>
`))

// RenderHTML renders the e-mail body
func RenderHTML(s *Summary) (string, error) {
	var buf bytes.Buffer
	err := emailTemplate.Execute(&buf, struct {
		Title    string
		Header   []string
		Sections []Section
	}{
		Title:    Title(s),
		Header:   PriceTableHeader,
		Sections: s.Sections,
	})
	if err != nil {
		return "", fmt.Errorf("render email: %w", err)
	}
	return buf.String(), nil
}

// Notify implements Notifier
func (e *EmailNotifier) Notify(ctx context.Context, s *Summary) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := RenderHTML(s)
	if err != nil {
		return err
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", e.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(e.cfg.To, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", Title(s))
	fmt.Fprintf(&msg, "Date: %s\r\n", e.now().Format(time.RFC1123Z))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	msg.WriteString(body)

	var auth smtp.Auth
	if e.cfg.User != "" {
		auth = smtp.PlainAuth("", e.cfg.User, e.cfg.Password, e.cfg.SMTPHost)
	}

	addr := net.JoinHostPort(e.cfg.SMTPHost, e.cfg.SMTPPort)
	if err := e.send(addr, auth, e.cfg.From, e.cfg.To, []byte(msg.String())); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
