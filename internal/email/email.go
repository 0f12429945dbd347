package email

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/charmbracelet/log"
)

// Sender delivers confirmation mail over SMTP. With no host
// configured it logs the mail instead, for local development.
type Sender struct {
	host     string
	port     string
	username string
	password string
	from     string
	baseURL  string
	log      *log.Logger
}

func NewSender(host, port, username, password, from, baseURL string, logger *log.Logger) *Sender {
	return &Sender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		baseURL:  baseURL,
		log:      logger,
	}
}

const confirmationTemplate = `
<!DOCTYPE html>
<html>
<body>
    <p>Hi {{.Username}},</p>
    <p>Please confirm your email address to start messaging and calling.</p>
    <p><a href="{{.Link}}">Confirm email</a></p>
    <p>If you didn't create an account, you can safely ignore this email.</p>
</body>
</html>
`

// SendConfirmationEmail mails the confirmation link for the token.
// The same token is re-sent on resend requests until confirmed.
func (s *Sender) SendConfirmationEmail(to, username, token string) error {
	link := fmt.Sprintf("%s/confirm-email/%s", s.baseURL, token)

	t, err := template.New("confirmation").Parse(confirmationTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	var body bytes.Buffer
	if err := t.Execute(&body, map[string]string{"Username": username, "Link": link}); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	subject := "Confirm your email address"

	if s.host == "" {
		s.log.Info("SMTP not configured, logging confirmation mail instead",
			"to", to,
			"link", link,
		)
		return nil
	}

	message := "From: " + s.from + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=\"UTF-8\"\r\n" +
		"\r\n" + body.String()

	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}

	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	if err := smtp.SendMail(addr, auth, s.from, []string{to}, []byte(message)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}
