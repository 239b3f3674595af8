package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

var parsed = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type templateSpec struct {
	subject string
	file    string
	path    string
}

var templates = map[Kind]templateSpec{
	KindVerifyEmail:   {subject: "Confirm your email", file: "verify_email.html", path: "api/auth/confirmed_email/"},
	KindResetPassword: {subject: "Confirm reset password", file: "reset_password.html", path: "api/auth/reset_password/"},
}

// Render returns the subject and HTML body of m.
func Render(m Message) (subject, body string, err error) {
	if err := m.Validate(); err != nil {
		return "", "", err
	}
	tpl := templates[m.Kind]
	host := m.Host
	if !strings.HasSuffix(host, "/") {
		host += "/"
	}
	data := struct {
		Username string
		Host     string
		Link     string
	}{
		Username: m.Username,
		Host:     host,
		Link:     host + tpl.path + m.Token,
	}
	var buf bytes.Buffer
	if err := parsed.ExecuteTemplate(&buf, tpl.file, data); err != nil {
		return "", "", fmt.Errorf("render %s: %w", tpl.file, err)
	}
	return tpl.subject, buf.String(), nil
}
