package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

type messageKind int

const (
	kindVerificationCode messageKind = iota
	kindPasswordResetCode
	kindWelcome
	kindPasswordChanged
)

type templateData struct {
	Name       string
	Code       string
	TTLMinutes int
	ClientURL  string
}

type rendered struct {
	Subject string
	Text    string
	HTML    string
}

var layout = template.Must(template.New("layout").Parse(`<!doctype html>
<html><body style="font-family:Arial,sans-serif;color:#1f2937">
<h2>{{.Title}}</h2>
{{range .Lines}}<p>{{.}}</p>
{{end}}{{if .Code}}<p style="font-size:28px;letter-spacing:6px;font-weight:bold">{{.Code}}</p>
{{end}}</body></html>`))

type layoutData struct {
	Title string
	Lines []string
	Code  string
}

func render(kind messageKind, data templateData) (rendered, error) {
	greeting := "Hello,"
	if data.Name != "" {
		greeting = fmt.Sprintf("Hello %s,", data.Name)
	}

	var ld layoutData
	var subject string
	switch kind {
	case kindVerificationCode:
		subject = "Verify your email"
		ld = layoutData{
			Title: "Confirm your email address",
			Lines: []string{greeting, fmt.Sprintf("Use this code to finish creating your account. It expires in %d minutes.", data.TTLMinutes)},
			Code:  data.Code,
		}
	case kindPasswordResetCode:
		subject = "Reset your password"
		ld = layoutData{
			Title: "Password reset",
			Lines: []string{greeting, fmt.Sprintf("Use this code to reset your password. It expires in %d minutes. If you did not ask for a reset you can ignore this email.", data.TTLMinutes)},
			Code:  data.Code,
		}
	case kindWelcome:
		subject = "Welcome"
		ld = layoutData{
			Title: "Your account is ready",
			Lines: []string{greeting, "Your account has been created.", "Sign in at " + data.ClientURL},
		}
	case kindPasswordChanged:
		subject = "Your password was changed"
		ld = layoutData{
			Title: "Password changed",
			Lines: []string{greeting, "The password for your account was just changed. If this was not you, reset it immediately."},
		}
	default:
		return rendered{}, fmt.Errorf("unknown message kind %d", kind)
	}

	var html bytes.Buffer
	if err := layout.Execute(&html, ld); err != nil {
		return rendered{}, fmt.Errorf("render %s: %w", subject, err)
	}

	text := strings.Join(ld.Lines, "\n\n")
	if ld.Code != "" {
		text += "\n\n" + ld.Code
	}
	return rendered{Subject: subject, Text: text, HTML: html.String()}, nil
}
