package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

var welcomeHTML = template.Must(template.New("welcome").Parse(`<html><body>
<h2>Congratulations, {{.Name}}!</h2>
<p>You have cleared the interview rounds for <strong>{{.Position}}</strong>{{if .Department}} in {{.Department}}{{end}} at {{.Company}}.</p>
<p>Your onboarding has started. Sign in at <a href="{{.PortalURL}}">{{.PortalURL}}</a> to continue.</p>
</body></html>`))

var stepCompletedHTML = template.Must(template.New("step").Parse(`<html><body>
<p>Hi {{.Name}},</p>
<p>The <strong>{{.Step}}</strong> step of your onboarding at {{.Company}} is complete.</p>
<p>Continue at <a href="{{.PortalURL}}">{{.PortalURL}}</a>.</p>
</body></html>`))

// Templates renders the onboarding emails.
type Templates struct {
	Company   string
	PortalURL string
}

func NewTemplates(company, portalURL string) *Templates {
	return &Templates{Company: company, PortalURL: portalURL}
}

// Welcome is sent when HR registers a candidate.
func (t *Templates) Welcome(to, name, position, department string) (Message, error) {
	data := map[string]string{
		"Name":       name,
		"Position":   position,
		"Department": department,
		"Company":    t.Company,
		"PortalURL":  t.PortalURL,
	}
	html, err := render(welcomeHTML, data)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		Subject: fmt.Sprintf("Welcome to %s - your onboarding has started", t.Company),
		Text: fmt.Sprintf("Congratulations %s! You have cleared the interview rounds. Your onboarding has started. Please sign in at %s",
			name, t.PortalURL),
		HTML: html,
	}, nil
}

// StepCompleted confirms a finished onboarding step.
func (t *Templates) StepCompleted(to, name, stepTitle string) (Message, error) {
	data := map[string]string{
		"Name":      name,
		"Step":      stepTitle,
		"Company":   t.Company,
		"PortalURL": t.PortalURL,
	}
	html, err := render(stepCompletedHTML, data)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		Subject: fmt.Sprintf("%s completed", stepTitle),
		Text:    fmt.Sprintf("Hi %s, the %s step of your onboarding is complete. Continue at %s", name, stepTitle, t.PortalURL),
		HTML:    html,
	}, nil
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s email: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}
