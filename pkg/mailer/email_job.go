package mailer

import "fmt"

// Template names understood by the email worker.
const (
	TemplateWelcome         = "welcome"
	TemplatePasswordChanged = "password_changed"
)

// EmailJob is the JSON payload put on the RabbitMQ queue for sending email.
// Template selects one of the known notification texts; Name personalizes it.
type EmailJob struct {
	To       string `json:"to"`
	Template string `json:"template"`
	Name     string `json:"name,omitempty"`
}

// Render returns the subject and plain-text body for the job's template.
func (j EmailJob) Render() (subject, text string, err error) {
	name := j.Name
	if name == "" {
		name = "there"
	}
	switch j.Template {
	case TemplateWelcome:
		return "Welcome aboard",
			fmt.Sprintf("Hi %s,\n\nYour account was created successfully. You can now sign in with your email address.\n", name),
			nil
	case TemplatePasswordChanged:
		return "Your password was changed",
			fmt.Sprintf("Hi %s,\n\nThe password for your account was just changed. If this wasn't you, contact support immediately.\n", name),
			nil
	default:
		return "", "", fmt.Errorf("unknown email template %q", j.Template)
	}
}
