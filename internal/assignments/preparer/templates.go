package preparer

import (
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// channelTemplates is the on-disk YAML shape of the message templates.
type channelTemplates struct {
	WhatsApp struct {
		Message string `yaml:"message"`
	} `yaml:"whatsapp"`
	SMS struct {
		Message string `yaml:"message"`
	} `yaml:"sms"`
	Email struct {
		Subject string `yaml:"subject"`
		Body    string `yaml:"body"`
	} `yaml:"email"`
}

// Templates holds the parsed channel message templates.
type Templates struct {
	whatsapp     *template.Template
	sms          *template.Template
	emailSubject *template.Template
	emailBody    *template.Template
}

// templateData is what channel templates can reference.
type templateData struct {
	ArtisanName string
	ProblemType string
	Description string
	City        string
	Urgent      bool
	Score       int
	Tier        string
	AcceptURL   string
	PhotoURL    string
}

const defaultTemplatesYAML = `
whatsapp:
  message: |
    Bonjour {{.ArtisanName}}, une nouvelle demande {{.ProblemType}}{{if .City}} à {{.City}}{{end}} vous attend{{if .Urgent}} (URGENT){{end}}.
    "{{.Description}}"
    Acceptez la mission : {{.AcceptURL}}
sms:
  message: "Nouvelle demande {{.ProblemType}}{{if .Urgent}} URGENTE{{end}}. Acceptez : {{.AcceptURL}}"
email:
  subject: "Nouvelle demande {{.ProblemType}}{{if .Urgent}} urgente{{end}}"
  body: |
    <p>Bonjour {{.ArtisanName}},</p>
    <p>Une nouvelle demande <strong>{{.ProblemType}}</strong>{{if .City}} à {{.City}}{{end}} vous attend (qualité : {{.Tier}}, score {{.Score}}).</p>
    <p>{{.Description}}</p>
    {{if .PhotoURL}}<p><a href="{{.PhotoURL}}">Voir la photo</a></p>{{end}}
    <p><a href="{{.AcceptURL}}">Accepter la mission</a></p>
`

// LoadTemplates parses the channel templates from the given YAML file.
// An empty path or a missing file falls back to the built-in templates, so
// tests and minimal deployments need no template file.
func LoadTemplates(path string) (*Templates, error) {
	raw := []byte(defaultTemplatesYAML)
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			raw = data
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read templates: %w", err)
		}
	}

	var spec channelTemplates
	if err := yaml.Unmarshal(raw, &spec); err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	t := &Templates{}
	var err error
	if t.whatsapp, err = template.New("whatsapp").Parse(spec.WhatsApp.Message); err != nil {
		return nil, fmt.Errorf("parse whatsapp template: %w", err)
	}
	if t.sms, err = template.New("sms").Parse(spec.SMS.Message); err != nil {
		return nil, fmt.Errorf("parse sms template: %w", err)
	}
	if t.emailSubject, err = template.New("email_subject").Parse(spec.Email.Subject); err != nil {
		return nil, fmt.Errorf("parse email subject template: %w", err)
	}
	if t.emailBody, err = template.New("email_body").Parse(spec.Email.Body); err != nil {
		return nil, fmt.Errorf("parse email body template: %w", err)
	}
	return t, nil
}

func render(t *template.Template, data templateData) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render %s template: %w", t.Name(), err)
	}
	return strings.TrimSpace(b.String()), nil
}
