package email

import (
	"bytes"
	"html/template"
)

const (
	subjectReminder   = "Follow-up reminder"
	subjectAssignment = "New lead assigned to your team"
	subjectWelcome    = "Welcome to the CRM"
)

var baseTemplate = template.Must(template.New("base").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #222;">
  <h2>{{.Heading}}</h2>
  <p>{{.Body}}</p>
  {{if .Detail}}<p style="color: #555;">{{.Detail}}</p>{{end}}
</body>
</html>`))

type emailData struct {
	Heading string
	Body    string
	Detail  string
}

func render(data emailData) (string, error) {
	var buf bytes.Buffer
	if err := baseTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
