package notify

import (
	"fmt"
	"html/template"
	"path/filepath"
	"strings"
	"time"
)

var reportBody = template.Must(template.New("report").Parse(`<html>
<body>
<p>Hello,</p>
<p>Please find attached the latest vulnerability reports for <b>{{.Name}}</b>:</p>
<ul>
{{- range .Files}}
<li>{{.}}</li>
{{- end}}
</ul>
<p>Generated on {{.Date}}.</p>
<p>This is an automated message from the report workflow.</p>
</body>
</html>
`))

var failureBody = template.Must(template.New("failure").Parse(`<html>
<body>
<p>The report workflow run for <b>{{.Name}}</b> failed:</p>
<pre>{{.Reason}}</pre>
<p>The schedule pointer was not advanced; the run will be retried on the
next invocation.</p>
</body>
</html>
`))

// ReportMessage builds the delivery mail for a finished report pair.
func ReportMessage(name string, to, cc, attachments []string) (*Message, error) {
	files := make([]string, 0, len(attachments))
	for _, path := range attachments {
		files = append(files, filepath.Base(path))
	}

	var body strings.Builder
	err := reportBody.Execute(&body, struct {
		Name  string
		Files []string
		Date  string
	}{name, files, time.Now().Format("02 Jan 2006")})
	if err != nil {
		return nil, fmt.Errorf("failed to render report mail: %w", err)
	}

	return &Message{
		To:          to,
		CC:          cc,
		Subject:     fmt.Sprintf("Vulnerability Report - %s", name),
		HTMLBody:    body.String(),
		Attachments: attachments,
	}, nil
}

// FailureMessage builds the operator notification sent when a run fails.
func FailureMessage(owner, name string, reason error) (*Message, error) {
	var body strings.Builder
	err := failureBody.Execute(&body, struct {
		Name   string
		Reason string
	}{name, reason.Error()})
	if err != nil {
		return nil, fmt.Errorf("failed to render failure mail: %w", err)
	}

	return &Message{
		To:       []string{owner},
		Subject:  fmt.Sprintf("Report Workflow FAILED - %s", name),
		HTMLBody: body.String(),
	}, nil
}
