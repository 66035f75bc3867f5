package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

const capturedAtLayout = "2006-01-02 15:04:05 MST"

const thankYouText = `Hello{{if .VisitorName}} {{.VisitorName}}{{end}},

thank you for visiting us at {{.Context}}.
We will get back to you shortly with more information about your request.

Kind regards
{{.Closing}}

Note: this email was generated automatically by LeadRadar (Lead ID: {{.LeadID}}).
`

const thankYouHTML = `<p>Hello{{if .VisitorName}} {{.VisitorName}}{{end}},</p>
<p>thank you for visiting us at <strong>{{.Context}}</strong>.</p>
<p>We will get back to you shortly with more information about your request.</p>
<p>Kind regards<br/>
{{if .CompanyName}}Your <strong>{{.CompanyName}}</strong> team{{else}}Your booth team{{end}}</p>
<p style="font-size: 12px; color: #666;">Note: this email was generated automatically by LeadRadar (Lead ID: {{.LeadID}}).</p>
`

const leadNotifyText = `A new lead has just been captured:

Lead ID: {{.LeadID}}
Form: {{or .FormName "-"}}
Event: {{or .EventName "-"}}
Captured at: {{.CapturedAt}}

Field values:
{{range .Fields}}- {{.Label}}: {{.Value}}
{{end}}`

const leadNotifyHTML = `<p>A new lead has just been captured:</p>
<ul>
  <li><strong>Lead ID:</strong> {{.LeadID}}</li>
  <li><strong>Form:</strong> {{or .FormName "-"}}</li>
  <li><strong>Event:</strong> {{or .EventName "-"}}</li>
  <li><strong>Captured at:</strong> {{.CapturedAt}}</li>
</ul>
<p><strong>Field values:</strong></p>
<table style="border-collapse: collapse; font-size: 14px;">
  <tbody>
{{- range .Fields}}
    <tr>
      <td style="border:1px solid #ccc; padding:4px 8px;"><strong>{{.Label}}</strong></td>
      <td style="border:1px solid #ccc; padding:4px 8px;">{{.Value}}</td>
    </tr>
{{- end}}
  </tbody>
</table>
<p style="font-size: 12px; color: #666;">Note: this email was generated automatically by LeadRadar.</p>
`

var (
	thankYouTextTmpl   = texttemplate.Must(texttemplate.New("thank-you.txt").Parse(thankYouText))
	thankYouHTMLTmpl   = htmltemplate.Must(htmltemplate.New("thank-you.html").Parse(thankYouHTML))
	leadNotifyTextTmpl = texttemplate.Must(texttemplate.New("lead-notify.txt").Parse(leadNotifyText))
	leadNotifyHTMLTmpl = htmltemplate.Must(htmltemplate.New("lead-notify.html").Parse(leadNotifyHTML))
)

type thankYouData struct {
	LeadID      int64
	VisitorName string
	CompanyName string
	Context     string
	Closing     string
}

type leadNotifyData struct {
	LeadID     int64
	FormName   string
	EventName  string
	CapturedAt string
	Fields     []FieldValue
}

// ThankYouMessage renders the visitor acknowledgement for summary.
func ThankYouMessage(to, visitorName, companyName string, summary LeadSummary) (EmailMessage, error) {
	where := firstNonEmpty(summary.EventName, summary.FormName, "our booth")
	closing := "Your booth team"
	if companyName != "" {
		closing = fmt.Sprintf("Your %s team", companyName)
	}
	data := thankYouData{
		LeadID:      summary.LeadID,
		VisitorName: visitorName,
		CompanyName: companyName,
		Context:     where,
		Closing:     closing,
	}

	var text, html bytes.Buffer
	if err := thankYouTextTmpl.Execute(&text, data); err != nil {
		return EmailMessage{}, fmt.Errorf("notify: render thank-you text: %w", err)
	}
	if err := thankYouHTMLTmpl.Execute(&html, data); err != nil {
		return EmailMessage{}, fmt.Errorf("notify: render thank-you html: %w", err)
	}
	return EmailMessage{
		To:      to,
		ToName:  visitorName,
		Subject: "Thank you for visiting " + where,
		Body:    text.String(),
		HTML:    html.String(),
	}, nil
}

// LeadNotifyMessage renders the internal notification for summary.
func LeadNotifyMessage(to string, summary LeadSummary) (EmailMessage, error) {
	data := leadNotifyData{
		LeadID:     summary.LeadID,
		FormName:   summary.FormName,
		EventName:  summary.EventName,
		CapturedAt: summary.CreatedAt.UTC().Format(capturedAtLayout),
		Fields:     summary.Fields,
	}

	var text, html bytes.Buffer
	if err := leadNotifyTextTmpl.Execute(&text, data); err != nil {
		return EmailMessage{}, fmt.Errorf("notify: render lead text: %w", err)
	}
	if err := leadNotifyHTMLTmpl.Execute(&html, data); err != nil {
		return EmailMessage{}, fmt.Errorf("notify: render lead html: %w", err)
	}
	return EmailMessage{
		To:      to,
		Subject: "New lead from LeadRadar – " + firstNonEmpty(summary.FormName, "Unknown form"),
		Body:    text.String(),
		HTML:    html.String(),
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
