package mailer

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"altiora-site/pkg/domain"
)

// templateData is what the email templates see.
type templateData struct {
	Contact     *domain.Contact
	Company     string
	SiteURL     string
	AdminURL    string
	SubmittedAt string
}

const adminText = `New contact form submission

Name:    {{.Contact.FullName}}
Email:   {{.Contact.Email}}
{{- with .Contact.Company}}
Company: {{.}}{{end}}
Country: {{.Contact.Country}}
{{- with .Contact.Phone}}
Phone:   {{.}}{{end}}
Received: {{.SubmittedAt}}

Message:
{{.Contact.Message}}
{{if .Contact.Attachments}}
Attachments:
{{range .Contact.Attachments}}- {{.FileName}} ({{.MimeType}}, {{sizeOf .FileSize}}): {{.FileURL}}
{{end}}{{end}}{{with .AdminURL}}
Open in admin: {{.}}
{{end}}`

const adminHTML = `<!DOCTYPE html>
<html><body style="font-family:Arial,sans-serif;color:#1f2937">
<h2>New contact form submission</h2>
<table cellpadding="4">
<tr><td><strong>Name</strong></td><td>{{.Contact.FullName}}</td></tr>
<tr><td><strong>Email</strong></td><td><a href="mailto:{{.Contact.Email}}">{{.Contact.Email}}</a></td></tr>
{{with .Contact.Company}}<tr><td><strong>Company</strong></td><td>{{.}}</td></tr>{{end}}
<tr><td><strong>Country</strong></td><td>{{.Contact.Country}}</td></tr>
{{with .Contact.Phone}}<tr><td><strong>Phone</strong></td><td>{{.}}</td></tr>{{end}}
<tr><td><strong>Received</strong></td><td>{{.SubmittedAt}}</td></tr>
</table>
<h3>Message</h3>
<p style="white-space:pre-wrap">{{.Contact.Message}}</p>
{{if .Contact.Attachments}}<h3>Attachments</h3>
<ul>{{range .Contact.Attachments}}<li><a href="{{.FileURL}}">{{.FileName}}</a> ({{.MimeType}}, {{sizeOf .FileSize}})</li>{{end}}</ul>{{end}}
{{with .AdminURL}}<p><a href="{{.}}">Open in admin</a></p>{{end}}
</body></html>`

const autoReplyText = `Hi {{.Contact.FirstName}},

Thank you for contacting {{.Company}}. We have received your message and
a member of our team will get back to you within one business day.

For reference, here is what you sent:

{{.Contact.Message}}

Best regards,
The {{.Company}} team
{{.SiteURL}}
`

const autoReplyHTML = `<!DOCTYPE html>
<html><body style="font-family:Arial,sans-serif;color:#1f2937">
<p>Hi {{.Contact.FirstName}},</p>
<p>Thank you for contacting {{.Company}}. We have received your message and a member of our team will get back to you within one business day.</p>
<p>For reference, here is what you sent:</p>
<blockquote style="white-space:pre-wrap;border-left:3px solid #e5e7eb;padding-left:12px">{{.Contact.Message}}</blockquote>
<p>Best regards,<br>The {{.Company}} team<br><a href="{{.SiteURL}}">{{.SiteURL}}</a></p>
</body></html>`

var funcs = map[string]any{"sizeOf": humanSize}

var (
	adminTextTmpl     = texttemplate.Must(texttemplate.New("admin.txt").Funcs(funcs).Parse(adminText))
	adminHTMLTmpl     = htmltemplate.Must(htmltemplate.New("admin.html").Funcs(funcs).Parse(adminHTML))
	autoReplyTextTmpl = texttemplate.Must(texttemplate.New("reply.txt").Parse(autoReplyText))
	autoReplyHTMLTmpl = htmltemplate.Must(htmltemplate.New("reply.html").Parse(autoReplyHTML))
)

func render(text *texttemplate.Template, html *htmltemplate.Template, data templateData) (string, string, error) {
	var tb, hb bytes.Buffer
	if err := text.Execute(&tb, data); err != nil {
		return "", "", fmt.Errorf("render %s: %w", text.Name(), err)
	}
	if err := html.Execute(&hb, data); err != nil {
		return "", "", fmt.Errorf("render %s: %w", html.Name(), err)
	}
	return tb.String(), hb.String(), nil
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGT"[exp])
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format("Jan 2, 2006 15:04 MST")
}

// oneLine keeps a value safe for a header.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
