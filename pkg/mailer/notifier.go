package mailer

import (
	"context"
	"errors"
	"fmt"

	"altiora-site/pkg/config"
	"altiora-site/pkg/domain"
	"altiora-site/pkg/logging"
	"altiora-site/pkg/metrics"
)

// Email kinds, used as the metrics label.
const (
	KindAdmin     = "admin"
	KindAutoReply = "auto_reply"
)

// Notifier sends the two emails produced by a contact submission.
type Notifier struct {
	sender      Sender
	adminEmail  string
	company     string
	siteURL     string
	adminAPIURL string
}

// NewNotifier builds a notifier around sender.
func NewNotifier(sender Sender, mail config.MailConfig, site config.SiteConfig) *Notifier {
	return &Notifier{
		sender:      sender,
		adminEmail:  mail.AdminEmail,
		company:     site.CompanyName,
		siteURL:     site.URL,
		adminAPIURL: site.AdminAPIURL,
	}
}

func (n *Notifier) data(c *domain.Contact) templateData {
	d := templateData{
		Contact:     c,
		Company:     n.company,
		SiteURL:     n.siteURL,
		SubmittedAt: formatTime(c.CreatedAt),
	}
	if n.adminAPIURL != "" && !c.ID.IsZero() {
		d.AdminURL = fmt.Sprintf("%s/contacts/%s", n.adminAPIURL, c.ID.Hex())
	}
	return d
}

// NotifyAdmin emails the submission to the admin inbox. Replies go to the sender.
func (n *Notifier) NotifyAdmin(ctx context.Context, c *domain.Contact) error {
	err := n.notifyAdmin(ctx, c)
	metrics.RecordEmail(KindAdmin, err)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("kind", KindAdmin).Msg("email not sent")
	}
	return err
}

func (n *Notifier) notifyAdmin(ctx context.Context, c *domain.Contact) error {
	if n.adminEmail == "" {
		return errors.New("admin email is not configured")
	}
	text, html, err := render(adminTextTmpl, adminHTMLTmpl, n.data(c))
	if err != nil {
		return err
	}
	return n.sender.Send(ctx, &Message{
		To:      []string{n.adminEmail},
		ReplyTo: c.Email,
		Subject: oneLine(fmt.Sprintf("New contact from %s (%s)", c.FullName(), c.Country)),
		Text:    text,
		HTML:    html,
	})
}

// SendAutoReply acknowledges the submission to the sender.
func (n *Notifier) SendAutoReply(ctx context.Context, c *domain.Contact) error {
	err := n.sendAutoReply(ctx, c)
	metrics.RecordEmail(KindAutoReply, err)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("kind", KindAutoReply).Msg("email not sent")
	}
	return err
}

func (n *Notifier) sendAutoReply(ctx context.Context, c *domain.Contact) error {
	text, html, err := render(autoReplyTextTmpl, autoReplyHTMLTmpl, n.data(c))
	if err != nil {
		return err
	}
	return n.sender.Send(ctx, &Message{
		To:      []string{c.Email},
		ReplyTo: n.adminEmail,
		Subject: oneLine(fmt.Sprintf("Thank you for contacting %s", n.company)),
		Text:    text,
		HTML:    html,
	})
}
