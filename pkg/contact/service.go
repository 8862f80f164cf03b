// Package contact turns a contact-form submission into a stored document and
// the two notification emails.
package contact

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"altiora-site/pkg/domain"
	"altiora-site/pkg/logging"
	"altiora-site/pkg/metrics"
	"altiora-site/pkg/storage"
	"altiora-site/pkg/validation"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Submission is the JSON body of POST /api/contact.
type Submission struct {
	FirstName   string            `json:"firstName" validate:"required,min=1,max=50"`
	LastName    string            `json:"lastName" validate:"required,min=1,max=50"`
	Email       string            `json:"email" validate:"required,email,max=100"`
	Company     string            `json:"company" validate:"max=100"`
	Country     string            `json:"country" validate:"required,max=60"`
	PhoneCode   string            `json:"phoneCode" validate:"omitempty,phonecode"`
	PhoneNumber string            `json:"phoneNumber" validate:"omitempty,phonenumber"`
	Message     string            `json:"message" validate:"required,min=10,max=5000"`
	Attachments []AttachmentInput `json:"attachments" validate:"max=5,dive"`
}

// AttachmentInput is a file the browser already uploaded to R2.
type AttachmentInput struct {
	FileName string `json:"fileName" validate:"required,max=255"`
	FileURL  string `json:"fileUrl" validate:"required,url"`
	FileSize int64  `json:"fileSize" validate:"gt=0,lte=52428800"`
	MimeType string `json:"mimeType" validate:"required"`
}

// Meta carries request details stored with the submission.
type Meta struct {
	IP        string
	UserAgent string
}

// Result reports what happened to an accepted submission.
type Result struct {
	ID             string
	Stored         bool
	AdminEmailSent bool
	AutoReplySent  bool
}

// ErrSubmissionLost means neither the database nor the admin inbox received
// the submission.
var ErrSubmissionLost = errors.New("submission could not be stored or delivered")

// Store persists submissions.
type Store interface {
	SaveContact(ctx context.Context, c *domain.Contact) (primitive.ObjectID, error)
	MarkContactEmails(ctx context.Context, id primitive.ObjectID, adminSent, autoReplySent bool) error
}

// Notifier sends the submission emails.
type Notifier interface {
	NotifyAdmin(ctx context.Context, c *domain.Contact) error
	SendAutoReply(ctx context.Context, c *domain.Contact) error
}

// Config configures a Service.
type Config struct {
	// Store may be nil when the database is unavailable.
	Store    Store
	Notifier Notifier
	// AttachmentBaseURL is the public R2 URL every attachment must live under.
	AttachmentBaseURL string
	EmailTimeout      time.Duration
}

// Service handles contact submissions.
type Service struct {
	store        Store
	notifier     Notifier
	attachBase   string
	emailTimeout time.Duration
	now          func() time.Time
}

// NewService creates a contact service.
func NewService(cfg Config) *Service {
	if cfg.EmailTimeout <= 0 {
		cfg.EmailTimeout = 20 * time.Second
	}
	return &Service{
		store:        cfg.Store,
		notifier:     cfg.Notifier,
		attachBase:   cfg.AttachmentBaseURL,
		emailTimeout: cfg.EmailTimeout,
		now:          time.Now,
	}
}

// Validate sanitizes sub and checks it. Failures are *validation.Error.
func (s *Service) Validate(sub Submission) (Submission, error) {
	clean := Sanitize(sub)
	if verr := validation.ValidateStruct(&clean); verr != nil {
		return clean, verr
	}
	if verr := s.checkAttachments(clean.Attachments); verr != nil {
		return clean, verr
	}
	return clean, nil
}

func (s *Service) checkAttachments(atts []AttachmentInput) *validation.Error {
	var fields []validation.FieldError
	for i, a := range atts {
		prefix := fmt.Sprintf("attachments[%d]", i)
		if !storage.IsUnderBase(s.attachBase, a.FileURL) {
			fields = append(fields, validation.FieldError{
				Field:   prefix + ".fileUrl",
				Tag:     "bucket",
				Message: prefix + ".fileUrl must point to an uploaded file",
			})
		}
		if err := storage.CheckUpload(a.FileName, a.MimeType, a.FileSize); err != nil {
			fields = append(fields, validation.FieldError{
				Field:   prefix,
				Tag:     "file",
				Message: fmt.Sprintf("%s: %s", prefix, err.Error()),
			})
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return &validation.Error{Fields: fields}
}

// Submit validates, stores and announces a submission. A failed database
// write is tolerated as long as the admin notification went out; when both
// fail it returns ErrSubmissionLost.
func (s *Service) Submit(ctx context.Context, sub Submission, meta Meta) (*Result, error) {
	log := logging.Ctx(ctx)

	clean, err := s.Validate(sub)
	if err != nil {
		metrics.ContactSubmissions.WithLabelValues("invalid").Inc()
		return nil, err
	}

	c := toContact(clean, meta, s.attachBase, s.now().UTC())
	res := &Result{}

	if s.store == nil {
		log.Error().Msg("contact store unavailable, submission not persisted")
	} else if id, err := s.store.SaveContact(ctx, c); err != nil {
		log.Error().Err(err).Str("email", c.Email).Msg("failed to persist contact submission")
	} else {
		c.ID = id
		res.Stored = true
		res.ID = id.Hex()
	}

	emailCtx, cancel := context.WithTimeout(ctx, s.emailTimeout)
	defer cancel()
	res.AdminEmailSent = s.notifier.NotifyAdmin(emailCtx, c) == nil
	res.AutoReplySent = s.notifier.SendAutoReply(emailCtx, c) == nil

	if !res.Stored && !res.AdminEmailSent {
		metrics.ContactSubmissions.WithLabelValues("lost").Inc()
		log.Error().Str("email", c.Email).Msg("contact submission lost: not stored and admin not notified")
		return res, ErrSubmissionLost
	}

	if res.Stored && (res.AdminEmailSent || res.AutoReplySent) {
		markCtx, cancelMark := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancelMark()
		if err := s.store.MarkContactEmails(markCtx, c.ID, res.AdminEmailSent, res.AutoReplySent); err != nil {
			log.Warn().Err(err).Str("id", res.ID).Msg("failed to record email flags")
		}
	}

	metrics.ContactSubmissions.WithLabelValues("accepted").Inc()
	log.Info().
		Str("id", res.ID).
		Bool("stored", res.Stored).
		Bool("admin_email", res.AdminEmailSent).
		Bool("auto_reply", res.AutoReplySent).
		Int("attachments", len(c.Attachments)).
		Msg("contact submission accepted")
	return res, nil
}

func toContact(sub Submission, meta Meta, attachBase string, now time.Time) *domain.Contact {
	c := &domain.Contact{
		FirstName:   sub.FirstName,
		LastName:    sub.LastName,
		Email:       sub.Email,
		Company:     sub.Company,
		Country:     sub.Country,
		PhoneCode:   sub.PhoneCode,
		PhoneNumber: sub.PhoneNumber,
		Message:     sub.Message,
		Attachments: make([]domain.Attachment, 0, len(sub.Attachments)),
		IPAddress:   meta.IP,
		UserAgent:   meta.UserAgent,
		Status:      domain.ContactStatusNew,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, a := range sub.Attachments {
		c.Attachments = append(c.Attachments, domain.Attachment{
			FileName: a.FileName,
			FileURL:  a.FileURL,
			FileSize: a.FileSize,
			MimeType: a.MimeType,
			Key:      strings.TrimPrefix(a.FileURL, strings.TrimRight(attachBase, "/")+"/"),
		})
	}
	return c
}
