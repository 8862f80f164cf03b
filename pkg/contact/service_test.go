package contact

import (
	"context"
	"errors"
	"testing"

	"altiora-site/pkg/domain"
	"altiora-site/pkg/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const cdn = "https://cdn.altiorainfotech.com"

type fakeStore struct {
	saveErr error
	saved   []*domain.Contact
	marks   map[primitive.ObjectID][2]bool
}

func (f *fakeStore) SaveContact(_ context.Context, c *domain.Contact) (primitive.ObjectID, error) {
	if f.saveErr != nil {
		return primitive.NilObjectID, f.saveErr
	}
	f.saved = append(f.saved, c)
	return primitive.NewObjectID(), nil
}

func (f *fakeStore) MarkContactEmails(_ context.Context, id primitive.ObjectID, admin, auto bool) error {
	if f.marks == nil {
		f.marks = map[primitive.ObjectID][2]bool{}
	}
	f.marks[id] = [2]bool{admin, auto}
	return nil
}

type fakeNotifier struct {
	adminErr, replyErr error
	admin, replies     []*domain.Contact
}

func (f *fakeNotifier) NotifyAdmin(_ context.Context, c *domain.Contact) error {
	f.admin = append(f.admin, c)
	return f.adminErr
}

func (f *fakeNotifier) SendAutoReply(_ context.Context, c *domain.Contact) error {
	f.replies = append(f.replies, c)
	return f.replyErr
}

func validSubmission() Submission {
	return Submission{
		FirstName:   "  Priya ",
		LastName:    "Shah",
		Email:       "Priya@Example.COM ",
		Company:     "Acme   Labs",
		Country:     "India",
		PhoneCode:   "+91",
		PhoneNumber: "98765 43210",
		Message:     "We need help building a token launchpad.",
		Attachments: []AttachmentInput{{
			FileName: "brief.pdf",
			FileURL:  cdn + "/contact-attachments/priya-shah/2025/07/1-abcd1234-brief.pdf",
			FileSize: 1024,
			MimeType: "application/pdf",
		}},
	}
}

func newService(store Store, n Notifier) *Service {
	return NewService(Config{Store: store, Notifier: n, AttachmentBaseURL: cdn})
}

func TestSubmit_StoresAndNotifies(t *testing.T) {
	store := &fakeStore{}
	n := &fakeNotifier{}

	res, err := newService(store, n).Submit(context.Background(), validSubmission(), Meta{IP: "203.0.113.7", UserAgent: "test"})
	require.NoError(t, err)

	assert.True(t, res.Stored)
	assert.NotEmpty(t, res.ID)
	assert.True(t, res.AdminEmailSent)
	assert.True(t, res.AutoReplySent)

	require.Len(t, store.saved, 1)
	c := store.saved[0]
	assert.Equal(t, "Priya", c.FirstName)
	assert.Equal(t, "priya@example.com", c.Email)
	assert.Equal(t, "Acme Labs", c.Company)
	assert.Equal(t, "203.0.113.7", c.IPAddress)
	assert.Equal(t, domain.ContactStatusNew, c.Status)
	assert.Equal(t, "contact-attachments/priya-shah/2025/07/1-abcd1234-brief.pdf", c.Attachments[0].Key)

	require.Len(t, store.marks, 1)
	for id, flags := range store.marks {
		assert.Equal(t, res.ID, id.Hex())
		assert.Equal(t, [2]bool{true, true}, flags)
	}
}

func TestSubmit_DatabaseFailureIsNotFatal(t *testing.T) {
	n := &fakeNotifier{}
	res, err := newService(&fakeStore{saveErr: errors.New("no reachable servers")}, n).
		Submit(context.Background(), validSubmission(), Meta{})
	require.NoError(t, err)

	assert.False(t, res.Stored)
	assert.Empty(t, res.ID)
	assert.True(t, res.AdminEmailSent)
	assert.Len(t, n.admin, 1)
}

func TestSubmit_NilStore(t *testing.T) {
	n := &fakeNotifier{}
	res, err := newService(nil, n).Submit(context.Background(), validSubmission(), Meta{})
	require.NoError(t, err)
	assert.False(t, res.Stored)
	assert.Len(t, n.admin, 1)
}

func TestSubmit_EmailFailureIsNotFatal(t *testing.T) {
	store := &fakeStore{}
	n := &fakeNotifier{adminErr: errors.New("smtp down"), replyErr: errors.New("smtp down")}

	res, err := newService(store, n).Submit(context.Background(), validSubmission(), Meta{})
	require.NoError(t, err)
	assert.True(t, res.Stored)
	assert.False(t, res.AdminEmailSent)
	assert.Empty(t, store.marks, "flags stay false when nothing was sent")
}

func TestSubmit_LostWhenStoreAndAdminEmailFail(t *testing.T) {
	n := &fakeNotifier{adminErr: errors.New("smtp down")}
	_, err := newService(&fakeStore{saveErr: errors.New("db down")}, n).
		Submit(context.Background(), validSubmission(), Meta{})
	assert.ErrorIs(t, err, ErrSubmissionLost)
}

func TestSubmit_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Submission)
		field  string
	}{
		{"missing first name", func(s *Submission) { s.FirstName = "   " }, "firstName"},
		{"bad email", func(s *Submission) { s.Email = "not-an-email" }, "email"},
		{"short message", func(s *Submission) { s.Message = "hi" }, "message"},
		{"message of only markup", func(s *Submission) { s.Message = "<b></b><i></i>" }, "message"},
		{"bad phone code", func(s *Submission) { s.PhoneCode = "91" }, "phoneCode"},
		{"oversize attachment", func(s *Submission) { s.Attachments[0].FileSize = 51 << 20 }, "attachments[0].fileSize"},
		{"unsupported type", func(s *Submission) {
			s.Attachments[0].MimeType = "application/x-msdownload"
			s.Attachments[0].FileName = "setup.exe"
		}, "attachments[0]"},
		{"foreign url", func(s *Submission) { s.Attachments[0].FileURL = "https://evil.example.com/brief.pdf" }, "attachments[0].fileUrl"},
		{"too many attachments", func(s *Submission) {
			for len(s.Attachments) < 6 {
				s.Attachments = append(s.Attachments, s.Attachments[0])
			}
		}, "attachments"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := validSubmission()
			tt.modify(&sub)

			store := &fakeStore{}
			n := &fakeNotifier{}
			_, err := newService(store, n).Submit(context.Background(), sub, Meta{})

			var verr *validation.Error
			require.ErrorAs(t, err, &verr)
			fields := make([]string, 0, len(verr.Fields))
			for _, f := range verr.Fields {
				fields = append(fields, f.Field)
			}
			assert.Contains(t, fields, tt.field)
			assert.Empty(t, store.saved)
			assert.Empty(t, n.admin)
		})
	}
}

func TestSanitize(t *testing.T) {
	got := Sanitize(Submission{
		FirstName: "<script>alert(1)</script>Ann\x00",
		Email:     "  ANN@Example.com",
		Company:   "Big\t\tCo  <Ltd>",
		Message:   "Line one\r\nLine <b>two</b>\x07 > done",
	})

	assert.Equal(t, "alert(1)Ann", got.FirstName)
	assert.Equal(t, "ann@example.com", got.Email)
	assert.Equal(t, "Big Co", got.Company)
	assert.Equal(t, "Line one\nLine two  done", got.Message)
}
