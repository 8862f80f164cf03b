package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ContactStatusNew is the status of a submission nobody has handled yet.
const ContactStatusNew = "new"

// Contact is a contact-form submission stored in the contactmessages collection.
type Contact struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	FirstName   string             `bson:"firstName" json:"firstName"`
	LastName    string             `bson:"lastName" json:"lastName"`
	Email       string             `bson:"email" json:"email"`
	Company     string             `bson:"company,omitempty" json:"company,omitempty"`
	Country     string             `bson:"country" json:"country"`
	PhoneCode   string             `bson:"phoneCode,omitempty" json:"phoneCode,omitempty"`
	PhoneNumber string             `bson:"phoneNumber,omitempty" json:"phoneNumber,omitempty"`
	Message     string             `bson:"message" json:"message"`
	Attachments []Attachment       `bson:"attachments" json:"attachments"`

	IPAddress string `bson:"ipAddress,omitempty" json:"-"`
	UserAgent string `bson:"userAgent,omitempty" json:"-"`
	Status    string `bson:"status" json:"status"`

	// Set after the fact, only once SMTP accepted the message.
	AdminEmailSent bool `bson:"adminEmailSent" json:"adminEmailSent"`
	AutoReplySent  bool `bson:"autoReplySent" json:"autoReplySent"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// FullName joins first and last name.
func (c *Contact) FullName() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// Phone returns the phone code and number joined, or "" when no number was given.
func (c *Contact) Phone() string {
	if c.PhoneNumber == "" {
		return ""
	}
	if c.PhoneCode == "" {
		return c.PhoneNumber
	}
	return c.PhoneCode + " " + c.PhoneNumber
}

// Attachment describes a file the sender uploaded to object storage before submitting.
type Attachment struct {
	FileName string `bson:"fileName" json:"fileName"`
	FileURL  string `bson:"fileUrl" json:"fileUrl"`
	FileSize int64  `bson:"fileSize" json:"fileSize"`
	MimeType string `bson:"mimeType" json:"mimeType"`
	Key      string `bson:"key,omitempty" json:"key,omitempty"`
}
