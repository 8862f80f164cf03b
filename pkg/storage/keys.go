package storage

import (
	"fmt"
	"strings"
	"time"

	"altiora-site/pkg/slug"

	"github.com/google/uuid"
)

// AttachmentPrefix is the top-level folder for contact-form uploads.
const AttachmentPrefix = "contact-attachments"

// KeyGenerator derives object keys. Now and Random are swappable for tests.
type KeyGenerator struct {
	Now    func() time.Time
	Random func() string
}

func NewKeyGenerator() *KeyGenerator {
	return &KeyGenerator{
		Now:    time.Now,
		Random: func() string { return strings.ReplaceAll(uuid.NewString(), "-", "")[:8] },
	}
}

// AttachmentKey builds contact-attachments/<sender>/<yyyy>/<mm>/<unix-ms>-<rand>-<file>.<ext>.
func (g *KeyGenerator) AttachmentKey(senderName, fileName string) string {
	now := g.Now().UTC()
	ext := Extension(fileName)
	base := strings.TrimSuffix(fileName, fileExtWithDot(fileName))

	key := fmt.Sprintf("%s/%s/%04d/%02d/%d-%s-%s",
		AttachmentPrefix,
		slug.Make(senderName, 40, "anonymous"),
		now.Year(), int(now.Month()),
		now.UnixMilli(),
		g.Random(),
		slug.Make(base, 60, "file"),
	)
	if ext != "" {
		key += "." + ext
	}
	return key
}

func fileExtWithDot(name string) string {
	if ext := Extension(name); ext != "" {
		return name[len(name)-len(ext)-1:]
	}
	return ""
}
