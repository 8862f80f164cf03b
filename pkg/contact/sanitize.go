package contact

import (
	"regexp"
	"strings"
	"unicode"
)

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// cleanLine sanitizes a single-line field: tags and control characters are
// removed and runs of whitespace become one space.
func cleanLine(s string) string {
	return strings.Join(strings.Fields(stripMarkup(s)), " ")
}

// cleanText sanitizes the free-text message. Newlines and tabs survive.
func cleanText(s string) string {
	s = stripMarkup(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.TrimSpace(s)
}

func cleanEmail(s string) string {
	return strings.ToLower(cleanLine(s))
}

func stripMarkup(s string) string {
	s = tagPattern.ReplaceAllString(s, "")
	return strings.Map(func(r rune) rune {
		switch {
		case r == '<' || r == '>':
			return -1
		case r == '\n' || r == '\t':
			return r
		case r == '\r':
			return r
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, s)
}

// Sanitize returns a cleaned copy of sub.
func Sanitize(sub Submission) Submission {
	out := Submission{
		FirstName:   cleanLine(sub.FirstName),
		LastName:    cleanLine(sub.LastName),
		Email:       cleanEmail(sub.Email),
		Company:     cleanLine(sub.Company),
		Country:     cleanLine(sub.Country),
		PhoneCode:   cleanLine(sub.PhoneCode),
		PhoneNumber: cleanLine(sub.PhoneNumber),
		Message:     cleanText(sub.Message),
	}
	if len(sub.Attachments) > 0 {
		out.Attachments = make([]AttachmentInput, len(sub.Attachments))
		for i, a := range sub.Attachments {
			out.Attachments[i] = AttachmentInput{
				FileName: cleanLine(a.FileName),
				FileURL:  strings.TrimSpace(a.FileURL),
				FileSize: a.FileSize,
				MimeType: strings.ToLower(strings.TrimSpace(a.MimeType)),
			}
		}
	}
	return out
}
