package leads

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Field length limits, counted in characters.
const (
	MaxNameLength        = 160
	MaxPurposeLength     = 80
	MaxEmailLength       = 254
	MaxPhoneNumberLength = 40
	MaxMessageLength     = 4000
	MaxPageURLLength     = 2000
)

// emailAtom excludes every character browsers treat as whitespace, not just
// the ASCII set RE2 assigns to \s.
const emailAtom = `[^\s\x0B\p{Z}\x{FEFF}@]+`

var emailPattern = regexp.MustCompile(`^` + emailAtom + `@` + emailAtom + `\.` + emailAtom + `$`)

// Validate checks a payload in form order and stops at the first failure.
// A filled honeypot short-circuits everything else with ErrHoneypot.
func Validate(payload Payload) (*Submission, error) {
	if payload.String("company") != "" {
		return nil, ErrHoneypot
	}

	name := payload.String("name")
	purposeValue := payload.String("purpose")
	email := payload.String("email")
	phone := payload.String("phone_number")
	message := payload.String("message")
	pageURL := payload.String("pageUrl")

	switch {
	case name == "":
		return nil, invalid("name", "Name is required")
	case tooLong(name, MaxNameLength):
		return nil, invalid("name", "Name is too long")
	}

	if purposeValue == "" {
		return nil, invalid("purpose", "Purpose is required")
	}
	purpose, ok := ParsePurpose(purposeValue)
	if !ok {
		return nil, invalid("purpose", "Invalid purpose")
	}
	if tooLong(purposeValue, MaxPurposeLength) {
		return nil, invalid("purpose", "Purpose is too long")
	}

	switch {
	case email == "":
		return nil, invalid("email", "Email is required")
	case tooLong(email, MaxEmailLength):
		return nil, invalid("email", "Email is too long")
	case !emailPattern.MatchString(email):
		return nil, invalid("email", "Invalid email address")
	}

	switch {
	case phone == "":
		return nil, invalid("phone_number", "Phone number is required")
	case tooLong(phone, MaxPhoneNumberLength):
		return nil, invalid("phone_number", "Phone number is too long")
	}

	switch {
	case message == "":
		return nil, invalid("message", "Message is required")
	case tooLong(message, MaxMessageLength):
		return nil, invalid("message", "Message is too long")
	}

	if !payload.Truthy("consent") {
		return nil, invalid("consent", "Consent is required")
	}

	if pageURL != "" && tooLong(pageURL, MaxPageURLLength) {
		return nil, invalid("pageUrl", "Page URL is too long")
	}

	return &Submission{
		ID:          uuid.NewString(),
		Name:        name,
		Purpose:     purpose,
		Email:       email,
		PhoneNumber: phone,
		Message:     message,
		PageURL:     pageURL,
		Consent:     true,
		ReceivedAt:  time.Now().UTC(),
	}, nil
}

// String returns the trimmed value of a string field. Missing and
// non-string values read as empty.
func (p Payload) String(key string) string {
	if value, ok := p[key].(string); ok {
		return strings.TrimSpace(value)
	}
	return ""
}

// Truthy reports whether a checkbox-style field was ticked.
func (p Payload) Truthy(key string) bool {
	switch v := p[key].(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "on", "yes", "1":
			return true
		}
	case float64:
		return v == 1
	}
	return false
}

func tooLong(value string, max int) bool {
	return utf8.RuneCountInString(value) > max
}
