package leads

import "time"

// Purpose is the reason a visitor gives for getting in touch.
type Purpose string

const (
	PurposeResidential   Purpose = "Residential project"
	PurposeCommercial    Purpose = "Commercial project"
	PurposeCollaboration Purpose = "Collaboration"
	PurposeOther         Purpose = "Other inquiry"
)

// purposes is the single list of accepted purposes, in form order.
var purposes = []Purpose{
	PurposeResidential,
	PurposeCommercial,
	PurposeCollaboration,
	PurposeOther,
}

// contentStoreLabels maps each purpose to the select value of the leads collection.
var contentStoreLabels = map[Purpose]string{
	PurposeResidential:   "Residential",
	PurposeCommercial:    "Commercial",
	PurposeCollaboration: "Collaboration",
	PurposeOther:         "Other inquiry",
}

// ParsePurpose matches a submitted value against the accepted purposes.
func ParsePurpose(value string) (Purpose, bool) {
	for _, p := range purposes {
		if string(p) == value {
			return p, true
		}
	}
	return "", false
}

// Label returns the value stored in the content store for this purpose.
func (p Purpose) Label() string {
	if label, ok := contentStoreLabels[p]; ok {
		return label
	}
	return string(p)
}

func (p Purpose) String() string {
	return string(p)
}

// Payload is the untrusted JSON object posted by the contact form.
type Payload map[string]any

// Submission is a validated contact-form lead.
type Submission struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Purpose     Purpose   `json:"purpose"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phone_number"`
	Message     string    `json:"message"`
	PageURL     string    `json:"page_url,omitempty"`
	Consent     bool      `json:"consent"`
	ReceivedAt  time.Time `json:"received_at"`
}

// Record maps the submission onto the leads collection's field names.
func (s *Submission) Record() map[string]string {
	record := map[string]string{
		"name":         s.Name,
		"purpose":      s.Purpose.Label(),
		"email":        s.Email,
		"phone_number": s.PhoneNumber,
		"message":      s.Message,
	}
	if s.PageURL != "" {
		record["page_url"] = s.PageURL
	}
	return record
}
