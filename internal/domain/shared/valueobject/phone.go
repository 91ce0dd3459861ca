package valueobject

import (
	"database/sql/driver"
	"fmt"
	"regexp"
	"strings"
)

// kenyanMobilePattern matches Kenyan mobile numbers in local (07.., 01..)
// or international (+2547.., 2541..) form.
var kenyanMobilePattern = regexp.MustCompile(`^(?:\+?254|0)([17]\d{8})$`)

// PhoneNumber is a value object for a Kenyan mobile number.
// It is stored normalized to international form (+254XXXXXXXXX).
type PhoneNumber struct {
	value string
}

// NewPhoneNumber parses and normalizes a Kenyan mobile number.
// Accepts 07XXXXXXXX, 01XXXXXXXX, 2547XXXXXXXX and +2547XXXXXXXX forms.
func NewPhoneNumber(raw string) (PhoneNumber, error) {
	cleaned := strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, strings.TrimSpace(raw))

	match := kenyanMobilePattern.FindStringSubmatch(cleaned)
	if match == nil {
		return PhoneNumber{}, fmt.Errorf("invalid Kenyan mobile number: %q", raw)
	}
	return PhoneNumber{value: "+254" + match[1]}, nil
}

// String returns the normalized international form
func (p PhoneNumber) String() string {
	return p.value
}

// IsZero returns true if the phone number is unset
func (p PhoneNumber) IsZero() bool {
	return p.value == ""
}

// Equals returns true if both numbers normalize to the same value
func (p PhoneNumber) Equals(other PhoneNumber) bool {
	return p.value == other.value
}

// MarshalJSON implements json.Marshaler
func (p PhoneNumber) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.value + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (p *PhoneNumber) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		p.value = ""
		return nil
	}
	parsed, err := NewPhoneNumber(raw)
	if err != nil {
		return err
	}
	p.value = parsed.value
	return nil
}

// Value implements driver.Valuer for database storage
func (p PhoneNumber) Value() (driver.Value, error) {
	return p.value, nil
}

// Scan implements sql.Scanner for database retrieval
func (p *PhoneNumber) Scan(value any) error {
	if value == nil {
		p.value = ""
		return nil
	}
	switch v := value.(type) {
	case string:
		p.value = v
	case []byte:
		p.value = string(v)
	default:
		return fmt.Errorf("cannot scan %T into PhoneNumber", value)
	}
	return nil
}
