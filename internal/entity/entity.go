// Package entity defines the canonical PII entity-type tags and the
// «TYPE_NNN» token shape used to represent a redacted value.
package entity

import (
	"fmt"
	"regexp"
	"strconv"
)

// Type is a closed-set PII category tag. Custom scanners may contribute
// additional values outside the required set below; Type is just a string
// so nothing about the vault or token format needs to know about them in
// advance.
type Type string

// Required entity types per the data model.
const (
	Email          Type = "EMAIL"
	Phone          Type = "PHONE"
	CreditCard     Type = "CREDIT_CARD"
	SSN            Type = "SSN"
	IPAddress      Type = "IP_ADDRESS"
	DateOfBirth    Type = "DATE_OF_BIRTH"
	AUTFN          Type = "AU_TFN"
	AUMedicare     Type = "AU_MEDICARE"
	URLWithSecret  Type = "URL_WITH_SECRET"
	APIKey         Type = "API_KEY"
	Person         Type = "PERSON"
	Organization   Type = "ORGANIZATION"
	Location       Type = "LOCATION"
	NRP            Type = "NRP"
	URL            Type = "URL"
	DateTime       Type = "DATE_TIME"
)

// openGuillemet and closeGuillemet delimit a token. They're chosen, per the
// data model, because the contract assumes they never appear in redactable
// content.
const (
	openGuillemet  = "«"
	closeGuillemet = "»"
)

// TokenPattern matches any well-formed token: an opening guillemet, one or
// more uppercase ASCII letters/underscores (the type name), an underscore,
// one or more digits (the counter), and a closing guillemet. It is shared by
// the vault's rehydrate routine and the streaming rehydrator so both agree
// on what counts as "looks like a token."
var TokenPattern = regexp.MustCompile(openGuillemet + `([A-Z_]+)_([0-9]+)` + closeGuillemet)

// FormatToken renders a token for the given type and 1-based counter value.
// The counter is zero-padded to at least 3 digits and grows beyond that
// without truncation once a session allocates more than 999 values of a
// type.
func FormatToken(t Type, n int) string {
	return fmt.Sprintf("%s%s_%03d%s", openGuillemet, string(t), n, closeGuillemet)
}

// ParseToken reports whether s is exactly a well-formed token and, if so,
// its type and counter.
func ParseToken(s string) (Type, int, bool) {
	m := TokenPattern.FindStringSubmatch(s)
	if m == nil || len(m[0]) != len(s) {
		return "", 0, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, false
	}
	return Type(m[1]), n, true
}
