package ticket

import (
	"crypto/rand"
	"fmt"
	"regexp"
	"strings"
)

// codePattern matches ticket codes embedded in free text such as a subject
// line ("Re: Your quote TKT-4F2A91BC"). It is deliberately open-ended on
// length: GenerateCode below is the only source of codes, and the matcher
// must accept whatever it produces. Keep generator and pattern in this
// file so the two formats cannot drift apart.
var codePattern = regexp.MustCompile(`TKT-[0-9A-F]+`)

// GenerateCode creates a new human-facing ticket code. Uppercase hex keeps
// the token unambiguous and safely searchable inside free-text subjects.
func GenerateCode() string {
	b := make([]byte, 4)
	rand.Read(b)
	return fmt.Sprintf("TKT-%X", b)
}

// FindCode extracts the first ticket code from a subject line, or "" when
// the subject carries none. Matching is case-insensitive.
func FindCode(subject string) string {
	return codePattern.FindString(strings.ToUpper(subject))
}
