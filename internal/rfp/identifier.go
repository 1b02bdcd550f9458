package rfp

import (
	"regexp"
	"strings"
)

const uuidPattern = `[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}`

// IdentifierMatcher finds an RFP identifier in free text.
type IdentifierMatcher struct {
	Name    string
	Pattern *regexp.Regexp
}

// IdentifierMatchers are tried in order; the first match wins.
// New formats go to the end so existing precedence is kept.
var IdentifierMatchers = []IdentifierMatcher{
	{Name: "labeled-id", Pattern: regexp.MustCompile(`(?i)RFP\s*ID\s*[:\s-]+(` + uuidPattern + `)`)},
	{Name: "labeled", Pattern: regexp.MustCompile(`(?i)RFP[:\s-]+(` + uuidPattern + `)`)},
	{Name: "bare", Pattern: regexp.MustCompile(`(?i)(` + uuidPattern + `)`)},
}

// ExtractIdentifier returns the RFP id referenced by an email subject and body,
// or an empty string when none is present.
func ExtractIdentifier(subject, body string) string {
	id, _ := MatchIdentifier(subject + " " + body)
	return id
}

// MatchIdentifier returns the identifier and the name of the matcher that found it.
// The identifier is lowercased to the form ids are stored in.
func MatchIdentifier(text string) (string, string) {
	for _, m := range IdentifierMatchers {
		if match := m.Pattern.FindStringSubmatch(text); len(match) > 1 {
			return strings.ToLower(match[1]), m.Name
		}
	}
	return "", ""
}
