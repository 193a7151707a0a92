package database

import "strings"

// The wire form frames blocks with '|', transactions with ';' and fields
// with ','. Any of those bytes inside a string field would make the
// encoding ambiguous, so fields are percent-escaped before framing. The
// escape set must keep the encoding injective: '%' itself is escaped first.

var fieldEscaper = strings.NewReplacer(
	"%", "%25",
	"|", "%7C",
	",", "%2C",
	";", "%3B",
)

var fieldUnescaper = strings.NewReplacer(
	"%7C", "|",
	"%2C", ",",
	"%3B", ";",
	"%25", "%",
)

// escapeField makes a string field safe to embed in the wire form.
func escapeField(s string) string {
	return fieldEscaper.Replace(s)
}

// unescapeField reverses escapeField.
func unescapeField(s string) string {
	return fieldUnescaper.Replace(s)
}
