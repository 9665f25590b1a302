// sanitizer.go - Redacts personal data from text before it leaves the process

package processor

import (
	"regexp"
	"strings"
)

// MaxTextLength bounds every sanitized description sent to a provider.
const MaxTextLength = 200

// Placeholder tokens. None of them can be matched again by a redaction
// pattern or by ValidatePrompt.
const (
	EmailPlaceholder   = "[EMAIL]"
	PhonePlaceholder   = "[PHONE]"
	IBANPlaceholder    = "[REDACTED_IBAN]"
	AddressPlaceholder = "[ADDRESS]"
)

var (
	emailRe = regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`)

	// Country code, check digits, then the BBAN printed plain or in groups of four
	ibanRe = regexp.MustCompile(`\b[A-Z]{2}\d{2}(?:[ ]?[A-Z0-9]{4}){2,7}(?:[ ]?[A-Z0-9]{1,3})?\b`)

	// International (+32 / 0033), Belgian and French national numbers, NANP
	phoneRe = regexp.MustCompile(`(?:(?:\+|\b00)\d{1,3}[\s.\-]?(?:\(0\))?[\s.\-]?\d{1,4}(?:[\s.\-]?\d{2,4}){2,4}` +
		`|\b0\d{1,3}(?:[\s.\-]?\d{2,3}){3,4}` +
		`|\(?\b\d{3}\)?[\s.\-]\d{3}[\s.\-]\d{4})\b`)

	addressRe = regexp.MustCompile(`(?i)\b\d{1,4}\s?(?:bis|ter|[a-z])?,?\s+(?:rue|avenue|av\.|boulevard|bd|chaussée|chaussee|place|impasse|allée|allee|chemin|quai|square|route)\s+(?:(?:de|du|des|la|le|l')\s*)*[\pL'\-]+(?:\s+[\pL'\-]+){0,2}` +
		`|\b(?:rue|avenue|boulevard|chaussée|chaussee|place|impasse|quai|square)\s+(?:(?:de|du|des|la|le|l')\s*)*[\pL'\-]+(?:\s+[\pL'\-]+){0,2},?\s+\d{1,4}\b` +
		`|\b[\pL\-]+(?:straat|laan|steenweg|plein|lei|dreef)\s+\d{1,4}[a-z]?\b` +
		`|\b\d{1,5}\s+(?:[A-Z][a-z]+\s+){1,3}(?:Street|St\.|Avenue|Ave\.|Road|Rd\.|Lane|Boulevard|Drive)\b`)
)

const minPhoneDigits = 9

// SanitizeText redacts e-mail addresses, IBANs, phone numbers and street
// addresses, then truncates to MaxTextLength runes.
func SanitizeText(s string) string {
	return SanitizeTextLimit(s, MaxTextLength)
}

// SanitizeTextLimit is SanitizeText with a custom length bound. A bound of
// zero or less disables truncation.
func SanitizeTextLimit(s string, limit int) string {
	if s == "" {
		return s
	}

	out := truncateRunes(redact(s), limit)
	// Truncation can cut a long digit run down to something that now looks
	// like a phone number, so redact again until the output is stable.
	for i := 0; i < maxRedactPasses; i++ {
		again := truncateRunes(redact(out), limit)
		if again == out {
			break
		}
		out = again
	}
	return out
}

const maxRedactPasses = 3

func redact(s string) string {
	out := emailRe.ReplaceAllString(s, EmailPlaceholder)
	// IBANs contain long digit runs the phone patterns would eat first
	out = ibanRe.ReplaceAllStringFunc(out, redactIBAN)
	out = phoneRe.ReplaceAllStringFunc(out, redactPhone)
	return addressRe.ReplaceAllString(out, AddressPlaceholder)
}

func redactIBAN(match string) string {
	// Product codes are mostly letters, account numbers mostly digits
	digits := 0
	for _, r := range match[4:] {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if digits < 6 {
		return match
	}
	return IBANPlaceholder
}

func redactPhone(match string) string {
	digits := 0
	for _, r := range match {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	// Dates and short amounts such as 12.03.2024 have fewer digits
	if digits < minPhoneDigits {
		return match
	}
	return PhonePlaceholder
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return strings.TrimSpace(string(runes[:limit]))
}

var forbiddenPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\buser[\s_\-]?id\b`),
	regexp.MustCompile(`(?i)\be-?mail\s*:`),
	regexp.MustCompile(`(?i)\biban\b`),
	regexp.MustCompile(`(?i)\baccount\b`),
	regexp.MustCompile(`(?i)\bpassword\b`),
	emailRe,
	regexp.MustCompile(`(?i)\b[a-z]{2}\d{2}(?:[ ]?\d{4}){3,7}\b`),
	regexp.MustCompile(`(?i)\b[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\b`),
}

// ValidatePrompt reports whether an assembled prompt may be dispatched.
// A prompt carrying identifier field names, account numbers or raw
// addresses is rejected.
func ValidatePrompt(prompt string) bool {
	for _, re := range forbiddenPatterns {
		if re.MatchString(prompt) {
			return false
		}
	}
	return true
}
