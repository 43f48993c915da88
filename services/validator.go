package services

import (
	"regexp"
	"strings"
	"unicode"

	"college-chatbot-platform/models"
)

// Gibberish and format validation
var gibberishPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(asdf|qwer|zxcv|1234|0000)+$`),
	regexp.MustCompile(`^[0-9]+$`), // only digits
}

// Safety: abuse / harassment
var abusePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(fuck|bitch|madarchod|chutiya)\b`),
	regexp.MustCompile(`(?i)\b(asshole|bastard|damn|crap)\b`),
	regexp.MustCompile(`(?i)\b(idiot|moron|stupid|retard)\b`),
}

// Safety: self-harm / violence
var selfHarmPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(kill|suicide|hang|cut wrist|slit|overdose|jump off)\b`),
	regexp.MustCompile(`(?i)\b(hurt myself|harm myself|end life|die|die soon)\b`),
}

// Safety: prompt injection
var promptInjectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bignore previous|disregard|forget|system prompt\b`),
	regexp.MustCompile(`(?i)\brole-play as|pretend|you are now|you are a\b`),
	regexp.MustCompile(`(?i)\bfrom now on|henceforth|starting now\b`),
	regexp.MustCompile(`(?i)\b(follow these instructions|new instructions|updated rules)\b`),
	// SQL injection tokens
	regexp.MustCompile(`(?i)\b(DROP|DELETE|INSERT|UPDATE|SELECT|UNION|WHERE 1=1)\b`),
	// Code injection tokens
	regexp.MustCompile(`(?i)\b(eval|exec|import|__import__|compile|globals|locals)\b`),
}

// Safety: sensitive data harvesting
var sensitiveExtractionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(all student names|list of password|admin account|secret|api key|access token)\b`),
	regexp.MustCompile(`(?i)\b(all emails|all phone number|database dump|backup)\b`),
}

const crisisMessage = "**Crisis Support**\n\n" +
	"If you're having thoughts of self-harm, please reach out:\n" +
	"- National Suicide Prevention Lifeline: 988 (US)\n" +
	"- International Association for Suicide Prevention: https://www.iasp.info/resources/Crisis_Centres/\n" +
	"- Your university counseling center or campus healthcare\n" +
	"\nI'm here to help with academic questions, not crisis support."

const promptInjectionMessage = "**Invalid Query**\n\n" +
	"Your query appears to contain instructions to modify my behavior. " +
	"I can only answer questions about college administrative support.\n" +
	"Please ask a direct question."

const sensitiveExtractionMessage = "**Access Denied**\n\n" +
	"I cannot provide sensitive student or administrative data. " +
	"For official information, please contact the registrar or student services directly."

// Validator rejects malformed or unsafe input before it reaches any
// answer strategy. It is a pure function over the query string; no I/O.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// Validate runs the safety and format checks in severity order. The
// first failing check wins; self-harm outranks everything after the
// empty check so the crisis message is never masked by another match.
func (v *Validator) Validate(query string) models.ValidationResult {
	q := strings.TrimSpace(query)

	if q == "" {
		return invalid("empty", "Query is empty. Please type your question.")
	}

	if matchesAny(selfHarmPatterns, q) {
		return invalid("self_harm", crisisMessage)
	}

	if matchesAny(abusePatterns, q) {
		return invalid("abusive", "Please use respectful language. This assistant is here to help you.")
	}

	if matchesAny(promptInjectionPatterns, q) {
		return invalid("prompt_injection", promptInjectionMessage)
	}

	if matchesAny(sensitiveExtractionPatterns, q) {
		return invalid("sensitive_extraction", sensitiveExtractionMessage)
	}

	if isGibberish(q) {
		return invalid("gibberish", "Your message looks invalid. Please ask a proper question.")
	}

	if len(strings.Fields(q)) < 2 {
		return invalid("too_short", "Please provide more detail. Example: 'What is the hostel fee?'")
	}

	return models.ValidationResult{Valid: true, Reason: "valid"}
}

func invalid(reason, message string) models.ValidationResult {
	return models.ValidationResult{Valid: false, Reason: reason, Message: message}
}

func matchesAny(patterns []*regexp.Regexp, q string) bool {
	for _, pat := range patterns {
		if pat.MatchString(q) {
			return true
		}
	}
	return false
}

func isGibberish(q string) bool {
	compact := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(q)), " ", "")

	if len(compact) <= 2 {
		return true
	}

	// Too many special characters
	special := 0
	for _, ch := range q {
		if !unicode.IsLetter(ch) && !unicode.IsDigit(ch) {
			special++
		}
	}
	if float64(special)/float64(len([]rune(q))) > 0.5 {
		return true
	}

	for _, pat := range gibberishPatterns {
		if pat.MatchString(compact) {
			return true
		}
	}

	return isRepeatedChunk(compact)
}

// isRepeatedChunk reports whether s is the same 4-character block
// repeated to fill the whole string ("abcdabcdabcd").
func isRepeatedChunk(s string) bool {
	runes := []rune(s)
	if len(runes) < 8 || len(runes)%4 != 0 {
		return false
	}
	head := string(runes[:4])
	for i := 4; i < len(runes); i += 4 {
		if string(runes[i:i+4]) != head {
			return false
		}
	}
	return true
}
