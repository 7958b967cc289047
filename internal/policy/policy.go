// Package policy loads the process-wide password policy document and
// evaluates candidate passwords against it. The policy is read once at
// startup and treated as immutable afterwards.
package policy

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Rule identifies a single password rule. Rules are evaluated in a fixed
// precedence order and validation reports only the first violated rule.
type Rule string

const (
	RuleMinLength    Rule = "min_length"
	RuleUppercase    Rule = "uppercase"
	RuleLowercase    Rule = "lowercase"
	RuleNumbers      Rule = "numbers"
	RuleSpecialChars Rule = "special_chars"
	RuleBlocklist    Rule = "blocklist"
)

// Policy is the static password policy document.
type Policy struct {
	MinLength           int      `json:"minLength"`
	RequireUppercase    bool     `json:"requireUppercase"`
	RequireLowercase    bool     `json:"requireLowercase"`
	RequireNumbers      bool     `json:"requireNumbers"`
	RequireSpecialChars bool     `json:"requireSpecialChars"`
	DictionaryBlocklist []string `json:"dictionaryBlocklist"`
	MaxLoginAttempts    int      `json:"maxLoginAttempts"`
	HistoryCount        int      `json:"historyCount"`
}

// Violation reports the first rule a password failed. It implements error
// so services can return it directly; the message is safe to display.
type Violation struct {
	Rule    Rule
	Message string
}

func (v *Violation) Error() string {
	return v.Message
}

// LoadFile reads and parses the policy document at path.
func LoadFile(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy file: %w", err)
	}

	p := &Policy{}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parsing policy file: %w", err)
	}

	if p.MinLength < 1 {
		return nil, fmt.Errorf("policy minLength must be positive, got %d", p.MinLength)
	}
	if p.MaxLoginAttempts < 1 {
		return nil, fmt.Errorf("policy maxLoginAttempts must be positive, got %d", p.MaxLoginAttempts)
	}
	if p.HistoryCount < 1 {
		return nil, fmt.Errorf("policy historyCount must be positive, got %d", p.HistoryCount)
	}

	return p, nil
}

// Validate checks password against the policy. Rules run in precedence
// order: minimum length, uppercase, lowercase, digit, special character,
// blocklist substring. The first violated rule is returned; nil means
// the password satisfies the policy. No side effects.
func (p *Policy) Validate(password string) *Violation {
	if utf8.RuneCountInString(password) < p.MinLength {
		return &Violation{
			Rule:    RuleMinLength,
			Message: fmt.Sprintf("Password must be at least %d characters long.", p.MinLength),
		}
	}
	if p.RequireUppercase && !containsFunc(password, unicode.IsUpper) {
		return &Violation{
			Rule:    RuleUppercase,
			Message: "Password must contain at least one uppercase letter.",
		}
	}
	if p.RequireLowercase && !containsFunc(password, unicode.IsLower) {
		return &Violation{
			Rule:    RuleLowercase,
			Message: "Password must contain at least one lowercase letter.",
		}
	}
	if p.RequireNumbers && !containsFunc(password, unicode.IsDigit) {
		return &Violation{
			Rule:    RuleNumbers,
			Message: "Password must contain at least one number.",
		}
	}
	if p.RequireSpecialChars && !containsFunc(password, isSpecial) {
		return &Violation{
			Rule:    RuleSpecialChars,
			Message: "Password must contain at least one special character.",
		}
	}
	lowered := strings.ToLower(password)
	for _, blocked := range p.DictionaryBlocklist {
		if blocked == "" {
			continue
		}
		if strings.Contains(lowered, strings.ToLower(blocked)) {
			return &Violation{
				Rule:    RuleBlocklist,
				Message: "Password contains a blocked word or phrase.",
			}
		}
	}
	return nil
}

func isSpecial(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func containsFunc(s string, fn func(rune) bool) bool {
	for _, r := range s {
		if fn(r) {
			return true
		}
	}
	return false
}
