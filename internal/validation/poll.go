package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// NormalizePollOptions trims every option and checks that at least two remain,
// that none is blank and that no two are equal.
func NormalizePollOptions(options []string) ([]string, error) {
	if len(options) > MaxPollOptions {
		return nil, fmt.Errorf("a poll takes at most %d options", MaxPollOptions)
	}
	out := make([]string, 0, len(options))
	seen := make(map[string]struct{}, len(options))
	for _, raw := range options {
		opt, err := NormalizePollOption(raw)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[opt]; dup {
			return nil, fmt.Errorf("duplicate poll option %q", opt)
		}
		seen[opt] = struct{}{}
		out = append(out, opt)
	}
	if len(out) < MinPollOptions {
		return nil, fmt.Errorf("a poll needs at least %d options", MinPollOptions)
	}
	return out, nil
}

// NormalizePollOption trims one option and checks its length.
func NormalizePollOption(raw string) (string, error) {
	opt := strings.TrimSpace(raw)
	if opt == "" {
		return "", fmt.Errorf("poll options cannot be blank")
	}
	if utf8.RuneCountInString(opt) > MaxPollOptionLen {
		return "", fmt.Errorf("poll option too long (max %d characters)", MaxPollOptionLen)
	}
	return opt, nil
}

// ValidatePollQuestion checks the optional poll question.
func ValidatePollQuestion(q string) error {
	if utf8.RuneCountInString(q) > MaxPollQuestion {
		return fmt.Errorf("poll question too long (max %d characters)", MaxPollQuestion)
	}
	return nil
}
