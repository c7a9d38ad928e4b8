// Package validation holds payload rules for moderation and clan profile input.
package validation

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	JustificationMinLen = 10
	JustificationMaxLen = 300
	ReportReasonMinLen  = 5
	ReportReasonMaxLen  = 1000
	StatementMinLen     = 10
	StatementMaxLen     = 2000
	DescriptionMaxLen   = 2000
)

var clanNameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 _-]{1,30}[A-Za-z0-9]$`)

var discordInviteRegex = regexp.MustCompile(`^https://(discord\.gg|discord\.com/invite)/[A-Za-z0-9-]{2,32}$`)

var reservedClanNames = map[string]struct{}{
	"admin":   {},
	"api":     {},
	"clans":   {},
	"staff":   {},
	"swagger": {},
	"metrics": {},
	"system":  {},
}

func lengthBetween(field, value string, minLen, maxLen int) error {
	n := utf8.RuneCountInString(strings.TrimSpace(value))
	if n < minLen || n > maxLen {
		return fmt.Errorf("%s must be between %d and %d characters", field, minLen, maxLen)
	}
	return nil
}

// ValidateJustification checks the reason recorded on a ban.
func ValidateJustification(justification string) error {
	return lengthBetween("justification", justification, JustificationMinLen, JustificationMaxLen)
}

// ValidateBanTerms checks that a temporary ban names a future appeal date.
// Permanent bans must not carry one.
func ValidateBanTerms(permanent bool, allowAppealAt *time.Time, now time.Time) error {
	if permanent {
		if allowAppealAt != nil {
			return errors.New("permanent bans cannot be appealed")
		}
		return nil
	}
	if allowAppealAt == nil {
		return errors.New("allow_appeal_at is required for non-permanent bans")
	}
	if !allowAppealAt.After(now) {
		return errors.New("allow_appeal_at must be in the future")
	}
	return nil
}

// ValidateReportReason checks the free-text reason of a report.
func ValidateReportReason(reason string) error {
	return lengthBetween("reason", reason, ReportReasonMinLen, ReportReasonMaxLen)
}

// ValidateAppealStatement checks the statement submitted with a ban appeal.
func ValidateAppealStatement(statement string) error {
	return lengthBetween("statement", statement, StatementMinLen, StatementMaxLen)
}

// ValidateClanName validates clan name format and reserved names.
func ValidateClanName(name string) error {
	if !clanNameRegex.MatchString(name) {
		return errors.New("name must be 3-32 characters of letters, numbers, spaces, hyphens or underscores, starting and ending with a letter or number")
	}
	if _, exists := reservedClanNames[strings.ToLower(name)]; exists {
		return errors.New("name is reserved")
	}
	return nil
}

// ValidateDescription bounds the clan description. Empty is allowed.
func ValidateDescription(description string) error {
	if utf8.RuneCountInString(description) > DescriptionMaxLen {
		return fmt.Errorf("description must be at most %d characters", DescriptionMaxLen)
	}
	return nil
}

// ValidateDiscordInviteLink accepts discord.gg and discord.com/invite links. Empty clears the link.
func ValidateDiscordInviteLink(link string) error {
	if link == "" {
		return nil
	}
	if !discordInviteRegex.MatchString(link) {
		return errors.New("discord invite link must look like https://discord.gg/<code>")
	}
	return nil
}

// ValidateBannerURL accepts absolute https URLs. Empty clears the banner.
func ValidateBannerURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return errors.New("banner url must be an absolute https URL")
	}
	return nil
}
