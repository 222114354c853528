package internal

import (
	"fmt"
	"regexp"
	"strings"
)

// Classifier suggests a label for a free-text transaction description.
type Classifier interface {
	Classify(description string) (label string, ok bool)
}

// KnownService maps a description pattern to a display label, e.g. "NETFLIX" -> "Netflix".
type KnownService struct {
	Pattern string `yaml:"pattern"`
	Label   string `yaml:"label"`

	regex *regexp.Regexp `yaml:"-"`
}

// DefaultKnownServices contains patterns for common subscription services.
// These are included unless disabled via use_default_known: false.
var DefaultKnownServices = []KnownService{
	{Pattern: `NETFLIX`, Label: "Netflix"},
	{Pattern: `DISNEY\s*(\+|PLUS)`, Label: "Disney+"},
	{Pattern: `HBO\s*MAX`, Label: "HBO Max"},
	{Pattern: `PRIME\s*VIDEO|AMAZON\s*PRIME`, Label: "Amazon Prime"},
	{Pattern: `YOUTUBE\s*(MUSIC|PREMIUM)`, Label: "YouTube Premium"},
	{Pattern: `SPOTIFY`, Label: "Spotify"},
	{Pattern: `APPLE\s*(MUSIC|TV|ONE)|ICLOUD`, Label: "Apple"},
	{Pattern: `AUDIBLE`, Label: "Audible"},
	{Pattern: `XBOX\s*(GAME\s*PASS|LIVE)`, Label: "Xbox Game Pass"},
	{Pattern: `PLAYSTATION\s*(PLUS|NOW)|PS\s*PLUS`, Label: "PlayStation Plus"},
	{Pattern: `GOOGLE\s*(ONE|WORKSPACE)`, Label: "Google One"},
	{Pattern: `DROPBOX`, Label: "Dropbox"},
	{Pattern: `MICROSOFT\s*365|OFFICE\s*365`, Label: "Microsoft 365"},
	{Pattern: `ADOBE`, Label: "Adobe"},
	{Pattern: `CANVA`, Label: "Canva"},
	{Pattern: `NOTION`, Label: "Notion"},
	{Pattern: `1PASSWORD|BITWARDEN|LASTPASS`, Label: "Password manager"},
	{Pattern: `NORDVPN|EXPRESSVPN|SURFSHARK|PROTONVPN`, Label: "VPN"},
	{Pattern: `CHATGPT|OPENAI`, Label: "ChatGPT"},
	{Pattern: `GITHUB`, Label: "GitHub"},
	{Pattern: `HEADSPACE|CALM`, Label: "Meditation app"},
	{Pattern: `GYM|FITNESS`, Label: "Gym membership"},
}

// KnownServiceClassifier matches descriptions against an ordered list of known services.
// The first matching pattern wins.
type KnownServiceClassifier struct {
	services []KnownService
}

// NewKnownServiceClassifier compiles the patterns case-insensitively.
func NewKnownServiceClassifier(services []KnownService) (*KnownServiceClassifier, error) {
	c := &KnownServiceClassifier{services: make([]KnownService, len(services))}
	copy(c.services, services)
	for i := range c.services {
		re, err := regexp.Compile("(?i)" + c.services[i].Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid known service pattern %q: %w", c.services[i].Pattern, err)
		}
		c.services[i].regex = re
	}
	return c, nil
}

func (c *KnownServiceClassifier) Classify(description string) (string, bool) {
	if c == nil || strings.TrimSpace(description) == "" {
		return "", false
	}
	for _, s := range c.services {
		if s.regex != nil && s.regex.MatchString(description) {
			if s.Label == "" {
				return s.Pattern, true
			}
			return s.Label, true
		}
	}
	return "", false
}

func normalizeLabel(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
