package guard

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrPolicyNotFound is returned by LoadPolicy when the file does not exist.
var ErrPolicyNotFound = errors.New("policy file not found")

// Policy holds the tables and thresholds used to screen user input.
type Policy struct {
	// MaxInputLength is the maximum accepted input length in characters.
	MaxInputLength int `yaml:"maxInputLength"`

	// RiskyKeywords reject the input when any of them occurs.
	RiskyKeywords []string `yaml:"riskyKeywords"`

	// ProfanityWords are counted; the input is rejected when the summed
	// number of occurrences exceeds ProfanityThreshold.
	ProfanityWords     []string `yaml:"profanityWords"`
	ProfanityThreshold int      `yaml:"profanityThreshold"`

	// InjectionPhrases are prompt-injection attempts that reject the input.
	InjectionPhrases []string `yaml:"injectionPhrases"`

	// VaguePhrases mark short inputs as needing clarification.
	VaguePhrases   []string `yaml:"vaguePhrases"`
	VagueWordLimit int      `yaml:"vagueWordLimit"`

	// SpecialChars runs of at least SpecialRunLength are removed by SanitizeInput.
	SpecialChars     string `yaml:"specialChars"`
	SpecialRunLength int    `yaml:"specialRunLength"`
}

// DefaultPolicy returns the built-in screening tables.
func DefaultPolicy() Policy {
	return Policy{
		MaxInputLength: 4000,
		RiskyKeywords: []string{
			"hack", "exploit", "malware", "virus", "illegal", "harmful", "dangerous",
			"suicide", "self-harm", "violence", "bomb", "weapon", "drug", "abuse",
		},
		ProfanityWords:     []string{"damn", "hell"},
		ProfanityThreshold: 2,
		InjectionPhrases: []string{
			"ignore previous instructions",
			"forget your role",
			"act as if you are",
		},
		VaguePhrases:     []string{"help", "what", "how", "tell me", "explain", "hi", "hello"},
		VagueWordLimit:   3,
		SpecialChars:     "!@#$%^&*()",
		SpecialRunLength: 3,
	}
}

// LoadPolicy reads a YAML policy file. Keys missing from the file keep their
// default values.
func LoadPolicy(path string) (Policy, error) {
	policy := DefaultPolicy()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return policy, fmt.Errorf("%w: %s", ErrPolicyNotFound, path)
		}
		return policy, fmt.Errorf("failed to read policy: %w", err)
	}

	if err := yaml.Unmarshal(data, &policy); err != nil {
		return DefaultPolicy(), fmt.Errorf("failed to parse policy %s: %w", path, err)
	}

	if err := policy.validate(); err != nil {
		return DefaultPolicy(), fmt.Errorf("invalid policy %s: %w", path, err)
	}
	return policy, nil
}

func (p Policy) validate() error {
	if p.MaxInputLength <= 0 {
		return errors.New("maxInputLength must be positive")
	}
	if p.SpecialRunLength <= 0 {
		return errors.New("specialRunLength must be positive")
	}
	return nil
}
