package quiz

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// Set is an ordered list of signs to assess.
type Set struct {
	Name  string   `yaml:"name"`
	Signs []string `yaml:"signs"`
}

// DefaultSet returns the built-in assessment.
func DefaultSet() Set {
	return Set{
		Name:  "basics",
		Signs: []string{"Thankyou", "Hello", "V"},
	}
}

// LoadSet reads a Set from a YAML file.
func LoadSet(path string) (Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Set{}, fmt.Errorf("read quiz file: %w", err)
	}
	return ParseSet(data)
}

// ParseSet decodes and validates a YAML quiz definition.
// Sign names are NFC-normalized so they compare equal to recognizer labels
// regardless of how the file was encoded.
func ParseSet(data []byte) (Set, error) {
	var s Set
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Set{}, fmt.Errorf("parse quiz file: %w", err)
	}

	if len(s.Signs) == 0 {
		return Set{}, errors.New("quiz has no signs")
	}

	for i, sign := range s.Signs {
		sign = norm.NFC.String(strings.TrimSpace(sign))
		if sign == "" {
			return Set{}, fmt.Errorf("quiz sign %d is blank", i)
		}
		s.Signs[i] = sign
	}

	return s, nil
}
