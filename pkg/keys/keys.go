// Package keys holds answer-key storage and validation. A key maps
// question identifiers ("1".."N") to the correct option letter, one key
// per printed sheet version.
package keys

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Provider looks up the answer key for a sheet version. Implementations
// must be safe for concurrent read access; the pipeline never mutates a
// provider.
type Provider interface {
	AnswerKey(version string) (map[string]string, bool)
	Versions() []string
}

// StaticProvider is an in-memory, read-only answer-key table.
type StaticProvider struct {
	table map[string]map[string]string
}

// NewStaticProvider copies the given table into an immutable provider.
// Question identifiers are normalized: a legacy "Q12" key becomes "12".
func NewStaticProvider(table map[string]map[string]string) *StaticProvider {
	copied := make(map[string]map[string]string, len(table))
	for version, key := range table {
		normalized := make(map[string]string, len(key))
		for q, letter := range key {
			normalized[NormalizeQuestionID(q)] = strings.ToUpper(strings.TrimSpace(letter))
		}
		copied[version] = normalized
	}
	return &StaticProvider{table: copied}
}

// AnswerKey returns the key for a version.
func (p *StaticProvider) AnswerKey(version string) (map[string]string, bool) {
	key, ok := p.table[version]
	return key, ok
}

// Versions lists the configured sheet versions.
func (p *StaticProvider) Versions() []string {
	out := make([]string, 0, len(p.table))
	for v := range p.table {
		out = append(out, v)
	}
	return out
}

// LoadFile reads an answer-key table from a JSON file shaped as
// {"A": {"1": "A", "2": "C", ...}, "B": {...}}.
func LoadFile(path string) (*StaticProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read answer keys: %w", err)
	}

	var table map[string]map[string]string
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse answer keys: %w", err)
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("answer key file %s contains no versions", path)
	}
	return NewStaticProvider(table), nil
}

// NormalizeQuestionID strips a legacy "Q" prefix so both "Q7" and "7"
// address question 7.
func NormalizeQuestionID(q string) string {
	q = strings.TrimSpace(q)
	if len(q) > 1 && (q[0] == 'Q' || q[0] == 'q') {
		return q[1:]
	}
	return q
}
