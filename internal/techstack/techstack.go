// Copyright 2024 Candidate Screener Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package techstack turns a free-text skills answer into an ordered list of
// technology tokens and groups them into broad categories.
package techstack

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// MaxItems caps the number of tokens kept from one answer
	MaxItems = 10
	// OtherCategory groups tokens that are not in the category table
	OtherCategory = "Other"
)

// Category names, in display order
const (
	CategoryLanguages = "Programming Languages"
	CategoryFrontend  = "Frontend"
	CategoryBackend   = "Backend"
	CategoryDatabases = "Databases"
	CategoryCloud     = "Cloud & DevOps"
	CategoryAIML      = "AI/ML"
)

var separatorPattern = regexp.MustCompile(`[,;]`)

// categoryOrder fixes the iteration order of the category table
var categoryOrder = []string{
	CategoryLanguages,
	CategoryFrontend,
	CategoryBackend,
	CategoryDatabases,
	CategoryCloud,
	CategoryAIML,
}

var categories = map[string][]string{
	CategoryLanguages: {"python", "java", "javascript", "typescript", "c++", "c#", "go", "rust", "php", "ruby", "swift", "kotlin"},
	CategoryFrontend:  {"react", "vue", "angular", "html", "css", "bootstrap", "tailwind"},
	CategoryBackend:   {"django", "flask", "fastapi", "express", "spring", "laravel", ".net"},
	CategoryDatabases: {"mysql", "postgresql", "mongodb", "redis", "sqlite", "oracle"},
	CategoryCloud:     {"aws", "azure", "gcp", "docker", "kubernetes", "jenkins", "git"},
	CategoryAIML:      {"tensorflow", "pytorch", "scikit-learn", "opencv", "pandas", "numpy"},
}

// lookup maps a lowercased technology to its category
var lookup = func() map[string]string {
	m := make(map[string]string)
	for _, category := range categoryOrder {
		for _, tech := range categories[category] {
			m[tech] = category
		}
	}
	return m
}()

// Option configures a Parser
type Option func(*Parser)

// WithKnownOnly drops tokens that are not in the category table
func WithKnownOnly(knownOnly bool) Option {
	return func(p *Parser) {
		p.knownOnly = knownOnly
	}
}

// WithMaxItems overrides the number of tokens kept
func WithMaxItems(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.maxItems = n
		}
	}
}

// Parser splits skill answers into tokens
type Parser struct {
	knownOnly bool
	maxItems  int
}

// NewParser creates a parser. By default every non-trivial token is kept.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		maxItems: MaxItems,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse splits input on commas and semicolons and returns title-cased tokens
// in input order. Tokens of one character or less are discarded and the
// result holds at most MaxItems entries. The result is never nil.
func (p *Parser) Parse(input string) []string {
	// Casers hold state and cannot be shared across goroutines
	caser := cases.Title(language.English)
	tokens := make([]string, 0)
	for _, piece := range separatorPattern.Split(input, -1) {
		item := strings.ToLower(strings.TrimSpace(piece))
		if utf8.RuneCountInString(item) <= 1 {
			continue
		}
		if p.knownOnly {
			if _, ok := lookup[item]; !ok {
				continue
			}
		}

		tokens = append(tokens, caser.String(item))
		if len(tokens) == p.maxItems {
			break
		}
	}
	return tokens
}

// Parse is a convenience wrapper around a default Parser
func Parse(input string) []string {
	return NewParser().Parse(input)
}

// CategoryOf returns the category of a technology, or OtherCategory
func CategoryOf(tech string) string {
	if category, ok := lookup[strings.ToLower(strings.TrimSpace(tech))]; ok {
		return category
	}
	return OtherCategory
}

// IsKnown reports whether tech appears in the category table
func IsKnown(tech string) bool {
	return CategoryOf(tech) != OtherCategory
}

// Categorize groups tokens by category, preserving token order within each group
func Categorize(tokens []string) map[string][]string {
	grouped := make(map[string][]string)
	for _, token := range tokens {
		category := CategoryOf(token)
		grouped[category] = append(grouped[category], token)
	}
	return grouped
}

// Categories returns the category names in display order
func Categories() []string {
	out := make([]string, len(categoryOrder))
	copy(out, categoryOrder)
	return out
}
