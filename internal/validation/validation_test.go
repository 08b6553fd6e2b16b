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

package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"full name", "Ada Lovelace", true},
		{"two letters", "Al", true},
		{"surrounding whitespace", "  Grace Hopper  ", true},
		{"accented letters", "José Núñez", true},
		{"single letter", "A", false},
		{"single letter padded", "  A  ", false},
		{"empty", "", false},
		{"whitespace only", "    ", false},
		{"digits", "R2D2", false},
		{"punctuation", "O'Brien", false},
		{"hyphen", "Mary-Jane", false},
		{"email", "ada@example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateName(tt.input))
		})
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"a.b@test.co", true},
		{"jane.doe+jobs@mail.example.org", true},
		{"  user_1%tag@sub-domain.io  ", true},
		{"bad@domain", false},
		{"no-at-sign", false},
		{"@example.com", false},
		{"user@.com", false},
		{"user@example.c", false},
		{"user@example.c0m", false},
		{"user name@example.com", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateEmail(tt.input))
		})
	}
}

func TestValidatePhone(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"(555) 123-4567", true},
		{"5551234567", true},
		{"+44 20 7946 0958", true},
		{"+1-800-555-0199 ext 12345", true},
		{"123456789012345", true},
		{"1234567890123456", false},
		{"12345", false},
		{"555-1234", false},
		{"call me maybe", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidatePhone(tt.input))
		})
	}
}

func TestValidateExperience(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"7", true},
		{"0", true},
		{"50", true},
		{"5.5", true},
		{" 12 ", true},
		{"51", false},
		{"-1", false},
		{"50.01", false},
		{"abc", false},
		{"", false},
		{"NaN", false},
		{"Inf", false},
		{"5 years", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateExperience(tt.input))
		})
	}
}

func TestParseExperience(t *testing.T) {
	years, ok := ParseExperience(" 3.5 ")
	assert.True(t, ok)
	assert.InDelta(t, 3.5, years, 1e-9)

	years, ok = ParseExperience("seventy")
	assert.False(t, ok)
	assert.Zero(t, years)
}
