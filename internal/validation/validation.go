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

// Package validation checks the syntactic shape of candidate answers.
// Every function is total: malformed input is reported as invalid, never as an error.
package validation

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MinNameLength is the minimum number of characters in a name
	MinNameLength = 2
	// MinPhoneDigits is the minimum number of digits in a phone number
	MinPhoneDigits = 10
	// MaxPhoneDigits is the maximum number of digits in a phone number
	MaxPhoneDigits = 15
	// MinExperienceYears is the lowest accepted years of experience
	MinExperienceYears = 0
	// MaxExperienceYears is the highest accepted years of experience
	MaxExperienceYears = 50
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9-]+(\.[a-zA-Z0-9-]+)*\.[a-zA-Z]{2,}$`)

// ValidateName reports whether s is at least two characters of letters and spaces
func ValidateName(s string) bool {
	name := strings.TrimSpace(s)
	if utf8.RuneCountInString(name) < MinNameLength {
		return false
	}

	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// ValidateEmail reports whether s looks like local-part@domain.tld.
// No DNS or mailbox verification is attempted.
func ValidateEmail(s string) bool {
	return emailPattern.MatchString(strings.TrimSpace(s))
}

// ValidatePhone reports whether s carries between 10 and 15 digits once
// every other character is discarded
func ValidatePhone(s string) bool {
	digits := CountDigits(s)
	return digits >= MinPhoneDigits && digits <= MaxPhoneDigits
}

// CountDigits returns the number of ASCII digits in s
func CountDigits(s string) int {
	count := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			count++
		}
	}
	return count
}

// ValidateExperience reports whether s is a number of years in [0, 50]
func ValidateExperience(s string) bool {
	_, ok := ParseExperience(s)
	return ok
}

// ParseExperience parses s as years of experience. The second value is false
// when s is not a finite number within the accepted range.
func ParseExperience(s string) (float64, bool) {
	years, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(years) || math.IsInf(years, 0) {
		return 0, false
	}
	if years < MinExperienceYears || years > MaxExperienceYears {
		return 0, false
	}
	return years, true
}
