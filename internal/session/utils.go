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

package session

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxInputLength caps a single candidate message
const MaxInputLength = 2000

var controlChars = regexp.MustCompile(`[\x00-\x08\x0B-\x1F\x7F]`)

// GenerateSessionID generates a unique session identifier
func GenerateSessionID() string {
	return uuid.NewString()
}

// GenerateMessageID generates a unique message identifier
func GenerateMessageID() string {
	return "msg_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ValidateSessionID reports whether sessionID is a well-formed session ID
func ValidateSessionID(sessionID string) bool {
	_, err := uuid.Parse(sessionID)
	return err == nil && len(sessionID) == 36
}

// SanitizeUserInput strips control characters (tabs and newlines are kept)
// and caps the length of candidate input
func SanitizeUserInput(input string) string {
	input = controlChars.ReplaceAllString(input, "")

	if utf8.RuneCountInString(input) > MaxInputLength {
		runes := []rune(input)
		input = string(runes[:MaxInputLength])
	}

	return strings.TrimSpace(input)
}

// IsExpired checks if a session is expired
func IsExpired(session *Session) bool {
	return session.ExpiresAt.Before(time.Now())
}

// GetLastActivity returns the timestamp of the last activity in a session
func GetLastActivity(session *Session) time.Time {
	if len(session.Messages) == 0 {
		return session.CreatedAt
	}
	return session.Messages[len(session.Messages)-1].Timestamp
}
