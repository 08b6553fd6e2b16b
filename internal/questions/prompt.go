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

// Package questions turns a candidate's tech stack into technical interview
// questions. A single completion request is made per call; any failure is
// absorbed by substituting a fixed fallback set.
package questions

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// MaxQuestions is the number of questions requested and kept
	MaxQuestions = 5
	// Temperature is sent with every completion request
	Temperature = 0.7
	// DefaultMaxTokens caps the length of the model reply
	DefaultMaxTokens = 800
	// SystemPrompt sets the model's role
	SystemPrompt = "You are a technical interviewer creating relevant assessment questions."

	primaryPlaceholder = "your primary technology"
)

var numberedLine = regexp.MustCompile(`^\d+\.\s+`)

// BuildPrompt renders the user prompt for a tech stack
func BuildPrompt(techStack []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are an expert technical interviewer. Based on the candidate's tech stack: %s,\n", strings.Join(techStack, ", "))
	fmt.Fprintf(&b, "generate exactly %d technical interview questions that assess:\n\n", MaxQuestions)
	b.WriteString("1. Core programming concepts in their primary language\n")
	b.WriteString("2. Framework/library specific knowledge\n")
	b.WriteString("3. Database and data handling skills\n")
	b.WriteString("4. Problem-solving and algorithms\n")
	b.WriteString("5. Real-world application scenarios\n\n")
	b.WriteString("Format your response as a numbered list with clear, specific questions.\n")
	b.WriteString("Each question should be appropriate for assessing proficiency in the mentioned technologies.")

	return b.String()
}

// ParseQuestions extracts numbered lines ("1. ...") from a model reply.
// Order is kept and at most MaxQuestions are returned.
func ParseQuestions(text string) []string {
	questions := make([]string, 0, MaxQuestions)

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		loc := numberedLine.FindStringIndex(line)
		if loc == nil {
			continue
		}
		questions = append(questions, line[loc[1]:])
		if len(questions) == MaxQuestions {
			break
		}
	}

	return questions
}

// FallbackQuestions returns the fixed question set used when generation fails
func FallbackQuestions(techStack []string) []string {
	primary := primaryPlaceholder
	if len(techStack) > 0 {
		primary = techStack[0]
	}

	return []string{
		fmt.Sprintf("Explain the key features and use cases of %s.", primary),
		"Describe a challenging project you've worked on and how you overcame technical obstacles.",
		"How do you approach debugging complex issues in your applications?",
		"What are the best practices you follow for code quality and maintainability?",
		"Explain how you would optimize the performance of a slow-running application.",
	}
}
