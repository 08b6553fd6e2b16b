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

package screening

import (
	"fmt"
	"strings"

	"github.com/your-org/candidate-screener/internal/candidate"
)

const greetingMessage = `**Welcome to the Candidate Screening Assistant!**

I'll collect some basic information about you and then run a short technical assessment based on your skills.

**What we'll cover:**
- Personal & contact information
- Professional experience
- Technical skills assessment
- Tailored technical questions

The whole process takes about 10-15 minutes. You can type 'exit' or 'quit' at any time to end the conversation.

Let's get started! **What's your full name?**`

const goodbyeMessage = `**Thank you for your time!**

If you'd like to complete the screening later, feel free to restart the conversation.

Have a great day!`

const techStackPrompt = `**Now for the technical assessment part!**

Please list your technical skills and tech stack, separated by commas. Include:
- Programming languages
- Frameworks and libraries
- Databases
- Cloud platforms & tools
- Any other relevant technologies`

const (
	emailAccepted      = "Great! **What's your phone number?**"
	phoneAccepted      = "Perfect! **How many years of professional experience do you have?** (Enter a number)"
	experienceAccepted = "Thank you! **What position(s) are you interested in applying for?**"
	positionAccepted   = "Excellent! **What's your current location (City, State/Country)?**"

	invalidName       = "Please provide a valid full name (at least 2 characters, letters only)."
	invalidEmail      = "Please provide a valid email address."
	invalidPhone      = "Please provide a valid phone number."
	invalidExperience = "Please enter a valid number of years (0-50)."

	genericReprompt = "I didn't understand that. Could you please try again?"
)

// reprompts are used when input arrives for a stage with no handler
var reprompts = map[Stage]string{
	StageCollectName:        "I didn't quite catch that. Could you please provide your full name?",
	StageCollectEmail:       "Please provide a valid email address.",
	StageCollectPhone:       "I need a valid phone number. Please try again.",
	StageCollectExperience:  "Please enter your years of experience as a number (e.g., 2, 5.5, 0).",
	StageCollectPosition:    "What position or role are you interested in applying for?",
	StageCollectLocation:    "Please share your current location (City, State/Country).",
	StageCollectTechStack:   "Please list your technical skills separated by commas.",
	StageTechnicalQuestions: "Type 'more' for additional questions or 'finish' to conclude.",
}

// Reprompt returns the stage specific prompt repeated on unexpected input
func Reprompt(stage Stage) string {
	if msg, ok := reprompts[stage]; ok {
		return msg
	}
	return genericReprompt
}

func nameAccepted(name string) string {
	return fmt.Sprintf("Nice to meet you, %s! **What's your email address?**", name)
}

func writeQuestions(b *strings.Builder, questions []string) {
	for i, q := range questions {
		fmt.Fprintf(b, "**%d.** %s\n\n", i+1, q)
	}
}

func questionsMessage(techStack, questions []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Excellent! Based on your tech stack: %s**\n\n", strings.Join(techStack, ", "))
	fmt.Fprintf(&b, "I've generated %d technical questions tailored to your skills. Here they are:\n\n", len(questions))
	writeQuestions(&b, questions)
	b.WriteString("These questions assess your proficiency in the technologies you've mentioned.\n")
	b.WriteString("Type 'more' for additional questions, or anything else to wrap up.")
	return b.String()
}

func moreQuestionsMessage(questions []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Here are %d additional technical questions:**\n\n", len(questions))
	writeQuestions(&b, questions)
	b.WriteString("Type 'more' for another set, or anything else to wrap up.")
	return b.String()
}

// SummaryMessage renders the closing summary of the collected data
func SummaryMessage(data *candidate.Data) string {
	name := data.Display(candidate.FieldName)

	var b strings.Builder
	fmt.Fprintf(&b, "**Thank you, %s! Screening Complete!**\n\n", name)
	b.WriteString("**Here's a summary of your information:**\n")
	fmt.Fprintf(&b, "- **Name:** %s\n", name)
	fmt.Fprintf(&b, "- **Email:** %s\n", data.Display(candidate.FieldEmail))
	fmt.Fprintf(&b, "- **Phone:** %s\n", data.Display(candidate.FieldPhone))
	fmt.Fprintf(&b, "- **Experience:** %s years\n", data.Display(candidate.FieldExperience))
	fmt.Fprintf(&b, "- **Position Interest:** %s\n", data.Display(candidate.FieldPosition))
	fmt.Fprintf(&b, "- **Location:** %s\n", data.Display(candidate.FieldLocation))
	fmt.Fprintf(&b, "- **Tech Stack:** %s\n\n", data.Display(candidate.FieldTechStack))
	b.WriteString("**Next Steps:**\n")
	b.WriteString("1. Your information has been recorded for review\n")
	b.WriteString("2. Our technical team will evaluate your responses\n")
	b.WriteString("3. If selected, you'll receive an email within 3-5 business days\n")
	b.WriteString("4. The next step would be a detailed technical interview\n\n")
	b.WriteString("**Thank you for your time and interest in our company!**")
	return b.String()
}
