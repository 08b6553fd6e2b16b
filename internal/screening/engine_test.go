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
	"context"
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/candidate-screener/internal/candidate"
	"github.com/your-org/candidate-screener/internal/questions"
	"github.com/your-org/candidate-screener/internal/techstack"
	"go.uber.org/zap/zaptest"
)

// stubGenerator records calls and returns a fixed result
type stubGenerator struct {
	result questions.Result
	calls  [][]string
}

func (s *stubGenerator) Generate(_ context.Context, techStack []string) questions.Result {
	s.calls = append(s.calls, techStack)
	return s.result
}

func modelQuestions(n int) questions.Result {
	qs := make([]string, n)
	for i := range qs {
		qs[i] = "Model question " + string(rune('A'+i))
	}
	return questions.Result{Questions: qs, Source: questions.SourceModel}
}

// failingGenerator behaves like a generator whose backend is down
func failingGenerator(t *testing.T) *questions.Generator {
	return questions.NewGenerator(nil, zaptest.NewLogger(t))
}

func newTestEngine(t *testing.T, gen QuestionSource, opts ...Option) *Engine {
	t.Helper()
	return NewEngine(gen, zaptest.NewLogger(t), opts...)
}

func TestGreeting(t *testing.T) {
	e := newTestEngine(t, nil)

	greeting := e.Greeting()
	assert.Contains(t, greeting, "What's your full name?")
	assert.Contains(t, greeting, "'exit' or 'quit'")
}

func TestProcessStage_HappyPath(t *testing.T) {
	gen := &stubGenerator{result: modelQuestions(5)}
	e := newTestEngine(t, gen)
	data := candidate.New()
	ctx := context.Background()

	steps := []struct {
		stage    Stage
		input    string
		next     Stage
		contains string
	}{
		{StageCollectName, "  Ada Lovelace ", StageCollectEmail, "Nice to meet you, Ada Lovelace!"},
		{StageCollectEmail, "ada@example.com", StageCollectPhone, "phone number"},
		{StageCollectPhone, "+1 (555) 123-4567", StageCollectExperience, "years of professional experience"},
		{StageCollectExperience, "5.5", StageCollectPosition, "position"},
		{StageCollectPosition, "Software Engineer", StageCollectLocation, "location"},
		{StageCollectLocation, "London, UK", StageCollectTechStack, "technical assessment"},
		{StageCollectTechStack, "Python, Django; Postgresql", StageTechnicalQuestions, "Python, Django, Postgresql"},
		{StageTechnicalQuestions, "that's all", StageConclusion, "Screening Complete"},
	}

	for _, step := range steps {
		reply, next := e.ProcessStage(ctx, step.stage, step.input, data)
		require.Equal(t, step.next, next, "stage %s", step.stage)
		assert.Contains(t, reply, step.contains, "stage %s", step.stage)
	}

	assert.Equal(t, "Ada Lovelace", *data.Name)
	assert.Equal(t, "+1 (555) 123-4567", *data.Phone)
	assert.Equal(t, 5.5, *data.Experience)
	assert.Equal(t, []string{"Python", "Django", "Postgresql"}, data.TechStack)
	assert.Len(t, data.Questions, 5)
	assert.True(t, data.Complete())
	require.Len(t, gen.calls, 1)
}

func TestProcessStage_InvalidEmailIsIdempotent(t *testing.T) {
	e := newTestEngine(t, nil)
	data := candidate.New()
	data.SetName("Ada")
	before := data.Clone()

	for i := 0; i < 5; i++ {
		reply, next := e.ProcessStage(context.Background(), StageCollectEmail, "not-an-email", data)
		assert.Equal(t, StageCollectEmail, next)
		assert.Equal(t, invalidEmail, reply)
	}

	assert.Equal(t, before, data)
	assert.False(t, data.Has(candidate.FieldEmail))
}

func TestProcessStage_InvalidInputReprompts(t *testing.T) {
	e := newTestEngine(t, nil)

	tests := []struct {
		stage Stage
		input string
		reply string
	}{
		{StageCollectName, "A", invalidName},
		{StageCollectName, "R2D2", invalidName},
		{StageCollectPhone, "12345", invalidPhone},
		{StageCollectExperience, "fifty", invalidExperience},
		{StageCollectExperience, "51", invalidExperience},
		{StageCollectExperience, "-1", invalidExperience},
	}

	for _, tt := range tests {
		t.Run(string(tt.stage)+"/"+tt.input, func(t *testing.T) {
			data := candidate.New()
			reply, next := e.ProcessStage(context.Background(), tt.stage, tt.input, data)
			assert.Equal(t, tt.stage, next)
			assert.Equal(t, tt.reply, reply)
			assert.Len(t, data.Missing(), len(candidate.Fields()))
		})
	}
}

func TestProcessStage_ExitShortCircuits(t *testing.T) {
	gen := &stubGenerator{result: modelQuestions(5)}
	e := newTestEngine(t, gen)
	data := candidate.New()

	reply, next := e.ProcessStage(context.Background(), StageCollectPhone, "I quit", data)

	assert.Equal(t, StageConclusion, next)
	assert.Equal(t, e.GoodbyeMessage(), reply)
	assert.False(t, data.Has(candidate.FieldPhone))
	assert.Empty(t, gen.calls)
}

func TestProcessStage_ExitFromEveryNonTerminalStage(t *testing.T) {
	e := newTestEngine(t, nil)

	for _, stage := range Stages() {
		if stage.IsTerminal() {
			continue
		}
		_, next := e.ProcessStage(context.Background(), stage, "GOODBYE", candidate.New())
		assert.Equal(t, StageConclusion, next, "stage %s", stage)
	}
}

func TestProcessStage_FinishAtQuestionsIsAnExit(t *testing.T) {
	e := newTestEngine(t, nil)

	reply, next := e.ProcessStage(context.Background(), StageTechnicalQuestions, "finish", candidate.New())

	assert.Equal(t, StageConclusion, next)
	assert.Equal(t, goodbyeMessage, reply)
}

func TestProcessStage_FallbackQuestionsEndToEnd(t *testing.T) {
	e := newTestEngine(t, failingGenerator(t))
	data := candidate.New()

	reply, next := e.ProcessStage(context.Background(), StageCollectTechStack, "Java, Spring, MySQL", data)

	require.Equal(t, StageTechnicalQuestions, next)
	assert.Equal(t, []string{"Java", "Spring", "Mysql"}, data.TechStack)
	require.Len(t, data.Questions, 5)
	assert.Equal(t, "Explain the key features and use cases of Java.", data.Questions[0])
	assert.Contains(t, reply, "I've generated 5 technical questions")
	assert.Contains(t, reply, "**1.** Explain the key features and use cases of Java.")
}

func TestProcessStage_EmptyTechStack(t *testing.T) {
	e := newTestEngine(t, failingGenerator(t))
	data := candidate.New()

	_, next := e.ProcessStage(context.Background(), StageCollectTechStack, ",;x", data)

	assert.Equal(t, StageTechnicalQuestions, next)
	assert.True(t, data.Has(candidate.FieldTechStack))
	assert.Empty(t, data.TechStack)
	assert.Equal(t, "Explain the key features and use cases of your primary technology.", data.Questions[0])
}

func TestProcessStage_MoreQuestions(t *testing.T) {
	gen := &stubGenerator{result: modelQuestions(5)}
	e := newTestEngine(t, gen)
	data := candidate.New()
	data.SetTechStack([]string{"Go"})
	data.SetQuestions([]string{"original"})

	reply, next := e.ProcessStage(context.Background(), StageTechnicalQuestions, "Give me MORE please", data)

	assert.Equal(t, StageTechnicalQuestions, next)
	assert.Contains(t, reply, "additional technical questions")
	assert.Contains(t, reply, "**5.** Model question E")
	assert.Equal(t, []string{"original"}, data.Questions, "extra questions are not stored")
	require.Len(t, gen.calls, 1)
	assert.Equal(t, []string{"Go"}, gen.calls[0])
}

func TestProcessStage_MoreQuestionsPromptLeadsToSummary(t *testing.T) {
	gen := &stubGenerator{result: modelQuestions(5)}
	e := newTestEngine(t, gen)
	data := candidate.New()
	data.SetTechStack([]string{"Go"})
	data.SetQuestions([]string{"original"})
	ctx := context.Background()

	reply, _ := e.ProcessStage(ctx, StageTechnicalQuestions, "more", data)
	assert.Contains(t, reply, "anything else to wrap up")

	// the reply must not advertise a word that is treated as an exit
	for _, word := range strings.FieldsFunc(strings.ToLower(reply), func(r rune) bool {
		return !unicode.IsLetter(r)
	}) {
		assert.NotContains(t, ExitKeywords, word)
	}

	reply, next := e.ProcessStage(ctx, StageTechnicalQuestions, "sounds good", data)
	assert.Equal(t, StageConclusion, next)
	assert.Contains(t, reply, "Screening Complete")
}

func TestProcessStage_UnhandledStages(t *testing.T) {
	e := newTestEngine(t, nil)

	tests := []struct {
		stage Stage
		reply string
	}{
		{StageGreeting, genericReprompt},
		{StageConclusion, genericReprompt},
		{Stage("bogus"), genericReprompt},
	}

	for _, tt := range tests {
		t.Run(string(tt.stage), func(t *testing.T) {
			reply, next := e.ProcessStage(context.Background(), tt.stage, "hello", candidate.New())
			assert.Equal(t, tt.stage, next)
			assert.Equal(t, tt.reply, reply)
		})
	}
}

func TestProcessStage_ConclusionIgnoresExitKeywords(t *testing.T) {
	e := newTestEngine(t, nil)

	reply, next := e.ProcessStage(context.Background(), StageConclusion, "bye", candidate.New())

	assert.Equal(t, StageConclusion, next)
	assert.Equal(t, genericReprompt, reply)
}

func TestProcessStage_NilData(t *testing.T) {
	e := newTestEngine(t, nil)

	assert.NotPanics(t, func() {
		_, next := e.ProcessStage(context.Background(), StageCollectName, "Ada", nil)
		assert.Equal(t, StageCollectEmail, next)
	})
}

func TestExitRequested(t *testing.T) {
	substring := newTestEngine(t, nil)
	word := newTestEngine(t, nil, WithExitMatch(ExitMatchWord))

	tests := []struct {
		input         string
		substringMode bool
		wordMode      bool
	}{
		{"quit", true, true},
		{"  I QUIT now ", true, true},
		{"bye!", true, true},
		{"React, Frontend", true, false},
		{"Node, Expressjs", false, false},
		{"I'm done.", true, true},
		{"Closed-loop systems", true, false},
		{"Python, Django", false, false},
		{"", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.substringMode, substring.ExitRequested(tt.input), "substring mode")
			assert.Equal(t, tt.wordMode, word.ExitRequested(tt.input), "word mode")
		})
	}
}

func TestWordModeAllowsFrontendTechStack(t *testing.T) {
	e := newTestEngine(t, failingGenerator(t), WithExitMatch(ExitMatchWord))
	data := candidate.New()

	_, next := e.ProcessStage(context.Background(), StageCollectTechStack, "React, Frontend, Vue", data)

	assert.Equal(t, StageTechnicalQuestions, next)
	assert.Equal(t, []string{"React", "Frontend", "Vue"}, data.TechStack)
}

func TestWithTechStackParser(t *testing.T) {
	e := newTestEngine(t, failingGenerator(t), WithTechStackParser(techstack.NewParser(techstack.WithKnownOnly(true))))
	data := candidate.New()

	e.ProcessStage(context.Background(), StageCollectTechStack, "Java, Widgets, Mysql", data)

	assert.Equal(t, []string{"Java", "Mysql"}, data.TechStack)
}

func TestSummaryMessage(t *testing.T) {
	data := candidate.New()
	data.SetName("Ada")
	data.SetEmail("ada@example.com")
	data.SetPhone("5551234567")
	data.SetExperience(5)
	data.SetPosition("Engineer")
	data.SetLocation("London")
	data.SetTechStack([]string{"Go", "Redis"})

	summary := SummaryMessage(data)

	for _, want := range []string{
		"Thank you, Ada!",
		"**Email:** ada@example.com",
		"**Experience:** 5 years",
		"**Tech Stack:** Go, Redis",
		"Next Steps",
	} {
		assert.Contains(t, summary, want)
	}
	assert.False(t, strings.Contains(summary, "%!"), "no formatting errors")
}

func TestReprompt(t *testing.T) {
	assert.Equal(t, "Please list your technical skills separated by commas.", Reprompt(StageCollectTechStack))
	assert.Equal(t, genericReprompt, Reprompt(StageGreeting))
}

func TestStages(t *testing.T) {
	stages := Stages()
	require.Len(t, stages, 10)
	assert.Equal(t, StageGreeting, stages[0])
	assert.Equal(t, StageConclusion, stages[9])
	assert.Equal(t, 7, StageCollectTechStack.Index())
	assert.Equal(t, -1, Stage("nope").Index())

	stage, err := ParseStage("collect_email")
	require.NoError(t, err)
	assert.Equal(t, StageCollectEmail, stage)

	_, err = ParseStage("collect_salary")
	assert.Error(t, err)

	assert.True(t, StageConclusion.IsTerminal())
	assert.False(t, StageTechnicalQuestions.IsTerminal())
	assert.Equal(t, "Tech Stack", StageCollectTechStack.Label())
}
