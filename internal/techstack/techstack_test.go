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

package techstack

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "mixed separators and casing",
			input: "Python, react ; Docker",
			want:  []string{"Python", "React", "Docker"},
		},
		{
			name:  "unknown technologies are kept",
			input: "Elixir, Phoenix",
			want:  []string{"Elixir", "Phoenix"},
		},
		{
			name:  "single characters and blanks dropped",
			input: "C, , R, go,  ;",
			want:  []string{"Go"},
		},
		{
			name:  "order preserved and case coalesced",
			input: "AWS, aws, Aws",
			want:  []string{"Aws", "Aws", "Aws"},
		},
		{
			name:  "multi word token",
			input: "machine learning",
			want:  []string{"Machine Learning"},
		},
		{
			name:  "empty input",
			input: "",
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.input))
		})
	}
}

func TestParseCapsItems(t *testing.T) {
	input := strings.Repeat("python, ", 25)
	tokens := Parse(input)
	assert.Len(t, tokens, MaxItems)

	limited := NewParser(WithMaxItems(3)).Parse(input)
	assert.Len(t, limited, 3)
}

func TestParseNeverNil(t *testing.T) {
	tokens := Parse("a; b")
	require.NotNil(t, tokens)
	assert.Empty(t, tokens)
}

func TestParseKnownOnly(t *testing.T) {
	parser := NewParser(WithKnownOnly(true))
	assert.Equal(t, []string{"Java", "Mysql"}, parser.Parse("Java, Spring Boot, MySQL, Cobol"))
}

func TestCategorize(t *testing.T) {
	grouped := Categorize([]string{"Python", "React", "Docker", "Elixir", "Go"})

	assert.Equal(t, []string{"Python", "Go"}, grouped[CategoryLanguages])
	assert.Equal(t, []string{"React"}, grouped[CategoryFrontend])
	assert.Equal(t, []string{"Docker"}, grouped[CategoryCloud])
	assert.Equal(t, []string{"Elixir"}, grouped[OtherCategory])
	assert.NotContains(t, grouped, CategoryAIML)
}

func TestCategoryOf(t *testing.T) {
	assert.Equal(t, CategoryBackend, CategoryOf(" Django "))
	assert.Equal(t, CategoryAIML, CategoryOf("Scikit-Learn"))
	assert.Equal(t, OtherCategory, CategoryOf("Fortran"))
	assert.True(t, IsKnown("postgresql"))
	assert.False(t, IsKnown("Fortran"))
}

func TestCategoriesReturnsCopy(t *testing.T) {
	names := Categories()
	require.Len(t, names, 6)
	names[0] = "mutated"
	assert.Equal(t, CategoryLanguages, Categories()[0])
}
