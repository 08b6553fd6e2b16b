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
	"fmt"
	"unicode/utf8"

	"github.com/tiktoken-go/tokenizer"
)

// tokenEstimateRatio approximates four characters per token
const tokenEstimateRatio = 4

// TokenCounter counts tokens in transcript messages
type TokenCounter struct {
	codec tokenizer.Codec
}

// NewTokenCounter creates a counter for model. Every supported model is
// counted with the GPT-4 encoding, which is close enough for transcript
// bookkeeping.
func NewTokenCounter(model string) (*TokenCounter, error) {
	codec, err := tokenizer.ForModel(tokenizer.GPT4)
	if err != nil {
		return &TokenCounter{}, fmt.Errorf("failed to create tokenizer codec for model %q: %w", model, err)
	}
	return &TokenCounter{codec: codec}, nil
}

// CountTokens returns the number of tokens in text, falling back to a
// character estimate when no codec is available
func (tc *TokenCounter) CountTokens(text string) int {
	if tc == nil || tc.codec == nil {
		return EstimateTokenCount(text)
	}

	count, err := tc.codec.Count(text)
	if err != nil {
		return EstimateTokenCount(text)
	}
	return count
}

// EstimateTokenCount provides a rough estimate of token count
func EstimateTokenCount(text string) int {
	return utf8.RuneCountInString(text) / tokenEstimateRatio
}
