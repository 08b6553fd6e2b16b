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
)

// Stage is a step of the screening conversation
type Stage string

const (
	StageGreeting           Stage = "greeting"
	StageCollectName        Stage = "collect_name"
	StageCollectEmail       Stage = "collect_email"
	StageCollectPhone       Stage = "collect_phone"
	StageCollectExperience  Stage = "collect_experience"
	StageCollectPosition    Stage = "collect_position"
	StageCollectLocation    Stage = "collect_location"
	StageCollectTechStack   Stage = "collect_tech_stack"
	StageTechnicalQuestions Stage = "technical_questions"
	StageConclusion         Stage = "conclusion"
)

var stageOrder = []Stage{
	StageGreeting,
	StageCollectName,
	StageCollectEmail,
	StageCollectPhone,
	StageCollectExperience,
	StageCollectPosition,
	StageCollectLocation,
	StageCollectTechStack,
	StageTechnicalQuestions,
	StageConclusion,
}

// Stages returns every stage in conversation order
func Stages() []Stage {
	return append([]Stage(nil), stageOrder...)
}

// ParseStage converts a stage name, rejecting unknown values
func ParseStage(s string) (Stage, error) {
	stage := Stage(strings.TrimSpace(s))
	if !stage.Valid() {
		return "", fmt.Errorf("unknown stage %q", s)
	}
	return stage, nil
}

// Valid reports whether s is one of the known stages
func (s Stage) Valid() bool {
	for _, known := range stageOrder {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further input is processed
func (s Stage) IsTerminal() bool {
	return s == StageConclusion
}

// Index returns the position of s in conversation order, -1 if unknown
func (s Stage) Index() int {
	for i, known := range stageOrder {
		if s == known {
			return i
		}
	}
	return -1
}

// Label is a short human readable name used in progress displays
func (s Stage) Label() string {
	switch s {
	case StageGreeting:
		return "Welcome"
	case StageCollectName:
		return "Name"
	case StageCollectEmail:
		return "Email"
	case StageCollectPhone:
		return "Phone"
	case StageCollectExperience:
		return "Experience"
	case StageCollectPosition:
		return "Position"
	case StageCollectLocation:
		return "Location"
	case StageCollectTechStack:
		return "Tech Stack"
	case StageTechnicalQuestions:
		return "Technical Questions"
	case StageConclusion:
		return "Complete"
	default:
		return string(s)
	}
}
