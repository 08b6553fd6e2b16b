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

package conversation

import (
	"time"

	"github.com/your-org/candidate-screener/internal/candidate"
	"github.com/your-org/candidate-screener/internal/screening"
	"github.com/your-org/candidate-screener/internal/session"
)

// ProgressState is the state of one stage in the progress list
type ProgressState string

const (
	ProgressComplete ProgressState = "complete"
	ProgressCurrent  ProgressState = "current"
	ProgressPending  ProgressState = "pending"
	ProgressSkipped  ProgressState = "skipped"
)

// StageProgress reports one stage of the screening
type StageProgress struct {
	Stage screening.Stage `json:"stage"`
	Label string          `json:"label"`
	State ProgressState   `json:"state"`
}

// stageFields maps collecting stages to the field they fill
var stageFields = map[screening.Stage]candidate.Field{
	screening.StageCollectName:       candidate.FieldName,
	screening.StageCollectEmail:      candidate.FieldEmail,
	screening.StageCollectPhone:      candidate.FieldPhone,
	screening.StageCollectExperience: candidate.FieldExperience,
	screening.StageCollectPosition:   candidate.FieldPosition,
	screening.StageCollectLocation:   candidate.FieldLocation,
	screening.StageCollectTechStack:  candidate.FieldTechStack,
}

// Progress lists every stage with its state. Collecting stages are complete
// once their field is present; stages left behind by an early exit are
// reported as skipped.
func Progress(sess *session.Session) []StageProgress {
	concluded := sess.Stage.IsTerminal()
	progress := make([]StageProgress, 0, len(screening.Stages()))

	for _, stage := range screening.Stages() {
		state := ProgressPending

		switch {
		case stage == screening.StageGreeting:
			if len(sess.Messages) > 0 {
				state = ProgressComplete
			}
		case stage == screening.StageConclusion:
			if concluded {
				state = ProgressComplete
			}
		case stage == screening.StageTechnicalQuestions:
			if concluded && sess.Candidate.Has(candidate.FieldQuestions) {
				state = ProgressComplete
			}
		default:
			if sess.Candidate.Has(stageFields[stage]) {
				state = ProgressComplete
			}
		}

		if state == ProgressPending {
			switch {
			case stage == sess.Stage:
				state = ProgressCurrent
			case concluded:
				state = ProgressSkipped
			}
		}

		progress = append(progress, StageProgress{Stage: stage, Label: stage.Label(), State: state})
	}

	return progress
}

// PercentComplete returns the share of stages completed, 0 to 100
func PercentComplete(progress []StageProgress) int {
	if len(progress) == 0 {
		return 0
	}
	done := 0
	for _, p := range progress {
		if p.State == ProgressComplete {
			done++
		}
	}
	return done * 100 / len(progress)
}

// Preview returns the collected non-question fields as display strings
func Preview(data *candidate.Data) map[string]string {
	preview := make(map[string]string)
	for _, f := range candidate.Fields() {
		if f == candidate.FieldQuestions || !data.Has(f) {
			continue
		}
		preview[string(f)] = data.Display(f)
	}
	return preview
}

// View is the full state of a session
type View struct {
	SessionID  string            `json:"session_id"`
	Stage      screening.Stage   `json:"stage"`
	Status     session.Status    `json:"status"`
	Progress   []StageProgress   `json:"progress"`
	Percent    int               `json:"percent_complete"`
	Collected  map[string]string `json:"collected"`
	Questions  []string          `json:"questions,omitempty"`
	Messages   []session.Message `json:"messages"`
	TokenCount int               `json:"token_count"`
	Restarts   int               `json:"restarts"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
	ExpiresAt  time.Time         `json:"expires_at"`
}

// NewView builds the view of sess
func NewView(sess *session.Session) *View {
	progress := Progress(sess)
	return &View{
		SessionID:  sess.ID,
		Stage:      sess.Stage,
		Status:     sess.Status,
		Progress:   progress,
		Percent:    PercentComplete(progress),
		Collected:  Preview(sess.Candidate),
		Questions:  sess.Candidate.Questions,
		Messages:   sess.Messages,
		TokenCount: sess.TokenCount,
		Restarts:   sess.Restarts,
		CreatedAt:  sess.CreatedAt,
		UpdatedAt:  sess.UpdatedAt,
		ExpiresAt:  sess.ExpiresAt,
	}
}

// Summary is the list entry for a session
type Summary struct {
	SessionID     string          `json:"session_id"`
	CandidateName string          `json:"candidate_name,omitempty"`
	Stage         screening.Stage `json:"stage"`
	Status        session.Status  `json:"status"`
	MessageCount  int             `json:"message_count"`
	LastActivity  time.Time       `json:"last_activity"`
	CreatedAt     time.Time       `json:"created_at"`
}

// NewSummary builds the list entry for sess
func NewSummary(sess *session.Session) Summary {
	return Summary{
		SessionID:     sess.ID,
		CandidateName: sess.Candidate.Display(candidate.FieldName),
		Stage:         sess.Stage,
		Status:        sess.Status,
		MessageCount:  len(sess.Messages),
		LastActivity:  session.GetLastActivity(sess),
		CreatedAt:     sess.CreatedAt,
	}
}

// CandidateExport is the structured candidate record with completeness
type CandidateExport struct {
	SessionID string            `json:"session_id" yaml:"session_id"`
	Status    session.Status    `json:"status" yaml:"status"`
	Complete  bool              `json:"complete" yaml:"complete"`
	Missing   []candidate.Field `json:"missing" yaml:"missing"`
	Problems  string            `json:"problems,omitempty" yaml:"problems,omitempty"`
	Candidate candidate.Record  `json:"candidate" yaml:"candidate"`
}

// NewCandidateExport builds the export for sess
func NewCandidateExport(sess *session.Session) *CandidateExport {
	record := sess.Candidate.Record()
	export := &CandidateExport{
		SessionID: sess.ID,
		Status:    sess.Status,
		Complete:  sess.Candidate.Complete(),
		Missing:   sess.Candidate.Missing(),
		Candidate: record,
	}
	if err := record.Validate(); err != nil {
		export.Problems = err.Error()
	}
	return export
}
