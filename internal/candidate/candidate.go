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

// Package candidate holds the information collected from a candidate during
// a screening conversation.
package candidate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Field names a piece of candidate information
type Field string

const (
	FieldName       Field = "name"
	FieldEmail      Field = "email"
	FieldPhone      Field = "phone"
	FieldExperience Field = "experience"
	FieldPosition   Field = "position"
	FieldLocation   Field = "location"
	FieldTechStack  Field = "tech_stack"
	FieldQuestions  Field = "questions"
)

// Fields lists every field in collection order
func Fields() []Field {
	return []Field{
		FieldName,
		FieldEmail,
		FieldPhone,
		FieldExperience,
		FieldPosition,
		FieldLocation,
		FieldTechStack,
		FieldQuestions,
	}
}

// Data accumulates answers as a screening progresses. A nil pointer or nil
// slice means the field has not been collected yet. Fields are only ever
// set, never cleared, until Reset.
type Data struct {
	Name       *string
	Email      *string
	Phone      *string
	Experience *float64
	Position   *string
	Location   *string
	TechStack  []string
	Questions  []string
}

// New returns an empty record
func New() *Data {
	return &Data{}
}

// SetName records the candidate's name
func (d *Data) SetName(v string) { d.Name = &v }

// SetEmail records the candidate's email address
func (d *Data) SetEmail(v string) { d.Email = &v }

// SetPhone records the candidate's phone number as typed
func (d *Data) SetPhone(v string) { d.Phone = &v }

// SetExperience records years of professional experience
func (d *Data) SetExperience(v float64) { d.Experience = &v }

// SetPosition records the desired position
func (d *Data) SetPosition(v string) { d.Position = &v }

// SetLocation records the candidate's location
func (d *Data) SetLocation(v string) { d.Location = &v }

// SetTechStack records the parsed tech stack. An empty stack still counts
// as collected.
func (d *Data) SetTechStack(v []string) {
	d.TechStack = append(make([]string, 0, len(v)), v...)
}

// SetQuestions records the generated interview questions
func (d *Data) SetQuestions(v []string) {
	d.Questions = append(make([]string, 0, len(v)), v...)
}

// Has reports whether f has been collected
func (d *Data) Has(f Field) bool {
	if d == nil {
		return false
	}
	switch f {
	case FieldName:
		return d.Name != nil
	case FieldEmail:
		return d.Email != nil
	case FieldPhone:
		return d.Phone != nil
	case FieldExperience:
		return d.Experience != nil
	case FieldPosition:
		return d.Position != nil
	case FieldLocation:
		return d.Location != nil
	case FieldTechStack:
		return d.TechStack != nil
	case FieldQuestions:
		return d.Questions != nil
	default:
		return false
	}
}

// Missing lists the fields not yet collected, in collection order
func (d *Data) Missing() []Field {
	missing := make([]Field, 0, len(Fields()))
	for _, f := range Fields() {
		if !d.Has(f) {
			missing = append(missing, f)
		}
	}
	return missing
}

// Complete reports whether every field has been collected
func (d *Data) Complete() bool {
	return len(d.Missing()) == 0
}

// Reset clears every field for a fresh screening
func (d *Data) Reset() {
	*d = Data{}
}

// Clone returns a deep copy
func (d *Data) Clone() *Data {
	if d == nil {
		return nil
	}
	c := &Data{}
	if d.Name != nil {
		c.SetName(*d.Name)
	}
	if d.Email != nil {
		c.SetEmail(*d.Email)
	}
	if d.Phone != nil {
		c.SetPhone(*d.Phone)
	}
	if d.Experience != nil {
		c.SetExperience(*d.Experience)
	}
	if d.Position != nil {
		c.SetPosition(*d.Position)
	}
	if d.Location != nil {
		c.SetLocation(*d.Location)
	}
	if d.TechStack != nil {
		c.SetTechStack(d.TechStack)
	}
	if d.Questions != nil {
		c.SetQuestions(d.Questions)
	}
	return c
}

// Display renders a collected value for messages and previews. Missing
// values render as "".
func (d *Data) Display(f Field) string {
	if !d.Has(f) {
		return ""
	}
	switch f {
	case FieldName:
		return *d.Name
	case FieldEmail:
		return *d.Email
	case FieldPhone:
		return *d.Phone
	case FieldExperience:
		return FormatExperience(*d.Experience)
	case FieldPosition:
		return *d.Position
	case FieldLocation:
		return *d.Location
	case FieldTechStack:
		return strings.Join(d.TechStack, ", ")
	case FieldQuestions:
		return strings.Join(d.Questions, "\n")
	default:
		return ""
	}
}

// FormatExperience prints whole years without a fraction ("5"), otherwise
// the shortest exact form ("5.5")
func FormatExperience(years float64) string {
	return strconv.FormatFloat(years, 'f', -1, 64)
}

// Record is the flat structured form of Data handed to downstream systems
type Record struct {
	Name       string   `json:"name" yaml:"name" validate:"required,min=2"`
	Email      string   `json:"email" yaml:"email" validate:"required"`
	Phone      string   `json:"phone" yaml:"phone" validate:"required"`
	Experience *float64 `json:"experience_years" yaml:"experience_years" validate:"required,gte=0,lte=50"`
	Position   string   `json:"position,omitempty" yaml:"position,omitempty"`
	Location   string   `json:"location,omitempty" yaml:"location,omitempty"`
	TechStack  []string `json:"tech_stack" yaml:"tech_stack" validate:"max=10"`
	Questions  []string `json:"questions" yaml:"questions" validate:"max=5"`
}

// Record flattens the collected data
func (d *Data) Record() Record {
	r := Record{
		Name:      d.Display(FieldName),
		Email:     d.Display(FieldEmail),
		Phone:     d.Display(FieldPhone),
		Position:  d.Display(FieldPosition),
		Location:  d.Display(FieldLocation),
		TechStack: []string{},
		Questions: []string{},
	}
	if d.Has(FieldExperience) {
		years := *d.Experience
		r.Experience = &years
	}
	if d.Has(FieldTechStack) {
		r.TechStack = append(r.TechStack, d.TechStack...)
	}
	if d.Has(FieldQuestions) {
		r.Questions = append(r.Questions, d.Questions...)
	}
	return r
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks that the record is ready to hand off
func (r Record) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("candidate record is incomplete: %w", err)
	}
	return nil
}
