// Package planner turns a research topic into a structured plan: a
// numbered narrative plus typed steps routed to the internal index or
// the public web.
package planner

import (
	"errors"
	"fmt"
	"strings"
)

var ErrMalformedPlan = errors.New("malformed plan")

// Step agents.
const (
	AgentInternal = "internal"
	AgentExternal = "external"
)

// Step is one research action: which agent runs it and what to ask.
type Step struct {
	Agent string   `json:"agent"`
	Query string   `json:"query"`
	Needs []string `json:"needs,omitempty"`
}

// InternalSource describes an indexed document the plan expects to use.
type InternalSource struct {
	Title string `json:"title"`
	Type  string `json:"type"`
}

// ExternalSource describes a class of public sources worth consulting.
type ExternalSource struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Note string `json:"note,omitempty"`
}

// Plan is the full research plan handed from planning to execution.
// It is always validated at the boundary; execution never proceeds on a
// structurally invalid plan.
type Plan struct {
	Topic           string           `json:"topic"`
	PlanText        string           `json:"plan_text"`
	Steps           []Step           `json:"steps"`
	InternalSources []InternalSource `json:"internal_sources,omitempty"`
	ExternalSources []ExternalSource `json:"external_sources,omitempty"`
}

// Validate reports whether the plan is structurally executable.
func (p *Plan) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: plan is nil", ErrMalformedPlan)
	}
	if strings.TrimSpace(p.Topic) == "" {
		return fmt.Errorf("%w: missing topic", ErrMalformedPlan)
	}
	if len(p.Steps) == 0 {
		return fmt.Errorf("%w: no steps", ErrMalformedPlan)
	}
	for i, step := range p.Steps {
		if step.Agent != AgentInternal && step.Agent != AgentExternal {
			return fmt.Errorf("%w: step %d has unknown agent %q", ErrMalformedPlan, i, step.Agent)
		}
		if strings.TrimSpace(step.Query) == "" {
			return fmt.Errorf("%w: step %d has an empty query", ErrMalformedPlan, i)
		}
	}
	return nil
}
