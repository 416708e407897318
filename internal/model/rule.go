// Package model defines the domain entities shared across the rule
// discovery engine: assignment records, discovered rules, and result bundles.
package model

import (
	"fmt"
	"time"
)

// SegmentOverall tags rules mined from the unrestricted working log.
const SegmentOverall = "overall"

// RuleType identifies the kind of discovered rule.
type RuleType string

const (
	RuleWeeklyLimit         RuleType = "weekly_limit"
	RuleWeekdayRestriction  RuleType = "weekday_restriction"
	RuleWorkTypeRestriction RuleType = "work_type_restriction"
	RuleAffinity            RuleType = "pair_affinity"
	RuleAvoidance           RuleType = "pair_avoidance"
)

// Nature classifies the behavioral character of a numeric-threshold rule.
type Nature string

const (
	NatureUpperBound      Nature = "upper_bound"
	NatureSoftFloor       Nature = "soft_floor"
	NatureFixedTarget     Nature = "fixed_target"
	NatureFlexiblePattern Nature = "flexible_pattern"
	NatureSeasonalPattern Nature = "seasonal_pattern"
)

// AssignmentRecord is one raw (date, staff, work type, role) observation.
// AllocatedSlots of zero means the staff member was rostered but not working.
type AssignmentRecord struct {
	Timestamp      time.Time `json:"timestamp"`
	StaffID        string    `json:"staff_id"`
	Role           string    `json:"role,omitempty"`
	WorkTypeCode   string    `json:"work_type_code,omitempty"`
	AllocatedSlots float64   `json:"allocated_slots"`
}

// Working reports whether the record represents actual time worked.
func (r AssignmentRecord) Working() bool {
	return r.AllocatedSlots > 0
}

// Rule is the engine's primary output: one discovered scheduling rule with
// its supporting evidence. Rules are immutable once emitted by a miner.
type Rule struct {
	Subject     string         `json:"subject"`
	PairSubject string         `json:"pair_subject,omitempty"`
	Type        RuleType       `json:"rule_type"`
	Description string         `json:"description"`
	Confidence  float64        `json:"confidence_score"`
	Evidence    map[string]any `json:"evidence"`
	Segment     string         `json:"segment_tag"`
	Nature      *NatureVerdict `json:"nature,omitempty"`
}

// SubjectKey returns the canonical subject identity used for deduplication
// and tie-breaking. Pair subjects are already stored in canonical order.
func (r Rule) SubjectKey() string {
	if r.PairSubject != "" {
		return r.Subject + "+" + r.PairSubject
	}
	return r.Subject
}

// PairSubjects returns the two staff identifiers of a pair in canonical
// (lexicographic) order so that a pair is never emitted twice.
func PairSubjects(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// NatureVerdict is the constraint-nature classification attached to a
// numeric-threshold rule. It carries its own confidence, independent of the
// rule it annotates.
type NatureVerdict struct {
	Nature          Nature   `json:"nature"`
	ThresholdValue  float64  `json:"threshold_value"`
	Confidence      float64  `json:"confidence_score"`
	Rationale       string   `json:"rationale"`
	Recommendations []string `json:"recommendations"`
}

// ConstraintEntry is one machine-readable constraint suitable for a
// downstream scheduling optimizer.
type ConstraintEntry struct {
	ID          string  `json:"id"`
	Type        string  `json:"type"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Priority    int     `json:"priority"`
	Confidence  float64 `json:"confidence"`
}

// MachineReadable groups constraints by strength for downstream consumers.
type MachineReadable struct {
	HardConstraints []ConstraintEntry `json:"hard_constraints"`
	SoftConstraints []ConstraintEntry `json:"soft_constraints"`
	Preferences     []ConstraintEntry `json:"preferences"`
}

// HumanReadable presents discovered rules grouped by analysis category and
// banded by confidence.
type HumanReadable struct {
	Categories      map[string][]string `json:"categories"`
	HighConfidence  []string            `json:"high_confidence"`
	MediumConfidence []string           `json:"medium_confidence"`
	NeedsReview     []string            `json:"requires_verification"`
}

// ResultBundle is the complete output of one analysis run.
type ResultBundle struct {
	Rules               []Rule          `json:"rules"`
	HumanReadable       HumanReadable   `json:"human_readable"`
	MachineReadable     MachineReadable `json:"machine_readable"`
	RuleCount           int             `json:"rule_count"`
	HighConfidenceRules []Rule          `json:"high_confidence_rules"`
	Diagnostics         []string        `json:"diagnostics,omitempty"`
}

// WeekdayNames maps the Monday-based weekday index to its English name.
var WeekdayNames = [7]string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

// WeekdayName returns the name for a Monday-based weekday index.
func WeekdayName(idx int) string {
	if idx < 0 || idx > 6 {
		return fmt.Sprintf("weekday(%d)", idx)
	}
	return WeekdayNames[idx]
}
