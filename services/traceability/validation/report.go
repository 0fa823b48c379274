// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package validation

import (
	"time"

	"github.com/AleutianAI/reqgraph/services/traceability/model"
)

// Report is the outcome of a validation run.
type Report struct {
	// RunID correlates the report with its log lines.
	RunID string `json:"run_id"`

	// Issues are all findings in rule order.
	Issues []Issue `json:"issues"`

	// ItemsChecked is the number of artifacts examined.
	ItemsChecked int `json:"items_checked"`

	// RelationshipsChecked is the number of graph edges examined.
	RelationshipsChecked int `json:"relationships_checked"`

	// ItemsByType counts the examined artifacts per type.
	ItemsByType map[model.ArtifactType]int `json:"items_by_type"`

	// Duration is the wall time of the run.
	Duration time.Duration `json:"duration_ns"`
}

// IsValid reports whether the report has no errors.
func (r *Report) IsValid() bool {
	return r.ErrorCount() == 0
}

// ErrorCount returns the number of SeverityError issues.
func (r *Report) ErrorCount() int {
	n := 0
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			n++
		}
	}
	return n
}

// WarningCount returns the number of SeverityWarning issues.
func (r *Report) WarningCount() int {
	return len(r.Issues) - r.ErrorCount()
}

// Errors returns the SeverityError issues in order.
func (r *Report) Errors() []Issue {
	return r.bySeverity(SeverityError)
}

// Warnings returns the SeverityWarning issues in order.
func (r *Report) Warnings() []Issue {
	return r.bySeverity(SeverityWarning)
}

// ByCode returns the issues with the given code in order.
func (r *Report) ByCode(code Code) []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Code == code {
			out = append(out, i)
		}
	}
	return out
}

func (r *Report) bySeverity(s Severity) []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity == s {
			out = append(out, i)
		}
	}
	return out
}

// Merge appends other's issues and takes the larger counts. The run id and
// type counts of r are kept unless r has none.
func (r *Report) Merge(other *Report) {
	if other == nil {
		return
	}
	r.Issues = append(r.Issues, other.Issues...)
	r.ItemsChecked = max(r.ItemsChecked, other.ItemsChecked)
	r.RelationshipsChecked = max(r.RelationshipsChecked, other.RelationshipsChecked)
	if len(r.ItemsByType) == 0 {
		r.ItemsByType = other.ItemsByType
	}
	if r.RunID == "" {
		r.RunID = other.RunID
	}
	r.Duration += other.Duration
}
