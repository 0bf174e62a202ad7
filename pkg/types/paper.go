// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the paper-writer pipeline:
// the Paper document and its outline, per-section search text, fetched
// references, citation records, failures, and stage configuration.
package types

import "time"

// OutlineSection is one section of the paper outline, in document order.
// Sections are produced by the outline stage and never modified afterwards.
type OutlineSection struct {
	// Title is the section heading (e.g. "Literature Review").
	Title string `json:"title" yaml:"title"`

	// Description is free-form text describing what the section covers.
	Description string `json:"description" yaml:"description"`
}

// String renders the section the way the search prompt expects it.
func (s OutlineSection) String() string {
	if s.Description == "" {
		return s.Title
	}
	return s.Title + ": " + s.Description
}

// SectionSearch is the raw text the search collaborator returned for one
// outline section, together with the locators found in it.
type SectionSearch struct {
	// Section is the outline section title the search was run for.
	Section string `json:"section" yaml:"section"`

	// Text is the free-form search response.
	Text string `json:"text" yaml:"text"`

	// Locators lists the URLs extracted from Text in left-to-right order.
	Locators []string `json:"locators" yaml:"locators"`

	// Failure is set when the search collaborator failed for this section.
	Failure *Failure `json:"failure,omitempty" yaml:"failure,omitempty"`
}

// Reference is one deduplicated locator after fetching and normalization.
type Reference struct {
	// Locator is the source URL exactly as extracted.
	Locator string `json:"locator" yaml:"locator"`

	// Label is a short filesystem-safe name derived from the locator.
	Label string `json:"label" yaml:"label"`

	// Outcome is the fetch result for Locator.
	Outcome FetchOutcome `json:"outcome" yaml:"outcome"`

	// Text is the normalized content. Empty when the fetch failed.
	Text string `json:"text,omitempty" yaml:"text,omitempty"`
}

// OK reports whether the reference was fetched and normalized successfully.
func (r Reference) OK() bool {
	return r.Outcome.Kind == OutcomeSuccess
}

// CitationRecord pairs a reference with the citation text generated for it.
type CitationRecord struct {
	Locator  string   `json:"locator" yaml:"locator"`
	Label    string   `json:"label" yaml:"label"`
	Citation string   `json:"citation" yaml:"citation"`
	Failure  *Failure `json:"failure,omitempty" yaml:"failure,omitempty"`
}

// Paper is the document being drafted. Stages fill fields in order:
// Description, Outline, Searches/Locators/References, Citations.
type Paper struct {
	// RunID identifies one execution of the pipeline.
	RunID string `json:"run_id,omitempty" yaml:"run_id,omitempty"`

	// Title is the paper title supplied by the user.
	Title string `json:"title" yaml:"title"`

	// Description starts as the user's seed description and is replaced by
	// the expanded description.
	Description string `json:"description" yaml:"description"`

	// Outline lists the paper sections in document order.
	Outline []OutlineSection `json:"outline,omitempty" yaml:"outline,omitempty"`

	// Searches holds one entry per outline section.
	Searches []SectionSearch `json:"searches,omitempty" yaml:"searches,omitempty"`

	// Locators is the deduplicated locator list across all sections.
	Locators []string `json:"locators,omitempty" yaml:"locators,omitempty"`

	// References is parallel to Locators.
	References []Reference `json:"references,omitempty" yaml:"references,omitempty"`

	// Citations is parallel to References.
	Citations []CitationRecord `json:"citations,omitempty" yaml:"citations,omitempty"`

	// CreatedAt is when the run started.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}
