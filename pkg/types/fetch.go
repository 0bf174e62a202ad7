// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// ContentKind identifies which extractor produced a reference's text.
type ContentKind string

const (
	ContentHTML ContentKind = "html"
	ContentPDF  ContentKind = "pdf"
)

// FailureKind is the machine-readable category of a per-item failure.
type FailureKind string

const (
	// FailureExtractionEmpty means a search result contained no locators.
	// It is informational and never attached to a fetch outcome.
	FailureExtractionEmpty FailureKind = "extraction_empty"

	FailureFetchTimeout     FailureKind = "fetch_timeout"
	FailureFetchHTTP        FailureKind = "fetch_http"
	FailureFetchNetwork     FailureKind = "fetch_network"
	FailureFormatExtraction FailureKind = "format_extraction"

	// FailureEncoding is recovered by discarding bad bytes; it exists so
	// logs and metrics can name it.
	FailureEncoding FailureKind = "encoding"

	FailureCollaborator         FailureKind = "collaborator"
	FailureCollaboratorResponse FailureKind = "collaborator_response"

	// FailureCanceled marks items never attempted because the batch was
	// canceled.
	FailureCanceled FailureKind = "canceled"
)

// Failure is a typed per-item error. Kind is stable for programmatic checks;
// Detail is for humans.
type Failure struct {
	Kind   FailureKind `json:"kind" yaml:"kind"`
	Detail string      `json:"detail" yaml:"detail"`
}

// NewFailure builds a Failure with a formatted detail message.
func NewFailure(kind FailureKind, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

func (f *Failure) Error() string {
	return string(f.Kind) + ": " + f.Detail
}

// Is matches another *Failure with the same Kind, so errors.Is works against
// a kind-only template such as &Failure{Kind: FailureFetchHTTP}.
func (f *Failure) Is(target error) bool {
	t, ok := target.(*Failure)
	if !ok {
		return false
	}
	return t.Kind == f.Kind
}

// OutcomeKind tags a FetchOutcome.
type OutcomeKind string

const (
	OutcomeSuccess OutcomeKind = "success"
	OutcomeFailure OutcomeKind = "failure"
)

// FetchOutcome is the result of fetching one locator. When Kind is
// OutcomeSuccess, Content and ContentKind are set; otherwise Failure is set.
type FetchOutcome struct {
	Kind        OutcomeKind `json:"kind" yaml:"kind"`
	Locator     string      `json:"locator" yaml:"locator"`
	Content     string      `json:"-" yaml:"-"`
	ContentKind ContentKind `json:"content_kind,omitempty" yaml:"content_kind,omitempty"`
	Failure     *Failure    `json:"failure,omitempty" yaml:"failure,omitempty"`
}

// Succeeded builds a success outcome.
func Succeeded(locator, content string, kind ContentKind) FetchOutcome {
	return FetchOutcome{Kind: OutcomeSuccess, Locator: locator, Content: content, ContentKind: kind}
}

// Failed builds a failure outcome.
func Failed(locator string, f *Failure) FetchOutcome {
	return FetchOutcome{Kind: OutcomeFailure, Locator: locator, Failure: f}
}
