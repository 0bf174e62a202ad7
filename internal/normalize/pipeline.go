// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package normalize cleans extracted reference text through a fixed
// sequence of stages: markup residue, encoding repair, whitespace and
// character filtering, CJK punctuation, and a final scrub of contact
// details. The composed transformation is idempotent.
package normalize

import (
	"strings"
	"unicode/utf8"
)

// maxPasses bounds the fixpoint loop in Apply. Every pass after the first
// only removes characters, so convergence takes a handful of passes.
const maxPasses = 32

// Stage is one named text transformation.
type Stage struct {
	Name  string
	Apply func(string) string
}

// Stages returns the normalization stages in the order Apply runs them.
func Stages() []Stage {
	return []Stage{
		{Name: "markup", Apply: MarkupResidue},
		{Name: "encoding", Apply: EncodingRepair},
		{Name: "whitespace", Apply: Whitespace},
		{Name: "cjk", Apply: CJK},
		{Name: "scrub", Apply: Scrub},
	}
}

// Apply runs the stage sequence until the text stops changing. Removing a
// span in a later stage can expose work for an earlier one (two spaces
// meeting, a repeated mark), so a single pass is not idempotent on its own.
func Apply(text string) string {
	stages := Stages()
	out := text
	for range maxPasses {
		next := out
		for _, s := range stages {
			next = s.Apply(next)
		}
		if next == out {
			return out
		}
		out = next
	}
	return out
}

// Finalize normalizes text and caps the result at maxRunes characters.
// The result is a fixed point of Apply and never exceeds the cap. A
// non-positive maxRunes disables the cap.
func Finalize(text string, maxRunes int) string {
	out := Apply(Truncate(text, maxRunes))
	if maxRunes <= 0 {
		return out
	}
	for range maxPasses {
		if utf8.RuneCountInString(out) <= maxRunes {
			return out
		}
		out = Apply(Truncate(out, maxRunes))
	}
	return strings.TrimSpace(Truncate(out, maxRunes))
}

// Truncate returns the first maxRunes characters of s. It never splits a
// UTF-8 sequence. A non-positive maxRunes returns s unchanged.
func Truncate(s string, maxRunes int) string {
	if maxRunes <= 0 || len(s) <= maxRunes {
		return s
	}
	n := 0
	for i := range s {
		if n == maxRunes {
			return s[:i]
		}
		n++
	}
	return s
}

// StageOutput is the text after one stage of a traced run.
type StageOutput struct {
	Stage string
	Text  string
}

// Trace runs one pass of the stage sequence and records the output of
// every stage. The last entry is the single-pass result, which may differ
// from Apply when a second pass still has work to do.
func Trace(text string) []StageOutput {
	stages := Stages()
	out := make([]StageOutput, 0, len(stages))
	for _, s := range stages {
		text = s.Apply(text)
		out = append(out, StageOutput{Stage: s.Name, Text: text})
	}
	return out
}
