// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package draft renders a finished paper for reading and citing: a Markdown
// document with the outline, per-section sources and citations, and a BibTeX
// file with one entry per fetched reference.
package draft

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/pdiddy/paper-writer/pkg/types"
)

// keyUnsafe matches characters BibTeX does not accept in an entry key.
var keyUnsafe = regexp.MustCompile(`[^A-Za-z0-9_:.-]+`)

var bibEscaper = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	"{", `\{`,
	"}", `\}`,
	"%", `\%`,
	"&", `\&`,
	"#", `\#`,
	"$", `\$`,
	"_", `\_`,
)

// CitationKeys assigns each reference a unique citation key derived from its
// label, keyed by locator. Repeated labels get a numeric suffix in document
// order: paper, paper-2, paper-3.
func CitationKeys(p *types.Paper) map[string]string {
	keys := make(map[string]string, len(p.References))
	used := make(map[string]int)
	for _, ref := range p.References {
		if _, ok := keys[ref.Locator]; ok {
			continue
		}
		base := keyUnsafe.ReplaceAllString(ref.Label, "-")
		base = strings.Trim(base, "-")
		if base == "" {
			base = "ref"
		}
		used[base]++
		key := base
		if n := used[base]; n > 1 {
			key = base + "-" + strconv.Itoa(n)
		}
		keys[ref.Locator] = key
	}
	return keys
}

// Uncited returns the locators of fetched references with no successful
// citation, in reference order.
func Uncited(p *types.Paper) []string {
	cited := make(map[string]bool, len(p.Citations))
	for _, c := range p.Citations {
		if c.Failure == nil && strings.TrimSpace(c.Citation) != "" {
			cited[c.Locator] = true
		}
	}
	var missing []string
	for _, ref := range p.References {
		if ref.OK() && !cited[ref.Locator] {
			missing = append(missing, ref.Locator)
		}
	}
	return missing
}

// Markdown writes p as a Markdown document.
func Markdown(w io.Writer, p *types.Paper) error {
	keys := CitationKeys(p)
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", p.Title)
	if p.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", p.Description)
	}

	if len(p.Outline) > 0 {
		b.WriteString("## Outline\n\n")
		for i, s := range p.Outline {
			fmt.Fprintf(&b, "%d. **%s**", i+1, s.Title)
			if s.Description != "" {
				fmt.Fprintf(&b, ": %s", s.Description)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(p.Searches) > 0 {
		b.WriteString("## Sources by section\n\n")
		for _, s := range p.Searches {
			fmt.Fprintf(&b, "### %s\n\n", s.Section)
			switch {
			case s.Failure != nil:
				fmt.Fprintf(&b, "_Search failed: %s_\n\n", s.Failure)
			case len(s.Locators) == 0:
				b.WriteString("_No sources found._\n\n")
			default:
				for _, loc := range s.Locators {
					fmt.Fprintf(&b, "- [%s] <%s>\n", keys[loc], loc)
				}
				b.WriteString("\n")
			}
		}
	}

	if len(p.Citations) > 0 {
		b.WriteString("## Citations\n\n")
		for _, c := range p.Citations {
			key := keys[c.Locator]
			if key == "" {
				key = c.Label
			}
			if c.Failure != nil {
				fmt.Fprintf(&b, "**[%s]** <%s>: _no citation (%s)_\n\n", key, c.Locator, c.Failure)
				continue
			}
			fmt.Fprintf(&b, "**[%s]** <%s>\n\n", key, c.Locator)
			for _, line := range strings.Split(strings.TrimSpace(c.Citation), "\n") {
				fmt.Fprintf(&b, "> %s\n", line)
			}
			b.WriteString("\n")
		}
	}

	if len(p.References) > 0 {
		b.WriteString("## References\n\n")
		for i, ref := range p.References {
			fmt.Fprintf(&b, "%d. [%s] <%s>", i+1, keys[ref.Locator], ref.Locator)
			if !ref.OK() && ref.Outcome.Failure != nil {
				fmt.Fprintf(&b, " (unavailable: %s)", ref.Outcome.Failure.Kind)
			}
			b.WriteString("\n")
		}
	}

	_, err := io.WriteString(w, strings.TrimRight(b.String(), "\n")+"\n")
	return err
}

// BibTeX produces one @misc entry per fetched reference. A successful
// citation becomes the entry's note.
func BibTeX(p *types.Paper) string {
	keys := CitationKeys(p)
	notes := make(map[string]string, len(p.Citations))
	for _, c := range p.Citations {
		if c.Failure == nil && c.Citation != "" {
			notes[c.Locator] = strings.Join(strings.Fields(c.Citation), " ")
		}
	}

	var b strings.Builder
	for _, ref := range p.References {
		if !ref.OK() {
			continue
		}
		fmt.Fprintf(&b, "@misc{%s,\n", keys[ref.Locator])
		fmt.Fprintf(&b, "  title = {%s},\n", bibEscaper.Replace(ref.Label))
		fmt.Fprintf(&b, "  howpublished = {\\url{%s}},\n", ref.Locator)
		if note, ok := notes[ref.Locator]; ok {
			fmt.Fprintf(&b, "  note = {%s},\n", bibEscaper.Replace(note))
		}
		if !p.CreatedAt.IsZero() {
			fmt.Fprintf(&b, "  urldate = {%s},\n", p.CreatedAt.Format("2006-01-02"))
		}
		b.WriteString("}\n\n")
	}
	return b.String()
}
