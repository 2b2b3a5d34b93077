package chunker

import (
	"regexp"
	"strings"

	"github.com/clinrag/clinrag/internal/parsedoc"
)

// Section groups the non-heading content that follows one heading.
// Sections are built in a single pass and never mutated afterwards.
type Section struct {
	Title string
	Level int
	// Type is the classified section category, or "" when the heading
	// matched no known pattern.
	Type  string
	Items []contentItem
}

// contentItem is one element of the flattened content stream: either a
// layout item or a page image, with its page context attached.
type contentItem struct {
	item   parsedoc.Item
	image  *parsedoc.Image
	page   int
	width  parsedoc.Dim
	height parsedoc.Dim
}

func (c contentItem) text() string {
	if c.image != nil {
		return strings.TrimSpace(strings.Join(nonEmpty(c.image.OCR), " "))
	}
	return c.item.Text
}

func nonEmpty(parts []string) []string {
	var out []string
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

type sectionPattern struct {
	re   *regexp.Regexp
	kind string
}

// Clinical, drug-information and guideline section headings. Order
// matters: the first matching pattern wins, so contraindications is
// checked before the bare "indication" it contains. Short clinical
// abbreviations are word-bounded so they don't fire inside ordinary
// words.
var sectionPatterns = []sectionPattern{
	{regexp.MustCompile(`chief\s+complaint|\bcc\b`), "chief_complaint"},
	{regexp.MustCompile(`history\s+of\s+present\s+illness|\bhpi\b`), "hpi"},
	{regexp.MustCompile(`past\s+medical\s+history|\bpmh\b`), "pmh"},
	{regexp.MustCompile(`medications?|\bmeds?\b`), "medications"},
	{regexp.MustCompile(`allergies?`), "allergies"},
	{regexp.MustCompile(`review\s+of\s+systems|\bros\b`), "ros"},
	{regexp.MustCompile(`physical\s+exam(?:ination)?|\bpe\b`), "physical_exam"},
	{regexp.MustCompile(`vital\s+signs?|vitals?`), "vital_signs"},
	{regexp.MustCompile(`lab(?:oratory)?\s+(?:results?|findings?|data)`), "lab_results"},
	{regexp.MustCompile(`imaging|radiology|x-?ray|\bct\b|\bmri\b`), "imaging"},
	{regexp.MustCompile(`assessment\s+(?:and|&)?\s+plan|a&p|a/p`), "assessment_plan"},
	{regexp.MustCompile(`diagnosis|diagnoses|\bdx\b`), "diagnosis"},
	{regexp.MustCompile(`impression`), "impression"},
	{regexp.MustCompile(`plan|treatment\s+plan`), "treatment_plan"},
	{regexp.MustCompile(`discharge\s+(?:summary|instructions?)`), "discharge"},
	{regexp.MustCompile(`follow[\s-]?up`), "followup"},
	{regexp.MustCompile(`contraindications?`), "contraindications"},
	{regexp.MustCompile(`indication`), "indication"},
	{regexp.MustCompile(`dosage?\s+(?:and\s+)?administration`), "dosage"},
	{regexp.MustCompile(`warnings?\s+(?:and\s+)?precautions?`), "warnings"},
	{regexp.MustCompile(`adverse\s+reactions?|side\s+effects?`), "adverse_reactions"},
	{regexp.MustCompile(`drug\s+interactions?`), "drug_interactions"},
	{regexp.MustCompile(`guidelines?`), "guideline"},
	{regexp.MustCompile(`protocols?`), "protocol"},
	{regexp.MustCompile(`recommendations?`), "recommendations"},
	{regexp.MustCompile(`inclusion\s+criteria`), "inclusion_criteria"},
	{regexp.MustCompile(`exclusion\s+criteria`), "exclusion_criteria"},
}

// ClassifySection maps a heading to its section category, or "" when
// no pattern matches.
func ClassifySection(heading string) string {
	h := strings.ToLower(strings.TrimSpace(heading))
	for _, p := range sectionPatterns {
		if p.re.MatchString(h) {
			return p.kind
		}
	}
	return ""
}

// SegmentSections walks the content stream in document order. Every
// heading of at least headingMinWords words closes the open section
// and starts a new one; shorter headings flow into the current section
// as content. Content with no preceding heading ends up in a synthetic
// level-0 "Document Content" section.
func SegmentSections(content []contentItem, headingMinWords int) []Section {
	var sections []Section
	var current *Section
	var pending []contentItem

	for _, c := range content {
		if c.image == nil && c.item.Type == parsedoc.ItemHeading && wordCount(c.item.Text) >= headingMinWords {
			if current != nil {
				current.Items = pending
				sections = append(sections, *current)
			}
			current = &Section{
				Title: c.item.Text,
				Level: c.item.Level,
				Type:  ClassifySection(c.item.Text),
			}
			pending = nil
			continue
		}
		pending = append(pending, c)
	}

	if current != nil {
		current.Items = pending
		sections = append(sections, *current)
	} else if len(pending) > 0 {
		sections = append(sections, Section{
			Title: "Document Content",
			Level: 0,
			Items: pending,
		})
	}
	return sections
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

// Context returns the prefix prepended to chunks built from this
// section's content.
func (s *Section) Context() string {
	return "[Section: " + s.Title + "]\n"
}
