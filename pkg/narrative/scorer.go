package narrative

import (
	"math"
	"strings"

	"github.com/ekaya-inc/inspection-engine/pkg/models"
)

// Scoring weights. These are fixed; ranking must be reproducible across deployments.
const (
	KeywordWeight      = 0.6
	ComponentBoost     = 0.2
	SeverityBoost      = 0.1
	TagBoost           = 0.05
	MaxTagBoost        = 0.2
	PopularityPerUse   = 0.01
	MaxPopularityBoost = 0.1
)

// FindingText is the part of a finding the scorer looks at.
type FindingText struct {
	Title       string
	Summary     string
	Severity    models.FindingSeverity
	SectionName string
}

// FindingTextOf extracts the scoring input from a finding.
func FindingTextOf(f *models.Finding) FindingText {
	return FindingText{
		Title:       f.Title,
		Summary:     f.Summary,
		Severity:    f.Severity,
		SectionName: f.SectionName,
	}
}

// Score rates how well template fits finding, in [0, 1].
//
//	keyword overlap  0.6 * |F∩T| / max(|F|, |T|)   (F, T: lower-cased whitespace token sets)
//	component        +0.2 when the template component occurs in the finding text
//	severity         +0.1 when severities are equal
//	tags             +0.05 per tag found in the finding text, at most 0.2
//	popularity       +min(useCount*0.01, 0.1)
//
// The sum is capped at 1.0.
func Score(finding FindingText, template *models.NarrativeTemplate) float64 {
	findingText := strings.ToLower(finding.Title + " " + finding.Summary)
	findingTokens := tokenSet(findingText)
	templateTokens := tokenSet(strings.ToLower(template.Title + " " + template.Body))

	score := KeywordWeight * overlap(findingTokens, templateTokens)

	if template.Component != "" && strings.Contains(findingText, strings.ToLower(template.Component)) {
		score += ComponentBoost
	}

	if template.Severity != "" && template.Severity == finding.Severity {
		score += SeverityBoost
	}

	tagScore := 0.0
	for _, tag := range template.Tags {
		if tag == "" {
			continue
		}
		if strings.Contains(findingText, strings.ToLower(tag)) {
			tagScore += TagBoost
		}
	}
	score += math.Min(tagScore, MaxTagBoost)

	score += math.Min(float64(template.UseCount)*PopularityPerUse, MaxPopularityBoost)

	return math.Min(score, 1.0)
}

func tokenSet(text string) map[string]struct{} {
	fields := strings.Fields(text)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// overlap is |a∩b| / max(|a|, |b|). Two empty sets overlap by 0.
func overlap(a, b map[string]struct{}) float64 {
	denom := len(a)
	if len(b) > denom {
		denom = len(b)
	}
	if denom == 0 {
		return 0
	}

	shared := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			shared++
		}
	}
	return float64(shared) / float64(denom)
}
