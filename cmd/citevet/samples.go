package main

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/citevet/citevet/strategy"
)

// Sample strategy patterns. APA citations carry an author segment followed
// by a parenthesized year; MLA citations carry a quoted title and a bare
// publication year.
var (
	apaAuthor = regexp.MustCompile(`^[A-Z][^()]*?,`)
	apaYear   = regexp.MustCompile(`\((1[5-9]|20)\d{2}[a-z]?\)`)
	mlaTitle  = regexp.MustCompile(`"[^"]+[.?!]"`)
	mlaYear   = regexp.MustCompile(`\b(1[5-9]|20)\d{2}\b`)
)

// sampleStrategy is a pattern heuristic covering one citation format. Real
// deployments register strategies from their own packages; these exist so
// the binary works out of the box and the registry can be exercised end to
// end without extra wiring.
type sampleStrategy struct {
	descriptor strategy.Descriptor
	required   []*regexp.Regexp
	complaint  string
}

func (s *sampleStrategy) FormatName() string { return s.descriptor.Name }

func (s *sampleStrategy) FormatVersion() string { return s.descriptor.Version }

func (s *sampleStrategy) SupportedTypes() []string {
	return slices.Clone(s.descriptor.SupportedTypes)
}

// Validate checks each citation against every required pattern. Confidence
// is the matching fraction; the batch is valid only when every citation
// matches.
func (s *sampleStrategy) Validate(ctx context.Context, citations []string) (*strategy.Result, error) {
	result := &strategy.Result{
		FormatName:     s.descriptor.Name,
		TotalCitations: len(citations),
	}

	for _, citation := range citations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s.matches(citation) {
			result.ValidCitations++
			continue
		}
		result.Errors = append(result.Errors,
			fmt.Sprintf("%s: %s", s.complaint, clip(citation)))
	}

	if result.TotalCitations > 0 {
		result.Confidence = float64(result.ValidCitations) / float64(result.TotalCitations)
	}
	result.IsValid = result.TotalCitations > 0 && result.ValidCitations == result.TotalCitations
	return result, nil
}

func (s *sampleStrategy) matches(citation string) bool {
	for _, pattern := range s.required {
		if !pattern.MatchString(citation) {
			return false
		}
	}
	return true
}

// sampleFactory closes over one sample's configuration. The closure lives in
// package main, which the registry's origin check accepts.
func sampleFactory(descriptor strategy.Descriptor, required []*regexp.Regexp, complaint string) strategy.Factory {
	return func() (strategy.FormatStrategy, error) {
		return &sampleStrategy{
			descriptor: descriptor,
			required:   required,
			complaint:  complaint,
		}, nil
	}
}

// registerSampleStrategies installs the built-in APA and MLA heuristics. APA
// gets the higher priority so detection ties break toward it.
func registerSampleStrategies(registry *strategy.Registry) error {
	apa := strategy.Descriptor{
		Name:           "apa",
		Version:        "7",
		SupportedTypes: []string{"journal", "book", "chapter"},
	}
	mla := strategy.Descriptor{
		Name:           "mla",
		Version:        "9",
		SupportedTypes: []string{"journal", "book", "web"},
	}

	registrations := []strategy.Registration{
		{
			Descriptor: apa,
			Factory: sampleFactory(apa,
				[]*regexp.Regexp{apaAuthor, apaYear},
				"author-year marker not found"),
			Priority: 60,
			Enabled:  true,
		},
		{
			Descriptor: mla,
			Factory: sampleFactory(mla,
				[]*regexp.Regexp{mlaTitle, mlaYear},
				"quoted title not found"),
			Priority: 50,
			Enabled:  true,
		},
	}

	for _, registration := range registrations {
		if err := registry.RegisterWithReason(registration); err != nil {
			return fmt.Errorf("register %s: %w", registration.Descriptor.Name, err)
		}
	}
	return nil
}

// clip bounds a citation echoed into an error message.
func clip(citation string) string {
	const max = 60
	if len(citation) <= max {
		return citation
	}
	cut := citation[:max]
	if i := strings.LastIndexByte(cut, ' '); i > max/2 {
		cut = cut[:i]
	}
	return cut + "..."
}
