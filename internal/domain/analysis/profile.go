package analysis

import (
	"strings"

	"github.com/okian/docrisk/internal/domain/forensics"
)

// Skip reasons recorded on categories that were not assessed.
const (
	SkipDisabled    = "disabled for document type"
	SkipUndecodable = "document could not be decoded as an image"
)

// Profile selects which categories run for a document type. Visual covers
// manipulation and print patterns.
type Profile struct {
	Enabled     bool
	Consistency bool
	Visual      bool
	Metadata    bool
	Signatures  bool
	Quality     bool
}

// FullProfile enables every category.
func FullProfile() Profile {
	return Profile{Enabled: true, Consistency: true, Visual: true, Metadata: true, Signatures: true, Quality: true}
}

// ProfileFunc resolves the profile of a document type.
type ProfileFunc func(documentType string) Profile

// StaticProfiles resolves profiles from a map keyed by lower-case type.
// Unknown types get FullProfile.
func StaticProfiles(m map[string]Profile) ProfileFunc {
	return func(documentType string) Profile {
		if p, ok := m[strings.ToLower(strings.TrimSpace(documentType))]; ok {
			return p
		}
		return FullProfile()
	}
}

func (p Profile) runs(category string) bool {
	switch category {
	case forensics.CategoryConsistency:
		return p.Consistency
	case forensics.CategoryManipulation, forensics.CategoryPatterns:
		return p.Visual
	case forensics.CategorySignatures:
		return p.Signatures
	case forensics.CategoryQuality:
		return p.Quality
	}
	return false
}
