package access

import "resumeiq-backend/internal/domain/plans"

var (
	freeCaps = []Capability{BasicTemplates, ManualBuilder, PDFExport}

	proCaps = append(append([]Capability{}, freeCaps...),
		AIBulletPoints, AIOptimization, ATSScoring, PremiumTemplates, MultiFormat, EmailSupport)

	premiumCaps = append(append([]Capability{}, proCaps...),
		UnlimitedAI, AdvancedATS, LinkedInProfile, CoverLetter, InterviewPrep, PrioritySupport)
)

// CapabilitiesFor returns the capability set of a plan. Tiers are cumulative.
// Unknown plans get the free set.
func CapabilitiesFor(plan plans.ID) []Capability {
	var caps []Capability
	switch plan {
	case plans.Premium:
		caps = premiumCaps
	case plans.Pro:
		caps = proCaps
	default:
		caps = freeCaps
	}
	return append([]Capability(nil), caps...)
}

// Allows reports whether plan grants c.
func Allows(plan plans.ID, c Capability) bool {
	for _, have := range CapabilitiesFor(plan) {
		if have == c {
			return true
		}
	}
	return false
}

// Known reports whether c is a capability any plan can grant.
func Known(c Capability) bool {
	return Allows(plans.Premium, c)
}
