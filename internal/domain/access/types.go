package access

// Capability is a stable tag for a gated product feature. Tags are matched
// exactly and never shown to users; plan feature text lives in the plans catalog.
type Capability string

const (
	BasicTemplates   Capability = "basic_templates"
	ManualBuilder    Capability = "manual_builder"
	PDFExport        Capability = "pdf_export"
	AIBulletPoints   Capability = "ai_bullet_points"
	AIOptimization   Capability = "ai_resume_optimization"
	ATSScoring       Capability = "ats_keyword_scoring"
	PremiumTemplates Capability = "premium_templates"
	MultiFormat      Capability = "multi_format_export"
	EmailSupport     Capability = "email_support"
	UnlimitedAI      Capability = "unlimited_ai_generations"
	AdvancedATS      Capability = "advanced_ats_optimization"
	LinkedInProfile  Capability = "linkedin_optimization"
	CoverLetter      Capability = "cover_letter_generator"
	InterviewPrep    Capability = "interview_prep"
	PrioritySupport  Capability = "priority_support"
)
