package rules

// OrganizationType identifies the kind of organization a rule belongs to.
// It is fixed at rule-creation time and determines which category vocabulary
// is valid for the rule.
type OrganizationType string

const (
	OrgEnterprise           OrganizationType = "enterprise"
	OrgGovernment           OrganizationType = "government"
	OrgFinancialInstitution OrganizationType = "financial-institution"
	OrgHealthcare           OrganizationType = "healthcare"
	OrgEducation            OrganizationType = "education"
)

// IsValid returns true if the organization type is one of the known values.
func (o OrganizationType) IsValid() bool {
	switch o {
	case OrgEnterprise, OrgGovernment, OrgFinancialInstitution, OrgHealthcare, OrgEducation:
		return true
	}
	return false
}

// RuleCategory is a string tag scoped per organization type
// (e.g. "payment-approval" for enterprise, "budget-controls" for government).
type RuleCategory string

// categoryVocabulary is the static compatibility table between organization
// types and rule categories. Checked once at rule creation, never re-derived
// at evaluation time.
var categoryVocabulary = map[OrganizationType][]RuleCategory{
	OrgEnterprise: {
		"payment-approval",
		"expense-management",
		"vendor-management",
		"compliance-checks",
		"budget-controls",
		"spending-limits",
	},
	OrgGovernment: {
		"budget-controls",
		"procurement-rules",
		"grant-management",
		"regulatory-compliance",
		"audit-requirements",
	},
	OrgFinancialInstitution: {
		"trading-limits",
		"risk-management",
		"aml-compliance",
		"credit-approval",
		"regulatory-reporting",
		"treasury-controls",
		"settlement-rules",
	},
	OrgHealthcare: {
		"hipaa-compliance",
		"prior-authorization",
		"billing-rules",
		"clinical-protocols",
		"insurance-verification",
	},
	OrgEducation: {
		"financial-aid",
		"enrollment-rules",
		"research-grants",
		"student-accounts",
		"academic-policies",
	},
}

// blockingCategories are the categories whose rules gate money movement.
// When a rule in one of these categories cannot be evaluated to completion,
// the engine escalates instead of approving.
var blockingCategories = map[RuleCategory]bool{
	"payment-approval":      true,
	"spending-limits":       true,
	"treasury-controls":     true,
	"regulatory-compliance": true,
	"risk-management":       true,
	"aml-compliance":        true,
	"trading-limits":        true,
	"credit-approval":       true,
	"budget-controls":       true,
}

// CategoryAllowed reports whether the category belongs to the vocabulary of
// the given organization type.
func CategoryAllowed(org OrganizationType, category RuleCategory) bool {
	for _, c := range categoryVocabulary[org] {
		if c == category {
			return true
		}
	}
	return false
}

// Categories returns the category vocabulary for an organization type.
// The returned slice is a copy.
func Categories(org OrganizationType) []RuleCategory {
	vocab := categoryVocabulary[org]
	out := make([]RuleCategory, len(vocab))
	copy(out, vocab)
	return out
}

// IsBlockingCategory reports whether rules in this category gate financial
// operations and therefore carry the engine's escalation bias on failure.
func IsBlockingCategory(category RuleCategory) bool {
	return blockingCategories[category]
}
