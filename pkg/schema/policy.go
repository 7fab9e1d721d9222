package schema

// PolicyProfile controls how sensitive-action confirmation is enforced.
type PolicyProfile string

const (
	// PolicyStrict only accepts the prepare/confirm token flow for sensitive
	// actions; an inline confirmed flag is rejected outright.
	PolicyStrict PolicyProfile = "strict"
	// PolicyBalanced honors the caller-supplied confirmed flag as-is.
	PolicyBalanced PolicyProfile = "balanced"
	// PolicyTrusted auto-confirms every sensitive action.
	PolicyTrusted PolicyProfile = "trusted"
)

// ParsePolicyProfile validates and normalizes a profile string.
func ParsePolicyProfile(s string) (PolicyProfile, error) {
	switch PolicyProfile(s) {
	case PolicyStrict, PolicyBalanced, PolicyTrusted:
		return PolicyProfile(s), nil
	}
	return "", NewErrorf(ErrCodeValidation, "unknown policy profile %q (expected strict, balanced or trusted)", s)
}
