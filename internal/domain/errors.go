package domain

import "errors"

// Error kinds for the explanation pipeline. All four are terminal for the
// request; none are retried. The API layer maps the first three to client
// errors and ErrExternalService to a dependency error.
var (
	// ErrSchemaViolation means the payload failed validation or carried
	// fields outside the closed schema.
	ErrSchemaViolation = errors.New("payload schema violation")

	// ErrUnsupportedRole means the role is outside the closed enumeration.
	ErrUnsupportedRole = errors.New("unsupported role")

	// ErrPolicyViolation means generated customer-facing text matched the
	// forbidden-term filter. The offending text is never attached.
	ErrPolicyViolation = errors.New("generated explanation violated disclosure policy")

	// ErrExternalService wraps any failure from the text generation backend.
	ErrExternalService = errors.New("text generation backend failure")
)
