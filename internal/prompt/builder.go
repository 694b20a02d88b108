// Package prompt builds the role-conditioned system and user texts sent to
// the text generation backend. Building is a pure function of (role, payload);
// identical inputs yield byte-identical output, which keeps generation
// variance down and is relied on by tests.
package prompt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/opensource-finance/capintel/internal/domain"
)

// Prompt holds the two texts of one chat-completions call.
type Prompt struct {
	System string
	User   string
}

// commonPreamble is textually identical across all roles. Stability across
// audiences reduces output variance.
const commonPreamble = "You are CAPINTEL, a controlled natural-language explanation renderer.\n" +
	"You MUST only use the fields provided in the JSON payload.\n" +
	"Do NOT infer any new features, do NOT access external data, do NOT browse.\n" +
	"Do NOT override or reinterpret the decision; treat it as final.\n" +
	"Be deterministic and concise.\n"

// variant holds the role-specific instruction block and user-message shape.
type variant struct {
	system string
	user   string // format string taking the payload block
}

var roleVariants = map[domain.Role]variant{
	domain.RoleCustomer: {
		system: "Audience: credit card applicant (customer).\n" +
			"Tone: friendly, plain language, non-technical.\n" +
			"Do NOT mention ML, models, SHAP, XGBoost, algorithms, or attributions.\n" +
			"Do NOT reveal the numeric risk_score.\n" +
			"Include 2-4 concrete improvement suggestions based ONLY on the listed factors.\n" +
			"Avoid guarantees; do not promise approval.\n" +
			"Output format: a short paragraph, then a bulleted list of suggestions.\n",
		user: "Using ONLY this payload, explain the decision and key reasons in customer-friendly terms.\nPayload:\n%s\n",
	},
	domain.RoleSupport: {
		system: "Audience: support agent assisting a customer.\n" +
			"Tone: structured and concise.\n" +
			"You MAY include the numeric risk_score.\n" +
			"List key drivers exactly as given (no new ones).\n" +
			"Provide talking points and 1-3 suggestions aligned to the factors.\n" +
			"Output format:\n" +
			"- Decision: ...\n- Risk score: ...\n- Key factors (negative): ...\n- Key factors (positive): ...\n- Talking points: ...\n- Suggestions: ...\n",
		user: "Generate a support-agent explanation from this payload:\n%s\n",
	},
	domain.RoleCompliance: {
		system: "Audience: compliance auditor.\n" +
			"Tone: formal, factual, audit-log ready.\n" +
			"No speculative language. No recommendations beyond what follows from the payload.\n" +
			"You MAY include the numeric risk_score.\n" +
			"Output format: a short formal note with labeled fields.\n",
		user: "Create an audit-ready explanation using ONLY the payload fields.\nPayload:\n%s\n",
	},
}

// Build renders the system and user texts for one role and payload.
func Build(role domain.Role, payload *domain.FrozenDecisionPayload) (Prompt, error) {
	v, ok := roleVariants[role]
	if !ok {
		return Prompt{}, fmt.Errorf("%w: %q", domain.ErrUnsupportedRole, role)
	}

	return Prompt{
		System: commonPreamble + v.system,
		User:   fmt.Sprintf(v.user, FormatPayload(payload)),
	}, nil
}

// FormatPayload renders the payload as a stable textual block: the score is
// fixed at two decimals and lists preserve input order, so identical payloads
// always produce identical bytes.
func FormatPayload(p *domain.FrozenDecisionPayload) string {
	var b strings.Builder
	b.WriteString("{\n")
	fmt.Fprintf(&b, "  %q: %q,\n", "decision", string(p.Decision))
	fmt.Fprintf(&b, "  %q: %s,\n", "risk_score", strconv.FormatFloat(p.RiskScore, 'f', 2, 64))
	fmt.Fprintf(&b, "  %q: %s,\n", "thin_file_flag", strconv.FormatBool(p.ThinFileFlag))
	fmt.Fprintf(&b, "  %q: %s,\n", "top_negative", formatFactors(p.TopNegative))
	fmt.Fprintf(&b, "  %q: %s\n", "top_positive", formatFactors(p.TopPositive))
	b.WriteString("}")
	return b.String()
}

// formatFactors renders a factor list as an ordered JSON-style array.
func formatFactors(factors []string) string {
	if len(factors) == 0 {
		return "[]"
	}
	quoted := make([]string, len(factors))
	for i, f := range factors {
		quoted[i] = strconv.Quote(f)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
