package snapshot

import "encoding/json"

// PlanKind discriminates the dominance plan variants.
type PlanKind int

const (
	// PlanNone means no plan is present; the UI renders a placeholder.
	PlanNone PlanKind = iota
	// PlanProtocol is the current protocol-shaped plan.
	PlanProtocol
	// PlanToken is the legacy token-launch plan.
	PlanToken
)

func (k PlanKind) String() string {
	switch k {
	case PlanNone:
		return "none"
	case PlanProtocol:
		return "protocol"
	case PlanToken:
		return "token"
	}
	return "?"
}

// PlanPhase is one execution phase in either plan variant.
type PlanPhase struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Actions     []string `json:"actions"`
}

// ProtocolPlan is the protocol-shaped plan. All fields except Mission are
// optional; missing ones render as omitted sections, never as errors.
type ProtocolPlan struct {
	Mission         string            `json:"mission"`
	Hypothesis      string            `json:"escape_hypothesis"`
	Phases          []PlanPhase       `json:"phases"`
	Hooks           []string          `json:"external_hooks"`
	RiskControls    []string          `json:"risk_controls"`
	SuccessCriteria []string          `json:"success_criteria"`
	Notes           []string          `json:"notes"`
	AgentConsensus  map[string]string `json:"agent_consensus"`
}

// TokenPlan is the legacy token-shaped plan.
type TokenPlan struct {
	TokenName      string            `json:"token_name"`
	Archetype      string            `json:"archetype"`
	RiskLevel      string            `json:"risk_level"`
	Timeline       string            `json:"estimated_timeline"`
	Phases         []PlanPhase       `json:"phases"`
	Tactics        []string          `json:"tactics"`
	ViralMechanics []string          `json:"viral_mechanics"`
	MemeConcepts   []string          `json:"meme_concepts"`
	KeyMessages    []string          `json:"key_messages"`
	TargetAudience []string          `json:"target_audience"`
	SuccessMetrics map[string]string `json:"success_metrics"`
}

// Plan is a tagged union over the plan shapes. Discrimination priority:
// protocol (explicit protocol tag or a mission) > token (token_name) > none.
type Plan struct {
	Kind     PlanKind
	Protocol *ProtocolPlan
	Token    *TokenPlan
}

// planWire is the superset carrying the discriminating fields.
type planWire struct {
	Protocol  string `json:"protocol"`
	Mission   string `json:"mission"`
	TokenName string `json:"token_name"`
}

// UnmarshalJSON classifies the plan and decodes only the active variant.
// JSON null and empty objects yield PlanNone.
func (p *Plan) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = Plan{Kind: PlanNone}
		return nil
	}

	var w planWire
	if err := json.Unmarshal(data, &w); err != nil {
		*p = Plan{Kind: PlanNone}
		return nil
	}

	switch {
	case w.Protocol == "dominance_protocol" || w.Mission != "":
		var pp ProtocolPlan
		if err := json.Unmarshal(data, &pp); err != nil {
			*p = Plan{Kind: PlanNone}
			return nil
		}
		*p = Plan{Kind: PlanProtocol, Protocol: &pp}
	case w.TokenName != "":
		var tp TokenPlan
		if err := json.Unmarshal(data, &tp); err != nil {
			*p = Plan{Kind: PlanNone}
			return nil
		}
		*p = Plan{Kind: PlanToken, Token: &tp}
	default:
		*p = Plan{Kind: PlanNone}
	}
	return nil
}
