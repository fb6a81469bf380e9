package model

import "github.com/dev-mohitbeniwal/gatekeeper/api/model"

// ReasonNoPolicyMatched is the reason attached to the default deny.
const ReasonNoPolicyMatched = "no policy matched"

type Decision struct {
	Effect     model.Effect `json:"effect"`
	PolicyID   string       `json:"policy_id,omitempty"`
	PolicyName string       `json:"policy_name,omitempty"`
	Reason     string       `json:"reason,omitempty"`
}

func (d Decision) Allowed() bool {
	return d.Effect == model.EffectAllow
}
