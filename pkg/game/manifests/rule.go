package manifests

import (
	"encoding/json"
	"fmt"
)

type RuleAction string

const (
	ActionAllow    RuleAction = "allow"
	ActionDisallow RuleAction = "disallow"
)

// UnmarshalJSON rejects actions other than allow and disallow so a bad
// rule fails at parse time instead of being silently ignored.
func (a *RuleAction) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch RuleAction(s) {
	case ActionAllow, ActionDisallow:
		*a = RuleAction(s)
		return nil
	}
	return fmt.Errorf("unknown rule action %q", s)
}

type OSConstraint struct {
	Name    string `json:"name,omitempty"`
	Arch    string `json:"arch,omitempty"`
	Version string `json:"version,omitempty"`
}

type Rule struct {
	Action   RuleAction      `json:"action"`
	OS       *OSConstraint   `json:"os,omitempty"`
	Features map[string]bool `json:"features,omitempty"`
}
