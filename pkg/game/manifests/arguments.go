package manifests

import (
	"encoding/json"
	"fmt"
)

// Arguments is the modern descriptor argument block. Only a loader
// profile's own block is used at launch; the base game arguments are
// built by the launcher.
type Arguments struct {
	Game []Argument `json:"game,omitempty"`
	JVM  []Argument `json:"jvm,omitempty"`
}

// Argument is either a plain string or a rule-gated value list.
type Argument struct {
	Values []string
	Rules  []Rule
}

func (a *Argument) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		a.Values = []string{s}
		return nil
	}

	var gated struct {
		Rules []Rule          `json:"rules"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &gated); err != nil {
		return err
	}
	a.Rules = gated.Rules

	if err := json.Unmarshal(gated.Value, &s); err == nil {
		a.Values = []string{s}
		return nil
	}
	if err := json.Unmarshal(gated.Value, &a.Values); err != nil {
		return fmt.Errorf("argument value must be a string or a list of strings: %w", err)
	}
	return nil
}

func (a Argument) MarshalJSON() ([]byte, error) {
	if len(a.Rules) == 0 && len(a.Values) == 1 {
		return json.Marshal(a.Values[0])
	}
	return json.Marshal(struct {
		Rules []Rule   `json:"rules,omitempty"`
		Value []string `json:"value"`
	}{a.Rules, a.Values})
}
