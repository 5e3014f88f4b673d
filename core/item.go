package core

import "encoding/json"

// NoCategory is the category of items that do not declare one.
const NoCategory = -1

// EvaluationItem is one held-out question. Answer and AdversarialAnswer are
// passed through verbatim, so they keep whatever JSON scalar the dataset
// uses.
type EvaluationItem struct {
	Question          string   `json:"question"`
	Answer            any      `json:"answer"`
	Category          int      `json:"category"`
	Evidence          []string `json:"evidence"`
	AdversarialAnswer any      `json:"adversarial_answer"`
}

// UnmarshalJSON decodes an item applying defaults for absent fields.
func (e *EvaluationItem) UnmarshalJSON(data []byte) error {
	type plain EvaluationItem
	p := plain{
		Answer:            "",
		Category:          NoCategory,
		Evidence:          []string{},
		AdversarialAnswer: "",
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if p.Answer == nil {
		p.Answer = ""
	}
	if p.AdversarialAnswer == nil {
		p.AdversarialAnswer = ""
	}
	if p.Evidence == nil {
		p.Evidence = []string{}
	}
	*e = EvaluationItem(p)
	return nil
}

// MatchesCategory reports whether the item passes an optional filter. A nil
// filter admits everything.
func (e EvaluationItem) MatchesCategory(filter *int) bool {
	return filter == nil || e.Category == *filter
}
