package entity

import "fmt"

// Type is a closed enumeration of searchable record types.
// Each type carries its own lexical field-weight table so that
// exhaustiveness is checkable at construction rather than at call time.
type Type string

const (
	Accounts Type = "accounts"
	Contacts Type = "contacts"
	Leads    Type = "leads"
	Deals    Type = "deals"
)

// All returns every searchable entity type in stable order.
func All() []Type {
	return []Type{Accounts, Contacts, Leads, Deals}
}

// Parse validates a wire-level entity type name.
func Parse(s string) (Type, error) {
	t := Type(s)
	if !t.IsValid() {
		return "", fmt.Errorf("unknown entity type %q", s)
	}
	return t, nil
}

// IsValid reports whether t is a known entity type.
func (t Type) IsValid() bool {
	switch t {
	case Accounts, Contacts, Leads, Deals:
		return true
	}
	return false
}

// Lexical field weights shared across entity types.
const (
	weightName        = 10.0
	weightEmail       = 8.0
	weightCompany     = 7.0
	weightTitle       = 6.0
	weightPhone       = 5.0
	weightDescription = 3.0
	weightNotes       = 2.0
)

// FieldWeights returns the searchable fields of t and their lexical weights.
// A field match contributes its per-field score multiplied by this weight.
func (t Type) FieldWeights() map[string]float64 {
	switch t {
	case Accounts:
		return map[string]float64{
			"name":        weightName,
			"phone":       weightPhone,
			"description": weightDescription,
			"notes":       weightNotes,
		}
	case Contacts:
		return map[string]float64{
			"name":  weightName,
			"email": weightEmail,
			"title": weightTitle,
			"phone": weightPhone,
			"notes": weightNotes,
		}
	case Leads:
		return map[string]float64{
			"name":    weightName,
			"email":   weightEmail,
			"company": weightCompany,
			"title":   weightTitle,
			"phone":   weightPhone,
			"notes":   weightNotes,
		}
	case Deals:
		return map[string]float64{
			"name":        weightName,
			"description": weightDescription,
			"notes":       weightNotes,
		}
	}
	return nil
}

// MaxWeight returns the highest field weight for t. External engines
// normalize their native scores into [0, MaxWeight].
func (t Type) MaxWeight() float64 {
	max := 0.0
	for _, w := range t.FieldWeights() {
		if w > max {
			max = w
		}
	}
	return max
}
