package enums

import "fmt"

// CheckItemCondition is the condition observed for one item during a check.
type CheckItemCondition string

const (
	CheckItemGood    CheckItemCondition = "good"
	CheckItemDamaged CheckItemCondition = "damaged"
	CheckItemMissing CheckItemCondition = "missing"
)

var validCheckItemConditions = []CheckItemCondition{
	CheckItemGood,
	CheckItemDamaged,
	CheckItemMissing,
}

func (c CheckItemCondition) IsValid() bool {
	for _, candidate := range validCheckItemConditions {
		if candidate == c {
			return true
		}
	}
	return false
}

func ParseCheckItemCondition(value string) (CheckItemCondition, error) {
	for _, candidate := range validCheckItemConditions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid check item condition %q", value)
}
