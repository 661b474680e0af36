package enums

import "fmt"

// ComponentCategory maps to the component_category enum in Postgres.
type ComponentCategory string

const (
	ComponentCategoryICs        ComponentCategory = "ICs"
	ComponentCategoryResistors  ComponentCategory = "Resistors"
	ComponentCategoryCapacitors ComponentCategory = "Capacitors"
	ComponentCategoryInductors  ComponentCategory = "Inductors"
	ComponentCategoryDiodes     ComponentCategory = "Diodes"
	ComponentCategoryTransistors ComponentCategory = "Transistors"
	ComponentCategoryConnectors ComponentCategory = "Connectors"
	ComponentCategorySensors    ComponentCategory = "Sensors"
	ComponentCategoryModules    ComponentCategory = "Modules"
	ComponentCategoryPCBs       ComponentCategory = "PCBs"
	ComponentCategoryTools      ComponentCategory = "Tools"
	ComponentCategoryOthers     ComponentCategory = "Others"
)

var validComponentCategories = []ComponentCategory{
	ComponentCategoryICs,
	ComponentCategoryResistors,
	ComponentCategoryCapacitors,
	ComponentCategoryInductors,
	ComponentCategoryDiodes,
	ComponentCategoryTransistors,
	ComponentCategoryConnectors,
	ComponentCategorySensors,
	ComponentCategoryModules,
	ComponentCategoryPCBs,
	ComponentCategoryTools,
	ComponentCategoryOthers,
}

// String implements fmt.Stringer.
func (c ComponentCategory) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ComponentCategory.
func (c ComponentCategory) IsValid() bool {
	for _, candidate := range validComponentCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseComponentCategory converts raw input into a ComponentCategory.
func ParseComponentCategory(value string) (ComponentCategory, error) {
	for _, candidate := range validComponentCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid component category %q", value)
}

// ComponentCategories returns all known categories in declaration order.
func ComponentCategories() []ComponentCategory {
	out := make([]ComponentCategory, len(validComponentCategories))
	copy(out, validComponentCategories)
	return out
}
