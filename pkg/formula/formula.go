// Package formula counts atoms in chemical formula strings such as the
// sFormulaMolec values of ThermoML compounds.
package formula

import (
	"regexp"
	"strconv"
)

// elementPattern matches one element token: an uppercase letter, up to two
// lowercase letters, and an optional count. Text between tokens (charges,
// parentheses, dots) is ignored.
var elementPattern = regexp.MustCompile(`([A-Z][a-z]{0,2})(\d*)`)

// ElementCounts maps each element symbol in formula to its atom count.
// A token without digits counts as one atom; repeated tokens for the same
// element are summed.
func ElementCounts(formula string) map[string]int {
	counts := make(map[string]int)

	for _, match := range elementPattern.FindAllStringSubmatch(formula, -1) {
		element, digits := match[1], match[2]

		count := 1
		if digits != "" {
			parsed, err := strconv.Atoi(digits)
			if err != nil {
				continue
			}
			count = parsed
		}

		counts[element] += count
	}

	return counts
}

// CountAtoms returns the total number of atoms in formula.
func CountAtoms(formula string) int {
	total := 0
	for _, count := range ElementCounts(formula) {
		total += count
	}
	return total
}

// CountAtomsInSet returns the number of atoms in formula whose element
// symbol is in allowed.
func CountAtomsInSet(formula string, allowed []string) int {
	allowedSet := make(map[string]bool, len(allowed))
	for _, symbol := range allowed {
		allowedSet[symbol] = true
	}

	total := 0
	for element, count := range ElementCounts(formula) {
		if allowedSet[element] {
			total += count
		}
	}
	return total
}
