// Package checks contains argument checks for the counting, sanitization and
// mining functions.
package checks

import (
	"fmt"
	"math"
)

const (
	epsilonName = "Epsilon"
	deltaName   = "Delta"

	// budgetShareTolerance is the relative error allowed between the sum of
	// per-level budget shares and the total budget.
	budgetShareTolerance = 1e-9
)

func verifyName(defaultName string, nameSlice []string) (string, error) {
	var name string
	switch len(nameSlice) {
	case 0:
		name = defaultName
	case 1:
		name = nameSlice[0]
	default:
		return "", fmt.Errorf("This should never happen. There should be 0 or 1 'name' parameter, got %d", len(nameSlice))
	}
	return name, nil
}

// CheckEpsilonVeryStrict returns an error if ε is +∞ or less than 2⁻⁵⁰.
func CheckEpsilonVeryStrict(epsilon float64, name ...string) error {
	epsName, err := verifyName(epsilonName, name)
	if err != nil {
		return err
	}
	if epsilon < math.Exp2(-50.0) || math.IsInf(epsilon, 0) || math.IsNaN(epsilon) {
		return fmt.Errorf("%s is %f, must be at least 2^-50 and finite", epsName, epsilon)
	}
	return nil
}

// CheckEpsilonStrict returns an error if ε is nonpositive or +∞.
func CheckEpsilonStrict(epsilon float64, name ...string) error {
	epsName, err := verifyName(epsilonName, name)
	if err != nil {
		return err
	}
	if epsilon <= 0 || math.IsInf(epsilon, 0) || math.IsNaN(epsilon) {
		return fmt.Errorf("%s is %f, must be strictly positive and finite", epsName, epsilon)
	}
	return nil
}

// CheckDelta returns an error if δ is negative or greater than or equal to 1.
func CheckDelta(delta float64, name ...string) error {
	delName, err := verifyName(deltaName, name)
	if err != nil {
		return err
	}
	if math.IsNaN(delta) {
		return fmt.Errorf("%s is %e, cannot be NaN", delName, delta)
	}
	if delta < 0 {
		return fmt.Errorf("%s is %e, cannot be negative", delName, delta)
	}
	if delta >= 1 {
		return fmt.Errorf("%s is %e, must be strictly less than 1", delName, delta)
	}
	return nil
}

// CheckDeltaStrict returns an error if δ is nonpositive or greater than or equal to 1.
func CheckDeltaStrict(delta float64, name ...string) error {
	delName, err := verifyName(deltaName, name)
	if err != nil {
		return err
	}
	if math.IsNaN(delta) {
		return fmt.Errorf("%s is %e, cannot be NaN", delName, delta)
	}
	if delta <= 0 {
		return fmt.Errorf("%s is %e, must be strictly positive", delName, delta)
	}
	if delta >= 1 {
		return fmt.Errorf("%s is %e, must be strictly less than 1", delName, delta)
	}
	return nil
}

// CheckNoDelta returns an error if δ is non-zero.
func CheckNoDelta(delta float64, name ...string) error {
	delName, err := verifyName(deltaName, name)
	if err != nil {
		return err
	}
	if delta != 0 {
		return fmt.Errorf("%s is %e, must be 0", delName, delta)
	}
	return nil
}

// CheckThresholdDelta returns an error if δ_threshold is nonpositive or greater than or
// equal to 1 or δ_threshold+δ_noise is greater than or equal to 1.
func CheckThresholdDelta(thresholdDelta, noiseDelta float64) error {
	if math.IsNaN(thresholdDelta) {
		return fmt.Errorf("ThresholdDelta is %e, cannot be NaN", thresholdDelta)
	}
	if thresholdDelta <= 0 {
		return fmt.Errorf("ThresholdDelta is %e, must be strictly positive", thresholdDelta)
	}
	if thresholdDelta >= 1 {
		return fmt.Errorf("ThresholdDelta is %e, must be strictly less than 1", thresholdDelta)
	}
	if thresholdDelta+noiseDelta >= 1 {
		return fmt.Errorf("ThresholdDelta+NoiseDelta is %e, must be strictly less than 1", thresholdDelta+noiseDelta)
	}
	return nil
}

// CheckL0Sensitivity returns an error if l0Sensitivity is nonpositive.
func CheckL0Sensitivity(l0Sensitivity int64) error {
	if l0Sensitivity <= 0 {
		return fmt.Errorf("L0Sensitivity is %d, must be strictly positive", l0Sensitivity)
	}
	return nil
}

// CheckLInfSensitivity returns an error if lInfSensitivity is nonpositive or +∞.
func CheckLInfSensitivity(lInfSensitivity float64) error {
	if lInfSensitivity <= 0 || math.IsInf(lInfSensitivity, 0) || math.IsNaN(lInfSensitivity) {
		return fmt.Errorf("LInfSensitivity is %f, must be strictly positive and finite", lInfSensitivity)
	}
	return nil
}

// CheckMaxContributions returns an error if maxContributions is nonpositive.
func CheckMaxContributions(maxContributions int64) error {
	if maxContributions <= 0 {
		return fmt.Errorf("MaxContributions (%d) must be set to a positive value", maxContributions)
	}
	return nil
}

// CheckAlpha returns an error if the supplied alpha is not between 0 and 1.
func CheckAlpha(alpha float64) error {
	if alpha <= 0 || alpha >= 1 || math.IsNaN(alpha) || math.IsInf(alpha, 0) {
		return fmt.Errorf("Alpha is %f, must be within (0, 1) and finite", alpha)
	}
	return nil
}

// CheckAlphabetSize returns an error if n is less than 1.
func CheckAlphabetSize(n int) error {
	if n < 1 {
		return fmt.Errorf("AlphabetSize is %d, must be at least 1", n)
	}
	return nil
}

// CheckMaxLength returns an error if maxLength is less than 1.
func CheckMaxLength(maxLength int) error {
	if maxLength < 1 {
		return fmt.Errorf("MaxLength is %d, must be at least 1", maxLength)
	}
	return nil
}

// CheckRuleLength returns an error if ruleLength is less than 2: a rule needs
// a non-empty antecedent and at least one more symbol.
func CheckRuleLength(ruleLength int) error {
	if ruleLength < 2 {
		return fmt.Errorf("MaxRuleLength is %d, must be at least 2", ruleLength)
	}
	return nil
}

// CheckK returns an error if k is less than 1.
func CheckK(k int) error {
	if k < 1 {
		return fmt.Errorf("K is %d, must be at least 1", k)
	}
	return nil
}

// CheckWorkers returns an error if workers is negative. Zero selects a default.
func CheckWorkers(workers int) error {
	if workers < 0 {
		return fmt.Errorf("Workers is %d, cannot be negative", workers)
	}
	return nil
}

// CheckBudgetShares returns an error if any share is not a valid epsilon or
// if the shares do not add up to epsilon.
func CheckBudgetShares(epsilon float64, shares []float64) error {
	if len(shares) == 0 {
		return fmt.Errorf("BudgetShares is empty, must have at least one level")
	}
	var sum float64
	for i, s := range shares {
		if err := CheckEpsilonStrict(s, fmt.Sprintf("BudgetShare[%d]", i)); err != nil {
			return err
		}
		sum += s
	}
	if math.Abs(sum-epsilon) > budgetShareTolerance*epsilon {
		return fmt.Errorf("BudgetShares sum to %f, must sum to Epsilon %f", sum, epsilon)
	}
	return nil
}
