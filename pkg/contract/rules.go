package contract

// svmEstimators are margin-based estimators sensitive to feature scale.
var svmEstimators = []string{"SVC", "LinearSVC", "NuSVC", "SVR", "LinearSVR", "NuSVR"}

// DefaultRules returns the built-in contracts.
func DefaultRules() []Rule {
	rules := make([]Rule, 0, len(svmEstimators))
	for _, est := range svmEstimators {
		rules = append(rules, Rule{
			Identity:      "sklearn.svm." + est + ".fit",
			Params:        []string{"X", "y", "sample_weight"},
			Datasets:      []string{"X"},
			Preconditions: []string{RangeIsEqual, ScaleIsEqual},
		})
	}
	return rules
}
