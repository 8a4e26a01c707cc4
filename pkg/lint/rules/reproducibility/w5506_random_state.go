package reproducibility

import (
	"context"
	"strings"

	"github.com/leapstack-labs/dslint/pkg/identity"
	"github.com/leapstack-labs/dslint/pkg/lint"
	"github.com/leapstack-labs/dslint/pkg/pyast"
	"go.starlark.net/syntax"
)

// RandomState flags scikit-learn randomness sources called without a fixed
// random_state.
var RandomState = lint.RuleDef{
	ID:          "W5506",
	Name:        "controlling-randomness-scikitlearn",
	Group:       "reproducibility",
	Description: "'random_state=None' shouldn't be used in estimators or cross-validation splitters; it indicates improper randomness control.",
	Severity:    lint.SeverityWarning,
	ConfigKeys:  []string{"extra_names", "ignore_names"},
	New:         newRandomState,

	Rationale: `Estimators and splitters that draw random numbers use a fresh seed on
every run when random_state is omitted or None. Results then change between
executions, which hides regressions and makes experiments impossible to
reproduce.`,

	BadExample: `X_train, X_test = train_test_split(X)
clf = RandomForestClassifier(n_estimators=100)`,

	GoodExample: `X_train, X_test = train_test_split(X, random_state=42)
clf = RandomForestClassifier(n_estimators=100, random_state=42)`,

	Fix: "Pass an integer random_state to every estimator and splitter.",
}

// RandomStateOptions are the rule's configuration keys.
type RandomStateOptions struct {
	// ExtraNames adds callee names to check.
	ExtraNames []string `mapstructure:"extra_names"`
	// IgnoreNames removes callee names from the check.
	IgnoreNames []string `mapstructure:"ignore_names"`
}

var splitterFunctions = []string{
	"make_classification",
	"check_cv",
	"train_test_split",
}

var splitterClasses = []string{
	"GroupKFold",
	"GroupShuffleSplit",
	"KFold",
	"LeaveOneGroupOut",
	"LeavePGroupsOut",
	"LeaveOneOut",
	"LeavePOut",
	"PredefinedSplit",
	"RepeatedKFold",
	"RepeatedStratifiedKFold",
	"ShuffleSplit",
	"StratifiedKFold",
	"StratifiedShuffleSplit",
	"TimeSeriesSplit",
}

// estimators accept a random_state hyperparameter.
var estimators = []string{
	"AdaBoostClassifier", "AdaBoostRegressor",
	"BaggingClassifier", "BaggingRegressor",
	"BayesianGaussianMixture", "GaussianMixture",
	"DecisionTreeClassifier", "DecisionTreeRegressor",
	"ExtraTreeClassifier", "ExtraTreeRegressor",
	"ExtraTreesClassifier", "ExtraTreesRegressor",
	"GradientBoostingClassifier", "GradientBoostingRegressor",
	"HistGradientBoostingClassifier", "HistGradientBoostingRegressor",
	"IsolationForest", "RandomForestClassifier", "RandomForestRegressor", "RandomTreesEmbedding",
	"ElasticNet", "ElasticNetCV", "Lasso", "LassoCV",
	"LogisticRegression", "LogisticRegressionCV",
	"PassiveAggressiveClassifier", "PassiveAggressiveRegressor", "Perceptron",
	"RANSACRegressor", "Ridge", "RidgeClassifier",
	"SGDClassifier", "SGDRegressor", "TheilSenRegressor",
	"LinearSVC", "LinearSVR", "NuSVC", "SVC",
	"MLPClassifier", "MLPRegressor",
	"BisectingKMeans", "KMeans", "MiniBatchKMeans", "SpectralClustering",
	"FastICA", "KernelPCA", "LatentDirichletAllocation", "NMF", "PCA", "TruncatedSVD",
	"MDS", "SpectralEmbedding", "TSNE",
	"GaussianProcessClassifier", "GaussianProcessRegressor",
	"Nystroem", "RBFSampler", "SkewedChi2Sampler",
	"IterativeImputer", "KBinsDiscretizer", "QuantileTransformer",
	"DummyClassifier",
}

type randomState struct {
	pass     *lint.Pass
	resolver *identity.Resolver
	names    map[string]bool
}

func newRandomState(pass *lint.Pass) (lint.Visitor, error) {
	var opts RandomStateOptions
	if err := lint.DecodeOptions(pass.Options, &opts); err != nil {
		return nil, err
	}
	names := make(map[string]bool)
	for _, list := range [][]string{splitterFunctions, splitterClasses, estimators, opts.ExtraNames} {
		for _, n := range list {
			names[n] = true
		}
	}
	for _, n := range opts.IgnoreNames {
		delete(names, n)
	}
	return &randomState{
		pass:     pass,
		resolver: identity.New(pass.File, identity.Options{Logger: pass.Logger}),
		names:    names,
	}, nil
}

func (v *randomState) VisitAssign(context.Context, *syntax.AssignStmt) error { return nil }

func (v *randomState) VisitCall(_ context.Context, call *syntax.CallExpr) error {
	name := v.calleeName(call)
	if !v.names[name] {
		return nil
	}
	args := pyast.SplitArgs(call)
	if args.StarStar != nil {
		// random_state may come from **kwargs.
		return nil
	}
	value, ok := args.Keyword("random_state")
	switch {
	case !ok:
		v.pass.Reportf(call, "%s is called without random_state", name)
	case isNone(value):
		v.pass.Reportf(call, "%s is called with random_state=None", name)
	}
	return nil
}

// calleeName returns the last component of the call's identity: KFold for
// KFold(), model_selection.KFold() and KF() after "import KFold as KF".
// Calls the resolver cannot follow fall back to the written name.
func (v *randomState) calleeName(call *syntax.CallExpr) string {
	if id, err := v.resolver.Resolve(call); err == nil {
		return id[strings.LastIndexByte(id, '.')+1:]
	}
	switch fn := pyast.Unparen(call.Fn).(type) {
	case *syntax.Ident:
		return fn.Name
	case *syntax.DotExpr:
		return fn.Name.Name
	}
	return ""
}

func isNone(e syntax.Expr) bool {
	id, ok := pyast.Unparen(e).(*syntax.Ident)
	return ok && id.Name == "None"
}
