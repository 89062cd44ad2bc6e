package eval

// #region eval-config
// EvalConfig holds the thresholds for talk map validation.
type EvalConfig struct {
	Levels     int // required depth count, 0 accepts any
	MaxListLen int // warn when a single key collects more responses, 0 disables
}

// DefaultEvalConfig returns the defaults used by the inspection tools.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{
		MaxListLen: 1000,
	}
}

// #endregion eval-config

// #region eval-metric
// EvalMetric captures a single validation check result.
type EvalMetric struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Pass  bool    `json:"pass"`
}

// #endregion eval-metric

// #region eval-result
// EvalResult is the output of talk map validation.
type EvalResult struct {
	Passed  bool         `json:"passed"`
	Metrics []EvalMetric `json:"metrics"`
	Reason  string       `json:"reason"`
}

// #endregion eval-result
