package eval

import (
	"fmt"
	"strings"

	"github.com/cliffjones/polli/internal/talkmap"
)

// #region eval-harness
// EvalHarness validates the structure of a set of talk maps.
type EvalHarness struct {
	config EvalConfig
}

// NewEvalHarness creates an eval harness with the given configuration.
func NewEvalHarness(config EvalConfig) *EvalHarness {
	return &EvalHarness{config: config}
}

// Run checks maps and returns pass/fail with metrics. The failing checks are
// depth count, missing depth-0 data, empty lists, malformed keys; per-depth
// counts and the longest list are informational.
func (h *EvalHarness) Run(maps talkmap.Maps) EvalResult {
	var metrics []EvalMetric
	var failReasons []string

	check := func(name string, value float64, pass bool, reason string) {
		metrics = append(metrics, EvalMetric{Name: name, Value: value, Pass: pass})
		if !pass {
			failReasons = append(failReasons, reason)
		}
	}

	// 1. Depth count
	levels := maps.Levels()
	check("levels", float64(levels),
		levels > 0 && (h.config.Levels == 0 || levels == h.config.Levels),
		fmt.Sprintf("%d depths, want %d", levels, h.config.Levels))

	// 2. Deeper data implies depth-0 data
	deeper := 0
	for i := 1; i < levels; i++ {
		deeper += len(maps[i])
	}
	check("depth0_present", boolValue(!maps.Empty()),
		deeper == 0 || !maps.Empty(),
		fmt.Sprintf("depth 0 is empty but deeper depths hold %d keys", deeper))

	// 3. Per-depth structure
	var emptyLists, badShape, badSegment, longest int
	for depth, m := range maps {
		for key, list := range m {
			if len(list) == 0 {
				emptyLists++
			}
			if len(list) > longest {
				longest = len(list)
			}
			if strings.Count(key, talkmap.KeySeparator) != depth {
				badShape++
				continue
			}
			for _, seg := range strings.Split(key, talkmap.KeySeparator) {
				if talkmap.Fingerprint(seg) != seg {
					badSegment++
					break
				}
			}
		}
		metrics = append(metrics,
			EvalMetric{Name: fmt.Sprintf("depth_%d_keys", depth), Value: float64(len(m)), Pass: true},
			EvalMetric{Name: fmt.Sprintf("depth_%d_entries", depth), Value: float64(m.Entries()), Pass: true},
		)
	}
	check("empty_lists", float64(emptyLists), emptyLists == 0,
		fmt.Sprintf("%d keys with empty lists", emptyLists))
	check("malformed_keys", float64(badShape), badShape == 0,
		fmt.Sprintf("%d keys with the wrong segment count for their depth", badShape))
	check("non_fingerprint_keys", float64(badSegment), badSegment == 0,
		fmt.Sprintf("%d keys with segments that are not fingerprints", badSegment))

	// 4. Longest list: informational only
	metrics = append(metrics, EvalMetric{
		Name:  "longest_list",
		Value: float64(longest),
		Pass:  h.config.MaxListLen == 0 || longest <= h.config.MaxListLen,
	})

	reason := "all checks passed"
	if len(failReasons) > 0 {
		reason = fmt.Sprintf("eval failed: %s", failReasons[0])
		if len(failReasons) > 1 {
			reason = fmt.Sprintf("eval failed: %d checks: %s", len(failReasons), failReasons[0])
		}
	}

	return EvalResult{
		Passed:  len(failReasons) == 0,
		Metrics: metrics,
		Reason:  reason,
	}
}

// #endregion eval-harness

// #region helpers
func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Metric returns the named metric from r.
func (r EvalResult) Metric(name string) (EvalMetric, bool) {
	for _, m := range r.Metrics {
		if m.Name == name {
			return m, true
		}
	}
	return EvalMetric{}, false
}

// #endregion helpers
