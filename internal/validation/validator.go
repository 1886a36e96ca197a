package validation

import (
	"github.com/aurahome/synergy-engine/internal/logger"
)

// SimilarityThreshold is the minimum score for a detected pattern to claim
// an expected pattern.
const SimilarityThreshold = 0.7

// PatternRecord is the shape ground-truth matching works on, for both the
// expected and the detected side.
type PatternRecord struct {
	PatternType   string   `json:"type"`
	Devices       []string `json:"devices"`
	TriggerDevice string   `json:"trigger_device,omitempty"`
}

// triggerOf falls back to the first device when no explicit trigger is set.
func triggerOf(p PatternRecord) string {
	if p.TriggerDevice != "" {
		return p.TriggerDevice
	}
	if len(p.Devices) > 0 {
		return p.Devices[0]
	}
	return ""
}

type TypeMetrics struct {
	TruePositives  int     `json:"tp"`
	FalsePositives int     `json:"fp"`
	FalseNegatives int     `json:"fn"`
	Precision      float64 `json:"precision"`
	Recall         float64 `json:"recall"`
	F1             float64 `json:"f1"`
}

type Metrics struct {
	TruePositives  int                     `json:"tp"`
	FalsePositives int                     `json:"fp"`
	FalseNegatives int                     `json:"fn"`
	Precision      float64                 `json:"precision"`
	Recall         float64                 `json:"recall"`
	F1             float64                 `json:"f1"`
	PerType        map[string]*TypeMetrics `json:"per_type"`
}

// Validator scores detector output against a labeled expected set. It never
// mutates either side.
type Validator struct {
	log *logger.Logger
}

func NewValidator(baseLog *logger.Logger) *Validator {
	return &Validator{log: baseLog.With("component", "GroundTruthValidator")}
}

// Validate matches greedily: each detected pattern, in input order, claims
// the best-scoring unmatched expected pattern at or above the similarity
// threshold. Unclaimed detections are false positives, unclaimed
// expectations false negatives.
func (v *Validator) Validate(expected, detected []PatternRecord) Metrics {
	matched := make([]bool, len(expected))
	m := Metrics{PerType: make(map[string]*TypeMetrics)}

	for _, det := range detected {
		bestIdx := -1
		bestScore := 0.0
		for i, exp := range expected {
			if matched[i] {
				continue
			}
			score := Similarity(exp, det)
			if score >= SimilarityThreshold && score > bestScore {
				bestIdx = i
				bestScore = score
			}
		}
		if bestIdx >= 0 {
			matched[bestIdx] = true
			m.TruePositives++
			typeMetricsFor(m.PerType, expected[bestIdx].PatternType).TruePositives++
		} else {
			m.FalsePositives++
			typeMetricsFor(m.PerType, det.PatternType).FalsePositives++
		}
	}
	for i, exp := range expected {
		if !matched[i] {
			m.FalseNegatives++
			typeMetricsFor(m.PerType, exp.PatternType).FalseNegatives++
		}
	}

	m.Precision, m.Recall, m.F1 = prf(m.TruePositives, m.FalsePositives, m.FalseNegatives)
	for _, tm := range m.PerType {
		tm.Precision, tm.Recall, tm.F1 = prf(tm.TruePositives, tm.FalsePositives, tm.FalseNegatives)
	}
	return m
}

// Aggregate combines per-home metrics into batch-level counts and recomputes
// the rates over the summed TP/FP/FN (not an average of per-home rates).
func Aggregate(all []Metrics) Metrics {
	out := Metrics{PerType: make(map[string]*TypeMetrics)}
	for _, m := range all {
		out.TruePositives += m.TruePositives
		out.FalsePositives += m.FalsePositives
		out.FalseNegatives += m.FalseNegatives
		for name, tm := range m.PerType {
			agg := typeMetricsFor(out.PerType, name)
			agg.TruePositives += tm.TruePositives
			agg.FalsePositives += tm.FalsePositives
			agg.FalseNegatives += tm.FalseNegatives
		}
	}
	out.Precision, out.Recall, out.F1 = prf(out.TruePositives, out.FalsePositives, out.FalseNegatives)
	for _, tm := range out.PerType {
		tm.Precision, tm.Recall, tm.F1 = prf(tm.TruePositives, tm.FalsePositives, tm.FalseNegatives)
	}
	return out
}

// Similarity scores how closely a detected pattern resembles an expected
// one: type match 0.3, device-set Jaccard 0.5, trigger match 0.2.
func Similarity(expected, detected PatternRecord) float64 {
	score := 0.0
	if expected.PatternType == detected.PatternType {
		score += 0.3
	}
	score += 0.5 * jaccard(expected.Devices, detected.Devices)
	if triggerOf(expected) == triggerOf(detected) {
		score += 0.2
	}
	return score
}

func jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	setA := make(map[string]struct{}, len(a))
	for _, v := range a {
		setA[v] = struct{}{}
	}
	union := make(map[string]struct{}, len(a)+len(b))
	for v := range setA {
		union[v] = struct{}{}
	}
	intersection := 0
	for _, v := range b {
		if _, ok := union[v]; !ok {
			union[v] = struct{}{}
		}
	}
	seenB := make(map[string]struct{}, len(b))
	for _, v := range b {
		if _, dup := seenB[v]; dup {
			continue
		}
		seenB[v] = struct{}{}
		if _, ok := setA[v]; ok {
			intersection++
		}
	}
	if len(union) == 0 {
		return 1.0
	}
	return float64(intersection) / float64(len(union))
}

func typeMetricsFor(perType map[string]*TypeMetrics, name string) *TypeMetrics {
	tm, ok := perType[name]
	if !ok {
		tm = &TypeMetrics{}
		perType[name] = tm
	}
	return tm
}

func prf(tp, fp, fn int) (precision, recall, f1 float64) {
	if tp+fp > 0 {
		precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		recall = float64(tp) / float64(tp+fn)
	}
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}
	return precision, recall, f1
}
