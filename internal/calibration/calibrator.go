package calibration

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/aurahome/synergy-engine/internal/logger"
)

const (
	defaultMinSamples   = 10
	defaultRetrainEvery = 50
	trainEpochs         = 500
	trainLearnRate      = 0.5

	// blendSaturation is the training-set size at which the model fully
	// replaces the raw heuristic confidence.
	blendSaturation = 50.0
)

type sample struct {
	Features []float64 `json:"features"`
	Label    int       `json:"label"`
}

// Calibrator converts a raw heuristic confidence into an outcome-informed
// probability. Uncalibrated it is an exact passthrough; once trained it
// blends the model prediction with the raw value, weighted by how much data
// the model saw. Calibration never surfaces an error: any internal failure
// falls back to the raw confidence.
type Calibrator struct {
	mu sync.Mutex

	samples      []sample
	model        *logisticModel
	minSamples   int
	retrainEvery int

	log *logger.Logger
}

func NewCalibrator(minSamples, retrainEvery int, baseLog *logger.Logger) *Calibrator {
	if minSamples <= 0 {
		minSamples = defaultMinSamples
	}
	if retrainEvery <= 0 {
		retrainEvery = defaultRetrainEvery
	}
	return &Calibrator{
		minSamples:   minSamples,
		retrainEvery: retrainEvery,
		log:          baseLog.With("component", "ConfidenceCalibrator"),
	}
}

// AddFeedback appends one outcome sample. The label is positive only when
// the suggestion proceeded and was not explicitly rejected (unknown approval
// counts as positive). Crossing a multiple of the retrain interval triggers
// retraining.
func (c *Calibrator) AddFeedback(rawConfidence float64, ambiguityCount, criticalAmbiguityCount, rounds, answerCount int, proceeded bool, approved *bool) {
	label := 0
	if proceeded && (approved == nil || *approved) {
		label = 1
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.samples = append(c.samples, sample{
		Features: FeatureVector(rawConfidence, ambiguityCount, criticalAmbiguityCount, rounds, answerCount),
		Label:    label,
	})

	if len(c.samples)%c.retrainEvery == 0 {
		c.trainLocked(c.minSamples)
	}
}

// Seed replaces the in-memory history with already-built samples, then fits
// if the history allows it. Used to rehydrate from the durable sample store.
func (c *Calibrator) Seed(features [][]float64, labels []int) {
	if len(features) != len(labels) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.samples = c.samples[:0]
	for i := range features {
		c.samples = append(c.samples, sample{Features: features[i], Label: labels[i]})
	}
	c.trainLocked(c.minSamples)
}

// Train fits the model when enough mixed-label history exists. Returns true
// when a model was (re)fitted; a skipped training is reported, not an error.
func (c *Calibrator) Train(minSamples int) bool {
	if minSamples <= 0 {
		minSamples = c.minSamples
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trainLocked(minSamples)
}

func (c *Calibrator) trainLocked(minSamples int) bool {
	if len(c.samples) < minSamples {
		c.log.Info("Skipping calibration training: not enough samples",
			"have", len(c.samples), "need", minSamples)
		return false
	}
	positives := 0
	for _, s := range c.samples {
		positives += s.Label
	}
	if positives == 0 || positives == len(c.samples) {
		// A single-class history cannot produce a usable model.
		c.log.Info("Skipping calibration training: degenerate labels",
			"samples", len(c.samples), "positives", positives)
		return false
	}

	features := make([][]float64, len(c.samples))
	labels := make([]int, len(c.samples))
	for i, s := range c.samples {
		features[i] = s.Features
		labels[i] = s.Label
	}

	model, err := trainLogistic(features, labels, trainEpochs, trainLearnRate)
	if err != nil {
		c.log.Warn("Calibration training failed, keeping previous model", "error", err)
		return false
	}
	c.model = model
	c.log.Info("Calibration model trained", "samples", model.TrainedOn)
	return true
}

// Calibrate returns the calibrated probability for the given signals. An
// unfitted calibrator returns rawConfidence exactly.
func (c *Calibrator) Calibrate(rawConfidence float64, ambiguityCount, criticalAmbiguityCount, rounds, answerCount int) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.model == nil {
		return rawConfidence
	}

	calibrated, err := func() (v float64, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("calibration panic: %v", r)
			}
		}()
		features := FeatureVector(rawConfidence, ambiguityCount, criticalAmbiguityCount, rounds, answerCount)
		pred, perr := c.model.predict(features)
		if perr != nil {
			return 0, perr
		}
		weight := float64(c.model.TrainedOn) / blendSaturation
		if weight > 1.0 {
			weight = 1.0
		}
		return weight*pred + (1-weight)*rawConfidence, nil
	}()
	if err != nil {
		c.log.Warn("Calibration failed, falling back to raw confidence", "error", err)
		return rawConfidence
	}
	return calibrated
}

func (c *Calibrator) IsFitted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model != nil
}

func (c *Calibrator) SampleCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.samples)
}

// TrainingSampleCount is the history size the current model was fitted on.
func (c *Calibrator) TrainingSampleCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.model == nil {
		return 0
	}
	return c.model.TrainedOn
}

// state is the self-contained persistence blob.
type state struct {
	Samples []sample       `json:"samples"`
	Model   *logisticModel `json:"model,omitempty"`
}

// SaveState writes model plus full sample history as one blob. A loaded
// calibrator reproduces identical Calibrate output.
func (c *Calibrator) SaveState(path string) error {
	c.mu.Lock()
	blob, err := json.MarshalIndent(state{Samples: c.samples, Model: c.model}, "", "  ")
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encode calibrator state: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o644); err != nil {
		return fmt.Errorf("write calibrator state: %w", err)
	}
	return os.Rename(tmp, path)
}

func (c *Calibrator) LoadState(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read calibrator state: %w", err)
	}
	var st state
	if err := json.Unmarshal(raw, &st); err != nil {
		return fmt.Errorf("decode calibrator state: %w", err)
	}
	c.mu.Lock()
	c.samples = st.Samples
	c.model = st.Model
	c.mu.Unlock()
	return nil
}
