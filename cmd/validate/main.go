package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/aurahome/synergy-engine/internal/logger"
	"github.com/aurahome/synergy-engine/internal/validation"
)

// dataset is one labeled test home.
type dataset struct {
	HomeID           string                     `json:"home_id"`
	ExpectedPatterns []validation.PatternRecord `json:"expected_patterns"`
	DetectedPatterns []validation.PatternRecord `json:"detected_patterns"`
}

// report is the machine-readable output the release pipeline consumes.
type report struct {
	Homes   int                           `json:"homes"`
	PerHome map[string]validation.Metrics `json:"per_home"`
	Gate    validation.GateResult         `json:"gate"`
}

func main() {
	var datasetPath string
	var outPath string
	flag.StringVar(&datasetPath, "dataset", "", "JSON file with an array of {home_id, expected_patterns, detected_patterns}")
	flag.StringVar(&outPath, "out", "", "write the JSON quality report here (default stdout)")
	flag.Parse()

	if datasetPath == "" {
		fmt.Println("-dataset is required")
		os.Exit(2)
	}

	log, err := logger.New(os.Getenv("APP_MODE"))
	if err != nil {
		fmt.Printf("init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	raw, err := os.ReadFile(datasetPath)
	if err != nil {
		log.Fatal("Could not read dataset", "path", datasetPath, "error", err)
	}
	var homes []dataset
	if err := json.Unmarshal(raw, &homes); err != nil {
		log.Fatal("Could not parse dataset", "path", datasetPath, "error", err)
	}

	validator := validation.NewValidator(log)
	perHome := make(map[string]validation.Metrics, len(homes))
	all := make([]validation.Metrics, 0, len(homes))
	for _, h := range homes {
		m := validator.Validate(h.ExpectedPatterns, h.DetectedPatterns)
		perHome[h.HomeID] = m
		all = append(all, m)
	}

	aggregated := validation.Aggregate(all)
	gate := validation.EvaluateGates(aggregated, validation.DefaultGateThresholds())

	out := report{Homes: len(homes), PerHome: perHome, Gate: gate}
	encoded, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		log.Fatal("Could not encode report", "error", err)
	}
	if outPath != "" {
		if err := os.WriteFile(outPath, encoded, 0o644); err != nil {
			log.Fatal("Could not write report", "path", outPath, "error", err)
		}
	} else {
		fmt.Println(string(encoded))
	}

	if !gate.Passed {
		log.Warn("Quality gate failed", "reasons", gate.Reasons)
		os.Exit(1)
	}
	log.Info("Quality gate passed",
		"precision", aggregated.Precision,
		"recall", aggregated.Recall,
		"f1", aggregated.F1)
}
