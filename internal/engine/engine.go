// Package engine orchestrates the implicit constraint discovery pipeline:
// normalizer, personal and pairwise miners, segment partitioning, nature
// classification, validation and ranking, and result bundle assembly.
package engine

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/rostermine/internal/classify"
	"github.com/sells-group/rostermine/internal/config"
	"github.com/sells-group/rostermine/internal/miner"
	"github.com/sells-group/rostermine/internal/model"
	"github.com/sells-group/rostermine/internal/worklog"
)

// Engine runs the full discovery pipeline over an in-memory assignment log.
// It holds no mutable state between runs; the same engine run twice on the
// same input produces identical output.
type Engine struct {
	cfg      config.EngineConfig
	personal *miner.PersonalMiner
	pairwise *miner.PairwiseMiner
	segments *miner.Segmenter
}

// New creates an engine. The constraint-nature classifier is selected here:
// the advanced classifier by default, the basic fallback when configured
// (the degradation is logged by the fallback's constructor).
func New(cfg config.EngineConfig) *Engine {
	var classifier classify.Classifier
	if cfg.BasicClassifier {
		classifier = classify.NewBasic()
	} else {
		classifier = classify.NewAdvanced()
	}

	personal := miner.NewPersonalMiner(cfg, classifier)
	pairwise := miner.NewPairwiseMiner(cfg)
	return &Engine{
		cfg:      cfg,
		personal: personal,
		pairwise: pairwise,
		segments: miner.NewSegmenter(personal, pairwise),
	}
}

// Run normalizes the raw records and mines the working log. Structural input
// errors fail the run; everything else recovers per subject, so a completed
// run always returns a valid (possibly empty) bundle.
func (e *Engine) Run(ctx context.Context, records []model.AssignmentRecord) (*model.ResultBundle, error) {
	log, err := worklog.New(records)
	if err != nil {
		return nil, eris.Wrap(err, "engine: normalize")
	}

	zap.L().Info("engine: working log normalized",
		zap.Int("raw_records", len(records)),
		zap.Int("working_records", log.Len()),
		zap.Int("staff", len(log.StaffIDs())),
	)

	// The miners only read the shared log and each writes to its own slot,
	// so the three stages run in parallel and merge in a fixed order.
	var personalRules, pairwiseRules, segmentRules []model.Rule
	var pairwiseDiags, segmentDiags []string

	g, _ := errgroup.WithContext(ctx)
	if e.cfg.Workers > 0 {
		g.SetLimit(e.cfg.Workers)
	}
	g.Go(func() error {
		personalRules = e.personal.Mine(log, model.SegmentOverall)
		return nil
	})
	g.Go(func() error {
		pairwiseRules, pairwiseDiags = e.pairwise.Mine(log, model.SegmentOverall)
		return nil
	})
	g.Go(func() error {
		segmentRules, segmentDiags = e.segments.Mine(log)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "engine: mine")
	}
	if ctx.Err() != nil {
		return nil, eris.Wrap(ctx.Err(), "engine: run cancelled")
	}

	all := make([]model.Rule, 0, len(personalRules)+len(pairwiseRules)+len(segmentRules))
	all = append(all, personalRules...)
	all = append(all, pairwiseRules...)
	all = append(all, segmentRules...)

	validated := Validate(all, e.cfg.MinConfidence)
	diags := append(append([]string{}, pairwiseDiags...), segmentDiags...)
	bundle := buildBundle(validated, diags, e.cfg.HighConfidenceThreshold)

	zap.L().Info("engine: run complete",
		zap.Int("rules_mined", len(all)),
		zap.Int("rules_validated", len(validated)),
		zap.Int("high_confidence", len(bundle.HighConfidenceRules)),
	)

	return bundle, nil
}
