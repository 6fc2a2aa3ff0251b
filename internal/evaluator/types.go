package evaluator

import "math"

// Mode selects the default threshold profile; safe tightens lab's defaults.
type Mode string

const (
	ModeLab  Mode = "lab"
	ModeSafe Mode = "safe"
)

// PolicyConfig is the live-tunable evaluation policy, sourced from
// pkg/config defaults and overridden by internal/controlplane. All fields
// are read fresh once per evaluation call; the evaluator itself holds no
// state.
type PolicyConfig struct {
	DryRun bool // pinned true; pkg/config.Config.Validate refuses to start otherwise
	Mode   Mode

	MinEdgeOpportunity       float64
	MinExecutableSize        float64
	NearMissEdgeFloor        float64
	NearMissEdgeCeiling      *float64 // nil means unset: treated as +Inf, per §9
	NearMissIncludeWeirdSums bool
	FeeBufferBps             float64

	AlertOnly      bool
	AlertThreshold float64
}

// EffectiveMinEdge applies the single alert_only/alert_threshold
// precedence rule from §9: alert_only overrides the mode-derived minimum
// edge, evaluated once per policy snapshot rather than scattered across
// call sites.
func (p PolicyConfig) EffectiveMinEdge() float64 {
	if p.AlertOnly {
		return p.AlertThreshold
	}
	return p.MinEdgeOpportunity
}

// EffectiveNearMissCeiling returns the configured ceiling or +Inf when unset.
func (p PolicyConfig) EffectiveNearMissCeiling() float64 {
	if p.NearMissEdgeCeiling == nil {
		return math.Inf(1)
	}
	return *p.NearMissEdgeCeiling
}

// DefaultLabPolicy returns the lab-mode default thresholds.
func DefaultLabPolicy() PolicyConfig {
	return PolicyConfig{
		DryRun:                   true,
		Mode:                     ModeLab,
		MinEdgeOpportunity:       0.01,
		MinExecutableSize:        1,
		NearMissEdgeFloor:        -0.05,
		NearMissIncludeWeirdSums: false,
		FeeBufferBps:             25,
	}
}

// DefaultSafePolicy returns the safe-mode default thresholds, strictly
// tighter than lab's per the §8 mode contract.
func DefaultSafePolicy() PolicyConfig {
	p := DefaultLabPolicy()
	p.Mode = ModeSafe
	p.MinEdgeOpportunity = 0.02
	p.NearMissEdgeFloor = -0.01
	return p
}
