package model

import (
	"time"

	"github.com/Alias1177/CycleTrader/internal/timeseries"
)

// Stage is an economic cycle stage. The zero value means no classification yet.
type Stage string

const (
	StageUnknown     Stage = ""
	StageExpansion   Stage = "Expansion"
	StagePeak        Stage = "Peak"
	StageContraction Stage = "Contraction"
	StageRecovery    Stage = "Recovery"
)

// Stages lists the four classified stages in cycle order
var Stages = []Stage{StageExpansion, StagePeak, StageContraction, StageRecovery}

// Known reports whether the stage carries a classification
func (s Stage) Known() bool {
	return s != StageUnknown
}

// ParseStage converts a label into a Stage; unrecognised labels map to StageUnknown
func ParseStage(label string) (Stage, bool) {
	for _, s := range Stages {
		if string(s) == label {
			return s, true
		}
	}
	return StageUnknown, false
}

// RegimeSeries is a daily series of cycle stages
type RegimeSeries struct {
	Times  []time.Time `json:"times"`
	Stages []Stage     `json:"stages"`
}

// Len returns the number of days in the series
func (r RegimeSeries) Len() int {
	return len(r.Times)
}

// CycleChange marks a day where the stage differs from the previous day
type CycleChange struct {
	Date      time.Time `json:"date"`
	Stage     Stage     `json:"stage"`
	PrevStage Stage     `json:"prev_stage"`
}

// StageShare summarises how many days were spent in a stage
type StageShare struct {
	Stage   Stage   `json:"stage"`
	Days    int     `json:"days"`
	Percent float64 `json:"percent"`
}

// CurrentStage returns the most recent stage, or StageUnknown for an empty series
func (r RegimeSeries) CurrentStage() Stage {
	if len(r.Stages) == 0 {
		return StageUnknown
	}
	return r.Stages[len(r.Stages)-1]
}

// CycleChanges lists every day whose stage differs from the day before.
// The first labelled day is reported with an unknown previous stage.
func (r RegimeSeries) CycleChanges() []CycleChange {
	var changes []CycleChange
	prev := StageUnknown
	for i, stage := range r.Stages {
		if stage != prev {
			changes = append(changes, CycleChange{Date: r.Times[i], Stage: stage, PrevStage: prev})
		}
		prev = stage
	}
	return changes
}

// Distribution counts days spent in each stage, in cycle order
func (r RegimeSeries) Distribution() []StageShare {
	counts := make(map[Stage]int, len(Stages))
	for _, stage := range r.Stages {
		counts[stage]++
	}

	shares := make([]StageShare, 0, len(Stages))
	for _, stage := range Stages {
		share := StageShare{Stage: stage, Days: counts[stage]}
		if len(r.Stages) > 0 {
			share.Percent = float64(share.Days) / float64(len(r.Stages)) * 100
		}
		shares = append(shares, share)
	}
	return shares
}

// InStages builds a daily flag series that is true on days whose stage is one of
// stages. Days without a classification are left out so that as-of lookups over
// them resolve to the last classified day.
func (r RegimeSeries) InStages(stages ...Stage) timeseries.BoolSeries {
	var flags timeseries.BoolSeries
	for i, stage := range r.Stages {
		if !stage.Known() {
			continue
		}
		in := false
		for _, s := range stages {
			if stage == s {
				in = true
				break
			}
		}
		flags.Times = append(flags.Times, r.Times[i])
		flags.Values = append(flags.Values, in)
	}
	return flags
}
