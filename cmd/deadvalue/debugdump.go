package main

import (
	"encoding/json"

	"github.com/cmtlang/deadvalue/internal/pipeline"
	"github.com/cmtlang/deadvalue/internal/session"
)

// dumpSource adapts one pipeline run's results to the JSON payloads
// internal/cache stores and internal/debugserver serves.
type dumpSource struct {
	sess *session.Session
	ctx  *pipeline.PipelineContext
}

func (d *dumpSource) SessionID() string { return d.sess.String() }

type closureSummary struct {
	Size          int      `json:"size"`
	EffectLabels  []string `json:"effectLabels"`
	TopExprLabels []string `json:"topExprLabels"`
	TopIdCount    int      `json:"topIdCount"`
}

func (d *dumpSource) ClosureJSON() ([]byte, error) {
	cm := d.ctx.Closure
	if cm == nil {
		return json.Marshal(closureSummary{})
	}
	summary := closureSummary{Size: cm.Size(), TopIdCount: len(cm.TopIdKeys())}
	for _, l := range cm.EffectLabels() {
		summary.EffectLabels = append(summary.EffectLabels, l.String())
	}
	for _, l := range cm.TopExprLabels() {
		summary.TopExprLabels = append(summary.TopExprLabels, l.String())
	}
	return json.Marshal(summary)
}

type livenessEntry struct {
	Node string `json:"node"`
	Live string `json:"live"`
}

func (d *dumpSource) LivenessJSON() ([]byte, error) {
	if d.ctx.Graph == nil || d.ctx.Liveness == nil {
		return json.Marshal([]livenessEntry{})
	}
	out := make([]livenessEntry, 0, len(d.ctx.Graph.Nodes()))
	for _, n := range d.ctx.Graph.Nodes() {
		out = append(out, livenessEntry{Node: n.String(), Live: d.ctx.Liveness.Get(n).String()})
	}
	return json.Marshal(out)
}

func (d *dumpSource) WarningsJSON() ([]byte, error) {
	return json.Marshal(d.ctx.Warnings)
}
