// Package campaign sequences the generation phases of an unattended
// campaign run. The orchestrator owns the campaign state, runs phases
// in their fixed order on a single goroutine, and publishes state
// snapshots to observers. Per-slot iteration mechanics live in the
// iterate package; this package decides which slots run and when the
// campaign is done.
package campaign

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/muralgen/mural/internal/events"
	"github.com/muralgen/mural/internal/iterate"
	"github.com/muralgen/mural/internal/types"
)

// SlotRunner runs one image slot to a terminal result. Satisfied by
// *iterate.Controller.
type SlotRunner interface {
	RunSlot(ctx context.Context, p iterate.SlotParams) *types.SlotResult
}

// snapshotBuffer is the capacity of the snapshot channel. Snapshots
// are dropped, never blocked on, when the observer falls behind.
const snapshotBuffer = 64

// Config holds the orchestrator's collaborators and campaign settings.
type Config struct {
	Slots SlotRunner
	// Selector picks the poster image from the sketch candidates.
	// Required only when the campaign enables the poster phase.
	Selector types.Selector
	// Saver persists the poster selection; counted and enrichment
	// slots save through the slot runner instead.
	Saver types.Saver
	Log   *events.Log

	Campaign *types.CampaignConfig
	// CampaignID must match the ID the slot runner stamps on its
	// events and save intents
	CampaignID string
}

// Orchestrator drives one campaign from start to a terminal status.
// The run goroutine is the single writer of the campaign state; all
// other goroutines observe through value snapshots.
type Orchestrator struct {
	cfg Config

	mu    sync.Mutex
	state types.CampaignState

	snapshots chan types.CampaignState
	abortFlag atomic.Bool
	running   atomic.Bool
	done      chan struct{}

	// accepted handles per upstream phase, written only by the run
	// goroutine; poster selects over sketches, hud enriches gameplay
	sketchHandles   []*types.ImageHandle
	gameplayHandles []*types.ImageHandle
}

// New validates the configuration and creates an idle orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Slots == nil {
		return nil, fmt.Errorf("slot runner is required")
	}
	if cfg.Log == nil {
		return nil, fmt.Errorf("event log is required")
	}
	if cfg.Campaign == nil {
		return nil, fmt.Errorf("campaign config is required")
	}
	if err := cfg.Campaign.Validate(); err != nil {
		return nil, fmt.Errorf("invalid campaign config: %w", err)
	}
	if cfg.Campaign.PosterEnabled {
		if cfg.Selector == nil {
			return nil, fmt.Errorf("selector is required when the poster phase is enabled")
		}
		if cfg.Saver == nil {
			return nil, fmt.Errorf("saver is required when the poster phase is enabled")
		}
	}
	if cfg.CampaignID == "" {
		return nil, fmt.Errorf("campaign id is required")
	}

	o := &Orchestrator{
		cfg:       cfg,
		snapshots: make(chan types.CampaignState, snapshotBuffer),
	}
	o.state = o.freshState()
	return o, nil
}

func (o *Orchestrator) freshState() types.CampaignState {
	statuses := make(map[types.Phase]types.PhaseStatus, len(types.PhaseOrder))
	progress := make(map[types.Phase]types.PhaseProgress, len(types.PhaseOrder))
	for _, phase := range types.PhaseOrder {
		statuses[phase] = types.PhasePending
		progress[phase] = types.PhaseProgress{Target: o.phaseTarget(phase)}
	}
	return types.CampaignState{
		ID:            o.cfg.CampaignID,
		Status:        types.CampaignIdle,
		PhaseStatuses: statuses,
		Progress:      progress,
	}
}

// phaseTarget returns the configured target for a phase. The derived
// hud target is unknown until gameplay finishes and starts at zero.
func (o *Orchestrator) phaseTarget(phase types.Phase) int {
	switch phase {
	case types.PhaseSketch:
		return o.cfg.Campaign.SketchTarget
	case types.PhaseGameplay:
		return o.cfg.Campaign.GameplayTarget
	case types.PhasePoster:
		if o.cfg.Campaign.PosterEnabled {
			return 1
		}
	}
	return 0
}

// Start begins the campaign run. It returns an error if a run is in
// progress or a finished campaign has not been reset.
func (o *Orchestrator) Start(ctx context.Context) error {
	if !o.running.CompareAndSwap(false, true) {
		return fmt.Errorf("campaign %s is already running", o.cfg.CampaignID)
	}

	o.mu.Lock()
	if o.state.Status != types.CampaignIdle {
		o.mu.Unlock()
		o.running.Store(false)
		return fmt.Errorf("campaign %s already finished with status %s; reset before restarting", o.cfg.CampaignID, o.state.Status)
	}
	o.mu.Unlock()

	o.done = make(chan struct{})
	o.updateState(func(s *types.CampaignState) {
		s.Status = types.CampaignRunning
		s.StartedAt = time.Now()
	})
	o.cfg.Log.Append(ctx, events.NewEntry(events.EventTypeCampaignStarted, o.cfg.CampaignID,
		events.SeverityInfo, fmt.Sprintf("campaign %s started", o.cfg.CampaignID)))

	go o.run(ctx)
	return nil
}

// Abort requests a cooperative stop. The run goroutine observes the
// request at the next slot boundary; in-flight generation or polish
// calls are never interrupted. Safe to call repeatedly.
func (o *Orchestrator) Abort() {
	o.abortFlag.Store(true)
}

// Done returns a channel closed when the current run finishes. Nil
// before the first Start.
func (o *Orchestrator) Done() <-chan struct{} {
	return o.done
}

// State returns a snapshot of the current campaign state.
func (o *Orchestrator) State() types.CampaignState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.Clone()
}

// Snapshots returns the channel state snapshots are published on.
// Snapshots are dropped when the channel is full.
func (o *Orchestrator) Snapshots() <-chan types.CampaignState {
	return o.snapshots
}

// Reset returns a finished orchestrator to idle so it can be started
// again. It fails while a run is in progress.
func (o *Orchestrator) Reset() error {
	if o.running.Load() {
		return fmt.Errorf("campaign %s is still running", o.cfg.CampaignID)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = o.freshState()
	o.sketchHandles = nil
	o.gameplayHandles = nil
	o.abortFlag.Store(false)
	return nil
}

// run executes every phase in order and settles the campaign status.
// It is the single writer of o.state for the duration of the run.
func (o *Orchestrator) run(ctx context.Context) {
	defer func() {
		o.running.Store(false)
		close(o.done)
	}()

	for _, phase := range types.PhaseOrder {
		if o.aborted(ctx) {
			o.finish(ctx, types.CampaignAborted, "")
			return
		}

		result := o.runPhase(ctx, phase)

		o.updateState(func(s *types.CampaignState) {
			s.CurrentPhase = ""
			s.PhaseStatuses[phase] = result.Status
		})

		if result.Status == types.PhaseErrored {
			o.finish(ctx, types.CampaignErrored, result.Err)
			return
		}
	}

	if o.aborted(ctx) {
		o.finish(ctx, types.CampaignAborted, "")
		return
	}
	o.finish(ctx, types.CampaignComplete, "")
}

func (o *Orchestrator) aborted(ctx context.Context) bool {
	return o.abortFlag.Load() || ctx.Err() != nil
}

func (o *Orchestrator) finish(ctx context.Context, status types.CampaignStatus, errMsg string) {
	o.updateState(func(s *types.CampaignState) {
		s.Status = status
		s.Error = errMsg
		s.AbortRequested = o.abortFlag.Load()
		for _, phase := range types.PhaseOrder {
			if !s.PhaseStatuses[phase].IsTerminal() {
				s.PhaseStatuses[phase] = types.PhaseSkipped
			}
		}
	})

	sev := events.SeverityInfo
	msg := fmt.Sprintf("campaign finished: %s", status)
	if status == types.CampaignErrored {
		sev = events.SeverityError
		msg = fmt.Sprintf("campaign errored: %s", errMsg)
	}
	o.cfg.Log.Append(ctx, events.NewEntry(events.EventTypeCampaignFinished, o.cfg.CampaignID, sev, msg))
}

// updateState applies a mutation under the lock, stamps it, and
// publishes a snapshot without blocking.
func (o *Orchestrator) updateState(mutate func(*types.CampaignState)) {
	o.mu.Lock()
	mutate(&o.state)
	o.state.UpdatedAt = time.Now()
	total := 0
	for _, p := range o.state.Progress {
		total += p.Saved
	}
	o.state.TotalSaved = total
	snap := o.state.Clone()
	o.mu.Unlock()

	select {
	case o.snapshots <- snap:
	default:
	}
}
