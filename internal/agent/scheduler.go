// Package agent implements the agentic loop scheduler (component C7): the
// state machine that drives one request from READY through repeated
// GENERATING/EXECUTING iterations to DONE, coordinating the model engine,
// tool registry/executor, context budget manager, task ledger, execution
// state ledger, and failure classifier.
package agent

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/riftloop/agentcore/internal/budget"
	"github.com/riftloop/agentcore/internal/classifier"
	"github.com/riftloop/agentcore/internal/engine"
	"github.com/riftloop/agentcore/internal/execstate"
	"github.com/riftloop/agentcore/internal/parser"
	"github.com/riftloop/agentcore/internal/summarizer"
	"github.com/riftloop/agentcore/internal/tools"
	"github.com/riftloop/agentcore/pkg/models"
)

// maxSeamlessContinuations bounds how many times a single response that
// keeps hitting maxTokens with no tool calls gets re-entered with a
// "continue where you left off" turn before the scheduler gives up and lets
// it finalize as-is. These continuations are not counted as iterations.
const maxSeamlessContinuations = 3

// Stuck/cycle detection window sizes (component C7, step 12).
const (
	stuckRunLength  = 3  // K identical consecutive tool calls
	cycleWindow     = 20 // how far back to look for a repeating cycle
	cycleMinLength  = 2
	cycleMaxLength  = 4
	cycleMinRepeats = 3
)

// PauseWaiter is the session controller seam the scheduler consults at each
// iteration's pause check-in point (component C8's cooperative pause gate).
// It blocks while the session is paused and returns once resumed, or if ctx
// is cancelled first.
type PauseWaiter interface {
	WaitWhilePaused(ctx context.Context) error
}

// Scheduler drives a Request through the agentic loop state machine.
type Scheduler struct {
	Engine     engine.ModelEngine
	Registry   *tools.Registry
	Executor   *tools.Executor
	Assembler  *budget.Assembler
	Budget     *budget.Manager
	Exec       *execstate.Ledger
	Guarantee  *execstate.CompletionGuarantee
	Workspace  tools.FilesystemPort
	Summarizer summarizer.Generator
	Pauser     PauseWaiter
	Config     Config
	Logger     *slog.Logger
}

// NewScheduler wires a Scheduler from its components, applying a default
// logger if none is supplied. The scheduler's own model engine doubles as
// the task ledger's summarizer unless Summarizer is overridden afterward.
func NewScheduler(eng engine.ModelEngine, registry *tools.Registry, executor *tools.Executor, assembler *budget.Assembler, bm *budget.Manager, exec *execstate.Ledger, cfg Config, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		Engine:     eng,
		Registry:   registry,
		Executor:   executor,
		Assembler:  assembler,
		Budget:     bm,
		Exec:       exec,
		Summarizer: summarizer.NewEngineGenerator(eng, cfg.Model),
		Config:     cfg,
		Logger:     logger,
	}
}

// Run drives req from PhaseReady to PhaseDone, returning the terminal error
// (if any) once the loop stops.
func (s *Scheduler) Run(ctx context.Context, req *models.Request, ledger *summarizer.Ledger) error {
	deadline := time.Now().Add(s.Config.MaxWallTime)
	log := s.Logger.With("request_id", req.ID)

	nudgesRemaining := s.Config.MaxNudges
	forceTools := false

	for {
		if req.Cancelled.Load() {
			s.recordIteration(req, models.PhaseCancelled, "", nil, nil, models.StopCancelled)
			return ctx.Err()
		}
		if s.Pauser != nil {
			if err := s.Pauser.WaitWhilePaused(ctx); err != nil {
				s.recordIteration(req, models.PhaseCancelled, "", nil, nil, models.StopCancelled)
				return NewRequestError(err).WithCategory(CategoryCancelled)
			}
		}
		if s.Config.MaxWallTime > 0 && time.Now().After(deadline) {
			return (&RequestError{Category: CategoryTimeout, Message: "wall time budget exceeded"}).WithAttempts(len(req.Iterations))
		}
		if len(req.Iterations) >= s.Config.MaxIterations {
			return ErrMaxIterations
		}
		if s.Config.MaxToolCalls > 0 && req.State.ToolCallCount >= s.Config.MaxToolCalls {
			return (&RequestError{Category: CategoryFatalSession, Message: "tool call budget exceeded"})
		}

		iterIndex := len(req.Iterations)
		log.Debug("iteration starting", "iteration", iterIndex)

		s.maybeRotate(ctx, req, ledger)

		// Checkpoint before every generation, not just before a confirmed
		// tool-call commit: a flawed textual response (refusal, repetition)
		// needs a checkpoint to roll back to as much as a bad tool call does.
		req.Checkpoint = req.Snapshot()

		fc := forceTools
		forceTools = false
		text, nativeCalls, stopReason, genErr := s.generate(ctx, req, ledger, fc)
		if genErr != nil {
			if reqErr, ok := AsRequestError(genErr); ok && reqErr.Category == CategoryCancelled {
				s.recordIteration(req, models.PhaseCancelled, text, nil, nil, models.StopCancelled)
				return genErr
			}
			if s.attemptRollback(req) {
				log.Warn("generation failed, rolling back", "error", genErr)
				continue
			}
			return genErr
		}

		parsed := parser.Parse(text, nativeCalls)
		capped, dropped := parser.CapBrowserStateChanges(parsed.ToolCalls)
		if dropped > 0 {
			log.Warn("capped browser state-change calls", "dropped", dropped)
		}

		if len(capped) == 0 {
			result := classifier.Classify(classifier.Input{
				ResponseText:     parsed.Text,
				PreviousResponse: s.previousResponseText(req),
				ToolCalls:        capped,
				State:            req.State,
				NudgesRemaining:  nudgesRemaining,
			})

			switch {
			case result.Outcome == classifier.OutcomeNaturalStop:
				return s.finalize(ctx, req, ledger, parsed.Text, result, stopReason)

			case result.Outcome == classifier.OutcomeRepetition:
				log.Warn("repetition detected, stopping", "request_id", req.ID)
				return s.finalize(ctx, req, ledger, parsed.Text, result, stopReason)

			case result.Outcome == classifier.OutcomeRefusal && result.Severity == classifier.SeverityNudge && s.attemptRollback(req):
				log.Warn("refusal detected, rolling back for a grammar-forced retry", "request_id", req.ID)
				nudgesRemaining--
				forceTools = true
				continue

			case result.Severity == classifier.SeverityNudge:
				log.Warn("nudging on non-fatal outcome", "outcome", result.Outcome, "nudges_remaining", nudgesRemaining-1, "request_id", req.ID)
				nudgesRemaining--
				s.injectNudge(req, result.Outcome)
				s.recordIteration(req, models.PhaseContinue, parsed.Text, nil, nil, stopReason)
				continue

			default:
				return s.finalize(ctx, req, ledger, parsed.Text, result, stopReason)
			}
		}

		immediate, deferred := parser.ApplyWriteDeferral(capped)
		ordered := append(immediate, deferred...)

		// Deferred writes start only once every immediate call has finished.
		results := append(s.Executor.ExecuteAll(ctx, immediate), s.Executor.ExecuteAll(ctx, deferred)...)
		for i, call := range ordered {
			s.Exec.RecordToolCall(call, results[i])
			ledger.RecordToolCall(call, results[i])
		}
		req.State = s.Exec.State()

		s.recordIteration(req, models.PhaseUpdateState, parsed.Text, ordered, results, stopReason)
		s.appendTranscript(req, parsed.Text, ordered, results)

		if stop, note := s.detectStuckOrCycle(req); stop {
			log.Warn("stuck/cycle detector fired, stopping", "iteration", len(req.Iterations), "request_id", req.ID)
			return s.finalizeStuck(req, note)
		}
	}
}

func (s *Scheduler) generate(ctx context.Context, req *models.Request, ledger *summarizer.Ledger, forceTools bool) (string, []models.ToolCall, models.StopReason, error) {
	assembly := s.Assembler.Assemble(budget.Input{
		SystemPrompt:  s.Config.SystemBase,
		Tools:         s.Registry.Definitions(),
		LedgerSummary: ledger.State().LastSummary,
		History:       req.Messages,
	})
	s.Logger.Debug("prompt assembled", "compaction_phase", budget.PhaseLabel(assembly.CompactionPhase), "estimated_tokens", assembly.EstimatedTokens)

	messages := make([]models.Message, 0, len(assembly.DynamicSections))
	for _, section := range assembly.DynamicSections {
		role := section.Role
		if section.Name == "ledger_summary" {
			role = models.RoleSystem
		}
		messages = append(messages, models.Message{Role: role, Content: section.Content})
	}

	var fullText string
	var allCalls []models.ToolCall
	var stopReason models.StopReason

	for attempt := 0; ; attempt++ {
		chunks, err := s.Engine.Generate(ctx, engine.Request{
			Model:      s.Config.Model,
			System:     s.Config.SystemBase,
			Messages:   messages,
			Tools:      s.Registry.Definitions(),
			MaxTokens:  s.Config.MaxResponseTokens,
			ForceTools: forceTools,
		})
		if err != nil {
			return fullText, allCalls, models.StopError, NewRequestError(err)
		}

		text, calls, chunkStop, genErr := s.drainChunks(ctx, chunks)
		fullText += text
		allCalls = append(allCalls, calls...)
		if genErr != nil {
			return fullText, allCalls, chunkStop, genErr
		}
		stopReason = chunkStop

		if stopReason != models.StopMaxTokens || len(allCalls) > 0 || attempt >= maxSeamlessContinuations {
			break
		}

		s.Logger.Debug("seamless continuation after maxTokens", "attempt", attempt+1, "request_id", req.ID)
		messages = append(messages,
			models.Message{Role: models.RoleAssistant, Content: text},
			models.Message{Role: models.RoleUser, Content: "[continue where you left off]"},
		)
		forceTools = false
	}

	return fullText, allCalls, stopReason, nil
}

// drainChunks reads a single Generate call's chunk stream to completion,
// reassembling its text and tool calls and reporting the stop reason the
// final chunk carried.
func (s *Scheduler) drainChunks(ctx context.Context, chunks <-chan engine.Chunk) (string, []models.ToolCall, models.StopReason, error) {
	var text string
	var calls []models.ToolCall
	var stopReason models.StopReason
	for chunk := range chunks {
		if chunk.Err != nil {
			if ctx.Err() != nil {
				return text, calls, models.StopCancelled, NewRequestError(ctx.Err()).WithCategory(CategoryCancelled)
			}
			return text, calls, models.StopError, NewRequestError(chunk.Err)
		}
		if chunk.Text != "" {
			text += chunk.Text
		}
		if chunk.ToolCall != nil {
			if chunk.ToolCall.ID == "" {
				chunk.ToolCall.ID = uuid.NewString()
			}
			calls = append(calls, *chunk.ToolCall)
		}
		if chunk.Done {
			stopReason = chunk.StopReason
			break
		}
	}
	if stopReason == "" {
		if len(calls) > 0 {
			stopReason = models.StopTools
		} else {
			stopReason = models.StopNatural
		}
	}
	return text, calls, stopReason, nil
}

func (s *Scheduler) finalize(ctx context.Context, req *models.Request, ledger *summarizer.Ledger, text string, result classifier.Result, stopReason models.StopReason) error {
	if result.Outcome != classifier.OutcomeNaturalStop {
		s.Logger.Warn("non-natural stop", "outcome", result.Outcome, "severity", result.Severity, "request_id", req.ID)
	}
	if s.Guarantee != nil && s.Workspace != nil {
		missing := s.Guarantee.Check(ctx, text, *s.Exec)
		if len(missing) > 0 {
			if err := s.Guarantee.Fabricate(func(path, content string) error {
				return s.Workspace.Write(ctx, path, []byte(content), false)
			}, missing, text); err != nil {
				s.Logger.Warn("completion guarantee fabrication failed", "error", err, "request_id", req.ID)
			}
		}
	}
	req.Messages = append(req.Messages, models.Message{ID: uuid.NewString(), Role: models.RoleAssistant, Content: text, CreatedAt: time.Now()})
	s.recordIteration(req, models.PhaseDone, text, nil, nil, stopReason)
	return nil
}

// finalizeStuck ends the loop after the stuck/cycle detector fires,
// appending a reply that names the repetitive pattern rather than silently
// truncating the conversation. The iteration that tripped the detector is
// marked PhaseStop in place, so no extra iteration is recorded.
func (s *Scheduler) finalizeStuck(req *models.Request, note string) error {
	req.Messages = append(req.Messages, models.Message{ID: uuid.NewString(), Role: models.RoleAssistant, Content: note, CreatedAt: time.Now()})
	if n := len(req.Iterations); n > 0 {
		req.Iterations[n-1].Phase = models.PhaseStop
	}
	return nil
}

// injectNudge appends a user-role correction describing what a nudge-severity
// outcome asks the model to fix, so the next generation has a concrete
// instruction rather than just repeating the same prompt.
func (s *Scheduler) injectNudge(req *models.Request, outcome classifier.Outcome) {
	var note string
	switch outcome {
	case classifier.OutcomeEmptyResponse:
		note = "Your last response was empty. Continue the task using the available tools."
	case classifier.OutcomeMissedBrowserIntent:
		note = "You described visiting a page but didn't issue the browsing tool call. Issue it now, or explain why you can't."
	case classifier.OutcomeClaimWithoutAction:
		note = "You described completing an action that wasn't recorded. Perform it with a tool call, or correct your claim."
	default:
		note = "Continue the task using the available tools."
	}
	req.Messages = append(req.Messages, models.Message{ID: uuid.NewString(), Role: models.RoleUser, Content: note, CreatedAt: time.Now()})
}

func (s *Scheduler) attemptRollback(req *models.Request) bool {
	if req.Checkpoint == nil {
		return false
	}
	if req.RollbackRetries >= s.Config.MaxRollbacks {
		return false
	}
	req.RestoreFrom(req.Checkpoint)
	req.RollbackRetries++
	return true
}

func (s *Scheduler) maybeRotate(ctx context.Context, req *models.Request, ledger *summarizer.Ledger) {
	if !summarizer.ShouldCompactRaw(len(req.Messages)) {
		return
	}
	keep := 10
	if len(req.Messages) <= keep {
		return
	}
	toFold, kept := req.Messages[:len(req.Messages)-keep], req.Messages[len(req.Messages)-keep:]

	if s.Summarizer != nil {
		if _, err := ledger.GenerateSummary(ctx, s.Summarizer, toFold, s.Config.ContextWindow); err != nil {
			s.Logger.Warn("ledger summarization failed, folding history unsummarized", "error", err, "request_id", req.ID)
		}
	}
	ledger.MarkRotation()
	req.Messages = kept
}

func (s *Scheduler) previousResponseText(req *models.Request) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == models.RoleAssistant {
			return req.Messages[i].Content
		}
	}
	return ""
}

func (s *Scheduler) appendTranscript(req *models.Request, text string, calls []models.ToolCall, results []*models.ToolResult) {
	assistantMsg := models.Message{ID: uuid.NewString(), Role: models.RoleAssistant, Content: text, ToolCalls: calls, CreatedAt: time.Now()}
	req.Messages = append(req.Messages, assistantMsg)
	for _, r := range results {
		if r == nil {
			continue
		}
		req.Messages = append(req.Messages, models.Message{
			ID:          uuid.NewString(),
			Role:        models.RoleTool,
			Content:     r.Content,
			ToolResults: []models.ToolResult{*r},
			CreatedAt:   time.Now(),
		})
	}
}

func (s *Scheduler) recordIteration(req *models.Request, phase models.Phase, text string, calls []models.ToolCall, results []*models.ToolResult, stopReason models.StopReason) {
	iter := models.Iteration{
		Index:        len(req.Iterations),
		StartedAt:    time.Now(),
		EndedAt:      time.Now(),
		ResponseText: text,
		ToolCalls:    calls,
		Phase:        phase,
		StopReason:   stopReason,
	}
	for _, r := range results {
		if r != nil {
			iter.ToolResults = append(iter.ToolResults, *r)
		}
	}
	req.Iterations = append(req.Iterations, iter)
}

// detectStuckOrCycle inspects the tool calls executed so far across every
// iteration and reports whether the scheduler should stop: either the last
// stuckRunLength calls are identical (same tool, same params), or a
// length-2-to-4 sequence has repeated at least cycleMinRepeats times within
// the last cycleWindow calls.
func (s *Scheduler) detectStuckOrCycle(req *models.Request) (bool, string) {
	sigs := toolCallSignatures(req.Iterations)

	if isStuckRun(sigs) {
		return true, "I've repeated the same action several times without making progress, so I'm stopping here rather than continuing the loop."
	}
	if hasRepeatingCycle(sigs) {
		return true, "I've noticed I'm cycling through the same sequence of actions without making progress, so I'm stopping here."
	}
	return false, ""
}

func toolCallSignatures(iterations []models.Iteration) []string {
	var sigs []string
	for _, it := range iterations {
		for _, call := range it.ToolCalls {
			sigs = append(sigs, toolCallSignature(call))
		}
	}
	return sigs
}

func toolCallSignature(call models.ToolCall) string {
	h := sha1.New()
	h.Write([]byte(call.Name))
	h.Write([]byte{0})
	h.Write(call.Params)
	return hex.EncodeToString(h.Sum(nil))
}

func isStuckRun(sigs []string) bool {
	if len(sigs) < stuckRunLength {
		return false
	}
	last := sigs[len(sigs)-stuckRunLength:]
	for i := 1; i < len(last); i++ {
		if last[i] != last[0] {
			return false
		}
	}
	return true
}

// hasRepeatingCycle checks whether the most recent calls (within
// cycleWindow) end in cycleMinRepeats consecutive repeats of some
// length-2-to-4 pattern, e.g. [A B A B A B] for length 2.
func hasRepeatingCycle(sigs []string) bool {
	window := sigs
	if len(window) > cycleWindow {
		window = window[len(window)-cycleWindow:]
	}
	n := len(window)

	for length := cycleMinLength; length <= cycleMaxLength; length++ {
		span := length * cycleMinRepeats
		if n < span {
			continue
		}
		tail := window[n-span:]
		pattern := tail[:length]
		repeats := true
		for r := 1; r < cycleMinRepeats && repeats; r++ {
			segment := tail[r*length : (r+1)*length]
			for i := range pattern {
				if pattern[i] != segment[i] {
					repeats = false
					break
				}
			}
		}
		if repeats {
			return true
		}
	}
	return false
}
