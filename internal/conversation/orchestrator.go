package conversation

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/rayfield/solar-ai-platform/internal/leads"
	"github.com/rayfield/solar-ai-platform/internal/observability/metrics"
	"github.com/rayfield/solar-ai-platform/pkg/logging"
)

var engineTracer = otel.Tracer("solarai.internal.conversation.engine")

// Messenger sends an outbound SMS and returns the provider message id.
type Messenger interface {
	Send(ctx context.Context, to, body string) (string, error)
}

// EscalationNotifier alerts operators when a conversation needs a human.
type EscalationNotifier interface {
	NotifyEscalation(ctx context.Context, lead *leads.Lead, reason string) error
}

// Engine is the conversation qualification orchestrator. One instance is
// shared by all worker goroutines; all per-lead state lives in the database.
type Engine struct {
	ctxmgr      *ContextManager
	llm         LLMClient
	dispatcher  *Dispatcher
	messenger   Messenger
	locks       LeadLocker
	escalations EscalationNotifier
	metrics     *metrics.EngineMetrics
	temperature float32
	maxTokens   int
	logger      *logging.Logger
}

// EngineOption customizes engine behavior.
type EngineOption func(*Engine)

// WithEscalationNotifier wires an operator alert channel for escalations.
func WithEscalationNotifier(n EscalationNotifier) EngineOption {
	return func(e *Engine) {
		e.escalations = n
	}
}

// WithEngineMetrics wires Prometheus instrumentation.
func WithEngineMetrics(m *metrics.EngineMetrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithSampling overrides the completion temperature and output token cap.
func WithSampling(temperature float32, maxTokens int) EngineOption {
	return func(e *Engine) {
		if temperature >= 0 {
			e.temperature = temperature
		}
		if maxTokens > 0 {
			e.maxTokens = maxTokens
		}
	}
}

// NewEngine wires the orchestrator. All dependencies are explicit so tests
// can substitute doubles.
func NewEngine(ctxmgr *ContextManager, llm LLMClient, dispatcher *Dispatcher, messenger Messenger, locks LeadLocker, logger *logging.Logger, opts ...EngineOption) *Engine {
	if ctxmgr == nil {
		panic("conversation: context manager cannot be nil")
	}
	if llm == nil {
		panic("conversation: llm client cannot be nil")
	}
	if dispatcher == nil {
		panic("conversation: dispatcher cannot be nil")
	}
	if messenger == nil {
		panic("conversation: messenger cannot be nil")
	}
	if locks == nil {
		locks = NewMemoryLeadLocker()
	}
	if logger == nil {
		logger = logging.Default()
	}

	e := &Engine{
		ctxmgr:      ctxmgr,
		llm:         llm,
		dispatcher:  dispatcher,
		messenger:   messenger,
		locks:       locks,
		temperature: 0.7,
		maxTokens:   200,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ProcessMessage runs one engine invocation for an inbound message: load
// context, maybe escalate, extract facts optimistically, call the model,
// dispatch any action, send the reply, then mark the message processed.
func (e *Engine) ProcessMessage(ctx context.Context, leadID, messageID string) error {
	ctx, span := engineTracer.Start(ctx, "conversation.process_message")
	defer span.End()
	span.SetAttributes(
		attribute.String("solarai.lead_id", leadID),
		attribute.String("solarai.message_id", messageID),
	)

	release, err := e.locks.Acquire(ctx, leadID)
	if err != nil {
		return MarkTransient(err)
	}
	defer release()

	lc, err := e.ctxmgr.GetContext(ctx, leadID)
	if err != nil {
		span.RecordError(err)
		return err
	}

	if NeedsHumanEscalation(lc) {
		return e.escalate(ctx, lc)
	}

	state := ClassifyState(lc)
	e.logger.Info("conversation state classified",
		"lead_id", leadID,
		"state", state.State,
		"needs_response", state.NeedsResponse,
	)

	inbound, err := e.ctxmgr.store.GetByID(ctx, messageID)
	if err != nil {
		span.RecordError(err)
		return err
	}

	if inbound.Direction == DirectionInbound {
		if updated, err := e.applyExtraction(ctx, lc.Lead, inbound.Body); err != nil {
			span.RecordError(err)
			return err
		} else if updated != nil {
			lc.Lead = updated
		}
	}

	prompt := BuildSystemPrompt(Summarize(lc))

	started := time.Now()
	result, err := e.llm.Complete(ctx, CompletionRequest{
		Messages:    FormatForModel(lc, prompt),
		Temperature: e.temperature,
		MaxTokens:   e.maxTokens,
	})
	if err != nil {
		e.metrics.ObserveLLMLatency("error", time.Since(started).Seconds())
		span.RecordError(err)
		return MarkTransient(err)
	}
	e.metrics.ObserveLLMLatency("ok", time.Since(started).Seconds())

	// The action must land before the reply: the reply's truthfulness may
	// depend on the action's effect.
	if result.Action != nil {
		if err := e.dispatcher.Dispatch(ctx, lc.Lead, *result.Action); err != nil {
			span.RecordError(err)
			return err
		}
	}

	reply := result.Reply
	if reply == "" && result.Action != nil && result.Action.Name == ActionQualifyLead {
		// The model sometimes calls qualify_lead with no accompanying text.
		// A freshly qualified lead still gets the savings pitch.
		refreshed, err := e.ctxmgr.repo.GetByID(ctx, leadID)
		if err != nil {
			span.RecordError(err)
			return err
		}
		if refreshed.Status == leads.StatusQualified && refreshed.MonthlyBill != nil {
			reply = QualifiedMessage(*refreshed.MonthlyBill)
		}
	}

	if reply != "" && lc.Lead.Phone != "" {
		if _, err := e.messenger.Send(ctx, lc.Lead.Phone, reply); err != nil {
			e.metrics.ObserveOutbound(string(ChannelSMS), "failed")
			span.RecordError(err)
			return MarkTransient(err)
		}
		e.metrics.ObserveOutbound(string(ChannelSMS), "sent")

		if _, err := e.ctxmgr.StoreMessage(ctx, leadID, reply, DirectionOutbound, ChannelSMS, true); err != nil {
			span.RecordError(err)
			return err
		}

		e.logger.Info("ai reply sent",
			"lead_id", leadID,
			"reply_length", len(reply),
			"had_action", result.Action != nil,
		)
	}

	return e.ctxmgr.store.MarkProcessed(ctx, messageID)
}

// applyExtraction runs the heuristics over one inbound message and persists
// anything the lead record does not know yet. Safe to re-apply: only empty
// slots are ever written.
func (e *Engine) applyExtraction(ctx context.Context, lead *leads.Lead, body string) (*leads.Lead, error) {
	facts := leads.QualificationFacts{}
	if lead.Homeowner == nil {
		facts.Homeowner = DetectHomeownerStatus(body)
	}
	if lead.MonthlyBill == nil {
		facts.MonthlyBill = ExtractBillAmount(body)
	}
	if lead.Timeline == nil {
		facts.Timeline = DetectTimeline(body)
	}

	// Once every core fact is in hand the score and verdict are computed
	// here too, so qualification happens even if the model never calls
	// qualify_lead.
	merged := *lead
	if facts.Homeowner != nil {
		merged.Homeowner = facts.Homeowner
	}
	if facts.MonthlyBill != nil {
		merged.MonthlyBill = facts.MonthlyBill
	}
	if facts.Timeline != nil {
		merged.Timeline = facts.Timeline
	}
	if merged.InterestScore == nil && merged.Homeowner != nil && merged.MonthlyBill != nil && merged.Timeline != nil {
		score := CalculateInterestScore(merged.Homeowner, merged.MonthlyBill, merged.Timeline, AssessEngagement(body))
		facts.InterestScore = &score
	}

	if facts.Empty() {
		return nil, nil
	}

	updated, err := e.ctxmgr.repo.FillQualification(ctx, lead.ID, facts)
	if err != nil {
		return nil, err
	}
	e.logger.Info("lead facts extracted",
		"lead_id", lead.ID,
		"homeowner", facts.Homeowner != nil,
		"bill", facts.MonthlyBill != nil,
		"timeline", facts.Timeline != nil,
		"score", facts.InterestScore != nil,
	)

	// Upgrade the status when the freshly-known facts already qualify the
	// lead; an explicit non-homeowner goes dead without waiting for the
	// model. Terminal statuses are left alone.
	if !updated.Status.Terminal() {
		switch {
		case updated.Homeowner != nil && !*updated.Homeowner:
			if err := e.ctxmgr.repo.UpdateStatus(ctx, updated.ID, leads.StatusDead); err != nil {
				return nil, err
			}
			updated.Status = leads.StatusDead
		case updated.Status == leads.StatusNew || updated.Status == leads.StatusContacted:
			if IsQualified(updated.Homeowner, updated.MonthlyBill, updated.InterestScore) && updated.MonthlyBill != nil {
				if err := e.ctxmgr.repo.UpdateStatus(ctx, updated.ID, leads.StatusQualified); err != nil {
					return nil, err
				}
				updated.Status = leads.StatusQualified
			}
		}
	}
	return updated, nil
}

// escalate records the human-review note, alerts operators, and ends the
// invocation without touching the model.
func (e *Engine) escalate(ctx context.Context, lc *LeadContext) error {
	e.logger.Warn("human escalation needed", "lead_id", lc.Lead.ID)
	e.metrics.ObserveEscalation()

	if _, err := e.ctxmgr.StoreMessage(ctx, lc.Lead.ID, EscalationNote, DirectionOutbound, ChannelSMS, true); err != nil {
		return err
	}

	if e.escalations != nil {
		if err := e.escalations.NotifyEscalation(ctx, lc.Lead, "conversation flagged for human review"); err != nil {
			e.logger.Error("failed to notify escalation", "lead_id", lc.Lead.ID, "error", err)
		}
	}
	return nil
}

// StartContact sends the first outbound SMS for a freshly created lead.
func (e *Engine) StartContact(ctx context.Context, leadID string) error {
	ctx, span := engineTracer.Start(ctx, "conversation.start_contact")
	defer span.End()
	span.SetAttributes(attribute.String("solarai.lead_id", leadID))

	release, err := e.locks.Acquire(ctx, leadID)
	if err != nil {
		return MarkTransient(err)
	}
	defer release()

	lead, err := e.ctxmgr.repo.GetByID(ctx, leadID)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if lead.Phone == "" {
		e.logger.Warn("lead has no phone, skipping initial contact", "lead_id", leadID)
		return nil
	}
	if lead.Status.Terminal() {
		e.logger.Info("skipping initial contact for terminal lead", "lead_id", leadID, "status", lead.Status)
		return nil
	}

	body := InitialContactMessage(lead.Name, lead.Address)
	if _, err := e.messenger.Send(ctx, lead.Phone, body); err != nil {
		e.metrics.ObserveOutbound(string(ChannelSMS), "failed")
		span.RecordError(err)
		return MarkTransient(err)
	}
	e.metrics.ObserveOutbound(string(ChannelSMS), "sent")

	if _, err := e.ctxmgr.StoreMessage(ctx, leadID, body, DirectionOutbound, ChannelSMS, true); err != nil {
		span.RecordError(err)
		return err
	}

	if lead.Status == leads.StatusNew {
		if err := e.ctxmgr.repo.UpdateStatus(ctx, leadID, leads.StatusContacted); err != nil {
			span.RecordError(err)
			return err
		}
	}

	e.logger.Info("initial contact sent", "lead_id", leadID)
	return nil
}

// SendReminder nudges a quiet conversation. Leads that are dead, booked, or
// already replying are left alone.
func (e *Engine) SendReminder(ctx context.Context, leadID string, quietFor time.Duration) error {
	release, err := e.locks.Acquire(ctx, leadID)
	if err != nil {
		return MarkTransient(err)
	}
	defer release()

	lead, err := e.ctxmgr.repo.GetByID(ctx, leadID)
	if err != nil {
		return err
	}
	if lead.Status.Terminal() || lead.Phone == "" {
		return nil
	}
	if lead.LastContact != nil && time.Since(*lead.LastContact) < quietFor {
		return nil
	}

	body := ReminderMessage(lead.Name)
	if _, err := e.messenger.Send(ctx, lead.Phone, body); err != nil {
		e.metrics.ObserveOutbound(string(ChannelSMS), "failed")
		return MarkTransient(err)
	}
	e.metrics.ObserveOutbound(string(ChannelSMS), "sent")

	if _, err := e.ctxmgr.StoreMessage(ctx, leadID, body, DirectionOutbound, ChannelSMS, true); err != nil {
		return err
	}

	e.logger.Info("reminder sent", "lead_id", leadID)
	return nil
}
