package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rayfield/solar-ai-platform/internal/appointments"
	"github.com/rayfield/solar-ai-platform/internal/leads"
	"github.com/rayfield/solar-ai-platform/internal/observability/metrics"
	"github.com/rayfield/solar-ai-platform/pkg/logging"
)

// maxVoiceCallAttempts caps outbound hot-lead calls per lead, counted from
// conversation history. Attempts past the cap are silent no-ops.
const maxVoiceCallAttempts = 2

// VoiceCaller places an outbound phone call. The callback URL is configured
// on the implementation.
type VoiceCaller interface {
	InitiateCall(ctx context.Context, to string) (string, error)
}

type qualifyLeadArgs struct {
	IsHomeowner   *bool           `json:"is_homeowner"`
	MonthlyBill   *float64        `json:"monthly_bill"`
	Timeline      *leads.Timeline `json:"timeline"`
	InterestLevel *int            `json:"interest_level"`
}

type bookAppointmentArgs struct {
	PreferredDate string `json:"preferred_date"`
	PreferredTime string `json:"preferred_time"`
	ContactMethod string `json:"contact_method"`
}

type markUnqualifiedArgs struct {
	Reason string `json:"reason"`
}

// Dispatcher applies model action calls to lead state. Argument validation
// failures and unknown action names are logic errors: they are logged and
// swallowed so the reply can still go out. Persistence failures propagate.
type Dispatcher struct {
	repo    leads.Repository
	appts   appointments.Store
	ctxmgr  *ContextManager
	voice   VoiceCaller
	metrics *metrics.EngineMetrics
	logger  *logging.Logger
}

// NewDispatcher wires the action handlers. voice and m may be nil.
func NewDispatcher(repo leads.Repository, appts appointments.Store, ctxmgr *ContextManager, voice VoiceCaller, m *metrics.EngineMetrics, logger *logging.Logger) *Dispatcher {
	if repo == nil {
		panic("conversation: leads repository cannot be nil")
	}
	if appts == nil {
		panic("conversation: appointments store cannot be nil")
	}
	if ctxmgr == nil {
		panic("conversation: context manager cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{
		repo:    repo,
		appts:   appts,
		ctxmgr:  ctxmgr,
		voice:   voice,
		metrics: m,
		logger:  logger,
	}
}

// Dispatch routes one action call. Terminal leads are never mutated.
func (d *Dispatcher) Dispatch(ctx context.Context, lead *leads.Lead, call ActionCall) error {
	if lead.Status.Terminal() {
		d.logger.Info("skipping action for terminal lead",
			"lead_id", lead.ID,
			"status", lead.Status,
			"action", call.Name,
		)
		d.metrics.ObserveAction(call.Name, "skipped")
		return nil
	}

	var err error
	switch call.Name {
	case ActionQualifyLead:
		err = d.handleQualifyLead(ctx, lead, call.Arguments)
	case ActionBookAppointment:
		err = d.handleBookAppointment(ctx, lead, call.Arguments)
	case ActionMarkUnqualified:
		err = d.handleMarkUnqualified(ctx, lead, call.Arguments)
	default:
		d.logger.Warn("unknown action call ignored", "lead_id", lead.ID, "action", call.Name)
		d.metrics.ObserveAction(call.Name, "unknown")
		return nil
	}

	switch {
	case err == nil:
		d.metrics.ObserveAction(call.Name, "ok")
	case isLogicError(err):
		d.logger.Warn("malformed action arguments ignored",
			"lead_id", lead.ID,
			"action", call.Name,
			"error", err,
		)
		d.metrics.ObserveAction(call.Name, "malformed")
		return nil
	default:
		d.metrics.ObserveAction(call.Name, "error")
		return err
	}
	return nil
}

func isLogicError(err error) bool {
	return errors.Is(err, ErrMalformedAction) || errors.Is(err, ErrUnknownAction)
}

func (d *Dispatcher) handleQualifyLead(ctx context.Context, lead *leads.Lead, raw json.RawMessage) error {
	var args qualifyLeadArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedAction, err)
	}
	if args.IsHomeowner == nil {
		return fmt.Errorf("%w: is_homeowner is required", ErrMalformedAction)
	}
	if args.Timeline != nil && !args.Timeline.Valid() {
		return fmt.Errorf("%w: timeline %q", ErrMalformedAction, *args.Timeline)
	}
	if args.InterestLevel != nil && (*args.InterestLevel < 1 || *args.InterestLevel > 10) {
		return fmt.Errorf("%w: interest_level %d", ErrMalformedAction, *args.InterestLevel)
	}

	isHomeowner := *args.IsHomeowner
	var bill *int
	if args.MonthlyBill != nil {
		v := int(*args.MonthlyBill)
		bill = &v
	}

	// The model's arithmetic is never trusted beyond the engagement input;
	// the canonical score is recomputed here.
	engagement := 5
	if args.InterestLevel != nil {
		engagement = *args.InterestLevel
	}
	score := CalculateInterestScore(&isHomeowner, bill, args.Timeline, engagement)

	status := leads.StatusContacted
	if !isHomeowner {
		status = leads.StatusDead
	} else if IsQualified(&isHomeowner, bill, &score) {
		status = leads.StatusQualified
	}

	err := d.repo.SetQualification(ctx, lead.ID, leads.QualificationUpdate{
		Homeowner:     &isHomeowner,
		MonthlyBill:   bill,
		Timeline:      args.Timeline,
		InterestScore: score,
		Status:        status,
	})
	if err != nil {
		return err
	}

	d.logger.Info("lead qualified",
		"lead_id", lead.ID,
		"homeowner", isHomeowner,
		"bill", bill,
		"score", score,
		"status", status,
	)

	if score >= HotLeadThreshold && isHomeowner {
		d.triggerHotLeadCall(ctx, lead)
	}
	return nil
}

// triggerHotLeadCall places a bounded voice call. Call failures are logged
// but never fail the dispatch: the SMS conversation continues either way.
func (d *Dispatcher) triggerHotLeadCall(ctx context.Context, lead *leads.Lead) {
	if d.voice == nil {
		return
	}

	attempts, err := d.ctxmgr.store.CountOutboundVoice(ctx, lead.ID)
	if err != nil {
		d.logger.Error("failed to count voice attempts", "lead_id", lead.ID, "error", err)
		return
	}
	if attempts >= maxVoiceCallAttempts {
		d.logger.Info("voice call cap reached", "lead_id", lead.ID, "attempts", attempts)
		return
	}

	callSID, err := d.voice.InitiateCall(ctx, lead.Phone)
	if err != nil {
		d.logger.Error("failed to initiate hot lead call", "lead_id", lead.ID, "error", err)
		d.metrics.ObserveOutbound(string(ChannelVoice), "failed")
		return
	}

	if _, err := d.ctxmgr.StoreMessage(ctx, lead.ID, fmt.Sprintf("[VOICE CALL] sid=%s", callSID), DirectionOutbound, ChannelVoice, true); err != nil {
		d.logger.Error("failed to record voice call", "lead_id", lead.ID, "error", err)
		return
	}

	d.metrics.ObserveOutbound(string(ChannelVoice), "initiated")
	d.logger.Info("hot lead call initiated", "lead_id", lead.ID, "call_sid", callSID)
}

func (d *Dispatcher) handleBookAppointment(ctx context.Context, lead *leads.Lead, raw json.RawMessage) error {
	var args bookAppointmentArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedAction, err)
	}
	if args.ContactMethod != "phone" && args.ContactMethod != "video" {
		return fmt.Errorf("%w: contact_method %q", ErrMalformedAction, args.ContactMethod)
	}

	appt, err := d.appts.Create(ctx, appointments.CreateRequest{
		LeadID:        lead.ID,
		ContactMethod: args.ContactMethod,
		PreferredDate: args.PreferredDate,
		PreferredTime: args.PreferredTime,
	})
	if err != nil {
		return err
	}

	if err := d.repo.UpdateStatus(ctx, lead.ID, leads.StatusAppointmentSet); err != nil {
		return err
	}

	d.logger.Info("appointment booked",
		"lead_id", lead.ID,
		"appointment_id", appt.ID,
		"contact_method", args.ContactMethod,
		"preferred_date", args.PreferredDate,
		"preferred_time", args.PreferredTime,
	)
	return nil
}

func (d *Dispatcher) handleMarkUnqualified(ctx context.Context, lead *leads.Lead, raw json.RawMessage) error {
	var args markUnqualifiedArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedAction, err)
	}
	if args.Reason == "" {
		return fmt.Errorf("%w: reason is required", ErrMalformedAction)
	}

	// Only the score and status change here. Nil facts stay nil: marking a
	// lead dead must not invent a homeowner answer the lead never gave.
	err := d.repo.SetQualification(ctx, lead.ID, leads.QualificationUpdate{
		InterestScore: 1,
		Status:        leads.StatusDead,
	})
	if err != nil {
		return err
	}

	d.logger.Info("lead marked unqualified", "lead_id", lead.ID, "reason", args.Reason)
	return nil
}
