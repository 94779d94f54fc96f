package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rayfield/solar-ai-platform/internal/appointments"
	"github.com/rayfield/solar-ai-platform/internal/leads"
)

type scriptedLLM struct {
	result   CompletionResult
	err      error
	requests []CompletionRequest
}

func (s *scriptedLLM) Complete(_ context.Context, req CompletionRequest) (CompletionResult, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return CompletionResult{}, s.err
	}
	return s.result, nil
}

type recordingMessenger struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (m *recordingMessenger) Send(_ context.Context, _, body string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, body)
	return "SM123", nil
}

func (m *recordingMessenger) sentBodies() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...)
}

type recordingNotifier struct {
	escalated []string
}

func (n *recordingNotifier) NotifyEscalation(_ context.Context, lead *leads.Lead, _ string) error {
	n.escalated = append(n.escalated, lead.ID)
	return nil
}

type engineFixture struct {
	repo      *leads.InMemoryRepository
	messages  *MemoryMessageStore
	llm       *scriptedLLM
	messenger *recordingMessenger
	notifier  *recordingNotifier
	voice     *fakeVoiceCaller
	engine    *Engine
	lead      *leads.Lead
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	repo := leads.NewInMemoryRepository()
	messages := NewMemoryMessageStore()
	ctxmgr := NewContextManager(repo, messages, nil)
	llm := &scriptedLLM{result: CompletionResult{Reply: "Got it, thanks!"}}
	messenger := &recordingMessenger{}
	notifier := &recordingNotifier{}
	voice := &fakeVoiceCaller{}
	dispatcher := NewDispatcher(repo, appointments.NewMemoryStore(), ctxmgr, voice, nil, nil)

	lead, err := repo.Create(context.Background(), &leads.CreateLeadRequest{
		Name:    "Dana Ellis",
		Phone:   "+15550100",
		Address: "12 Sunview Dr",
		Source:  "web",
	})
	require.NoError(t, err)

	engine := NewEngine(ctxmgr, llm, dispatcher, messenger, NewMemoryLeadLocker(), nil,
		WithEscalationNotifier(notifier),
	)

	return &engineFixture{
		repo:      repo,
		messages:  messages,
		llm:       llm,
		messenger: messenger,
		notifier:  notifier,
		voice:     voice,
		engine:    engine,
		lead:      lead,
	}
}

func (f *engineFixture) inbound(t *testing.T, body string) *Message {
	t.Helper()
	msg, err := f.messages.Append(context.Background(), f.lead.ID, body, DirectionInbound, ChannelSMS, false)
	require.NoError(t, err)
	return msg
}

func TestProcessMessageExtractsAndReplies(t *testing.T) {
	f := newEngineFixture(t)
	msg := f.inbound(t, "Yes I own my home, bill is around $220, want it done soon")

	err := f.engine.ProcessMessage(context.Background(), f.lead.ID, msg.ID)
	require.NoError(t, err)

	updated, err := f.repo.GetByID(context.Background(), f.lead.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.Homeowner)
	assert.True(t, *updated.Homeowner)
	require.NotNil(t, updated.MonthlyBill)
	assert.Equal(t, 220, *updated.MonthlyBill)
	require.NotNil(t, updated.Timeline)
	assert.Equal(t, leads.TimelineImmediate, *updated.Timeline)
	require.NotNil(t, updated.InterestScore)
	assert.GreaterOrEqual(t, *updated.InterestScore, HotLeadThreshold)
	assert.Equal(t, leads.StatusQualified, updated.Status)

	assert.Equal(t, []string{"Got it, thanks!"}, f.messenger.sent)

	stored, err := f.messages.GetByID(context.Background(), msg.ID)
	require.NoError(t, err)
	assert.True(t, stored.AIProcessed)
}

func TestProcessMessageIdempotentExtraction(t *testing.T) {
	f := newEngineFixture(t)

	first := f.inbound(t, "yes, I own it. around $220 and soon!")
	require.NoError(t, f.engine.ProcessMessage(context.Background(), f.lead.ID, first.ID))

	afterFirst, err := f.repo.GetByID(context.Background(), f.lead.ID)
	require.NoError(t, err)

	// A later message with conflicting signals never overwrites known facts.
	second := f.inbound(t, "actually the bill is more like $90")
	require.NoError(t, f.engine.ProcessMessage(context.Background(), f.lead.ID, second.ID))

	afterSecond, err := f.repo.GetByID(context.Background(), f.lead.ID)
	require.NoError(t, err)
	assert.Equal(t, *afterFirst.MonthlyBill, *afterSecond.MonthlyBill)
	assert.Equal(t, *afterFirst.InterestScore, *afterSecond.InterestScore)
}

func TestProcessMessageRenterGoesDead(t *testing.T) {
	f := newEngineFixture(t)
	msg := f.inbound(t, "nope, renting")

	require.NoError(t, f.engine.ProcessMessage(context.Background(), f.lead.ID, msg.ID))

	updated, err := f.repo.GetByID(context.Background(), f.lead.ID)
	require.NoError(t, err)
	assert.Equal(t, leads.StatusDead, updated.Status)
}

func TestProcessMessageDispatchesAction(t *testing.T) {
	f := newEngineFixture(t)
	f.llm.result = CompletionResult{
		Reply: "You're all set!",
		Action: &ActionCall{
			Name:      ActionQualifyLead,
			Arguments: json.RawMessage(`{"is_homeowner":true,"monthly_bill":300,"timeline":"immediate","interest_level":9}`),
		},
	}
	msg := f.inbound(t, "sounds good")

	require.NoError(t, f.engine.ProcessMessage(context.Background(), f.lead.ID, msg.ID))

	updated, err := f.repo.GetByID(context.Background(), f.lead.ID)
	require.NoError(t, err)
	assert.Equal(t, leads.StatusQualified, updated.Status)
	assert.Len(t, f.voice.calls, 1, "hot lead gets one call")
	assert.Equal(t, []string{"You're all set!"}, f.messenger.sent)
}

func TestProcessMessageSilentQualifyGetsSavingsPitch(t *testing.T) {
	f := newEngineFixture(t)
	f.llm.result = CompletionResult{
		Action: &ActionCall{
			Name:      ActionQualifyLead,
			Arguments: json.RawMessage(`{"is_homeowner":true,"monthly_bill":200,"timeline":"3-6_months","interest_level":7}`),
		},
	}
	msg := f.inbound(t, "yes I own and the bill is about 200")

	require.NoError(t, f.engine.ProcessMessage(context.Background(), f.lead.ID, msg.ID))

	sent := f.messenger.sentBodies()
	require.Len(t, sent, 1)
	assert.Equal(t, QualifiedMessage(200), sent[0])

	updated, err := f.repo.GetByID(context.Background(), f.lead.ID)
	require.NoError(t, err)
	assert.Equal(t, leads.StatusQualified, updated.Status)
}

func TestProcessMessageSilentUnqualifyStaysSilent(t *testing.T) {
	f := newEngineFixture(t)
	f.llm.result = CompletionResult{
		Action: &ActionCall{
			Name:      ActionMarkUnqualified,
			Arguments: json.RawMessage(`{"reason":"not_interested"}`),
		},
	}
	msg := f.inbound(t, "please leave it")

	require.NoError(t, f.engine.ProcessMessage(context.Background(), f.lead.ID, msg.ID))
	assert.Empty(t, f.messenger.sentBodies())
}

func TestProcessMessageEscalation(t *testing.T) {
	f := newEngineFixture(t)
	msg := f.inbound(t, "I want to speak to a real person")

	require.NoError(t, f.engine.ProcessMessage(context.Background(), f.lead.ID, msg.ID))

	assert.Equal(t, []string{f.lead.ID}, f.notifier.escalated)
	assert.Empty(t, f.llm.requests, "escalation must not reach the model")
	assert.Empty(t, f.messenger.sent)

	recent, err := f.messages.ListRecent(context.Background(), f.lead.ID, 0)
	require.NoError(t, err)
	require.NotEmpty(t, recent)
	assert.Equal(t, EscalationNote, recent[len(recent)-1].Body)

	// The inbound message stays unprocessed so a human can pick it up.
	stored, err := f.messages.GetByID(context.Background(), msg.ID)
	require.NoError(t, err)
	assert.False(t, stored.AIProcessed)
}

func TestProcessMessageLLMFailureIsTransient(t *testing.T) {
	f := newEngineFixture(t)
	f.llm.err = errors.New("rate limited")
	msg := f.inbound(t, "hello")

	err := f.engine.ProcessMessage(context.Background(), f.lead.ID, msg.ID)
	require.Error(t, err)
	assert.True(t, IsTransient(err))

	stored, getErr := f.messages.GetByID(context.Background(), msg.ID)
	require.NoError(t, getErr)
	assert.False(t, stored.AIProcessed, "failed runs leave the message for retry")
}

func TestProcessMessageSendFailureIsTransient(t *testing.T) {
	f := newEngineFixture(t)
	f.messenger.err = errors.New("carrier timeout")
	msg := f.inbound(t, "hello")

	err := f.engine.ProcessMessage(context.Background(), f.lead.ID, msg.ID)
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestProcessMessageMissingLead(t *testing.T) {
	f := newEngineFixture(t)
	err := f.engine.ProcessMessage(context.Background(), "nope", "also-nope")
	assert.ErrorIs(t, err, leads.ErrLeadNotFound)
	assert.False(t, IsTransient(err))
}

func TestProcessMessageMissingMessage(t *testing.T) {
	f := newEngineFixture(t)
	f.inbound(t, "hi there")

	err := f.engine.ProcessMessage(context.Background(), f.lead.ID, "missing")
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestStartContact(t *testing.T) {
	f := newEngineFixture(t)

	require.NoError(t, f.engine.StartContact(context.Background(), f.lead.ID))

	require.Len(t, f.messenger.sent, 1)
	assert.Contains(t, f.messenger.sent[0], "Dana Ellis")
	assert.Contains(t, f.messenger.sent[0], "12 Sunview Dr")
	assert.True(t, strings.Contains(f.messenger.sent[0], "YES or NO"))

	updated, err := f.repo.GetByID(context.Background(), f.lead.ID)
	require.NoError(t, err)
	assert.Equal(t, leads.StatusContacted, updated.Status)
	assert.Equal(t, 1, updated.ContactAttempts)
}

func TestStartContactSkipsTerminalLead(t *testing.T) {
	f := newEngineFixture(t)
	require.NoError(t, f.repo.UpdateStatus(context.Background(), f.lead.ID, leads.StatusDead))

	require.NoError(t, f.engine.StartContact(context.Background(), f.lead.ID))
	assert.Empty(t, f.messenger.sent)
}

func TestSendReminder(t *testing.T) {
	f := newEngineFixture(t)

	t.Run("quiet lead gets a nudge", func(t *testing.T) {
		require.NoError(t, f.engine.SendReminder(context.Background(), f.lead.ID, time.Hour))
		require.Len(t, f.messenger.sent, 1)
		assert.Contains(t, f.messenger.sent[0], "Dana Ellis")
	})

	t.Run("recent contact suppresses the nudge", func(t *testing.T) {
		// The reminder above just refreshed last_contact.
		require.NoError(t, f.engine.SendReminder(context.Background(), f.lead.ID, time.Hour))
		assert.Len(t, f.messenger.sent, 1)
	})

	t.Run("terminal lead is left alone", func(t *testing.T) {
		require.NoError(t, f.repo.UpdateStatus(context.Background(), f.lead.ID, leads.StatusAppointmentSet))
		require.NoError(t, f.engine.SendReminder(context.Background(), f.lead.ID, 0))
		assert.Len(t, f.messenger.sent, 1)
	})
}
