package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/respondaai/automation-server-go/internal/model"
)

type intakeFixture struct {
	convs       *mockConversationRepo
	msgs        *mockMessageRepo
	sessions    *mockSessionRepo
	configs     *mockConfigRepo
	triggers    *mockTriggerRepo
	transcriber *fakeTranscriber
	gate        *recordingHandler
	intake      *IntakeService
}

func newIntakeFixture(t *testing.T) *intakeFixture {
	t.Helper()
	f := &intakeFixture{
		convs:       newMockConversationRepo(),
		msgs:        newMockMessageRepo(),
		sessions:    newMockSessionRepo(),
		configs:     newMockConfigRepo(),
		triggers:    newMockTriggerRepo(),
		transcriber: &fakeTranscriber{},
		gate:        &recordingHandler{},
	}
	debounce := NewDebounceService(f.triggers, &recordingHandler{})
	t.Cleanup(debounce.Stop)
	f.intake = NewIntakeService(f.convs, f.msgs, f.sessions, f.configs, f.transcriber, debounce, f.gate)
	f.intake.now = func() time.Time { return businessMorning }
	f.configs.configs["t1"] = testConfig("t1")
	return f
}

func inboundText(text string) InboundEvent {
	return InboundEvent{
		TenantID: "t1", Phone: "5511999", ContactName: "Maria",
		MessageID: "m1", Kind: model.KindText, Text: text,
	}
}

func TestIntakePersistsAndSchedules(t *testing.T) {
	f := newIntakeFixture(t)
	ctx := context.Background()

	require.NoError(t, f.intake.HandleEvent(ctx, inboundText("oi, tudo bem?")))

	conv, err := f.convs.FindByTenantAndPhone(ctx, "t1", "5511999")
	require.NoError(t, err)
	require.NotNil(t, conv)
	assert.True(t, conv.AutomationEnabled)

	msgs, err := f.msgs.FindRecent(ctx, conv.ID, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "oi, tudo bem?", msgs[0].Content)
	assert.Equal(t, model.AuthorCustomer, msgs[0].Author)

	trigger, err := f.triggers.FindUnprocessed(ctx, "t1", "5511999")
	require.NoError(t, err)
	require.NotNil(t, trigger, "inbound message must arm the debounce window")
	assert.WithinDuration(t, time.Now().Add(5*time.Second), trigger.ScheduledAt, time.Second)
}

func TestIntakeBurstReschedules(t *testing.T) {
	f := newIntakeFixture(t)
	ctx := context.Background()

	require.NoError(t, f.intake.HandleEvent(ctx, inboundText("oi")))
	first, _ := f.triggers.FindUnprocessed(ctx, "t1", "5511999")
	require.NotNil(t, first)

	event := inboundText("tem horário amanhã?")
	event.MessageID = "m2"
	require.NoError(t, f.intake.HandleEvent(ctx, event))

	second, _ := f.triggers.FindUnprocessed(ctx, "t1", "5511999")
	require.NotNil(t, second)
	assert.Equal(t, first.ID, second.ID, "a burst re-arms the same trigger")
	assert.False(t, second.ScheduledAt.Before(first.ScheduledAt))
}

func TestIntakeOutOfHoursBypassesDebounce(t *testing.T) {
	f := newIntakeFixture(t)
	// Sunday night, well outside the configured window.
	f.intake.now = func() time.Time { return time.Date(2026, 3, 1, 22, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	require.NoError(t, f.intake.HandleEvent(ctx, inboundText("oi, ainda estão aí?")))

	conv, err := f.convs.FindByTenantAndPhone(ctx, "t1", "5511999")
	require.NoError(t, err)
	require.NotNil(t, conv)
	msgs, err := f.msgs.FindRecent(ctx, conv.ID, 10)
	require.NoError(t, err)
	assert.Len(t, msgs, 1, "the inbound message is still persisted")

	trigger, err := f.triggers.FindUnprocessed(ctx, "t1", "5511999")
	require.NoError(t, err)
	assert.Nil(t, trigger, "out-of-hours messages never arm the debounce window")
	assert.Equal(t, 1, f.gate.count(), "the gate runs inline to send the away message")
}

func TestIntakeHumanOutboundDisablesAutomation(t *testing.T) {
	f := newIntakeFixture(t)
	ctx := context.Background()

	require.NoError(t, f.intake.HandleEvent(ctx, inboundText("oi")))

	human := InboundEvent{
		TenantID: "t1", Phone: "5511999", MessageID: "m2",
		FromMe: true, Source: "android", Kind: model.KindText,
		Text: "Oi Maria, aqui é o João, vou te atender",
	}
	require.NoError(t, f.intake.HandleEvent(ctx, human))

	conv, _ := f.convs.FindByTenantAndPhone(ctx, "t1", "5511999")
	require.NotNil(t, conv)
	assert.False(t, conv.AutomationEnabled, "a human reply is a hard off")

	session, _ := f.sessions.FindByTenantAndPhone(ctx, "t1", "5511999")
	require.NotNil(t, session)
	assert.Equal(t, 0, session.RepliesWithoutHuman)
	assert.NotNil(t, session.LastHumanReplyAt)
}

func TestIntakeIgnoresOwnEcho(t *testing.T) {
	f := newIntakeFixture(t)
	ctx := context.Background()

	echo := InboundEvent{
		TenantID: "t1", Phone: "5511999", MessageID: "m1",
		FromMe: true, Source: "api", Kind: model.KindText, Text: "resposta automática",
	}
	require.NoError(t, f.intake.HandleEvent(ctx, echo))

	conv, _ := f.convs.FindByTenantAndPhone(ctx, "t1", "5511999")
	assert.Nil(t, conv, "gateway echoes of our own sends are dropped")
}

func TestIntakeKeywordReactivation(t *testing.T) {
	f := newIntakeFixture(t)
	f.configs.configs["t1"].KeywordActivationEnabled = true
	f.configs.configs["t1"].TriggerKeywords = []string{"orçamento"}
	ctx := context.Background()

	// Human takeover switches automation off.
	require.NoError(t, f.intake.HandleEvent(ctx, inboundText("oi")))
	require.NoError(t, f.intake.HandleEvent(ctx, InboundEvent{
		TenantID: "t1", Phone: "5511999", MessageID: "m2",
		FromMe: true, Source: "web", Kind: model.KindText, Text: "deixa comigo",
	}))

	// A plain message does not turn it back on.
	event := inboundText("obrigada!")
	event.MessageID = "m3"
	require.NoError(t, f.intake.HandleEvent(ctx, event))
	conv, _ := f.convs.FindByTenantAndPhone(ctx, "t1", "5511999")
	assert.False(t, conv.AutomationEnabled)

	// A keyword does.
	event = inboundText("quero um orçamento")
	event.MessageID = "m4"
	require.NoError(t, f.intake.HandleEvent(ctx, event))
	conv, _ = f.convs.FindByTenantAndPhone(ctx, "t1", "5511999")
	assert.True(t, conv.AutomationEnabled)

	session, _ := f.sessions.FindByTenantAndPhone(ctx, "t1", "5511999")
	require.NotNil(t, session)
	assert.Equal(t, model.SessionActive, session.Status)
}

func TestIntakeAudioTranscribed(t *testing.T) {
	f := newIntakeFixture(t)
	f.transcriber.text = "quero marcar um horário para sexta"
	ctx := context.Background()

	event := inboundText("")
	event.Kind = model.KindAudio
	event.MediaURL = "https://cdn.example/audio.ogg"
	require.NoError(t, f.intake.HandleEvent(ctx, event))

	conv, _ := f.convs.FindByTenantAndPhone(ctx, "t1", "5511999")
	msgs, _ := f.msgs.FindRecent(ctx, conv.ID, 10)
	require.Len(t, msgs, 1)
	assert.Equal(t, "quero marcar um horário para sexta", msgs[0].Content)
	assert.Equal(t, model.KindAudio, msgs[0].Kind)
}

func TestIntakeMediaPlaceholders(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*InboundEvent)
		want string
	}{
		{
			name: "audio transcription failure",
			mod: func(e *InboundEvent) {
				e.Kind = model.KindAudio
				e.MediaURL = "https://cdn.example/audio.ogg"
			},
			want: placeholderAudio,
		},
		{
			name: "image without caption",
			mod:  func(e *InboundEvent) { e.Kind = model.KindImage; e.Text = "" },
			want: placeholderImage,
		},
		{
			name: "document",
			mod:  func(e *InboundEvent) { e.Kind = model.KindDocument },
			want: placeholderDocument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newIntakeFixture(t)
			f.transcriber.err = assert.AnError
			ctx := context.Background()

			event := inboundText("")
			tt.mod(&event)
			require.NoError(t, f.intake.HandleEvent(ctx, event))

			conv, _ := f.convs.FindByTenantAndPhone(ctx, "t1", "5511999")
			msgs, _ := f.msgs.FindRecent(ctx, conv.ID, 10)
			require.Len(t, msgs, 1)
			assert.Equal(t, tt.want, msgs[0].Content)
		})
	}
}
