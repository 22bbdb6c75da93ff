package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/respondaai/automation-server-go/internal/model"
	"github.com/respondaai/automation-server-go/internal/repository"
	"github.com/respondaai/automation-server-go/internal/llm"
)

func key(tenantID, phone string) string { return tenantID + "|" + phone }

// --- trigger repository ---

type mockTriggerRepo struct {
	mu       sync.Mutex
	nextID   int
	triggers map[string]*model.PendingTrigger
	claimed  []string
}

func newMockTriggerRepo() *mockTriggerRepo {
	return &mockTriggerRepo{triggers: make(map[string]*model.PendingTrigger)}
}

func (m *mockTriggerRepo) Upsert(ctx context.Context, tenantID, phone string, scheduledAt time.Time) (*model.PendingTrigger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(tenantID, phone)
	if t, ok := m.triggers[k]; ok && !t.Processed {
		t.ScheduledAt = scheduledAt
		t.UpdatedAt = time.Now()
		copied := *t
		return &copied, nil
	}
	m.nextID++
	t := &model.PendingTrigger{
		ID:          fmt.Sprintf("trigger-%d", m.nextID),
		TenantID:    tenantID,
		Phone:       phone,
		ScheduledAt: scheduledAt,
		UpdatedAt:   time.Now(),
	}
	m.triggers[k] = t
	copied := *t
	return &copied, nil
}

func (m *mockTriggerRepo) FindUnprocessed(ctx context.Context, tenantID, phone string) (*model.PendingTrigger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.triggers[key(tenantID, phone)]; ok && !t.Processed {
		copied := *t
		return &copied, nil
	}
	return nil, nil
}

func (m *mockTriggerRepo) Claim(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.triggers {
		if t.ID == id && !t.Processed {
			t.Processed = true
			m.claimed = append(m.claimed, id)
			return true, nil
		}
	}
	return false, nil
}

func (m *mockTriggerRepo) FindDue(ctx context.Context, now time.Time, limit int) ([]model.PendingTrigger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var due []model.PendingTrigger
	for _, t := range m.triggers {
		if !t.Processed && !t.ScheduledAt.After(now) {
			due = append(due, *t)
		}
	}
	return due, nil
}

func (m *mockTriggerRepo) DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted int64
	for k, t := range m.triggers {
		if t.Processed && t.UpdatedAt.Before(cutoff) {
			delete(m.triggers, k)
			deleted++
		}
	}
	return deleted, nil
}

// --- session repository ---

type mockSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*model.AutomationSession
	now      func() time.Time
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{
		sessions: make(map[string]*model.AutomationSession),
		now:      time.Now,
	}
}

func (m *mockSessionRepo) get(tenantID, phone string) *model.AutomationSession {
	k := key(tenantID, phone)
	if s, ok := m.sessions[k]; ok {
		return s
	}
	s := &model.AutomationSession{
		ID:       k,
		TenantID: tenantID,
		Phone:    phone,
		Status:   model.SessionInactive,
	}
	m.sessions[k] = s
	return s
}

func (m *mockSessionRepo) FindByTenantAndPhone(ctx context.Context, tenantID, phone string) (*model.AutomationSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[key(tenantID, phone)]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, nil
}

func (m *mockSessionRepo) MarkActive(ctx context.Context, tenantID, phone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.get(tenantID, phone)
	if s.Status != model.SessionHandedOff {
		s.Status = model.SessionActive
	}
	return nil
}

func (m *mockSessionRepo) IncrementReplies(ctx context.Context, tenantID, phone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.get(tenantID, phone)
	if s.Status != model.SessionHandedOff {
		s.Status = model.SessionActive
		s.RepliesWithoutHuman++
	}
	return nil
}

func (m *mockSessionRepo) MarkHandedOff(ctx context.Context, tenantID, phone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.get(tenantID, phone)
	now := time.Now()
	s.Status = model.SessionHandedOff
	s.HandedOffAt = &now
	return nil
}

func (m *mockSessionRepo) RecordHumanReply(ctx context.Context, tenantID, phone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.get(tenantID, phone)
	now := time.Now()
	s.RepliesWithoutHuman = 0
	s.LastHumanReplyAt = &now
	return nil
}

func (m *mockSessionRepo) ReactivateByHuman(ctx context.Context, tenantID, phone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.get(tenantID, phone)
	s.Status = model.SessionActive
	s.RepliesWithoutHuman = 0
	s.HandedOffAt = nil
	return nil
}

func (m *mockSessionRepo) MarkOutOfHoursNotified(ctx context.Context, tenantID, phone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.get(tenantID, phone)
	now := m.now()
	s.OutOfHoursNotifiedAt = &now
	return nil
}

// --- conversation repository ---

type mockConversationRepo struct {
	mu            sync.Mutex
	conversations map[string]*model.Conversation
	activity      map[string]int
}

func newMockConversationRepo() *mockConversationRepo {
	return &mockConversationRepo{
		conversations: make(map[string]*model.Conversation),
		activity:      make(map[string]int),
	}
}

func (m *mockConversationRepo) FindByID(ctx context.Context, id string) (*model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.conversations {
		if c.ID == id {
			copied := *c
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *mockConversationRepo) FindByTenantAndPhone(ctx context.Context, tenantID, phone string) (*model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.conversations[key(tenantID, phone)]; ok {
		copied := *c
		return &copied, nil
	}
	return nil, nil
}

func (m *mockConversationRepo) Upsert(ctx context.Context, params model.UpsertConversationParams) (*model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(params.TenantID, params.Phone)
	if c, ok := m.conversations[k]; ok {
		if params.ContactName != nil {
			c.ContactName = params.ContactName
		}
		copied := *c
		return &copied, nil
	}
	c := &model.Conversation{
		ID:                k,
		TenantID:          params.TenantID,
		Phone:             params.Phone,
		ContactName:       params.ContactName,
		AutomationEnabled: params.AutomationEnabled,
	}
	m.conversations[k] = c
	copied := *c
	return &copied, nil
}

func (m *mockConversationRepo) SetAutomationEnabled(ctx context.Context, id string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.conversations {
		if c.ID == id {
			c.AutomationEnabled = enabled
		}
	}
	return nil
}

func (m *mockConversationRepo) RecordActivity(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activity[id]++
	return nil
}

// --- message repository ---

type mockMessageRepo struct {
	mu       sync.Mutex
	nextTime time.Time
	messages []model.Message
}

func newMockMessageRepo() *mockMessageRepo {
	return &mockMessageRepo{nextTime: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (m *mockMessageRepo) Create(ctx context.Context, params model.CreateMessageParams) (*model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextTime = m.nextTime.Add(time.Second)
	msg := model.Message{
		ID:             params.ID,
		ConversationID: params.ConversationID,
		Direction:      params.Direction,
		Author:         params.Author,
		Kind:           params.Kind,
		Content:        params.Content,
		CreatedAt:      m.nextTime,
	}
	m.messages = append(m.messages, msg)
	return &msg, nil
}

func (m *mockMessageRepo) FindRecent(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	return m.find(conversationID, limit, false)
}

func (m *mockMessageRepo) FindRecentInbound(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	return m.find(conversationID, limit, true)
}

func (m *mockMessageRepo) find(conversationID string, limit int, inboundOnly bool) ([]model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []model.Message
	for _, msg := range m.messages {
		if msg.ConversationID != conversationID {
			continue
		}
		if inboundOnly && msg.Direction != model.DirectionInbound {
			continue
		}
		matched = append(matched, msg)
	}
	if len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}
	return matched, nil
}

func (m *mockMessageRepo) outboundContents() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, msg := range m.messages {
		if msg.Direction == model.DirectionOutbound {
			out = append(out, msg.Content)
		}
	}
	return out
}

// --- config repository ---

type mockConfigRepo struct {
	configs map[string]*model.AutomationConfig
}

func newMockConfigRepo() *mockConfigRepo {
	return &mockConfigRepo{configs: make(map[string]*model.AutomationConfig)}
}

func (m *mockConfigRepo) FindByTenant(ctx context.Context, tenantID string) (*model.AutomationConfig, error) {
	if c, ok := m.configs[tenantID]; ok {
		copied := *c
		return &copied, nil
	}
	return nil, nil
}

func (m *mockConfigRepo) FindWithRemindersEnabled(ctx context.Context) ([]model.AutomationConfig, error) {
	var out []model.AutomationConfig
	for _, c := range m.configs {
		if c.RemindersEnabled {
			out = append(out, *c)
		}
	}
	return out, nil
}

// --- instance repository ---

type mockInstanceRepo struct {
	instances map[string]*model.ChannelInstance
}

func newMockInstanceRepo() *mockInstanceRepo {
	return &mockInstanceRepo{instances: make(map[string]*model.ChannelInstance)}
}

func (m *mockInstanceRepo) FindByName(ctx context.Context, name string) (*model.ChannelInstance, error) {
	for _, inst := range m.instances {
		if inst.Name == name {
			copied := *inst
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *mockInstanceRepo) FindByTenant(ctx context.Context, tenantID string) (*model.ChannelInstance, error) {
	if inst, ok := m.instances[tenantID]; ok {
		copied := *inst
		return &copied, nil
	}
	return nil, nil
}

func (m *mockInstanceRepo) UpdateStatus(ctx context.Context, tenantID string, status model.InstanceStatus, phoneNumber *string) error {
	if inst, ok := m.instances[tenantID]; ok {
		inst.Status = status
		if phoneNumber != nil {
			inst.PhoneNumber = phoneNumber
		}
	}
	return nil
}

// --- notification contacts ---

type mockContactRepo struct {
	handoff []model.NotificationContact
	booking []model.NotificationContact
}

func (m *mockContactRepo) FindHandoffRecipients(ctx context.Context, tenantID string) ([]model.NotificationContact, error) {
	return m.handoff, nil
}

func (m *mockContactRepo) FindBookingRecipients(ctx context.Context, tenantID string) ([]model.NotificationContact, error) {
	return m.booking, nil
}

// --- appointment repository ---

type mockAppointmentRepo struct {
	mu           sync.Mutex
	nextID       int
	appointments []*model.Appointment
}

func (m *mockAppointmentRepo) add(apt model.Appointment) *model.Appointment {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	if apt.ID == "" {
		apt.ID = fmt.Sprintf("apt-%d", m.nextID)
	}
	stored := apt
	m.appointments = append(m.appointments, &stored)
	return &stored
}

func (m *mockAppointmentRepo) FindByID(ctx context.Context, tenantID, id string) (*model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, apt := range m.appointments {
		if apt.TenantID == tenantID && apt.ID == id {
			copied := *apt
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *mockAppointmentRepo) Create(ctx context.Context, params model.CreateAppointmentParams) (*model.Appointment, error) {
	return m.add(model.Appointment{
		TenantID:        params.TenantID,
		Phone:           params.Phone,
		ContactName:     params.ContactName,
		Title:           params.Title,
		Description:     params.Description,
		Date:            params.Date,
		Time:            params.Time,
		DurationMinutes: params.DurationMinutes,
		Status:          model.AppointmentScheduled,
	}), nil
}

func (m *mockAppointmentRepo) CountActiveAt(ctx context.Context, tenantID, date, timeOfDay string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, apt := range m.appointments {
		if apt.TenantID == tenantID && apt.Date == date && apt.Time == timeOfDay && apt.Status != model.AppointmentCancelled {
			count++
		}
	}
	return count, nil
}

func (m *mockAppointmentRepo) CountActiveByDate(ctx context.Context, tenantID, date string) ([]repository.SlotCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[string]int)
	for _, apt := range m.appointments {
		if apt.TenantID == tenantID && apt.Date == date && apt.Status != model.AppointmentCancelled {
			counts[apt.Time]++
		}
	}
	var out []repository.SlotCount
	for t, c := range counts {
		out = append(out, repository.SlotCount{Time: t, Count: c})
	}
	return out, nil
}

func (m *mockAppointmentRepo) CancelByID(ctx context.Context, tenantID, id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, apt := range m.appointments {
		if apt.TenantID == tenantID && apt.ID == id && apt.Status != model.AppointmentCancelled {
			apt.Status = model.AppointmentCancelled
			return 1, nil
		}
	}
	return 0, nil
}

func (m *mockAppointmentRepo) CancelBySlot(ctx context.Context, tenantID, phone, date, timeOfDay string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rows int64
	for _, apt := range m.appointments {
		if apt.TenantID == tenantID && apt.Phone == phone && apt.Date == date &&
			apt.Time == timeOfDay && apt.Status != model.AppointmentCancelled {
			apt.Status = model.AppointmentCancelled
			rows++
		}
	}
	return rows, nil
}

func (m *mockAppointmentRepo) UpdateStatus(ctx context.Context, tenantID, id string, status model.AppointmentStatus) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, apt := range m.appointments {
		if apt.TenantID == tenantID && apt.ID == id {
			apt.Status = status
			return 1, nil
		}
	}
	return 0, nil
}

func (m *mockAppointmentRepo) FindEarliestScheduled(ctx context.Context, tenantID, phone, id string) (*model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var earliest *model.Appointment
	for _, apt := range m.appointments {
		if apt.TenantID != tenantID || apt.Status != model.AppointmentScheduled {
			continue
		}
		if phone != "" && apt.Phone != phone {
			continue
		}
		if id != "" && apt.ID != id {
			continue
		}
		if earliest == nil || apt.Date+apt.Time < earliest.Date+earliest.Time {
			earliest = apt
		}
	}
	if earliest == nil {
		return nil, nil
	}
	copied := *earliest
	return &copied, nil
}

func (m *mockAppointmentRepo) Confirm(ctx context.Context, id string, tags []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, apt := range m.appointments {
		if apt.ID == id {
			apt.Status = model.AppointmentConfirmed
			apt.ConfirmedByCustomer = true
			apt.Tags = tags
		}
	}
	return nil
}

func (m *mockAppointmentRepo) UpdateTags(ctx context.Context, tenantID, id string, tags []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, apt := range m.appointments {
		if apt.TenantID == tenantID && apt.ID == id {
			apt.Tags = tags
		}
	}
	return nil
}

func (m *mockAppointmentRepo) ListUpcoming(ctx context.Context, tenantID, phone, fromDate string, limit int) ([]model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Appointment
	for _, apt := range m.appointments {
		if apt.TenantID != tenantID || apt.Status == model.AppointmentCancelled {
			continue
		}
		if phone != "" && apt.Phone != phone {
			continue
		}
		if fromDate != "" && apt.Date < fromDate {
			continue
		}
		out = append(out, *apt)
	}
	return out, nil
}

func (m *mockAppointmentRepo) FindUnreminded(ctx context.Context, tenantID string, dates []string) ([]model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Appointment
	for _, apt := range m.appointments {
		if apt.TenantID != tenantID || apt.Status != model.AppointmentScheduled || apt.ReminderSent {
			continue
		}
		for _, d := range dates {
			if apt.Date == d {
				out = append(out, *apt)
				break
			}
		}
	}
	return out, nil
}

func (m *mockAppointmentRepo) MarkReminderSent(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, apt := range m.appointments {
		if apt.ID == id {
			apt.ReminderSent = true
		}
	}
	return nil
}

// --- slot rules ---

type mockSlotRuleRepo struct {
	rules []model.SlotRule
}

func (m *mockSlotRuleRepo) FindActiveByWeekday(ctx context.Context, tenantID string, weekday int) ([]model.SlotRule, error) {
	var out []model.SlotRule
	for _, rule := range m.rules {
		if rule.TenantID == tenantID && rule.Weekday == weekday && rule.Active {
			out = append(out, rule)
		}
	}
	return out, nil
}

// --- gateway sender ---

type sentMessage struct {
	Instance string
	Phone    string
	Text     string
}

type fakeSender struct {
	mu    sync.Mutex
	sent  []sentMessage
	fail  bool
}

func (f *fakeSender) SendText(ctx context.Context, instance, phone, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return fmt.Errorf("gateway down")
	}
	f.sent = append(f.sent, sentMessage{Instance: instance, Phone: phone, Text: text})
	return nil
}

func (f *fakeSender) SendTyping(ctx context.Context, instance, phone string, durationMs int) error {
	return nil
}

func (f *fakeSender) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, s := range f.sent {
		out = append(out, s.Text)
	}
	return out
}

// --- completion client ---

type stubCompletion struct {
	mu      sync.Mutex
	results []*llm.Result
	errs    []error
	calls   [][]llm.Content
}

func (s *stubCompletion) Complete(ctx context.Context, contents []llm.Content) (*llm.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make([]llm.Content, len(contents))
	copy(copied, contents)
	s.calls = append(s.calls, copied)

	i := len(s.calls) - 1
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i < len(s.results) {
		return s.results[i], nil
	}
	return &llm.Result{Text: "ok"}, nil
}

// --- transcriber ---

type fakeTranscriber struct {
	text string
	err  error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audioURL string) (string, error) {
	return f.text, f.err
}

// --- assembly helpers ---

func testConfig(tenantID string) *model.AutomationConfig {
	return &model.AutomationConfig{
		ID:                     "cfg-" + tenantID,
		TenantID:               tenantID,
		Enabled:                true,
		AgentName:              "Clara",
		BusinessHoursStart:     "08:00",
		BusinessHoursEnd:       "18:00",
		BusinessDays:           []int64{1, 2, 3, 4, 5},
		MaxRepliesWithoutHuman: 10,
		ReplyDelaySeconds:      5,
	}
}

func instantPacer(sender *fakeSender) *Pacer {
	return &Pacer{
		sender: sender,
		sleep:  func(time.Duration) {},
		jitter: func() time.Duration { return 0 },
	}
}

func containsText(texts []string, substr string) bool {
	for _, t := range texts {
		if strings.Contains(t, substr) {
			return true
		}
	}
	return false
}
