package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/respondaai/automation-server-go/internal/config"
	"github.com/respondaai/automation-server-go/internal/errors"
	"github.com/respondaai/automation-server-go/internal/llm"
	"github.com/respondaai/automation-server-go/internal/metrics"
	"github.com/respondaai/automation-server-go/internal/model"
	"github.com/respondaai/automation-server-go/internal/repository"
)

const (
	historyWindow = 20

	fallbackReply = "Desculpe, tive um problema para processar sua mensagem. Pode repetir, por favor?"

	correctiveReprompt = "Sua última resposta continha código em vez de texto. " +
		"Use as funções disponíveis para executar ações e responda ao cliente apenas com texto natural em português."

	askSlotDetails = "Só para garantir que fique tudo certo: qual data e horário você prefere? Assim já deixo agendado aqui. 😊"
)

// Booking-confirmation phrasing the model must not emit unless a booking
// was actually written this firing.
var bookingClaimRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)agendamento\s+(foi\s+)?(confirmado|criado|marcado|realizado)`),
	regexp.MustCompile(`(?i)(está|esta|foi)\s+marcad[oa]\s+para`),
	regexp.MustCompile(`(?i)\bagendei\b`),
	regexp.MustCompile(`(?i)\bagendado\s+para\b`),
	regexp.MustCompile(`(?i)consulta\s+(confirmada|marcada)`),
}

var (
	textDateRe = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	textTimeRe = regexp.MustCompile(`\b\d{1,2}:\d{2}\b`)
)

// Generator runs the completion loop for one trigger firing: completions
// interleaved with action execution, bounded by a fixed iteration budget.
type Generator struct {
	client       llm.Client
	appointments *AppointmentService
	messages     repository.MessageRepository
	now          func() time.Time
}

func NewGenerator(
	client llm.Client,
	appointments *AppointmentService,
	messages repository.MessageRepository,
) *Generator {
	return &Generator{
		client:       client,
		appointments: appointments,
		messages:     messages,
		now:          time.Now,
	}
}

// GenerateReply produces the customer-facing reply text for one firing.
// An upstream failure aborts the firing; the caller treats it as if the
// trigger never fired so quota is not consumed.
func (g *Generator) GenerateReply(ctx context.Context, cfg *model.AutomationConfig, conv *model.Conversation) (string, error) {
	history, err := g.messages.FindRecent(ctx, conv.ID, historyWindow)
	if err != nil {
		return "", errors.Database(err)
	}

	contactName := ""
	if conv.ContactName != nil {
		contactName = *conv.ContactName
	}
	contents := []llm.Content{
		llm.TextContent("user", BuildSystemPrompt(cfg, contactName, g.now())),
		llm.TextContent("model", "Entendido. Vou atender o cliente seguindo essas regras."),
	}
	for i := range history {
		contents = append(contents, llm.TextContent(historyRole(&history[i]), history[i].Content))
	}

	booked := false
	var bookedApt *model.Appointment

	for i := 0; i < config.GeneratorMaxIterations; i++ {
		started := time.Now()
		result, err := g.client.Complete(ctx, contents)
		metrics.CompletionLatency.Observe(time.Since(started).Seconds())
		if err != nil {
			if errors.HasCode(err, errors.ErrCodeMalformedModelOutput) {
				log.Warn().Err(err).Str("tenant_id", cfg.TenantID).Msg("completion returned malformed output")
				contents = append(contents, llm.TextContent("user", correctiveReprompt))
				continue
			}
			return "", err
		}

		if result.ToolCall != nil {
			response := g.executeCall(ctx, cfg, conv, result.ToolCall.Name, llm.CoerceArgs(result.ToolCall.Args), &booked, &bookedApt)
			contents = append(contents,
				llm.CallContent(result.ToolCall),
				llm.ResponseContent(result.ToolCall.Name, response))
			continue
		}

		text := strings.TrimSpace(result.Text)
		if llm.ContainsLeakedSyntax(text) {
			if action, ok := llm.ParseLeakedAction(text); ok {
				call := &llm.FunctionCall{Name: string(action.Kind)}
				response := g.executeCall(ctx, cfg, conv, string(action.Kind), action.Args, &booked, &bookedApt)
				contents = append(contents,
					llm.CallContent(call),
					llm.ResponseContent(call.Name, response))
				continue
			}
			contents = append(contents, llm.TextContent("user", correctiveReprompt))
			continue
		}

		if !booked && claimsBooking(text) {
			return g.enforceBooking(ctx, cfg, conv, text)
		}
		return text, nil
	}

	// Budget exhausted. A completed booking still deserves a concrete
	// answer; anything else gets the generic fallback.
	if booked && bookedApt != nil {
		return fmt.Sprintf("Perfeito! Seu agendamento de %s está marcado para %s às %s. Até lá! 😊",
			bookedApt.Title, bookedApt.Date, bookedApt.Time), nil
	}
	return fallbackReply, nil
}

// enforceBooking handles a reply that asserts a booking that never
// happened. When the claimed slot can be recovered from the text the
// booking is made for real; otherwise the claim is replaced with a
// question so the customer is never told a fiction.
func (g *Generator) enforceBooking(ctx context.Context, cfg *model.AutomationConfig, conv *model.Conversation, text string) (string, error) {
	date := textDateRe.FindString(text)
	timeOfDay := textTimeRe.FindString(text)
	if date == "" || timeOfDay == "" {
		log.Warn().
			Str("tenant_id", cfg.TenantID).
			Str("phone", conv.Phone).
			Msg("reply claimed a booking with no recoverable slot")
		return askSlotDetails, nil
	}

	_, err := g.appointments.Create(ctx, model.CreateAppointmentParams{
		TenantID:    cfg.TenantID,
		Phone:       conv.Phone,
		ContactName: conv.ContactName,
		Title:       "Atendimento",
		Date:        date,
		Time:        timeOfDay,
	})
	if err == nil {
		return text, nil
	}
	if errors.HasCode(err, errors.ErrCodeCapacityExceeded) {
		open, availErr := g.appointments.CheckAvailability(ctx, cfg.TenantID, date)
		if availErr == nil && len(open) > 0 {
			return fmt.Sprintf("Esse horário acabou de ser preenchido. 😕 Para %s ainda tenho: %s. Algum desses funciona?",
				date, strings.Join(open, ", ")), nil
		}
		return "Esse horário acabou de ser preenchido. 😕 Quer que eu veja outro dia para você?", nil
	}
	log.Error().Err(err).Str("tenant_id", cfg.TenantID).Msg("forced booking failed")
	return askSlotDetails, nil
}

// executeCall dispatches one action and shapes its result for the model.
// Unknown names are rejected here so nothing outside the closed action
// set ever executes.
func (g *Generator) executeCall(
	ctx context.Context,
	cfg *model.AutomationConfig,
	conv *model.Conversation,
	name string,
	args map[string]string,
	booked *bool,
	bookedApt **model.Appointment,
) map[string]any {
	kind, ok := llm.ParseActionKind(name)
	if !ok {
		return map[string]any{"error": fmt.Sprintf("função desconhecida: %s", name)}
	}

	switch kind {
	case llm.ActionCheckAvailability:
		open, err := g.appointments.CheckAvailability(ctx, cfg.TenantID, args["date"])
		if err != nil {
			return actionError(err)
		}
		if len(open) == 0 {
			return map[string]any{"date": args["date"], "available_slots": []string{},
				"message": "Nenhum horário disponível nesta data."}
		}
		return map[string]any{"date": args["date"], "available_slots": open}

	case llm.ActionCreateAppointment:
		var description *string
		if d := args["description"]; d != "" {
			description = &d
		}
		apt, err := g.appointments.Create(ctx, model.CreateAppointmentParams{
			TenantID:    cfg.TenantID,
			Phone:       conv.Phone,
			ContactName: conv.ContactName,
			Title:       args["title"],
			Description: description,
			Date:        args["date"],
			Time:        args["time"],
		})
		if err != nil {
			if errors.HasCode(err, errors.ErrCodeCapacityExceeded) {
				open, availErr := g.appointments.CheckAvailability(ctx, cfg.TenantID, args["date"])
				result := map[string]any{"success": false, "error": "Horário indisponível."}
				if availErr == nil {
					result["available_slots"] = open
				}
				return result
			}
			return actionError(err)
		}
		*booked = true
		*bookedApt = apt
		return map[string]any{"success": true, "appointment": map[string]any{
			"id": apt.ID, "date": apt.Date, "time": apt.Time, "title": apt.Title,
		}}

	case llm.ActionCancelAppointment:
		rows, err := g.appointments.Cancel(ctx, cfg.TenantID, conv.Phone, args["date"], args["time"])
		if err != nil {
			return actionError(err)
		}
		if rows == 0 {
			return map[string]any{"success": false, "error": "Nenhum agendamento encontrado nesse horário."}
		}
		return map[string]any{"success": true, "cancelled": rows}

	case llm.ActionListAppointments:
		apts, err := g.appointments.List(ctx, cfg.TenantID, conv.Phone, args["date"])
		if err != nil {
			return actionError(err)
		}
		items := make([]map[string]any, 0, len(apts))
		for _, apt := range apts {
			items = append(items, map[string]any{
				"id": apt.ID, "date": apt.Date, "time": apt.Time,
				"title": apt.Title, "status": string(apt.Status),
			})
		}
		return map[string]any{"appointments": items}

	case llm.ActionConfirmAppointment:
		apt, err := g.appointments.Confirm(ctx, cfg.TenantID, conv.Phone, "")
		if err != nil {
			return actionError(err)
		}
		if apt == nil {
			return map[string]any{"success": false, "error": "Nenhum agendamento pendente para confirmar."}
		}
		return map[string]any{"success": true, "appointment": map[string]any{
			"id": apt.ID, "date": apt.Date, "time": apt.Time, "title": apt.Title,
		}}

	case llm.ActionUpdateTags:
		tags := strings.Split(args["tags"], ",")
		apt, err := g.appointments.UpdateTags(ctx, cfg.TenantID, args["appointmentId"], tags, args["action"])
		if err != nil {
			return actionError(err)
		}
		return map[string]any{"success": true, "tags": apt.Tags}
	}

	return map[string]any{"error": "função não suportada"}
}

func actionError(err error) map[string]any {
	if appErr, ok := errors.AsAppError(err); ok {
		return map[string]any{"success": false, "error": appErr.Message}
	}
	return map[string]any{"success": false, "error": "erro interno"}
}

func claimsBooking(text string) bool {
	for _, re := range bookingClaimRes {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
