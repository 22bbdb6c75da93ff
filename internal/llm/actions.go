package llm

// ActionKind is the closed set of actions the completion service may invoke.
// Dispatch over kinds is exhaustive; unknown names never reach the executor.
type ActionKind string

const (
	ActionCheckAvailability ActionKind = "check_availability"
	ActionCreateAppointment ActionKind = "create_appointment"
	ActionCancelAppointment ActionKind = "cancel_appointment"
	ActionListAppointments  ActionKind = "list_appointments"
	ActionConfirmAppointment ActionKind = "confirm_appointment"
	ActionUpdateTags         ActionKind = "update_appointment_tags"
)

// Action is one structured action request plus its string-coerced arguments.
type Action struct {
	Kind ActionKind
	Args map[string]string
}

// Arg returns the named argument or "".
func (a *Action) Arg(name string) string {
	if a.Args == nil {
		return ""
	}
	return a.Args[name]
}

// actionNames maps every accepted wire name, including the legacy
// check_available_slots alias the model was trained on, to its kind.
var actionNames = map[string]ActionKind{
	"check_availability":      ActionCheckAvailability,
	"check_available_slots":   ActionCheckAvailability,
	"create_appointment":      ActionCreateAppointment,
	"cancel_appointment":      ActionCancelAppointment,
	"list_appointments":       ActionListAppointments,
	"confirm_appointment":     ActionConfirmAppointment,
	"update_appointment_tags": ActionUpdateTags,
}

// ParseActionKind resolves a wire-level action name to its kind.
func ParseActionKind(name string) (ActionKind, bool) {
	kind, ok := actionNames[name]
	return kind, ok
}

// ToolDeclarations is the action schema advertised to the completion
// service, in Gemini function-calling format.
func ToolDeclarations() []map[string]any {
	return []map[string]any{
		{
			"name":        "check_available_slots",
			"description": "Verifica horários disponíveis para agendamento em uma data específica. Use quando o cliente perguntar sobre disponibilidade ou quiser agendar.",
			"parameters": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"date": map[string]any{"type": "string", "description": "Data para verificar disponibilidade no formato YYYY-MM-DD"},
				},
				"required": []string{"date"},
			},
		},
		{
			"name":        "create_appointment",
			"description": "Cria um novo agendamento após confirmar data, horário e serviço com o cliente.",
			"parameters": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"date":        map[string]any{"type": "string", "description": "Data do agendamento no formato YYYY-MM-DD"},
					"time":        map[string]any{"type": "string", "description": "Horário do agendamento no formato HH:MM"},
					"title":       map[string]any{"type": "string", "description": "Tipo de serviço ou título do agendamento"},
					"description": map[string]any{"type": "string", "description": "Detalhes adicionais ou observações"},
				},
				"required": []string{"date", "time", "title"},
			},
		},
		{
			"name":        "cancel_appointment",
			"description": "Cancela um agendamento existente do cliente.",
			"parameters": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"date": map[string]any{"type": "string", "description": "Data do agendamento a cancelar no formato YYYY-MM-DD"},
					"time": map[string]any{"type": "string", "description": "Horário do agendamento a cancelar no formato HH:MM"},
				},
				"required": []string{"date", "time"},
			},
		},
		{
			"name":        "list_appointments",
			"description": "Lista os agendamentos do cliente.",
			"parameters": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"date": map[string]any{"type": "string", "description": "Data opcional para filtrar agendamentos no formato YYYY-MM-DD"},
				},
				"required": []string{},
			},
		},
		{
			"name":        "confirm_appointment",
			"description": "Confirma a presença do cliente em um agendamento. Use quando o cliente disser que confirma, que vai comparecer, responder SIM a um lembrete, etc.",
			"parameters": map[string]any{
				"type":       "object",
				"properties": map[string]any{},
				"required":   []string{},
			},
		},
		{
			"name":        "update_appointment_tags",
			"description": "Adiciona ou remove tags de um agendamento (ex: realizado, no-show, reagendado).",
			"parameters": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"appointmentId": map[string]any{"type": "string", "description": "ID do agendamento"},
					"tags":          map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Tags para adicionar ou remover"},
					"action":        map[string]any{"type": "string", "description": "Ação: 'add' para adicionar ou 'remove' para remover tags"},
				},
				"required": []string{"tags"},
			},
		},
	}
}
