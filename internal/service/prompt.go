package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/respondaai/automation-server-go/internal/config"
	"github.com/respondaai/automation-server-go/internal/model"
)

var weekdayNames = [...]string{
	"domingo", "segunda-feira", "terça-feira", "quarta-feira",
	"quinta-feira", "sexta-feira", "sábado",
}

// BuildSystemPrompt assembles the instruction block that precedes the
// conversation history on every completion call.
func BuildSystemPrompt(cfg *model.AutomationConfig, contactName string, now time.Time) string {
	agentName := cfg.AgentName
	if agentName == "" {
		agentName = "Assistente"
	}
	hoursStart := cfg.BusinessHoursStart
	if hoursStart == "" {
		hoursStart = config.DefaultBusinessHoursStart
	}
	hoursEnd := cfg.BusinessHoursEnd
	if hoursEnd == "" {
		hoursEnd = config.DefaultBusinessHoursEnd
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Você é %s, atendente virtual respondendo clientes pelo WhatsApp.\n\n", agentName)

	if cfg.PersonaPrompt != "" {
		b.WriteString(cfg.PersonaPrompt)
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, "Hoje é %s, %s.\n", weekdayNames[int(now.Weekday())], now.Format("2006-01-02"))
	fmt.Fprintf(&b, "Horário de atendimento: %s às %s.\n", hoursStart, hoursEnd)
	if contactName != "" {
		fmt.Fprintf(&b, "O cliente se chama %s.\n", contactName)
	}

	b.WriteString(`
Regras obrigatórias:
- Responda sempre em português brasileiro, de forma natural e breve, como uma conversa de WhatsApp.
- Não use formatação markdown, listas numeradas longas nem blocos de código.
- Para verificar horários, criar, cancelar, confirmar ou listar agendamentos, use SEMPRE as funções disponíveis. Nunca escreva o código da função como texto.
- NUNCA diga que um agendamento foi confirmado, criado ou marcado sem antes ter usado a função create_appointment com sucesso.
- Se não houver horário disponível, ofereça as alternativas retornadas pela função.
- Datas sempre no formato YYYY-MM-DD e horários no formato HH:MM ao chamar funções.
- Separe respostas mais longas em parágrafos curtos, de duas ou três frases cada, com uma linha em branco entre eles. Evite um único bloco longo de texto; é assim que uma conversa soa natural no WhatsApp.
- Se não souber responder algo, diga que vai verificar com a equipe.`)

	return b.String()
}

// historyRole maps a stored message to its completion-conversation role.
// Both human and automated outbound turns count as the model side.
func historyRole(msg *model.Message) string {
	if msg.Direction == model.DirectionInbound {
		return "user"
	}
	return "model"
}
