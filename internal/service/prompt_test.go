package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/respondaai/automation-server-go/internal/model"
)

func TestBuildSystemPrompt(t *testing.T) {
	cfg := testConfig("t1")
	cfg.PersonaPrompt = "Você atende uma clínica de estética."

	prompt := BuildSystemPrompt(cfg, "Maria", businessMorning)

	assert.Contains(t, prompt, "Você é Clara")
	assert.Contains(t, prompt, "clínica de estética")
	assert.Contains(t, prompt, "segunda-feira, 2026-03-02")
	assert.Contains(t, prompt, "08:00 às 18:00")
	assert.Contains(t, prompt, "O cliente se chama Maria")
	assert.Contains(t, prompt, "create_appointment")
	assert.Contains(t, prompt, "parágrafos curtos",
		"replies must be asked for in paragraph form so splitting has boundaries to work with")
}

func TestBuildSystemPromptDefaults(t *testing.T) {
	prompt := BuildSystemPrompt(&model.AutomationConfig{TenantID: "t1"}, "", businessMorning)

	assert.Contains(t, prompt, "Você é Assistente")
	assert.Contains(t, prompt, "08:00 às 18:00")
	assert.NotContains(t, prompt, "O cliente se chama")
}

func TestHistoryRole(t *testing.T) {
	assert.Equal(t, "user", historyRole(&model.Message{Direction: model.DirectionInbound}))
	assert.Equal(t, "model", historyRole(&model.Message{Direction: model.DirectionOutbound, Author: model.AuthorHuman}))
	assert.Equal(t, "model", historyRole(&model.Message{Direction: model.DirectionOutbound, Author: model.AuthorAutomation}))
}
