package llm

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Content is one turn of the completion conversation, in function-calling
// wire format.
type Content struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

type Part struct {
	Text             string            `json:"text,omitempty"`
	FunctionCall     *FunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *FunctionResponse `json:"functionResponse,omitempty"`
}

type FunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

type FunctionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

// Result is a single completion: either a tool invocation or free text,
// never both.
type Result struct {
	ToolCall *FunctionCall
	Text     string
}

// Client requests completions from the external completion service.
// Implementations must honor ctx deadlines; this layer never retries.
type Client interface {
	Complete(ctx context.Context, contents []Content) (*Result, error)
}

// TextContent builds a single-part text turn.
func TextContent(role, text string) Content {
	return Content{Role: role, Parts: []Part{{Text: text}}}
}

// CallContent builds the model-side record of a tool invocation.
func CallContent(call *FunctionCall) Content {
	return Content{Role: "model", Parts: []Part{{FunctionCall: call}}}
}

// ResponseContent builds the user-side record of a tool result.
func ResponseContent(name string, response map[string]any) Content {
	return Content{Role: "user", Parts: []Part{{FunctionResponse: &FunctionResponse{Name: name, Response: response}}}}
}

// CoerceArgs flattens function-call arguments to strings. Arrays become
// comma-joined values so the executor can split them back.
func CoerceArgs(args map[string]any) map[string]string {
	out := make(map[string]string, len(args))
	for k, v := range args {
		out[k] = coerceValue(v)
	}
	return out
}

func coerceValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, coerceValue(item))
		}
		return strings.Join(parts, ",")
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}
