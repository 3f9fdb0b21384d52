package orchestrator

import (
	"fmt"
	"strings"

	"github.com/hupe1980/agentbridge/core"
	"github.com/hupe1980/agentbridge/model"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultInstructions is the base system prompt used when no override is
// configured through Options.Instructions.
const DefaultInstructions = "You are an AI assistant with access to tools. " +
	"Use these tools when appropriate to fulfill user requests. " +
	"Always be helpful, accurate, and concise. " +
	"IMPORTANT: You must remember all previously shared information within the conversation."

// responseFormatInstructions pins the textual tool-call convention the
// completion parser understands. Models that ignore it degrade gracefully:
// their plain text becomes a zero-directive completion.
const responseFormatInstructions = "You MUST format ALL your responses as valid JSON objects with this structure:\n" +
	"```json\n" +
	"{\n" +
	"    \"response\": \"your helpful response text here\",\n" +
	"    \"tool_call\": null\n" +
	"}\n" +
	"```\n" +
	"When using a tool, set tool_call to a valid object like:\n" +
	"```json\n" +
	"{\n" +
	"    \"response\": \"I'll check that for you\",\n" +
	"    \"tool_call\": {\n" +
	"        \"name\": \"tool_name\",\n" +
	"        \"parameters\": {\n" +
	"            \"param1\": \"value1\"\n" +
	"        }\n" +
	"    }\n" +
	"}\n" +
	"```\n" +
	"ALWAYS respond in this JSON format. NEVER respond in plain text."

// buildRequest assembles the model request for one GENERATE round: system
// instructions (base prompt, tool descriptors, response contract) plus the
// windowed conversation history rendered as role messages.
func (o *Orchestrator) buildRequest(descriptors []core.ToolDescriptor, turns []core.Turn) model.Request {
	return model.Request{
		Instructions: buildInstructions(o.opts.Instructions, descriptors),
		Messages:     renderTurns(core.WindowTurns(turns, o.opts.ContextWindow)),
	}
}

func buildInstructions(base string, descriptors []core.ToolDescriptor) string {
	var b strings.Builder
	b.WriteString(base)

	if len(descriptors) > 0 {
		b.WriteString("\n\nAvailable tools:\n")
		for _, d := range descriptors {
			fmt.Fprintf(&b, "- %s: %s\n", d.Name, d.Description)
			if len(d.Parameters) > 0 {
				params, err := json.MarshalToString(d.Parameters)
				if err == nil {
					fmt.Fprintf(&b, "  Parameters: %s\n", params)
				}
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(responseFormatInstructions)

	return b.String()
}

// renderTurns converts conversation turns into role-tagged text messages.
// Tool activity is rendered as text because the tool-call convention is a
// textual contract, not provider-native function calling: the call restates
// the directive, the result reads like a report the model can build on.
func renderTurns(turns []core.Turn) []model.Message {
	messages := make([]model.Message, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case core.RoleUser:
			messages = append(messages, model.Message{Role: "user", Content: t.Content})
		case core.RoleAssistant:
			messages = append(messages, model.Message{Role: "assistant", Content: t.Content})
		case core.RoleToolCall:
			args, _ := json.MarshalToString(t.Arguments)
			messages = append(messages, model.Message{
				Role:    "assistant",
				Content: fmt.Sprintf("Calling the tool %s with parameters %s.", t.ToolName, args),
			})
		case core.RoleToolResult:
			messages = append(messages, renderToolResult(t))
		}
	}
	return messages
}

func renderToolResult(t core.Turn) model.Message {
	if t.Error != "" {
		return model.Message{
			Role:    "user",
			Content: fmt.Sprintf("The tool %s failed with the error: %s. Decide how to proceed and answer the user.", t.ToolName, t.Error),
		}
	}
	result, _ := json.MarshalToString(t.Result)
	return model.Message{
		Role:    "user",
		Content: fmt.Sprintf("I executed the tool %s and got the result: %s. Please provide a helpful response based on this result.", t.ToolName, result),
	}
}
