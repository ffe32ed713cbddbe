package mcp

import (
	"encoding/json"
	"fmt"
	"strings"
)

// checkRequiredArguments verifies every required prompt argument is
// present in the provided arguments.
func checkRequiredArguments(prompt Prompt, arguments json.RawMessage) error {
	required := false
	for _, arg := range prompt.Arguments {
		if arg.Required {
			required = true
			break
		}
	}
	if !required {
		return nil
	}

	providedArgs := map[string]interface{}{}
	if len(arguments) > 0 {
		if err := json.Unmarshal(arguments, &providedArgs); err != nil {
			return fmt.Errorf("invalid arguments format: %w", err)
		}
	}

	for _, arg := range prompt.Arguments {
		if !arg.Required {
			continue
		}
		if _, exists := providedArgs[arg.Name]; !exists {
			return fmt.Errorf("missing required argument: %s", arg.Name)
		}
	}
	return nil
}

// processPrompt substitutes {{name}} placeholders in the prompt's static
// messages with the provided string arguments.
func processPrompt(prompt Prompt, arguments json.RawMessage) (*Prompt, error) {
	if len(prompt.Arguments) == 0 || len(arguments) == 0 {
		return &Prompt{
			Name:        prompt.Name,
			Description: prompt.Description,
			Messages:    prompt.Messages,
		}, nil
	}

	var providedArgs map[string]interface{}
	if err := json.Unmarshal(arguments, &providedArgs); err != nil {
		return nil, fmt.Errorf("invalid arguments format: %w", err)
	}

	processed := Prompt{
		Name:        prompt.Name,
		Description: prompt.Description,
		Messages:    make([]PromptMessage, len(prompt.Messages)),
	}

	for i, msg := range prompt.Messages {
		text := msg.Content.Text
		for _, arg := range prompt.Arguments {
			if value, exists := providedArgs[arg.Name]; exists {
				if strValue, ok := value.(string); ok {
					text = replaceArgument(text, arg.Name, strValue)
				}
			}
		}
		processed.Messages[i] = PromptMessage{
			Role: msg.Role,
			Content: PromptContent{
				Type: msg.Content.Type,
				Text: text,
			},
		}
	}

	return &processed, nil
}

func replaceArgument(text, argName, value string) string {
	placeholder := fmt.Sprintf("{{%s}}", argName)
	return strings.ReplaceAll(text, placeholder, value)
}
