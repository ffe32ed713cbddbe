package mcp

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

func validateTool(tool Tool) error {
	if tool.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if tool.Description == "" {
		return fmt.Errorf("tool description cannot be empty")
	}
	if tool.Handler == nil {
		return fmt.Errorf("tool handler cannot be nil")
	}

	if tool.InputSchema != nil {
		loader := gojsonschema.NewBytesLoader(tool.InputSchema)
		if _, err := gojsonschema.NewSchema(loader); err != nil {
			return fmt.Errorf("invalid input schema: %w", err)
		}
	}

	return nil
}

func validatePrompt(prompt Prompt) error {
	if prompt.Name == "" {
		return fmt.Errorf("prompt name cannot be empty")
	}

	// A prompt is rendered either by its handler or from static messages.
	if prompt.Handler == nil {
		if len(prompt.Messages) == 0 {
			return fmt.Errorf("prompt must have at least one message or a handler")
		}
		for _, msg := range prompt.Messages {
			if msg.Content.Type != "text" {
				return fmt.Errorf("only text type is supported for prompt content")
			}
			if msg.Content.Text == "" {
				return fmt.Errorf("message content text cannot be empty")
			}
		}
	}

	for _, arg := range prompt.Arguments {
		if arg.Name == "" {
			return fmt.Errorf("argument name cannot be empty")
		}
	}

	return nil
}

func validateResource(resource Resource) error {
	if resource.URI == "" {
		return fmt.Errorf("resource URI cannot be empty")
	}
	if !isValidURI(resource.URI) {
		return fmt.Errorf("resource URI must carry a scheme: %s", resource.URI)
	}
	if resource.MimeType == "" {
		return fmt.Errorf("resource MIME type cannot be empty")
	}
	return nil
}

// isValidURI requires a scheme followed by a non-empty remainder.
func isValidURI(uri string) bool {
	scheme, rest, found := strings.Cut(uri, "://")
	return found && scheme != "" && rest != ""
}
