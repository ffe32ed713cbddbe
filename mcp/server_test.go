package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoTool(name string) Tool {
	return Tool{
		Name:        name,
		Description: "test description",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"location": {"type": "string"}
			},
			"required": ["location"]
		}`),
		Handler: func(ctx context.Context, params CallToolParams) (CallToolResult, error) {
			return CallToolResult{
				Content: []ToolResultContent{{Type: "text", Text: string(params.Arguments)}},
			}, nil
		},
	}
}

func TestListTools(t *testing.T) {
	baseServer, err := NewBaseServer(UseLogger(NewNullLogger()))
	require.NoError(t, err)

	err = baseServer.AddTools(
		echoTool("d_tool"),
		echoTool("a_tool"),
		echoTool("c_tool"),
		echoTool("b_tool"),
	)
	require.NoError(t, err)

	tests := []struct {
		name       string
		cursor     string
		limit      int
		wantTools  []string
		wantCursor string
	}{
		{
			name:      "no cursor, default limit",
			wantTools: []string{"a_tool", "b_tool", "c_tool", "d_tool"},
		},
		{
			name:      "with cursor",
			cursor:    "b_tool",
			limit:     2,
			wantTools: []string{"c_tool", "d_tool"},
		},
		{
			name:       "with cursor and limit",
			cursor:     "a_tool",
			limit:      2,
			wantTools:  []string{"b_tool", "c_tool"},
			wantCursor: "c_tool",
		},
		{
			name:      "limit larger than remaining items",
			cursor:    "c_tool",
			limit:     10,
			wantTools: []string{"d_tool"},
		},
		{
			name:      "cursor not found",
			cursor:    "z_tool",
			wantTools: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := baseServer.ListTools(context.Background(), tt.cursor, tt.limit)

			var names []string
			for _, tool := range result.Tools {
				names = append(names, tool.Name)
				assert.Nil(t, tool.Handler, "handlers must not leak into listings")
			}
			assert.ElementsMatch(t, tt.wantTools, names)
			assert.Equal(t, tt.wantCursor, result.NextCursor)
		})
	}
}

func TestListToolsCursorWalk(t *testing.T) {
	baseServer, err := NewBaseServer(UseLogger(NewNullLogger()))
	require.NoError(t, err)

	err = baseServer.AddTools(
		echoTool("a_tool"),
		echoTool("b_tool"),
		echoTool("c_tool"),
		echoTool("d_tool"),
		echoTool("e_tool"),
	)
	require.NoError(t, err)

	// Feeding each NextCursor back in must visit every tool exactly once.
	var names []string
	cursor := ""
	for {
		result := baseServer.ListTools(context.Background(), cursor, 2)
		for _, tool := range result.Tools {
			names = append(names, tool.Name)
		}
		if result.NextCursor == "" {
			break
		}
		cursor = result.NextCursor
	}

	assert.Equal(t, []string{"a_tool", "b_tool", "c_tool", "d_tool", "e_tool"}, names)
}

func TestAddTools(t *testing.T) {
	tests := []struct {
		name    string
		tool    Tool
		wantErr string
	}{
		{
			name:    "missing name",
			tool:    Tool{Description: "d", Handler: echoTool("x").Handler},
			wantErr: "tool name cannot be empty",
		},
		{
			name:    "missing description",
			tool:    Tool{Name: "t", Handler: echoTool("x").Handler},
			wantErr: "tool description cannot be empty",
		},
		{
			name:    "missing handler",
			tool:    Tool{Name: "t", Description: "d"},
			wantErr: "tool handler cannot be nil",
		},
		{
			name: "invalid schema",
			tool: Tool{
				Name:        "t",
				Description: "d",
				InputSchema: json.RawMessage(`{"type": 42}`),
				Handler:     echoTool("x").Handler,
			},
			wantErr: "invalid input schema",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			baseServer, err := NewBaseServer(UseLogger(NewNullLogger()))
			require.NoError(t, err)

			err = baseServer.AddTools(tt.tool)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("duplicate tool", func(t *testing.T) {
		baseServer, err := NewBaseServer(UseLogger(NewNullLogger()))
		require.NoError(t, err)

		require.NoError(t, baseServer.AddTools(echoTool("dup")))
		err = baseServer.AddTools(echoTool("dup"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate tool: dup")
	})
}

func TestCallTool(t *testing.T) {
	baseServer, err := NewBaseServer(UseLogger(NewNullLogger()))
	require.NoError(t, err)
	require.NoError(t, baseServer.AddTools(echoTool("echo")))

	t.Run("successful call", func(t *testing.T) {
		result, err := baseServer.CallTool(context.Background(), CallToolParams{
			Name:      "echo",
			Arguments: json.RawMessage(`{"location": "london"}`),
		})
		require.NoError(t, err)
		assert.False(t, result.IsError)
		require.Len(t, result.Content, 1)
		assert.JSONEq(t, `{"location": "london"}`, result.Content[0].Text)
	})

	t.Run("unknown tool", func(t *testing.T) {
		_, err := baseServer.CallTool(context.Background(), CallToolParams{Name: "nope"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "tool not found: nope")
	})

	t.Run("missing required argument", func(t *testing.T) {
		result, err := baseServer.CallTool(context.Background(), CallToolParams{
			Name:      "echo",
			Arguments: json.RawMessage(`{}`),
		})
		require.NoError(t, err)
		assert.True(t, result.IsError)
		require.Len(t, result.Content, 1)
		assert.Contains(t, result.Content[0].Text, "Schema validation failed")
	})

	t.Run("absent arguments validated against schema", func(t *testing.T) {
		result, err := baseServer.CallTool(context.Background(), CallToolParams{Name: "echo"})
		require.NoError(t, err)
		assert.True(t, result.IsError)
	})

	t.Run("wrong argument type", func(t *testing.T) {
		result, err := baseServer.CallTool(context.Background(), CallToolParams{
			Name:      "echo",
			Arguments: json.RawMessage(`{"location": 42}`),
		})
		require.NoError(t, err)
		assert.True(t, result.IsError)
	})

	t.Run("handler error becomes IsError result", func(t *testing.T) {
		server, err := NewBaseServer(UseLogger(NewNullLogger()))
		require.NoError(t, err)
		require.NoError(t, server.AddTools(Tool{
			Name:        "failing",
			Description: "always fails",
			Handler: func(ctx context.Context, params CallToolParams) (CallToolResult, error) {
				return CallToolResult{}, fmt.Errorf("boom")
			},
		}))

		result, err := server.CallTool(context.Background(), CallToolParams{Name: "failing"})
		require.NoError(t, err)
		assert.True(t, result.IsError)
		require.Len(t, result.Content, 1)
		assert.Equal(t, "boom", result.Content[0].Text)
	})
}

func TestListResources(t *testing.T) {
	baseServer, err := NewBaseServer(UseLogger(NewNullLogger()))
	require.NoError(t, err)

	err = baseServer.AddResources(
		Resource{URI: "demo://b", Name: "B", MimeType: "text/plain", TextContent: "b"},
		Resource{URI: "demo://a", Name: "A", MimeType: "text/plain", TextContent: "a"},
		Resource{URI: "demo://c", Name: "C", MimeType: "text/plain", TextContent: "c"},
	)
	require.NoError(t, err)

	result := baseServer.ListResources(context.Background(), "", 0)
	require.Len(t, result.Resources, 3)
	assert.Equal(t, "demo://a", result.Resources[0].URI)
	assert.Equal(t, "demo://b", result.Resources[1].URI)
	assert.Equal(t, "demo://c", result.Resources[2].URI)
	assert.Empty(t, result.NextCursor)

	paged := baseServer.ListResources(context.Background(), "demo://a", 1)
	require.Len(t, paged.Resources, 1)
	assert.Equal(t, "demo://b", paged.Resources[0].URI)
	assert.Equal(t, "demo://b", paged.NextCursor)
}

func TestReadResource(t *testing.T) {
	baseServer, err := NewBaseServer(UseLogger(NewNullLogger()))
	require.NoError(t, err)

	err = baseServer.AddResources(
		Resource{URI: "demo://text", Name: "T", MimeType: "text/plain", TextContent: "hello"},
		Resource{URI: "demo://json", Name: "J", MimeType: "application/json", TextContent: `{"k":"v"}`},
		Resource{URI: "demo://bin", Name: "B", MimeType: "application/octet-stream", TextContent: "raw"},
	)
	require.NoError(t, err)

	t.Run("text content inline", func(t *testing.T) {
		result, err := baseServer.ReadResource(context.Background(), ReadResourceParams{URI: "demo://text"})
		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "hello", result.Contents[0].Text)
		assert.Empty(t, result.Contents[0].Blob)
	})

	t.Run("json content inline", func(t *testing.T) {
		result, err := baseServer.ReadResource(context.Background(), ReadResourceParams{URI: "demo://json"})
		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.JSONEq(t, `{"k":"v"}`, result.Contents[0].Text)
	})

	t.Run("binary content base64", func(t *testing.T) {
		result, err := baseServer.ReadResource(context.Background(), ReadResourceParams{URI: "demo://bin"})
		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Empty(t, result.Contents[0].Text)
		assert.Equal(t, "cmF3", result.Contents[0].Blob)
	})

	t.Run("unknown resource", func(t *testing.T) {
		_, err := baseServer.ReadResource(context.Background(), ReadResourceParams{URI: "demo://missing"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "resource not found")
	})

	t.Run("invalid URI", func(t *testing.T) {
		_, err := baseServer.ReadResource(context.Background(), ReadResourceParams{URI: "not-a-uri"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid resource URI")
	})
}

func TestListPrompts(t *testing.T) {
	baseServer, err := NewBaseServer(UseLogger(NewNullLogger()))
	require.NoError(t, err)

	err = baseServer.AddPrompts(Prompt{
		Name:        "greeting",
		Description: "Greets someone",
		Arguments:   []PromptArgument{{Name: "name", Required: true}},
		Messages: []PromptMessage{{
			Role:    "user",
			Content: PromptContent{Type: "text", Text: "Hello {{name}}!"},
		}},
	})
	require.NoError(t, err)

	result := baseServer.ListPrompts(context.Background(), "", 0)
	require.Len(t, result.Prompts, 1)
	assert.Equal(t, "greeting", result.Prompts[0].Name)
	assert.Empty(t, result.Prompts[0].Messages, "messages must not appear in listings")
	require.Len(t, result.Prompts[0].Arguments, 1)
}

func TestGetPrompt(t *testing.T) {
	staticPrompt := Prompt{
		Name:        "greeting",
		Description: "Greets someone",
		Arguments:   []PromptArgument{{Name: "name", Required: true}},
		Messages: []PromptMessage{{
			Role:    "user",
			Content: PromptContent{Type: "text", Text: "Hello {{name}}!"},
		}},
	}

	dynamicPrompt := Prompt{
		Name:      "dynamic",
		Arguments: []PromptArgument{{Name: "name", Required: true}},
		Handler: func(ctx context.Context, params GetPromptParams) (PromptGetResponse, error) {
			var args struct {
				Name string `json:"name"`
			}
			if err := json.Unmarshal(params.Arguments, &args); err != nil {
				return PromptGetResponse{}, err
			}
			return PromptGetResponse{
				Description: "rendered",
				Messages: []PromptMessage{{
					Role:    "user",
					Content: PromptContent{Type: "text", Text: "Rendered for " + args.Name},
				}},
			}, nil
		},
	}

	baseServer, err := NewBaseServer(UseLogger(NewNullLogger()))
	require.NoError(t, err)
	require.NoError(t, baseServer.AddPrompts(staticPrompt, dynamicPrompt))

	t.Run("static substitution", func(t *testing.T) {
		response, err := baseServer.GetPrompt(context.Background(), staticPrompt, GetPromptParams{
			Name:      "greeting",
			Arguments: json.RawMessage(`{"name": "Ada"}`),
		})
		require.NoError(t, err)
		require.Len(t, response.Messages, 1)
		assert.Equal(t, "Hello Ada!", response.Messages[0].Content.Text)
	})

	t.Run("missing required argument", func(t *testing.T) {
		_, err := baseServer.GetPrompt(context.Background(), staticPrompt, GetPromptParams{
			Name:      "greeting",
			Arguments: json.RawMessage(`{}`),
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing required argument: name")
	})

	t.Run("absent arguments rejected when required", func(t *testing.T) {
		_, err := baseServer.GetPrompt(context.Background(), staticPrompt, GetPromptParams{Name: "greeting"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing required argument")
	})

	t.Run("handler rendering", func(t *testing.T) {
		response, err := baseServer.GetPrompt(context.Background(), dynamicPrompt, GetPromptParams{
			Name:      "dynamic",
			Arguments: json.RawMessage(`{"name": "Ada"}`),
		})
		require.NoError(t, err)
		require.Len(t, response.Messages, 1)
		assert.Equal(t, "Rendered for Ada", response.Messages[0].Content.Text)
	})
}

func TestAddPrompts(t *testing.T) {
	baseServer, err := NewBaseServer(UseLogger(NewNullLogger()))
	require.NoError(t, err)

	t.Run("static prompt requires messages", func(t *testing.T) {
		err := baseServer.AddPrompts(Prompt{Name: "empty"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least one message or a handler")
	})

	t.Run("non-text content rejected", func(t *testing.T) {
		err := baseServer.AddPrompts(Prompt{
			Name: "image",
			Messages: []PromptMessage{{
				Role:    "user",
				Content: PromptContent{Type: "image", Text: "x"},
			}},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "only text type is supported")
	})
}

func TestAddResources(t *testing.T) {
	baseServer, err := NewBaseServer(UseLogger(NewNullLogger()))
	require.NoError(t, err)

	tests := []struct {
		name     string
		resource Resource
		wantErr  string
	}{
		{
			name:     "missing URI",
			resource: Resource{Name: "X", MimeType: "text/plain"},
			wantErr:  "resource URI cannot be empty",
		},
		{
			name:     "URI without scheme",
			resource: Resource{URI: "no-scheme", Name: "X", MimeType: "text/plain"},
			wantErr:  "must carry a scheme",
		},
		{
			name:     "missing MIME type",
			resource: Resource{URI: "demo://x", Name: "X"},
			wantErr:  "MIME type cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := baseServer.AddResources(tt.resource)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewBaseServerInvalidLogLevel(t *testing.T) {
	_, err := NewBaseServer(UseLogLevel(LogLevel("loud")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}
