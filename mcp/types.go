package mcp

import (
	"context"
	"encoding/json"
)

// JSON-RPC 2.0 error codes used by the server.
const (
	ErrorCodeParseError       = -32700
	ErrorCodeInvalidRequest   = -32600
	ErrorCodeMethodNotFound   = -32601
	ErrorCodeInvalidParams    = -32602
	ErrorCodeInternal         = -32603
	ErrorCodeResourceNotFound = -32002
	ErrorCodeNotInitialized   = -32000
)

// Request represents a JSON-RPC request message.
type Request struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      *json.RawMessage `json:"id"`
	Method  string           `json:"method"`
	Params  json.RawMessage  `json:"params"`
}

// Response represents a JSON-RPC response message.
type Response struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      *json.RawMessage `json:"id"`
	Result  interface{}      `json:"result,omitempty"`
	Error   *Error           `json:"error,omitempty"`
}

// Error represents a JSON-RPC error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Notification represents a JSON-RPC notification message.
type Notification struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// ServerInfo identifies the server to clients during initialization.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ClientInfo identifies the connecting client.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeParams represents the parameters of an initialize request.
type InitializeParams struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ClientInfo      ClientInfo     `json:"clientInfo"`
}

// InitializeResult represents the server's answer to an initialize request.
type InitializeResult struct {
	ProtocolVersion string       `json:"protocolVersion"`
	Capabilities    Capabilities `json:"capabilities"`
	ServerInfo      ServerInfo   `json:"serverInfo"`
}

// Capabilities describes the feature set advertised during initialization.
type Capabilities struct {
	Resources CapabilitiesResources `json:"resources"`
	Tools     CapabilitiesTools     `json:"tools"`
	Prompts   CapabilitiesPrompts   `json:"prompts"`
	Logging   CapabilitiesLogging   `json:"logging"`
}

type CapabilitiesResources struct {
	Subscribe   bool `json:"subscribe"`
	ListChanged bool `json:"listChanged"`
}

type CapabilitiesTools struct {
	ListChanged bool `json:"listChanged"`
}

type CapabilitiesPrompts struct {
	ListChanged bool `json:"listChanged"`
}

type CapabilitiesLogging struct{}

// ListParams carries the pagination cursor shared by the list methods.
type ListParams struct {
	Cursor string `json:"cursor,omitempty"`
}

// Resource represents a readable data item exposed via a URI.
type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType"`
	TextContent string `json:"-"`
}

// ListResourcesResult represents the result of listing resources.
type ListResourcesResult struct {
	Resources  []Resource `json:"resources"`
	NextCursor string     `json:"nextCursor,omitempty"`
}

// ReadResourceParams represents parameters for reading a resource.
type ReadResourceParams struct {
	URI string `json:"uri"`
}

// ResourceContent is a single content item of a read resource.
type ResourceContent struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType"`
	Text     string `json:"text,omitempty"`
	Blob     string `json:"blob,omitempty"`
}

// ReadResourceResult represents the result of reading a resource.
type ReadResourceResult struct {
	Contents []ResourceContent `json:"contents"`
}

// ToolHandler executes a tool call and produces its result.
type ToolHandler func(ctx context.Context, params CallToolParams) (CallToolResult, error)

// Tool represents a callable tool with a JSON schema for its input.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
	Handler     ToolHandler     `json:"-"`
}

// CallToolParams represents parameters for calling a tool.
type CallToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolResultContent represents one content item returned by a tool.
type ToolResultContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// CallToolResult represents the result of calling a tool. Handler
// failures are reported through IsError rather than a protocol error.
type CallToolResult struct {
	Content []ToolResultContent `json:"content"`
	IsError bool                `json:"isError,omitempty"`
}

// ListToolsResult represents the result of listing tools.
type ListToolsResult struct {
	Tools      []Tool `json:"tools"`
	NextCursor string `json:"nextCursor,omitempty"`
}

// PromptHandler renders a prompt dynamically from its arguments.
// Prompts without a handler are rendered by placeholder substitution
// over their static messages.
type PromptHandler func(ctx context.Context, params GetPromptParams) (PromptGetResponse, error)

// Prompt represents a parameterized prompt template.
type Prompt struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Arguments   []PromptArgument `json:"arguments,omitempty"`
	Messages    []PromptMessage  `json:"messages,omitempty"`
	Handler     PromptHandler    `json:"-"`
}

// PromptArgument declares a named argument of a prompt.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}

// PromptMessage is a single message of a rendered prompt.
type PromptMessage struct {
	Role    string        `json:"role"`
	Content PromptContent `json:"content"`
}

// PromptContent holds message content. Only the "text" type is supported.
type PromptContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// ListPromptsResult represents the result of listing prompts.
type ListPromptsResult struct {
	Prompts    []Prompt `json:"prompts"`
	NextCursor string   `json:"nextCursor,omitempty"`
}

// GetPromptParams represents parameters for fetching a prompt.
type GetPromptParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// PromptGetResponse represents the result of fetching a prompt.
type PromptGetResponse struct {
	Description string          `json:"description,omitempty"`
	Messages    []PromptMessage `json:"messages"`
}

// LogLevel is an MCP logging level, ordered by RFC 5424 severity.
type LogLevel string

const (
	LogLevelDebug     LogLevel = "debug"
	LogLevelInfo      LogLevel = "info"
	LogLevelNotice    LogLevel = "notice"
	LogLevelWarning   LogLevel = "warning"
	LogLevelError     LogLevel = "error"
	LogLevelCritical  LogLevel = "critical"
	LogLevelAlert     LogLevel = "alert"
	LogLevelEmergency LogLevel = "emergency"
)

// Lower value means more severe.
var logLevelSeverity = map[LogLevel]int{
	LogLevelEmergency: 0,
	LogLevelAlert:     1,
	LogLevelCritical:  2,
	LogLevelError:     3,
	LogLevelWarning:   4,
	LogLevelNotice:    5,
	LogLevelInfo:      6,
	LogLevelDebug:     7,
}

// SetLogLevelParams represents parameters of logging/setLevel.
type SetLogLevelParams struct {
	Level LogLevel `json:"level"`
}

// LogMessageParams is the payload of a notifications/message notification.
type LogMessageParams struct {
	Level  LogLevel    `json:"level"`
	Logger string      `json:"logger,omitempty"`
	Data   interface{} `json:"data"`
}
