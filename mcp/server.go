package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	// ProtocolVersion is the MCP protocol revision this server speaks.
	ProtocolVersion = "2024-11-05"

	defaultServerName    = "mcp-server"
	defaultServerVersion = "0.1.0"
	defaultListLimit     = 50
)

// ServerConfig holds all configuration for BaseServer.
type ServerConfig struct {
	logger        Logger
	serverName    string
	serverVersion string
	minLogLevel   LogLevel
	capabilities  Capabilities
}

// ServerConfigOption mutates a ServerConfig.
type ServerConfigOption func(*ServerConfig)

// UseLogger sets a custom logger.
func UseLogger(logger Logger) ServerConfigOption {
	return func(c *ServerConfig) {
		c.logger = logger
	}
}

// UseServerInfo sets the server name and version reported to clients.
func UseServerInfo(name, version string) ServerConfigOption {
	return func(c *ServerConfig) {
		c.serverName = name
		c.serverVersion = version
	}
}

// UseLogLevel sets the minimum level for notifications/message.
func UseLogLevel(level LogLevel) ServerConfigOption {
	return func(c *ServerConfig) {
		c.minLogLevel = level
	}
}

// UseCapabilities overrides the advertised capabilities.
func UseCapabilities(capabilities Capabilities) ServerConfigOption {
	return func(c *ServerConfig) {
		c.capabilities = capabilities
	}
}

func defaultConfig() *ServerConfig {
	return &ServerConfig{
		logger:        NewDefaultLogger(),
		serverName:    defaultServerName,
		serverVersion: defaultServerVersion,
		minLogLevel:   LogLevelInfo,
		capabilities: Capabilities{
			Resources: CapabilitiesResources{},
			Tools:     CapabilitiesTools{},
			Prompts:   CapabilitiesPrompts{},
			Logging:   CapabilitiesLogging{},
		},
	}
}

// BaseServer holds the registries and dispatch logic shared by all
// transports. A transport wires its own send functions in.
type BaseServer struct {
	logger             Logger
	serverInfo         ServerInfo
	capabilities       Capabilities
	minLogLevel        LogLevel
	clientCapabilities map[string]any

	tools     map[string]Tool
	prompts   map[string]Prompt
	resources map[string]Resource

	sendResp func(clientID string, id *json.RawMessage, result interface{}, err *Error)
	sendErr  func(clientID string, id *json.RawMessage, code int, message string, data interface{})
	sendNoti func(clientID string, method string, params interface{})
}

// NewBaseServer creates a BaseServer with the given options.
func NewBaseServer(opts ...ServerConfigOption) (*BaseServer, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if _, ok := logLevelSeverity[cfg.minLogLevel]; !ok {
		return nil, fmt.Errorf("invalid log level: %s", cfg.minLogLevel)
	}

	return &BaseServer{
		logger: cfg.logger,
		serverInfo: ServerInfo{
			Name:    cfg.serverName,
			Version: cfg.serverVersion,
		},
		capabilities: cfg.capabilities,
		minLogLevel:  cfg.minLogLevel,
		tools:        make(map[string]Tool),
		prompts:      make(map[string]Prompt),
		resources:    make(map[string]Resource),
		sendResp:     func(string, *json.RawMessage, interface{}, *Error) {},
		sendErr:      func(string, *json.RawMessage, int, string, interface{}) {},
		sendNoti:     func(string, string, interface{}) {},
	}, nil
}

// AddTools registers tools, rejecting duplicates and invalid definitions.
func (s *BaseServer) AddTools(tools ...Tool) error {
	for _, tool := range tools {
		if _, exists := s.tools[tool.Name]; exists {
			return fmt.Errorf("duplicate tool: %s", tool.Name)
		}
		if err := validateTool(tool); err != nil {
			return fmt.Errorf("invalid tool: %w", err)
		}
		s.tools[tool.Name] = tool
	}
	return nil
}

// AddPrompts registers prompts, rejecting duplicates and invalid definitions.
func (s *BaseServer) AddPrompts(prompts ...Prompt) error {
	for _, prompt := range prompts {
		if _, exists := s.prompts[prompt.Name]; exists {
			return fmt.Errorf("duplicate prompt: %s", prompt.Name)
		}
		if err := validatePrompt(prompt); err != nil {
			return fmt.Errorf("invalid prompt: %w", err)
		}
		s.prompts[prompt.Name] = prompt
	}
	return nil
}

// AddResources registers resources keyed by URI, rejecting duplicates.
func (s *BaseServer) AddResources(resources ...Resource) error {
	for _, resource := range resources {
		if _, exists := s.resources[resource.URI]; exists {
			return fmt.Errorf("duplicate resource: %s", resource.URI)
		}
		if err := validateResource(resource); err != nil {
			return fmt.Errorf("invalid resource: %w", err)
		}
		s.resources[resource.URI] = resource
	}
	return nil
}

// LogMessage emits a notifications/message notification when level passes
// the configured minimum.
func (s *BaseServer) LogMessage(level LogLevel, loggerName string, data interface{}) {
	if logLevelSeverity[level] > logLevelSeverity[s.minLogLevel] {
		return
	}
	s.sendNoti("", "notifications/message", LogMessageParams{
		Level:  level,
		Logger: loggerName,
		Data:   data,
	})
}

// handleRequest dispatches a request to the matching handler. Each request
// is handled to completion before the transport reads the next one.
func (s *BaseServer) handleRequest(ctx context.Context, clientID string, request *Request) {
	s.logger.WithFields(map[string]interface{}{
		"clientID": clientID,
		"method":   request.Method,
	}).Debug("Received request from client")

	switch request.Method {
	case "initialize":
		s.handleInitialize(ctx, clientID, request)
	case "ping":
		s.handlePing(clientID, request)
	case "resources/list":
		s.handleResourcesList(ctx, clientID, request)
	case "resources/read":
		s.handleResourcesRead(ctx, clientID, request)
	case "tools/list":
		s.handleToolsList(ctx, clientID, request)
	case "tools/call":
		s.handleToolsCall(ctx, clientID, request)
	case "prompts/list":
		s.handlePromptsList(ctx, clientID, request)
	case "prompts/get":
		s.handlePromptGet(ctx, clientID, request)
	case "logging/setLevel":
		s.handleLoggingSetLevel(clientID, request)
	default:
		s.logger.WithFields(map[string]interface{}{
			"clientID": clientID,
			"method":   request.Method,
		}).Warn("Method not found")
		s.sendErr(clientID, request.ID, ErrorCodeMethodNotFound, "Method not found", nil)
	}
}

// handleNotification processes client notifications. Notifications are
// never answered.
func (s *BaseServer) handleNotification(ctx context.Context, clientID string, notification *Notification) {
	s.logger.WithFields(map[string]interface{}{
		"clientID": clientID,
		"method":   notification.Method,
	}).Debug("Received notification from client")

	switch notification.Method {
	case "notifications/initialized":
		s.logger.Debug("Client initialized")
	case "notifications/cancelled":
		var params struct {
			RequestID json.RawMessage `json:"requestId"`
			Reason    string          `json:"reason"`
		}
		if err := json.Unmarshal(notification.Params, &params); err == nil {
			s.logger.WithFields(map[string]interface{}{
				"requestID": string(params.RequestID),
				"reason":    params.Reason,
			}).Debug("Cancellation requested; nothing to cancel")
		}
	default:
		s.logger.WithFields(map[string]interface{}{
			"method": notification.Method,
		}).Warn("Unhandled notification from client")
	}
}

func (s *BaseServer) handleInitialize(ctx context.Context, clientID string, request *Request) {
	var params InitializeParams
	if err := json.Unmarshal(request.Params, &params); err != nil {
		s.logger.WithErr(err).Error("Failed to parse initialize params")
		s.sendErr(clientID, request.ID, ErrorCodeInvalidParams, "Invalid params", nil)
		return
	}

	if !strings.HasPrefix(params.ProtocolVersion, "2024-11") {
		s.logger.WithFields(map[string]interface{}{
			"version": params.ProtocolVersion,
		}).Error("Unsupported protocol version")
		s.sendErr(clientID, request.ID, ErrorCodeInvalidParams, "Unsupported protocol version",
			map[string][]string{"supported": {ProtocolVersion}})
		return
	}

	s.clientCapabilities = params.Capabilities
	s.logger.WithFields(map[string]interface{}{
		"client":        params.ClientInfo.Name,
		"clientVersion": params.ClientInfo.Version,
	}).Info("Client connected")

	s.sendResp(clientID, request.ID, InitializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities:    s.capabilities,
		ServerInfo:      s.serverInfo,
	}, nil)
}

func (s *BaseServer) handlePing(clientID string, request *Request) {
	s.sendResp(clientID, request.ID, map[string]interface{}{}, nil)
}

func (s *BaseServer) handleResourcesList(ctx context.Context, clientID string, request *Request) {
	params, ok := s.parseListParams(clientID, request)
	if !ok {
		return
	}
	s.sendResp(clientID, request.ID, s.ListResources(ctx, params.Cursor, 0), nil)
}

// ListResources returns all resources sorted by URI, with cursor pagination.
func (s *BaseServer) ListResources(ctx context.Context, cursor string, limit int) ListResourcesResult {
	ctx, span := StartSpan(ctx, "BaseServer.ListResources")
	defer span.End()

	uris := make([]string, 0, len(s.resources))
	for uri := range s.resources {
		uris = append(uris, uri)
	}
	sort.Strings(uris)

	page, next := paginate(uris, cursor, limit)
	result := ListResourcesResult{Resources: make([]Resource, 0, len(page)), NextCursor: next}
	for _, uri := range page {
		res := s.resources[uri]
		result.Resources = append(result.Resources, Resource{
			URI:         res.URI,
			Name:        res.Name,
			Description: res.Description,
			MimeType:    res.MimeType,
		})
	}

	span.SetAttributes(attribute.Int("num_resources", len(result.Resources)))
	return result
}

func (s *BaseServer) handleResourcesRead(ctx context.Context, clientID string, request *Request) {
	var params ReadResourceParams
	if err := json.Unmarshal(request.Params, &params); err != nil {
		s.logger.WithErr(err).Error("Failed to parse read resource params")
		s.sendErr(clientID, request.ID, ErrorCodeInvalidParams, "Invalid params", nil)
		return
	}

	result, err := s.ReadResource(ctx, params)
	if err != nil {
		s.logger.WithFields(map[string]interface{}{
			"uri": params.URI,
		}).WithErr(err).Error("Resource not found")
		s.sendErr(clientID, request.ID, ErrorCodeResourceNotFound, "Resource not found",
			map[string]string{"uri": params.URI})
		return
	}

	s.sendResp(clientID, request.ID, result, nil)
}

// ReadResource returns the contents of a registered resource. Text-like
// MIME types are returned inline; anything else is base64 encoded.
func (s *BaseServer) ReadResource(ctx context.Context, params ReadResourceParams) (ReadResourceResult, error) {
	ctx, span := StartSpan(ctx, "BaseServer.ReadResource")
	defer span.End()

	if !isValidURI(params.URI) {
		err := fmt.Errorf("invalid resource URI: %q", params.URI)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return ReadResourceResult{}, err
	}

	resource, exists := s.resources[params.URI]
	if !exists {
		err := fmt.Errorf("resource not found: %s", params.URI)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return ReadResourceResult{}, err
	}

	span.SetAttributes(
		attribute.String("uri", resource.URI),
		attribute.String("mime_type", resource.MimeType),
	)

	content := ResourceContent{URI: resource.URI, MimeType: resource.MimeType}
	if isTextMimeType(resource.MimeType) {
		content.Text = resource.TextContent
	} else {
		content.Blob = base64.StdEncoding.EncodeToString([]byte(resource.TextContent))
	}

	return ReadResourceResult{Contents: []ResourceContent{content}}, nil
}

func (s *BaseServer) handleToolsList(ctx context.Context, clientID string, request *Request) {
	params, ok := s.parseListParams(clientID, request)
	if !ok {
		return
	}
	s.sendResp(clientID, request.ID, s.ListTools(ctx, params.Cursor, 0), nil)
}

// ListTools returns all tools sorted by name, with cursor pagination.
// Handlers are stripped from the listing.
func (s *BaseServer) ListTools(ctx context.Context, cursor string, limit int) ListToolsResult {
	ctx, span := StartSpan(ctx, "BaseServer.ListTools")
	defer span.End()

	names := make([]string, 0, len(s.tools))
	for name := range s.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	page, next := paginate(names, cursor, limit)
	result := ListToolsResult{Tools: make([]Tool, 0, len(page)), NextCursor: next}
	for _, name := range page {
		tool := s.tools[name]
		result.Tools = append(result.Tools, Tool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		})
	}

	span.SetAttributes(attribute.Int("num_tools", len(result.Tools)))
	return result
}

func (s *BaseServer) handleToolsCall(ctx context.Context, clientID string, request *Request) {
	var params CallToolParams
	if err := json.Unmarshal(request.Params, &params); err != nil {
		s.logger.WithErr(err).Error("Failed to parse call tool params")
		s.sendErr(clientID, request.ID, ErrorCodeInvalidParams, "Invalid params", nil)
		return
	}

	result, err := s.CallTool(ctx, params)
	if err != nil {
		s.logger.WithFields(map[string]interface{}{
			"tool": params.Name,
		}).WithErr(err).Error("Failed to call tool")
		s.sendErr(clientID, request.ID, ErrorCodeInvalidParams, err.Error(), nil)
		return
	}

	s.sendResp(clientID, request.ID, result, nil)
}

// CallTool validates the arguments against the tool's input schema and
// runs its handler. Schema violations and handler errors come back as
// IsError results so the request itself still succeeds.
func (s *BaseServer) CallTool(ctx context.Context, params CallToolParams) (CallToolResult, error) {
	ctx, span := StartSpan(ctx, "BaseServer.CallTool")
	defer span.End()
	span.SetAttributes(attribute.String("tool", params.Name))

	tool, exists := s.tools[params.Name]
	if !exists {
		err := fmt.Errorf("tool not found: %s", params.Name)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return CallToolResult{}, err
	}

	args := params.Arguments
	if len(args) == 0 {
		// Absent arguments still have to satisfy the schema.
		args = json.RawMessage(`{}`)
		params.Arguments = args
	}

	if tool.InputSchema != nil {
		schemaLoader := gojsonschema.NewBytesLoader(tool.InputSchema)
		documentLoader := gojsonschema.NewBytesLoader(args)

		validation, err := gojsonschema.Validate(schemaLoader, documentLoader)
		if err != nil {
			s.logger.WithErr(err).Error("Schema validation error")
			return CallToolResult{}, fmt.Errorf("validation error: %w", err)
		}

		if !validation.Valid() {
			var messages []string
			for _, desc := range validation.Errors() {
				messages = append(messages, desc.String())
			}
			s.logger.WithFields(map[string]interface{}{
				"tool":   params.Name,
				"errors": messages,
			}).Error("Schema validation failed")

			return CallToolResult{
				IsError: true,
				Content: []ToolResultContent{{
					Type: "text",
					Text: fmt.Sprintf("Schema validation failed: %s", strings.Join(messages, "; ")),
				}},
			}, nil
		}
	}

	result, err := tool.Handler(ctx, params)
	if err != nil {
		s.logger.WithFields(map[string]interface{}{
			"tool": params.Name,
		}).WithErr(err).Error("Tool handler failed")

		return CallToolResult{
			IsError: true,
			Content: []ToolResultContent{{Type: "text", Text: err.Error()}},
		}, nil
	}

	s.logger.WithFields(map[string]interface{}{
		"tool": params.Name,
	}).Debug("Tool handler executed successfully")
	return result, nil
}

func (s *BaseServer) handlePromptsList(ctx context.Context, clientID string, request *Request) {
	params, ok := s.parseListParams(clientID, request)
	if !ok {
		return
	}
	s.sendResp(clientID, request.ID, s.ListPrompts(ctx, params.Cursor, 0), nil)
}

// ListPrompts returns all prompts sorted by name, with cursor pagination.
// Messages are omitted from list entries.
func (s *BaseServer) ListPrompts(ctx context.Context, cursor string, limit int) ListPromptsResult {
	ctx, span := StartSpan(ctx, "BaseServer.ListPrompts")
	defer span.End()

	names := make([]string, 0, len(s.prompts))
	for name := range s.prompts {
		names = append(names, name)
	}
	sort.Strings(names)

	page, next := paginate(names, cursor, limit)
	result := ListPromptsResult{Prompts: make([]Prompt, 0, len(page)), NextCursor: next}
	for _, name := range page {
		prompt := s.prompts[name]
		result.Prompts = append(result.Prompts, Prompt{
			Name:        prompt.Name,
			Description: prompt.Description,
			Arguments:   prompt.Arguments,
		})
	}

	span.SetAttributes(attribute.Int("num_prompts", len(result.Prompts)))
	return result
}

func (s *BaseServer) handlePromptGet(ctx context.Context, clientID string, request *Request) {
	var params GetPromptParams
	if err := json.Unmarshal(request.Params, &params); err != nil {
		s.logger.WithErr(err).Error("Failed to parse get prompt params")
		s.sendErr(clientID, request.ID, ErrorCodeInvalidParams, "Invalid params", nil)
		return
	}

	prompt, exists := s.prompts[params.Name]
	if !exists {
		s.logger.WithFields(map[string]interface{}{
			"prompt": params.Name,
		}).Error("Prompt not found")
		s.sendErr(clientID, request.ID, ErrorCodeInvalidParams, "Prompt not found",
			map[string]string{"prompt": params.Name})
		return
	}

	response, err := s.GetPrompt(ctx, prompt, params)
	if err != nil {
		s.logger.WithFields(map[string]interface{}{
			"prompt": params.Name,
		}).WithErr(err).Error("Failed to process prompt")
		s.sendErr(clientID, request.ID, ErrorCodeInvalidParams, err.Error(), nil)
		return
	}

	s.sendResp(clientID, request.ID, response, nil)
}

// GetPrompt verifies required arguments and renders the prompt, either
// through its handler or by placeholder substitution.
func (s *BaseServer) GetPrompt(ctx context.Context, prompt Prompt, params GetPromptParams) (PromptGetResponse, error) {
	ctx, span := StartSpan(ctx, "BaseServer.GetPrompt")
	defer span.End()
	span.SetAttributes(attribute.String("prompt", prompt.Name))

	if err := checkRequiredArguments(prompt, params.Arguments); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return PromptGetResponse{}, err
	}

	if prompt.Handler != nil {
		response, err := prompt.Handler(ctx, params)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return PromptGetResponse{}, fmt.Errorf("failed to render prompt %s: %w", prompt.Name, err)
		}
		return response, nil
	}

	processed, err := processPrompt(prompt, params.Arguments)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return PromptGetResponse{}, err
	}

	return PromptGetResponse{
		Description: processed.Description,
		Messages:    processed.Messages,
	}, nil
}

func (s *BaseServer) handleLoggingSetLevel(clientID string, request *Request) {
	var params SetLogLevelParams
	if err := json.Unmarshal(request.Params, &params); err != nil {
		s.logger.WithErr(err).Error("Failed to parse set log level params")
		s.sendErr(clientID, request.ID, ErrorCodeInvalidParams, "Invalid params", nil)
		return
	}

	if _, ok := logLevelSeverity[params.Level]; !ok {
		s.logger.WithFields(map[string]interface{}{
			"level": params.Level,
		}).Error("Invalid log level")
		s.sendErr(clientID, request.ID, ErrorCodeInvalidParams, "Invalid log level", nil)
		return
	}

	s.minLogLevel = params.Level
	s.sendResp(clientID, request.ID, struct{}{}, nil)
}

// parseListParams tolerates absent params, which clients commonly send
// for the parameterless list methods.
func (s *BaseServer) parseListParams(clientID string, request *Request) (ListParams, bool) {
	var params ListParams
	if len(request.Params) == 0 {
		return params, true
	}
	if err := json.Unmarshal(request.Params, &params); err != nil {
		s.logger.WithErr(err).Error("Failed to parse list params")
		s.sendErr(clientID, request.ID, ErrorCodeParseError, "Failed to parse params", nil)
		return params, false
	}
	return params, true
}

// paginate slices a sorted name list by cursor and limit, returning the
// page and the cursor for the next one. The cursor names the last item
// of the returned page; resumption continues with the item after it.
func paginate(sorted []string, cursor string, limit int) ([]string, string) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	start := 0
	if cursor != "" {
		found := false
		for i, name := range sorted {
			if name == cursor {
				start = i + 1
				found = true
				break
			}
		}
		if !found {
			return nil, ""
		}
	}
	if start >= len(sorted) {
		return nil, ""
	}

	end := start + limit
	if end >= len(sorted) {
		return sorted[start:], ""
	}
	return sorted[start:end], sorted[end-1]
}

func isTextMimeType(mimeType string) bool {
	return strings.HasPrefix(mimeType, "text/") ||
		mimeType == "application/json"
}
