package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// StdIOServer serves MCP over newline-delimited JSON-RPC on a reader and
// writer pair, typically stdin and stdout. Messages are read, dispatched
// and answered strictly one at a time.
type StdIOServer struct {
	*BaseServer
	in        io.Reader
	out       io.Writer
	sessionID string
}

// NewStdIOServer creates a StdIOServer on top of baseServer. Each server
// gets a session ID that tags its log output.
func NewStdIOServer(baseServer *BaseServer, in io.Reader, out io.Writer) *StdIOServer {
	s := &StdIOServer{
		BaseServer: baseServer,
		in:         in,
		out:        out,
		sessionID:  uuid.NewString(),
	}
	s.logger = baseServer.logger.WithFields(map[string]interface{}{
		"session": s.sessionID,
	})

	s.sendResp = s.sendResponse
	s.sendErr = s.sendError
	s.sendNoti = s.sendNotification

	return s
}

// SessionID returns the identifier assigned to this server instance.
func (s *StdIOServer) SessionID() string {
	return s.sessionID
}

func (s *StdIOServer) sendResponse(clientID string, id *json.RawMessage, result interface{}, err *Error) {
	response := Response{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
		Error:   err,
	}

	jsonResponse, marshalErr := json.Marshal(response)
	if marshalErr != nil {
		s.logger.WithErr(marshalErr).Error("Failed to marshal response")
		s.sendError(clientID, id, ErrorCodeInternal, "Internal error: failed to marshal response", nil)
		return
	}

	s.writeLine(jsonResponse)
}

func (s *StdIOServer) sendError(clientID string, id *json.RawMessage, code int, message string, data interface{}) {
	errorResponse := Response{
		JSONRPC: "2.0",
		ID:      id,
		Error: &Error{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}

	jsonErrorResponse, err := json.Marshal(errorResponse)
	if err != nil {
		s.logger.WithErr(err).Error("Failed to marshal error response")
		return
	}

	s.writeLine(jsonErrorResponse)
}

func (s *StdIOServer) sendNotification(clientID string, method string, params interface{}) {
	notification := Notification{
		JSONRPC: "2.0",
		Method:  method,
	}
	if params != nil {
		paramsBytes, err := json.Marshal(params)
		if err != nil {
			s.logger.WithErr(err).Error("Failed to marshal notification parameters")
			return
		}
		notification.Params = paramsBytes
	}

	jsonNotification, err := json.Marshal(notification)
	if err != nil {
		s.logger.WithErr(err).Error("Failed to marshal notification message")
		return
	}

	s.writeLine(jsonNotification)
}

func (s *StdIOServer) writeLine(message []byte) {
	message = append(message, '\n')
	if _, err := s.out.Write(message); err != nil {
		s.logger.WithErr(err).Error("Failed to write message")
	}
}

// Run reads and processes messages until EOF or context cancellation.
// Malformed input and handler failures are answered on the wire and
// never stop the loop.
func (s *StdIOServer) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(s.in)
	buffer := make([]byte, 0, 64*1024)
	scanner.Buffer(buffer, 1024*1024)

	initialized := false
	done := make(chan error, 1)

	go func() {
		for {
			select {
			case <-ctx.Done():
				done <- ctx.Err()
				return
			default:
				if !scanner.Scan() {
					if err := scanner.Err(); err != nil && err != io.EOF {
						done <- fmt.Errorf("scanner error: %w", err)
					} else {
						done <- nil
					}
					return
				}

				line := scanner.Text()

				var raw json.RawMessage
				if err := json.Unmarshal([]byte(line), &raw); err != nil {
					s.logger.WithErr(err).Error("Failed to unmarshal message")
					s.sendError("", nil, ErrorCodeParseError, "Failed to parse message", nil)
					continue
				}

				var request Request
				if err := json.Unmarshal(raw, &request); err == nil && request.Method != "" && request.ID != nil {
					if request.Method != "initialize" && !initialized {
						s.logger.Error("Received request before 'initialize'")
						s.sendError("", request.ID, ErrorCodeNotInitialized, "Server not initialized", nil)
						continue
					}
					// StdIO has no persistent client ID, so pass an empty one.
					s.handleRequest(ctx, "", &request)
					continue
				}

				var notification Notification
				if err := json.Unmarshal(raw, &notification); err == nil && notification.Method != "" {
					if notification.Method == "notifications/initialized" {
						initialized = true
					} else if !initialized {
						s.logger.Debug("Received notification before 'initialized'")
						continue
					}
					s.handleNotification(ctx, "", &notification)
					continue
				}

				s.sendError("", nil, ErrorCodeInvalidRequest, "Invalid Request", nil)
			}
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Debug("Context cancelled, StdIOServer shutting down")
		return ctx.Err()
	case err := <-done:
		s.logger.Debug("StdIOServer shutting down")
		return err
	}
}
