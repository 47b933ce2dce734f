package http

import "github.com/GriffinCanCode/flashfile/internal/script"

// ScriptRequest represents a script execution request
type ScriptRequest struct {
	Script    string `json:"script" binding:"required"`
	TimeoutMs int    `json:"timeout_ms" binding:"gte=0"`
}

// ScriptResponse is returned for a script that ran to completion
type ScriptResponse struct {
	ID         string            `json:"id"`
	Value      interface{}       `json:"value"`
	Console    []script.LogEntry `json:"console"`
	DurationMs float64           `json:"duration_ms"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error     string            `json:"error"`
	Advice    string            `json:"advice,omitempty"`
	Console   []script.LogEntry `json:"console,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// ConsoleMessage is a frame sent by a console client
type ConsoleMessage struct {
	Type      string `json:"type"`
	Script    string `json:"script,omitempty"`
	TimeoutMs int    `json:"timeout_ms,omitempty"`
}

// ConsoleReply is a system, pong or error frame sent to a console client
type ConsoleReply struct {
	Type    string            `json:"type"`
	Message string            `json:"message,omitempty"`
	Error   string            `json:"error,omitempty"`
	Advice  string            `json:"advice,omitempty"`
	Console []script.LogEntry `json:"console,omitempty"`
}

// ConsoleResult carries a completed script to a console client
type ConsoleResult struct {
	Type string `json:"type"`
	ScriptResponse
}
