package hook

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	prerrors "github.com/mrz1836/go-pycheck/internal/errors"
)

// WriteTools are the host tool names whose completion triggers a check
var WriteTools = []string{"write_file", "edit_file", "Write", "Edit", "MultiEdit"} //nolint:gochecknoglobals // read-only table

// Action tells the host what to do after the hook ran
type Action string

// Hook actions
const (
	ActionContinue      Action = "continue"
	ActionInjectContext Action = "inject_context"
)

// RoleSystem is the role used for every context injection
const RoleSystem = "system"

// ToolInput is the part of a tool call the hook reads
type ToolInput struct {
	FilePath string `json:"file_path"`
	Path     string `json:"path"`
}

// Payload is a post-tool event as delivered by the host
type Payload struct {
	Event     string    `json:"event,omitempty"`
	ToolName  string    `json:"tool_name"`
	ToolInput ToolInput `json:"tool_input"`
}

// ParsePayload decodes an event payload. Unknown fields are ignored.
func ParsePayload(data []byte) (Payload, error) {
	var p Payload
	if len(strings.TrimSpace(string(data))) == 0 {
		return p, fmt.Errorf("%w: empty hook payload", prerrors.ErrInvalidPayload)
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}, fmt.Errorf("%w: %w", prerrors.ErrInvalidPayload, err)
	}
	return p, nil
}

// TargetPath returns the edited file, preferring file_path over path
func (p Payload) TargetPath() string {
	if p.ToolInput.FilePath != "" {
		return p.ToolInput.FilePath
	}
	return p.ToolInput.Path
}

// IsWrite reports whether the payload comes from a file mutation tool
func (p Payload) IsWrite() bool {
	return slices.Contains(WriteTools, p.ToolName)
}

// Result is the hook's answer to the host
type Result struct {
	Action               Action `json:"action"`
	UserMessage          string `json:"user_message,omitempty"`
	UserMessageLevel     string `json:"user_message_level,omitempty"`
	ContextInjection     string `json:"context_injection,omitempty"`
	ContextInjectionRole string `json:"context_injection_role,omitempty"`
}

// Continue is the pass-through result
func Continue() Result {
	return Result{Action: ActionContinue}
}
