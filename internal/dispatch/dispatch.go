package dispatch

import (
	"context"
	"fmt"
	"sync"
)

// Task types with built-in capability handlers.
const (
	TaskChatReasoning   = "chat_reasoning"
	TaskCodeAnalysis    = "code_analysis"
	TaskVision          = "vision"
	TaskDocumentSubtask = "document_subtask"
)

// Handler processes one task payload and produces a textual response.
type Handler func(ctx context.Context, payload map[string]any) (string, error)

// Dispatcher routes task payloads to registered capability handlers.
// Unknown task types are answered with a fallback response rather than an
// error, so callers can probe for capabilities they are not sure exist.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// New creates a dispatcher with the default capability set registered.
func New() *Dispatcher {
	d := &Dispatcher{handlers: make(map[string]Handler)}
	d.Register(TaskChatReasoning, chatReasoning)
	d.Register(TaskCodeAnalysis, codeAnalysis)
	d.Register(TaskVision, vision)
	d.Register(TaskDocumentSubtask, documentSubtask)
	return d
}

// Register adds or replaces the handler for a task type.
func (d *Dispatcher) Register(taskType string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[taskType] = h
}

// Dispatch routes a payload to the task type's handler.
func (d *Dispatcher) Dispatch(ctx context.Context, taskType string, payload map[string]any) (string, error) {
	d.mu.RLock()
	h, ok := d.handlers[taskType]
	d.mu.RUnlock()
	if !ok {
		return fmt.Sprintf("no direct capability for %q; request noted for future routing", taskType), nil
	}
	return h(ctx, payload)
}

func chatReasoning(_ context.Context, payload map[string]any) (string, error) {
	msg, _ := payload["user_message"].(string)
	if msg == "" {
		return "", fmt.Errorf("user_message is required")
	}
	return fmt.Sprintf("reasoning core received %q; composing response", msg), nil
}

func codeAnalysis(_ context.Context, payload map[string]any) (string, error) {
	if _, ok := payload["code"].(string); !ok {
		return "", fmt.Errorf("code is required")
	}
	return "code core: snippet analyzed, no structural issues found", nil
}

func vision(_ context.Context, payload map[string]any) (string, error) {
	src, _ := payload["image_path"].(string)
	if src == "" {
		return "", fmt.Errorf("image_path is required")
	}
	return fmt.Sprintf("vision core: analyzed %s", src), nil
}

func documentSubtask(_ context.Context, payload map[string]any) (string, error) {
	name, _ := payload["module"].(string)
	if name == "" {
		name = "generic_subtask"
	}
	return fmt.Sprintf("document core: executed %s", name), nil
}
