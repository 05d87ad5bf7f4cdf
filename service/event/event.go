package event

import "time"

// Context identifies the origin of an event.
type Context struct {
	ID        string `json:"id"`
	EventType string `json:"eventType"`
	Source    string `json:"source"`
	Owner     string `json:"owner,omitempty"`
}

// Event wraps a typed payload.
type Event[T any] struct {
	Context   *Context               `json:"context"`
	CreatedAt time.Time              `json:"createdAt"`
	Metadata  map[string]interface{} `json:"metadata"`
	Data      T                      `json:"data"`
}

func NewEvent[T any](context *Context, data T) *Event[T] {
	return &Event[T]{
		Context:   context,
		CreatedAt: time.Now(),
		Metadata:  make(map[string]interface{}),
		Data:      data,
	}
}
