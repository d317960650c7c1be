package webhook

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	EventResourceUploaded   = "resource.uploaded"
	EventResourceProcessing = "resource.processing"
	EventResourceProcessed  = "resource.processed"
	EventResourceFailed     = "resource.failed"
)

var ValidEventTypes = map[string]bool{
	EventResourceUploaded:   true,
	EventResourceProcessing: true,
	EventResourceProcessed:  true,
	EventResourceFailed:     true,
}

type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	CreatedAt time.Time       `json:"created_at"`
	Data      json.RawMessage `json:"data"`
}

type ResourceUploadedData struct {
	ResourceID string `json:"resource_id"`
	Name       string `json:"name"`
}

type ResourceProcessingData struct {
	ResourceID string `json:"resource_id"`
	Type       string `json:"type"`
}

type ResourceProcessedData struct {
	ResourceID string `json:"resource_id"`
	Type       string `json:"type"`
}

type ResourceFailedData struct {
	ResourceID   string `json:"resource_id"`
	ErrorMessage string `json:"error_message,omitempty"`
}

func NewEvent(eventType string, data any) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		CreatedAt: time.Now().UTC(),
		Data:      dataBytes,
	}, nil
}

func NewResourceUploadedEvent(resourceID, name string) (*Event, error) {
	return NewEvent(EventResourceUploaded, ResourceUploadedData{
		ResourceID: resourceID,
		Name:       name,
	})
}

func NewResourceProcessingEvent(resourceID, resourceType string) (*Event, error) {
	return NewEvent(EventResourceProcessing, ResourceProcessingData{
		ResourceID: resourceID,
		Type:       resourceType,
	})
}

func NewResourceProcessedEvent(resourceID, resourceType string) (*Event, error) {
	return NewEvent(EventResourceProcessed, ResourceProcessedData{
		ResourceID: resourceID,
		Type:       resourceType,
	})
}

func NewResourceFailedEvent(resourceID, errorMessage string) (*Event, error) {
	return NewEvent(EventResourceFailed, ResourceFailedData{
		ResourceID:   resourceID,
		ErrorMessage: errorMessage,
	})
}

func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}
