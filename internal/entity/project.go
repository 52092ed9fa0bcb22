package entity

import (
	"time"

	"github.com/google/uuid"
)

// Ref is the minimal id/name pair the import reconciler resolves against.
type Ref struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Project represents a client engagement.
type Project struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	Name      string    `json:"name"`
	Client    string    `json:"client,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (p *Project) Ref() Ref { return Ref{ID: p.ID, Name: p.Name} }

// Task represents a work activity that samples are collected against.
type Task struct {
	ID          uuid.UUID `json:"id"`
	TenantID    uuid.UUID `json:"tenant_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (t *Task) Ref() Ref { return Ref{ID: t.ID, Name: t.Name} }
