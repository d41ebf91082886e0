package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

var (
	ErrInvalidRole = goerr.New("invalid role")
	ErrInvalidKind = goerr.New("invalid kind")
)

type ItemID string

// NewItemID generates a new unique ItemID
func NewItemID() ItemID {
	return ItemID(uuid.New().String())
}

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Validate checks if the role is valid
func (r Role) Validate() error {
	switch r {
	case RoleUser, RoleModel:
		return nil
	default:
		return ErrInvalidRole
	}
}

type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindVideo Kind = "video"
	KindError Kind = "error"
)

// Validate checks if the kind is valid
func (k Kind) Validate() error {
	switch k {
	case KindText, KindImage, KindVideo, KindError:
		return nil
	default:
		return ErrInvalidKind
	}
}

// InputImage is a reference image attached to a prompt
type InputImage struct {
	Data     []byte
	MIMEType string
}

// HistoryItem is one entry in the generation log. ID is assigned at
// creation and never changes; all other fields may be replaced through
// an id-keyed partial merge (see repository.Patch).
type HistoryItem struct {
	ID          ItemID
	Role        Role
	Kind        Kind
	Content     string
	MediaURL    string
	IsLoading   bool
	Timestamp   time.Time
	ModelName   string
	InputImages []*InputImage
}

// OperationHandle binds one outstanding remote generation job to the
// history item it must eventually resolve.
type OperationHandle struct {
	ItemID ItemID
	Name   string
}
