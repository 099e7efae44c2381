// Package bridge is the boundary between the embedded web content and the
// native layer: it decodes structured messages posted by the web app and
// relays terminal upload results back to it.
package bridge

import (
	"encoding/json"
	"fmt"

	"github.com/keshan-spec/drivelife-app-core/media"
	"github.com/keshan-spec/drivelife-app-core/post"
)

// MessageType tags an inbound bridge message.
type MessageType string

const (
	TypeAuthData   MessageType = "authData"
	TypeCreatePost MessageType = "createPost"
	TypeSignOut    MessageType = "signOut"
)

// AuthData is the credentials payload of an authData message.
type AuthData struct {
	UserID string `json:"user_id"`
	Token  string `json:"token"`
}

// CreatePostPayload is the payload of a createPost message: the selected
// media descriptors plus caption and tag metadata.
type CreatePostPayload struct {
	UserID         string              `json:"user_id"`
	Caption        string              `json:"caption"`
	Location       string              `json:"location"`
	TaggedEntities []post.TaggedEntity `json:"tagged_entities"`
	Media          []media.Item        `json:"media"`
}

// Message is one decoded inbound bridge message. Exactly one payload field
// is populated, matching Type.
type Message struct {
	Type       MessageType
	Auth       *AuthData
	CreatePost *CreatePostPayload
}

type envelope struct {
	Type MessageType `json:"type"`
}

// ParseMessage decodes a raw bridge message. Unknown types are an error so
// a web-side contract drift is caught loudly instead of ignored.
func ParseMessage(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Message{}, fmt.Errorf("decode bridge message: %w", err)
	}

	switch env.Type {
	case TypeAuthData:
		var payload struct {
			Data AuthData `json:"data"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return Message{}, fmt.Errorf("decode authData payload: %w", err)
		}
		return Message{Type: TypeAuthData, Auth: &payload.Data}, nil
	case TypeCreatePost:
		var payload struct {
			Data CreatePostPayload `json:"data"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return Message{}, fmt.Errorf("decode createPost payload: %w", err)
		}
		return Message{Type: TypeCreatePost, CreatePost: &payload.Data}, nil
	case TypeSignOut:
		return Message{Type: TypeSignOut}, nil
	case "":
		return Message{}, fmt.Errorf("bridge message has no type")
	default:
		return Message{}, fmt.Errorf("unknown bridge message type %q", env.Type)
	}
}
