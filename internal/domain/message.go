package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Message is immutable once stored. Image holds the uploaded attachment URL, never raw data.
type Message struct {
	ID         uuid.UUID      `json:"id" gorm:"type:char(36);primaryKey"`
	SenderID   uuid.UUID      `json:"senderId" gorm:"type:char(36);not null;index:idx_messages_pair,priority:1"`
	ReceiverID uuid.UUID      `json:"receiverId" gorm:"type:char(36);not null;index:idx_messages_pair,priority:2"`
	Text       string         `json:"text,omitempty" gorm:"type:text"`
	Image      string         `json:"image,omitempty" gorm:"type:text"`
	ImageMeta  datatypes.JSON `json:"imageMeta,omitempty"`
	CreatedAt  time.Time      `json:"createdAt" gorm:"not null;index:idx_messages_pair,priority:3"`
}

// MediaInfo is stored in Message.ImageMeta.
type MediaInfo struct {
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	Digest      string `json:"digest"`
}
