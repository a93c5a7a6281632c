package models

import "time"

type Chat struct {
	ChatID      string         `bson:"chatid" json:"chatid"`
	Users       []string       `bson:"users" json:"users"`
	ListingID   string         `bson:"listingid,omitempty" json:"listingid,omitempty"`
	LastMessage MessagePreview `bson:"lastMessage" json:"lastMessage"`
	CreatedAt   time.Time      `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time      `bson:"updatedAt" json:"updatedAt"`
}

type MessagePreview struct {
	Text      string    `bson:"text" json:"text"`
	SenderID  string    `bson:"senderId" json:"senderId"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

type Message struct {
	MessageID string    `bson:"messageid" json:"messageid"`
	ChatID    string    `bson:"chatid" json:"chatid"`
	UserID    string    `bson:"userid" json:"userid"`
	Text      string    `bson:"text" json:"text"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// HasUser reports whether userID takes part in the chat.
func (c Chat) HasUser(userID string) bool {
	for _, u := range c.Users {
		if u == userID {
			return true
		}
	}
	return false
}
