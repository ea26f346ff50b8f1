package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// UserRef is a user id decoded from either a bare JSON string or a populated
// user object ({"id": ...} or {"_id": ...}).
type UserRef string

// UnmarshalJSON accepts a string, an object carrying an id, or null.
func (r *UserRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = UserRef(s)
		return nil
	}
	if data[0] != '{' {
		return fmt.Errorf("user reference must be a string or an object, got %s", data)
	}
	var obj struct {
		ID       string `json:"id"`
		MongoID  string `json:"_id"`
		UserID   string `json:"userId"`
		UserIDSn string `json:"user_id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*r = UserRef(firstNonEmpty(obj.ID, obj.MongoID, obj.UserID, obj.UserIDSn))
	return nil
}

// String returns the referenced id.
func (r UserRef) String() string { return string(r) }

// ParticipantRecord is one participant entry as clients send it.
type ParticipantRecord struct {
	UserID    UserRef         `json:"userId" validate:"required"`
	Share     decimal.Decimal `json:"share"`
	IsSettled bool            `json:"isSettled"`
}

// UnmarshalJSON accepts the participant keyed by "userId", "user_id" or "user".
func (p *ParticipantRecord) UnmarshalJSON(data []byte) error {
	var aux struct {
		UserID    UserRef         `json:"userId"`
		UserIDSn  UserRef         `json:"user_id"`
		User      UserRef         `json:"user"`
		Share     decimal.Decimal `json:"share"`
		IsSettled bool            `json:"isSettled"`
		Settled   bool            `json:"is_settled"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	p.UserID = UserRef(firstNonEmpty(string(aux.UserID), string(aux.UserIDSn), string(aux.User)))
	p.Share = aux.Share
	p.IsSettled = aux.IsSettled || aux.Settled
	return nil
}

// ExpenseRecord is an expense as clients send it, before normalization.
type ExpenseRecord struct {
	ID           string              `json:"id"`
	Title        string              `json:"title"`
	PayerID      UserRef             `json:"payerId" validate:"required"`
	Amount       decimal.Decimal     `json:"amount"`
	GroupID      UserRef             `json:"groupId"`
	Participants []ParticipantRecord `json:"participants" validate:"required,min=1,dive"`
	CreatedAt    int64               `json:"createdAt"`
}

// UnmarshalJSON accepts the payer as "payerId", "paidBy" or "payer" and the group
// as "groupId" or "group".
func (e *ExpenseRecord) UnmarshalJSON(data []byte) error {
	var aux struct {
		ID           string              `json:"id"`
		MongoID      string              `json:"_id"`
		Title        string              `json:"title"`
		Description  string              `json:"description"`
		PayerID      UserRef             `json:"payerId"`
		PaidBy       UserRef             `json:"paidBy"`
		Payer        UserRef             `json:"payer"`
		Amount       decimal.Decimal     `json:"amount"`
		GroupID      UserRef             `json:"groupId"`
		Group        UserRef             `json:"group"`
		Participants []ParticipantRecord `json:"participants"`
		CreatedAt    int64               `json:"createdAt"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	e.ID = firstNonEmpty(aux.ID, aux.MongoID)
	e.Title = firstNonEmpty(aux.Title, aux.Description)
	e.PayerID = UserRef(firstNonEmpty(string(aux.PayerID), string(aux.PaidBy), string(aux.Payer)))
	e.Amount = aux.Amount
	e.GroupID = UserRef(firstNonEmpty(string(aux.GroupID), string(aux.Group)))
	e.Participants = aux.Participants
	e.CreatedAt = aux.CreatedAt
	return nil
}

// TransactionRecord is a direct payment obligation as clients send it.
// The sender is the one who owes.
type TransactionRecord struct {
	ID         string          `json:"id"`
	SenderID   UserRef         `json:"senderId" validate:"required"`
	ReceiverID UserRef         `json:"receiverId" validate:"required"`
	Amount     decimal.Decimal `json:"amount"`
	GroupID    UserRef         `json:"groupId"`
	IsSettled  bool            `json:"isSettled"`
	CreatedAt  int64           `json:"createdAt"`
}

// UnmarshalJSON accepts "senderId"/"sender" and "receiverId"/"receiver".
func (t *TransactionRecord) UnmarshalJSON(data []byte) error {
	var aux struct {
		ID         string          `json:"id"`
		MongoID    string          `json:"_id"`
		SenderID   UserRef         `json:"senderId"`
		Sender     UserRef         `json:"sender"`
		ReceiverID UserRef         `json:"receiverId"`
		Receiver   UserRef         `json:"receiver"`
		Amount     decimal.Decimal `json:"amount"`
		GroupID    UserRef         `json:"groupId"`
		Group      UserRef         `json:"group"`
		IsSettled  bool            `json:"isSettled"`
		CreatedAt  int64           `json:"createdAt"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	t.ID = firstNonEmpty(aux.ID, aux.MongoID)
	t.SenderID = UserRef(firstNonEmpty(string(aux.SenderID), string(aux.Sender)))
	t.ReceiverID = UserRef(firstNonEmpty(string(aux.ReceiverID), string(aux.Receiver)))
	t.Amount = aux.Amount
	t.GroupID = UserRef(firstNonEmpty(string(aux.GroupID), string(aux.Group)))
	t.IsSettled = aux.IsSettled
	t.CreatedAt = aux.CreatedAt
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
