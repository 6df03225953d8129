package mongostore

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/Veraticus/spice-ledger/internal/model"
)

type userDoc struct {
	CreatedAt         time.Time     `bson:"created_at"`
	LastModified      time.Time     `bson:"last_modified"`
	DeletionStartedAt *time.Time    `bson:"deletion_started_at,omitempty"`
	Email             string        `bson:"email"`
	ID                bson.ObjectID `bson:"_id,omitempty"`
	IsActive          bool          `bson:"is_active"`
}

func (d userDoc) toModel() *model.User {
	return &model.User{
		ID:                d.ID.Hex(),
		Email:             d.Email,
		IsActive:          d.IsActive,
		CreatedAt:         d.CreatedAt,
		LastModified:      d.LastModified,
		DeletionStartedAt: d.DeletionStartedAt,
	}
}

type categoryDoc struct {
	CreatedAt    time.Time     `bson:"created_at"`
	LastModified time.Time     `bson:"last_modified"`
	Type         string        `bson:"type"`
	Name         string        `bson:"name"`
	ID           bson.ObjectID `bson:"_id,omitempty"`
	UserID       bson.ObjectID `bson:"user_id"`
}

func (d categoryDoc) toModel() model.Category {
	return model.Category{
		ID:           d.ID.Hex(),
		UserID:       d.UserID.Hex(),
		Type:         model.TransactionType(d.Type),
		Name:         d.Name,
		CreatedAt:    d.CreatedAt,
		LastModified: d.LastModified,
	}
}

type transactionDoc struct {
	Date         time.Time     `bson:"date"`
	CreatedAt    time.Time     `bson:"created_at"`
	LastModified time.Time     `bson:"last_modified"`
	Type         string        `bson:"type"`
	Category     string        `bson:"category"`
	Description  string        `bson:"description"`
	Amount       float64       `bson:"amount"`
	ID           bson.ObjectID `bson:"_id,omitempty"`
	UserID       bson.ObjectID `bson:"user_id"`
}

func newTransactionDoc(owner bson.ObjectID, txn *model.Transaction) transactionDoc {
	return transactionDoc{
		UserID:       owner,
		Type:         string(txn.Type),
		Category:     txn.Category,
		Amount:       txn.Amount,
		Date:         txn.Date,
		Description:  txn.Description,
		CreatedAt:    txn.CreatedAt,
		LastModified: txn.LastModified,
	}
}

func (d transactionDoc) toModel() model.Transaction {
	return model.Transaction{
		ID:           d.ID.Hex(),
		UserID:       d.UserID.Hex(),
		Type:         model.TransactionType(d.Type),
		Category:     d.Category,
		Amount:       d.Amount,
		Date:         d.Date,
		Description:  d.Description,
		CreatedAt:    d.CreatedAt,
		LastModified: d.LastModified,
	}
}
