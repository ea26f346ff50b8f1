package calculator

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitwiser/internal/models"
)

func participant(id, share string) models.ParticipantRecord {
	return models.ParticipantRecord{UserID: models.UserRef(id), Share: dec(share)}
}

func TestNormalizeExpense_PayerWithZeroShare(t *testing.T) {
	rec := models.ExpenseRecord{
		ID:      "exp-1",
		PayerID: "p",
		Amount:  dec("90"),
		GroupID: "g1",
		Participants: []models.ParticipantRecord{
			participant("p", "0"),
			participant("a", "30"),
			participant("b", "30"),
			participant("c", "30"),
		},
		CreatedAt: 1700000000,
	}

	obligations, err := NormalizeExpense(rec)
	require.NoError(t, err)
	require.Len(t, obligations, 3)

	for i, ower := range []string{"a", "b", "c"} {
		ob := obligations[i]
		assert.Equal(t, ower, ob.OwerID)
		assert.Equal(t, "p", ob.PayerID)
		assert.True(t, ob.Amount.Equal(dec("30")), "amount = %s", ob.Amount)
		assert.Equal(t, "exp-1", ob.ExpenseID)
		assert.Equal(t, "g1", ob.GroupID)
		assert.Equal(t, int64(1700000000), ob.CreatedAt)
		assert.False(t, ob.IsSettled)
	}
}

func TestNormalizeExpense_PayerOwnShareIsNotAnObligation(t *testing.T) {
	rec := models.ExpenseRecord{
		PayerID: "p",
		Amount:  dec("100"),
		Participants: []models.ParticipantRecord{
			participant("p", "40"),
			participant("a", "60"),
		},
	}

	obligations, err := NormalizeExpense(rec)
	require.NoError(t, err)
	require.Len(t, obligations, 1)
	assert.Equal(t, "a", obligations[0].OwerID)
	assert.True(t, obligations[0].Amount.Equal(dec("60")))
}

func TestNormalizeExpense_SumInvariant(t *testing.T) {
	tests := []struct {
		name      string
		amount    string
		shares    map[string]string
		wantErr   bool
		wantTotal string
	}{
		{name: "exact", amount: "75", shares: map[string]string{"p": "25", "a": "25", "b": "25"}, wantTotal: "50"},
		{name: "within a cent", amount: "100", shares: map[string]string{"a": "33.33", "b": "33.33", "c": "33.33"}, wantTotal: "99.99"},
		{name: "short by twenty", amount: "100", shares: map[string]string{"a": "40", "b": "40"}, wantErr: true},
		{name: "over by two cents", amount: "10", shares: map[string]string{"a": "5.01", "b": "5.01"}, wantErr: true},
		{name: "zero share skipped", amount: "10", shares: map[string]string{"a": "10", "b": "0"}, wantTotal: "10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := models.ExpenseRecord{PayerID: "p", Amount: dec(tt.amount)}
			for id, share := range tt.shares {
				rec.Participants = append(rec.Participants, participant(id, share))
			}

			obligations, err := NormalizeExpense(rec)
			if tt.wantErr {
				var verr *ValidationError
				require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
				assert.Nil(t, obligations)
				return
			}
			require.NoError(t, err)

			total := decimal.Zero
			for _, ob := range obligations {
				assert.NotEqual(t, ob.PayerID, ob.OwerID)
				assert.True(t, ob.Amount.IsPositive())
				total = total.Add(ob.Amount)
			}
			assert.True(t, total.Equal(dec(tt.wantTotal)), "total = %s, want %s", total, tt.wantTotal)
		})
	}
}

func TestNormalizeExpense_Rejects(t *testing.T) {
	tests := []struct {
		name string
		rec  models.ExpenseRecord
	}{
		{
			name: "missing payer",
			rec:  models.ExpenseRecord{Amount: dec("10"), Participants: []models.ParticipantRecord{participant("a", "10")}},
		},
		{
			name: "no participants",
			rec:  models.ExpenseRecord{PayerID: "p", Amount: dec("10")},
		},
		{
			name: "participant without id",
			rec:  models.ExpenseRecord{PayerID: "p", Amount: dec("10"), Participants: []models.ParticipantRecord{participant("", "10")}},
		},
		{
			name: "zero amount",
			rec:  models.ExpenseRecord{PayerID: "p", Amount: decimal.Zero, Participants: []models.ParticipantRecord{participant("a", "0")}},
		},
		{
			name: "negative share",
			rec: models.ExpenseRecord{PayerID: "p", Amount: dec("10"), Participants: []models.ParticipantRecord{
				participant("a", "15"), participant("b", "-5"),
			}},
		},
		{
			name: "duplicate participant",
			rec: models.ExpenseRecord{PayerID: "p", Amount: dec("10"), Participants: []models.ParticipantRecord{
				participant("a", "5"), participant("a", "5"),
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeExpense(tt.rec)
			var verr *ValidationError
			assert.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
		})
	}
}

func TestValidateStruct_NonStructKeepsMessage(t *testing.T) {
	err := ValidateStruct(nil)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
	assert.Empty(t, verr.Field)
	assert.Equal(t, "validator: (nil)", verr.Message)
	assert.NotContains(t, verr.Message, "%!")
}

func TestNormalizeExpense_SettledParticipant(t *testing.T) {
	rec := models.ExpenseRecord{
		PayerID: "p",
		Amount:  dec("20"),
		Participants: []models.ParticipantRecord{
			{UserID: "a", Share: dec("10"), IsSettled: true},
			participant("b", "10"),
		},
	}
	obligations, err := NormalizeExpense(rec)
	require.NoError(t, err)
	require.Len(t, obligations, 2)
	assert.True(t, obligations[0].IsSettled)
	assert.True(t, obligations[0].Outstanding().IsZero())
	assert.False(t, obligations[1].IsSettled)
}

func TestNormalizeExpense_LooseJSONShapes(t *testing.T) {
	body := `{
		"_id": "exp-9",
		"paidBy": {"_id": "p", "name": "Pat"},
		"amount": "45",
		"group": "g7",
		"participants": [
			{"user": {"id": "p"}, "share": 15},
			{"userId": "a", "share": "15"},
			{"user_id": "b", "share": 15, "is_settled": true}
		]
	}`
	var rec models.ExpenseRecord
	require.NoError(t, json.Unmarshal([]byte(body), &rec))

	obligations, err := NormalizeExpense(rec)
	require.NoError(t, err)
	require.Len(t, obligations, 2)
	assert.Equal(t, "a", obligations[0].OwerID)
	assert.Equal(t, "p", obligations[0].PayerID)
	assert.Equal(t, "g7", obligations[0].GroupID)
	assert.Equal(t, "exp-9", obligations[0].ExpenseID)
	assert.True(t, obligations[1].IsSettled)
}

func TestNormalizeTransaction(t *testing.T) {
	ob, err := NormalizeTransaction(models.TransactionRecord{SenderID: "a", ReceiverID: "b", Amount: dec("12.50")})
	require.NoError(t, err)
	assert.Equal(t, "a", ob.OwerID)
	assert.Equal(t, "b", ob.PayerID)
	assert.True(t, ob.Amount.Equal(dec("12.5")))
	assert.Empty(t, ob.ExpenseID)

	var rec models.TransactionRecord
	require.NoError(t, json.Unmarshal([]byte(`{"sender": {"_id": "a"}, "receiver": "b", "amount": 3}`), &rec))
	ob, err = NormalizeTransaction(rec)
	require.NoError(t, err)
	assert.Equal(t, "a", ob.OwerID)
	assert.Equal(t, "b", ob.PayerID)

	_, err = NormalizeTransaction(models.TransactionRecord{SenderID: "a", ReceiverID: "a", Amount: dec("1")})
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))

	_, err = NormalizeTransaction(models.TransactionRecord{SenderID: "a", ReceiverID: "b", Amount: dec("-1")})
	assert.True(t, errors.As(err, &verr))

	_, err = NormalizeTransaction(models.TransactionRecord{ReceiverID: "b", Amount: dec("1")})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "senderId", verr.Field)
}
