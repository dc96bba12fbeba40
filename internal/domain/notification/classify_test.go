package notification

import (
	"testing"
	"time"

	"airtime/internal/domain/transaction"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyDefaultRules(t *testing.T) {
	tests := []struct {
		text string
		want Type
	}{
		{"202 you received 500 units", TypeReceivedAirtime},
		{"2049 insufficient funds", TypeTransferFailure},
		{"201 transfer complete", TypeTransferSuccess},
		{"hello", TypeUnknown},
		{"", TypeUnknown},
		{" 201 leading space", TypeUnknown},
		{"20", TypeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(nil, tt.text))
		})
	}
}

func TestClassifyFirstMatchWins(t *testing.T) {
	rules := []Rule{
		{Prefix: "20", Type: TypeReceivedAirtime},
		{Prefix: "201", Type: TypeTransferSuccess},
	}
	assert.Equal(t, TypeReceivedAirtime, Classify(rules, "201 transfer complete"))

	rules[0], rules[1] = rules[1], rules[0]
	assert.Equal(t, TypeTransferSuccess, Classify(rules, "201 transfer complete"))
}

func TestTypeTransferResult(t *testing.T) {
	r, ok := TypeTransferSuccess.TransferResult()
	require.True(t, ok)
	assert.Equal(t, transaction.ResultSuccess, r)

	r, ok = TypeTransferFailure.TransferResult()
	require.True(t, ok)
	assert.Equal(t, transaction.ResultFailure, r)

	for _, typ := range []Type{TypeReceivedAirtime, TypeUnknown, TypeBalance} {
		_, ok := typ.TransferResult()
		assert.False(t, ok, typ.String())
	}
}

func TestLinkIsWriteOnce(t *testing.T) {
	n := New(1, "ORANGE", "201 ok", TypeTransferSuccess, time.Time{})
	require.NoError(t, n.Link(7))
	assert.Error(t, n.Link(8))
	assert.Equal(t, int64(7), *n.TransactionID)
}

func TestParseType(t *testing.T) {
	typ, err := ParseType("received")
	require.NoError(t, err)
	assert.Equal(t, TypeReceivedAirtime, typ)

	_, err = ParseType("x")
	assert.Error(t, err)
}
