package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecord(t *testing.T) {
	t.Run("interprets known fields", func(t *testing.T) {
		r, err := ParseRecord([]byte(`{"symbol":"BTCUSDT","id":698759,"orderId":25851813,"price":"7819.01","time":1569514978020}`))
		require.NoError(t, err)

		assert.Equal(t, "BTCUSDT", r.Symbol())
		assert.Equal(t, int64(698759), r.ID())
		assert.Equal(t, int64(25851813), r.OrderID())
		assert.Equal(t, int64(1569514978020), r.Time())
		assert.Empty(t, r.Missing(TradeFields...))
	})

	t.Run("key order does not affect identity", func(t *testing.T) {
		a, err := ParseRecord([]byte(`{"id":1,"symbol":"ETHUSDT","time":5}`))
		require.NoError(t, err)
		b, err := ParseRecord([]byte(`{"time":5,"symbol":"ETHUSDT","id":1}`))
		require.NoError(t, err)

		assert.True(t, a.Equal(b))
		assert.Equal(t, a.Key(), b.Key())
	})

	t.Run("differing pass-through field breaks identity", func(t *testing.T) {
		a, err := ParseRecord([]byte(`{"orderId":7,"status":"NEW","time":5}`))
		require.NoError(t, err)
		b, err := ParseRecord([]byte(`{"orderId":7,"status":"FILLED","time":5}`))
		require.NoError(t, err)

		assert.False(t, a.Equal(b))
	})

	t.Run("numbers survive untouched", func(t *testing.T) {
		in := `{"id":9007199254740993,"qty":"0.001","realizedPnl":-0.10000000000000001,"time":1}`
		r, err := ParseRecord([]byte(in))
		require.NoError(t, err)

		out, err := json.Marshal(r)
		require.NoError(t, err)
		assert.JSONEq(t, in, string(out))
		assert.Contains(t, string(out), "9007199254740993")
		assert.Contains(t, string(out), "-0.10000000000000001")
	})

	t.Run("reports missing fields", func(t *testing.T) {
		r, err := ParseRecord([]byte(`{"symbol":"BTCUSDT","time":"not-a-number"}`))
		require.NoError(t, err)

		assert.ElementsMatch(t, []string{FieldID, FieldOrderID, FieldTime}, r.Missing(TradeFields...))
	})

	t.Run("rejects non objects", func(t *testing.T) {
		_, err := ParseRecord([]byte(`[1,2]`))
		assert.Error(t, err)

		_, err = ParseRecord([]byte(`null`))
		assert.Error(t, err)
	})
}

func TestDecodeRecords(t *testing.T) {
	records, err := DecodeRecords([]byte(`[{"id":1,"time":10},{"id":2,"time":20}]`))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(2), records[1].ID())

	empty, err := DecodeRecords([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = DecodeRecords([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	assert.Error(t, err)

	_, err = DecodeRecords([]byte(`null`))
	assert.Error(t, err)

	_, err = DecodeRecords([]byte(`[{"id":1},null]`))
	assert.Error(t, err)
}

func TestDatasetJSON(t *testing.T) {
	ds := NewDataset("SgsR")
	out, err := json.Marshal(ds)
	require.NoError(t, err)
	assert.JSONEq(t, `{"alias":"SgsR","trades":[],"orders":[]}`, string(out))

	var back Dataset
	require.NoError(t, json.Unmarshal([]byte(`{"alias":"a","trades":[{"symbol":"X","id":1,"orderId":2,"time":3}],"orders":[]}`), &back))
	require.Len(t, back.Trades, 1)
	assert.Equal(t, "X", back.Trades[0].Symbol())
}
