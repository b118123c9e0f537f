package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestID_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want ID
	}{
		{"number", `42`, "42"},
		{"string", `"abc-1"`, "abc-1"},
		{"null", `null`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id ID
			require.NoError(t, json.Unmarshal([]byte(tt.in), &id))
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestID_MarshalJSON(t *testing.T) {
	out, err := json.Marshal(struct {
		A ID `json:"a"`
		B ID `json:"b"`
	}{A: "42", B: "x1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":42,"b":"x1"}`, string(out))
}

func TestCart_Decode(t *testing.T) {
	body := `{"cartId":42,"cartDetails":[
		{"id":1,"cartId":42,"quantity":2,"price":100000,"ticketType":{"type":"VIP"}},
		{"id":2,"cartId":42,"quantity":1,"price":50000,"ticketType":{"type":"GA"}}
	]}`

	var cart Cart
	require.NoError(t, json.Unmarshal([]byte(body), &cart))

	assert.Equal(t, ID("42"), cart.ResolvedID())
	assert.False(t, cart.IsEmpty())
	assert.Equal(t, 3, cart.TotalQuantity())
	assert.InDelta(t, 250000, cart.TotalPrice(), 0.001)
}

func TestCart_ResolvedIDFallsBackToLine(t *testing.T) {
	cart := &Cart{CartDetails: []CartDetail{{ID: "1", CartID: "9"}}}
	assert.Equal(t, ID("9"), cart.ResolvedID())

	var nilCart *Cart
	assert.True(t, nilCart.IsEmpty())
	assert.Equal(t, ID(""), nilCart.ResolvedID())
}

func TestEvent_MinPrice(t *testing.T) {
	e := &Event{TicketTypes: []TicketType{{ID: "1", Price: 300}, {ID: "2", Price: 120}, {ID: "3", Price: 500}}}
	assert.InDelta(t, 120, e.MinPrice(), 0.001)

	tt, ok := e.TicketType("3")
	assert.True(t, ok)
	assert.InDelta(t, 500, tt.Price, 0.001)

	_, ok = e.TicketType("99")
	assert.False(t, ok)
}

func TestOrder_Lines(t *testing.T) {
	o := &Order{TicketOrderDetails: []OrderDetail{{ID: "1"}}}
	assert.Len(t, o.Lines(), 1)
}
