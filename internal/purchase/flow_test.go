package purchase

import (
	"errors"
	"testing"

	"tiquetera/internal/api"
	"tiquetera/internal/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ticketType(id int, name string, price float64, max, sold int) events.TicketType {
	return events.TicketType{
		ID:              id,
		Price:           api.Decimal(price),
		MaximumCapacity: max,
		CapacitySold:    sold,
		Info:            events.TicketTypeInfo{Name: name},
	}
}

func sampleTypes() []events.TicketType {
	return []events.TicketType{
		ticketType(1, "General", 50000, 100, 98),
		ticketType(2, "VIP", 120000, 20, 0),
		ticketType(3, "Cortesía", 0, 10, 0),
	}
}

func TestSelect(t *testing.T) {
	flow, err := Select(7, sampleTypes(), map[int]int{2: 2, 1: 1, 3: 0})
	require.NoError(t, err)

	assert.NotEmpty(t, flow.ID)
	assert.Equal(t, 7, flow.EventID)
	assert.Equal(t, StepSelected, flow.Step)
	assert.Equal(t, 3, flow.TotalQuantity)
	assert.InDelta(t, 290000, flow.TotalAmount, 0.001)
	require.Len(t, flow.Selections, 2)
	assert.Equal(t, 1, flow.Selections[0].TicketTypeID)
	assert.Equal(t, 2, flow.Selections[1].TicketTypeID)
	assert.Equal(t, "VIP", flow.Selections[1].Name)
}

func TestSelectRejectsAboveRemaining(t *testing.T) {
	_, err := Select(7, sampleTypes(), map[int]int{1: 3})

	var capErr *CapacityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, 1, capErr.TicketTypeID)
	assert.Equal(t, 2, capErr.Remaining)
	assert.Equal(t, 3, capErr.Requested)
}

func TestSelectErrors(t *testing.T) {
	tests := []struct {
		name       string
		quantities map[int]int
		want       error
	}{
		{"empty", map[int]int{}, ErrNothingSelected},
		{"all zero", map[int]int{1: 0, 2: 0}, ErrNothingSelected},
		{"unknown type", map[int]int{99: 1}, ErrUnknownTicketType},
		{"negative", map[int]int{2: -1}, ErrInvalidQuantity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Select(7, sampleTypes(), tt.quantities)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSelectSoldOut(t *testing.T) {
	types := []events.TicketType{ticketType(1, "General", 1000, 5, 5)}
	_, err := Select(1, types, map[int]int{1: 1})

	var capErr *CapacityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, 0, capErr.Remaining)
}

func TestPartialPurchaseError(t *testing.T) {
	backendErr := &api.StatusError{Status: 400, Message: "No hay suficientes tickets disponibles"}
	err := &PartialPurchaseError{
		Succeeded: []PurchaseResult{{TicketTypeID: 1, Quantity: 1, Response: &BuyResponse{}}},
		Failed:    []PurchaseResult{{TicketTypeID: 2, Quantity: 4, Err: backendErr, Error: backendErr.Error()}},
	}

	assert.Contains(t, err.Error(), "1 of 2")
	assert.True(t, errors.Is(err, api.ErrValidation))
	assert.Equal(t, "No hay suficientes tickets disponibles", err.FirstMessage())
}

func TestTicketIDs(t *testing.T) {
	flow := FlowContext{Results: []PurchaseResult{
		{Response: &BuyResponse{TicketIDs: []int{10, 11}}},
		{Err: errors.New("boom")},
		{Response: &BuyResponse{TicketIDs: []int{12}}},
	}}
	assert.Equal(t, []int{10, 11, 12}, flow.TicketIDs())
}
