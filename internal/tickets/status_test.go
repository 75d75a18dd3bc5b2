package tickets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanDisplayQr(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusPurchased, true},
		{StatusPendingPayment, false},
		{StatusUsed, false},
		{StatusCancelled, false},
		{Status("reembolsada"), false},
		{Status(""), false},
		{Status("COMPRADA"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, CanDisplayQr(tt.status))
		})
	}
}

func TestDescribeKnownStatuses(t *testing.T) {
	for _, s := range []Status{StatusPurchased, StatusPendingPayment, StatusUsed, StatusCancelled} {
		info := Describe(string(s))
		assert.True(t, info.Known, s)
		assert.True(t, s.IsValid())
		assert.NotEmpty(t, info.Label)
		assert.NotEmpty(t, info.Color)
		assert.NotEmpty(t, info.Title)
		assert.Equal(t, s.IsTerminal(), info.Terminal)
		if !info.CanDisplayQR {
			assert.NotEmpty(t, info.Message, "hidden QR needs an explanation for %s", s)
		}
	}

	pending := Describe("pendiente")
	assert.True(t, pending.ShowPendingNotice)
	assert.Equal(t, "#f59e0b", pending.Color)

	purchased := Describe("comprada")
	assert.True(t, purchased.CanDownload)
	assert.Equal(t, "Activa", purchased.Label)
}

func TestDescribeUnknownStatus(t *testing.T) {
	info := Describe("en_revision")

	assert.False(t, info.Known)
	assert.False(t, info.CanDisplayQR)
	assert.False(t, info.CanDownload)
	assert.False(t, Status("en_revision").IsValid())
	assert.Equal(t, "Estado desconocido", info.Title)
	assert.Equal(t, "Estado actual: en_revision", info.Message)
	assert.Equal(t, unknownColor, info.Color)
}

func TestCanTransitionTo(t *testing.T) {
	assert.True(t, StatusPendingPayment.CanTransitionTo(StatusPurchased))
	assert.True(t, StatusPendingPayment.CanTransitionTo(StatusCancelled))
	assert.True(t, StatusPurchased.CanTransitionTo(StatusUsed))
	assert.True(t, StatusUsed.CanTransitionTo(StatusUsed))

	assert.False(t, StatusPurchased.CanTransitionTo(StatusPendingPayment))
	assert.False(t, StatusUsed.CanTransitionTo(StatusPurchased))
	assert.False(t, StatusCancelled.CanTransitionTo(StatusPurchased))
	assert.False(t, StatusPendingPayment.CanTransitionTo(StatusUsed))
}
