package broker

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateOrder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		req     OrderRequest
		wantErr string
	}{
		{"buy", OrderRequest{Instrument: "ACME", Qty: 10}, ""},
		{"sell", OrderRequest{Instrument: "ACME", Qty: -3}, ""},
		{"empty name", OrderRequest{Qty: 1}, "instrument name is empty"},
		{"sentinel", OrderRequest{Instrument: NoSelection, Qty: 1}, "no instrument selected"},
		{"long name", OrderRequest{Instrument: strings.Repeat("x", 51), Qty: 1}, "longer than 50"},
		{"fifty is fine", OrderRequest{Instrument: strings.Repeat("x", 50), Qty: 1}, ""},
		{"zero qty", OrderRequest{Instrument: "ACME"}, "quantity must be non-zero"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateOrder(tt.req)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.True(t, errors.Is(err, ErrRejected))
		})
	}
}

func TestGatewayErrorUnwrap(t *testing.T) {
	t.Parallel()

	err := error(&GatewayError{Op: "submit", Instrument: "ACME", Status: 500, Err: ErrServerFault})
	assert.True(t, errors.Is(err, ErrServerFault))
	assert.False(t, errors.Is(err, ErrRejected))
	assert.Equal(t, "submit ACME: status 500: server fault", err.Error())

	var gw *GatewayError
	require.True(t, errors.As(err, &gw))
	assert.Equal(t, 500, gw.Status)
}

func TestAccountOwnedAndFind(t *testing.T) {
	t.Parallel()

	acct := Account{Balance: 100, Positions: map[string]int{"ACME": 4}}
	assert.Equal(t, 4, acct.Owned("ACME"))
	assert.Equal(t, 0, acct.Owned("BOLT"))
	assert.Equal(t, 0, Account{}.Owned("ACME"))

	list := []Instrument{{Name: "ACME", Price: 10}, {Name: "BOLT", Price: 3}}
	in, ok := Find(list, "BOLT")
	require.True(t, ok)
	assert.Equal(t, 3.0, in.Price)
	_, ok = Find(list, "CRUX")
	assert.False(t, ok)
}
