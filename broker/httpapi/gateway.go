package httpapi

import (
	"context"
	"fmt"

	"github.com/rustyeddy/stockbot/broker"
)

const (
	pathStocks    = "/api/stocks"
	pathUser      = "/api/user"
	pathAccount   = "/api/account"
	pathPositions = "/api/account/positions"
)

var _ broker.Gateway = (*Client)(nil)

// ListInstruments fetches every tradable stock with its current price.
func (c *Client) ListInstruments(ctx context.Context) ([]broker.Instrument, error) {
	var stocks []stockDTO
	if err := c.get(ctx, pathStocks, &stocks); err != nil {
		return nil, gatewayError("list instruments", "", err)
	}

	out := make([]broker.Instrument, 0, len(stocks))
	for _, s := range stocks {
		out = append(out, broker.Instrument{
			Name:      s.Name,
			Price:     s.Price,
			Available: s.NumberAvailable,
		})
	}
	return out, nil
}

// GetAccount combines the user's balance with the depot positions.
func (c *Client) GetAccount(ctx context.Context) (broker.Account, error) {
	var user userDTO
	if err := c.get(ctx, pathUser, &user); err != nil {
		return broker.Account{}, gatewayError("get user", "", err)
	}

	var acct accountDTO
	if err := c.get(ctx, pathAccount, &acct); err != nil {
		return broker.Account{}, gatewayError("get account", "", err)
	}

	out := broker.Account{
		Balance:   user.Balance,
		Positions: make(map[string]int, len(acct.Positions)),
	}
	for _, p := range acct.Positions {
		// skip malformed rows rather than failing the refresh
		if p.Stock == nil || p.Number == nil {
			continue
		}
		out.Positions[p.Stock.Name] = *p.Number
	}
	return out, nil
}

// SubmitOrder posts a signed order. It is sent once; a failure is reported
// and left to the next decision tick.
func (c *Client) SubmitOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderResult, error) {
	if err := broker.ValidateOrder(req); err != nil {
		return broker.OrderResult{}, err
	}

	payload := orderDTO{Stock: stockRef{Name: req.Instrument}, Number: req.Qty}
	if err := c.post(ctx, pathPositions, payload, nil); err != nil {
		return broker.OrderResult{}, gatewayError("submit", req.Instrument, err)
	}

	c.logger.Debug("order accepted",
		"instrument", req.Instrument,
		"qty", req.Qty,
	)
	return broker.OrderResult{
		Instrument: req.Instrument,
		Qty:        req.Qty,
		Accepted:   true,
	}, nil
}

func (c *Client) String() string {
	return fmt.Sprintf("httpapi(%s)", c.baseURL)
}
