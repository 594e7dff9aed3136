package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/nurlybekov/circulation-service/config"
	"github.com/nurlybekov/circulation-service/internal/model"
	"github.com/nurlybekov/circulation-service/pkg/circuitbreaker"
)

// HTTPGateway talks to the payment provider over HTTP. Transport
// failures trip the circuit breaker; business declines do not.
type HTTPGateway struct {
	log    *zap.Logger
	client *http.Client
	cfg    config.PaymentHTTPServer
	cb     circuitbreaker.CircuitBreaker
}

func NewHTTPGateway(cfg config.PaymentHTTPServer, log *zap.Logger) *HTTPGateway {
	return &HTTPGateway{
		log: log.Named("payment-gateway"),
		client: &http.Client{
			Timeout: time.Minute,
		},
		cfg: cfg,
		cb:  circuitbreaker.New(10, time.Second*30, 0.5, 3),
	}
}

var _ Gateway = (*HTTPGateway)(nil)

func (g *HTTPGateway) ProcessPayment(ctx context.Context, patronID string, amount decimal.Decimal, description string) (model.PaymentResult, error) {
	b := bytes.NewBuffer(nil)
	paymentReq := struct {
		PatronID    string          `json:"patronId"`
		Amount      decimal.Decimal `json:"amount"`
		Description string          `json:"description"`
	}{
		PatronID:    patronID,
		Amount:      amount,
		Description: description,
	}
	if err := json.NewEncoder(b).Encode(paymentReq); err != nil {
		return model.PaymentResult{}, err
	}

	var res model.PaymentResult
	err := g.cb.Call(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			fmt.Sprintf("http://%s/api/v1/payments", net.JoinHostPort(g.cfg.Host, g.cfg.Port)), b)
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := g.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusInternalServerError {
			return errors.Errorf("payment gateway status %d", resp.StatusCode)
		}
		return json.NewDecoder(resp.Body).Decode(&res)
	})
	if err != nil {
		return model.PaymentResult{}, err
	}
	return res, nil
}

func (g *HTTPGateway) RefundPayment(ctx context.Context, transactionID string, amount decimal.Decimal) (model.RefundResult, error) {
	b := bytes.NewBuffer(nil)
	refundReq := struct {
		Amount decimal.Decimal `json:"amount"`
	}{
		Amount: amount,
	}
	if err := json.NewEncoder(b).Encode(refundReq); err != nil {
		return model.RefundResult{}, err
	}

	var res model.RefundResult
	err := g.cb.Call(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			fmt.Sprintf("http://%s/api/v1/payments/%s/refund", net.JoinHostPort(g.cfg.Host, g.cfg.Port), transactionID), b)
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := g.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusInternalServerError {
			return errors.Errorf("payment gateway status %d", resp.StatusCode)
		}
		return json.NewDecoder(resp.Body).Decode(&res)
	})
	if err != nil {
		return model.RefundResult{}, err
	}
	return res, nil
}
