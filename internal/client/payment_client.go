package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"ticket-fulfillment/internal/model"
	apperrors "ticket-fulfillment/pkg/app_errors"
)

// PaymentClient 付款服務：扣款與退款
type PaymentClient interface {
	Charge(ctx context.Context, req model.ChargeRequest, idempotencyKey string) (*model.ChargeResult, error)
	Refund(ctx context.Context, paymentID string) (*model.RefundResult, error)
}

type PaymentClientImpl struct {
	client *Client
	signer *ServiceTokenSigner
}

func NewPaymentClient(client *Client, signer *ServiceTokenSigner) PaymentClient {
	return &PaymentClientImpl{client: client, signer: signer}
}

func (c *PaymentClientImpl) authHeader(idempotencyKey string) (http.Header, error) {
	h := idempotencyHeader(idempotencyKey)
	if c.signer == nil {
		return h, nil
	}
	token, err := c.signer.Token()
	if err != nil {
		return nil, err
	}
	h.Set("Authorization", "Bearer "+token)
	return h, nil
}

func (c *PaymentClientImpl) Charge(ctx context.Context, req model.ChargeRequest, idempotencyKey string) (*model.ChargeResult, error) {
	header, err := c.authHeader(idempotencyKey)
	if err != nil {
		return nil, err
	}

	var out model.ChargeResult
	err = c.client.Do(ctx, Call{
		Method: http.MethodPost,
		Path:   "/charge",
		Header: header,
		Body:   req,
		Out:    &out,
		Errors: map[int]error{
			http.StatusBadRequest:          apperrors.ErrPaymentDeclined,
			http.StatusPaymentRequired:     apperrors.ErrPaymentDeclined,
			http.StatusUnprocessableEntity: apperrors.ErrPaymentDeclined,
		},
	})
	if err != nil {
		return nil, err
	}

	switch strings.ToUpper(out.Status) {
	case "FAILED", "DECLINED":
		return &out, fmt.Errorf("%w: payment %s status %s", apperrors.ErrPaymentDeclined, out.PaymentID, out.Status)
	}
	if out.PaymentID == "" {
		return nil, fmt.Errorf("%w: charge response without paymentId", apperrors.ErrPaymentDeclined)
	}
	return &out, nil
}

func (c *PaymentClientImpl) Refund(ctx context.Context, paymentID string) (*model.RefundResult, error) {
	// 同一筆付款的退款共用同一個 key
	header, err := c.authHeader("refund:" + paymentID)
	if err != nil {
		return nil, err
	}

	var out model.RefundResult
	err = c.client.Do(ctx, Call{
		Method: http.MethodPost,
		Path:   "/refund",
		Header: header,
		Body:   model.RefundRequest{PaymentID: paymentID},
		Out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
