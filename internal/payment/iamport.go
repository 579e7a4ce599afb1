package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const StatusPaid = "paid"

// Payment is the gateway's record of a charge.
type Payment struct {
	ImpUID       string `json:"imp_uid"`
	MerchantUID  string `json:"merchant_uid"`
	Amount       int    `json:"amount"`
	Status       string `json:"status"`
	PayMethod    string `json:"pay_method,omitempty"`
	Name         string `json:"name,omitempty"`
	BuyerName    string `json:"buyer_name,omitempty"`
	BuyerEmail   string `json:"buyer_email,omitempty"`
	BuyerTel     string `json:"buyer_tel,omitempty"`
	PaidAt       int64  `json:"paid_at,omitempty"`
	FailReason   string `json:"fail_reason,omitempty"`
	CancelAmount int    `json:"cancel_amount,omitempty"`
}

// Gateway is the subset of the Iamport API checkout depends on.
type Gateway interface {
	GetPayment(ctx context.Context, impUID string) (*Payment, error)
	CancelPayment(ctx context.Context, impUID, reason string, amount int) (*Payment, error)
}

type envelope struct {
	Code     int             `json:"code"`
	Message  string          `json:"message"`
	Response json.RawMessage `json:"response"`
}

type paymentResponse struct {
	ImpUID       string  `json:"imp_uid"`
	MerchantUID  string  `json:"merchant_uid"`
	Amount       float64 `json:"amount"`
	Status       string  `json:"status"`
	PayMethod    string  `json:"pay_method"`
	Name         string  `json:"name"`
	BuyerName    string  `json:"buyer_name"`
	BuyerEmail   string  `json:"buyer_email"`
	BuyerTel     string  `json:"buyer_tel"`
	PaidAt       int64   `json:"paid_at"`
	FailReason   string  `json:"fail_reason"`
	CancelAmount float64 `json:"cancel_amount"`
}

func (r paymentResponse) toPayment() *Payment {
	return &Payment{
		ImpUID:       r.ImpUID,
		MerchantUID:  r.MerchantUID,
		Amount:       int(math.Round(r.Amount)),
		Status:       r.Status,
		PayMethod:    r.PayMethod,
		Name:         r.Name,
		BuyerName:    r.BuyerName,
		BuyerEmail:   r.BuyerEmail,
		BuyerTel:     r.BuyerTel,
		PaidAt:       r.PaidAt,
		FailReason:   r.FailReason,
		CancelAmount: int(math.Round(r.CancelAmount)),
	}
}

type ClientConfig struct {
	BaseURL   string
	APIKey    string
	APISecret string
	Timeout   time.Duration
}

// IamportClient talks to the Iamport REST API. Access tokens are cached
// until shortly before they expire.
type IamportClient struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
	logger     *zap.Logger
	now        func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

const tokenSkew = 30 * time.Second

func NewIamportClient(cfg ClientConfig, logger *zap.Logger) *IamportClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &IamportClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		apiSecret:  cfg.APISecret,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("iamport"),
		now:        time.Now,
	}
}

func (c *IamportClient) GetPayment(ctx context.Context, impUID string) (*Payment, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}
	var resp paymentResponse
	if err := c.do(ctx, http.MethodGet, "/payments/"+url.PathEscape(impUID), token, nil, &resp); err != nil {
		return nil, fmt.Errorf("get payment %s: %w", impUID, err)
	}
	return resp.toPayment(), nil
}

func (c *IamportClient) CancelPayment(ctx context.Context, impUID, reason string, amount int) (*Payment, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}
	body := map[string]any{"imp_uid": impUID, "reason": reason}
	if amount > 0 {
		body["amount"] = amount
	}
	var resp paymentResponse
	if err := c.do(ctx, http.MethodPost, "/payments/cancel", token, body, &resp); err != nil {
		return nil, fmt.Errorf("cancel payment %s: %w", impUID, err)
	}
	c.logger.Info("payment cancelled", zap.String("imp_uid", impUID), zap.Int("amount", amount), zap.String("reason", reason))
	return resp.toPayment(), nil
}

func (c *IamportClient) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.expiresAt.Add(-tokenSkew)) {
		return c.token, nil
	}

	var resp struct {
		AccessToken string `json:"access_token"`
		ExpiredAt   int64  `json:"expired_at"`
	}
	if err := c.do(ctx, http.MethodPost, "/users/getToken", "", map[string]string{
		"imp_key":    c.apiKey,
		"imp_secret": c.apiSecret,
	}, &resp); err != nil {
		return "", fmt.Errorf("get token: %w", err)
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("get token: %w: empty access token", ErrGatewayFailure)
	}
	c.token = resp.AccessToken
	c.expiresAt = time.Unix(resp.ExpiredAt, 0)
	return c.token, nil
}

func (c *IamportClient) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// do sends a request and decodes the envelope's response field into out.
func (c *IamportClient) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrTransient, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", ErrTransient, resp.StatusCode)
	case resp.StatusCode == http.StatusUnauthorized && token != "":
		// The cached token was revoked; the next attempt fetches a new one.
		c.invalidateToken()
		return fmt.Errorf("%w: token rejected", ErrTransient)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= 400 {
			return fmt.Errorf("%w: status %d", ErrGatewayFailure, resp.StatusCode)
		}
		return fmt.Errorf("%w: decode response: %v", ErrGatewayFailure, err)
	}
	if env.Code != 0 {
		return fmt.Errorf("%w: %s (code %d)", ErrGatewayFailure, env.Message, env.Code)
	}
	if out == nil || len(env.Response) == 0 || string(env.Response) == "null" {
		if out != nil {
			return fmt.Errorf("%w: empty response", ErrGatewayFailure)
		}
		return nil
	}
	if err := json.Unmarshal(env.Response, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrGatewayFailure, err)
	}
	return nil
}

var _ Gateway = (*IamportClient)(nil)
