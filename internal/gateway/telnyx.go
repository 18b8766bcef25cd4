package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	appErrors "github.com/beaconsms/broadcast-service/internal/errors"
)

// TelnyxClient sends messages through the Telnyx v2 messaging API.
type TelnyxClient struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

func NewTelnyxClient(apiKey, baseURL string) *TelnyxClient {
	return &TelnyxClient{
		APIKey:  apiKey,
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type telnyxSendBody struct {
	From       string `json:"from"`
	To         string `json:"to"`
	Text       string `json:"text"`
	WebhookURL string `json:"webhook_url,omitempty"`
}

type telnyxSendResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

type telnyxErrorResponse struct {
	Errors []struct {
		Code   string `json:"code"`
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

func (c *TelnyxClient) Send(ctx context.Context, req SendRequest) (SendResponse, error) {
	payload, err := json.Marshal(telnyxSendBody{
		From:       req.From,
		To:         req.To,
		Text:       req.Text,
		WebhookURL: req.WebhookURL,
	})
	if err != nil {
		return SendResponse{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v2/messages", bytes.NewReader(payload))
	if err != nil {
		return SendResponse{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return SendResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var vendorErr telnyxErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&vendorErr); err == nil && len(vendorErr.Errors) > 0 {
			e := vendorErr.Errors[0]
			detail := e.Detail
			if detail == "" {
				detail = e.Title
			}
			return SendResponse{}, appErrors.NewGateway(e.Code, detail)
		}
		return SendResponse{}, appErrors.NewGateway(fmt.Sprintf("http_%d", resp.StatusCode), "vendor rejected send")
	}

	var out telnyxSendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return SendResponse{}, fmt.Errorf("failed to decode vendor response: %w", err)
	}
	if out.Data.ID == "" {
		return SendResponse{}, appErrors.NewGateway("missing_id", "vendor response had no message id")
	}

	return SendResponse{MessageID: out.Data.ID}, nil
}
