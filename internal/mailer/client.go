package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client fala com o transporte externo de e-mail via relay HTTP.
// Só interessa o sinal síncrono de sucesso/falha.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(base string) *Client {
	return &Client{
		BaseURL: base,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

type sendRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// Send entrega um e-mail pelo relay
func (c *Client) Send(ctx context.Context, to, subject, html string) error {
	body, _ := json.Marshal(sendRequest{To: to, Subject: subject, HTML: html})
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/mail/send", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return fmt.Errorf("mail send http %d", res.StatusCode)
	}
	return nil
}
