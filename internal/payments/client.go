package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client fala com o provider externo de sessão de checkout.
// O provider é opaco: o core só precisa da URL de pagamento.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(base string) *Client {
	return &Client{
		BaseURL: base,
		HTTP:    &http.Client{Timeout: 5 * time.Second},
	}
}

type sessionRequest struct {
	BidID string `json:"bidId"`
}

type sessionResponse struct {
	SessionURL string `json:"sessionUrl"`
}

// CreateSession cria uma sessão de pagamento pro lance vencedor e retorna a URL
func (c *Client) CreateSession(ctx context.Context, bidID string) (string, error) {
	body, _ := json.Marshal(sessionRequest{BidID: bidID})
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/checkout/session", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	res, err := c.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return "", fmt.Errorf("checkout session http %d", res.StatusCode)
	}

	var out sessionResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.SessionURL == "" {
		return "", fmt.Errorf("no payment URL returned from checkout session")
	}
	return out.SessionURL, nil
}
