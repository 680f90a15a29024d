package livemenu

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/campus-eats/canteen-platform/pkg/events"
	"github.com/google/uuid"
)

// HTTPFetcher bootstraps from the platform's full-menu endpoint.
type HTTPFetcher struct {
	BaseURL string

	// HTTPClient defaults to a client with a 10 second timeout. The caller's
	// context still wins when it is shorter.
	HTTPClient *http.Client
}

func NewHTTPFetcher(baseURL string) *HTTPFetcher {
	return &HTTPFetcher{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type menuResponse struct {
	Success bool                  `json:"success"`
	Message string                `json:"message"`
	Data    []events.MenuItemView `json:"data"`
}

func (f *HTTPFetcher) FetchFullMenu(ctx context.Context, canteenID uuid.UUID) ([]events.MenuItemView, error) {
	url := fmt.Sprintf("%s/api/v1/canteens/%s/menu", f.BaseURL, canteenID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("bootstrap request error: %v", err)
	}

	client := f.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bootstrap fetch error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bootstrap fetch returned status %d", resp.StatusCode)
	}

	var body menuResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("bootstrap response decode error: %v", err)
	}

	if !body.Success {
		return nil, fmt.Errorf("bootstrap fetch rejected: %s", body.Message)
	}

	return body.Data, nil
}
