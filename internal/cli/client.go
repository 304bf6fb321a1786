package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// ProcessorResponse — processor из API.
type ProcessorResponse struct {
	Name               string `json:"name"`
	Store              string `json:"store"`
	Status             string `json:"status"`
	TargetEndpoint     string `json:"target_endpoint,omitempty"`
	CronExpression     string `json:"cron_expression,omitempty"`
	IntervalMS         int64  `json:"interval_ms"`
	RetryIntervalMS    int64  `json:"retry_interval_ms"`
	MaxDeliverAttempts int    `json:"max_deliver_attempts"`
	Depth              int    `json:"depth"`
}

// StoreResponse — store из API.
type StoreResponse struct {
	Name  string `json:"name"`
	Depth int    `json:"depth"`
}

// MessageResponse — принятое сообщение из API.
type MessageResponse struct {
	ID          string `json:"id"`
	Store       string `json:"store"`
	Endpoint    string `json:"endpoint,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	ReceivedAt  string `json:"received_at"`
}

// --- Request types ---

// EnqueueMessageRequest — постановка сообщения в store.
type EnqueueMessageRequest struct {
	Endpoint    string            `json:"endpoint,omitempty"`
	ContentType string            `json:"content_type,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	Body        json.RawMessage   `json:"body,omitempty"`
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для Courier API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Processors ---

// ListProcessors возвращает все процессоры.
func (c *Client) ListProcessors() ([]ProcessorResponse, error) {
	var processors []ProcessorResponse
	err := c.list("/api/v1/processors", &processors)
	return processors, err
}

// GetProcessor возвращает процессор по имени.
func (c *Client) GetProcessor(name string) (*ProcessorResponse, error) {
	var p ProcessorResponse
	err := c.get("/api/v1/processors/"+name, &p)
	return &p, err
}

// ActivateProcessor возобновляет доставку сообщений процессором.
func (c *Client) ActivateProcessor(name string) (*ProcessorResponse, error) {
	var p ProcessorResponse
	err := c.post("/api/v1/processors/"+name+"/activate", nil, &p)
	return &p, err
}

// DeactivateProcessor приостанавливает доставку сообщений процессором.
func (c *Client) DeactivateProcessor(name string) (*ProcessorResponse, error) {
	var p ProcessorResponse
	err := c.post("/api/v1/processors/"+name+"/deactivate", nil, &p)
	return &p, err
}

// --- Stores ---

// ListStores возвращает все store'ы.
func (c *Client) ListStores() ([]StoreResponse, error) {
	var stores []StoreResponse
	err := c.list("/api/v1/stores", &stores)
	return stores, err
}

// GetStore возвращает store по имени.
func (c *Client) GetStore(name string) (*StoreResponse, error) {
	var s StoreResponse
	err := c.get("/api/v1/stores/"+name, &s)
	return &s, err
}

// SendMessage кладёт сообщение в store.
func (c *Client) SendMessage(storeName string, req EnqueueMessageRequest) (*MessageResponse, error) {
	var msg MessageResponse
	err := c.post("/api/v1/stores/"+storeName+"/messages", req, &msg)
	return &msg, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) list(path string, result any) error {
	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
