package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/viper"

	"github.com/reportmill/internal/models"
)

type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (c *APIClient) doRequest(method, path string, body interface{}) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewBuffer(bodyBytes)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token := viper.GetString("token"); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("%s", apiErr.Error)
		}
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	return data, nil
}

func (c *APIClient) Login(username, password string) (string, error) {
	data, err := c.doRequest(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return "", err
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

func (c *APIClient) ListReports() ([]models.ScheduledReport, error) {
	data, err := c.doRequest(http.MethodGet, "/api/v1/reports", nil)
	if err != nil {
		return nil, err
	}

	var reports []models.ScheduledReport
	if err := json.Unmarshal(data, &reports); err != nil {
		return nil, err
	}
	return reports, nil
}

func (c *APIClient) RunReport(id string) (*models.ReportRunResult, error) {
	data, err := c.doRequest(http.MethodPost, "/api/v1/reports/"+id+"/run", nil)
	if err != nil {
		return nil, err
	}

	var run models.ReportRunResult
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

func (c *APIClient) SetReportEnabled(id string, enabled bool) error {
	_, err := c.doRequest(http.MethodPut, "/api/v1/reports/"+id, map[string]bool{
		"enabled": enabled,
	})
	return err
}

func (c *APIClient) DeleteReport(id string) error {
	_, err := c.doRequest(http.MethodDelete, "/api/v1/reports/"+id, nil)
	return err
}

func (c *APIClient) RunHistory(limit int) ([]models.ReportRunResult, error) {
	path := "/api/v1/history"
	if limit > 0 {
		path = fmt.Sprintf("%s?limit=%d", path, limit)
	}
	data, err := c.doRequest(http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var runs []models.ReportRunResult
	if err := json.Unmarshal(data, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

func (c *APIClient) StartScheduler() error {
	_, err := c.doRequest(http.MethodPost, "/api/v1/scheduler/start", nil)
	return err
}

func (c *APIClient) StopScheduler() error {
	_, err := c.doRequest(http.MethodPost, "/api/v1/scheduler/stop", nil)
	return err
}

func (c *APIClient) TestDelivery() (*models.DeliveryResult, error) {
	data, err := c.doRequest(http.MethodPost, "/api/v1/delivery/test", nil)
	if err != nil {
		return nil, err
	}

	var result models.DeliveryResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
