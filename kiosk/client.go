/*
Package kiosk is the check-in terminal's side of the HTTP contract.

PURPOSE:
  A kiosk is a small machine at the door with a camera. It reads an
  employee code, grabs one frame and posts both to the backend's
  /attendance/checkin. The backend decides on-time or late; the kiosk
  only displays the message.

COMPONENTS:
  Client      backend HTTP client (Ping, CheckIn)
  FrameSource where the snapshot comes from (file, capture command, none)
  Terminal    line-oriented loop used by cmd/kiosk

SEE ALSO:
  - api/handlers.go: the server side of these calls
  - cmd/kiosk: binary wiring
*/
package kiosk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds every backend call.
const DefaultTimeout = 15 * time.Second

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: %d %s", e.Status, e.Message)
}

// CheckInResult mirrors the backend's check-in response.
type CheckInResult struct {
	OK              bool    `json:"ok"`
	EmployeeID      string  `json:"employee_id"`
	EmployeeCode    string  `json:"emp_code"`
	FullName        string  `json:"full_name"`
	Status          string  `json:"status"`
	LatenessMinutes int     `json:"lateness_minutes"`
	Message         string  `json:"message"`
	LogID           string  `json:"log_id"`
	SnapshotPath    *string `json:"snapshot_path"`
}

func (r CheckInResult) Late() bool { return r.LatenessMinutes > 0 }

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// Ping calls GET /test.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/test", nil)
	if err != nil {
		return err
	}
	var out struct {
		OK  bool   `json:"ok"`
		Msg string `json:"msg"`
	}
	if err := c.do(req, &out); err != nil {
		return err
	}
	if !out.OK {
		return errors.New("backend answered without ok")
	}
	return nil
}

// CheckIn posts the code and, when frame is not empty, the frame as
// frame.jpg.
func (c *Client) CheckIn(ctx context.Context, code string, frame []byte) (CheckInResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("emp_code", code); err != nil {
		return CheckInResult{}, err
	}
	if len(frame) > 0 {
		fw, err := mw.CreateFormFile("frame", "frame.jpg")
		if err != nil {
			return CheckInResult{}, err
		}
		if _, err := fw.Write(frame); err != nil {
			return CheckInResult{}, err
		}
	}
	if err := mw.Close(); err != nil {
		return CheckInResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/attendance/checkin", &body)
	if err != nil {
		return CheckInResult{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out CheckInResult
	if err := c.do(req, &out); err != nil {
		return CheckInResult{}, err
	}
	if !out.OK {
		return out, &APIError{Status: http.StatusOK, Message: out.Message}
	}
	return out, nil
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("backend unreachable: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode/100 != 2 {
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
