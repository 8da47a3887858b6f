package httpclient

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultTimeout bounds every outbound provider call.
const DefaultTimeout = 30 * time.Second

// New returns a JSON client for a provider API. Requests are attempted
// once: payment calls are not safe to replay blindly.
func New(baseURL, bearerToken string) *resty.Client {
	return resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(DefaultTimeout).
		SetRetryCount(0).
		SetAuthToken(bearerToken).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
}

// ErrorMessage pulls a human readable message out of a failed response,
// falling back to the raw body.
func ErrorMessage(resp *resty.Response) string {
	body := resp.Body()

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Errors  []struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Message != "":
			return payload.Message
		case payload.Error != "":
			return payload.Error
		case len(payload.Errors) > 0:
			msgs := make([]string, 0, len(payload.Errors))
			for _, e := range payload.Errors {
				if e.Message != "" {
					msgs = append(msgs, e.Message)
				} else if e.Error != "" {
					msgs = append(msgs, e.Error)
				}
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
	}

	if s := strings.TrimSpace(string(body)); s != "" {
		return s
	}
	return resp.Status()
}
