// Package health combines the health checks of a service's dependencies into one report.
package health

import (
	"context"
	"fmt"
	"net/http"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Check struct {
	Name  string
	Check func(context.Context, bool) (int, string, error)
}

type dependency struct {
	Resource     string              `json:"resource"`
	Status       int                 `json:"status"`
	Error        string              `json:"error,omitempty"`
	Message      string              `json:"message,omitempty"`
	Dependencies jsoniter.RawMessage `json:"dependencies,omitempty"`
}

type report struct {
	Status       int          `json:"status"`
	Dependencies []dependency `json:"dependencies"`
}

// CheckAll runs every check and reports 503 if any of them fails. A check whose
// message is itself a JSON object is nested under its resource.
func CheckAll(ctx context.Context, checkLiveness bool, checks []Check) (int, string, error) {
	r := report{
		Status:       http.StatusOK,
		Dependencies: make([]dependency, 0, len(checks)),
	}

	for _, check := range checks {
		status, message, err := check.Check(ctx, checkLiveness)
		if err != nil || status != http.StatusOK {
			r.Status = http.StatusServiceUnavailable
		}

		d := dependency{
			Resource: check.Name,
			Status:   status,
		}

		if err != nil {
			d.Error = err.Error()
		}

		if len(message) > 0 && message[0] == '{' && json.Valid([]byte(message)) {
			d.Dependencies = jsoniter.RawMessage(message)
		} else {
			d.Message = message
		}

		r.Dependencies = append(r.Dependencies, d)
	}

	b, err := json.Marshal(r)
	if err != nil {
		return http.StatusInternalServerError, "", fmt.Errorf("could not encode health report - [%+v]", err)
	}

	return r.Status, string(b), nil
}
