package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

type StatusOutput struct {
	Body struct {
		Status        string    `json:"status"`
		Observers     int       `json:"observers"`
		UptimeSeconds int64     `json:"uptime_seconds"`
		Timestamp     time.Time `json:"timestamp"`
	}
}

func RegisterStatusRoutes(api huma.API, observers ObserverCounter) {
	start := time.Now()
	huma.Register(api, huma.Operation{
		OperationID: "get-status",
		Method:      http.MethodGet,
		Path:        "/status",
		Summary:     "Service status and live observer count",
		Tags:        []string{"Status"},
	}, func(_ context.Context, _ *struct{}) (*StatusOutput, error) {
		out := &StatusOutput{}
		out.Body.Status = "ok"
		out.Body.Observers = observers.Observers()
		out.Body.UptimeSeconds = int64(time.Since(start).Seconds())
		out.Body.Timestamp = time.Now().UTC()
		return out, nil
	})
}
