package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"videobridge/internal/events"
	"videobridge/internal/job"
)

// registerSSERoutes registers the native Huma SSE endpoint for job events.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time stream of job progress, advisories, and completion events",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"job-progress":  events.JobProgressEvent{},
		"job-advisory":  events.JobAdvisoryEvent{},
		"job-complete":  events.JobCompleteEvent{},
		"job-cancelled": events.JobCancelledEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 10)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.JobProgressEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.JobAdvisoryEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.JobCompleteEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.JobCancelledEvent](s.eventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		// Initial snapshot so a client connecting mid-run sees current state.
		for _, status := range s.service.StatusAll() {
			if status.State != job.StateRunning {
				continue
			}
			if err := send.Data(events.JobProgressEvent{
				Kind:      status.Kind,
				Progress:  status.Progress,
				Phase:     status.Phase,
				Timestamp: time.Now().Format(time.RFC3339),
			}); err != nil {
				return
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
