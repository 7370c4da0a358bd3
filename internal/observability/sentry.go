package observability

import (
	"time"

	"github.com/getsentry/sentry-go"
)

// InitSentry is a no-op without a DSN, which keeps local runs and tests quiet.
func InitSentry(dsn, environment string) error {
	if dsn == "" {
		return nil
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		AttachStacktrace: true,
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			// access tokens travel in the query string
			if event.Request != nil {
				event.Request.QueryString = ""
				event.Request.Cookies = ""
			}
			return event
		},
	})
}

func FlushSentry() {
	sentry.Flush(2 * time.Second)
}
