package monitoring

import (
	"fmt"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
)

// SentryConfig holds Sentry configuration options
type SentryConfig struct {
	DSN              string
	Environment      string
	Release          string
	Debug            bool
	SampleRate       float64
	TracesSampleRate float64
	ServiceName      string
}

// InitSentry initializes Sentry with the provided configuration
func InitSentry(config *SentryConfig) error {
	dsn := config.DSN
	if dsn == "" {
		dsn = os.Getenv("SENTRY_DSN")
	}

	// Skip if no DSN provided
	if dsn == "" {
		fmt.Println("Sentry DSN not provided, skipping initialization")
		return nil
	}

	environment := config.Environment
	if environment == "" {
		environment = os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}
	}

	release := config.Release
	if release == "" {
		release = os.Getenv("RELEASE_VERSION")
		if release == "" {
			release = "unknown"
		}
	}

	sampleRate := config.SampleRate
	if sampleRate == 0 {
		if environment == "production" {
			sampleRate = 1.0
		} else {
			sampleRate = 0.25
		}
	}

	tracesSampleRate := config.TracesSampleRate
	if tracesSampleRate == 0 {
		if environment == "production" {
			tracesSampleRate = 0.1
		} else {
			tracesSampleRate = 0.05
		}
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		Release:          release,
		Debug:            config.Debug,
		SampleRate:       sampleRate,
		TracesSampleRate: tracesSampleRate,
		AttachStacktrace: true,
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			if config.ServiceName != "" {
				event.Tags["service"] = config.ServiceName
			}
			return event
		},
	})

	if err != nil {
		return fmt.Errorf("failed to initialize Sentry: %w", err)
	}

	return nil
}

// CaptureError reports an error to Sentry with extra context
func CaptureError(err error, tags map[string]string) {
	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CaptureException(err)
	})
}

// Flush waits for queued events to be delivered
func Flush(timeout time.Duration) {
	sentry.Flush(timeout)
}
