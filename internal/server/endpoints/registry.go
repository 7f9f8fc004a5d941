package endpoints

import (
	"github.com/jackzampolin/doodlebook/internal/api"
	"github.com/jackzampolin/doodlebook/internal/storybook"
)

// CLI groups for the api command.
var (
	BooksGroup    = api.Group{Path: "books", Short: "Book management commands"}
	ExportGroup   = api.Group{Path: "books export", Short: "Download a finished book (needs a session that read to the end)"}
	SessionsGroup = api.Group{Path: "sessions", Short: "Reading session commands"}
	MetricsGroup  = api.Group{Path: "metrics", Short: "Generation call metrics"}
)

// Register adds every endpoint to r. Routes keep registration order, so the
// static catch-all goes last.
func Register(r *api.Registry) {
	r.Register(HealthCommands()...)
	r.RegisterGroup(BooksGroup, BookCommands()...)
	r.RegisterGroup(ExportGroup, ExportCommands()...)
	r.RegisterGroup(SessionsGroup, SessionCommands()...)
	r.RegisterGroup(MetricsGroup, MetricsCommands()...)
	r.Register(
		&SwaggerEndpoint{},
		&SwaggerUIEndpoint{},
		&StaticEndpoint{},
	)
}

// HealthCommands returns the server health endpoints.
func HealthCommands() []api.Endpoint {
	return []api.Endpoint{
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{},
	}
}

// BookCommands returns endpoints for book operations.
func BookCommands() []api.Endpoint {
	return []api.Endpoint{
		&UploadBookEndpoint{},
		&ListBooksEndpoint{},
		&GetBookEndpoint{},
		&RefineBookEndpoint{},
		&AnalyzeBookEndpoint{},
		&AnimateBookEndpoint{},
		&BookMediaEndpoint{},
	}
}

// ExportCommands returns the book download endpoints.
func ExportCommands() []api.Endpoint {
	return []api.Endpoint{
		&ExportEndpoint{Format: FormatEPUB},
		&ExportEndpoint{Format: FormatPDF},
	}
}

// SessionCommands returns endpoints for reading sessions.
func SessionCommands() []api.Endpoint {
	return []api.Endpoint{
		&OpenSessionEndpoint{},
		&GetSessionEndpoint{},
		&TurnSessionEndpoint{Direction: storybook.IntentNext},
		&TurnSessionEndpoint{Direction: storybook.IntentPrev},
		&JumpSessionEndpoint{},
		&KeySessionEndpoint{},
		&SessionCuesEndpoint{},
		&ShareSessionEndpoint{},
		&CloseSessionEndpoint{},
	}
}

// MetricsCommands returns endpoints for generation metrics.
func MetricsCommands() []api.Endpoint {
	return []api.Endpoint{
		&ListMetricsEndpoint{},
		&MetricsSummaryEndpoint{},
	}
}
