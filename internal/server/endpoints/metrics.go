package endpoints

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/doodlebook/internal/api"
	"github.com/jackzampolin/doodlebook/internal/metrics"
	"github.com/jackzampolin/doodlebook/internal/svcctx"
)

// ListMetricsResponse is the response for listing generation metrics.
type ListMetricsResponse struct {
	Metrics []metrics.Metric `json:"metrics"`
}

// metricsFilter reads book, stage and provider query parameters.
func metricsFilter(q url.Values) metrics.Filter {
	return metrics.Filter{
		BookID:   q.Get("book"),
		Stage:    q.Get("stage"),
		Provider: q.Get("provider"),
	}
}

func metricsQuery(book, stage, provider string) string {
	q := url.Values{}
	if book != "" {
		q.Set("book", book)
	}
	if stage != "" {
		q.Set("stage", stage)
	}
	if provider != "" {
		q.Set("provider", provider)
	}
	return q.Encode()
}

func addMetricsFlags(cmd *cobra.Command, book, stage, provider *string) {
	cmd.Flags().StringVar(book, "book", "", "Only calls for this book")
	cmd.Flags().StringVar(stage, "stage", "", "Only this stage (analyze, animate, illustrate)")
	cmd.Flags().StringVar(provider, "provider", "", "Only this provider")
}

// ListMetricsEndpoint handles GET /api/metrics.
type ListMetricsEndpoint struct{}

func (e *ListMetricsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/metrics", e.handler
}

func (e *ListMetricsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary	List recent generation calls
//	@Tags		metrics
//	@Produce	json
//	@Param		book		query		string	false	"Book ID"
//	@Param		stage		query		string	false	"analyze, animate or illustrate"
//	@Param		provider	query		string	false	"Provider name"
//	@Param		limit		query		int		false	"Maximum number of calls (default 100)"
//	@Success	200			{object}	ListMetricsResponse
//	@Failure	400			{object}	ErrorResponse
//	@Router		/api/metrics [get]
func (e *ListMetricsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	list := svcctx.MetricsFrom(r.Context()).List(metricsFilter(r.URL.Query()), limit)
	if list == nil {
		list = []metrics.Metric{}
	}
	writeJSON(w, http.StatusOK, ListMetricsResponse{Metrics: list})
}

func (e *ListMetricsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var book, stage, provider string
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent generation calls, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := metricsQuery(book, stage, provider)
			path := "/api/metrics?limit=" + strconv.Itoa(limit)
			if q != "" {
				path += "&" + q
			}
			client := api.NewClient(getServerURL())
			var resp ListMetricsResponse
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	addMetricsFlags(cmd, &book, &stage, &provider)
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum number of calls")
	return cmd
}

// MetricsSummaryEndpoint handles GET /api/metrics/summary.
type MetricsSummaryEndpoint struct{}

func (e *MetricsSummaryEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/metrics/summary", e.handler
}

func (e *MetricsSummaryEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary	Summarize generation calls
//	@Tags		metrics
//	@Produce	json
//	@Param		book		query		string	false	"Book ID"
//	@Param		stage		query		string	false	"analyze, animate or illustrate"
//	@Param		provider	query		string	false	"Provider name"
//	@Success	200			{object}	metrics.Summary
//	@Router		/api/metrics/summary [get]
func (e *MetricsSummaryEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	summary := svcctx.MetricsFrom(r.Context()).GetSummary(metricsFilter(r.URL.Query()))
	writeJSON(w, http.StatusOK, summary)
}

func (e *MetricsSummaryEndpoint) Command(getServerURL func() string) *cobra.Command {
	var book, stage, provider string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Summarize generation calls (counts, failures, latency)",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/metrics/summary"
			if q := metricsQuery(book, stage, provider); q != "" {
				path += "?" + q
			}
			client := api.NewClient(getServerURL())
			var resp metrics.Summary
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	addMetricsFlags(cmd, &book, &stage, &provider)
	return cmd
}
