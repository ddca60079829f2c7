package endpoints

import (
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/oguzhansen/comiclate/internal/api"
	"github.com/oguzhansen/comiclate/internal/callog"
	"github.com/oguzhansen/comiclate/internal/svcctx"
)

// CallsResponse lists recorded translation calls.
type CallsResponse struct {
	Calls []callog.Call `json:"calls"`
	Count int           `json:"count"`
}

// ListCallsEndpoint handles GET /api/calls.
type ListCallsEndpoint struct{}

var _ api.Endpoint = (*ListCallsEndpoint)(nil)

func (e *ListCallsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/calls", e.handler
}

func (e *ListCallsEndpoint) RequiresInit() bool { return true }

func (e *ListCallsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	log := svcctx.CallLogFrom(r.Context())
	if log == nil {
		writeError(w, http.StatusServiceUnavailable, "call log not initialized")
		return
	}

	filter := callog.Filter{
		SessionID: r.URL.Query().Get("session_id"),
		Provider:  r.URL.Query().Get("provider"),
	}
	if v := r.URL.Query().Get("success"); v != "" {
		ok := v == "true"
		filter.Success = &ok
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil {
			filter.Limit = limit
		}
	}

	calls := log.List(filter)
	writeJSON(w, http.StatusOK, CallsResponse{Calls: calls, Count: len(calls)})
}

func (e *ListCallsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "calls",
		Short: "List recorded translation calls",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			path := "/api/calls"
			if limit > 0 {
				path += "?limit=" + strconv.Itoa(limit)
			}
			var resp CallsResponse
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of calls to return")
	return cmd
}

// GetCallEndpoint handles GET /api/calls/{id}.
type GetCallEndpoint struct{}

var _ api.Endpoint = (*GetCallEndpoint)(nil)

func (e *GetCallEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/calls/{id}", e.handler
}

func (e *GetCallEndpoint) RequiresInit() bool { return true }

func (e *GetCallEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	log := svcctx.CallLogFrom(r.Context())
	if log == nil {
		writeError(w, http.StatusServiceUnavailable, "call log not initialized")
		return
	}

	call := log.Get(r.PathValue("id"))
	if call == nil {
		writeError(w, http.StatusNotFound, "call not found")
		return
	}
	writeJSON(w, http.StatusOK, call)
}

func (e *GetCallEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "call <id>",
		Short: "Get one recorded translation call",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp callog.Call
			if err := client.Get(cmd.Context(), "/api/calls/"+args[0], &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
