package endpoints

import (
	"encoding/json"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/oguzhansen/comiclate/internal/api"
	"github.com/oguzhansen/comiclate/internal/svcctx"
)

// ListSettingsEndpoint handles GET /api/settings.
type ListSettingsEndpoint struct{}

var _ api.Endpoint = (*ListSettingsEndpoint)(nil)

func (e *ListSettingsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/settings", e.handler
}

func (e *ListSettingsEndpoint) RequiresInit() bool { return false }

func (e *ListSettingsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	cfgMgr := svcctx.ConfigManagerFrom(r.Context())
	if cfgMgr == nil {
		writeError(w, http.StatusServiceUnavailable, "config manager not initialized")
		return
	}
	writeJSON(w, http.StatusOK, cfgMgr.AllSettings())
}

func (e *ListSettingsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "settings",
		Short: "Show effective server settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp map[string]any
			if err := client.Get(cmd.Context(), "/api/settings", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// UpdateSettingRequest is the body for a settings update.
type UpdateSettingRequest struct {
	Value any `json:"value"`
}

// UpdateSettingEndpoint handles PUT /api/settings/{key}.
type UpdateSettingEndpoint struct{}

var _ api.Endpoint = (*UpdateSettingEndpoint)(nil)

func (e *UpdateSettingEndpoint) Route() (string, string, http.HandlerFunc) {
	return "PUT", "/api/settings/{key}", e.handler
}

func (e *UpdateSettingEndpoint) RequiresInit() bool { return false }

func (e *UpdateSettingEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	cfgMgr := svcctx.ConfigManagerFrom(r.Context())
	if cfgMgr == nil {
		writeError(w, http.StatusServiceUnavailable, "config manager not initialized")
		return
	}

	var req UpdateSettingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	key := r.PathValue("key")
	if err := cfgMgr.Set(key, req.Value); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if logger := svcctx.LoggerFrom(r.Context()); logger != nil {
		logger.Info("setting updated", "key", key)
	}
	writeJSON(w, http.StatusOK, map[string]any{"key": key, "value": req.Value})
}

func (e *UpdateSettingEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Update a server setting at runtime",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp map[string]any
			body := UpdateSettingRequest{Value: args[1]}
			if err := client.Put(cmd.Context(), "/api/settings/"+args[0], body, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
