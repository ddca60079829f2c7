package endpoints

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/oguzhansen/comiclate/internal/api"
	"github.com/oguzhansen/comiclate/internal/callog"
	"github.com/oguzhansen/comiclate/internal/providers"
	"github.com/oguzhansen/comiclate/internal/session"
	"github.com/oguzhansen/comiclate/internal/svcctx"
)

// TranslateRequest is the body for a translation request.
type TranslateRequest struct {
	// Language is the target language; defaults to the configured
	// default when empty.
	Language string `json:"language"`
	// Provider selects a registered translator; defaults to the
	// configured default when empty.
	Provider string `json:"provider,omitempty"`
}

// TranslateEndpoint handles POST /api/sessions/{session_id}/translate.
type TranslateEndpoint struct{}

var _ api.Endpoint = (*TranslateEndpoint)(nil)

func (e *TranslateEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sessions/{session_id}/translate", e.handler
}

func (e *TranslateEndpoint) RequiresInit() bool { return true }

func (e *TranslateEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}

	var req TranslateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cfgMgr := svcctx.ConfigManagerFrom(r.Context())
	if req.Language == "" && cfgMgr != nil {
		req.Language = cfgMgr.Get().Defaults.Language
	}
	lang, err := providers.ParseLanguage(req.Language)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	providerName := req.Provider
	if providerName == "" && cfgMgr != nil {
		providerName = cfgMgr.Get().Defaults.Provider
	}
	registry := svcctx.RegistryFrom(r.Context())
	if registry == nil {
		writeError(w, http.StatusServiceUnavailable, "provider registry not initialized")
		return
	}
	translator, err := registry.Get(providerName)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	logger := svcctx.LoggerFrom(r.Context())
	snap := s.Snapshot()

	result, err := s.Translate(r.Context(), translator, lang)
	if errors.Is(err, session.ErrBusy) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if result == nil && err == nil {
		writeError(w, http.StatusUnprocessableEntity, "no image displayed")
		return
	}

	if log := svcctx.CallLogFrom(r.Context()); log != nil {
		log.Record(result, callog.RecordOptions{
			SessionID: s.ID,
			PageIndex: snap.PageIndex,
			Language:  string(lang),
		})
	}

	if err != nil {
		if logger != nil {
			logger.Error("translation failed", "session_id", s.ID, "provider", translator.Name(), "error", err)
		}
		writeJSON(w, http.StatusBadGateway, sessionResponse(s.Snapshot()))
		return
	}

	if logger != nil {
		logger.Info("page translated",
			"session_id", s.ID,
			"provider", translator.Name(),
			"bubbles", len(result.Bubbles),
			"latency", result.ExecutionTime)
	}
	writeJSON(w, http.StatusOK, sessionResponse(s.Snapshot()))
}

func (e *TranslateEndpoint) Command(getServerURL func() string) *cobra.Command {
	var language, provider string
	cmd := &cobra.Command{
		Use:   "translate <session-id>",
		Short: "Translate the displayed page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp SessionResponse
			path := "/api/sessions/" + args[0] + "/translate"
			body := TranslateRequest{Language: language, Provider: provider}
			if err := client.Post(cmd.Context(), path, body, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVarP(&language, "language", "l", "", "Target language")
	cmd.Flags().StringVarP(&provider, "provider", "p", "", "Translation provider")
	return cmd
}
