package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/oguzhansen/comiclate/internal/api"
	"github.com/oguzhansen/comiclate/internal/providers"
)

// LanguagesResponse lists the supported translation targets.
type LanguagesResponse struct {
	Languages []providers.Language `json:"languages"`
}

// LanguagesEndpoint handles GET /api/languages.
type LanguagesEndpoint struct{}

var _ api.Endpoint = (*LanguagesEndpoint)(nil)

func (e *LanguagesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/languages", e.handler
}

func (e *LanguagesEndpoint) RequiresInit() bool { return false }

func (e *LanguagesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, LanguagesResponse{Languages: providers.Languages()})
}

func (e *LanguagesEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List supported target languages",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp LanguagesResponse
			if err := client.Get(cmd.Context(), "/api/languages", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
