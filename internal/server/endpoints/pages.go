package endpoints

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/oguzhansen/comiclate/internal/api"
	"github.com/oguzhansen/comiclate/internal/session"
	"github.com/oguzhansen/comiclate/internal/svcctx"
)

// GoToPageEndpoint handles POST /api/sessions/{session_id}/pages/{index}.
type GoToPageEndpoint struct{}

var _ api.Endpoint = (*GoToPageEndpoint)(nil)

func (e *GoToPageEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sessions/{session_id}/pages/{index}", e.handler
}

func (e *GoToPageEndpoint) RequiresInit() bool { return true }

func (e *GoToPageEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}

	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid page index")
		return
	}

	if err := s.GoToPage(index); err != nil {
		if errors.Is(err, session.ErrBusy) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		if logger := svcctx.LoggerFrom(r.Context()); logger != nil {
			logger.Error("page navigation failed", "session_id", s.ID, "index", index, "error", err)
		}
		writeJSON(w, http.StatusUnprocessableEntity, sessionResponse(s.Snapshot()))
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(s.Snapshot()))
}

func (e *GoToPageEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "page <session-id> <index>",
		Short: "Navigate to a page of the loaded archive",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp SessionResponse
			path := "/api/sessions/" + args[0] + "/pages/" + args[1]
			if err := client.Post(cmd.Context(), path, nil, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// ImageResponse carries the displayed page as a data URI.
type ImageResponse struct {
	DataURI string `json:"data_uri"`
	MIME    string `json:"mime"`
}

// PageImageEndpoint handles GET /api/sessions/{session_id}/image.
type PageImageEndpoint struct{}

var _ api.Endpoint = (*PageImageEndpoint)(nil)

func (e *PageImageEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/sessions/{session_id}/image", e.handler
}

func (e *PageImageEndpoint) RequiresInit() bool { return true }

func (e *PageImageEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}

	img, ok := s.Image()
	if !ok {
		writeError(w, http.StatusNotFound, "no image displayed")
		return
	}
	writeJSON(w, http.StatusOK, ImageResponse{DataURI: img.DataURI(), MIME: img.MIME})
}

func (e *PageImageEndpoint) Command(_ func() string) *cobra.Command {
	// Data URIs are not useful on a terminal.
	return nil
}
