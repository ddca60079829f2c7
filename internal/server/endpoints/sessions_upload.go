package endpoints

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/oguzhansen/comiclate/internal/api"
	"github.com/oguzhansen/comiclate/internal/session"
	"github.com/oguzhansen/comiclate/internal/svcctx"
)

// UploadFileEndpoint handles POST /api/sessions/{session_id}/file with
// a multipart upload of a single image or archive.
type UploadFileEndpoint struct{}

var _ api.Endpoint = (*UploadFileEndpoint)(nil)

func (e *UploadFileEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sessions/{session_id}/file", e.handler
}

func (e *UploadFileEndpoint) RequiresInit() bool { return true }

func (e *UploadFileEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}

	// Archives up to 1GB are the stated ceiling; buffer the smaller
	// part in memory and spill the rest to disk.
	const maxMemory = 64 << 20 // 64MB
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	fh := files[0]

	src, err := fh.Open()
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to open uploaded file: %v", err))
		return
	}
	data, err := io.ReadAll(src)
	src.Close()
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to read uploaded file: %v", err))
		return
	}

	logger := svcctx.LoggerFrom(r.Context())
	if err := s.SelectFile(fh.Filename, data); err != nil {
		if logger != nil {
			logger.Error("file selection failed", "session_id", s.ID, "file", fh.Filename, "error", err)
		}
		if errors.Is(err, session.ErrBusy) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		// The session keeps the user-facing message in its error slot;
		// return the state so clients can render it.
		writeJSON(w, http.StatusUnprocessableEntity, sessionResponse(s.Snapshot()))
		return
	}

	if logger != nil {
		logger.Info("file loaded", "session_id", s.ID, "file", fh.Filename, "pages", len(s.Snapshot().Pages))
	}
	writeJSON(w, http.StatusOK, sessionResponse(s.Snapshot()))
}

func (e *UploadFileEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <session-id> <file>",
		Short: "Upload a comic page or archive into a session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp SessionResponse
			path := "/api/sessions/" + args[0] + "/file"
			if err := client.UploadFile(cmd.Context(), path, "file", args[1], &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
