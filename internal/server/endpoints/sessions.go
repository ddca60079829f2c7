package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/oguzhansen/comiclate/internal/api"
	"github.com/oguzhansen/comiclate/internal/overlay"
	"github.com/oguzhansen/comiclate/internal/providers"
	"github.com/oguzhansen/comiclate/internal/session"
	"github.com/oguzhansen/comiclate/internal/svcctx"
)

// BubbleView is a bubble with its overlay placement resolved. FontSize
// is a suggested starting size from the approximate measurer; the SPA
// refits with real rendering metrics.
type BubbleView struct {
	providers.Bubble
	Region        overlay.Region `json:"region"`
	LowConfidence bool           `json:"low_confidence"`
	FontSize      int            `json:"font_size"`
}

// SessionResponse is the serialized session state.
type SessionResponse struct {
	ID            string             `json:"id"`
	State         session.State      `json:"state"`
	ArchiveName   string             `json:"archive_name,omitempty"`
	ImageName     string             `json:"image_name,omitempty"`
	Pages         []PageView         `json:"pages"`
	PageIndex     int                `json:"page_index"`
	Language      providers.Language `json:"language"`
	Bubbles       []BubbleView       `json:"bubbles"`
	Error         string             `json:"error,omitempty"`
	AvgConfidence int                `json:"avg_confidence"`
}

// PageView is one archive page entry.
type PageView struct {
	FileName string `json:"file_name"`
	Index    int    `json:"index"`
}

// sessionResponse builds the wire view from a session snapshot.
func sessionResponse(snap session.Snapshot) SessionResponse {
	resp := SessionResponse{
		ID:            snap.ID,
		State:         snap.State,
		ArchiveName:   snap.ArchiveName,
		ImageName:     snap.ImageName,
		Pages:         make([]PageView, len(snap.Pages)),
		PageIndex:     snap.PageIndex,
		Language:      snap.Language,
		Bubbles:       make([]BubbleView, len(snap.Bubbles)),
		Error:         snap.Error,
		AvgConfidence: snap.AvgConfidence,
	}
	for i, p := range snap.Pages {
		resp.Pages[i] = PageView{FileName: p.FileName, Index: p.Index}
	}
	for i, b := range snap.Bubbles {
		// Box extents double as a nominal pixel canvas for sizing.
		boxW := float64(b.Box[3] - b.Box[1])
		boxH := float64(b.Box[2] - b.Box[0])
		resp.Bubbles[i] = BubbleView{
			Bubble:        b,
			Region:        overlay.Layout(b.Box),
			LowConfidence: overlay.LowConfidence(b.Confidence),
			FontSize:      overlay.FitText(b.TranslatedText, boxW, boxH, overlay.Approximate{}),
		}
	}
	return resp
}

// CreateSessionEndpoint handles POST /api/sessions.
type CreateSessionEndpoint struct{}

var _ api.Endpoint = (*CreateSessionEndpoint)(nil)

func (e *CreateSessionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sessions", e.handler
}

func (e *CreateSessionEndpoint) RequiresInit() bool { return true }

func (e *CreateSessionEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sessions := svcctx.SessionsFrom(r.Context())
	if sessions == nil {
		writeError(w, http.StatusServiceUnavailable, "session manager not initialized")
		return
	}

	s := sessions.Create()
	writeJSON(w, http.StatusCreated, sessionResponse(s.Snapshot()))
}

func (e *CreateSessionEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Open a new session",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp SessionResponse
			if err := client.Post(cmd.Context(), "/api/sessions", nil, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// GetSessionEndpoint handles GET /api/sessions/{session_id}.
type GetSessionEndpoint struct{}

var _ api.Endpoint = (*GetSessionEndpoint)(nil)

func (e *GetSessionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/sessions/{session_id}", e.handler
}

func (e *GetSessionEndpoint) RequiresInit() bool { return true }

func (e *GetSessionEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(s.Snapshot()))
}

func (e *GetSessionEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <session-id>",
		Short: "Get session state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp SessionResponse
			if err := client.Get(cmd.Context(), "/api/sessions/"+args[0], &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// DeleteSessionEndpoint handles DELETE /api/sessions/{session_id}.
type DeleteSessionEndpoint struct{}

var _ api.Endpoint = (*DeleteSessionEndpoint)(nil)

func (e *DeleteSessionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/sessions/{session_id}", e.handler
}

func (e *DeleteSessionEndpoint) RequiresInit() bool { return true }

func (e *DeleteSessionEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sessions := svcctx.SessionsFrom(r.Context())
	if sessions == nil {
		writeError(w, http.StatusServiceUnavailable, "session manager not initialized")
		return
	}

	id := r.PathValue("session_id")
	if err := sessions.Close(id); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (e *DeleteSessionEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "close <session-id>",
		Short: "Close a session and release its archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if err := client.Delete(cmd.Context(), "/api/sessions/"+args[0]); err != nil {
				return err
			}
			fmt.Println("session closed")
			return nil
		},
	}
}

// sessionFromRequest resolves the {session_id} path value. On failure
// it writes the error response and returns false.
func sessionFromRequest(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sessions := svcctx.SessionsFrom(r.Context())
	if sessions == nil {
		writeError(w, http.StatusServiceUnavailable, "session manager not initialized")
		return nil, false
	}

	s, err := sessions.Get(r.PathValue("session_id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	return s, true
}
