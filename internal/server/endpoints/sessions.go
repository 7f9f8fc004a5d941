package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/doodlebook/internal/api"
	"github.com/jackzampolin/doodlebook/internal/reader"
	"github.com/jackzampolin/doodlebook/internal/storybook"
	"github.com/jackzampolin/doodlebook/internal/svcctx"
)

// SessionResponse is the reader view plus the cues the client has not played.
type SessionResponse struct {
	View *reader.View `json:"view"`
	Cues []reader.Cue `json:"cues"`
}

// ActionResponse reports the outcome of a reader intent.
type ActionResponse struct {
	Accepted bool             `json:"accepted"`
	Intent   storybook.Intent `json:"intent,omitempty"`
	Closed   bool             `json:"closed,omitempty"`
	View     *reader.View     `json:"view,omitempty"`
	Cues     []reader.Cue     `json:"cues"`
}

// CuesResponse is the response for polling sound cues.
type CuesResponse struct {
	Cues []reader.Cue `json:"cues"`
}

// JumpRequest is the body for jumping to a spread.
type JumpRequest struct {
	Index int `json:"index"`
}

// KeyRequest is the body for a key press.
type KeyRequest struct {
	Key string `json:"key"`
}

// CloseResponse is the response for closing a session.
type CloseResponse struct {
	Cue *reader.Cue `json:"cue"`
}

// sessionFrom resolves the {id} path value to an open session.
func sessionFrom(w http.ResponseWriter, r *http.Request) (*reader.Session, bool) {
	s, err := svcctx.SessionsFrom(r.Context()).Get(r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return nil, false
	}
	return s, true
}

// writeAction renders the view after an intent along with the cues it produced.
func writeAction(w http.ResponseWriter, r *http.Request, s *reader.Session, since uint64, resp ActionResponse) {
	view, err := s.View(r.Context(), reader.DefaultMediaURL)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	resp.View = view
	resp.Cues = nonNilCues(s.Cues(since))
	writeJSON(w, http.StatusOK, resp)
}

func nonNilCues(cues []reader.Cue) []reader.Cue {
	if cues == nil {
		return []reader.Cue{}
	}
	return cues
}

// OpenSessionEndpoint handles POST /api/books/{id}/sessions.
type OpenSessionEndpoint struct{}

var _ api.Endpoint = (*OpenSessionEndpoint)(nil)

func (e *OpenSessionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/books/{id}/sessions", e.handler
}

func (e *OpenSessionEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Open a book
//	@Description	Start a reading session on the cover of a finished book
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Book ID"
//	@Success		201	{object}	SessionResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		409	{object}	ErrorResponse
//	@Router			/api/books/{id}/sessions [post]
func (e *OpenSessionEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	s, err := svcctx.SessionsFrom(r.Context()).Open(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	view, err := s.View(r.Context(), reader.DefaultMediaURL)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, SessionResponse{View: view, Cues: nonNilCues(s.Cues(0))})
}

func (e *OpenSessionEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "open <book-id>",
		Short: "Open a finished book for reading",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp SessionResponse
			if err := client.Post(cmd.Context(), "/api/books/"+args[0]+"/sessions", nil, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// GetSessionEndpoint handles GET /api/sessions/{id}.
type GetSessionEndpoint struct{}

func (e *GetSessionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/sessions/{id}", e.handler
}

func (e *GetSessionEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Current spread
//	@Description	Render the current spread with the latest illustrations
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Session ID"
//	@Success		200	{object}	reader.View
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/sessions/{id} [get]
func (e *GetSessionEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	view, err := s.View(r.Context(), reader.DefaultMediaURL)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (e *GetSessionEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <session-id>",
		Short: "Show the current spread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp reader.View
			if err := client.Get(cmd.Context(), "/api/sessions/"+args[0], &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// TurnSessionEndpoint handles POST /api/sessions/{id}/next and /prev.
type TurnSessionEndpoint struct {
	// Direction is storybook.IntentNext or storybook.IntentPrev.
	Direction storybook.Intent
}

func (e *TurnSessionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sessions/{id}/" + string(e.Direction), e.handler
}

func (e *TurnSessionEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Turn the page
//	@Description	Start a page turn. Rejected turns (at an edge or mid-turn) return accepted=false.
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Session ID"
//	@Success		200	{object}	ActionResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/sessions/{id}/next [post]
//	@Router			/api/sessions/{id}/prev [post]
func (e *TurnSessionEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	since := s.LastCueSeq()
	var accepted bool
	if e.Direction == storybook.IntentPrev {
		accepted = s.Prev()
	} else {
		accepted = s.Next()
	}
	writeAction(w, r, s, since, ActionResponse{Accepted: accepted, Intent: e.Direction})
}

func (e *TurnSessionEndpoint) Command(getServerURL func() string) *cobra.Command {
	short := "Turn to the next page"
	if e.Direction == storybook.IntentPrev {
		short = "Turn back a page"
	}
	return &cobra.Command{
		Use:   string(e.Direction) + " <session-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ActionResponse
			if err := client.Post(cmd.Context(), "/api/sessions/"+args[0]+"/"+string(e.Direction), nil, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// JumpSessionEndpoint handles POST /api/sessions/{id}/jump.
type JumpSessionEndpoint struct{}

func (e *JumpSessionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sessions/{id}/jump", e.handler
}

func (e *JumpSessionEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Jump to a spread
//	@Description	Jump to a spread the reader has already reached. Locked spreads return accepted=false.
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"Session ID"
//	@Param			request	body		JumpRequest	true	"Target spread"
//	@Success		200		{object}	ActionResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/api/sessions/{id}/jump [post]
func (e *JumpSessionEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req JumpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	s, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	since := s.LastCueSeq()
	accepted := s.Jump(req.Index)
	writeAction(w, r, s, since, ActionResponse{Accepted: accepted})
}

func (e *JumpSessionEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "jump <session-id> <index>",
		Short: "Jump to a spread already reached (0 is the cover)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid index %q: %w", args[1], err)
			}
			client := api.NewClient(getServerURL())
			var resp ActionResponse
			if err := client.Post(cmd.Context(), "/api/sessions/"+args[0]+"/jump", JumpRequest{Index: index}, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// KeySessionEndpoint handles POST /api/sessions/{id}/key.
type KeySessionEndpoint struct{}

func (e *KeySessionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sessions/{id}/key", e.handler
}

func (e *KeySessionEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Press a key
//	@Description	ArrowRight and Space turn forward, ArrowLeft turns back, Escape closes the book.
//	@Description	Keys are ignored while a page is turning.
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"Session ID"
//	@Param			request	body		KeyRequest	true	"Key name as reported by the browser"
//	@Success		200		{object}	ActionResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/api/sessions/{id}/key [post]
func (e *KeySessionEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req KeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	s, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	since := s.LastCueSeq()
	intent, handled := s.HandleKey(req.Key)
	if handled && intent == storybook.IntentClose {
		cue, err := svcctx.SessionsFrom(r.Context()).Close(s.ID())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ActionResponse{Accepted: true, Intent: intent, Closed: true, Cues: []reader.Cue{*cue}})
		return
	}
	writeAction(w, r, s, since, ActionResponse{Accepted: handled, Intent: intent})
}

func (e *KeySessionEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "key <session-id> <key>",
		Short: "Send a key press (ArrowRight, ArrowLeft, Space, Escape)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ActionResponse
			if err := client.Post(cmd.Context(), "/api/sessions/"+args[0]+"/key", KeyRequest{Key: args[1]}, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// SessionCuesEndpoint handles GET /api/sessions/{id}/cues.
type SessionCuesEndpoint struct{}

func (e *SessionCuesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/sessions/{id}/cues", e.handler
}

func (e *SessionCuesEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Poll sound cues
//	@Description	Sound cues newer than since, including delayed ones like the final cheer
//	@Tags			sessions
//	@Produce		json
//	@Param			id		path		string	true	"Session ID"
//	@Param			since	query		int		false	"Last cue sequence number already played"
//	@Success		200		{object}	CuesResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/api/sessions/{id}/cues [get]
func (e *SessionCuesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var since uint64
	if v := r.URL.Query().Get("since"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be a non-negative integer")
			return
		}
		since = n
	}
	s, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, CuesResponse{Cues: nonNilCues(s.Cues(since))})
}

func (e *SessionCuesEndpoint) Command(getServerURL func() string) *cobra.Command {
	var since uint64
	cmd := &cobra.Command{
		Use:   "cues <session-id>",
		Short: "List sound cues for a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp CuesResponse
			path := fmt.Sprintf("/api/sessions/%s/cues?since=%d", args[0], since)
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().Uint64Var(&since, "since", 0, "Only cues after this sequence number")
	return cmd
}

// ShareSessionEndpoint handles GET /api/sessions/{id}/share.
type ShareSessionEndpoint struct{}

func (e *ShareSessionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/sessions/{id}/share", e.handler
}

func (e *ShareSessionEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Share links
//	@Description	Share sheet payload and social links. Locked until the reader turns onto the last spread.
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Session ID"
//	@Success		200	{object}	reader.Share
//	@Failure		403	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/sessions/{id}/share [get]
func (e *ShareSessionEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	share, err := s.ShareLinks(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, share)
}

func (e *ShareSessionEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "share <session-id>",
		Short: "Get share links for a finished reading",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp reader.Share
			if err := client.Get(cmd.Context(), "/api/sessions/"+args[0]+"/share", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// CloseSessionEndpoint handles DELETE /api/sessions/{id}.
type CloseSessionEndpoint struct{}

func (e *CloseSessionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/sessions/{id}", e.handler
}

func (e *CloseSessionEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary	Close a book
//	@Tags		sessions
//	@Produce	json
//	@Param		id	path		string	true	"Session ID"
//	@Success	200	{object}	CloseResponse
//	@Failure	404	{object}	ErrorResponse
//	@Router		/api/sessions/{id} [delete]
func (e *CloseSessionEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	cue, err := svcctx.SessionsFrom(r.Context()).Close(r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CloseResponse{Cue: cue})
}

func (e *CloseSessionEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "close <session-id>",
		Short: "Close a reading session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp CloseResponse
			if err := client.Delete(cmd.Context(), "/api/sessions/"+args[0], &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
