package endpoints

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/doodlebook/internal/api"
	"github.com/jackzampolin/doodlebook/internal/generation"
	"github.com/jackzampolin/doodlebook/internal/reader"
	"github.com/jackzampolin/doodlebook/internal/story"
	"github.com/jackzampolin/doodlebook/internal/svcctx"
)

// maxDrawingSize bounds uploaded drawings.
const maxDrawingSize = 20 << 20

// BookResponse is a book with the fields a client derives from it.
type BookResponse struct {
	*story.Book
	Title       string `json:"title,omitempty"`
	PageCount   int    `json:"page_count"`
	Illustrated int    `json:"illustrated"`
	DrawingURL  string `json:"drawing_url"`
	VideoURL    string `json:"video_url,omitempty"`
	// Whimsy rotates while a long generation step runs.
	Whimsy string `json:"whimsy,omitempty"`
}

func newBookResponse(b *story.Book) BookResponse {
	resp := BookResponse{
		Book:        b,
		Title:       b.Title(),
		PageCount:   b.PageCount(),
		Illustrated: b.IllustratedCount(),
		DrawingURL:  reader.DefaultMediaURL(b.ID, b.Drawing),
	}
	if b.Video != "" {
		resp.VideoURL = reader.DefaultMediaURL(b.ID, b.Video)
	}
	if b.Status == story.StatusAnalyzing || b.Status == story.StatusAnimating {
		resp.Whimsy = generation.Whimsy(time.Since(b.UpdatedAt))
	}
	return resp
}

// UploadBookEndpoint handles POST /api/books with a multipart drawing upload.
type UploadBookEndpoint struct{}

var _ api.Endpoint = (*UploadBookEndpoint)(nil)

func (e *UploadBookEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/books", e.handler
}

func (e *UploadBookEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Upload a drawing
//	@Description	Store a drawing as a new book and start reading the story out of it
//	@Tags			books
//	@Accept			mpfd
//	@Produce		json
//	@Param			drawing	formData	file	true	"Drawing image (png, jpeg, gif or webp)"
//	@Success		202		{object}	BookResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		413		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/books [post]
func (e *UploadBookEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	store := svcctx.StoreFrom(ctx)
	pipeline := svcctx.PipelineFrom(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, maxDrawingSize+1<<20)
	if err := r.ParseMultipartForm(maxDrawingSize); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, _, err := r.FormFile("drawing")
	if err != nil {
		writeError(w, http.StatusBadRequest, "drawing file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxDrawingSize+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to read drawing: %v", err))
		return
	}
	if len(data) > maxDrawingSize {
		writeError(w, http.StatusRequestEntityTooLarge, "drawing is too large")
		return
	}
	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("drawing must be an image, got %s", contentType))
		return
	}

	b := story.NewBook(contentType)
	if err := store.Create(ctx, b); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := store.WriteMedia(ctx, b.ID, story.DrawingName, data); err != nil {
		_ = store.Delete(ctx, b.ID)
		writeDomainError(w, err)
		return
	}
	if err := pipeline.StartAnalyze(ctx, b.ID); err != nil {
		writeDomainError(w, err)
		return
	}

	if logger := svcctx.LoggerFrom(ctx); logger != nil {
		logger.Info("drawing uploaded", "book_id", b.ID, "type", contentType, "bytes", len(data))
	}

	current, err := store.Get(ctx, b.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, newBookResponse(current))
}

func (e *UploadBookEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <drawing>",
		Short: "Upload a drawing and start a new book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			client := api.NewClient(getServerURL())
			var resp BookResponse
			if err := client.PostFile(cmd.Context(), "/api/books", "drawing", filepath.Base(args[0]), f, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// ListBooksResponse is the response for listing books.
type ListBooksResponse struct {
	Books []BookResponse `json:"books"`
}

// ListBooksEndpoint handles GET /api/books.
type ListBooksEndpoint struct{}

func (e *ListBooksEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/books", e.handler
}

func (e *ListBooksEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary	List books
//	@Tags		books
//	@Produce	json
//	@Param		status	query		string	false	"Only books in this status"
//	@Success	200		{object}	ListBooksResponse
//	@Failure	500		{object}	ErrorResponse
//	@Router		/api/books [get]
func (e *ListBooksEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	books, err := svcctx.StoreFrom(r.Context()).List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	status := r.URL.Query().Get("status")
	resp := ListBooksResponse{Books: []BookResponse{}}
	for _, b := range books {
		if status != "" && string(b.Status) != status {
			continue
		}
		resp.Books = append(resp.Books, newBookResponse(b))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *ListBooksEndpoint) Command(getServerURL func() string) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List books, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/books"
			if status != "" {
				path += "?status=" + status
			}
			client := api.NewClient(getServerURL())
			var resp ListBooksResponse
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Only books in this status (uploaded, analyzing, refining, animating, ready)")
	return cmd
}

// GetBookEndpoint handles GET /api/books/{id}.
type GetBookEndpoint struct{}

func (e *GetBookEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/books/{id}", e.handler
}

func (e *GetBookEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get book by ID
//	@Description	Get a book with its story, generation status and progress message
//	@Tags			books
//	@Produce		json
//	@Param			id	path		string	true	"Book ID"
//	@Success		200	{object}	BookResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/books/{id} [get]
func (e *GetBookEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	b, err := svcctx.StoreFrom(r.Context()).Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newBookResponse(b))
}

func (e *GetBookEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a book by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp BookResponse
			if err := client.Get(cmd.Context(), "/api/books/"+args[0], &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// RefineBookEndpoint handles PATCH /api/books/{id}.
type RefineBookEndpoint struct{}

func (e *RefineBookEndpoint) Route() (string, string, http.HandlerFunc) {
	return "PATCH", "/api/books/{id}", e.handler
}

func (e *RefineBookEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Refine a story
//	@Description	Edit the title, star, credits or page text before the movie is made
//	@Tags			books
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Book ID"
//	@Param			request	body		story.Refinement	true	"Fields to change"
//	@Success		200		{object}	BookResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Router			/api/books/{id} [patch]
func (e *RefineBookEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req story.Refinement
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	b, err := svcctx.StoreFrom(r.Context()).Update(r.Context(), r.PathValue("id"), func(b *story.Book) error {
		return story.Refine(b, req)
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newBookResponse(b))
}

func (e *RefineBookEndpoint) Command(getServerURL func() string) *cobra.Command {
	var title, subject, artist, year, grade, age string
	var pages []string
	cmd := &cobra.Command{
		Use:   "refine <id>",
		Short: "Edit a story before making the movie",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req story.Refinement
			flags := cmd.Flags()
			for name, dst := range map[string]**string{
				"title": &req.Title, "subject": &req.Subject, "artist": &req.ArtistName,
				"year": &req.Year, "grade": &req.Grade, "age": &req.Age,
			} {
				if flags.Changed(name) {
					v, _ := flags.GetString(name)
					*dst = &v
				}
			}
			if flags.Changed("page") {
				req.Pages = pages
			}

			client := api.NewClient(getServerURL())
			var resp BookResponse
			if err := client.Patch(cmd.Context(), "/api/books/"+args[0], req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Story title")
	cmd.Flags().StringVar(&subject, "subject", "", "Story star")
	cmd.Flags().StringVar(&artist, "artist", "", "Artist name")
	cmd.Flags().StringVar(&year, "year", "", "Year the drawing was made")
	cmd.Flags().StringVar(&grade, "grade", "", "Artist grade")
	cmd.Flags().StringVar(&age, "age", "", "Artist age")
	cmd.Flags().StringArrayVar(&pages, "page", nil, "Page text, repeated once per page in order")
	return cmd
}

// AnimateBookEndpoint handles POST /api/books/{id}/animate.
type AnimateBookEndpoint struct{}

func (e *AnimateBookEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/books/{id}/animate", e.handler
}

func (e *AnimateBookEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Make the movie
//	@Description	Start rendering the movie, then paint every page illustration in the background
//	@Tags			books
//	@Produce		json
//	@Param			id	path		string	true	"Book ID"
//	@Success		202	{object}	BookResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		409	{object}	ErrorResponse
//	@Router			/api/books/{id}/animate [post]
func (e *AnimateBookEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	if err := svcctx.PipelineFrom(ctx).StartAnimate(ctx, id); err != nil {
		writeDomainError(w, err)
		return
	}
	b, err := svcctx.StoreFrom(ctx).Get(ctx, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, newBookResponse(b))
}

func (e *AnimateBookEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "animate <id>",
		Short: "Start making the movie for a refined story",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp BookResponse
			if err := client.Post(cmd.Context(), "/api/books/"+args[0]+"/animate", nil, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// AnalyzeBookEndpoint handles POST /api/books/{id}/analyze.
type AnalyzeBookEndpoint struct{}

func (e *AnalyzeBookEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/books/{id}/analyze", e.handler
}

func (e *AnalyzeBookEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Read the drawing again
//	@Description	Restart story analysis for a book whose analysis failed or was interrupted
//	@Tags			books
//	@Produce		json
//	@Param			id	path		string	true	"Book ID"
//	@Success		202	{object}	BookResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		409	{object}	ErrorResponse
//	@Router			/api/books/{id}/analyze [post]
func (e *AnalyzeBookEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	if err := svcctx.PipelineFrom(ctx).StartAnalyze(ctx, id); err != nil {
		writeDomainError(w, err)
		return
	}
	b, err := svcctx.StoreFrom(ctx).Get(ctx, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, newBookResponse(b))
}

func (e *AnalyzeBookEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <id>",
		Short: "Retry story analysis for an uploaded or failed book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp BookResponse
			if err := client.Post(cmd.Context(), "/api/books/"+args[0]+"/analyze", nil, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// BookMediaEndpoint handles GET /api/books/{id}/media/{name}.
type BookMediaEndpoint struct{}

func (e *BookMediaEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/books/{id}/media/{name}", e.handler
}

func (e *BookMediaEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary	Get a drawing, illustration or movie
//	@Tags		books
//	@Produce	octet-stream
//	@Param		id		path		string	true	"Book ID"
//	@Param		name	path		string	true	"Media name"
//	@Success	200		{file}		binary
//	@Failure	400		{object}	ErrorResponse
//	@Failure	404		{object}	ErrorResponse
//	@Router		/api/books/{id}/media/{name} [get]
func (e *BookMediaEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if !story.ValidMediaName(name) {
		writeError(w, http.StatusBadRequest, "invalid media name")
		return
	}
	data, err := svcctx.StoreFrom(r.Context()).ReadMedia(r.Context(), r.PathValue("id"), name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	contentType := http.DetectContentType(data)
	if strings.HasSuffix(name, ".mp4") {
		contentType = "video/mp4"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Write(data)
}

func (e *BookMediaEndpoint) Command(getServerURL func() string) *cobra.Command {
	var outputFile string
	cmd := &cobra.Command{
		Use:   "media <id> <name>",
		Short: "Download a book's drawing, illustration or movie",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputFile == "" {
				outputFile = args[1]
			}
			return downloadTo(cmd, getServerURL(), "/api/books/"+args[0]+"/media/"+args[1], outputFile)
		},
	}
	cmd.Flags().StringVarP(&outputFile, "file", "f", "", "Output file path (default: media name)")
	return cmd
}

// downloadTo saves a binary response to path.
func downloadTo(cmd *cobra.Command, serverURL, path, outputFile string) error {
	f, err := os.Create(outputFile)
	if err != nil {
		return err
	}
	client := api.NewClient(serverURL)
	if err := client.Download(cmd.Context(), path, f); err != nil {
		f.Close()
		os.Remove(outputFile)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("Saved %s\n", outputFile)
	return nil
}
