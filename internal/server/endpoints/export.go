package endpoints

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/doodlebook/internal/api"
	"github.com/jackzampolin/doodlebook/internal/epub"
	"github.com/jackzampolin/doodlebook/internal/pdfexport"
	"github.com/jackzampolin/doodlebook/internal/reader"
	"github.com/jackzampolin/doodlebook/internal/story"
	"github.com/jackzampolin/doodlebook/internal/svcctx"
)

const (
	FormatEPUB = "epub"
	FormatPDF  = "pdf"
)

var exportContentTypes = map[string]string{
	FormatEPUB: "application/epub+zip",
	FormatPDF:  "application/pdf",
}

// ExportEndpoint handles GET /api/books/{id}/export/{format}.
// Exports are a share action, so they need a reading session on this book
// that has reached the end.
type ExportEndpoint struct {
	// Format is FormatEPUB or FormatPDF.
	Format string
}

func (e *ExportEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/books/{id}/export/" + e.Format, e.handler
}

func (e *ExportEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Export a finished book
//	@Description	Download the story as an ePub or an illustrated PDF. Requires a session that has read to the end.
//	@Tags			books,export
//	@Produce		octet-stream
//	@Param			id		path		string	true	"Book ID"
//	@Param			session	query		string	true	"Reading session that has reached the end"
//	@Success		200		{file}		binary
//	@Failure		403		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/api/books/{id}/export/epub [get]
//	@Router			/api/books/{id}/export/pdf [get]
func (e *ExportEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	bookID := r.PathValue("id")

	s, err := svcctx.SessionsFrom(ctx).Get(r.URL.Query().Get("session"))
	if err != nil || s.BookID() != bookID || !s.State().ReadingCompleted {
		writeDomainError(w, reader.ErrShareLocked)
		return
	}

	b, err := svcctx.StoreFrom(ctx).Get(ctx, bookID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	data, err := e.render(ctx, b)
	if err != nil {
		if errors.Is(err, pdfexport.ErrNoImages) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeDomainError(w, err)
		return
	}

	filename := exportFileName(b.Title(), e.Format)
	logger := svcctx.LoggerFrom(ctx)
	if h := svcctx.HomeFrom(ctx); h != nil {
		if _, err := h.WriteExport(b.ID, filename, data); err != nil && logger != nil {
			logger.Warn("failed to keep export copy", "book_id", b.ID, "error", err)
		}
	}
	if logger != nil {
		logger.Info("book exported", "book_id", bookID, "format", e.Format, "bytes", len(data))
	}

	w.Header().Set("Content-Type", exportContentTypes[e.Format])
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Write(data)
}

func (e *ExportEndpoint) render(ctx context.Context, b *story.Book) ([]byte, error) {
	store := svcctx.StoreFrom(ctx)
	switch e.Format {
	case FormatPDF:
		return pdfexport.Export(ctx, store, b, svcctx.LoggerFrom(ctx))
	default:
		book, err := epub.FromStory(ctx, store, b)
		if err != nil {
			return nil, err
		}
		buf, err := epub.NewBuilder(book).BuildToBuffer()
		if err != nil {
			return nil, fmt.Errorf("failed to build epub: %w", err)
		}
		return buf.Bytes(), nil
	}
}

var unsafeFileChars = regexp.MustCompile(`[^a-z0-9]+`)

// exportFileName turns a story title into a file name made of lowercase
// letters, digits and dashes, falling back to "story".
func exportFileName(title, format string) string {
	name := strings.Trim(unsafeFileChars.ReplaceAllString(strings.ToLower(title), "-"), "-")
	if name == "" {
		name = "story"
	}
	return name + "." + format
}

func (e *ExportEndpoint) Command(getServerURL func() string) *cobra.Command {
	var sessionID, outputFile string
	cmd := &cobra.Command{
		Use:   e.Format + " <book-id>",
		Short: fmt.Sprintf("Download a finished book as %s", e.Format),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputFile == "" {
				outputFile = args[0] + "." + e.Format
			}
			path := fmt.Sprintf("/api/books/%s/export/%s?session=%s", args[0], e.Format, url.QueryEscape(sessionID))
			err := downloadTo(cmd, getServerURL(), path, outputFile)
			if api.IsStatus(err, http.StatusForbidden) {
				return fmt.Errorf("%w (turn to THE END with: doodlebook api sessions next %s)", err, sessionID)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "Reading session that has reached the end")
	cmd.Flags().StringVarP(&outputFile, "file", "f", "", "Output file path (default: <book-id>.<format>)")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}
