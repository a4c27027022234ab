package handler

import (
	"context"
	stderrors "errors"
	"mime/multipart"
	"net/http"
	"strings"

	"compdash/internal/domain"
	"compdash/internal/middleware"
	"compdash/internal/service"
	"compdash/pkg/errors"
	"compdash/pkg/logger"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// SubmissionAPI is the submission workflow the handlers drive
type SubmissionAPI interface {
	Submit(ctx context.Context, principal *domain.Principal, draft domain.SubmissionDraft, upload *service.Upload) (*domain.SubmissionView, error)
	History(ctx context.Context, identity *domain.Identity, kind domain.Kind) ([]domain.SubmissionView, error)
	BugCatalogue(ctx context.Context, identity *domain.Identity) ([]domain.BugStatus, error)
	GetSubmission(ctx context.Context, identity *domain.Identity, kind domain.Kind, id uuid.UUID) (*domain.SubmissionView, error)
	DeleteSubmission(ctx context.Context, identity *domain.Identity, kind domain.Kind, id uuid.UUID) error
}

// multipart overhead allowed on top of the upload limit
const formOverhead = 1 << 20

// form fields per kind: the category field and the file field
var formFields = map[domain.Kind]struct{ category, file string }{
	domain.KindBug:         {category: "bug_number", file: "screenshot"},
	domain.KindEnhancement: {category: "enhancement_type", file: "screenshot"},
	domain.KindProject:     {category: "submission_type", file: "file"},
}

// SubmissionHandler serves the submission and history endpoints
type SubmissionHandler struct {
	submissions    SubmissionAPI
	identity       IdentityResolver
	maxUploadBytes int64
	logger         *logger.Logger
}

// NewSubmissionHandler creates a new submission handler
func NewSubmissionHandler(submissions SubmissionAPI, identity IdentityResolver, maxUploadBytes int64, logger *logger.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		submissions:    submissions,
		identity:       identity,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// Create handles POST /api/submissions/{kind} with a multipart form
func (h *SubmissionHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		respondError(w, r, h.logger, errors.NewAuthenticationError("Authentication required"))
		return
	}

	kind, err := domain.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	fields := formFields[kind]

	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+formOverhead)
	}
	// a video link can arrive as a plain urlencoded form
	if err := r.ParseMultipartForm(8 << 20); err != nil && !stderrors.Is(err, http.ErrNotMultipart) {
		respondError(w, r, h.logger, h.formError(err))
		return
	}
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	draft := domain.SubmissionDraft{
		Kind:           kind,
		Category:       r.FormValue(fields.category),
		Description:    r.FormValue("description"),
		Justification:  r.FormValue("justification"),
		VideoURL:       strings.TrimSpace(r.FormValue("video_url")),
		IdempotencyKey: strings.TrimSpace(r.Header.Get("Idempotency-Key")),
	}

	upload, closeUpload, err := formUpload(r, fields.file)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	defer closeUpload()

	view, err := h.submissions.Submit(r.Context(), principal, draft, upload)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, view)
}

func (h *SubmissionHandler) formError(err error) error {
	var tooLarge *http.MaxBytesError
	if stderrors.As(err, &tooLarge) {
		return errors.NewValidationError(
			"Upload exceeds the "+humanize.IBytes(uint64(h.maxUploadBytes))+" limit",
			map[string]interface{}{"field": "file"})
	}
	return errors.NewValidationError("Expected a multipart form", nil)
}

// formUpload returns the file in field, or nil when the form has none
func formUpload(r *http.Request, field string) (*service.Upload, func(), error) {
	if r.MultipartForm == nil {
		return nil, func() {}, nil
	}
	file, header, err := r.FormFile(field)
	if stderrors.Is(err, http.ErrMissingFile) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, nil, errors.NewValidationError("Could not read the uploaded file",
			map[string]interface{}{"field": field})
	}
	return uploadFrom(file, header), func() { _ = file.Close() }, nil
}

func uploadFrom(file multipart.File, header *multipart.FileHeader) *service.Upload {
	return &service.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}
}

// List handles GET /api/submissions/{kind}
func (h *SubmissionHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, kind, ok := h.scope(w, r)
	if !ok {
		return
	}

	views, err := h.submissions.History(r.Context(), identity, kind)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, views)
}

// Get handles GET /api/submissions/{kind}/{id}
func (h *SubmissionHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, kind, ok := h.scope(w, r)
	if !ok {
		return
	}
	id, err := submissionID(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	view, err := h.submissions.GetSubmission(r.Context(), identity, kind, id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// Delete handles DELETE /api/submissions/{kind}/{id}
func (h *SubmissionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, kind, ok := h.scope(w, r)
	if !ok {
		return
	}
	id, err := submissionID(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	if err := h.submissions.DeleteSubmission(r.Context(), identity, kind, id); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondMessage(w, http.StatusOK, "Submission deleted")
}

// Bugs handles GET /api/bugs
func (h *SubmissionHandler) Bugs(w http.ResponseWriter, r *http.Request) {
	identity, err := resolveIdentity(r, h.identity)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	catalogue, err := h.submissions.BugCatalogue(r.Context(), identity)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, catalogue)
}

// scope resolves the caller and the {kind} URL parameter
func (h *SubmissionHandler) scope(w http.ResponseWriter, r *http.Request) (*domain.Identity, domain.Kind, bool) {
	kind, err := domain.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return nil, "", false
	}

	identity, err := resolveIdentity(r, h.identity)
	if err != nil {
		respondError(w, r, h.logger, err)
		return nil, "", false
	}
	return identity, kind, true
}

func submissionID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, errors.NewValidationError("Invalid submission id", map[string]interface{}{"field": "id"})
	}
	return id, nil
}
