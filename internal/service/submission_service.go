package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"compdash/internal/domain"
	"compdash/internal/repository"
	"compdash/pkg/errors"
	"compdash/pkg/logger"

	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
	"github.com/gobwas/glob"
	"github.com/google/uuid"
)

// Upload is a file attached to a submission
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// SubmissionConfig holds the limits applied to new submissions
type SubmissionConfig struct {
	MaxUploadBytes      int64
	BugCount            int
	Location            *time.Location
	AllowedContentTypes []string // glob patterns such as "image/*"
}

// SubmissionService records, lists and deletes team submissions
type SubmissionService struct {
	identity *IdentityService
	repo     repository.SubmissionRepository
	storage  ObjectStorage
	videos   VideoVerifier
	cache    *CacheService
	validate *validator.Validate
	logger   *logger.Logger

	maxUploadBytes int64
	bugCount       int
	loc            *time.Location
	allowed        []glob.Glob
	now            func() time.Time
}

// NewSubmissionService creates the service. videos may be nil, in which case
// presentation video links are only checked syntactically.
func NewSubmissionService(
	identity *IdentityService,
	repo repository.SubmissionRepository,
	storage ObjectStorage,
	videos VideoVerifier,
	cache *CacheService,
	cfg SubmissionConfig,
	logger *logger.Logger,
) (*SubmissionService, error) {
	if len(cfg.AllowedContentTypes) == 0 {
		cfg.AllowedContentTypes = []string{"image/*"}
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	allowed := make([]glob.Glob, 0, len(cfg.AllowedContentTypes))
	for _, pattern := range cfg.AllowedContentTypes {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid content type pattern %q: %w", pattern, err)
		}
		allowed = append(allowed, g)
	}

	return &SubmissionService{
		identity:       identity,
		repo:           repo,
		storage:        storage,
		videos:         videos,
		cache:          cache,
		validate:       validator.New(),
		logger:         logger,
		maxUploadBytes: cfg.MaxUploadBytes,
		bugCount:       cfg.BugCount,
		loc:            cfg.Location,
		allowed:        allowed,
		now:            time.Now,
	}, nil
}

// Submit resolves the principal's team and author, validates the draft,
// uploads the attached file when the kind needs one and records the
// submission. Nothing is uploaded when the team cannot be resolved, and no
// record is left behind when the upload or the insert fails.
func (s *SubmissionService) Submit(ctx context.Context, principal *domain.Principal, draft domain.SubmissionDraft, upload *Upload) (*domain.SubmissionView, error) {
	identity, err := s.identity.Resolve(ctx, principal)
	if err != nil {
		submissionCounter.WithLabelValues(string(draft.Kind), "unresolved").Inc()
		return nil, err
	}

	sub, err := s.buildSubmission(identity, draft)
	if err != nil {
		submissionCounter.WithLabelValues(string(draft.Kind), "invalid").Inc()
		return nil, err
	}

	if draft.IdempotencyKey != "" {
		acquired, err := s.cache.TryIdempotencyLock(ctx, principal.UserID, draft.IdempotencyKey)
		if err != nil {
			s.logger.WithError(err).Warn("Idempotency lock unavailable, continuing")
		} else if !acquired {
			submissionCounter.WithLabelValues(string(draft.Kind), "duplicate").Inc()
			return nil, errors.NewConflictError("This submission was already received")
		}
	}

	view, err := s.store(ctx, sub, upload)
	if err != nil {
		if draft.IdempotencyKey != "" {
			s.cache.ReleaseIdempotencyLock(context.WithoutCancel(ctx), principal.UserID, draft.IdempotencyKey)
		}
		return nil, err
	}

	submissionCounter.WithLabelValues(string(sub.Kind()), "recorded").Inc()
	s.logger.WithFields(map[string]interface{}{
		"submission_id": sub.ID.String(),
		"kind":          string(sub.Kind()),
		"category":      sub.Details.Category(),
		"team":          sub.TeamName,
		"author":        sub.Author,
	}).Info("Submission recorded")

	return view, nil
}

func (s *SubmissionService) buildSubmission(identity *domain.Identity, draft domain.SubmissionDraft) (*domain.Submission, error) {
	if err := s.validate.Struct(draft); err != nil {
		return nil, validationError(err)
	}

	details, err := domain.NewDetails(draft.Kind, draft.Category, draft.Justification, draft.VideoURL)
	if err != nil {
		return nil, err
	}

	if bug, ok := details.(domain.BugFix); ok && s.bugCount > 0 && bug.Number > s.bugCount {
		return nil, errors.NewValidationError(
			fmt.Sprintf("Bug number must be between 1 and %d", s.bugCount),
			map[string]interface{}{"field": "bug_number"})
	}

	sub := &domain.Submission{
		ID:          uuid.New(),
		TeamName:    identity.TeamName,
		Author:      identity.Author,
		Description: strings.TrimSpace(draft.Description),
		Details:     details,
	}
	if err := sub.ValidateDraft(); err != nil {
		return nil, err
	}

	return sub, nil
}

// store obtains the content reference and persists the record
func (s *SubmissionService) store(ctx context.Context, sub *domain.Submission, upload *Upload) (*domain.SubmissionView, error) {
	var objectPath string

	if sub.Details.NeedsUpload() {
		body, contentType, err := s.checkUpload(upload)
		if err != nil {
			submissionCounter.WithLabelValues(string(sub.Kind()), "invalid").Inc()
			return nil, err
		}

		objectPath = s.objectPath(sub, upload.Filename)
		if err := s.storage.Upload(ctx, objectPath, contentType, body); err != nil {
			submissionCounter.WithLabelValues(string(sub.Kind()), "upload_failed").Inc()
			s.logger.WithError(err).WithField("path", objectPath).Error("Upload failed")
			if errors.IsType(err, errors.ErrorTypeUpload) {
				return nil, err
			}
			return nil, errors.NewUploadError("Upload failed", err)
		}
		if upload.Size > 0 {
			uploadBytes.Observe(float64(upload.Size))
		}
		sub.ContentURL = s.storage.PublicURL(objectPath)
	} else if video, ok := sub.Details.(domain.PresentationVideo); ok {
		if s.videos != nil {
			if _, err := s.videos.VerifyVideo(ctx, video.VideoURL); err != nil {
				submissionCounter.WithLabelValues(string(sub.Kind()), "invalid").Inc()
				return nil, err
			}
		}
		sub.ContentURL = video.VideoURL
	}

	if _, err := s.RecordSubmission(ctx, sub); err != nil {
		if objectPath != "" {
			s.removeOrphan(ctx, objectPath)
		}
		return nil, err
	}

	view := domain.NewSubmissionView(sub, s.loc, s.now())
	return &view, nil
}

// RecordSubmission validates sub and persists it as one immutable record.
// The timestamp is assigned by storage. Failures are not retried.
func (s *SubmissionService) RecordSubmission(ctx context.Context, sub *domain.Submission) (uuid.UUID, error) {
	if err := sub.Validate(); err != nil {
		return uuid.Nil, err
	}

	if err := s.repo.Create(ctx, sub); err != nil {
		submissionCounter.WithLabelValues(string(sub.Kind()), "storage_failed").Inc()
		s.logger.WithError(err).WithField("team", sub.TeamName).Error("Failed to record submission")
		return uuid.Nil, errors.NewStorageError("Failed to save submission", err)
	}

	return sub.ID, nil
}

// removeOrphan deletes an uploaded object whose record could not be written
func (s *SubmissionService) removeOrphan(ctx context.Context, objectPath string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := s.storage.Remove(ctx, objectPath); err != nil {
		s.logger.WithError(err).WithField("path", objectPath).Warn("Failed to remove orphaned upload")
	}
}

// checkUpload enforces presence, size and content type and returns a reader
// that still yields the whole body.
func (s *SubmissionService) checkUpload(upload *Upload) (io.Reader, string, error) {
	if upload == nil || upload.Body == nil {
		return nil, "", errors.NewValidationError("A file is required for this submission",
			map[string]interface{}{"field": "file"})
	}

	if s.maxUploadBytes > 0 && upload.Size > s.maxUploadBytes {
		return nil, "", errors.NewValidationError(
			fmt.Sprintf("File is %s; the limit is %s",
				humanize.IBytes(uint64(upload.Size)), humanize.IBytes(uint64(s.maxUploadBytes))),
			map[string]interface{}{"field": "file"})
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(upload.Body, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, "", errors.NewUploadError("Failed to read upload", err)
	}
	head = head[:n]
	if n == 0 {
		return nil, "", errors.NewValidationError("The uploaded file is empty",
			map[string]interface{}{"field": "file"})
	}

	// The sniffed type wins unless sniffing is inconclusive
	contentType := baseMediaType(http.DetectContentType(head))
	if contentType == "application/octet-stream" {
		if declared := baseMediaType(upload.ContentType); declared != "" {
			contentType = declared
		}
	}

	if !s.contentTypeAllowed(contentType) {
		return nil, "", errors.NewValidationError(
			fmt.Sprintf("Files of type %s are not accepted", contentType),
			map[string]interface{}{"field": "file", "content_type": contentType})
	}

	return io.MultiReader(bytes.NewReader(head), upload.Body), contentType, nil
}

func (s *SubmissionService) contentTypeAllowed(contentType string) bool {
	for _, g := range s.allowed {
		if g.Match(contentType) {
			return true
		}
	}
	return false
}

var unsafePathChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// objectPath is <kind>/<team>/<submission id><ext>
func (s *SubmissionService) objectPath(sub *domain.Submission, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) > 6 || unsafePathChars.MatchString(ext) {
		ext = ""
	}
	team := strings.Trim(unsafePathChars.ReplaceAllString(sub.TeamName, "_"), "_")
	if team == "" {
		team = "team"
	}
	return fmt.Sprintf("%ss/%s/%s%s", sub.Kind(), team, sub.ID, ext)
}

func baseMediaType(ct string) string {
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

// ListSubmissions returns the team's records of kind, newest first
func (s *SubmissionService) ListSubmissions(ctx context.Context, teamName string, kind domain.Kind) ([]*domain.Submission, error) {
	subs, err := s.repo.List(ctx, teamName, kind)
	if err != nil {
		return nil, errors.NewStorageError("Failed to load submissions", err)
	}
	return subs, nil
}

// History returns the caller's team history of kind rendered for display
func (s *SubmissionService) History(ctx context.Context, identity *domain.Identity, kind domain.Kind) ([]domain.SubmissionView, error) {
	subs, err := s.ListSubmissions(ctx, identity.TeamName, kind)
	if err != nil {
		return nil, err
	}
	return domain.BuildViews(subs, s.loc, s.now()), nil
}

// BugCatalogue lists every bug with the team's latest fix for it
func (s *SubmissionService) BugCatalogue(ctx context.Context, identity *domain.Identity) ([]domain.BugStatus, error) {
	views, err := s.History(ctx, identity, domain.KindBug)
	if err != nil {
		return nil, err
	}
	return domain.BuildBugCatalogue(s.bugCount, views), nil
}

// GetSubmission returns one record of the caller's team
func (s *SubmissionService) GetSubmission(ctx context.Context, identity *domain.Identity, kind domain.Kind, id uuid.UUID) (*domain.SubmissionView, error) {
	sub, err := s.ownedSubmission(ctx, identity, kind, id)
	if err != nil {
		return nil, err
	}
	view := domain.NewSubmissionView(sub, s.loc, s.now())
	return &view, nil
}

// DeleteSubmission removes exactly one record of the caller's team. Deleting
// a record that no longer exists yields a not found error.
func (s *SubmissionService) DeleteSubmission(ctx context.Context, identity *domain.Identity, kind domain.Kind, id uuid.UUID) error {
	if _, err := s.ownedSubmission(ctx, identity, kind, id); err != nil {
		deleteCounter.WithLabelValues(string(kind), "rejected").Inc()
		return err
	}

	deleted, err := s.repo.Delete(ctx, kind, id)
	if err != nil {
		deleteCounter.WithLabelValues(string(kind), "storage_failed").Inc()
		return errors.NewStorageError("Failed to delete submission", err)
	}
	if !deleted {
		deleteCounter.WithLabelValues(string(kind), "not_found").Inc()
		return errors.NewNotFoundError("Submission not found")
	}

	deleteCounter.WithLabelValues(string(kind), "deleted").Inc()
	s.logger.WithFields(map[string]interface{}{
		"submission_id": id.String(),
		"kind":          string(kind),
		"team":          identity.TeamName,
	}).Info("Submission deleted")
	return nil
}

func (s *SubmissionService) ownedSubmission(ctx context.Context, identity *domain.Identity, kind domain.Kind, id uuid.UUID) (*domain.Submission, error) {
	sub, err := s.repo.Get(ctx, kind, id)
	if err != nil {
		return nil, errors.NewStorageError("Failed to load submission", err)
	}
	if sub == nil {
		return nil, errors.NewNotFoundError("Submission not found")
	}
	if sub.TeamName != identity.TeamName {
		s.logger.WithFields(map[string]interface{}{
			"submission_id": id.String(),
			"owner":         sub.TeamName,
			"caller_team":   identity.TeamName,
		}).Warn("Cross-team submission access rejected")
		return nil, errors.NewAuthorizationError("This submission belongs to another team")
	}
	return sub, nil
}

// validationError turns validator output into a field-level validation error
func validationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return errors.NewValidationError("Invalid submission", nil)
	}

	fields := make(map[string]interface{}, len(verrs))
	for _, fe := range verrs {
		fields[strings.ToLower(fe.Field())] = fe.Tag()
	}
	first := verrs[0]
	return errors.NewValidationError(
		fmt.Sprintf("%s is invalid (%s)", first.Field(), first.Tag()),
		map[string]interface{}{"field": strings.ToLower(first.Field()), "fields": fields})
}
