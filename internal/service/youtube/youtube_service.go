package youtube

import (
	"context"

	"compdash/internal/domain"
	"compdash/pkg/errors"
	"compdash/pkg/logger"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// Service verifies presentation video links against the YouTube Data API
type Service struct {
	yt     *youtube.Service
	logger *logger.Logger
}

// NewService creates a YouTube service authenticated with an API key. Extra
// client options (for example option.WithEndpoint in tests) are appended.
func NewService(ctx context.Context, apiKey string, logger *logger.Logger, opts ...option.ClientOption) (*Service, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)

	yt, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.NewInternalError("Failed to initialize YouTube service", err)
	}

	return &Service{yt: yt, logger: logger}, nil
}

// VerifyVideo checks that link names an existing, public video
func (s *Service) VerifyVideo(ctx context.Context, link string) (*domain.VideoInfo, error) {
	id := domain.ExtractVideoID(link)
	if id == "" {
		return nil, errors.NewValidationError("A valid YouTube link is required for a presentation video",
			map[string]interface{}{"field": "video_url"})
	}

	resp, err := s.yt.Videos.List([]string{"snippet", "status"}).Id(id).Context(ctx).Do()
	if err != nil {
		s.logger.WithError(err).WithField("video_id", id).Error("Failed to look up YouTube video")
		return nil, errors.NewExternalError("Failed to verify YouTube video", err)
	}

	if len(resp.Items) == 0 {
		return nil, errors.NewValidationError("YouTube video not found",
			map[string]interface{}{"field": "video_url", "video_id": id})
	}

	video := resp.Items[0]
	info := &domain.VideoInfo{ID: video.Id}
	if video.Snippet != nil {
		info.Title = video.Snippet.Title
		info.ChannelTitle = video.Snippet.ChannelTitle
	}
	if video.Status != nil {
		info.Embeddable = video.Status.Embeddable
		if video.Status.PrivacyStatus == "private" {
			return nil, errors.NewValidationError("The presentation video is private; make it public or unlisted",
				map[string]interface{}{"field": "video_url", "video_id": id})
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"video_id": id,
		"title":    info.Title,
	}).Debug("YouTube video verified")

	return info, nil
}
