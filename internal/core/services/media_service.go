package services

import (
	"context"
	"io"
	"log/slog"

	"github.com/tiback/tiback-client/internal/core/domain"
	"github.com/tiback/tiback-client/internal/core/ports"
	"github.com/tiback/tiback-client/internal/core/store"
)

// MediaService covers image upload, AI assistance and the heatmap. None of
// these results are cached in the store.
type MediaService struct {
	resource
	api      ports.MediaAPI
	uploader ports.ImageUploader
}

// NewMediaService creates a new media service. uploader decides where images
// are stored: the backend or an object store.
func NewMediaService(api ports.MediaAPI, uploader ports.ImageUploader, st *store.Store, logger *slog.Logger) *MediaService {
	return &MediaService{
		resource: newResource(st, logger, "media_service"),
		api:      api,
		uploader: uploader,
	}
}

func (s *MediaService) UploadImage(ctx context.Context, filename string, image io.Reader) (*domain.UploadedImage, error) {
	token, err := s.begin()
	if err != nil {
		return nil, err
	}
	uploaded, err := s.uploader.UploadImage(ctx, token, filename, image)
	if err != nil {
		return nil, s.fail("upload image", err)
	}
	s.done()
	return uploaded, nil
}

func (s *MediaService) AnalyzeImage(ctx context.Context, filename string, image io.Reader, req domain.ImageAnalysisRequest) (*domain.ImageAnalysis, error) {
	token, err := s.begin()
	if err != nil {
		return nil, err
	}
	analysis, err := s.api.AnalyzeImage(ctx, token, filename, image, req)
	if err != nil {
		return nil, s.fail("analyze image", err)
	}
	s.done()
	return analysis, nil
}

// Recommend asks the backend for an AI diagnosis of ticketID.
func (s *MediaService) Recommend(ctx context.Context, ticketID int64) (*domain.RecommendationResponse, error) {
	token, err := s.begin()
	if err != nil {
		return nil, err
	}
	rec, err := s.api.Recommend(ctx, token, ticketID)
	if err != nil {
		return nil, s.fail("generate recommendation", err)
	}
	s.done()
	return rec, nil
}

func (s *MediaService) SimilarTickets(ctx context.Context, ticketID int64) (*domain.SimilarTickets, error) {
	token, err := s.begin()
	if err != nil {
		return nil, err
	}
	similar, err := s.api.SimilarTickets(ctx, token, ticketID)
	if err != nil {
		return nil, s.fail("fetch similar tickets", err)
	}
	s.done()
	return similar, nil
}

func (s *MediaService) Heatmap(ctx context.Context) (*domain.HeatmapData, error) {
	token, err := s.begin()
	if err != nil {
		return nil, err
	}
	data, err := s.api.Heatmap(ctx, token)
	if err != nil {
		return nil, s.fail("fetch heatmap", err)
	}
	s.done()
	return data, nil
}
