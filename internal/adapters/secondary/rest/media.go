package rest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/tiback/tiback-client/internal/core/domain"
)

// UploadImage posts an image as multipart field "image" to /api/upload-image.
func (c *Client) UploadImage(ctx context.Context, token, filename string, image io.Reader) (*domain.UploadedImage, error) {
	body, contentType, err := multipartBody(filename, image, nil)
	if err != nil {
		return nil, err
	}

	raw, err := c.doRequest(ctx, http.MethodPost, "/api/upload-image", token, contentType, body)
	if err != nil {
		return nil, err
	}

	var uploaded domain.UploadedImage
	if err := decodeEnvelope(raw, &uploaded, "data"); err != nil {
		return nil, fmt.Errorf("rest: failed to decode upload response: %w", err)
	}
	if uploaded.URL == "" {
		return nil, fmt.Errorf("rest: upload response has no url")
	}
	return &uploaded, nil
}

// AnalyzeImage sends an image, with optional ticket context, to the AI analysis endpoint.
func (c *Client) AnalyzeImage(ctx context.Context, token, filename string, image io.Reader, req domain.ImageAnalysisRequest) (*domain.ImageAnalysis, error) {
	fields := map[string]string{}
	if req.TicketID > 0 {
		fields["ticket_id"] = strconv.FormatInt(req.TicketID, 10)
		fields["use_ticket_context"] = "true"
	}
	if req.TicketTitle != "" {
		fields["ticket_title"] = req.TicketTitle
	}
	if req.TicketDescription != "" {
		fields["ticket_description"] = req.TicketDescription
	}
	if req.AdditionalDetails != "" {
		fields["additional_details"] = req.AdditionalDetails
	}

	body, contentType, err := multipartBody(filename, image, fields)
	if err != nil {
		return nil, err
	}

	raw, err := c.doRequest(ctx, http.MethodPost, "/api/analyze-image", token, contentType, body)
	if err != nil {
		return nil, err
	}

	var analysis domain.ImageAnalysis
	if err := decodeEnvelope(raw, &analysis); err != nil {
		return nil, fmt.Errorf("rest: failed to decode analysis response: %w", err)
	}
	return &analysis, nil
}

func (c *Client) Recommend(ctx context.Context, token string, ticketID int64) (*domain.RecommendationResponse, error) {
	var resp domain.RecommendationResponse
	if err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/api/tickets/%d/recomendacion-ia", ticketID), token, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) SimilarTickets(ctx context.Context, token string, ticketID int64) (*domain.SimilarTickets, error) {
	var resp domain.SimilarTickets
	if err := c.getEnvelope(ctx, fmt.Sprintf("/api/tickets/%d/recomendaciones-similares", ticketID), token, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Heatmap(ctx context.Context, token string) (*domain.HeatmapData, error) {
	var resp domain.HeatmapData
	if err := c.getEnvelope(ctx, "/api/heatmap-data", token, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func multipartBody(filename string, file io.Reader, fields map[string]string) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("image", filename)
	if err != nil {
		return nil, "", fmt.Errorf("rest: failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", fmt.Errorf("rest: failed to read image: %w", err)
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("rest: failed to write form field %s: %w", k, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("rest: failed to finish form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
