package domain

import "encoding/json"

// HeatmapPoint is one geolocated ticket returned by the heatmap endpoint.
type HeatmapPoint struct {
	TicketID int64   `json:"ticket_id,omitempty"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Status   string  `json:"estado,omitempty"`
}

// HeatmapData is the envelope around heatmap points.
type HeatmapData struct {
	Message     string         `json:"message,omitempty"`
	Data        []HeatmapPoint `json:"data"`
	TotalPoints int            `json:"total_points"`
}

// Recommendation is the AI-generated suggestion for resolving a ticket.
type Recommendation struct {
	Diagnosis       string   `json:"diagnostico"`
	Steps           []string `json:"pasos_solucion,omitempty"`
	EstimatedTime   string   `json:"tiempo_estimado,omitempty"`
	Difficulty      string   `json:"nivel_dificultad,omitempty"`
	Resources       []string `json:"recursos_necesarios,omitempty"`
	AdditionalNotes []string `json:"recomendaciones_adicionales,omitempty"`
}

// RecommendationResponse wraps the recommendation returned by the backend.
type RecommendationResponse struct {
	Message        string         `json:"message,omitempty"`
	Recommendation Recommendation `json:"recomendacion"`
}

// SimilarTickets pairs a ticket with previously solved tickets that resemble it.
type SimilarTickets struct {
	Current *Ticket  `json:"ticket_actual"`
	Similar []Ticket `json:"tickets_similares"`
}

// ImageAnalysis is the result returned by the image analysis endpoint.
type ImageAnalysis struct {
	Analysis string          `json:"analysis"`
	Message  string          `json:"message,omitempty"`
	Details  json.RawMessage `json:"details,omitempty"`
}

// ImageAnalysisRequest carries the optional ticket context sent with an image.
type ImageAnalysisRequest struct {
	TicketID          int64
	TicketTitle       string
	TicketDescription string
	AdditionalDetails string
}

// UploadedImage is the result of an image upload.
type UploadedImage struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id,omitempty"`
}
