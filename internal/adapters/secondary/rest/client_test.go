package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiback/tiback-client/internal/core/domain"
	apperrors "github.com/tiback/tiback-client/internal/core/errors"
	"github.com/tiback/tiback-client/internal/core/ports"
	"github.com/tiback/tiback-client/internal/infrastructure/logging"
)

func newTestClient(t *testing.T, router http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	client, err := NewClient(ClientConfig{
		BaseURL: server.URL + "/",
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	return client
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(ClientConfig{})
	assert.Error(t, err)

	_, err = NewClient(ClientConfig{BaseURL: "ftp://example.com"})
	assert.Error(t, err)

	client, err := NewClient(ClientConfig{BaseURL: "https://api.example.com/"})
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", client.BaseURL())
}

func TestLogin(t *testing.T) {
	router := chi.NewRouter()
	router.Post("/api/login", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get(RequestIDHeader))

		var creds domain.Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		if creds.Password != "secret1" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Credenciales inválidas"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"accessToken":  "access",
			"refreshToken": "refresh",
			"role":         "cliente",
			"user":         map[string]any{"id": 7, "email": creds.Email, "nombre": "Ana"},
		})
	})
	client := newTestClient(t, router)
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		resp, err := client.Login(ctx, domain.Credentials{Email: "ana@example.com", Password: "secret1"})
		require.NoError(t, err)
		assert.Equal(t, "access", resp.AccessToken)
		assert.Equal(t, "refresh", resp.RefreshToken)
		assert.Equal(t, domain.RoleCliente, resp.Role)
		require.NotNil(t, resp.User)
		assert.Equal(t, int64(7), resp.User.ID)
	})

	t.Run("rejected credentials carry the backend message", func(t *testing.T) {
		_, err := client.Login(ctx, domain.Credentials{Email: "ana@example.com", Password: "nope"})
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "Credenciales inválidas", apiErr.PublicMessage())
	})
}

func TestLoginWithoutTokenIsMalformed(t *testing.T) {
	router := chi.NewRouter()
	router.Post("/api/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"user": map[string]any{"id": 1}})
	})
	client := newTestClient(t, router)

	_, err := client.Login(context.Background(), domain.Credentials{Email: "a@b.co", Password: "x"})
	assert.ErrorIs(t, err, apperrors.ErrMalformedResponse)
}

func TestRefresh(t *testing.T) {
	router := chi.NewRouter()
	router.Post("/api/refresh", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		switch body["refreshToken"] {
		case "good":
			writeJSON(w, http.StatusOK, map[string]string{"accessToken": "a2", "refreshToken": "r2"})
		case "partial":
			writeJSON(w, http.StatusOK, map[string]string{"accessToken": "a2"})
		default:
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid refresh token"})
		}
	})
	client := newTestClient(t, router)
	ctx := context.Background()

	pair, err := client.Refresh(ctx, "good")
	require.NoError(t, err)
	assert.Equal(t, domain.TokenPair{AccessToken: "a2", RefreshToken: "r2"}, *pair)

	_, err = client.Refresh(ctx, "partial")
	assert.ErrorIs(t, err, apperrors.ErrMalformedResponse)

	_, err = client.Refresh(ctx, "bad")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestListTicketsUsesRoleScopedPath(t *testing.T) {
	var paths []string
	router := chi.NewRouter()
	handler := func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		paths = append(paths, r.URL.Path)
		writeJSON(w, http.StatusOK, []map[string]any{{"id": 1, "titulo": "Printer", "estado": "creado"}})
	}
	router.Get("/api/tickets", handler)
	router.Get("/api/tickets/{role}", handler)
	client := newTestClient(t, router)

	for _, role := range domain.AllRoles {
		tickets, err := client.ListTickets(context.Background(), "tok", role)
		require.NoError(t, err)
		require.Len(t, tickets, 1)
		assert.Equal(t, "Printer", tickets[0].Title)
	}

	assert.Equal(t, []string{
		"/api/tickets/cliente",
		"/api/tickets/analista",
		"/api/tickets/supervisor",
		"/api/tickets",
	}, paths)
}

func TestGetTicketUnwrapsEnvelope(t *testing.T) {
	router := chi.NewRouter()
	router.Get("/api/tickets/{id}", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "id") != "42" {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Ticket no encontrado"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ticket": map[string]any{"id": 42, "titulo": "VPN"}})
	})
	client := newTestClient(t, router)

	ticket, err := client.GetTicket(context.Background(), "tok", 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), ticket.ID)
	assert.Equal(t, "VPN", ticket.Title)

	_, err = client.GetTicket(context.Background(), "tok", 43)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestTicketWrites(t *testing.T) {
	router := chi.NewRouter()
	router.Post("/api/tickets", func(w http.ResponseWriter, r *http.Request) {
		var params domain.NewTicketParams
		require.NoError(t, json.NewDecoder(r.Body).Decode(&params))
		writeJSON(w, http.StatusCreated, map[string]any{"id": 9, "titulo": params.Title, "prioridad": params.Priority})
	})
	router.Put("/api/tickets/{id}/estado", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeJSON(w, http.StatusOK, map[string]any{"ticket": map[string]any{"id": 9, "estado": body["estado"]}})
	})
	router.Put("/api/tickets/{id}/asignar", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.EqualValues(t, 3, body["id_analista"])
		assert.Equal(t, "urgent", body["comentario"])
		writeJSON(w, http.StatusOK, map[string]any{"id": 9})
	})
	client := newTestClient(t, router)
	ctx := context.Background()

	created, err := client.CreateTicket(ctx, "tok", domain.NewTicketParams{Title: "Disk", Description: "full", Priority: domain.PriorityAlta})
	require.NoError(t, err)
	assert.Equal(t, int64(9), created.ID)
	assert.Equal(t, domain.PriorityAlta, created.Priority)

	updated, err := client.UpdateTicketStatus(ctx, "tok", 9, domain.StatusEnProceso)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusEnProceso, updated.Status)

	_, err = client.AssignTicket(ctx, "tok", ports.AssignTicketParams{TicketID: 9, AnalystID: 3, Comment: "urgent"})
	require.NoError(t, err)
}

func TestCommentsUsersAndChat(t *testing.T) {
	router := chi.NewRouter()
	router.Get("/api/tickets/{id}/comentarios", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"comentarios": []map[string]any{{"id": 1, "id_ticket": 5, "texto": "hola"}}})
	})
	router.Post("/api/comentarios", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeJSON(w, http.StatusCreated, map[string]any{"id": 2, "id_ticket": body["id_ticket"], "texto": body["texto"]})
	})
	router.Get("/api/analistas", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]any{{"id": 3, "email": "an@example.com"}})
	})
	router.Get("/api/tickets/{id}/chat-supervisor-analista", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]any{{"id": 4, "id_ticket": 5, "mensaje": "revisa"}})
	})
	router.Post("/api/chat-analista-cliente", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeJSON(w, http.StatusCreated, map[string]any{"id": 5, "id_ticket": body["id_ticket"], "mensaje": body["mensaje"]})
	})
	client := newTestClient(t, router)
	ctx := context.Background()

	comments, err := client.ListComments(ctx, "tok", 5)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "hola", comments[0].Text)

	comment, err := client.CreateComment(ctx, "tok", 5, "nuevo")
	require.NoError(t, err)
	assert.Equal(t, int64(5), comment.TicketID)
	assert.Equal(t, "nuevo", comment.Text)

	analysts, err := client.ListUsers(ctx, "tok", domain.RoleAnalista)
	require.NoError(t, err)
	require.Len(t, analysts, 1)
	assert.Equal(t, int64(3), analysts[0].ID)

	_, err = client.ListUsers(ctx, "tok", domain.Role("root"))
	assert.Error(t, err)

	messages, err := client.ListChatMessages(ctx, "tok", domain.ChatSupervisorAnalyst, 5)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "revisa", messages[0].Text)

	sent, err := client.SendChatMessage(ctx, "tok", domain.ChatAnalystClient, 5, "listo")
	require.NoError(t, err)
	assert.Equal(t, "listo", sent.Text)
}

func TestMultipartUploads(t *testing.T) {
	router := chi.NewRouter()
	router.Post("/api/upload-image", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("image")
		require.NoError(t, err)
		defer file.Close()
		content, _ := io.ReadAll(file)
		assert.Equal(t, "shot.png", header.Filename)
		assert.Equal(t, "png-bytes", string(content))
		writeJSON(w, http.StatusOK, map[string]string{"url": "https://cdn.example.com/shot.png"})
	})
	router.Post("/api/analyze-image", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "12", r.FormValue("ticket_id"))
		assert.Equal(t, "true", r.FormValue("use_ticket_context"))
		assert.Equal(t, "Monitor", r.FormValue("ticket_title"))
		writeJSON(w, http.StatusOK, map[string]string{"analysis": "cable suelto"})
	})
	client := newTestClient(t, router)
	ctx := context.Background()

	uploaded, err := client.UploadImage(ctx, "tok", "shot.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/shot.png", uploaded.URL)

	analysis, err := client.AnalyzeImage(ctx, "tok", "shot.png", strings.NewReader("png-bytes"),
		domain.ImageAnalysisRequest{TicketID: 12, TicketTitle: "Monitor"})
	require.NoError(t, err)
	assert.Equal(t, "cable suelto", analysis.Analysis)
}

func TestAssistanceEndpoints(t *testing.T) {
	router := chi.NewRouter()
	router.Post("/api/tickets/{id}/recomendacion-ia", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"message":       "ok",
			"recomendacion": map[string]any{"diagnostico": "driver"},
		})
	})
	router.Get("/api/tickets/{id}/recomendaciones-similares", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"ticket_actual":     map[string]any{"id": 1},
			"tickets_similares": []map[string]any{{"id": 2}, {"id": 3}},
		})
	})
	router.Get("/api/heatmap-data", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"data":         []map[string]float64{{"lat": 4.6, "lng": -74.1}},
			"total_points": 1,
		})
	})
	client := newTestClient(t, router)
	ctx := context.Background()

	rec, err := client.Recommend(ctx, "tok", 1)
	require.NoError(t, err)
	assert.Equal(t, "driver", rec.Recommendation.Diagnosis)

	similar, err := client.SimilarTickets(ctx, "tok", 1)
	require.NoError(t, err)
	assert.Len(t, similar.Similar, 2)

	heat, err := client.Heatmap(ctx, "tok")
	require.NoError(t, err)
	require.Len(t, heat.Data, 1)
	assert.Equal(t, 1, heat.TotalPoints)
}

func TestAPIErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
		message  string
	}{
		{"forbidden", http.StatusForbidden, `{"message":"No autorizado"}`, apperrors.ErrForbidden, "No autorizado"},
		{"bad request msg", http.StatusBadRequest, `{"msg":"faltan campos"}`, apperrors.ErrBadRequest, "faltan campos"},
		{"rate limited", http.StatusTooManyRequests, `{"error":"slow down"}`, apperrors.ErrRateLimited, "slow down"},
		{"server error html", http.StatusBadGateway, `<html>bad gateway</html>`, apperrors.ErrUnavailable, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := error(newAPIError(tt.status, []byte(tt.body)))
			assert.True(t, errors.Is(err, tt.sentinel))
			assert.False(t, errors.Is(err, apperrors.ErrNotFound))

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.message, apiErr.PublicMessage())
			if tt.message == "" {
				assert.Contains(t, apiErr.Error(), "bad gateway")
			}
		})
	}
}

func TestDecodeEnvelope(t *testing.T) {
	var ids []int
	require.NoError(t, decodeEnvelope([]byte(`{"data":[1,2]}`), &ids, "tickets", "data"))
	assert.Equal(t, []int{1, 2}, ids)

	ids = nil
	require.NoError(t, decodeEnvelope([]byte(`[3]`), &ids, "data"))
	assert.Equal(t, []int{3}, ids)

	var obj struct {
		ID int `json:"id"`
	}
	require.NoError(t, decodeEnvelope([]byte(`{"data":null,"id":4}`), &obj, "data"))
	assert.Equal(t, 4, obj.ID)

	var msg domain.ChatMessage
	require.NoError(t, decodeEnvelope([]byte(`{"id":9,"id_ticket":5,"mensaje":"hola"}`), &msg, "mensaje", "data"))
	assert.Equal(t, int64(9), msg.ID)
	assert.Equal(t, "hola", msg.Text)

	msg = domain.ChatMessage{}
	require.NoError(t, decodeEnvelope([]byte(`{"mensaje":{"id":10,"mensaje":"envuelto"}}`), &msg, "mensaje", "data"))
	assert.Equal(t, int64(10), msg.ID)
	assert.Equal(t, "envuelto", msg.Text)
}

func TestRequestIDPropagates(t *testing.T) {
	router := chi.NewRouter()
	router.Get("/api/heatmap-data", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "req-123", r.Header.Get(RequestIDHeader))
		writeJSON(w, http.StatusOK, map[string]any{"data": []any{}})
	})
	client := newTestClient(t, router)

	ctx := logging.WithRequestID(context.Background(), "req-123")
	_, err := client.Heatmap(ctx, "tok")
	require.NoError(t, err)
}
