package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	middlewareChi "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	"github.com/Vishalkumjan/realtime-code-collab/internal/security"
	httpmw "github.com/Vishalkumjan/realtime-code-collab/internal/transport/http/middleware"
	"github.com/Vishalkumjan/realtime-code-collab/internal/transport/ws"
	"github.com/Vishalkumjan/realtime-code-collab/pkg/metrics"
)

func NewRouter(h *Handler, wsServer *ws.Server, signer *security.JWTSigner, rdb *redis.Client, corsAllow []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middlewareChi.RequestID)
	r.Use(middlewareChi.RealIP)
	r.Use(middlewareChi.Recoverer)
	r.Use(httpmw.RequestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsAllow,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// realtime endpoint, auth handled inside the gateway
	r.Get("/ws", wsServer.HandleWS)

	r.Route("/api", func(api chi.Router) {
		api.Use(middlewareChi.Timeout(30 * time.Second))
		api.Use(httpmw.RateLimit(rdb, 20))

		api.Route("/auth", func(ar chi.Router) {
			ar.Post("/register", h.Register)
			ar.Post("/login", h.Login)
			ar.With(httpmw.Auth(signer)).Get("/me", h.Me)
		})

		api.Route("/rooms", func(rm chi.Router) {
			// reads are open so guests can load a room before joining
			rm.Get("/{id}", h.GetRoom)
			rm.Get("/{id}/messages", h.GetChatHistory)
			rm.Get("/{id}/files", h.ListFiles)

			rm.Group(func(pr chi.Router) {
				pr.Use(httpmw.Auth(signer))
				pr.Post("/", h.CreateRoom)
				pr.Post("/{id}/join", h.JoinRoom)
				pr.Delete("/{id}", h.DeleteRoom)
				pr.Post("/{id}/files", h.UploadFile)
				pr.Delete("/{id}/files/{filename}", h.DeleteFile)
			})
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	return r
}
