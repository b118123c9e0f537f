package gateway

import (
	"net/http"

	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// NewHTTPServer wraps handler with CORS and serves HTTP/2 without TLS
func NewHTTPServer(addr string, handler http.Handler, allowedOrigins []string) *http.Server {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedOrigins:   allowedOrigins,
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Requested-With"},
		AllowCredentials: false,
		MaxAge:           86400,
	})

	return &http.Server{
		Addr:    addr,
		Handler: h2c.NewHandler(c.Handler(handler), &http2.Server{}),
	}
}
