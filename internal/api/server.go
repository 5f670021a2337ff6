package api

import (
	"context"

	"railshunt/internal/audit"
	"railshunt/internal/cache"
	"railshunt/internal/config"
)

// Server holds the dependencies every handler needs, wired the way the
// teacher wires Store/Broker in NewServer: backend choice driven by the
// resolved Runtime's DatabaseURL/RedisURL.
type Server struct {
	Runtime *config.Runtime
	Cache   cache.Cache
	Audit   audit.Store
}

// NewServer builds a Server from a resolved Runtime.
func NewServer(rt *config.Runtime) (*Server, error) {
	c, err := cache.New(rt.RedisURL)
	if err != nil {
		return nil, err
	}
	a, err := audit.New(rt.DatabaseURL)
	if err != nil {
		return nil, err
	}
	return &Server{Runtime: rt, Cache: c, Audit: a}, nil
}

func (s *Server) Close(ctx context.Context) error {
	return s.Audit.Close()
}
