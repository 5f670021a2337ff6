package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"railshunt/internal/api"
	"railshunt/internal/config"
)

func main() {
	rt, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	srv, err := api.NewServer(rt)
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	limiter := rate.NewLimiter(rate.Limit(rt.RateRPS), rt.RateBurst)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", srv.HealthHandler)
	mux.Handle("/solve", rateLimited(limiter, http.HandlerFunc(srv.SolveHandler)))
	mux.Handle("/metrics", api.MetricsHandler())
	mux.HandleFunc("/debug/info", srv.DebugInfoHandler)

	httpSrv := &http.Server{
		Addr:              ":" + rt.Port,
		Handler:           logMiddleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("railshunt listening on :%s", rt.Port)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(ctx)
	_ = srv.Close(ctx)
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s %v", r.RemoteAddr, r.Method, r.URL.Path, time.Since(start))
	})
}

// rateLimited gates /solve per §6's rate-limit requirement, rejecting
// with 429 rather than queuing once SOLVE_RATE_RPS/SOLVE_RATE_BURST is
// exhausted.
func rateLimited(l *rate.Limiter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow() {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
