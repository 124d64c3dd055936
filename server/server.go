package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/acme/autocert"
)

const (
	DefaultPort    = "8080"
	DefaultTLSMode = TLSModeAutoCert

	TLSModeAutoCert = "autocert"
	TLSModeFile     = "file"

	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 2 * time.Minute
	shutdownTimeout   = 15 * time.Second
)

type Server struct {
	Host string
	Port string
	TLS  ServerTLS
}

type ServerTLS struct {
	Enabled  bool
	Mode     string
	AutoCert *ServerTLSAutoCert
	CertFile string
	KeyFile  string
}

type ServerTLSAutoCert struct {
	CacheDir string
	Domains  []string
	Email    string
}

type UnsupportedTLSModeError struct {
	Mode string
}

func (err UnsupportedTLSModeError) Error() string {
	return fmt.Sprintf("unsupported tls mode %q", err.Mode)
}

// Run serves handler until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, handler http.Handler) error {
	srv := &http.Server{
		Addr:              net.JoinHostPort(s.Host, s.Port),
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	var challengeSrv *http.Server

	serve := func() error {
		slog.InfoContext(ctx, "server listening", "address", srv.Addr, "tls", false)

		return srv.ListenAndServe()
	}

	if s.TLS.Enabled {
		switch s.TLS.Mode {
		case TLSModeFile:
			serve = func() error {
				slog.InfoContext(ctx, "server listening", "address", srv.Addr, "tls", true)

				return srv.ListenAndServeTLS(s.TLS.CertFile, s.TLS.KeyFile)
			}
		case TLSModeAutoCert:
			if s.TLS.AutoCert == nil || len(s.TLS.AutoCert.Domains) == 0 {
				return errors.New("autocert requires at least one domain")
			}

			manager := &autocert.Manager{
				Prompt:     autocert.AcceptTOS,
				HostPolicy: autocert.HostWhitelist(s.TLS.AutoCert.Domains...),
				Cache:      autocert.DirCache(s.TLS.AutoCert.CacheDir),
				Email:      s.TLS.AutoCert.Email,
			}

			srv.TLSConfig = manager.TLSConfig()

			challengeSrv = &http.Server{
				Addr:              net.JoinHostPort(s.Host, "80"),
				Handler:           manager.HTTPHandler(nil),
				ReadHeaderTimeout: readHeaderTimeout,
			}

			serve = func() error {
				slog.InfoContext(ctx, "server listening", "address", domainsToHTTPSAddress(s.TLS.AutoCert.Domains), "tls", true)

				return srv.ListenAndServeTLS("", "")
			}
		default:
			return UnsupportedTLSModeError{Mode: s.TLS.Mode}
		}
	}

	errCh := make(chan error, 2)

	if challengeSrv != nil {
		go func() {
			err := challengeSrv.ListenAndServe()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("failed to serve acme challenges: %w", err)
			}
		}()
	}

	go func() {
		err := serve()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to serve: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.InfoContext(ctx, "shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if challengeSrv != nil {
		err := challengeSrv.Shutdown(shutdownCtx)
		if err != nil {
			slog.WarnContext(ctx, "failed to shut down acme challenge server", "error", err)
		}
	}

	err := srv.Shutdown(shutdownCtx)
	if err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}

	return nil
}

func domainsToHTTPSAddress(domains []string) string {
	addresses := make([]string, 0, len(domains))
	for _, domain := range domains {
		addresses = append(addresses, "https://"+domain)
	}

	return strings.Join(addresses, ", ")
}
