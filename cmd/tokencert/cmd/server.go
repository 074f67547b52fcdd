package cmd

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/jmcleod/tokencert/api"
	"github.com/jmcleod/tokencert/authorities"
	"github.com/jmcleod/tokencert/certs"
	bboltclients "github.com/jmcleod/tokencert/clients/bbolt"
	"github.com/jmcleod/tokencert/globalconf"
	"github.com/jmcleod/tokencert/internal/util"
	"github.com/jmcleod/tokencert/management"
	"github.com/jmcleod/tokencert/signer/softtoken"
)

var (
	port            int
	dataDir         string
	globalConfPath  string
	authoritiesPath string
	managementURL   string
	tokenName       string
	tlsCert         string
	tlsKey          string
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the certificate lifecycle server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := os.MkdirAll(dataDir, 0o700); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}

		reg, err := bboltclients.NewRegistryFromFile(dataDir+"/clients.db", nil)
		if err != nil {
			return fmt.Errorf("failed to open client registry: %w", err)
		}
		defer reg.Close()

		conf, err := globalconf.LoadStatic(globalConfPath)
		if err != nil {
			return fmt.Errorf("failed to load global configuration: %w", err)
		}
		auth, err := authorities.LoadStatic(authoritiesPath)
		if err != nil {
			return fmt.Errorf("failed to load approved CA profiles: %w", err)
		}

		pin := os.Getenv("TOKENCERT_PIN")
		if pin == "" {
			return errors.New("TOKENCERT_PIN environment variable is required")
		}
		token, err := softtoken.New(tokenName, pin)
		if err != nil {
			return fmt.Errorf("failed to initialize software token: %w", err)
		}
		if err := token.Login(pin); err != nil {
			return fmt.Errorf("failed to log in to software token: %w", err)
		}

		mgmt, err := management.NewHTTPSender(managementURL, nil)
		if err != nil {
			return fmt.Errorf("--management-url: %w", err)
		}
		svc := certs.NewService(certs.Collaborators{
			Signer:      token,
			Clients:     reg,
			GlobalConf:  conf,
			Authorities: auth,
			Management:  mgmt,
		})
		a := api.New(svc)

		r := chi.NewRouter()
		r.Use(middleware.Logger)
		r.Use(middleware.Recoverer)

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})

		r.Mount("/api/v1", a.Router())

		var tlsConfig *tls.Config
		if tlsCert != "" && tlsKey != "" {
			cert, err := tls.LoadX509KeyPair(tlsCert, tlsKey)
			if err != nil {
				return fmt.Errorf("failed to load TLS key pair: %w", err)
			}
			tlsConfig = &tls.Config{
				Certificates: []tls.Certificate{cert},
				MinVersion:   tls.VersionTLS12,
			}
		} else {
			cert, err := util.GenerateSelfSignedCert()
			if err != nil {
				return fmt.Errorf("failed to generate self-signed certificate: %w", err)
			}
			tlsConfig = &tls.Config{
				Certificates: []tls.Certificate{cert},
				MinVersion:   tls.VersionTLS12,
			}
			fmt.Println("Using self-signed runtime generated certificate for TLS")
		}

		server := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			TLSConfig:         tlsConfig,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		// Graceful shutdown on SIGINT/SIGTERM.
		done := make(chan error, 1)
		go func() {
			if err := server.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
				done <- fmt.Errorf("server failed: %w", err)
				return
			}
			done <- nil
		}()

		printBanner()
		fmt.Printf("Starting server on port %d (data: %s)...\n", port, dataDir)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			fmt.Printf("\nReceived %s, shutting down...\n", sig)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			return nil
		case err := <-done:
			return err
		}
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.Flags().IntVarP(&port, "port", "p", 8443, "Port to listen on")
	serverCmd.Flags().StringVar(&dataDir, "data-dir", "./data", "Directory for persistent data")
	serverCmd.Flags().StringVar(&globalConfPath, "global-conf", "./globalconf.yaml", "Path to the global configuration file")
	serverCmd.Flags().StringVar(&authoritiesPath, "authorities", "./authorities.yaml", "Path to the approved CA profiles file")
	serverCmd.Flags().StringVar(&managementURL, "management-url", "", "URL of the central management service (required)")
	serverCmd.Flags().StringVar(&tokenName, "token-name", "softToken-0", "Name of the software token")
	serverCmd.Flags().StringVar(&tlsCert, "tls-cert", "", "Path to TLS certificate file")
	serverCmd.Flags().StringVar(&tlsKey, "tls-key", "", "Path to TLS key file")
}
