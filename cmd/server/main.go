package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mr-tron/base58"
	"golang.org/x/sync/errgroup"

	"certis/internal/attestation"
	"certis/internal/authn"
	challengestore "certis/internal/authn/store/challenge"
	sessionstore "certis/internal/authn/store/session"
	"certis/internal/authn/workers/cleanup"
	"certis/internal/claim"
	"certis/internal/ctype"
	"certis/internal/identity"
	"certis/internal/keyring"
	"certis/internal/platform/config"
	"certis/internal/platform/httpserver"
	"certis/internal/platform/logger"
	"certis/internal/platform/metrics"
	"certis/internal/platform/tracer"
	"certis/internal/token"
	httptransport "certis/internal/transport/http"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.New()

	log.Info("initializing certis",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
	)

	m := metrics.New()
	tr := tracer.NewOTel()

	signer, directory, err := buildKeyring(cfg)
	if err != nil {
		log.Error("keyring init failed", "error", err)
		os.Exit(1)
	}

	challenges := challengestore.NewInMemoryStore()
	sessions := sessionstore.NewInMemoryStore()
	identities := identity.NewInMemoryStore()

	authnSvc := authn.NewService(
		challenges, sessions, identities, directory,
		token.NewService(cfg.JWTSigningKey, "certis"),
		authn.WithLogger(log),
		authn.WithMetrics(m),
		authn.WithTracer(tr),
		authn.WithChallengeTTL(cfg.ChallengeTTL),
		authn.WithSessionTTL(cfg.SessionTTL),
	)
	ctypeSvc := ctype.NewService(ctype.NewInMemoryStore(),
		ctype.WithLogger(log),
		ctype.WithMetrics(m),
	)
	claimSvc := claim.NewService(claim.NewInMemoryStore(), ctypeSvc,
		claim.WithLogger(log),
		claim.WithMetrics(m),
	)
	attestationSvc := attestation.NewService(
		attestation.NewInMemoryStore(), claimSvc, signer, directory,
		attestation.WithLogger(log),
		attestation.WithMetrics(m),
		attestation.WithTracer(tr),
	)

	gc, err := cleanup.New(challenges, sessions,
		cleanup.WithInterval(cfg.CleanupInterval),
		cleanup.WithLogger(log),
		cleanup.WithMetrics(m),
	)
	if err != nil {
		log.Error("cleanup init failed", "error", err)
		os.Exit(1)
	}

	handler := httptransport.NewHandler(authnSvc, ctypeSvc, claimSvc, attestationSvc, identities, log, m)
	router := httptransport.NewRouter(handler, httptransport.RouterConfig{
		AuthRateLimit: cfg.AuthRateLimit,
		AuthRateBurst: cfg.AuthRateBurst,
		Environment:   cfg.Environment,
	}, log)

	srv := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		err := gc.Start(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// buildKeyring constructs the signer and directory collaborators. Dev setups
// run fully local: the signer key comes from CERTIS_SIGNER_SEED (base58,
// 32 bytes) or is generated fresh, and the signer registers itself in the
// in-memory directory so it can attest immediately.
func buildKeyring(cfg config.Server) (keyring.Signer, keyring.Directory, error) {
	var signer *keyring.LocalSigner
	var err error
	if seed := os.Getenv("CERTIS_SIGNER_SEED"); seed != "" {
		raw, decodeErr := base58.Decode(seed)
		if decodeErr != nil {
			return nil, nil, decodeErr
		}
		signer, err = keyring.NewSignerFromSeed(raw)
	} else {
		signer, err = keyring.GenerateSigner()
	}
	if err != nil {
		return nil, nil, err
	}

	directory := keyring.NewLocalDirectory()
	pub, err := signer.PublicKey(context.Background())
	if err != nil {
		return nil, nil, err
	}
	directory.Register(signer.DID(), pub)

	return keyring.NewTimeoutSigner(signer, cfg.UpstreamTimeout),
		keyring.NewTimeoutDirectory(directory, cfg.UpstreamTimeout),
		nil
}
