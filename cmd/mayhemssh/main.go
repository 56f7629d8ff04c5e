// Package main implements the SSH server that serves the storefront TUI.
package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/activeterm"
	"github.com/charmbracelet/wish/bubbletea"
	wishlog "github.com/charmbracelet/wish/logging"
	gossh "golang.org/x/crypto/ssh"

	"github.com/thomas/mayhem-terminal-go/internal/admin"
	"github.com/thomas/mayhem-terminal-go/internal/auth"
	"github.com/thomas/mayhem-terminal-go/internal/catalog"
	"github.com/thomas/mayhem-terminal-go/internal/config"
	"github.com/thomas/mayhem-terminal-go/internal/logging"
	"github.com/thomas/mayhem-terminal-go/internal/pricing"
	"github.com/thomas/mayhem-terminal-go/internal/session"
	"github.com/thomas/mayhem-terminal-go/internal/storage"
	"github.com/thomas/mayhem-terminal-go/internal/tui"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", "err", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	// Ensure host key exists
	if err := ensureHostKey(logger, cfg.SSHHostKeyPath); err != nil {
		logger.Fatal("Failed to ensure host key", "err", err)
	}

	// Load allowlist if in allowlist mode
	var allowlist *auth.Allowlist
	if cfg.SSHAuthMode == config.AuthModeAllowlist {
		var skipped int
		allowlist, skipped, err = auth.LoadAllowlist(cfg.AllowlistPath)
		if err != nil {
			if errors.Is(err, auth.ErrAllowlistNotFound) {
				logger.Info("Creating empty allowlist", "path", cfg.AllowlistPath)
				if err := auth.CreateEmptyAllowlist(cfg.AllowlistPath); err != nil {
					logger.Fatal("Failed to create allowlist", "err", err)
				}
				logger.Info("Add your SSH public key to the allowlist and restart")
				os.Exit(1)
			}
			logger.Fatal("Failed to load allowlist", "err", err)
		}
		if skipped > 0 {
			logger.Warn("Skipped unparsable allowlist lines", "count", skipped)
		}
		if allowlist.Len() == 0 {
			logger.Warn("Allowlist is empty, no connections will be accepted", "path", cfg.AllowlistPath)
		}
		logger.Info("Loaded allowlist", "keys", allowlist.Len())
	} else {
		logger.Warn("Running in PUBLIC mode, anyone can connect")
	}

	// Shopper storage
	store, err := openStore(cfg)
	if err != nil {
		logger.Fatal("Failed to open storage", "driver", cfg.StorageDriver, "err", err)
	}
	defer store.Close()

	// Catalog Store client and shared read caches
	var clientOpts []catalog.ClientOption
	if cfg.SupabaseAnonKey != "" {
		clientOpts = append(clientOpts, catalog.WithAPIKey(cfg.SupabaseAnonKey))
	}
	client := catalog.NewClient(cfg.SupabaseURL, clientOpts...)
	storefront := catalog.NewStorefront(client, cfg.CacheTTL)

	promos := loadPromoCodes(logger, client)

	rates := pricing.Rates{
		FreeShippingThreshold: cfg.FreeShippingThreshold,
		FlatShippingFee:       cfg.FlatShippingFee,
		TaxRate:               cfg.TaxRate,
	}
	if err := rates.Validate(); err != nil {
		logger.Fatal("Invalid pricing rates", "err", err)
	}
	if rates.FlatShippingFee != pricing.DefaultFlatShippingFee {
		logger.Warn("Flat shipping fee differs from the storefront default",
			"configured", rates.FlatShippingFee, "default", pricing.DefaultFlatShippingFee)
	}

	// A nil provider disables the admin panel.
	var adminProvider auth.Provider
	if cfg.AdminEnabled() {
		adminProvider = auth.NewStaticProvider(cfg.AdminEmail, cfg.AdminPassword, cfg.AdminTokenSecret, auth.DefaultTokenTTL)
		logger.Info("Admin panel enabled", "email", cfg.AdminEmail)
	}

	sessionOpts := session.Options{
		Store:          store,
		Promos:         promos,
		Admin:          adminProvider,
		Customers:      client,
		Logger:         logger,
		Rates:          rates,
		CurrencySymbol: cfg.CurrencySymbol,
		StoreName:      cfg.StoreName,
		WhatsAppNumber: cfg.WhatsAppNumber,
	}

	handler := func(s ssh.Session) (tea.Model, []tea.ProgramOption) {
		namespace := auth.Fingerprint(s.PublicKey())
		if namespace == "" {
			wish.Fatalln(s, "public key authentication required")
			return nil, nil
		}

		sess, err := session.Open(s.Context(), namespace, sessionOpts)
		if err != nil {
			logger.Error("Failed to open session", "namespace", namespace, "err", err)
			wish.Fatalln(s, "could not open your session, please try again")
			return nil, nil
		}
		go func() {
			<-s.Context().Done()
			sess.Close()
		}()

		deps := tui.Deps{
			Session:    sess,
			Storefront: storefront,
			ExportDir:  cfg.ExportDir,
		}
		if sess.Admin.Enabled() {
			deps.Admin = admin.NewService(client, sess.Admin, storefront.Invalidate, logger.WithPrefix("admin"))
		}
		return tui.NewModel(deps), []tea.ProgramOption{tea.WithAltScreen()}
	}

	// Create SSH server options
	opts := []ssh.Option{
		wish.WithAddress(cfg.SSHAddr),
		wish.WithHostKeyPath(cfg.SSHHostKeyPath),
		wish.WithMiddleware(
			bubbletea.Middleware(handler),
			activeterm.Middleware(),
			wishlog.MiddlewareWithLogger(logger.WithPrefix("ssh")),
		),
	}

	// Add authentication based on mode
	if cfg.SSHAuthMode == config.AuthModeAllowlist {
		opts = append(opts, wish.WithPublicKeyAuth(func(_ ssh.Context, key ssh.PublicKey) bool {
			return allowlist.Allows(key)
		}))
	} else {
		// Public mode accepts any key; the key still names the shopper.
		opts = append(opts, wish.WithPublicKeyAuth(func(_ ssh.Context, _ ssh.PublicKey) bool {
			return true
		}))
	}

	// Always disable password auth
	opts = append(opts, wish.WithPasswordAuth(func(_ ssh.Context, _ string) bool {
		return false
	}))

	server, err := wish.NewServer(opts...)
	if err != nil {
		logger.Fatal("Failed to create SSH server", "err", err)
	}

	// Handle shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Starting SSH server",
		"addr", cfg.SSHAddr,
		"catalog", cfg.SupabaseURL,
		"auth", cfg.SSHAuthMode,
		"storage", cfg.StorageDriver,
	)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
			logger.Fatal("Server error", "err", err)
		}
	}()

	<-done
	logger.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Shutdown error", "err", err)
	}
}

// openStore opens the configured shopper storage backend.
func openStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.StorageDriver {
	case config.StorageRedis:
		r := storage.NewRedis(cfg.RedisAddr, "mayhem")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.Ping(ctx); err != nil {
			r.Close()
			return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.RedisAddr, err)
		}
		return r, nil

	case config.StorageMemory:
		return storage.NewMemory(), nil

	default:
		if dir := filepath.Dir(cfg.StoragePath); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating storage directory: %w", err)
			}
		}
		return storage.OpenSQLite(cfg.StoragePath)
	}
}

// loadPromoCodes merges the store's active coupons over the built-in codes.
// The built-in codes are used alone when coupons cannot be fetched.
func loadPromoCodes(logger *log.Logger, client *catalog.Client) pricing.PromoTable {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	promos := pricing.DefaultPromoCodes()
	coupons, err := client.GetCoupons(ctx)
	if err != nil {
		logger.Warn("Could not load coupons, using built-in promo codes", "err", err)
		return promos
	}
	promos = promos.WithCoupons(coupons)
	logger.Info("Loaded promo codes", "codes", promos.Codes())
	return promos
}

// ensureHostKey generates an ED25519 host key if it doesn't exist.
func ensureHostKey(logger *log.Logger, path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	logger.Info("Generating new ED25519 host key", "path", path)

	pubKey, privKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("generating key: %w", err)
	}

	// Convert to OpenSSH format
	sshPrivKey, err := gossh.MarshalPrivateKey(privKey, "")
	if err != nil {
		return fmt.Errorf("marshaling private key: %w", err)
	}

	if err := os.WriteFile(path, pem.EncodeToMemory(sshPrivKey), 0o600); err != nil {
		return fmt.Errorf("writing private key: %w", err)
	}

	sshPubKey, err := gossh.NewPublicKey(pubKey)
	if err != nil {
		return fmt.Errorf("creating public key: %w", err)
	}

	if err := os.WriteFile(path+".pub", gossh.MarshalAuthorizedKey(sshPubKey), 0o644); err != nil {
		return fmt.Errorf("writing public key: %w", err)
	}

	return nil
}
