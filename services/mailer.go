package services

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gizmodojp/line-contact-api/config"
	"github.com/gizmodojp/line-contact-api/logger"
	"github.com/resend/resend-go/v2"
)

// keyRefreshWindow is how long before a key's expiry the file-backed source
// re-reads the mounted secret.
const keyRefreshWindow = 5 * time.Minute

// KeySource produces the current email API key. Implementations must be
// safe for concurrent use; the mailer calls Key on every send.
type KeySource interface {
	Key() (string, error)
}

// staticKeySource serves a fixed key from configuration.
type staticKeySource struct {
	key string
}

func (s *staticKeySource) Key() (string, error) {
	return s.key, nil
}

// fileKeySource reads the key from a mounted secret file and caches it for
// the configured TTL, re-reading once the cached value is within
// keyRefreshWindow of expiry. This supports rotated secrets without a
// process restart.
type fileKeySource struct {
	path string
	ttl  time.Duration

	mu        sync.Mutex
	key       string
	expiresAt time.Time
}

func (s *fileKeySource) Key() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.key != "" && time.Until(s.expiresAt) > keyRefreshWindow {
		return s.key, nil
	}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		// Serve the stale key if one exists rather than failing the send.
		if s.key != "" {
			logger.GetLogger().Warnw("Failed to re-read API key file, using cached key",
				"path", s.path, "error", err)
			return s.key, nil
		}
		return "", fmt.Errorf("failed to read API key file: %w", err)
	}

	key := strings.TrimSpace(string(raw))
	if key == "" {
		return "", fmt.Errorf("API key file %s is empty", s.path)
	}

	if s.key != "" && key != s.key {
		logger.GetLogger().Infow("Email API key rotated", "path", s.path)
	}
	s.key = key
	s.expiresAt = time.Now().Add(s.ttl)
	return s.key, nil
}

// Mailer owns a cached, ready-to-send Resend client shared by all in-flight
// requests. The client is rebuilt only when the key source yields a new key;
// reads take the fast path under an RWMutex.
type Mailer struct {
	source KeySource

	mu     sync.RWMutex
	key    string
	client *resend.Client
}

// NewMailer selects a key source based on configuration presence: a key file
// when one is configured, otherwise the static key. The choice is made once
// at startup and never re-checked per call.
func NewMailer(cfg *config.EmailConfig) *Mailer {
	log := logger.GetLogger()

	var source KeySource
	if cfg.APIKeyFile != "" {
		log.Infow("Email auth: rotating key file", "path", cfg.APIKeyFile)
		source = &fileKeySource{
			path: cfg.APIKeyFile,
			ttl:  time.Duration(cfg.KeyTTLMinutes) * time.Minute,
		}
	} else {
		log.Info("Email auth: static API key")
		source = &staticKeySource{key: cfg.APIKey}
	}

	return &Mailer{source: source}
}

// NewMailerWithSource creates a Mailer with an explicit key source.
func NewMailerWithSource(source KeySource) *Mailer {
	return &Mailer{source: source}
}

// Client returns the cached Resend client, rebuilding it when the key has
// changed. Safe for concurrent use from multiple in-flight requests.
func (m *Mailer) Client() (*resend.Client, error) {
	key, err := m.source.Key()
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	if m.client != nil && m.key == key {
		client := m.client
		m.mu.RUnlock()
		return client, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client == nil || m.key != key {
		m.client = resend.NewClient(key)
		m.key = key
	}
	return m.client, nil
}
