package kiotviet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gaolamthuy/glt-backend/config"
	"github.com/gaolamthuy/glt-backend/models"
	"github.com/gaolamthuy/glt-backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	credentialTitle = "kiotviet"

	// refreshSkew is the safety margin under which a stored bearer is
	// treated as expired and refreshed early.
	refreshSkew = 60 * time.Second
)

// Credential is the stored bearer. ExpiresAt is zero when the stored value
// was a legacy bare token string whose expiry is unknown.
type Credential struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CredentialStore persists the single named credential record.
type CredentialStore interface {
	Load(ctx context.Context) (*Credential, error)
	Save(ctx context.Context, cred Credential) error
}

// DBTokenStore keeps the credential in the system(title, value) table.
type DBTokenStore struct {
	db *gorm.DB
}

func NewDBTokenStore(db *gorm.DB) *DBTokenStore {
	return &DBTokenStore{db: db}
}

// Load reads the credential row. Both value shapes are accepted: the
// structured {"token","expires_at"} object and a legacy bare token string.
// A missing row is (nil, nil), not an error.
func (s *DBTokenStore) Load(ctx context.Context) (*Credential, error) {
	var row models.SystemSetting
	err := s.db.WithContext(ctx).Where("title = ?", credentialTitle).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	value := strings.TrimSpace(row.Value)
	if value == "" {
		return nil, nil
	}

	var cred Credential
	if err := json.Unmarshal([]byte(value), &cred); err == nil && cred.Token != "" {
		return &cred, nil
	}
	// Legacy shape: the value is the bearer itself.
	return &Credential{Token: value}, nil
}

// Save writes the structured shape, overwriting any prior value.
func (s *DBTokenStore) Save(ctx context.Context, cred Credential) error {
	value, err := json.Marshal(cred)
	if err != nil {
		return err
	}
	row := models.SystemSetting{Title: credentialTitle, Value: string(value)}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "title"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
}

// TokenProvider returns a valid bearer on demand, refreshing through the
// OAuth client-credentials endpoint when the cached or stored one is absent
// or inside the skew window. The mutex is held across the refresh so at
// most one token request is in flight per process; late callers block and
// then see the cached result.
type TokenProvider struct {
	cfg    config.KiotvietConfig
	store  CredentialStore
	http   *http.Client
	logger *logrus.Logger

	mu          sync.Mutex
	cached      Credential
	invalidated bool

	now func() time.Time
}

func NewTokenProvider(cfg config.KiotvietConfig, store CredentialStore, logger *logrus.Logger) *TokenProvider {
	return &TokenProvider{
		cfg:    cfg,
		store:  store,
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: logger,
		now:    time.Now,
	}
}

func (p *TokenProvider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.usable(p.cached) {
		return p.cached.Token, nil
	}

	// After an upstream 401 the stored value is suspect too, so the
	// store is skipped and a fresh bearer is forced.
	if !p.invalidated {
		cred, err := p.store.Load(ctx)
		if err != nil {
			return "", err
		}
		if cred != nil && p.usable(*cred) {
			p.cached = *cred
			return cred.Token, nil
		}
	}

	fresh, err := p.refresh(ctx)
	if err != nil {
		return "", &TokenAcquisitionError{Cause: err}
	}
	if err := p.store.Save(ctx, fresh); err != nil {
		return "", err
	}
	p.cached = fresh
	p.invalidated = false
	return fresh.Token, nil
}

// Invalidate drops the in-memory bearer and flags the stored one as
// suspect, so the next Token call refreshes. Used by the fetcher on a 401.
func (p *TokenProvider) Invalidate() {
	p.mu.Lock()
	p.cached = Credential{}
	p.invalidated = true
	p.mu.Unlock()
}

// Inspect reads the stored credential without refreshing; Valid reports
// whether it is outside the skew window.
func (p *TokenProvider) Inspect(ctx context.Context) (cred *Credential, valid bool, err error) {
	cred, err = p.store.Load(ctx)
	if err != nil || cred == nil {
		return cred, false, err
	}
	return cred, p.usable(*cred), nil
}

// usable requires a structured expiry beyond the skew window; a legacy
// credential with unknown expiry is never trusted.
func (p *TokenProvider) usable(cred Credential) bool {
	if cred.Token == "" || cred.ExpiresAt.IsZero() {
		return false
	}
	return cred.ExpiresAt.After(p.now().Add(refreshSkew))
}

func (p *TokenProvider) refresh(ctx context.Context) (Credential, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", p.cfg.ClientID)
	form.Set("client_secret", p.cfg.ClientSecret)
	form.Set("scopes", "PublicApi.Access")

	endpoint := p.cfg.BaseURL + "/connect/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Credential{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.http.Do(req)
	if err != nil {
		return Credential{}, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Credential{}, fmt.Errorf("token endpoint status %d: %s",
			resp.StatusCode, utils.Truncate(strings.TrimSpace(string(body)), bodyExcerptLimit))
	}

	var parsed tokenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Credential{}, fmt.Errorf("token endpoint body: %w", err)
	}
	if parsed.AccessToken == "" || parsed.ExpiresIn <= 0 {
		return Credential{}, fmt.Errorf("token endpoint body missing access_token/expires_in: %s",
			utils.Truncate(string(body), bodyExcerptLimit))
	}

	expiresAt := p.now().Add(time.Duration(parsed.ExpiresIn)*time.Second - refreshSkew)
	if p.logger != nil {
		p.logger.WithFields(logrus.Fields{
			"module":     "kiotviet",
			"expires_at": expiresAt.UTC().Format(time.RFC3339),
		}).Info("acquired new bearer token")
	}
	return Credential{Token: parsed.AccessToken, ExpiresAt: expiresAt}, nil
}
