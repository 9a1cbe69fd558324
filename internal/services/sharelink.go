package services

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/docvault/backend/internal/metrics"
	"github.com/docvault/backend/internal/models"
	"gorm.io/gorm"
)

// ShareLinkService issues and validates share tokens. Tokens never touch
// membership quota; validation needs no locking beyond the uniqueness
// constraint on the token column.
type ShareLinkService struct {
	db *gorm.DB
}

func NewShareLinkService(db *gorm.DB) *ShareLinkService {
	return &ShareLinkService{db: db}
}

// ShareInfo is the read-only description of a valid token. Valid is
// always true on the success path; invalid tokens surface as errors.
type ShareInfo struct {
	Valid          bool      `json:"valid"`
	DocumentTitle  string    `json:"document_title"`
	ExpiresAt      time.Time `json:"expires_at"`
	RequiresSecret bool      `json:"requires_password"`
}

// Issue mints a share token for a document. The token value is 32 bytes
// from crypto/rand, URL-safe encoded. When no secret is supplied a
// 6-character alphanumeric one is generated; it is returned in plaintext
// exactly once, at issuance.
func (s *ShareLinkService) Issue(documentID, issuerID uint, ttl time.Duration, secret string) (*models.ShareToken, error) {
	var doc models.Document
	if err := s.db.First(&doc, documentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("fetch document: %w", err)
	}

	if secret == "" {
		secret = generateSecret(6)
	}

	token := models.ShareToken{
		Token:      generateToken(),
		DocumentID: doc.ID,
		Secret:     secret,
		ExpiresAt:  time.Now().UTC().Add(ttl),
		CreatedBy:  issuerID,
	}
	if err := s.db.Create(&token).Error; err != nil {
		return nil, fmt.Errorf("create share token: %w", err)
	}
	return &token, nil
}

// Describe validates a token without consuming anything. Expiry is the
// only state check; the secret is not examined here.
func (s *ShareLinkService) Describe(token string) (*ShareInfo, error) {
	st, err := s.fetch(token)
	if err != nil {
		return nil, err
	}

	var doc models.Document
	if err := s.db.First(&doc, st.DocumentID).Error; err != nil {
		return nil, fmt.Errorf("fetch document: %w", err)
	}

	return &ShareInfo{
		Valid:          true,
		DocumentTitle:  doc.Title,
		ExpiresAt:      st.ExpiresAt,
		RequiresSecret: st.RequiresSecret(),
	}, nil
}

// Open checks the supplied secret and resolves the document location.
// Expiry takes precedence over the secret check. A token issued without
// a secret accepts any input, including empty.
func (s *ShareLinkService) Open(token, secret string) (string, error) {
	st, err := s.fetch(token)
	if err != nil {
		return "", err
	}

	if st.Secret != "" && secret != st.Secret {
		return "", ErrWrongSecret
	}

	var doc models.Document
	if err := s.db.First(&doc, st.DocumentID).Error; err != nil {
		return "", fmt.Errorf("fetch document: %w", err)
	}

	metrics.ShareOpensTotal.Inc()
	return doc.FilePath, nil
}

func (s *ShareLinkService) fetch(token string) (*models.ShareToken, error) {
	var st models.ShareToken
	if err := s.db.Where("token = ?", token).First(&st).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("fetch share token: %w", err)
	}
	if st.ExpiresAt.Before(time.Now().UTC()) {
		return nil, ErrTokenExpired
	}
	return &st, nil
}

// generateToken returns 256 bits of crypto randomness, URL-safe encoded
func generateToken() string {
	b := make([]byte, 32)
	rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// generateSecret builds a short human-typeable shared password. This is a
// shareable gate, not a credential; it is stored in plaintext.
func generateSecret(length int) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)
	rand.Read(b)
	for i := range b {
		b[i] = alphabet[int(b[i])%len(alphabet)]
	}
	return string(b)
}
