package services

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const secretKeyFileName = ".memviz-secret-key"

// AuthService issues and validates dashboard viewer tokens
type AuthService struct {
	secretKey   string
	tokenExpiry time.Duration
	log         *logrus.Entry
}

// ViewerClaims represents the JWT claims structure
type ViewerClaims struct {
	Viewer    string `json:"viewer"`
	UserAgent string `json:"user_agent"`
	jwt.RegisteredClaims
}

// NewAuthService creates the token service. An empty secretKey loads the key
// persisted in the user's home directory, generating it on first use, so the
// CLI and the server agree on it.
func NewAuthService(secretKey string, tokenExpiry time.Duration) *AuthService {
	log := logrus.StandardLogger().WithField("type", "services/auth")

	if secretKey == "" {
		secretKey = loadOrCreateSecret(log)
	}

	if tokenExpiry == 0 {
		tokenExpiry = 30 * 24 * time.Hour
	}

	secretKey = strings.TrimSpace(secretKey)

	// HMAC-SHA256 wants at least 32 bytes
	if len(secretKey) < 32 {
		log.Warnf("secret key is only %d bytes, padding to 32", len(secretKey))
		padding := make([]byte, (32-len(secretKey)+1)/2)
		_, _ = rand.Read(padding)
		secretKey = secretKey + hex.EncodeToString(padding)
	}

	return &AuthService{
		secretKey:   secretKey,
		tokenExpiry: tokenExpiry,
		log:         log,
	}
}

func loadOrCreateSecret(log *logrus.Entry) string {
	homeDir, _ := os.UserHomeDir()
	keyFile := filepath.Join(homeDir, secretKeyFileName)
	if homeDir == "" {
		keyFile = filepath.Join(os.TempDir(), secretKeyFileName)
	}

	if data, err := os.ReadFile(keyFile); err == nil && len(strings.TrimSpace(string(data))) > 0 {
		log.WithField("file", keyFile).Debug("loaded persisted secret key")
		return strings.TrimSpace(string(data))
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "memviz"
	}

	var secretKey string
	randomBytes := make([]byte, 16)
	if _, err := rand.Read(randomBytes); err != nil {
		secretKey = fmt.Sprintf("memviz-%s-%d-backup", hostname, time.Now().UnixNano())
		log.Warn("random generation failed, using fallback key")
	} else {
		secretKey = fmt.Sprintf("memviz-%s-%s", hostname, hex.EncodeToString(randomBytes))
	}

	if err := os.WriteFile(keyFile, []byte(secretKey), 0600); err != nil {
		log.WithError(err).WithField("file", keyFile).Warn("could not persist secret key")
	} else {
		log.WithField("file", keyFile).Info("generated and persisted secret key")
	}
	return secretKey
}

// GenerateToken creates a new token for a named viewer
func (a *AuthService) GenerateToken(viewer string) (string, error) {
	now := time.Now()

	claims := ViewerClaims{
		Viewer:    viewer,
		UserAgent: "memviz-viewer",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(a.tokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "memviz-server",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(a.secretKey))
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token")
	}
	return tokenString, nil
}

// ValidateToken verifies and parses a viewer token
func (a *AuthService) ValidateToken(tokenString string) (*ViewerClaims, error) {
	claims := &ViewerClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(a.secretKey), nil
	})
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// TokenExpiry returns when a token issued now will expire
func (a *AuthService) TokenExpiry() time.Time {
	return time.Now().Add(a.tokenExpiry)
}
