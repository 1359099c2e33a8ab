package gcs

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/angelmondragon/giftops-backend/pkg/config"
	"github.com/angelmondragon/giftops-backend/pkg/logger"
)

const (
	storageHost    = "storage.googleapis.com"
	scope          = "https://www.googleapis.com/auth/devstorage.read_write"
	signingAlgo    = "GOOG4-RSA-SHA256"
	signedHeaders  = "content-type;host"
	requestTimeout = 10 * time.Second
	pingTimeout    = 5 * time.Second
	maxSignedTTL   = 7 * 24 * time.Hour
	maxErrBodySize = 2048
)

var errSignerMissing = errors.New("signed urls require service account credentials")

// Client issues V4 signed upload URLs and checks bucket reachability.
// Signing needs service account JSON; without it the client still pings
// using application default credentials.
type Client struct {
	httpClient    *http.Client
	apiBase       string
	defaultBucket string
	publicBaseURL string
	signer        *serviceAccount
	now           func() time.Time
}

type serviceAccount struct {
	clientEmail string
	privateKey  *rsa.PrivateKey
}

func NewClient(ctx context.Context, cfg config.GCSConfig, gcp config.GCPConfig, logg *logger.Logger) (*Client, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("gcs bucket name is required")
	}
	creds, err := credentialsJSON(gcp)
	if err != nil {
		return nil, err
	}

	// token refreshes outlive the boot context
	tokenCtx := context.WithoutCancel(ctx)
	client := &Client{
		apiBase:       "https://" + storageHost,
		defaultBucket: cfg.BucketName,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		now:           time.Now,
	}
	var tokens oauth2.TokenSource
	if creds != nil {
		jwtCfg, err := google.JWTConfigFromJSON(creds, scope)
		if err != nil {
			return nil, fmt.Errorf("parsing service account credentials: %w", err)
		}
		if client.signer, err = newServiceAccount(jwtCfg.Email, jwtCfg.PrivateKey); err != nil {
			return nil, err
		}
		tokens = jwtCfg.TokenSource(tokenCtx)
	} else if tokens, err = google.DefaultTokenSource(tokenCtx, scope); err != nil {
		return nil, fmt.Errorf("finding default credentials: %w", err)
	}
	client.httpClient = oauth2.NewClient(tokenCtx, tokens)
	client.httpClient.Timeout = requestTimeout

	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("gcs health check failed: %w", err)
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "bucket", cfg.BucketName), "gcs client initialized")
	}
	return client, nil
}

// credentialsJSON returns the inline JSON, else the file contents, else nil.
func credentialsJSON(gcp config.GCPConfig) ([]byte, error) {
	if js := strings.TrimSpace(gcp.CredentialsJSON); js != "" {
		return []byte(js), nil
	}
	if path := strings.TrimSpace(gcp.ApplicationCredentials); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading credentials file: %w", err)
		}
		return raw, nil
	}
	return nil, nil
}

func newServiceAccount(email string, pemKey []byte) (*serviceAccount, error) {
	if email == "" || len(pemKey) == 0 {
		return nil, errors.New("invalid service account credentials")
	}
	key, err := parsePrivateKey(pemKey)
	if err != nil {
		return nil, err
	}
	return &serviceAccount{clientEmail: email, privateKey: key}, nil
}

func (c *Client) DefaultBucket() string {
	if c == nil {
		return ""
	}
	return c.defaultBucket
}

// PublicURL is the URL stored on products once the upload completes.
func (c *Client) PublicURL(bucket, object string) string {
	base := c.publicBaseURL
	if base == "" {
		base = "https://" + storageHost
	}
	if bucket == "" {
		bucket = c.defaultBucket
	}
	return base + "/" + bucket + "/" + escapeObject(object)
}

// SignedUploadURL returns a V4 signed PUT URL valid for expires. The upload
// must send the same Content-Type header.
func (c *Client) SignedUploadURL(bucket, object, contentType string, expires time.Duration) (string, error) {
	if c == nil || c.signer == nil {
		return "", errSignerMissing
	}
	if bucket == "" {
		bucket = c.defaultBucket
	}
	contentType = strings.TrimSpace(contentType)
	switch {
	case bucket == "":
		return "", errors.New("bucket is required")
	case strings.TrimSpace(object) == "":
		return "", errors.New("object name is required")
	case contentType == "":
		return "", errors.New("content type is required")
	case expires < time.Second || expires > maxSignedTTL:
		return "", fmt.Errorf("expiry must be between 1s and %s", maxSignedTTL)
	}

	now := c.now().UTC()
	timestamp := now.Format("20060102T150405Z")
	credentialScope := now.Format("20060102") + "/auto/storage/goog4_request"
	path := "/" + bucket + "/" + escapeObject(object)
	query := canonicalQuery(map[string]string{
		"X-Goog-Algorithm":     signingAlgo,
		"X-Goog-Credential":    c.signer.clientEmail + "/" + credentialScope,
		"X-Goog-Date":          timestamp,
		"X-Goog-Expires":       strconv.FormatInt(int64(expires/time.Second), 10),
		"X-Goog-SignedHeaders": signedHeaders,
	})
	canonicalRequest := strings.Join([]string{
		http.MethodPut,
		path,
		query,
		"content-type:" + contentType,
		"host:" + storageHost,
		"",
		signedHeaders,
		"UNSIGNED-PAYLOAD",
	}, "\n")

	digest := sha256.Sum256([]byte(canonicalRequest))
	stringToSign := strings.Join([]string{signingAlgo, timestamp, credentialScope, hex.EncodeToString(digest[:])}, "\n")
	hashed := sha256.Sum256([]byte(stringToSign))
	signature, err := rsa.SignPKCS1v15(rand.Reader, c.signer.privateKey, crypto.SHA256, hashed[:])
	if err != nil {
		return "", fmt.Errorf("signing upload url: %w", err)
	}
	return "https://" + storageHost + path + "?" + query + "&X-Goog-Signature=" + hex.EncodeToString(signature), nil
}

// Ping lists at most one object to confirm credentials and bucket access.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.httpClient == nil {
		return errors.New("gcs client not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	u := c.apiBase + "/storage/v1/b/" + url.PathEscape(c.defaultBucket) + "/o?maxResults=1"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBodySize))
		return fmt.Errorf("gcs bucket check failed: %s: %s", resp.Status, strings.TrimSpace(string(b)))
	}
	return nil
}

func (c *Client) Close() error {
	return nil
}

// canonicalQuery encodes values sorted by key, as V4 signing requires.
func canonicalQuery(values map[string]string) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = url.QueryEscape(k) + "=" + url.QueryEscape(values[k])
	}
	return strings.Join(parts, "&")
}

// escapeObject percent-encodes each path segment but keeps the slashes.
func escapeObject(object string) string {
	segments := strings.Split(strings.TrimLeft(object, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

func parsePrivateKey(pemData []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, errors.New("invalid private key")
	}
	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		if priv, ok := key.(*rsa.PrivateKey); ok {
			return priv, nil
		}
	}
	priv, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, errors.New("unsupported private key format")
	}
	return priv, nil
}
