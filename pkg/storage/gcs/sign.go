package gcs

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type serviceAccountInfo struct {
	clientEmail string
	privateKey  *rsa.PrivateKey
}

// SignedURL returns a signed PUT URL that lets the browser upload an object
// directly, bound to the given content type and expiry.
func (c *Client) SignedURL(bucket, object, contentType string, expires time.Duration) (string, error) {
	if contentType == "" {
		return "", errors.New("content type is required")
	}
	return c.signURL(http.MethodPut, bucket, object, contentType, expires)
}

// SignedReadURL returns a signed GET URL for downloading an object.
func (c *Client) SignedReadURL(bucket, object string, expires time.Duration) (string, error) {
	return c.signURL(http.MethodGet, bucket, object, "", expires)
}

func (c *Client) signURL(method, bucket, object, contentType string, expires time.Duration) (string, error) {
	if c == nil || c.serviceAccount == nil || c.serviceAccount.privateKey == nil {
		return "", errors.New("service account credentials required for signing")
	}
	if bucket == "" {
		bucket = c.defaultBucket
	}
	if bucket == "" {
		return "", errors.New("bucket is required")
	}
	if object == "" {
		return "", errors.New("object is required")
	}
	if expires <= 0 {
		return "", errors.New("expiry must be positive")
	}

	expiration := time.Now().Add(expires).Unix()
	resource := "/" + bucket + "/" + object

	toSign := strings.Join([]string{
		method,
		"", // Content-MD5 unused
		contentType,
		strconv.FormatInt(expiration, 10),
		resource,
	}, "\n")

	hash := sha256.Sum256([]byte(toSign))
	signature, err := rsa.SignPKCS1v15(rand.Reader, c.serviceAccount.privateKey, crypto.SHA256, hash[:])
	if err != nil {
		return "", fmt.Errorf("signing url: %w", err)
	}

	query := url.Values{}
	query.Set("GoogleAccessId", c.serviceAccount.clientEmail)
	query.Set("Expires", strconv.FormatInt(expiration, 10))
	query.Set("Signature", base64.StdEncoding.EncodeToString(signature))

	return fmt.Sprintf("https://storage.googleapis.com%s?%s", resource, query.Encode()), nil
}

// DeleteObject removes an object; a missing object is not an error.
func (c *Client) DeleteObject(ctx context.Context, bucket, object string) error {
	if c == nil || c.tokenSource == nil {
		return errors.New("gcs client not initialized")
	}
	if bucket == "" {
		bucket = c.defaultBucket
	}
	if bucket == "" {
		return errors.New("bucket is required")
	}
	if object == "" {
		return errors.New("object is required")
	}

	token, err := c.tokenSource.Token(ctx)
	if err != nil {
		return err
	}

	u := fmt.Sprintf(
		"https://storage.googleapis.com/storage/v1/b/%s/o/%s",
		url.PathEscape(bucket),
		url.PathEscape(object),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		return nil
	default:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if len(b) > 0 {
			return fmt.Errorf("gcs delete failed: %s: %s", resp.Status, strings.TrimSpace(string(b)))
		}
		return fmt.Errorf("gcs delete failed: %s", resp.Status)
	}
}
