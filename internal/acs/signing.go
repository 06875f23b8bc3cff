package acs

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"
)

// signRequest applies the provider's shared-key HMAC-SHA256 scheme: the
// signed string is "VERB\npath?query\ndate;host;bodyhash" and the key is the
// base64-decoded access key from the connection string.
func signRequest(req *http.Request, body []byte, accessKey string, now time.Time) error {
	key, err := base64.StdEncoding.DecodeString(accessKey)
	if err != nil {
		return fmt.Errorf("decode access key: %w", err)
	}

	bodyHash := sha256.Sum256(body)
	contentHash := base64.StdEncoding.EncodeToString(bodyHash[:])
	date := now.Format(http.TimeFormat)

	pathAndQuery := req.URL.Path
	if req.URL.RawQuery != "" {
		pathAndQuery += "?" + req.URL.RawQuery
	}
	stringToSign := fmt.Sprintf("%s\n%s\n%s;%s;%s", req.Method, pathAndQuery, date, req.URL.Host, contentHash)

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(stringToSign))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	req.Header.Set("x-ms-date", date)
	req.Header.Set("x-ms-content-sha256", contentHash)
	req.Header.Set("Authorization",
		"HMAC-SHA256 SignedHeaders=x-ms-date;host;x-ms-content-sha256&Signature="+signature)
	return nil
}
