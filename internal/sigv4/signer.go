package sigv4

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Signature holds the values produced by signing one canonical request.
type Signature struct {
	Authorization   string
	AmzDate         string
	CredentialScope string
	StringToSign    string
	Signature       string
}

// Sign computes the Authorization header for cr. t must be the instant used
// to build cr; the date in the scope and the X-Amz-Date header both derive
// from it.
func Sign(cr CanonicalRequest, creds Credentials, t time.Time) (Signature, error) {
	if err := creds.Validate(); err != nil {
		return Signature{}, err
	}

	amzDate := AmzDate(t)
	dateStamp := amzDate[:8]
	scope := CredentialScope(dateStamp, creds.Region, creds.Service)

	stringToSign := strings.Join([]string{
		Algorithm,
		amzDate,
		scope,
		cr.Hash(),
	}, "\n")

	key := DeriveSigningKey(creds.SecretKey, dateStamp, creds.Region, creds.Service)
	sig := hex.EncodeToString(hmacSHA256(key, []byte(stringToSign)))

	return Signature{
		Authorization: Algorithm +
			" Credential=" + creds.AccessKeyID + "/" + scope +
			", SignedHeaders=" + cr.SignedHeaders +
			", Signature=" + sig,
		AmzDate:         amzDate,
		CredentialScope: scope,
		StringToSign:    stringToSign,
		Signature:       sig,
	}, nil
}

// CredentialScope returns date/region/service/aws4_request.
func CredentialScope(dateStamp, region, service string) string {
	return dateStamp + "/" + region + "/" + service + "/" + scopeTerminator
}

// DeriveSigningKey runs the four chained HMAC-SHA256 steps that scope the
// secret key to a day, region and service.
func DeriveSigningKey(secret, dateStamp, region, service string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secret), []byte(dateStamp))
	kRegion := hmacSHA256(kDate, []byte(region))
	kService := hmacSHA256(kRegion, []byte(service))
	return hmacSHA256(kService, []byte(scopeTerminator))
}

func hmacSHA256(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}
