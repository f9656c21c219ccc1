package deliveryreport

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"transmit/internal/types"
)

// SignatureHeader carries the report signature:
//
//	X-Transmit-Signature: t=<unix>,v1=<hex hmac-sha256 of "<unix>.<body>">
const SignatureHeader = "X-Transmit-Signature"

// Signer signs and verifies report bodies with a shared secret.
type Signer struct {
	secret    types.SecretString
	tolerance time.Duration
	clock     types.Clock
}

// NewSigner returns a Signer that rejects signatures older or newer than
// tolerance. A zero tolerance disables the timestamp check.
func NewSigner(secret types.SecretString, tolerance time.Duration, clock types.Clock) *Signer {
	if clock == nil {
		clock = types.RealClock{}
	}
	return &Signer{secret: secret, tolerance: tolerance, clock: clock}
}

// Sign returns the header value for payload signed at the current time.
func (s *Signer) Sign(payload []byte) string {
	ts := s.clock.Now().Unix()
	return fmt.Sprintf("t=%d,v1=%s", ts, s.mac(ts, payload))
}

// Verify checks header against payload. Failures are
// ErrCodeSignatureInvalid AppErrors.
func (s *Signer) Verify(payload []byte, header string) error {
	var tsRaw, sig string
	for _, segment := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(segment), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			tsRaw = v
		case "v1":
			sig = v
		}
	}
	if tsRaw == "" || sig == "" {
		return types.NewAppError(types.ErrCodeSignatureInvalid, "malformed signature header", nil)
	}

	ts, err := strconv.ParseInt(tsRaw, 10, 64)
	if err != nil {
		return types.NewAppError(types.ErrCodeSignatureInvalid, "malformed signature timestamp", err)
	}
	if s.tolerance > 0 {
		age := s.clock.Now().Sub(time.Unix(ts, 0))
		if age > s.tolerance || age < -s.tolerance {
			return types.NewAppError(types.ErrCodeSignatureInvalid, "signature timestamp outside tolerance", nil)
		}
	}

	if !hmac.Equal([]byte(sig), []byte(s.mac(ts, payload))) {
		return types.NewAppError(types.ErrCodeSignatureInvalid, "signature mismatch", nil)
	}
	return nil
}

func (s *Signer) mac(ts int64, payload []byte) string {
	m := hmac.New(sha256.New, []byte(s.secret.Unmask()))
	fmt.Fprintf(m, "%d.", ts)
	m.Write(payload)
	return hex.EncodeToString(m.Sum(nil))
}
