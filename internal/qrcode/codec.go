// Package qrcode builds and parses the payload printed in activation QR codes
// and renders it as an image.
package qrcode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vietanh2810/checkin-api/internal/clock"
	"github.com/vietanh2810/checkin-api/internal/credential"
)

// TypeTag marks payloads minted by this service; anything else is rejected.
const TypeTag = "ativacao_checkin"

const (
	paramTokenID      = "qrUUID"
	paramUUID         = "uuid"
	paramActivationID = "ativacaoId"
	paramType         = "tipo"
	paramTimestamp    = "timestamp"

	checkinPath = "/checkin"
)

// ErrInvalidPayload is deliberately coarse: callers cannot tell a forged
// payload from an expired one.
var ErrInvalidPayload = errors.New("invalid qr code payload")

type Form int

const (
	// FormURL carries an issued token; the activation comes from the credential store.
	FormURL Form = iota + 1
	// FormLegacy carries only the activation's long-lived token and an issue timestamp.
	FormLegacy
)

func (f Form) String() string {
	switch f {
	case FormURL:
		return "url"
	case FormLegacy:
		return "legacy"
	default:
		return "unknown"
	}
}

// Ticket is what gets encoded for a freshly minted QR code.
type Ticket struct {
	TokenID         string
	ActivationID    uint
	ActivationToken string
	IssuedAt        time.Time
}

// Payload is a decoded and verified QR code. For FormURL only ActivationID is
// authoritative; for FormLegacy only ActivationToken is.
type Payload struct {
	Form            Form
	TokenID         string
	ActivationID    uint
	ActivationToken string
	IssuedAt        time.Time
}

type legacyJSON struct {
	UUID         string `json:"uuid"`
	Type         string `json:"tipo"`
	Timestamp    *int64 `json:"timestamp"`
	ActivationID any    `json:"ativacaoId,omitempty"`
}

type Codec struct {
	webappURL string
	store     credential.Store
	ttl       time.Duration
	clock     clock.Clock
}

func NewCodec(webappURL string, store credential.Store, ttl time.Duration, c clock.Clock) *Codec {
	if ttl <= 0 {
		ttl = credential.DefaultTTL
	}
	if c == nil {
		c = clock.Real{}
	}

	return &Codec{
		webappURL: strings.TrimRight(webappURL, "/"),
		store:     store,
		ttl:       ttl,
		clock:     c,
	}
}

// Encode always produces the URL form.
func (c *Codec) Encode(t Ticket) string {
	q := url.Values{}
	q.Set(paramTokenID, t.TokenID)
	q.Set(paramUUID, t.ActivationToken)
	q.Set(paramActivationID, strconv.FormatUint(uint64(t.ActivationID), 10))
	q.Set(paramType, TypeTag)
	q.Set(paramTimestamp, strconv.FormatInt(t.IssuedAt.UnixMilli(), 10))

	return c.webappURL + checkinPath + "?" + q.Encode()
}

// Decode accepts the URL form first and the legacy JSON form second. Errors
// other than ErrInvalidPayload come from the credential store.
func (c *Codec) Decode(ctx context.Context, raw string) (Payload, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Payload{}, ErrInvalidPayload
	}

	if u, ok := parseURL(raw); ok {
		return c.decodeURL(ctx, u.Query())
	}

	var legacy legacyJSON
	if err := json.Unmarshal([]byte(raw), &legacy); err != nil {
		return Payload{}, ErrInvalidPayload
	}
	if legacy.Type != TypeTag || legacy.Timestamp == nil {
		return Payload{}, ErrInvalidPayload
	}

	return c.decodeLegacy(legacy.UUID, *legacy.Timestamp)
}

func (c *Codec) decodeURL(ctx context.Context, q url.Values) (Payload, error) {
	if q.Get(paramType) != TypeTag {
		return Payload{}, ErrInvalidPayload
	}

	tokenID := q.Get(paramTokenID)
	if tokenID == "" {
		ts, err := strconv.ParseInt(q.Get(paramTimestamp), 10, 64)
		if err != nil {
			return Payload{}, ErrInvalidPayload
		}
		return c.decodeLegacy(q.Get(paramUUID), ts)
	}

	// ativacaoId in the query is informational and never trusted.
	v, err := c.store.Validate(ctx, tokenID)
	if err != nil {
		return Payload{}, fmt.Errorf("c.store.Validate -> %w", err)
	}
	if !v.Valid {
		return Payload{}, ErrInvalidPayload
	}

	return Payload{
		Form:            FormURL,
		TokenID:         tokenID,
		ActivationID:    v.ActivationID,
		ActivationToken: q.Get(paramUUID),
		IssuedAt:        v.IssuedAt,
	}, nil
}

func (c *Codec) decodeLegacy(activationToken string, timestampMs int64) (Payload, error) {
	if strings.TrimSpace(activationToken) == "" {
		return Payload{}, ErrInvalidPayload
	}

	issuedAt := time.UnixMilli(timestampMs)
	if c.clock.Now().Sub(issuedAt) > c.ttl {
		return Payload{}, ErrInvalidPayload
	}

	return Payload{
		Form:            FormLegacy,
		ActivationToken: activationToken,
		IssuedAt:        issuedAt,
	}, nil
}

func parseURL(raw string) (*url.URL, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, false
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, false
	}

	return u, true
}
