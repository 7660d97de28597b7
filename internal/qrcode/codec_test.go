package qrcode

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietanh2810/checkin-api/internal/clock"
	"github.com/vietanh2810/checkin-api/internal/credential"
)

var epoch = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type failingStore struct {
	credential.Store
}

func (failingStore) Validate(context.Context, string) (credential.Validation, error) {
	return credential.Validation{}, errors.New("connection refused")
}

func newTestCodec(t *testing.T) (*Codec, *credential.MemoryStore, *clock.Fake) {
	t.Helper()
	c := clock.NewFake(epoch)
	store := credential.NewMemoryStore(credential.DefaultTTL, c)
	return NewCodec("https://app.example.com/", store, credential.DefaultTTL, c), store, c
}

func TestCodec_EncodeDecodeRoundTrip(t *testing.T) {
	ctx := context.Background()
	codec, store, _ := newTestCodec(t)

	tokenID, err := store.Issue(ctx, 11)
	require.NoError(t, err)

	encoded := codec.Encode(Ticket{TokenID: tokenID, ActivationID: 11, ActivationToken: "act-uuid", IssuedAt: epoch})

	u, err := url.Parse(encoded)
	require.NoError(t, err)
	assert.Equal(t, "app.example.com", u.Host)
	assert.Equal(t, "/checkin", u.Path)
	assert.Equal(t, tokenID, u.Query().Get("qrUUID"))
	assert.Equal(t, "act-uuid", u.Query().Get("uuid"))
	assert.Equal(t, "11", u.Query().Get("ativacaoId"))
	assert.Equal(t, TypeTag, u.Query().Get("tipo"))
	assert.Equal(t, fmt.Sprint(epoch.UnixMilli()), u.Query().Get("timestamp"))

	p, err := codec.Decode(ctx, encoded)
	require.NoError(t, err)
	assert.Equal(t, FormURL, p.Form)
	assert.Equal(t, uint(11), p.ActivationID)
	assert.Equal(t, tokenID, p.TokenID)
}

func TestCodec_Decode_StoreIsAuthoritative(t *testing.T) {
	ctx := context.Background()
	codec, store, _ := newTestCodec(t)

	tokenID, err := store.Issue(ctx, 1)
	require.NoError(t, err)

	// Token belongs to activation 1 but the query claims activation 2.
	encoded := codec.Encode(Ticket{TokenID: tokenID, ActivationID: 2, ActivationToken: "other", IssuedAt: epoch})

	p, err := codec.Decode(ctx, encoded)
	require.NoError(t, err)
	assert.Equal(t, FormURL, p.Form)
	assert.Equal(t, uint(1), p.ActivationID)
}

func TestCodec_Decode_Legacy(t *testing.T) {
	ctx := context.Background()
	codec, _, c := newTestCodec(t)
	fresh := epoch.Add(-time.Minute).UnixMilli()

	tests := []struct {
		name string
		raw  string
	}{
		{
			name: "json",
			raw:  fmt.Sprintf(`{"uuid":"act-uuid","tipo":"ativacao_checkin","timestamp":%d}`, fresh),
		},
		{
			name: "json with activation id and extra fields",
			raw:  fmt.Sprintf(`{"uuid":"act-uuid","tipo":"ativacao_checkin","timestamp":%d,"ativacaoId":"9","evento":"Fair"}`, fresh),
		},
		{
			name: "url without qrUUID",
			raw:  fmt.Sprintf("https://app.example.com/checkin?uuid=act-uuid&tipo=ativacao_checkin&timestamp=%d", fresh),
		},
		{
			name: "surrounding whitespace",
			raw:  fmt.Sprintf("  {\"uuid\":\"act-uuid\",\"tipo\":\"ativacao_checkin\",\"timestamp\":%d}\n", fresh),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, err := codec.Decode(ctx, tc.raw)
			require.NoError(t, err)
			assert.Equal(t, FormLegacy, p.Form)
			assert.Equal(t, "act-uuid", p.ActivationToken)
			assert.Zero(t, p.ActivationID)
			assert.True(t, c.Now().Sub(p.IssuedAt) <= credential.DefaultTTL)
		})
	}
}

func TestCodec_Decode_Invalid(t *testing.T) {
	ctx := context.Background()
	codec, store, _ := newTestCodec(t)
	fresh := epoch.UnixMilli()
	stale := epoch.Add(-301 * time.Second).UnixMilli()

	tokenID, err := store.Issue(ctx, 1)
	require.NoError(t, err)

	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty", raw: ""},
		{name: "garbage", raw: "not a qr code"},
		{name: "json array", raw: "[1,2]"},
		{name: "json wrong tag", raw: fmt.Sprintf(`{"uuid":"a","tipo":"ticket","timestamp":%d}`, fresh)},
		{name: "json missing tag", raw: fmt.Sprintf(`{"uuid":"a","timestamp":%d}`, fresh)},
		{name: "json missing uuid", raw: fmt.Sprintf(`{"tipo":"ativacao_checkin","timestamp":%d}`, fresh)},
		{name: "json missing timestamp", raw: `{"uuid":"a","tipo":"ativacao_checkin"}`},
		{name: "json stale", raw: fmt.Sprintf(`{"uuid":"a","tipo":"ativacao_checkin","timestamp":%d}`, stale)},
		{name: "url wrong tag", raw: "https://app.example.com/checkin?qrUUID=" + tokenID + "&tipo=other"},
		{name: "url missing tag", raw: "https://app.example.com/checkin?qrUUID=" + tokenID},
		{name: "url unknown token", raw: "https://app.example.com/checkin?qrUUID=qr_nope&tipo=ativacao_checkin"},
		{name: "legacy url stale", raw: fmt.Sprintf("https://app.example.com/checkin?uuid=a&tipo=ativacao_checkin&timestamp=%d", stale)},
		{name: "legacy url bad timestamp", raw: "https://app.example.com/checkin?uuid=a&tipo=ativacao_checkin&timestamp=soon"},
		{name: "non http scheme", raw: "ftp://app.example.com/checkin?qrUUID=" + tokenID + "&tipo=ativacao_checkin"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := codec.Decode(ctx, tc.raw)
			assert.ErrorIs(t, err, ErrInvalidPayload)
		})
	}
}

func TestCodec_Decode_ExpiredToken(t *testing.T) {
	ctx := context.Background()
	codec, store, c := newTestCodec(t)

	tokenID, err := store.Issue(ctx, 5)
	require.NoError(t, err)
	encoded := codec.Encode(Ticket{TokenID: tokenID, ActivationID: 5, ActivationToken: "u", IssuedAt: c.Now()})

	c.Advance(300 * time.Second)
	_, err = codec.Decode(ctx, encoded)
	require.NoError(t, err)

	c.Advance(time.Second)
	_, err = codec.Decode(ctx, encoded)
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestCodec_Decode_StoreFailure(t *testing.T) {
	codec := NewCodec("https://app.example.com", failingStore{}, time.Minute, clock.NewFake(epoch))

	_, err := codec.Decode(context.Background(), "https://app.example.com/checkin?qrUUID=qr_x&tipo=ativacao_checkin")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidPayload)
}
