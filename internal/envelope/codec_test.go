package envelope_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/profile-service/internal/envelope"
)

func newCodec() *envelope.Codec {
	return envelope.NewCodec(envelope.DefaultChannels())
}

func TestDecodeUsesChannelForKind(t *testing.T) {
	ch := envelope.DefaultChannels()
	kind, v, err := newCodec().Decode(ch.PaymentCompleted, []byte(`{"userId":"u1","planType":"PREMIUM","paidAt":"2026-01-02T03:04:05Z"}`))
	require.NoError(t, err)
	assert.Equal(t, envelope.KindPaymentCompleted, kind)

	evt, ok := v.(*envelope.PaymentCompleted)
	require.True(t, ok)
	assert.Equal(t, "u1", evt.UserID)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), evt.PaidAt.Time)
}

func TestDecodeToleratesUnknownFields(t *testing.T) {
	ch := envelope.DefaultChannels()
	_, v, err := newCodec().Decode(ch.AccountCreated, []byte(`{"userId":"u1","shinyNewField":{"a":1},"email":"a@b.c"}`))
	require.NoError(t, err)
	evt := v.(*envelope.AccountCreated)
	assert.Equal(t, "u1", evt.UserID)
	assert.Equal(t, "a@b.c", evt.Email)
}

func TestDecodeErrors(t *testing.T) {
	ch := envelope.DefaultChannels()
	cases := []struct {
		name    string
		channel string
		body    string
	}{
		{"unknown channel", "nobody-listens", `{}`},
		{"empty body", ch.AccountDeleted, "  "},
		{"null body", ch.AccountDeleted, "null"},
		{"malformed json", ch.AccountDeleted, `{"userId":`},
		{"wrong field type", ch.PaymentCompleted, `{"userId":42}`},
		{"bad timestamp", ch.PaymentCompleted, `{"userId":"u1","paidAt":"yesterday"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := newCodec().Decode(tc.channel, []byte(tc.body))
			var de *envelope.DecodeError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tc.channel, de.Channel)
		})
	}
}

func TestTimeLayouts(t *testing.T) {
	cases := map[string]time.Time{
		`"2026-05-01T10:00:00Z"`:       time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
		`"2026-05-01T12:00:00+02:00"`:  time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
		`"2026-05-01T10:00:00.123456"`: time.Date(2026, 5, 1, 10, 0, 0, 123456000, time.UTC),
		`"2026-05-01"`:                 time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		`null`:                         {},
		`""`:                           {},
	}
	for in, want := range cases {
		var got envelope.Time
		require.NoError(t, json.Unmarshal([]byte(in), &got), in)
		assert.True(t, want.Equal(got.Time), "%s: got %v", in, got.Time)
	}
}

func TestTimeHelpers(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var zero envelope.Time
	assert.Nil(t, zero.Ptr())
	assert.Equal(t, now, zero.OrNow(now))

	b, err := json.Marshal(zero)
	require.NoError(t, err)
	assert.Equal(t, "null", string(b))

	set := envelope.NewTime(now.Add(time.Hour))
	require.NotNil(t, set.Ptr())
	assert.Equal(t, now.Add(time.Hour), set.OrNow(now))
}

func TestRequestIDEchoedVerbatim(t *testing.T) {
	ch := envelope.DefaultChannels()
	_, v, err := newCodec().Decode(ch.PremiumStatusRequest, []byte(`{"requestId": {"n":1,"tag":"x"},"companyId":"c1"}`))
	require.NoError(t, err)
	req := v.(*envelope.PremiumStatusRequest)

	out, err := envelope.Encode(envelope.PremiumStatusResponse{RequestID: req.RequestID, CompanyID: req.CompanyID})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"requestId":{"n":1,"tag":"x"}`)
}

func TestRequestIDKeepsHTMLCharacters(t *testing.T) {
	ch := envelope.DefaultChannels()
	_, v, err := newCodec().Decode(ch.PremiumStatusRequest, []byte(`{"requestId":"a<b&c>","companyId":"c1"}`))
	require.NoError(t, err)
	req := v.(*envelope.PremiumStatusRequest)
	assert.Equal(t, `"a<b&c>"`, string(req.RequestID))

	out, err := envelope.Encode(envelope.PremiumStatusResponse{RequestID: req.RequestID, CompanyID: req.CompanyID})
	require.NoError(t, err)
	assert.Equal(t, `{"requestId":"a<b&c>","companyId":"c1","isPremium":false}`, string(out))
}

func TestDecodeAvatarUploadCompleted(t *testing.T) {
	ch := envelope.DefaultChannels()
	kind, v, err := newCodec().Decode(ch.AvatarUploadCompleted,
		[]byte(`{"userId":"u1","avatarUrl":"https://cdn/a.png","avatarKey":"avatars/u1","success":true}`))
	require.NoError(t, err)
	assert.Equal(t, envelope.KindAvatarUploadCompleted, kind)
	evt := v.(*envelope.AvatarUploadCompleted)
	assert.Equal(t, "u1", evt.UserID)
	assert.Equal(t, "https://cdn/a.png", evt.AvatarURL)
	assert.True(t, evt.Success)
}

func TestSubscriptionCancelledAccountKey(t *testing.T) {
	assert.Equal(t, "u", envelope.SubscriptionCancelled{UserID: "u", CompanyID: "c"}.AccountKey())
	assert.Equal(t, "c", envelope.SubscriptionCancelled{CompanyID: "c", ApplicantID: "a"}.AccountKey())
	assert.Equal(t, "a", envelope.SubscriptionCancelled{ApplicantID: "a"}.AccountKey())
	assert.Equal(t, "", envelope.SubscriptionCancelled{}.AccountKey())
}

func TestMediaUploadCompletedKey(t *testing.T) {
	assert.Equal(t, "EVT-1", envelope.MediaUploadCompleted{PostID: "EVT-1", EventID: "EVT-2"}.Key())
	assert.Equal(t, "EVT-2", envelope.MediaUploadCompleted{EventID: "EVT-2"}.Key())
}

func TestChannelsMerge(t *testing.T) {
	merged := envelope.DefaultChannels().Merge(envelope.Channels{AccountCreated: "accounts.created"})
	assert.Equal(t, "accounts.created", merged.AccountCreated)
	assert.Equal(t, "user-deleted", merged.AccountDeleted)
	assert.Equal(t, envelope.KindAccountCreated, merged.Inbound()["accounts.created"])
}

func TestChannelsValidate(t *testing.T) {
	require.NoError(t, envelope.DefaultChannels().Validate())

	dup := envelope.DefaultChannels().Merge(envelope.Channels{PaymentCompleted: "user-created"})
	err := dup.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"user-created"`)

	// Only inbound names must be unique.
	ok := envelope.DefaultChannels().Merge(envelope.Channels{ProfileSummary: "subscription.changed"})
	assert.NoError(t, ok.Validate())

	empty := envelope.DefaultChannels()
	empty.AvatarUploadCompleted = ""
	assert.Error(t, empty.Validate())
}
