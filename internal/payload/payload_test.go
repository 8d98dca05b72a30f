package payload_test

import (
	"encoding/base64"
	"testing"

	"github.com/sinch/sinch-quickstart/internal/constants"
	"github.com/sinch/sinch-quickstart/internal/payload"
	"github.com/stretchr/testify/require"
)

const (
	testKey    = "bd8dbc2d-053e-44c4-a7da-47d85e2bae59"
	testSecret = "YmY3ZTU0ZGEtZmEzOC00MA=="
)

func b64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func TestDecode(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		input string

		want    payload.Payload
		wantErr error
	}{
		"Long keys": {
			input: b64(`{"archive":"http://download.sinch.com/ios/3.0/Sinch-iOS-3.0.0-2cc8ef8.tar.bz2","sample":"im",
				"credentials":{"application_key":"` + testKey + `","application_secret":"` + testSecret + `","environment":"sandbox.sinch.com"}}`),
			want: payload.Payload{
				Archive:     "http://download.sinch.com/ios/3.0/Sinch-iOS-3.0.0-2cc8ef8.tar.bz2",
				Sample:      "im",
				Credentials: payload.Credentials{ApplicationKey: testKey, ApplicationSecret: testSecret, Environment: "sandbox.sinch.com"},
			},
		},
		"Short keys": {
			input: b64(`{"a":"https://example.com/sdk.tar.bz2","s":"video","c":{"k":"` + testKey + `","s":"` + testSecret + `","e":"clientapi.sinch.com"}}`),
			want: payload.Payload{
				Archive:     "https://example.com/sdk.tar.bz2",
				Sample:      "video",
				Credentials: payload.Credentials{ApplicationKey: testKey, ApplicationSecret: testSecret, Environment: "clientapi.sinch.com"},
			},
		},
		"Defaults for archive and environment": {
			input: b64(`{"s":"app-to-app","c":{"k":"` + testKey + `","s":"` + testSecret + `"}}`),
			want: payload.Payload{
				Archive:     constants.DefaultArchiveURL,
				Sample:      "app-to-app",
				Credentials: payload.Credentials{ApplicationKey: testKey, ApplicationSecret: testSecret, Environment: constants.DefaultEnvironment},
			},
		},
		"Null values fall back to defaults": {
			input: b64(`{"a":null,"s":"app-to-phone","c":{"k":"` + testKey + `","s":"` + testSecret + `","e":null}}`),
			want: payload.Payload{
				Archive:     constants.DefaultArchiveURL,
				Sample:      "app-to-phone",
				Credentials: payload.Credentials{ApplicationKey: testKey, ApplicationSecret: testSecret, Environment: constants.DefaultEnvironment},
			},
		},
		"Short keys win over long keys": {
			input: b64(`{"s":"im","sample":"video","c":{"k":"short","s":"` + testSecret + `"},"credentials":{"application_key":"long"}}`),
			want: payload.Payload{
				Archive:     constants.DefaultArchiveURL,
				Sample:      "im",
				Credentials: payload.Credentials{ApplicationKey: "short", ApplicationSecret: testSecret, Environment: constants.DefaultEnvironment},
			},
		},
		"Mixed long and short keys": {
			input: b64(`{"sample":"im","c":{"k":"` + testKey + `"},"credentials":{"application_secret":"` + testSecret + `"}}`),
			want: payload.Payload{
				Archive:     constants.DefaultArchiveURL,
				Sample:      "im",
				Credentials: payload.Credentials{ApplicationKey: testKey, ApplicationSecret: testSecret, Environment: constants.DefaultEnvironment},
			},
		},
		"Unknown keys are ignored": {
			input: b64(`{"s":"im","x":42,"c":{"k":"` + testKey + `","s":"` + testSecret + `","z":true}}`),
			want: payload.Payload{
				Archive:     constants.DefaultArchiveURL,
				Sample:      "im",
				Credentials: payload.Credentials{ApplicationKey: testKey, ApplicationSecret: testSecret, Environment: constants.DefaultEnvironment},
			},
		},
		"Surrounding whitespace and unpadded base64": {
			input: "  " + base64.RawStdEncoding.EncodeToString([]byte(`{"s":"im","c":{"k":"k1","s":"s1"}}`)) + "\n",
			want: payload.Payload{
				Archive:     constants.DefaultArchiveURL,
				Sample:      "im",
				Credentials: payload.Credentials{ApplicationKey: "k1", ApplicationSecret: "s1", Environment: constants.DefaultEnvironment},
			},
		},

		// Error cases
		"Empty input":              {input: "", wantErr: payload.ErrInvalidEncoding},
		"Not base64":               {input: "this is %% not base64!", wantErr: payload.ErrInvalidEncoding},
		"Base64 but not JSON":      {input: b64("hello world"), wantErr: payload.ErrInvalidJSON},
		"Base64 JSON array":        {input: b64(`["im"]`), wantErr: payload.ErrInvalidJSON},
		"Base64 JSON null":         {input: b64(`null`), wantErr: payload.ErrInvalidJSON},
		"Missing sample":           {input: b64(`{"c":{"k":"k1","s":"s1"}}`), wantErr: payload.ErrMissingKey},
		"Missing application key":  {input: b64(`{"s":"im","c":{"s":"s1"}}`), wantErr: payload.ErrMissingKey},
		"Missing secret":           {input: b64(`{"s":"im","c":{"k":"k1"}}`), wantErr: payload.ErrMissingKey},
		"Missing credentials":      {input: b64(`{"s":"im"}`), wantErr: payload.ErrMissingKey},
		"Empty environment":        {input: b64(`{"s":"im","c":{"k":"k1","s":"s1","e":""}}`), wantErr: payload.ErrMissingKey},
		"Unknown sample":           {input: b64(`{"s":"android","c":{"k":"k1","s":"s1"}}`), wantErr: payload.ErrUnknownSample},
		"Sample is not a string":   {input: b64(`{"s":3,"c":{"k":"k1","s":"s1"}}`), wantErr: payload.ErrInvalidValue},
		"Credentials not a object": {input: b64(`{"s":"im","c":"k1"}`), wantErr: payload.ErrMissingKey},
		"Archive is not http":      {input: b64(`{"a":"file:///etc/passwd","s":"im","c":{"k":"k1","s":"s1"}}`), wantErr: payload.ErrInvalidArchiveURL},
		"Archive has no host":      {input: b64(`{"a":"http://","s":"im","c":{"k":"k1","s":"s1"}}`), wantErr: payload.ErrInvalidArchiveURL},
		"Archive is not a URL":     {input: b64(`{"a":"http://a b\u007f","s":"im","c":{"k":"k1","s":"s1"}}`), wantErr: payload.ErrInvalidArchiveURL},
		"Key with a quote":         {input: b64(`{"s":"im","c":{"k":"k\"1","s":"s1"}}`), wantErr: payload.ErrInvalidValue},
		"Environment with spaces":  {input: b64(`{"s":"im","c":{"k":"k1","s":"s1","e":"a b.sinch.com"}}`), wantErr: payload.ErrInvalidValue},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := payload.Decode(tc.input)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr, "Decode should return the expected error")
				return
			}
			require.NoError(t, err, "Decode should not return an error")
			require.Equal(t, tc.want, got, "Decode should return the expected payload")
		})
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	t.Parallel()

	p := payload.Payload{
		Archive:     "https://example.com/sdk.tar.bz2",
		Sample:      "app-to-phone",
		Credentials: payload.Credentials{ApplicationKey: testKey, ApplicationSecret: testSecret, Environment: "sandbox.sinch.com"},
	}

	encoded, err := payload.Encode(p)
	require.NoError(t, err, "Encode should not return an error")

	got, err := payload.Decode(encoded)
	require.NoError(t, err, "Decode should accept encoded payloads")
	require.Equal(t, p, got, "Encoded payload should decode to the original")
}

func TestProjectName(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		sample string

		want    string
		wantErr bool
	}{
		"Instant messaging": {sample: "im", want: "SinchIM"},
		"App to app":        {sample: "app-to-app", want: "SinchCalling"},
		"App to phone":      {sample: "app-to-phone", want: "SinchPSTN"},
		"Video":             {sample: "video", want: "SinchVideo"},

		"Unknown sample": {sample: "IM", wantErr: true},
		"Empty sample":   {sample: "", wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := payload.Payload{Sample: tc.sample}.ProjectName()
			if tc.wantErr {
				require.ErrorIs(t, err, payload.ErrUnknownSample, "ProjectName should fail for unknown samples")
				require.ErrorContains(t, err, "app-to-app, app-to-phone, im, video", "Error should list the known samples")
				return
			}
			require.NoError(t, err, "ProjectName should not return an error")
			require.Equal(t, tc.want, got, "ProjectName should return the project name")
		})
	}
}

func TestRedacted(t *testing.T) {
	t.Parallel()

	p := payload.Payload{Sample: "im", Credentials: payload.Credentials{ApplicationKey: testKey, ApplicationSecret: testSecret}}
	r := p.Redacted()

	require.Equal(t, "<redacted>", r.Credentials.ApplicationSecret, "Secret should be masked")
	require.Equal(t, testKey, r.Credentials.ApplicationKey, "Key should be kept")
	require.Equal(t, testSecret, p.Credentials.ApplicationSecret, "Original payload should be untouched")
	require.Empty(t, payload.Payload{}.Redacted().Credentials.ApplicationSecret, "Empty secret should stay empty")
}

func TestSamples(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{"app-to-app", "app-to-phone", "im", "video"}, payload.Samples(), "Samples should list every known sample in order")
}
