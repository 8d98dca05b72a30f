// Package payload decodes the quickstart payload handed out by the Sinch dashboard.
//
// The payload is a base64 encoded JSON object describing the sample to bootstrap and the application
// credentials to inject into it. Keys may use their long form or a short alias, used by the dashboard
// to keep the copy-pasteable snippet small.
package payload

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/url"
	"slices"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/sinch/sinch-quickstart/internal/constants"
	"github.com/sinch/sinch-quickstart/internal/fileutils"
)

var (
	// ErrInvalidEncoding is returned when the payload is not valid base64.
	ErrInvalidEncoding = errors.New("payload is not valid base64")
	// ErrInvalidJSON is returned when the decoded payload is not a JSON object.
	ErrInvalidJSON = errors.New("payload is not a valid JSON object")
	// ErrInvalidValue is returned when a payload value has the wrong type or unsafe content.
	ErrInvalidValue = errors.New("invalid payload value")
	// ErrMissingKey is returned when a required key is absent or empty.
	ErrMissingKey = errors.New("missing value for key")
	// ErrUnknownSample is returned when the sample is not one of the known samples.
	ErrUnknownSample = errors.New("could not determine which sample to prepare")
	// ErrInvalidArchiveURL is returned when the archive is not an http(s) URL.
	ErrInvalidArchiveURL = errors.New("invalid archive URL")
)

// Credentials are the Sinch application credentials injected into the sample.
type Credentials struct {
	ApplicationKey    string `mapstructure:"application_key" yaml:"application_key"`
	ApplicationSecret string `mapstructure:"application_secret" yaml:"application_secret"`
	Environment       string `mapstructure:"environment" yaml:"environment"`
}

// Payload is the decoded quickstart input.
type Payload struct {
	Archive     string      `mapstructure:"archive" yaml:"archive"`
	Sample      string      `mapstructure:"sample" yaml:"sample"`
	Credentials Credentials `mapstructure:"credentials" yaml:"credentials"`
}

// keyAliases maps long keys to the short keys used by the dashboard.
var keyAliases = map[string]string{
	"archive":                        "a",
	"sample":                         "s",
	"credentials.application_key":    "c.k",
	"credentials.application_secret": "c.s",
	"credentials.environment":        "c.e",
}

// samples maps sample names to their project name in the SDK archive.
var samples = map[string]string{
	"im":           "SinchIM",
	"app-to-app":   "SinchCalling",
	"app-to-phone": "SinchPSTN",
	"video":        "SinchVideo",
}

// Samples returns the known sample names, sorted.
func Samples() []string {
	return slices.Sorted(maps.Keys(samples))
}

func defaults() map[string]any {
	return map[string]any{
		"archive": constants.DefaultArchiveURL,
		"credentials": map[string]any{
			"environment": constants.DefaultEnvironment,
		},
	}
}

var encodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.RawStdEncoding,
	base64.URLEncoding,
	base64.RawURLEncoding,
}

// Decode decodes and validates an encoded payload.
// It has no side effects other than logging.
func Decode(encoded string) (Payload, error) {
	raw, err := decodeBase64(encoded)
	if err != nil {
		return Payload{}, err
	}

	var values map[string]any
	if err := fileutils.ParseJSON(bytes.NewReader(raw), &values); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if values == nil {
		return Payload{}, fmt.Errorf("%w: got null", ErrInvalidJSON)
	}

	resolved := defaults()
	for long, short := range keyAliases {
		v, ok := lookup(values, short)
		if !ok {
			v, ok = lookup(values, long)
		}
		if !ok {
			continue
		}
		set(resolved, long, v)
	}

	var p Payload
	if err := mapstructure.Decode(resolved, &p); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}

	if err := p.Validate(); err != nil {
		return Payload{}, err
	}

	slog.Debug("Decoded payload", "payload", p.Redacted())
	return p, nil
}

// Encode returns the payload encoded with the short keys, as the dashboard does.
func Encode(p Payload) (string, error) {
	data, err := json.Marshal(map[string]any{
		"a": p.Archive,
		"s": p.Sample,
		"c": map[string]string{
			"k": p.Credentials.ApplicationKey,
			"s": p.Credentials.ApplicationSecret,
			"e": p.Credentials.Environment,
		},
	})
	if err != nil {
		return "", fmt.Errorf("could not marshal payload: %v", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func decodeBase64(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidEncoding)
	}

	var errs error
	for _, enc := range encodings {
		raw, err := enc.DecodeString(encoded)
		if err == nil {
			return raw, nil
		}
		errs = errors.Join(errs, err)
	}
	return nil, fmt.Errorf("%w: %v", ErrInvalidEncoding, errs)
}

// lookup returns the value at the dotted key path in values.
// A JSON null counts as absent.
func lookup(values map[string]any, key string) (any, bool) {
	head, rest, nested := strings.Cut(key, ".")
	v, ok := values[head]
	if !ok || v == nil {
		return nil, false
	}
	if !nested {
		return v, true
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	return lookup(m, rest)
}

// set stores v at the dotted key path in values, creating intermediate maps.
func set(values map[string]any, key string, v any) {
	head, rest, nested := strings.Cut(key, ".")
	if !nested {
		values[head] = v
		return
	}
	m, ok := values[head].(map[string]any)
	if !ok {
		m = make(map[string]any)
		values[head] = m
	}
	set(m, rest, v)
}

// Validate checks that the payload can be used to provision a sample.
func (p Payload) Validate() error {
	fields := []struct{ key, value string }{
		{"sample", p.Sample},
		{"archive", p.Archive},
		{"credentials.application_key", p.Credentials.ApplicationKey},
		{"credentials.application_secret", p.Credentials.ApplicationSecret},
		{"credentials.environment", p.Credentials.Environment},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w '%s'", ErrMissingKey, f.key)
		}
	}

	if _, err := p.ProjectName(); err != nil {
		return err
	}

	u, err := url.Parse(p.Archive)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArchiveURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q is not an http(s) URL", ErrInvalidArchiveURL, p.Archive)
	}

	// Credentials end up inside Objective-C string literals.
	for _, f := range fields[2:] {
		if strings.ContainsAny(f.value, "\"\\ \t\r\n") {
			return fmt.Errorf("%w: '%s' contains quotes, backslashes or whitespace", ErrInvalidValue, f.key)
		}
	}

	return nil
}

// ProjectName returns the name of the sample project in the SDK archive.
func (p Payload) ProjectName() (string, error) {
	project, ok := samples[p.Sample]
	if !ok {
		return "", fmt.Errorf("%w: %q is not one of %s", ErrUnknownSample, p.Sample, strings.Join(Samples(), ", "))
	}
	return project, nil
}

// Redacted returns a copy of the payload safe to log or print.
func (p Payload) Redacted() Payload {
	if p.Credentials.ApplicationSecret != "" {
		p.Credentials.ApplicationSecret = "<redacted>"
	}
	return p
}
