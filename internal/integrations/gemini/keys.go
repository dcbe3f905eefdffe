package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// KeySource yields the Gemini API key.
type KeySource interface {
	APIKey(ctx context.Context) (string, error)
}

// StaticKey is a key taken from configuration, usually the API_KEY variable.
type StaticKey string

func (k StaticKey) APIKey(context.Context) (string, error) {
	key := strings.TrimSpace(string(k))
	if key == "" {
		return "", errors.New("gemini: API key is not configured")
	}
	return key, nil
}

type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// ParamStoreKey fetches the key from a parameter store on first use and
// keeps the result for the lifetime of the process.
type ParamStoreKey struct {
	getter Getter
	name   string

	once   sync.Once
	apiKey string
	err    error
}

func NewParamStoreKey(getter Getter, name string) (*ParamStoreKey, error) {
	if getter == nil {
		return nil, errors.New("gemini: paramstore getter must not be nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("gemini: key parameter name must not be empty")
	}
	return &ParamStoreKey{getter: getter, name: name}, nil
}

func (k *ParamStoreKey) APIKey(ctx context.Context) (string, error) {
	k.once.Do(func() {
		k.apiKey, k.err = fetchAPIKey(ctx, k.getter, k.name)
	})
	return k.apiKey, k.err
}

type tokenPayload struct {
	Token string `json:"token"`
}

// fetchAPIKey accepts either a bare key or a {"token": "..."} document.
func fetchAPIKey(ctx context.Context, getter Getter, name string) (string, error) {
	raw, err := getter.GetParameter(ctx, name)
	if err != nil {
		return "", fmt.Errorf("gemini: fetch key from paramstore: %w", err)
	}
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "{") {
		var tp tokenPayload
		if err := json.Unmarshal([]byte(raw), &tp); err != nil {
			return "", fmt.Errorf("gemini: unmarshal paramstore key value as JSON: %w", err)
		}
		raw = strings.TrimSpace(tp.Token)
	}
	if raw == "" {
		return "", errors.New("gemini: API key is empty")
	}
	return raw, nil
}

// FirstKey tries each source in order and returns the first key found.
type FirstKey []KeySource

func (f FirstKey) APIKey(ctx context.Context) (string, error) {
	var errs []error
	for _, src := range f {
		if src == nil {
			continue
		}
		key, err := src.APIKey(ctx)
		if err == nil {
			return key, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return "", errors.New("gemini: no key source configured")
	}
	return "", errors.Join(errs...)
}
