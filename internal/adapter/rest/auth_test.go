package rest

import (
	"testing"
)

func TestHeadersIncludesAllFields(t *testing.T) {
	t.Parallel()
	a := NewAuth(Credentials{APIKey: "key1", Secret: "c2VjcmV0", Passphrase: "pass1"})

	headers, err := a.Headers("POST", "/orders", `{"symbol":"BTC-USD"}`)
	if err != nil {
		t.Fatalf("Headers: %v", err)
	}

	for _, key := range []string{"API-KEY", "API-SIGNATURE", "API-TIMESTAMP", "API-PASSPHRASE"} {
		if headers[key] == "" {
			t.Errorf("headers[%q] is empty", key)
		}
	}
	if headers["API-KEY"] != "key1" {
		t.Errorf("API-KEY = %q, want key1", headers["API-KEY"])
	}
	if headers["API-PASSPHRASE"] != "pass1" {
		t.Errorf("API-PASSPHRASE = %q, want pass1", headers["API-PASSPHRASE"])
	}
}

func TestSignIsDeterministicForSameTimestamp(t *testing.T) {
	t.Parallel()
	a := NewAuth(Credentials{APIKey: "k", Secret: "c2VjcmV0", Passphrase: "p"})

	sig1, err := a.sign("1700000000", "GET", "/book", "")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	sig2, err := a.sign("1700000000", "GET", "/book", "")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if sig1 != sig2 {
		t.Errorf("sign is not deterministic: %q != %q", sig1, sig2)
	}
}

func TestSignDiffersByMethod(t *testing.T) {
	t.Parallel()
	a := NewAuth(Credentials{APIKey: "k", Secret: "c2VjcmV0", Passphrase: "p"})

	get, err := a.sign("1700000000", "GET", "/orders", "")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	post, err := a.sign("1700000000", "POST", "/orders", "")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if get == post {
		t.Error("signatures for GET and POST should differ")
	}
}

func TestDecodeSecretAcceptsMultipleEncodings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		secret string
	}{
		{"std base64", "c2VjcmV0"},
		{"url safe base64", "-_8="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := decodeSecret(tt.secret); err != nil {
				t.Errorf("decodeSecret(%q): %v", tt.secret, err)
			}
		})
	}
}

func TestDecodeSecretRejectsInvalidInput(t *testing.T) {
	t.Parallel()
	if _, err := decodeSecret("not base64!!!@@@"); err == nil {
		t.Error("expected error for malformed secret, got nil")
	}
}
