package cryptoenv

import "testing"

func TestSealOpenRoundTrip(t *testing.T) {
	plaintext := []byte(`{"roster":{}}`)
	env, err := Seal("correct horse battery staple", plaintext)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	got, err := Open("correct horse battery staple", env)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if string(got) != string(plaintext) {
		t.Fatalf("got %q, want %q", got, plaintext)
	}
}

func TestOpenWrongPasswordFails(t *testing.T) {
	env, err := Seal("right-password", []byte("secret"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if _, err := Open("wrong-password", env); err != ErrDecrypt {
		t.Fatalf("got err=%v, want ErrDecrypt", err)
	}
}

func TestOpenTruncatedEnvelopeFails(t *testing.T) {
	if _, err := Open("pw", []byte("short")); err != ErrDecrypt {
		t.Fatalf("got err=%v, want ErrDecrypt", err)
	}
}
