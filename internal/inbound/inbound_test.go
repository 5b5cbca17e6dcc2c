package inbound

import (
	"strings"
	"testing"
)

func TestDecode_Text(t *testing.T) {
	body := []byte(`{
		"from": {"email": "dana@corp.example", "name": "Dana Reyes"},
		"subject": "Quote request",
		"text": "We need 25 laptops.",
		"message_id": "<abc@mail>",
		"in_reply_to": "<prev@mail>"
	}`)

	got, err := Decode(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.From != "dana@corp.example" {
		t.Errorf("from = %q", got.From)
	}
	if got.Body != "We need 25 laptops." {
		t.Errorf("body = %q", got.Body)
	}
	if got.MessageID != "<abc@mail>" || got.InReplyTo != "<prev@mail>" {
		t.Errorf("refs = %q / %q", got.MessageID, got.InReplyTo)
	}
}

func TestDecode_HTMLOnly(t *testing.T) {
	body := []byte(`{
		"from": {"email": "dana@corp.example"},
		"subject": "Quote request",
		"html": "<html><body><p>We need 25 laptops with 16GB RAM for our Austin office.</p><p>Delivery by March would be ideal, ideally with onsite warranty.</p></body></html>"
	}`)

	got, err := Decode(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(got.Body, "25 laptops") {
		t.Errorf("html content lost: %q", got.Body)
	}
}

func TestDecode_MissingSender(t *testing.T) {
	if _, err := Decode([]byte(`{"subject":"hi","text":"x"}`)); err == nil {
		t.Fatal("expected error for missing sender")
	}
}

func TestDecode_BadJSON(t *testing.T) {
	if _, err := Decode([]byte(`{`)); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestSignatureRoundTrip(t *testing.T) {
	body := []byte(`{"x":1}`)
	sig := ComputeSignature(body, "whsec_test")

	if !VerifySignature(body, "whsec_test", sig) {
		t.Error("valid signature rejected")
	}
	if VerifySignature(body, "whsec_other", sig) {
		t.Error("signature accepted with wrong secret")
	}
	if VerifySignature([]byte(`{"x":2}`), "whsec_test", sig) {
		t.Error("signature accepted for tampered body")
	}
	if VerifySignature(body, "whsec_test", "") {
		t.Error("empty signature accepted")
	}
	if VerifySignature(body, "whsec_test", "sha256=zz") {
		t.Error("malformed signature accepted")
	}
}
