package escrow

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestComputeRequestHash(t *testing.T) {
	body := []byte(`{"jobId":"job1","txHash":"0xaaa"}`)
	r1 := httptest.NewRequest("POST", "/api/web3/release-funds", strings.NewReader(""))
	h1 := computeRequestHash(r1, body, "user1")
	h2 := computeRequestHash(r1, body, "user1")
	if h1 != h2 {
		t.Fatal("hash not deterministic")
	}

	if computeRequestHash(r1, body, "user2") == h1 {
		t.Fatal("user must be part of the hash")
	}
	if computeRequestHash(r1, []byte(`{"jobId":"job2"}`), "user1") == h1 {
		t.Fatal("body must be part of the hash")
	}

	r2 := httptest.NewRequest("POST", "/api/web3/create-escrow", strings.NewReader(""))
	if computeRequestHash(r2, body, "user1") == h1 {
		t.Fatal("path must be part of the hash")
	}
}

func TestCaptureWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := newCaptureWriter(rec)

	cw.WriteHeader(201)
	cw.WriteHeader(500) // second call must be ignored
	cw.Write([]byte(`{"success":true}`))

	if cw.statusCode != 201 || rec.Code != 201 {
		t.Fatalf("status %d / %d", cw.statusCode, rec.Code)
	}
	if cw.buf.String() != `{"success":true}` || rec.Body.String() != `{"success":true}` {
		t.Fatalf("body %q / %q", cw.buf.String(), rec.Body.String())
	}
}
