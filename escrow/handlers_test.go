package escrow

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lancehub/globals"
	"lancehub/models"
	"lancehub/notify"
)

// fakeNotifyStore backs the effect executor. gate, when set, holds up
// notification inserts until the test releases it.
type fakeNotifyStore struct {
	gate     chan struct{}
	inserted chan struct{}
}

func (f *fakeNotifyStore) InsertNotification(_ context.Context, _ *models.Notification) error {
	if f.gate != nil {
		<-f.gate
	}
	if f.inserted != nil {
		f.inserted <- struct{}{}
	}
	return nil
}

func (f *fakeNotifyStore) GetConversationByKey(_ context.Context, _ string) (*models.Conversation, error) {
	return &models.Conversation{ConversationID: "conv1"}, nil
}

func (f *fakeNotifyStore) InsertConversation(_ context.Context, _ *models.Conversation) error {
	return nil
}

func (f *fakeNotifyStore) TouchConversation(_ context.Context, _, _ string, _ time.Time) error {
	return nil
}

func (f *fakeNotifyStore) InsertMessage(_ context.Context, _ *models.Message) error { return nil }

func (f *fakeNotifyStore) InsertPortfolioEntry(_ context.Context, _ *models.PortfolioEntry) error {
	return nil
}

type nopEvents struct{}

func (nopEvents) Emit(_ context.Context, _, _ string, _ map[string]any) {}
func (nopEvents) IncrUnread(_ context.Context, _ string) {}

func newTestHandlers(f *fakeStore, ns *fakeNotifyStore) *Handlers {
	executor := notify.NewExecutor(notify.NewDispatcher(ns, nopEvents{}))
	return NewHandlers(f, executor, "https://polygonscan.com/tx/")
}

func asUser(r *http.Request, userID string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), globals.UserIDKey, userID))
}

func TestCreateEscrowRequiresJobClient(t *testing.T) {
	f := newFakeStore()
	f.jobs["job1"] = &models.Job{JobID: "job1", Title: "Logo design", ClientID: "client1", FreelancerID: "free1", Status: models.JobStatusOpen}
	h := newTestHandlers(f, &fakeNotifyStore{})

	body := `{"jobId":"job1","contractId":"0xc0ffee","txHash":"0xbbb","token":"USDC","amount":1000,"platformFee":50}`
	req := asUser(httptest.NewRequest(http.MethodPost, "/api/web3/create-escrow", strings.NewReader(body)), "free1")
	rec := httptest.NewRecorder()

	h.CreateEscrow(rec, req, nil)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if len(f.escrows) != 0 {
		t.Fatal("escrow recorded for a non-client caller")
	}
}

func TestReleaseFundsRequiresParty(t *testing.T) {
	f := newFakeStore()
	seed(f)
	h := newTestHandlers(f, &fakeNotifyStore{})

	body := `{"jobId":"job1","contractId":"0xc0ffee","txHash":"0xfresh","releaseType":"completion","amount":1000,"platformFee":50}`
	req := asUser(httptest.NewRequest(http.MethodPost, "/api/web3/release-funds", strings.NewReader(body)), "mallory")
	rec := httptest.NewRecorder()

	h.ReleaseFunds(rec, req, nil)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if f.escrows["esc1"].Status != models.EscrowStatusFunded {
		t.Fatal("escrow released by a non-party caller")
	}
}

func TestCreateEscrowRespondsBeforeEffects(t *testing.T) {
	f := newFakeStore()
	f.jobs["job1"] = &models.Job{JobID: "job1", Title: "Logo design", ClientID: "client1", FreelancerID: "free1", Status: models.JobStatusOpen}
	ns := &fakeNotifyStore{gate: make(chan struct{}), inserted: make(chan struct{}, 2)}
	h := newTestHandlers(f, ns)

	body := `{"jobId":"job1","contractId":"0xc0ffee","txHash":"0xbbb","token":"USDC","amount":1000,"platformFee":50}`
	req := asUser(httptest.NewRequest(http.MethodPost, "/api/web3/create-escrow", strings.NewReader(body)), "client1")
	rec := httptest.NewRecorder()

	// returns while notification inserts are still gated
	h.CreateEscrow(rec, req, nil)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 before effects ran, got %d", rec.Code)
	}
	if len(f.escrows) != 1 {
		t.Fatal("escrow not recorded")
	}

	close(ns.gate)
	for i := 0; i < 2; i++ {
		select {
		case <-ns.inserted:
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for deferred notification")
		}
	}
}
