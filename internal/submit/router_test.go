package submit_test

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/submit"
	"solana-trade-engine/internal/submit/stub"
)

func testArtifact() *domain.SignedArtifact {
	return &domain.SignedArtifact{
		Mint:      "mintX",
		Side:      domain.SideBuy,
		AmountKey: "0.5",
		Payload:   "c2lnbmVkLXR4",
		Signature: "ArtifactSig111111111111111111111111111111111",
	}
}

func testRouter(priority *stub.Priority, direct *stub.Direct) *submit.Router {
	opts := submit.RouterOptions{
		RetryInitialDelay:  time.Millisecond,
		RetryMaxDelay:      2 * time.Millisecond,
		BundlePollInterval: 5 * time.Millisecond,
		BundleWait:         time.Second,
		Logger:             log.New(io.Discard, "", 0),
	}
	if priority != nil {
		opts.Priority = priority
	}
	return submit.NewRouter(direct, opts)
}

func rateLimited() error {
	return domain.Errf(domain.KindRateLimited, "429")
}

func TestRouter_PriorityLands(t *testing.T) {
	priority := stub.NewPriority()
	direct := stub.NewDirect()
	r := testRouter(priority, direct)
	art := testArtifact()

	res, err := r.Submit(context.Background(), art)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Route != domain.RoutePriority {
		t.Errorf("route = %q, want PRIORITY", res.Route)
	}
	if !res.Confirmed {
		t.Error("a landed bundle must come back confirmed")
	}
	if res.Signature != art.Signature {
		t.Errorf("signature = %q, want the artifact's own", res.Signature)
	}
	if direct.Calls() != 0 {
		t.Error("direct channel must not be touched on a priority success")
	}
	sent := priority.LastSent()
	if len(sent) != 1 || sent[0] != art {
		t.Error("bundle must carry exactly the submitted artifact")
	}
}

func TestRouter_RateLimitFallsBackToDirect(t *testing.T) {
	priority := stub.NewPriority()
	priority.SendErrs = []error{rateLimited(), rateLimited(), rateLimited()}
	direct := stub.NewDirect()
	r := testRouter(priority, direct)
	art := testArtifact()

	res, err := r.Submit(context.Background(), art)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if priority.SendCalls() != submit.DefaultSendAttempts {
		t.Errorf("send attempts = %d, want %d", priority.SendCalls(), submit.DefaultSendAttempts)
	}
	if res.Route != domain.RouteDirect {
		t.Errorf("route = %q, want DIRECT after rate-limit exhaustion", res.Route)
	}
	if res.Confirmed {
		t.Error("direct submissions are never pre-confirmed")
	}
	if res.Signature != direct.Signature {
		t.Errorf("signature = %q, want the direct channel's", res.Signature)
	}
	if direct.Last() != art {
		t.Error("fallback must submit the same signed artifact")
	}
}

func TestRouter_RateLimitThenAccepted(t *testing.T) {
	priority := stub.NewPriority()
	priority.SendErrs = []error{rateLimited()}
	direct := stub.NewDirect()
	r := testRouter(priority, direct)

	res, err := r.Submit(context.Background(), testArtifact())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if priority.SendCalls() != 2 {
		t.Errorf("send attempts = %d, want 2", priority.SendCalls())
	}
	if res.Route != domain.RoutePriority || !res.Confirmed {
		t.Errorf("result = %+v, want a confirmed priority result", res)
	}
	if direct.Calls() != 0 {
		t.Error("no fallback expected when a retry succeeds")
	}
}

func TestRouter_HardPriorityErrorNoFallback(t *testing.T) {
	priority := stub.NewPriority()
	priority.SendErrs = []error{errors.New("malformed bundle")}
	direct := stub.NewDirect()
	r := testRouter(priority, direct)

	_, err := r.Submit(context.Background(), testArtifact())
	if err == nil {
		t.Fatal("expected a hard error")
	}
	if !domain.IsKind(err, domain.KindSubmissionFailed) {
		t.Errorf("error kind = %v, want SUBMISSION_FAILED", err)
	}
	if priority.SendCalls() != 1 {
		t.Errorf("send attempts = %d, non-rate-limit failures must not retry", priority.SendCalls())
	}
	if direct.Calls() != 0 {
		t.Error("hard priority failures must not fall back")
	}
}

func TestRouter_BundleFailedIsHardError(t *testing.T) {
	priority := stub.NewPriority()
	priority.Statuses = []domain.BundleStatus{domain.BundleFailed}
	priority.FailDetail = "bundle dropped"
	direct := stub.NewDirect()
	r := testRouter(priority, direct)

	_, err := r.Submit(context.Background(), testArtifact())
	if err == nil {
		t.Fatal("expected an error for a failed bundle")
	}
	if !domain.IsKind(err, domain.KindSubmissionFailed) {
		t.Errorf("error kind = %v, want SUBMISSION_FAILED", err)
	}
	if !strings.Contains(err.Error(), "bundle dropped") {
		t.Errorf("error %q should carry the engine's detail", err)
	}
	if direct.Calls() != 0 {
		t.Error("a failed bundle must not fall back")
	}
}

func TestRouter_PollsUntilLanded(t *testing.T) {
	priority := stub.NewPriority()
	priority.Statuses = []domain.BundleStatus{
		domain.BundlePending,
		domain.BundlePending,
		domain.BundleLanded,
	}
	direct := stub.NewDirect()
	r := testRouter(priority, direct)

	res, err := r.Submit(context.Background(), testArtifact())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !res.Confirmed {
		t.Error("landed bundle must be confirmed")
	}
	if priority.PollCalls() < 3 {
		t.Errorf("poll calls = %d, want at least 3", priority.PollCalls())
	}
}

func TestRouter_PollErrorsAreTransient(t *testing.T) {
	priority := stub.NewPriority()
	priority.PollErrs = []error{errors.New("flake"), errors.New("flake")}
	direct := stub.NewDirect()
	r := testRouter(priority, direct)

	res, err := r.Submit(context.Background(), testArtifact())
	if err != nil {
		t.Fatalf("poll flakes must not fail the submission: %v", err)
	}
	if !res.Confirmed {
		t.Error("bundle should land once polls recover")
	}
	if priority.PollCalls() != 3 {
		t.Errorf("poll calls = %d, want 3", priority.PollCalls())
	}
}

func TestRouter_BundleWaitExpiresUnconfirmed(t *testing.T) {
	priority := stub.NewPriority()
	priority.Statuses = []domain.BundleStatus{domain.BundlePending}
	direct := stub.NewDirect()
	r := submit.NewRouter(direct, submit.RouterOptions{
		Priority:           priority,
		BundlePollInterval: 5 * time.Millisecond,
		BundleWait:         30 * time.Millisecond,
		Logger:             log.New(io.Discard, "", 0),
	})
	art := testArtifact()

	res, err := r.Submit(context.Background(), art)
	if err != nil {
		t.Fatalf("a pending bundle is ambiguous, not an error: %v", err)
	}
	if res.Confirmed {
		t.Error("an unresolved bundle must not claim confirmation")
	}
	if res.Route != domain.RoutePriority {
		t.Errorf("route = %q, want PRIORITY", res.Route)
	}
	if res.Signature != art.Signature {
		t.Errorf("signature = %q, want the artifact's own", res.Signature)
	}
	if direct.Calls() != 0 {
		t.Error("an accepted bundle must not be resubmitted directly")
	}
}

func TestRouter_NoPriorityGoesDirect(t *testing.T) {
	direct := stub.NewDirect()
	r := testRouter(nil, direct)

	res, err := r.Submit(context.Background(), testArtifact())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Route != domain.RouteDirect {
		t.Errorf("route = %q, want DIRECT", res.Route)
	}
	if direct.Calls() != 1 {
		t.Errorf("direct calls = %d, want 1", direct.Calls())
	}
}

func TestRouter_DirectFailure(t *testing.T) {
	direct := stub.NewDirect()
	direct.Errs = []error{errors.New("node refused")}
	r := testRouter(nil, direct)

	_, err := r.Submit(context.Background(), testArtifact())
	if err == nil {
		t.Fatal("expected an error")
	}
	if !domain.IsKind(err, domain.KindSubmissionFailed) {
		t.Errorf("error kind = %v, want SUBMISSION_FAILED", err)
	}
}
