// Package stub provides in-memory submission channels for tests.
package stub

import (
	"context"
	"sync"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/submit"
)

// Priority implements submit.PriorityChannel with scripted behavior.
type Priority struct {
	mu sync.Mutex

	// BundleID is assigned to every accepted bundle.
	BundleID string
	// SendErrs are consumed one per SendBundle call; a drained script
	// means sends succeed.
	SendErrs []error
	// PollErrs are consumed one per PollBundle call before Statuses;
	// nil entries mean that poll succeeds.
	PollErrs []error
	// Statuses are consumed one per successful PollBundle call; the
	// last entry repeats.
	Statuses []domain.BundleStatus
	// FailDetail fills BundleSubmission.Err for FAILED statuses.
	FailDetail string

	sendCalls int
	pollCalls int
	lastSent  []*domain.SignedArtifact
}

// NewPriority creates a stub that accepts bundles and lands them on
// the first poll.
func NewPriority() *Priority {
	return &Priority{
		BundleID: "bundle-1",
		Statuses: []domain.BundleStatus{domain.BundleLanded},
	}
}

func (p *Priority) SendBundle(ctx context.Context, artifacts []*domain.SignedArtifact) (*domain.BundleSubmission, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.sendCalls++
	p.lastSent = artifacts

	if len(p.SendErrs) > 0 {
		err := p.SendErrs[0]
		p.SendErrs = p.SendErrs[1:]
		if err != nil {
			return nil, err
		}
	}

	sigs := make([]string, len(artifacts))
	for i, a := range artifacts {
		sigs[i] = a.Signature
	}
	return &domain.BundleSubmission{
		ID:         p.BundleID,
		Status:     domain.BundlePending,
		Signatures: sigs,
	}, nil
}

func (p *Priority) PollBundle(ctx context.Context, id string) (*domain.BundleSubmission, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pollCalls++

	if len(p.PollErrs) > 0 {
		err := p.PollErrs[0]
		p.PollErrs = p.PollErrs[1:]
		if err != nil {
			return nil, err
		}
	}

	status := domain.BundlePending
	if len(p.Statuses) > 0 {
		status = p.Statuses[0]
		if len(p.Statuses) > 1 {
			p.Statuses = p.Statuses[1:]
		}
	}

	sub := &domain.BundleSubmission{ID: id, Status: status}
	if status == domain.BundleFailed {
		sub.Err = p.FailDetail
	}
	return sub, nil
}

// SendCalls returns how many bundles were sent.
func (p *Priority) SendCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sendCalls
}

// PollCalls returns how many status polls were made.
func (p *Priority) PollCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pollCalls
}

// LastSent returns the artifacts of the most recent bundle.
func (p *Priority) LastSent() []*domain.SignedArtifact {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastSent
}

var _ submit.PriorityChannel = (*Priority)(nil)

// Direct implements submit.DirectChannel with a fixed signature.
type Direct struct {
	mu sync.Mutex

	// Signature is returned by every successful Send.
	Signature string
	// Errs are consumed one per Send call; a drained script means
	// sends succeed.
	Errs []error

	calls int
	last  *domain.SignedArtifact
}

// NewDirect creates a stub that accepts every transaction.
func NewDirect() *Direct {
	return &Direct{Signature: "DirectSig1111111111111111111111111111111111"}
}

func (d *Direct) Send(ctx context.Context, artifact *domain.SignedArtifact) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.calls++
	d.last = artifact

	if len(d.Errs) > 0 {
		err := d.Errs[0]
		d.Errs = d.Errs[1:]
		if err != nil {
			return "", err
		}
	}
	return d.Signature, nil
}

// Calls returns how many sends were attempted.
func (d *Direct) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// Last returns the most recently sent artifact.
func (d *Direct) Last() *domain.SignedArtifact {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

var _ submit.DirectChannel = (*Direct)(nil)
