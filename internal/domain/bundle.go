package domain

// BundleStatus is the lifecycle state of a priority-channel submission.
type BundleStatus string

const (
	BundlePending BundleStatus = "PENDING"
	BundleLanded  BundleStatus = "LANDED"
	BundleFailed  BundleStatus = "FAILED"
	BundleTimeout BundleStatus = "TIMEOUT"
)

// String returns the string representation of BundleStatus.
func (s BundleStatus) String() string {
	return string(s)
}

// Terminal reports whether the status will no longer change.
func (s BundleStatus) Terminal() bool {
	return s == BundleLanded || s == BundleFailed || s == BundleTimeout
}

// BundleSubmission tracks one bundle sent through the priority channel.
// It is created by the send, polled until terminal, then discarded.
type BundleSubmission struct {
	ID         string
	Status     BundleStatus
	Signatures []string // transaction signatures carried by the bundle
	Err        string   // failure detail when Status is FAILED
}
