package imports

// Report is the outcome of one catalog import run. Partial failure is a
// first-class successful-with-report outcome, never an error.
type Report struct {
	batchID   string
	submitted int
	succeeded int
	failed    int
	failedIDs []string
}

// NewReport creates an import report. failedIDs keeps submission order.
func NewReport(batchID string, submitted, succeeded int, failedIDs []string) Report {
	return Report{
		batchID:   batchID,
		submitted: submitted,
		succeeded: succeeded,
		failed:    len(failedIDs),
		failedIDs: failedIDs,
	}
}

// BatchID returns the identifier of this import run.
func (r Report) BatchID() string { return r.batchID }

// Submitted returns how many products were submitted.
func (r Report) Submitted() int { return r.submitted }

// Succeeded returns how many products were upserted remotely.
func (r Report) Succeeded() int { return r.succeeded }

// Failed returns how many products failed.
func (r Report) Failed() int { return r.failed }

// FailedIDs returns the failed product ids in submission order, for targeted
// re-submission.
func (r Report) FailedIDs() []string { return r.failedIDs }
