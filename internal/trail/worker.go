package trail

import "context"

// Worker consumes records from a channel and hands them to the
// recorder. Callback outcomes are produced after the HTTP response has
// gone out, so their trail writes run detached from any request
// goroutine.
type Worker struct {
	recorder *Recorder
	inbox    <-chan Record
}

func NewWorker(recorder *Recorder, inbox <-chan Record) *Worker {
	return &Worker{recorder: recorder, inbox: inbox}
}

// Run drains the inbox until the context is cancelled. Records still
// queued at shutdown are dropped; the recorder already treats every
// write as best-effort.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rec := <-w.inbox:
			w.recorder.Record(ctx, rec)
		}
	}
}
