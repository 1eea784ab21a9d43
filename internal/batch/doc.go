/*
Package batch throttles expensive work behind a FIFO queue.

A Processor accepts requests through Submit and runs them through a handler
in cycles: each cycle dequeues up to BatchSize tasks, starts them in order
with ItemDelay between starts, waits for the cycle to finish and repeats while
the queue is non-empty. One drain loop runs at a time; it starts on demand
and exits when the queue empties.

	proc := batch.New(gen.Generate, media.RequestKey, batch.Options{
	    BatchSize: 4,
	    ItemDelay: 10 * time.Millisecond,
	    Gate:      monitor,
	})
	defer proc.Close()

	thumb, err := proc.Submit(ctx, req)

Requests with the same key that overlap share one execution. A failing task
rejects only its own callers. A cancelled caller context stops that caller
waiting but the task still runs to completion.

Close rejects queued tasks with ErrClosed and waits for in-flight ones.
*/
package batch
