/*
Package executor drives a compiled test spec against the blitz testing service.

# Lifecycle

An Engine moves through

	Idle → Authenticating → Submitting → Polling → {Completed | Aborted | Failed}

The spec is validated before any network call. Login exchanges the long-lived
API key for a short-lived job key, which is attached as X-API-Key on the submit,
status and abort calls. Every poll is decoded with the result package and
handed to the Listener's OnStatus callback; returning false aborts the job and
OnComplete is never called. OnComplete runs exactly once when the service
reports the job as completed.

# Errors

	*types.ValidationError    spec incomplete, nothing sent
	*AuthenticationError      login rejected, carries the service code and reason
	*ServiceError             any other {"error":..,"reason":..} document
	*TransportError           the service could not be reached (errors.Is ErrTransport)

Nothing is retried. Only the status poll repeats, on a fixed interval.

# Example

	client, err := executor.NewClient(executor.DefaultEndpoint, executor.Credentials{
		Username: "you@example.com",
		APIKey:   "long-lived-key",
	})
	if err != nil {
		return err
	}
	spec, err := parser.Compile("-p 1-250:60 http://your.app")
	if err != nil {
		return err
	}
	run, err := executor.NewEngine(client).Execute(ctx, spec, executor.Listener{
		OnStatus: func(r result.Result) bool {
			return true
		},
		OnComplete: func(r result.Result) {
			fmt.Println("done", r.RegionName())
		},
	})
*/
package executor
