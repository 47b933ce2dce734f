/*
Package resilience guards a volume that has reported failures.

A Guard counts failures as classified by Settings.IsFailure. Once Threshold
consecutive failures are seen it opens and rejects calls with
ErrCircuitOpen. After Cooldown one trial request is let through: success closes
the guard, failure opens it again.

	guard := resilience.NewGuard("volume", resilience.Settings{
		Cooldown:  30 * time.Second,
		IsFailure: func(err error) bool { return file.Classify(err) == file.KindFatal },
	})

	err := guard.Do(func() error {
		_, err := runtime.Execute(ctx, src)
		return err
	})

# States

	Closed --[failures]-> Open --[cooldown]-> Half-Open --[success]-> Closed
	                                              |
	                                          [failure]
	                                              v
	                                            Open
*/
package resilience
