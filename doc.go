/*
Package loadkit coordinates the ingestion of medical-imaging datasets, or of a saved viewer
state, from local files, remote URLs or in-memory buffers.

A Controller routes each request to a loader backend, turns the backend callbacks into one
ordered stream of relay events, lets the caller abort the load in flight and decides whether
the dataset is made of a single slice.

# Usage

	ctl := loadkit.New(loadkit.WithLogger(logger))
	ctl.AddEventListener(domain.EventLoadSlice, func(e domain.Event) {
		fmt.Println(e.(domain.SliceEvent).Data.Name)
	})
	if err := ctl.LoadFiles(ctx, []string{"series/1.dcm", "series/2.dcm"}); err != nil {
		log.Fatal(err)
	}

# Events

An image load emits load-start, then load-item-start and load-slice per item (plus the
backend's load-progress), then exactly one of load-error or load-abort when the load does not
succeed, and always finishes with load-progress{100/100} followed by load-end.

A request whose first item ends in .json is a saved state. It only reports load-error through
the relay and hands the document to the OnLoadStateData host hook.
*/
package loadkit
