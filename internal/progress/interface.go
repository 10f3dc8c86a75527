package progress

import (
	"sync"

	"github.com/docupload/docupload/internal/events"
)

// Sink receives upload lifecycle events in publication order.
// The terminal UIs and the GUI progress dialog implement it.
type Sink interface {
	OnStage(e *events.StageChangeEvent)
	OnFileUploaded(e *events.FileUploadedEvent)
	OnDocument(e *events.DocumentEvent)
	OnBatch(e *events.BatchEvent)
}

// Follow subscribes sink to bus and delivers events from a background
// goroutine. The returned stop function unsubscribes, delivers whatever is
// still buffered and returns once the goroutine has exited. Call it after the
// upload returns so every event of the batch reaches the sink.
func Follow(bus *events.EventBus, sink Sink) (stop func()) {
	ch := bus.SubscribeAll()
	quit := make(chan struct{})
	exited := make(chan struct{})

	go func() {
		defer close(exited)
		for {
			select {
			case ev, ok := <-ch:
				if !ok {
					return
				}
				dispatch(sink, ev)
			case <-quit:
				for {
					select {
					case ev, ok := <-ch:
						if !ok {
							return
						}
						dispatch(sink, ev)
					default:
						return
					}
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			bus.UnsubscribeAll(ch)
			close(quit)
			<-exited
		})
	}
}

func dispatch(sink Sink, ev events.Event) {
	switch e := ev.(type) {
	case *events.StageChangeEvent:
		sink.OnStage(e)
	case *events.FileUploadedEvent:
		sink.OnFileUploaded(e)
	case *events.DocumentEvent:
		sink.OnDocument(e)
	case *events.BatchEvent:
		sink.OnBatch(e)
	}
}
