package calibration

import "charucocalib/internal/model"

// Observer is notified after each frame of a pass.
type Observer interface {
	FrameProcessed(ev model.FrameEvent)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ev model.FrameEvent)

func (f ObserverFunc) FrameProcessed(ev model.FrameEvent) { f(ev) }

// NopObserver ignores all events.
type NopObserver struct{}

func (NopObserver) FrameProcessed(model.FrameEvent) {}
