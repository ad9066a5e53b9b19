package aesdrv

// Deactivate is not itself a state machine: spec §4.3 describes it as
// session-level coordination, not a fifth phase script. It cancels
// whatever read is currently outstanding, lets the running phase observe
// the deactivating flag and wind down to its own SET_IDLE state, then
// clears accumulated capture state and notifies the sink. onDone runs
// once the currently running phase (if any) has reached its terminal
// state.
//
// Grounded on original_source/libfprint/drivers/aes1660.c's dev_deactivate
// (sets aesdev->deactivating) and complete_deactivation (clears the strip
// list, clears the flag, reports completion) — here made explicit rather
// than relying on a transfer's natural completion to notice the flag,
// since Go has no equivalent of libusb's transfer-cancellation callback
// chain to lean on implicitly. Waiting for completion is done by
// registering onDone with the running phase (drained by
// notifyPhaseTerminal) rather than polling, since every phase's own
// completion callback already runs on this same dispatch.Worker.
func (s *Session) Deactivate(onDone func()) {
	s.Worker.Post(func() {
		s.deactivating = true
		s.cancelOutstandingRead()

		if !s.phaseRunning() {
			s.finishDeactivation()
			if onDone != nil {
				onDone()
			}
			return
		}

		if onDone == nil {
			onDone = func() {}
		}
		s.deactivateWaiters = append(s.deactivateWaiters, onDone)
	})
}

// phaseRunning reports whether any phase SSM is currently mid-run.
func (s *Session) phaseRunning() bool {
	return !s.activate.Completed() || !s.fdet.Completed() || !s.capture.Completed()
}
