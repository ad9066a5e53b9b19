package aesdrv

import (
	"github.com/swipesensor/fpdrv/internal/ssm"
)

// Finger-detection phase states, per spec §4.3: SEND_LED ->
// [SEND_CALIBRATE -> READ_CALIBRATE] -> SEND_WAIT_FOR_FINGER ->
// READ_FD_RESPONSE -> SET_IDLE -> done. Grounded on aes1660.c's enum
// finger_det_states; aes2550.c's simpler two-callback chain
// (finger_det_reqs_cb/finger_det_data_cb) is the same script with
// Family.CalibrateInFingerDetect false, skipping the calibrate sub-steps.
const (
	fdetSendLED = iota
	fdetSendCalibrate
	fdetReadCalibrate
	fdetSendWaitForFinger
	fdetReadResponse
	fdetSetIdle
	fdetNumStates
)

// FingerDetect runs one finger-detection pass to completion. onDone
// receives nil and present=true when a finger was detected and capture
// should start next, nil and present=false when Deactivate interrupted
// the wait, or a non-nil error on protocol/I-O failure.
func (s *Session) FingerDetect(onDone func(present bool, err error)) {
	s.fdet.Start(func(m *ssm.SSM) {
		err := m.Err()
		present := !s.deactivating && err == nil
		s.notifyPhaseTerminal()
		if onDone != nil {
			onDone(present, err)
		}
	})
}

func (s *Session) fingerDetectHandler(m *ssm.SSM) {
	switch m.State() {
	case fdetSendLED:
		s.sendCommand(s.Family.LEDOnCmd, func(err error) {
			if err != nil {
				m.MarkAborted(ioErrorf("finger-detect: send led"))
				return
			}
			if !s.Family.CalibrateInFingerDetect {
				m.JumpToState(fdetSendWaitForFinger)
				return
			}
			m.NextState()
		})

	case fdetSendCalibrate:
		s.sendCommand(s.Family.CalibrateCmd, func(err error) {
			if err != nil {
				m.MarkAborted(ioErrorf("finger-detect: send calibrate"))
				return
			}
			m.NextState()
		})

	case fdetReadCalibrate:
		s.readResponse(s.Family.CalibrateResponseLength, func(data []byte, err error) {
			if err != nil {
				m.MarkAborted(ioErrorf("finger-detect: read calibrate"))
				return
			}
			m.NextState()
		})

	case fdetSendWaitForFinger:
		s.sendCommand(s.Family.WaitForFingerCmd, func(err error) {
			if err != nil {
				m.MarkAborted(ioErrorf("finger-detect: send wait-for-finger"))
				return
			}
			m.NextState()
		})

	case fdetReadResponse:
		// This read has no practical timeout: the sensor only replies
		// once a finger lands (or never, until deactivation cancels it),
		// so it is the one read in this phase Deactivate may interrupt.
		s.readCancellable(s.Family.FingerDetectRespLength, func(data []byte, err error) {
			// The deactivating flag takes priority over a transport error:
			// the only way this read fails while deactivating is that
			// Deactivate itself cancelled it, which is a successful wind-
			// down, not a session error (spec §4.3/§4.6).
			if s.deactivating {
				m.JumpToState(fdetSetIdle)
				return
			}
			if err != nil {
				m.MarkAborted(ioErrorf("finger-detect: read response"))
				return
			}
			if len(data) < 4 {
				m.MarkAborted(protocolErrorf("finger-detect: response too short (%d bytes)", len(data)))
				return
			}
			if data[0] != 0x01 && data[0] != 0x40 {
				m.MarkAborted(protocolErrorf("finger-detect: bad response opcode 0x%02x", data[0]))
				return
			}
			if data[3] == 0x01 {
				s.setFingerPresent(true)
				m.JumpToState(fdetSetIdle)
				return
			}
			// No finger yet: poll again.
			m.JumpToState(fdetSendWaitForFinger)
		})

	case fdetSetIdle:
		s.sendCommand(s.Family.SetIdleCmd, func(err error) {
			if err != nil {
				m.MarkAborted(ioErrorf("finger-detect: set idle"))
				return
			}
			m.MarkCompleted()
		})

	default:
		panic("aesdrv: finger-detect handler reached an unknown state")
	}
}
